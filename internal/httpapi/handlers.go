package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pingdeck/pingdeck/internal/domain"
	apimw "github.com/pingdeck/pingdeck/internal/httpapi/middleware"
	"github.com/pingdeck/pingdeck/internal/repo"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func pathID(r *http.Request) (domain.EndpointID, bool) {
	n, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return domain.EndpointID(n), true
}

// hoursWindow parses ?hours=, defaulting to 24 and refusing nonsense.
func hoursWindow(r *http.Request) (time.Time, int, bool) {
	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return time.Time{}, 0, false
		}
		hours = n
	}
	return time.Now().UTC().Add(-time.Duration(hours) * time.Hour), hours, true
}

// ---- auth ----

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.AdminUser == "" || s.Sessions == nil {
		writeError(w, http.StatusForbidden, "login disabled")
		return
	}
	var p loginPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	userOK := subtle.ConstantTimeCompare([]byte(p.Username), []byte(s.AdminUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(p.Password), []byte(s.AdminPass)) == 1
	if !userOK || !passOK {
		s.Logger.Warn("login_failed", zap.String("username", p.Username))
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, expiresAt, err := s.Sessions.Issue()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": expiresAt.UTC(),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s.Sessions != nil {
		s.Sessions.Revoke(apimw.BearerToken(r))
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- registry ----

type createPayload struct {
	Name         string      `json:"name"`
	Address      string      `json:"address"`
	Kind         domain.Kind `json:"kind,omitempty"`
	Port         int         `json:"port,omitempty"`
	Enabled      *bool       `json:"enabled,omitempty"`
	DisplayOrder int         `json:"display_order,omitempty"`
}

func (s *Server) handleCreateServer(w http.ResponseWriter, r *http.Request) {
	var p createPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	e := domain.Endpoint{
		Name:         p.Name,
		Address:      p.Address,
		Kind:         p.Kind,
		Port:         p.Port,
		Enabled:      true,
		DisplayOrder: p.DisplayOrder,
	}
	if p.Enabled != nil {
		e.Enabled = *p.Enabled
	}
	if err := e.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.Endpoints.Create(r.Context(), &e); err != nil {
		if errors.Is(err, repo.ErrDuplicateAddress) {
			writeError(w, http.StatusConflict, "address already registered")
			return
		}
		s.Logger.Error("create_endpoint", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not create")
		return
	}
	s.Logger.Info("endpoint_created",
		zap.Int64("endpoint_id", int64(e.ID)),
		zap.String("address", e.Address),
	)
	writeJSON(w, http.StatusCreated, e)
}

type updatePayload struct {
	Name         *string      `json:"name"`
	Address      *string      `json:"address"`
	Kind         *domain.Kind `json:"kind"`
	Port         *int         `json:"port"`
	Enabled      *bool        `json:"enabled"`
	DisplayOrder *int         `json:"display_order"`
}

func (s *Server) handleUpdateServer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad id")
		return
	}
	var p updatePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}

	// The patched endpoint must hold up to the same validation as a
	// fresh one; otherwise an update could blank out the name or pair
	// an http kind with a bare host.
	cur, err := s.Endpoints.Get(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "server not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get error")
		return
	}
	next := *cur
	if p.Name != nil {
		next.Name = *p.Name
	}
	if p.Address != nil {
		next.Address = *p.Address
	}
	if p.Kind != nil {
		next.Kind = *p.Kind
	}
	if p.Port != nil {
		next.Port = *p.Port
	}
	if err := next.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if p.Kind != nil {
		// Validate may have inferred a kind from an empty value.
		p.Kind = &next.Kind
	}

	e, err := s.Endpoints.Update(r.Context(), id, repo.EndpointPatch{
		Name:         p.Name,
		Address:      p.Address,
		Kind:         p.Kind,
		Port:         p.Port,
		Enabled:      p.Enabled,
		DisplayOrder: p.DisplayOrder,
	})
	switch {
	case errors.Is(err, repo.ErrNotFound):
		writeError(w, http.StatusNotFound, "server not found")
	case errors.Is(err, repo.ErrDuplicateAddress):
		writeError(w, http.StatusConflict, "address already registered")
	case err != nil:
		s.Logger.Error("update_endpoint", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not update")
	default:
		writeJSON(w, http.StatusOK, e)
	}
}

func (s *Server) handleDeleteServer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad id")
		return
	}
	err := s.Endpoints.Delete(r.Context(), id)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		writeError(w, http.StatusNotFound, "server not found")
	case err != nil:
		s.Logger.Error("delete_endpoint", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not delete")
	default:
		s.Logger.Info("endpoint_deleted", zap.Int64("endpoint_id", int64(id)))
		w.WriteHeader(http.StatusNoContent)
	}
}

type reorderPayload struct {
	Servers []repo.OrderItem `json:"servers"`
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	var p reorderPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || len(p.Servers) == 0 {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	if err := s.Endpoints.Reorder(r.Context(), p.Servers); err != nil {
		s.Logger.Error("reorder_endpoints", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not reorder")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "servers reordered"})
}

// ---- status / history ----

// serverStatus is an endpoint plus its derived current status. Status
// fields are null until the first probe lands.
type serverStatus struct {
	domain.Endpoint
	CurrentStatus *string    `json:"current_status"`
	LatencyMS     *float64   `json:"latency_ms"`
	LastChecked   *time.Time `json:"last_checked"`
	Reason        string     `json:"reason,omitempty"`
}

func statusOf(e domain.Endpoint, row *repo.StatusRow) serverStatus {
	st := serverStatus{Endpoint: e}
	if row == nil {
		return st
	}
	outcome := "down"
	if row.Up {
		outcome = "up"
	}
	checked := row.CheckedAt
	st.CurrentStatus = &outcome
	st.LatencyMS = row.LatencyMS
	st.LastChecked = &checked
	st.Reason = row.Reason
	return st
}

func (s *Server) handleListServers(w http.ResponseWriter, r *http.Request) {
	eps, err := s.Endpoints.List(r.Context())
	if err != nil {
		s.Logger.Error("list_endpoints", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list error")
		return
	}
	rows, err := s.Results.LatestAll(r.Context())
	if err != nil {
		s.Logger.Error("latest_all", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "status error")
		return
	}
	latest := make(map[domain.EndpointID]*repo.StatusRow, len(rows))
	for i := range rows {
		latest[rows[i].EndpointID] = &rows[i]
	}
	out := make([]serverStatus, 0, len(eps))
	for _, e := range eps {
		out = append(out, statusOf(e, latest[e.ID]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetServer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad id")
		return
	}
	e, err := s.Endpoints.Get(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "server not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get error")
		return
	}
	var row *repo.StatusRow
	if last, err := s.Results.Latest(r.Context(), id); err == nil {
		row = &repo.StatusRow{
			EndpointID: id,
			Up:         last.Up,
			LatencyMS:  last.LatencyMS,
			Reason:     last.Reason,
			CheckedAt:  last.CheckedAt,
		}
	} else if !errors.Is(err, repo.ErrNoResults) {
		writeError(w, http.StatusInternalServerError, "status error")
		return
	}
	writeJSON(w, http.StatusOK, statusOf(*e, row))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad id")
		return
	}
	since, _, ok := hoursWindow(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad hours")
		return
	}
	if _, err := s.Endpoints.Get(r.Context(), id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "server not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "get error")
		return
	}
	hist, err := s.Results.History(r.Context(), id, since)
	if err != nil {
		s.Logger.Error("history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "history error")
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

func (s *Server) handleUptime(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad id")
		return
	}
	since, hours, ok := hoursWindow(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad hours")
		return
	}
	if _, err := s.Endpoints.Get(r.Context(), id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "server not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "get error")
		return
	}
	pct, samples, err := s.Results.UptimePercent(r.Context(), id, since)
	if err != nil {
		s.Logger.Error("uptime_percent", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "uptime error")
		return
	}
	// null percentage when there is no data in the window
	var pctOut *float64
	if samples > 0 {
		pctOut = &pct
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"endpoint_id":    id,
		"hours":          hours,
		"samples":        samples,
		"uptime_percent": pctOut,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad id")
		return
	}
	st, err := s.Results.Stats(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "server not found")
		return
	}
	if err != nil {
		s.Logger.Error("stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "stats error")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ---- on-demand probe ----

// handlePingNow runs a single probe through the shared checker and
// records it immediately, without waiting for the next scheduled tick.
func (s *Server) handlePingNow(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad id")
		return
	}
	e, err := s.Endpoints.Get(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "server not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get error")
		return
	}

	cctx, cancel := context.WithTimeout(r.Context(), s.ProbeTimeout)
	defer cancel()
	out := s.Checker.Check(cctx, *e)

	cr := &domain.ProbeResult{
		EndpointID: e.ID,
		Up:         out.Up,
		LatencyMS:  out.LatencyMS,
		Reason:     out.Reason,
		CheckedAt:  time.Now().UTC(),
	}
	if err := s.Results.Append(r.Context(), cr); err != nil {
		s.Logger.Error("ping_append", zap.Int64("endpoint_id", int64(id)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not record result")
		return
	}
	s.Logger.Info("ping_now",
		zap.Int64("endpoint_id", int64(id)),
		zap.Bool("up", out.Up),
		zap.String("reason", out.Reason),
	)
	if s.Hub != nil {
		if rows, err := s.Results.LatestAll(r.Context()); err == nil {
			s.Hub.Publish(rows)
		}
	}
	writeJSON(w, http.StatusOK, cr)
}
