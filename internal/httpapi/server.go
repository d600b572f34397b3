package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	apimw "github.com/pingdeck/pingdeck/internal/httpapi/middleware"
	"github.com/pingdeck/pingdeck/internal/probe"
	"github.com/pingdeck/pingdeck/internal/repo"
)

type Server struct {
	Logger       *zap.Logger
	Endpoints    repo.EndpointStore
	Results      repo.ResultStore
	Checker      probe.Checker
	ProbeTimeout time.Duration

	AdminUser string
	AdminPass string
	Sessions  *apimw.SessionStore

	Hub *Hub
}

func NewServer(
	logger *zap.Logger,
	endpoints repo.EndpointStore,
	results repo.ResultStore,
	checker probe.Checker,
	probeTimeout time.Duration,
) *Server {
	return &Server{
		Logger:       logger,
		Endpoints:    endpoints,
		Results:      results,
		Checker:      checker,
		ProbeTimeout: probeTimeout,
	}
}

// Router builds the chi handler. Registry reads and history are public;
// everything that mutates the registry or triggers a probe sits behind
// the session middleware.
func (s *Server) Router(allowedOrigins []string, rps float64, burst int) http.Handler {
	r := chi.NewRouter()

	if len(allowedOrigins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		}).Handler)
	}
	r.Use(apimw.RateLimit(rps, burst))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Post("/api/auth/login", s.handleLogin)
	r.Post("/api/auth/logout", s.handleLogout)

	if s.Hub != nil {
		r.Get("/api/ws", s.Hub.ServeHTTP)
	}

	r.Route("/api/servers", func(r chi.Router) {
		r.Get("/", s.handleListServers)
		r.Get("/{id}", s.handleGetServer)
		r.Get("/{id}/history", s.handleHistory)
		r.Get("/{id}/uptime", s.handleUptime)
		r.Get("/{id}/stats", s.handleStats)

		r.Group(func(r chi.Router) {
			r.Use(apimw.RequireSession(s.Sessions))
			r.Post("/", s.handleCreateServer)
			r.Put("/{id}", s.handleUpdateServer)
			r.Delete("/{id}", s.handleDeleteServer)
			r.Post("/reorder", s.handleReorder)
			r.Post("/{id}/ping", s.handlePingNow)
		})
	})

	return r
}
