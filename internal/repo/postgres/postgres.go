package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/pingdeck/pingdeck/internal/domain"
	"github.com/pingdeck/pingdeck/internal/repo"
)

var (
	_ repo.EndpointStore = (*Store)(nil)
	_ repo.ResultStore   = (*Store)(nil)
)

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables and the (endpoint_id, checked_at)
// index if they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// ---- EndpointStore ----

func (s *Store) Create(ctx context.Context, e *domain.Endpoint) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO endpoints (name, address, kind, port, enabled, display_order, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		e.Name, e.Address, string(e.Kind), e.Port, e.Enabled, e.DisplayOrder, e.CreatedAt,
	).Scan(&e.ID)
	if isUniqueViolation(err) {
		return repo.ErrDuplicateAddress
	}
	if err != nil {
		return fmt.Errorf("insert endpoint: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]domain.Endpoint, error) {
	return s.list(ctx, false)
}

func (s *Store) ListEnabled(ctx context.Context) ([]domain.Endpoint, error) {
	return s.list(ctx, true)
}

func (s *Store) list(ctx context.Context, enabledOnly bool) ([]domain.Endpoint, error) {
	q := `SELECT id, name, address, kind, port, enabled, display_order, created_at
	        FROM endpoints`
	if enabledOnly {
		q += ` WHERE enabled`
	}
	q += ` ORDER BY display_order, id`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list endpoints: %w", err)
	}
	defer rows.Close()

	var out []domain.Endpoint
	for rows.Next() {
		e, err := scanEndpoint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, id domain.EndpointID) (*domain.Endpoint, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, address, kind, port, enabled, display_order, created_at
		   FROM endpoints WHERE id = $1`, int64(id))
	e, err := scanEndpoint(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) Update(ctx context.Context, id domain.EndpointID, p repo.EndpointPatch) (*domain.Endpoint, error) {
	sets := make([]string, 0, 6)
	args := make([]any, 0, 7)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Address != nil {
		add("address", *p.Address)
	}
	if p.Kind != nil {
		add("kind", string(*p.Kind))
	}
	if p.Port != nil {
		add("port", *p.Port)
	}
	if p.Enabled != nil {
		add("enabled", *p.Enabled)
	}
	if p.DisplayOrder != nil {
		add("display_order", *p.DisplayOrder)
	}
	if len(sets) == 0 {
		return s.Get(ctx, id)
	}
	args = append(args, int64(id))

	q := fmt.Sprintf(
		`UPDATE endpoints SET %s WHERE id = $%d
		 RETURNING id, name, address, kind, port, enabled, display_order, created_at`,
		strings.Join(sets, ", "), len(args))

	e, err := scanEndpoint(s.pool.QueryRow(ctx, q, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repo.ErrNotFound
	}
	if isUniqueViolation(err) {
		return nil, repo.ErrDuplicateAddress
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) Delete(ctx context.Context, id domain.EndpointID) error {
	// probe_results go with it via ON DELETE CASCADE
	tag, err := s.pool.Exec(ctx, `DELETE FROM endpoints WHERE id = $1`, int64(id))
	if err != nil {
		return fmt.Errorf("delete endpoint: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) Reorder(ctx context.Context, items []repo.OrderItem) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reorder: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, it := range items {
		if _, err := tx.Exec(ctx,
			`UPDATE endpoints SET display_order = $1 WHERE id = $2`,
			it.DisplayOrder, int64(it.ID)); err != nil {
			return fmt.Errorf("reorder endpoint %d: %w", it.ID, err)
		}
	}
	return tx.Commit(ctx)
}

// ---- ResultStore ----

func (s *Store) Append(ctx context.Context, r *domain.ProbeResult) error {
	if r.CheckedAt.IsZero() {
		r.CheckedAt = time.Now().UTC()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO probe_results (endpoint_id, up, latency_ms, reason, checked_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		int64(r.EndpointID), r.Up, r.LatencyMS, r.Reason, r.CheckedAt,
	).Scan(&r.ID)
	if isForeignKeyViolation(err) {
		return repo.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (s *Store) Latest(ctx context.Context, id domain.EndpointID) (*domain.ProbeResult, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, up, latency_ms, reason, checked_at
		   FROM probe_results
		  WHERE endpoint_id = $1
		  ORDER BY checked_at DESC, id DESC
		  LIMIT 1`, int64(id))

	r := domain.ProbeResult{EndpointID: id}
	var lat sql.NullFloat64
	err := row.Scan(&r.ID, &r.Up, &lat, &r.Reason, &r.CheckedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repo.ErrNoResults
	}
	if err != nil {
		return nil, fmt.Errorf("latest: %w", err)
	}
	if lat.Valid {
		v := lat.Float64
		r.LatencyMS = &v
	}
	return &r, nil
}

func (s *Store) History(ctx context.Context, id domain.EndpointID, since time.Time) ([]domain.ProbeResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, up, latency_ms, reason, checked_at
		   FROM probe_results
		  WHERE endpoint_id = $1 AND checked_at >= $2
		  ORDER BY checked_at DESC, id DESC`, int64(id), since)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ProbeResult, 0, 64)
	for rows.Next() {
		r := domain.ProbeResult{EndpointID: id}
		var lat sql.NullFloat64
		if err := rows.Scan(&r.ID, &r.Up, &lat, &r.Reason, &r.CheckedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if lat.Valid {
			v := lat.Float64
			r.LatencyMS = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) UptimePercent(ctx context.Context, id domain.EndpointID, since time.Time) (float64, int, error) {
	var total, upCount int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE up)
		   FROM probe_results
		  WHERE endpoint_id = $1 AND checked_at >= $2`, int64(id), since,
	).Scan(&total, &upCount)
	if err != nil {
		return 0, 0, fmt.Errorf("uptime percent: %w", err)
	}
	if total == 0 {
		return 0, 0, nil
	}
	return float64(upCount) / float64(total) * 100, int(total), nil
}

func (s *Store) Stats(ctx context.Context, id domain.EndpointID) (*domain.Stats, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	st := &domain.Stats{EndpointID: id}
	var upCount, recent, recentUp int64
	var avg sql.NullFloat64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE up),
		        AVG(latency_ms),
		        COUNT(*) FILTER (WHERE checked_at >= now() - interval '24 hours'),
		        COUNT(*) FILTER (WHERE up AND checked_at >= now() - interval '24 hours')
		   FROM probe_results
		  WHERE endpoint_id = $1`, int64(id),
	).Scan(&st.TotalChecks, &upCount, &avg, &recent, &recentUp)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	if st.TotalChecks > 0 {
		st.UptimePercent = float64(upCount) / float64(st.TotalChecks) * 100
	}
	if avg.Valid {
		v := avg.Float64
		st.AvgLatencyMS = &v
	}
	if recent > 0 {
		st.Last24hUptime = float64(recentUp) / float64(recent) * 100
	}
	return st, nil
}

func (s *Store) LatestAll(ctx context.Context) ([]repo.StatusRow, error) {
	rows, err := s.pool.Query(ctx, `
SELECT DISTINCT ON (endpoint_id)
       endpoint_id, up, latency_ms, reason, checked_at
  FROM probe_results
 ORDER BY endpoint_id, checked_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("latest all: %w", err)
	}
	defer rows.Close()

	var out []repo.StatusRow
	for rows.Next() {
		var row repo.StatusRow
		var lat sql.NullFloat64
		if err := rows.Scan(&row.EndpointID, &row.Up, &lat, &row.Reason, &row.CheckedAt); err != nil {
			return nil, fmt.Errorf("scan latest: %w", err)
		}
		if lat.Valid {
			v := lat.Float64
			row.LatencyMS = &v
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM probe_results WHERE checked_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old results: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ---- helpers ----

func scanEndpoint(row pgx.Row) (domain.Endpoint, error) {
	var e domain.Endpoint
	var kind string
	err := row.Scan(&e.ID, &e.Name, &e.Address, &kind, &e.Port, &e.Enabled, &e.DisplayOrder, &e.CreatedAt)
	if err != nil {
		return e, err
	}
	e.Kind = domain.Kind(kind)
	return e, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
