package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	now    func() time.Time
}

// NewPostgresStore connects a pgx pool and applies the schema.
func NewPostgresStore(ctx context.Context, opts ...Option) (*PostgresStore, error) {
	cfg := applyOpts(opts)
	if cfg.DSN == "" {
		return nil, errors.New("database DSN not set")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresMigrations); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	cfg.Logger.Debug("postgres store ready")
	return &PostgresStore{pool: pool, logger: cfg.Logger, now: time.Now}, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, sessionID string, meta *Metadata, rec Recommendation) (err error) {
	if err := checkUpsert(sessionID, rec); err != nil {
		return err
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	now := s.now().UTC()
	var m Metadata
	if meta != nil {
		m = *meta
	}
	q := `INSERT INTO profiles (session_id, ip, country, city, lat, lon, isp, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (session_id) DO UPDATE SET updated_at = EXCLUDED.updated_at`
	if meta != nil {
		q += `, ip = EXCLUDED.ip, country = EXCLUDED.country, city = EXCLUDED.city,
		lat = EXCLUDED.lat, lon = EXCLUDED.lon, isp = EXCLUDED.isp`
	}
	if _, err = tx.Exec(ctx, q, sessionID, m.IP, m.Country, m.City, m.Lat, m.Lon, m.ISP, now); err != nil {
		return fmt.Errorf("failed to upsert profile %s: %w", sessionID, err)
	}

	_, err = tx.Exec(ctx, `INSERT INTO recommendations
		(id, session_id, goal, weight, height, exercise_frequency, text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, sessionID, rec.Goal, rec.Weight, rec.Height, rec.ExerciseFrequency, rec.Text, rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert recommendation for %s: %w", sessionID, err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, sessionID string) (*UserProfile, error) {
	p := UserProfile{SessionID: sessionID}
	m := &p.Metadata
	err := s.pool.QueryRow(ctx, `SELECT ip, country, city, lat, lon, isp, created_at, updated_at
		FROM profiles WHERE session_id = $1`, sessionID).
		Scan(&m.IP, &m.Country, &m.City, &m.Lat, &m.Lon, &m.ISP, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %s: %w", sessionID, err)
	}
	p.CreatedAt, p.UpdatedAt = p.CreatedAt.UTC(), p.UpdatedAt.UTC()

	rows, err := s.pool.Query(ctx, `SELECT id, goal, weight, height, exercise_frequency, text, created_at
		FROM recommendations WHERE session_id = $1 ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations for %s: %w", sessionID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var r Recommendation
		if err := rows.Scan(&r.ID, &r.Goal, &r.Weight, &r.Height, &r.ExerciseFrequency, &r.Text, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation row: %w", err)
		}
		r.CreatedAt = r.CreatedAt.UTC()
		p.Recommendations = append(p.Recommendations, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recommendation rows: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]ProfileSummary, error) {
	rows, err := s.pool.Query(ctx, `SELECT p.session_id, p.country, p.city, p.updated_at,
		(SELECT COUNT(*) FROM recommendations r WHERE r.session_id = p.session_id)
		FROM profiles p ORDER BY p.updated_at DESC, p.session_id LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	out := []ProfileSummary{}
	for rows.Next() {
		var (
			ps ProfileSummary
			n  int64
		)
		if err := rows.Scan(&ps.SessionID, &ps.Country, &ps.City, &ps.UpdatedAt, &n); err != nil {
			return nil, fmt.Errorf("failed to scan profile row: %w", err)
		}
		ps.Recommendations = int(n)
		ps.UpdatedAt = ps.UpdatedAt.UTC()
		out = append(out, ps)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Stats(ctx context.Context, since time.Time) (Stats, error) {
	rows, err := s.pool.Query(ctx, `SELECT goal, COUNT(*) FROM recommendations
		WHERE created_at >= $1 GROUP BY goal`, since.UTC())
	if err != nil {
		return Stats{}, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	st := Stats{ByGoal: make(map[string]int)}
	for rows.Next() {
		var (
			goal string
			n    int64
		)
		if err := rows.Scan(&goal, &n); err != nil {
			return Stats{}, fmt.Errorf("failed to scan stats row: %w", err)
		}
		st.ByGoal[goal] = int(n)
		st.Total += int(n)
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	var profiles int64
	err = s.pool.QueryRow(ctx, `SELECT COUNT(DISTINCT session_id) FROM recommendations WHERE created_at >= $1`,
		since.UTC()).Scan(&profiles)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count profiles: %w", err)
	}
	st.Profiles = int(profiles)
	return st, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
