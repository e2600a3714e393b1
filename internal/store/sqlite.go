package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const defaultDirPermissions = 0o755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore keeps profiles in a local SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewSQLiteStore opens the database file named by the DSN, creating its
// directory and schema when missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	cfg := applyOpts(opts)
	dsn := strings.TrimPrefix(strings.TrimSpace(cfg.DSN), "sqlite://")
	if dsn == "" {
		return nil, errors.New("database DSN not set")
	}

	if path := strings.TrimPrefix(dsn, "file:"); !strings.HasPrefix(path, ":memory:") {
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path = path[:i]
		}
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, defaultDirPermissions); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// A single connection serialises writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping failed: %w", err)
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	cfg.Logger.Debug("sqlite store ready", zap.String("dsn", dsn))
	return &SQLiteStore{db: db, logger: cfg.Logger, now: time.Now}, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, sessionID string, meta *Metadata, rec Recommendation) (err error) {
	if err := checkUpsert(sessionID, rec); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := s.now().UTC()
	var m Metadata
	if meta != nil {
		m = *meta
	}
	q := `INSERT INTO profiles (session_id, ip, country, city, lat, lon, isp, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET updated_at = excluded.updated_at`
	if meta != nil {
		q += `, ip = excluded.ip, country = excluded.country, city = excluded.city,
		lat = excluded.lat, lon = excluded.lon, isp = excluded.isp`
	}
	if _, err = tx.ExecContext(ctx, q, sessionID, m.IP, m.Country, m.City, m.Lat, m.Lon, m.ISP, now, now); err != nil {
		return fmt.Errorf("failed to upsert profile %s: %w", sessionID, err)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO recommendations
		(id, session_id, goal, weight, height, exercise_frequency, text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, sessionID, rec.Goal, rec.Weight, rec.Height, rec.ExerciseFrequency, rec.Text, rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert recommendation for %s: %w", sessionID, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, sessionID string) (*UserProfile, error) {
	p := UserProfile{SessionID: sessionID}
	m := &p.Metadata
	err := s.db.QueryRowContext(ctx, `SELECT ip, country, city, lat, lon, isp, created_at, updated_at
		FROM profiles WHERE session_id = ?`, sessionID).
		Scan(&m.IP, &m.Country, &m.City, &m.Lat, &m.Lon, &m.ISP, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %s: %w", sessionID, err)
	}
	p.CreatedAt, p.UpdatedAt = p.CreatedAt.UTC(), p.UpdatedAt.UTC()

	rows, err := s.db.QueryContext(ctx, `SELECT id, goal, weight, height, exercise_frequency, text, created_at
		FROM recommendations WHERE session_id = ? ORDER BY seq`, sessionID)
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

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]ProfileSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT p.session_id, p.country, p.city, p.updated_at,
		(SELECT COUNT(*) FROM recommendations r WHERE r.session_id = p.session_id)
		FROM profiles p ORDER BY p.updated_at DESC, p.session_id LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	out := []ProfileSummary{}
	for rows.Next() {
		var ps ProfileSummary
		if err := rows.Scan(&ps.SessionID, &ps.Country, &ps.City, &ps.UpdatedAt, &ps.Recommendations); err != nil {
			return nil, fmt.Errorf("failed to scan profile row: %w", err)
		}
		ps.UpdatedAt = ps.UpdatedAt.UTC()
		out = append(out, ps)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Stats(ctx context.Context, since time.Time) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT goal, COUNT(*)
		FROM recommendations WHERE created_at >= ? GROUP BY goal`, since.UTC())
	if err != nil {
		return Stats{}, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	st := Stats{ByGoal: make(map[string]int)}
	for rows.Next() {
		var (
			goal string
			n    int
		)
		if err := rows.Scan(&goal, &n); err != nil {
			return Stats{}, fmt.Errorf("failed to scan stats row: %w", err)
		}
		st.ByGoal[goal] = n
		st.Total += n
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT session_id) FROM recommendations WHERE created_at >= ?`,
		since.UTC()).Scan(&st.Profiles)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count profiles: %w", err)
	}
	return st, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
