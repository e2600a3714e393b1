// Package store persists user profiles and the recommendations generated
// for them.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Recommendation is one generated recommendation with the answers that
// produced it. Records are append-only.
type Recommendation struct {
	ID                string    `json:"id"`
	Goal              string    `json:"goal"`
	Weight            float64   `json:"weight"`
	Height            float64   `json:"height"`
	ExerciseFrequency float64   `json:"exercise_frequency"`
	Text              string    `json:"text"`
	CreatedAt         time.Time `json:"created_at"`
}

// Metadata is the last known network and geo information of a user.
type Metadata struct {
	IP      string  `json:"ip"`
	Country string  `json:"country"`
	City    string  `json:"city"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	ISP     string  `json:"isp"`
}

type UserProfile struct {
	SessionID       string           `json:"session_id"`
	Metadata        Metadata         `json:"metadata"`
	Recommendations []Recommendation `json:"recommendations"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// ProfileSummary is a profile without the recommendation bodies.
type ProfileSummary struct {
	SessionID       string    `json:"session_id"`
	Country         string    `json:"country,omitempty"`
	City            string    `json:"city,omitempty"`
	Recommendations int       `json:"recommendations"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Stats aggregates recommendations created in a time window.
type Stats struct {
	Total    int            `json:"total"`
	Profiles int            `json:"profiles"`
	ByGoal   map[string]int `json:"by_goal"`
}

// ProfileStore is the persistence boundary of the bot.
type ProfileStore interface {
	// Upsert creates the profile if needed and appends rec. A nil meta keeps
	// the stored metadata as it is.
	Upsert(ctx context.Context, sessionID string, meta *Metadata, rec Recommendation) error
	// Get returns nil, nil when there is no profile for sessionID.
	Get(ctx context.Context, sessionID string) (*UserProfile, error)
	// List returns the most recently updated profiles first.
	List(ctx context.Context, limit int) ([]ProfileSummary, error)
	// Stats counts recommendations created at or after since.
	Stats(ctx context.Context, since time.Time) (Stats, error)
	Close() error
}

var ErrEmptySessionID = errors.New("empty session id")

const DefaultListLimit = 20

// Opts holds backend options.
type Opts struct {
	DSN           string
	MongoDatabase string
	Logger        *zap.Logger
}

type Option func(*Opts)

func WithDSN(dsn string) Option { return func(o *Opts) { o.DSN = dsn } }

func WithMongoDatabase(name string) Option { return func(o *Opts) { o.MongoDatabase = name } }

func WithLogger(l *zap.Logger) Option { return func(o *Opts) { o.Logger = l } }

const (
	DSNTypeMemory   = "memory"
	DSNTypeSQLite   = "sqlite"
	DSNTypePostgres = "postgres"
	DSNTypeMongo    = "mongo"
)

// DetectDSNType picks the backend from the shape of the DSN.
func DetectDSNType(dsn string) string {
	d := strings.TrimSpace(dsn)
	switch {
	case d == "":
		return DSNTypeMemory
	case strings.HasPrefix(d, "mongodb://"), strings.HasPrefix(d, "mongodb+srv://"):
		return DSNTypeMongo
	case strings.HasPrefix(d, "postgres://"), strings.HasPrefix(d, "postgresql://"), strings.Contains(d, "host="):
		return DSNTypePostgres
	default:
		return DSNTypeSQLite
	}
}

// Open connects to the backend selected by the DSN.
func Open(ctx context.Context, opts ...Option) (ProfileStore, error) {
	cfg := applyOpts(opts)
	kind := DetectDSNType(cfg.DSN)
	cfg.Logger.Info("opening profile store", zap.String("backend", kind))
	switch kind {
	case DSNTypeMongo:
		return NewMongoStore(ctx, opts...)
	case DSNTypePostgres:
		return NewPostgresStore(ctx, opts...)
	case DSNTypeSQLite:
		return NewSQLiteStore(opts...)
	default:
		cfg.Logger.Warn("DATABASE_URL not set, profiles are kept in memory only")
		return NewMemoryStore(), nil
	}
}

func applyOpts(opts []Option) Opts {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return cfg
}

func checkUpsert(sessionID string, rec Recommendation) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	if rec.ID == "" {
		return fmt.Errorf("recommendation for %s has no id", sessionID)
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > 500 {
		return 500
	}
	return limit
}
