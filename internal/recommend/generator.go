package recommend

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rufetisr/FitnessTelegramBot/internal/geo"
	"github.com/rufetisr/FitnessTelegramBot/internal/intake"
	"github.com/rufetisr/FitnessTelegramBot/internal/llm"
	"github.com/rufetisr/FitnessTelegramBot/internal/metrics"
	"github.com/rufetisr/FitnessTelegramBot/internal/store"
)

// Locator resolves a client IP to a location.
type Locator interface {
	Lookup(ctx context.Context, ip string) (geo.Location, error)
}

// Generator implements intake.Recommender.
type Generator struct {
	client       llm.Client
	profiles     store.ProfileStore
	locator      Locator
	systemPrompt string
	timeout      time.Duration
	logger       *zap.Logger
	now          func() time.Time
	newID        func() string
}

type Option func(*Generator)

// WithLocator enables geo enrichment of stored profiles.
func WithLocator(l Locator) Option { return func(g *Generator) { g.locator = l } }

func WithSystemPrompt(p string) Option {
	return func(g *Generator) { g.systemPrompt = strings.TrimSpace(p) }
}

// WithTimeout bounds one whole generation. Zero disables the bound.
func WithTimeout(d time.Duration) Option { return func(g *Generator) { g.timeout = d } }

func WithLogger(l *zap.Logger) Option { return func(g *Generator) { g.logger = l } }

func withClock(now func() time.Time) Option { return func(g *Generator) { g.now = now } }

func NewGenerator(client llm.Client, profiles store.ProfileStore, opts ...Option) *Generator {
	g := &Generator{
		client:   client,
		profiles: profiles,
		logger:   zap.NewNop(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	return g
}

var _ intake.Recommender = (*Generator)(nil)

// Recommend asks the LLM once, stores the result and returns the reply text.
// Nothing is stored when the completion fails.
func (g *Generator) Recommend(ctx context.Context, req intake.Request) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	logger := g.logger.With(zap.String("session_id", req.SessionID))
	p := req.Profile

	var messages []llm.Message
	if g.systemPrompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: g.systemPrompt})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: BuildPrompt(p)})

	start := time.Now()
	resp, err := g.client.Generate(ctx, messages)
	metrics.ObserveCompletion(time.Since(start))
	if err != nil {
		metrics.RecordRecommendationFailure("completion")
		return "", fmt.Errorf("generate recommendation: %w", err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		metrics.RecordRecommendationFailure("completion")
		return "", fmt.Errorf("generate recommendation: %w", llm.ErrEmptyResponse)
	}
	logger.Debug("completion received",
		zap.String("model", resp.Model),
		zap.Int("total_tokens", resp.TotalTokens),
		zap.Duration("took", time.Since(start)))

	text := CleanText(resp.Content)
	rec := store.Recommendation{
		ID:                g.newID(),
		Goal:              p.Goal.Token(),
		Weight:            p.Weight,
		Height:            p.Height,
		ExerciseFrequency: p.ExerciseFrequency,
		Text:              text,
		CreatedAt:         g.now().UTC(),
	}
	if err := g.profiles.Upsert(ctx, req.SessionID, g.locate(ctx, logger, req.ClientIP), rec); err != nil {
		metrics.RecordRecommendationFailure("persist")
		return "", fmt.Errorf("save recommendation: %w", err)
	}

	metrics.RecordRecommendation(p.Goal.Token())
	return FormatReply(p, text), nil
}

// locate returns nil when enrichment is disabled or fails, so the stored
// metadata is left as it was.
func (g *Generator) locate(ctx context.Context, logger *zap.Logger, ip string) *store.Metadata {
	if g.locator == nil || ip == "" {
		return nil
	}
	loc, err := g.locator.Lookup(ctx, ip)
	if err != nil {
		logger.Warn("geo lookup failed", zap.String("ip", ip), zap.Error(err))
		return nil
	}
	return &store.Metadata{
		IP:      loc.IP,
		Country: loc.Country,
		City:    loc.City,
		Lat:     loc.Lat,
		Lon:     loc.Lon,
		ISP:     loc.ISP,
	}
}

// LoadSystemPrompt reads an optional system prompt file. A missing path
// yields an empty prompt.
func LoadSystemPrompt(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read system prompt %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}
