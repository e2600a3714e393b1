package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rufetisr/FitnessTelegramBot/internal/intake"
	"github.com/rufetisr/FitnessTelegramBot/internal/store"
)

// DailyStats is the usage of the last 24 hours.
type DailyStats struct {
	From     time.Time      `json:"from"`
	To       time.Time      `json:"to"`
	Total    int            `json:"total_recommendations"`
	Profiles int            `json:"unique_users"`
	ByGoal   map[string]int `json:"by_goal"`
}

// StatsSource is implemented by every store.ProfileStore.
type StatsSource interface {
	Stats(ctx context.Context, since time.Time) (store.Stats, error)
}

// Collect gathers stats for the 24 hours before now.
func Collect(ctx context.Context, src StatsSource, now time.Time) (*DailyStats, error) {
	from := now.Add(-24 * time.Hour)
	st, err := src.Stats(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("collect stats: %w", err)
	}
	return &DailyStats{
		From:     from.UTC(),
		To:       now.UTC(),
		Total:    st.Total,
		Profiles: st.Profiles,
		ByGoal:   st.ByGoal,
	}, nil
}

// Summary renders the report sent to the admin.
func (ds *DailyStats) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "HealthMentor daily report (%s - %s UTC)\n\n",
		ds.From.Format("2006-01-02 15:04"), ds.To.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Recommendations: %d\n", ds.Total)
	fmt.Fprintf(&b, "Unique users: %d\n", ds.Profiles)
	if ds.Total == 0 {
		return b.String()
	}

	b.WriteString("\nBy goal:\n")
	tokens := make([]string, 0, len(ds.ByGoal))
	for token := range ds.ByGoal {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	for _, token := range tokens {
		name := token
		if g, err := intake.ParseGoal(token); err == nil {
			name = g.Description()
		}
		fmt.Fprintf(&b, "- %s: %d\n", name, ds.ByGoal[token])
	}
	return b.String()
}

func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Reporter sends the daily summary to the admin chat.
type Reporter struct {
	stats   StatsSource
	sender  intake.Sender
	adminID string
	now     func() time.Time
	logger  *zap.Logger
}

func NewReporter(stats StatsSource, sender intake.Sender, adminID string, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{stats: stats, sender: sender, adminID: adminID, now: time.Now, logger: logger}
}

// Run collects and sends one report.
func (r *Reporter) Run(ctx context.Context) error {
	ds, err := Collect(ctx, r.stats, r.now())
	if err != nil {
		return err
	}
	if err := r.sender.SendText(ctx, r.adminID, ds.Summary()); err != nil {
		return fmt.Errorf("send daily report: %w", err)
	}
	r.logger.Info("daily report sent", zap.Int("recommendations", ds.Total), zap.Int("users", ds.Profiles))
	return nil
}
