package analytics

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rufetisr/FitnessTelegramBot/internal/store"
)

type fakeStats struct {
	st    store.Stats
	err   error
	since time.Time
}

func (f *fakeStats) Stats(ctx context.Context, since time.Time) (store.Stats, error) {
	f.since = since
	return f.st, f.err
}

type fakeSender struct {
	to   []string
	sent []string
}

func (f *fakeSender) SendText(ctx context.Context, sessionID, text string) error {
	f.to = append(f.to, sessionID)
	f.sent = append(f.sent, text)
	return nil
}

func TestCollect(t *testing.T) {
	now := time.Date(2024, 1, 15, 21, 0, 0, 0, time.UTC)
	src := &fakeStats{st: store.Stats{Total: 4, Profiles: 3, ByGoal: map[string]int{"1": 1, "2": 3}}}

	ds, err := Collect(context.Background(), src, now)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if !src.since.Equal(now.Add(-24 * time.Hour)) {
		t.Errorf("expected window start %v, got %v", now.Add(-24*time.Hour), src.since)
	}
	if ds.Total != 4 || ds.Profiles != 3 {
		t.Errorf("unexpected totals: %+v", ds)
	}
}

func TestSummary(t *testing.T) {
	ds := &DailyStats{
		From:     time.Date(2024, 1, 14, 21, 0, 0, 0, time.UTC),
		To:       time.Date(2024, 1, 15, 21, 0, 0, 0, time.UTC),
		Total:    5,
		Profiles: 2,
		ByGoal:   map[string]int{"3": 1, "1": 2, "2": 2},
	}
	got := ds.Summary()

	for _, want := range []string{
		"2024-01-14 21:00 - 2024-01-15 21:00 UTC",
		"Recommendations: 5",
		"Unique users: 2",
		"- lose fat: 2\n- gain muscle: 2\n- maintain weight: 1\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}
}

func TestSummary_Empty(t *testing.T) {
	ds := &DailyStats{ByGoal: map[string]int{}}
	if got := ds.Summary(); strings.Contains(got, "By goal") {
		t.Errorf("empty report should not list goals:\n%s", got)
	}
}

func TestToJSON(t *testing.T) {
	ds := &DailyStats{Total: 1, ByGoal: map[string]int{"2": 1}}
	out, err := ds.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	if !strings.Contains(out, `"total_recommendations": 1`) {
		t.Errorf("unexpected json: %s", out)
	}
}

func TestReporter_Run(t *testing.T) {
	fs := &fakeSender{}
	r := NewReporter(&fakeStats{st: store.Stats{Total: 1, Profiles: 1, ByGoal: map[string]int{"2": 1}}}, fs, "999", nil)
	r.now = func() time.Time { return time.Date(2024, 1, 15, 21, 0, 0, 0, time.UTC) }

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(fs.sent) != 1 || fs.to[0] != "999" || !strings.Contains(fs.sent[0], "gain muscle: 1") {
		t.Fatalf("unexpected report: %v %q", fs.to, fs.sent)
	}
}

func TestReporter_StatsError(t *testing.T) {
	fs := &fakeSender{}
	r := NewReporter(&fakeStats{err: errors.New("db down")}, fs, "999", nil)
	if err := r.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(fs.sent) != 0 {
		t.Fatal("nothing should be sent on error")
	}
}
