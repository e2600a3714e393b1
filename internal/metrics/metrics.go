// Package metrics holds the Prometheus collectors of the bot.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "healthmentor"

var (
	updatesReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "transport",
		Name:      "updates_received_total",
		Help:      "Updates received from the messaging transport.",
	}, []string{"mode"})

	sessionsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "intake",
		Name:      "sessions_started_total",
		Help:      "Intake sessions created by the start command.",
	})

	inputRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "intake",
		Name:      "input_rejected_total",
		Help:      "Answers rejected by the step validator.",
	}, []string{"step"})

	recommendationsGenerated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "recommend",
		Name:      "generated_total",
		Help:      "Recommendations generated and persisted.",
	}, []string{"goal"})

	recommendationsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "recommend",
		Name:      "failed_total",
		Help:      "Recommendation attempts that failed, by stage.",
	}, []string{"stage"})

	completionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "recommend",
		Name:      "completion_duration_seconds",
		Help:      "Latency of the text-completion call.",
		Buckets:   []float64{0.5, 1, 2, 4, 8, 16, 32, 64},
	})
)

func init() {
	prometheus.MustRegister(
		updatesReceived,
		sessionsStarted,
		inputRejected,
		recommendationsGenerated,
		recommendationsFailed,
		completionDuration,
	)
}

func RecordUpdate(mode string) { updatesReceived.WithLabelValues(mode).Inc() }

func RecordSessionStarted() { sessionsStarted.Inc() }

func RecordRejection(step string) { inputRejected.WithLabelValues(step).Inc() }

func RecordRecommendation(goal string) { recommendationsGenerated.WithLabelValues(goal).Inc() }

// RecordRecommendationFailure counts a failed attempt. stage is "completion"
// or "persist".
func RecordRecommendationFailure(stage string) { recommendationsFailed.WithLabelValues(stage).Inc() }

func ObserveCompletion(d time.Duration) {
	if d < 0 {
		return
	}
	completionDuration.Observe(d.Seconds())
}
