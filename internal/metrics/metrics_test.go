package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(updatesReceived.WithLabelValues("webhook"))
	RecordUpdate("webhook")
	RecordUpdate("webhook")
	require.Equal(t, before+2, testutil.ToFloat64(updatesReceived.WithLabelValues("webhook")))

	before = testutil.ToFloat64(inputRejected.WithLabelValues("AwaitingWeight"))
	RecordRejection("AwaitingWeight")
	require.Equal(t, before+1, testutil.ToFloat64(inputRejected.WithLabelValues("AwaitingWeight")))

	before = testutil.ToFloat64(recommendationsFailed.WithLabelValues("persist"))
	RecordRecommendationFailure("persist")
	require.Equal(t, before+1, testutil.ToFloat64(recommendationsFailed.WithLabelValues("persist")))
}

func TestObserveCompletion(t *testing.T) {
	ObserveCompletion(-time.Second)
	ObserveCompletion(2 * time.Second)
	require.Equal(t, 1, testutil.CollectAndCount(completionDuration, "healthmentor_recommend_completion_duration_seconds"))
}
