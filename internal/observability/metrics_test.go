package observability_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/davidbz/draftlock/internal/observability"
)

func TestMetrics_RecordUsage(t *testing.T) {
	m := observability.NewMetrics()

	m.RecordUsage("gpt-4o-mini", "USD", 1000, 200, 0.00027)
	m.RecordUsage("gpt-4o-mini", "USD", 500, 0, 0.000075)
	m.EstimateOutcome("completed")
	m.EstimateOutcome("superseded")
	m.EstimateOutcome("superseded")
	m.TransformOutcome("gpt-4o-mini", "failed")

	count, err := testutil.GatherAndCount(m.Registry(), "draftlock_tokens_total")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	count, err = testutil.GatherAndCount(m.Registry(), "draftlock_estimates_total")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	count, err = testutil.GatherAndCount(m.Registry(), "draftlock_transforms_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestMetrics_NilReceiverIsNoop(t *testing.T) {
	var m *observability.Metrics

	require.NotPanics(t, func() {
		m.EstimateOutcome("completed")
		m.TransformOutcome("gpt-4o", "succeeded")
		m.RecordUsage("gpt-4o", "USD", 1, 1, 0.1)
	})
}
