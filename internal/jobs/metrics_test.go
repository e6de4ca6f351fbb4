package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Track("inventory:reconcile").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("inventory:reconcile").End(boom), boom)
	m.AddReconciled(4)
	m.AddReconciled(0)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("inventory:reconcile", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("inventory:reconcile", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("inventory:reconcile")))
	require.Equal(t, 4.0, testutil.ToFloat64(m.reconciled))
}

func TestNilMetricsTrackerPassesErrorThrough(t *testing.T) {
	var m *Metrics
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("x").End(boom), boom)
	m.AddReconciled(3)
}
