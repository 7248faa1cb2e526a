package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsSplitsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.ObserveRun("deal-expiry", 40*time.Millisecond, nil)
	m.ObserveRun("deal-expiry", 10*time.Millisecond, errors.New("boom"))
	m.ObserveRun("low-stock-scan", time.Second, nil)
	m.ObserveCycle(OutcomeLocked)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	runs := "stockdesk_cron_job_runs_total"
	assert.Equal(t, float64(1), counterWithLabels(mfs, runs, map[string]string{"job": "deal-expiry", "outcome": OutcomeOK}))
	assert.Equal(t, float64(1), counterWithLabels(mfs, runs, map[string]string{"job": "deal-expiry", "outcome": OutcomeError}))
	assert.Equal(t, float64(1), counterWithLabels(mfs, runs, map[string]string{"job": "low-stock-scan"}))
	assert.Equal(t, float64(1), counterWithLabels(mfs, "stockdesk_cron_cycles_total", map[string]string{"outcome": OutcomeLocked}))

	last := findMetricFamily(mfs, "stockdesk_cron_job_last_success_timestamp_seconds")
	require.NotNil(t, last)
	assert.Len(t, last.GetMetric(), 2)
	for _, metric := range last.GetMetric() {
		assert.Greater(t, metric.GetGauge().GetValue(), float64(0))
	}

	hist := findMetricFamily(mfs, "stockdesk_cron_job_duration_seconds")
	require.NotNil(t, hist)
	for _, metric := range hist.GetMetric() {
		if matchesLabel(metric.GetLabel(), "job", "deal-expiry") {
			assert.Equal(t, uint64(2), metric.GetHistogram().GetSampleCount())
		}
	}
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	var m *CronJobMetrics
	m.ObserveRun("job", time.Second, nil)
	m.ObserveCycle(OutcomeOK)

	NewCronJobMetrics(nil).ObserveRun("", 0, errors.New("x"))
}
