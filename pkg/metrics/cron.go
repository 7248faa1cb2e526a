package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cron run outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeError  = "error"
	OutcomeLocked = "locked"
)

// CronJobMetrics tracks maintenance job runs and the cycles skipped because
// another replica held the cron lock.
type CronJobMetrics struct {
	runs        *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	cycles      *prometheus.CounterVec
}

func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	m := &CronJobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockdesk_cron_job_runs_total",
			Help: "Cron job runs, by job and outcome.",
		}, []string{"job", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stockdesk_cron_job_duration_seconds",
			Help:    "Wall time spent in each cron job.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 60},
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stockdesk_cron_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run per job.",
		}, []string{"job"}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockdesk_cron_cycles_total",
			Help: "Cron cycles, by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.runs, m.latency, m.lastSuccess, m.cycles)
	return m
}

// ObserveRun records one job execution; a nil err counts as success.
func (m *CronJobMetrics) ObserveRun(job string, elapsed time.Duration, err error) {
	if m == nil || m.runs == nil {
		return
	}
	job = normalizeLabel(job)
	m.latency.WithLabelValues(job).Observe(elapsed.Seconds())
	if err != nil {
		m.runs.WithLabelValues(job, OutcomeError).Inc()
		return
	}
	m.runs.WithLabelValues(job, OutcomeOK).Inc()
	m.lastSuccess.WithLabelValues(job).SetToCurrentTime()
}

// ObserveCycle records how a whole cycle ended.
func (m *CronJobMetrics) ObserveCycle(outcome string) {
	if m == nil || m.cycles == nil {
		return
	}
	m.cycles.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
