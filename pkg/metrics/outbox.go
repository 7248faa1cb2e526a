package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outbox dispatch results.
const (
	DispatchPublished    = "published"
	DispatchRetry        = "retry"
	DispatchDeadLettered = "dead_lettered"
)

// OutboxMetrics counts outbox dispatch attempts and the size of each polled batch.
type OutboxMetrics struct {
	dispatched *prometheus.CounterVec
	batchSize  prometheus.Histogram
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	m := &OutboxMetrics{
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockdesk_outbox_dispatch_total",
			Help: "Outbox rows handled by the publisher, by event type and result.",
		}, []string{"event_type", "result"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stockdesk_outbox_batch_rows",
			Help:    "Rows claimed per publisher poll.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		}),
	}
	reg.MustRegister(m.dispatched, m.batchSize)
	return m
}

func (m *OutboxMetrics) ObserveDispatch(eventType, result string) {
	if m == nil || m.dispatched == nil {
		return
	}
	m.dispatched.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}

func (m *OutboxMetrics) ObserveBatch(rows int) {
	if m == nil || m.batchSize == nil {
		return
	}
	m.batchSize.Observe(float64(rows))
}
