package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StockMetrics counts inventory movements driven by order and deal activity.
type StockMetrics struct {
	transitions *prometheus.CounterVec
	units       *prometheus.CounterVec
	dealClaims  *prometheus.CounterVec
}

// NewStockMetrics registers the stock metrics on the provided registerer.
func NewStockMetrics(reg prometheus.Registerer) *StockMetrics {
	if reg == nil {
		return &StockMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stockdesk_stock_transitions_total",
		Help: "Order status transitions that touched stock, by outcome.",
	}, []string{"from", "to", "result"})
	units := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stockdesk_stock_units_total",
		Help: "Absolute units moved per stock counter.",
	}, []string{"counter", "direction"})
	dealClaims := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stockdesk_deal_claims_total",
		Help: "Deal claim attempts, by outcome.",
	}, []string{"result"})
	reg.MustRegister(transitions, units, dealClaims)
	return &StockMetrics{
		transitions: transitions,
		units:       units,
		dealClaims:  dealClaims,
	}
}

// ObserveTransition records one transition attempt.
func (m *StockMetrics) ObserveTransition(from, to, result string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to), normalizeLabel(result)).Inc()
}

// ObserveUnits records a counter movement; the sign of delta picks the direction.
func (m *StockMetrics) ObserveUnits(counter string, delta int) {
	if m == nil || m.units == nil || delta == 0 {
		return
	}
	direction := "in"
	if delta < 0 {
		direction = "out"
		delta = -delta
	}
	m.units.WithLabelValues(normalizeLabel(counter), direction).Add(float64(delta))
}

// ObserveDealClaim records a claim attempt.
func (m *StockMetrics) ObserveDealClaim(result string) {
	if m == nil || m.dealClaims == nil {
		return
	}
	m.dealClaims.WithLabelValues(normalizeLabel(result)).Inc()
}
