package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestStockMetricsCountsTransitionsAndUnits(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStockMetrics(reg)

	m.ObserveTransition("draft", "reserved", "ok")
	m.ObserveTransition("draft", "reserved", "ok")
	m.ObserveTransition("draft", "reserved", "insufficient_stock")
	m.ObserveUnits("reserved_stock", 3)
	m.ObserveUnits("reserved_stock", -2)
	m.ObserveUnits("total_stock", 0)
	m.ObserveDealClaim("ok")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	transitions := findMetricFamily(mfs, "stockdesk_stock_transitions_total")
	if transitions == nil {
		t.Fatal("transitions metric missing")
	}
	var ok, failed float64
	for _, metric := range transitions.GetMetric() {
		switch {
		case matchesLabel(metric.GetLabel(), "result", "ok"):
			ok = metric.GetCounter().GetValue()
		case matchesLabel(metric.GetLabel(), "result", "insufficient_stock"):
			failed = metric.GetCounter().GetValue()
		}
	}
	if ok != 2 || failed != 1 {
		t.Fatalf("expected ok=2 failed=1, got ok=%f failed=%f", ok, failed)
	}

	in := unitsValue(t, mfs, "reserved_stock", "in")
	out := unitsValue(t, mfs, "reserved_stock", "out")
	if in != 3 || out != 2 {
		t.Fatalf("expected in=3 out=2, got in=%f out=%f", in, out)
	}

	if got, err := fetchCounterValue(mfs, "stockdesk_deal_claims_total", "result", "ok"); err != nil || got != 1 {
		t.Fatalf("expected one deal claim, got %f (%v)", got, err)
	}
}

func unitsValue(t *testing.T, mfs []*dto.MetricFamily, counter, direction string) float64 {
	t.Helper()
	mf := findMetricFamily(mfs, "stockdesk_stock_units_total")
	if mf == nil {
		t.Fatal("units metric missing")
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), "counter", counter) && matchesLabel(metric.GetLabel(), "direction", direction) {
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}
