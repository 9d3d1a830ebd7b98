package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCheckoutMetricsExport(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)

	m.IncOrderCreated()
	m.IncOrderCreated()
	m.IncCheckoutFailure("INSUFFICIENT_STOCK")
	m.IncCheckoutFailure("")
	m.IncCartFallback("get")
	m.ObserveCheckout(40 * time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	created := findMetricFamily(mfs, "bakery_orders_created_total")
	if created == nil {
		t.Fatal("orders created counter not exported")
	}
	if got := created.GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Fatalf("orders created = %v, want 2", got)
	}

	counters := []struct {
		name, label, value string
	}{
		{"bakery_checkout_failures_total", "reason", "INSUFFICIENT_STOCK"},
		{"bakery_checkout_failures_total", "reason", "unknown"},
		{"bakery_cart_store_fallback_total", "op", "get"},
	}
	for _, c := range counters {
		got, err := fetchCounterValue(mfs, c.name, c.label, c.value)
		if err != nil {
			t.Fatal(err)
		}
		if got != 1 {
			t.Fatalf("%s{%s=%s} = %v, want 1", c.name, c.label, c.value, got)
		}
	}

	hist := findMetricFamily(mfs, "bakery_checkout_duration_seconds")
	if hist == nil {
		t.Fatal("checkout histogram not exported")
	}
	if got := hist.GetMetric()[0].GetHistogram().GetSampleCount(); got != 1 {
		t.Fatalf("checkout samples = %d, want 1", got)
	}
}
