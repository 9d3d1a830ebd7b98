package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics counts order creation outcomes and cart cache degradations.
type CheckoutMetrics struct {
	ordersCreated prometheus.Counter
	failures      *prometheus.CounterVec
	duration      prometheus.Histogram
	cartFallback  *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on reg. A nil registerer yields a no-op recorder.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Orders committed by checkout.",
	})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_failures_total",
		Help:      "Checkouts rejected or aborted, by error code.",
	}, []string{"reason"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "checkout_duration_seconds",
		Help:      "Wall time of order creation, including the database transaction.",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
	})
	cartFallback := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_store_fallback_total",
		Help:      "Cart store calls served by the process-local store because the cache failed.",
	}, []string{"op"})
	reg.MustRegister(ordersCreated, failures, duration, cartFallback)
	return &CheckoutMetrics{
		ordersCreated: ordersCreated,
		failures:      failures,
		duration:      duration,
		cartFallback:  cartFallback,
	}
}

func (c *CheckoutMetrics) IncOrderCreated() {
	if c == nil || c.ordersCreated == nil {
		return
	}
	c.ordersCreated.Inc()
}

// IncCheckoutFailure records a failed checkout labelled by error code.
func (c *CheckoutMetrics) IncCheckoutFailure(reason string) {
	if c == nil || c.failures == nil {
		return
	}
	c.failures.WithLabelValues(label(reason)).Inc()
}

func (c *CheckoutMetrics) ObserveCheckout(d time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.Observe(d.Seconds())
}

// IncCartFallback records one cart store operation ("get", "put", "delete") served by the fallback.
func (c *CheckoutMetrics) IncCartFallback(op string) {
	if c == nil || c.cartFallback == nil {
		return
	}
	c.cartFallback.WithLabelValues(label(op)).Inc()
}
