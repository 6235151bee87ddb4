// Package metrics exposes Prometheus collectors for the checkout pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	CheckoutsTotal  *prometheus.CounterVec
	PaymentEvents   *prometheus.CounterVec
	CheckoutLatency prometheus.Histogram
	OutboxPublished prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CheckoutsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "checkouts_total",
			Help:      "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		PaymentEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "payment_events_total",
			Help:      "Gateway payment events by outcome and whether they were applied or ignored as duplicates.",
		}, []string{"outcome", "result"}),
		CheckoutLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "checkout_duration_seconds",
			Help:      "Time spent committing an order.",
			Buckets:   prometheus.DefBuckets,
		}),
		OutboxPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "outbox_events_published_total",
			Help:      "Outbox events published to Kafka.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.CheckoutsTotal, m.PaymentEvents, m.CheckoutLatency, m.OutboxPublished)
	}
	return m
}

func (m *Metrics) Checkout(outcome string) {
	if m == nil {
		return
	}
	m.CheckoutsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveCheckout(seconds float64) {
	if m == nil {
		return
	}
	m.CheckoutLatency.Observe(seconds)
}

func (m *Metrics) PaymentEvent(outcome string, applied bool) {
	if m == nil {
		return
	}
	result := "ignored"
	if applied {
		result = "applied"
	}
	m.PaymentEvents.WithLabelValues(outcome, result).Inc()
}

func (m *Metrics) Published() {
	if m == nil {
		return
	}
	m.OutboxPublished.Inc()
}
