// Package metrics holds the storefront's prometheus collectors.  A nil
// *Metrics is valid and records nothing, which keeps services usable in
// tests without a registry.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storefront"

// Metrics exposes application level instruments.
type Metrics struct {
	ordersCreated   prometheus.Counter
	orderRejections *prometheus.CounterVec
	paymentSessions *prometheus.CounterVec
	webhookEvents   *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New builds the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders created from carts.",
		}),
		orderRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_rejections_total",
			Help:      "Order creation attempts rejected, by reason code.",
		}, []string{"reason"}),
		paymentSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_sessions_total",
			Help:      "Checkout session attempts, by result.",
		}, []string{"result"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Provider webhook events, by type and outcome.",
		}, []string{"type", "outcome"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	for _, c := range []prometheus.Collector{
		m.ordersCreated, m.orderRejections, m.paymentSessions, m.webhookEvents, m.httpDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// OrderCreated counts a committed order.
func (m *Metrics) OrderCreated() {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
}

// OrderRejected counts a refused order creation by its error code.
func (m *Metrics) OrderRejected(reason string) {
	if m == nil {
		return
	}
	m.orderRejections.WithLabelValues(reason).Inc()
}

// PaymentSession counts a checkout session attempt; result is "created" or
// an error code.
func (m *Metrics) PaymentSession(result string) {
	if m == nil {
		return
	}
	m.paymentSessions.WithLabelValues(result).Inc()
}

// WebhookEvent counts a processed provider event.
func (m *Metrics) WebhookEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

// ObserveHTTP records one request's latency.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
