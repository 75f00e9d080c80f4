package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.OrderCreated()
	m.OrderCreated()
	m.OrderRejected("empty_cart")
	m.PaymentSession("created")
	m.WebhookEvent("checkout.session.completed", "settled")
	m.WebhookEvent("", "ignored")
	m.ObserveHTTP("GET", "/v1/movies", 200, 15*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ordersCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.orderRejections.WithLabelValues("empty_cart")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.paymentSessions.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.webhookEvents.WithLabelValues("checkout.session.completed", "settled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.webhookEvents.WithLabelValues("unknown", "ignored")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.httpDuration))
}

func TestDoubleRegisterFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}

func TestNilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.OrderCreated()
		m.OrderRejected("x")
		m.PaymentSession("x")
		m.WebhookEvent("x", "y")
		m.ObserveHTTP("GET", "/", 200, time.Second)
	})
}
