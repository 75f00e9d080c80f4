package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{}}}`)
	now := time.Unix(1_700_000_000, 0)

	require.NoError(t, VerifySignature(payload, Sign(payload, secret, now), secret, 5*time.Minute, now))

	cases := []struct {
		name   string
		header string
		want   error
	}{
		{"missing", "", ErrMissingSignature},
		{"garbage", "nonsense", ErrBadSignature},
		{"wrong secret", Sign(payload, "other", now), ErrBadSignature},
		{"stale", Sign(payload, secret, now.Add(-10*time.Minute)), ErrStaleSignature},
		{"future", Sign(payload, secret, now.Add(10*time.Minute)), ErrStaleSignature},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := VerifySignature(payload, tc.header, secret, 5*time.Minute, now)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	tampered := []byte(`{"id":"evt_2","type":"checkout.session.completed","data":{"object":{}}}`)
	assert.ErrorIs(t, VerifySignature(tampered, Sign(payload, secret, now), secret, 5*time.Minute, now), ErrBadSignature)
}

func TestVerifySignatureAcceptsAnyV1(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{}`)
	now := time.Now()
	good := Sign(payload, secret, now)
	header := good + ",v1=deadbeef"
	assert.NoError(t, VerifySignature(payload, header, secret, 0, now))
}

func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent([]byte(`{
		"id":"evt_1","type":"checkout.session.completed","created":1700000000,
		"data":{"object":{"id":"cs_1","payment_intent":"pi_1","payment_status":"paid","metadata":{"order_id":"42"}}}}`))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, EventCheckoutCompleted, ev.Type)
	assert.Equal(t, "cs_1", ev.Session.ID)
	assert.Equal(t, "pi_1", ev.Session.PaymentIntent)
	id, err := ev.Session.OrderID()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	other, err := ParseEvent([]byte(`{"id":"evt_2","type":"customer.created","data":{"object":{"id":"cus_1"}}}`))
	require.NoError(t, err)
	assert.Equal(t, "customer.created", other.Type)

	for _, bad := range []string{`not json`, `{"type":"x"}`, `{"id":"evt"}`, `{"id":"e","type":"checkout.session.expired"}`} {
		_, err := ParseEvent([]byte(bad))
		assert.ErrorIs(t, err, ErrMalformedEvent, bad)
	}
}

func TestSessionOrderID(t *testing.T) {
	for _, md := range []map[string]string{nil, {"order_id": ""}, {"order_id": "abc"}, {"order_id": "0"}} {
		_, err := SessionObject{Metadata: md}.OrderID()
		assert.ErrorIs(t, err, ErrMalformedEvent)
	}
}
