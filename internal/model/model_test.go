package model

import (
    "testing"

    "github.com/shopspring/decimal"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestOrderTransitions(t *testing.T) {
    o := &Order{Status: OrderPending}
    require.NoError(t, o.TransitionTo(OrderPaid))
    assert.Equal(t, OrderPaid, o.Status)
    assert.True(t, o.Status.IsTerminal())

    assert.ErrorIs(t, o.TransitionTo(OrderCancelled), ErrInvalidTransition)
    assert.ErrorIs(t, o.TransitionTo(OrderPending), ErrInvalidTransition)

    c := &Order{Status: OrderPending}
    require.NoError(t, c.TransitionTo(OrderCancelled))
    assert.ErrorIs(t, c.TransitionTo(OrderPaid), ErrInvalidTransition)
}

func TestPaymentTransitions(t *testing.T) {
    cases := []struct {
        from, to PaymentStatus
        ok       bool
    }{
        {PaymentPending, PaymentSuccessful, true},
        {PaymentPending, PaymentCanceled, true},
        {PaymentSuccessful, PaymentRefunded, true},
        {PaymentSuccessful, PaymentCanceled, false},
        {PaymentCanceled, PaymentSuccessful, true},
        {PaymentCanceled, PaymentPending, false},
        {PaymentRefunded, PaymentPending, false},
        {PaymentPending, PaymentRefunded, false},
    }
    for _, tc := range cases {
        t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
            p := &Payment{Status: tc.from}
            err := p.TransitionTo(tc.to)
            if tc.ok {
                require.NoError(t, err)
                assert.Equal(t, tc.to, p.Status)
            } else {
                assert.ErrorIs(t, err, ErrInvalidTransition)
                assert.Equal(t, tc.from, p.Status)
            }
        })
    }
}

func TestParseOrderStatus(t *testing.T) {
    st, ok := ParseOrderStatus("paid")
    assert.True(t, ok)
    assert.Equal(t, OrderPaid, st)
    _, ok = ParseOrderStatus("shipped")
    assert.False(t, ok)
}

func TestMinorUnits(t *testing.T) {
    assert.Equal(t, int64(1000), MinorUnits(decimal.RequireFromString("10.00")))
    assert.Equal(t, int64(1999), MinorUnits(decimal.RequireFromString("19.99")))
    assert.Equal(t, int64(101), MinorUnits(decimal.RequireFromString("1.005")))
    assert.Equal(t, int64(0), MinorUnits(decimal.Zero))
}

func TestSum(t *testing.T) {
    total := Sum(decimal.RequireFromString("10.00"), decimal.RequireFromString("5.00"))
    assert.True(t, total.Equal(decimal.RequireFromString("15")))
    assert.True(t, Sum().IsZero())
}
