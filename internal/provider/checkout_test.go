package provider

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCheckoutSessionEncodesForm(t *testing.T) {
	var (
		gotForm url.Values
		gotReq  *http.Request
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r
		body, _ := io.ReadAll(r.Body)
		gotForm, _ = url.ParseQuery(string(body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","url":"https://checkout.example/cs_test_1"}`))
	}))
	defer srv.Close()

	c := NewStripe(srv.URL+"/", "sk_test", srv.Client())
	s, err := c.CreateCheckoutSession(context.Background(), CheckoutRequest{
		IdempotencyKey: "payment-9",
		Currency:       "UAH",
		Items: []LineItem{
			{Name: "Heat", UnitAmount: 1000, Quantity: 1},
			{Name: "Alien", UnitAmount: 500},
		},
		Metadata:   map[string]string{"order_id": "42"},
		SuccessURL: "http://shop/v1/payments/success/42",
		CancelURL:  "http://shop/v1/payments/cancel/42",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", s.ID)
	assert.Equal(t, "https://checkout.example/cs_test_1", s.URL)

	require.NotNil(t, gotReq)
	assert.Equal(t, http.MethodPost, gotReq.Method)
	assert.Equal(t, "/v1/checkout/sessions", gotReq.URL.Path)
	assert.Equal(t, "Bearer sk_test", gotReq.Header.Get("Authorization"))
	assert.Equal(t, "payment-9", gotReq.Header.Get("Idempotency-Key"))

	assert.Equal(t, "payment", gotForm.Get("mode"))
	assert.Equal(t, "uah", gotForm.Get("line_items[0][price_data][currency]"))
	assert.Equal(t, "1000", gotForm.Get("line_items[0][price_data][unit_amount]"))
	assert.Equal(t, "Heat", gotForm.Get("line_items[0][price_data][product_data][name]"))
	assert.Equal(t, "1", gotForm.Get("line_items[0][quantity]"))
	assert.Equal(t, "500", gotForm.Get("line_items[1][price_data][unit_amount]"))
	assert.Equal(t, "1", gotForm.Get("line_items[1][quantity]"))
	assert.Equal(t, "42", gotForm.Get("metadata[order_id]"))
	assert.Equal(t, "http://shop/v1/payments/success/42", gotForm.Get("success_url"))
	assert.Equal(t, "http://shop/v1/payments/cancel/42", gotForm.Get("cancel_url"))
}

func TestCreateCheckoutSessionAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"type":"card_error","message":"Your card was declined."}}`))
	}))
	defer srv.Close()

	_, err := NewStripe(srv.URL, "sk_test", nil).CreateCheckoutSession(context.Background(), CheckoutRequest{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusPaymentRequired, apiErr.StatusCode)
	assert.Equal(t, "card_error", apiErr.Type)
	assert.Equal(t, "Your card was declined.", apiErr.Message)
}

func TestCreateCheckoutSessionRequiresKey(t *testing.T) {
	_, err := NewStripe("http://unused", " ", nil).CreateCheckoutSession(context.Background(), CheckoutRequest{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestCreateCheckoutSessionMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"url":"x"}`))
	}))
	defer srv.Close()

	_, err := NewStripe(srv.URL, "sk_test", nil).CreateCheckoutSession(context.Background(), CheckoutRequest{})
	assert.Error(t, err)
}
