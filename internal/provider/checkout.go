// Package provider talks to the hosted checkout payment processor.  The
// client speaks the Stripe Checkout Sessions REST API with plain
// form-encoded requests.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// LineItem is one purchasable row on the hosted checkout page.  UnitAmount
// is in minor currency units.
type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

// CheckoutRequest describes a session to open.
type CheckoutRequest struct {
	IdempotencyKey string
	Currency       string
	Items          []LineItem
	Metadata       map[string]string
	SuccessURL     string
	CancelURL      string
}

// CheckoutSession is the provider's handle for a hosted checkout.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// APIError is a non-2xx answer from the provider.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("provider: %d %s: %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("provider: %d: %s", e.StatusCode, e.Message)
}

// ErrInvalidConfig is returned when the client is missing its secret key.
var ErrInvalidConfig = errors.New("provider: secret key is not configured")

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Stripe is a minimal Checkout Sessions client.
type Stripe struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

// NewStripe returns a client for baseURL (normally https://api.stripe.com).
// A nil httpClient gets a 15 second timeout.
func NewStripe(baseURL, secretKey string, httpClient *http.Client) *Stripe {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Stripe{
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		secretKey: strings.TrimSpace(secretKey),
		client:    httpClient,
	}
}

// CreateCheckoutSession opens a hosted checkout in payment mode.
func (s *Stripe) CreateCheckoutSession(ctx context.Context, in CheckoutRequest) (*CheckoutSession, error) {
	if s.secretKey == "" {
		return nil, ErrInvalidConfig
	}
	values := url.Values{}
	values.Set("mode", "payment")
	values.Set("success_url", in.SuccessURL)
	values.Set("cancel_url", in.CancelURL)
	currency := strings.ToLower(in.Currency)
	for i, it := range in.Items {
		p := "line_items[" + strconv.Itoa(i) + "]"
		values.Set(p+"[price_data][currency]", currency)
		values.Set(p+"[price_data][unit_amount]", strconv.FormatInt(it.UnitAmount, 10))
		values.Set(p+"[price_data][product_data][name]", it.Name)
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		values.Set(p+"[quantity]", strconv.FormatInt(qty, 10))
	}
	for k, v := range in.Metadata {
		values.Set("metadata["+k+"]", v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/checkout/sessions",
		strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if in.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", in.IdempotencyKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: "request failed"}
		var body errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
			if m := strings.TrimSpace(body.Error.Message); m != "" {
				apiErr.Message = m
			}
			apiErr.Type = body.Error.Type
		}
		return nil, apiErr
	}

	var session CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("provider: decode session: %w", err)
	}
	if session.ID == "" {
		return nil, errors.New("provider: session response without id")
	}
	return &session, nil
}
