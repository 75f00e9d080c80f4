package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader is the header carrying the webhook signature.
const SignatureHeader = "Stripe-Signature"

// Event types the storefront reacts to.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
)

var (
	ErrMissingSignature = errors.New("provider: missing signature")
	ErrBadSignature     = errors.New("provider: signature mismatch")
	ErrStaleSignature   = errors.New("provider: signature timestamp outside tolerance")
	ErrMalformedEvent   = errors.New("provider: malformed event")
)

// Event is the subset of a webhook event the storefront uses.
type Event struct {
	ID      string
	Type    string
	Created int64
	Session SessionObject
}

// SessionObject is the checkout session carried by checkout.session.*
// events.
type SessionObject struct {
	ID            string            `json:"id"`
	PaymentIntent string            `json:"payment_intent"`
	PaymentStatus string            `json:"payment_status"`
	Metadata      map[string]string `json:"metadata"`
}

// OrderID returns the order id attached as session metadata.
func (s SessionObject) OrderID() (uint64, error) {
	raw := strings.TrimSpace(s.Metadata["order_id"])
	if raw == "" {
		return 0, fmt.Errorf("%w: metadata.order_id missing", ErrMalformedEvent)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: metadata.order_id %q", ErrMalformedEvent, raw)
	}
	return id, nil
}

type rawEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// VerifySignature checks header against an HMAC-SHA256 of "t.payload"
// keyed by secret.  A zero tolerance disables the timestamp check.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	header = strings.TrimSpace(header)
	if header == "" {
		return ErrMissingSignature
	}
	ts, sigs, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}
	if tolerance > 0 {
		unix, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return ErrBadSignature
		}
		if d := now.Sub(time.Unix(unix, 0)); d > tolerance || d < -tolerance {
			return ErrStaleSignature
		}
	}
	expected := computeSignature(ts, payload, secret)
	for _, s := range sigs {
		if hmac.Equal([]byte(s), []byte(expected)) {
			return nil
		}
	}
	return ErrBadSignature
}

// Sign builds a signature header for payload at ts.  Used to drive
// webhook tests and local tooling.
func Sign(payload []byte, secret string, ts time.Time) string {
	t := strconv.FormatInt(ts.Unix(), 10)
	return "t=" + t + ",v1=" + computeSignature(t, payload, secret)
}

func computeSignature(ts string, payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(ts))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func parseSignatureHeader(header string) (string, []string, error) {
	var ts string
	var sigs []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.TrimSpace(kv[0]) {
		case "t":
			ts = strings.TrimSpace(kv[1])
		case "v1":
			sigs = append(sigs, strings.TrimSpace(kv[1]))
		}
	}
	if ts == "" || len(sigs) == 0 {
		return "", nil, ErrBadSignature
	}
	return ts, sigs, nil
}

// ParseEvent decodes a verified payload.  The session object is decoded
// only for checkout.session.* events.
func ParseEvent(payload []byte) (*Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if strings.TrimSpace(raw.ID) == "" || strings.TrimSpace(raw.Type) == "" {
		return nil, fmt.Errorf("%w: id and type are required", ErrMalformedEvent)
	}
	ev := &Event{ID: raw.ID, Type: raw.Type, Created: raw.Created}
	if strings.HasPrefix(raw.Type, "checkout.session.") {
		if len(raw.Data.Object) == 0 {
			return nil, fmt.Errorf("%w: data.object missing", ErrMalformedEvent)
		}
		if err := json.Unmarshal(raw.Data.Object, &ev.Session); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
	}
	return ev, nil
}
