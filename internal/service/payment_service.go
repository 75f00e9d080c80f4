package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-storefront/internal/metrics"
	"github.com/iliyamo/movie-storefront/internal/model"
	"github.com/iliyamo/movie-storefront/internal/provider"
	"github.com/iliyamo/movie-storefront/internal/queue"
	"github.com/iliyamo/movie-storefront/internal/repository"
)

// CheckoutProvider opens hosted checkout sessions.  *provider.Stripe
// satisfies it.
type CheckoutProvider interface {
	CreateCheckoutSession(ctx context.Context, req provider.CheckoutRequest) (*provider.CheckoutSession, error)
}

// EventPublisher announces settled orders.  *QueuePublisher satisfies it.
type EventPublisher interface {
	PublishOrderPaid(ctx context.Context, ev queue.OrderPaidEvent) error
}

// PaymentConfig carries the payment engine settings.
type PaymentConfig struct {
	Currency            string
	PublicBaseURL       string
	WebhookSecret       string
	SignatureTolerance  time.Duration
	RequestTimeout      time.Duration
	CancelOrderOnExpiry bool
}

// PaymentDeps are the optional collaborators of the payment engine.  Any
// of them may be nil except Provider.
type PaymentDeps struct {
	Provider  CheckoutProvider
	Publisher EventPublisher
	Deduper   EventDeduper
	Metrics   *metrics.Metrics
	Log       *zap.Logger
}

// PaymentService opens checkout sessions for orders and settles them from
// provider webhooks.
type PaymentService struct {
	db        *sql.DB
	orders    *repository.OrderRepo
	payments  *repository.PaymentRepo
	purchases *repository.PurchaseRepo
	cfg       PaymentConfig
	provider  CheckoutProvider
	publisher EventPublisher
	deduper   EventDeduper
	metrics   *metrics.Metrics
	log       *zap.Logger
	now       func() time.Time
}

// NewPaymentService wires a PaymentService over db.
func NewPaymentService(db *sql.DB, cfg PaymentConfig, deps PaymentDeps) *PaymentService {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Currency == "" {
		cfg.Currency = "uah"
	}
	return &PaymentService{
		db:        db,
		orders:    repository.NewOrderRepo(db),
		payments:  repository.NewPaymentRepo(db),
		purchases: repository.NewPurchaseRepo(db),
		cfg:       cfg,
		provider:  deps.Provider,
		publisher: deps.Publisher,
		deduper:   deps.Deduper,
		metrics:   deps.Metrics,
		log:       log.Named("payments"),
		now:       time.Now,
	}
}

// PaymentSession is the result of CreatePaymentSession.
type PaymentSession struct {
	PaymentID   uint64
	OrderID     uint64
	Amount      decimal.Decimal
	Currency    string
	SessionID   string
	CheckoutURL string
	Superseded  int64
}

// SuccessURL is where the provider sends the buyer after paying.
func (s *PaymentService) SuccessURL(orderID uint64) string {
	return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/v1/payments/success/" + strconv.FormatUint(orderID, 10)
}

// CancelURL is where the provider sends the buyer after abandoning checkout.
func (s *PaymentService) CancelURL(orderID uint64) string {
	return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/v1/payments/cancel/" + strconv.FormatUint(orderID, 10)
}

// CreatePaymentSession prices a payment from the order's frozen item
// prices and opens a provider checkout for it.  The payment rows commit
// only after the provider returns a session; a provider failure rolls them
// back.  An earlier pending payment of the same order is cancelled in the
// same transaction.
func (s *PaymentService) CreatePaymentSession(ctx context.Context, userID, orderID uint64) (*PaymentSession, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	order, err := s.orders.GetForUserTx(ctx, tx, orderID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		s.metrics.PaymentSession(ErrOrderNotFound.Code)
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if order.Status != model.OrderPending || len(order.Lines) == 0 {
		s.metrics.PaymentSession(ErrOrderNotPayable.Code)
		return nil, ErrOrderNotPayable
	}

	superseded, err := s.payments.CancelPendingByOrderTx(ctx, tx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("cancel previous payments: %w", err)
	}
	payment := &model.Payment{UserID: userID, OrderID: order.ID, Status: model.PaymentPending, Amount: decimal.Zero}
	if err := s.payments.CreateTx(ctx, tx, payment); err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	items := make([]model.PaymentItem, 0, len(order.Lines))
	lineItems := make([]provider.LineItem, 0, len(order.Lines))
	amount := decimal.Zero
	for _, l := range order.Lines {
		items = append(items, model.PaymentItem{PaymentID: payment.ID, OrderItemID: l.ID, PriceAtPayment: l.PriceAtOrder})
		lineItems = append(lineItems, provider.LineItem{
			Name:       l.MovieName,
			UnitAmount: model.MinorUnits(l.PriceAtOrder),
			Quantity:   1,
		})
		amount = amount.Add(l.PriceAtOrder)
	}
	if err := s.payments.CreateItemsBulkTx(ctx, tx, items); err != nil {
		return nil, fmt.Errorf("insert payment items: %w", err)
	}
	if err := s.payments.UpdateAmountTx(ctx, tx, payment.ID, amount); err != nil {
		return nil, fmt.Errorf("update payment amount: %w", err)
	}

	pctx := ctx
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}
	session, err := s.provider.CreateCheckoutSession(pctx, provider.CheckoutRequest{
		IdempotencyKey: "payment-" + strconv.FormatUint(payment.ID, 10),
		Currency:       s.cfg.Currency,
		Items:          lineItems,
		Metadata: map[string]string{
			"order_id":   strconv.FormatUint(order.ID, 10),
			"user_id":    strconv.FormatUint(userID, 10),
			"payment_id": strconv.FormatUint(payment.ID, 10),
		},
		SuccessURL: s.SuccessURL(order.ID),
		CancelURL:  s.CancelURL(order.ID),
	})
	if err != nil {
		s.metrics.PaymentSession(ErrPaymentProvider.Code)
		s.log.Error("checkout session failed",
			zap.Uint64("order_id", order.ID), zap.Uint64("user_id", userID), zap.Error(err))
		return nil, wrap(ErrPaymentProvider, err)
	}

	if err := s.payments.SetSessionTx(ctx, tx, payment.ID, session.ID); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	committed = true

	s.metrics.PaymentSession("created")
	s.log.Info("payment session created",
		zap.Uint64("payment_id", payment.ID),
		zap.Uint64("order_id", order.ID),
		zap.String("session_id", session.ID),
		zap.String("amount", amount.StringFixed(2)),
		zap.Int64("superseded", superseded))

	return &PaymentSession{
		PaymentID:   payment.ID,
		OrderID:     order.ID,
		Amount:      amount,
		Currency:    s.cfg.Currency,
		SessionID:   session.ID,
		CheckoutURL: session.URL,
		Superseded:  superseded,
	}, nil
}

// Webhook outcomes.
const (
	OutcomeSettled          = "settled"
	OutcomeExpired          = "expired"
	OutcomeNoPendingPayment = "no_pending_payment"
	OutcomeUnknownSession   = "unknown_session"
	OutcomeIgnored          = "ignored"
	OutcomeDuplicate        = "duplicate"
)

const markTimeout = 2 * time.Second

// WebhookResult describes what a verified event did.
type WebhookResult struct {
	EventID string
	Type    string
	OrderID uint64
	Outcome string
}

// HandleProviderWebhook verifies, de-duplicates and applies a provider
// event.  Once the payload is verified, every outcome other than an
// internal failure is a success for the provider: replays and events for
// payments that are no longer pending are no-ops.  An event id is marked
// processed only after its writes committed, so a failed attempt is retried
// in full on redelivery.
func (s *PaymentService) HandleProviderWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	if err := provider.VerifySignature(payload, signature, s.cfg.WebhookSecret, s.cfg.SignatureTolerance, s.now()); err != nil {
		s.metrics.WebhookEvent("", ErrInvalidSignature.Code)
		s.log.Warn("webhook rejected", zap.Error(err))
		return nil, wrap(ErrInvalidSignature, err)
	}
	ev, err := provider.ParseEvent(payload)
	if err != nil {
		s.metrics.WebhookEvent("", ErrMalformedPayload.Code)
		return nil, wrap(ErrMalformedPayload, err)
	}
	res := &WebhookResult{EventID: ev.ID, Type: ev.Type}

	var apply func(context.Context, uint64, *provider.Event) (string, error)
	switch ev.Type {
	case provider.EventCheckoutCompleted:
		apply = s.settle
	case provider.EventCheckoutExpired:
		apply = s.expire
	default:
		res.Outcome = OutcomeIgnored
		s.metrics.WebhookEvent(ev.Type, res.Outcome)
		return res, nil
	}
	orderID, err := ev.Session.OrderID()
	if err == nil && strings.TrimSpace(ev.Session.ID) == "" {
		err = fmt.Errorf("%w: session id missing", provider.ErrMalformedEvent)
	}
	if err != nil {
		s.metrics.WebhookEvent(ev.Type, ErrMalformedPayload.Code)
		return nil, wrap(ErrMalformedPayload, err)
	}
	res.OrderID = orderID

	if s.deduper != nil {
		seen, err := s.deduper.Seen(ctx, ev.ID)
		if err != nil {
			s.log.Warn("webhook dedupe unavailable", zap.String("event_id", ev.ID), zap.Error(err))
		} else if seen {
			res.Outcome = OutcomeDuplicate
			s.metrics.WebhookEvent(ev.Type, res.Outcome)
			return res, nil
		}
	}

	outcome, err := apply(ctx, orderID, ev)
	if err != nil {
		s.metrics.WebhookEvent(ev.Type, "error")
		s.log.Error("webhook processing failed",
			zap.String("event_id", ev.ID), zap.String("type", ev.Type), zap.Uint64("order_id", orderID), zap.Error(err))
		return nil, err
	}
	if s.deduper != nil {
		mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markTimeout)
		if err := s.deduper.Mark(mctx, ev.ID); err != nil {
			s.log.Warn("webhook dedupe mark failed", zap.String("event_id", ev.ID), zap.Error(err))
		}
		cancel()
	}
	res.Outcome = outcome
	s.metrics.WebhookEvent(ev.Type, outcome)
	return res, nil
}

// sessionPaymentTx loads the payment opened for the event's checkout
// session.  It returns nil when the session is unknown or belongs to
// another order.
func (s *PaymentService) sessionPaymentTx(ctx context.Context, tx *sql.Tx, orderID uint64, ev *provider.Event) (*model.Payment, error) {
	payment, err := s.payments.BySessionTx(ctx, tx, ev.Session.ID)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Warn("webhook for unknown session",
			zap.String("event_id", ev.ID), zap.String("session_id", ev.Session.ID), zap.Uint64("order_id", orderID))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}
	if payment.OrderID != orderID {
		s.log.Warn("webhook session belongs to another order",
			zap.String("event_id", ev.ID), zap.String("session_id", ev.Session.ID),
			zap.Uint64("order_id", orderID), zap.Uint64("payment_order_id", payment.OrderID))
		return nil, nil
	}
	return payment, nil
}

// settle marks the session's payment successful, the order paid and records
// the purchased movies, all in one transaction.  A payment superseded by a
// newer session is settled too, since the buyer was charged on it.
func (s *PaymentService) settle(ctx context.Context, orderID uint64, ev *provider.Event) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	payment, err := s.sessionPaymentTx(ctx, tx, orderID, ev)
	if err != nil {
		return "", err
	}
	if payment == nil {
		return OutcomeUnknownSession, nil
	}
	if payment.Status != model.PaymentPending && payment.Status != model.PaymentCanceled {
		s.log.Info("payment already settled",
			zap.String("event_id", ev.ID), zap.Uint64("payment_id", payment.ID), zap.String("status", string(payment.Status)))
		return OutcomeNoPendingPayment, nil
	}

	var externalID *string
	if pi := strings.TrimSpace(ev.Session.PaymentIntent); pi != "" {
		externalID = &pi
	}
	ok, err := s.payments.TransitionTx(ctx, tx, payment.ID, payment.Status, model.PaymentSuccessful, externalID)
	if err != nil {
		return "", fmt.Errorf("settle payment: %w", err)
	}
	if !ok {
		return OutcomeNoPendingPayment, nil
	}
	if payment.Status == model.PaymentCanceled {
		s.log.Warn("superseded session was paid",
			zap.Uint64("payment_id", payment.ID), zap.Uint64("order_id", orderID), zap.String("session_id", ev.Session.ID))
	}

	order, err := s.orders.GetByIDTx(ctx, tx, orderID)
	if err != nil {
		return "", fmt.Errorf("load order: %w", err)
	}
	orderPaid := false
	if order.Status == model.OrderPending {
		if orderPaid, err = s.orders.TransitionTx(ctx, tx, order.ID, model.OrderPending, model.OrderPaid); err != nil {
			return "", fmt.Errorf("mark order paid: %w", err)
		}
	} else {
		s.log.Warn("settled payment for non-pending order",
			zap.Uint64("payment_id", payment.ID),
			zap.Uint64("order_id", order.ID), zap.String("status", string(order.Status)))
	}

	items, err := s.orders.ItemsTx(ctx, tx, order.ID)
	if err != nil {
		return "", fmt.Errorf("load order items: %w", err)
	}
	movieIDs := make([]uint64, len(items))
	for i, it := range items {
		movieIDs[i] = it.MovieID
	}
	granted, err := s.purchases.GrantTx(ctx, tx, order.UserID, order.ID, movieIDs)
	if err != nil {
		return "", fmt.Errorf("grant purchases: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	committed = true

	intent := ""
	if externalID != nil {
		intent = *externalID
	}
	s.log.Info("payment settled",
		zap.Uint64("payment_id", payment.ID),
		zap.Uint64("order_id", order.ID),
		zap.String("external_id", intent),
		zap.Int("granted", len(granted)))

	if s.publisher != nil && orderPaid {
		err := s.publisher.PublishOrderPaid(ctx, queue.OrderPaidEvent{
			OrderID:           order.ID,
			UserID:            order.UserID,
			PaymentID:         payment.ID,
			ExternalPaymentID: intent,
			MovieIDs:          movieIDs,
			TotalAmount:       payment.Amount.StringFixed(2),
			Currency:          s.cfg.Currency,
			PaidAt:            s.now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			s.log.Warn("order paid event not published", zap.Uint64("order_id", order.ID), zap.Error(err))
		}
	}
	return OutcomeSettled, nil
}

// expire cancels the session's payment when it is still the pending one.
// Expiry of a superseded session changes nothing.  The order stays pending
// for another attempt unless CancelOrderOnExpiry is set.
func (s *PaymentService) expire(ctx context.Context, orderID uint64, ev *provider.Event) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	payment, err := s.sessionPaymentTx(ctx, tx, orderID, ev)
	if err != nil {
		return "", err
	}
	if payment == nil {
		return OutcomeUnknownSession, nil
	}
	if payment.Status != model.PaymentPending {
		return OutcomeNoPendingPayment, nil
	}
	ok, err := s.payments.TransitionTx(ctx, tx, payment.ID, model.PaymentPending, model.PaymentCanceled, nil)
	if err != nil {
		return "", fmt.Errorf("cancel payment: %w", err)
	}
	if !ok {
		return OutcomeNoPendingPayment, nil
	}
	orderCancelled := false
	if s.cfg.CancelOrderOnExpiry {
		orderCancelled, err = s.orders.TransitionTx(ctx, tx, orderID, model.OrderPending, model.OrderCancelled)
		if err != nil {
			return "", fmt.Errorf("cancel order: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	committed = true

	s.log.Info("payment expired",
		zap.Uint64("payment_id", payment.ID),
		zap.Uint64("order_id", orderID),
		zap.String("event_id", ev.ID),
		zap.Bool("order_cancelled", orderCancelled))
	return OutcomeExpired, nil
}
