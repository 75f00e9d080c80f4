package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// PaymentStatus is the lifecycle state of a payment.  A payment starts in
// pending when a checkout session is opened and is settled exactly once by a
// provider webhook.  A canceled payment can still become successful: its
// checkout session stays open at the provider after a newer session
// supersedes it, and money taken there must be recorded.
type PaymentStatus string

const (
    PaymentPending    PaymentStatus = "pending"
    PaymentSuccessful PaymentStatus = "successful"
    PaymentCanceled   PaymentStatus = "canceled"
    PaymentRefunded   PaymentStatus = "refunded"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
    PaymentPending:    {PaymentSuccessful, PaymentCanceled},
    PaymentCanceled:   {PaymentSuccessful},
    PaymentSuccessful: {PaymentRefunded},
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
    for _, allowed := range paymentTransitions[s] {
        if allowed == next {
            return true
        }
    }
    return false
}

// Payment is the provider facing settlement record of an order.
//
// Fields:
//  ID                – primary key identifier.
//  UserID            – payer.
//  OrderID           – settled order.
//  Status            – pending, successful, canceled or refunded.
//  Amount            – sum of payment item prices.
//  ExternalPaymentID – provider payment intent id, set on success.  Stays
//                      nil when the completed event carries no intent.
//  ProviderSessionID – checkout session id returned by the provider.
//  CreatedAt         – creation timestamp.
//  UpdatedAt         – last status change.
type Payment struct {
    ID                uint64          // payments.id
    UserID            uint64          // payments.user_id
    OrderID           uint64          // payments.order_id
    Status            PaymentStatus   // payments.status
    Amount            decimal.Decimal // payments.amount
    ExternalPaymentID *string         // payments.external_payment_id (nullable)
    ProviderSessionID *string         // payments.provider_session_id (nullable)
    CreatedAt         time.Time       // payments.created_at
    UpdatedAt         time.Time       // payments.updated_at
}

// TransitionTo moves the payment to next if the state machine allows it.
func (p *Payment) TransitionTo(next PaymentStatus) error {
    if !p.Status.CanTransitionTo(next) {
        return ErrInvalidTransition
    }
    p.Status = next
    return nil
}

// PaymentItem freezes the order item price at payment time.
type PaymentItem struct {
    ID             uint64          // payment_items.id
    PaymentID      uint64          // payment_items.payment_id
    OrderItemID    uint64          // payment_items.order_item_id
    PriceAtPayment decimal.Decimal // payment_items.price_at_payment
}

// PurchasedMovie is an entitlement ledger row.  (user_id, movie_id) is unique.
type PurchasedMovie struct {
    UserID    uint64    // purchased_movies.user_id
    MovieID   uint64    // purchased_movies.movie_id
    OrderID   uint64    // purchased_movies.order_id
    CreatedAt time.Time // purchased_movies.created_at
}
