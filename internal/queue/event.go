// Package queue defines message payloads exchanged over the message broker.
package queue

// OrderPaidQueue is the default durable queue for settled orders.
const OrderPaidQueue = "order.paid"

// OrderPaidEvent is published once an order has been settled by the payment
// provider.  It carries enough for downstream consumers to log, send
// receipts or feed analytics without querying the primary database.
type OrderPaidEvent struct {
    OrderID           uint64   `json:"order_id"`
    UserID            uint64   `json:"user_id"`
    PaymentID         uint64   `json:"payment_id"`
    ExternalPaymentID string   `json:"external_payment_id"`
    MovieIDs          []uint64 `json:"movie_ids"`
    TotalAmount       string   `json:"total_amount"`
    Currency          string   `json:"currency"`
    PaidAt            string   `json:"paid_at"`
}
