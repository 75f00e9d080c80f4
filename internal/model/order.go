package model

import (
    "errors"
    "time"

    "github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
    OrderPending   OrderStatus = "pending"
    OrderPaid      OrderStatus = "paid"
    OrderCancelled OrderStatus = "cancelled"
)

// ErrInvalidTransition is returned when a status change is not allowed by
// the order or payment state machine.
var ErrInvalidTransition = errors.New("invalid status transition")

// paid and cancelled are terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
    OrderPending: {OrderPaid, OrderCancelled},
}

// ParseOrderStatus validates a raw status value.
func ParseOrderStatus(s string) (OrderStatus, bool) {
    switch st := OrderStatus(s); st {
    case OrderPending, OrderPaid, OrderCancelled:
        return st, true
    }
    return "", false
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
    for _, allowed := range orderTransitions[s] {
        if allowed == next {
            return true
        }
    }
    return false
}

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool { return len(orderTransitions[s]) == 0 }

// Order is a priced, de-duplicated snapshot of a cart.  TotalAmount is always
// the sum of the items' PriceAtOrder and is computed server side.
//
// Fields:
//  ID          – primary key identifier.
//  UserID      – owner of the order.
//  Status      – pending, paid or cancelled.
//  TotalAmount – sum of order item prices.
//  CreatedAt   – creation timestamp, immutable.
//  UpdatedAt   – last status change.
type Order struct {
    ID          uint64          // orders.id
    UserID      uint64          // orders.user_id
    Status      OrderStatus     // orders.status
    TotalAmount decimal.Decimal // orders.total_amount
    CreatedAt   time.Time       // orders.created_at
    UpdatedAt   time.Time       // orders.updated_at
}

// TransitionTo moves the order to next if the state machine allows it.
func (o *Order) TransitionTo(next OrderStatus) error {
    if !o.Status.CanTransitionTo(next) {
        return ErrInvalidTransition
    }
    o.Status = next
    return nil
}

// OrderItem is one movie inside an order.  PriceAtOrder is write-once.
type OrderItem struct {
    ID           uint64          // order_items.id
    OrderID      uint64          // order_items.order_id
    MovieID      uint64          // order_items.movie_id
    PriceAtOrder decimal.Decimal // order_items.price_at_order
}

// OrderLine is an order item joined with its movie name.
type OrderLine struct {
    OrderItem
    MovieName string
}

// OrderDetail is an order with its resolved lines and, for moderator views,
// the owner's email.
type OrderDetail struct {
    Order
    UserEmail string
    Lines     []OrderLine
}
