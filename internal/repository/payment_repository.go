package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/movie-storefront/internal/model"
)

// PaymentRepo persists payments and payment items.  Every write runs inside
// a caller owned transaction so a payment never outlives a failed checkout.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions.
func (r *PaymentRepo) DB() *sql.DB { return r.db }

const paymentColumns = `id, user_id, order_id, status, amount, external_payment_id, provider_session_id, created_at, updated_at`

func scanPayment(s scanner) (*model.Payment, error) {
	var (
		p        model.Payment
		external sql.NullString
		session  sql.NullString
	)
	if err := s.Scan(&p.ID, &p.UserID, &p.OrderID, &p.Status, &p.Amount, &external, &session,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if external.Valid {
		v := external.String
		p.ExternalPaymentID = &v
	}
	if session.Valid {
		v := session.String
		p.ProviderSessionID = &v
	}
	return &p, nil
}

// CreateTx inserts a payment and populates its generated ID and timestamps.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error {
	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO payments (user_id, order_id, status, amount, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.UserID, p.OrderID, p.Status, p.Amount, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// CreateItemsBulkTx inserts payment_items rows in one statement.
func (r *PaymentRepo) CreateItemsBulkTx(ctx context.Context, tx *sql.Tx, items []model.PaymentItem) error {
	if len(items) == 0 {
		return nil
	}
	query := `INSERT INTO payment_items (payment_id, order_item_id, price_at_payment) VALUES `
	args := make([]any, 0, len(items)*3)
	for i, it := range items {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, it.PaymentID, it.OrderItemID, it.PriceAtPayment)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// UpdateAmountTx writes the computed payment amount.
func (r *PaymentRepo) UpdateAmountTx(ctx context.Context, tx *sql.Tx, paymentID uint64, amount decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `UPDATE payments SET amount = ? WHERE id = ?`, amount, paymentID)
	return err
}

// SetSessionTx records the provider checkout session id.
func (r *PaymentRepo) SetSessionTx(ctx context.Context, tx *sql.Tx, paymentID uint64, sessionID string) error {
	_, err := tx.ExecContext(ctx, `UPDATE payments SET provider_session_id = ?, updated_at = ? WHERE id = ?`,
		sessionID, time.Now().UTC(), paymentID)
	return err
}

// BySessionTx returns the payment opened for a provider checkout session or
// ErrNotFound.
func (r *PaymentRepo) BySessionTx(ctx context.Context, tx *sql.Tx, sessionID string) (*model.Payment, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments
		WHERE provider_session_id = ? ORDER BY id DESC LIMIT 1`, sessionID)
	return scanPayment(row)
}

// CancelPendingByOrderTx cancels every pending payment of an order and
// reports how many were cancelled.
func (r *PaymentRepo) CancelPendingByOrderTx(ctx context.Context, tx *sql.Tx, orderID uint64) (int64, error) {
	res, err := tx.ExecContext(ctx, `UPDATE payments SET status = ?, updated_at = ? WHERE order_id = ? AND status = ?`,
		model.PaymentCanceled, time.Now().UTC(), orderID, model.PaymentPending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// TransitionTx moves a payment between statuses, conditional on the current
// status.  externalID is recorded when non-nil.  It reports false when the
// payment was no longer in the from state.
func (r *PaymentRepo) TransitionTx(ctx context.Context, tx *sql.Tx, paymentID uint64, from, to model.PaymentStatus, externalID *string) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, model.ErrInvalidTransition
	}
	now := time.Now().UTC()
	var (
		res sql.Result
		err error
	)
	if externalID != nil {
		res, err = tx.ExecContext(ctx, `UPDATE payments SET status = ?, external_payment_id = ?, updated_at = ?
			WHERE id = ? AND status = ?`, to, *externalID, now, paymentID, from)
	} else {
		res, err = tx.ExecContext(ctx, `UPDATE payments SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			to, now, paymentID, from)
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetByID loads a payment.
func (r *PaymentRepo) GetByID(ctx context.Context, id uint64) (*model.Payment, error) {
	return scanPayment(r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id))
}

// ListByOrder returns all payments of an order, oldest first.
func (r *PaymentRepo) ListByOrder(ctx context.Context, orderID uint64) ([]model.Payment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Items returns the items of a payment.
func (r *PaymentRepo) Items(ctx context.Context, paymentID uint64) ([]model.PaymentItem, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, payment_id, order_item_id, price_at_payment FROM payment_items
		WHERE payment_id = ? ORDER BY id`, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.PaymentItem
	for rows.Next() {
		var it model.PaymentItem
		if err := rows.Scan(&it.ID, &it.PaymentID, &it.OrderItemID, &it.PriceAtPayment); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
