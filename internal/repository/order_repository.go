package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/movie-storefront/internal/model"
)

// OrderRepo provides persistence for orders and their items.  Orders are
// created and settled inside caller owned transactions; the read methods
// run against the pool.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions.
func (r *OrderRepo) DB() *sql.DB { return r.db }

const orderColumns = `o.id, o.user_id, o.status, o.total_amount, o.created_at, o.updated_at`

func scanOrder(s scanner, extra ...any) (model.Order, error) {
	var o model.Order
	dest := append([]any{&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt}, extra...)
	err := s.Scan(dest...)
	return o, err
}

// CreateTx inserts a new order within the scope of an existing transaction
// and populates its generated ID and timestamps.  The caller must commit or
// rollback the transaction.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	now := time.Now().UTC()
	const q = `INSERT INTO orders (user_id, status, total_amount, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, o.UserID, o.Status, o.TotalAmount, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	o.CreatedAt = now
	o.UpdatedAt = now
	return nil
}

// CreateItemsBulkTx inserts multiple order_items rows in a single
// statement.  Passing an empty slice has no effect and returns nil.
func (r *OrderRepo) CreateItemsBulkTx(ctx context.Context, tx *sql.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	query := `INSERT INTO order_items (order_id, movie_id, price_at_order) VALUES `
	args := make([]any, 0, len(items)*3)
	for i, it := range items {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, it.OrderID, it.MovieID, it.PriceAtOrder)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// UpdateTotalTx writes the computed total of an order.
func (r *OrderRepo) UpdateTotalTx(ctx context.Context, tx *sql.Tx, orderID uint64, total decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `UPDATE orders SET total_amount = ? WHERE id = ?`, total, orderID)
	return err
}

// PendingMovieIDsTx returns the distinct movies that sit in any of the
// user's pending orders.
func (r *OrderRepo) PendingMovieIDsTx(ctx context.Context, tx *sql.Tx, userID uint64) ([]uint64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT DISTINCT oi.movie_id FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.user_id = ? AND o.status = ? ORDER BY oi.movie_id`, userID, model.OrderPending)
	if err != nil {
		return nil, err
	}
	return collectIDs(rows)
}

// ListByUser returns every order of the user, newest first, without items.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders o
		WHERE o.user_id = ? ORDER BY o.created_at DESC, o.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func getOrderForUser(ctx context.Context, q querier, orderID, userID uint64) (*model.OrderDetail, error) {
	row := q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = ? AND o.user_id = ?`, orderID, userID)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	lines, err := orderLines(ctx, q, []uint64{o.ID})
	if err != nil {
		return nil, err
	}
	return &model.OrderDetail{Order: o, Lines: lines[o.ID]}, nil
}

// GetForUser returns an order with its lines only when it belongs to
// userID.  Orders of other users are reported as ErrNotFound.
func (r *OrderRepo) GetForUser(ctx context.Context, orderID, userID uint64) (*model.OrderDetail, error) {
	return getOrderForUser(ctx, r.db, orderID, userID)
}

// GetForUserTx is GetForUser inside a transaction.
func (r *OrderRepo) GetForUserTx(ctx context.Context, tx *sql.Tx, orderID, userID uint64) (*model.OrderDetail, error) {
	return getOrderForUser(ctx, tx, orderID, userID)
}

// GetByIDTx loads an order regardless of owner.  Used by webhook settlement
// where the order id comes from provider metadata.
func (r *OrderRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, orderID uint64) (*model.Order, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = ?`, orderID)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ItemsTx returns the raw items of an order.
func (r *OrderRepo) ItemsTx(ctx context.Context, tx *sql.Tx, orderID uint64) ([]model.OrderItem, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, order_id, movie_id, price_at_order FROM order_items
		WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.OrderItem
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MovieID, &it.PriceAtOrder); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// TransitionTx moves an order from one status to another.  The update is
// conditional on the current status, so it reports false when another
// writer got there first or the order was not in the expected state.
func (r *OrderRepo) TransitionTx(ctx context.Context, tx *sql.Tx, orderID uint64, from, to model.OrderStatus) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, model.ErrInvalidTransition
	}
	res, err := tx.ExecContext(ctx, `UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, time.Now().UTC(), orderID, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// OrderFilter narrows the moderator order listing.  Zero values mean no
// filter.
type OrderFilter struct {
	UserEmail string
	From      *time.Time
	To        *time.Time
	Status    model.OrderStatus
}

// ListForModerator returns orders across all users joined with the owner's
// email and their lines, newest first.
func (r *OrderRepo) ListForModerator(ctx context.Context, f OrderFilter) ([]model.OrderDetail, error) {
	var (
		conds []string
		args  []any
	)
	if f.UserEmail != "" {
		conds = append(conds, "LOWER(u.email) = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(f.UserEmail)))
	}
	if f.From != nil {
		conds = append(conds, "o.created_at >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		conds = append(conds, "o.created_at <= ?")
		args = append(args, f.To.UTC())
	}
	if f.Status != "" {
		conds = append(conds, "o.status = ?")
		args = append(args, f.Status)
	}
	q := `SELECT ` + orderColumns + `, u.email FROM orders o JOIN users u ON u.id = o.user_id`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY o.created_at DESC, o.id DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.OrderDetail{}
	var ids []uint64
	for rows.Next() {
		var email string
		o, err := scanOrder(rows, &email)
		if err != nil {
			return nil, err
		}
		out = append(out, model.OrderDetail{Order: o, UserEmail: email})
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	lines, err := orderLines(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Lines = lines[out[i].ID]
	}
	return out, nil
}

// orderLines loads items joined with movie names for several orders in
// one query.
func orderLines(ctx context.Context, q querier, orderIDs []uint64) (map[uint64][]model.OrderLine, error) {
	out := make(map[uint64][]model.OrderLine, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	in, args := inClause(orderIDs)
	rows, err := q.QueryContext(ctx, `SELECT oi.id, oi.order_id, oi.movie_id, oi.price_at_order, m.name
		FROM order_items oi JOIN movies m ON m.id = oi.movie_id
		WHERE oi.order_id IN (`+in+`) ORDER BY oi.order_id, oi.id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var l model.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.MovieID, &l.PriceAtOrder, &l.MovieName); err != nil {
			return nil, err
		}
		out[l.OrderID] = append(out[l.OrderID], l)
	}
	return out, rows.Err()
}
