package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/movie-storefront/internal/model"
)

// CartRepo manages carts and cart items.  A user owns at most one cart,
// enforced by the unique key on carts.user_id.
type CartRepo struct {
	db *sql.DB
}

// NewCartRepo returns a new CartRepo bound to the given database.
func NewCartRepo(db *sql.DB) *CartRepo { return &CartRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions.
func (r *CartRepo) DB() *sql.DB { return r.db }

const cartColumns = `id, user_id, created_at, updated_at`

func getCartByUser(ctx context.Context, q querier, userID uint64) (*model.Cart, error) {
	var c model.Cart
	err := q.QueryRowContext(ctx, `SELECT `+cartColumns+` FROM carts WHERE user_id = ?`, userID).
		Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByUser returns the user's cart or ErrNotFound.
func (r *CartRepo) GetByUser(ctx context.Context, userID uint64) (*model.Cart, error) {
	return getCartByUser(ctx, r.db, userID)
}

// GetOrCreate returns the user's cart, creating it on first use.  A
// concurrent creator losing the unique key race re-reads the winner's row.
func (r *CartRepo) GetOrCreate(ctx context.Context, userID uint64) (*model.Cart, error) {
	c, err := getCartByUser(ctx, r.db, userID)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return c, err
	}
	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO carts (user_id, created_at, updated_at) VALUES (?, ?, ?)`, userID, now, now); err != nil && !isDuplicate(err) {
		return nil, err
	}
	return getCartByUser(ctx, r.db, userID)
}

// LockByUserTx touches the user's cart row inside tx and returns it.  The
// update takes a row lock (MySQL) or the write lock (SQLite) so concurrent
// order creation for the same user runs one at a time.  Returns ErrNotFound
// when the user has no cart.
func (r *CartRepo) LockByUserTx(ctx context.Context, tx *sql.Tx, userID uint64) (*model.Cart, error) {
	// RowsAffected is not trusted here: MySQL reports 0 for an unchanged row.
	if _, err := tx.ExecContext(ctx, `UPDATE carts SET updated_at = ? WHERE user_id = ?`, time.Now().UTC(), userID); err != nil {
		return nil, err
	}
	return getCartByUser(ctx, tx, userID)
}

// AddItem puts a movie into the cart.  Adding a movie that is already in
// the cart returns ErrConflict.
func (r *CartRepo) AddItem(ctx context.Context, cartID, movieID uint64) (*model.CartItem, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO cart_items (cart_id, movie_id, added_at) VALUES (?, ?, ?)`, cartID, movieID, now)
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.CartItem{ID: uint64(id), CartID: cartID, MovieID: movieID, AddedAt: now}, nil
}

// RemoveItem deletes one movie from the cart or returns ErrNotFound.
func (r *CartRepo) RemoveItem(ctx context.Context, cartID, movieID uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = ? AND movie_id = ?`, cartID, movieID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Clear removes every item from the cart and reports how many were removed.
func (r *CartRepo) Clear(ctx context.Context, cartID uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = ?`, cartID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const cartLineQuery = `SELECT ci.movie_id, m.name, m.price, m.year, m.available, ci.added_at
                       FROM cart_items ci JOIN movies m ON m.id = ci.movie_id
                       WHERE ci.cart_id = ? ORDER BY ci.added_at, ci.id`

func cartLines(ctx context.Context, q querier, cartID uint64) ([]model.CartLine, error) {
	rows, err := q.QueryContext(ctx, cartLineQuery, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.CartLine{}
	for rows.Next() {
		var l model.CartLine
		if err := rows.Scan(&l.MovieID, &l.Name, &l.Price, &l.Year, &l.Available, &l.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Lines lists the cart's movies in insertion order.
func (r *CartRepo) Lines(ctx context.Context, cartID uint64) ([]model.CartLine, error) {
	return cartLines(ctx, r.db, cartID)
}

// LinesTx is Lines inside a transaction.
func (r *CartRepo) LinesTx(ctx context.Context, tx *sql.Tx, cartID uint64) ([]model.CartLine, error) {
	return cartLines(ctx, tx, cartID)
}
