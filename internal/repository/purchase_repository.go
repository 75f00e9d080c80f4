package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/movie-storefront/internal/model"
)

// PurchaseRepo maintains the purchased_movies entitlement ledger.
type PurchaseRepo struct {
	db *sql.DB
}

// NewPurchaseRepo returns a new PurchaseRepo bound to the given database.
func NewPurchaseRepo(db *sql.DB) *PurchaseRepo { return &PurchaseRepo{db: db} }

// MovieIDsTx returns the movies the user already owns.
func (r *PurchaseRepo) MovieIDsTx(ctx context.Context, tx *sql.Tx, userID uint64) ([]uint64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT movie_id FROM purchased_movies WHERE user_id = ? ORDER BY movie_id`, userID)
	if err != nil {
		return nil, err
	}
	return collectIDs(rows)
}

// Owns reports whether the user already owns movieID.
func (r *PurchaseRepo) Owns(ctx context.Context, userID, movieID uint64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM purchased_movies WHERE user_id = ? AND movie_id = ?`, userID, movieID).Scan(&n)
	return n > 0, err
}

// GrantTx records ownership of movieIDs for userID through orderID.  Movies
// the user already owns are skipped, so replays never hit the primary key.
// It returns the movie ids that were newly granted.
func (r *PurchaseRepo) GrantTx(ctx context.Context, tx *sql.Tx, userID, orderID uint64, movieIDs []uint64) ([]uint64, error) {
	if len(movieIDs) == 0 {
		return nil, nil
	}
	owned, err := r.MovieIDsTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	skip := make(map[uint64]struct{}, len(owned))
	for _, id := range owned {
		skip[id] = struct{}{}
	}
	now := time.Now().UTC()
	query := `INSERT INTO purchased_movies (user_id, movie_id, order_id, created_at) VALUES `
	var (
		args    []any
		granted []uint64
	)
	for _, m := range movieIDs {
		if _, ok := skip[m]; ok {
			continue
		}
		skip[m] = struct{}{}
		if len(granted) > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, userID, m, orderID, now)
		granted = append(granted, m)
	}
	if len(granted) == 0 {
		return nil, nil
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, err
	}
	return granted, nil
}

// ListByUser returns the user's library, newest first.
func (r *PurchaseRepo) ListByUser(ctx context.Context, userID uint64) ([]model.PurchasedMovie, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id, movie_id, order_id, created_at FROM purchased_movies
		WHERE user_id = ? ORDER BY created_at DESC, movie_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.PurchasedMovie{}
	for rows.Next() {
		var p model.PurchasedMovie
		if err := rows.Scan(&p.UserID, &p.MovieID, &p.OrderID, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
