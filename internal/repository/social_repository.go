package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/movie-storefront/internal/model"
)

// SocialRepo stores ratings, reactions and favorites.  Each is keyed by
// (user_id, movie_id).
type SocialRepo struct {
	db *sql.DB
}

// NewSocialRepo returns a new SocialRepo bound to the given database.
func NewSocialRepo(db *sql.DB) *SocialRepo { return &SocialRepo{db: db} }

// UpsertRating stores or replaces the user's score for a movie.  Update
// first, insert on miss, keeps the SQL portable across MySQL and SQLite.
func (r *SocialRepo) UpsertRating(ctx context.Context, userID, movieID uint64, score int) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `UPDATE ratings SET score = ?, updated_at = ? WHERE user_id = ? AND movie_id = ?`,
		score, now, userID, movieID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO ratings (user_id, movie_id, score, updated_at) VALUES (?, ?, ?, ?)`,
		userID, movieID, score, now)
	if isDuplicate(err) {
		// lost an insert race; the other writer's row gets our score
		_, err = r.db.ExecContext(ctx, `UPDATE ratings SET score = ?, updated_at = ? WHERE user_id = ? AND movie_id = ?`,
			score, now, userID, movieID)
	}
	return err
}

// Reaction returns the user's reaction to a movie or ErrNotFound.
func (r *SocialRepo) Reaction(ctx context.Context, userID, movieID uint64) (model.ReactionKind, error) {
	var k model.ReactionKind
	err := r.db.QueryRowContext(ctx, `SELECT kind FROM reactions WHERE user_id = ? AND movie_id = ?`, userID, movieID).Scan(&k)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return k, err
}

// SetReaction inserts the reaction or switches an existing one to kind.
func (r *SocialRepo) SetReaction(ctx context.Context, userID, movieID uint64, kind model.ReactionKind) error {
	res, err := r.db.ExecContext(ctx, `UPDATE reactions SET kind = ? WHERE user_id = ? AND movie_id = ?`, kind, userID, movieID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO reactions (user_id, movie_id, kind, created_at) VALUES (?, ?, ?, ?)`,
		userID, movieID, kind, time.Now().UTC())
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// DeleteReaction removes the user's reaction or returns ErrNotFound.
func (r *SocialRepo) DeleteReaction(ctx context.Context, userID, movieID uint64) error {
	return r.deleteOne(ctx, `DELETE FROM reactions WHERE user_id = ? AND movie_id = ?`, userID, movieID)
}

// AddFavorite bookmarks a movie; a repeated add returns ErrConflict.
func (r *SocialRepo) AddFavorite(ctx context.Context, userID, movieID uint64) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO favorites (user_id, movie_id, created_at) VALUES (?, ?, ?)`,
		userID, movieID, time.Now().UTC())
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// RemoveFavorite drops a bookmark or returns ErrNotFound.
func (r *SocialRepo) RemoveFavorite(ctx context.Context, userID, movieID uint64) error {
	return r.deleteOne(ctx, `DELETE FROM favorites WHERE user_id = ? AND movie_id = ?`, userID, movieID)
}

// Favorites lists the user's bookmarked movies, newest first.
func (r *SocialRepo) Favorites(ctx context.Context, userID uint64) ([]model.Movie, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+movieColumns+` FROM favorites f
		JOIN movies m ON m.id = f.movie_id WHERE f.user_id = ? ORDER BY f.created_at DESC, m.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Movie{}
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *SocialRepo) deleteOne(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
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
