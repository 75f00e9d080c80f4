package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/movie-storefront/internal/model"
)

// MovieRepo reads catalog rows.  Catalog management lives elsewhere, so
// this repository never writes movies.
type MovieRepo struct {
	db *sql.DB
}

// NewMovieRepo returns a new MovieRepo bound to the given database.
func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions.
func (r *MovieRepo) DB() *sql.DB { return r.db }

const movieColumns = `m.id, m.uuid, m.name, m.year, m.time, m.imdb, m.votes, m.meta_score, m.gross,
                      m.description, m.price, m.available, m.certification_id, m.created_at`

func scanMovie(s scanner) (model.Movie, error) {
	var (
		m         model.Movie
		metaScore sql.NullFloat64
		gross     sql.NullFloat64
		desc      sql.NullString
	)
	err := s.Scan(&m.ID, &m.UUID, &m.Name, &m.Year, &m.Time, &m.IMDb, &m.Votes, &metaScore, &gross,
		&desc, &m.Price, &m.Available, &m.CertificationID, &m.CreatedAt)
	if err != nil {
		return m, err
	}
	if metaScore.Valid {
		v := metaScore.Float64
		m.MetaScore = &v
	}
	if gross.Valid {
		v := gross.Float64
		m.Gross = &v
	}
	if desc.Valid {
		v := desc.String
		m.Description = &v
	}
	return m, nil
}

// GetByID returns a movie or ErrNotFound.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies m WHERE m.id = ?`, id)
	m, err := scanMovie(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByIDsTx re-reads the given movies inside a transaction.  When
// onlyAvailable is set, movies flagged unavailable are skipped.  Missing ids
// are silently absent from the result.
func (r *MovieRepo) GetByIDsTx(ctx context.Context, tx *sql.Tx, ids []uint64, onlyAvailable bool) ([]model.Movie, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	in, args := inClause(ids)
	q := `SELECT ` + movieColumns + ` FROM movies m WHERE m.id IN (` + in + `)`
	if onlyAvailable {
		q += ` AND m.available = ?`
		args = append(args, true)
	}
	q += ` ORDER BY m.id`
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Movie
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// List returns a page of movies ordered by release year, optionally
// filtered by a case-insensitive name fragment, and the total match count.
func (r *MovieRepo) List(ctx context.Context, search string, limit, offset int) ([]model.Movie, int, error) {
	where := ""
	var args []any
	if s := strings.TrimSpace(search); s != "" {
		where = ` WHERE LOWER(m.name) LIKE ?`
		args = append(args, "%"+strings.ToLower(s)+"%")
	}
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies m`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	q := `SELECT ` + movieColumns + ` FROM movies m` + where + ` ORDER BY m.year, m.id LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]model.Movie, 0, limit)
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

// Detail loads a movie with certification, genres, stars, directors and the
// social aggregates.
func (r *MovieRepo) Detail(ctx context.Context, id uint64) (*model.MovieDetail, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+movieColumns+`, COALESCE(c.name, '')
		FROM movies m LEFT JOIN certifications c ON c.id = m.certification_id
		WHERE m.id = ?`, id)
	var d model.MovieDetail
	var (
		metaScore sql.NullFloat64
		gross     sql.NullFloat64
		desc      sql.NullString
	)
	m := &d.Movie
	err := row.Scan(&m.ID, &m.UUID, &m.Name, &m.Year, &m.Time, &m.IMDb, &m.Votes, &metaScore, &gross,
		&desc, &m.Price, &m.Available, &m.CertificationID, &m.CreatedAt, &d.Certification)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if metaScore.Valid {
		v := metaScore.Float64
		m.MetaScore = &v
	}
	if gross.Valid {
		v := gross.Float64
		m.Gross = &v
	}
	if desc.Valid {
		v := desc.String
		m.Description = &v
	}

	if d.Genres, err = r.names(ctx, "genres", "movie_genres", "genre_id", id); err != nil {
		return nil, err
	}
	if d.Stars, err = r.names(ctx, "stars", "movie_stars", "star_id", id); err != nil {
		return nil, err
	}
	if d.Directors, err = r.names(ctx, "directors", "movie_directors", "director_id", id); err != nil {
		return nil, err
	}

	var avg sql.NullFloat64
	if err := r.db.QueryRowContext(ctx,
		`SELECT AVG(score), COUNT(*) FROM ratings WHERE movie_id = ?`, id).Scan(&avg, &d.Ratings); err != nil {
		return nil, err
	}
	if avg.Valid {
		v := avg.Float64
		d.AvgRating = &v
	}
	if err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN kind = 'like' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN kind = 'dislike' THEN 1 ELSE 0 END), 0)
		 FROM reactions WHERE movie_id = ?`, id).Scan(&d.Likes, &d.Dislikes); err != nil {
		return nil, err
	}
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM favorites WHERE movie_id = ?`, id).Scan(&d.Favorites); err != nil {
		return nil, err
	}
	return &d, nil
}

// names lists the names linked to a movie through a join table.  Table
// names are constants supplied by this package, never user input.
func (r *MovieRepo) names(ctx context.Context, table, link, col string, movieID uint64) ([]string, error) {
	q := `SELECT t.name FROM ` + table + ` t JOIN ` + link + ` l ON l.` + col + ` = t.id
	      WHERE l.movie_id = ? ORDER BY t.name`
	rows, err := r.db.QueryContext(ctx, q, movieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// GenresFor returns genre names keyed by movie id.
func (r *MovieRepo) GenresFor(ctx context.Context, movieIDs []uint64) (map[uint64][]string, error) {
	out := make(map[uint64][]string, len(movieIDs))
	if len(movieIDs) == 0 {
		return out, nil
	}
	in, args := inClause(movieIDs)
	rows, err := r.db.QueryContext(ctx, `SELECT l.movie_id, g.name FROM movie_genres l
		JOIN genres g ON g.id = l.genre_id WHERE l.movie_id IN (`+in+`) ORDER BY l.movie_id, g.name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[id] = append(out[id], name)
	}
	return out, rows.Err()
}
