// Package dbtest provides an in-memory SQLite database with the storefront
// schema for tests.  The schema mirrors the MySQL migrations closely enough
// for the repository SQL, which sticks to the common subset of both.
package dbtest

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const schema = `
CREATE TABLE users (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    email         TEXT     NOT NULL UNIQUE,
    password_hash TEXT     NOT NULL,
    group_name    TEXT     NOT NULL DEFAULT 'user',
    is_active     BOOLEAN  NOT NULL DEFAULT 1,
    created_at    DATETIME NOT NULL
);
CREATE TABLE certifications (
    id   INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE
);
CREATE TABLE movies (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    uuid             TEXT          NOT NULL UNIQUE,
    name             TEXT          NOT NULL,
    year             INTEGER       NOT NULL,
    time             INTEGER       NOT NULL,
    imdb             REAL          NOT NULL,
    votes            INTEGER       NOT NULL,
    meta_score       REAL,
    gross            REAL,
    description      TEXT,
    price            DECIMAL(10,2) NOT NULL,
    available        BOOLEAN       NOT NULL DEFAULT 1,
    certification_id INTEGER       NOT NULL,
    created_at       DATETIME      NOT NULL
);
CREATE TABLE genres (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL UNIQUE);
CREATE TABLE stars (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL UNIQUE);
CREATE TABLE directors (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL UNIQUE);
CREATE TABLE movie_genres (movie_id INTEGER NOT NULL, genre_id INTEGER NOT NULL, PRIMARY KEY (movie_id, genre_id));
CREATE TABLE movie_stars (movie_id INTEGER NOT NULL, star_id INTEGER NOT NULL, PRIMARY KEY (movie_id, star_id));
CREATE TABLE movie_directors (movie_id INTEGER NOT NULL, director_id INTEGER NOT NULL, PRIMARY KEY (movie_id, director_id));
CREATE TABLE carts (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id    INTEGER  NOT NULL UNIQUE,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);
CREATE TABLE cart_items (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    cart_id  INTEGER  NOT NULL,
    movie_id INTEGER  NOT NULL,
    added_at DATETIME NOT NULL,
    UNIQUE (cart_id, movie_id)
);
CREATE TABLE orders (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id      INTEGER       NOT NULL,
    status       TEXT          NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','paid','cancelled')),
    total_amount DECIMAL(10,2) NOT NULL DEFAULT 0,
    created_at   DATETIME      NOT NULL,
    updated_at   DATETIME      NOT NULL
);
CREATE TABLE order_items (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id       INTEGER       NOT NULL,
    movie_id       INTEGER       NOT NULL,
    price_at_order DECIMAL(10,2) NOT NULL
);
CREATE TABLE payments (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id             INTEGER       NOT NULL,
    order_id            INTEGER       NOT NULL,
    status              TEXT          NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','successful','canceled','refunded')),
    amount              DECIMAL(10,2) NOT NULL DEFAULT 0,
    external_payment_id TEXT,
    provider_session_id TEXT,
    created_at          DATETIME      NOT NULL,
    updated_at          DATETIME      NOT NULL
);
CREATE INDEX idx_payments_session ON payments (provider_session_id);
CREATE TABLE payment_items (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    payment_id       INTEGER       NOT NULL,
    order_item_id    INTEGER       NOT NULL,
    price_at_payment DECIMAL(10,2) NOT NULL
);
CREATE TABLE purchased_movies (
    user_id    INTEGER  NOT NULL,
    movie_id   INTEGER  NOT NULL,
    order_id   INTEGER  NOT NULL,
    created_at DATETIME NOT NULL,
    PRIMARY KEY (user_id, movie_id)
);
CREATE TABLE ratings (
    user_id    INTEGER  NOT NULL,
    movie_id   INTEGER  NOT NULL,
    score      INTEGER  NOT NULL,
    updated_at DATETIME NOT NULL,
    PRIMARY KEY (user_id, movie_id)
);
CREATE TABLE reactions (
    user_id    INTEGER  NOT NULL,
    movie_id   INTEGER  NOT NULL,
    kind       TEXT     NOT NULL CHECK (kind IN ('like','dislike')),
    created_at DATETIME NOT NULL,
    PRIMARY KEY (user_id, movie_id)
);
CREATE TABLE favorites (
    user_id    INTEGER  NOT NULL,
    movie_id   INTEGER  NOT NULL,
    created_at DATETIME NOT NULL,
    PRIMARY KEY (user_id, movie_id)
);
CREATE TABLE refresh_tokens (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id    INTEGER  NOT NULL,
    token_hash TEXT     NOT NULL UNIQUE,
    expires_at DATETIME NOT NULL,
    revoked_at DATETIME,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// New opens a private in-memory database and applies the schema.  The pool
// is pinned to one connection because every connection to :memory: sees its
// own empty database.
func New(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:?_time_format=sqlite")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(schema)
	require.NoError(t, err)
	return db
}

// SeedUser inserts an active user and returns its id.  passwordHash may be
// empty when the test does not log in.
func SeedUser(t *testing.T, db *sql.DB, email, group, passwordHash string) uint64 {
	t.Helper()
	res, err := db.Exec(
		`INSERT INTO users (email, password_hash, group_name, is_active, created_at) VALUES (?, ?, ?, ?, ?)`,
		email, passwordHash, group, true, time.Now().UTC())
	require.NoError(t, err)
	return lastID(t, res)
}

// SeedMovie inserts a movie with the given price and availability.
func SeedMovie(t *testing.T, db *sql.DB, name, price string, available bool) uint64 {
	t.Helper()
	certID := ensureNamed(t, db, "certifications", "PG-13")
	res, err := db.Exec(
		`INSERT INTO movies (uuid, name, year, time, imdb, votes, price, available, certification_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), name, 2000, 120, 7.5, 1000, price, available, certID, time.Now().UTC())
	require.NoError(t, err)
	return lastID(t, res)
}

// SetMoviePrice changes a movie's live price.
func SetMoviePrice(t *testing.T, db *sql.DB, movieID uint64, price string) {
	t.Helper()
	_, err := db.Exec(`UPDATE movies SET price = ? WHERE id = ?`, price, movieID)
	require.NoError(t, err)
}

// SetMovieAvailable toggles a movie's availability flag.
func SetMovieAvailable(t *testing.T, db *sql.DB, movieID uint64, available bool) {
	t.Helper()
	_, err := db.Exec(`UPDATE movies SET available = ? WHERE id = ?`, available, movieID)
	require.NoError(t, err)
}

// TagMovie links a movie to a genre, star or director by name.  kind is one
// of "genre", "star" or "director".
func TagMovie(t *testing.T, db *sql.DB, movieID uint64, kind, name string) {
	t.Helper()
	table, link, col := kind+"s", "movie_"+kind+"s", kind+"_id"
	id := ensureNamed(t, db, table, name)
	_, err := db.Exec(fmt.Sprintf(`INSERT INTO %s (movie_id, %s) VALUES (?, ?)`, link, col), movieID, id)
	require.NoError(t, err)
}

// AddToCart creates the user's cart if needed and adds the movies.
func AddToCart(t *testing.T, db *sql.DB, userID uint64, movieIDs ...uint64) uint64 {
	t.Helper()
	now := time.Now().UTC()
	var cartID uint64
	err := db.QueryRow(`SELECT id FROM carts WHERE user_id = ?`, userID).Scan(&cartID)
	if err == sql.ErrNoRows {
		res, err := db.Exec(`INSERT INTO carts (user_id, created_at, updated_at) VALUES (?, ?, ?)`, userID, now, now)
		require.NoError(t, err)
		cartID = lastID(t, res)
	} else {
		require.NoError(t, err)
	}
	for _, m := range movieIDs {
		_, err := db.Exec(`INSERT INTO cart_items (cart_id, movie_id, added_at) VALUES (?, ?, ?)`, cartID, m, now)
		require.NoError(t, err)
	}
	return cartID
}

// MarkPurchased writes an entitlement ledger row directly.
func MarkPurchased(t *testing.T, db *sql.DB, userID, movieID uint64) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO purchased_movies (user_id, movie_id, order_id, created_at) VALUES (?, ?, 0, ?)`,
		userID, movieID, time.Now().UTC())
	require.NoError(t, err)
}

// Count returns the number of rows in table matching the optional where
// clause.
func Count(t *testing.T, db *sql.DB, table, where string, args ...any) int {
	t.Helper()
	q := "SELECT COUNT(*) FROM " + table
	if where != "" {
		q += " WHERE " + where
	}
	var n int
	require.NoError(t, db.QueryRow(q, args...).Scan(&n))
	return n
}

func ensureNamed(t *testing.T, db *sql.DB, table, name string) uint64 {
	t.Helper()
	var id uint64
	err := db.QueryRow(fmt.Sprintf(`SELECT id FROM %s WHERE name = ?`, table), name).Scan(&id)
	if err == nil {
		return id
	}
	require.ErrorIs(t, err, sql.ErrNoRows)
	res, err := db.Exec(fmt.Sprintf(`INSERT INTO %s (name) VALUES (?)`, table), name)
	require.NoError(t, err)
	return lastID(t, res)
}

func lastID(t *testing.T, res sql.Result) uint64 {
	t.Helper()
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return uint64(id)
}
