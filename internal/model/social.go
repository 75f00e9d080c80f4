package model

import "time"

// ReactionKind is either like or dislike.
type ReactionKind string

const (
    ReactionLike    ReactionKind = "like"
    ReactionDislike ReactionKind = "dislike"
)

// Valid reports whether k is a known reaction.
func (k ReactionKind) Valid() bool { return k == ReactionLike || k == ReactionDislike }

// Rating is a user's 1..10 score for a movie, one per (user, movie).
type Rating struct {
    UserID    uint64    // ratings.user_id
    MovieID   uint64    // ratings.movie_id
    Score     int       // ratings.score
    UpdatedAt time.Time // ratings.updated_at
}

// Favorite bookmarks a movie for a user.
type Favorite struct {
    UserID    uint64    // favorites.user_id
    MovieID   uint64    // favorites.movie_id
    CreatedAt time.Time // favorites.created_at
}
