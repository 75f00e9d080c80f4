package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// Cart is the per-user staging area.  A user owns at most one cart; it is
// created lazily on the first add.
type Cart struct {
    ID        uint64    // carts.id
    UserID    uint64    // carts.user_id (unique)
    CreatedAt time.Time // carts.created_at
    UpdatedAt time.Time // carts.updated_at
}

// CartItem links a cart to a movie.  (cart_id, movie_id) is unique.
type CartItem struct {
    ID      uint64    // cart_items.id
    CartID  uint64    // cart_items.cart_id
    MovieID uint64    // cart_items.movie_id
    AddedAt time.Time // cart_items.added_at
}

// CartLine is a cart item joined with the movie fields shown to the user.
type CartLine struct {
    MovieID   uint64
    Name      string
    Price     decimal.Decimal
    Year      int
    Available bool
    Genres    []string
    AddedAt   time.Time
}
