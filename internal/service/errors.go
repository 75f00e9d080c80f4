package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service error for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindPermissionDenied
	KindProvider
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindPermissionDenied:
		return "permission_denied"
	case KindProvider:
		return "provider"
	default:
		return "internal"
	}
}

// Error is the error type returned by every service operation.  Code is a
// stable machine readable identifier, Msg is safe to show to end users and
// Err carries the underlying cause when there is one.
type Error struct {
	Kind Kind
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code, so an error built by NoNewMovies still satisfies
// errors.Is(err, ErrNoNewMovies).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// wrap returns a copy of sentinel carrying cause.
func wrap(sentinel *Error, cause error) *Error {
	cp := *sentinel
	cp.Err = cause
	return &cp
}

// KindOf reports the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

var (
	// order engine
	ErrEmptyCart          = &Error{Kind: KindValidation, Code: "empty_cart", Msg: "You don't have any movies in your cart yet."}
	ErrNoAvailableMovies  = &Error{Kind: KindConflict, Code: "no_available_movies", Msg: "None of the movies in your cart are available for purchase."}
	ErrAllMoviesPurchased = &Error{Kind: KindConflict, Code: "all_movies_purchased", Msg: "All movies from your cart already are bought."}
	ErrNoNewMovies        = &Error{Kind: KindConflict, Code: "no_new_movies", Msg: "You don't have new movies in your cart yet."}
	ErrOrderCreation      = &Error{Kind: KindInternal, Code: "order_creation_failed", Msg: "Failed to create order."}
	ErrOrderNotFound      = &Error{Kind: KindNotFound, Code: "order_not_found", Msg: "Order not found."}
	ErrPermissionDenied   = &Error{Kind: KindPermissionDenied, Code: "permission_denied", Msg: "You do not have permissions for this action."}
	ErrInvalidFilter      = &Error{Kind: KindValidation, Code: "invalid_filter", Msg: "Invalid filter."}

	// payment engine
	ErrOrderNotPayable  = &Error{Kind: KindConflict, Code: "order_not_payable", Msg: "Only pending orders can be paid."}
	ErrPaymentProvider  = &Error{Kind: KindProvider, Code: "payment_provider_error", Msg: "Payment provider is unavailable. Payment not started."}
	ErrInvalidSignature = &Error{Kind: KindProvider, Code: "invalid_signature", Msg: "Invalid webhook signature."}
	ErrMalformedPayload = &Error{Kind: KindProvider, Code: "malformed_payload", Msg: "Malformed webhook payload."}

	// catalog, cart and social
	ErrMovieNotFound    = &Error{Kind: KindNotFound, Code: "movie_not_found", Msg: "Movie not found."}
	ErrCartItemExists   = &Error{Kind: KindConflict, Code: "cart_item_exists", Msg: "This movie is already in your cart."}
	ErrCartItemNotFound = &Error{Kind: KindNotFound, Code: "cart_item_not_found", Msg: "This movie is not in your cart."}
	ErrMovieOwned       = &Error{Kind: KindConflict, Code: "movie_already_purchased", Msg: "You already own this movie."}
	ErrInvalidRating    = &Error{Kind: KindValidation, Code: "invalid_rating", Msg: "Rating must be between 1 and 10."}
	ErrInvalidReaction  = &Error{Kind: KindValidation, Code: "invalid_reaction", Msg: "Reaction must be like or dislike."}
	ErrAlreadyReacted   = &Error{Kind: KindConflict, Code: "already_reacted", Msg: "You have already left this reaction."}
	ErrReactionNotFound = &Error{Kind: KindNotFound, Code: "reaction_not_found", Msg: "You have not reacted to this movie."}
	ErrAlreadyFavorite  = &Error{Kind: KindConflict, Code: "already_favorite", Msg: "This movie is already in your favorites."}
	ErrFavoriteNotFound = &Error{Kind: KindNotFound, Code: "favorite_not_found", Msg: "This movie is not in your favorites."}
)

// NoNewMovies reports that every candidate movie already waits in a pending
// order.  pending is the number of distinct movies awaiting payment.
func NoNewMovies(pending int) *Error {
	cp := *ErrNoNewMovies
	cp.Msg = fmt.Sprintf("You don't have new movies in your cart yet. In pending status you have %d movies.", pending)
	return &cp
}
