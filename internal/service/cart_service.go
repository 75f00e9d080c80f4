package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/movie-storefront/internal/model"
	"github.com/iliyamo/movie-storefront/internal/repository"
)

// CartService manages the per-user staging cart.
type CartService struct {
	carts     *repository.CartRepo
	movies    *repository.MovieRepo
	purchases *repository.PurchaseRepo
	log       *zap.Logger
}

// NewCartService wires a CartService over db.
func NewCartService(db *sql.DB, log *zap.Logger) *CartService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CartService{
		carts:     repository.NewCartRepo(db),
		movies:    repository.NewMovieRepo(db),
		purchases: repository.NewPurchaseRepo(db),
		log:       log.Named("cart"),
	}
}

// CartView is the cart as shown to its owner.  CartID is zero when the
// user has never added anything.
type CartView struct {
	CartID uint64
	Lines  []model.CartLine
}

// Add puts a movie into the user's cart, creating the cart on first use.
// Movies the user already owns are refused.
func (s *CartService) Add(ctx context.Context, userID, movieID uint64) (*model.CartItem, error) {
	if _, err := s.movies.GetByID(ctx, movieID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMovieNotFound
		}
		return nil, fmt.Errorf("load movie: %w", err)
	}
	owned, err := s.purchases.Owns(ctx, userID, movieID)
	if err != nil {
		return nil, fmt.Errorf("check purchases: %w", err)
	}
	if owned {
		return nil, ErrMovieOwned
	}
	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	item, err := s.carts.AddItem(ctx, cart.ID, movieID)
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrCartItemExists
	}
	if err != nil {
		return nil, fmt.Errorf("add cart item: %w", err)
	}
	s.log.Debug("cart item added", zap.Uint64("user_id", userID), zap.Uint64("movie_id", movieID))
	return item, nil
}

// Remove takes a movie out of the user's cart.
func (s *CartService) Remove(ctx context.Context, userID, movieID uint64) error {
	cart, err := s.carts.GetByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrCartItemNotFound
	}
	if err != nil {
		return fmt.Errorf("load cart: %w", err)
	}
	if err := s.carts.RemoveItem(ctx, cart.ID, movieID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCartItemNotFound
		}
		return fmt.Errorf("remove cart item: %w", err)
	}
	return nil
}

// Get returns the cart with genres resolved for every line.
func (s *CartService) Get(ctx context.Context, userID uint64) (*CartView, error) {
	cart, err := s.carts.GetByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return &CartView{Lines: []model.CartLine{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	lines, err := s.carts.Lines(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("load cart lines: %w", err)
	}
	ids := make([]uint64, len(lines))
	for i, l := range lines {
		ids[i] = l.MovieID
	}
	genres, err := s.movies.GenresFor(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load genres: %w", err)
	}
	for i := range lines {
		lines[i].Genres = genres[lines[i].MovieID]
		if lines[i].Genres == nil {
			lines[i].Genres = []string{}
		}
	}
	return &CartView{CartID: cart.ID, Lines: lines}, nil
}

// Clear empties the cart.  Clearing a missing cart is a no-op.
func (s *CartService) Clear(ctx context.Context, userID uint64) error {
	cart, err := s.carts.GetByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load cart: %w", err)
	}
	if _, err := s.carts.Clear(ctx, cart.ID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
