package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/movie-storefront/internal/model"
	"github.com/iliyamo/movie-storefront/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// CatalogService serves read-only catalog browsing.
type CatalogService struct {
	movies    *repository.MovieRepo
	purchases *repository.PurchaseRepo
	social    *repository.SocialRepo
}

// NewCatalogService wires a CatalogService over db.
func NewCatalogService(db *sql.DB) *CatalogService {
	return &CatalogService{
		movies:    repository.NewMovieRepo(db),
		purchases: repository.NewPurchaseRepo(db),
		social:    repository.NewSocialRepo(db),
	}
}

// MoviePage is one page of the catalog.
type MoviePage struct {
	Items    []model.Movie
	Page     int
	PageSize int
	Total    int
}

// ListMovies pages through the catalog.  page starts at 1; out of range
// paging values are clamped.
func (s *CatalogService) ListMovies(ctx context.Context, search string, page, pageSize int) (*MoviePage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	items, total, err := s.movies.List(ctx, search, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	return &MoviePage{Items: items, Page: page, PageSize: pageSize, Total: total}, nil
}

// GetMovie returns one movie with related names and social counters.
func (s *CatalogService) GetMovie(ctx context.Context, id uint64) (*model.MovieDetail, error) {
	d, err := s.movies.Detail(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrMovieNotFound
	}
	return d, err
}

// Library lists the movies the user owns, newest purchase first.
func (s *CatalogService) Library(ctx context.Context, userID uint64) ([]model.PurchasedMovie, error) {
	return s.purchases.ListByUser(ctx, userID)
}

// Favorites lists the user's bookmarked movies.
func (s *CatalogService) Favorites(ctx context.Context, userID uint64) ([]model.Movie, error) {
	return s.social.Favorites(ctx, userID)
}
