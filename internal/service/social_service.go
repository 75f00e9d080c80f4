package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/movie-storefront/internal/model"
	"github.com/iliyamo/movie-storefront/internal/repository"
)

// SocialService records ratings, reactions and favorites.
type SocialService struct {
	movies *repository.MovieRepo
	social *repository.SocialRepo
}

// NewSocialService wires a SocialService over db.
func NewSocialService(db *sql.DB) *SocialService {
	return &SocialService{movies: repository.NewMovieRepo(db), social: repository.NewSocialRepo(db)}
}

func (s *SocialService) requireMovie(ctx context.Context, movieID uint64) error {
	if _, err := s.movies.GetByID(ctx, movieID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMovieNotFound
		}
		return fmt.Errorf("load movie: %w", err)
	}
	return nil
}

// Rate stores the user's 1..10 score, replacing any earlier one.
func (s *SocialService) Rate(ctx context.Context, userID, movieID uint64, score int) error {
	if score < 1 || score > 10 {
		return ErrInvalidRating
	}
	if err := s.requireMovie(ctx, movieID); err != nil {
		return err
	}
	return s.social.UpsertRating(ctx, userID, movieID, score)
}

// React likes or dislikes a movie.  Repeating the current reaction is a
// conflict; the opposite reaction replaces it.
func (s *SocialService) React(ctx context.Context, userID, movieID uint64, raw string) error {
	kind := model.ReactionKind(strings.ToLower(strings.TrimSpace(raw)))
	if !kind.Valid() {
		return ErrInvalidReaction
	}
	if err := s.requireMovie(ctx, movieID); err != nil {
		return err
	}
	current, err := s.social.Reaction(ctx, userID, movieID)
	switch {
	case err == nil && current == kind:
		return ErrAlreadyReacted
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("load reaction: %w", err)
	}
	if err := s.social.SetReaction(ctx, userID, movieID, kind); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ErrAlreadyReacted
		}
		return err
	}
	return nil
}

// Unreact removes the user's reaction.
func (s *SocialService) Unreact(ctx context.Context, userID, movieID uint64) error {
	err := s.social.DeleteReaction(ctx, userID, movieID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrReactionNotFound
	}
	return err
}

// AddFavorite bookmarks a movie.
func (s *SocialService) AddFavorite(ctx context.Context, userID, movieID uint64) error {
	if err := s.requireMovie(ctx, movieID); err != nil {
		return err
	}
	err := s.social.AddFavorite(ctx, userID, movieID)
	if errors.Is(err, repository.ErrConflict) {
		return ErrAlreadyFavorite
	}
	return err
}

// RemoveFavorite drops a bookmark.
func (s *SocialService) RemoveFavorite(ctx context.Context, userID, movieID uint64) error {
	err := s.social.RemoveFavorite(ctx, userID, movieID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrFavoriteNotFound
	}
	return err
}
