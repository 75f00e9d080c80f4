package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-storefront/internal/database/dbtest"
)

func TestRate(t *testing.T) {
	db := dbtest.New(t)
	svc := NewSocialService(db)
	ctx := context.Background()
	user := seedBuyer(t, db)
	m := dbtest.SeedMovie(t, db, "Heat", "9.99", true)

	for _, bad := range []int{0, 11, -3} {
		assert.ErrorIs(t, svc.Rate(ctx, user, m, bad), ErrInvalidRating, "score %d", bad)
	}
	assert.ErrorIs(t, svc.Rate(ctx, user, m+1, 5), ErrMovieNotFound)

	require.NoError(t, svc.Rate(ctx, user, m, 1))
	require.NoError(t, svc.Rate(ctx, user, m, 10))
	assert.Equal(t, 1, dbtest.Count(t, db, "ratings", "user_id = ? AND movie_id = ? AND score = 10", user, m))
}

func TestReact(t *testing.T) {
	db := dbtest.New(t)
	svc := NewSocialService(db)
	ctx := context.Background()
	user := seedBuyer(t, db)
	m := dbtest.SeedMovie(t, db, "Heat", "9.99", true)

	assert.ErrorIs(t, svc.React(ctx, user, m, "love"), ErrInvalidReaction)
	assert.ErrorIs(t, svc.Unreact(ctx, user, m), ErrReactionNotFound)

	require.NoError(t, svc.React(ctx, user, m, "Like"))
	assert.ErrorIs(t, svc.React(ctx, user, m, "like"), ErrAlreadyReacted)
	require.NoError(t, svc.React(ctx, user, m, "dislike"))
	assert.Equal(t, 1, dbtest.Count(t, db, "reactions", "kind = 'dislike'"))

	require.NoError(t, svc.Unreact(ctx, user, m))
	assert.Zero(t, dbtest.Count(t, db, "reactions", ""))
}

func TestFavorites(t *testing.T) {
	db := dbtest.New(t)
	svc := NewSocialService(db)
	catalog := NewCatalogService(db)
	ctx := context.Background()
	user := seedBuyer(t, db)
	m := dbtest.SeedMovie(t, db, "Heat", "9.99", true)

	assert.ErrorIs(t, svc.AddFavorite(ctx, user, m+1), ErrMovieNotFound)
	require.NoError(t, svc.AddFavorite(ctx, user, m))
	assert.ErrorIs(t, svc.AddFavorite(ctx, user, m), ErrAlreadyFavorite)

	favs, err := catalog.Favorites(ctx, user)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, m, favs[0].ID)

	require.NoError(t, svc.RemoveFavorite(ctx, user, m))
	assert.ErrorIs(t, svc.RemoveFavorite(ctx, user, m), ErrFavoriteNotFound)
}
