package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-storefront/internal/database/dbtest"
)

func TestCatalogPaging(t *testing.T) {
	db := dbtest.New(t)
	svc := NewCatalogService(db)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		dbtest.SeedMovie(t, db, fmt.Sprintf("Title %d", i), "2.00", true)
	}

	p, err := svc.ListMovies(ctx, "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, defaultPageSize, p.PageSize)
	assert.Equal(t, 5, p.Total)
	assert.Len(t, p.Items, 5)

	p, err = svc.ListMovies(ctx, "", 2, 2)
	require.NoError(t, err)
	assert.Len(t, p.Items, 2)

	p, err = svc.ListMovies(ctx, "", 1, 10_000)
	require.NoError(t, err)
	assert.Equal(t, maxPageSize, p.PageSize)

	p, err = svc.ListMovies(ctx, "title 3", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Total)
}

func TestCatalogDetail(t *testing.T) {
	db := dbtest.New(t)
	svc := NewCatalogService(db)
	ctx := context.Background()
	m := dbtest.SeedMovie(t, db, "Heat", "9.99", true)
	dbtest.TagMovie(t, db, m, "director", "Michael Mann")

	d, err := svc.GetMovie(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, "Heat", d.Name)
	assert.Equal(t, "PG-13", d.Certification)
	assert.Equal(t, []string{"Michael Mann"}, d.Directors)

	_, err = svc.GetMovie(ctx, m+1)
	assert.ErrorIs(t, err, ErrMovieNotFound)
}
