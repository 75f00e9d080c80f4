package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-storefront/internal/repository"
)

type staticGroups map[uint64]string

func (g staticGroups) GroupOf(_ context.Context, id uint64) (string, error) {
	if id == 500 {
		return "", errors.New("db down")
	}
	grp, ok := g[id]
	if !ok {
		return "", repository.ErrNotFound
	}
	return grp, nil
}

func TestGroupCan(t *testing.T) {
	p, err := NewPermissions(staticGroups{})
	require.NoError(t, err)

	for group, want := range map[string]bool{"moderator": true, "MODERATOR": true, "admin": true, "user": false, "": false} {
		ok, err := p.GroupCan(group, ObjectOrders, ActionListAll)
		require.NoError(t, err)
		assert.Equal(t, want, ok, group)
	}
	ok, err := p.GroupCan("moderator", ObjectOrders, "delete")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRequire(t *testing.T) {
	p, err := NewPermissions(staticGroups{1: "user", 2: "moderator", 3: "admin"})
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, p.Require(ctx, 1, ObjectOrders, ActionListAll), ErrPermissionDenied)
	assert.NoError(t, p.Require(ctx, 2, ObjectOrders, ActionListAll))
	assert.NoError(t, p.Require(ctx, 3, ObjectOrders, ActionListAll))
	assert.ErrorIs(t, p.Require(ctx, 42, ObjectOrders, ActionListAll), ErrPermissionDenied)

	err = p.Require(ctx, 500, ObjectOrders, ActionListAll)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPermissionDenied)
}
