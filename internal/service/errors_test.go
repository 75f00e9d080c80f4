package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesByCode(t *testing.T) {
	err := NoNewMovies(3)
	assert.ErrorIs(t, err, ErrNoNewMovies)
	assert.NotErrorIs(t, err, ErrEmptyCart)
	assert.Contains(t, err.Error(), "you have 3 movies")

	wrapped := fmt.Errorf("handler: %w", wrap(ErrOrderCreation, errors.New("disk full")))
	assert.ErrorIs(t, wrapped, ErrOrderCreation)
	assert.Equal(t, KindInternal, KindOf(wrapped))
	assert.Equal(t, "handler: Failed to create order.: disk full", wrapped.Error())

	// wrap never mutates the shared sentinel
	assert.Nil(t, ErrOrderCreation.Err)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(ErrOrderNotFound))
	assert.Equal(t, KindPermissionDenied, KindOf(ErrPermissionDenied))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, "provider", KindProvider.String())
	assert.Equal(t, "internal", Kind(99).String())
}

func TestNilRedisDeduperSeesNothing(t *testing.T) {
	d := NewRedisDeduper(nil, "", 0)
	assert.Nil(t, d)
	assert.NoError(t, d.Mark(context.Background(), "evt"))
	seen, err := d.Seen(context.Background(), "evt")
	assert.NoError(t, err)
	assert.False(t, seen)
}
