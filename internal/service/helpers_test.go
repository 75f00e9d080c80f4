package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-storefront/internal/database/dbtest"
	"github.com/iliyamo/movie-storefront/internal/provider"
	"github.com/iliyamo/movie-storefront/internal/queue"
	"github.com/iliyamo/movie-storefront/internal/repository"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newOrderService(t *testing.T, db *sql.DB) *OrderService {
	t.Helper()
	perms, err := NewPermissions(repository.NewUserRepo(db))
	require.NoError(t, err)
	return NewOrderService(db, perms, nil, zap.NewNop())
}

type mockProvider struct{ mock.Mock }

func (m *mockProvider) CreateCheckoutSession(ctx context.Context, req provider.CheckoutRequest) (*provider.CheckoutSession, error) {
	args := m.Called(ctx, req)
	s, _ := args.Get(0).(*provider.CheckoutSession)
	return s, args.Error(1)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishOrderPaid(ctx context.Context, ev queue.OrderPaidEvent) error {
	return m.Called(ctx, ev).Error(0)
}

// memDeduper is an in-memory EventDeduper.
type memDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemDeduper() *memDeduper { return &memDeduper{seen: map[string]bool{}} }

func (d *memDeduper) Seen(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seen[id], nil
}

func (d *memDeduper) Mark(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen[id] = true
	return nil
}

func (d *memDeduper) has(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seen[id]
}

func seedBuyer(t *testing.T, db *sql.DB) uint64 {
	t.Helper()
	return dbtest.SeedUser(t, db, "buyer@example.com", "user", "")
}
