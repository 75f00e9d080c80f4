package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-storefront/internal/database/dbtest"
	"github.com/iliyamo/movie-storefront/internal/model"
)

func TestCreateOrderRejectsEmptyCarts(t *testing.T) {
	db := dbtest.New(t)
	svc := newOrderService(t, db)
	ctx := context.Background()
	user := seedBuyer(t, db)

	_, err := svc.CreateOrder(ctx, user)
	assert.ErrorIs(t, err, ErrEmptyCart, "no cart at all")

	dbtest.AddToCart(t, db, user)
	_, err = svc.CreateOrder(ctx, user)
	assert.ErrorIs(t, err, ErrEmptyCart, "cart without items")
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Zero(t, dbtest.Count(t, db, "orders", ""))
}

func TestCreateOrderRejectsUnavailableOnly(t *testing.T) {
	db := dbtest.New(t)
	svc := newOrderService(t, db)
	user := seedBuyer(t, db)
	m := dbtest.SeedMovie(t, db, "Withdrawn", "4.00", false)
	dbtest.AddToCart(t, db, user, m)

	_, err := svc.CreateOrder(context.Background(), user)
	assert.ErrorIs(t, err, ErrNoAvailableMovies)
	assert.Zero(t, dbtest.Count(t, db, "orders", ""))
}

func TestCreateOrderRejectsOwnedOnly(t *testing.T) {
	db := dbtest.New(t)
	svc := newOrderService(t, db)
	user := seedBuyer(t, db)
	m := dbtest.SeedMovie(t, db, "Heat", "9.99", true)
	dbtest.AddToCart(t, db, user, m)
	dbtest.MarkPurchased(t, db, user, m)

	_, err := svc.CreateOrder(context.Background(), user)
	assert.ErrorIs(t, err, ErrAllMoviesPurchased)
	assert.Equal(t, "All movies from your cart already are bought.", err.Error())
	assert.Zero(t, dbtest.Count(t, db, "orders", ""))
}

func TestCreateOrderSnapshotsPrices(t *testing.T) {
	db := dbtest.New(t)
	svc := newOrderService(t, db)
	ctx := context.Background()
	user := seedBuyer(t, db)
	a := dbtest.SeedMovie(t, db, "Alien", "10.00", true)
	b := dbtest.SeedMovie(t, db, "Brazil", "5.50", true)
	gone := dbtest.SeedMovie(t, db, "Gone", "3.00", false)
	dbtest.AddToCart(t, db, user, a, b, gone)

	o, err := svc.CreateOrder(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, o.Status)
	assert.True(t, o.TotalAmount.Equal(dec("15.50")), "total %s", o.TotalAmount)
	ids := make([]uint64, 0, len(o.Movies))
	for _, m := range o.Movies {
		ids = append(ids, m.ID)
	}
	assert.ElementsMatch(t, []uint64{a, b}, ids)

	// later catalog edits never reach an existing order
	dbtest.SetMoviePrice(t, db, a, "99.00")
	d, err := svc.GetOrder(ctx, user, o.ID)
	require.NoError(t, err)
	assert.True(t, d.TotalAmount.Equal(dec("15.50")))
	require.Len(t, d.Lines, 2)
	for _, l := range d.Lines {
		if l.MovieID == a {
			assert.True(t, l.PriceAtOrder.Equal(dec("10.00")))
		}
	}

	// the cart is left as it was
	assert.Equal(t, 3, dbtest.Count(t, db, "cart_items", ""))
}

func TestCreateOrderSkipsOwnedAndPendingMovies(t *testing.T) {
	db := dbtest.New(t)
	svc := newOrderService(t, db)
	ctx := context.Background()
	user := seedBuyer(t, db)
	owned := dbtest.SeedMovie(t, db, "Owned", "7.00", true)
	a := dbtest.SeedMovie(t, db, "A", "2.00", true)
	b := dbtest.SeedMovie(t, db, "B", "3.00", true)
	dbtest.MarkPurchased(t, db, user, owned)
	dbtest.AddToCart(t, db, user, owned, a, b)

	first, err := svc.CreateOrder(ctx, user)
	require.NoError(t, err)
	require.Len(t, first.Movies, 2)
	assert.True(t, first.TotalAmount.Equal(dec("5.00")))

	_, err = svc.CreateOrder(ctx, user)
	require.ErrorIs(t, err, ErrNoNewMovies)
	assert.Equal(t, "You don't have new movies in your cart yet. In pending status you have 2 movies.", err.Error())
	assert.Equal(t, KindConflict, KindOf(err))

	c := dbtest.SeedMovie(t, db, "C", "4.00", true)
	dbtest.AddToCart(t, db, user, c)
	second, err := svc.CreateOrder(ctx, user)
	require.NoError(t, err)
	require.Len(t, second.Movies, 1)
	assert.Equal(t, c, second.Movies[0].ID)
	assert.Equal(t, 2, dbtest.Count(t, db, "orders", "user_id = ?", user))
}

func TestCreateOrderSerializesPerUser(t *testing.T) {
	db := dbtest.New(t)
	svc := newOrderService(t, db)
	user := seedBuyer(t, db)
	m := dbtest.SeedMovie(t, db, "Heat", "9.99", true)
	dbtest.AddToCart(t, db, user, m)

	const callers = 8
	var (
		wg   sync.WaitGroup
		errs = make([]error, callers)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateOrder(context.Background(), user)
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, ErrNoNewMovies)
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, dbtest.Count(t, db, "orders", "user_id = ?", user))
	assert.Equal(t, 1, dbtest.Count(t, db, "order_items", ""))
}

func TestCreateOrderWrapsPersistenceFailures(t *testing.T) {
	db := dbtest.New(t)
	svc := newOrderService(t, db)
	user := seedBuyer(t, db)
	m := dbtest.SeedMovie(t, db, "Heat", "9.99", true)
	dbtest.AddToCart(t, db, user, m)
	_, err := db.Exec(`DROP TABLE order_items`)
	require.NoError(t, err)

	_, err = svc.CreateOrder(context.Background(), user)
	require.ErrorIs(t, err, ErrOrderCreation)
	assert.Equal(t, KindInternal, KindOf(err))
	var se *Error
	require.True(t, errors.As(err, &se))
	assert.NotNil(t, se.Err)
	assert.Zero(t, dbtest.Count(t, db, "orders", ""), "nothing written")
}

func TestGetOrderHidesForeignOrders(t *testing.T) {
	db := dbtest.New(t)
	svc := newOrderService(t, db)
	ctx := context.Background()
	owner := seedBuyer(t, db)
	other := dbtest.SeedUser(t, db, "other@example.com", model.GroupUser, "")
	m := dbtest.SeedMovie(t, db, "Heat", "9.99", true)
	dbtest.AddToCart(t, db, owner, m)
	o, err := svc.CreateOrder(ctx, owner)
	require.NoError(t, err)

	_, err = svc.GetOrder(ctx, other, o.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	_, err = svc.GetOrder(ctx, owner, o.ID+100)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	mine, err := svc.ListUserOrders(ctx, owner)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, o.ID, mine[0].ID)
	theirs, err := svc.ListUserOrders(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, theirs)
}

func TestListOrdersAsModerator(t *testing.T) {
	db := dbtest.New(t)
	svc := newOrderService(t, db)
	ctx := context.Background()
	buyer := seedBuyer(t, db)
	mod := dbtest.SeedUser(t, db, "mod@example.com", model.GroupModerator, "")
	admin := dbtest.SeedUser(t, db, "root@example.com", model.GroupAdmin, "")
	m := dbtest.SeedMovie(t, db, "Heat", "9.99", true)
	dbtest.AddToCart(t, db, buyer, m)
	_, err := svc.CreateOrder(ctx, buyer)
	require.NoError(t, err)

	_, err = svc.ListOrdersAsModerator(ctx, buyer, ModeratorQuery{})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = svc.ListOrdersAsModerator(ctx, 9999, ModeratorQuery{})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	all, err := svc.ListOrdersAsModerator(ctx, mod, ModeratorQuery{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "buyer@example.com", all[0].UserEmail)
	require.Len(t, all[0].Lines, 1)

	viaAdmin, err := svc.ListOrdersAsModerator(ctx, admin, ModeratorQuery{Status: "PENDING", UserEmail: "buyer@example.com"})
	require.NoError(t, err)
	assert.Len(t, viaAdmin, 1)

	paid, err := svc.ListOrdersAsModerator(ctx, mod, ModeratorQuery{Status: "paid"})
	require.NoError(t, err)
	assert.Empty(t, paid)

	today := time.Now().UTC().Format("2006-01-02")
	sameDay, err := svc.ListOrdersAsModerator(ctx, mod, ModeratorQuery{DateFrom: today, DateTo: today})
	require.NoError(t, err)
	assert.Len(t, sameDay, 1, "a date-only upper bound covers the whole day")
}

func TestListOrdersAsModeratorValidatesFilters(t *testing.T) {
	db := dbtest.New(t)
	svc := newOrderService(t, db)
	mod := dbtest.SeedUser(t, db, "mod@example.com", model.GroupModerator, "")

	cases := map[string]ModeratorQuery{
		"unknown status": {Status: "shipped"},
		"bad from":       {DateFrom: "yesterday"},
		"bad to":         {DateTo: "31/12/2024"},
		"inverted range": {DateFrom: "2024-05-02", DateTo: "2024-05-01"},
	}
	for name, q := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ListOrdersAsModerator(context.Background(), mod, q)
			assert.ErrorIs(t, err, ErrInvalidFilter)
			assert.Equal(t, KindValidation, KindOf(err))
		})
	}
}

func TestSubtractKeepsOrder(t *testing.T) {
	assert.Equal(t, []uint64{1, 3}, subtract([]uint64{1, 2, 3}, []uint64{2, 9}))
	assert.Equal(t, []uint64{1}, subtract([]uint64{1}, nil))
	assert.Empty(t, subtract([]uint64{1, 2}, []uint64{1, 2}))
}
