package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-storefront/internal/metrics"
	"github.com/iliyamo/movie-storefront/internal/model"
	"github.com/iliyamo/movie-storefront/internal/repository"
)

// OrderService turns carts into priced, de-duplicated orders and serves
// order reads for owners and moderators.
type OrderService struct {
	db        *sql.DB
	carts     *repository.CartRepo
	movies    *repository.MovieRepo
	orders    *repository.OrderRepo
	purchases *repository.PurchaseRepo
	perms     *Permissions
	metrics   *metrics.Metrics
	log       *zap.Logger
}

// NewOrderService wires an OrderService over db.  m may be nil.
func NewOrderService(db *sql.DB, perms *Permissions, m *metrics.Metrics, log *zap.Logger) *OrderService {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderService{
		db:        db,
		carts:     repository.NewCartRepo(db),
		movies:    repository.NewMovieRepo(db),
		orders:    repository.NewOrderRepo(db),
		purchases: repository.NewPurchaseRepo(db),
		perms:     perms,
		metrics:   m,
		log:       log.Named("orders"),
	}
}

// OrderMovie is one resolved line of a freshly created order.
type OrderMovie struct {
	ID    uint64
	Name  string
	Price decimal.Decimal
}

// CreatedOrder is the read model returned by CreateOrder.
type CreatedOrder struct {
	ID          uint64
	CreatedAt   time.Time
	Status      model.OrderStatus
	TotalAmount decimal.Decimal
	Movies      []OrderMovie
}

// CreateOrder snapshots the user's cart into a pending order.
//
// Available cart movies form the candidate set.  Movies the user already
// owns and movies already waiting in one of the user's pending orders are
// removed; if nothing remains the call fails without writing.  The remaining
// movies are re-read and priced inside the same transaction, so a concurrent
// catalog change is either fully seen or not at all.  The transaction opens
// by touching the user's cart row, which serialises concurrent order
// creation for one user.
func (s *OrderService) CreateOrder(ctx context.Context, userID uint64) (*CreatedOrder, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, s.creationFailed(userID, fmt.Errorf("begin tx: %w", err))
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	cart, err := s.carts.LockByUserTx(ctx, tx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, s.reject(userID, ErrEmptyCart)
	}
	if err != nil {
		return nil, s.creationFailed(userID, fmt.Errorf("lock cart: %w", err))
	}
	lines, err := s.carts.LinesTx(ctx, tx, cart.ID)
	if err != nil {
		return nil, s.creationFailed(userID, fmt.Errorf("load cart: %w", err))
	}
	if len(lines) == 0 {
		return nil, s.reject(userID, ErrEmptyCart)
	}

	var candidates []uint64
	for _, l := range lines {
		if l.Available {
			candidates = append(candidates, l.MovieID)
		}
	}
	if len(candidates) == 0 {
		return nil, s.reject(userID, ErrNoAvailableMovies)
	}

	owned, err := s.purchases.MovieIDsTx(ctx, tx, userID)
	if err != nil {
		return nil, s.creationFailed(userID, fmt.Errorf("load purchases: %w", err))
	}
	candidates = subtract(candidates, owned)
	if len(candidates) == 0 {
		return nil, s.reject(userID, ErrAllMoviesPurchased)
	}

	pending, err := s.orders.PendingMovieIDsTx(ctx, tx, userID)
	if err != nil {
		return nil, s.creationFailed(userID, fmt.Errorf("load pending orders: %w", err))
	}
	candidates = subtract(candidates, pending)
	if len(candidates) == 0 {
		return nil, s.reject(userID, NoNewMovies(len(pending)))
	}

	movies, err := s.movies.GetByIDsTx(ctx, tx, candidates, true)
	if err != nil {
		return nil, s.creationFailed(userID, fmt.Errorf("reload movies: %w", err))
	}
	if len(movies) == 0 {
		return nil, s.reject(userID, ErrNoAvailableMovies)
	}

	order := &model.Order{UserID: userID, Status: model.OrderPending, TotalAmount: decimal.Zero}
	if err := s.orders.CreateTx(ctx, tx, order); err != nil {
		return nil, s.creationFailed(userID, fmt.Errorf("insert order: %w", err))
	}
	items := make([]model.OrderItem, 0, len(movies))
	out := make([]OrderMovie, 0, len(movies))
	total := decimal.Zero
	for _, m := range movies {
		items = append(items, model.OrderItem{OrderID: order.ID, MovieID: m.ID, PriceAtOrder: m.Price})
		out = append(out, OrderMovie{ID: m.ID, Name: m.Name, Price: m.Price})
		total = total.Add(m.Price)
	}
	if err := s.orders.CreateItemsBulkTx(ctx, tx, items); err != nil {
		return nil, s.creationFailed(userID, fmt.Errorf("insert order items: %w", err))
	}
	if err := s.orders.UpdateTotalTx(ctx, tx, order.ID, total); err != nil {
		return nil, s.creationFailed(userID, fmt.Errorf("update total: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return nil, s.creationFailed(userID, fmt.Errorf("commit: %w", err))
	}
	committed = true

	s.metrics.OrderCreated()
	s.log.Info("order created",
		zap.Uint64("order_id", order.ID),
		zap.Uint64("user_id", userID),
		zap.Int("items", len(items)),
		zap.String("total", total.StringFixed(2)))

	return &CreatedOrder{
		ID:          order.ID,
		CreatedAt:   order.CreatedAt,
		Status:      order.Status,
		TotalAmount: total,
		Movies:      out,
	}, nil
}

func (s *OrderService) reject(userID uint64, e *Error) error {
	s.metrics.OrderRejected(e.Code)
	s.log.Debug("order rejected", zap.Uint64("user_id", userID), zap.String("reason", e.Code))
	return e
}

func (s *OrderService) creationFailed(userID uint64, cause error) error {
	s.metrics.OrderRejected(ErrOrderCreation.Code)
	s.log.Error("order creation failed", zap.Uint64("user_id", userID), zap.Error(cause))
	return wrap(ErrOrderCreation, cause)
}

// subtract returns the ids of from that are not in remove, keeping order.
func subtract(from, remove []uint64) []uint64 {
	if len(remove) == 0 {
		return from
	}
	drop := make(map[uint64]struct{}, len(remove))
	for _, id := range remove {
		drop[id] = struct{}{}
	}
	out := from[:0:0]
	for _, id := range from {
		if _, ok := drop[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// ListUserOrders returns the user's orders, newest first, without items.
func (s *OrderService) ListUserOrders(ctx context.Context, userID uint64) ([]model.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// GetOrder returns one of the user's orders with its lines.  Orders owned
// by someone else are indistinguishable from missing ones.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID uint64) (*model.OrderDetail, error) {
	o, err := s.orders.GetForUser(ctx, orderID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	return o, err
}

// ModeratorQuery holds the raw moderator listing filters as received from
// the query string.  Empty fields are ignored.
type ModeratorQuery struct {
	UserEmail string
	DateFrom  string
	DateTo    string
	Status    string
}

// ListOrdersAsModerator lists orders of every user.  Only callers whose
// group holds the orders:list_all capability may use it.
func (s *OrderService) ListOrdersAsModerator(ctx context.Context, callerID uint64, q ModeratorQuery) ([]model.OrderDetail, error) {
	if err := s.perms.Require(ctx, callerID, ObjectOrders, ActionListAll); err != nil {
		return nil, err
	}
	f, err := q.filter()
	if err != nil {
		return nil, err
	}
	return s.orders.ListForModerator(ctx, f)
}

func (q ModeratorQuery) filter() (repository.OrderFilter, error) {
	f := repository.OrderFilter{UserEmail: strings.TrimSpace(q.UserEmail)}
	if st := strings.TrimSpace(q.Status); st != "" {
		status, ok := model.ParseOrderStatus(strings.ToLower(st))
		if !ok {
			return f, invalidFilter("status_order must be one of pending, paid, cancelled")
		}
		f.Status = status
	}
	if raw := strings.TrimSpace(q.DateFrom); raw != "" {
		t, _, err := parseFilterDate(raw)
		if err != nil {
			return f, invalidFilter("order_date_from must be YYYY-MM-DD or RFC3339")
		}
		f.From = &t
	}
	if raw := strings.TrimSpace(q.DateTo); raw != "" {
		t, dateOnly, err := parseFilterDate(raw)
		if err != nil {
			return f, invalidFilter("order_date_to must be YYYY-MM-DD or RFC3339")
		}
		if dateOnly {
			// inclusive of the whole day
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.To = &t
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return f, invalidFilter("order_date_from is after order_date_to")
	}
	return f, nil
}

func parseFilterDate(raw string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), false, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	return t, true, err
}

func invalidFilter(msg string) error {
	cp := *ErrInvalidFilter
	cp.Msg = msg
	return &cp
}
