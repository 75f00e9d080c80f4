package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/movie-storefront/internal/model"
    "github.com/iliyamo/movie-storefront/internal/service"
)

// OrderHandler exposes the order engine.
type OrderHandler struct {
    Orders *service.OrderService
    Log    *zap.Logger
}

func NewOrderHandler(orders *service.OrderService, log *zap.Logger) *OrderHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &OrderHandler{Orders: orders, Log: log.Named("orders_http")}
}

type orderMovieResp struct {
    ID    uint64 `json:"id"`
    Name  string `json:"name"`
    Price string `json:"price"`
}

type createdOrderResp struct {
    ID          uint64           `json:"id"`
    CreatedAt   time.Time        `json:"created_at"`
    Status      string           `json:"status"`
    TotalAmount string           `json:"total_amount"`
    Movies      []orderMovieResp `json:"movies"`
}

type orderResp struct {
    ID          uint64    `json:"id"`
    Status      string    `json:"status"`
    TotalAmount string    `json:"total_amount"`
    CreatedAt   time.Time `json:"created_at"`
    UpdatedAt   time.Time `json:"updated_at"`
}

type orderLineResp struct {
    ItemID       uint64 `json:"item_id"`
    MovieID      uint64 `json:"movie_id"`
    Name         string `json:"name"`
    PriceAtOrder string `json:"price_at_order"`
}

type orderDetailResp struct {
    orderResp
    UserID    uint64          `json:"user_id,omitempty"`
    UserEmail string          `json:"user_email,omitempty"`
    Items     []orderLineResp `json:"items"`
}

func toOrderResp(o model.Order) orderResp {
    return orderResp{
        ID:          o.ID,
        Status:      string(o.Status),
        TotalAmount: money(o.TotalAmount),
        CreatedAt:   o.CreatedAt,
        UpdatedAt:   o.UpdatedAt,
    }
}

func toOrderDetailResp(d model.OrderDetail, withOwner bool) orderDetailResp {
    out := orderDetailResp{orderResp: toOrderResp(d.Order), Items: make([]orderLineResp, 0, len(d.Lines))}
    if withOwner {
        out.UserID = d.UserID
        out.UserEmail = d.UserEmail
    }
    for _, l := range d.Lines {
        out.Items = append(out.Items, orderLineResp{
            ItemID:       l.ID,
            MovieID:      l.MovieID,
            Name:         l.MovieName,
            PriceAtOrder: money(l.PriceAtOrder),
        })
    }
    return out
}

// Create handles POST /v1/orders/create.  The caller's cart is turned into
// a pending order; the cart itself is left untouched.
func (h *OrderHandler) Create(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    o, err := h.Orders.CreateOrder(c.Request().Context(), userID)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    resp := createdOrderResp{
        ID:          o.ID,
        CreatedAt:   o.CreatedAt,
        Status:      string(o.Status),
        TotalAmount: money(o.TotalAmount),
        Movies:      make([]orderMovieResp, 0, len(o.Movies)),
    }
    for _, m := range o.Movies {
        resp.Movies = append(resp.Movies, orderMovieResp{ID: m.ID, Name: m.Name, Price: money(m.Price)})
    }
    return c.JSON(http.StatusCreated, resp)
}

// ListMine handles GET /v1/orders/my.
func (h *OrderHandler) ListMine(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    orders, err := h.Orders.ListUserOrders(c.Request().Context(), userID)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    out := make([]orderResp, 0, len(orders))
    for _, o := range orders {
        out = append(out, toOrderResp(o))
    }
    return c.JSON(http.StatusOK, out)
}

// Get handles GET /v1/orders/:id.  Orders of other users are reported as
// missing.
func (h *OrderHandler) Get(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    orderID, ok := idParam(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }
    d, err := h.Orders.GetOrder(c.Request().Context(), userID, orderID)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, toOrderDetailResp(*d, false))
}

// ListAll handles GET /v1/orders for moderators.  Query parameters
// user_email, order_date_from, order_date_to and status_order narrow the
// result; dates are RFC 3339 or YYYY-MM-DD.
func (h *OrderHandler) ListAll(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    q := service.ModeratorQuery{
        UserEmail: c.QueryParam("user_email"),
        DateFrom:  c.QueryParam("order_date_from"),
        DateTo:    c.QueryParam("order_date_to"),
        Status:    c.QueryParam("status_order"),
    }
    orders, err := h.Orders.ListOrdersAsModerator(c.Request().Context(), userID, q)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    out := make([]orderDetailResp, 0, len(orders))
    for _, o := range orders {
        out = append(out, toOrderDetailResp(o, true))
    }
    return c.JSON(http.StatusOK, out)
}
