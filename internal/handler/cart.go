package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/movie-storefront/internal/service"
)

// CartHandler manages the caller's cart.
type CartHandler struct {
    Carts *service.CartService
    Log   *zap.Logger
}

func NewCartHandler(carts *service.CartService, log *zap.Logger) *CartHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &CartHandler{Carts: carts, Log: log.Named("cart_http")}
}

type cartLineResp struct {
    MovieID   uint64    `json:"movie_id"`
    Name      string    `json:"name"`
    Price     string    `json:"price"`
    Year      int       `json:"year"`
    Available bool      `json:"available"`
    Genres    []string  `json:"genres"`
    AddedAt   time.Time `json:"added_at"`
}

// Get handles GET /v1/cart.
func (h *CartHandler) Get(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    v, err := h.Carts.Get(c.Request().Context(), userID)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    items := make([]cartLineResp, 0, len(v.Lines))
    for _, l := range v.Lines {
        items = append(items, cartLineResp{
            MovieID: l.MovieID, Name: l.Name, Price: money(l.Price), Year: l.Year,
            Available: l.Available, Genres: nonNil(l.Genres), AddedAt: l.AddedAt,
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"cart_id": v.CartID, "items": items})
}

// AddItem handles POST /v1/cart/items/:movieId.
func (h *CartHandler) AddItem(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    movieID, ok := idParam(c, "movieId")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
    }
    item, err := h.Carts.Add(c.Request().Context(), userID, movieID)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"cart_id": item.CartID, "movie_id": item.MovieID})
}

// RemoveItem handles DELETE /v1/cart/items/:movieId.
func (h *CartHandler) RemoveItem(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    movieID, ok := idParam(c, "movieId")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
    }
    if err := h.Carts.Remove(c.Request().Context(), userID, movieID); err != nil {
        return writeError(c, h.Log, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// Clear handles DELETE /v1/cart.
func (h *CartHandler) Clear(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    if err := h.Carts.Clear(c.Request().Context(), userID); err != nil {
        return writeError(c, h.Log, err)
    }
    return c.NoContent(http.StatusNoContent)
}
