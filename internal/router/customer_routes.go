package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-storefront/internal/handler"
	"github.com/iliyamo/movie-storefront/internal/middleware"
	"github.com/iliyamo/movie-storefront/internal/model"
)

// CustomerHandlers bundles the handlers served to signed-in users.
type CustomerHandlers struct {
	Catalog  *handler.CatalogHandler
	Cart     *handler.CartHandler
	Orders   *handler.OrderHandler
	Payments *handler.PaymentHandler
	Social   *handler.SocialHandler
}

// RegisterCustomer registers user-scoped endpoints under /v1.  Every route
// requires a valid JWT; any account group may shop.
func RegisterCustomer(e *echo.Echo, h CustomerHandlers, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.GroupUser, model.GroupModerator, model.GroupAdmin),
	)

	g.GET("/cart", h.Cart.Get)
	g.DELETE("/cart", h.Cart.Clear)
	g.POST("/cart/items/:movieId", h.Cart.AddItem)
	g.DELETE("/cart/items/:movieId", h.Cart.RemoveItem)

	g.POST("/orders/create", h.Orders.Create)
	g.GET("/orders/my", h.Orders.ListMine)
	g.GET("/orders/:id", h.Orders.Get)

	g.POST("/payments/:orderId/create", h.Payments.Create)

	g.POST("/movies/:id/rating", h.Social.Rate)
	g.POST("/movies/:id/reaction", h.Social.React)
	g.DELETE("/movies/:id/reaction", h.Social.Unreact)
	g.POST("/movies/:id/favorite", h.Social.AddFavorite)
	g.DELETE("/movies/:id/favorite", h.Social.RemoveFavorite)
	g.GET("/favorites", h.Catalog.Favorites)
	g.GET("/purchases", h.Catalog.Library)
}
