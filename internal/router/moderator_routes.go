package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-storefront/internal/handler"
	"github.com/iliyamo/movie-storefront/internal/middleware"
	"github.com/iliyamo/movie-storefront/internal/model"
)

// RegisterModerator registers the staff order listing.  The role gate only
// screens tokens; the order service re-checks the caller's current group
// before returning anything.
func RegisterModerator(e *echo.Echo, h *handler.OrderHandler, jwtSecret string) {
	e.GET("/v1/orders", h.ListAll,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.GroupModerator, model.GroupAdmin),
	)
}
