package router // package router registers the HTTP routes of the storefront

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/movie-storefront/internal/handler"
	"github.com/iliyamo/movie-storefront/internal/middleware"
)

// RegisterRoutes registers the operational endpoints: liveness, readiness
// and the prometheus scrape endpoint for gatherer.
func RegisterRoutes(e *echo.Echo, db *sql.DB, gatherer prometheus.Gatherer) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
}

// RegisterAuth registers login and token rotation under /v1/auth and the
// authenticated logout and /v1/me endpoints.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, middleware.JWTAuth(jwtSecret))

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterPublic registers the catalog browse endpoints and the checkout
// landing pages.  None of them need a token; catalog reads go through
// cache, which may be a pass-through.
func RegisterPublic(e *echo.Echo, catalog *handler.CatalogHandler, payments *handler.PaymentHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/movies", catalog.List, cache)
	e.GET("/v1/movies/:id", catalog.Get, cache)

	// the provider redirects the buyer's browser here, so no bearer token
	e.GET("/v1/payments/success/:orderId", payments.Success)
	e.GET("/v1/payments/cancel/:orderId", payments.Cancel)
}

// RegisterWebhooks registers the payment provider callback.  It is
// authenticated by the request signature, not by a token.
func RegisterWebhooks(e *echo.Echo, payments *handler.PaymentHandler) {
	e.POST("/v1/webhooks/", payments.Webhook)
	e.POST("/v1/webhooks", payments.Webhook)
}
