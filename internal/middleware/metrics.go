package middleware

import (
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/movie-storefront/internal/metrics"
)

// Metrics records request latency by method, matched route and status.
// Unmatched paths are folded into a single "unknown" route so label
// cardinality stays bounded.
func Metrics(m *metrics.Metrics) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }
            route := c.Path()
            if route == "" {
                route = "unknown"
            }
            m.ObserveHTTP(c.Request().Method, route, c.Response().Status, time.Since(start))
            return nil
        }
    }
}
