package handler // handler defines the HTTP handlers of the storefront

import (
    "errors"
    "strconv"

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"

    "github.com/iliyamo/movie-storefront/internal/middleware"
)

var errNoUser = errors.New("invalid user_id in context")

// getUserID returns the authenticated caller set by middleware.JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
    if id, ok := middleware.UserID(c); ok {
        return id, nil
    }
    return 0, errNoUser
}

// idParam parses a positive numeric path parameter.
func idParam(c echo.Context, name string) (uint64, bool) {
    n, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || n == 0 {
        return 0, false
    }
    return n, true
}

// money renders an amount with exactly two decimals.
func money(d decimal.Decimal) string { return d.StringFixed(2) }
