package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/movie-storefront/internal/service"
)

// badRequestConflicts are conflicts raised while turning a cart into an
// order.  Clients have always received them as 400.
var badRequestConflicts = map[string]bool{
    service.ErrEmptyCart.Code:          true,
    service.ErrNoAvailableMovies.Code:  true,
    service.ErrAllMoviesPurchased.Code: true,
    service.ErrNoNewMovies.Code:        true,
}

func statusFor(e *service.Error) int {
    switch e.Kind {
    case service.KindValidation:
        return http.StatusBadRequest
    case service.KindNotFound:
        return http.StatusNotFound
    case service.KindConflict:
        if badRequestConflicts[e.Code] {
            return http.StatusBadRequest
        }
        return http.StatusConflict
    case service.KindPermissionDenied:
        return http.StatusForbidden
    case service.KindProvider:
        if e.Code == service.ErrInvalidSignature.Code || e.Code == service.ErrMalformedPayload.Code {
            return http.StatusBadRequest
        }
        return http.StatusBadGateway
    default:
        return http.StatusInternalServerError
    }
}

// writeError renders err as {"error": code, "message": text}.  Errors that
// are not *service.Error become an opaque 500.  Order creation failures
// keep their cause in the message.
func writeError(c echo.Context, log *zap.Logger, err error) error {
    var se *service.Error
    if !errors.As(err, &se) {
        log.Error("unhandled error", zap.String("route", c.Path()), zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "internal server error"})
    }
    status := statusFor(se)
    msg := se.Msg
    if se.Code == service.ErrOrderCreation.Code {
        msg = se.Error()
    }
    if status >= http.StatusInternalServerError {
        log.Error("request failed", zap.String("route", c.Path()), zap.String("code", se.Code), zap.Error(err))
    }
    return c.JSON(status, echo.Map{"error": se.Code, "message": msg})
}
