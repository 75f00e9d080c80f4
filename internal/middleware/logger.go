package middleware

import (
    "net/http"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    "go.uber.org/zap"
)

// RequestLogger logs every request once it has been served.  It also makes
// sure the request carries an X-Request-ID which is echoed back and stored
// on the context under "request_id".
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            rid := ensureRequestID(c)

            err := next(c)
            if err != nil {
                c.Error(err) // commit the response so the status below is final
            }

            status := c.Response().Status
            route := c.Path()
            if strings.TrimSpace(route) == "" {
                route = "unknown"
            }
            fields := []zap.Field{
                zap.String("request_id", rid),
                zap.String("method", c.Request().Method),
                zap.String("path", c.Request().URL.Path),
                zap.String("route", route),
                zap.Int("status", status),
                zap.Int64("duration_ms", time.Since(start).Milliseconds()),
                zap.String("remote_ip", c.RealIP()),
                zap.Int64("bytes_out", c.Response().Size),
            }
            if uid := currentUserID(c); uid != "anon" {
                fields = append(fields, zap.String("user_id", uid))
            }
            if err != nil {
                fields = append(fields, zap.Error(err))
            }

            switch {
            case route == "/metrics":
                log.Debug("http_request", fields...)
            case status >= http.StatusInternalServerError:
                log.Error("http_request", fields...)
            case status >= http.StatusBadRequest:
                log.Warn("http_request", fields...)
            default:
                log.Info("http_request", fields...)
            }
            return nil
        }
    }
}

func ensureRequestID(c echo.Context) string {
    rid := strings.TrimSpace(c.Request().Header.Get(echo.HeaderXRequestID))
    if rid == "" {
        rid = uuid.NewString()
    }
    c.Set("request_id", rid)
    c.Response().Header().Set(echo.HeaderXRequestID, rid)
    return rid
}
