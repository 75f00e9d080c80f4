package middleware

// identity.go holds the context keys written by JWTAuth and the accessors
// handlers and other middleware use to read them back.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

const (
    ctxUserID = "user_id"
    ctxRole   = "role"
)

// UserID returns the authenticated caller's id.  ok is false on routes that
// are not behind JWTAuth.
func UserID(c echo.Context) (uint64, bool) {
    id, ok := c.Get(ctxUserID).(uint64)
    return id, ok && id > 0
}

// Role returns the caller's upper-cased group, or "" when anonymous.
func Role(c echo.Context) string {
    r, _ := c.Get(ctxRole).(string)
    return r
}

// subjectID converts a "sub" claim into a user id.  encoding/json decodes
// numeric claims as float64; string subjects are accepted too.
func subjectID(v interface{}) (uint64, bool) {
    switch t := v.(type) {
    case float64:
        if t <= 0 || t != float64(uint64(t)) {
            return 0, false
        }
        return uint64(t), true
    case string:
        n, err := strconv.ParseUint(t, 10, 64)
        if err != nil || n == 0 {
            return 0, false
        }
        return n, true
    }
    return 0, false
}

// currentUserID renders the caller for log fields and rate-limit keys.
func currentUserID(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
