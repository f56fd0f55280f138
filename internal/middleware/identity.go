package middleware

// identity.go defines helpers shared across middleware files. The rate
// limiter keys some strategies by user; this extracts a printable user id
// from whatever JWTAuth stored in the context, falling back to "anon" for
// unauthenticated traffic.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// currentUserID returns the authenticated user's id as a string, or "anon"
// when the request carries no usable identity. JWT numeric claims decode as
// float64, so that case is handled alongside the integer types handlers may
// have stored.
func currentUserID(c echo.Context) string {
    v := c.Get("user_id")
    switch t := v.(type) {
    case string:
        if t != "" {
            return t
        }
    case float64:
        return strconv.FormatUint(uint64(t), 10)
    case uint64:
        return strconv.FormatUint(t, 10)
    case int64:
        return strconv.FormatInt(t, 10)
    case int:
        return strconv.Itoa(t)
    }
    return "anon"
}
