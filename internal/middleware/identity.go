package middleware

// identity.go stores and reads the resolved account on the echo context.
// Handlers read it through CurrentUser; the rate limiter and request log
// only need the id string.

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/account-service/internal/model"
)

const (
    userKey   = "account"
    userIDKey = "user_id"
)

// SetUser records the resolved account for downstream handlers.
func SetUser(c echo.Context, u model.User) {
    c.Set(userKey, u)
    c.Set(userIDKey, strconv.FormatUint(u.ID, 10))
}

// CurrentUser returns the account resolved by Auth, if any.
func CurrentUser(c echo.Context) (model.User, bool) {
    u, ok := c.Get(userKey).(model.User)
    return u, ok
}

// currentUserID returns the resolved account id, or "anon".
func currentUserID(c echo.Context) string {
    if s, ok := c.Get(userIDKey).(string); ok && s != "" {
        return s
    }
    return "anon"
}
