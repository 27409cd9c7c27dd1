package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/account-service/internal/handler"
    "github.com/iliyamo/account-service/internal/middleware"
)

// RegisterAuth mounts /api/v1/auth.  Login is rate limited; test-token only
// needs a token that resolves to an existing account.
func RegisterAuth(e *echo.Echo, h *handler.AuthHandler, auth *middleware.Auth, limit echo.MiddlewareFunc) {
    g := e.Group(APIPrefix + "/auth")
    g.POST("/login", h.Login, limit)
    g.POST("/test-token", h.TestToken, auth.Authenticated())
}
