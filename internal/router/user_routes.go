package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/account-service/internal/handler"
    "github.com/iliyamo/account-service/internal/middleware"
)

// RegisterUsers mounts /api/v1/users.  Signup is public and rate limited,
// self-service routes need an active account and administration needs an
// active superuser.
func RegisterUsers(e *echo.Echo, h *handler.UserHandler, auth *middleware.Auth, limit echo.MiddlewareFunc) {
    g := e.Group(APIPrefix + "/users")

    g.POST("/signup", h.Signup, limit)

    // ---- Self service ----
    g.GET("/me", h.Me, auth.Active())
    g.PUT("/me", h.UpdateMe, auth.Active())
    g.POST("/me/password", h.ChangePassword, auth.Active())
    g.GET("/:id", h.Get, auth.Active())

    // ---- Administration ----
    g.GET("", h.List, auth.Superuser())
    g.POST("", h.Create, auth.Superuser())
    g.PATCH("/:id/active", h.SetActive, auth.Superuser())
    g.DELETE("/:id", h.Delete, auth.Superuser())
}
