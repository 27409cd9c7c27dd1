package middleware

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/account-service/internal/service"
)

// Authenticated admits any caller whose token resolves to an existing account.
func (a *Auth) Authenticated() echo.MiddlewareFunc {
    return a.Require(service.Authenticated...)
}

// Active additionally refuses deactivated accounts.
func (a *Auth) Active() echo.MiddlewareFunc {
    return a.Require(service.Active...)
}

// Superuser admits active superusers only.  An inactive superuser is
// reported as inactive, not forbidden.
func (a *Auth) Superuser() echo.MiddlewareFunc {
    return a.Require(service.Superuser...)
}
