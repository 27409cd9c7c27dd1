package middleware

import (
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/account-service/internal/metrics"
    "github.com/iliyamo/account-service/internal/service"
)

// Auth guards routes with the identity resolver.  The resolver reloads the
// account on every request, so deactivation and deletion take effect on the
// next call even while the token is still within its lifetime.
type Auth struct {
    Resolver *service.Resolver
    Metrics  *metrics.Metrics
    Log      logrus.FieldLogger
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header.  The scheme is matched case-insensitively; anything else yields "".
func BearerToken(r *http.Request) string {
    scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
    if !ok || !strings.EqualFold(scheme, "Bearer") {
        return ""
    }
    return strings.TrimSpace(token)
}

// Require resolves the bearer token, applies checks in order and stores the
// account on the context.  Failures are returned to the echo error handler.
func (a *Auth) Require(checks ...service.Check) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            u, err := a.Resolver.Resolve(c.Request().Context(), BearerToken(c.Request()), checks...)
            if err != nil {
                a.Metrics.ObserveResolution(resolutionOutcome(err))
                if errors.Is(err, service.ErrUnauthenticated) && a.Log != nil {
                    a.Log.WithError(err).WithField("path", c.Path()).Debug("token rejected")
                }
                return err
            }
            a.Metrics.ObserveResolution(metrics.OutcomeSuccess)
            SetUser(c, u)
            return next(c)
        }
    }
}

func resolutionOutcome(err error) string {
    switch {
    case errors.Is(err, service.ErrUnauthenticated):
        return metrics.OutcomeUnauthorized
    case errors.Is(err, service.ErrInactiveAccount):
        return metrics.OutcomeInactive
    case errors.Is(err, service.ErrForbidden):
        return metrics.OutcomeForbidden
    default:
        return metrics.OutcomeError
    }
}
