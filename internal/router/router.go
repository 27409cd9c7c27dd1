package router

import (
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/account-service/internal/handler"
    "github.com/iliyamo/account-service/internal/metrics"
    "github.com/iliyamo/account-service/internal/middleware"
    "github.com/iliyamo/account-service/internal/service"
)

// APIPrefix is the version prefix of every account route.
const APIPrefix = "/api/v1"

// Deps is what the HTTP layer needs from the rest of the process.
type Deps struct {
    Accounts    *service.AccountService
    Resolver    *service.Resolver
    Metrics     *metrics.Metrics
    Limiter     *middleware.RateLimiter // nil disables rate limiting
    Log         logrus.FieldLogger
    CORSOrigins []string
}

// New builds the echo instance with the global middleware stack and every
// route registered.
func New(d Deps) *echo.Echo {
    if d.Log == nil {
        d.Log = logrus.StandardLogger()
    }
    if d.Metrics == nil {
        d.Metrics = metrics.New()
    }

    e := echo.New()
    e.HideBanner = true
    e.HidePort = true
    e.Validator = handler.NewRequestValidator()
    e.HTTPErrorHandler = handler.ErrorHandler(d.Log)

    e.Use(echomw.Recover())
    e.Use(middleware.RequestID())
    e.Use(middleware.RequestLog(d.Log))
    e.Use(d.Metrics.Middleware())
    e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
        AllowOrigins:     d.CORSOrigins,
        AllowCredentials: true,
        AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderXRequestID},
    }))

    auth := &middleware.Auth{Resolver: d.Resolver, Metrics: d.Metrics, Log: d.Log}
    var limit echo.MiddlewareFunc = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    if d.Limiter != nil {
        limit = d.Limiter.Middleware()
    }

    RegisterRoutes(e, d.Metrics)
    RegisterAuth(e, handler.NewAuthHandler(d.Accounts, d.Metrics), auth, limit)
    RegisterUsers(e, handler.NewUserHandler(d.Accounts), auth, limit)
    return e
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, m *metrics.Metrics) {
    e.GET("/health", handler.Health)
    e.GET("/metrics", echo.WrapHandler(m.Handler()))
}
