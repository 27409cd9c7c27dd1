package middleware

import (
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "github.com/sirupsen/logrus"
)

// RequestID tags each request with X-Request-Id, reusing a client value
// when present.
func RequestID() echo.MiddlewareFunc {
    return echomw.RequestIDWithConfig(echomw.RequestIDConfig{
        Generator: func() string { return uuid.NewString() },
    })
}

// RequestLog writes one structured line per request.  It must run after
// RequestID so the id is already on the response.
func RequestLog(log logrus.FieldLogger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            if err := next(c); err != nil {
                c.Error(err)
            }
            res := c.Response()
            entry := log.WithFields(logrus.Fields{
                "request_id": res.Header().Get(echo.HeaderXRequestID),
                "method":     c.Request().Method,
                "path":       c.Request().URL.Path,
                "route":      c.Path(),
                "status":     res.Status,
                "latency_ms": time.Since(start).Milliseconds(),
                "remote_ip":  c.RealIP(),
                "user_id":    currentUserID(c),
            })
            switch {
            case res.Status >= 500:
                entry.Error("request")
            case res.Status >= 400:
                entry.Warn("request")
            default:
                entry.Info("request")
            }
            return nil
        }
    }
}
