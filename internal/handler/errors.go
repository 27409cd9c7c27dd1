package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/account-service/internal/service"
)

// Response messages for the mapped failures.
const (
    msgUnauthenticated = "Could not validate credentials"
    msgBadCredentials  = "Incorrect email or password"
    msgIncorrectPass   = "Incorrect password"
    msgInactive        = "Inactive user"
    msgForbidden       = "The user doesn't have enough privileges"
    msgNotFound        = "User not found"
    msgDuplicateEmail  = "A user with this email already exists"
    msgDuplicateName   = "A user with this username already exists"
    msgInternal        = "internal error"
)

// ErrorHandler is the echo HTTPErrorHandler for the service.  It is the one
// place domain errors become status codes; causes of internal failures are
// logged and never sent to the client.
func ErrorHandler(log logrus.FieldLogger) echo.HTTPErrorHandler {
    return func(err error, c echo.Context) {
        if c.Response().Committed {
            return
        }
        status, body := errorResponse(err)
        if status == http.StatusUnauthorized {
            c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
        }
        if status >= http.StatusInternalServerError {
            log.WithError(err).WithFields(logrus.Fields{
                "method":     c.Request().Method,
                "path":       c.Request().URL.Path,
                "request_id": c.Response().Header().Get(echo.HeaderXRequestID),
            }).Error("request failed")
        }
        var werr error
        if c.Request().Method == http.MethodHead {
            werr = c.NoContent(status)
        } else {
            werr = c.JSON(status, body)
        }
        if werr != nil {
            log.WithError(werr).Warn("write error response")
        }
    }
}

func errorResponse(err error) (int, echo.Map) {
    var pv *service.PolicyViolationError
    var ve *ValidationError
    var he *echo.HTTPError
    switch {
    case errors.Is(err, service.ErrUnauthenticated):
        return http.StatusUnauthorized, echo.Map{"error": msgUnauthenticated}
    case errors.Is(err, service.ErrInvalidCredentials):
        return http.StatusUnauthorized, echo.Map{"error": msgBadCredentials}
    case errors.Is(err, service.ErrInactiveAccount):
        return http.StatusBadRequest, echo.Map{"error": msgInactive}
    case errors.Is(err, service.ErrForbidden):
        return http.StatusForbidden, echo.Map{"error": msgForbidden}
    case errors.Is(err, service.ErrNotFound):
        return http.StatusNotFound, echo.Map{"error": msgNotFound}
    case errors.Is(err, service.ErrDuplicateEmail):
        return http.StatusBadRequest, echo.Map{"error": msgDuplicateEmail}
    case errors.Is(err, service.ErrDuplicateUsername):
        return http.StatusBadRequest, echo.Map{"error": msgDuplicateName}
    case errors.Is(err, service.ErrIncorrectPassword):
        return http.StatusBadRequest, echo.Map{"error": msgIncorrectPass}
    case errors.Is(err, service.ErrBlankUsername):
        return http.StatusUnprocessableEntity, echo.Map{"error": "validation failed", "fields": map[string]string{"username": "must not be blank"}}
    case errors.As(err, &pv):
        return http.StatusBadRequest, echo.Map{"error": pv.Error(), "violations": pv.Violations}
    case errors.As(err, &ve):
        return http.StatusUnprocessableEntity, echo.Map{"error": "validation failed", "fields": ve.Fields}
    case errors.As(err, &he):
        msg := http.StatusText(he.Code)
        if s, ok := he.Message.(string); ok && s != "" {
            msg = s
        }
        return he.Code, echo.Map{"error": msg}
    default:
        return http.StatusInternalServerError, echo.Map{"error": msgInternal}
    }
}

// bindAndValidate binds the request into req and runs the struct rules.
// Binding failures are reported as 422 like rule failures.
func bindAndValidate(c echo.Context, req interface{}) error {
    if err := c.Bind(req); err != nil {
        return &ValidationError{Fields: map[string]string{"body": "invalid request body"}}
    }
    return c.Validate(req)
}
