package handler

import (
    "context"
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/account-service/internal/metrics"
    "github.com/iliyamo/account-service/internal/middleware"
    "github.com/iliyamo/account-service/internal/model"
    "github.com/iliyamo/account-service/internal/service"
)

// requestTimeout bounds the store work of a single request.
const requestTimeout = 5 * time.Second

// AuthHandler serves login and token checks.
type AuthHandler struct {
    Accounts *service.AccountService
    Metrics  *metrics.Metrics
}

func NewAuthHandler(accounts *service.AccountService, m *metrics.Metrics) *AuthHandler {
    return &AuthHandler{Accounts: accounts, Metrics: m}
}

// loginReq is the OAuth2 password form: username carries the email.
type loginReq struct {
    Username string `form:"username" validate:"required"`
    Password string `form:"password" validate:"required"`
}

type tokenResp struct {
    AccessToken string    `json:"access_token"`
    TokenType   string    `json:"token_type"`
    ExpiresAt   time.Time `json:"expires_at"`
}

// Login exchanges email and password for a bearer token.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    res, err := h.Accounts.Login(ctx, req.Username, req.Password)
    h.Metrics.ObserveLogin(loginOutcome(err))
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, tokenResp{
        AccessToken: res.AccessToken,
        TokenType:   res.TokenType,
        ExpiresAt:   res.ExpiresAt,
    })
}

func loginOutcome(err error) string {
    switch {
    case err == nil:
        return metrics.OutcomeSuccess
    case errors.Is(err, service.ErrInvalidCredentials):
        return metrics.OutcomeInvalid
    case errors.Is(err, service.ErrInactiveAccount):
        return metrics.OutcomeInactive
    default:
        return metrics.OutcomeError
    }
}

// TestToken echoes the account the bearer token resolves to.
func (h *AuthHandler) TestToken(c echo.Context) error {
    u, err := currentUser(c)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, u.Public())
}

// currentUser reads the account stored by the auth middleware.  A route
// wired without it fails closed.
func currentUser(c echo.Context) (model.User, error) {
    u, ok := middleware.CurrentUser(c)
    if !ok {
        return model.User{}, service.ErrUnauthenticated
    }
    return u, nil
}
