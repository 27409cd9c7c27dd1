package handler

import (
    "context"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/account-service/internal/model"
    "github.com/iliyamo/account-service/internal/service"
)

// UserHandler serves self-service and administrative account routes.
type UserHandler struct {
    Accounts *service.AccountService
}

func NewUserHandler(accounts *service.AccountService) *UserHandler {
    return &UserHandler{Accounts: accounts}
}

// ----- DTOs -----

type signupReq struct {
    Email    string  `json:"email" validate:"required,email,max=255"`
    Username string  `json:"username" validate:"required,min=1,max=100"`
    FullName *string `json:"full_name" validate:"omitempty,max=255"`
    Password string  `json:"password" validate:"required"`
}

type adminCreateReq struct {
    signupReq
    IsActive    *bool `json:"is_active"`
    IsSuperuser *bool `json:"is_superuser"`
}

type updateReq struct {
    Email    *string `json:"email" validate:"omitempty,email,max=255"`
    Username *string `json:"username" validate:"omitempty,min=1,max=100"`
    FullName *string `json:"full_name" validate:"omitempty,max=255"`
    Password *string `json:"password"`
}

type passwordChangeReq struct {
    CurrentPassword string `json:"current_password" validate:"required"`
    NewPassword     string `json:"new_password" validate:"required"`
}

type setActiveReq struct {
    IsActive *bool `json:"is_active" validate:"required"`
}

type listQuery struct {
    Skip  int `query:"skip" validate:"min=0"`
    Limit int `query:"limit" validate:"min=0"`
}

func (r signupReq) toCreate() model.UserCreate {
    return model.UserCreate{
        Email:    r.Email,
        Username: r.Username,
        FullName: r.FullName,
        Password: r.Password,
    }
}

func parseID(c echo.Context) (uint64, error) {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return 0, &ValidationError{Fields: map[string]string{"id": "must be a positive integer"}}
    }
    return id, nil
}

// Signup creates an active, non-superuser account.  Flag overrides in the
// body are ignored here; only administrators may set them.
func (h *UserHandler) Signup(c echo.Context) error {
    var req signupReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    u, err := h.Accounts.Signup(ctx, req.toCreate())
    if err != nil {
        return err
    }
    return c.JSON(http.StatusCreated, u.Public())
}

// Create is the administrative signup: it may set is_active and is_superuser.
func (h *UserHandler) Create(c echo.Context) error {
    var req adminCreateReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    in := req.toCreate()
    in.IsActive = req.IsActive
    in.IsSuperuser = req.IsSuperuser
    u, err := h.Accounts.Signup(ctx, in)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusCreated, u.Public())
}

func (h *UserHandler) Me(c echo.Context) error {
    u, err := currentUser(c)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, u.Public())
}

// UpdateMe applies a partial update to the caller's own account.
func (h *UserHandler) UpdateMe(c echo.Context) error {
    u, err := currentUser(c)
    if err != nil {
        return err
    }
    var req updateReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    updated, err := h.Accounts.Update(ctx, u, model.UserUpdate{
        Email:    req.Email,
        Username: req.Username,
        FullName: req.FullName,
        Password: req.Password,
    })
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, updated.Public())
}

func (h *UserHandler) ChangePassword(c echo.Context) error {
    u, err := currentUser(c)
    if err != nil {
        return err
    }
    var req passwordChangeReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    if _, err := h.Accounts.ChangePassword(ctx, u, req.CurrentPassword, req.NewPassword); err != nil {
        return err
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Password updated successfully"})
}

// Get returns any account by id to an active caller.
func (h *UserHandler) Get(c echo.Context) error {
    id, err := parseID(c)
    if err != nil {
        return err
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    u, err := h.Accounts.Get(ctx, id)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, u.Public())
}

// List pages through accounts: ?skip=0&limit=100.
func (h *UserHandler) List(c echo.Context) error {
    var q listQuery
    if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
        return &ValidationError{Fields: map[string]string{"query": "skip and limit must be integers"}}
    }
    if err := c.Validate(&q); err != nil {
        return err
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    users, err := h.Accounts.List(ctx, q.Skip, q.Limit)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, model.PublicUsers(users))
}

// SetActive activates or deactivates an account.
func (h *UserHandler) SetActive(c echo.Context) error {
    id, err := parseID(c)
    if err != nil {
        return err
    }
    var req setActiveReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    u, err := h.Accounts.SetActive(ctx, id, *req.IsActive)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, u.Public())
}

// Delete hard-deletes an account and returns it as it was.
func (h *UserHandler) Delete(c echo.Context) error {
    id, err := parseID(c)
    if err != nil {
        return err
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    u, err := h.Accounts.Delete(ctx, id)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, u.Public())
}
