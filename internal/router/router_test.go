package router

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "net/url"
    "strings"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus/hooks/test"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "golang.org/x/crypto/bcrypt"

    "github.com/iliyamo/account-service/internal/metrics"
    "github.com/iliyamo/account-service/internal/model"
    "github.com/iliyamo/account-service/internal/repository"
    "github.com/iliyamo/account-service/internal/service"
    "github.com/iliyamo/account-service/internal/utils"
)

type api struct {
    t     *testing.T
    e     *echo.Echo
    svc   *service.AccountService
    codec *utils.TokenCodec
}

func newAPI(t *testing.T) *api {
    t.Helper()
    store := repository.NewMemoryStore()
    codec := utils.NewTokenCodec("router-test-secret", 30*time.Minute)
    logger, _ := test.NewNullLogger()
    svc := service.NewAccountService(store, utils.NewHasher(bcrypt.MinCost), codec, service.WithLogger(logger))
    e := New(Deps{
        Accounts:    svc,
        Resolver:    service.NewResolver(codec, store),
        Metrics:     metrics.New(),
        Log:         logger,
        CORSOrigins: []string{"http://localhost:5173"},
    })
    return &api{t: t, e: e, svc: svc, codec: codec}
}

func (a *api) do(method, path, token, contentType, body string) *httptest.ResponseRecorder {
    a.t.Helper()
    req := httptest.NewRequest(method, path, strings.NewReader(body))
    if contentType != "" {
        req.Header.Set(echo.HeaderContentType, contentType)
    }
    if token != "" {
        req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
    }
    rec := httptest.NewRecorder()
    a.e.ServeHTTP(rec, req)
    return rec
}

func (a *api) json(method, path, token, body string) *httptest.ResponseRecorder {
    return a.do(method, path, token, echo.MIMEApplicationJSON, body)
}

func (a *api) login(email, password string) *httptest.ResponseRecorder {
    form := url.Values{"username": {email}, "password": {password}}
    return a.do(http.MethodPost, "/api/v1/auth/login", "", echo.MIMEApplicationForm, form.Encode())
}

func (a *api) token(email, password string) string {
    a.t.Helper()
    rec := a.login(email, password)
    require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
    var out struct {
        AccessToken string `json:"access_token"`
        TokenType   string `json:"token_type"`
    }
    require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out))
    require.Equal(a.t, "bearer", out.TokenType)
    return out.AccessToken
}

func (a *api) seedSuperuser() string {
    a.t.Helper()
    _, err := a.svc.Signup(context.Background(), model.UserCreate{
        Email: "root@x.com", Username: "root", Password: "Password1", IsSuperuser: ptr(true),
    })
    require.NoError(a.t, err)
    return a.token("root@x.com", "Password1")
}

func ptr[T any](v T) *T { return &v }

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
    t.Helper()
    var m map[string]any
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
    return m
}

const aliceJSON = `{"email":"a@x.com","username":"alice","password":"Password1"}`

func TestHealth(t *testing.T) {
    a := newAPI(t)
    rec := a.do(http.MethodGet, "/health", "", "", "")
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "healthy", decode(t, rec)["status"])
    assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestMetricsEndpoint(t *testing.T) {
    a := newAPI(t)
    a.login("nobody@x.com", "Password1")

    rec := a.do(http.MethodGet, "/metrics", "", "", "")
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `account_login_attempts_total{outcome="invalid_credentials"} 1`)
}

func TestSignup(t *testing.T) {
    a := newAPI(t)

    rec := a.json(http.MethodPost, "/api/v1/users/signup", "", aliceJSON)
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    body := decode(t, rec)
    assert.Equal(t, "a@x.com", body["email"])
    assert.Equal(t, true, body["is_active"])
    assert.Equal(t, false, body["is_superuser"])
    assert.NotContains(t, body, "password")
    assert.NotContains(t, body, "hashed_password")

    rec = a.json(http.MethodPost, "/api/v1/users/signup", "", `{"email":"a@x.com","username":"alice2","password":"Password1"}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Equal(t, "A user with this email already exists", decode(t, rec)["error"])

    rec = a.json(http.MethodPost, "/api/v1/users/signup", "", `{"email":"b@x.com","username":"alice","password":"Password1"}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Equal(t, "A user with this username already exists", decode(t, rec)["error"])
}

func TestSignup_IgnoresPrivilegeFlags(t *testing.T) {
    a := newAPI(t)
    rec := a.json(http.MethodPost, "/api/v1/users/signup", "",
        `{"email":"a@x.com","username":"alice","password":"Password1","is_superuser":true,"is_active":false}`)
    require.Equal(t, http.StatusCreated, rec.Code)
    body := decode(t, rec)
    assert.Equal(t, false, body["is_superuser"])
    assert.Equal(t, true, body["is_active"])
}

func TestSignup_PolicyAndValidation(t *testing.T) {
    a := newAPI(t)

    rec := a.json(http.MethodPost, "/api/v1/users/signup", "", `{"email":"a@x.com","username":"alice","password":"password"}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    body := decode(t, rec)
    assert.Contains(t, body["error"], "uppercase")
    assert.Len(t, body["violations"], 2)

    rec = a.json(http.MethodPost, "/api/v1/users/signup", "", `{"email":"not-an-email","username":"alice","password":"Password1"}`)
    assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
    fields := decode(t, rec)["fields"].(map[string]any)
    assert.Contains(t, fields, "email")

    rec = a.json(http.MethodPost, "/api/v1/users/signup", "", `{"email":`)
    assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSignup_BlankUsername(t *testing.T) {
    a := newAPI(t)

    rec := a.json(http.MethodPost, "/api/v1/users/signup", "", `{"email":"a@x.com","username":"   ","password":"Password1"}`)
    require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
    fields := decode(t, rec)["fields"].(map[string]any)
    assert.Equal(t, "must not be blank", fields["username"])

    rec = a.login("a@x.com", "Password1")
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin(t *testing.T) {
    a := newAPI(t)
    require.Equal(t, http.StatusCreated, a.json(http.MethodPost, "/api/v1/users/signup", "", aliceJSON).Code)

    rec := a.login("a@x.com", "Password1")
    require.Equal(t, http.StatusOK, rec.Code)
    body := decode(t, rec)
    assert.Equal(t, "bearer", body["token_type"])
    claims, err := a.codec.Verify(body["access_token"].(string))
    require.NoError(t, err)
    assert.Equal(t, "1", claims.Subject)

    rec = a.login("a@x.com", "wrong")
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
    assert.Equal(t, "Incorrect email or password", decode(t, rec)["error"])

    rec = a.login("nobody@x.com", "Password1")
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
    assert.Equal(t, "Incorrect email or password", decode(t, rec)["error"])

    rec = a.do(http.MethodPost, "/api/v1/auth/login", "", echo.MIMEApplicationForm, "username=a%40x.com")
    assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestLogin_InactiveAccount(t *testing.T) {
    a := newAPI(t)
    root := a.seedSuperuser()
    require.Equal(t, http.StatusCreated, a.json(http.MethodPost, "/api/v1/users/signup", "", aliceJSON).Code)

    rec := a.json(http.MethodPatch, "/api/v1/users/2/active", root, `{"is_active":false}`)
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

    rec = a.login("a@x.com", "Password1")
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Equal(t, "Inactive user", decode(t, rec)["error"])
}

func TestTestToken(t *testing.T) {
    a := newAPI(t)
    require.Equal(t, http.StatusCreated, a.json(http.MethodPost, "/api/v1/users/signup", "", aliceJSON).Code)
    tok := a.token("a@x.com", "Password1")

    rec := a.do(http.MethodPost, "/api/v1/auth/test-token", tok, "", "")
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "alice", decode(t, rec)["username"])

    rec = a.do(http.MethodPost, "/api/v1/auth/test-token", "", "", "")
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
    assert.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate))
    assert.Equal(t, "Could not validate credentials", decode(t, rec)["error"])

    rec = a.do(http.MethodPost, "/api/v1/auth/test-token", "garbage", "", "")
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe_FollowsLiveAccountState(t *testing.T) {
    a := newAPI(t)
    root := a.seedSuperuser()
    require.Equal(t, http.StatusCreated, a.json(http.MethodPost, "/api/v1/users/signup", "", aliceJSON).Code)
    tok := a.token("a@x.com", "Password1")

    rec := a.do(http.MethodGet, "/api/v1/users/me", tok, "", "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "a@x.com", decode(t, rec)["email"])

    require.Equal(t, http.StatusOK, a.json(http.MethodPatch, "/api/v1/users/2/active", root, `{"is_active":false}`).Code)
    rec = a.do(http.MethodGet, "/api/v1/users/me", tok, "", "")
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Equal(t, "Inactive user", decode(t, rec)["error"])

    // test-token only needs the account to exist
    assert.Equal(t, http.StatusOK, a.do(http.MethodPost, "/api/v1/auth/test-token", tok, "", "").Code)

    require.Equal(t, http.StatusOK, a.do(http.MethodDelete, "/api/v1/users/2", root, "", "").Code)
    rec = a.do(http.MethodGet, "/api/v1/users/me", tok, "", "")
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateMe(t *testing.T) {
    a := newAPI(t)
    require.Equal(t, http.StatusCreated, a.json(http.MethodPost, "/api/v1/users/signup", "", aliceJSON).Code)
    require.Equal(t, http.StatusCreated, a.json(http.MethodPost, "/api/v1/users/signup", "", `{"email":"b@x.com","username":"bob","password":"Password1"}`).Code)
    tok := a.token("a@x.com", "Password1")

    rec := a.json(http.MethodPut, "/api/v1/users/me", tok, `{"username":"alicia","full_name":"Alice A"}`)
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    body := decode(t, rec)
    assert.Equal(t, "alicia", body["username"])
    assert.Equal(t, "Alice A", body["full_name"])
    assert.Equal(t, "a@x.com", body["email"])

    rec = a.json(http.MethodPut, "/api/v1/users/me", tok, `{"email":"b@x.com"}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)

    rec = a.json(http.MethodPut, "/api/v1/users/me", tok, `{"password":"NewPassword2"}`)
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, http.StatusUnauthorized, a.login("a@x.com", "Password1").Code)
    assert.Equal(t, http.StatusOK, a.login("a@x.com", "NewPassword2").Code)
}

func TestChangePassword(t *testing.T) {
    a := newAPI(t)
    require.Equal(t, http.StatusCreated, a.json(http.MethodPost, "/api/v1/users/signup", "", aliceJSON).Code)
    tok := a.token("a@x.com", "Password1")

    rec := a.json(http.MethodPost, "/api/v1/users/me/password", tok, `{"current_password":"nope","new_password":"NewPassword2"}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Equal(t, "Incorrect password", decode(t, rec)["error"])

    rec = a.json(http.MethodPost, "/api/v1/users/me/password", tok, `{"current_password":"Password1","new_password":"NewPassword2"}`)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, http.StatusOK, a.login("a@x.com", "NewPassword2").Code)
}

func TestGetByID(t *testing.T) {
    a := newAPI(t)
    require.Equal(t, http.StatusCreated, a.json(http.MethodPost, "/api/v1/users/signup", "", aliceJSON).Code)
    tok := a.token("a@x.com", "Password1")

    rec := a.do(http.MethodGet, "/api/v1/users/1", tok, "", "")
    assert.Equal(t, http.StatusOK, rec.Code)

    rec = a.do(http.MethodGet, "/api/v1/users/99", tok, "", "")
    assert.Equal(t, http.StatusNotFound, rec.Code)
    assert.Equal(t, "User not found", decode(t, rec)["error"])

    rec = a.do(http.MethodGet, "/api/v1/users/abc", tok, "", "")
    assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAdminRoutes_RequireSuperuser(t *testing.T) {
    a := newAPI(t)
    require.Equal(t, http.StatusCreated, a.json(http.MethodPost, "/api/v1/users/signup", "", aliceJSON).Code)
    tok := a.token("a@x.com", "Password1")

    for _, r := range []struct{ method, path, body string }{
        {http.MethodGet, "/api/v1/users", ""},
        {http.MethodPost, "/api/v1/users", `{"email":"c@x.com","username":"c","password":"Password1"}`},
        {http.MethodPatch, "/api/v1/users/1/active", `{"is_active":false}`},
        {http.MethodDelete, "/api/v1/users/1", ""},
    } {
        rec := a.json(r.method, r.path, tok, r.body)
        assert.Equal(t, http.StatusForbidden, rec.Code, r.method+" "+r.path)
        assert.Equal(t, "The user doesn't have enough privileges", decode(t, rec)["error"])
    }
}

func TestAdminRoutes(t *testing.T) {
    a := newAPI(t)
    root := a.seedSuperuser()
    for _, body := range []string{
        `{"email":"b@x.com","username":"b","password":"Password1","is_superuser":true}`,
        `{"email":"c@x.com","username":"c","password":"Password1"}`,
        `{"email":"d@x.com","username":"d","password":"Password1","is_active":false}`,
    } {
        rec := a.json(http.MethodPost, "/api/v1/users", root, body)
        require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    }

    rec := a.do(http.MethodGet, "/api/v1/users?skip=1&limit=2", root, "", "")
    require.Equal(t, http.StatusOK, rec.Code)
    var page []map[string]any
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
    require.Len(t, page, 2)
    assert.Equal(t, "b", page[0]["username"])
    assert.Equal(t, true, page[0]["is_superuser"])

    rec = a.do(http.MethodGet, "/api/v1/users?limit=-1", root, "", "")
    assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

    rec = a.json(http.MethodPatch, "/api/v1/users/99/active", root, `{"is_active":false}`)
    assert.Equal(t, http.StatusNotFound, rec.Code)

    rec = a.json(http.MethodPatch, "/api/v1/users/3/active", root, `{}`)
    assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

    rec = a.do(http.MethodDelete, "/api/v1/users/3", root, "", "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "c", decode(t, rec)["username"])
    assert.Equal(t, http.StatusNotFound, a.do(http.MethodDelete, "/api/v1/users/3", root, "", "").Code)
}

func TestInactiveSuperuserGetsInactiveNotForbidden(t *testing.T) {
    a := newAPI(t)
    root := a.seedSuperuser()
    _, err := a.svc.SetActive(context.Background(), 1, false)
    require.NoError(t, err)

    rec := a.do(http.MethodGet, "/api/v1/users", root, "", "")
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Equal(t, "Inactive user", decode(t, rec)["error"])
}

func TestCORS(t *testing.T) {
    a := newAPI(t)
    req := httptest.NewRequest(http.MethodOptions, "/api/v1/users/me", nil)
    req.Header.Set(echo.HeaderOrigin, "http://localhost:5173")
    req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
    rec := httptest.NewRecorder()
    a.e.ServeHTTP(rec, req)

    assert.Equal(t, "http://localhost:5173", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}
