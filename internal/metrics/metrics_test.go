package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/users/:id", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	for _, p := range []string{"/users/1", "/users/2"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, p, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/users/:id", "200")))
}

func TestMiddleware_RecordsHTTPErrorStatus(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusTeapot) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/boom", "418")))
}

func TestObserveHelpers(t *testing.T) {
	m := New()
	m.ObserveLogin(OutcomeSuccess)
	m.ObserveLogin(OutcomeInvalid)
	m.ObserveLogin(OutcomeInvalid)
	m.ObserveResolution(OutcomeForbidden)
	m.ObserveRateLimited("/api/v1/auth/login")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoginAttempts.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LoginAttempts.WithLabelValues(OutcomeInvalid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokenResolutions.WithLabelValues(OutcomeForbidden)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited.WithLabelValues("/api/v1/auth/login")))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.ObserveLogin(OutcomeSuccess) })
}

func TestHandler_Exposition(t *testing.T) {
	m := New()
	m.ObserveLogin(OutcomeSuccess)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `account_login_attempts_total{outcome="success"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
