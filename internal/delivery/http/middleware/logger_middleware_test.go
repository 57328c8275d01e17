package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"identity/config"
)

func newLoggerTestEcho(t *testing.T, debug bool) (*echo.Echo, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	cfg := &config.Config{}
	cfg.Env.Debug = debug

	e := echo.New()
	e.Use(NewLoggerMiddleware(logger, cfg).Handle)
	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})
	e.GET("/me", func(c echo.Context) error {
		c.Set(ContextKeyUserEmail, "a@b.com")

		return c.String(http.StatusOK, "ok")
	})

	return e, &buf
}

func TestLoggerMiddleware_DebugLogsRequest(t *testing.T) {
	e, buf := newLoggerTestEcho(t, true)

	req := httptest.NewRequest(http.MethodGet, "/ping?verbose=1", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	logged := buf.String()
	assert.Contains(t, logged, "HTTP Request")
	assert.Contains(t, logged, `"method":"GET"`)
	assert.Contains(t, logged, `"uri":"/ping"`)
	assert.Contains(t, logged, `"query":"verbose=1"`)
	assert.Contains(t, logged, `"status":200`)
}

func TestLoggerMiddleware_IncludesAuthenticatedSubject(t *testing.T) {
	e, buf := newLoggerTestEcho(t, true)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, buf.String(), `"user":"a@b.com"`)
}

func TestLoggerMiddleware_SilentWithoutDebug(t *testing.T) {
	e, buf := newLoggerTestEcho(t, false)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, buf.String())
}
