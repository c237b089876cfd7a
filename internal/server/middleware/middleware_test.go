package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestTransparentErrorHandler_PassesThroughHTTPError(t *testing.T) {
	c, rec := newTestContext(t)

	TransparentErrorHandler(echo.NewHTTPError(http.StatusForbidden, "stake below threshold"), c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "stake below threshold")
}

func TestTransparentErrorHandler_WrapsPlainErrors(t *testing.T) {
	c, rec := newTestContext(t)

	TransparentErrorHandler(errors.New("pool exploded"), c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "pool exploded")
}

func TestTransparentErrorHandler_SkipsCommittedResponse(t *testing.T) {
	c, rec := newTestContext(t)
	require.NoError(t, c.NoContent(http.StatusNoContent))

	TransparentErrorHandler(errors.New("too late"), c)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotContains(t, rec.Body.String(), "too late")
}

func TestLoggingMiddleware_PropagatesHandlerError(t *testing.T) {
	c, rec := newTestContext(t)

	handler := LoggingMiddleware(func(echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "short and stout")
	})

	err := handler(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestLoggingMiddleware_PassesThroughSuccess(t *testing.T) {
	c, rec := newTestContext(t)

	handler := LoggingMiddleware(func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
