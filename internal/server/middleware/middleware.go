package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"miner-node/logging"

	"github.com/labstack/echo/v4"
)

// LoggingMiddleware logs one line per handled request.
func LoggingMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		err := next(c)
		if err != nil {
			c.Error(err)
		}

		logging.Debug("Handled request", logging.Server,
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"status", c.Response().Status,
			"duration", time.Since(start).String())
		return err
	}
}

// TransparentErrorHandler renders handler errors without masking them: an
// echo.HTTPError keeps its own code and message, anything else becomes a 500
// carrying the error text.
func TransparentErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := err.Error()

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		message = fmt.Sprintf("%v", httpErr.Message)
	}

	if code >= http.StatusInternalServerError {
		logging.Error("Request failed", logging.Server,
			"path", c.Request().URL.Path, "error", err.Error())
	}

	if writeErr := c.JSON(code, map[string]string{"error": message}); writeErr != nil {
		logging.Error("Failed to write error response", logging.Server,
			"error", writeErr.Error())
	}
}
