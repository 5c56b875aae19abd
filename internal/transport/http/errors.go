package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/logging"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ErrorHandler renders every failure as {"error": ..., "code"?: ...}.
// Causes of unexpected errors stay in the logs.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	body := errorBody{Error: "internal error"}

	var (
		ae *apperr.Error
		he *echo.HTTPError
	)
	switch {
	case errors.As(err, &ae):
		status = apperr.Status(ae)
		body = errorBody{Error: ae.Message, Code: ae.Code}
	case errors.As(err, &he):
		status = he.Code
		body.Error = http.StatusText(status)
		if msg, ok := he.Message.(string); ok && msg != "" {
			body.Error = msg
		} else if he.Message != nil {
			body.Error = fmt.Sprint(he.Message)
		}
	default:
		logging.FromContext(c.Request().Context()).Error("unhandled_error", "error", err)
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(status)
	} else {
		werr = c.JSON(status, body)
	}
	if werr != nil {
		logging.FromContext(c.Request().Context()).Error("write_error_response", "error", werr)
	}
}
