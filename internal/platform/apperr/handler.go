package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ErrorBody is the uniform error response envelope.
type ErrorBody struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Code    Code              `json:"code"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// HTTPErrorHandler returns an echo error handler that maps application and
// framework errors onto the {success:false, message, code} envelope.
// Internal causes are logged with full detail and never leak to the client.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		body := ErrorBody{Success: false}
		status := http.StatusInternalServerError

		var ae *Error
		var he *echo.HTTPError
		switch {
		case errors.As(err, &ae):
			status = ae.Code.HTTPStatus()
			body.Message = ae.Message
			body.Code = ae.Code
			body.Fields = ae.Fields
		case errors.As(err, &he):
			status = he.Code
			body.Code = codeForStatus(he.Code)
			if msg, ok := he.Message.(string); ok {
				body.Message = msg
			} else {
				body.Message = http.StatusText(he.Code)
			}
		default:
			body.Message = "internal server error"
			body.Code = CodeInternal
		}

		if status >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().
				Err(err).
				Str("request_id", rid).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
			// Generic message only; no internal detail crosses the boundary.
			body.Message = "internal server error"
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}

func codeForStatus(status int) Code {
	switch status {
	case http.StatusUnauthorized:
		return CodeUnauthenticated
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusBadRequest:
		return CodeValidation
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusServiceUnavailable:
		return CodeUnavailable
	default:
		return CodeInternal
	}
}
