package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error string `json:"error"`
}

// CustomErrorHandler renders errors as {"error": message} and logs server-side failures
func CustomErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := ""

	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if msg, ok := he.Message.(string); ok {
			message = msg
		}
	}

	if message == "" {
		switch code {
		case http.StatusNotFound:
			message = "The resource you're looking for doesn't exist."
		case http.StatusForbidden:
			message = "You don't have permission to access this resource."
		case http.StatusUnauthorized:
			message = "Please log in to continue."
		case http.StatusBadRequest:
			message = "The request could not be processed."
		default:
			message = http.StatusText(code)
			if code >= 500 {
				message = "Something went wrong. Please try again later."
			}
		}
	}

	event := log.Warn()
	if code >= 500 {
		event = log.Error()
	}
	event.Err(err).
		Int("status", code).
		Str("method", c.Request().Method).
		Str("path", c.Request().URL.Path).
		Msg("request failed")

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, ErrorResponse{Error: message})
}
