package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"installment_app_echo/internal/auth"
	"installment_app_echo/internal/middleware"
	"installment_app_echo/internal/services"
)

// StatusResponse is returned by endpoints that have nothing else to say
type StatusResponse struct {
	Status string `json:"status"`
}

// toHTTPError translates service errors into HTTP errors
func toHTTPError(err error) error {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he
	case errors.Is(err, services.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, services.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "access denied")
	case errors.Is(err, services.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrReceiptRequired), errors.Is(err, services.ErrReceiptInUse):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error()).SetInternal(err)
	}
}

func paramID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return uint(id), nil
}

func currentSession(c echo.Context) (auth.Session, error) {
	s, ok := middleware.SessionFrom(c)
	if !ok {
		return auth.Session{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authorization token")
	}
	return s, nil
}
