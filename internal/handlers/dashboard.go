package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"installment_app_echo/internal/services"
)

// DashboardHandler serves the summary figures of the dashboard and admin pages
type DashboardHandler struct {
	metrics *services.MetricsService
}

func NewDashboardHandler(metrics *services.MetricsService) *DashboardHandler {
	return &DashboardHandler{metrics: metrics}
}

func (h *DashboardHandler) Metrics(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	totals, err := h.metrics.Dashboard(c.Request().Context(), s)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, totals)
}

func (h *DashboardHandler) AdminMetrics(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	metrics, err := h.metrics.Admin(c.Request().Context(), s)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, metrics)
}
