package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"installment_app_echo/internal/models"
	"installment_app_echo/internal/services"
)

type UserPreferenceHandler struct {
	prefs *services.PreferenceService
}

func NewUserPreferenceHandler(prefs *services.PreferenceService) *UserPreferenceHandler {
	return &UserPreferenceHandler{prefs: prefs}
}

type preferenceRequest struct {
	Channel            models.NotificationChannel `json:"channel"`
	Phone              string                     `json:"phone"`
	WhatsappTargetType string                     `json:"whatsapp_target_type"`
	WhatsappGroupID    string                     `json:"whatsapp_group_id"`
}

// GetUserPreference returns how the caller wants overdue reminders delivered
func (h *UserPreferenceHandler) GetUserPreference(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	pref, err := h.prefs.Get(c.Request().Context(), s.UserID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, pref)
}

func (h *UserPreferenceHandler) UpdateUserPreference(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}

	var req preferenceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	pref, err := h.prefs.Save(c.Request().Context(), s.UserID, models.UserNotifPreference{
		Channel:            req.Channel,
		Phone:              req.Phone,
		WhatsappTargetType: req.WhatsappTargetType,
		WhatsappGroupID:    req.WhatsappGroupID,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, pref)
}
