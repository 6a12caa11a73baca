package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"installment_app_echo/internal/models"
	"installment_app_echo/internal/services"
)

// UserHandler serves user administration and the caller's own profile
type UserHandler struct {
	admin    *services.UserAdminService
	profiles *services.ProfileService
}

func NewUserHandler(admin *services.UserAdminService, profiles *services.ProfileService) *UserHandler {
	return &UserHandler{admin: admin, profiles: profiles}
}

type deleteUserRequest struct {
	UserID string `json:"userId"`
}

type setRoleRequest struct {
	Role models.Role `json:"role"`
}

type changePasswordRequest struct {
	Password string `json:"password"`
}

func (h *UserHandler) ListUsers(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	users, err := h.admin.List(c.Request().Context(), s)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"users": users})
}

// UpsertUser creates the account or, when the email exists, updates its role and name
func (h *UserHandler) UpsertUser(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}

	var req services.UpsertUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.admin.Upsert(c.Request().Context(), s, req)
	if err != nil {
		return toHTTPError(err)
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	return c.JSON(status, map[string]interface{}{
		"user":    result.User,
		"message": result.Message,
	})
}

// DeleteUser takes the user id from the JSON body or the userId query parameter
func (h *UserHandler) DeleteUser(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}

	var req deleteUserRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
	}
	if req.UserID == "" {
		req.UserID = c.QueryParam("userId")
	}
	if req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "userId is required")
	}

	if err := h.admin.Delete(c.Request().Context(), s, req.UserID); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (h *UserHandler) SetRole(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}

	var req setRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.admin.SetRole(c.Request().Context(), s, c.Param("userId"), req.Role); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "updated"})
}

func (h *UserHandler) GetProfile(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	profile, err := h.profiles.Get(c.Request().Context(), s)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *UserHandler) UpdateProfile(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}

	var req services.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	profile, err := h.profiles.Update(c.Request().Context(), s, req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *UserHandler) ChangePassword(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.profiles.ChangePassword(c.Request().Context(), s, req.Password); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "password changed"})
}
