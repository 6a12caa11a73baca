package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"installment_app_echo/internal/auth"
	"installment_app_echo/internal/config"
	"installment_app_echo/internal/middleware"
	"installment_app_echo/internal/services"
)

const firebaseSessionTTL = 24 * time.Hour * 5

// AuthHandler handles login and logout. Exactly one of firebase or local is set.
type AuthHandler struct {
	cfg      *config.Config
	firebase *auth.FirebaseVerifier
	local    *services.LocalAccounts
	jwt      *auth.JWTVerifier
}

func NewFirebaseAuthHandler(cfg *config.Config, verifier *auth.FirebaseVerifier) *AuthHandler {
	return &AuthHandler{cfg: cfg, firebase: verifier}
}

func NewLocalAuthHandler(cfg *config.Config, accounts *services.LocalAccounts, verifier *auth.JWTVerifier) *AuthHandler {
	return &AuthHandler{cfg: cfg, local: accounts, jwt: verifier}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Status string `json:"status"`
	Token  string `json:"token,omitempty"`
}

// LoginPage renders the login page
func (h *AuthHandler) LoginPage(c echo.Context) error {
	data := map[string]interface{}{
		"UseFirebase":        h.firebase != nil,
		"FirebaseAPIKey":     h.cfg.FirebaseAPIKey,
		"FirebaseAuthDomain": h.cfg.FirebaseAuthDomain,
		"FirebaseProjectID":  h.cfg.FirebaseProjectID,
		"Error":              c.QueryParam("error"),
	}
	return c.Render(http.StatusOK, "login.html", data)
}

// HandleLogin exchanges a Firebase ID token (Authorization header) or an email/password pair
// for a session cookie.
func (h *AuthHandler) HandleLogin(c echo.Context) error {
	if h.firebase != nil {
		return h.firebaseLogin(c)
	}
	if h.local != nil && h.jwt != nil {
		return h.localLogin(c)
	}
	return echo.NewHTTPError(http.StatusServiceUnavailable, "authentication is not configured")
}

func (h *AuthHandler) firebaseLogin(c echo.Context) error {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	idToken := strings.TrimPrefix(authHeader, "Bearer ")
	if idToken == authHeader {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
	}

	cookieValue, err := h.firebase.CreateSession(c.Request().Context(), idToken, firebaseSessionTTL)
	if errors.Is(err, auth.ErrInvalidToken) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create session").SetInternal(err)
	}

	h.setSessionCookie(c, cookieValue, firebaseSessionTTL)
	return c.JSON(http.StatusOK, loginResponse{Status: "success"})
}

func (h *AuthHandler) localLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	account, err := h.local.Authenticate(c.Request().Context(), req.Email, req.Password)
	if errors.Is(err, services.ErrForbidden) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}
	if err != nil {
		return toHTTPError(err)
	}

	token, err := h.jwt.Issue(auth.Identity{UID: account.UID, Email: account.Email, Name: account.DisplayName})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create session").SetInternal(err)
	}

	h.setSessionCookie(c, token, h.jwt.TTL())
	return c.JSON(http.StatusOK, loginResponse{Status: "success", Token: token})
}

func (h *AuthHandler) setSessionCookie(c echo.Context, value string, ttl time.Duration) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
}

// HandleLogout clears the session cookie
func (h *AuthHandler) HandleLogout(c echo.Context) error {
	middleware.ClearSessionCookie(c)
	return c.JSON(http.StatusOK, StatusResponse{Status: "logged out"})
}
