package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"installment_app_echo/internal/auth"
	"installment_app_echo/internal/models"
)

// SessionCookieName is the cookie holding the session token
const SessionCookieName = "session"

const sessionContextKey = "session"

// RoleResolver looks up the role of an account
type RoleResolver interface {
	RoleOf(ctx context.Context, uid string) (models.Role, error)
}

// RequireAuth verifies the bearer token or session cookie and stores the caller's session
// in the echo context. Browsers without credentials are redirected to the login page.
func RequireAuth(verifier auth.Verifier, roles RoleResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if verifier == nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "authentication is not configured")
			}

			ctx := c.Request().Context()
			var (
				identity *auth.Identity
				err      error
			)

			if token := bearerToken(c.Request()); token != "" {
				identity, err = verifier.VerifyToken(ctx, token)
			} else if cookie, cerr := c.Cookie(SessionCookieName); cerr == nil && cookie.Value != "" {
				identity, err = verifier.VerifySession(ctx, cookie.Value)
				if err != nil {
					ClearSessionCookie(c)
				}
			} else {
				if wantsHTML(c.Request()) {
					return c.Redirect(http.StatusTemporaryRedirect, "/login")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization token")
			}

			if err != nil {
				log.Debug().Err(err).Msg("rejected credentials")
				if wantsHTML(c.Request()) {
					return c.Redirect(http.StatusTemporaryRedirect, "/login")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			role, err := roles.RoleOf(ctx, identity.UID)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve role").SetInternal(err)
			}

			session := auth.NewSession(*identity, role)
			c.Set(sessionContextKey, session)
			c.Set("userUID", session.UserID)
			c.Set("userEmail", session.Email)

			return next(c)
		}
	}
}

// RequireAdmin rejects callers whose role is not admin. It must run after RequireAuth.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session, ok := SessionFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization token")
			}
			if !session.IsAdmin() {
				return echo.NewHTTPError(http.StatusForbidden, "admin access required")
			}
			return next(c)
		}
	}
}

// SessionFrom returns the session stored by RequireAuth
func SessionFrom(c echo.Context) (auth.Session, bool) {
	session, ok := c.Get(sessionContextKey).(auth.Session)
	return session, ok
}

// ClearSessionCookie expires the session cookie
func ClearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Path:     "/",
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get(echo.HeaderAuthorization)
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func wantsHTML(r *http.Request) bool {
	return r.Method == http.MethodGet && strings.Contains(r.Header.Get(echo.HeaderAccept), echo.MIMETextHTML)
}
