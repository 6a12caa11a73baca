// Package auth verifies caller credentials and describes the authenticated caller.
package auth

import (
	"context"
	"errors"

	"installment_app_echo/internal/models"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is what a verified credential tells us about the caller
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Session is the authenticated caller as seen by services: identity plus resolved role
type Session struct {
	UserID string      `json:"user_id"`
	Email  string      `json:"email"`
	Name   string      `json:"name"`
	Role   models.Role `json:"role"`
}

func (s Session) IsAdmin() bool {
	return s.Role == models.RoleAdmin
}

// NewSession combines a verified identity with its role
func NewSession(id Identity, role models.Role) Session {
	return Session{UserID: id.UID, Email: id.Email, Name: id.Name, Role: role}
}

// Verifier checks bearer tokens and session cookies
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (*Identity, error)
	VerifySession(ctx context.Context, cookie string) (*Identity, error)
}
