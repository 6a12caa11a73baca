package auth

import (
	"context"
	"fmt"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
)

// FirebaseVerifier verifies Firebase ID tokens and session cookies
type FirebaseVerifier struct {
	client *fbauth.Client
}

func NewFirebaseVerifier(client *fbauth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) VerifyToken(ctx context.Context, token string) (*Identity, error) {
	decoded, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return identityFromToken(decoded), nil
}

func (v *FirebaseVerifier) VerifySession(ctx context.Context, cookie string) (*Identity, error) {
	decoded, err := v.client.VerifySessionCookie(ctx, cookie)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return identityFromToken(decoded), nil
}

// CreateSession exchanges a freshly issued ID token for a session cookie value
func (v *FirebaseVerifier) CreateSession(ctx context.Context, idToken string, expiresIn time.Duration) (string, error) {
	if _, err := v.client.VerifyIDToken(ctx, idToken); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return v.client.SessionCookie(ctx, idToken, expiresIn)
}

func identityFromToken(token *fbauth.Token) *Identity {
	id := &Identity{UID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		id.Email = email
	}
	if name, ok := token.Claims["name"].(string); ok {
		id.Name = name
	}
	return id
}
