package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"installment_app_echo/internal/auth"
	"installment_app_echo/internal/services"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := services.InitDB("sqlite::memory:")
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	if err := services.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newTestVerifier(t *testing.T) *auth.JWTVerifier {
	t.Helper()
	verifier, err := auth.NewJWTVerifier("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTVerifier: %v", err)
	}
	return verifier
}

func issueToken(t *testing.T, verifier *auth.JWTVerifier, a *services.AccountInfo) string {
	t.Helper()
	token, err := verifier.Issue(auth.Identity{UID: a.UID, Email: a.Email, Name: a.DisplayName})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return token
}

func doJSON(e *echo.Echo, method, target, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}
