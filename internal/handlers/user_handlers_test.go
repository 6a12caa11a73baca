package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"installment_app_echo/internal/middleware"
	"installment_app_echo/internal/models"
	"installment_app_echo/internal/services"
)

type adminUsersFixture struct {
	e             *echo.Echo
	accounts      *services.LocalAccounts
	adminToken    string
	employeeToken string
	employeeUID   string
}

func newAdminUsersFixture(t *testing.T) *adminUsersFixture {
	t.Helper()
	ctx := context.Background()

	db := newTestDB(t)
	accounts := services.NewLocalAccounts(db)
	roles := services.NewRoleService(db, nil)
	admin := services.NewUserAdminService(db, accounts, roles)
	profiles := services.NewProfileService(db, accounts)

	verifier := newTestVerifier(t)

	adminAcc, err := accounts.Create(ctx, "admin@example.com", "secret123", "Admin")
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if _, err := roles.SetRole(ctx, adminAcc.UID, models.RoleAdmin, "test"); err != nil {
		t.Fatalf("SetRole: %v", err)
	}
	empAcc, err := accounts.Create(ctx, "emp@example.com", "secret123", "Employee")
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}

	e := echo.New()
	e.HTTPErrorHandler = middleware.CustomErrorHandler
	h := NewUserHandler(admin, profiles)
	g := e.Group("/api/admin-users", middleware.RequireAuth(verifier, roles), middleware.RequireAdmin())
	g.GET("", h.ListUsers)
	g.POST("", h.UpsertUser)
	g.DELETE("", h.DeleteUser)

	return &adminUsersFixture{
		e:             e,
		accounts:      accounts,
		adminToken:    issueToken(t, verifier, adminAcc),
		employeeToken: issueToken(t, verifier, empAcc),
		employeeUID:   empAcc.UID,
	}
}

func (f *adminUsersFixture) do(method, target, token, body string) *httptest.ResponseRecorder {
	return doJSON(f.e, method, target, token, body)
}

func TestAdminUsersAccess(t *testing.T) {
	f := newAdminUsersFixture(t)

	tests := []struct {
		name   string
		method string
		token  string
		body   string
		want   int
	}{
		{"list without token", http.MethodGet, "", "", http.StatusUnauthorized},
		{"list as employee", http.MethodGet, f.employeeToken, "", http.StatusForbidden},
		{"list as admin", http.MethodGet, f.adminToken, "", http.StatusOK},
		{"create as employee", http.MethodPost, f.employeeToken, `{"email":"x@example.com"}`, http.StatusForbidden},
		{"create without email", http.MethodPost, f.adminToken, `{"full_name":"Nobody"}`, http.StatusBadRequest},
		{"delete without user id", http.MethodDelete, f.adminToken, "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(tt.method, "/api/admin-users", tt.token, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestAdminUsersCreateThenUpdateRole(t *testing.T) {
	f := newAdminUsersFixture(t)

	rec := f.do(http.MethodPost, "/api/admin-users", f.adminToken,
		`{"email":"new@example.com","full_name":"New Person","role":"employee"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}

	var created struct {
		User    services.AdminUser `json:"user"`
		Message string             `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Message != "User created successfully" {
		t.Errorf("message = %q", created.Message)
	}
	if _, err := f.accounts.Authenticate(context.Background(), "new@example.com", services.DefaultPassword); err != nil {
		t.Errorf("default password not accepted: %v", err)
	}

	rec = f.do(http.MethodPost, "/api/admin-users", f.adminToken,
		`{"email":"new@example.com","role":"admin"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "User role updated successfully") {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestAdminUsersDelete(t *testing.T) {
	f := newAdminUsersFixture(t)

	rec := f.do(http.MethodDelete, "/api/admin-users?userId="+f.employeeUID, f.adminToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body %s", rec.Code, rec.Body.String())
	}
	if strings.TrimSpace(rec.Body.String()) != `{"success":true}` {
		t.Errorf("body = %s", rec.Body.String())
	}

	if _, err := f.accounts.Get(context.Background(), f.employeeUID); err == nil {
		t.Error("account still exists after delete")
	}

	rec = f.do(http.MethodGet, "/api/admin-users", f.adminToken, "")
	if strings.Contains(rec.Body.String(), "emp@example.com") {
		t.Errorf("deleted user still listed: %s", rec.Body.String())
	}
}
