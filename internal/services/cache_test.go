package services

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"installment_app_echo/internal/models"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func TestImportRefreshesCachedDashboard(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	cache, _ := newTestCache(t)
	metrics := NewMetricsService(db, nil, NewRoleService(db, cache), cache)
	sheets := NewSpreadsheetService(db, cache)

	before, err := metrics.Dashboard(ctx, adminSession)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if before.TotalClients != 0 {
		t.Fatalf("clients before import = %d, want 0", before.TotalClients)
	}

	buf := buildWorkbook(t, [][]interface{}{
		{colFullName, colContractDate, colContractAmount, colPeriod},
		{"Ivan Petrov", "15.01.2024", "120000", "10"},
	})
	if res, err := sheets.Import(ctx, adminSession, buf); err != nil || res.Imported != 1 {
		t.Fatalf("Import: %+v, %v", res, err)
	}

	after, err := metrics.Dashboard(ctx, adminSession)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if after.TotalClients != 1 || after.TotalContractAmount != 120000 {
		t.Errorf("dashboard after import = %+v, want 1 client of 120000", after)
	}
}

func TestSetRoleRefreshesCachedRole(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	cache, _ := newTestCache(t)
	roles := NewRoleService(db, cache)

	if role, _ := roles.RoleOf(ctx, "user-1"); role != models.RoleEmployee {
		t.Fatalf("initial role = %s, want employee", role)
	}
	if _, err := roles.SetRole(ctx, "user-1", models.RoleAdmin, "admin-1"); err != nil {
		t.Fatalf("SetRole: %v", err)
	}
	if role, _ := roles.RoleOf(ctx, "user-1"); role != models.RoleAdmin {
		t.Errorf("role after promotion = %s, want admin", role)
	}
}

func TestCacheInvalidationFailureIsLogged(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	cache, mr := newTestCache(t)
	roles := NewRoleService(db, cache)
	clients := NewClientService(db, newTestStorage(t), cache)

	mr.Close()
	logs := captureLog(t)

	if _, err := roles.SetRole(ctx, "user-1", models.RoleAdmin, "admin-1"); err != nil {
		t.Fatalf("SetRole with cache down: %v", err)
	}
	createContract(t, clients, employeeSession, "Ivan Petrov")

	out := logs.String()
	for _, msg := range []string{"failed to invalidate role cache", "failed to invalidate metrics cache"} {
		if !strings.Contains(out, msg) {
			t.Errorf("log is missing %q:\n%s", msg, out)
		}
	}
}
