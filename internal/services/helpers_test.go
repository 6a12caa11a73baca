package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"gorm.io/gorm"

	"installment_app_echo/internal/auth"
	"installment_app_echo/internal/models"
)

var (
	adminSession    = auth.Session{UserID: "admin-1", Email: "admin@example.com", Role: models.RoleAdmin}
	employeeSession = auth.Session{UserID: "emp-1", Email: "emp1@example.com", Role: models.RoleEmployee}
	otherSession    = auth.Session{UserID: "emp-2", Email: "emp2@example.com", Role: models.RoleEmployee}
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := InitDB("sqlite::memory:")
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache, err := NewRedisCache("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache, mr
}

func newTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	return storage
}

// createContract stores the 120000 / 20000 / 10 months contract used across tests
func createContract(t *testing.T, svc *ClientService, session auth.Session, name string) *models.Client {
	t.Helper()
	client, err := svc.Create(context.Background(), session, CreateClientRequest{
		FullName:          name,
		ContractDate:      time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
		ContractAmount:    120000,
		InstallmentPeriod: 10,
		FirstPayment:      20000,
		PaymentDay:        15,
	})
	if err != nil {
		t.Fatalf("Create client: %v", err)
	}
	return client
}

func addReceipts(t *testing.T, db *gorm.DB, clientID uint, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		r := models.Receipt{
			ClientID:   clientID,
			UserID:     "emp-1",
			FileName:   "receipt.pdf",
			FilePath:   "emp-1/receipt.pdf",
			FileSize:   3,
			MimeType:   "application/pdf",
			UploadedAt: time.Now(),
		}
		if err := db.Create(&r).Error; err != nil {
			t.Fatalf("insert receipt: %v", err)
		}
	}
}
