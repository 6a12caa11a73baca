package services

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"installment_app_echo/internal/models"
)

var errInjected = errors.New("boom")

// failOn makes every statement of kind against table fail at the given point of the callback chain
func failOn(t *testing.T, db *gorm.DB, kind, table string, after bool) {
	t.Helper()
	fn := func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			tx.AddError(errInjected)
		}
	}

	var err error
	name := "test:fail_" + kind + "_" + table
	switch kind {
	case "update":
		err = db.Callback().Update().Before("gorm:update").Register(name, fn)
	case "create":
		if after {
			err = db.Callback().Create().After("gorm:create").Register(name, fn)
		} else {
			err = db.Callback().Create().Before("gorm:create").Register(name, fn)
		}
	default:
		t.Fatalf("unknown callback kind %q", kind)
	}
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
}

func TestToggleRollsBackWhenTotalCannotBeSaved(t *testing.T) {
	db := newTestDB(t)
	clients := NewClientService(db, newTestStorage(t), nil)
	payments := NewPaymentService(db, nil)
	ctx := context.Background()

	client := createContract(t, clients, employeeSession, "Ivan Petrov")
	installments, err := payments.EnsureSchedule(ctx, employeeSession, client.ID)
	if err != nil {
		t.Fatalf("EnsureSchedule: %v", err)
	}
	addReceipts(t, db, client.ID, 1)

	failOn(t, db, "update", "clients", false)

	if _, err := payments.Toggle(ctx, employeeSession, installments[0].ID); !errors.Is(err, errInjected) {
		t.Fatalf("Toggle error = %v; want injected failure", err)
	}

	var payment models.Payment
	db.First(&payment, installments[0].ID)
	if payment.IsCompleted || payment.CompletedAt != nil {
		t.Error("installment stayed complete after the paid total failed to save")
	}
	var stored models.Client
	db.First(&stored, client.ID)
	if stored.TotalPaid != 0 {
		t.Errorf("total paid = %v; want 0", stored.TotalPaid)
	}
}

func TestEnsureScheduleStoresNothingOnFailure(t *testing.T) {
	db := newTestDB(t)
	clients := NewClientService(db, newTestStorage(t), nil)
	payments := NewPaymentService(db, nil)
	ctx := context.Background()

	client := createContract(t, clients, employeeSession, "Ivan Petrov")

	// the rows are written, then the statement fails
	failOn(t, db, "create", "payments", true)

	if _, err := payments.EnsureSchedule(ctx, employeeSession, client.ID); err == nil {
		t.Fatal("EnsureSchedule succeeded; want the injected failure")
	}

	var count int64
	db.Model(&models.Payment{}).Where("client_id = ?", client.ID).Count(&count)
	if count != 0 {
		t.Errorf("stored installments = %d; want none", count)
	}
}

func TestEnsureScheduleReturnsConcurrentlyStoredSchedule(t *testing.T) {
	db := newTestDB(t)
	clients := NewClientService(db, newTestStorage(t), nil)
	payments := NewPaymentService(db, nil)
	ctx := context.Background()

	client := createContract(t, clients, employeeSession, "Ivan Petrov")

	// another request stores its schedule right after this one found none
	raced := false
	err := db.Callback().Query().After("gorm:query").Register("test:race_schedule", func(tx *gorm.DB) {
		if raced || tx.Statement.Table != "payments" {
			return
		}
		raced = true
		rows := make([]models.Payment, 0, 11)
		for i := 0; i <= 10; i++ {
			rows = append(rows, models.Payment{
				ClientID:       client.ID,
				OwnerID:        client.OwnerID,
				PaymentNumber:  i,
				OriginalAmount: 1,
				DueDate:        time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC).AddDate(0, i, 0),
				PaymentType:    models.PaymentTypeMonthly,
			})
		}
		if err := db.Create(&rows).Error; err != nil {
			t.Errorf("store competing schedule: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	got, err := payments.EnsureSchedule(ctx, employeeSession, client.ID)
	if err != nil {
		t.Fatalf("EnsureSchedule: %v", err)
	}
	if !raced {
		t.Fatal("competing schedule was never stored")
	}
	if len(got) != 11 || got[0].OriginalAmount != 1 {
		t.Errorf("got %d installments starting at %v; want the 11 stored by the other request", len(got), got[0].OriginalAmount)
	}

	var count int64
	db.Model(&models.Payment{}).Where("client_id = ?", client.ID).Count(&count)
	if count != 11 {
		t.Errorf("stored installments = %d; want 11", count)
	}
}

func TestUploadRemovesFileWhenRowFails(t *testing.T) {
	db := newTestDB(t)
	dir := t.TempDir()
	storage, err := NewLocalStorage(dir)
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	clients := NewClientService(db, storage, nil)
	receipts := NewReceiptService(db, storage, 1024)
	ctx := context.Background()

	client := createContract(t, clients, employeeSession, "Ivan Petrov")
	failOn(t, db, "create", "payment_receipts", false)

	if _, err := receipts.Upload(ctx, employeeSession, client.ID, pdfUpload("check.pdf", "%PDF-1.4")); err == nil {
		t.Fatal("Upload succeeded; want the injected failure")
	}

	files := 0
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			files++
		}
		return nil
	})
	if files != 0 {
		t.Errorf("%d stored files left behind; want none", files)
	}

	var count int64
	db.Model(&models.Receipt{}).Count(&count)
	if count != 0 {
		t.Errorf("receipt rows = %d; want none", count)
	}
}
