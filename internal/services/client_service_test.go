package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"installment_app_echo/internal/models"
	"installment_app_echo/internal/schedule"
)

func TestCreateClientDerivesTerms(t *testing.T) {
	db := newTestDB(t)
	svc := NewClientService(db, newTestStorage(t), nil)

	client := createContract(t, svc, employeeSession, "Ivan Petrov")
	if client.MonthlyPayment != 10000 {
		t.Errorf("monthly payment = %v; want 10000", client.MonthlyPayment)
	}
	if client.RemainingAmount != 100000 {
		t.Errorf("remaining = %v; want 100000", client.RemainingAmount)
	}
	if client.DepositTarget != models.DefaultDepositTarget {
		t.Errorf("deposit target = %v; want default", client.DepositTarget)
	}
	if client.OwnerID != "emp-1" || client.EmployeeID != "emp-1" {
		t.Errorf("owner/employee = %s/%s", client.OwnerID, client.EmployeeID)
	}
}

func TestCreateClientValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewClientService(db, newTestStorage(t), nil)

	tests := []struct {
		name string
		req  CreateClientRequest
	}{
		{name: "missing name", req: CreateClientRequest{ContractAmount: 1000, InstallmentPeriod: 2}},
		{name: "zero amount", req: CreateClientRequest{FullName: "A", InstallmentPeriod: 2}},
		{name: "zero period", req: CreateClientRequest{FullName: "A", ContractAmount: 1000}},
		{name: "first payment above amount", req: CreateClientRequest{FullName: "A", ContractAmount: 1000, FirstPayment: 2000, InstallmentPeriod: 2}},
		{name: "payment day out of range", req: CreateClientRequest{FullName: "A", ContractAmount: 1000, InstallmentPeriod: 2, PaymentDay: 32}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), employeeSession, tt.req)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("error = %v; want ErrValidation", err)
			}
		})
	}
}

func TestEmployeeAssignmentRequiresAdmin(t *testing.T) {
	db := newTestDB(t)
	svc := NewClientService(db, newTestStorage(t), nil)
	ctx := context.Background()

	req := CreateClientRequest{FullName: "A", ContractAmount: 1000, InstallmentPeriod: 2, EmployeeID: "emp-2"}

	byEmployee, err := svc.Create(ctx, employeeSession, req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if byEmployee.EmployeeID != "emp-1" {
		t.Errorf("employee-created client assigned to %s; want emp-1", byEmployee.EmployeeID)
	}

	byAdmin, err := svc.Create(ctx, adminSession, req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if byAdmin.EmployeeID != "emp-2" || byAdmin.OwnerID != "admin-1" {
		t.Errorf("admin-created client owner/employee = %s/%s", byAdmin.OwnerID, byAdmin.EmployeeID)
	}
}

func TestClientVisibility(t *testing.T) {
	db := newTestDB(t)
	svc := NewClientService(db, newTestStorage(t), nil)
	ctx := context.Background()

	mine := createContract(t, svc, employeeSession, "Ivan Petrov")
	createContract(t, svc, otherSession, "Anna Smirnova")
	assigned, err := svc.Create(ctx, adminSession, CreateClientRequest{
		FullName: "Oleg Ivanov", ContractAmount: 5000, InstallmentPeriod: 5, EmployeeID: "emp-1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	list, err := svc.List(ctx, employeeSession, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("employee sees %d clients; want 2", len(list))
	}

	all, _ := svc.List(ctx, adminSession, "")
	if len(all) != 3 {
		t.Errorf("admin sees %d clients; want 3", len(all))
	}

	found, _ := svc.List(ctx, adminSession, "IVAN")
	if len(found) != 2 {
		t.Errorf("search found %d clients; want 2", len(found))
	}

	if _, err := svc.Get(ctx, otherSession, mine.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign Get error = %v; want ErrNotFound", err)
	}
	if _, err := svc.Get(ctx, employeeSession, assigned.ID); err != nil {
		t.Errorf("assigned Get: %v", err)
	}
}

func TestClientViewStatus(t *testing.T) {
	db := newTestDB(t)
	svc := NewClientService(db, newTestStorage(t), nil)

	client := createContract(t, svc, employeeSession, "Ivan Petrov")
	view, err := svc.Get(context.Background(), employeeSession, client.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if view.Status != schedule.StatusNotStarted || view.IsOverdue {
		t.Errorf("status = %s overdue=%v", view.Status, view.IsOverdue)
	}
	if view.Projection.MonthsRemaining != 12 {
		t.Errorf("balance months = %d; want 12", view.Projection.MonthsRemaining)
	}
}

func TestUpdateDepositRecomputesRemaining(t *testing.T) {
	db := newTestDB(t)
	svc := NewClientService(db, newTestStorage(t), nil)
	ctx := context.Background()

	client := createContract(t, svc, employeeSession, "Ivan Petrov")
	db.Model(client).Update("total_paid", 30000)

	deposit := 15000.0
	updated, err := svc.UpdateDeposit(ctx, employeeSession, client.ID, UpdateDepositRequest{DepositPaid: &deposit})
	if err != nil {
		t.Fatalf("UpdateDeposit: %v", err)
	}
	if updated.RemainingAmount != 75000 {
		t.Errorf("remaining = %v; want 75000", updated.RemainingAmount)
	}

	huge := 500000.0
	updated, _ = svc.UpdateDeposit(ctx, employeeSession, client.ID, UpdateDepositRequest{DepositPaid: &huge})
	if updated.RemainingAmount != 0 {
		t.Errorf("remaining = %v; want 0", updated.RemainingAmount)
	}
}

func TestTransferRequiresAdmin(t *testing.T) {
	db := newTestDB(t)
	svc := NewClientService(db, newTestStorage(t), nil)
	payments := NewPaymentService(db, nil)
	ctx := context.Background()

	client := createContract(t, svc, employeeSession, "Ivan Petrov")
	if _, err := payments.EnsureSchedule(ctx, employeeSession, client.ID); err != nil {
		t.Fatalf("EnsureSchedule: %v", err)
	}

	if err := svc.Transfer(ctx, employeeSession, client.ID, "emp-2"); !errors.Is(err, ErrForbidden) {
		t.Errorf("employee transfer error = %v; want ErrForbidden", err)
	}
	if err := svc.Transfer(ctx, adminSession, client.ID, "emp-2"); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	if _, err := svc.Get(ctx, employeeSession, client.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("previous employee still sees client: %v", err)
	}
	if _, err := svc.Get(ctx, otherSession, client.ID); err != nil {
		t.Errorf("new employee Get: %v", err)
	}

	var moved int64
	db.Model(&models.Payment{}).Where("client_id = ? AND user_id = ?", client.ID, "emp-2").Count(&moved)
	if moved != 11 {
		t.Errorf("installments moved = %d; want 11", moved)
	}
}

func TestDeleteClientCascades(t *testing.T) {
	db := newTestDB(t)
	root := t.TempDir()
	storage, _ := NewLocalStorage(root)
	clients := NewClientService(db, storage, nil)
	payments := NewPaymentService(db, nil)
	receipts := NewReceiptService(db, storage, 1024)
	ctx := context.Background()

	client := createContract(t, clients, employeeSession, "Ivan Petrov")
	if _, err := payments.EnsureSchedule(ctx, employeeSession, client.ID); err != nil {
		t.Fatalf("EnsureSchedule: %v", err)
	}
	receipt, err := receipts.Upload(ctx, employeeSession, client.ID, ReceiptUpload{
		FileName: "check.pdf", ContentType: "application/pdf", Size: 3, Body: strings.NewReader("pdf"),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if err := clients.Delete(ctx, otherSession, client.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign delete error = %v; want ErrNotFound", err)
	}
	if err := clients.Delete(ctx, employeeSession, client.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	var nPayments, nReceipts, nClients int64
	db.Model(&models.Payment{}).Count(&nPayments)
	db.Model(&models.Receipt{}).Count(&nReceipts)
	db.Model(&models.Client{}).Count(&nClients)
	if nPayments != 0 || nReceipts != 0 || nClients != 0 {
		t.Errorf("rows left: payments=%d receipts=%d clients=%d", nPayments, nReceipts, nClients)
	}
	if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(receipt.FilePath))); !os.IsNotExist(err) {
		t.Errorf("receipt file still present: %v", err)
	}
}
