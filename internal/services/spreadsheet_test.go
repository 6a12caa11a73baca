package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"installment_app_echo/internal/models"
)

func buildWorkbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			if err := f.SetCellValue("Sheet1", cell, v); err != nil {
				t.Fatalf("SetCellValue: %v", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return &buf
}

func TestImportClients(t *testing.T) {
	db := newTestDB(t)
	svc := NewSpreadsheetService(db, nil)
	svc.now = func() time.Time { return time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	db.Create(&models.Profile{UserID: "emp-2", FullName: "Anna Smirnova"})

	header := []interface{}{colFullName, colEmployee, colEmployeeID, colContractDate, colContractAmount, colPeriod, colFirstPayment, colMonthlyPayment, colPaymentDay}
	buf := buildWorkbook(t, [][]interface{}{
		header,
		{"Ivan Petrov", "Anna Smirnova", "", "15.01.2024", "120000", "10", "20000", "", "15"},
		{"", "", "", "15.01.2024", "5000", "5", "0", "", ""},
		{"No Amount", "", "", "15.01.2024", "abc", "5", "0", "", ""},
		{"Slash Date", noEmployeeLabel, "", "20/02/2024", "60 000", "6", "0", "10000", "40"},
		{"Unknown Id", "", "missing-user", "garbage", "3000", "3", "0", "", "1"},
		{"Short Date", "", "", "5.3.2024", "120000", "10", "0", "", ""},
		{"Not A Number", "", "", "15.01.2024", "NaN", "10", "0", "", ""},
		{"Infinite", "", "", "15.01.2024", "Inf", "10", "0", "", ""},
	})

	res, err := svc.Import(ctx, adminSession, buf)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Imported != 4 || res.Errors != 4 {
		t.Fatalf("imported=%d errors=%d; want 4/4 (%v)", res.Imported, res.Errors, res.Messages)
	}

	var ivan models.Client
	db.Where("full_name = ?", "Ivan Petrov").First(&ivan)
	if ivan.MonthlyPayment != 10000 {
		t.Errorf("derived monthly payment = %v; want 10000", ivan.MonthlyPayment)
	}
	if ivan.EmployeeID != "emp-2" {
		t.Errorf("employee = %s; want emp-2", ivan.EmployeeID)
	}
	if !ivan.ContractDate.Equal(time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("contract date = %v", ivan.ContractDate)
	}
	if ivan.DepositTarget != models.DefaultDepositTarget || ivan.PaymentDay != 15 {
		t.Errorf("deposit target/payment day = %v/%d", ivan.DepositTarget, ivan.PaymentDay)
	}

	var slash models.Client
	db.Where("full_name = ?", "Slash Date").First(&slash)
	if slash.ContractAmount != 60000 || slash.PaymentDay != 1 || slash.EmployeeID != "admin-1" {
		t.Errorf("slash row = amount %v day %d employee %s", slash.ContractAmount, slash.PaymentDay, slash.EmployeeID)
	}
	if !slash.ContractDate.Equal(time.Date(2024, time.February, 20, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("slash contract date = %v", slash.ContractDate)
	}

	var unknown models.Client
	db.Where("full_name = ?", "Unknown Id").First(&unknown)
	if unknown.EmployeeID != "admin-1" {
		t.Errorf("unknown employee id resolved to %s; want importer", unknown.EmployeeID)
	}
	if !unknown.ContractDate.Equal(time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unparseable date = %v; want today", unknown.ContractDate)
	}

	var short models.Client
	db.Where("full_name = ?", "Short Date").First(&short)
	if !short.ContractDate.Equal(time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("single-digit date = %v; want 2024-03-05", short.ContractDate)
	}

	var count int64
	db.Model(&models.Client{}).Where("full_name IN ?", []string{"Not A Number", "Infinite"}).Count(&count)
	if count != 0 {
		t.Errorf("%d rows with non-finite amounts were imported", count)
	}
}

func TestExportClients(t *testing.T) {
	db := newTestDB(t)
	clients := NewClientService(db, newTestStorage(t), nil)
	svc := NewSpreadsheetService(db, nil)
	ctx := context.Background()

	db.Create(&models.Profile{UserID: "emp-1", FullName: "Pavel Orlov"})
	createContract(t, clients, employeeSession, "Ivan Petrov")
	createContract(t, clients, otherSession, "Anna Smirnova")

	var buf bytes.Buffer
	n, err := svc.Export(ctx, employeeSession, &buf)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 1 {
		t.Errorf("exported %d clients; want 1", n)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(clientsSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d; want 2", len(rows))
	}
	if len(rows[0]) != len(exportColumns) || rows[0][1] != colFullName {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][1] != "Ivan Petrov" || rows[1][2] != "Pavel Orlov" || rows[1][4] != "15.01.2024" {
		t.Errorf("data row = %v", rows[1])
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"120000", 120000},
		{"120 000", 120000},
		{"1200,50", 1200.5},
		{"", 0},
		{"n/a", 0},
		{"NaN", 0},
		{"Inf", 0},
		{"-Infinity", 0},
	}
	for _, tt := range tests {
		if got := parseNumber(tt.input); got != tt.expected {
			t.Errorf("parseNumber(%q) = %v; want %v", tt.input, got, tt.expected)
		}
	}
}
