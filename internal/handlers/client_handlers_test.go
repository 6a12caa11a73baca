package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/labstack/echo/v4"

	"installment_app_echo/internal/middleware"
	"installment_app_echo/internal/services"
)

type contractFixture struct {
	e     *echo.Echo
	token string
	other string
}

func newContractFixture(t *testing.T) *contractFixture {
	t.Helper()
	ctx := context.Background()

	db := newTestDB(t)
	storage, err := services.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	accounts := services.NewLocalAccounts(db)
	roles := services.NewRoleService(db, nil)
	verifier := newTestVerifier(t)

	emp, err := accounts.Create(ctx, "emp@example.com", "secret123", "Employee")
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}
	other, err := accounts.Create(ctx, "other@example.com", "secret123", "Other")
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}

	clients := NewClientHandler(services.NewClientService(db, storage, nil))
	payments := NewPaymentHandler(services.NewPaymentService(db, nil))
	receipts := NewReceiptHandler(services.NewReceiptService(db, storage, 1<<20))

	e := echo.New()
	e.HTTPErrorHandler = middleware.CustomErrorHandler
	api := e.Group("/api", middleware.RequireAuth(verifier, roles))
	api.POST("/clients", clients.CreateClient)
	api.GET("/clients/:id", clients.GetClient)
	api.GET("/clients/:id/payments", payments.GetSchedule)
	api.POST("/payments/:id/toggle", payments.TogglePayment)
	api.PUT("/payments/:id/amount", payments.SetCustomAmount)
	api.POST("/clients/:id/receipts", receipts.UploadReceipts)
	api.GET("/receipts/:id", receipts.DownloadReceipt)

	return &contractFixture{
		e:     e,
		token: issueToken(t, verifier, emp),
		other: issueToken(t, verifier, other),
	}
}

func (f *contractFixture) createClient(t *testing.T) uint {
	t.Helper()
	rec := doJSON(f.e, http.MethodPost, "/api/clients", f.token, `{
		"full_name": "Ivan Petrov",
		"contract_date": "2024-01-15",
		"contract_amount": 120000,
		"installment_period": 10,
		"first_payment": 20000,
		"payment_day": 15
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var client struct {
		ID             uint    `json:"id"`
		MonthlyPayment float64 `json:"monthly_payment"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &client); err != nil {
		t.Fatalf("decode client: %v", err)
	}
	if client.MonthlyPayment != 10000 {
		t.Errorf("monthly payment = %v, want 10000", client.MonthlyPayment)
	}
	return client.ID
}

func (f *contractFixture) uploadReceipt(t *testing.T, clientID uint, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="files"; filename="check.pdf"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	part.Write([]byte("%PDF-1.4 receipt"))
	w.Close()

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/clients/%d/receipts", clientID), &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+f.token)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func TestCreateClientRejectsBadInput(t *testing.T) {
	f := newContractFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"bad date", `{"full_name":"A","contract_date":"15.01.2024","contract_amount":1000,"installment_period":2}`},
		{"zero amount", `{"full_name":"A","contract_date":"2024-01-15","contract_amount":0,"installment_period":2}`},
		{"zero period", `{"full_name":"A","contract_date":"2024-01-15","contract_amount":1000,"installment_period":0}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(f.e, http.MethodPost, "/api/clients", f.token, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestClientIsHiddenFromOtherEmployees(t *testing.T) {
	f := newContractFixture(t)
	id := f.createClient(t)

	if rec := doJSON(f.e, http.MethodGet, fmt.Sprintf("/api/clients/%d", id), f.token, ""); rec.Code != http.StatusOK {
		t.Errorf("owner status = %d", rec.Code)
	}
	if rec := doJSON(f.e, http.MethodGet, fmt.Sprintf("/api/clients/%d", id), f.other, ""); rec.Code != http.StatusNotFound {
		t.Errorf("other employee status = %d, want 404", rec.Code)
	}
	if rec := doJSON(f.e, http.MethodGet, "/api/clients/abc", f.token, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rec.Code)
	}
}

func TestToggleNeedsReceiptOverHTTP(t *testing.T) {
	f := newContractFixture(t)
	id := f.createClient(t)

	rec := doJSON(f.e, http.MethodGet, fmt.Sprintf("/api/clients/%d/payments", id), f.token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("schedule status = %d, body %s", rec.Code, rec.Body.String())
	}
	var summary services.ScheduleSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode schedule: %v", err)
	}
	if len(summary.Payments) != 11 {
		t.Fatalf("got %d installments, want 11", len(summary.Payments))
	}
	first := summary.Payments[0].ID

	rec = doJSON(f.e, http.MethodPost, fmt.Sprintf("/api/payments/%d/toggle", first), f.token, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("toggle without receipt status = %d, want 409", rec.Code)
	}

	if rec := f.uploadReceipt(t, id, "application/x-msdownload"); rec.Code != http.StatusBadRequest {
		t.Errorf("disallowed type status = %d, want 400", rec.Code)
	}
	if rec := f.uploadReceipt(t, id, "application/pdf"); rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(f.e, http.MethodPost, fmt.Sprintf("/api/payments/%d/toggle", first), f.token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d, body %s", rec.Code, rec.Body.String())
	}
	var result services.ToggleResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode toggle: %v", err)
	}
	if !result.Payment.IsCompleted || result.TotalPaid != 20000 {
		t.Errorf("toggle result = %+v", result)
	}

	// one receipt covers one installment
	second := summary.Payments[1].ID
	rec = doJSON(f.e, http.MethodPost, fmt.Sprintf("/api/payments/%d/toggle", second), f.token, "")
	if rec.Code != http.StatusConflict {
		t.Errorf("second toggle status = %d, want 409", rec.Code)
	}
}

func TestDownloadReceiptKeepsFileName(t *testing.T) {
	f := newContractFixture(t)
	id := f.createClient(t)

	rec := f.uploadReceipt(t, id, "application/pdf")
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body.String())
	}
	var uploaded struct {
		Results []services.UploadResult `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &uploaded); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	receiptID := uploaded.Results[0].Receipt.ID

	rec = doJSON(f.e, http.MethodGet, fmt.Sprintf("/api/receipts/%d", receiptID), f.token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("download status = %d", rec.Code)
	}
	if got := rec.Header().Get(echo.HeaderContentDisposition); got != `attachment; filename=check.pdf` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if rec.Body.String() != "%PDF-1.4 receipt" {
		t.Errorf("body = %q", rec.Body.String())
	}

	if rec := doJSON(f.e, http.MethodGet, fmt.Sprintf("/api/receipts/%d", receiptID), f.other, ""); rec.Code != http.StatusNotFound {
		t.Errorf("other employee download status = %d, want 404", rec.Code)
	}
}

func TestSetCustomAmountBody(t *testing.T) {
	f := newContractFixture(t)
	id := f.createClient(t)

	rec := doJSON(f.e, http.MethodGet, fmt.Sprintf("/api/clients/%d/payments", id), f.token, "")
	var summary services.ScheduleSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode schedule: %v", err)
	}
	target := fmt.Sprintf("/api/payments/%d/amount", summary.Payments[1].ID)

	tests := []struct {
		name      string
		body      string
		status    int
		effective float64
		cleared   bool
	}{
		{"override", `{"custom_amount": 7500}`, http.StatusOK, 7500, false},
		{"missing key rejected", `{"amount": 5}`, http.StatusBadRequest, 0, false},
		{"not a number", `{"custom_amount": "lots"}`, http.StatusBadRequest, 0, false},
		{"explicit null clears", `{"custom_amount": null}`, http.StatusOK, 10000, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(f.e, http.MethodPut, target, f.token, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}
			var view services.PaymentView
			if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
				t.Fatalf("decode payment: %v", err)
			}
			if view.EffectiveAmount != tt.effective {
				t.Errorf("effective amount = %v, want %v", view.EffectiveAmount, tt.effective)
			}
			if (view.CustomAmount == nil) != tt.cleared {
				t.Errorf("custom amount = %v, cleared want %v", view.CustomAmount, tt.cleared)
			}
		})
	}
}
