package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"installment_app_echo/internal/services"
)

type PaymentHandler struct {
	payments *services.PaymentService
}

func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// customAmountRequest keeps custom_amount raw so an explicit null (clear) differs from a missing key
type customAmountRequest struct {
	Amount json.RawMessage `json:"custom_amount"`
}

func (r customAmountRequest) amount() (*float64, error) {
	if len(r.Amount) == 0 {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "custom_amount is required")
	}
	if bytes.Equal(bytes.TrimSpace(r.Amount), []byte("null")) {
		return nil, nil
	}
	var v float64
	if err := json.Unmarshal(r.Amount, &v); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "custom_amount must be a number or null")
	}
	return &v, nil
}

// GetSchedule returns the installments of a client, generating them on first view
func (h *PaymentHandler) GetSchedule(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	summary, err := h.payments.Summary(c.Request().Context(), s, id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *PaymentHandler) TogglePayment(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	result, err := h.payments.Toggle(c.Request().Context(), s, id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *PaymentHandler) SetCustomAmount(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req customAmountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	amount, err := req.amount()
	if err != nil {
		return err
	}

	payment, err := h.payments.SetCustomAmount(c.Request().Context(), s, id, amount)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, payment)
}
