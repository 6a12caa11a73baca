package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"installment_app_echo/internal/services"
)

type ClientHandler struct {
	clients *services.ClientService
}

func NewClientHandler(clients *services.ClientService) *ClientHandler {
	return &ClientHandler{clients: clients}
}

type createClientRequest struct {
	FullName          string   `json:"full_name"`
	ContractDate      string   `json:"contract_date"`
	ContractAmount    float64  `json:"contract_amount"`
	InstallmentPeriod int      `json:"installment_period"`
	FirstPayment      float64  `json:"first_payment"`
	PaymentDay        int      `json:"payment_day"`
	DepositPaid       float64  `json:"deposit_paid"`
	DepositTarget     *float64 `json:"deposit_target"`
	EmployeeID        string   `json:"employee_id"`
}

type transferRequest struct {
	EmployeeID string `json:"employee_id"`
}

// ListClients returns the caller's visible clients; ?search filters by name
func (h *ClientHandler) ListClients(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	clients, err := h.clients.List(c.Request().Context(), s, c.QueryParam("search"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, clients)
}

func (h *ClientHandler) CreateClient(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}

	var req createClientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var contractDate time.Time
	if d := strings.TrimSpace(req.ContractDate); d != "" {
		contractDate, err = time.Parse("2006-01-02", d)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "contract_date must be YYYY-MM-DD")
		}
	}

	client, err := h.clients.Create(c.Request().Context(), s, services.CreateClientRequest{
		FullName:          req.FullName,
		ContractDate:      contractDate,
		ContractAmount:    req.ContractAmount,
		InstallmentPeriod: req.InstallmentPeriod,
		FirstPayment:      req.FirstPayment,
		PaymentDay:        req.PaymentDay,
		DepositPaid:       req.DepositPaid,
		DepositTarget:     req.DepositTarget,
		EmployeeID:        req.EmployeeID,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, client)
}

func (h *ClientHandler) GetClient(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	client, err := h.clients.Get(c.Request().Context(), s, id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, client)
}

func (h *ClientHandler) UpdateDeposit(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req services.UpdateDepositRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	client, err := h.clients.UpdateDeposit(c.Request().Context(), s, id, req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, client)
}

func (h *ClientHandler) TransferClient(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req transferRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.clients.Transfer(c.Request().Context(), s, id, req.EmployeeID); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "transferred"})
}

func (h *ClientHandler) DeleteClient(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.clients.Delete(c.Request().Context(), s, id); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListEmployeeClients returns the clients assigned to one employee
func (h *ClientHandler) ListEmployeeClients(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	clients, err := h.clients.ListByEmployee(c.Request().Context(), s, c.Param("userId"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, clients)
}
