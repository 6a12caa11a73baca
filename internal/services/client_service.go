package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"installment_app_echo/internal/auth"
	"installment_app_echo/internal/models"
	"installment_app_echo/internal/schedule"
)

type CreateClientRequest struct {
	FullName          string    `json:"full_name"`
	ContractDate      time.Time `json:"contract_date"`
	ContractAmount    float64   `json:"contract_amount"`
	InstallmentPeriod int       `json:"installment_period"`
	FirstPayment      float64   `json:"first_payment"`
	PaymentDay        int       `json:"payment_day"`
	DepositPaid       float64   `json:"deposit_paid"`
	DepositTarget     *float64  `json:"deposit_target"`
	EmployeeID        string    `json:"employee_id"`
}

type UpdateDepositRequest struct {
	DepositPaid   *float64 `json:"deposit_paid"`
	DepositTarget *float64 `json:"deposit_target"`
}

// ClientView is a client with the figures derived for display
type ClientView struct {
	models.Client
	EmployeeName string                     `json:"employee_name"`
	Status       schedule.Status            `json:"status"`
	IsOverdue    bool                       `json:"is_overdue"`
	Progress     schedule.Progress          `json:"progress"`
	Projection   schedule.BalanceProjection `json:"balance_projection"`
}

type ClientService struct {
	db      *gorm.DB
	storage ObjectStorage
	cache   *RedisCache
	now     func() time.Time
}

func NewClientService(db *gorm.DB, storage ObjectStorage, cache *RedisCache) *ClientService {
	return &ClientService{db: db, storage: storage, cache: cache, now: time.Now}
}

func validateTerms(amount, first float64, period, paymentDay int) error {
	switch {
	case amount <= 0:
		return fmt.Errorf("%w: contract amount must be positive", ErrValidation)
	case period <= 0:
		return fmt.Errorf("%w: installment period must be positive", ErrValidation)
	case first < 0 || first > amount:
		return fmt.Errorf("%w: first payment must be between 0 and the contract amount", ErrValidation)
	case paymentDay < 1 || paymentDay > 31:
		return fmt.Errorf("%w: payment day must be between 1 and 31", ErrValidation)
	}
	return nil
}

// Create stores a new contract owned by the caller. Only administrators may assign it to someone else.
func (s *ClientService) Create(ctx context.Context, session auth.Session, req CreateClientRequest) (*models.Client, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" {
		return nil, fmt.Errorf("%w: full name is required", ErrValidation)
	}
	if req.PaymentDay == 0 {
		req.PaymentDay = 1
	}
	if err := validateTerms(req.ContractAmount, req.FirstPayment, req.InstallmentPeriod, req.PaymentDay); err != nil {
		return nil, err
	}
	if req.DepositPaid < 0 {
		return nil, fmt.Errorf("%w: deposit cannot be negative", ErrValidation)
	}
	if req.ContractDate.IsZero() {
		req.ContractDate = s.now()
	}

	target := float64(models.DefaultDepositTarget)
	if req.DepositTarget != nil {
		target = *req.DepositTarget
	}

	employee := session.UserID
	if session.IsAdmin() && req.EmployeeID != "" {
		employee = req.EmployeeID
	}

	client := &models.Client{
		FullName:          req.FullName,
		ContractDate:      req.ContractDate,
		ContractAmount:    req.ContractAmount,
		InstallmentPeriod: req.InstallmentPeriod,
		FirstPayment:      req.FirstPayment,
		MonthlyPayment:    schedule.MonthlyPayment(req.ContractAmount, req.FirstPayment, req.InstallmentPeriod),
		RemainingAmount:   req.ContractAmount - req.FirstPayment,
		DepositPaid:       req.DepositPaid,
		DepositTarget:     target,
		PaymentDay:        req.PaymentDay,
		OwnerID:           session.UserID,
		EmployeeID:        employee,
	}
	if err := s.db.WithContext(ctx).Create(client).Error; err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	s.invalidateMetrics(ctx)
	return client, nil
}

// List returns the visible clients, newest first, optionally filtered by a case-insensitive name search
func (s *ClientService) List(ctx context.Context, session auth.Session, search string) ([]ClientView, error) {
	q := s.db.WithContext(ctx).Scopes(visibleTo(session)).Order("created_at desc")
	if search = strings.TrimSpace(search); search != "" {
		q = q.Where("LOWER(full_name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var clients []models.Client
	if err := q.Find(&clients).Error; err != nil {
		return nil, err
	}
	return s.views(ctx, clients)
}

// ListByEmployee returns the clients assigned to one employee
func (s *ClientService) ListByEmployee(ctx context.Context, session auth.Session, employeeID string) ([]ClientView, error) {
	if !session.IsAdmin() && session.UserID != employeeID {
		return nil, ErrForbidden
	}

	var clients []models.Client
	err := s.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("created_at desc").
		Find(&clients).Error
	if err != nil {
		return nil, err
	}
	return s.views(ctx, clients)
}

func (s *ClientService) Get(ctx context.Context, session auth.Session, id uint) (*ClientView, error) {
	client, err := findClient(s.db.WithContext(ctx), session, id)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, []models.Client{*client})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// UpdateDeposit edits the deposit and recomputes the remaining amount
func (s *ClientService) UpdateDeposit(ctx context.Context, session auth.Session, id uint, req UpdateDepositRequest) (*models.Client, error) {
	if req.DepositPaid != nil && *req.DepositPaid < 0 {
		return nil, fmt.Errorf("%w: deposit cannot be negative", ErrValidation)
	}
	if req.DepositTarget != nil && *req.DepositTarget < 0 {
		return nil, fmt.Errorf("%w: deposit target cannot be negative", ErrValidation)
	}

	var client *models.Client
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		client, err = lockClient(tx, session, id)
		if err != nil {
			return err
		}

		if req.DepositPaid != nil {
			client.DepositPaid = *req.DepositPaid
		}
		if req.DepositTarget != nil {
			client.DepositTarget = *req.DepositTarget
		}
		client.RemainingAmount = math.Max(0, client.ContractAmount-(client.TotalPaid+client.DepositPaid))

		return tx.Model(client).Updates(map[string]interface{}{
			"deposit_paid":     client.DepositPaid,
			"deposit_target":   client.DepositTarget,
			"remaining_amount": client.RemainingAmount,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Transfer reassigns a client, owner and assignee both, to another employee
func (s *ClientService) Transfer(ctx context.Context, session auth.Session, id uint, employeeID string) error {
	if !session.IsAdmin() {
		return ErrForbidden
	}
	if employeeID == "" {
		return fmt.Errorf("%w: employee is required", ErrValidation)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		client, err := lockClient(tx, session, id)
		if err != nil {
			return err
		}
		if err := tx.Model(client).Updates(map[string]interface{}{
			"user_id":     employeeID,
			"employee_id": employeeID,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Payment{}).Where("client_id = ?", id).Update("user_id", employeeID).Error
	})
	if err != nil {
		return err
	}

	s.invalidateMetrics(ctx)
	return nil
}

// Delete removes a client with its installments, receipt rows and receipt files
func (s *ClientService) Delete(ctx context.Context, session auth.Session, id uint) error {
	var paths []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		client, err := lockClient(tx, session, id)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.Receipt{}).Where("client_id = ?", client.ID).Pluck("file_path", &paths).Error; err != nil {
			return err
		}
		if err := tx.Where("client_id = ?", client.ID).Delete(&models.Receipt{}).Error; err != nil {
			return err
		}
		if err := tx.Where("client_id = ?", client.ID).Delete(&models.Payment{}).Error; err != nil {
			return err
		}
		return tx.Delete(client).Error
	})
	if err != nil {
		return err
	}

	for _, p := range paths {
		if err := s.storage.Delete(ctx, p); err != nil {
			log.Warn().Err(err).Str("path", p).Uint("client_id", id).Msg("failed to remove receipt file")
		}
	}

	s.invalidateMetrics(ctx)
	return nil
}

func (s *ClientService) views(ctx context.Context, clients []models.Client) ([]ClientView, error) {
	ids := make([]string, 0, len(clients))
	for _, c := range clients {
		if c.EmployeeID != "" {
			ids = append(ids, c.EmployeeID)
		}
	}
	names, err := profileNames(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]ClientView, 0, len(clients))
	for _, c := range clients {
		state := contractState(c)
		views = append(views, ClientView{
			Client:       c,
			EmployeeName: names[c.EmployeeID],
			Status:       schedule.ClientStatus(state, now),
			IsOverdue:    schedule.IsOverdue(state, now),
			Progress:     schedule.ComputeProgress(c.ContractAmount, c.TotalPaid, c.DepositPaid, c.DepositTarget),
			Projection:   schedule.ProjectByBalance(c.ContractAmount, c.TotalPaid, c.DepositPaid, c.MonthlyPayment, now),
		})
	}
	return views, nil
}

func (s *ClientService) invalidateMetrics(ctx context.Context) {
	invalidateMetrics(ctx, s.cache)
}

func contractState(c models.Client) schedule.ContractState {
	return schedule.ContractState{
		CreatedAt:         c.CreatedAt,
		PaymentDay:        c.PaymentDay,
		ContractAmount:    c.ContractAmount,
		TotalPaid:         c.TotalPaid,
		FirstPayment:      c.FirstPayment,
		MonthlyPayment:    c.MonthlyPayment,
		InstallmentPeriod: c.InstallmentPeriod,
	}
}
