package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"installment_app_echo/internal/auth"
	"installment_app_echo/internal/models"
	"installment_app_echo/internal/schedule"
)

// PaymentView is an installment with its effective amount resolved
type PaymentView struct {
	models.Payment
	EffectiveAmount float64 `json:"effective_amount"`
}

// ScheduleSummary is everything the payment schedule screen needs for one client
type ScheduleSummary struct {
	ClientID       uint                `json:"client_id"`
	Payments       []PaymentView       `json:"payments"`
	TotalPaid      float64             `json:"total_paid"`
	CompletedCount int64               `json:"completed_count"`
	ReceiptCount   int64               `json:"receipt_count"`
	CanComplete    bool                `json:"can_complete"`
	Projection     schedule.Projection `json:"projection"`
}

type ToggleResult struct {
	Payment   PaymentView `json:"payment"`
	TotalPaid float64     `json:"total_paid"`
}

// PaymentService owns installment schedules and their completion state
type PaymentService struct {
	db    *gorm.DB
	cache *RedisCache
	now   func() time.Time
}

func NewPaymentService(db *gorm.DB, cache *RedisCache) *PaymentService {
	return &PaymentService{db: db, cache: cache, now: time.Now}
}

func listPayments(db *gorm.DB, clientID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := db.Where("client_id = ?", clientID).Order("payment_number asc").Find(&payments).Error
	return payments, err
}

// EnsureSchedule returns the installments of a client, generating and storing them
// in one batch when none exist yet.
func (s *PaymentService) EnsureSchedule(ctx context.Context, session auth.Session, clientID uint) ([]models.Payment, error) {
	db := s.db.WithContext(ctx)

	client, err := findClient(db, session, clientID)
	if err != nil {
		return nil, err
	}

	payments, err := listPayments(db, clientID)
	if err != nil {
		return nil, err
	}
	if len(payments) > 0 {
		return payments, nil
	}

	installments, err := schedule.Generate(schedule.Terms{
		ContractDate:   client.ContractDate,
		FirstPayment:   client.FirstPayment,
		MonthlyPayment: client.MonthlyPayment,
		Period:         client.InstallmentPeriod,
		PaymentDay:     client.PaymentDay,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	rows := make([]models.Payment, 0, len(installments))
	for _, inst := range installments {
		rows = append(rows, models.Payment{
			ClientID:       client.ID,
			OwnerID:        client.OwnerID,
			PaymentNumber:  inst.Number,
			OriginalAmount: inst.Amount,
			DueDate:        inst.DueDate,
			PaymentType:    inst.Type,
		})
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rows).Error
	})
	if err != nil {
		// Another request may have generated the schedule first; the unique index rejects ours.
		existing, listErr := listPayments(db, clientID)
		if listErr == nil && len(existing) > 0 {
			return existing, nil
		}
		return nil, fmt.Errorf("generate schedule: %w", err)
	}
	return rows, nil
}

// Summary returns the schedule of a client with counts and projection
func (s *PaymentService) Summary(ctx context.Context, session auth.Session, clientID uint) (*ScheduleSummary, error) {
	payments, err := s.EnsureSchedule(ctx, session, clientID)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	client, err := findClient(db, session, clientID)
	if err != nil {
		return nil, err
	}
	receipts, err := countReceipts(db, clientID)
	if err != nil {
		return nil, err
	}

	summary := &ScheduleSummary{
		ClientID:     clientID,
		Payments:     make([]PaymentView, 0, len(payments)),
		TotalPaid:    client.TotalPaid,
		ReceiptCount: receipts,
		Projection:   schedule.Project(payments, s.now()),
	}
	for _, p := range payments {
		if p.IsCompleted {
			summary.CompletedCount++
		}
		summary.Payments = append(summary.Payments, toPaymentView(p))
	}
	summary.CanComplete = schedule.CanComplete(summary.CompletedCount, receipts)
	return summary, nil
}

// Toggle flips the completion of one installment and adjusts the client's paid total in the
// same transaction. Completing is refused unless more receipts exist than completed installments.
func (s *PaymentService) Toggle(ctx context.Context, session auth.Session, paymentID uint) (*ToggleResult, error) {
	var result ToggleResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := findPayment(tx, paymentID)
		if err != nil {
			return err
		}
		client, err := lockClient(tx, session, payment.ClientID)
		if err != nil {
			return err
		}
		// re-read under the client lock
		if payment, err = findPayment(tx, paymentID); err != nil {
			return err
		}

		completing := !payment.IsCompleted
		if completing {
			completed, err := countCompleted(tx, client.ID)
			if err != nil {
				return err
			}
			receipts, err := countReceipts(tx, client.ID)
			if err != nil {
				return err
			}
			if !schedule.CanComplete(completed, receipts) {
				return ErrReceiptRequired
			}
		}

		var completedAt *time.Time
		if completing {
			now := s.now()
			completedAt = &now
		}
		if err := tx.Model(payment).Updates(map[string]interface{}{
			"is_completed": completing,
			"completed_at": completedAt,
		}).Error; err != nil {
			return err
		}
		payment.IsCompleted = completing
		payment.CompletedAt = completedAt

		amount := schedule.EffectiveAmount(payment.OriginalAmount, payment.CustomAmount)
		total := schedule.ApplyToggle(client.TotalPaid, amount, completing)
		if err := tx.Model(client).Update("total_paid", total).Error; err != nil {
			return err
		}

		result = ToggleResult{Payment: toPaymentView(*payment), TotalPaid: total}
		return nil
	})
	if err != nil {
		return nil, err
	}

	invalidateMetrics(ctx, s.cache)
	return &result, nil
}

// SetCustomAmount overrides the amount of one installment; nil clears the override.
// The client's paid total is left as it is, even for completed installments.
func (s *PaymentService) SetCustomAmount(ctx context.Context, session auth.Session, paymentID uint, amount *float64) (*PaymentView, error) {
	if amount != nil && *amount < 0 {
		return nil, fmt.Errorf("%w: amount cannot be negative", ErrValidation)
	}

	var view PaymentView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := findPayment(tx, paymentID)
		if err != nil {
			return err
		}
		if _, err := findClient(tx, session, payment.ClientID); err != nil {
			return err
		}
		if err := tx.Model(payment).Update("custom_amount", amount).Error; err != nil {
			return err
		}
		payment.CustomAmount = amount
		view = toPaymentView(*payment)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func findPayment(db *gorm.DB, id uint) (*models.Payment, error) {
	var payment models.Payment
	err := db.First(&payment, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func countCompleted(db *gorm.DB, clientID uint) (int64, error) {
	var n int64
	err := db.Model(&models.Payment{}).Where("client_id = ? AND is_completed = ?", clientID, true).Count(&n).Error
	return n, err
}

func countReceipts(db *gorm.DB, clientID uint) (int64, error) {
	var n int64
	err := db.Model(&models.Receipt{}).Where("client_id = ?", clientID).Count(&n).Error
	return n, err
}

func toPaymentView(p models.Payment) PaymentView {
	return PaymentView{Payment: p, EffectiveAmount: schedule.EffectiveAmount(p.OriginalAmount, p.CustomAmount)}
}
