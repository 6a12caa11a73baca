package schedule

import (
	"math"
	"time"

	"installment_app_echo/internal/models"
)

// Projection summarises what is left of a schedule
type Projection struct {
	RemainingInstallments int       `json:"remaining_installments"`
	CompletionDate        time.Time `json:"projected_completion_date"`
}

// Project counts incomplete installments and takes the latest due date among them as the
// completion date. A fully completed schedule completes today.
func Project(payments []models.Payment, now time.Time) Projection {
	p := Projection{CompletionDate: truncateToDay(now)}

	var latest time.Time
	for _, payment := range payments {
		if payment.IsCompleted {
			continue
		}
		p.RemainingInstallments++
		if payment.DueDate.After(latest) {
			latest = payment.DueDate
		}
	}
	if p.RemainingInstallments > 0 {
		p.CompletionDate = latest
	}
	return p
}

// BalanceProjection estimates completion from the outstanding balance alone
type BalanceProjection struct {
	RemainingAmount float64   `json:"remaining_amount"`
	MonthsRemaining int       `json:"months_remaining"`
	CompletionDate  time.Time `json:"projected_completion_date"`
}

// ProjectByBalance divides what is still owed (deposit counts as paid) by the monthly
// payment and projects that many months from today.
func ProjectByBalance(contractAmount, totalPaid, depositPaid, monthlyPayment float64, now time.Time) BalanceProjection {
	remaining := owed(cents(contractAmount), cents(totalPaid, depositPaid))

	months := 0
	if monthlyPayment > 0 {
		months = int(math.Ceil(remaining / monthlyPayment))
	}

	return BalanceProjection{
		RemainingAmount: remaining,
		MonthsRemaining: months,
		CompletionDate:  truncateToDay(now).AddDate(0, months, 0),
	}
}
