// Package schedule derives installment schedules and progress figures from contract terms.
// Nothing here touches the database; callers pass the current time explicitly.
package schedule

import (
	"errors"
	"time"

	"installment_app_echo/internal/models"
)

var (
	ErrInvalidPeriod     = errors.New("installment period must be positive")
	ErrInvalidPaymentDay = errors.New("payment day must be between 1 and 31")
)

// Terms are the contract parameters a schedule is generated from
type Terms struct {
	ContractDate   time.Time
	FirstPayment   float64
	MonthlyPayment float64
	Period         int
	PaymentDay     int
}

// Installment is one generated row of a schedule
type Installment struct {
	Number  int
	Amount  float64
	DueDate time.Time
	Type    models.PaymentType
}

// MonthlyPayment splits what is left after the first payment evenly across the period
func MonthlyPayment(contractAmount, firstPayment float64, period int) float64 {
	if period <= 0 {
		return 0
	}
	return (contractAmount - firstPayment) / float64(period)
}

// Generate builds the period+1 installments of a contract: the first payment on the
// contract date, then one monthly payment per month on the payment day.
func Generate(t Terms) ([]Installment, error) {
	if t.Period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if t.PaymentDay < 1 || t.PaymentDay > 31 {
		return nil, ErrInvalidPaymentDay
	}

	start := truncateToDay(t.ContractDate)
	installments := make([]Installment, 0, t.Period+1)
	installments = append(installments, Installment{
		Number:  0,
		Amount:  t.FirstPayment,
		DueDate: start,
		Type:    models.PaymentTypeFirst,
	})

	for i := 1; i <= t.Period; i++ {
		installments = append(installments, Installment{
			Number:  i,
			Amount:  t.MonthlyPayment,
			DueDate: AddMonthsOnDay(start, i, t.PaymentDay),
			Type:    models.PaymentTypeMonthly,
		})
	}
	return installments, nil
}

// AddMonthsOnDay moves start forward by months and pins the day of month to day,
// clamped to the last day of the target month.
func AddMonthsOnDay(start time.Time, months, day int) time.Time {
	y, m, _ := start.Date()
	target := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, start.Location())

	last := DaysInMonth(target.Year(), target.Month())
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(target.Year(), target.Month(), day, 0, 0, 0, 0, start.Location())
}

// DaysInMonth returns the number of days in the given month
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
