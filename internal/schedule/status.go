package schedule

import "time"

// Status is the badge shown next to a client in lists
type Status string

const (
	StatusOverdue    Status = "overdue"
	StatusPaid       Status = "paid"
	StatusAlmostDone Status = "almost_done"
	StatusInProgress Status = "in_progress"
	StatusNotStarted Status = "not_started"
)

// ContractState is the subset of a client used by the wall-clock heuristics
type ContractState struct {
	CreatedAt         time.Time
	PaymentDay        int
	ContractAmount    float64
	TotalPaid         float64
	FirstPayment      float64
	MonthlyPayment    float64
	InstallmentPeriod int
}

// MonthsElapsed counts calendar month boundaries crossed between from and now
func MonthsElapsed(from, now time.Time) int {
	return (now.Year()-from.Year())*12 + int(now.Month()) - int(from.Month())
}

// PaidPercent is total paid over the contract amount, in percent
func PaidPercent(totalPaid, contractAmount float64) float64 {
	if contractAmount <= 0 {
		return 0
	}
	return totalPaid / contractAmount * 100
}

// IsOverdue approximates whether the customer is behind: at least one month has passed,
// this month's payment day is behind us (or more than a month passed), the contract is not
// fully paid and the paid total is below the first payment plus the elapsed monthly payments.
// It works from wall-clock time, not installment state, so the two may disagree.
func IsOverdue(s ContractState, now time.Time) bool {
	months := MonthsElapsed(s.CreatedAt, now)
	if months <= 0 {
		return false
	}

	dayPassed := now.Day() > s.PaymentDay
	if !dayPassed && months <= 1 {
		return false
	}
	if PaidPercent(s.TotalPaid, s.ContractAmount) >= 100 {
		return false
	}

	counted := months
	if s.InstallmentPeriod < counted {
		counted = s.InstallmentPeriod
	}
	expected := s.FirstPayment + float64(counted)*s.MonthlyPayment
	return s.TotalPaid < expected
}

// ClientStatus picks the list badge for a contract
func ClientStatus(s ContractState, now time.Time) Status {
	if IsOverdue(s, now) {
		return StatusOverdue
	}

	percent := PaidPercent(s.TotalPaid, s.ContractAmount)
	switch {
	case percent >= 100:
		return StatusPaid
	case percent >= 50:
		return StatusAlmostDone
	case percent > 0:
		return StatusInProgress
	default:
		return StatusNotStarted
	}
}

// Progress is the paid/deposit breakdown shown on the client page
type Progress struct {
	PaidWithDeposit float64 `json:"paid_with_deposit"`
	Outstanding     float64 `json:"outstanding"`
	OverallPercent  float64 `json:"overall_percent"`
	DepositPercent  float64 `json:"deposit_percent"`
}

// ComputeProgress adds the deposit to the paid total; the deposit also has its own target.
func ComputeProgress(contractAmount, totalPaid, depositPaid, depositTarget float64) Progress {
	paidCents := cents(totalPaid, depositPaid)
	paid := paidCents.InexactFloat64()

	p := Progress{
		PaidWithDeposit: paid,
		Outstanding:     owed(cents(contractAmount), paidCents),
	}
	if contractAmount > 0 {
		p.OverallPercent = paid / contractAmount * 100
	}
	if depositTarget > 0 {
		p.DepositPercent = depositPaid / depositTarget * 100
	}
	return p
}
