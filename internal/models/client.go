package models

import (
	"time"
)

// DefaultDepositTarget is applied to new clients when no target is given.
const DefaultDepositTarget = 50000

// Client is an installment contract with a customer
type Client struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	FullName          string    `gorm:"type:varchar(255);not null;index" json:"full_name"`
	ContractDate      time.Time `gorm:"type:date;not null" json:"contract_date"`
	ContractAmount    float64   `gorm:"type:decimal(15,2);not null" json:"contract_amount"`
	InstallmentPeriod int       `gorm:"not null" json:"installment_period"`
	FirstPayment      float64   `gorm:"type:decimal(15,2);not null;default:0" json:"first_payment"`
	MonthlyPayment    float64   `gorm:"type:decimal(15,2);not null;default:0" json:"monthly_payment"`
	RemainingAmount   float64   `gorm:"type:decimal(15,2);not null;default:0" json:"remaining_amount"`
	TotalPaid         float64   `gorm:"type:decimal(15,2);not null;default:0" json:"total_paid"`
	DepositPaid       float64   `gorm:"type:decimal(15,2);not null;default:0" json:"deposit_paid"`
	DepositTarget     float64   `gorm:"type:decimal(15,2);not null;default:50000" json:"deposit_target"`
	PaymentDay        int       `gorm:"not null;default:1" json:"payment_day"`

	// OwnerID is the account that owns the record; EmployeeID is the assignee.
	OwnerID    string `gorm:"column:user_id;type:varchar(128);index" json:"user_id"`
	EmployeeID string `gorm:"type:varchar(128);index" json:"employee_id"`

	// Relationships
	Payments []Payment `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE" json:"payments,omitempty"`
	Receipts []Receipt `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE" json:"receipts,omitempty"`
}
