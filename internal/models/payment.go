package models

import (
	"time"
)

// PaymentType tags an installment as the first payment or a monthly one
type PaymentType string

const (
	PaymentTypeFirst   PaymentType = "first"
	PaymentTypeMonthly PaymentType = "monthly"
)

// Payment is one scheduled installment of a client's contract.
// Installments are created once per client; (client_id, payment_number) is unique.
type Payment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ClientID       uint        `gorm:"not null;uniqueIndex:idx_payments_client_number,priority:1" json:"client_id"`
	OwnerID        string      `gorm:"column:user_id;type:varchar(128)" json:"user_id"`
	PaymentNumber  int         `gorm:"not null;uniqueIndex:idx_payments_client_number,priority:2" json:"payment_number"`
	OriginalAmount float64     `gorm:"type:decimal(15,2);not null" json:"original_amount"`
	CustomAmount   *float64    `gorm:"type:decimal(15,2)" json:"custom_amount"`
	DueDate        time.Time   `gorm:"type:date;not null" json:"due_date"`
	IsCompleted    bool        `gorm:"not null;default:false" json:"is_completed"`
	CompletedAt    *time.Time  `json:"completed_at"`
	PaymentType    PaymentType `gorm:"type:varchar(20);not null;default:'monthly'" json:"payment_type"`
}
