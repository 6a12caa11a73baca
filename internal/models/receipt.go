package models

import (
	"time"
)

// Receipt is an uploaded proof-of-payment file attached to a client
type Receipt struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ClientID   uint      `gorm:"not null;index" json:"client_id"`
	UserID     string    `gorm:"type:varchar(128);not null" json:"user_id"`
	PaymentID  *uint     `json:"payment_id,omitempty"`
	FileName   string    `gorm:"type:varchar(255);not null" json:"file_name"`
	FilePath   string    `gorm:"type:varchar(512);not null" json:"file_path"`
	FileSize   int64     `gorm:"not null" json:"file_size"`
	MimeType   string    `gorm:"type:varchar(128);not null" json:"mime_type"`
	UploadedAt time.Time `gorm:"not null" json:"uploaded_at"`
}

// TableName keeps the storage name used by existing deployments
func (Receipt) TableName() string {
	return "payment_receipts"
}
