package models

import (
	"time"
)

// Role is the access level of an account
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleEmployee
}

// Profile holds the display name of an account
type Profile struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID   string `gorm:"type:varchar(128);uniqueIndex;not null" json:"user_id"`
	FullName string `gorm:"type:varchar(255)" json:"full_name"`
}

// UserRole assigns a role to an account. Accounts without a row are employees.
type UserRole struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID    string `gorm:"type:varchar(128);uniqueIndex;not null" json:"user_id"`
	Role      Role   `gorm:"type:varchar(20);not null;default:'employee'" json:"role"`
	CreatedBy string `gorm:"type:varchar(128)" json:"created_by"`
}

// Account is a locally managed login, used when no external identity provider is configured
type Account struct {
	UID       string    `gorm:"primaryKey;type:varchar(128)" json:"uid"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Email        string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null" json:"-"`
	FullName     string `gorm:"type:varchar(255)" json:"full_name"`
}
