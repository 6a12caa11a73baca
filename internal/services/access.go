package services

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"installment_app_echo/internal/auth"
	"installment_app_echo/internal/models"
)

// visibleTo restricts a clients query to the rows the session may see:
// administrators see everything, employees see clients they own or are assigned.
func visibleTo(session auth.Session) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if session.IsAdmin() {
			return db
		}
		return db.Where("(clients.user_id = ? OR clients.employee_id = ?)", session.UserID, session.UserID)
	}
}

// findClient loads a visible client. Invisible and missing rows both yield ErrNotFound.
func findClient(db *gorm.DB, session auth.Session, id uint) (*models.Client, error) {
	var client models.Client
	err := db.Scopes(visibleTo(session)).First(&client, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// lockClient is findClient with the row locked for the rest of the transaction
func lockClient(tx *gorm.DB, session auth.Session, id uint) (*models.Client, error) {
	return findClient(tx.Clauses(clause.Locking{Strength: "UPDATE"}), session, id)
}
