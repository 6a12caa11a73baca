package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"installment_app_echo/internal/auth"
	"installment_app_echo/internal/models"
)

// ProfileView is the caller's own account as shown on the profile page
type ProfileView struct {
	UserID   string      `json:"user_id"`
	Email    string      `json:"email"`
	FullName string      `json:"full_name"`
	Role     models.Role `json:"role"`
}

type UpdateProfileRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// ProfileService lets a signed-in user maintain their own name, email and password
type ProfileService struct {
	db       *gorm.DB
	accounts AccountProvider
}

func NewProfileService(db *gorm.DB, accounts AccountProvider) *ProfileService {
	return &ProfileService{db: db, accounts: accounts}
}

func (s *ProfileService) Get(ctx context.Context, session auth.Session) (*ProfileView, error) {
	view := &ProfileView{
		UserID:   session.UserID,
		Email:    session.Email,
		FullName: session.Name,
		Role:     session.Role,
	}

	var profile models.Profile
	err := s.db.WithContext(ctx).Where("user_id = ?", session.UserID).First(&profile).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if profile.FullName != "" {
		view.FullName = profile.FullName
	}
	return view, nil
}

func (s *ProfileService) Update(ctx context.Context, session auth.Session, req UpdateProfileRequest) (*ProfileView, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)

	upd := AccountUpdate{DisplayName: &req.FullName}
	if req.Email != "" && !strings.EqualFold(req.Email, session.Email) {
		upd.Email = &req.Email
	}
	if err := s.accounts.Update(ctx, session.UserID, upd); err != nil {
		return nil, err
	}
	if err := upsertProfile(ctx, s.db, session.UserID, req.FullName); err != nil {
		return nil, err
	}

	email := session.Email
	if upd.Email != nil {
		email = *upd.Email
	}
	return &ProfileView{UserID: session.UserID, Email: email, FullName: req.FullName, Role: session.Role}, nil
}

func (s *ProfileService) ChangePassword(ctx context.Context, session auth.Session, password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordLength)
	}
	return s.accounts.Update(ctx, session.UserID, AccountUpdate{Password: &password})
}
