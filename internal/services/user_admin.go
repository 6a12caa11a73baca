package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"installment_app_echo/internal/auth"
	"installment_app_echo/internal/models"
)

// DefaultPassword is given to accounts created by an administrator
const DefaultPassword = "temp123456"

// AdminUser is one row of the user administration list
type AdminUser struct {
	ID           string      `json:"id"`
	Email        string      `json:"email"`
	FullName     string      `json:"full_name"`
	Role         models.Role `json:"role"`
	CreatedAt    time.Time   `json:"created_at"`
	LastSignInAt *time.Time  `json:"last_sign_in_at"`
}

type UpsertUserRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	FullName string      `json:"full_name"`
	Role     models.Role `json:"role"`
}

type UpsertUserResult struct {
	User    AdminUser `json:"user"`
	Created bool      `json:"created"`
	Message string    `json:"message"`
}

// UserAdminService creates, lists and removes accounts together with their profile and role rows
type UserAdminService struct {
	db       *gorm.DB
	accounts AccountProvider
	roles    *RoleService
}

func NewUserAdminService(db *gorm.DB, accounts AccountProvider, roles *RoleService) *UserAdminService {
	return &UserAdminService{db: db, accounts: accounts, roles: roles}
}

// List returns every account with its role and profile name
func (s *UserAdminService) List(ctx context.Context, caller auth.Session) ([]AdminUser, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}

	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, err
	}

	uids := make([]string, 0, len(accounts))
	for _, a := range accounts {
		uids = append(uids, a.UID)
	}
	roles, err := s.roles.RolesOf(ctx, uids)
	if err != nil {
		return nil, err
	}
	names, err := profileNames(ctx, s.db, uids)
	if err != nil {
		return nil, err
	}

	users := make([]AdminUser, 0, len(accounts))
	for _, a := range accounts {
		name := names[a.UID]
		if name == "" {
			name = a.DisplayName
		}
		users = append(users, AdminUser{
			ID:           a.UID,
			Email:        a.Email,
			FullName:     name,
			Role:         roles[a.UID],
			CreatedAt:    a.CreatedAt,
			LastSignInAt: a.LastSignInAt,
		})
	}
	return users, nil
}

// Upsert creates the account for req.Email, or updates its name and role when it exists
func (s *UserAdminService) Upsert(ctx context.Context, caller auth.Session, req UpsertUserRequest) (*UpsertUserResult, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}

	req.Email = strings.TrimSpace(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	if req.Email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if req.Role == "" {
		req.Role = models.RoleEmployee
	}
	if !req.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, req.Role)
	}

	existing, err := s.accounts.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if existing != nil {
		return s.updateExisting(ctx, caller, existing, req)
	}

	password := req.Password
	if password == "" {
		password = DefaultPassword
	}
	created, err := s.accounts.Create(ctx, req.Email, password, req.FullName)
	if err != nil {
		return nil, err
	}

	if err := upsertProfile(ctx, s.db, created.UID, req.FullName); err != nil {
		log.Error().Err(err).Str("user_id", created.UID).Msg("failed to create profile")
	}
	if _, err := s.roles.SetRole(ctx, created.UID, req.Role, caller.UserID); err != nil {
		return nil, fmt.Errorf("assign role: %w", err)
	}

	return &UpsertUserResult{
		User: AdminUser{
			ID:        created.UID,
			Email:     created.Email,
			FullName:  req.FullName,
			Role:      req.Role,
			CreatedAt: created.CreatedAt,
		},
		Created: true,
		Message: "User created successfully",
	}, nil
}

func (s *UserAdminService) updateExisting(ctx context.Context, caller auth.Session, existing *AccountInfo, req UpsertUserRequest) (*UpsertUserResult, error) {
	name := existing.DisplayName
	if req.FullName != "" {
		name = req.FullName
		if err := s.accounts.Update(ctx, existing.UID, AccountUpdate{DisplayName: &req.FullName}); err != nil {
			return nil, err
		}
		if err := upsertProfile(ctx, s.db, existing.UID, req.FullName); err != nil {
			log.Error().Err(err).Str("user_id", existing.UID).Msg("failed to update profile")
		}
	}

	changed, err := s.roles.SetRole(ctx, existing.UID, req.Role, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("assign role: %w", err)
	}

	message := "User role updated successfully"
	if !changed {
		message = "User already exists with this role"
	}
	return &UpsertUserResult{
		User: AdminUser{
			ID:           existing.UID,
			Email:        existing.Email,
			FullName:     name,
			Role:         req.Role,
			CreatedAt:    existing.CreatedAt,
			LastSignInAt: existing.LastSignInAt,
		},
		Message: message,
	}, nil
}

// Delete removes the account and its profile and role rows
func (s *UserAdminService) Delete(ctx context.Context, caller auth.Session, uid string) error {
	if !caller.IsAdmin() {
		return ErrForbidden
	}
	if uid == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}

	if err := s.accounts.Delete(ctx, uid); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", uid).Delete(&models.Profile{}).Error; err != nil {
			return err
		}
		return s.roles.DeleteRole(ctx, tx, uid)
	})
}

// SetRole assigns a role to an existing account
func (s *UserAdminService) SetRole(ctx context.Context, caller auth.Session, uid string, role models.Role) error {
	if !caller.IsAdmin() {
		return ErrForbidden
	}
	if _, err := s.accounts.Get(ctx, uid); err != nil {
		return err
	}
	_, err := s.roles.SetRole(ctx, uid, role, caller.UserID)
	return err
}

func upsertProfile(ctx context.Context, db *gorm.DB, uid, fullName string) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"full_name", "updated_at"}),
	}).Create(&models.Profile{UserID: uid, FullName: fullName}).Error
}

func profileNames(ctx context.Context, db *gorm.DB, uids []string) (map[string]string, error) {
	names := make(map[string]string, len(uids))
	if len(uids) == 0 {
		return names, nil
	}
	var profiles []models.Profile
	if err := db.WithContext(ctx).Where("user_id IN ?", uids).Find(&profiles).Error; err != nil {
		return nil, err
	}
	for _, p := range profiles {
		names[p.UserID] = p.FullName
	}
	return names, nil
}
