package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/api/iterator"
	"gorm.io/gorm"

	"installment_app_echo/internal/models"
)

// MinPasswordLength applies to every password set through the app
const MinPasswordLength = 6

// AccountInfo is an identity-provider account
type AccountInfo struct {
	UID          string     `json:"id"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"display_name"`
	CreatedAt    time.Time  `json:"created_at"`
	LastSignInAt *time.Time `json:"last_sign_in_at"`
}

// AccountUpdate changes only the non-nil fields
type AccountUpdate struct {
	Email       *string
	Password    *string
	DisplayName *string
}

// AccountProvider manages login accounts
type AccountProvider interface {
	List(ctx context.Context) ([]AccountInfo, error)
	Get(ctx context.Context, uid string) (*AccountInfo, error)
	GetByEmail(ctx context.Context, email string) (*AccountInfo, error)
	Create(ctx context.Context, email, password, displayName string) (*AccountInfo, error)
	Update(ctx context.Context, uid string, upd AccountUpdate) error
	Delete(ctx context.Context, uid string) error
}

// FirebaseAccounts manages accounts through Firebase Authentication
type FirebaseAccounts struct {
	client *auth.Client
}

func NewFirebaseAccounts(client *auth.Client) *FirebaseAccounts {
	return &FirebaseAccounts{client: client}
}

func (p *FirebaseAccounts) List(ctx context.Context) ([]AccountInfo, error) {
	var accounts []AccountInfo
	iter := p.client.Users(ctx, "")
	for {
		user, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		accounts = append(accounts, fromUserRecord(user.UserRecord))
	}
	return accounts, nil
}

func (p *FirebaseAccounts) Get(ctx context.Context, uid string) (*AccountInfo, error) {
	user, err := p.client.GetUser(ctx, uid)
	if auth.IsUserNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	info := fromUserRecord(user)
	return &info, nil
}

func (p *FirebaseAccounts) GetByEmail(ctx context.Context, email string) (*AccountInfo, error) {
	user, err := p.client.GetUserByEmail(ctx, email)
	if auth.IsUserNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	info := fromUserRecord(user)
	return &info, nil
}

func (p *FirebaseAccounts) Create(ctx context.Context, email, password, displayName string) (*AccountInfo, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		EmailVerified(true).
		Password(password)
	if displayName != "" {
		params = params.DisplayName(displayName)
	}

	user, err := p.client.CreateUser(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	info := fromUserRecord(user)
	return &info, nil
}

func (p *FirebaseAccounts) Update(ctx context.Context, uid string, upd AccountUpdate) error {
	params := &auth.UserToUpdate{}
	if upd.Email != nil {
		params = params.Email(*upd.Email)
	}
	if upd.Password != nil {
		params = params.Password(*upd.Password)
	}
	if upd.DisplayName != nil {
		params = params.DisplayName(*upd.DisplayName)
	}

	_, err := p.client.UpdateUser(ctx, uid, params)
	if auth.IsUserNotFound(err) {
		return ErrNotFound
	}
	return err
}

func (p *FirebaseAccounts) Delete(ctx context.Context, uid string) error {
	err := p.client.DeleteUser(ctx, uid)
	if auth.IsUserNotFound(err) {
		return ErrNotFound
	}
	return err
}

func fromUserRecord(user *auth.UserRecord) AccountInfo {
	info := AccountInfo{
		UID:         user.UID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}
	if user.UserMetadata != nil {
		info.CreatedAt = time.UnixMilli(user.UserMetadata.CreationTimestamp)
		if user.UserMetadata.LastLogInTimestamp > 0 {
			last := time.UnixMilli(user.UserMetadata.LastLogInTimestamp)
			info.LastSignInAt = &last
		}
	}
	return info
}

// LocalAccounts keeps accounts in the database with bcrypt password hashes
type LocalAccounts struct {
	db *gorm.DB
}

func NewLocalAccounts(db *gorm.DB) *LocalAccounts {
	return &LocalAccounts{db: db}
}

func (p *LocalAccounts) List(ctx context.Context) ([]AccountInfo, error) {
	var rows []models.Account
	if err := p.db.WithContext(ctx).Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	accounts := make([]AccountInfo, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, fromAccount(row))
	}
	return accounts, nil
}

func (p *LocalAccounts) Get(ctx context.Context, uid string) (*AccountInfo, error) {
	return p.find(ctx, "uid = ?", uid)
}

func (p *LocalAccounts) GetByEmail(ctx context.Context, email string) (*AccountInfo, error) {
	return p.find(ctx, "email = ?", normalizeEmail(email))
}

func (p *LocalAccounts) find(ctx context.Context, query string, arg string) (*AccountInfo, error) {
	var row models.Account
	err := p.db.WithContext(ctx).Where(query, arg).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	info := fromAccount(row)
	return &info, nil
}

func (p *LocalAccounts) Create(ctx context.Context, email, password, displayName string) (*AccountInfo, error) {
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	row := models.Account{
		UID:          uuid.NewString(),
		Email:        normalizeEmail(email),
		PasswordHash: string(hash),
		FullName:     displayName,
	}
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	info := fromAccount(row)
	return &info, nil
}

func (p *LocalAccounts) Update(ctx context.Context, uid string, upd AccountUpdate) error {
	updates := map[string]interface{}{}
	if upd.Email != nil {
		updates["email"] = normalizeEmail(*upd.Email)
	}
	if upd.DisplayName != nil {
		updates["full_name"] = *upd.DisplayName
	}
	if upd.Password != nil {
		if len(*upd.Password) < MinPasswordLength {
			return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordLength)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*upd.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		updates["password_hash"] = string(hash)
	}
	if len(updates) == 0 {
		return nil
	}

	res := p.db.WithContext(ctx).Model(&models.Account{}).Where("uid = ?", uid).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *LocalAccounts) Delete(ctx context.Context, uid string) error {
	res := p.db.WithContext(ctx).Where("uid = ?", uid).Delete(&models.Account{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Authenticate checks an email/password pair
func (p *LocalAccounts) Authenticate(ctx context.Context, email, password string) (*AccountInfo, error) {
	var row models.Account
	err := p.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrForbidden
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)) != nil {
		return nil, ErrForbidden
	}
	info := fromAccount(row)
	return &info, nil
}

func fromAccount(row models.Account) AccountInfo {
	return AccountInfo{
		UID:         row.UID,
		Email:       row.Email,
		DisplayName: row.FullName,
		CreatedAt:   row.CreatedAt,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
