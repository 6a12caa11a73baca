// Package bootstrap wires configuration into the database, cache, identity and storage
// backends and the services built on them. The server, worker and CLI share it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	gcs "cloud.google.com/go/storage"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"installment_app_echo/internal/auth"
	"installment_app_echo/internal/config"
	"installment_app_echo/internal/services"
	"installment_app_echo/internal/tasks"
)

const receiptsPrefix = "receipts"

// App holds every long-lived dependency of a process
type App struct {
	Config *config.Config
	DB     *gorm.DB
	Cache  *services.RedisCache

	// Exactly one identity mode is active: Firebase or local accounts with JWT sessions.
	Firebase         *services.FirebaseClients
	FirebaseVerifier *auth.FirebaseVerifier
	LocalAccounts    *services.LocalAccounts
	JWT              *auth.JWTVerifier
	Accounts         services.AccountProvider
	Verifier         auth.Verifier

	Storage services.ObjectStorage

	Roles       *services.RoleService
	Clients     *services.ClientService
	Payments    *services.PaymentService
	Receipts    *services.ReceiptService
	Users       *services.UserAdminService
	Profiles    *services.ProfileService
	Metrics     *services.MetricsService
	Sheets      *services.SpreadsheetService
	Preferences *services.PreferenceService
	Email       *services.EmailService
	Waha        *services.WahaService
}

// New connects to the database and the optional integrations. Redis is skipped with a
// warning when unreachable; the database is required.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	db, err := services.InitDB(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := services.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	a := &App{Config: cfg, DB: db}

	if cfg.RedisURL != "" {
		cache, err := services.NewRedisCache(cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, caching disabled")
		} else {
			a.Cache = cache
		}
	}

	if err := a.initIdentity(ctx); err != nil {
		return nil, err
	}
	if err := a.initStorage(); err != nil {
		return nil, err
	}

	a.Roles = services.NewRoleService(db, a.Cache)
	a.Clients = services.NewClientService(db, a.Storage, a.Cache)
	a.Payments = services.NewPaymentService(db, a.Cache)
	a.Receipts = services.NewReceiptService(db, a.Storage, cfg.MaxReceiptBytes)
	a.Users = services.NewUserAdminService(db, a.Accounts, a.Roles)
	a.Profiles = services.NewProfileService(db, a.Accounts)
	a.Metrics = services.NewMetricsService(db, a.Accounts, a.Roles, a.Cache)
	a.Sheets = services.NewSpreadsheetService(db, a.Cache)
	a.Preferences = services.NewPreferenceService(db)
	a.Email = services.NewEmailService(cfg)
	a.Waha = services.NewWahaService(cfg)

	return a, nil
}

func (a *App) initIdentity(ctx context.Context) error {
	if a.Config.UseFirebase() {
		clients, err := services.InitFirebase(ctx, a.Config.FirebaseCredentialsPath, a.Config.FirebaseStorageBucket)
		if err != nil {
			return fmt.Errorf("firebase initialization failed: %w", err)
		}
		a.Firebase = clients
		a.FirebaseVerifier = auth.NewFirebaseVerifier(clients.Auth)
		a.Verifier = a.FirebaseVerifier
		a.Accounts = services.NewFirebaseAccounts(clients.Auth)
		log.Info().Msg("Using Firebase identity")
		return nil
	}

	a.LocalAccounts = services.NewLocalAccounts(a.DB)
	a.Accounts = a.LocalAccounts

	verifier, err := auth.NewJWTVerifier(a.Config.AuthJWTSecret, 0)
	if err != nil {
		log.Warn().Err(err).Msg("AUTH_JWT_SECRET not set, sign-in disabled")
		return nil
	}
	a.JWT = verifier
	a.Verifier = verifier
	log.Info().Msg("Using local accounts")
	return nil
}

func (a *App) initStorage() error {
	if a.Firebase != nil {
		var (
			handle *gcs.BucketHandle
			err    error
		)
		if name := a.Config.FirebaseStorageBucket; name != "" {
			handle, err = a.Firebase.Storage.Bucket(name)
		} else {
			handle, err = a.Firebase.Storage.DefaultBucket()
		}
		if err != nil {
			return fmt.Errorf("open receipts bucket: %w", err)
		}
		a.Storage = services.NewBucketStorage(handle, receiptsPrefix)
		return nil
	}

	storage, err := services.NewLocalStorage(a.Config.ReceiptsDir)
	if err != nil {
		return fmt.Errorf("open receipts directory: %w", err)
	}
	a.Storage = storage
	return nil
}

// TaskDependencies returns what the worker's task handlers need. Channels that are not
// configured are left nil so their sends fail and get retried.
func (a *App) TaskDependencies() tasks.Dependencies {
	deps := tasks.Dependencies{
		DB:          a.DB,
		Clients:     a.Clients,
		Accounts:    a.Accounts,
		Preferences: a.Preferences,
	}
	if a.Email.Configured() {
		deps.Mailer = a.Email
	} else {
		log.Warn().Msg("SMTP not configured, e-mail reminders will fail")
	}
	if a.Config.WahaBaseURL != "" {
		deps.Messenger = a.Waha
	}
	return deps
}

// Close releases the database and cache connections
func (a *App) Close() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis")
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
