package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"installment_app_echo/internal/logger"
)

// Config holds every environment-driven setting used by the server, worker and CLI.
// Optional integrations (Firebase, Redis, SMTP, WAHA) are disabled when left empty.
type Config struct {
	Env    string
	Port   string
	AppURL string

	DatabaseURL string
	RedisURL    string

	// Firebase provides identity, account administration and the receipts bucket.
	FirebaseCredentialsPath string
	FirebaseStorageBucket   string
	FirebaseAPIKey          string
	FirebaseAuthDomain      string
	FirebaseProjectID       string

	// Local mode is used when Firebase is not configured.
	AuthJWTSecret string
	ReceiptsDir   string

	// Receipts larger than this are rejected.
	MaxReceiptBytes int64

	SMTPHost  string
	SMTPPort  string
	SMTPUser  string
	SMTPPass  string
	EmailFrom string

	WahaBaseURL string
	WahaAPIKey  string

	// WorkerSchedule is the cron spec of the worker tick; OverdueScanRule is the RRULE of
	// the recurring overdue scan it seeds.
	WorkerSchedule  string
	OverdueScanRule string

	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	maxReceipt, err := strconv.ParseInt(getEnv("MAX_RECEIPT_BYTES", "10485760"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_RECEIPT_BYTES: %w", err)
	}

	cfg := &Config{
		Env:                     getEnv("ENV", "development"),
		Port:                    getEnv("PORT", "8080"),
		AppURL:                  getEnv("APP_URL", "http://localhost:8080"),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		RedisURL:                getEnv("REDIS_URL", ""),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		FirebaseStorageBucket:   getEnv("FIREBASE_STORAGE_BUCKET", ""),
		FirebaseAPIKey:          getEnv("FIREBASE_API_KEY", ""),
		FirebaseAuthDomain:      getEnv("FIREBASE_AUTH_DOMAIN", ""),
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		AuthJWTSecret:           getEnv("AUTH_JWT_SECRET", ""),
		ReceiptsDir:             getEnv("RECEIPTS_DIR", "./data/receipts"),
		MaxReceiptBytes:         maxReceipt,
		SMTPHost:                getEnv("SMTP_HOST", ""),
		SMTPPort:                getEnv("SMTP_PORT", ""),
		SMTPUser:                getEnv("SMTP_USER", ""),
		SMTPPass:                getEnv("SMTP_PASS", ""),
		EmailFrom:               getEnv("EMAIL_FROM", ""),
		WahaBaseURL:             getEnv("WAHA_BASE_URL", "http://waha:3000"),
		WahaAPIKey:              getEnv("WAHA_API_KEY", ""),
		WorkerSchedule:          getEnv("WORKER_SCHEDULE", "@every 5m"),
		OverdueScanRule:         getEnv("OVERDUE_SCAN_RULE", "FREQ=DAILY;BYHOUR=9;BYMINUTE=0;BYSECOND=0"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		LogFormat:               getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:           getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:               getEnv("LOG_OUTPUT", "stdout"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.MaxReceiptBytes <= 0 {
		return fmt.Errorf("MAX_RECEIPT_BYTES must be positive")
	}
	return nil
}

// IsProduction reports whether cookies should be marked Secure.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// UseFirebase reports whether identity and storage go through Firebase.
func (c *Config) UseFirebase() bool {
	return c.FirebaseCredentialsPath != ""
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	cfg := logger.DefaultConfig()
	if c.LogLevel != "" {
		cfg.Level = c.LogLevel
	}
	if c.LogFormat != "" {
		cfg.Format = c.LogFormat
	}
	if c.LogTimeFormat != "" {
		cfg.TimeFormat = c.LogTimeFormat
	}
	if c.LogOutput != "" {
		cfg.Output = c.LogOutput
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
