package main

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"installment_app_echo/internal/bootstrap"
	"installment_app_echo/internal/config"
	"installment_app_echo/internal/handlers"
	"installment_app_echo/internal/logger"
	authMiddleware "installment_app_echo/internal/middleware"
)

// TemplateRenderer renders the standalone html/template pages under web/templates
type TemplateRenderer struct {
	templates map[string]*template.Template
}

// NewTemplateRenderer parses every web/templates/*.html file as its own template
func NewTemplateRenderer(dir string) (*TemplateRenderer, error) {
	templates := make(map[string]*template.Template)

	pages, err := filepath.Glob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, err
	}
	for _, page := range pages {
		tmpl, err := template.ParseFiles(page)
		if err != nil {
			return nil, err
		}
		templates[filepath.Base(page)] = tmpl
	}

	return &TemplateRenderer{templates: templates}, nil
}

// Render renders a template document
func (t *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	tmpl, ok := t.templates[name]
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "Template not found: "+name)
	}
	return tmpl.Execute(w, data)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logger")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer app.Close()

	renderer, err := NewTemplateRenderer("web/templates")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse templates")
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = authMiddleware.CustomErrorHandler
	e.Renderer = renderer

	e.Use(middleware.RequestID())
	e.Use(authMiddleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(bodyLimit(cfg.MaxReceiptBytes)))

	registerRoutes(e, app)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

func registerRoutes(e *echo.Echo, app *bootstrap.App) {
	var authHandler *handlers.AuthHandler
	if app.FirebaseVerifier != nil {
		authHandler = handlers.NewFirebaseAuthHandler(app.Config, app.FirebaseVerifier)
	} else {
		authHandler = handlers.NewLocalAuthHandler(app.Config, app.LocalAccounts, app.JWT)
	}

	clientHandler := handlers.NewClientHandler(app.Clients)
	paymentHandler := handlers.NewPaymentHandler(app.Payments)
	receiptHandler := handlers.NewReceiptHandler(app.Receipts)
	userHandler := handlers.NewUserHandler(app.Users, app.Profiles)
	sheetHandler := handlers.NewSpreadsheetHandler(app.Sheets)
	dashboardHandler := handlers.NewDashboardHandler(app.Metrics)
	preferenceHandler := handlers.NewUserPreferenceHandler(app.Preferences)

	// Public routes
	e.GET("/login", authHandler.LoginPage)
	e.POST("/auth/login", authHandler.HandleLogin)
	e.POST("/auth/logout", authHandler.HandleLogout)
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, handlers.StatusResponse{Status: "ok"})
	})

	// Protected routes
	api := e.Group("/api", authMiddleware.RequireAuth(app.Verifier, app.Roles))

	api.GET("/clients", clientHandler.ListClients)
	api.POST("/clients", clientHandler.CreateClient)
	api.GET("/clients/:id", clientHandler.GetClient)
	api.PUT("/clients/:id/deposit", clientHandler.UpdateDeposit)
	api.DELETE("/clients/:id", clientHandler.DeleteClient)

	api.GET("/clients/:id/payments", paymentHandler.GetSchedule)
	api.POST("/payments/:id/toggle", paymentHandler.TogglePayment)
	api.PUT("/payments/:id/amount", paymentHandler.SetCustomAmount)

	api.GET("/clients/:id/receipts", receiptHandler.ListReceipts)
	api.POST("/clients/:id/receipts", receiptHandler.UploadReceipts)
	api.GET("/receipts/:id", receiptHandler.DownloadReceipt)
	api.DELETE("/receipts/:id", receiptHandler.DeleteReceipt)

	api.GET("/clients/export", sheetHandler.ExportClients)
	api.POST("/clients/import", sheetHandler.ImportClients)

	api.GET("/metrics", dashboardHandler.Metrics)

	api.GET("/profile", userHandler.GetProfile)
	api.PUT("/profile", userHandler.UpdateProfile)
	api.PUT("/profile/password", userHandler.ChangePassword)

	api.GET("/preferences", preferenceHandler.GetUserPreference)
	api.PUT("/preferences", preferenceHandler.UpdateUserPreference)

	// Admin routes
	adminOnly := authMiddleware.RequireAdmin()
	api.PUT("/clients/:id/transfer", clientHandler.TransferClient, adminOnly)
	api.GET("/employees/:userId/clients", clientHandler.ListEmployeeClients, adminOnly)
	api.GET("/admin/metrics", dashboardHandler.AdminMetrics, adminOnly)
	api.GET("/admin-users", userHandler.ListUsers, adminOnly)
	api.POST("/admin-users", userHandler.UpsertUser, adminOnly)
	api.DELETE("/admin-users", userHandler.DeleteUser, adminOnly)
	api.PUT("/admin-users/:userId/role", userHandler.SetRole, adminOnly)

	// Browsers without a session land on /login; signed-in callers get their session back
	e.GET("/", func(c echo.Context) error {
		session, _ := authMiddleware.SessionFrom(c)
		return c.JSON(http.StatusOK, session)
	}, authMiddleware.RequireAuth(app.Verifier, app.Roles))
}

// bodyLimit leaves room for multipart overhead above the receipt size limit
func bodyLimit(maxReceipt int64) string {
	const mb = 1 << 20
	return fmt.Sprintf("%dM", maxReceipt*5/mb+1)
}
