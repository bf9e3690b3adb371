package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BradenHooton/assistiva/internal/background"
	"github.com/BradenHooton/assistiva/internal/config"
	"github.com/BradenHooton/assistiva/internal/database"
	"github.com/BradenHooton/assistiva/internal/handlers"
	"github.com/BradenHooton/assistiva/internal/mailer"
	middlewareCustom "github.com/BradenHooton/assistiva/internal/middleware"
	"github.com/BradenHooton/assistiva/internal/models"
	"github.com/BradenHooton/assistiva/internal/repositories"
	"github.com/BradenHooton/assistiva/internal/routes"
	"github.com/BradenHooton/assistiva/internal/services"
	pkglogger "github.com/BradenHooton/assistiva/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: pkglogger.ParseLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("mail_provider", cfg.Mail.Provider),
	)

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = db.Migrate(migrateCtx)
	migrateCancel()
	if err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize mailer
	notifier, closeNotifier, err := newNotifier(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize mailer", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeNotifier()

	// Initialize repositories and services
	accountRepo := repositories.NewAccountRepository(db)

	credentialService := services.NewCredentialService(accountRepo, notifier, services.CredentialConfig{
		RecoveryCodeTTL:         cfg.Credentials.RecoveryCodeTTL,
		GeneratedPasswordLength: cfg.Credentials.GeneratedPasswordLength,
		RequireDelivery:         cfg.Credentials.RequireDelivery,
		AppName:                 cfg.Mail.AppName,
		ResetURLBase:            cfg.Mail.ResetURLBase,
	}, logger)

	// Bootstrap first admin account if configured
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := ensureAdminAccount(ctx, cfg.Bootstrap, credentialService, logger); err != nil {
		logger.Error("failed to ensure admin account", slog.Any("error", err))
	}
	cancel()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(credentialService, logger)
	accountHandler := handlers.NewAccountHandler(credentialService, logger)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler, accountHandler, cfg.Server.AdminAPIKey)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start recovery code sweeper
	sweeper := background.NewRecoverySweeper(accountRepo, logger, cfg.Credentials.SweepInterval)
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()

	go sweeper.Start(sweepCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	sweepCancel()
	sweeper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// newNotifier builds the configured mail transport and its cleanup func
func newNotifier(cfg *config.Config, logger *slog.Logger) (services.Notifier, func(), error) {
	from := mailer.From{Address: cfg.Mail.FromAddress, Name: cfg.Mail.FromName}

	switch cfg.Mail.Provider {
	case config.MailProviderSES:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		sender, err := mailer.NewSESSender(ctx, cfg.Mail.AWSRegion, from, logger)
		if err != nil {
			return nil, nil, err
		}
		return sender, func() {}, nil
	case config.MailProviderSMTP:
		sender, err := mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:        cfg.Mail.SMTPHost,
			Port:        cfg.Mail.SMTPPort,
			Username:    cfg.Mail.SMTPUsername,
			Password:    cfg.Mail.SMTPPassword,
			ImplicitTLS: cfg.Mail.SMTPImplicitTLS,
			PoolSize:    cfg.Mail.SMTPPoolSize,
			SendTimeout: cfg.Mail.SMTPSendTimeout,
		}, from, logger)
		if err != nil {
			return nil, nil, err
		}
		return sender, sender.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported mail provider %q", cfg.Mail.Provider)
	}
}

// ensureAdminAccount creates the first administrator if ADMIN_USERNAME and
// ADMIN_EMAIL are set. The generated password is mailed like any other
// account's.
func ensureAdminAccount(ctx context.Context, cfg config.BootstrapConfig, svc *services.CredentialService, logger *slog.Logger) error {
	if cfg.AdminUsername == "" || cfg.AdminEmail == "" {
		logger.Info("no ADMIN_USERNAME or ADMIN_EMAIL set, skipping admin account creation")
		return nil
	}

	available, err := svc.IsUsernameOrEmailAvailable(ctx, cfg.AdminUsername, cfg.AdminEmail, 0)
	if err != nil {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}
	if !available {
		logger.Info("admin account already exists")
		return nil
	}

	_, err = svc.CreateAccount(ctx, &models.Account{
		Username: cfg.AdminUsername,
		Email:    cfg.AdminEmail,
		RoleID:   models.RoleAdministrator,
	})
	var delivery *models.DeliveryError
	if errors.As(err, &delivery) {
		// The account exists; an operator can issue a recovery code later
		logger.Warn("admin account created but welcome email failed", slog.String("transport", delivery.Transport))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create admin account: %w", err)
	}

	logger.Info("admin account created successfully")
	return nil
}
