package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gulfsetup/crm-api/internal/config"
	"github.com/gulfsetup/crm-api/internal/database"
	"github.com/gulfsetup/crm-api/internal/email"
	"github.com/gulfsetup/crm-api/internal/http/handler"
	"github.com/gulfsetup/crm-api/internal/http/middleware"
	"github.com/gulfsetup/crm-api/internal/http/router"
	"github.com/gulfsetup/crm-api/internal/jobs"
	"github.com/gulfsetup/crm-api/internal/logger"
	"github.com/gulfsetup/crm-api/internal/repository"
	"github.com/gulfsetup/crm-api/internal/service"
	"github.com/gulfsetup/crm-api/internal/token"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	// Load full configuration with secrets
	// In development: uses environment variables
	// In staging/production: fetches from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	// Connect to database
	db, err := database.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Customer token signer
	tokens, err := token.NewService(cfg.Token.Secret, cfg.Token.Expiry())
	if err != nil {
		return fmt.Errorf("failed to create token service: %w", err)
	}

	// Outbound mail
	mailer := email.NewMailer(&cfg.SMTP, log)

	// Initialize repositories
	leadRepo := repository.NewLeadRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Initialize services
	activityService := service.NewActivityService(activityRepo, log)
	notifier := service.NewNotifier(notificationRepo, mailer, &cfg.Notify, log)
	defer notifier.Close()

	slaService := service.NewSLAService(&cfg.SLA)
	invoiceService := service.NewInvoiceService(leadRepo, invoiceRepo, activityService, notifier, log)
	leadService := service.NewLeadService(
		leadRepo,
		invoiceService,
		activityService,
		notifier,
		slaService,
		tokens,
		mailer,
		cfg.Public.BaseURL,
		log,
	)
	notificationService := service.NewNotificationService(notificationRepo, log)

	// Initialize middleware and handlers
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)
	leadHandler := handler.NewLeadHandler(leadService, invoiceService, activityService, log)
	publicHandler := handler.NewPublicHandler(leadService, invoiceService, tokens, log)
	notificationHandler := handler.NewNotificationHandler(notificationService, log)

	// Setup router
	rt := router.NewRouter(
		cfg,
		log,
		db,
		rateLimiter,
		leadHandler,
		publicHandler,
		notificationHandler,
	)

	// Initialize and start scheduler for the SLA reminder sweep
	var scheduler *jobs.Scheduler
	if cfg.SLA.SweepCron != "" {
		scheduler = jobs.NewScheduler(log)
		sweep := jobs.NewSLASweep(leadRepo, notificationRepo, slaService, notifier, log)
		if err := scheduler.AddJob("sla_sweep", cfg.SLA.SweepCron, sweep.Run); err != nil {
			log.Error("Failed to register SLA sweep job", zap.Error(err))
		} else {
			scheduler.Start()
			log.Info("Scheduler started with SLA sweep job",
				zap.String("cron_expr", cfg.SLA.SweepCron),
			)
		}
	} else {
		log.Info("SLA sweep disabled, no cron expression configured")
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Stop scheduler if running
		if scheduler != nil {
			ctx := scheduler.Stop()
			<-ctx.Done()
			log.Info("Scheduler stopped")
		}

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		// Drain pending operator notifications before exit
		notifier.Close()

		log.Info("Server stopped gracefully")
	}

	return nil
}
