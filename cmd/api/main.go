package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/finledger/billable-api/internal/application/service"
	"github.com/finledger/billable-api/internal/config"
	"github.com/finledger/billable-api/internal/infrastructure/database"
	"github.com/finledger/billable-api/internal/infrastructure/repository"
	"github.com/finledger/billable-api/internal/presentation/http/handler"
	"github.com/finledger/billable-api/internal/presentation/http/routes"
	"github.com/finledger/billable-api/pkg/email"
	"github.com/finledger/billable-api/pkg/payments"
	"github.com/finledger/billable-api/pkg/renderer"
	"github.com/finledger/billable-api/pkg/utils"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Seed default data
	if err := database.SeedDefaultData(db); err != nil {
		log.Printf("Warning: Failed to seed default data: %v", err)
	}

	// Initialize JWT manager
	jwtManager := utils.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.ExpiryHours,
		cfg.JWT.RefreshExpiryHours,
	)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	tenantRepo := repository.NewTenantRepository(db)
	contactRepo := repository.NewContactRepository(db)
	profileRepo := repository.NewBusinessProfileRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	estimateRepo := repository.NewEstimateRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)
	eventRepo := repository.NewProviderEventRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)
	transactor := repository.NewTransactor(db)

	// Initialize email service
	emailService := email.NewEmailService(email.EmailConfig{
		SMTPHost:     cfg.Email.SMTPHost,
		SMTPPort:     cfg.Email.SMTPPort,
		SMTPUsername: cfg.Email.SMTPUsername,
		SMTPPassword: cfg.Email.SMTPPassword,
		FromName:     cfg.Email.FromName,
		FromEmail:    cfg.Email.FromEmail,
		FrontendURL:  cfg.Email.FrontendURL,
	})

	// Initialize document renderer
	docRenderer, err := renderer.NewHTMLRenderer()
	if err != nil {
		log.Fatalf("Failed to initialize document renderer: %v", err)
	}

	// Initialize payment provider (falls back to a disabled provider
	// when no Stripe key is configured)
	provider := payments.NewProviderFromConfig(
		cfg.Stripe.SecretKey,
		cfg.Stripe.WebhookSecret,
		cfg.Stripe.SuccessURL,
		cfg.Stripe.CancelURL,
	)

	// Initialize services
	ledgerService := service.NewLedgerService(invoiceRepo, paymentRepo, transactor)
	reconcilerService := service.NewReconcilerService(invoiceRepo, paymentRepo, eventRepo, ledgerService, provider, transactor)
	invoiceService := service.NewInvoiceService(invoiceRepo, contactRepo, profileRepo, tenantRepo, sequenceRepo, transactor, docRenderer, emailService, reconcilerService)
	estimateService := service.NewEstimateService(estimateRepo, invoiceRepo, contactRepo, profileRepo, tenantRepo, sequenceRepo, transactor, docRenderer, emailService)
	contactService := service.NewContactService(contactRepo)
	profileService := service.NewProfileService(profileRepo, tenantRepo)
	authService := service.NewAuthService(userRepo, tenantRepo, jwtManager)

	// Background maintenance: prune processed webhook events past their
	// retention window and expired idempotency keys
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			ctx := context.Background()
			if err := reconcilerService.PruneEvents(ctx, 90); err != nil {
				log.Printf("Warning: failed to prune provider events: %v", err)
			}
			if err := idempotencyRepo.DeleteExpired(ctx); err != nil {
				log.Printf("Warning: failed to prune idempotency keys: %v", err)
			}
		}
	}()

	// Initialize handlers
	handlers := &routes.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Invoice:  handler.NewInvoiceHandler(invoiceService, ledgerService, reconcilerService),
		Estimate: handler.NewEstimateHandler(estimateService),
		Payment:  handler.NewPaymentHandler(ledgerService),
		Contact:  handler.NewContactHandler(contactService),
		Profile:  handler.NewProfileHandler(profileService),
		Webhook:  handler.NewWebhookHandler(reconcilerService),
	}

	// Setup routes
	router := routes.Setup(handlers, &routes.Deps{
		JWTManager:      jwtManager,
		Cfg:             cfg,
		TenantRepo:      tenantRepo,
		IdempotencyRepo: idempotencyRepo,
	})

	// Get port from environment or use default
	port := cfg.App.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting %s server on port %s...", cfg.App.Name, port)
	log.Printf("Environment: %s", cfg.App.Env)

	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
		os.Exit(1)
	}
}
