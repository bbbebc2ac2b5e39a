package routes

import (
	"time"

	"github.com/finledger/billable-api/internal/config"
	domainRepo "github.com/finledger/billable-api/internal/domain/repository"
	"github.com/finledger/billable-api/internal/presentation/http/handler"
	"github.com/finledger/billable-api/internal/presentation/http/middleware"
	"github.com/finledger/billable-api/pkg/utils"
	"github.com/gin-gonic/gin"
)

// Handlers holds all the HTTP handlers used for route registration.
type Handlers struct {
	Auth     *handler.AuthHandler
	Invoice  *handler.InvoiceHandler
	Estimate *handler.EstimateHandler
	Payment  *handler.PaymentHandler
	Contact  *handler.ContactHandler
	Profile  *handler.ProfileHandler
	Webhook  *handler.WebhookHandler
}

// Deps holds shared dependencies needed by the routes.
type Deps struct {
	JWTManager      *utils.JWTManager
	Cfg             *config.Config
	TenantRepo      domainRepo.TenantRepository
	IdempotencyRepo domainRepo.IdempotencyRepository
}

// Setup creates the Gin router and registers all routes.
func Setup(h *Handlers, deps *Deps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": deps.Cfg.App.Name,
		})
	})

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Public routes: login and the provider webhook. The webhook is
		// authenticated by its signature, not a session.
		auth := v1.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
		}
		v1.POST("/invoices/webhook/provider", h.Webhook.HandlePaymentEvent)

		// Protected routes (authentication + tenant scope required)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(deps.JWTManager))
		protected.Use(middleware.TenantMiddleware(deps.TenantRepo))
		protected.Use(middleware.RequireTenant())

		// Per-tenant rate limiter
		rateLimiter := middleware.NewTenantRateLimiter(middleware.RateLimiterConfig{
			RequestsPerSecond: float64(deps.Cfg.RateLimit.Requests) / float64(deps.Cfg.RateLimit.Duration),
			BurstSize:         deps.Cfg.RateLimit.Requests,
			CleanupInterval:   5 * time.Minute,
			EntryTTL:          10 * time.Minute,
		})
		protected.Use(rateLimiter.Middleware())

		// Replays of retried mutations return the cached response
		protected.Use(middleware.Idempotency(middleware.IdempotencyConfig{
			Repo: deps.IdempotencyRepo,
		}))

		registerInvoiceRoutes(protected, h)
		registerEstimateRoutes(protected, h)
		registerPaymentRoutes(protected, h)
		registerContactRoutes(protected, h)
		registerProfileRoutes(protected, h)
	}

	return router
}

func registerInvoiceRoutes(rg *gin.RouterGroup, h *Handlers) {
	invoices := rg.Group("/invoices")
	{
		invoices.GET("", h.Invoice.List)
		invoices.POST("", h.Invoice.Create)
		invoices.GET("/due", h.Invoice.Due)
		invoices.POST("/mark-overdue", h.Invoice.MarkOverdue)
		invoices.GET("/:id", h.Invoice.Get)
		invoices.PUT("/:id", h.Invoice.Update)
		invoices.DELETE("/:id", h.Invoice.Delete)
		invoices.POST("/:id/send", h.Invoice.Send)
		invoices.POST("/:id/cancel", h.Invoice.Cancel)
		invoices.POST("/:id/mark-viewed", h.Invoice.MarkViewed)
		invoices.POST("/:id/record-payment", h.Invoice.RecordPayment)
		invoices.GET("/:id/payments", h.Invoice.ListPayments)
		invoices.POST("/:id/create-payment-link", h.Invoice.CreatePaymentLink)
		invoices.GET("/:id/download", h.Invoice.Render)
	}
}

func registerEstimateRoutes(rg *gin.RouterGroup, h *Handlers) {
	estimates := rg.Group("/estimates")
	{
		estimates.GET("", h.Estimate.List)
		estimates.POST("", h.Estimate.Create)
		estimates.GET("/:id", h.Estimate.Get)
		estimates.PUT("/:id", h.Estimate.Update)
		estimates.DELETE("/:id", h.Estimate.Delete)
		estimates.POST("/:id/send", h.Estimate.Send)
		estimates.POST("/:id/accept", h.Estimate.Accept)
		estimates.POST("/:id/decline", h.Estimate.Decline)
		estimates.POST("/:id/convert-to-invoice", h.Estimate.Convert)
	}
}

func registerPaymentRoutes(rg *gin.RouterGroup, h *Handlers) {
	payments := rg.Group("/payments")
	{
		payments.GET("", h.Payment.List)
		payments.GET("/:id", h.Payment.Get)
	}
}

func registerContactRoutes(rg *gin.RouterGroup, h *Handlers) {
	contacts := rg.Group("/contacts")
	{
		contacts.GET("", h.Contact.List)
		contacts.POST("", h.Contact.Create)
		contacts.GET("/:id", h.Contact.Get)
		contacts.PUT("/:id", h.Contact.Update)
		contacts.DELETE("/:id", h.Contact.Delete)
	}
}

func registerProfileRoutes(rg *gin.RouterGroup, h *Handlers) {
	rg.GET("/business-profile", h.Profile.Get)
	rg.PUT("/business-profile", h.Profile.Upsert)
	rg.GET("/settings", h.Profile.GetSettings)
	rg.PUT("/settings", h.Profile.UpdateSettings)
}
