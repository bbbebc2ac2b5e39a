package database

import (
	"fmt"
	"log"

	"github.com/finledger/billable-api/internal/config"
	"github.com/finledger/billable-api/internal/domain/entity"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	logLevel := logger.Info

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true, // disables implicit prepared statement usage
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying SQL DB to set connection pool settings
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Set connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	log.Println("Successfully connected to PostgreSQL database")
	return db, nil
}

// AutoMigrate runs GORM auto-migration for all entities
func AutoMigrate(db *gorm.DB) error {
	log.Println("Running database migrations...")

	err := db.AutoMigrate(
		// Identity entities
		&entity.User{},
		&entity.Tenant{},
		&entity.TenantMembership{},

		// Directory entities
		&entity.Contact{},
		&entity.BusinessProfile{},

		// Billing documents
		&entity.Invoice{},
		&entity.InvoiceItem{},
		&entity.Estimate{},
		&entity.EstimateItem{},

		// Ledger entities
		&entity.Payment{},
		&entity.DocumentSequence{},
		&entity.ProviderEvent{},

		// System entities
		&entity.IdempotencyKey{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// SeedDefaultData seeds the database with a default admin user and tenant
// when configured via environment variables
func SeedDefaultData(db *gorm.DB) error {
	log.Println("Seeding default data...")

	adminEmail := viper.GetString("ADMIN_EMAIL")
	adminPassword := viper.GetString("ADMIN_PASSWORD")
	adminName := viper.GetString("ADMIN_NAME")

	if adminEmail == "" || adminPassword == "" {
		log.Println("ADMIN_EMAIL/ADMIN_PASSWORD not set, skipping seed")
		return nil
	}

	var admin entity.User
	if err := db.Where("email = ?", adminEmail).First(&admin).Error; err != nil {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash admin password: %w", err)
		}

		if adminName == "" {
			adminName = "Admin"
		}
		firstName := adminName
		lastName := ""
		for i, c := range adminName {
			if c == ' ' {
				firstName = adminName[:i]
				lastName = adminName[i+1:]
				break
			}
		}

		admin = entity.User{
			ID:        uuid.New(),
			FirstName: firstName,
			LastName:  lastName,
			Email:     adminEmail,
			Password:  string(hashedPassword),
		}
		if err := db.Create(&admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}
		log.Printf("Admin user created: %s", adminEmail)
	} else {
		log.Printf("Admin user already exists: %s", adminEmail)
	}

	// Ensure the admin has a tenant to work in
	var tenant entity.Tenant
	if err := db.Where("slug = ?", "default").First(&tenant).Error; err != nil {
		tenant = entity.Tenant{
			ID:       uuid.New(),
			Name:     "Default Workspace",
			Slug:     "default",
			OwnerID:  admin.ID,
			Settings: entity.DefaultTenantSettings(),
		}
		if err := db.Create(&tenant).Error; err != nil {
			return fmt.Errorf("failed to create default tenant: %w", err)
		}

		membership := entity.TenantMembership{
			TenantID: tenant.ID,
			UserID:   admin.ID,
			Role:     "owner",
		}
		if err := db.Create(&membership).Error; err != nil {
			log.Printf("Warning: failed to create tenant membership: %v", err)
		}
		log.Printf("Default tenant created: %s", tenant.Slug)
	}

	log.Println("Default data seeding completed")
	return nil
}
