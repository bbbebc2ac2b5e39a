package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tenant represents an organization in the multitenant system. Every
// document, payment and sequence row is owned by exactly one tenant.
type Tenant struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	Name      string         `gorm:"size:255;not null" json:"name"`
	Slug      string         `gorm:"size:255;unique;not null" json:"slug"`
	OwnerID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_id"`
	Settings  TenantSettings `gorm:"type:jsonb;serializer:json" json:"settings"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Owner   User               `gorm:"foreignKey:OwnerID" json:"-"`
	Members []TenantMembership `gorm:"foreignKey:TenantID" json:"-"`
}

// BeforeCreate generates a UUID before creating a new tenant
func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Tenant model
func (Tenant) TableName() string {
	return "tenants"
}

// PaymentTermsDays returns the tenant's default payment terms, falling
// back to 30 days when unset.
func (t *Tenant) PaymentTermsDays() int {
	if t.Settings.PaymentTermsDays > 0 {
		return t.Settings.PaymentTermsDays
	}
	return 30
}

// Currency returns the tenant's billing currency, defaulting to USD.
func (t *Tenant) Currency() string {
	if t.Settings.Currency != "" {
		return t.Settings.Currency
	}
	return "USD"
}

// TenantMembership represents a user's membership in a tenant
type TenantMembership struct {
	TenantID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"tenant_id"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	Role      string    `gorm:"size:50;default:'member'" json:"role"` // owner, admin, member
	CreatedAt time.Time `json:"created_at"`

	// Relationships
	Tenant Tenant `gorm:"foreignKey:TenantID" json:"-"`
	User   User   `gorm:"foreignKey:UserID" json:"-"`
}

// TableName returns the table name for the TenantMembership model
func (TenantMembership) TableName() string {
	return "tenant_memberships"
}

// TenantSettings holds customizable per-tenant billing configuration
type TenantSettings struct {
	// Localization
	Currency   string `json:"currency,omitempty"`
	Timezone   string `json:"timezone,omitempty"`
	DateFormat string `json:"date_format,omitempty"`

	// Billing defaults
	DefaultTaxRate   float64 `json:"default_tax_rate,omitempty"`
	TaxLabel         string  `json:"tax_label,omitempty"`
	PaymentTermsDays int     `json:"payment_terms_days,omitempty"`
	InvoicePrefix    string  `json:"invoice_prefix,omitempty"`
	EstimatePrefix   string  `json:"estimate_prefix,omitempty"`
	InvoiceFooter    string  `json:"invoice_footer,omitempty"`

	// Notification settings
	EmailNotifications bool `json:"email_notifications,omitempty"`
}

// Scan implements the sql.Scanner interface for TenantSettings
func (ts *TenantSettings) Scan(value interface{}) error {
	if value == nil {
		*ts = TenantSettings{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan TenantSettings: unsupported type")
	}

	return json.Unmarshal(bytes, ts)
}

// Value implements the driver.Valuer interface for TenantSettings
func (ts TenantSettings) Value() (driver.Value, error) {
	return json.Marshal(ts)
}

// DefaultTenantSettings returns default settings for new tenants
func DefaultTenantSettings() TenantSettings {
	return TenantSettings{
		Currency:           "USD",
		Timezone:           "UTC",
		DateFormat:         "YYYY-MM-DD",
		TaxLabel:           "Tax",
		PaymentTermsDays:   30,
		InvoicePrefix:      "INV-",
		EstimatePrefix:     "EST-",
		EmailNotifications: true,
	}
}
