package entity

import (
	"time"

	"github.com/finledger/billable-api/internal/domain/enum"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Estimate represents a quotation that may be converted into an invoice
// exactly once. ConvertedInvoiceID is set at conversion time and acts as
// the one-shot guard.
type Estimate struct {
	ID                 uuid.UUID           `gorm:"type:uuid;primary_key" json:"id"`
	TenantID           uuid.UUID           `gorm:"type:uuid;not null;index" json:"tenant_id"`
	UserID             uuid.UUID           `gorm:"type:uuid;not null;index" json:"user_id"`
	ContactID          *uuid.UUID          `gorm:"type:uuid;index" json:"contact_id,omitempty"`
	BusinessProfileID  *uuid.UUID          `gorm:"type:uuid;index" json:"business_profile_id,omitempty"`
	EstimateNumber     string              `gorm:"size:100;not null;uniqueIndex:idx_estimates_tenant_number" json:"estimate_number"`
	Status             enum.EstimateStatus `gorm:"size:20;default:'draft'" json:"status"`
	Currency           string              `gorm:"size:3;default:'USD'" json:"currency"`
	Subtotal           decimal.Decimal     `gorm:"type:decimal(15,2);default:0" json:"subtotal"`
	TaxRate            decimal.Decimal     `gorm:"type:decimal(5,2);default:0" json:"tax_rate"`
	TaxAmount          decimal.Decimal     `gorm:"type:decimal(15,2);default:0" json:"tax_amount"`
	DiscountType       enum.DiscountType   `gorm:"size:10;default:'percent'" json:"discount_type"`
	DiscountValue      decimal.Decimal     `gorm:"type:decimal(15,2);default:0" json:"discount_value"`
	DiscountAmount     decimal.Decimal     `gorm:"type:decimal(15,2);default:0" json:"discount_amount"`
	Total              decimal.Decimal     `gorm:"type:decimal(15,2);default:0" json:"total"`
	IssueDate          time.Time           `gorm:"type:date;not null" json:"issue_date"`
	ValidUntil         time.Time           `gorm:"type:date;not null" json:"valid_until"`
	Notes              *string             `gorm:"type:text" json:"notes,omitempty"`
	ConvertedInvoiceID *uuid.UUID          `gorm:"type:uuid;index" json:"converted_invoice_id,omitempty"`
	SentAt             *time.Time          `json:"sent_at,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
	DeletedAt          gorm.DeletedAt      `gorm:"index" json:"-"`

	// Relationships
	Tenant           Tenant           `gorm:"foreignKey:TenantID" json:"-"`
	User             User             `gorm:"foreignKey:UserID" json:"-"`
	Contact          *Contact         `gorm:"foreignKey:ContactID" json:"contact,omitempty"`
	BusinessProfile  *BusinessProfile `gorm:"foreignKey:BusinessProfileID" json:"business_profile,omitempty"`
	Items            []EstimateItem   `gorm:"foreignKey:EstimateID" json:"items,omitempty"`
	ConvertedInvoice *Invoice         `gorm:"foreignKey:ConvertedInvoiceID" json:"-"`
}

// BeforeCreate generates a UUID before creating a new estimate
func (e *Estimate) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Estimate model
func (Estimate) TableName() string {
	return "estimates"
}

// IsConverted reports whether this estimate has already produced an invoice.
func (e *Estimate) IsConverted() bool {
	return e.ConvertedInvoiceID != nil
}

// EstimateItem represents a line item owned exclusively by one estimate.
type EstimateItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	EstimateID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"estimate_id"`
	Description string          `gorm:"size:500;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"unit_price"`
	TaxRate     decimal.Decimal `gorm:"type:decimal(5,2);default:0" json:"tax_rate"`
	TaxAmount   decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"tax_amount"`
	Total       decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total"`
	SortOrder   int             `gorm:"default:0" json:"sort_order"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// Relationships
	Estimate Estimate `gorm:"foreignKey:EstimateID" json:"-"`
}

// BeforeCreate generates a UUID before creating a new estimate item
func (ei *EstimateItem) BeforeCreate(tx *gorm.DB) error {
	if ei.ID == uuid.Nil {
		ei.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the EstimateItem model
func (EstimateItem) TableName() string {
	return "estimate_items"
}
