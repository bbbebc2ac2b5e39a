package entity

import (
	"time"

	"github.com/finledger/billable-api/internal/domain/enum"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice represents a tenant-scoped invoice with its monetary aggregate.
// The balance invariant maintained by every mutation is
// total = subtotal + tax_amount - discount_amount and
// amount_due = max(0, total - amount_paid).
type Invoice struct {
	ID                uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	TenantID          uuid.UUID          `gorm:"type:uuid;not null;index" json:"tenant_id"`
	UserID            uuid.UUID          `gorm:"type:uuid;not null;index" json:"user_id"`
	ContactID         *uuid.UUID         `gorm:"type:uuid;index" json:"contact_id,omitempty"`
	BusinessProfileID *uuid.UUID         `gorm:"type:uuid;index" json:"business_profile_id,omitempty"`
	InvoiceNumber     string             `gorm:"size:100;not null;uniqueIndex:idx_invoices_tenant_number" json:"invoice_number"`
	Status            enum.InvoiceStatus `gorm:"size:20;default:'draft'" json:"status"`
	Currency          string             `gorm:"size:3;default:'USD'" json:"currency"`
	Subtotal          decimal.Decimal    `gorm:"type:decimal(15,2);default:0" json:"subtotal"`
	TaxRate           decimal.Decimal    `gorm:"type:decimal(5,2);default:0" json:"tax_rate"`
	TaxAmount         decimal.Decimal    `gorm:"type:decimal(15,2);default:0" json:"tax_amount"`
	DiscountType      enum.DiscountType  `gorm:"size:10;default:'percent'" json:"discount_type"`
	DiscountValue     decimal.Decimal    `gorm:"type:decimal(15,2);default:0" json:"discount_value"`
	DiscountAmount    decimal.Decimal    `gorm:"type:decimal(15,2);default:0" json:"discount_amount"`
	Total             decimal.Decimal    `gorm:"type:decimal(15,2);default:0" json:"total"`
	AmountPaid        decimal.Decimal    `gorm:"type:decimal(15,2);default:0" json:"amount_paid"`
	AmountDue         decimal.Decimal    `gorm:"type:decimal(15,2);default:0" json:"amount_due"`
	IssueDate         time.Time          `gorm:"type:date;not null" json:"issue_date"`
	DueDate           time.Time          `gorm:"type:date;not null" json:"due_date"`
	Notes             *string            `gorm:"type:text" json:"notes,omitempty"`
	Terms             *string            `gorm:"type:text" json:"terms,omitempty"`
	ProviderSessionID *string            `gorm:"size:255;index" json:"provider_session_id,omitempty"`
	SentAt            *time.Time         `json:"sent_at,omitempty"`
	PaidAt            *time.Time         `json:"paid_at,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
	DeletedAt         gorm.DeletedAt     `gorm:"index" json:"-"`

	// Relationships
	Tenant          Tenant           `gorm:"foreignKey:TenantID" json:"-"`
	User            User             `gorm:"foreignKey:UserID" json:"-"`
	Contact         *Contact         `gorm:"foreignKey:ContactID" json:"contact,omitempty"`
	BusinessProfile *BusinessProfile `gorm:"foreignKey:BusinessProfileID" json:"business_profile,omitempty"`
	Items           []InvoiceItem    `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
	Payments        []Payment        `gorm:"foreignKey:InvoiceID" json:"payments,omitempty"`
}

// BeforeCreate generates a UUID before creating a new invoice
func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Invoice model
func (Invoice) TableName() string {
	return "invoices"
}

// HasPayments reports whether any payment has been applied. AmountPaid is
// authoritative even when the Payments relation is not loaded.
func (i *Invoice) HasPayments() bool {
	return i.AmountPaid.IsPositive()
}

// InvoiceItem represents a line item owned exclusively by one invoice.
// Items are replaced as a batch on every edit, never patched individually.
type InvoiceItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
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
	Invoice Invoice `gorm:"foreignKey:InvoiceID" json:"-"`
}

// BeforeCreate generates a UUID before creating a new invoice item
func (ii *InvoiceItem) BeforeCreate(tx *gorm.DB) error {
	if ii.ID == uuid.Nil {
		ii.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the InvoiceItem model
func (InvoiceItem) TableName() string {
	return "invoice_items"
}
