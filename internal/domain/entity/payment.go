package entity

import (
	"time"

	"github.com/finledger/billable-api/internal/domain/enum"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment is an immutable, append-only record of money applied to an
// invoice. Rows are never updated or deleted; corrections are new rows.
type Payment struct {
	ID                uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	TenantID          uuid.UUID          `gorm:"type:uuid;not null;index" json:"tenant_id"`
	InvoiceID         uuid.UUID          `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Amount            decimal.Decimal    `gorm:"type:decimal(15,2);not null" json:"amount"`
	Currency          string             `gorm:"size:3;default:'USD'" json:"currency"`
	PaymentMethod     string             `gorm:"size:50;default:'manual'" json:"payment_method"`
	Status            enum.PaymentStatus `gorm:"size:20;default:'succeeded'" json:"status"`
	ProviderReference *string            `gorm:"size:255;uniqueIndex:idx_payments_provider_ref,where:provider_reference IS NOT NULL" json:"provider_reference,omitempty"`
	Notes             *string            `gorm:"type:text" json:"notes,omitempty"`
	PaidAt            time.Time          `gorm:"not null" json:"paid_at"`
	CreatedAt         time.Time          `json:"created_at"`

	// Relationships
	Tenant  Tenant  `gorm:"foreignKey:TenantID" json:"-"`
	Invoice Invoice `gorm:"foreignKey:InvoiceID" json:"-"`
}

// BeforeCreate generates a UUID before creating a new payment
func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Payment model
func (Payment) TableName() string {
	return "payments"
}
