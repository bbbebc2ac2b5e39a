package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProviderEvent records a webhook event that has already been applied to
// the ledger. The unique constraint on EventID is the dedupe guard for
// at-least-once delivery: a redelivered event hits the constraint instead
// of crediting an invoice twice.
type ProviderEvent struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	TenantID  uuid.UUID  `gorm:"type:uuid;index" json:"tenant_id"`
	EventID   string     `gorm:"size:255;uniqueIndex;not null" json:"event_id"`
	EventType string     `gorm:"size:100;not null" json:"event_type"`
	SessionID string     `gorm:"size:255;index" json:"session_id"`
	InvoiceID *uuid.UUID `gorm:"type:uuid;index" json:"invoice_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// BeforeCreate generates a UUID before creating a new provider event
func (e *ProviderEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the ProviderEvent model
func (ProviderEvent) TableName() string {
	return "provider_events"
}
