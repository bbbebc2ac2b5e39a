package entity

import (
	"fmt"
	"time"

	"github.com/finledger/billable-api/internal/domain/enum"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DocumentSequence is the per-tenant, per-kind counter backing document
// number allocation. NextNumber is only ever advanced through a single
// atomic UPDATE so concurrent allocations can never hand out the same
// number.
type DocumentSequence struct {
	ID         uuid.UUID         `gorm:"type:uuid;primary_key" json:"id"`
	TenantID   uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_sequences_tenant_kind" json:"tenant_id"`
	Kind       enum.DocumentKind `gorm:"size:20;not null;uniqueIndex:idx_sequences_tenant_kind" json:"kind"`
	Prefix     string            `gorm:"size:20;not null" json:"prefix"`
	NextNumber int64             `gorm:"not null;default:1" json:"next_number"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`

	// Relationships
	Tenant Tenant `gorm:"foreignKey:TenantID" json:"-"`
}

// BeforeCreate generates a UUID before creating a new sequence row
func (s *DocumentSequence) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the DocumentSequence model
func (DocumentSequence) TableName() string {
	return "document_sequences"
}

// FormatNumber renders a counter value as a document number,
// e.g. prefix "INV-" and value 42 become "INV-00042".
func FormatNumber(prefix string, value int64) string {
	return fmt.Sprintf("%s%05d", prefix, value)
}
