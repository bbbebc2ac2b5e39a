package repository

import (
	"context"

	"github.com/finledger/billable-api/internal/domain/entity"
	"github.com/finledger/billable-api/pkg/pagination"
	"github.com/google/uuid"
)

// PaymentRepository defines the interface for payment data operations.
// Payments are append-only: there is no update or delete.
type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error)
	GetByProviderReference(ctx context.Context, ref string) (*entity.Payment, error)
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]entity.Payment, error)
	List(ctx context.Context, params *pagination.PaginationParams) ([]entity.Payment, int64, error)
}

// ProviderEventRepository defines the interface for the processed
// provider events set used to deduplicate webhook deliveries.
type ProviderEventRepository interface {
	// Record inserts the event ID, relying on the unique constraint.
	// Returns false (and no error) when the event was already recorded.
	Record(ctx context.Context, event *entity.ProviderEvent) (bool, error)
	GetByEventID(ctx context.Context, eventID string) (*entity.ProviderEvent, error)
	DeleteOlderThan(ctx context.Context, days int) error
}
