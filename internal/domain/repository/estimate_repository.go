package repository

import (
	"context"
	"time"

	"github.com/finledger/billable-api/internal/domain/entity"
	"github.com/finledger/billable-api/internal/domain/enum"
	"github.com/finledger/billable-api/pkg/pagination"
	"github.com/google/uuid"
)

// EstimateRepository defines the interface for estimate data operations
type EstimateRepository interface {
	Create(ctx context.Context, estimate *entity.Estimate) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Estimate, error)
	GetWithItems(ctx context.Context, id uuid.UUID) (*entity.Estimate, error)
	Update(ctx context.Context, estimate *entity.Estimate) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params *EstimateFilterParams) ([]entity.Estimate, int64, error)

	// ReplaceItems deletes the estimate's current item set and inserts the
	// new batch.
	ReplaceItems(ctx context.Context, estimateID uuid.UUID, items []entity.EstimateItem) error

	UpdateStatus(ctx context.Context, id uuid.UUID, status enum.EstimateStatus) error

	// MarkConverted stamps converted_invoice_id and flips the status to
	// accepted, but only while converted_invoice_id is still NULL. Returns
	// false when another conversion already won.
	MarkConverted(ctx context.Context, id, invoiceID uuid.UUID) (bool, error)
}

// EstimateFilterParams contains filtering parameters for estimate queries
type EstimateFilterParams struct {
	Pagination *pagination.PaginationParams
	Search     string
	Status     *enum.EstimateStatus
	ContactID  *uuid.UUID
	StartDate  *time.Time
	EndDate    *time.Time
	SortBy     string
	SortOrder  string
}
