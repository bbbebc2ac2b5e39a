package repository

import (
	"context"

	"github.com/finledger/billable-api/internal/domain/entity"
	"github.com/finledger/billable-api/pkg/pagination"
	"github.com/google/uuid"
)

// ContactRepository defines the interface for contact data operations
type ContactRepository interface {
	Create(ctx context.Context, contact *entity.Contact) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Contact, error)
	GetByEmail(ctx context.Context, email string) (*entity.Contact, error)
	Update(ctx context.Context, contact *entity.Contact) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params *pagination.PaginationParams, search string) ([]entity.Contact, int64, error)
}

// BusinessProfileRepository defines the interface for business profile
// data operations. Each tenant has at most one profile.
type BusinessProfileRepository interface {
	GetByTenant(ctx context.Context) (*entity.BusinessProfile, error)
	Upsert(ctx context.Context, profile *entity.BusinessProfile) error
}
