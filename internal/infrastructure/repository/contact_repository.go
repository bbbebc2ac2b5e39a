package repository

import (
	"context"
	"errors"

	"github.com/finledger/billable-api/internal/domain/entity"
	domainRepo "github.com/finledger/billable-api/internal/domain/repository"
	"github.com/finledger/billable-api/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type contactRepository struct {
	db *gorm.DB
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db *gorm.DB) domainRepo.ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) Create(ctx context.Context, contact *entity.Contact) error {
	return dbFrom(ctx, r.db).Create(contact).Error
}

func (r *contactRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Contact, error) {
	var contact entity.Contact
	err := dbFrom(ctx, r.db).Scopes(TenantScope(ctx)).First(&contact, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &contact, err
}

func (r *contactRepository) GetByEmail(ctx context.Context, email string) (*entity.Contact, error) {
	var contact entity.Contact
	err := dbFrom(ctx, r.db).Scopes(TenantScope(ctx)).First(&contact, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &contact, err
}

func (r *contactRepository) Update(ctx context.Context, contact *entity.Contact) error {
	return dbFrom(ctx, r.db).Save(contact).Error
}

func (r *contactRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return dbFrom(ctx, r.db).Scopes(TenantScope(ctx)).Delete(&entity.Contact{}, "id = ?", id).Error
}

func (r *contactRepository) List(ctx context.Context, params *pagination.PaginationParams, search string) ([]entity.Contact, int64, error) {
	var contacts []entity.Contact
	var total int64

	query := dbFrom(ctx, r.db).Model(&entity.Contact{}).Scopes(TenantScope(ctx))

	if search != "" {
		query = query.Where("name ILIKE ? OR email ILIKE ? OR company_name ILIKE ?",
			"%"+search+"%", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Validate()
	err := query.Offset(params.Offset()).Limit(params.PerPage).
		Order("name ASC").
		Find(&contacts).Error

	return contacts, total, err
}

type businessProfileRepository struct {
	db *gorm.DB
}

// NewBusinessProfileRepository creates a new business profile repository
func NewBusinessProfileRepository(db *gorm.DB) domainRepo.BusinessProfileRepository {
	return &businessProfileRepository{db: db}
}

func (r *businessProfileRepository) GetByTenant(ctx context.Context) (*entity.BusinessProfile, error) {
	var profile entity.BusinessProfile
	err := dbFrom(ctx, r.db).Scopes(TenantScope(ctx)).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &profile, err
}

func (r *businessProfileRepository) Upsert(ctx context.Context, profile *entity.BusinessProfile) error {
	return dbFrom(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "email", "phone", "address", "tax_id", "logo_url", "website", "updated_at",
			}),
		}).
		Create(profile).Error
}
