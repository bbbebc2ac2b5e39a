package repository

import (
	"context"
	"errors"

	"github.com/finledger/billable-api/internal/domain/entity"
	"github.com/finledger/billable-api/internal/domain/enum"
	domainRepo "github.com/finledger/billable-api/internal/domain/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type estimateRepository struct {
	db *gorm.DB
}

// NewEstimateRepository creates a new estimate repository
func NewEstimateRepository(db *gorm.DB) domainRepo.EstimateRepository {
	return &estimateRepository{db: db}
}

func (r *estimateRepository) Create(ctx context.Context, estimate *entity.Estimate) error {
	return dbFrom(ctx, r.db).Create(estimate).Error
}

func (r *estimateRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Estimate, error) {
	var estimate entity.Estimate
	err := dbFrom(ctx, r.db).
		Scopes(TenantScope(ctx)).
		Preload("Contact").
		First(&estimate, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &estimate, err
}

func (r *estimateRepository) GetWithItems(ctx context.Context, id uuid.UUID) (*entity.Estimate, error) {
	var estimate entity.Estimate
	err := dbFrom(ctx, r.db).
		Scopes(TenantScope(ctx)).
		Preload("Contact").
		Preload("BusinessProfile").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		First(&estimate, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &estimate, err
}

func (r *estimateRepository) Update(ctx context.Context, estimate *entity.Estimate) error {
	return dbFrom(ctx, r.db).Save(estimate).Error
}

func (r *estimateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := dbFrom(ctx, r.db)
	if err := db.Unscoped().Delete(&entity.EstimateItem{}, "estimate_id = ?", id).Error; err != nil {
		return err
	}
	return db.Scopes(TenantScope(ctx)).Delete(&entity.Estimate{}, "id = ?", id).Error
}

func (r *estimateRepository) List(ctx context.Context, params *domainRepo.EstimateFilterParams) ([]entity.Estimate, int64, error) {
	var estimates []entity.Estimate
	var total int64

	query := dbFrom(ctx, r.db).Model(&entity.Estimate{}).Scopes(TenantScope(ctx))

	if params.Search != "" {
		query = query.Where("estimate_number ILIKE ?", "%"+params.Search+"%")
	}

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	if params.ContactID != nil {
		query = query.Where("contact_id = ?", *params.ContactID)
	}

	if params.StartDate != nil {
		query = query.Where("issue_date >= ?", *params.StartDate)
	}

	if params.EndDate != nil {
		query = query.Where("issue_date <= ?", *params.EndDate)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := "created_at"
	sortOrder := "DESC"
	if params.SortBy != "" {
		sortBy = params.SortBy
	}
	if params.SortOrder == "ASC" || params.SortOrder == "asc" {
		sortOrder = "ASC"
	}

	params.Pagination.Validate()
	err := query.Offset(params.Pagination.Offset()).Limit(params.Pagination.PerPage).
		Preload("Contact").
		Order(sortBy + " " + sortOrder).
		Find(&estimates).Error

	return estimates, total, err
}

func (r *estimateRepository) ReplaceItems(ctx context.Context, estimateID uuid.UUID, items []entity.EstimateItem) error {
	db := dbFrom(ctx, r.db)

	if err := db.Unscoped().Delete(&entity.EstimateItem{}, "estimate_id = ?", estimateID).Error; err != nil {
		return err
	}

	if len(items) == 0 {
		return nil
	}

	for i := range items {
		items[i].EstimateID = estimateID
	}
	return db.Create(&items).Error
}

func (r *estimateRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status enum.EstimateStatus) error {
	return dbFrom(ctx, r.db).Model(&entity.Estimate{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// MarkConverted claims the one-shot conversion slot. The WHERE clause on
// converted_invoice_id IS NULL makes two racing conversions resolve to a
// single winner at the database.
func (r *estimateRepository) MarkConverted(ctx context.Context, id, invoiceID uuid.UUID) (bool, error) {
	result := dbFrom(ctx, r.db).Model(&entity.Estimate{}).
		Where("id = ? AND converted_invoice_id IS NULL", id).
		Updates(map[string]interface{}{
			"converted_invoice_id": invoiceID,
			"status":               enum.EstimateStatusAccepted,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
