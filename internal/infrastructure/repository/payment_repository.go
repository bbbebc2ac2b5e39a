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

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB) domainRepo.PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	return dbFrom(ctx, r.db).Create(payment).Error
}

func (r *paymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	var payment entity.Payment
	err := dbFrom(ctx, r.db).Scopes(TenantScope(ctx)).First(&payment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &payment, err
}

// GetByProviderReference is unscoped: webhook processing resolves the
// tenant from the payment itself.
func (r *paymentRepository) GetByProviderReference(ctx context.Context, ref string) (*entity.Payment, error) {
	var payment entity.Payment
	err := dbFrom(ctx, r.db).First(&payment, "provider_reference = ?", ref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &payment, err
}

func (r *paymentRepository) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]entity.Payment, error) {
	var payments []entity.Payment
	err := dbFrom(ctx, r.db).Scopes(TenantScope(ctx)).
		Where("invoice_id = ?", invoiceID).
		Order("paid_at ASC").
		Find(&payments).Error
	return payments, err
}

func (r *paymentRepository) List(ctx context.Context, params *pagination.PaginationParams) ([]entity.Payment, int64, error) {
	var payments []entity.Payment
	var total int64

	query := dbFrom(ctx, r.db).Model(&entity.Payment{}).Scopes(TenantScope(ctx))

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Validate()
	err := query.Offset(params.Offset()).Limit(params.PerPage).
		Order("paid_at DESC").
		Find(&payments).Error

	return payments, total, err
}

type providerEventRepository struct {
	db *gorm.DB
}

// NewProviderEventRepository creates a new provider event repository
func NewProviderEventRepository(db *gorm.DB) domainRepo.ProviderEventRepository {
	return &providerEventRepository{db: db}
}

// Record inserts the processed-event marker. ON CONFLICT DO NOTHING on
// the unique event_id turns a redelivered event into RowsAffected == 0
// instead of an error.
func (r *providerEventRepository) Record(ctx context.Context, event *entity.ProviderEvent) (bool, error) {
	result := dbFrom(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(event)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *providerEventRepository) GetByEventID(ctx context.Context, eventID string) (*entity.ProviderEvent, error) {
	var event entity.ProviderEvent
	err := dbFrom(ctx, r.db).First(&event, "event_id = ?", eventID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &event, err
}

func (r *providerEventRepository) DeleteOlderThan(ctx context.Context, days int) error {
	return dbFrom(ctx, r.db).
		Where("created_at < NOW() - make_interval(days => ?)", days).
		Delete(&entity.ProviderEvent{}).Error
}
