package repository

import (
	"context"
	"errors"
	"time"

	"github.com/finledger/billable-api/internal/domain/entity"
	"github.com/finledger/billable-api/internal/domain/enum"
	domainRepo "github.com/finledger/billable-api/internal/domain/repository"
	"github.com/finledger/billable-api/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type invoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *gorm.DB) domainRepo.InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *entity.Invoice) error {
	return dbFrom(ctx, r.db).Create(invoice).Error
}

func (r *invoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	var invoice entity.Invoice
	err := dbFrom(ctx, r.db).
		Scopes(TenantScope(ctx)).
		Preload("Contact").
		First(&invoice, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &invoice, err
}

func (r *invoiceRepository) GetWithItems(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	var invoice entity.Invoice
	err := dbFrom(ctx, r.db).
		Scopes(TenantScope(ctx)).
		Preload("Contact").
		Preload("BusinessProfile").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("paid_at ASC")
		}).
		First(&invoice, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &invoice, err
}

// GetByProviderSession looks an invoice up by its in-flight checkout
// session. Webhook processing has no tenant context yet, so this query is
// deliberately unscoped.
func (r *invoiceRepository) GetByProviderSession(ctx context.Context, sessionID string) (*entity.Invoice, error) {
	var invoice entity.Invoice
	err := dbFrom(ctx, r.db).First(&invoice, "provider_session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &invoice, err
}

func (r *invoiceRepository) Update(ctx context.Context, invoice *entity.Invoice) error {
	return dbFrom(ctx, r.db).Save(invoice).Error
}

func (r *invoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := dbFrom(ctx, r.db)
	if err := db.Delete(&entity.InvoiceItem{}, "invoice_id = ?", id).Error; err != nil {
		return err
	}
	return db.Scopes(TenantScope(ctx)).Delete(&entity.Invoice{}, "id = ?", id).Error
}

func (r *invoiceRepository) List(ctx context.Context, params *domainRepo.InvoiceFilterParams) ([]entity.Invoice, int64, error) {
	var invoices []entity.Invoice
	var total int64

	query := dbFrom(ctx, r.db).Model(&entity.Invoice{}).Scopes(TenantScope(ctx))

	if params.Search != "" {
		query = query.Where("invoice_number ILIKE ?", "%"+params.Search+"%")
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

	// Sorting
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
		Find(&invoices).Error

	return invoices, total, err
}

func (r *invoiceRepository) GetDueInvoices(ctx context.Context, params *pagination.PaginationParams) ([]entity.Invoice, int64, error) {
	var invoices []entity.Invoice
	var total int64

	query := dbFrom(ctx, r.db).Model(&entity.Invoice{}).Scopes(TenantScope(ctx)).
		Where("amount_due > 0").
		Where("status NOT IN ?", []enum.InvoiceStatus{enum.InvoiceStatusDraft, enum.InvoiceStatusCancelled})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Validate()
	err := query.Offset(params.Offset()).Limit(params.PerPage).
		Preload("Contact").
		Order("due_date ASC").
		Find(&invoices).Error

	return invoices, total, err
}

func (r *invoiceRepository) ReplaceItems(ctx context.Context, invoiceID uuid.UUID, items []entity.InvoiceItem) error {
	db := dbFrom(ctx, r.db)

	if err := db.Unscoped().Delete(&entity.InvoiceItem{}, "invoice_id = ?", invoiceID).Error; err != nil {
		return err
	}

	if len(items) == 0 {
		return nil
	}

	for i := range items {
		items[i].InvoiceID = invoiceID
	}
	return db.Create(&items).Error
}

// CreditBalance is the lost-update-safe ledger increment: the new paid
// and due amounts are computed inside one UPDATE from the row's current
// values, never from values previously read into the application.
func (r *invoiceRepository) CreditBalance(ctx context.Context, invoiceID uuid.UUID, amount decimal.Decimal) (*entity.Invoice, error) {
	db := dbFrom(ctx, r.db)

	result := db.Model(&entity.Invoice{}).
		Where("id = ?", invoiceID).
		Updates(map[string]interface{}{
			"amount_paid": gorm.Expr("amount_paid + ?", amount),
			"amount_due":  gorm.Expr("GREATEST(total - (amount_paid + ?), 0)", amount),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	var invoice entity.Invoice
	if err := db.First(&invoice, "id = ?", invoiceID).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status enum.InvoiceStatus) error {
	return dbFrom(ctx, r.db).Model(&entity.Invoice{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *invoiceRepository) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	// Only the first send stamps sent_at and flips the status; a resend
	// matches zero rows and changes nothing.
	return dbFrom(ctx, r.db).Model(&entity.Invoice{}).
		Where("id = ? AND sent_at IS NULL", id).
		Updates(map[string]interface{}{
			"status":  enum.InvoiceStatusSent,
			"sent_at": sentAt,
		}).Error
}

func (r *invoiceRepository) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) error {
	return dbFrom(ctx, r.db).Model(&entity.Invoice{}).
		Where("id = ? AND paid_at IS NULL", id).
		Updates(map[string]interface{}{
			"status":  enum.InvoiceStatusPaid,
			"paid_at": paidAt,
		}).Error
}

func (r *invoiceRepository) SetProviderSession(ctx context.Context, id uuid.UUID, sessionID *string) error {
	return dbFrom(ctx, r.db).Model(&entity.Invoice{}).
		Where("id = ?", id).
		Update("provider_session_id", sessionID).Error
}

func (r *invoiceRepository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	result := dbFrom(ctx, r.db).Model(&entity.Invoice{}).
		Scopes(TenantScope(ctx)).
		Where("due_date < ? AND status IN ?", asOf,
			[]enum.InvoiceStatus{enum.InvoiceStatusSent, enum.InvoiceStatusViewed}).
		Update("status", enum.InvoiceStatusOverdue)
	return result.RowsAffected, result.Error
}
