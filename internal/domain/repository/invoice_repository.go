package repository

import (
	"context"
	"time"

	"github.com/finledger/billable-api/internal/domain/entity"
	"github.com/finledger/billable-api/internal/domain/enum"
	"github.com/finledger/billable-api/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceRepository defines the interface for invoice data operations
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Invoice, error)
	GetWithItems(ctx context.Context, id uuid.UUID) (*entity.Invoice, error)
	GetByProviderSession(ctx context.Context, sessionID string) (*entity.Invoice, error)
	Update(ctx context.Context, invoice *entity.Invoice) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params *InvoiceFilterParams) ([]entity.Invoice, int64, error)
	GetDueInvoices(ctx context.Context, params *pagination.PaginationParams) ([]entity.Invoice, int64, error)

	// ReplaceItems deletes the invoice's current item set and inserts the
	// new batch; items are never patched individually.
	ReplaceItems(ctx context.Context, invoiceID uuid.UUID, items []entity.InvoiceItem) error

	// CreditBalance applies a single atomic balance update:
	// amount_paid = amount_paid + amount and
	// amount_due = GREATEST(total - amount_paid, 0). Returns the updated
	// invoice. Expressed as one UPDATE so two concurrent payments on the
	// same invoice never lose an increment.
	CreditBalance(ctx context.Context, invoiceID uuid.UUID, amount decimal.Decimal) (*entity.Invoice, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status enum.InvoiceStatus) error

	// MarkSent flips draft to sent and stamps sent_at, but only when
	// sent_at is still NULL; a resend leaves both untouched.
	MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error

	// MarkPaid flips the status to paid and stamps paid_at once.
	MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) error
	SetProviderSession(ctx context.Context, id uuid.UUID, sessionID *string) error
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

// InvoiceFilterParams contains filtering parameters for invoice queries
type InvoiceFilterParams struct {
	Pagination *pagination.PaginationParams
	Search     string
	Status     *enum.InvoiceStatus
	ContactID  *uuid.UUID
	StartDate  *time.Time
	EndDate    *time.Time
	SortBy     string
	SortOrder  string
}
