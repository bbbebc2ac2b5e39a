package service

import (
	"context"
	"fmt"
	"time"

	"github.com/finledger/billable-api/internal/domain/billing"
	"github.com/finledger/billable-api/internal/domain/entity"
	"github.com/finledger/billable-api/internal/domain/enum"
	"github.com/finledger/billable-api/internal/domain/repository"
	infraRepo "github.com/finledger/billable-api/internal/infrastructure/repository"
	"github.com/finledger/billable-api/pkg/apperror"
	"github.com/finledger/billable-api/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerService applies payments to invoices. Every application is one
// transaction holding the append-only payment row, the atomic balance
// credit and the resulting status transition.
type LedgerService struct {
	invoiceRepo repository.InvoiceRepository
	paymentRepo repository.PaymentRepository
	tx          repository.Transactor
}

// NewLedgerService creates a new ledger service
func NewLedgerService(
	invoiceRepo repository.InvoiceRepository,
	paymentRepo repository.PaymentRepository,
	tx repository.Transactor,
) *LedgerService {
	return &LedgerService{
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		tx:          tx,
	}
}

// ApplyPaymentInput represents a payment to record against an invoice
type ApplyPaymentInput struct {
	InvoiceID         uuid.UUID
	Amount            decimal.Decimal
	Currency          string
	PaymentMethod     string
	Notes             *string
	ProviderReference *string
	PaidAt            *time.Time
}

// AppliedPayment pairs the recorded payment with the invoice balance it
// produced, so callers see amount_paid, amount_due and the new status
// without a second read.
type AppliedPayment struct {
	Payment *entity.Payment `json:"payment"`
	Invoice *entity.Invoice `json:"invoice"`
}

// ApplyPayment records a payment and credits the invoice balance. The
// payment row, the balance update and the status change commit as a unit;
// the balance credit is a single atomic UPDATE so concurrent payments on
// the same invoice never lose an increment.
func (s *LedgerService) ApplyPayment(ctx context.Context, input *ApplyPaymentInput) (*AppliedPayment, error) {
	tenantID, ok := infraRepo.GetTenantID(ctx)
	if !ok {
		return nil, apperror.NewBadRequestError("Tenant context required")
	}

	if !input.Amount.IsPositive() {
		return nil, apperror.NewBadRequestError("Payment amount must be positive")
	}

	invoice, err := s.invoiceRepo.GetByID(ctx, input.InvoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, apperror.NewNotFoundError("Invoice")
	}

	if !billing.CanApplyPayment(invoice.Status, invoice.AmountDue) {
		return nil, apperror.NewConflictError(
			fmt.Sprintf("Invoice %s does not accept payments (status %s, due %s)",
				invoice.InvoiceNumber, invoice.Status, invoice.AmountDue.StringFixed(2)))
	}

	currency := input.Currency
	if currency == "" {
		currency = invoice.Currency
	}
	method := input.PaymentMethod
	if method == "" {
		method = "manual"
	}
	paidAt := time.Now()
	if input.PaidAt != nil {
		paidAt = *input.PaidAt
	}

	payment := &entity.Payment{
		TenantID:          tenantID,
		InvoiceID:         invoice.ID,
		Amount:            input.Amount,
		Currency:          currency,
		PaymentMethod:     method,
		Status:            enum.PaymentStatusSucceeded,
		ProviderReference: input.ProviderReference,
		Notes:             input.Notes,
		PaidAt:            paidAt,
	}

	var credited *entity.Invoice
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.paymentRepo.Create(ctx, payment); err != nil {
			return err
		}

		updated, err := s.invoiceRepo.CreditBalance(ctx, invoice.ID, input.Amount)
		if err != nil {
			return err
		}

		next := billing.StatusAfterPayment(updated.AmountDue)
		updated.Status = next
		if next == enum.InvoiceStatusPaid {
			updated.PaidAt = &paidAt
			credited = updated
			return s.invoiceRepo.MarkPaid(ctx, invoice.ID, paidAt)
		}
		credited = updated
		return s.invoiceRepo.UpdateStatus(ctx, invoice.ID, next)
	})
	if err != nil {
		return nil, err
	}

	return &AppliedPayment{Payment: payment, Invoice: credited}, nil
}

// GetPayment retrieves a payment by ID
func (s *LedgerService) GetPayment(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, apperror.NewNotFoundError("Payment")
	}
	return payment, nil
}

// ListInvoicePayments returns all payments applied to one invoice
func (s *LedgerService) ListInvoicePayments(ctx context.Context, invoiceID uuid.UUID) ([]entity.Payment, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, apperror.NewNotFoundError("Invoice")
	}
	return s.paymentRepo.ListByInvoice(ctx, invoiceID)
}

// ListPayments lists all payments for the tenant
func (s *LedgerService) ListPayments(ctx context.Context, params *pagination.PaginationParams) (*pagination.PaginatedResult[entity.Payment], error) {
	payments, total, err := s.paymentRepo.List(ctx, params)
	if err != nil {
		return nil, err
	}

	pag := pagination.NewPagination(params.Page, params.PerPage, total)
	return pagination.NewPaginatedResult(payments, pag), nil
}
