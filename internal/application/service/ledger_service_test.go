package service

import (
	"context"
	"testing"

	"github.com/finledger/billable-api/internal/domain/entity"
	"github.com/finledger/billable-api/internal/domain/enum"
	infraRepo "github.com/finledger/billable-api/internal/infrastructure/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func seedInvoice(repo *mockInvoiceRepo, tenantID uuid.UUID, status enum.InvoiceStatus, total, paid string) *entity.Invoice {
	inv := &entity.Invoice{
		ID:            uuid.New(),
		TenantID:      tenantID,
		InvoiceNumber: "INV-00001",
		Status:        status,
		Currency:      "USD",
		DiscountType:  enum.DiscountTypePercent,
		Total:         dec(total),
		AmountPaid:    dec(paid),
		AmountDue:     dec(total).Sub(dec(paid)),
	}
	repo.invoices[inv.ID] = inv
	return inv
}

func TestApplyPayment(t *testing.T) {
	tenantID := uuid.New()
	ctx := infraRepo.WithTenant(context.Background(), tenantID)

	t.Run("partial payment flips status to partial", func(t *testing.T) {
		invoiceRepo := newMockInvoiceRepo()
		paymentRepo := &mockPaymentRepo{}
		svc := NewLedgerService(invoiceRepo, paymentRepo, fakeTx{})
		inv := seedInvoice(invoiceRepo, tenantID, enum.InvoiceStatusSent, "137.50", "0")

		applied, err := svc.ApplyPayment(ctx, &ApplyPaymentInput{
			InvoiceID: inv.ID,
			Amount:    dec("100"),
		})
		require.NoError(t, err)
		assert.Equal(t, "100.00", applied.Payment.Amount.StringFixed(2))
		assert.Equal(t, enum.PaymentStatusSucceeded, applied.Payment.Status)
		assert.Equal(t, "manual", applied.Payment.PaymentMethod)
		assert.Equal(t, "USD", applied.Payment.Currency)

		assert.Equal(t, enum.InvoiceStatusPartial, inv.Status)
		assert.Equal(t, "100.00", inv.AmountPaid.StringFixed(2))
		assert.Equal(t, "37.50", inv.AmountDue.StringFixed(2))
		assert.Nil(t, inv.PaidAt)
	})

	t.Run("returns the credited invoice alongside the payment", func(t *testing.T) {
		invoiceRepo := newMockInvoiceRepo()
		paymentRepo := &mockPaymentRepo{}
		svc := NewLedgerService(invoiceRepo, paymentRepo, fakeTx{})
		inv := seedInvoice(invoiceRepo, tenantID, enum.InvoiceStatusSent, "137.50", "0")

		applied, err := svc.ApplyPayment(ctx, &ApplyPaymentInput{
			InvoiceID: inv.ID,
			Amount:    dec("100"),
		})
		require.NoError(t, err)
		require.NotNil(t, applied.Invoice)
		assert.Equal(t, "100.00", applied.Invoice.AmountPaid.StringFixed(2))
		assert.Equal(t, "37.50", applied.Invoice.AmountDue.StringFixed(2))
		assert.Equal(t, enum.InvoiceStatusPartial, applied.Invoice.Status)

		applied, err = svc.ApplyPayment(ctx, &ApplyPaymentInput{
			InvoiceID: inv.ID,
			Amount:    dec("37.50"),
		})
		require.NoError(t, err)
		assert.Equal(t, "0.00", applied.Invoice.AmountDue.StringFixed(2))
		assert.Equal(t, enum.InvoiceStatusPaid, applied.Invoice.Status)
		require.NotNil(t, applied.Invoice.PaidAt)
	})

	t.Run("settling payment flips status to paid and stamps paid_at", func(t *testing.T) {
		invoiceRepo := newMockInvoiceRepo()
		paymentRepo := &mockPaymentRepo{}
		svc := NewLedgerService(invoiceRepo, paymentRepo, fakeTx{})
		inv := seedInvoice(invoiceRepo, tenantID, enum.InvoiceStatusPartial, "137.50", "100")

		_, err := svc.ApplyPayment(ctx, &ApplyPaymentInput{
			InvoiceID: inv.ID,
			Amount:    dec("37.50"),
		})
		require.NoError(t, err)

		assert.Equal(t, enum.InvoiceStatusPaid, inv.Status)
		assert.Equal(t, "0.00", inv.AmountDue.StringFixed(2))
		require.NotNil(t, inv.PaidAt)
	})

	t.Run("two payments leave two ledger rows", func(t *testing.T) {
		invoiceRepo := newMockInvoiceRepo()
		paymentRepo := &mockPaymentRepo{}
		svc := NewLedgerService(invoiceRepo, paymentRepo, fakeTx{})
		inv := seedInvoice(invoiceRepo, tenantID, enum.InvoiceStatusSent, "200", "0")

		_, err := svc.ApplyPayment(ctx, &ApplyPaymentInput{InvoiceID: inv.ID, Amount: dec("50")})
		require.NoError(t, err)
		_, err = svc.ApplyPayment(ctx, &ApplyPaymentInput{InvoiceID: inv.ID, Amount: dec("150")})
		require.NoError(t, err)

		assert.Len(t, paymentRepo.payments, 2)
		assert.Equal(t, enum.InvoiceStatusPaid, inv.Status)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		invoiceRepo := newMockInvoiceRepo()
		svc := NewLedgerService(invoiceRepo, &mockPaymentRepo{}, fakeTx{})
		inv := seedInvoice(invoiceRepo, tenantID, enum.InvoiceStatusSent, "100", "0")

		_, err := svc.ApplyPayment(ctx, &ApplyPaymentInput{InvoiceID: inv.ID, Amount: dec("0")})
		assert.Error(t, err)
		_, err = svc.ApplyPayment(ctx, &ApplyPaymentInput{InvoiceID: inv.ID, Amount: dec("-5")})
		assert.Error(t, err)
	})

	t.Run("rejects payment on paid invoice", func(t *testing.T) {
		invoiceRepo := newMockInvoiceRepo()
		paymentRepo := &mockPaymentRepo{}
		svc := NewLedgerService(invoiceRepo, paymentRepo, fakeTx{})
		inv := seedInvoice(invoiceRepo, tenantID, enum.InvoiceStatusPaid, "100", "100")

		_, err := svc.ApplyPayment(ctx, &ApplyPaymentInput{InvoiceID: inv.ID, Amount: dec("10")})
		assert.Error(t, err)
		assert.Empty(t, paymentRepo.payments)
	})

	t.Run("rejects payment on cancelled invoice", func(t *testing.T) {
		invoiceRepo := newMockInvoiceRepo()
		svc := NewLedgerService(invoiceRepo, &mockPaymentRepo{}, fakeTx{})
		inv := seedInvoice(invoiceRepo, tenantID, enum.InvoiceStatusCancelled, "100", "0")

		_, err := svc.ApplyPayment(ctx, &ApplyPaymentInput{InvoiceID: inv.ID, Amount: dec("10")})
		assert.Error(t, err)
	})

	t.Run("unknown invoice is not found", func(t *testing.T) {
		svc := NewLedgerService(newMockInvoiceRepo(), &mockPaymentRepo{}, fakeTx{})

		_, err := svc.ApplyPayment(ctx, &ApplyPaymentInput{InvoiceID: uuid.New(), Amount: dec("10")})
		assert.Error(t, err)
	})

	t.Run("requires tenant context", func(t *testing.T) {
		svc := NewLedgerService(newMockInvoiceRepo(), &mockPaymentRepo{}, fakeTx{})

		_, err := svc.ApplyPayment(context.Background(), &ApplyPaymentInput{
			InvoiceID: uuid.New(),
			Amount:    dec("10"),
		})
		assert.Error(t, err)
	})
}
