package service

import (
	"context"
	"testing"
	"time"

	"github.com/finledger/billable-api/internal/domain/entity"
	"github.com/finledger/billable-api/internal/domain/enum"
	"github.com/finledger/billable-api/pkg/email"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type estimateFixture struct {
	svc       *EstimateService
	estimates *mockEstimateRepo
	invoices  *mockInvoiceRepo
	tenantID  uuid.UUID
	ctx       context.Context
}

func newEstimateFixture(t *testing.T) *estimateFixture {
	t.Helper()
	tenantID := uuid.New()
	tenant := &entity.Tenant{
		ID:       tenantID,
		Name:     "Acme Studio",
		Slug:     "acme-studio",
		Settings: entity.DefaultTenantSettings(),
	}
	estimates := newMockEstimateRepo()
	invoices := newMockInvoiceRepo()
	svc := NewEstimateService(
		estimates,
		invoices,
		newMockContactRepo(),
		&mockProfileRepo{},
		&mockTenantRepo{tenant: tenant},
		newMockSequenceRepo(),
		fakeTx{},
		testRenderer(),
		email.NewEmailService(email.EmailConfig{}),
	)
	return &estimateFixture{
		svc:       svc,
		estimates: estimates,
		invoices:  invoices,
		tenantID:  tenantID,
		ctx:       contextWithTenant(tenantID),
	}
}

func seedEstimate(repo *mockEstimateRepo, tenantID uuid.UUID, status enum.EstimateStatus) *entity.Estimate {
	est := &entity.Estimate{
		ID:             uuid.New(),
		TenantID:       tenantID,
		UserID:         uuid.New(),
		EstimateNumber: "EST-00001",
		Status:         status,
		Currency:       "EUR",
		Subtotal:       dec("125"),
		TaxRate:        dec("10"),
		TaxAmount:      dec("12.50"),
		DiscountType:   enum.DiscountTypePercent,
		Total:          dec("137.50"),
		IssueDate:      time.Now(),
		ValidUntil:     time.Now().AddDate(0, 1, 0),
	}
	repo.estimates[est.ID] = est
	repo.items[est.ID] = []entity.EstimateItem{
		{ID: uuid.New(), EstimateID: est.ID, Description: "Design work", Quantity: dec("2"), UnitPrice: dec("50"), TaxRate: dec("10"), TaxAmount: dec("10"), Total: dec("110")},
		{ID: uuid.New(), EstimateID: est.ID, Description: "Hosting", Quantity: dec("1"), UnitPrice: dec("25"), TaxRate: dec("10"), TaxAmount: dec("2.50"), Total: dec("27.50"), SortOrder: 1},
	}
	return est
}

func TestCreateEstimate(t *testing.T) {
	t.Run("allocates from the estimate sequence", func(t *testing.T) {
		f := newEstimateFixture(t)

		est, err := f.svc.CreateEstimate(f.ctx, &CreateEstimateInput{
			UserID:  uuid.New(),
			TaxRate: taxRate("10"),
			Items: []DocumentItemInput{
				{Description: "Design work", Quantity: dec("2"), UnitPrice: dec("50")},
				{Description: "Hosting", Quantity: dec("1"), UnitPrice: dec("25")},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, "EST-00001", est.EstimateNumber)
		assert.Equal(t, enum.EstimateStatusDraft, est.Status)
		assert.Equal(t, "137.50", est.Total.StringFixed(2))
		assert.Len(t, est.Items, 2)
	})

	t.Run("estimate and invoice sequences are independent", func(t *testing.T) {
		f := newEstimateFixture(t)

		est, err := f.svc.CreateEstimate(f.ctx, &CreateEstimateInput{
			UserID: uuid.New(),
			Items:  []DocumentItemInput{{Description: "Work", Quantity: dec("1"), UnitPrice: dec("100")}},
		})
		require.NoError(t, err)
		assert.Equal(t, "EST-00001", est.EstimateNumber)

		inv, err := f.svc.ConvertToInvoice(f.ctx, est.ID)
		require.NoError(t, err)
		assert.Equal(t, "INV-00001", inv.InvoiceNumber)
	})

	t.Run("requires at least one item", func(t *testing.T) {
		f := newEstimateFixture(t)

		_, err := f.svc.CreateEstimate(f.ctx, &CreateEstimateInput{UserID: uuid.New()})
		assert.Error(t, err)
	})
}

func TestUpdateEstimate(t *testing.T) {
	t.Run("recomputes totals on item change in draft", func(t *testing.T) {
		f := newEstimateFixture(t)
		est := seedEstimate(f.estimates, f.tenantID, enum.EstimateStatusDraft)

		updated, err := f.svc.UpdateEstimate(f.ctx, est.ID, &UpdateEstimateInput{
			Items: []DocumentItemInput{{Description: "Work", Quantity: dec("3"), UnitPrice: dec("100")}},
		})
		require.NoError(t, err)
		assert.Equal(t, "300.00", updated.Subtotal.StringFixed(2))
		assert.Equal(t, "330.00", updated.Total.StringFixed(2))
		assert.Len(t, updated.Items, 1)
	})

	t.Run("converted estimate is frozen", func(t *testing.T) {
		f := newEstimateFixture(t)
		est := seedEstimate(f.estimates, f.tenantID, enum.EstimateStatusAccepted)
		invoiceID := uuid.New()
		est.ConvertedInvoiceID = &invoiceID

		notes := "updated"
		_, err := f.svc.UpdateEstimate(f.ctx, est.ID, &UpdateEstimateInput{Notes: &notes})
		assert.Error(t, err)
	})

	t.Run("financial edits rejected after acceptance", func(t *testing.T) {
		f := newEstimateFixture(t)
		est := seedEstimate(f.estimates, f.tenantID, enum.EstimateStatusAccepted)

		_, err := f.svc.UpdateEstimate(f.ctx, est.ID, &UpdateEstimateInput{TaxRate: taxRate("20")})
		assert.Error(t, err)
	})
}

func TestDeleteEstimate(t *testing.T) {
	f := newEstimateFixture(t)

	draft := seedEstimate(f.estimates, f.tenantID, enum.EstimateStatusDraft)
	require.NoError(t, f.svc.DeleteEstimate(f.ctx, draft.ID))

	sent := seedEstimate(f.estimates, f.tenantID, enum.EstimateStatusSent)
	assert.Error(t, f.svc.DeleteEstimate(f.ctx, sent.ID))
}

func TestSendEstimate(t *testing.T) {
	t.Run("draft transitions to sent", func(t *testing.T) {
		f := newEstimateFixture(t)
		est := seedEstimate(f.estimates, f.tenantID, enum.EstimateStatusDraft)

		result, err := f.svc.SendEstimate(f.ctx, est.ID, &SendInvoiceInput{To: "client@example.com"})
		require.NoError(t, err)
		assert.Equal(t, enum.EstimateStatusSent, result.Estimate.Status)
	})

	t.Run("resending a sent estimate keeps it sent", func(t *testing.T) {
		f := newEstimateFixture(t)
		est := seedEstimate(f.estimates, f.tenantID, enum.EstimateStatusSent)

		result, err := f.svc.SendEstimate(f.ctx, est.ID, &SendInvoiceInput{To: "client@example.com"})
		require.NoError(t, err)
		assert.Equal(t, enum.EstimateStatusSent, result.Estimate.Status)
	})

	t.Run("declined estimate cannot be sent", func(t *testing.T) {
		f := newEstimateFixture(t)
		est := seedEstimate(f.estimates, f.tenantID, enum.EstimateStatusDeclined)

		_, err := f.svc.SendEstimate(f.ctx, est.ID, &SendInvoiceInput{To: "client@example.com"})
		assert.Error(t, err)
	})
}

func TestEstimateDecision(t *testing.T) {
	t.Run("sent estimate can be accepted", func(t *testing.T) {
		f := newEstimateFixture(t)
		est := seedEstimate(f.estimates, f.tenantID, enum.EstimateStatusSent)

		accepted, err := f.svc.AcceptEstimate(f.ctx, est.ID)
		require.NoError(t, err)
		assert.Equal(t, enum.EstimateStatusAccepted, accepted.Status)
	})

	t.Run("sent estimate can be declined", func(t *testing.T) {
		f := newEstimateFixture(t)
		est := seedEstimate(f.estimates, f.tenantID, enum.EstimateStatusSent)

		declined, err := f.svc.DeclineEstimate(f.ctx, est.ID)
		require.NoError(t, err)
		assert.Equal(t, enum.EstimateStatusDeclined, declined.Status)
	})

	t.Run("draft cannot be accepted or declined", func(t *testing.T) {
		f := newEstimateFixture(t)
		est := seedEstimate(f.estimates, f.tenantID, enum.EstimateStatusDraft)

		_, err := f.svc.AcceptEstimate(f.ctx, est.ID)
		assert.Error(t, err)
		_, err = f.svc.DeclineEstimate(f.ctx, est.ID)
		assert.Error(t, err)
	})
}

func TestConvertToInvoice(t *testing.T) {
	t.Run("copies financial facts and items verbatim", func(t *testing.T) {
		f := newEstimateFixture(t)
		est := seedEstimate(f.estimates, f.tenantID, enum.EstimateStatusAccepted)

		inv, err := f.svc.ConvertToInvoice(f.ctx, est.ID)
		require.NoError(t, err)

		assert.Equal(t, "INV-00001", inv.InvoiceNumber)
		assert.Equal(t, enum.InvoiceStatusDraft, inv.Status)
		assert.Equal(t, est.Currency, inv.Currency)
		assert.True(t, inv.Subtotal.Equal(est.Subtotal))
		assert.True(t, inv.TaxAmount.Equal(est.TaxAmount))
		assert.True(t, inv.Total.Equal(est.Total))
		assert.True(t, inv.AmountPaid.IsZero())
		assert.True(t, inv.AmountDue.Equal(est.Total))
		require.Len(t, inv.Items, 2)
		assert.Equal(t, "Design work", inv.Items[0].Description)
		assert.True(t, inv.Items[0].Total.Equal(dec("110")))

		require.NotNil(t, est.ConvertedInvoiceID)
		assert.Equal(t, inv.ID, *est.ConvertedInvoiceID)
	})

	t.Run("second conversion loses on the stamp", func(t *testing.T) {
		f := newEstimateFixture(t)
		est := seedEstimate(f.estimates, f.tenantID, enum.EstimateStatusAccepted)

		_, err := f.svc.ConvertToInvoice(f.ctx, est.ID)
		require.NoError(t, err)

		_, err = f.svc.ConvertToInvoice(f.ctx, est.ID)
		assert.Error(t, err)
		assert.Len(t, f.invoices.invoices, 1)
	})

	t.Run("declined and expired estimates cannot convert", func(t *testing.T) {
		f := newEstimateFixture(t)

		declined := seedEstimate(f.estimates, f.tenantID, enum.EstimateStatusDeclined)
		_, err := f.svc.ConvertToInvoice(f.ctx, declined.ID)
		assert.Error(t, err)

		expired := seedEstimate(f.estimates, f.tenantID, enum.EstimateStatusExpired)
		_, err = f.svc.ConvertToInvoice(f.ctx, expired.ID)
		assert.Error(t, err)
	})

	t.Run("sent estimate converts without prior acceptance", func(t *testing.T) {
		f := newEstimateFixture(t)
		est := seedEstimate(f.estimates, f.tenantID, enum.EstimateStatusSent)

		_, err := f.svc.ConvertToInvoice(f.ctx, est.ID)
		require.NoError(t, err)
		assert.Equal(t, enum.EstimateStatusAccepted, est.Status)
	})

	t.Run("requires tenant context", func(t *testing.T) {
		f := newEstimateFixture(t)
		est := seedEstimate(f.estimates, f.tenantID, enum.EstimateStatusSent)

		_, err := f.svc.ConvertToInvoice(context.Background(), est.ID)
		assert.Error(t, err)
	})
}
