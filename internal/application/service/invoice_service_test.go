package service

import (
	"context"
	"testing"
	"time"

	"github.com/finledger/billable-api/internal/domain/entity"
	"github.com/finledger/billable-api/internal/domain/enum"
	"github.com/finledger/billable-api/pkg/email"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invoiceFixture struct {
	svc      *InvoiceService
	invoices *mockInvoiceRepo
	contacts *mockContactRepo
	tenantID uuid.UUID
	ctx      context.Context
}

func newInvoiceFixture(t *testing.T) *invoiceFixture {
	t.Helper()
	tenantID := uuid.New()
	tenant := &entity.Tenant{
		ID:       tenantID,
		Name:     "Acme Studio",
		Slug:     "acme-studio",
		Settings: entity.DefaultTenantSettings(),
	}
	invoices := newMockInvoiceRepo()
	contacts := newMockContactRepo()
	svc := NewInvoiceService(
		invoices,
		contacts,
		&mockProfileRepo{},
		&mockTenantRepo{tenant: tenant},
		newMockSequenceRepo(),
		fakeTx{},
		testRenderer(),
		email.NewEmailService(email.EmailConfig{}),
		&fakeLinker{url: "https://checkout.test/session"},
	)
	return &invoiceFixture{
		svc:      svc,
		invoices: invoices,
		contacts: contacts,
		tenantID: tenantID,
		ctx:      contextWithTenant(tenantID),
	}
}

func taxRate(s string) *decimal.Decimal {
	v := dec(s)
	return &v
}

func TestCreateInvoice(t *testing.T) {
	t.Run("computes totals and allocates sequential numbers", func(t *testing.T) {
		f := newInvoiceFixture(t)

		inv, err := f.svc.CreateInvoice(f.ctx, &CreateInvoiceInput{
			UserID:  uuid.New(),
			TaxRate: taxRate("10"),
			Items: []DocumentItemInput{
				{Description: "Design work", Quantity: dec("2"), UnitPrice: dec("50")},
				{Description: "Hosting", Quantity: dec("1"), UnitPrice: dec("25")},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, "INV-00001", inv.InvoiceNumber)
		assert.Equal(t, enum.InvoiceStatusDraft, inv.Status)
		assert.Equal(t, "125.00", inv.Subtotal.StringFixed(2))
		assert.Equal(t, "12.50", inv.TaxAmount.StringFixed(2))
		assert.Equal(t, "137.50", inv.Total.StringFixed(2))
		assert.Equal(t, "0.00", inv.AmountPaid.StringFixed(2))
		assert.Equal(t, "137.50", inv.AmountDue.StringFixed(2))
		assert.Equal(t, "USD", inv.Currency)
		assert.Len(t, inv.Items, 2)

		second, err := f.svc.CreateInvoice(f.ctx, &CreateInvoiceInput{
			UserID:  uuid.New(),
			TaxRate: taxRate("0"),
			Items:   []DocumentItemInput{{Description: "Retainer", Quantity: dec("1"), UnitPrice: dec("500")}},
		})
		require.NoError(t, err)
		assert.Equal(t, "INV-00002", second.InvoiceNumber)
	})

	t.Run("defaults due date from tenant payment terms", func(t *testing.T) {
		f := newInvoiceFixture(t)

		issue := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		inv, err := f.svc.CreateInvoice(f.ctx, &CreateInvoiceInput{
			UserID:    uuid.New(),
			IssueDate: &issue,
			Items:     []DocumentItemInput{{Description: "Work", Quantity: dec("1"), UnitPrice: dec("100")}},
		})
		require.NoError(t, err)
		assert.Equal(t, issue.AddDate(0, 0, 30), inv.DueDate)
	})

	t.Run("rejects an empty item set", func(t *testing.T) {
		f := newInvoiceFixture(t)

		_, err := f.svc.CreateInvoice(f.ctx, &CreateInvoiceInput{UserID: uuid.New()})
		assert.Error(t, err)
	})

	t.Run("rejects non-positive quantity and negative price", func(t *testing.T) {
		f := newInvoiceFixture(t)

		_, err := f.svc.CreateInvoice(f.ctx, &CreateInvoiceInput{
			UserID: uuid.New(),
			Items:  []DocumentItemInput{{Description: "Work", Quantity: dec("0"), UnitPrice: dec("10")}},
		})
		assert.Error(t, err)

		_, err = f.svc.CreateInvoice(f.ctx, &CreateInvoiceInput{
			UserID: uuid.New(),
			Items:  []DocumentItemInput{{Description: "Work", Quantity: dec("1"), UnitPrice: dec("-10")}},
		})
		assert.Error(t, err)
	})

	t.Run("rejects unknown contact", func(t *testing.T) {
		f := newInvoiceFixture(t)

		contactID := uuid.New()
		_, err := f.svc.CreateInvoice(f.ctx, &CreateInvoiceInput{
			UserID:    uuid.New(),
			ContactID: &contactID,
			Items:     []DocumentItemInput{{Description: "Work", Quantity: dec("1"), UnitPrice: dec("10")}},
		})
		assert.Error(t, err)
	})

	t.Run("rejects due date before issue date", func(t *testing.T) {
		f := newInvoiceFixture(t)

		issue := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
		due := issue.AddDate(0, 0, -1)
		_, err := f.svc.CreateInvoice(f.ctx, &CreateInvoiceInput{
			UserID:    uuid.New(),
			IssueDate: &issue,
			DueDate:   &due,
			Items:     []DocumentItemInput{{Description: "Work", Quantity: dec("1"), UnitPrice: dec("10")}},
		})
		assert.Error(t, err)
	})

	t.Run("requires tenant context", func(t *testing.T) {
		f := newInvoiceFixture(t)

		_, err := f.svc.CreateInvoice(context.Background(), &CreateInvoiceInput{
			UserID: uuid.New(),
			Items:  []DocumentItemInput{{Description: "Work", Quantity: dec("1"), UnitPrice: dec("10")}},
		})
		assert.Error(t, err)
	})
}

func TestUpdateInvoice(t *testing.T) {
	t.Run("recomputes totals when items change in draft", func(t *testing.T) {
		f := newInvoiceFixture(t)

		inv, err := f.svc.CreateInvoice(f.ctx, &CreateInvoiceInput{
			UserID:  uuid.New(),
			TaxRate: taxRate("10"),
			Items:   []DocumentItemInput{{Description: "Work", Quantity: dec("1"), UnitPrice: dec("100")}},
		})
		require.NoError(t, err)

		updated, err := f.svc.UpdateInvoice(f.ctx, inv.ID, &UpdateInvoiceInput{
			Items: []DocumentItemInput{
				{Description: "Work", Quantity: dec("2"), UnitPrice: dec("100")},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "200.00", updated.Subtotal.StringFixed(2))
		assert.Equal(t, "220.00", updated.Total.StringFixed(2))
		assert.Equal(t, "220.00", updated.AmountDue.StringFixed(2))
	})

	t.Run("recomputes from stored items when only the rate changes", func(t *testing.T) {
		f := newInvoiceFixture(t)

		inv, err := f.svc.CreateInvoice(f.ctx, &CreateInvoiceInput{
			UserID:  uuid.New(),
			TaxRate: taxRate("0"),
			Items:   []DocumentItemInput{{Description: "Work", Quantity: dec("1"), UnitPrice: dec("100")}},
		})
		require.NoError(t, err)

		updated, err := f.svc.UpdateInvoice(f.ctx, inv.ID, &UpdateInvoiceInput{TaxRate: taxRate("20")})
		require.NoError(t, err)
		assert.Equal(t, "20.00", updated.TaxAmount.StringFixed(2))
		assert.Equal(t, "120.00", updated.Total.StringFixed(2))
	})

	t.Run("rejects financial edits once partially paid", func(t *testing.T) {
		f := newInvoiceFixture(t)
		inv := seedInvoice(f.invoices, f.tenantID, enum.InvoiceStatusPartial, "137.50", "100")

		_, err := f.svc.UpdateInvoice(f.ctx, inv.ID, &UpdateInvoiceInput{
			Items: []DocumentItemInput{{Description: "Work", Quantity: dec("1"), UnitPrice: dec("10")}},
		})
		assert.Error(t, err)
	})

	t.Run("locks dates once the invoice has payments", func(t *testing.T) {
		f := newInvoiceFixture(t)
		inv := seedInvoice(f.invoices, f.tenantID, enum.InvoiceStatusPartial, "137.50", "100")

		due := time.Now().AddDate(0, 0, 60)
		_, err := f.svc.UpdateInvoice(f.ctx, inv.ID, &UpdateInvoiceInput{DueDate: &due})
		assert.Error(t, err)

		paid := seedInvoice(f.invoices, f.tenantID, enum.InvoiceStatusPaid, "100", "100")
		_, err = f.svc.UpdateInvoice(f.ctx, paid.ID, &UpdateInvoiceInput{DueDate: &due})
		assert.Error(t, err)
	})

	t.Run("allows notes on a partially paid invoice", func(t *testing.T) {
		f := newInvoiceFixture(t)
		inv := seedInvoice(f.invoices, f.tenantID, enum.InvoiceStatusPartial, "137.50", "100")

		notes := "Second reminder sent by phone"
		updated, err := f.svc.UpdateInvoice(f.ctx, inv.ID, &UpdateInvoiceInput{Notes: &notes})
		require.NoError(t, err)
		require.NotNil(t, updated.Notes)
		assert.Equal(t, notes, *updated.Notes)
		assert.Equal(t, "137.50", updated.Total.StringFixed(2))
	})

	t.Run("keeps amount due consistent after edit with payments", func(t *testing.T) {
		f := newInvoiceFixture(t)
		inv := seedInvoice(f.invoices, f.tenantID, enum.InvoiceStatusSent, "100", "0")

		updated, err := f.svc.UpdateInvoice(f.ctx, inv.ID, &UpdateInvoiceInput{
			Items: []DocumentItemInput{{Description: "Work", Quantity: dec("1"), UnitPrice: dec("250")}},
		})
		require.NoError(t, err)
		assert.Equal(t, "250.00", updated.Total.StringFixed(2))
		assert.Equal(t, "250.00", updated.AmountDue.StringFixed(2))
	})
}

func TestDeleteInvoice(t *testing.T) {
	t.Run("deletes a draft", func(t *testing.T) {
		f := newInvoiceFixture(t)
		inv := seedInvoice(f.invoices, f.tenantID, enum.InvoiceStatusDraft, "100", "0")

		require.NoError(t, f.svc.DeleteInvoice(f.ctx, inv.ID))
		got, _ := f.invoices.GetByID(f.ctx, inv.ID)
		assert.Nil(t, got)
	})

	t.Run("refuses anything issued", func(t *testing.T) {
		f := newInvoiceFixture(t)
		inv := seedInvoice(f.invoices, f.tenantID, enum.InvoiceStatusSent, "100", "0")

		assert.Error(t, f.svc.DeleteInvoice(f.ctx, inv.ID))
	})
}

func TestCancelInvoice(t *testing.T) {
	t.Run("cancels a partially paid invoice and keeps the ledger", func(t *testing.T) {
		f := newInvoiceFixture(t)
		inv := seedInvoice(f.invoices, f.tenantID, enum.InvoiceStatusPartial, "137.50", "100")

		cancelled, err := f.svc.CancelInvoice(f.ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, enum.InvoiceStatusCancelled, cancelled.Status)
		assert.Equal(t, "100.00", cancelled.AmountPaid.StringFixed(2))
	})

	t.Run("refuses a paid invoice", func(t *testing.T) {
		f := newInvoiceFixture(t)
		inv := seedInvoice(f.invoices, f.tenantID, enum.InvoiceStatusPaid, "100", "100")

		_, err := f.svc.CancelInvoice(f.ctx, inv.ID)
		assert.Error(t, err)
	})
}

func TestMarkViewed(t *testing.T) {
	f := newInvoiceFixture(t)

	sent := seedInvoice(f.invoices, f.tenantID, enum.InvoiceStatusSent, "100", "0")
	viewed, err := f.svc.MarkViewed(f.ctx, sent.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.InvoiceStatusViewed, viewed.Status)

	// A second ping is a no-op, as is one against a partially paid invoice
	viewed, err = f.svc.MarkViewed(f.ctx, sent.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.InvoiceStatusViewed, viewed.Status)

	partial := seedInvoice(f.invoices, f.tenantID, enum.InvoiceStatusPartial, "100", "40")
	got, err := f.svc.MarkViewed(f.ctx, partial.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.InvoiceStatusPartial, got.Status)
}

func TestMarkOverdueSweep(t *testing.T) {
	f := newInvoiceFixture(t)

	pastDue := seedInvoice(f.invoices, f.tenantID, enum.InvoiceStatusSent, "100", "0")
	pastDue.DueDate = time.Now().AddDate(0, 0, -3)
	partial := seedInvoice(f.invoices, f.tenantID, enum.InvoiceStatusPartial, "100", "40")
	partial.DueDate = time.Now().AddDate(0, 0, -3)
	future := seedInvoice(f.invoices, f.tenantID, enum.InvoiceStatusSent, "100", "0")
	future.DueDate = time.Now().AddDate(0, 0, 3)

	flipped, err := f.svc.MarkOverdue(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), flipped)
	assert.Equal(t, enum.InvoiceStatusOverdue, pastDue.Status)
	assert.Equal(t, enum.InvoiceStatusPartial, partial.Status)
	assert.Equal(t, enum.InvoiceStatusSent, future.Status)
}

func TestSendInvoice(t *testing.T) {
	t.Run("first send transitions to sent and stamps sent_at once", func(t *testing.T) {
		f := newInvoiceFixture(t)
		inv := seedInvoice(f.invoices, f.tenantID, enum.InvoiceStatusDraft, "137.50", "0")

		result, err := f.svc.SendInvoice(f.ctx, inv.ID, &SendInvoiceInput{To: "client@example.com"})
		require.NoError(t, err)
		assert.Equal(t, enum.InvoiceStatusSent, result.Invoice.Status)
		require.NotNil(t, result.Invoice.SentAt)
		firstSent := *result.Invoice.SentAt

		// Resend keeps the original timestamp
		result, err = f.svc.SendInvoice(f.ctx, inv.ID, &SendInvoiceInput{To: "client@example.com", Resend: true})
		require.NoError(t, err)
		require.NotNil(t, result.Invoice.SentAt)
		assert.Equal(t, firstSent, *result.Invoice.SentAt)
	})

	t.Run("falls back to the contact email", func(t *testing.T) {
		f := newInvoiceFixture(t)
		contactEmail := "billing@client.example"
		contact := &entity.Contact{ID: uuid.New(), TenantID: f.tenantID, Name: "Client", Email: &contactEmail}
		require.NoError(t, f.contacts.Create(f.ctx, contact))
		inv := seedInvoice(f.invoices, f.tenantID, enum.InvoiceStatusDraft, "100", "0")
		inv.ContactID = &contact.ID
		inv.Contact = contact

		result, err := f.svc.SendInvoice(f.ctx, inv.ID, &SendInvoiceInput{})
		require.NoError(t, err)
		assert.Equal(t, enum.InvoiceStatusSent, result.Invoice.Status)
	})

	t.Run("rejects send with no resolvable recipient", func(t *testing.T) {
		f := newInvoiceFixture(t)
		inv := seedInvoice(f.invoices, f.tenantID, enum.InvoiceStatusDraft, "100", "0")

		_, err := f.svc.SendInvoice(f.ctx, inv.ID, &SendInvoiceInput{})
		assert.Error(t, err)
		assert.Equal(t, enum.InvoiceStatusDraft, inv.Status)
	})

	t.Run("rejects resendless send of a viewed invoice", func(t *testing.T) {
		f := newInvoiceFixture(t)
		inv := seedInvoice(f.invoices, f.tenantID, enum.InvoiceStatusViewed, "100", "0")

		_, err := f.svc.SendInvoice(f.ctx, inv.ID, &SendInvoiceInput{To: "client@example.com"})
		assert.Error(t, err)

		_, err = f.svc.SendInvoice(f.ctx, inv.ID, &SendInvoiceInput{To: "client@example.com", Resend: true})
		require.NoError(t, err)
	})

	t.Run("includes a payment link when requested and balance is open", func(t *testing.T) {
		f := newInvoiceFixture(t)
		inv := seedInvoice(f.invoices, f.tenantID, enum.InvoiceStatusDraft, "137.50", "0")

		result, err := f.svc.SendInvoice(f.ctx, inv.ID, &SendInvoiceInput{
			To:                 "client@example.com",
			IncludePaymentLink: true,
		})
		require.NoError(t, err)
		assert.Equal(t, "https://checkout.test/session", result.PaymentLink)
	})

	t.Run("rejects send of a cancelled invoice", func(t *testing.T) {
		f := newInvoiceFixture(t)
		inv := seedInvoice(f.invoices, f.tenantID, enum.InvoiceStatusCancelled, "100", "0")

		_, err := f.svc.SendInvoice(f.ctx, inv.ID, &SendInvoiceInput{To: "client@example.com", Resend: true})
		assert.Error(t, err)
	})
}

func TestRenderInvoice(t *testing.T) {
	f := newInvoiceFixture(t)
	inv := seedInvoice(f.invoices, f.tenantID, enum.InvoiceStatusSent, "137.50", "0")
	f.invoices.items[inv.ID] = []entity.InvoiceItem{
		{Description: "Design work", Quantity: dec("2"), UnitPrice: dec("50"), Total: dec("100")},
	}

	body, filename, err := f.svc.RenderInvoice(f.ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-00001.html", filename)
	assert.Contains(t, string(body), "Design work")
	assert.Contains(t, string(body), "INV-00001")
}
