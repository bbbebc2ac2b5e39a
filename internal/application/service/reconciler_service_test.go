package service

import (
	"context"
	"errors"
	"testing"

	"github.com/finledger/billable-api/internal/domain/entity"
	"github.com/finledger/billable-api/internal/domain/enum"
	"github.com/finledger/billable-api/pkg/payments"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReconcilerFixture(provider payments.Provider) (*ReconcilerService, *mockInvoiceRepo, *mockPaymentRepo, *mockEventRepo) {
	invoiceRepo := newMockInvoiceRepo()
	paymentRepo := &mockPaymentRepo{}
	eventRepo := newMockEventRepo()
	ledger := NewLedgerService(invoiceRepo, paymentRepo, fakeTx{})
	svc := NewReconcilerService(invoiceRepo, paymentRepo, eventRepo, ledger, provider, fakeTx{})
	return svc, invoiceRepo, paymentRepo, eventRepo
}

func completedEvent(eventID, sessionID, amount string) *payments.WebhookEvent {
	return &payments.WebhookEvent{
		EventID:   eventID,
		Type:      payments.EventCheckoutCompleted,
		SessionID: sessionID,
		Amount:    dec(amount),
		Currency:  "usd",
		Paid:      true,
	}
}

func TestHandleWebhook(t *testing.T) {
	tenantID := uuid.New()

	t.Run("completed session credits the invoice once", func(t *testing.T) {
		provider := &fakeProvider{enabled: true}
		svc, invoiceRepo, paymentRepo, _ := newReconcilerFixture(provider)

		inv := seedInvoice(invoiceRepo, tenantID, enum.InvoiceStatusSent, "137.50", "0")
		session := "cs_test_1"
		inv.ProviderSessionID = &session

		provider.event = completedEvent("evt_1", session, "137.50")
		require.NoError(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))

		require.Len(t, paymentRepo.payments, 1)
		payment := paymentRepo.payments[0]
		assert.Equal(t, "137.50", payment.Amount.StringFixed(2))
		assert.Equal(t, "card", payment.PaymentMethod)
		require.NotNil(t, payment.ProviderReference)
		assert.Equal(t, session, *payment.ProviderReference)

		assert.Equal(t, enum.InvoiceStatusPaid, inv.Status)
		assert.Nil(t, inv.ProviderSessionID, "settled session should be released")
	})

	t.Run("redelivered event is absorbed", func(t *testing.T) {
		provider := &fakeProvider{enabled: true}
		svc, invoiceRepo, paymentRepo, eventRepo := newReconcilerFixture(provider)

		inv := seedInvoice(invoiceRepo, tenantID, enum.InvoiceStatusSent, "100", "0")
		session := "cs_test_2"
		inv.ProviderSessionID = &session
		provider.event = completedEvent("evt_2", session, "100")

		require.NoError(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))
		require.NoError(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))

		assert.Len(t, paymentRepo.payments, 1, "replay must not credit twice")
		assert.Len(t, eventRepo.events, 1)
		assert.Equal(t, "100.00", inv.AmountPaid.StringFixed(2))
	})

	t.Run("already-recorded event short-circuits before the ledger", func(t *testing.T) {
		provider := &fakeProvider{enabled: true}
		svc, invoiceRepo, paymentRepo, eventRepo := newReconcilerFixture(provider)

		inv := seedInvoice(invoiceRepo, tenantID, enum.InvoiceStatusSent, "100", "0")
		session := "cs_test_seen"
		inv.ProviderSessionID = &session
		provider.event = completedEvent("evt_seen", session, "100")

		eventRepo.events["evt_seen"] = &entity.ProviderEvent{EventID: "evt_seen"}
		require.NoError(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))

		assert.Empty(t, paymentRepo.payments)
		assert.Equal(t, "0.00", inv.AmountPaid.StringFixed(2))
	})

	t.Run("distinct events for the same session hit the reference guard", func(t *testing.T) {
		provider := &fakeProvider{enabled: true}
		svc, invoiceRepo, paymentRepo, _ := newReconcilerFixture(provider)

		inv := seedInvoice(invoiceRepo, tenantID, enum.InvoiceStatusSent, "100", "0")
		session := "cs_test_3"
		inv.ProviderSessionID = &session

		provider.event = completedEvent("evt_3a", session, "100")
		require.NoError(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))

		// Re-attach the session to simulate the provider sending a second,
		// differently-keyed delivery for the same checkout
		inv.ProviderSessionID = &session
		provider.event = completedEvent("evt_3b", session, "100")
		require.NoError(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))

		assert.Len(t, paymentRepo.payments, 1)
	})

	t.Run("expired session releases the slot without touching the ledger", func(t *testing.T) {
		provider := &fakeProvider{enabled: true}
		svc, invoiceRepo, paymentRepo, _ := newReconcilerFixture(provider)

		inv := seedInvoice(invoiceRepo, tenantID, enum.InvoiceStatusSent, "100", "0")
		session := "cs_test_4"
		inv.ProviderSessionID = &session

		provider.event = &payments.WebhookEvent{
			EventID:   "evt_4",
			Type:      payments.EventCheckoutExpired,
			SessionID: session,
		}
		require.NoError(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))

		assert.Empty(t, paymentRepo.payments)
		assert.Nil(t, inv.ProviderSessionID)
		assert.Equal(t, enum.InvoiceStatusSent, inv.Status)
		assert.Equal(t, "0.00", inv.AmountPaid.StringFixed(2))
	})

	t.Run("unknown session records the event and stops", func(t *testing.T) {
		provider := &fakeProvider{enabled: true}
		svc, _, paymentRepo, eventRepo := newReconcilerFixture(provider)

		provider.event = completedEvent("evt_5", "cs_unknown", "50")
		require.NoError(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))

		assert.Empty(t, paymentRepo.payments)
		assert.Len(t, eventRepo.events, 1)
	})

	t.Run("invalid signature is rejected", func(t *testing.T) {
		provider := &fakeProvider{enabled: true, verifyErr: payments.ErrInvalidSignature}
		svc, _, paymentRepo, eventRepo := newReconcilerFixture(provider)

		err := svc.HandleWebhook(context.Background(), []byte("{}"), "bad")
		assert.Error(t, err)
		assert.Empty(t, paymentRepo.payments)
		assert.Empty(t, eventRepo.events)
	})

	t.Run("ignored event types are acknowledged silently", func(t *testing.T) {
		provider := &fakeProvider{enabled: true, event: nil}
		svc, _, _, eventRepo := newReconcilerFixture(provider)

		require.NoError(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))
		assert.Empty(t, eventRepo.events)
	})

	t.Run("completed but unpaid session does not credit", func(t *testing.T) {
		provider := &fakeProvider{enabled: true}
		svc, invoiceRepo, paymentRepo, _ := newReconcilerFixture(provider)

		inv := seedInvoice(invoiceRepo, tenantID, enum.InvoiceStatusSent, "100", "0")
		session := "cs_test_6"
		inv.ProviderSessionID = &session

		event := completedEvent("evt_6", session, "100")
		event.Paid = false
		provider.event = event

		require.NoError(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))
		assert.Empty(t, paymentRepo.payments)
	})
}

func TestCreatePaymentLink(t *testing.T) {
	tenantID := uuid.New()
	ctx := contextWithTenant(tenantID)

	t.Run("creates a session and pins it on the invoice", func(t *testing.T) {
		provider := &fakeProvider{enabled: true}
		svc, invoiceRepo, _, _ := newReconcilerFixture(provider)
		inv := seedInvoice(invoiceRepo, tenantID, enum.InvoiceStatusSent, "137.50", "0")

		link, err := svc.CreatePaymentLink(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, "https://checkout.test/session", link.URL)
		require.NotNil(t, inv.ProviderSessionID)
		assert.Equal(t, *inv.ProviderSessionID, link.SessionID)

		require.Len(t, provider.created, 1)
		req := provider.created[0]
		assert.Equal(t, inv.ID.String(), req.ReferenceID)
		assert.Equal(t, "usd", req.Currency)
		assert.Equal(t, "137.50", req.Amount.StringFixed(2))
	})

	t.Run("reuses an open session matching the balance", func(t *testing.T) {
		provider := &fakeProvider{enabled: true}
		svc, invoiceRepo, _, _ := newReconcilerFixture(provider)
		inv := seedInvoice(invoiceRepo, tenantID, enum.InvoiceStatusSent, "100", "0")

		session := "cs_existing"
		inv.ProviderSessionID = &session
		provider.session = &payments.CheckoutSession{
			ID:     session,
			URL:    "https://checkout.test/existing",
			Status: "open",
			Amount: dec("100"),
		}

		link, err := svc.CreatePaymentLink(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, "https://checkout.test/existing", link.URL)
		assert.Equal(t, session, link.SessionID)
		assert.Empty(t, provider.created, "no new session while one is open")
	})

	t.Run("stale session is replaced", func(t *testing.T) {
		provider := &fakeProvider{enabled: true, sessionErr: errors.New("no such session")}
		svc, invoiceRepo, _, _ := newReconcilerFixture(provider)
		inv := seedInvoice(invoiceRepo, tenantID, enum.InvoiceStatusSent, "100", "0")

		session := "cs_gone"
		inv.ProviderSessionID = &session

		link, err := svc.CreatePaymentLink(ctx, inv.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, link.URL)
		assert.NotEmpty(t, link.SessionID)
		assert.Len(t, provider.created, 1)
	})

	t.Run("rejects invoices without an open balance", func(t *testing.T) {
		provider := &fakeProvider{enabled: true}
		svc, invoiceRepo, _, _ := newReconcilerFixture(provider)
		inv := seedInvoice(invoiceRepo, tenantID, enum.InvoiceStatusPaid, "100", "100")

		_, err := svc.CreatePaymentLink(ctx, inv.ID)
		assert.Error(t, err)
	})

	t.Run("disabled provider reports unavailable", func(t *testing.T) {
		provider := &fakeProvider{enabled: false}
		svc, invoiceRepo, _, _ := newReconcilerFixture(provider)
		inv := seedInvoice(invoiceRepo, tenantID, enum.InvoiceStatusSent, "100", "0")

		_, err := svc.CreatePaymentLink(ctx, inv.ID)
		assert.Error(t, err)
	})
}

func TestPruneEvents(t *testing.T) {
	provider := &fakeProvider{enabled: true}
	svc, _, _, eventRepo := newReconcilerFixture(provider)

	require.NoError(t, svc.PruneEvents(context.Background(), 90))
	require.Len(t, eventRepo.prunedDays, 1)
	assert.Equal(t, 90, eventRepo.prunedDays[0])
}
