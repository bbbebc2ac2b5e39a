package service

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/finledger/billable-api/internal/domain/entity"
	"github.com/finledger/billable-api/internal/domain/repository"
	infraRepo "github.com/finledger/billable-api/internal/infrastructure/repository"
	"github.com/finledger/billable-api/pkg/apperror"
	"github.com/finledger/billable-api/pkg/payments"
	"github.com/google/uuid"
)

// ReconcilerService bridges the payment provider and the ledger: it
// creates hosted checkout sessions for invoice balances and applies
// provider webhook events exactly once.
type ReconcilerService struct {
	invoiceRepo repository.InvoiceRepository
	paymentRepo repository.PaymentRepository
	eventRepo   repository.ProviderEventRepository
	ledger      *LedgerService
	provider    payments.Provider
	tx          repository.Transactor
}

// NewReconcilerService creates a new reconciler service
func NewReconcilerService(
	invoiceRepo repository.InvoiceRepository,
	paymentRepo repository.PaymentRepository,
	eventRepo repository.ProviderEventRepository,
	ledger *LedgerService,
	provider payments.Provider,
	tx repository.Transactor,
) *ReconcilerService {
	return &ReconcilerService{
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		eventRepo:   eventRepo,
		ledger:      ledger,
		provider:    provider,
		tx:          tx,
	}
}

// PaymentLink is a hosted checkout session issued for an invoice balance.
type PaymentLink struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}

// CreatePaymentLink returns a hosted checkout link for the invoice's open
// balance. An existing session is reused while it is still open and
// matches the current balance; otherwise a fresh one replaces it.
func (s *ReconcilerService) CreatePaymentLink(ctx context.Context, invoiceID uuid.UUID) (*PaymentLink, error) {
	if !s.provider.Enabled() {
		return nil, apperror.NewAppError(http.StatusServiceUnavailable, "Online payments are not configured")
	}

	invoice, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, apperror.NewNotFoundError("Invoice")
	}
	if !invoice.AmountDue.IsPositive() {
		return nil, apperror.NewConflictError("Invoice has no open balance")
	}
	if invoice.Status.IsTerminal() {
		return nil, apperror.NewConflictError("Invoice no longer accepts payments")
	}

	if invoice.ProviderSessionID != nil {
		sess, err := s.provider.GetCheckoutSession(ctx, *invoice.ProviderSessionID)
		if err == nil && sess.IsOpen() && sess.Amount.Equal(invoice.AmountDue) {
			return &PaymentLink{URL: sess.URL, SessionID: sess.ID}, nil
		}
	}

	req := payments.CheckoutRequest{
		ReferenceID: invoice.ID.String(),
		TenantID:    invoice.TenantID.String(),
		Description: "Invoice " + invoice.InvoiceNumber,
		Amount:      invoice.AmountDue,
		Currency:    strings.ToLower(invoice.Currency),
	}
	if invoice.Contact != nil && invoice.Contact.HasEmail() {
		req.CustomerEmail = *invoice.Contact.Email
	}

	sess, err := s.provider.CreateCheckoutSession(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.SetProviderSession(ctx, invoice.ID, &sess.ID); err != nil {
		return nil, err
	}

	return &PaymentLink{URL: sess.URL, SessionID: sess.ID}, nil
}

// HandleWebhook verifies and applies one provider webhook delivery.
// Redelivered events are absorbed by the processed-events unique
// constraint plus a provider-reference check on the payment itself, so
// at-least-once delivery can never credit an invoice twice.
func (s *ReconcilerService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.provider.VerifyWebhook(payload, signature)
	if err != nil {
		return apperror.NewBadRequestError("Webhook verification failed")
	}
	if event == nil {
		// Event type this system does not track
		return nil
	}

	// Fast path for redeliveries: skip the transaction when the event is
	// already on record. The unique constraint inside remains the real
	// guard against two concurrent deliveries.
	if seen, err := s.eventRepo.GetByEventID(ctx, event.EventID); err == nil && seen != nil {
		return nil
	}

	invoice, err := s.findInvoice(ctx, event)
	if err != nil {
		return err
	}
	if invoice == nil {
		// Session belongs to no known invoice; record the event so the
		// provider stops retrying
		log.Printf("webhook: no invoice for session %s (event %s)", event.SessionID, event.EventID)
	}

	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		record := &entity.ProviderEvent{
			EventID:   event.EventID,
			EventType: event.Type,
			SessionID: event.SessionID,
		}
		if invoice != nil {
			record.TenantID = invoice.TenantID
			record.InvoiceID = &invoice.ID
		}

		recorded, err := s.eventRepo.Record(ctx, record)
		if err != nil {
			return err
		}
		if !recorded {
			// Duplicate delivery
			return nil
		}
		if invoice == nil {
			return nil
		}

		ctx = infraRepo.WithTenant(ctx, invoice.TenantID)

		switch event.Type {
		case payments.EventCheckoutCompleted:
			return s.applyCompleted(ctx, invoice, event)
		case payments.EventCheckoutExpired:
			// Expired sessions never touch the ledger; just release the
			// session slot so a new link can be issued
			return s.invoiceRepo.SetProviderSession(ctx, invoice.ID, nil)
		}
		return nil
	})
}

// PruneEvents drops processed-event markers older than the retention
// window. Markers only exist to absorb redeliveries, and providers stop
// retrying within days, so old rows are dead weight.
func (s *ReconcilerService) PruneEvents(ctx context.Context, retentionDays int) error {
	return s.eventRepo.DeleteOlderThan(ctx, retentionDays)
}

// findInvoice resolves the event's session to the invoice carrying it.
// The persisted session ID is the canonical join; metadata only serves as
// a consistency check when present.
func (s *ReconcilerService) findInvoice(ctx context.Context, event *payments.WebhookEvent) (*entity.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByProviderSession(ctx, event.SessionID)
	if err != nil || invoice == nil {
		return invoice, err
	}

	if idStr, ok := event.Metadata["invoice_id"]; ok {
		if id, parseErr := uuid.Parse(idStr); parseErr == nil && id != invoice.ID {
			log.Printf("webhook: session %s metadata names invoice %s but row %s carries it",
				event.SessionID, id, invoice.ID)
		}
	}

	return invoice, nil
}

func (s *ReconcilerService) applyCompleted(ctx context.Context, invoice *entity.Invoice, event *payments.WebhookEvent) error {
	if !event.Paid {
		return nil
	}

	// Second guard: a payment already exists for this session
	existing, err := s.paymentRepo.GetByProviderReference(ctx, event.SessionID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	if !strings.EqualFold(event.Currency, invoice.Currency) {
		log.Printf("webhook: currency mismatch on invoice %s: session settled %s, invoice is %s",
			invoice.InvoiceNumber, event.Currency, invoice.Currency)
	}

	ref := event.SessionID
	notes := "Paid via hosted checkout"
	_, err = s.ledger.ApplyPayment(ctx, &ApplyPaymentInput{
		InvoiceID:         invoice.ID,
		Amount:            event.Amount,
		Currency:          strings.ToUpper(event.Currency),
		PaymentMethod:     "card",
		Notes:             &notes,
		ProviderReference: &ref,
	})
	if err != nil {
		return err
	}

	// The session is settled; clear it so the slot is free
	return s.invoiceRepo.SetProviderSession(ctx, invoice.ID, nil)
}
