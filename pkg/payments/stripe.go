package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

var cents = decimal.NewFromInt(100)

// StripeProvider implements Provider using Stripe Checkout.
type StripeProvider struct {
	client        *client.API
	webhookSecret string
	successURL    string
	cancelURL     string
}

// NewStripeProvider creates a provider backed by the Stripe API.
func NewStripeProvider(apiKey, webhookSecret, successURL, cancelURL string) *StripeProvider {
	sc := &client.API{}
	sc.Init(apiKey, nil)

	return &StripeProvider{
		client:        sc,
		webhookSecret: webhookSecret,
		successURL:    successURL,
		cancelURL:     cancelURL,
	}
}

func (p *StripeProvider) Enabled() bool {
	return true
}

// CreateCheckoutSession creates a Stripe Checkout session for the invoice
// balance. The reference ID doubles as the idempotency key so a retried
// request cannot open two sessions for the same balance.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(p.successURL),
		CancelURL:  stripe.String(p.cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(req.Amount.Mul(cents).IntPart()),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	if req.ReferenceID != "" {
		params.IdempotencyKey = stripe.String(req.ReferenceID)
		params.AddMetadata("invoice_id", req.ReferenceID)
	}
	if req.TenantID != "" {
		params.AddMetadata("tenant_id", req.TenantID)
	}
	params.Context = ctx

	sess, err := p.client.CheckoutSessions.New(params)
	if err != nil {
		return nil, p.mapStripeError(err)
	}

	return mapSession(sess), nil
}

// GetCheckoutSession fetches the current state of an existing session.
func (p *StripeProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := p.client.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, p.mapStripeError(err)
	}

	return mapSession(sess), nil
}

// VerifyWebhook validates the Stripe signature and normalizes the event.
func (p *StripeProvider) VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var eventType string
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		eventType = EventCheckoutCompleted
	case stripe.EventTypeCheckoutSessionExpired:
		eventType = EventCheckoutExpired
	default:
		return nil, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("payments: failed to parse checkout session payload: %w", err)
	}

	return &WebhookEvent{
		EventID:   event.ID,
		Type:      eventType,
		SessionID: sess.ID,
		Amount:    decimal.NewFromInt(sess.AmountTotal).Div(cents),
		Currency:  string(sess.Currency),
		Paid:      sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Metadata:  sess.Metadata,
	}, nil
}

func mapSession(sess *stripe.CheckoutSession) *CheckoutSession {
	return &CheckoutSession{
		ID:            sess.ID,
		URL:           sess.URL,
		Status:        string(sess.Status),
		PaymentStatus: string(sess.PaymentStatus),
		Amount:        decimal.NewFromInt(sess.AmountTotal).Div(cents),
		Currency:      string(sess.Currency),
		ExpiresAt:     time.Unix(sess.ExpiresAt, 0),
	}
}

// mapStripeError converts SDK errors into domain errors so stripe-go
// types never leak into the service layer.
func (p *StripeProvider) mapStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode >= http.StatusInternalServerError {
			return ErrProviderDown
		}
		return fmt.Errorf("payments: %s", stripeErr.Msg)
	}
	return fmt.Errorf("payments: %w", err)
}
