package payments

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Event types emitted by VerifyWebhook after normalization.
const (
	EventCheckoutCompleted = "checkout.completed"
	EventCheckoutExpired   = "checkout.expired"
)

// Common provider errors
var (
	ErrProviderDisabled = errors.New("payments: provider is not configured")
	ErrInvalidAmount    = errors.New("payments: amount must be positive")
	ErrInvalidSignature = errors.New("payments: webhook signature verification failed")
	ErrProviderDown     = errors.New("payments: provider is unavailable")
)

// CheckoutRequest describes a hosted checkout session to create for an
// invoice balance.
type CheckoutRequest struct {
	ReferenceID   string // invoice ID, also used as the idempotency key
	TenantID      string
	Description   string
	Amount        decimal.Decimal // major units, e.g. 137.50
	Currency      string          // ISO 4217 lowercase, e.g. "usd"
	CustomerEmail string
}

// CheckoutSession is the provider-neutral view of a hosted checkout session.
type CheckoutSession struct {
	ID            string
	URL           string
	Status        string // open, complete, expired
	PaymentStatus string // paid, unpaid
	Amount        decimal.Decimal
	Currency      string
	ExpiresAt     time.Time
}

// IsOpen reports whether the session can still be paid.
func (s *CheckoutSession) IsOpen() bool {
	return s.Status == "open"
}

// WebhookEvent is a provider event normalized into domain terms.
// Provider-specific payloads never leave this package.
type WebhookEvent struct {
	EventID   string
	Type      string // EventCheckoutCompleted or EventCheckoutExpired
	SessionID string
	Amount    decimal.Decimal
	Currency  string
	Paid      bool
	Metadata  map[string]string
}

// Provider abstracts the external payment service so services depend on
// behavior rather than a concrete SDK.
type Provider interface {
	// CreateCheckoutSession creates a hosted payment page for the request.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	// GetCheckoutSession fetches the current state of an existing session.
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
	// VerifyWebhook validates the payload signature and normalizes the
	// event. Returns (nil, nil) for event types this system ignores.
	VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error)
	// Enabled reports whether the provider can actually take payments.
	Enabled() bool
}
