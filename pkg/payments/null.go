package payments

import "context"

type nullProvider struct{}

// NewNullProvider creates a no-op provider for environments without
// payment credentials. Checkout operations fail with ErrProviderDisabled;
// webhooks are rejected.
func NewNullProvider() Provider {
	return &nullProvider{}
}

func (p *nullProvider) Enabled() bool {
	return false
}

func (p *nullProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	return nil, ErrProviderDisabled
}

func (p *nullProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	return nil, ErrProviderDisabled
}

func (p *nullProvider) VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	return nil, ErrProviderDisabled
}

// NewProviderFromConfig picks the provider based on configured credentials:
// a Stripe key enables the real provider, otherwise the null provider.
func NewProviderFromConfig(secretKey, webhookSecret, successURL, cancelURL string) Provider {
	if secretKey == "" {
		return NewNullProvider()
	}
	return NewStripeProvider(secretKey, webhookSecret, successURL, cancelURL)
}
