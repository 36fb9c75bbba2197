package billing

import (
	"fmt"
	"strings"

	"github.com/kontor/backend/internal/domain/company"
	"github.com/kontor/backend/internal/infrastructure/config"
	"github.com/stripe/stripe-go/v81"
)

// StripeConfig holds configuration for the Stripe integration
type StripeConfig struct {
	// SecretKey is the Stripe secret API key (sk_test_xxx or sk_live_xxx)
	SecretKey string

	// WebhookSecret is the secret for verifying webhook signatures
	WebhookSecret string

	// PriceIDs maps paid plans to Stripe Price IDs
	PriceIDs map[company.Plan]string

	// SuccessURL and CancelURL are the Checkout redirect targets
	SuccessURL string
	CancelURL  string

	// PortalReturnURL is the return URL from the billing portal
	PortalReturnURL string
}

// NewStripeConfig derives the adapter configuration from application config.
// Redirect URLs point at the web client's billing page.
func NewStripeConfig(cfg config.StripeConfig, publicURL string) *StripeConfig {
	base := strings.TrimRight(publicURL, "/")
	return &StripeConfig{
		SecretKey:     cfg.SecretKey,
		WebhookSecret: cfg.WebhookSecret,
		PriceIDs: map[company.Plan]string{
			company.PlanStarter:      cfg.PriceStarter,
			company.PlanProfessional: cfg.PriceProfessional,
		},
		SuccessURL:      base + "/settings/billing?checkout=success&session_id={CHECKOUT_SESSION_ID}",
		CancelURL:       base + "/settings/billing?checkout=cancelled",
		PortalReturnURL: base + "/settings/billing",
	}
}

// Validate validates the Stripe configuration
func (c *StripeConfig) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("stripe: secret key is required")
	}
	if !strings.HasPrefix(c.SecretKey, "sk_") && !strings.HasPrefix(c.SecretKey, "rk_") {
		return fmt.Errorf("stripe: secret key must start with sk_ or rk_")
	}
	if c.WebhookSecret == "" {
		return fmt.Errorf("stripe: webhook secret is required")
	}
	return nil
}

// GetPriceID returns the Stripe Price ID for a paid plan
func (c *StripeConfig) GetPriceID(plan company.Plan) (string, error) {
	if plan == company.PlanFree {
		return "", fmt.Errorf("stripe: the free plan has no price")
	}
	priceID := c.PriceIDs[plan]
	if priceID == "" {
		return "", fmt.Errorf("stripe: no price ID configured for plan: %s", plan)
	}
	return priceID, nil
}

// PlanForPrice maps a Stripe Price ID back to a plan
func (c *StripeConfig) PlanForPrice(priceID string) (company.Plan, bool) {
	for plan, id := range c.PriceIDs {
		if id != "" && id == priceID {
			return plan, true
		}
	}
	return "", false
}

// InitStripeClient initializes the Stripe client with the configured API key
func (c *StripeConfig) InitStripeClient() {
	stripe.Key = c.SecretKey
}
