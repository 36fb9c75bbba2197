package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/company"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
	portalsession "github.com/stripe/stripe-go/v81/billingportal/session"
	"github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/customer"
	"github.com/stripe/stripe-go/v81/customerbalancetransaction"
	"github.com/stripe/stripe-go/v81/subscription"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

// StripeAdapter implements the Stripe calls subscription billing needs
type StripeAdapter struct {
	config *StripeConfig
	logger *zap.Logger
}

// NewStripeAdapter creates a new Stripe adapter
func NewStripeAdapter(config *StripeConfig, logger *zap.Logger) (*StripeAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.InitStripeClient()

	return &StripeAdapter{
		config: config,
		logger: logger,
	}, nil
}

// CreateCustomer creates a Stripe customer tagged with the tenant id
func (a *StripeAdapter) CreateCustomer(ctx context.Context, input CreateCustomerInput) (string, error) {
	params := &stripe.CustomerParams{
		Email:            stripe.String(input.Email),
		Name:             stripe.String(input.Name),
		PreferredLocales: stripe.StringSlice([]string{"de"}),
	}
	params.Context = ctx
	params.AddMetadata("tenant_id", input.TenantID.String())
	if input.VATID != "" {
		params.TaxIDData = []*stripe.CustomerTaxIDDataParams{{
			Type:  stripe.String(string(stripe.TaxIDTypeEUVAT)),
			Value: stripe.String(input.VATID),
		}}
	}

	cust, err := customer.New(params)
	if err != nil {
		a.logger.Error("Failed to create Stripe customer",
			zap.String("tenant_id", input.TenantID.String()),
			zap.Error(err))
		return "", fmt.Errorf("stripe: failed to create customer: %w", err)
	}

	a.logger.Info("Created Stripe customer",
		zap.String("tenant_id", input.TenantID.String()),
		zap.String("customer_id", cust.ID))
	return cust.ID, nil
}

// CreateCheckoutSession starts a subscription checkout and returns its URL
func (a *StripeAdapter) CreateCheckoutSession(ctx context.Context, input CheckoutInput) (string, error) {
	priceID, err := a.config.GetPriceID(input.Plan)
	if err != nil {
		return "", err
	}

	params := &stripe.CheckoutSessionParams{
		Customer:          stripe.String(input.CustomerID),
		ClientReferenceID: stripe.String(input.TenantID.String()),
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(priceID),
			Quantity: stripe.Int64(1),
		}},
		SuccessURL:          stripe.String(a.config.SuccessURL),
		CancelURL:           stripe.String(a.config.CancelURL),
		AllowPromotionCodes: stripe.Bool(true),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"tenant_id": input.TenantID.String(),
				"plan":      string(input.Plan),
			},
		},
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		a.logger.Error("Failed to create checkout session",
			zap.String("tenant_id", input.TenantID.String()),
			zap.String("plan", string(input.Plan)),
			zap.Error(err))
		return "", fmt.Errorf("stripe: failed to create checkout session: %w", err)
	}
	return sess.URL, nil
}

// CreatePortalSession returns a billing portal URL for the customer
func (a *StripeAdapter) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(a.config.PortalReturnURL),
	}
	params.Context = ctx

	sess, err := portalsession.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: failed to create portal session: %w", err)
	}
	return sess.URL, nil
}

// GetSubscription fetches the current state of a subscription
func (a *StripeAdapter) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := subscription.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: failed to get subscription: %w", err)
	}
	return a.toSubscription(sub), nil
}

// CreditCustomerBalance grants a credit that Stripe applies to the next invoices.
// Returns the balance transaction id.
func (a *StripeAdapter) CreditCustomerBalance(ctx context.Context, customerID string, amount decimal.Decimal, description string) (string, error) {
	cents := amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if cents <= 0 {
		return "", fmt.Errorf("stripe: credit amount must be positive")
	}

	params := &stripe.CustomerBalanceTransactionParams{
		Customer:    stripe.String(customerID),
		Amount:      stripe.Int64(-cents),
		Currency:    stripe.String(string(stripe.CurrencyEUR)),
		Description: stripe.String(description),
	}
	params.Context = ctx

	txn, err := customerbalancetransaction.New(params)
	if err != nil {
		a.logger.Error("Failed to credit customer balance",
			zap.String("customer_id", customerID),
			zap.Int64("amount_cents", cents),
			zap.Error(err))
		return "", fmt.Errorf("stripe: failed to credit customer balance: %w", err)
	}

	a.logger.Info("Credited customer balance",
		zap.String("customer_id", customerID),
		zap.Int64("amount_cents", cents),
		zap.String("balance_transaction_id", txn.ID))
	return txn.ID, nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event
func (a *StripeAdapter) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, a.config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}
	return a.decodeEvent(event)
}

func (a *StripeAdapter) decodeEvent(event stripe.Event) (*WebhookEvent, error) {
	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if event.Data == nil {
		return out, nil
	}

	switch out.Type {
	case EventCheckoutCompleted:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal checkout session: %w", err)
		}
		if cs.Customer != nil {
			out.CustomerID = cs.Customer.ID
		}
		out.TenantID = parseTenant(cs.ClientReferenceID, cs.Metadata)
		if cs.Subscription != nil && cs.Subscription.ID != "" {
			out.Subscription = &Subscription{ID: cs.Subscription.ID, CustomerID: out.CustomerID}
			if cs.Subscription.Status != "" {
				out.Subscription = a.toSubscription(cs.Subscription)
			}
		}

	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("failed to unmarshal subscription: %w", err)
		}
		out.Subscription = a.toSubscription(&sub)
		out.CustomerID = out.Subscription.CustomerID
		out.TenantID = parseTenant("", sub.Metadata)

	case EventInvoicePaid, EventInvoicePaymentFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("failed to unmarshal invoice: %w", err)
		}
		out.InvoiceID = inv.ID
		out.AmountPaid = inv.AmountPaid
		out.BillingReason = string(inv.BillingReason)
		if inv.Customer != nil {
			out.CustomerID = inv.Customer.ID
		}
		if inv.Subscription != nil && inv.Subscription.ID != "" {
			out.Subscription = &Subscription{ID: inv.Subscription.ID, CustomerID: out.CustomerID}
		}

	default:
		a.logger.Debug("Unhandled webhook event type", zap.String("event_type", out.Type))
	}
	return out, nil
}

func (a *StripeAdapter) toSubscription(sub *stripe.Subscription) *Subscription {
	out := &Subscription{
		ID:                sub.ID,
		Status:            MapSubscriptionStatus(string(sub.Status)),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.CurrentPeriodEnd > 0 {
		end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		out.CurrentPeriodEnd = &end
	}
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item.Price == nil {
				continue
			}
			if plan, ok := a.config.PlanForPrice(item.Price.ID); ok {
				out.PriceID = item.Price.ID
				out.Plan = plan
				break
			}
		}
	}
	if out.Plan == "" {
		if p := company.Plan(sub.Metadata["plan"]); p.IsValid() {
			out.Plan = p
		}
	}
	return out
}

func parseTenant(reference string, metadata map[string]string) uuid.UUID {
	for _, candidate := range []string{reference, metadata["tenant_id"]} {
		if id, err := uuid.Parse(candidate); err == nil {
			return id
		}
	}
	return uuid.Nil
}
