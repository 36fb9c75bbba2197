package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/company"
)

// CreateCustomerInput contains input for creating a Stripe customer
type CreateCustomerInput struct {
	TenantID uuid.UUID
	Email    string
	Name     string
	VATID    string
}

// CheckoutInput contains input for a subscription Checkout Session
type CheckoutInput struct {
	TenantID   uuid.UUID
	CustomerID string
	Plan       company.Plan
}

// Subscription is the part of a Stripe subscription the company record mirrors
type Subscription struct {
	ID                string
	CustomerID        string
	Status            company.SubscriptionStatus
	Plan              company.Plan
	PriceID           string
	CurrentPeriodEnd  *time.Time
	CancelAtPeriodEnd bool
}

// Event types handled by the webhook endpoint
const (
	EventCheckoutCompleted    = "checkout.session.completed"
	EventSubscriptionCreated  = "customer.subscription.created"
	EventSubscriptionUpdated  = "customer.subscription.updated"
	EventSubscriptionDeleted  = "customer.subscription.deleted"
	EventInvoicePaid          = "invoice.paid"
	EventInvoicePaymentFailed = "invoice.payment_failed"
)

// WebhookEvent is a verified Stripe event reduced to the fields billing needs
type WebhookEvent struct {
	ID         string
	Type       string
	CustomerID string
	// TenantID comes from client_reference_id or tenant_id metadata; Nil if absent
	TenantID uuid.UUID

	// set for subscription events and checkout.session.completed
	Subscription *Subscription

	// set for invoice events
	InvoiceID     string
	AmountPaid    int64
	BillingReason string
}

// MapSubscriptionStatus maps a Stripe subscription status onto the company status
func MapSubscriptionStatus(status string) company.SubscriptionStatus {
	switch status {
	case "active":
		return company.SubscriptionActive
	case "trialing":
		return company.SubscriptionTrialing
	case "past_due", "unpaid", "incomplete":
		return company.SubscriptionPastDue
	case "canceled", "incomplete_expired", "paused":
		return company.SubscriptionCanceled
	default:
		return company.SubscriptionNone
	}
}
