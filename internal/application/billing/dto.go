package billing

import (
	"time"

	companyapp "github.com/kontor/backend/internal/application/company"
	"github.com/kontor/backend/internal/domain/company"
)

// CheckoutRequest selects the plan to subscribe to
type CheckoutRequest struct {
	Plan string `json:"plan" binding:"required,oneof=starter professional"`
}

// SessionResponse carries a Stripe hosted page URL
type SessionResponse struct {
	URL string `json:"url"`
}

// SubscriptionResponse is the billing state of a company
type SubscriptionResponse struct {
	Plan             string             `json:"plan"`
	EffectivePlan    string             `json:"effective_plan"`
	Status           string             `json:"status"`
	CurrentPeriodEnd *time.Time         `json:"current_period_end,omitempty"`
	HasCustomer      bool               `json:"has_customer"`
	Limits           company.PlanLimits `json:"limits"`
	Usage            companyapp.Usage   `json:"usage"`
}

// WebhookResult reports how a Stripe event was handled
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Processed bool   `json:"processed"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Message   string `json:"message,omitempty"`
}

func toSubscriptionResponse(c *company.Company, usage companyapp.Usage) SubscriptionResponse {
	return SubscriptionResponse{
		Plan:             string(c.Subscription.Plan),
		EffectivePlan:    string(c.Subscription.EffectivePlan()),
		Status:           string(c.Subscription.Status),
		CurrentPeriodEnd: c.Subscription.CurrentPeriodEnd,
		HasCustomer:      c.Subscription.StripeCustomerID != "",
		Limits:           c.Limits(),
		Usage:            usage,
	}
}
