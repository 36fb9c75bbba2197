package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	companyapp "github.com/kontor/backend/internal/application/company"
	notifyapp "github.com/kontor/backend/internal/application/notification"
	"github.com/kontor/backend/internal/domain/company"
	"github.com/kontor/backend/internal/domain/notification"
	"github.com/kontor/backend/internal/domain/shared"
	stripebilling "github.com/kontor/backend/internal/infrastructure/billing"
	"github.com/kontor/backend/internal/infrastructure/telemetry"
)

// PaymentProvider is the subset of the Stripe adapter billing uses
type PaymentProvider interface {
	CreateCustomer(ctx context.Context, input stripebilling.CreateCustomerInput) (string, error)
	CreateCheckoutSession(ctx context.Context, input stripebilling.CheckoutInput) (string, error)
	CreatePortalSession(ctx context.Context, customerID string) (string, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*stripebilling.Subscription, error)
	ParseWebhook(payload []byte, signature string) (*stripebilling.WebhookEvent, error)
}

// ReferralConverter converts the referral of a company on its first payment
type ReferralConverter interface {
	Convert(ctx context.Context, referredID uuid.UUID) error
}

// UsageMeter measures consumption against the plan limits
type UsageMeter interface {
	Usage(ctx context.Context, tenantID uuid.UUID, now time.Time) (companyapp.Usage, error)
}

// Notifier creates in-app notifications
type Notifier interface {
	Notify(ctx context.Context, in notifyapp.NotifyInput) (*notification.Notification, error)
}

// billing reason of the invoice that opens a subscription
const billingReasonSubscriptionCreate = "subscription_create"

// webhook outcomes recorded in the webhook events counter
const (
	webhookProcessed = "processed"
	webhookDuplicate = "duplicate"
	webhookIgnored   = "ignored"
	webhookFailed    = "failed"
)

var errBillingDisabled = shared.NewDomainError("BILLING_DISABLED", "Subscription billing is not configured")

// ServiceConfig holds the dependencies of the billing Service
type ServiceConfig struct {
	Companies company.CompanyRepository
	// Provider is nil when Stripe is not configured
	Provider    PaymentProvider
	Idempotency shared.IdempotencyStore
	Referrals   ReferralConverter
	Usage       UsageMeter
	Notifier    Notifier
	Events      shared.EventPublisher
	Metrics     *telemetry.BusinessMetrics
	Logger      *zap.Logger
}

// Service manages subscriptions and processes Stripe webhooks
type Service struct {
	companies   company.CompanyRepository
	provider    PaymentProvider
	idempotency shared.IdempotencyStore
	referrals   ReferralConverter
	usage       UsageMeter
	notifier    Notifier
	events      shared.EventPublisher
	metrics     *telemetry.BusinessMetrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a billing Service
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		companies:   cfg.Companies,
		provider:    cfg.Provider,
		idempotency: cfg.Idempotency,
		referrals:   cfg.Referrals,
		usage:       cfg.Usage,
		notifier:    cfg.Notifier,
		events:      cfg.Events,
		metrics:     cfg.Metrics,
		logger:      logger.Named("billing_service"),
		now:         time.Now,
	}
}

// CreateCheckoutSession starts a subscription checkout, creating the Stripe
// customer on first use
func (s *Service) CreateCheckoutSession(ctx context.Context, tenantID uuid.UUID, req CheckoutRequest) (*SessionResponse, error) {
	if s.provider == nil {
		return nil, errBillingDisabled
	}
	plan := company.Plan(req.Plan)
	if !plan.IsValid() || plan == company.PlanFree {
		return nil, shared.NewDomainError("INVALID_PLAN", "Plan must be starter or professional")
	}
	c, err := s.companies.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	customerID, err := s.ensureCustomer(ctx, c)
	if err != nil {
		return nil, err
	}
	url, err := s.provider.CreateCheckoutSession(ctx, stripebilling.CheckoutInput{
		TenantID:   c.ID,
		CustomerID: customerID,
		Plan:       plan,
	})
	if err != nil {
		return nil, shared.NewDomainErrorWithCause("PAYMENT_PROVIDER_ERROR", "Checkout could not be started", err)
	}
	return &SessionResponse{URL: url}, nil
}

func (s *Service) ensureCustomer(ctx context.Context, c *company.Company) (string, error) {
	if id := c.Subscription.StripeCustomerID; id != "" {
		return id, nil
	}
	id, err := s.provider.CreateCustomer(ctx, stripebilling.CreateCustomerInput{
		TenantID: c.ID,
		Email:    c.Email,
		Name:     c.Name,
		VATID:    c.Tax.VATID,
	})
	if err != nil {
		return "", shared.NewDomainErrorWithCause("PAYMENT_PROVIDER_ERROR", "Billing customer could not be created", err)
	}
	c.AttachStripeCustomer(id)
	if err := s.companies.Save(ctx, c); err != nil {
		return "", fmt.Errorf("save stripe customer: %w", err)
	}
	return id, nil
}

// CreatePortalSession returns the Stripe billing portal URL
func (s *Service) CreatePortalSession(ctx context.Context, tenantID uuid.UUID) (*SessionResponse, error) {
	if s.provider == nil {
		return nil, errBillingDisabled
	}
	c, err := s.companies.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if c.Subscription.StripeCustomerID == "" {
		return nil, shared.NewDomainError("NO_BILLING_CUSTOMER", "Start a subscription before opening the billing portal")
	}
	url, err := s.provider.CreatePortalSession(ctx, c.Subscription.StripeCustomerID)
	if err != nil {
		return nil, shared.NewDomainErrorWithCause("PAYMENT_PROVIDER_ERROR", "Billing portal could not be opened", err)
	}
	return &SessionResponse{URL: url}, nil
}

// GetSubscription returns plan, status, limits and current usage
func (s *Service) GetSubscription(ctx context.Context, tenantID uuid.UUID) (*SubscriptionResponse, error) {
	c, err := s.companies.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	var usage companyapp.Usage
	if s.usage != nil {
		usage, err = s.usage.Usage(ctx, tenantID, s.now())
		if err != nil {
			return nil, err
		}
	}
	resp := toSubscriptionResponse(c, usage)
	return &resp, nil
}

// HandleWebhook verifies and applies a Stripe event. Events are remembered
// for shared.DefaultIdempotencyTTL once handled; a failed event is not
// remembered so the redelivery is processed.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	if s.provider == nil {
		return nil, errBillingDisabled
	}
	ev, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		s.logger.Warn("rejected stripe webhook", zap.Error(err))
		s.metrics.WebhookEventProcessed(ctx, "unknown", webhookFailed)
		return nil, shared.NewDomainErrorWithCause("INVALID_SIGNATURE", "Webhook signature verification failed", err)
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "webhook", "stripe.event_type", ev.Type)
	defer span.End()

	result := &WebhookResult{EventID: ev.ID, EventType: ev.Type, Processed: true}
	key := "stripe:" + ev.ID
	if s.idempotency != nil {
		seen, err := s.idempotency.IsProcessed(ctx, key)
		if err != nil {
			s.logger.Warn("idempotency check failed, processing anyway", zap.String("event_id", ev.ID), zap.Error(err))
		}
		if seen {
			result.Processed = false
			result.Duplicate = true
			s.metrics.WebhookEventProcessed(ctx, ev.Type, webhookDuplicate)
			return result, nil
		}
	}

	s.logger.Info("processing stripe webhook",
		zap.String("event_id", ev.ID),
		zap.String("event_type", ev.Type))

	switch ev.Type {
	case stripebilling.EventCheckoutCompleted:
		err = s.handleCheckoutCompleted(ctx, ev)
	case stripebilling.EventSubscriptionCreated, stripebilling.EventSubscriptionUpdated, stripebilling.EventSubscriptionDeleted:
		err = s.handleSubscription(ctx, ev)
	case stripebilling.EventInvoicePaid:
		err = s.handleInvoicePaid(ctx, ev)
	case stripebilling.EventInvoicePaymentFailed:
		err = s.handlePaymentFailed(ctx, ev)
	default:
		result.Processed = false
		result.Message = "Event type not handled"
	}
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Error("failed to process stripe webhook",
			zap.String("event_id", ev.ID),
			zap.String("event_type", ev.Type),
			zap.Error(err))
		s.metrics.WebhookEventProcessed(ctx, ev.Type, webhookFailed)
		return nil, err
	}

	outcome := webhookProcessed
	if !result.Processed {
		outcome = webhookIgnored
	}
	s.metrics.WebhookEventProcessed(ctx, ev.Type, outcome)
	if s.idempotency != nil {
		if _, err := s.idempotency.MarkProcessed(ctx, key, shared.DefaultIdempotencyTTL); err != nil {
			s.logger.Warn("failed to remember stripe event", zap.String("event_id", ev.ID), zap.Error(err))
		}
	}
	return result, nil
}

// findCompany resolves the company of an event by tenant id, then by customer.
// Events for unknown customers resolve to nil and are acknowledged.
func (s *Service) findCompany(ctx context.Context, ev *stripebilling.WebhookEvent) (*company.Company, error) {
	if ev.TenantID != uuid.Nil {
		c, err := s.companies.FindByID(ctx, ev.TenantID)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
	}
	if ev.CustomerID == "" {
		s.logger.Warn("stripe event has no customer", zap.String("event_id", ev.ID))
		return nil, nil
	}
	c, err := s.companies.FindByStripeCustomerID(ctx, ev.CustomerID)
	if errors.Is(err, shared.ErrNotFound) {
		s.logger.Warn("no company for stripe customer",
			zap.String("event_id", ev.ID),
			zap.String("customer_id", ev.CustomerID))
		return nil, nil
	}
	return c, err
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, ev *stripebilling.WebhookEvent) error {
	c, err := s.findCompany(ctx, ev)
	if err != nil || c == nil {
		return err
	}
	if ev.CustomerID != "" && c.Subscription.StripeCustomerID != ev.CustomerID {
		c.AttachStripeCustomer(ev.CustomerID)
	}
	sub := ev.Subscription
	if sub != nil && sub.Status == "" {
		// the session only carries the subscription id
		full, err := s.provider.GetSubscription(ctx, sub.ID)
		if err != nil {
			return err
		}
		sub = full
	}
	if sub != nil {
		c.ApplySubscription(sub.Plan, sub.Status, sub.ID, sub.CurrentPeriodEnd)
	}
	return s.save(ctx, c)
}

func (s *Service) handleSubscription(ctx context.Context, ev *stripebilling.WebhookEvent) error {
	if ev.Subscription == nil {
		return nil
	}
	c, err := s.findCompany(ctx, ev)
	if err != nil || c == nil {
		return err
	}
	sub := ev.Subscription
	status := sub.Status
	if ev.Type == stripebilling.EventSubscriptionDeleted {
		status = company.SubscriptionCanceled
	}
	if c.Subscription.SubscriptionID != "" && c.Subscription.SubscriptionID != sub.ID && status == company.SubscriptionCanceled {
		s.logger.Info("ignoring cancellation of a replaced subscription",
			zap.String("tenant_id", c.ID.String()),
			zap.String("subscription_id", sub.ID))
		return nil
	}
	c.ApplySubscription(sub.Plan, status, sub.ID, sub.CurrentPeriodEnd)
	return s.save(ctx, c)
}

func (s *Service) handleInvoicePaid(ctx context.Context, ev *stripebilling.WebhookEvent) error {
	c, err := s.findCompany(ctx, ev)
	if err != nil || c == nil {
		return err
	}
	if c.Subscription.Status == company.SubscriptionPastDue {
		c.ApplySubscription(c.Subscription.Plan, company.SubscriptionActive, c.Subscription.SubscriptionID, c.Subscription.CurrentPeriodEnd)
		if err := s.save(ctx, c); err != nil {
			return err
		}
	}
	if ev.BillingReason != billingReasonSubscriptionCreate || ev.AmountPaid <= 0 || c.ReferredByCode == "" || s.referrals == nil {
		return nil
	}
	if err := s.referrals.Convert(ctx, c.ID); err != nil {
		return fmt.Errorf("convert referral: %w", err)
	}
	return nil
}

func (s *Service) handlePaymentFailed(ctx context.Context, ev *stripebilling.WebhookEvent) error {
	c, err := s.findCompany(ctx, ev)
	if err != nil || c == nil {
		return err
	}
	if c.Subscription.Status == company.SubscriptionActive || c.Subscription.Status == company.SubscriptionTrialing {
		c.ApplySubscription(c.Subscription.Plan, company.SubscriptionPastDue, c.Subscription.SubscriptionID, c.Subscription.CurrentPeriodEnd)
		if err := s.save(ctx, c); err != nil {
			return err
		}
	}
	if s.notifier == nil {
		return nil
	}
	if _, err := s.notifier.Notify(ctx, notifyapp.NotifyInput{
		TenantID: c.ID,
		Type:     notification.TypePaymentFailed,
		Title:    "Zahlung fehlgeschlagen",
		Message:  "Die Zahlung für Ihr Abonnement konnte nicht eingezogen werden. Bitte aktualisieren Sie Ihre Zahlungsdaten.",
		Link:     "/settings/billing",
		Email:    true,
	}); err != nil {
		s.logger.Warn("payment failed notification not created", zap.String("tenant_id", c.ID.String()), zap.Error(err))
	}
	return nil
}

func (s *Service) save(ctx context.Context, c *company.Company) error {
	if err := s.companies.Save(ctx, c); err != nil {
		return fmt.Errorf("save company: %w", err)
	}
	events := c.GetDomainEvents()
	if len(events) == 0 || s.events == nil {
		return nil
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish company events", zap.Error(err))
	}
	c.ClearDomainEvents()
	return nil
}
