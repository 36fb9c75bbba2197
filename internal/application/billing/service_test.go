package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	companyapp "github.com/kontor/backend/internal/application/company"
	notifyapp "github.com/kontor/backend/internal/application/notification"
	"github.com/kontor/backend/internal/domain/company"
	"github.com/kontor/backend/internal/domain/notification"
	"github.com/kontor/backend/internal/domain/shared"
	stripebilling "github.com/kontor/backend/internal/infrastructure/billing"
	"github.com/kontor/backend/internal/infrastructure/cache"
	"github.com/kontor/backend/internal/infrastructure/telemetry"
	"github.com/kontor/backend/tests/testutil"
)

type MockPaymentProvider struct {
	mock.Mock
}

func (m *MockPaymentProvider) CreateCustomer(ctx context.Context, input stripebilling.CreateCustomerInput) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentProvider) CreateCheckoutSession(ctx context.Context, input stripebilling.CheckoutInput) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentProvider) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	args := m.Called(ctx, customerID)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentProvider) GetSubscription(ctx context.Context, subscriptionID string) (*stripebilling.Subscription, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripebilling.Subscription), args.Error(1)
}

func (m *MockPaymentProvider) ParseWebhook(payload []byte, signature string) (*stripebilling.WebhookEvent, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripebilling.WebhookEvent), args.Error(1)
}

type stubReferrals struct {
	converted []uuid.UUID
	err       error
}

func (s *stubReferrals) Convert(_ context.Context, referredID uuid.UUID) error {
	s.converted = append(s.converted, referredID)
	return s.err
}

type stubUsage struct {
	usage companyapp.Usage
}

func (s stubUsage) Usage(context.Context, uuid.UUID, time.Time) (companyapp.Usage, error) {
	return s.usage, nil
}

type stubNotifier struct {
	inputs []notifyapp.NotifyInput
}

func (s *stubNotifier) Notify(_ context.Context, in notifyapp.NotifyInput) (*notification.Notification, error) {
	s.inputs = append(s.inputs, in)
	return nil, nil
}

type fixture struct {
	companies *testutil.MockCompanyRepository
	provider  *MockPaymentProvider
	store     *cache.InMemoryIdempotencyStore
	referrals *stubReferrals
	notifier  *stubNotifier
	events    *testutil.RecordingPublisher
	company   *company.Company
	svc       *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		companies: new(testutil.MockCompanyRepository),
		provider:  new(MockPaymentProvider),
		store:     cache.NewInMemoryIdempotencyStore(time.Hour),
		referrals: &stubReferrals{},
		notifier:  &stubNotifier{},
		events:    &testutil.RecordingPublisher{},
		company:   testutil.NewTestCompany(),
	}
	t.Cleanup(func() { _ = f.store.Close() })
	f.companies.On("FindByID", mock.Anything, f.company.ID).Return(f.company, nil).Maybe()
	f.svc = NewService(ServiceConfig{
		Companies:   f.companies,
		Provider:    f.provider,
		Idempotency: f.store,
		Referrals:   f.referrals,
		Usage:       stubUsage{usage: companyapp.Usage{InvoicesThisMonth: 4, BankAccounts: 1}},
		Notifier:    f.notifier,
		Events:      f.events,
	})
	return f
}

func (f *fixture) webhook(ev *stripebilling.WebhookEvent) {
	f.provider.On("ParseWebhook", []byte(ev.ID), "sig").Return(ev, nil)
}

func TestCreateCheckoutSession(t *testing.T) {
	t.Run("creates the customer once", func(t *testing.T) {
		f := newFixture(t)
		f.provider.On("CreateCustomer", mock.Anything, mock.MatchedBy(func(in stripebilling.CreateCustomerInput) bool {
			return in.TenantID == f.company.ID && in.Email == "info@muster.de"
		})).Return("cus_123", nil).Once()
		f.companies.On("Save", mock.Anything, f.company).Return(nil).Once()
		f.provider.On("CreateCheckoutSession", mock.Anything, stripebilling.CheckoutInput{
			TenantID:   f.company.ID,
			CustomerID: "cus_123",
			Plan:       company.PlanStarter,
		}).Return("https://checkout.stripe.com/c/pay/cs_test", nil).Twice()

		resp, err := f.svc.CreateCheckoutSession(context.Background(), f.company.ID, CheckoutRequest{Plan: "starter"})
		require.NoError(t, err)
		assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test", resp.URL)
		assert.Equal(t, "cus_123", f.company.Subscription.StripeCustomerID)

		_, err = f.svc.CreateCheckoutSession(context.Background(), f.company.ID, CheckoutRequest{Plan: "starter"})
		require.NoError(t, err)
		f.provider.AssertNumberOfCalls(t, "CreateCustomer", 1)
	})

	t.Run("free plan cannot be bought", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.CreateCheckoutSession(context.Background(), f.company.ID, CheckoutRequest{Plan: "free"})
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "INVALID_PLAN", de.Code)
	})

	t.Run("billing disabled", func(t *testing.T) {
		svc := NewService(ServiceConfig{Companies: new(testutil.MockCompanyRepository)})

		_, err := svc.CreateCheckoutSession(context.Background(), uuid.New(), CheckoutRequest{Plan: "starter"})
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "BILLING_DISABLED", de.Code)
	})
}

func TestCreatePortalSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreatePortalSession(context.Background(), f.company.ID)
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "NO_BILLING_CUSTOMER", de.Code)

	f.company.AttachStripeCustomer("cus_123")
	f.provider.On("CreatePortalSession", mock.Anything, "cus_123").Return("https://billing.stripe.com/p/session", nil)
	resp, err := f.svc.CreatePortalSession(context.Background(), f.company.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://billing.stripe.com/p/session", resp.URL)
}

func TestGetSubscription(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.GetSubscription(context.Background(), f.company.ID)
	require.NoError(t, err)
	assert.Equal(t, "free", resp.EffectivePlan)
	assert.Equal(t, 10, resp.Limits.InvoicesPerMonth)
	assert.Equal(t, int64(4), resp.Usage.InvoicesThisMonth)
	assert.False(t, resp.HasCustomer)
}

func TestHandleWebhook(t *testing.T) {
	periodEnd := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	t.Run("subscription update changes the plan", func(t *testing.T) {
		f := newFixture(t)
		f.company.AttachStripeCustomer("cus_123")
		f.companies.On("FindByStripeCustomerID", mock.Anything, "cus_123").Return(f.company, nil)
		f.companies.On("Save", mock.Anything, f.company).Return(nil)
		f.webhook(&stripebilling.WebhookEvent{
			ID:         "evt_1",
			Type:       stripebilling.EventSubscriptionUpdated,
			CustomerID: "cus_123",
			Subscription: &stripebilling.Subscription{
				ID:               "sub_1",
				CustomerID:       "cus_123",
				Status:           company.SubscriptionActive,
				Plan:             company.PlanProfessional,
				CurrentPeriodEnd: &periodEnd,
			},
		})

		res, err := f.svc.HandleWebhook(context.Background(), []byte("evt_1"), "sig")
		require.NoError(t, err)
		assert.True(t, res.Processed)
		assert.Equal(t, company.PlanProfessional, f.company.Subscription.EffectivePlan())
		assert.Equal(t, "sub_1", f.company.Subscription.SubscriptionID)
		assert.Equal(t, []string{company.EventTypeSubscriptionChanged}, f.events.EventTypes())
	})

	t.Run("duplicate delivery is skipped", func(t *testing.T) {
		f := newFixture(t)
		f.companies.On("Save", mock.Anything, f.company).Return(nil).Once()
		f.webhook(&stripebilling.WebhookEvent{
			ID:       "evt_2",
			Type:     stripebilling.EventSubscriptionDeleted,
			TenantID: f.company.ID,
			Subscription: &stripebilling.Subscription{
				ID:     "sub_1",
				Status: company.SubscriptionCanceled,
			},
		})

		_, err := f.svc.HandleWebhook(context.Background(), []byte("evt_2"), "sig")
		require.NoError(t, err)
		res, err := f.svc.HandleWebhook(context.Background(), []byte("evt_2"), "sig")
		require.NoError(t, err)
		assert.True(t, res.Duplicate)
		f.companies.AssertNumberOfCalls(t, "Save", 1)
	})

	t.Run("failed event is retried", func(t *testing.T) {
		f := newFixture(t)
		f.companies.On("Save", mock.Anything, f.company).Return(errors.New("db down")).Once()
		f.companies.On("Save", mock.Anything, f.company).Return(nil).Once()
		f.webhook(&stripebilling.WebhookEvent{
			ID:       "evt_3",
			Type:     stripebilling.EventSubscriptionCreated,
			TenantID: f.company.ID,
			Subscription: &stripebilling.Subscription{
				ID:     "sub_1",
				Status: company.SubscriptionActive,
				Plan:   company.PlanStarter,
			},
		})

		_, err := f.svc.HandleWebhook(context.Background(), []byte("evt_3"), "sig")
		require.Error(t, err)
		res, err := f.svc.HandleWebhook(context.Background(), []byte("evt_3"), "sig")
		require.NoError(t, err)
		assert.True(t, res.Processed)
	})

	t.Run("checkout completion fetches the subscription", func(t *testing.T) {
		f := newFixture(t)
		f.companies.On("Save", mock.Anything, f.company).Return(nil)
		f.provider.On("GetSubscription", mock.Anything, "sub_9").Return(&stripebilling.Subscription{
			ID:     "sub_9",
			Status: company.SubscriptionTrialing,
			Plan:   company.PlanStarter,
		}, nil)
		f.webhook(&stripebilling.WebhookEvent{
			ID:           "evt_4",
			Type:         stripebilling.EventCheckoutCompleted,
			TenantID:     f.company.ID,
			CustomerID:   "cus_9",
			Subscription: &stripebilling.Subscription{ID: "sub_9", CustomerID: "cus_9"},
		})

		_, err := f.svc.HandleWebhook(context.Background(), []byte("evt_4"), "sig")
		require.NoError(t, err)
		assert.Equal(t, "cus_9", f.company.Subscription.StripeCustomerID)
		assert.Equal(t, company.SubscriptionTrialing, f.company.Subscription.Status)
		assert.Equal(t, company.PlanStarter, f.company.Subscription.Plan)
	})

	t.Run("first paid invoice converts the referral", func(t *testing.T) {
		f := newFixture(t)
		f.company.SetReferredBy("ABCDEF")
		f.companies.On("FindByStripeCustomerID", mock.Anything, "cus_123").Return(f.company, nil)
		f.webhook(&stripebilling.WebhookEvent{
			ID:            "evt_5",
			Type:          stripebilling.EventInvoicePaid,
			CustomerID:    "cus_123",
			AmountPaid:    1900,
			BillingReason: "subscription_create",
		})

		_, err := f.svc.HandleWebhook(context.Background(), []byte("evt_5"), "sig")
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{f.company.ID}, f.referrals.converted)
	})

	t.Run("renewal does not convert", func(t *testing.T) {
		f := newFixture(t)
		f.company.SetReferredBy("ABCDEF")
		f.companies.On("FindByStripeCustomerID", mock.Anything, "cus_123").Return(f.company, nil)
		f.webhook(&stripebilling.WebhookEvent{
			ID:            "evt_6",
			Type:          stripebilling.EventInvoicePaid,
			CustomerID:    "cus_123",
			AmountPaid:    1900,
			BillingReason: "subscription_cycle",
		})

		_, err := f.svc.HandleWebhook(context.Background(), []byte("evt_6"), "sig")
		require.NoError(t, err)
		assert.Empty(t, f.referrals.converted)
	})

	t.Run("payment failure notifies and marks past due", func(t *testing.T) {
		f := newFixture(t)
		f.company.ApplySubscription(company.PlanStarter, company.SubscriptionActive, "sub_1", nil)
		f.company.ClearDomainEvents()
		f.companies.On("FindByStripeCustomerID", mock.Anything, "cus_123").Return(f.company, nil)
		f.companies.On("Save", mock.Anything, f.company).Return(nil)
		f.webhook(&stripebilling.WebhookEvent{
			ID:         "evt_7",
			Type:       stripebilling.EventInvoicePaymentFailed,
			CustomerID: "cus_123",
		})

		_, err := f.svc.HandleWebhook(context.Background(), []byte("evt_7"), "sig")
		require.NoError(t, err)
		assert.Equal(t, company.SubscriptionPastDue, f.company.Subscription.Status)
		require.Len(t, f.notifier.inputs, 1)
		assert.Equal(t, notification.TypePaymentFailed, f.notifier.inputs[0].Type)
		assert.True(t, f.notifier.inputs[0].Email)
	})

	t.Run("unknown customer is acknowledged", func(t *testing.T) {
		f := newFixture(t)
		f.companies.On("FindByStripeCustomerID", mock.Anything, "cus_unknown").Return(nil, shared.ErrNotFound)
		f.webhook(&stripebilling.WebhookEvent{
			ID:         "evt_8",
			Type:       stripebilling.EventInvoicePaid,
			CustomerID: "cus_unknown",
		})

		res, err := f.svc.HandleWebhook(context.Background(), []byte("evt_8"), "sig")
		require.NoError(t, err)
		assert.True(t, res.Processed)
	})

	t.Run("bad signature", func(t *testing.T) {
		f := newFixture(t)
		f.provider.On("ParseWebhook", []byte("{}"), "bad").Return(nil, errors.New("signature mismatch"))

		_, err := f.svc.HandleWebhook(context.Background(), []byte("{}"), "bad")
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "INVALID_SIGNATURE", de.Code)
	})
}

func webhookOutcomes(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "webhook_events_processed_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				outcome, _ := dp.Attributes.Value(telemetry.AttrOutcome)
				out[outcome.AsString()] += dp.Value
			}
		}
	}
	return out
}

func TestHandleWebhook_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	metrics, err := telemetry.NewBusinessMetrics(provider.Meter("test"))
	require.NoError(t, err)

	f := newFixture(t)
	f.svc.metrics = metrics
	ctx := context.Background()

	f.companies.On("Save", mock.Anything, f.company).Return(errors.New("db down")).Once()
	f.companies.On("Save", mock.Anything, f.company).Return(nil)
	f.webhook(&stripebilling.WebhookEvent{
		ID:       "evt_m1",
		Type:     stripebilling.EventSubscriptionUpdated,
		TenantID: f.company.ID,
		Subscription: &stripebilling.Subscription{
			ID:     "sub_1",
			Status: company.SubscriptionActive,
			Plan:   company.PlanStarter,
		},
	})
	f.webhook(&stripebilling.WebhookEvent{ID: "evt_m2", Type: "customer.created"})
	f.provider.On("ParseWebhook", []byte("{}"), "bad").Return(nil, errors.New("signature mismatch"))

	_, err = f.svc.HandleWebhook(ctx, []byte("evt_m1"), "sig")
	require.Error(t, err)
	res, err := f.svc.HandleWebhook(ctx, []byte("evt_m1"), "sig")
	require.NoError(t, err)
	assert.True(t, res.Processed)
	res, err = f.svc.HandleWebhook(ctx, []byte("evt_m1"), "sig")
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	res, err = f.svc.HandleWebhook(ctx, []byte("evt_m2"), "sig")
	require.NoError(t, err)
	assert.False(t, res.Processed)
	_, err = f.svc.HandleWebhook(ctx, []byte("{}"), "bad")
	require.Error(t, err)

	assert.Equal(t, map[string]int64{
		"processed": 1,
		"duplicate": 1,
		"ignored":   1,
		"failed":    2,
	}, webhookOutcomes(t, reader))
}
