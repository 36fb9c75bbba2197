package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kontor/backend/internal/domain/company"
	"github.com/kontor/backend/internal/domain/invoice"
	"github.com/kontor/backend/internal/domain/notification"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/infrastructure/email"
)

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*notification.Notification, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Notification), args.Error(1)
}

func (m *MockNotificationRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter notification.NotificationFilter) ([]*notification.Notification, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]*notification.Notification), args.Get(1).(int64), args.Error(2)
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID, at time.Time) (int64, error) {
	args := m.Called(ctx, tenantID, userID, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) Save(ctx context.Context, n *notification.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *MockNotificationRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

type MockCompanyRepository struct {
	mock.Mock
}

func (m *MockCompanyRepository) FindByID(ctx context.Context, id uuid.UUID) (*company.Company, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*company.Company), args.Error(1)
}

func (m *MockCompanyRepository) FindByReferralCode(ctx context.Context, code string) (*company.Company, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*company.Company), args.Error(1)
}

func (m *MockCompanyRepository) FindByStripeCustomerID(ctx context.Context, customerID string) (*company.Company, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*company.Company), args.Error(1)
}

func (m *MockCompanyRepository) ExistsByReferralCode(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockCompanyRepository) FindAllActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockCompanyRepository) Save(ctx context.Context, c *company.Company) error {
	return m.Called(ctx, c).Error(0)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Enabled() bool {
	return m.Called().Bool(0)
}

func (m *MockMailer) Send(ctx context.Context, msg email.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func newTestService(repo *MockNotificationRepository, companies *MockCompanyRepository, mailer Mailer) *Service {
	svc := NewService(repo, companies, mailer, "https://app.kontor.test/", nil)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	return svc
}

func TestService_Notify(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("stores the notification without email", func(t *testing.T) {
		repo := new(MockNotificationRepository)
		repo.On("Save", ctx, mock.AnythingOfType("*notification.Notification")).Return(nil).Once()
		svc := newTestService(repo, new(MockCompanyRepository), nil)

		n, err := svc.Notify(ctx, NotifyInput{
			TenantID: tenantID,
			Type:     notification.TypeImportCompleted,
			Title:    "Import abgeschlossen",
			Email:    true,
		})
		require.NoError(t, err)
		assert.False(t, n.Emailed)
		assert.Equal(t, tenantID, n.TenantID)
		repo.AssertExpectations(t)
	})

	t.Run("emails the company address and flags the notification", func(t *testing.T) {
		repo := new(MockNotificationRepository)
		companies := new(MockCompanyRepository)
		mailer := new(MockMailer)
		c, err := company.NewCompany("Musterbau GmbH", "buero@musterbau.de", "abcd1234")
		require.NoError(t, err)

		repo.On("Save", ctx, mock.AnythingOfType("*notification.Notification")).Return(nil).Twice()
		companies.On("FindByID", ctx, tenantID).Return(c, nil)
		mailer.On("Enabled").Return(true)
		mailer.On("Send", ctx, mock.MatchedBy(func(msg email.Message) bool {
			return msg.To == "buero@musterbau.de" && msg.Subject == "Rechnung RE-2024-0001 ist überfällig" &&
				assert.Contains(t, msg.Text, "https://app.kontor.test/invoices/1")
		})).Return(nil)

		svc := newTestService(repo, companies, mailer)
		n, err := svc.Notify(ctx, NotifyInput{
			TenantID: tenantID,
			Type:     notification.TypeInvoiceOverdue,
			Title:    "Rechnung RE-2024-0001 ist überfällig",
			Link:     "/invoices/1",
			Email:    true,
		})
		require.NoError(t, err)
		assert.True(t, n.Emailed)
		mailer.AssertExpectations(t)
		repo.AssertExpectations(t)
	})

	t.Run("keeps the notification when email fails", func(t *testing.T) {
		repo := new(MockNotificationRepository)
		companies := new(MockCompanyRepository)
		mailer := new(MockMailer)
		repo.On("Save", ctx, mock.Anything).Return(nil).Once()
		companies.On("FindByID", ctx, tenantID).Return(nil, shared.ErrNotFound)
		mailer.On("Enabled").Return(true)

		svc := newTestService(repo, companies, mailer)
		n, err := svc.Notify(ctx, NotifyInput{TenantID: tenantID, Type: notification.TypeSystem, Title: "Hinweis", Email: true})
		require.NoError(t, err)
		assert.False(t, n.Emailed)
		mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("rejects an unknown type", func(t *testing.T) {
		svc := newTestService(new(MockNotificationRepository), new(MockCompanyRepository), nil)
		_, err := svc.Notify(ctx, NotifyInput{TenantID: tenantID, Type: "bogus", Title: "x"})
		require.Error(t, err)
	})

	t.Run("returns repository errors", func(t *testing.T) {
		repo := new(MockNotificationRepository)
		repo.On("Save", ctx, mock.Anything).Return(errors.New("db down"))
		svc := newTestService(repo, new(MockCompanyRepository), nil)
		_, err := svc.Notify(ctx, NotifyInput{TenantID: tenantID, Type: notification.TypeSystem, Title: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db down")
	})
}

func TestService_MarkRead(t *testing.T) {
	ctx := context.Background()
	tenantID, userID := uuid.New(), uuid.New()

	t.Run("marks a company-wide notification", func(t *testing.T) {
		repo := new(MockNotificationRepository)
		n, _ := notification.NewNotification(tenantID, notification.TypeSystem, "Hallo", "", "")
		repo.On("FindByIDForTenant", ctx, tenantID, n.ID).Return(n, nil)
		repo.On("Save", ctx, n).Return(nil)

		resp, err := newTestService(repo, nil, nil).MarkRead(ctx, tenantID, userID, n.ID)
		require.NoError(t, err)
		assert.True(t, resp.Read)
		require.NotNil(t, resp.ReadAt)
	})

	t.Run("hides notifications addressed to another user", func(t *testing.T) {
		repo := new(MockNotificationRepository)
		n, _ := notification.NewNotification(tenantID, notification.TypeSystem, "Hallo", "", "")
		other := uuid.New()
		n.UserID = &other
		repo.On("FindByIDForTenant", ctx, tenantID, n.ID).Return(n, nil)

		_, err := newTestService(repo, nil, nil).MarkRead(ctx, tenantID, userID, n.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestService_ListAndCounts(t *testing.T) {
	ctx := context.Background()
	tenantID, userID := uuid.New(), uuid.New()
	repo := new(MockNotificationRepository)
	n, _ := notification.NewNotification(tenantID, notification.TypeSystem, "Hallo", "Welt", "")

	repo.On("FindAllForTenant", ctx, tenantID, mock.MatchedBy(func(f notification.NotificationFilter) bool {
		return f.UnreadOnly && *f.UserID == userID && f.Page == 2
	})).Return([]*notification.Notification{n}, int64(21), nil)
	repo.On("CountUnread", ctx, tenantID, &userID).Return(int64(3), nil)
	repo.On("MarkAllRead", ctx, tenantID, &userID, mock.AnythingOfType("time.Time")).Return(int64(3), nil)

	svc := newTestService(repo, nil, nil)
	items, total, err := svc.List(ctx, tenantID, userID, ListFilter{UnreadOnly: true, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(21), total)
	require.Len(t, items, 1)
	assert.Equal(t, "Welt", items[0].Message)

	count, err := svc.UnreadCount(ctx, tenantID, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	changed, err := svc.MarkAllRead(ctx, tenantID, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), changed)
}

func TestEventNotifier(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	inv := &invoice.Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Number:              "RE-2024-0007",
		GrossAmount:         decimal.RequireFromString("1190.00"),
		DueDate:             time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC),
	}

	repo := new(MockNotificationRepository)
	var saved *notification.Notification
	repo.On("Save", ctx, mock.AnythingOfType("*notification.Notification")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*notification.Notification) }).
		Return(nil)

	h := NewEventNotifier(newTestService(repo, new(MockCompanyRepository), nil), nil)
	assert.True(t, h.Async())
	assert.Contains(t, h.EventTypes(), invoice.EventTypeInvoiceOverdue)

	require.NoError(t, h.Handle(ctx, invoice.NewInvoiceOverdueEvent(inv)))
	require.NotNil(t, saved)
	assert.Equal(t, notification.TypeInvoiceOverdue, saved.Type)
	assert.Equal(t, "Rechnung RE-2024-0007 ist überfällig", saved.Title)
	assert.Contains(t, saved.Message, "1.190,00")
	assert.Contains(t, saved.Message, "15.04.2024")
	assert.Equal(t, "/invoices/"+inv.ID.String(), saved.Link)

	err := h.Handle(ctx, invoice.NewInvoiceSentEvent(inv))
	require.Error(t, err)
}
