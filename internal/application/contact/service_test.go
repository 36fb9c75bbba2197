package contact

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kontor/backend/internal/domain/contact"
	"github.com/kontor/backend/internal/domain/shared"
)

type MockContactRepository struct {
	mock.Mock
}

func (m *MockContactRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*contact.Contact, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contact.Contact), args.Error(1)
}

func (m *MockContactRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter contact.ContactFilter) ([]*contact.Contact, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]*contact.Contact), args.Get(1).(int64), args.Error(2)
}

func (m *MockContactRepository) NextCustomerSequence(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockContactRepository) IsReferenced(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockContactRepository) Save(ctx context.Context, c *contact.Contact) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockContactRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	userID := uuid.New()

	t.Run("customer gets number", func(t *testing.T) {
		repo := new(MockContactRepository)
		repo.On("NextCustomerSequence", ctx, tenantID).Return(int64(7), nil)
		repo.On("Save", ctx, mock.AnythingOfType("*contact.Contact")).Return(nil)
		svc := NewService(repo, nil)

		resp, err := svc.Create(ctx, tenantID, userID, ContactRequest{
			Type:       "customer",
			Name:       "Beispiel AG",
			Email:      "Buchhaltung@Beispiel.de",
			PostalCode: "80331",
			City:       "München",
			VATID:      "ATU12345678",
		})
		require.NoError(t, err)
		assert.Equal(t, "K-00007", resp.CustomerNumber)
		assert.Equal(t, "buchhaltung@beispiel.de", resp.Email)
		assert.True(t, resp.ReverseChargeable)
		saved := repo.Calls[1].Arguments.Get(1).(*contact.Contact)
		require.NotNil(t, saved.CreatedBy)
		assert.Equal(t, userID, *saved.CreatedBy)
	})

	t.Run("supplier has no number", func(t *testing.T) {
		repo := new(MockContactRepository)
		repo.On("Save", ctx, mock.Anything).Return(nil)
		svc := NewService(repo, nil)

		resp, err := svc.Create(ctx, tenantID, userID, ContactRequest{Type: "supplier", Name: "Papier GmbH", DefaultCategoryCode: "office_supplies"})
		require.NoError(t, err)
		assert.Empty(t, resp.CustomerNumber)
		repo.AssertNotCalled(t, "NextCustomerSequence", mock.Anything, mock.Anything)
	})

	t.Run("validation", func(t *testing.T) {
		svc := NewService(new(MockContactRepository), nil)
		_, err := svc.Create(ctx, tenantID, userID, ContactRequest{Type: "supplier", Name: "X", PostalCode: "123"})
		de, ok := shared.IsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, "INVALID_ADDRESS", de.Code)

		_, err = svc.Create(ctx, tenantID, userID, ContactRequest{Type: "supplier", Name: "X", DefaultCategoryCode: "nope"})
		de, ok = shared.IsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, "INVALID_CATEGORY", de.Code)
	})
}

func TestService_UpdateAssignsNumberOnce(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	c, err := contact.NewContact(tenantID, contact.Details{Type: contact.TypeSupplier, Name: "Lieferant"})
	require.NoError(t, err)

	repo := new(MockContactRepository)
	repo.On("FindByIDForTenant", ctx, tenantID, c.ID).Return(c, nil)
	repo.On("NextCustomerSequence", ctx, tenantID).Return(int64(3), nil).Once()
	repo.On("Save", ctx, c).Return(nil)
	svc := NewService(repo, nil)

	resp, err := svc.Update(ctx, tenantID, c.ID, ContactRequest{Type: "both", Name: "Lieferant"})
	require.NoError(t, err)
	assert.Equal(t, "K-00003", resp.CustomerNumber)

	resp, err = svc.Update(ctx, tenantID, c.ID, ContactRequest{Type: "customer", Name: "Lieferant & Kunde"})
	require.NoError(t, err)
	assert.Equal(t, "K-00003", resp.CustomerNumber)
	repo.AssertNumberOfCalls(t, "NextCustomerSequence", 1)
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	repo := new(MockContactRepository)
	repo.On("FindAllForTenant", ctx, tenantID, mock.MatchedBy(func(f contact.ContactFilter) bool {
		return f.Type != nil && *f.Type == contact.TypeCustomer &&
			f.Archived != nil && !*f.Archived &&
			f.OrderBy == "name" && f.Search == "muster" && f.PageSize == 50
	})).Return([]*contact.Contact{}, int64(0), nil)
	svc := NewService(repo, nil)

	items, total, err := svc.List(ctx, tenantID, ListFilter{Type: "customer", Search: "muster", PageSize: 50})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)
	repo.AssertExpectations(t)
}

func TestService_ArchiveAndDelete(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	c, err := contact.NewContact(tenantID, contact.Details{Type: contact.TypeCustomer, Name: "Kunde"})
	require.NoError(t, err)

	t.Run("archive", func(t *testing.T) {
		repo := new(MockContactRepository)
		repo.On("FindByIDForTenant", ctx, tenantID, c.ID).Return(c, nil)
		repo.On("Save", ctx, c).Return(nil)
		svc := NewService(repo, nil)

		resp, err := svc.Archive(ctx, tenantID, c.ID)
		require.NoError(t, err)
		assert.True(t, resp.Archived)

		_, err = svc.Archive(ctx, tenantID, c.ID)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("delete rejected when referenced", func(t *testing.T) {
		repo := new(MockContactRepository)
		repo.On("FindByIDForTenant", ctx, tenantID, c.ID).Return(c, nil)
		repo.On("IsReferenced", ctx, tenantID, c.ID).Return(true, nil)
		svc := NewService(repo, nil)

		err := svc.Delete(ctx, tenantID, c.ID)
		de, ok := shared.IsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, "CONTACT_IN_USE", de.Code)
		repo.AssertNotCalled(t, "DeleteForTenant", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("delete", func(t *testing.T) {
		repo := new(MockContactRepository)
		repo.On("FindByIDForTenant", ctx, tenantID, c.ID).Return(c, nil)
		repo.On("IsReferenced", ctx, tenantID, c.ID).Return(false, nil)
		repo.On("DeleteForTenant", ctx, tenantID, c.ID).Return(nil)
		svc := NewService(repo, nil)

		require.NoError(t, svc.Delete(ctx, tenantID, c.ID))
		repo.AssertExpectations(t)
	})

	t.Run("delete unknown", func(t *testing.T) {
		repo := new(MockContactRepository)
		other := uuid.New()
		repo.On("FindByIDForTenant", ctx, tenantID, other).Return(nil, shared.ErrNotFound)
		svc := NewService(repo, nil)

		assert.ErrorIs(t, svc.Delete(ctx, tenantID, other), shared.ErrNotFound)
	})
}
