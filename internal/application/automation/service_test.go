package automation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kontor/backend/internal/domain/automation"
	"github.com/kontor/backend/internal/domain/company"
	"github.com/kontor/backend/internal/domain/ledger"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/tests/testutil"
)

type MockRuleRepository struct {
	mock.Mock
}

func (m *MockRuleRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*automation.Rule, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*automation.Rule), args.Error(1)
}

func (m *MockRuleRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]*automation.Rule, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]*automation.Rule), args.Error(1)
}

func (m *MockRuleRepository) FindActive(ctx context.Context, tenantID uuid.UUID) ([]*automation.Rule, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]*automation.Rule), args.Error(1)
}

func (m *MockRuleRepository) Save(ctx context.Context, r *automation.Rule) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockRuleRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

var fixedNow = time.Date(2024, 6, 3, 7, 0, 0, 0, time.UTC)

type fixture struct {
	rules        *MockRuleRepository
	transactions *testutil.MockTransactionRepository
	companies    *testutil.MockCompanyRepository
	events       *testutil.RecordingPublisher
	company      *company.Company
	svc          *Service
}

func newFixture() *fixture {
	f := &fixture{
		rules:        new(MockRuleRepository),
		transactions: new(testutil.MockTransactionRepository),
		companies:    new(testutil.MockCompanyRepository),
		events:       &testutil.RecordingPublisher{},
		company:      testutil.NewTestCompany(),
	}
	f.svc = NewService(f.rules, f.transactions, f.companies, f.events, nil)
	f.svc.now = func() time.Time { return fixedNow }
	f.companies.On("FindByID", mock.Anything, f.company.ID).Return(f.company, nil).Maybe()
	return f
}

func (f *fixture) rule(t *testing.T, name string, priority int, conds []automation.Condition, actions []automation.Action) *automation.Rule {
	t.Helper()
	r, err := automation.NewRule(f.company.ID, automation.Definition{
		Name:       name,
		Priority:   priority,
		Active:     true,
		Conditions: conds,
		Actions:    actions,
	})
	require.NoError(t, err)
	return r
}

func tx(t *testing.T, tenantID uuid.UUID, amount, counterparty, purpose string) *ledger.Transaction {
	t.Helper()
	out, err := ledger.NewTransaction(tenantID, ledger.SourceCSV, ledger.Entry{
		BookingDate:  fixedNow,
		Amount:       decimal.RequireFromString(amount),
		Counterparty: counterparty,
		Purpose:      purpose,
	})
	require.NoError(t, err)
	return out
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	return de.Code
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	base := RuleRequest{
		Name:       "Telekom",
		Conditions: []ConditionRequest{{Field: "counterparty", Operator: "contains", Value: "telekom"}},
		Actions:    []ActionRequest{{Type: "set_category", Value: "telecommunication"}},
	}

	t.Run("stores an active rule by default", func(t *testing.T) {
		f := newFixture()
		f.rules.On("Save", ctx, mock.AnythingOfType("*automation.Rule")).Return(nil)

		resp, err := f.svc.Create(ctx, f.company.ID, uuid.New(), base)
		require.NoError(t, err)
		assert.True(t, resp.Active)
		assert.Equal(t, "all", resp.MatchMode)
		assert.Len(t, resp.Conditions, 1)
	})

	t.Run("rejects unknown categories", func(t *testing.T) {
		f := newFixture()
		req := base
		req.Actions = []ActionRequest{{Type: "set_category", Value: "crypto"}}

		_, err := f.svc.Create(ctx, f.company.ID, uuid.New(), req)
		assert.Equal(t, "INVALID_CATEGORY", errCode(t, err))
	})

	t.Run("rejects invalid regular expressions", func(t *testing.T) {
		f := newFixture()
		req := base
		req.Conditions = []ConditionRequest{{Field: "purpose", Operator: "regex", Value: "miete ("}}

		_, err := f.svc.Create(ctx, f.company.ID, uuid.New(), req)
		assert.Equal(t, "INVALID_REGEX", errCode(t, err))
		f.rules.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("rejects text operators on amounts", func(t *testing.T) {
		f := newFixture()
		req := base
		req.Conditions = []ConditionRequest{{Field: "amount", Operator: "contains", Value: "10"}}

		_, err := f.svc.Create(ctx, f.company.ID, uuid.New(), req)
		assert.Equal(t, "INVALID_OPERATOR", errCode(t, err))
	})
}

func TestApply(t *testing.T) {
	f := newFixture()
	contactID := uuid.New()

	t.Run("categorises with the chart account", func(t *testing.T) {
		r := f.rule(t, "Büro", 1,
			[]automation.Condition{{Field: automation.FieldPurpose, Operator: automation.OpContains, Value: "papier"}},
			[]automation.Action{
				{Type: automation.ActionSetCategory, Value: "office_supplies"},
				{Type: automation.ActionSetVATRate, Value: "7"},
				{Type: automation.ActionSetContact, Value: contactID.String()},
				{Type: automation.ActionSetNote, Value: "automatisch"},
			})
		tr := tx(t, f.company.ID, "-10.70", "Papier AG", "Papier und Toner")

		require.NoError(t, Apply(tr, r, company.ChartSKR04, fixedNow))
		assert.Equal(t, "office_supplies", tr.CategoryCode)
		assert.Equal(t, "6815", tr.AccountNumber)
		require.NotNil(t, tr.VATRate)
		assert.EqualValues(t, 7, *tr.VATRate)
		assert.Equal(t, contactID, *tr.ContactID)
		assert.Equal(t, "automatisch", tr.Notes)
		assert.Equal(t, ledger.StatusUnbooked, tr.Status)
	})

	t.Run("books when asked to", func(t *testing.T) {
		r := f.rule(t, "Gebühren", 1,
			[]automation.Condition{{Field: automation.FieldPurpose, Operator: automation.OpStartsWith, Value: "entgelt"}},
			[]automation.Action{
				{Type: automation.ActionSetCategory, Value: "bank_fees"},
				{Type: automation.ActionMarkBooked},
			})
		tr := tx(t, f.company.ID, "-4.90", "Sparkasse", "Entgelt Kontoführung")

		require.NoError(t, Apply(tr, r, company.ChartSKR03, fixedNow))
		assert.Equal(t, ledger.StatusBooked, tr.Status)
		assert.Equal(t, "4970", tr.AccountNumber)
		require.NotNil(t, tr.BookedAt)
	})

	t.Run("leaves the transaction untouched on a category mismatch", func(t *testing.T) {
		r := f.rule(t, "Falsch", 1,
			[]automation.Condition{{Field: automation.FieldAbsAmount, Operator: automation.OpGt, Value: "0"}},
			[]automation.Action{
				{Type: automation.ActionSetCategory, Value: "revenue_19"},
				{Type: automation.ActionSetNote, Value: "x"},
			})
		tr := tx(t, f.company.ID, "-4.90", "Sparkasse", "Entgelt")

		err := Apply(tr, r, company.ChartSKR03, fixedNow)
		assert.Equal(t, "CATEGORY_MISMATCH", errCode(t, err))
		assert.Empty(t, tr.Notes)
		assert.Empty(t, tr.CategoryCode)
	})

	t.Run("ignores", func(t *testing.T) {
		r := f.rule(t, "Umbuchung", 1,
			[]automation.Condition{{Field: automation.FieldPurpose, Operator: automation.OpEquals, Value: "umbuchung"}},
			[]automation.Action{{Type: automation.ActionIgnore}})
		tr := tx(t, f.company.ID, "500.00", "Selbst", "Umbuchung")

		require.NoError(t, Apply(tr, r, company.ChartSKR03, fixedNow))
		assert.Equal(t, ledger.StatusIgnored, tr.Status)
	})
}

func TestService_ApplyToUnbooked(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	generic := f.rule(t, "Alles über 1000", 20,
		[]automation.Condition{{Field: automation.FieldAbsAmount, Operator: automation.OpGte, Value: "1000"}},
		[]automation.Action{{Type: automation.ActionSetNote, Value: "prüfen"}})
	rent := f.rule(t, "Miete", 10,
		[]automation.Condition{
			{Field: automation.FieldPurpose, Operator: automation.OpRegex, Value: `miete\s+\d{2}/\d{4}`},
			{Field: automation.FieldAmount, Operator: automation.OpBetween, Value: "-1500", Value2: "-1000"},
		},
		[]automation.Action{
			{Type: automation.ActionSetCategory, Value: "rent"},
			{Type: automation.ActionMarkBooked},
		})

	rentTx := tx(t, f.company.ID, "-1200.00", "Vermieter GmbH", "Miete 06/2024")
	bigTx := tx(t, f.company.ID, "2500.00", "Kunde AG", "RE-2024-0007")
	otherTx := tx(t, f.company.ID, "-3.00", "Kiosk", "Zeitung")

	f.transactions.On("FindUnbooked", ctx, f.company.ID).Return([]*ledger.Transaction{rentTx, bigTx, otherTx}, nil)
	f.rules.On("FindActive", ctx, f.company.ID).Return([]*automation.Rule{generic, rent}, nil)
	f.rules.On("Save", ctx, mock.AnythingOfType("*automation.Rule")).Return(nil)
	f.transactions.On("Save", ctx, rentTx).Return(nil).Once()
	f.transactions.On("Save", ctx, bigTx).Return(nil).Once()

	resp, err := f.svc.ApplyToUnbooked(ctx, f.company.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Checked)
	assert.Equal(t, 2, resp.Changed)

	assert.Equal(t, ledger.StatusBooked, rentTx.Status)
	assert.Equal(t, "rent", rentTx.CategoryCode)
	assert.Empty(t, rentTx.Notes, "the higher priority rule wins")
	assert.Equal(t, "prüfen", bigTx.Notes)
	assert.Equal(t, ledger.StatusUnbooked, otherTx.Status)

	assert.Equal(t, 1, rent.TimesApplied)
	assert.Equal(t, 1, generic.TimesApplied)
	assert.Equal(t, []string{ledger.EventTypeTransactionBooked}, f.events.EventTypes())
	f.transactions.AssertExpectations(t)
}

func TestService_ApplyToTransactions_NoRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.rules.On("FindActive", ctx, f.company.ID).Return([]*automation.Rule{}, nil)

	n, err := f.svc.ApplyToTransactions(ctx, f.company.ID, []*ledger.Transaction{tx(t, f.company.ID, "1", "a", "b")})
	require.NoError(t, err)
	assert.Zero(t, n)
	f.companies.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestService_Test(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	r := f.rule(t, "Adobe", 1,
		[]automation.Condition{
			{Field: automation.FieldCounterparty, Operator: automation.OpContains, Value: "adobe"},
			{Field: automation.FieldIBAN, Operator: automation.OpStartsWith, Value: "IE"},
		},
		[]automation.Action{{Type: automation.ActionSetCategory, Value: "software"}})
	f.rules.On("FindByIDForTenant", ctx, f.company.ID, r.ID).Return(r, nil)

	resp, err := f.svc.Test(ctx, f.company.ID, r.ID, TestRequest{
		Counterparty: "ADOBE SYSTEMS SOFTWARE",
		IBAN:         "IE29 AIBK 9311 5212 3456 78",
		Amount:       decimal.NewFromInt(-60),
	})
	require.NoError(t, err)
	assert.True(t, resp.Matches)
	assert.Len(t, resp.Actions, 1)

	resp, err = f.svc.Test(ctx, f.company.ID, r.ID, TestRequest{Counterparty: "Adobe", IBAN: "DE02120300000000202051"})
	require.NoError(t, err)
	assert.False(t, resp.Matches)
	assert.Empty(t, resp.Actions)
}

func TestService_List_SortsByPriority(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	cond := []automation.Condition{{Field: automation.FieldPurpose, Operator: automation.OpContains, Value: "x"}}
	act := []automation.Action{{Type: automation.ActionIgnore}}
	low := f.rule(t, "low", 50, cond, act)
	high := f.rule(t, "high", 5, cond, act)
	f.rules.On("FindAllForTenant", ctx, f.company.ID).Return([]*automation.Rule{low, high}, nil)

	rules, err := f.svc.List(ctx, f.company.ID)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "high", rules[0].Name)
}
