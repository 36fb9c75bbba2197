package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/kontor/backend/internal/domain/banking"
	"github.com/kontor/backend/internal/domain/company"
	"github.com/kontor/backend/internal/domain/contact"
	"github.com/kontor/backend/internal/domain/invoice"
	"github.com/kontor/backend/internal/domain/ledger"
	"github.com/kontor/backend/internal/domain/receipt"
	"github.com/kontor/backend/internal/domain/shared"
)

// RecordingPublisher collects published events.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

// Publish implements shared.EventPublisher.
func (p *RecordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

// Events returns the published events.
func (p *RecordingPublisher) Events() []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]shared.DomainEvent, len(p.events))
	copy(out, p.events)
	return out
}

// EventTypes returns the types of the published events in order.
func (p *RecordingPublisher) EventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

// MockCompanyRepository is a testify mock of company.CompanyRepository.
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

// MockTransactionRepository is a testify mock of ledger.TransactionRepository.
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Transaction, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.TransactionFilter) ([]*ledger.Transaction, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]*ledger.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockTransactionRepository) FindBooked(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*ledger.Transaction, error) {
	args := m.Called(ctx, tenantID, from, to)
	return args.Get(0).([]*ledger.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindUnbooked(ctx context.Context, tenantID uuid.UUID) ([]*ledger.Transaction, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]*ledger.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ExistingHashes(ctx context.Context, tenantID uuid.UUID, bankAccountID *uuid.UUID, hashes []string) (map[string]bool, error) {
	args := m.Called(ctx, tenantID, bankAccountID, hashes)
	return args.Get(0).(map[string]bool), args.Error(1)
}

func (m *MockTransactionRepository) SumByDirection(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (decimal.Decimal, decimal.Decimal, error) {
	args := m.Called(ctx, tenantID, from, to)
	return args.Get(0).(decimal.Decimal), args.Get(1).(decimal.Decimal), args.Error(2)
}

func (m *MockTransactionRepository) MonthlyTotals(ctx context.Context, tenantID uuid.UUID, year int) ([]ledger.MonthTotal, error) {
	args := m.Called(ctx, tenantID, year)
	return args.Get(0).([]ledger.MonthTotal), args.Error(1)
}

func (m *MockTransactionRepository) CountByStatus(ctx context.Context, tenantID uuid.UUID, status ledger.Status) (int64, error) {
	args := m.Called(ctx, tenantID, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) Save(ctx context.Context, t *ledger.Transaction) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockTransactionRepository) SaveBatch(ctx context.Context, txs []*ledger.Transaction) error {
	return m.Called(ctx, txs).Error(0)
}

func (m *MockTransactionRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

// MockBankAccountRepository is a testify mock of banking.BankAccountRepository.
type MockBankAccountRepository struct {
	mock.Mock
}

func (m *MockBankAccountRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*banking.BankAccount, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*banking.BankAccount), args.Error(1)
}

func (m *MockBankAccountRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, includeArchived bool) ([]*banking.BankAccount, error) {
	args := m.Called(ctx, tenantID, includeArchived)
	return args.Get(0).([]*banking.BankAccount), args.Error(1)
}

func (m *MockBankAccountRepository) FindByFinAPIAccount(ctx context.Context, tenantID uuid.UUID, finapiAccountID int64) (*banking.BankAccount, error) {
	args := m.Called(ctx, tenantID, finapiAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*banking.BankAccount), args.Error(1)
}

func (m *MockBankAccountRepository) FindFinAPIAccounts(ctx context.Context, tenantID uuid.UUID) ([]*banking.BankAccount, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]*banking.BankAccount), args.Error(1)
}

func (m *MockBankAccountRepository) CountActive(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBankAccountRepository) TotalBalance(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockBankAccountRepository) Save(ctx context.Context, a *banking.BankAccount) error {
	return m.Called(ctx, a).Error(0)
}

// MockInvoiceRepository is a testify mock of invoice.InvoiceRepository.
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*invoice.Invoice, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoice.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter invoice.InvoiceFilter) ([]*invoice.Invoice, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]*invoice.Invoice), args.Get(1).(int64), args.Error(2)
}

func (m *MockInvoiceRepository) FindDueBefore(ctx context.Context, tenantID uuid.UUID, day time.Time) ([]*invoice.Invoice, error) {
	args := m.Called(ctx, tenantID, day)
	return args.Get(0).([]*invoice.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) NextSequence(ctx context.Context, tenantID uuid.UUID, year int) (int64, error) {
	args := m.Called(ctx, tenantID, year)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvoiceRepository) CountCreatedBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (int64, error) {
	args := m.Called(ctx, tenantID, from, to)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvoiceRepository) CountByContact(ctx context.Context, tenantID, contactID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID, contactID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvoiceRepository) SummarizeByStatus(ctx context.Context, tenantID uuid.UUID) ([]invoice.StatusSummary, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]invoice.StatusSummary), args.Error(1)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, inv *invoice.Invoice) error {
	return m.Called(ctx, inv).Error(0)
}

func (m *MockInvoiceRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

// MockContactRepository is a testify mock of contact.ContactRepository.
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

// MockReceiptRepository is a testify mock of receipt.ReceiptRepository.
type MockReceiptRepository struct {
	mock.Mock
}

func (m *MockReceiptRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*receipt.Receipt, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*receipt.Receipt), args.Error(1)
}

func (m *MockReceiptRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter receipt.ReceiptFilter) ([]*receipt.Receipt, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]*receipt.Receipt), args.Get(1).(int64), args.Error(2)
}

func (m *MockReceiptRepository) Save(ctx context.Context, r *receipt.Receipt) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockReceiptRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

// NewTestCompany returns a registered company with its events cleared.
func NewTestCompany() *company.Company {
	c, err := company.NewCompany("Muster GmbH", "info@muster.de", "3yZe7d")
	if err != nil {
		panic(err)
	}
	c.ClearDomainEvents()
	return c
}

// NewTestTransaction returns an unbooked manual transaction.
func NewTestTransaction(tenantID uuid.UUID, amount string, bookingDate time.Time) *ledger.Transaction {
	tx, err := ledger.NewTransaction(tenantID, ledger.SourceManual, ledger.Entry{
		BookingDate:  bookingDate,
		Amount:       decimal.RequireFromString(amount),
		Counterparty: "Muster Lieferant",
		Purpose:      "Rechnung 4711",
	})
	if err != nil {
		panic(err)
	}
	return tx
}
