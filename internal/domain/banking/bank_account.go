package banking

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Provider says where transactions of the account come from
type Provider string

const (
	ProviderManual Provider = "manual"
	ProviderCSV    Provider = "csv"
	ProviderFinAPI Provider = "finapi"
)

func (p Provider) IsValid() bool {
	return p == ProviderManual || p == ProviderCSV || p == ProviderFinAPI
}

// Status is the connection state of an account
type Status string

const (
	StatusActive       Status = "active"
	StatusDisconnected Status = "disconnected"
	StatusArchived     Status = "archived"
)

// SyncOverlap is re-fetched on every sync so late bookings are not missed
const SyncOverlap = 7 * 24 * time.Hour

// BankAccount is a business bank account of the company
type BankAccount struct {
	shared.TenantAggregateRoot
	Name               string
	IBAN               string
	BIC                string
	BankName           string
	Provider           Provider
	FinAPIConnectionID *int64
	FinAPIAccountID    *int64
	Balance            decimal.Decimal
	BalanceDate        *time.Time
	LastSyncedAt       *time.Time
	Status             Status
}

// NewBankAccount creates a manual or csv account
func NewBankAccount(tenantID uuid.UUID, name, iban, bic, bankName string, provider Provider) (*BankAccount, error) {
	if provider == "" {
		provider = ProviderCSV
	}
	if !provider.IsValid() {
		return nil, shared.NewDomainError("INVALID_PROVIDER", "Provider must be manual, csv or finapi")
	}
	a := &BankAccount{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Provider:            provider,
		Status:              StatusActive,
		Balance:             decimal.Zero,
	}
	if err := a.setDetails(name, iban, bic, bankName); err != nil {
		return nil, err
	}
	return a, nil
}

// NewFinAPIAccount creates an account discovered through a FinAPI bank connection
func NewFinAPIAccount(tenantID uuid.UUID, connectionID, accountID int64, name, iban, bic, bankName string) (*BankAccount, error) {
	a, err := NewBankAccount(tenantID, name, iban, bic, bankName, ProviderFinAPI)
	if err != nil {
		return nil, err
	}
	a.FinAPIConnectionID = &connectionID
	a.FinAPIAccountID = &accountID
	return a, nil
}

func (a *BankAccount) setDetails(name, iban, bic, bankName string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Account name cannot be empty")
	}
	parsed, err := valueobject.ParseIBAN(iban)
	if err != nil {
		return shared.NewDomainErrorWithCause("INVALID_IBAN", "IBAN is not valid", err)
	}
	a.Name = name
	a.IBAN = string(parsed)
	a.BIC = strings.ToUpper(strings.TrimSpace(bic))
	a.BankName = strings.TrimSpace(bankName)
	return nil
}

// Update edits the master data
func (a *BankAccount) Update(name, iban, bic, bankName string) error {
	if a.Status == StatusArchived {
		return shared.NewDomainError("INVALID_STATE", "Cannot edit an archived account")
	}
	if a.Provider == ProviderFinAPI && valueobject.NormalizeIBAN(iban) != a.IBAN {
		return shared.NewDomainError("IBAN_LOCKED", "The IBAN of a linked account cannot change")
	}
	if err := a.setDetails(name, iban, bic, bankName); err != nil {
		return err
	}
	a.Touch()
	return nil
}

// Archive retires the account; its transactions stay
func (a *BankAccount) Archive() error {
	if a.Status == StatusArchived {
		return shared.NewDomainError("INVALID_STATE", "Account is already archived")
	}
	a.Status = StatusArchived
	a.Touch()
	return nil
}

// CanImport reports whether statements can be imported into the account
func (a *BankAccount) CanImport() error {
	if a.Status == StatusArchived {
		return shared.NewDomainError("INVALID_STATE", "Cannot import into an archived account")
	}
	return nil
}

// CanSync reports whether the account can be synced through FinAPI
func (a *BankAccount) CanSync() error {
	if a.Provider != ProviderFinAPI || a.FinAPIAccountID == nil {
		return shared.NewDomainError("NOT_LINKED", "Account is not linked to FinAPI")
	}
	if a.Status != StatusActive {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot sync account in %s status", a.Status))
	}
	return nil
}

// SyncFrom returns the first booking date to fetch
func (a *BankAccount) SyncFrom(now time.Time, initialDays int) time.Time {
	if a.LastSyncedAt == nil {
		return shared.DateOnly(now.AddDate(0, 0, -initialDays))
	}
	return shared.DateOnly(a.LastSyncedAt.Add(-SyncOverlap))
}

// RecordSync stores the balance reported by the bank
func (a *BankAccount) RecordSync(balance decimal.Decimal, at time.Time) {
	a.Balance = balance
	day := shared.DateOnly(at)
	a.BalanceDate = &day
	a.LastSyncedAt = &at
	a.Status = StatusActive
	a.Touch()
}

// Disconnect flags a FinAPI account whose bank connection needs renewal
func (a *BankAccount) Disconnect() {
	a.Status = StatusDisconnected
	a.Touch()
}

// AdjustBalance adds imported amounts to the balance of a csv account
func (a *BankAccount) AdjustBalance(delta decimal.Decimal, asOf time.Time) {
	a.Balance = a.Balance.Add(delta)
	if a.BalanceDate == nil || asOf.After(*a.BalanceDate) {
		day := shared.DateOnly(asOf)
		a.BalanceDate = &day
	}
	a.Touch()
}

// Reconnect attaches a renewed bank connection to a linked account
func (a *BankAccount) Reconnect(connectionID int64) error {
	if a.Provider != ProviderFinAPI {
		return shared.NewDomainError("NOT_LINKED", "Account is not linked to FinAPI")
	}
	if a.Status == StatusArchived {
		return shared.NewDomainError("INVALID_STATE", "Cannot reconnect an archived account")
	}
	a.FinAPIConnectionID = &connectionID
	a.Status = StatusActive
	a.Touch()
	return nil
}
