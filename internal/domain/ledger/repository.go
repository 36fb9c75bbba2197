package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AmountSign filters by direction of money
type AmountSign string

const (
	SignIncome  AmountSign = "income"
	SignExpense AmountSign = "expense"
)

// TransactionFilter narrows transaction listings
type TransactionFilter struct {
	shared.Filter
	Status        *Status
	BankAccountID *uuid.UUID
	CategoryCode  *string
	Sign          *AmountSign
	FromDate      *time.Time
	ToDate        *time.Time
}

// MonthTotal is income and expense of one calendar month
type MonthTotal struct {
	Month    int
	Income   decimal.Decimal
	Expenses decimal.Decimal
}

// TransactionRepository persists transactions
type TransactionRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Transaction, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter TransactionFilter) ([]*Transaction, int64, error)

	// FindBooked returns booked transactions with a booking date in [from, to]
	FindBooked(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*Transaction, error)

	// FindUnbooked returns all unbooked transactions of the tenant
	FindUnbooked(ctx context.Context, tenantID uuid.UUID) ([]*Transaction, error)

	// ExistingHashes returns which of the given import hashes are already stored
	ExistingHashes(ctx context.Context, tenantID uuid.UUID, bankAccountID *uuid.UUID, hashes []string) (map[string]bool, error)

	// SumByDirection returns income and expense sums over booked and unbooked
	// transactions in [from, to]; ignored transactions are excluded
	SumByDirection(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (income, expenses decimal.Decimal, err error)

	// MonthlyTotals returns twelve buckets for year
	MonthlyTotals(ctx context.Context, tenantID uuid.UUID, year int) ([]MonthTotal, error)

	CountByStatus(ctx context.Context, tenantID uuid.UUID, status Status) (int64, error)

	Save(ctx context.Context, t *Transaction) error
	SaveBatch(ctx context.Context, txs []*Transaction) error
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error
}
