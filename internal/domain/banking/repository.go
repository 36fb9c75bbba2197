package banking

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankAccountRepository persists bank accounts
type BankAccountRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*BankAccount, error)

	// FindAllForTenant lists accounts; archived ones only when includeArchived
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, includeArchived bool) ([]*BankAccount, error)

	// FindByFinAPIAccount finds the account mirroring a FinAPI account
	FindByFinAPIAccount(ctx context.Context, tenantID uuid.UUID, finapiAccountID int64) (*BankAccount, error)

	// FindFinAPIAccounts lists active accounts linked through FinAPI
	FindFinAPIAccounts(ctx context.Context, tenantID uuid.UUID) ([]*BankAccount, error)

	// CountActive counts accounts that are not archived, for plan limits
	CountActive(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// TotalBalance sums the balance of all active accounts
	TotalBalance(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error)

	Save(ctx context.Context, a *BankAccount) error
}

// FinAPILink is a pending bank connection import
type FinAPILink struct {
	TenantID  uuid.UUID
	WebFormID int64
	URL       string
}

// FinAPILinkRepository remembers web forms until the user completes them
type FinAPILinkRepository interface {
	SavePending(ctx context.Context, link FinAPILink) error
	FindPending(ctx context.Context, tenantID uuid.UUID, webFormID int64) (*FinAPILink, error)
	DeletePending(ctx context.Context, tenantID uuid.UUID, webFormID int64) error
}
