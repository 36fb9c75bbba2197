package company

import (
	"context"

	"github.com/google/uuid"
)

// CompanyRepository persists companies
type CompanyRepository interface {
	// FindByID finds a company by its id (the tenant id)
	FindByID(ctx context.Context, id uuid.UUID) (*Company, error)

	// FindByReferralCode finds the company owning a referral code
	FindByReferralCode(ctx context.Context, code string) (*Company, error)

	// FindByStripeCustomerID finds the company billed under a Stripe customer
	FindByStripeCustomerID(ctx context.Context, customerID string) (*Company, error)

	// ExistsByReferralCode reports whether a referral code is taken
	ExistsByReferralCode(ctx context.Context, code string) (bool, error)

	// FindAllActiveIDs returns the ids of all companies, for scheduled jobs
	FindAllActiveIDs(ctx context.Context) ([]uuid.UUID, error)

	// Save creates or updates a company
	Save(ctx context.Context, c *Company) error
}
