package referral

import (
	"context"

	"github.com/google/uuid"
)

// ReferralRepository persists referrals
type ReferralRepository interface {
	// FindByReferredTenant finds the referral that brought in a company
	FindByReferredTenant(ctx context.Context, referredID uuid.UUID) (*Referral, error)

	// FindAllForTenant lists the referrals a company made, newest first
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]*Referral, error)

	// Save creates or updates a referral
	Save(ctx context.Context, r *Referral) error
}
