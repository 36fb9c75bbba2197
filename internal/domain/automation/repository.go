package automation

import (
	"context"

	"github.com/google/uuid"
)

// RuleRepository persists automation rules
type RuleRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Rule, error)

	// FindAllForTenant returns all rules ordered by priority
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]*Rule, error)

	// FindActive returns active rules ordered by priority, compiled
	FindActive(ctx context.Context, tenantID uuid.UUID) ([]*Rule, error)

	Save(ctx context.Context, r *Rule) error
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error
}
