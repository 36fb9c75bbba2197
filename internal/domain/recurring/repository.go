package recurring

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/shared"
)

// RecurringFilter narrows listings
type RecurringFilter struct {
	shared.Filter
	Active *bool
}

// RecurringRepository persists recurring transactions
type RecurringRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*RecurringTransaction, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter RecurringFilter) ([]*RecurringTransaction, int64, error)

	// FindDue returns active records whose next execution is on or before asOf
	FindDue(ctx context.Context, tenantID uuid.UUID, asOf time.Time) ([]*RecurringTransaction, error)

	Save(ctx context.Context, r *RecurringTransaction) error
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error
}
