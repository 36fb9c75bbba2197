package taxexport

import (
	"context"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/shared"
)

// RecordFilter narrows export listings
type RecordFilter struct {
	shared.Filter
	Type *Type
}

// RecordRepository persists export records
type RecordRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Record, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter RecordFilter) ([]*Record, int64, error)
	Save(ctx context.Context, r *Record) error
}
