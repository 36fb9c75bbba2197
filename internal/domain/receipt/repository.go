package receipt

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/shared"
)

// ReceiptFilter narrows receipt listings
type ReceiptFilter struct {
	shared.Filter
	Status   *Status
	FromDate *time.Time
	ToDate   *time.Time
}

// ReceiptRepository persists receipt metadata; the document lives in object storage
type ReceiptRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Receipt, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ReceiptFilter) ([]*Receipt, int64, error)
	Save(ctx context.Context, r *Receipt) error
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error
}
