package contact

import (
	"context"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/shared"
)

// ContactFilter narrows contact listings
type ContactFilter struct {
	shared.Filter
	Type     *ContactType
	Archived *bool
}

// ContactRepository persists contacts
type ContactRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Contact, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ContactFilter) ([]*Contact, int64, error)

	// NextCustomerSequence returns the next customer number sequence of the tenant
	NextCustomerSequence(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// IsReferenced reports whether invoices point at the contact
	IsReferenced(ctx context.Context, tenantID, id uuid.UUID) (bool, error)

	Save(ctx context.Context, c *Contact) error
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error
}
