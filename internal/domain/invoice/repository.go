package invoice

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceFilter narrows invoice listings
type InvoiceFilter struct {
	shared.Filter
	Status    *Status
	Statuses  []Status
	ContactID *uuid.UUID
	FromDate  *time.Time
	ToDate    *time.Time
}

// StatusSummary is the count and gross sum of invoices in one status
type StatusSummary struct {
	Status Status
	Count  int64
	Total  decimal.Decimal
}

// InvoiceRepository persists invoices
type InvoiceRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter InvoiceFilter) ([]*Invoice, int64, error)

	// FindDueBefore returns sent invoices of the tenant with a due date before day
	FindDueBefore(ctx context.Context, tenantID uuid.UUID, day time.Time) ([]*Invoice, error)

	// NextSequence returns the next number sequence of the tenant in year
	NextSequence(ctx context.Context, tenantID uuid.UUID, year int) (int64, error)

	// CountCreatedBetween counts invoices created in [from, to), for plan limits
	CountCreatedBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (int64, error)

	// CountByContact counts invoices addressed to a contact
	CountByContact(ctx context.Context, tenantID, contactID uuid.UUID) (int64, error)

	// SummarizeByStatus returns count and gross sum per status
	SummarizeByStatus(ctx context.Context, tenantID uuid.UUID) ([]StatusSummary, error)

	Save(ctx context.Context, inv *Invoice) error
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error
}
