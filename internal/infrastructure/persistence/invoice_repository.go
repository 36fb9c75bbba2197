package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/invoice"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByIDForTenant finds an invoice by ID within a tenant
func (r *GormInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*invoice.Invoice, error) {
	var model models.InvoiceModel
	if err := conn(ctx, r.db).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists invoices of a tenant with the total count
func (r *GormInvoiceRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter invoice.InvoiceFilter) ([]*invoice.Invoice, int64, error) {
	var total int64
	if err := r.filtered(ctx, tenantID, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var invoiceModels []models.InvoiceModel
	query := applySortAndPage(r.filtered(ctx, tenantID, filter), filter.Filter, InvoiceSortFields, "issue_date")
	if err := query.Find(&invoiceModels).Error; err != nil {
		return nil, 0, err
	}
	return toInvoices(invoiceModels), total, nil
}

func (r *GormInvoiceRepository) filtered(ctx context.Context, tenantID uuid.UUID, filter invoice.InvoiceFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Where("tenant_id = ?", tenantID)

	if filter.Search != "" {
		pattern := searchPattern(filter.Search)
		query = query.Where("(LOWER(number) LIKE ? OR LOWER(notes) LIKE ?)", pattern, pattern)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.ContactID != nil {
		query = query.Where("contact_id = ?", *filter.ContactID)
	}
	if filter.FromDate != nil {
		query = query.Where("issue_date >= ?", shared.DateOnly(*filter.FromDate))
	}
	if filter.ToDate != nil {
		query = query.Where("issue_date <= ?", shared.DateOnly(*filter.ToDate))
	}
	return query
}

// FindDueBefore returns sent invoices whose due date is before day
func (r *GormInvoiceRepository) FindDueBefore(ctx context.Context, tenantID uuid.UUID, day time.Time) ([]*invoice.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ? AND due_date < ?", tenantID, invoice.StatusSent, shared.DateOnly(day)).
		Order("due_date ASC").
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	return toInvoices(invoiceModels), nil
}

// NextSequence returns the next invoice number sequence of the tenant in year
func (r *GormInvoiceRepository) NextSequence(ctx context.Context, tenantID uuid.UUID, year int) (int64, error) {
	return nextSequence(ctx, r.db, tenantID, fmt.Sprintf("invoice:%d", year))
}

// CountCreatedBetween counts invoices created in [from, to)
func (r *GormInvoiceRepository) CountCreatedBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("tenant_id = ? AND created_at >= ? AND created_at < ?", tenantID, from, to).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByContact counts invoices addressed to a contact
func (r *GormInvoiceRepository) CountByContact(ctx context.Context, tenantID, contactID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("tenant_id = ? AND contact_id = ?", tenantID, contactID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SummarizeByStatus returns count and gross sum per status
func (r *GormInvoiceRepository) SummarizeByStatus(ctx context.Context, tenantID uuid.UUID) ([]invoice.StatusSummary, error) {
	var rows []invoice.StatusSummary
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(gross_amount), 0) AS total").
		Where("tenant_id = ?", tenantID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Save creates or updates an invoice; a stale copy gets shared.ErrConcurrencyConflict
func (r *GormInvoiceRepository) Save(ctx context.Context, inv *invoice.Invoice) error {
	model := models.InvoiceModelFromDomain(inv)
	return saveVersioned(ctx, r.db, model, inv)
}

// DeleteForTenant deletes an invoice within a tenant
func (r *GormInvoiceRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	result := conn(ctx, r.db).Delete(&models.InvoiceModel{}, "tenant_id = ? AND id = ?", tenantID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func toInvoices(invoiceModels []models.InvoiceModel) []*invoice.Invoice {
	invoices := make([]*invoice.Invoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = invoiceModels[i].ToDomain()
	}
	return invoices
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ invoice.InvoiceRepository = (*GormInvoiceRepository)(nil)
