package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/receipt"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormReceiptRepository implements ReceiptRepository using GORM
type GormReceiptRepository struct {
	db *gorm.DB
}

// NewGormReceiptRepository creates a new GormReceiptRepository
func NewGormReceiptRepository(db *gorm.DB) *GormReceiptRepository {
	return &GormReceiptRepository{db: db}
}

// FindByIDForTenant finds a receipt by ID within a tenant
func (r *GormReceiptRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*receipt.Receipt, error) {
	var model models.ReceiptModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists receipts of a tenant with the total count
func (r *GormReceiptRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter receipt.ReceiptFilter) ([]*receipt.Receipt, int64, error) {
	var total int64
	if err := r.filtered(ctx, tenantID, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var receiptModels []models.ReceiptModel
	query := applySortAndPage(r.filtered(ctx, tenantID, filter), filter.Filter, ReceiptSortFields, "created_at")
	if err := query.Find(&receiptModels).Error; err != nil {
		return nil, 0, err
	}

	receipts := make([]*receipt.Receipt, len(receiptModels))
	for i := range receiptModels {
		receipts[i] = receiptModels[i].ToDomain()
	}
	return receipts, total, nil
}

func (r *GormReceiptRepository) filtered(ctx context.Context, tenantID uuid.UUID, filter receipt.ReceiptFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.ReceiptModel{}).Where("tenant_id = ?", tenantID)

	if filter.Search != "" {
		pattern := searchPattern(filter.Search)
		query = query.Where("(LOWER(vendor_name) LIKE ? OR LOWER(file_name) LIKE ? OR LOWER(receipt_number) LIKE ?)",
			pattern, pattern, pattern)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.FromDate != nil {
		query = query.Where("receipt_date >= ?", shared.DateOnly(*filter.FromDate))
	}
	if filter.ToDate != nil {
		query = query.Where("receipt_date <= ?", shared.DateOnly(*filter.ToDate))
	}
	return query
}

// Save creates or updates a receipt
func (r *GormReceiptRepository) Save(ctx context.Context, rc *receipt.Receipt) error {
	model := models.ReceiptModelFromDomain(rc)
	return saveVersioned(ctx, r.db, model, rc)
}

// DeleteForTenant deletes a receipt within a tenant
func (r *GormReceiptRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	result := conn(ctx, r.db).Delete(&models.ReceiptModel{}, "tenant_id = ? AND id = ?", tenantID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormReceiptRepository implements ReceiptRepository
var _ receipt.ReceiptRepository = (*GormReceiptRepository)(nil)
