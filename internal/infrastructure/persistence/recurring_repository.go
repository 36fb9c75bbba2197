package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/recurring"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormRecurringRepository implements RecurringRepository using GORM
type GormRecurringRepository struct {
	db *gorm.DB
}

// NewGormRecurringRepository creates a new GormRecurringRepository
func NewGormRecurringRepository(db *gorm.DB) *GormRecurringRepository {
	return &GormRecurringRepository{db: db}
}

// FindByIDForTenant finds a recurring transaction by ID within a tenant
func (r *GormRecurringRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*recurring.RecurringTransaction, error) {
	var model models.RecurringTransactionModel
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

// FindAllForTenant lists recurring transactions with the total count
func (r *GormRecurringRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter recurring.RecurringFilter) ([]*recurring.RecurringTransaction, int64, error) {
	var total int64
	if err := r.filtered(ctx, tenantID, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var recModels []models.RecurringTransactionModel
	query := applySortAndPage(r.filtered(ctx, tenantID, filter), filter.Filter, RecurringSortFields, "next_execution")
	if err := query.Find(&recModels).Error; err != nil {
		return nil, 0, err
	}
	return toRecurring(recModels), total, nil
}

func (r *GormRecurringRepository) filtered(ctx context.Context, tenantID uuid.UUID, filter recurring.RecurringFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.RecurringTransactionModel{}).Where("tenant_id = ?", tenantID)
	if filter.Search != "" {
		pattern := searchPattern(filter.Search)
		query = query.Where("(LOWER(name) LIKE ? OR LOWER(counterparty) LIKE ?)", pattern, pattern)
	}
	if filter.Active != nil {
		query = query.Where("active = ?", *filter.Active)
	}
	return query
}

// FindDue returns active records whose next execution is on or before asOf
func (r *GormRecurringRepository) FindDue(ctx context.Context, tenantID uuid.UUID, asOf time.Time) ([]*recurring.RecurringTransaction, error) {
	var recModels []models.RecurringTransactionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND active = ? AND next_execution IS NOT NULL AND next_execution <= ?",
			tenantID, true, shared.DateOnly(asOf)).
		Order("next_execution ASC").
		Find(&recModels).Error; err != nil {
		return nil, err
	}
	return toRecurring(recModels), nil
}

// Save creates or updates a recurring transaction; a stale copy gets shared.ErrConcurrencyConflict
func (r *GormRecurringRepository) Save(ctx context.Context, rec *recurring.RecurringTransaction) error {
	model := models.RecurringTransactionModelFromDomain(rec)
	return saveVersioned(ctx, r.db, model, rec)
}

// DeleteForTenant deletes a recurring transaction within a tenant
func (r *GormRecurringRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	result := conn(ctx, r.db).Delete(&models.RecurringTransactionModel{}, "tenant_id = ? AND id = ?", tenantID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func toRecurring(recModels []models.RecurringTransactionModel) []*recurring.RecurringTransaction {
	out := make([]*recurring.RecurringTransaction, len(recModels))
	for i := range recModels {
		out[i] = recModels[i].ToDomain()
	}
	return out
}

// Ensure GormRecurringRepository implements RecurringRepository
var _ recurring.RecurringRepository = (*GormRecurringRepository)(nil)
