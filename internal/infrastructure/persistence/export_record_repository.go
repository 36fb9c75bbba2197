package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/domain/taxexport"
	"github.com/kontor/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormExportRecordRepository implements the taxexport RecordRepository using GORM
type GormExportRecordRepository struct {
	db *gorm.DB
}

// NewGormExportRecordRepository creates a new GormExportRecordRepository
func NewGormExportRecordRepository(db *gorm.DB) *GormExportRecordRepository {
	return &GormExportRecordRepository{db: db}
}

// FindByIDForTenant finds an export record by ID within a tenant
func (r *GormExportRecordRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*taxexport.Record, error) {
	var model models.ExportRecordModel
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

// FindAllForTenant lists export records of a tenant with the total count
func (r *GormExportRecordRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter taxexport.RecordFilter) ([]*taxexport.Record, int64, error) {
	scope := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&models.ExportRecordModel{}).Where("tenant_id = ?", tenantID)
		if filter.Type != nil {
			query = query.Where("type = ?", *filter.Type)
		}
		return query
	}

	var total int64
	if err := scope().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var recModels []models.ExportRecordModel
	if err := applySortAndPage(scope(), filter.Filter, ExportRecordSortFields, "created_at").Find(&recModels).Error; err != nil {
		return nil, 0, err
	}
	records := make([]*taxexport.Record, len(recModels))
	for i := range recModels {
		records[i] = recModels[i].ToDomain()
	}
	return records, total, nil
}

// Save creates or updates an export record
func (r *GormExportRecordRepository) Save(ctx context.Context, rec *taxexport.Record) error {
	model := models.ExportRecordModelFromDomain(rec)
	return saveVersioned(ctx, r.db, model, rec)
}

// Ensure GormExportRecordRepository implements RecordRepository
var _ taxexport.RecordRepository = (*GormExportRecordRepository)(nil)
