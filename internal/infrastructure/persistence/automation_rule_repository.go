package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/automation"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormRuleRepository implements the automation RuleRepository using GORM
type GormRuleRepository struct {
	db *gorm.DB
}

// NewGormRuleRepository creates a new GormRuleRepository
func NewGormRuleRepository(db *gorm.DB) *GormRuleRepository {
	return &GormRuleRepository{db: db}
}

// FindByIDForTenant finds a rule by ID within a tenant
func (r *GormRuleRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*automation.Rule, error) {
	var model models.AutomationRuleModel
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

// FindAllForTenant returns all rules ordered by priority
func (r *GormRuleRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]*automation.Rule, error) {
	return r.find(r.db.WithContext(ctx).Where("tenant_id = ?", tenantID))
}

// FindActive returns active rules ordered by priority
func (r *GormRuleRepository) FindActive(ctx context.Context, tenantID uuid.UUID) ([]*automation.Rule, error) {
	return r.find(r.db.WithContext(ctx).Where("tenant_id = ? AND active = ?", tenantID, true))
}

func (r *GormRuleRepository) find(query *gorm.DB) ([]*automation.Rule, error) {
	var ruleModels []models.AutomationRuleModel
	if err := query.Order("priority ASC, created_at ASC").Find(&ruleModels).Error; err != nil {
		return nil, err
	}
	rules := make([]*automation.Rule, len(ruleModels))
	for i := range ruleModels {
		rules[i] = ruleModels[i].ToDomain()
	}
	return rules, nil
}

// Save creates or updates a rule
func (r *GormRuleRepository) Save(ctx context.Context, rule *automation.Rule) error {
	model := models.AutomationRuleModelFromDomain(rule)
	return saveVersioned(ctx, r.db, model, rule)
}

// DeleteForTenant deletes a rule within a tenant
func (r *GormRuleRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	result := conn(ctx, r.db).Delete(&models.AutomationRuleModel{}, "tenant_id = ? AND id = ?", tenantID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormRuleRepository implements RuleRepository
var _ automation.RuleRepository = (*GormRuleRepository)(nil)
