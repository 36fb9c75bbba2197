package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/referral"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormReferralRepository implements ReferralRepository using GORM
type GormReferralRepository struct {
	db *gorm.DB
}

// NewGormReferralRepository creates a new GormReferralRepository
func NewGormReferralRepository(db *gorm.DB) *GormReferralRepository {
	return &GormReferralRepository{db: db}
}

// FindByReferredTenant finds the referral that brought in a company
func (r *GormReferralRepository) FindByReferredTenant(ctx context.Context, referredID uuid.UUID) (*referral.Referral, error) {
	var model models.ReferralModel
	if err := r.db.WithContext(ctx).
		Where("referred_tenant_id = ?", referredID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists the referrals a company made, newest first
func (r *GormReferralRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]*referral.Referral, error) {
	var refModels []models.ReferralModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&refModels).Error; err != nil {
		return nil, err
	}
	refs := make([]*referral.Referral, len(refModels))
	for i := range refModels {
		refs[i] = refModels[i].ToDomain()
	}
	return refs, nil
}

// Save creates or updates a referral
func (r *GormReferralRepository) Save(ctx context.Context, ref *referral.Referral) error {
	model := models.ReferralModelFromDomain(ref)
	return saveVersioned(ctx, r.db, model, ref)
}

// Ensure GormReferralRepository implements ReferralRepository
var _ referral.ReferralRepository = (*GormReferralRepository)(nil)
