package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/company"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCompanyRepository implements CompanyRepository using GORM
type GormCompanyRepository struct {
	db *gorm.DB
}

// NewGormCompanyRepository creates a new GormCompanyRepository
func NewGormCompanyRepository(db *gorm.DB) *GormCompanyRepository {
	return &GormCompanyRepository{db: db}
}

// FindByID finds a company by its ID
func (r *GormCompanyRepository) FindByID(ctx context.Context, id uuid.UUID) (*company.Company, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByReferralCode finds the company owning a referral code
func (r *GormCompanyRepository) FindByReferralCode(ctx context.Context, code string) (*company.Company, error) {
	return r.findOne(ctx, "referral_code = ?", code)
}

// FindByStripeCustomerID finds the company billed under a Stripe customer
func (r *GormCompanyRepository) FindByStripeCustomerID(ctx context.Context, customerID string) (*company.Company, error) {
	if customerID == "" {
		return nil, shared.ErrNotFound
	}
	return r.findOne(ctx, "stripe_customer_id = ?", customerID)
}

func (r *GormCompanyRepository) findOne(ctx context.Context, cond string, arg any) (*company.Company, error) {
	var model models.CompanyModel
	if err := r.db.WithContext(ctx).Where(cond, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ExistsByReferralCode checks whether a referral code is taken
func (r *GormCompanyRepository) ExistsByReferralCode(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.CompanyModel{}).
		Where("referral_code = ?", code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindAllActiveIDs returns the IDs of all companies
func (r *GormCompanyRepository) FindAllActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.CompanyModel{}).
		Order("created_at ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Save creates or updates a company
func (r *GormCompanyRepository) Save(ctx context.Context, c *company.Company) error {
	model := models.CompanyModelFromDomain(c)
	return saveVersioned(ctx, r.db, model, c)
}

// Ensure GormCompanyRepository implements CompanyRepository
var _ company.CompanyRepository = (*GormCompanyRepository)(nil)
