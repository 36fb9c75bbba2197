package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/banking"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormBankAccountRepository implements BankAccountRepository using GORM
type GormBankAccountRepository struct {
	db *gorm.DB
}

// NewGormBankAccountRepository creates a new GormBankAccountRepository
func NewGormBankAccountRepository(db *gorm.DB) *GormBankAccountRepository {
	return &GormBankAccountRepository{db: db}
}

// FindByIDForTenant finds a bank account by ID within a tenant
func (r *GormBankAccountRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*banking.BankAccount, error) {
	var model models.BankAccountModel
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

// FindAllForTenant lists bank accounts; archived ones only when includeArchived
func (r *GormBankAccountRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, includeArchived bool) ([]*banking.BankAccount, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if !includeArchived {
		query = query.Where("status <> ?", banking.StatusArchived)
	}
	var accountModels []models.BankAccountModel
	if err := query.Order("name ASC").Find(&accountModels).Error; err != nil {
		return nil, err
	}
	return toBankAccounts(accountModels), nil
}

// FindByFinAPIAccount finds the account mirroring a FinAPI account
func (r *GormBankAccountRepository) FindByFinAPIAccount(ctx context.Context, tenantID uuid.UUID, finapiAccountID int64) (*banking.BankAccount, error) {
	var model models.BankAccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND finapi_account_id = ?", tenantID, finapiAccountID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindFinAPIAccounts lists active accounts linked through FinAPI
func (r *GormBankAccountRepository) FindFinAPIAccounts(ctx context.Context, tenantID uuid.UUID) ([]*banking.BankAccount, error) {
	var accountModels []models.BankAccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND provider = ? AND status = ?", tenantID, banking.ProviderFinAPI, banking.StatusActive).
		Order("name ASC").
		Find(&accountModels).Error; err != nil {
		return nil, err
	}
	return toBankAccounts(accountModels), nil
}

// CountActive counts accounts that are not archived
func (r *GormBankAccountRepository) CountActive(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.BankAccountModel{}).
		Where("tenant_id = ? AND status <> ?", tenantID, banking.StatusArchived).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// TotalBalance sums the balance of all accounts that are not archived
func (r *GormBankAccountRepository) TotalBalance(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.BankAccountModel{}).
		Select("COALESCE(SUM(balance), 0) AS total").
		Where("tenant_id = ? AND status <> ?", tenantID, banking.StatusArchived).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// Save creates or updates a bank account
func (r *GormBankAccountRepository) Save(ctx context.Context, a *banking.BankAccount) error {
	model := models.BankAccountModelFromDomain(a)
	return saveVersioned(ctx, r.db, model, a)
}

func toBankAccounts(accountModels []models.BankAccountModel) []*banking.BankAccount {
	accounts := make([]*banking.BankAccount, len(accountModels))
	for i := range accountModels {
		accounts[i] = accountModels[i].ToDomain()
	}
	return accounts
}

// GormFinAPILinkRepository implements FinAPILinkRepository using GORM
type GormFinAPILinkRepository struct {
	db *gorm.DB
}

// NewGormFinAPILinkRepository creates a new GormFinAPILinkRepository
func NewGormFinAPILinkRepository(db *gorm.DB) *GormFinAPILinkRepository {
	return &GormFinAPILinkRepository{db: db}
}

// SavePending stores a web form awaiting completion
func (r *GormFinAPILinkRepository) SavePending(ctx context.Context, link banking.FinAPILink) error {
	model := &models.FinAPILinkModel{
		TenantID:  link.TenantID,
		WebFormID: link.WebFormID,
		URL:       link.URL,
		CreatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).Save(model).Error
}

// FindPending finds a pending web form of the tenant
func (r *GormFinAPILinkRepository) FindPending(ctx context.Context, tenantID uuid.UUID, webFormID int64) (*banking.FinAPILink, error) {
	var model models.FinAPILinkModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND web_form_id = ?", tenantID, webFormID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// DeletePending removes a completed web form
func (r *GormFinAPILinkRepository) DeletePending(ctx context.Context, tenantID uuid.UUID, webFormID int64) error {
	return r.db.WithContext(ctx).
		Delete(&models.FinAPILinkModel{}, "tenant_id = ? AND web_form_id = ?", tenantID, webFormID).Error
}

// Ensure the GORM repositories implement the banking interfaces
var (
	_ banking.BankAccountRepository = (*GormBankAccountRepository)(nil)
	_ banking.FinAPILinkRepository  = (*GormFinAPILinkRepository)(nil)
)
