package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/contact"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormContactRepository implements ContactRepository using GORM
type GormContactRepository struct {
	db *gorm.DB
}

// NewGormContactRepository creates a new GormContactRepository
func NewGormContactRepository(db *gorm.DB) *GormContactRepository {
	return &GormContactRepository{db: db}
}

// FindByIDForTenant finds a contact by ID within a tenant
func (r *GormContactRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*contact.Contact, error) {
	var model models.ContactModel
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

// FindAllForTenant lists contacts of a tenant with the total count
func (r *GormContactRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter contact.ContactFilter) ([]*contact.Contact, int64, error) {
	var total int64
	if err := r.filtered(ctx, tenantID, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var contactModels []models.ContactModel
	query := applySortAndPage(r.filtered(ctx, tenantID, filter), filter.Filter, ContactSortFields, "name")
	if err := query.Find(&contactModels).Error; err != nil {
		return nil, 0, err
	}

	contacts := make([]*contact.Contact, len(contactModels))
	for i := range contactModels {
		contacts[i] = contactModels[i].ToDomain()
	}
	return contacts, total, nil
}

func (r *GormContactRepository) filtered(ctx context.Context, tenantID uuid.UUID, filter contact.ContactFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.ContactModel{}).Where("tenant_id = ?", tenantID)

	if filter.Search != "" {
		pattern := searchPattern(filter.Search)
		query = query.Where("(LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(customer_number) LIKE ?)",
			pattern, pattern, pattern)
	}

	if filter.Type != nil {
		switch *filter.Type {
		case contact.TypeCustomer, contact.TypeSupplier:
			// "both" contacts show up under either side
			query = query.Where("type IN ?", []contact.ContactType{*filter.Type, contact.TypeBoth})
		default:
			query = query.Where("type = ?", *filter.Type)
		}
	}

	archived := false
	if filter.Archived != nil {
		archived = *filter.Archived
	}
	return query.Where("archived = ?", archived)
}

// NextCustomerSequence returns the next customer number sequence of the tenant
func (r *GormContactRepository) NextCustomerSequence(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	return nextSequence(ctx, r.db, tenantID, "customer")
}

// IsReferenced reports whether invoices point at the contact
func (r *GormContactRepository) IsReferenced(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("tenant_id = ? AND contact_id = ?", tenantID, id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a contact
func (r *GormContactRepository) Save(ctx context.Context, c *contact.Contact) error {
	model := models.ContactModelFromDomain(c)
	return saveVersioned(ctx, r.db, model, c)
}

// DeleteForTenant deletes a contact within a tenant
func (r *GormContactRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	result := conn(ctx, r.db).Delete(&models.ContactModel{}, "tenant_id = ? AND id = ?", tenantID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormContactRepository implements ContactRepository
var _ contact.ContactRepository = (*GormContactRepository)(nil)
