package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/notification"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormNotificationRepository implements NotificationRepository using GORM
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository creates a new GormNotificationRepository
func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

// FindByIDForTenant finds a notification by ID within a tenant
func (r *GormNotificationRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*notification.Notification, error) {
	var model models.NotificationModel
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

// FindAllForTenant lists notifications visible to the filter's user, newest first
func (r *GormNotificationRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter notification.NotificationFilter) ([]*notification.Notification, int64, error) {
	var total int64
	if err := r.filtered(ctx, tenantID, filter.UserID, filter.UnreadOnly).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var nModels []models.NotificationModel
	query := applySortAndPage(r.filtered(ctx, tenantID, filter.UserID, filter.UnreadOnly), filter.Filter, NotificationSortFields, "created_at")
	if err := query.Find(&nModels).Error; err != nil {
		return nil, 0, err
	}
	items := make([]*notification.Notification, len(nModels))
	for i := range nModels {
		items[i] = nModels[i].ToDomain()
	}
	return items, total, nil
}

// filtered scopes to the tenant; with a user, company-wide notifications are included
func (r *GormNotificationRepository) filtered(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID, unreadOnly bool) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.NotificationModel{}).Where("tenant_id = ?", tenantID)
	if userID != nil {
		query = query.Where("(user_id IS NULL OR user_id = ?)", *userID)
	}
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	return query
}

// CountUnread counts unread notifications visible to userID
func (r *GormNotificationRepository) CountUnread(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID) (int64, error) {
	var count int64
	if err := r.filtered(ctx, tenantID, userID, true).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// MarkAllRead marks every unread notification visible to userID as read
func (r *GormNotificationRepository) MarkAllRead(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID, at time.Time) (int64, error) {
	result := r.filtered(ctx, tenantID, userID, true).Updates(map[string]any{
		"is_read":    true,
		"read_at":    at,
		"updated_at": at,
	})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Save creates or updates a notification
func (r *GormNotificationRepository) Save(ctx context.Context, n *notification.Notification) error {
	model := models.NotificationModelFromDomain(n)
	return saveVersioned(ctx, r.db, model, n)
}

// DeleteForTenant deletes a notification within a tenant
func (r *GormNotificationRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	result := conn(ctx, r.db).Delete(&models.NotificationModel{}, "tenant_id = ? AND id = ?", tenantID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormNotificationRepository implements NotificationRepository
var _ notification.NotificationRepository = (*GormNotificationRepository)(nil)
