package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/shared"
)

// NotificationFilter narrows listings
type NotificationFilter struct {
	shared.Filter
	UserID     *uuid.UUID
	UnreadOnly bool
}

// NotificationRepository persists notifications
type NotificationRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Notification, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter NotificationFilter) ([]*Notification, int64, error)

	// CountUnread counts unread notifications visible to userID
	CountUnread(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID) (int64, error)

	// MarkAllRead marks every unread notification visible to userID as read
	MarkAllRead(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID, at time.Time) (int64, error)

	Save(ctx context.Context, n *Notification) error
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error
}
