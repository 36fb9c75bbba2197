package notification

import (
	"time"

	"github.com/google/uuid"

	"github.com/kontor/backend/internal/domain/notification"
)

// ListFilter represents filter options for the notification list
type ListFilter struct {
	UnreadOnly bool `form:"unread"`
	Page       int  `form:"page" binding:"omitempty,min=1"`
	PageSize   int  `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// NotificationResponse represents a notification in API responses
type NotificationResponse struct {
	ID        uuid.UUID  `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Link      string     `json:"link,omitempty"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	Emailed   bool       `json:"emailed"`
	CreatedAt time.Time  `json:"created_at"`
}

// ToNotificationResponse converts a domain Notification
func ToNotificationResponse(n *notification.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Link:      n.Link,
		Read:      n.Read,
		ReadAt:    n.ReadAt,
		Emailed:   n.Emailed,
		CreatedAt: n.CreatedAt,
	}
}
