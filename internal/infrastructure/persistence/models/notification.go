package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/notification"
)

// NotificationModel is the persistence model for a Notification
type NotificationModel struct {
	TenantAggregateModel
	UserID  *uuid.UUID        `gorm:"type:uuid;index"`
	Type    notification.Type `gorm:"type:varchar(30);not null"`
	Title   string            `gorm:"type:varchar(200);not null"`
	Message string            `gorm:"type:text"`
	Link    string            `gorm:"type:varchar(500)"`
	Read    bool              `gorm:"column:is_read;not null;default:false;index"`
	ReadAt  *time.Time
	Emailed bool `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (NotificationModel) TableName() string {
	return "notifications"
}

// ToDomain converts the persistence model to a domain Notification
func (m *NotificationModel) ToDomain() *notification.Notification {
	n := &notification.Notification{
		UserID:  m.UserID,
		Type:    m.Type,
		Title:   m.Title,
		Message: m.Message,
		Link:    m.Link,
		Read:    m.Read,
		ReadAt:  m.ReadAt,
		Emailed: m.Emailed,
	}
	m.PopulateTenantAggregateRoot(&n.TenantAggregateRoot)
	return n
}

// FromDomain populates the persistence model from a domain Notification
func (m *NotificationModel) FromDomain(n *notification.Notification) {
	m.FromDomainTenantAggregateRoot(n.TenantAggregateRoot)
	m.UserID = n.UserID
	m.Type = n.Type
	m.Title = n.Title
	m.Message = n.Message
	m.Link = n.Link
	m.Read = n.Read
	m.ReadAt = n.ReadAt
	m.Emailed = n.Emailed
}

// NotificationModelFromDomain creates a new persistence model from a domain Notification
func NotificationModelFromDomain(n *notification.Notification) *NotificationModel {
	m := &NotificationModel{}
	m.FromDomain(n)
	return m
}
