package notification

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/shared"
)

// Type classifies a notification
type Type string

const (
	TypeInvoiceOverdue      Type = "invoice_overdue"
	TypeInvoicePaid         Type = "invoice_paid"
	TypeRecurringExecuted   Type = "recurring_executed"
	TypeImportCompleted     Type = "import_completed"
	TypeReferralConverted   Type = "referral_converted"
	TypeSubscriptionChanged Type = "subscription_changed"
	TypePaymentFailed       Type = "payment_failed"
	TypeSystem              Type = "system"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeInvoiceOverdue, TypeInvoicePaid, TypeRecurringExecuted, TypeImportCompleted,
		TypeReferralConverted, TypeSubscriptionChanged, TypePaymentFailed, TypeSystem:
		return true
	}
	return false
}

// Notification is an in-app message to the users of a company
type Notification struct {
	shared.TenantAggregateRoot
	// UserID addresses a single user; nil addresses everyone in the company
	UserID  *uuid.UUID
	Type    Type
	Title   string
	Message string
	Link    string
	Read    bool
	ReadAt  *time.Time
	Emailed bool
}

// NewNotification creates an unread notification
func NewNotification(tenantID uuid.UUID, typ Type, title, message, link string) (*Notification, error) {
	if !typ.IsValid() {
		return nil, shared.NewDomainError("INVALID_TYPE", "Unknown notification type")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, shared.NewDomainError("INVALID_TITLE", "Title cannot be empty")
	}
	return &Notification{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Type:                typ,
		Title:               title,
		Message:             strings.TrimSpace(message),
		Link:                link,
	}, nil
}

// VisibleTo reports whether the user may see the notification
func (n *Notification) VisibleTo(userID uuid.UUID) bool {
	return n.UserID == nil || *n.UserID == userID
}

// MarkRead flags the notification as read; repeated calls keep the first time
func (n *Notification) MarkRead(at time.Time) {
	if n.Read {
		return
	}
	n.Read = true
	n.ReadAt = &at
	n.Touch()
}

// MarkEmailed records the email delivery
func (n *Notification) MarkEmailed() {
	n.Emailed = true
}
