package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kontor/backend/internal/domain/company"
	"github.com/kontor/backend/internal/domain/notification"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/infrastructure/email"
)

// Mailer delivers notification emails
type Mailer interface {
	Enabled() bool
	Send(ctx context.Context, msg email.Message) error
}

// NotifyInput describes a notification raised by another service
type NotifyInput struct {
	TenantID uuid.UUID
	UserID   *uuid.UUID
	Type     notification.Type
	Title    string
	Message  string
	Link     string
	// Email also sends the notification to the company address
	Email bool
}

// Service manages in-app notifications
type Service struct {
	repo      notification.NotificationRepository
	companies company.CompanyRepository
	mailer    Mailer
	publicURL string
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a notification Service. mailer may be nil.
func NewService(
	repo notification.NotificationRepository,
	companies company.CompanyRepository,
	mailer Mailer,
	publicURL string,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:      repo,
		companies: companies,
		mailer:    mailer,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger.Named("notification_service"),
		now:       time.Now,
	}
}

// Notify stores a notification and optionally emails it. Email failures are
// logged; the notification itself is kept.
func (s *Service) Notify(ctx context.Context, in NotifyInput) (*notification.Notification, error) {
	n, err := notification.NewNotification(in.TenantID, in.Type, in.Title, in.Message, in.Link)
	if err != nil {
		return nil, err
	}
	n.UserID = in.UserID
	if err := s.repo.Save(ctx, n); err != nil {
		return nil, fmt.Errorf("save notification: %w", err)
	}

	if !in.Email || s.mailer == nil || !s.mailer.Enabled() {
		return n, nil
	}
	if err := s.email(ctx, n); err != nil {
		s.logger.Warn("notification email failed",
			zap.String("tenant_id", in.TenantID.String()),
			zap.String("type", string(in.Type)),
			zap.Error(err),
		)
		return n, nil
	}
	n.MarkEmailed()
	if err := s.repo.Save(ctx, n); err != nil {
		s.logger.Warn("failed to flag notification as emailed", zap.Error(err))
	}
	return n, nil
}

func (s *Service) email(ctx context.Context, n *notification.Notification) error {
	c, err := s.companies.FindByID(ctx, n.TenantID)
	if err != nil {
		return fmt.Errorf("load company: %w", err)
	}
	text := n.Message
	if n.Link != "" {
		text += "\n\n" + s.publicURL + n.Link
	}
	return s.mailer.Send(ctx, email.Message{
		To:      c.Email,
		ToName:  c.Name,
		Subject: n.Title,
		Text:    text,
	})
}

// List returns the notifications visible to a user
func (s *Service) List(ctx context.Context, tenantID, userID uuid.UUID, filter ListFilter) ([]NotificationResponse, int64, error) {
	f := notification.NotificationFilter{
		Filter:     shared.DefaultFilter(),
		UserID:     &userID,
		UnreadOnly: filter.UnreadOnly,
	}
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	items, total, err := s.repo.FindAllForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, 0, err
	}
	out := make([]NotificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, ToNotificationResponse(n))
	}
	return out, total, nil
}

// UnreadCount counts unread notifications of a user
func (s *Service) UnreadCount(ctx context.Context, tenantID, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, tenantID, &userID)
}

// MarkRead flags one notification as read
func (s *Service) MarkRead(ctx context.Context, tenantID, userID, id uuid.UUID) (*NotificationResponse, error) {
	n, err := s.repo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !n.VisibleTo(userID) {
		return nil, shared.ErrNotFound
	}
	n.MarkRead(s.now())
	if err := s.repo.Save(ctx, n); err != nil {
		return nil, err
	}
	resp := ToNotificationResponse(n)
	return &resp, nil
}

// MarkAllRead flags every unread notification of a user and returns how many changed
func (s *Service) MarkAllRead(ctx context.Context, tenantID, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllRead(ctx, tenantID, &userID, s.now())
}

// Delete removes a notification
func (s *Service) Delete(ctx context.Context, tenantID, userID, id uuid.UUID) error {
	n, err := s.repo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if !n.VisibleTo(userID) {
		return shared.ErrNotFound
	}
	return s.repo.DeleteForTenant(ctx, tenantID, id)
}
