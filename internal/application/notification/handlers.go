package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kontor/backend/internal/domain/company"
	"github.com/kontor/backend/internal/domain/invoice"
	"github.com/kontor/backend/internal/domain/notification"
	"github.com/kontor/backend/internal/domain/recurring"
	"github.com/kontor/backend/internal/domain/referral"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
)

// EventNotifier turns domain events into notifications
type EventNotifier struct {
	service *Service
	logger  *zap.Logger
}

// NewEventNotifier creates a handler for the events users are notified about
func NewEventNotifier(service *Service, logger *zap.Logger) *EventNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventNotifier{service: service, logger: logger.Named("event_notifier")}
}

// EventTypes returns the event types this handler is interested in
func (h *EventNotifier) EventTypes() []string {
	return []string{
		invoice.EventTypeInvoiceOverdue,
		invoice.EventTypeInvoicePaid,
		recurring.EventTypeRecurringExecuted,
		referral.EventTypeReferralConverted,
		company.EventTypeSubscriptionChanged,
	}
}

// Async keeps notification writes off the request path
func (h *EventNotifier) Async() bool { return true }

// Handle creates the notification for one event
func (h *EventNotifier) Handle(ctx context.Context, ev shared.DomainEvent) error {
	in, ok := h.inputFor(ev)
	if !ok {
		return fmt.Errorf("unexpected event type: %s", ev.EventType())
	}
	if _, err := h.service.Notify(ctx, in); err != nil {
		h.logger.Error("failed to create notification",
			zap.String("event_type", ev.EventType()),
			zap.String("tenant_id", ev.TenantID().String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (h *EventNotifier) inputFor(ev shared.DomainEvent) (NotifyInput, bool) {
	in := NotifyInput{TenantID: ev.TenantID()}
	switch e := ev.(type) {
	case *invoice.InvoiceOverdueEvent:
		in.Type = notification.TypeInvoiceOverdue
		in.Title = fmt.Sprintf("Rechnung %s ist überfällig", e.Number)
		in.Message = fmt.Sprintf("Die Rechnung über %s € war am %s fällig.",
			valueobject.FormatGerman(e.GrossAmount), e.DueDate.Format("02.01.2006"))
		in.Link = "/invoices/" + e.AggregateID().String()
		in.Email = true
	case *invoice.InvoicePaidEvent:
		in.Type = notification.TypeInvoicePaid
		in.Title = fmt.Sprintf("Rechnung %s wurde bezahlt", e.Number)
		in.Message = fmt.Sprintf("Zahlungseingang über %s €.", valueobject.FormatGerman(e.PaidAmount))
		in.Link = "/invoices/" + e.AggregateID().String()
	case *recurring.RecurringExecutedEvent:
		in.Type = notification.TypeRecurringExecuted
		in.Title = fmt.Sprintf("Wiederkehrende Buchung %q ausgeführt", e.Name)
		in.Message = fmt.Sprintf("%d Buchung(en) über je %s € angelegt.", len(e.Occurrences), valueobject.FormatGerman(e.Amount))
		in.Link = "/recurring/" + e.AggregateID().String()
	case *referral.ReferralConvertedEvent:
		in.Type = notification.TypeReferralConverted
		in.Title = "Ihre Empfehlung hat ein Abo abgeschlossen"
		in.Message = "Als Dankeschön erhalten Sie eine Gutschrift auf Ihre nächste Rechnung."
		in.Link = "/referrals"
		in.Email = true
	case *company.SubscriptionChangedEvent:
		in.Type = notification.TypeSubscriptionChanged
		in.Title = "Ihr Abonnement wurde geändert"
		in.Message = fmt.Sprintf("Tarif %s, Status %s.", e.Plan, e.Status)
		in.Link = "/settings/billing"
	default:
		return NotifyInput{}, false
	}
	return in, true
}
