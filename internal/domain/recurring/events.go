package recurring

import (
	"time"

	"github.com/kontor/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const EventTypeRecurringExecuted = "RecurringExecuted"

// RecurringExecutedEvent is raised when occurrences were turned into transactions
type RecurringExecutedEvent struct {
	shared.BaseDomainEvent
	Name        string          `json:"name"`
	Amount      decimal.Decimal `json:"amount"`
	Occurrences []time.Time     `json:"occurrences"`
}

// NewRecurringExecutedEvent creates a RecurringExecutedEvent
func NewRecurringExecutedEvent(r *RecurringTransaction, occurrences []time.Time) *RecurringExecutedEvent {
	return &RecurringExecutedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRecurringExecuted, "RecurringTransaction", r.ID, r.TenantID),
		Name:            r.Name,
		Amount:          r.Amount,
		Occurrences:     occurrences,
	}
}
