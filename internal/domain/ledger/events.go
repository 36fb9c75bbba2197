package ledger

import (
	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const EventTypeTransactionBooked = "TransactionBooked"

// TransactionBookedEvent is raised when a transaction is booked for the first time
type TransactionBookedEvent struct {
	shared.BaseDomainEvent
	Amount       decimal.Decimal `json:"amount"`
	CategoryCode string          `json:"category_code"`
	InvoiceID    *uuid.UUID      `json:"invoice_id,omitempty"`
}

// NewTransactionBookedEvent creates a TransactionBookedEvent
func NewTransactionBookedEvent(t *Transaction) *TransactionBookedEvent {
	return &TransactionBookedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionBooked, "Transaction", t.ID, t.TenantID),
		Amount:          t.Amount,
		CategoryCode:    t.CategoryCode,
		InvoiceID:       t.InvoiceID,
	}
}
