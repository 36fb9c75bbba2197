package invoice

import (
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const (
	EventTypeInvoiceCreated   = "InvoiceCreated"
	EventTypeInvoiceSent      = "InvoiceSent"
	EventTypeInvoicePaid      = "InvoicePaid"
	EventTypeInvoiceOverdue   = "InvoiceOverdue"
	EventTypeInvoiceCancelled = "InvoiceCancelled"
	aggregateType             = "Invoice"
)

// InvoiceCreatedEvent is raised when a draft is created
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	Number      string          `json:"number"`
	ContactID   uuid.UUID       `json:"contact_id"`
	GrossAmount decimal.Decimal `json:"gross_amount"`
}

// NewInvoiceCreatedEvent creates an InvoiceCreatedEvent
func NewInvoiceCreatedEvent(i *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, aggregateType, i.ID, i.TenantID),
		Number:          i.Number,
		ContactID:       i.ContactID,
		GrossAmount:     i.GrossAmount,
	}
}

// InvoiceSentEvent is raised when an invoice leaves draft
type InvoiceSentEvent struct {
	shared.BaseDomainEvent
	Number      string          `json:"number"`
	GrossAmount decimal.Decimal `json:"gross_amount"`
	DueDate     time.Time       `json:"due_date"`
}

// NewInvoiceSentEvent creates an InvoiceSentEvent
func NewInvoiceSentEvent(i *Invoice) *InvoiceSentEvent {
	return &InvoiceSentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceSent, aggregateType, i.ID, i.TenantID),
		Number:          i.Number,
		GrossAmount:     i.GrossAmount,
		DueDate:         i.DueDate,
	}
}

// InvoicePaidEvent is raised when an invoice is settled
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	Number        string          `json:"number"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	TransactionID *uuid.UUID      `json:"transaction_id,omitempty"`
}

// NewInvoicePaidEvent creates an InvoicePaidEvent
func NewInvoicePaidEvent(i *Invoice) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePaid, aggregateType, i.ID, i.TenantID),
		Number:          i.Number,
		PaidAmount:      i.PaidAmount,
		TransactionID:   i.PaymentTransactionID,
	}
}

// InvoiceOverdueEvent is raised by the overdue sweep
type InvoiceOverdueEvent struct {
	shared.BaseDomainEvent
	Number      string          `json:"number"`
	GrossAmount decimal.Decimal `json:"gross_amount"`
	DueDate     time.Time       `json:"due_date"`
}

// NewInvoiceOverdueEvent creates an InvoiceOverdueEvent
func NewInvoiceOverdueEvent(i *Invoice) *InvoiceOverdueEvent {
	return &InvoiceOverdueEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceOverdue, aggregateType, i.ID, i.TenantID),
		Number:          i.Number,
		GrossAmount:     i.GrossAmount,
		DueDate:         i.DueDate,
	}
}

// InvoiceCancelledEvent is raised when an invoice is voided
type InvoiceCancelledEvent struct {
	shared.BaseDomainEvent
	Number string `json:"number"`
	Reason string `json:"reason"`
}

// NewInvoiceCancelledEvent creates an InvoiceCancelledEvent
func NewInvoiceCancelledEvent(i *Invoice) *InvoiceCancelledEvent {
	return &InvoiceCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCancelled, aggregateType, i.ID, i.TenantID),
		Number:          i.Number,
		Reason:          i.CancelReason,
	}
}
