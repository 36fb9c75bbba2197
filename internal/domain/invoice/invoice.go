package invoice

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an invoice
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible
func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

// IsOpen reports whether payment is still expected
func (s Status) IsOpen() bool {
	return s == StatusSent || s == StatusOverdue
}

// FormatNumber renders an invoice number as {prefix}-{YYYY}-{0001}
func FormatNumber(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%04d-%04d", prefix, year, seq)
}

// Invoice is an outgoing invoice
type Invoice struct {
	shared.TenantAggregateRoot
	Number               string
	ContactID            uuid.UUID
	Status               Status
	IssueDate            time.Time
	DueDate              time.Time
	ServicePeriodStart   *time.Time
	ServicePeriodEnd     *time.Time
	Currency             valueobject.Currency
	Items                []LineItem
	Notes                string
	PaymentTerms         string
	ReverseCharge        bool
	SmallBusiness        bool
	NetAmount            decimal.Decimal
	TaxAmount            decimal.Decimal
	GrossAmount          decimal.Decimal
	PaidAmount           decimal.Decimal
	PaidAt               *time.Time
	SentAt               *time.Time
	CancelledAt          *time.Time
	CancelReason         string
	PaymentTransactionID *uuid.UUID
	PDFKey               string
}

// Draft carries the editable content of an invoice
type Draft struct {
	ContactID          uuid.UUID
	IssueDate          time.Time
	DueDate            time.Time
	ServicePeriodStart *time.Time
	ServicePeriodEnd   *time.Time
	Items              []LineItemInput
	Notes              string
	PaymentTerms       string
	ReverseCharge      bool
}

// NewInvoice creates a draft invoice. The number is allocated by the caller
// from the per-year sequence; smallBusiness is copied from the company.
func NewInvoice(tenantID uuid.UUID, number string, smallBusiness bool, d Draft) (*Invoice, error) {
	if strings.TrimSpace(number) == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Invoice number cannot be empty")
	}
	inv := &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Number:              number,
		Status:              StatusDraft,
		Currency:            valueobject.DefaultCurrency,
		SmallBusiness:       smallBusiness,
		PaidAmount:          decimal.Zero,
	}
	if err := inv.apply(d); err != nil {
		return nil, err
	}
	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))
	return inv, nil
}

// Update replaces the content of a draft
func (i *Invoice) Update(d Draft) error {
	if !i.CanEdit() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot edit invoice in %s status", i.Status))
	}
	if err := i.apply(d); err != nil {
		return err
	}
	i.Touch()
	return nil
}

func (i *Invoice) apply(d Draft) error {
	if d.ContactID == uuid.Nil {
		return shared.NewDomainError("INVALID_CONTACT", "Contact is required")
	}
	if d.IssueDate.IsZero() {
		return shared.NewDomainError("INVALID_ISSUE_DATE", "Issue date is required")
	}
	if d.DueDate.IsZero() {
		return shared.NewDomainError("INVALID_DUE_DATE", "Due date is required")
	}
	issue := shared.DateOnly(d.IssueDate)
	due := shared.DateOnly(d.DueDate)
	if due.Before(issue) {
		return shared.NewDomainError("INVALID_DUE_DATE", "Due date cannot be before the issue date")
	}
	var start, end *time.Time
	if d.ServicePeriodStart != nil {
		s := shared.DateOnly(*d.ServicePeriodStart)
		start = &s
	}
	if d.ServicePeriodEnd != nil {
		e := shared.DateOnly(*d.ServicePeriodEnd)
		end = &e
	}
	if start != nil && end != nil && end.Before(*start) {
		return shared.NewDomainError("INVALID_SERVICE_PERIOD", "Service period end cannot be before its start")
	}

	items := make([]LineItem, 0, len(d.Items))
	for idx, in := range d.Items {
		item, err := NewLineItem(idx+1, in)
		if err != nil {
			return err
		}
		items = append(items, item)
	}

	i.ContactID = d.ContactID
	i.IssueDate = issue
	i.DueDate = due
	i.ServicePeriodStart = start
	i.ServicePeriodEnd = end
	i.Items = items
	i.Notes = d.Notes
	i.PaymentTerms = d.PaymentTerms
	i.ReverseCharge = d.ReverseCharge
	i.recalculate()
	return nil
}

// ZeroVAT reports whether the invoice must not carry VAT
func (i *Invoice) ZeroVAT() bool {
	return i.SmallBusiness || i.ReverseCharge
}

func (i *Invoice) recalculate() {
	fillLineAmounts(i.Items, i.ZeroVAT())
	t := ComputeTotals(i.Items, i.ZeroVAT())
	i.NetAmount = t.Net
	i.TaxAmount = t.Tax
	i.GrossAmount = t.Gross
}

// Totals returns the per-rate breakdown
func (i *Invoice) Totals() Totals {
	return ComputeTotals(i.Items, i.ZeroVAT())
}

// OpenAmount is what is still owed
func (i *Invoice) OpenAmount() decimal.Decimal {
	if !i.Status.IsOpen() {
		return decimal.Zero
	}
	return i.GrossAmount.Sub(i.PaidAmount)
}

// CanEdit reports whether content may change
func (i *Invoice) CanEdit() bool {
	return i.Status == StatusDraft
}

// CanDelete reports whether the invoice may be removed
func (i *Invoice) CanDelete() bool {
	return i.Status == StatusDraft
}

// Send moves a draft to sent
func (i *Invoice) Send(at time.Time) error {
	if i.Status != StatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot send invoice in %s status", i.Status))
	}
	if len(i.Items) == 0 {
		return shared.NewDomainError("NO_LINE_ITEMS", "Invoice needs at least one line item")
	}
	i.Status = StatusSent
	i.SentAt = &at
	i.Touch()
	i.AddDomainEvent(NewInvoiceSentEvent(i))
	return nil
}

// SetPDFKey records where the rendered document is stored
func (i *Invoice) SetPDFKey(key string) {
	i.PDFKey = key
	i.Touch()
}

// MarkPaid settles a sent or overdue invoice in full
func (i *Invoice) MarkPaid(paidAt time.Time, transactionID *uuid.UUID) error {
	if !i.Status.IsOpen() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark invoice as paid in %s status", i.Status))
	}
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	i.Status = StatusPaid
	i.PaidAt = &paidAt
	i.PaidAmount = i.GrossAmount
	i.PaymentTransactionID = transactionID
	i.Touch()
	i.AddDomainEvent(NewInvoicePaidEvent(i))
	return nil
}

// IsOverdue reports whether a sent invoice is past its due date on day today
func (i *Invoice) IsOverdue(today time.Time) bool {
	return i.Status == StatusSent && i.DueDate.Before(shared.DateOnly(today))
}

// MarkOverdue flags a sent invoice whose due date has passed
func (i *Invoice) MarkOverdue(today time.Time) error {
	if i.Status != StatusSent {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark invoice as overdue in %s status", i.Status))
	}
	if !i.IsOverdue(today) {
		return shared.NewDomainError("NOT_OVERDUE", "Invoice is not past its due date")
	}
	i.Status = StatusOverdue
	i.Touch()
	i.AddDomainEvent(NewInvoiceOverdueEvent(i))
	return nil
}

// Cancel voids the invoice
func (i *Invoice) Cancel(reason string, at time.Time) error {
	if i.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel invoice in %s status", i.Status))
	}
	i.Status = StatusCancelled
	i.CancelledAt = &at
	i.CancelReason = strings.TrimSpace(reason)
	i.Touch()
	i.AddDomainEvent(NewInvoiceCancelledEvent(i))
	return nil
}

// DuplicateDraft returns the content for a copy issued today with the same
// payment window and items
func (i *Invoice) DuplicateDraft(today time.Time) Draft {
	today = shared.DateOnly(today)
	termDays := int(i.DueDate.Sub(i.IssueDate).Hours() / 24)
	items := make([]LineItemInput, 0, len(i.Items))
	for _, it := range i.Items {
		items = append(items, LineItemInput{
			Description:     it.Description,
			Quantity:        it.Quantity,
			Unit:            it.Unit,
			UnitPrice:       it.UnitPrice,
			VATRate:         it.VATRate,
			DiscountPercent: it.DiscountPercent,
		})
	}
	return Draft{
		ContactID:     i.ContactID,
		IssueDate:     today,
		DueDate:       today.AddDate(0, 0, termDays),
		Items:         items,
		Notes:         i.Notes,
		PaymentTerms:  i.PaymentTerms,
		ReverseCharge: i.ReverseCharge,
	}
}
