package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/company"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Status is the booking state of a transaction
type Status string

const (
	StatusUnbooked Status = "unbooked"
	StatusBooked   Status = "booked"
	StatusIgnored  Status = "ignored"
)

func (s Status) IsValid() bool {
	return s == StatusUnbooked || s == StatusBooked || s == StatusIgnored
}

// Source says how a transaction entered the ledger
type Source string

const (
	SourceManual    Source = "manual"
	SourceCSV       Source = "csv"
	SourceFinAPI    Source = "finapi"
	SourceRecurring Source = "recurring"
)

func (s Source) IsValid() bool {
	switch s {
	case SourceManual, SourceCSV, SourceFinAPI, SourceRecurring:
		return true
	}
	return false
}

// CanDelete reports whether transactions of this source may be removed;
// bank-sourced lines must stay to keep imports idempotent
func (s Source) CanDelete() bool {
	return s == SourceManual || s == SourceRecurring
}

// ImportHash fingerprints a bank line so re-imports can be skipped
func ImportHash(bookingDate time.Time, amount decimal.Decimal, counterparty, purpose, iban string) string {
	norm := func(s string) string {
		return strings.ToLower(strings.Join(strings.Fields(s), " "))
	}
	payload := strings.Join([]string{
		shared.DateOnly(bookingDate).Format("2006-01-02"),
		amount.StringFixed(2),
		norm(counterparty),
		norm(purpose),
		valueobject.NormalizeIBAN(iban),
	}, "|")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Transaction is a signed money movement; positive is income
type Transaction struct {
	shared.TenantAggregateRoot
	BankAccountID    *uuid.UUID
	BookingDate      time.Time
	ValueDate        *time.Time
	Amount           decimal.Decimal
	Currency         valueobject.Currency
	Counterparty     string
	CounterpartyIBAN string
	Purpose          string
	CategoryCode     string
	AccountNumber    string
	VATRate          *valueobject.VATRate
	Status           Status
	ContactID        *uuid.UUID
	InvoiceID        *uuid.UUID
	ReceiptID        *uuid.UUID
	Source           Source
	ImportHash       string
	RecurringID      *uuid.UUID
	Notes            string
	BookedAt         *time.Time
}

// Entry carries the caller-supplied fields of a transaction
type Entry struct {
	BankAccountID    *uuid.UUID
	BookingDate      time.Time
	ValueDate        *time.Time
	Amount           decimal.Decimal
	Currency         valueobject.Currency
	Counterparty     string
	CounterpartyIBAN string
	Purpose          string
	Notes            string
}

// NewTransaction creates an unbooked transaction
func NewTransaction(tenantID uuid.UUID, source Source, e Entry) (*Transaction, error) {
	if !source.IsValid() {
		return nil, shared.NewDomainError("INVALID_SOURCE", "Unknown transaction source")
	}
	tx := &Transaction{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Status:              StatusUnbooked,
		Source:              source,
	}
	if err := tx.apply(e); err != nil {
		return nil, err
	}
	if source == SourceCSV || source == SourceFinAPI {
		tx.ImportHash = ImportHash(tx.BookingDate, tx.Amount, tx.Counterparty, tx.Purpose, tx.CounterpartyIBAN)
	}
	return tx, nil
}

func (t *Transaction) apply(e Entry) error {
	if e.BookingDate.IsZero() {
		return shared.NewDomainError("INVALID_DATE", "Booking date is required")
	}
	amount := valueobject.RoundCents(e.Amount)
	if amount.IsZero() {
		return shared.NewDomainError("INVALID_AMOUNT", "Amount cannot be zero")
	}
	iban := ""
	if strings.TrimSpace(e.CounterpartyIBAN) != "" {
		iban = valueobject.NormalizeIBAN(e.CounterpartyIBAN)
	}
	currency := e.Currency
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}

	t.BankAccountID = e.BankAccountID
	t.BookingDate = shared.DateOnly(e.BookingDate)
	if e.ValueDate != nil {
		v := shared.DateOnly(*e.ValueDate)
		t.ValueDate = &v
	} else {
		t.ValueDate = nil
	}
	t.Amount = amount
	t.Currency = currency
	t.Counterparty = strings.TrimSpace(e.Counterparty)
	t.CounterpartyIBAN = iban
	t.Purpose = strings.TrimSpace(e.Purpose)
	t.Notes = e.Notes
	return nil
}

// Update edits a manual or recurring transaction that is not booked yet
func (t *Transaction) Update(e Entry) error {
	if t.Status == StatusBooked {
		return shared.NewDomainError("INVALID_STATE", "Unbook the transaction before editing it")
	}
	if t.Source == SourceCSV || t.Source == SourceFinAPI {
		// bank data is authoritative; only the note is editable
		t.Notes = e.Notes
		t.Touch()
		return nil
	}
	if err := t.apply(e); err != nil {
		return err
	}
	t.Touch()
	return nil
}

// IsIncome reports whether money came in
func (t *Transaction) IsIncome() bool {
	return t.Amount.IsPositive()
}

// Booking is the categorisation applied by Book
type Booking struct {
	CategoryCode string
	VATRate      *valueobject.VATRate
	ContactID    *uuid.UUID
	InvoiceID    *uuid.UUID
	ReceiptID    *uuid.UUID
}

// Categorize sets category and account without changing the status
func (t *Transaction) Categorize(code string, chart company.Chart, rate *valueobject.VATRate) error {
	cat, ok := CategoryByCode(code)
	if !ok {
		return shared.NewDomainError("INVALID_CATEGORY", fmt.Sprintf("Unknown category %q", code))
	}
	if !cat.Allows(t.IsIncome()) {
		return shared.NewDomainError("CATEGORY_MISMATCH", fmt.Sprintf("Category %s cannot book an amount of %s", cat.Code, t.Amount.StringFixed(2)))
	}
	if rate == nil {
		r := cat.DefaultVAT
		rate = &r
	}
	if !rate.IsValid() {
		return shared.NewDomainError("INVALID_VAT_RATE", "VAT rate must be 0, 7 or 19 percent")
	}
	t.CategoryCode = cat.Code
	t.AccountNumber = cat.Account(chart)
	t.VATRate = rate
	t.Touch()
	return nil
}

// Book categorises the transaction and marks it booked
func (t *Transaction) Book(b Booking, chart company.Chart, at time.Time) error {
	if t.Status == StatusIgnored {
		return shared.NewDomainError("INVALID_STATE", "Cannot book an ignored transaction")
	}
	if b.InvoiceID != nil && !t.IsIncome() {
		return shared.NewDomainError("INVALID_INVOICE_LINK", "Only incoming payments can settle an invoice")
	}
	if err := t.Categorize(b.CategoryCode, chart, b.VATRate); err != nil {
		return err
	}
	if b.ContactID != nil {
		t.ContactID = b.ContactID
	}
	if b.InvoiceID != nil {
		t.InvoiceID = b.InvoiceID
	}
	if b.ReceiptID != nil {
		t.ReceiptID = b.ReceiptID
	}
	wasBooked := t.Status == StatusBooked
	t.Status = StatusBooked
	t.BookedAt = &at
	if !wasBooked {
		t.AddDomainEvent(NewTransactionBookedEvent(t))
	}
	return nil
}

// Unbook returns a booked transaction to the inbox
func (t *Transaction) Unbook() error {
	if t.Status != StatusBooked {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot unbook transaction in %s status", t.Status))
	}
	t.Status = StatusUnbooked
	t.BookedAt = nil
	t.Touch()
	return nil
}

// Ignore excludes the transaction from bookkeeping
func (t *Transaction) Ignore() error {
	if t.Status == StatusBooked {
		return shared.NewDomainError("INVALID_STATE", "Unbook the transaction before ignoring it")
	}
	t.Status = StatusIgnored
	t.Touch()
	return nil
}

// SetContact links a contact
func (t *Transaction) SetContact(id uuid.UUID) {
	t.ContactID = &id
	t.Touch()
}

// SetNote replaces the note
func (t *Transaction) SetNote(note string) {
	t.Notes = note
	t.Touch()
}

// AttachReceipt links a receipt
func (t *Transaction) AttachReceipt(id uuid.UUID) {
	t.ReceiptID = &id
	t.Touch()
}

// NetAndTax splits the absolute amount by the VAT rate
func (t *Transaction) NetAndTax() (net, tax decimal.Decimal) {
	rate := valueobject.VATZero
	if t.VATRate != nil {
		rate = *t.VATRate
	}
	return rate.Split(t.Amount.Abs())
}
