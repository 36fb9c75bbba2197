package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kontor/backend/internal/domain/ledger"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
)

const dateLayout = "2006-01-02"

// TransactionRequest is the body of create and update requests
type TransactionRequest struct {
	BankAccountID    *uuid.UUID      `json:"bank_account_id"`
	BookingDate      string          `json:"booking_date" binding:"required,datetime=2006-01-02"`
	ValueDate        string          `json:"value_date" binding:"omitempty,datetime=2006-01-02"`
	Amount           decimal.Decimal `json:"amount" binding:"required"`
	Currency         string          `json:"currency" binding:"omitempty,len=3"`
	Counterparty     string          `json:"counterparty" binding:"max=200"`
	CounterpartyIBAN string          `json:"counterparty_iban" binding:"max=42"`
	Purpose          string          `json:"purpose" binding:"max=500"`
	Notes            string          `json:"notes" binding:"max=2000"`
}

// BookRequest categorises a transaction
type BookRequest struct {
	CategoryCode string     `json:"category_code" binding:"required,max=50"`
	VATRate      *int       `json:"vat_rate" binding:"omitempty,oneof=0 7 19"`
	ContactID    *uuid.UUID `json:"contact_id"`
	InvoiceID    *uuid.UUID `json:"invoice_id"`
	ReceiptID    *uuid.UUID `json:"receipt_id"`
}

// ListFilter represents filter options for the transaction list
type ListFilter struct {
	Status        string     `form:"status" binding:"omitempty,oneof=unbooked booked ignored"`
	BankAccountID *uuid.UUID `form:"bank_account_id"`
	CategoryCode  string     `form:"category_code"`
	Sign          string     `form:"sign" binding:"omitempty,oneof=income expense"`
	From          string     `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To            string     `form:"to" binding:"omitempty,datetime=2006-01-02"`
	Search        string     `form:"search"`
	Page          int        `form:"page" binding:"omitempty,min=1"`
	PageSize      int        `form:"page_size" binding:"omitempty,min=1,max=200"`
	OrderBy       string     `form:"order_by" binding:"omitempty,oneof=booking_date amount counterparty created_at"`
	OrderDir      string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// TransactionResponse represents a transaction in API responses
type TransactionResponse struct {
	ID               uuid.UUID            `json:"id"`
	BankAccountID    *uuid.UUID           `json:"bank_account_id,omitempty"`
	BookingDate      time.Time            `json:"booking_date"`
	ValueDate        *time.Time           `json:"value_date,omitempty"`
	Amount           decimal.Decimal      `json:"amount"`
	Currency         string               `json:"currency"`
	Counterparty     string               `json:"counterparty"`
	CounterpartyIBAN string               `json:"counterparty_iban"`
	Purpose          string               `json:"purpose"`
	CategoryCode     string               `json:"category_code"`
	AccountNumber    string               `json:"account_number"`
	VATRate          *valueobject.VATRate `json:"vat_rate,omitempty"`
	NetAmount        *decimal.Decimal     `json:"net_amount,omitempty"`
	VATAmount        *decimal.Decimal     `json:"vat_amount,omitempty"`
	Status           string               `json:"status"`
	ContactID        *uuid.UUID           `json:"contact_id,omitempty"`
	InvoiceID        *uuid.UUID           `json:"invoice_id,omitempty"`
	ReceiptID        *uuid.UUID           `json:"receipt_id,omitempty"`
	Source           string               `json:"source"`
	RecurringID      *uuid.UUID           `json:"recurring_id,omitempty"`
	Notes            string               `json:"notes"`
	BookedAt         *time.Time           `json:"booked_at,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// CategoryResponse is a booking category with the account of the company chart
type CategoryResponse struct {
	ledger.Category
	Account string `json:"account"`
}

// ToTransactionResponse converts a domain Transaction
func ToTransactionResponse(t *ledger.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:               t.ID,
		BankAccountID:    t.BankAccountID,
		BookingDate:      t.BookingDate,
		ValueDate:        t.ValueDate,
		Amount:           t.Amount,
		Currency:         string(t.Currency),
		Counterparty:     t.Counterparty,
		CounterpartyIBAN: t.CounterpartyIBAN,
		Purpose:          t.Purpose,
		CategoryCode:     t.CategoryCode,
		AccountNumber:    t.AccountNumber,
		VATRate:          t.VATRate,
		Status:           string(t.Status),
		ContactID:        t.ContactID,
		InvoiceID:        t.InvoiceID,
		ReceiptID:        t.ReceiptID,
		Source:           string(t.Source),
		RecurringID:      t.RecurringID,
		Notes:            t.Notes,
		BookedAt:         t.BookedAt,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
	if t.VATRate != nil {
		net, tax := t.NetAndTax()
		resp.NetAmount, resp.VATAmount = &net, &tax
	}
	return resp
}

// ToTransactionResponses converts a slice of domain Transactions
func ToTransactionResponses(txs []*ledger.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, len(txs))
	for i, t := range txs {
		out[i] = ToTransactionResponse(t)
	}
	return out
}

func parseDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, shared.NewDomainErrorWithCause("INVALID_DATE", field+" must be formatted as YYYY-MM-DD", err)
	}
	return &t, nil
}

func toEntry(req TransactionRequest) (ledger.Entry, error) {
	booking, err := parseDate("booking_date", req.BookingDate)
	if err != nil {
		return ledger.Entry{}, err
	}
	if booking == nil {
		return ledger.Entry{}, shared.NewDomainError("INVALID_DATE", "booking_date is required")
	}
	value, err := parseDate("value_date", req.ValueDate)
	if err != nil {
		return ledger.Entry{}, err
	}
	return ledger.Entry{
		BankAccountID:    req.BankAccountID,
		BookingDate:      *booking,
		ValueDate:        value,
		Amount:           req.Amount,
		Currency:         valueobject.Currency(req.Currency),
		Counterparty:     req.Counterparty,
		CounterpartyIBAN: req.CounterpartyIBAN,
		Purpose:          req.Purpose,
		Notes:            req.Notes,
	}, nil
}
