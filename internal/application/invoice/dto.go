package invoice

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kontor/backend/internal/domain/invoice"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
)

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

// LineItemRequest is one position of an invoice request
type LineItemRequest struct {
	Description     string          `json:"description" binding:"required,max=500"`
	Quantity        decimal.Decimal `json:"quantity" binding:"required"`
	Unit            string          `json:"unit" binding:"max=20"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	VATRate         int             `json:"vat_rate" binding:"oneof=0 7 19"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// InvoiceRequest is the body of create and update requests
type InvoiceRequest struct {
	ContactID          uuid.UUID         `json:"contact_id" binding:"required"`
	IssueDate          string            `json:"issue_date" binding:"omitempty,datetime=2006-01-02"`
	DueDate            string            `json:"due_date" binding:"required,datetime=2006-01-02"`
	ServicePeriodStart string            `json:"service_period_start" binding:"omitempty,datetime=2006-01-02"`
	ServicePeriodEnd   string            `json:"service_period_end" binding:"omitempty,datetime=2006-01-02"`
	Items              []LineItemRequest `json:"items" binding:"dive"`
	Notes              string            `json:"notes" binding:"max=2000"`
	PaymentTerms       string            `json:"payment_terms" binding:"max=500"`
	ReverseCharge      bool              `json:"reverse_charge"`
}

// MarkPaidRequest records a payment
type MarkPaidRequest struct {
	PaidAt        string     `json:"paid_at" binding:"omitempty,datetime=2006-01-02"`
	TransactionID *uuid.UUID `json:"transaction_id"`
}

// CancelRequest voids an invoice
type CancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// ListFilter represents filter options for the invoice list
type ListFilter struct {
	Status    string     `form:"status" binding:"omitempty,oneof=draft sent paid overdue cancelled"`
	ContactID *uuid.UUID `form:"contact_id"`
	From      string     `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To        string     `form:"to" binding:"omitempty,datetime=2006-01-02"`
	Search    string     `form:"search"`
	Page      int        `form:"page" binding:"omitempty,min=1"`
	PageSize  int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy   string     `form:"order_by" binding:"omitempty,oneof=number issue_date due_date gross_amount created_at"`
	OrderDir  string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// SweepResponse reports how many invoices became overdue
type SweepResponse struct {
	MarkedOverdue int `json:"marked_overdue"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID                   uuid.UUID          `json:"id"`
	Number               string             `json:"number"`
	ContactID            uuid.UUID          `json:"contact_id"`
	Status               string             `json:"status"`
	IssueDate            time.Time          `json:"issue_date"`
	DueDate              time.Time          `json:"due_date"`
	ServicePeriodStart   *time.Time         `json:"service_period_start,omitempty"`
	ServicePeriodEnd     *time.Time         `json:"service_period_end,omitempty"`
	Currency             string             `json:"currency"`
	Items                []invoice.LineItem `json:"items"`
	TaxGroups            []invoice.TaxGroup `json:"tax_groups"`
	Notes                string             `json:"notes"`
	PaymentTerms         string             `json:"payment_terms"`
	ReverseCharge        bool               `json:"reverse_charge"`
	SmallBusiness        bool               `json:"small_business"`
	NetAmount            decimal.Decimal    `json:"net_amount"`
	TaxAmount            decimal.Decimal    `json:"tax_amount"`
	GrossAmount          decimal.Decimal    `json:"gross_amount"`
	PaidAmount           decimal.Decimal    `json:"paid_amount"`
	OpenAmount           decimal.Decimal    `json:"open_amount"`
	PaidAt               *time.Time         `json:"paid_at,omitempty"`
	SentAt               *time.Time         `json:"sent_at,omitempty"`
	CancelledAt          *time.Time         `json:"cancelled_at,omitempty"`
	CancelReason         string             `json:"cancel_reason,omitempty"`
	PaymentTransactionID *uuid.UUID         `json:"payment_transaction_id,omitempty"`
	HasPDF               bool               `json:"has_pdf"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// ToInvoiceResponse converts a domain Invoice
func ToInvoiceResponse(i *invoice.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:                   i.ID,
		Number:               i.Number,
		ContactID:            i.ContactID,
		Status:               string(i.Status),
		IssueDate:            i.IssueDate,
		DueDate:              i.DueDate,
		ServicePeriodStart:   i.ServicePeriodStart,
		ServicePeriodEnd:     i.ServicePeriodEnd,
		Currency:             string(i.Currency),
		Items:                i.Items,
		TaxGroups:            i.Totals().Groups,
		Notes:                i.Notes,
		PaymentTerms:         i.PaymentTerms,
		ReverseCharge:        i.ReverseCharge,
		SmallBusiness:        i.SmallBusiness,
		NetAmount:            i.NetAmount,
		TaxAmount:            i.TaxAmount,
		GrossAmount:          i.GrossAmount,
		PaidAmount:           i.PaidAmount,
		OpenAmount:           i.OpenAmount(),
		PaidAt:               i.PaidAt,
		SentAt:               i.SentAt,
		CancelledAt:          i.CancelledAt,
		CancelReason:         i.CancelReason,
		PaymentTransactionID: i.PaymentTransactionID,
		HasPDF:               i.PDFKey != "",
		CreatedAt:            i.CreatedAt,
		UpdatedAt:            i.UpdatedAt,
	}
}

// ToInvoiceResponses converts a slice of invoices
func ToInvoiceResponses(invoices []*invoice.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, len(invoices))
	for i, inv := range invoices {
		out[i] = ToInvoiceResponse(inv)
	}
	return out
}

func parseDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return nil, shared.NewDomainErrorWithCause("INVALID_DATE", field+" must be formatted as YYYY-MM-DD", err)
	}
	return &t, nil
}

func toDraft(req InvoiceRequest, today time.Time) (invoice.Draft, error) {
	issue, err := parseDate("issue_date", req.IssueDate)
	if err != nil {
		return invoice.Draft{}, err
	}
	if issue == nil {
		d := shared.DateOnly(today)
		issue = &d
	}
	due, err := parseDate("due_date", req.DueDate)
	if err != nil {
		return invoice.Draft{}, err
	}
	start, err := parseDate("service_period_start", req.ServicePeriodStart)
	if err != nil {
		return invoice.Draft{}, err
	}
	end, err := parseDate("service_period_end", req.ServicePeriodEnd)
	if err != nil {
		return invoice.Draft{}, err
	}
	d := invoice.Draft{
		ContactID:          req.ContactID,
		IssueDate:          *issue,
		ServicePeriodStart: start,
		ServicePeriodEnd:   end,
		Notes:              req.Notes,
		PaymentTerms:       req.PaymentTerms,
		ReverseCharge:      req.ReverseCharge,
		Items:              make([]invoice.LineItemInput, 0, len(req.Items)),
	}
	if due != nil {
		d.DueDate = *due
	}
	for _, it := range req.Items {
		d.Items = append(d.Items, invoice.LineItemInput{
			Description:     it.Description,
			Quantity:        it.Quantity,
			Unit:            it.Unit,
			UnitPrice:       it.UnitPrice,
			VATRate:         valueobject.VATRate(it.VATRate),
			DiscountPercent: it.DiscountPercent,
		})
	}
	return d, nil
}
