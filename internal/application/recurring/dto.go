package recurring

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	ledgerapp "github.com/kontor/backend/internal/application/ledger"
	"github.com/kontor/backend/internal/domain/recurring"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
)

const (
	dateLayout         = "2006-01-02"
	defaultPreviewSize = 6
	maxPreviewSize     = 36
)

// RecurringRequest is the body of create and update requests
type RecurringRequest struct {
	Name          string          `json:"name" binding:"required,min=1,max=100"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Counterparty  string          `json:"counterparty" binding:"max=200"`
	Purpose       string          `json:"purpose" binding:"max=500"`
	CategoryCode  string          `json:"category_code" binding:"max=50"`
	VATRate       *int            `json:"vat_rate" binding:"omitempty,oneof=0 7 19"`
	BankAccountID *uuid.UUID      `json:"bank_account_id"`
	ContactID     *uuid.UUID      `json:"contact_id"`
	Frequency     string          `json:"frequency" binding:"required,oneof=weekly biweekly monthly quarterly semi_annually yearly"`
	StartDate     string          `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate       string          `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
	AnchorDay     int             `json:"anchor_day" binding:"omitempty,min=1,max=31"`
}

// ListFilter represents filter options for the recurring list
type ListFilter struct {
	Active   *bool `form:"active"`
	Page     int   `form:"page" binding:"omitempty,min=1"`
	PageSize int   `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ExecuteRequest triggers execution up to a day; empty means today
type ExecuteRequest struct {
	AsOf string `json:"as_of" binding:"omitempty,datetime=2006-01-02"`
}

// ExecuteResponse lists the transactions created by an execution run
type ExecuteResponse struct {
	Executed     int                             `json:"executed"`
	Transactions []ledgerapp.TransactionResponse `json:"transactions"`
}

// PreviewResponse lists upcoming execution dates
type PreviewResponse struct {
	Dates []string `json:"dates"`
}

// RecurringResponse represents a recurring transaction in API responses
type RecurringResponse struct {
	ID             uuid.UUID            `json:"id"`
	Name           string               `json:"name"`
	Amount         decimal.Decimal      `json:"amount"`
	Counterparty   string               `json:"counterparty"`
	Purpose        string               `json:"purpose"`
	CategoryCode   string               `json:"category_code"`
	VATRate        *valueobject.VATRate `json:"vat_rate,omitempty"`
	BankAccountID  *uuid.UUID           `json:"bank_account_id,omitempty"`
	ContactID      *uuid.UUID           `json:"contact_id,omitempty"`
	Frequency      string               `json:"frequency"`
	StartDate      time.Time            `json:"start_date"`
	EndDate        *time.Time           `json:"end_date,omitempty"`
	AnchorDay      int                  `json:"anchor_day,omitempty"`
	NextExecution  *time.Time           `json:"next_execution,omitempty"`
	LastExecutedAt *time.Time           `json:"last_executed_at,omitempty"`
	ExecutionCount int                  `json:"execution_count"`
	Active         bool                 `json:"active"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// ToRecurringResponse converts a domain RecurringTransaction
func ToRecurringResponse(r *recurring.RecurringTransaction) RecurringResponse {
	return RecurringResponse{
		ID:             r.ID,
		Name:           r.Name,
		Amount:         r.Amount,
		Counterparty:   r.Counterparty,
		Purpose:        r.Purpose,
		CategoryCode:   r.CategoryCode,
		VATRate:        r.VATRate,
		BankAccountID:  r.BankAccountID,
		ContactID:      r.ContactID,
		Frequency:      string(r.Frequency),
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		AnchorDay:      r.AnchorDay,
		NextExecution:  r.NextExecution,
		LastExecutedAt: r.LastExecutedAt,
		ExecutionCount: r.ExecutionCount,
		Active:         r.Active,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
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

func toTemplate(req RecurringRequest) (recurring.Template, error) {
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return recurring.Template{}, err
	}
	if start == nil {
		return recurring.Template{}, shared.NewDomainError("INVALID_DATE", "start_date is required")
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		return recurring.Template{}, err
	}
	tpl := recurring.Template{
		Name:          req.Name,
		Amount:        req.Amount,
		Counterparty:  req.Counterparty,
		Purpose:       req.Purpose,
		CategoryCode:  req.CategoryCode,
		BankAccountID: req.BankAccountID,
		ContactID:     req.ContactID,
		Frequency:     recurring.Frequency(req.Frequency),
		StartDate:     *start,
		EndDate:       end,
		AnchorDay:     req.AnchorDay,
	}
	if req.VATRate != nil {
		rate := valueobject.VATRate(*req.VATRate)
		tpl.VATRate = &rate
	}
	return tpl, nil
}
