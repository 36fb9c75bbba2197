package banking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kontor/backend/internal/domain/banking"
	csvimport "github.com/kontor/backend/internal/infrastructure/import"
)

// BankAccountRequest creates a manual or csv account
type BankAccountRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=100"`
	IBAN     string `json:"iban" binding:"required,max=42"`
	BIC      string `json:"bic" binding:"max=11"`
	BankName string `json:"bank_name" binding:"max=100"`
	Provider string `json:"provider" binding:"omitempty,oneof=manual csv"`
}

// UpdateBankAccountRequest edits the master data of an account
type UpdateBankAccountRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=100"`
	IBAN     string `json:"iban" binding:"required,max=42"`
	BIC      string `json:"bic" binding:"max=11"`
	BankName string `json:"bank_name" binding:"max=100"`
}

// LinkFinAPIRequest starts a bank connection import
type LinkFinAPIRequest struct {
	BankName string `json:"bank_name" binding:"max=100"`
}

// LinkFinAPIResponse is the hosted web form the user completes
type LinkFinAPIResponse struct {
	WebFormID int64  `json:"web_form_id"`
	URL       string `json:"url"`
}

// CompleteFinAPIRequest finishes a bank connection import
type CompleteFinAPIRequest struct {
	WebFormID int64 `json:"web_form_id" binding:"required,min=1"`
}

// ImportResult summarises a statement import
type ImportResult struct {
	Format      string               `json:"format"`
	Encoding    string               `json:"encoding,omitempty"`
	TotalRows   int                  `json:"total_rows"`
	Imported    int                  `json:"imported"`
	Duplicates  int                  `json:"duplicates"`
	Failed      int                  `json:"failed"`
	Skipped     int                  `json:"skipped"`
	Categorized int                  `json:"categorized"`
	Errors      []csvimport.RowError `json:"errors"`
	Balance     decimal.Decimal      `json:"balance"`
}

// SyncResult is the outcome of syncing one account
type SyncResult struct {
	BankAccountID uuid.UUID       `json:"bank_account_id"`
	Name          string          `json:"name"`
	Fetched       int             `json:"fetched"`
	Imported      int             `json:"imported"`
	Duplicates    int             `json:"duplicates"`
	Balance       decimal.Decimal `json:"balance"`
	Error         string          `json:"error,omitempty"`
}

// SyncAllResponse is the outcome of syncing every linked account
type SyncAllResponse struct {
	Synced   int          `json:"synced"`
	Failed   int          `json:"failed"`
	Accounts []SyncResult `json:"accounts"`
}

// BankAccountResponse represents a bank account in API responses
type BankAccountResponse struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	IBAN         string          `json:"iban"`
	BIC          string          `json:"bic"`
	BankName     string          `json:"bank_name"`
	Provider     string          `json:"provider"`
	Linked       bool            `json:"linked"`
	Balance      decimal.Decimal `json:"balance"`
	BalanceDate  *time.Time      `json:"balance_date,omitempty"`
	LastSyncedAt *time.Time      `json:"last_synced_at,omitempty"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ToBankAccountResponse converts a domain BankAccount
func ToBankAccountResponse(a *banking.BankAccount) BankAccountResponse {
	return BankAccountResponse{
		ID:           a.ID,
		Name:         a.Name,
		IBAN:         a.IBAN,
		BIC:          a.BIC,
		BankName:     a.BankName,
		Provider:     string(a.Provider),
		Linked:       a.FinAPIAccountID != nil,
		Balance:      a.Balance,
		BalanceDate:  a.BalanceDate,
		LastSyncedAt: a.LastSyncedAt,
		Status:       string(a.Status),
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

// ToBankAccountResponses converts a slice of domain BankAccounts
func ToBankAccountResponses(accounts []*banking.BankAccount) []BankAccountResponse {
	out := make([]BankAccountResponse, len(accounts))
	for i, a := range accounts {
		out[i] = ToBankAccountResponse(a)
	}
	return out
}
