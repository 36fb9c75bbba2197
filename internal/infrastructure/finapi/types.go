package finapi

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Errors returned by the client
var (
	ErrNotConfigured  = errors.New("finapi: client credentials are not configured")
	ErrUnauthorized   = errors.New("finapi: authentication failed")
	ErrNotFound       = errors.New("finapi: resource not found")
	ErrRequestFailed  = errors.New("finapi: request failed")
	ErrWebFormPending = errors.New("finapi: web form is not completed")
)

// WebFormStatus is the lifecycle state of a web form
type WebFormStatus string

const (
	WebFormNotYetOpened WebFormStatus = "NOT_YET_OPENED"
	WebFormInProgress   WebFormStatus = "IN_PROGRESS"
	WebFormCompleted    WebFormStatus = "COMPLETED"
	WebFormAborted      WebFormStatus = "ABORTED"
	WebFormExpired      WebFormStatus = "EXPIRED"
)

// WebForm is a hosted bank connection import flow
type WebForm struct {
	ID     int64         `json:"id"`
	URL    string        `json:"url"`
	Status WebFormStatus `json:"status"`
	Payload struct {
		BankConnectionID int64 `json:"bankConnectionId"`
	} `json:"payload"`
}

// Account is a bank account of a FinAPI bank connection
type Account struct {
	ID               int64           `json:"id"`
	BankConnectionID int64           `json:"bankConnectionId"`
	AccountName      string          `json:"accountName"`
	IBAN             string          `json:"iban"`
	AccountNumber    string          `json:"accountNumber"`
	AccountHolder    string          `json:"accountHolderName"`
	Currency         string          `json:"accountCurrency"`
	Balance          decimal.Decimal `json:"balance"`
	BankName         string          `json:"-"`
	BIC              string          `json:"-"`
}

// Transaction is a booked transaction as reported by the bank
type Transaction struct {
	ID              int64           `json:"id"`
	AccountID       int64           `json:"accountId"`
	BankBookingDate string          `json:"bankBookingDate"`
	ValueDate       string          `json:"valueDate"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Purpose         string          `json:"purpose"`
	CounterpartName string          `json:"counterpartName"`
	CounterpartIBAN string          `json:"counterpartIban"`
	IsPotentialDupe bool            `json:"isPotentialDuplicate"`
}

const dateLayout = "2006-01-02"

// BookingDate parses the bank booking date
func (t Transaction) BookingDate() (time.Time, error) {
	return time.Parse(dateLayout, t.BankBookingDate)
}

// ValueDateTime parses the value date; falls back to the booking date
func (t Transaction) ValueDateTime() (time.Time, error) {
	if t.ValueDate == "" {
		return t.BookingDate()
	}
	return time.Parse(dateLayout, t.ValueDate)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type accountList struct {
	Accounts []Account `json:"accounts"`
}

type bankConnection struct {
	ID int64 `json:"id"`
	Bank struct {
		Name string `json:"name"`
		BIC  string `json:"bic"`
	} `json:"bank"`
}

type transactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Paging       struct {
		Page       int `json:"page"`
		PerPage    int `json:"perPage"`
		PageCount  int `json:"pageCount"`
		TotalCount int `json:"totalCount"`
	} `json:"paging"`
}

type errorResponse struct {
	Errors []struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"errors"`
}
