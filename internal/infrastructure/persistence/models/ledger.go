package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/ledger"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// TransactionModel is the persistence model for a ledger Transaction
type TransactionModel struct {
	TenantAggregateModel
	BankAccountID    *uuid.UUID           `gorm:"type:uuid;index"`
	BookingDate      time.Time            `gorm:"type:date;not null;index"`
	ValueDate        *time.Time           `gorm:"type:date"`
	Amount           decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	Currency         valueobject.Currency `gorm:"type:varchar(3);not null;default:'EUR'"`
	Counterparty     string               `gorm:"type:varchar(200)"`
	CounterpartyIBAN string               `gorm:"column:counterparty_iban;type:varchar(34)"`
	Purpose          string               `gorm:"type:text"`
	CategoryCode     string               `gorm:"type:varchar(50);index"`
	AccountNumber    string               `gorm:"type:varchar(10)"`
	VATRate          *valueobject.VATRate `gorm:"column:vat_rate"`
	Status           ledger.Status        `gorm:"type:varchar(20);not null;default:'unbooked';index"`
	ContactID        *uuid.UUID           `gorm:"type:uuid"`
	InvoiceID        *uuid.UUID           `gorm:"type:uuid;index"`
	ReceiptID        *uuid.UUID           `gorm:"type:uuid"`
	Source           ledger.Source        `gorm:"type:varchar(20);not null"`
	ImportHash       string               `gorm:"type:varchar(64);index"`
	RecurringID      *uuid.UUID           `gorm:"type:uuid"`
	Notes            string               `gorm:"type:text"`
	BookedAt         *time.Time
}

// TableName returns the table name for GORM
func (TransactionModel) TableName() string {
	return "transactions"
}

// ToDomain converts the persistence model to a domain Transaction
func (m *TransactionModel) ToDomain() *ledger.Transaction {
	t := &ledger.Transaction{
		BankAccountID:    m.BankAccountID,
		BookingDate:      m.BookingDate.UTC(),
		ValueDate:        utcPtr(m.ValueDate),
		Amount:           m.Amount,
		Currency:         m.Currency,
		Counterparty:     m.Counterparty,
		CounterpartyIBAN: m.CounterpartyIBAN,
		Purpose:          m.Purpose,
		CategoryCode:     m.CategoryCode,
		AccountNumber:    m.AccountNumber,
		VATRate:          m.VATRate,
		Status:           m.Status,
		ContactID:        m.ContactID,
		InvoiceID:        m.InvoiceID,
		ReceiptID:        m.ReceiptID,
		Source:           m.Source,
		ImportHash:       m.ImportHash,
		RecurringID:      m.RecurringID,
		Notes:            m.Notes,
		BookedAt:         m.BookedAt,
	}
	m.PopulateTenantAggregateRoot(&t.TenantAggregateRoot)
	return t
}

// FromDomain populates the persistence model from a domain Transaction
func (m *TransactionModel) FromDomain(t *ledger.Transaction) {
	m.FromDomainTenantAggregateRoot(t.TenantAggregateRoot)
	m.BankAccountID = t.BankAccountID
	m.BookingDate = t.BookingDate
	m.ValueDate = t.ValueDate
	m.Amount = t.Amount
	m.Currency = t.Currency
	m.Counterparty = t.Counterparty
	m.CounterpartyIBAN = t.CounterpartyIBAN
	m.Purpose = t.Purpose
	m.CategoryCode = t.CategoryCode
	m.AccountNumber = t.AccountNumber
	m.VATRate = t.VATRate
	m.Status = t.Status
	m.ContactID = t.ContactID
	m.InvoiceID = t.InvoiceID
	m.ReceiptID = t.ReceiptID
	m.Source = t.Source
	m.ImportHash = t.ImportHash
	m.RecurringID = t.RecurringID
	m.Notes = t.Notes
	m.BookedAt = t.BookedAt
}

// TransactionModelFromDomain creates a new persistence model from a domain Transaction
func TransactionModelFromDomain(t *ledger.Transaction) *TransactionModel {
	m := &TransactionModel{}
	m.FromDomain(t)
	return m
}
