package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/banking"
	"github.com/shopspring/decimal"
)

// BankAccountModel is the persistence model for the BankAccount aggregate
type BankAccountModel struct {
	TenantAggregateModel
	Name               string           `gorm:"type:varchar(200);not null"`
	IBAN               string           `gorm:"column:iban;type:varchar(34)"`
	BIC                string           `gorm:"column:bic;type:varchar(11)"`
	BankName           string           `gorm:"type:varchar(200)"`
	Provider           banking.Provider `gorm:"type:varchar(20);not null;default:'csv'"`
	FinAPIConnectionID *int64           `gorm:"column:finapi_connection_id"`
	FinAPIAccountID    *int64           `gorm:"column:finapi_account_id;index"`
	Balance            decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0"`
	BalanceDate        *time.Time       `gorm:"type:date"`
	LastSyncedAt       *time.Time
	Status             banking.Status `gorm:"type:varchar(20);not null;default:'active';index"`
}

// TableName returns the table name for GORM
func (BankAccountModel) TableName() string {
	return "bank_accounts"
}

// ToDomain converts the persistence model to a domain BankAccount
func (m *BankAccountModel) ToDomain() *banking.BankAccount {
	a := &banking.BankAccount{
		Name:               m.Name,
		IBAN:               m.IBAN,
		BIC:                m.BIC,
		BankName:           m.BankName,
		Provider:           m.Provider,
		FinAPIConnectionID: m.FinAPIConnectionID,
		FinAPIAccountID:    m.FinAPIAccountID,
		Balance:            m.Balance,
		BalanceDate:        utcPtr(m.BalanceDate),
		LastSyncedAt:       m.LastSyncedAt,
		Status:             m.Status,
	}
	m.PopulateTenantAggregateRoot(&a.TenantAggregateRoot)
	return a
}

// FromDomain populates the persistence model from a domain BankAccount
func (m *BankAccountModel) FromDomain(a *banking.BankAccount) {
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	m.Name = a.Name
	m.IBAN = a.IBAN
	m.BIC = a.BIC
	m.BankName = a.BankName
	m.Provider = a.Provider
	m.FinAPIConnectionID = a.FinAPIConnectionID
	m.FinAPIAccountID = a.FinAPIAccountID
	m.Balance = a.Balance
	m.BalanceDate = a.BalanceDate
	m.LastSyncedAt = a.LastSyncedAt
	m.Status = a.Status
}

// BankAccountModelFromDomain creates a new persistence model from a domain BankAccount
func BankAccountModelFromDomain(a *banking.BankAccount) *BankAccountModel {
	m := &BankAccountModel{}
	m.FromDomain(a)
	return m
}

// FinAPILinkModel remembers a FinAPI web form until the user completes it
type FinAPILinkModel struct {
	TenantID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	WebFormID int64     `gorm:"primaryKey"`
	URL       string    `gorm:"type:varchar(500);not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (FinAPILinkModel) TableName() string {
	return "finapi_links"
}

// ToDomain converts the persistence model to a domain FinAPILink
func (m *FinAPILinkModel) ToDomain() *banking.FinAPILink {
	return &banking.FinAPILink{
		TenantID:  m.TenantID,
		WebFormID: m.WebFormID,
		URL:       m.URL,
	}
}
