package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/recurring"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// RecurringTransactionModel is the persistence model for a RecurringTransaction
type RecurringTransactionModel struct {
	TenantAggregateModel
	Name           string               `gorm:"type:varchar(200);not null"`
	Amount         decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	Counterparty   string               `gorm:"type:varchar(200)"`
	Purpose        string               `gorm:"type:text"`
	CategoryCode   string               `gorm:"type:varchar(50)"`
	VATRate        *valueobject.VATRate `gorm:"column:vat_rate"`
	BankAccountID  *uuid.UUID           `gorm:"type:uuid"`
	ContactID      *uuid.UUID           `gorm:"type:uuid"`
	Frequency      recurring.Frequency  `gorm:"type:varchar(20);not null"`
	StartDate      time.Time            `gorm:"type:date;not null"`
	EndDate        *time.Time           `gorm:"type:date"`
	AnchorDay      int                  `gorm:"not null;default:0"`
	NextExecution  *time.Time           `gorm:"type:date;index"`
	LastExecutedAt *time.Time           `gorm:"type:date"`
	ResumedAt      *time.Time           `gorm:"type:date"`
	ExecutionCount int                  `gorm:"not null;default:0"`
	Active         bool                 `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (RecurringTransactionModel) TableName() string {
	return "recurring_transactions"
}

// ToDomain converts the persistence model to a domain RecurringTransaction
func (m *RecurringTransactionModel) ToDomain() *recurring.RecurringTransaction {
	r := &recurring.RecurringTransaction{
		Name:           m.Name,
		Amount:         m.Amount,
		Counterparty:   m.Counterparty,
		Purpose:        m.Purpose,
		CategoryCode:   m.CategoryCode,
		VATRate:        m.VATRate,
		BankAccountID:  m.BankAccountID,
		ContactID:      m.ContactID,
		Frequency:      m.Frequency,
		StartDate:      m.StartDate.UTC(),
		EndDate:        utcPtr(m.EndDate),
		AnchorDay:      m.AnchorDay,
		NextExecution:  utcPtr(m.NextExecution),
		LastExecutedAt: utcPtr(m.LastExecutedAt),
		ResumedAt:      utcPtr(m.ResumedAt),
		ExecutionCount: m.ExecutionCount,
		Active:         m.Active,
	}
	m.PopulateTenantAggregateRoot(&r.TenantAggregateRoot)
	return r
}

// FromDomain populates the persistence model from a domain RecurringTransaction
func (m *RecurringTransactionModel) FromDomain(r *recurring.RecurringTransaction) {
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	m.Name = r.Name
	m.Amount = r.Amount
	m.Counterparty = r.Counterparty
	m.Purpose = r.Purpose
	m.CategoryCode = r.CategoryCode
	m.VATRate = r.VATRate
	m.BankAccountID = r.BankAccountID
	m.ContactID = r.ContactID
	m.Frequency = r.Frequency
	m.StartDate = r.StartDate
	m.EndDate = r.EndDate
	m.AnchorDay = r.AnchorDay
	m.NextExecution = r.NextExecution
	m.LastExecutedAt = r.LastExecutedAt
	m.ResumedAt = r.ResumedAt
	m.ExecutionCount = r.ExecutionCount
	m.Active = r.Active
}

// RecurringTransactionModelFromDomain creates a new persistence model from a domain RecurringTransaction
func RecurringTransactionModelFromDomain(r *recurring.RecurringTransaction) *RecurringTransactionModel {
	m := &RecurringTransactionModel{}
	m.FromDomain(r)
	return m
}
