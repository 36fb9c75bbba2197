package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/invoice"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate.
// Line items are stored in a json column.
type InvoiceModel struct {
	TenantAggregateModel
	Number               string               `gorm:"type:varchar(50);not null;uniqueIndex:idx_invoice_tenant_number,priority:2"`
	ContactID            uuid.UUID            `gorm:"type:uuid;not null;index"`
	Status               invoice.Status       `gorm:"type:varchar(20);not null;default:'draft';index"`
	IssueDate            time.Time            `gorm:"type:date;not null"`
	DueDate              time.Time            `gorm:"type:date;not null;index"`
	ServicePeriodStart   *time.Time           `gorm:"type:date"`
	ServicePeriodEnd     *time.Time           `gorm:"type:date"`
	Currency             valueobject.Currency `gorm:"type:varchar(3);not null;default:'EUR'"`
	ItemsJSON            string               `gorm:"column:items;type:jsonb;not null;default:'[]'"`
	Notes                string               `gorm:"type:text"`
	PaymentTerms         string               `gorm:"type:text"`
	ReverseCharge        bool                 `gorm:"not null;default:false"`
	SmallBusiness        bool                 `gorm:"not null;default:false"`
	NetAmount            decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	TaxAmount            decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	GrossAmount          decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	PaidAmount           decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	PaidAt               *time.Time
	SentAt               *time.Time
	CancelledAt          *time.Time
	CancelReason         string     `gorm:"type:text"`
	PaymentTransactionID *uuid.UUID `gorm:"type:uuid"`
	PDFKey               string     `gorm:"column:pdf_key;type:varchar(500)"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *invoice.Invoice {
	inv := &invoice.Invoice{
		Number:               m.Number,
		ContactID:            m.ContactID,
		Status:               m.Status,
		IssueDate:            m.IssueDate.UTC(),
		DueDate:              m.DueDate.UTC(),
		ServicePeriodStart:   utcPtr(m.ServicePeriodStart),
		ServicePeriodEnd:     utcPtr(m.ServicePeriodEnd),
		Currency:             m.Currency,
		Items:                make([]invoice.LineItem, 0),
		Notes:                m.Notes,
		PaymentTerms:         m.PaymentTerms,
		ReverseCharge:        m.ReverseCharge,
		SmallBusiness:        m.SmallBusiness,
		NetAmount:            m.NetAmount,
		TaxAmount:            m.TaxAmount,
		GrossAmount:          m.GrossAmount,
		PaidAmount:           m.PaidAmount,
		PaidAt:               m.PaidAt,
		SentAt:               m.SentAt,
		CancelledAt:          m.CancelledAt,
		CancelReason:         m.CancelReason,
		PaymentTransactionID: m.PaymentTransactionID,
		PDFKey:               m.PDFKey,
	}
	m.PopulateTenantAggregateRoot(&inv.TenantAggregateRoot)
	decodeColumn(m.ItemsJSON, &inv.Items, "invoices", m.ID)
	return inv
}

// FromDomain populates the persistence model from a domain Invoice
func (m *InvoiceModel) FromDomain(inv *invoice.Invoice) {
	m.FromDomainTenantAggregateRoot(inv.TenantAggregateRoot)
	m.Number = inv.Number
	m.ContactID = inv.ContactID
	m.Status = inv.Status
	m.IssueDate = inv.IssueDate
	m.DueDate = inv.DueDate
	m.ServicePeriodStart = inv.ServicePeriodStart
	m.ServicePeriodEnd = inv.ServicePeriodEnd
	m.Currency = inv.Currency
	items := inv.Items
	if items == nil {
		items = []invoice.LineItem{}
	}
	m.ItemsJSON = encodeColumn(items, "[]")
	m.Notes = inv.Notes
	m.PaymentTerms = inv.PaymentTerms
	m.ReverseCharge = inv.ReverseCharge
	m.SmallBusiness = inv.SmallBusiness
	m.NetAmount = inv.NetAmount
	m.TaxAmount = inv.TaxAmount
	m.GrossAmount = inv.GrossAmount
	m.PaidAmount = inv.PaidAmount
	m.PaidAt = inv.PaidAt
	m.SentAt = inv.SentAt
	m.CancelledAt = inv.CancelledAt
	m.CancelReason = inv.CancelReason
	m.PaymentTransactionID = inv.PaymentTransactionID
	m.PDFKey = inv.PDFKey
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice
func InvoiceModelFromDomain(inv *invoice.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// utcPtr normalizes a nullable date column to UTC
func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
