package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/receipt"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ReceiptModel is the persistence model for receipt metadata
type ReceiptModel struct {
	TenantAggregateModel
	FileName      string               `gorm:"type:varchar(255);not null"`
	ContentType   string               `gorm:"type:varchar(100);not null"`
	Size          int64                `gorm:"not null"`
	StorageKey    string               `gorm:"type:varchar(500);not null;uniqueIndex"`
	Status        receipt.Status       `gorm:"type:varchar(20);not null;default:'pending';index"`
	VendorName    string               `gorm:"type:varchar(200)"`
	ReceiptNumber string               `gorm:"type:varchar(100)"`
	ReceiptDate   *time.Time           `gorm:"type:date;index"`
	GrossAmount   *decimal.Decimal     `gorm:"type:decimal(18,2)"`
	NetAmount     *decimal.Decimal     `gorm:"type:decimal(18,2)"`
	VATAmount     *decimal.Decimal     `gorm:"column:vat_amount;type:decimal(18,2)"`
	VATRate       *valueobject.VATRate `gorm:"column:vat_rate"`
	CategoryCode  string               `gorm:"type:varchar(50)"`
	TransactionID *uuid.UUID           `gorm:"type:uuid;index"`
	Confidence    float64              `gorm:"not null;default:0"`
	RawAnalysis   string               `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ReceiptModel) TableName() string {
	return "receipts"
}

// ToDomain converts the persistence model to a domain Receipt
func (m *ReceiptModel) ToDomain() *receipt.Receipt {
	r := &receipt.Receipt{
		FileName:      m.FileName,
		ContentType:   m.ContentType,
		Size:          m.Size,
		StorageKey:    m.StorageKey,
		Status:        m.Status,
		VendorName:    m.VendorName,
		ReceiptNumber: m.ReceiptNumber,
		ReceiptDate:   utcPtr(m.ReceiptDate),
		GrossAmount:   m.GrossAmount,
		NetAmount:     m.NetAmount,
		VATAmount:     m.VATAmount,
		VATRate:       m.VATRate,
		CategoryCode:  m.CategoryCode,
		TransactionID: m.TransactionID,
		Confidence:    m.Confidence,
		RawAnalysis:   m.RawAnalysis,
	}
	m.PopulateTenantAggregateRoot(&r.TenantAggregateRoot)
	return r
}

// FromDomain populates the persistence model from a domain Receipt
func (m *ReceiptModel) FromDomain(r *receipt.Receipt) {
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	m.FileName = r.FileName
	m.ContentType = r.ContentType
	m.Size = r.Size
	m.StorageKey = r.StorageKey
	m.Status = r.Status
	m.VendorName = r.VendorName
	m.ReceiptNumber = r.ReceiptNumber
	m.ReceiptDate = r.ReceiptDate
	m.GrossAmount = r.GrossAmount
	m.NetAmount = r.NetAmount
	m.VATAmount = r.VATAmount
	m.VATRate = r.VATRate
	m.CategoryCode = r.CategoryCode
	m.TransactionID = r.TransactionID
	m.Confidence = r.Confidence
	m.RawAnalysis = r.RawAnalysis
}

// ReceiptModelFromDomain creates a new persistence model from a domain Receipt
func ReceiptModelFromDomain(r *receipt.Receipt) *ReceiptModel {
	m := &ReceiptModel{}
	m.FromDomain(r)
	return m
}
