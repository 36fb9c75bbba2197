package models

import (
	"time"

	"github.com/kontor/backend/internal/domain/taxexport"
)

// ExportRecordModel is the persistence model for an archived tax export
type ExportRecordModel struct {
	TenantAggregateModel
	Type       taxexport.Type `gorm:"type:varchar(20);not null;index"`
	PeriodFrom time.Time      `gorm:"type:date;not null"`
	PeriodTo   time.Time      `gorm:"type:date;not null"`
	PeriodKey  string         `gorm:"type:varchar(50);not null"`
	FileKey    string         `gorm:"type:varchar(500);not null"`
	RowCount   int            `gorm:"not null;default:0"`
	Size       int64          `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ExportRecordModel) TableName() string {
	return "export_records"
}

// ToDomain converts the persistence model to a domain Record
func (m *ExportRecordModel) ToDomain() *taxexport.Record {
	r := &taxexport.Record{
		Type:       m.Type,
		PeriodFrom: m.PeriodFrom.UTC(),
		PeriodTo:   m.PeriodTo.UTC(),
		PeriodKey:  m.PeriodKey,
		FileKey:    m.FileKey,
		RowCount:   m.RowCount,
		Size:       m.Size,
	}
	m.PopulateTenantAggregateRoot(&r.TenantAggregateRoot)
	return r
}

// FromDomain populates the persistence model from a domain Record
func (m *ExportRecordModel) FromDomain(r *taxexport.Record) {
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	m.Type = r.Type
	m.PeriodFrom = r.PeriodFrom
	m.PeriodTo = r.PeriodTo
	m.PeriodKey = r.PeriodKey
	m.FileKey = r.FileKey
	m.RowCount = r.RowCount
	m.Size = r.Size
}

// ExportRecordModelFromDomain creates a new persistence model from a domain Record
func ExportRecordModelFromDomain(r *taxexport.Record) *ExportRecordModel {
	m := &ExportRecordModel{}
	m.FromDomain(r)
	return m
}
