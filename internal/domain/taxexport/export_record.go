package taxexport

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/shared"
)

// Type is the kind of generated file
type Type string

const (
	TypeDATEV  Type = "datev"
	TypeELSTER Type = "elster"
)

func (t Type) IsValid() bool {
	return t == TypeDATEV || t == TypeELSTER
}

// Extension is the file extension of the type
func (t Type) Extension() string {
	if t == TypeELSTER {
		return "xml"
	}
	return "csv"
}

// ContentType is the MIME type of the type
func (t Type) ContentType() string {
	if t == TypeELSTER {
		return "application/xml"
	}
	return "text/csv; charset=windows-1252"
}

// Record archives a generated export for retention
type Record struct {
	shared.TenantAggregateRoot
	Type       Type
	PeriodFrom time.Time
	PeriodTo   time.Time
	PeriodKey  string
	FileKey    string
	RowCount   int
	Size       int64
}

// StorageKey builds exports/{tenant}/{type}/{period}.{ext}
func StorageKey(tenantID uuid.UUID, typ Type, periodKey string) string {
	return fmt.Sprintf("exports/%s/%s/%s.%s", tenantID, typ, periodKey, typ.Extension())
}

// DATEVPeriodKey names a DATEV export by its date range
func DATEVPeriodKey(from, to time.Time) string {
	return from.Format("20060102") + "-" + to.Format("20060102")
}

// NewRecord creates an export record
func NewRecord(tenantID uuid.UUID, typ Type, from, to time.Time, periodKey string, rowCount int, size int64, createdBy uuid.UUID) (*Record, error) {
	if !typ.IsValid() {
		return nil, shared.NewDomainError("INVALID_EXPORT_TYPE", "Export type must be datev or elster")
	}
	r := &Record{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Type:                typ,
		PeriodFrom:          from,
		PeriodTo:            to,
		PeriodKey:           periodKey,
		FileKey:             StorageKey(tenantID, typ, periodKey),
		RowCount:            rowCount,
		Size:                size,
	}
	r.SetCreatedBy(createdBy)
	return r, nil
}
