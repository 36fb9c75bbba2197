package taxexport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/domain/taxexport"
)

const dateLayout = "2006-01-02"

// DATEVRequest selects the booking period of a Buchungsstapel
type DATEVRequest struct {
	From string `json:"from" form:"from" binding:"required,datetime=2006-01-02"`
	To   string `json:"to" form:"to" binding:"required,datetime=2006-01-02"`
}

// ELSTERRequest selects an advance VAT return period. An empty period means
// the last completed period of the company's filing interval.
type ELSTERRequest struct {
	Year   int    `json:"year" form:"year" binding:"omitempty,min=2000,max=2100"`
	Period string `json:"period" form:"period" binding:"omitempty,max=2"`
}

// SummaryRequest selects the range of a VAT summary
type SummaryRequest struct {
	From string `form:"from" binding:"required,datetime=2006-01-02"`
	To   string `form:"to" binding:"required,datetime=2006-01-02"`
}

// ListFilter represents filter options for the export archive
type ListFilter struct {
	Type     string `form:"type" binding:"omitempty,oneof=datev elster"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ExportFile is a generated export together with its archive record
type ExportFile struct {
	Record      RecordResponse
	FileName    string
	ContentType string
	Data        []byte
}

// KennzahlenResponse are the UStVA fields
type KennzahlenResponse struct {
	Kz81 decimal.Decimal `json:"kz81"`
	Kz86 decimal.Decimal `json:"kz86"`
	Kz48 decimal.Decimal `json:"kz48"`
	Kz66 decimal.Decimal `json:"kz66"`
	Kz83 decimal.Decimal `json:"kz83"`
}

// SummaryResponse is the VAT summary of a date range
type SummaryResponse struct {
	From       time.Time            `json:"from"`
	To         time.Time            `json:"to"`
	Summary    taxexport.VATSummary `json:"summary"`
	Kennzahlen KennzahlenResponse   `json:"kennzahlen"`
}

// DownloadResponse is a presigned link to an archived export
type DownloadResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RecordResponse represents an archived export in API responses
type RecordResponse struct {
	ID         uuid.UUID  `json:"id"`
	Type       string     `json:"type"`
	PeriodFrom time.Time  `json:"period_from"`
	PeriodTo   time.Time  `json:"period_to"`
	PeriodKey  string     `json:"period_key"`
	FileKey    string     `json:"file_key"`
	RowCount   int        `json:"row_count"`
	Size       int64      `json:"size"`
	CreatedBy  *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ToRecordResponse converts a domain Record
func ToRecordResponse(r *taxexport.Record) RecordResponse {
	return RecordResponse{
		ID:         r.ID,
		Type:       string(r.Type),
		PeriodFrom: r.PeriodFrom,
		PeriodTo:   r.PeriodTo,
		PeriodKey:  r.PeriodKey,
		FileKey:    r.FileKey,
		RowCount:   r.RowCount,
		Size:       r.Size,
		CreatedBy:  r.CreatedBy,
		CreatedAt:  r.CreatedAt,
	}
}

func toKennzahlenResponse(k taxexport.Kennzahlen) KennzahlenResponse {
	return KennzahlenResponse{Kz81: k.Kz81, Kz86: k.Kz86, Kz48: k.Kz48, Kz66: k.Kz66, Kz83: k.Kz83}
}

func parseRange(fromValue, toValue string) (from, to time.Time, err error) {
	from, err = time.Parse(dateLayout, fromValue)
	if err != nil {
		return from, to, shared.NewDomainErrorWithCause("INVALID_DATE", "from must be formatted as YYYY-MM-DD", err)
	}
	to, err = time.Parse(dateLayout, toValue)
	if err != nil {
		return from, to, shared.NewDomainErrorWithCause("INVALID_DATE", "to must be formatted as YYYY-MM-DD", err)
	}
	if to.Before(from) {
		return from, to, shared.NewDomainError("INVALID_PERIOD", "to cannot be before from")
	}
	return from, to, nil
}
