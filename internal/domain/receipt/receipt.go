package receipt

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// MaxFileSize is the upload limit for receipt documents
const MaxFileSize = 10 << 20

// Status is the processing state of a receipt
type Status string

const (
	StatusPending  Status = "pending"
	StatusAnalyzed Status = "analyzed"
	StatusBooked   Status = "booked"
	StatusArchived Status = "archived"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAnalyzed, StatusBooked, StatusArchived:
		return true
	}
	return false
}

var allowedTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

// ExtensionFor returns the file extension for an accepted content type
func ExtensionFor(contentType string) (string, bool) {
	ext, ok := allowedTypes[strings.ToLower(strings.TrimSpace(contentType))]
	return ext, ok
}

// StorageKey builds receipts/{tenant}/{yyyy}/{mm}/{uuid}{ext}
func StorageKey(tenantID, id uuid.UUID, uploadedAt time.Time, ext string) string {
	return fmt.Sprintf("receipts/%s/%04d/%02d/%s%s", tenantID, uploadedAt.Year(), int(uploadedAt.Month()), id, ext)
}

// Receipt is an incoming document (Beleg)
type Receipt struct {
	shared.TenantAggregateRoot
	FileName      string
	ContentType   string
	Size          int64
	StorageKey    string
	Status        Status
	VendorName    string
	ReceiptNumber string
	ReceiptDate   *time.Time
	GrossAmount   *decimal.Decimal
	NetAmount     *decimal.Decimal
	VATAmount     *decimal.Decimal
	VATRate       *valueobject.VATRate
	CategoryCode  string
	TransactionID *uuid.UUID
	Confidence    float64
	RawAnalysis   string
}

// NewReceipt validates an upload and derives its storage key
func NewReceipt(tenantID uuid.UUID, fileName, contentType string, size int64, now time.Time) (*Receipt, error) {
	if size <= 0 {
		return nil, shared.NewDomainError("EMPTY_FILE", "Uploaded file is empty")
	}
	if size > MaxFileSize {
		return nil, shared.NewDomainError("FILE_TOO_LARGE", "Receipts cannot exceed 10 MiB")
	}
	ext, ok := ExtensionFor(contentType)
	if !ok {
		return nil, shared.NewDomainError("UNSUPPORTED_FILE_TYPE", "Only PDF, JPEG and PNG receipts are accepted")
	}
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		name = "beleg" + ext
	}

	r := &Receipt{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		FileName:            name,
		ContentType:         strings.ToLower(contentType),
		Size:                size,
		Status:              StatusPending,
	}
	r.StorageKey = StorageKey(tenantID, r.ID, now, ext)
	return r, nil
}

// Analysis is the extracted content of a document
type Analysis struct {
	VendorName    string
	ReceiptNumber string
	ReceiptDate   *time.Time
	GrossAmount   *decimal.Decimal
	NetAmount     *decimal.Decimal
	VATAmount     *decimal.Decimal
	VATRate       *valueobject.VATRate
	CategoryCode  string
	Confidence    float64
	Raw           string
}

// complete derives whichever of net, tax and gross is missing
func (a *Analysis) complete() {
	if a.GrossAmount == nil || a.VATRate == nil {
		return
	}
	net, tax := a.VATRate.Split(*a.GrossAmount)
	if a.NetAmount == nil {
		a.NetAmount = &net
	}
	if a.VATAmount == nil {
		a.VATAmount = &tax
	}
}

// ApplyAnalysis stores the extracted fields; status becomes analyzed
func (r *Receipt) ApplyAnalysis(a Analysis) error {
	if r.Status == StatusBooked || r.Status == StatusArchived {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot analyze receipt in %s status", r.Status))
	}
	if a.VATRate != nil && !a.VATRate.IsValid() {
		a.VATRate = nil
	}
	a.complete()
	r.VendorName = strings.TrimSpace(a.VendorName)
	r.ReceiptNumber = strings.TrimSpace(a.ReceiptNumber)
	if a.ReceiptDate != nil {
		d := shared.DateOnly(*a.ReceiptDate)
		r.ReceiptDate = &d
	}
	r.GrossAmount = a.GrossAmount
	r.NetAmount = a.NetAmount
	r.VATAmount = a.VATAmount
	r.VATRate = a.VATRate
	if a.CategoryCode != "" {
		r.CategoryCode = a.CategoryCode
	}
	r.Confidence = a.Confidence
	r.RawAnalysis = a.Raw
	r.Status = StatusAnalyzed
	r.Touch()
	return nil
}

// Correction is a manual edit of the extracted fields
type Correction struct {
	VendorName    string
	ReceiptNumber string
	ReceiptDate   *time.Time
	GrossAmount   *decimal.Decimal
	VATRate       *valueobject.VATRate
	CategoryCode  string
}

// Correct overwrites the extracted fields with user input
func (r *Receipt) Correct(c Correction) error {
	if r.Status == StatusArchived {
		return shared.NewDomainError("INVALID_STATE", "Cannot edit an archived receipt")
	}
	if c.GrossAmount != nil && c.GrossAmount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Gross amount cannot be negative")
	}
	if c.VATRate != nil && !c.VATRate.IsValid() {
		return shared.NewDomainError("INVALID_VAT_RATE", "VAT rate must be 0, 7 or 19 percent")
	}
	r.VendorName = strings.TrimSpace(c.VendorName)
	r.ReceiptNumber = strings.TrimSpace(c.ReceiptNumber)
	if c.ReceiptDate != nil {
		d := shared.DateOnly(*c.ReceiptDate)
		r.ReceiptDate = &d
	} else {
		r.ReceiptDate = nil
	}
	r.GrossAmount = c.GrossAmount
	r.VATRate = c.VATRate
	r.NetAmount, r.VATAmount = nil, nil
	if c.GrossAmount != nil && c.VATRate != nil {
		net, tax := c.VATRate.Split(*c.GrossAmount)
		r.NetAmount, r.VATAmount = &net, &tax
	}
	r.CategoryCode = strings.TrimSpace(c.CategoryCode)
	if r.Status == StatusPending {
		r.Status = StatusAnalyzed
	}
	r.Touch()
	return nil
}

// LinkTransaction attaches the receipt to the payment that settled it
func (r *Receipt) LinkTransaction(transactionID uuid.UUID) error {
	if r.Status == StatusArchived {
		return shared.NewDomainError("INVALID_STATE", "Cannot link an archived receipt")
	}
	if transactionID == uuid.Nil {
		return shared.NewDomainError("INVALID_TRANSACTION", "Transaction is required")
	}
	r.TransactionID = &transactionID
	r.Status = StatusBooked
	r.Touch()
	return nil
}

// Archive moves the receipt out of the inbox
func (r *Receipt) Archive() error {
	if r.Status == StatusArchived {
		return shared.NewDomainError("INVALID_STATE", "Receipt is already archived")
	}
	r.Status = StatusArchived
	r.Touch()
	return nil
}

// CanDelete reports whether the document may be removed; booked receipts are
// retained
func (r *Receipt) CanDelete() bool {
	return r.Status != StatusBooked && r.TransactionID == nil
}
