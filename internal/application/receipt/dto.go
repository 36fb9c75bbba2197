package receipt

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kontor/backend/internal/domain/receipt"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
)

const dateLayout = "2006-01-02"

// UpdateRequest is a manual correction of the extracted fields
type UpdateRequest struct {
	VendorName    string           `json:"vendor_name" binding:"max=200"`
	ReceiptNumber string           `json:"receipt_number" binding:"max=100"`
	ReceiptDate   string           `json:"receipt_date" binding:"omitempty,datetime=2006-01-02"`
	GrossAmount   *decimal.Decimal `json:"gross_amount"`
	VATRate       *int             `json:"vat_rate" binding:"omitempty,oneof=0 7 19"`
	CategoryCode  string           `json:"category_code" binding:"max=50"`
}

// LinkRequest attaches a receipt to a transaction
type LinkRequest struct {
	TransactionID uuid.UUID `json:"transaction_id" binding:"required"`
}

// ListFilter represents filter options for the receipt list
type ListFilter struct {
	Status   string `form:"status" binding:"omitempty,oneof=pending analyzed booked archived"`
	From     string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To       string `form:"to" binding:"omitempty,datetime=2006-01-02"`
	Search   string `form:"search"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// DownloadResponse is a presigned link to the document
type DownloadResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ReceiptResponse represents a receipt in API responses
type ReceiptResponse struct {
	ID            uuid.UUID            `json:"id"`
	FileName      string               `json:"file_name"`
	ContentType   string               `json:"content_type"`
	Size          int64                `json:"size"`
	Status        string               `json:"status"`
	VendorName    string               `json:"vendor_name"`
	ReceiptNumber string               `json:"receipt_number"`
	ReceiptDate   *time.Time           `json:"receipt_date,omitempty"`
	GrossAmount   *decimal.Decimal     `json:"gross_amount,omitempty"`
	NetAmount     *decimal.Decimal     `json:"net_amount,omitempty"`
	VATAmount     *decimal.Decimal     `json:"vat_amount,omitempty"`
	VATRate       *valueobject.VATRate `json:"vat_rate,omitempty"`
	CategoryCode  string               `json:"category_code"`
	TransactionID *uuid.UUID           `json:"transaction_id,omitempty"`
	Confidence    float64              `json:"confidence"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// ToReceiptResponse converts a domain Receipt
func ToReceiptResponse(r *receipt.Receipt) ReceiptResponse {
	return ReceiptResponse{
		ID:            r.ID,
		FileName:      r.FileName,
		ContentType:   r.ContentType,
		Size:          r.Size,
		Status:        string(r.Status),
		VendorName:    r.VendorName,
		ReceiptNumber: r.ReceiptNumber,
		ReceiptDate:   r.ReceiptDate,
		GrossAmount:   r.GrossAmount,
		NetAmount:     r.NetAmount,
		VATAmount:     r.VATAmount,
		VATRate:       r.VATRate,
		CategoryCode:  r.CategoryCode,
		TransactionID: r.TransactionID,
		Confidence:    r.Confidence,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func parseDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, shared.NewDomainErrorWithCause("INVALID_DATE", field+" must be formatted as YYYY-MM-DD", err)
	}
	return &t, nil
}
