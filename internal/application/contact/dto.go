package contact

import (
	"time"

	"github.com/google/uuid"

	"github.com/kontor/backend/internal/domain/contact"
)

// ContactRequest is the body of create and update requests
type ContactRequest struct {
	Type                string `json:"type" binding:"required,oneof=customer supplier both"`
	Name                string `json:"name" binding:"required,min=1,max=200"`
	ContactPerson       string `json:"contact_person" binding:"max=100"`
	Email               string `json:"email" binding:"omitempty,email,max=200"`
	Phone               string `json:"phone" binding:"max=50"`
	Street              string `json:"street" binding:"max=200"`
	PostalCode          string `json:"postal_code" binding:"max=10"`
	City                string `json:"city" binding:"max=100"`
	Country             string `json:"country" binding:"omitempty,len=2"`
	VATID               string `json:"vat_id" binding:"max=20"`
	TaxNumber           string `json:"tax_number" binding:"max=20"`
	IBAN                string `json:"iban" binding:"max=42"`
	DefaultCategoryCode string `json:"default_category_code" binding:"max=50"`
	Notes               string `json:"notes" binding:"max=2000"`
}

// ListFilter represents filter options for the contact list
type ListFilter struct {
	Type     string `form:"type" binding:"omitempty,oneof=customer supplier both"`
	Search   string `form:"search"`
	Archived *bool  `form:"archived"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by" binding:"omitempty,oneof=name customer_number created_at"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ContactResponse represents a contact in API responses
type ContactResponse struct {
	ID                  uuid.UUID `json:"id"`
	Type                string    `json:"type"`
	CustomerNumber      string    `json:"customer_number,omitempty"`
	Name                string    `json:"name"`
	ContactPerson       string    `json:"contact_person"`
	Email               string    `json:"email"`
	Phone               string    `json:"phone"`
	Street              string    `json:"street"`
	PostalCode          string    `json:"postal_code"`
	City                string    `json:"city"`
	Country             string    `json:"country"`
	VATID               string    `json:"vat_id"`
	TaxNumber           string    `json:"tax_number"`
	IBAN                string    `json:"iban"`
	DefaultCategoryCode string    `json:"default_category_code"`
	Notes               string    `json:"notes"`
	Archived            bool      `json:"archived"`
	ReverseChargeable   bool      `json:"reverse_chargeable"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// ToContactResponse converts a domain Contact
func ToContactResponse(c *contact.Contact) ContactResponse {
	return ContactResponse{
		ID:                  c.ID,
		Type:                string(c.Type),
		CustomerNumber:      c.CustomerNumber,
		Name:                c.Name,
		ContactPerson:       c.ContactPerson,
		Email:               c.Email,
		Phone:               c.Phone,
		Street:              c.Address.Street,
		PostalCode:          c.Address.PostalCode,
		City:                c.Address.City,
		Country:             c.Address.Country,
		VATID:               c.VATID,
		TaxNumber:           c.TaxNumber,
		IBAN:                c.IBAN,
		DefaultCategoryCode: c.DefaultCategoryCode,
		Notes:               c.Notes,
		Archived:            c.Archived,
		ReverseChargeable:   c.IsForeignEU(),
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
}

// ToContactResponses converts a slice of contacts
func ToContactResponses(contacts []*contact.Contact) []ContactResponse {
	out := make([]ContactResponse, len(contacts))
	for i, c := range contacts {
		out[i] = ToContactResponse(c)
	}
	return out
}
