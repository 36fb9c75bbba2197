package company

import (
	"time"

	"github.com/google/uuid"

	"github.com/kontor/backend/internal/domain/company"
)

// RegisterRequest represents a request to register a company
type RegisterRequest struct {
	Name         string `json:"name" binding:"required,min=1,max=200"`
	Email        string `json:"email" binding:"required,email"`
	ReferralCode string `json:"referral_code" binding:"omitempty,max=16"`
}

// UpdateProfileRequest represents a request to update the company master data
type UpdateProfileRequest struct {
	Name             string `json:"name" binding:"required,min=1,max=200"`
	LegalForm        string `json:"legal_form" binding:"max=50"`
	Street           string `json:"street" binding:"max=200"`
	PostalCode       string `json:"postal_code" binding:"max=10"`
	City             string `json:"city" binding:"max=100"`
	Country          string `json:"country" binding:"omitempty,len=2"`
	Email            string `json:"email" binding:"omitempty,email"`
	Phone            string `json:"phone" binding:"max=50"`
	IBAN             string `json:"iban" binding:"max=42"`
	BIC              string `json:"bic" binding:"max=11"`
	InvoicePrefix    string `json:"invoice_prefix" binding:"max=10"`
	PaymentTermsDays *int   `json:"payment_terms_days" binding:"omitempty,min=0,max=365"`
}

// UpdateTaxSettingsRequest represents a request to update tax identifiers
type UpdateTaxSettingsRequest struct {
	TaxNumber     string `json:"tax_number" binding:"max=20"`
	VATID         string `json:"vat_id" binding:"max=14"`
	SmallBusiness bool   `json:"small_business"`
	VATPeriod     string `json:"vat_period" binding:"omitempty,oneof=monthly quarterly yearly"`
}

// UpdateDATEVSettingsRequest represents a request to update DATEV settings
type UpdateDATEVSettingsRequest struct {
	ConsultantNumber int    `json:"consultant_number" binding:"required,min=1001,max=9999999"`
	ClientNumber     int    `json:"client_number" binding:"required,min=1,max=99999"`
	Chart            string `json:"chart" binding:"omitempty,oneof=SKR03 SKR04 skr03 skr04"`
	FiscalYearStart  int    `json:"fiscal_year_start" binding:"omitempty,min=1,max=12"`
}

// AddressResponse is the postal address of the company
type AddressResponse struct {
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	Country    string `json:"country"`
}

// CompanyResponse represents a company in API responses
type CompanyResponse struct {
	ID               uuid.UUID             `json:"id"`
	Name             string                `json:"name"`
	LegalForm        string                `json:"legal_form"`
	Address          AddressResponse       `json:"address"`
	Email            string                `json:"email"`
	Phone            string                `json:"phone"`
	IBAN             string                `json:"iban"`
	BIC              string                `json:"bic"`
	Tax              company.TaxSettings   `json:"tax"`
	DATEV            company.DATEVSettings `json:"datev"`
	InvoicePrefix    string                `json:"invoice_prefix"`
	PaymentTermsDays int                   `json:"payment_terms_days"`
	Plan             string                `json:"plan"`
	EffectivePlan    string                `json:"effective_plan"`
	Status           string                `json:"subscription_status"`
	CurrentPeriodEnd *time.Time            `json:"current_period_end,omitempty"`
	Limits           company.PlanLimits    `json:"limits"`
	ReferralCode     string                `json:"referral_code"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// ToCompanyResponse converts a domain Company
func ToCompanyResponse(c *company.Company) *CompanyResponse {
	return &CompanyResponse{
		ID:        c.ID,
		Name:      c.Name,
		LegalForm: c.LegalForm,
		Address: AddressResponse{
			Street:     c.Address.Street,
			PostalCode: c.Address.PostalCode,
			City:       c.Address.City,
			Country:    c.Address.Country,
		},
		Email:            c.Email,
		Phone:            c.Phone,
		IBAN:             c.IBAN,
		BIC:              c.BIC,
		Tax:              c.Tax,
		DATEV:            c.DATEV,
		InvoicePrefix:    c.InvoicePrefix,
		PaymentTermsDays: c.PaymentTermsDays,
		Plan:             string(c.Subscription.Plan),
		EffectivePlan:    string(c.Subscription.EffectivePlan()),
		Status:           string(c.Subscription.Status),
		CurrentPeriodEnd: c.Subscription.CurrentPeriodEnd,
		Limits:           c.Limits(),
		ReferralCode:     c.ReferralCode,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}
