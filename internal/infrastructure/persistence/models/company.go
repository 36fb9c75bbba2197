package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/company"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
)

// CompanyModel is the persistence model for the Company aggregate (the tenant)
type CompanyModel struct {
	AggregateModel
	Name               string                     `gorm:"type:varchar(200);not null"`
	LegalForm          string                     `gorm:"type:varchar(50)"`
	Street             string                     `gorm:"type:varchar(200)"`
	PostalCode         string                     `gorm:"type:varchar(20)"`
	City               string                     `gorm:"type:varchar(100)"`
	Country            string                     `gorm:"type:varchar(2);not null;default:'DE'"`
	Email              string                     `gorm:"type:varchar(200);not null"`
	Phone              string                     `gorm:"type:varchar(50)"`
	IBAN               string                     `gorm:"column:iban;type:varchar(34)"`
	BIC                string                     `gorm:"column:bic;type:varchar(11)"`
	TaxNumber          string                     `gorm:"type:varchar(20)"`
	VATID              string                     `gorm:"column:vat_id;type:varchar(20)"`
	SmallBusiness      bool                       `gorm:"not null;default:false"`
	VATPeriod          company.VATPeriod          `gorm:"column:vat_period;type:varchar(20);not null;default:'quarterly'"`
	Chart              company.Chart              `gorm:"type:varchar(10);not null;default:'SKR03'"`
	ConsultantNumber   int                        `gorm:"not null;default:0"`
	ClientNumber       int                        `gorm:"not null;default:0"`
	FiscalYearStart    int                        `gorm:"not null;default:1"`
	InvoicePrefix      string                     `gorm:"type:varchar(10);not null;default:'RE'"`
	PaymentTermsDays   int                        `gorm:"not null;default:14"`
	StripeCustomerID   string                     `gorm:"type:varchar(100);index"`
	Plan               company.Plan               `gorm:"type:varchar(20);not null;default:'free'"`
	SubscriptionStatus company.SubscriptionStatus `gorm:"type:varchar(20);not null;default:'none'"`
	SubscriptionID     string                     `gorm:"type:varchar(100)"`
	CurrentPeriodEnd   *time.Time
	ReferralCode       string `gorm:"type:varchar(20);not null;uniqueIndex"`
	ReferredByCode     string `gorm:"type:varchar(20)"`
}

// TableName returns the table name for GORM
func (CompanyModel) TableName() string {
	return "companies"
}

// ToDomain converts the persistence model to a domain Company
func (m *CompanyModel) ToDomain() *company.Company {
	return &company.Company{
		BaseAggregateRoot: m.AggregateModel.ToDomain(),
		Name:      m.Name,
		LegalForm: m.LegalForm,
		Address: valueobject.Address{
			Street:     m.Street,
			PostalCode: m.PostalCode,
			City:       m.City,
			Country:    m.Country,
		},
		Email: m.Email,
		Phone: m.Phone,
		IBAN:  m.IBAN,
		BIC:   m.BIC,
		Tax: company.TaxSettings{
			TaxNumber:     m.TaxNumber,
			VATID:         m.VATID,
			SmallBusiness: m.SmallBusiness,
			VATPeriod:     m.VATPeriod,
		},
		DATEV: company.DATEVSettings{
			ConsultantNumber: m.ConsultantNumber,
			ClientNumber:     m.ClientNumber,
			Chart:            m.Chart,
			FiscalYearStart:  m.FiscalYearStart,
		},
		InvoicePrefix:    m.InvoicePrefix,
		PaymentTermsDays: m.PaymentTermsDays,
		Subscription: company.Subscription{
			Plan:             m.Plan,
			Status:           m.SubscriptionStatus,
			StripeCustomerID: m.StripeCustomerID,
			SubscriptionID:   m.SubscriptionID,
			CurrentPeriodEnd: m.CurrentPeriodEnd,
		},
		ReferralCode:   m.ReferralCode,
		ReferredByCode: m.ReferredByCode,
	}
}

// FromDomain populates the persistence model from a domain Company
func (m *CompanyModel) FromDomain(c *company.Company) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.Name = c.Name
	m.LegalForm = c.LegalForm
	m.Street = c.Address.Street
	m.PostalCode = c.Address.PostalCode
	m.City = c.Address.City
	m.Country = c.Address.Country
	m.Email = c.Email
	m.Phone = c.Phone
	m.IBAN = c.IBAN
	m.BIC = c.BIC
	m.TaxNumber = c.Tax.TaxNumber
	m.VATID = c.Tax.VATID
	m.SmallBusiness = c.Tax.SmallBusiness
	m.VATPeriod = c.Tax.VATPeriod
	m.Chart = c.DATEV.Chart
	m.ConsultantNumber = c.DATEV.ConsultantNumber
	m.ClientNumber = c.DATEV.ClientNumber
	m.FiscalYearStart = c.DATEV.FiscalYearStart
	m.InvoicePrefix = c.InvoicePrefix
	m.PaymentTermsDays = c.PaymentTermsDays
	m.StripeCustomerID = c.Subscription.StripeCustomerID
	m.Plan = c.Subscription.Plan
	m.SubscriptionStatus = c.Subscription.Status
	m.SubscriptionID = c.Subscription.SubscriptionID
	m.CurrentPeriodEnd = c.Subscription.CurrentPeriodEnd
	m.ReferralCode = c.ReferralCode
	m.ReferredByCode = c.ReferredByCode
}

// CompanyModelFromDomain creates a new persistence model from a domain Company
func CompanyModelFromDomain(c *company.Company) *CompanyModel {
	m := &CompanyModel{}
	m.FromDomain(c)
	return m
}

// SequenceModel backs per-tenant number ranges (invoice and customer numbers)
type SequenceModel struct {
	TenantID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name     string    `gorm:"type:varchar(50);primaryKey"`
	Value    int64     `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (SequenceModel) TableName() string {
	return "number_sequences"
}
