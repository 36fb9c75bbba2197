package models

import (
	"github.com/kontor/backend/internal/domain/contact"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
)

// ContactModel is the persistence model for the Contact aggregate
type ContactModel struct {
	TenantAggregateModel
	Type                contact.ContactType `gorm:"type:varchar(20);not null;index"`
	Name                string              `gorm:"type:varchar(200);not null"`
	ContactPerson       string              `gorm:"type:varchar(200)"`
	Email               string              `gorm:"type:varchar(200)"`
	Phone               string              `gorm:"type:varchar(50)"`
	Street              string              `gorm:"type:varchar(200)"`
	PostalCode          string              `gorm:"type:varchar(20)"`
	City                string              `gorm:"type:varchar(100)"`
	Country             string              `gorm:"type:varchar(2);not null;default:'DE'"`
	VATID               string              `gorm:"column:vat_id;type:varchar(20)"`
	TaxNumber           string              `gorm:"type:varchar(20)"`
	IBAN                string              `gorm:"column:iban;type:varchar(34)"`
	DefaultCategoryCode string              `gorm:"type:varchar(50)"`
	Notes               string              `gorm:"type:text"`
	CustomerNumber      string              `gorm:"type:varchar(20);index"`
	Archived            bool                `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (ContactModel) TableName() string {
	return "contacts"
}

// ToDomain converts the persistence model to a domain Contact
func (m *ContactModel) ToDomain() *contact.Contact {
	c := &contact.Contact{
		Type:          m.Type,
		Name:          m.Name,
		ContactPerson: m.ContactPerson,
		Email:         m.Email,
		Phone:         m.Phone,
		Address: valueobject.Address{
			Street:     m.Street,
			PostalCode: m.PostalCode,
			City:       m.City,
			Country:    m.Country,
		},
		VATID:               m.VATID,
		TaxNumber:           m.TaxNumber,
		IBAN:                m.IBAN,
		DefaultCategoryCode: m.DefaultCategoryCode,
		Notes:               m.Notes,
		CustomerNumber:      m.CustomerNumber,
		Archived:            m.Archived,
	}
	m.PopulateTenantAggregateRoot(&c.TenantAggregateRoot)
	return c
}

// FromDomain populates the persistence model from a domain Contact
func (m *ContactModel) FromDomain(c *contact.Contact) {
	m.FromDomainTenantAggregateRoot(c.TenantAggregateRoot)
	m.Type = c.Type
	m.Name = c.Name
	m.ContactPerson = c.ContactPerson
	m.Email = c.Email
	m.Phone = c.Phone
	m.Street = c.Address.Street
	m.PostalCode = c.Address.PostalCode
	m.City = c.Address.City
	m.Country = c.Address.Country
	m.VATID = c.VATID
	m.TaxNumber = c.TaxNumber
	m.IBAN = c.IBAN
	m.DefaultCategoryCode = c.DefaultCategoryCode
	m.Notes = c.Notes
	m.CustomerNumber = c.CustomerNumber
	m.Archived = c.Archived
}

// ContactModelFromDomain creates a new persistence model from a domain Contact
func ContactModelFromDomain(c *contact.Contact) *ContactModel {
	m := &ContactModel{}
	m.FromDomain(c)
	return m
}
