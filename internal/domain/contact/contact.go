package contact

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
)

// ContactType says whether a contact buys, sells or both
type ContactType string

const (
	TypeCustomer ContactType = "customer"
	TypeSupplier ContactType = "supplier"
	TypeBoth     ContactType = "both"
)

func (t ContactType) IsValid() bool {
	return t == TypeCustomer || t == TypeSupplier || t == TypeBoth
}

// IsCustomer reports whether invoices can be addressed to this type
func (t ContactType) IsCustomer() bool {
	return t == TypeCustomer || t == TypeBoth
}

var vatIDPattern = regexp.MustCompile(`^[A-Z]{2}[0-9A-Z]{2,13}$`)

// FormatCustomerNumber renders the per-tenant customer sequence
func FormatCustomerNumber(seq int64) string {
	return fmt.Sprintf("K-%05d", seq)
}

// Contact is a customer or supplier of the company
type Contact struct {
	shared.TenantAggregateRoot
	Type                ContactType
	Name                string
	ContactPerson       string
	Email               string
	Phone               string
	Address             valueobject.Address
	VATID               string
	TaxNumber           string
	IBAN                string
	DefaultCategoryCode string
	Notes               string
	CustomerNumber      string
	Archived            bool
}

// Details carries the editable fields of a contact
type Details struct {
	Type                ContactType
	Name                string
	ContactPerson       string
	Email               string
	Phone               string
	Address             valueobject.Address
	VATID               string
	TaxNumber           string
	IBAN                string
	DefaultCategoryCode string
	Notes               string
}

// NewContact creates a contact. Customers receive their number from
// AssignCustomerNumber once the repository has the next sequence.
func NewContact(tenantID uuid.UUID, d Details) (*Contact, error) {
	c := &Contact{TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID)}
	if err := c.apply(d); err != nil {
		return nil, err
	}
	return c, nil
}

// Update replaces the editable fields
func (c *Contact) Update(d Details) error {
	if err := c.apply(d); err != nil {
		return err
	}
	c.Touch()
	return nil
}

func (c *Contact) apply(d Details) error {
	if !d.Type.IsValid() {
		return shared.NewDomainError("INVALID_CONTACT_TYPE", "Contact type must be customer, supplier or both")
	}
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Contact name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Contact name cannot exceed 200 characters")
	}
	email := strings.ToLower(strings.TrimSpace(d.Email))
	if email != "" && !strings.Contains(email, "@") {
		return shared.NewDomainError("INVALID_EMAIL", "Email address is not valid")
	}
	vatID := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(d.VATID), " ", ""))
	if vatID != "" && !vatIDPattern.MatchString(vatID) {
		return shared.NewDomainError("INVALID_VAT_ID", "VAT id is not valid")
	}
	iban := ""
	if strings.TrimSpace(d.IBAN) != "" {
		parsed, err := valueobject.ParseIBAN(d.IBAN)
		if err != nil {
			return shared.NewDomainError("INVALID_IBAN", "IBAN is not valid")
		}
		iban = string(parsed)
	}

	c.Type = d.Type
	c.Name = name
	c.ContactPerson = strings.TrimSpace(d.ContactPerson)
	c.Email = email
	c.Phone = strings.TrimSpace(d.Phone)
	c.Address = d.Address
	c.VATID = vatID
	c.TaxNumber = strings.TrimSpace(d.TaxNumber)
	c.IBAN = iban
	c.DefaultCategoryCode = strings.TrimSpace(d.DefaultCategoryCode)
	c.Notes = d.Notes
	return nil
}

// NeedsCustomerNumber reports whether a customer number is still missing
func (c *Contact) NeedsCustomerNumber() bool {
	return c.Type.IsCustomer() && c.CustomerNumber == ""
}

// AssignCustomerNumber sets the number once
func (c *Contact) AssignCustomerNumber(seq int64) {
	if c.CustomerNumber != "" {
		return
	}
	c.CustomerNumber = FormatCustomerNumber(seq)
}

// IsForeignEU reports whether the contact has an EU VAT id outside Germany,
// which makes reverse charge possible
func (c *Contact) IsForeignEU() bool {
	return c.VATID != "" && !strings.HasPrefix(c.VATID, "DE")
}

// Archive hides the contact from pickers
func (c *Contact) Archive() error {
	if c.Archived {
		return shared.NewDomainError("INVALID_STATE", "Contact is already archived")
	}
	c.Archived = true
	c.Touch()
	return nil
}

// Unarchive restores an archived contact
func (c *Contact) Unarchive() {
	c.Archived = false
	c.Touch()
}
