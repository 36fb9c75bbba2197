package valueobject

import (
	"errors"
	"regexp"
	"strings"
)

var germanPostalCode = regexp.MustCompile(`^\d{5}$`)

// Address is a postal address as printed on invoices
type Address struct {
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	Country    string `json:"country"`
}

// NewAddress trims all parts and validates German postal codes
func NewAddress(street, postalCode, city, country string) (Address, error) {
	a := Address{
		Street:     strings.TrimSpace(street),
		PostalCode: strings.TrimSpace(postalCode),
		City:       strings.TrimSpace(city),
		Country:    strings.ToUpper(strings.TrimSpace(country)),
	}
	if a.Country == "" {
		a.Country = "DE"
	}
	if len(a.Country) != 2 {
		return Address{}, errors.New("country must be a two-letter ISO code")
	}
	if a.Country == "DE" && a.PostalCode != "" && !germanPostalCode.MatchString(a.PostalCode) {
		return Address{}, errors.New("German postal codes have five digits")
	}
	return a, nil
}

// IsEmpty reports whether no address line is set
func (a Address) IsEmpty() bool {
	return a.Street == "" && a.PostalCode == "" && a.City == ""
}

// Lines returns the address as printed lines, omitting the country for DE
func (a Address) Lines() []string {
	var lines []string
	if a.Street != "" {
		lines = append(lines, a.Street)
	}
	if city := strings.TrimSpace(a.PostalCode + " " + a.City); city != "" {
		lines = append(lines, city)
	}
	if a.Country != "" && a.Country != "DE" {
		lines = append(lines, a.Country)
	}
	return lines
}

func (a Address) String() string {
	return strings.Join(a.Lines(), ", ")
}
