package valueobject

import (
	"errors"
	"math/big"
	"strings"
)

// ErrInvalidIBAN is returned for malformed or checksum-failing IBANs
var ErrInvalidIBAN = errors.New("invalid IBAN")

// ibanLengths for the countries customers bank with most often
var ibanLengths = map[string]int{
	"DE": 22, "AT": 20, "CH": 21, "NL": 18, "BE": 16, "FR": 27,
	"IT": 27, "ES": 24, "LU": 20, "GB": 22, "IE": 22, "PL": 28,
}

// IBAN is a normalized international bank account number
type IBAN string

// ParseIBAN strips spaces, upper-cases and validates the mod-97 checksum
func ParseIBAN(s string) (IBAN, error) {
	norm := NormalizeIBAN(s)
	if len(norm) < 15 || len(norm) > 34 {
		return "", ErrInvalidIBAN
	}
	if want, ok := ibanLengths[norm[:2]]; ok && len(norm) != want {
		return "", ErrInvalidIBAN
	}
	for i, c := range norm {
		isLetter := c >= 'A' && c <= 'Z'
		isDigit := c >= '0' && c <= '9'
		if i < 2 && !isLetter || i >= 2 && i < 4 && !isDigit || !isLetter && !isDigit {
			return "", ErrInvalidIBAN
		}
	}
	if !ibanChecksumOK(norm) {
		return "", ErrInvalidIBAN
	}
	return IBAN(norm), nil
}

// NormalizeIBAN removes whitespace and upper-cases
func NormalizeIBAN(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

// Formatted groups the IBAN in blocks of four
func (i IBAN) Formatted() string {
	s := string(i)
	var b strings.Builder
	for n := 0; n < len(s); n += 4 {
		if n > 0 {
			b.WriteByte(' ')
		}
		end := n + 4
		if end > len(s) {
			end = len(s)
		}
		b.WriteString(s[n:end])
	}
	return b.String()
}

// Country returns the two-letter country code
func (i IBAN) Country() string {
	if len(i) < 2 {
		return ""
	}
	return string(i[:2])
}

func ibanChecksumOK(norm string) bool {
	rearranged := norm[4:] + norm[:4]
	var digits strings.Builder
	for _, c := range rearranged {
		if c >= 'A' && c <= 'Z' {
			digits.WriteString(big.NewInt(int64(c - 'A' + 10)).String())
		} else {
			digits.WriteRune(c)
		}
	}
	n, ok := new(big.Int).SetString(digits.String(), 10)
	if !ok {
		return false
	}
	return new(big.Int).Mod(n, big.NewInt(97)).Int64() == 1
}
