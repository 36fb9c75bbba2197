package csvimport

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for amounts that cannot be parsed
var ErrInvalidAmount = errors.New("invalid amount")

// DecimalMark is the character a bank format uses between euros and cents
type DecimalMark byte

const (
	DecimalComma DecimalMark = ','
	DecimalPoint DecimalMark = '.'
)

var amountNoise = strings.NewReplacer(
	"€", "", "EUR", "", "eur", "", "Eur", "",
	" ", "", "\u00a0", "", "\u202f", "", "'", "", "\t", "",
)

// ParseAmount parses bank statement amounts such as "1.234,56", "-12,00",
// "12,00-", "(12,00)", "1,234.56" or "+5 €". The mark tells which separator
// the bank uses for decimals when only one kind of separator is present.
func ParseAmount(s string, mark DecimalMark) (decimal.Decimal, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	negative := false
	upper := strings.ToUpper(v)
	switch {
	case strings.HasSuffix(upper, " S"):
		negative = true
		v = v[:len(v)-2]
	case strings.HasSuffix(upper, " H"):
		v = v[:len(v)-2]
	}

	v = amountNoise.Replace(v)
	v = strings.ReplaceAll(v, "−", "-")

	if strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")") {
		negative = !negative
		v = v[1 : len(v)-1]
	}
	switch {
	case strings.HasPrefix(v, "-"):
		negative = !negative
		v = v[1:]
	case strings.HasPrefix(v, "+"):
		v = v[1:]
	case strings.HasSuffix(v, "-"):
		negative = !negative
		v = v[:len(v)-1]
	}
	if v == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, c := range v {
		if (c < '0' || c > '9') && c != '.' && c != ',' {
			return decimal.Zero, ErrInvalidAmount
		}
	}

	normalized, err := normalizeSeparators(v, mark)
	if err != nil {
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// normalizeSeparators rewrites v to a plain "1234.56" string
func normalizeSeparators(v string, mark DecimalMark) (string, error) {
	lastDot := strings.LastIndexByte(v, '.')
	lastComma := strings.LastIndexByte(v, ',')

	var decimalSep byte
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastDot > lastComma {
			decimalSep = '.'
		} else {
			decimalSep = ','
		}
	case lastDot >= 0 || lastComma >= 0:
		sep := byte('.')
		idx := lastDot
		if lastComma >= 0 {
			sep = ','
			idx = lastComma
		}
		count := strings.Count(v, string(sep))
		groupsOfThree := len(v)-idx-1 == 3
		if DecimalMark(sep) == mark || (count == 1 && !groupsOfThree) {
			decimalSep = sep
		}
	}

	var b strings.Builder
	seenDecimal := false
	for i := 0; i < len(v); i++ {
		c := v[i]
		switch {
		case c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == decimalSep:
			if seenDecimal {
				return "", ErrInvalidAmount
			}
			seenDecimal = true
			b.WriteByte('.')
		default:
			// thousands separator: must be followed by exactly three digits
			if i == 0 || !isDigitGroup(v[i+1:]) {
				return "", ErrInvalidAmount
			}
		}
	}
	out := b.String()
	if out == "" || out == "." {
		return "", ErrInvalidAmount
	}
	return out, nil
}

func isDigitGroup(rest string) bool {
	if len(rest) < 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if rest[i] < '0' || rest[i] > '9' {
			return false
		}
	}
	return len(rest) == 3 || rest[3] == '.' || rest[3] == ','
}
