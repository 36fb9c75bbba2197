package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	EUR Currency = "EUR"
	USD Currency = "USD"
	CHF Currency = "CHF"
	GBP Currency = "GBP"
)

// DefaultCurrency is the bookkeeping currency
const DefaultCurrency = EUR

// centPlaces is the precision used for all booked amounts
const centPlaces = 2

// Money is an immutable amount in a currency
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates Money with the given amount and currency
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{amount: amount, currency: currency}, nil
}

// EURO creates Money in euros
func EURO(amount decimal.Decimal) Money {
	return Money{amount: amount, currency: EUR}
}

// EUROFromString parses a dot-decimal string into euros
func EUROFromString(amount string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return EURO(d), nil
}

// EUROFromCents creates Money from an integer cent value
func EUROFromCents(cents int64) Money {
	return EURO(decimal.New(cents, -centPlaces))
}

// Zero returns a zero-value Money in the specified currency
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() Currency      { return m.currency }
func (m Money) IsZero() bool            { return m.amount.IsZero() }
func (m Money) IsPositive() bool        { return m.amount.IsPositive() }
func (m Money) IsNegative() bool        { return m.amount.IsNegative() }

// Add returns the sum; currencies must match
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot add money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Subtract returns the difference; currencies must match
func (m Money) Subtract(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot subtract money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// Multiply returns the amount multiplied by factor
func (m Money) Multiply(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor), currency: m.currency}
}

func (m Money) Negate() Money { return Money{amount: m.amount.Neg(), currency: m.currency} }
func (m Money) Abs() Money    { return Money{amount: m.amount.Abs(), currency: m.currency} }

// Rounded rounds half away from zero to whole cents
func (m Money) Rounded() Money {
	return Money{amount: RoundCents(m.amount), currency: m.currency}
}

// Cents returns the amount in whole cents after rounding
func (m Money) Cents() int64 {
	return RoundCents(m.amount).Shift(centPlaces).IntPart()
}

// Equals compares amount and currency
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// String formats the amount with two decimals and the currency code
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(centPlaces), m.currency)
}

// German formats the amount the way German documents print it: 1.234,56 €
func (m Money) German() string {
	return FormatGerman(m.amount) + " " + currencySymbol(m.currency)
}

type moneyJSON struct {
	Amount   string   `json:"amount"`
	Currency Currency `json:"currency"`
}

// MarshalJSON encodes Money as {"amount":"12.34","currency":"EUR"}
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount.StringFixed(centPlaces), Currency: m.currency})
}

// UnmarshalJSON decodes Money from its JSON object form
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(raw.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	if raw.Currency == "" {
		raw.Currency = DefaultCurrency
	}
	m.amount = amount
	m.currency = raw.Currency
	return nil
}

// RoundCents rounds half away from zero to two decimal places
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(centPlaces)
}

// FormatGerman renders d with '.' thousands grouping and ',' decimal mark
func FormatGerman(d decimal.Decimal) string {
	s := RoundCents(d).StringFixed(centPlaces)
	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}
	intPart, frac := s[:len(s)-3], s[len(s)-2:]
	var grouped []byte
	for i := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped = append(grouped, '.')
		}
		grouped = append(grouped, intPart[i])
	}
	out := string(grouped) + "," + frac
	if neg {
		out = "-" + out
	}
	return out
}

func currencySymbol(c Currency) string {
	switch c {
	case EUR:
		return "€"
	case USD:
		return "$"
	case GBP:
		return "£"
	default:
		return string(c)
	}
}
