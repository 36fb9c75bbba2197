package valueobject

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// VATRate is a German value added tax rate in whole percent
type VATRate int

const (
	VATZero     VATRate = 0
	VATReduced  VATRate = 7
	VATStandard VATRate = 19
)

// ParseVATRate validates a percentage
func ParseVATRate(percent int) (VATRate, error) {
	r := VATRate(percent)
	if !r.IsValid() {
		return 0, fmt.Errorf("unsupported VAT rate %d%%", percent)
	}
	return r, nil
}

// IsValid reports whether the rate is one of 0, 7 or 19 percent
func (r VATRate) IsValid() bool {
	switch r {
	case VATZero, VATReduced, VATStandard:
		return true
	}
	return false
}

// Factor returns the rate as a fraction, e.g. 0.19
func (r VATRate) Factor() decimal.Decimal {
	return decimal.New(int64(r), -2)
}

// TaxOnNet returns the tax for a net amount, rounded to cents
func (r VATRate) TaxOnNet(net decimal.Decimal) decimal.Decimal {
	return RoundCents(net.Mul(r.Factor()))
}

// Split divides a gross amount into net and tax. Tax is derived from the
// rounded net so that net + tax always equals gross.
func (r VATRate) Split(gross decimal.Decimal) (net, tax decimal.Decimal) {
	if r == VATZero {
		return gross, decimal.Zero
	}
	net = RoundCents(gross.Div(decimal.NewFromInt(1).Add(r.Factor())))
	return net, gross.Sub(net)
}

func (r VATRate) String() string {
	return fmt.Sprintf("%d%%", int(r))
}
