package invoice

import (
	"sort"

	"github.com/kontor/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// TaxGroup is the net sum and tax of all lines sharing a VAT rate
type TaxGroup struct {
	Rate valueobject.VATRate `json:"rate"`
	Net  decimal.Decimal     `json:"net"`
	Tax  decimal.Decimal     `json:"tax"`
}

// Totals are the summed amounts of an invoice
type Totals struct {
	Net    decimal.Decimal `json:"net"`
	Tax    decimal.Decimal `json:"tax"`
	Gross  decimal.Decimal `json:"gross"`
	Groups []TaxGroup      `json:"groups"`
}

// ComputeTotals sums line nets per VAT rate and computes the tax on each
// group sum. With zeroVAT set every group carries no tax. Line tax and gross
// are filled in proportionally for display; the group tax is authoritative.
func ComputeTotals(items []LineItem, zeroVAT bool) Totals {
	byRate := make(map[valueobject.VATRate]decimal.Decimal)
	for _, it := range items {
		byRate[effectiveRate(it.VATRate, zeroVAT)] = byRate[effectiveRate(it.VATRate, zeroVAT)].Add(it.NetAmount)
	}

	t := Totals{Net: decimal.Zero, Tax: decimal.Zero}
	for rate, net := range byRate {
		tax := rate.TaxOnNet(net)
		t.Groups = append(t.Groups, TaxGroup{Rate: rate, Net: net, Tax: tax})
		t.Net = t.Net.Add(net)
		t.Tax = t.Tax.Add(tax)
	}
	sort.Slice(t.Groups, func(i, j int) bool { return t.Groups[i].Rate > t.Groups[j].Rate })
	t.Gross = t.Net.Add(t.Tax)
	return t
}

func effectiveRate(r valueobject.VATRate, zeroVAT bool) valueobject.VATRate {
	if zeroVAT {
		return valueobject.VATZero
	}
	return r
}

func fillLineAmounts(items []LineItem, zeroVAT bool) {
	for i := range items {
		rate := effectiveRate(items[i].VATRate, zeroVAT)
		items[i].TaxAmount = rate.TaxOnNet(items[i].NetAmount)
		items[i].GrossAmount = items[i].NetAmount.Add(items[i].TaxAmount)
	}
}
