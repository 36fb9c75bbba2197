package taxexport

import (
	"sort"

	"github.com/kontor/backend/internal/domain/ledger"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// RateTotals is net and tax of one VAT rate
type RateTotals struct {
	Rate valueobject.VATRate `json:"rate"`
	Net  decimal.Decimal     `json:"net"`
	Tax  decimal.Decimal     `json:"tax"`
}

// VATSummary aggregates booked transactions by direction and rate
type VATSummary struct {
	Income       []RateTotals    `json:"income"`
	Expenses     []RateTotals    `json:"expenses"`
	OutputVAT    decimal.Decimal `json:"output_vat"`
	InputVAT     decimal.Decimal `json:"input_vat"`
	VATPayable   decimal.Decimal `json:"vat_payable"`
	Transactions int             `json:"transactions"`
}

// Summarize computes the VAT summary over booked transactions. Neutral
// categories such as private withdrawals do not count.
func Summarize(txs []*ledger.Transaction) VATSummary {
	income := make(map[valueobject.VATRate]*RateTotals)
	expenses := make(map[valueobject.VATRate]*RateTotals)
	add := func(m map[valueobject.VATRate]*RateTotals, rate valueobject.VATRate, net, tax decimal.Decimal) {
		rt, ok := m[rate]
		if !ok {
			rt = &RateTotals{Rate: rate, Net: decimal.Zero, Tax: decimal.Zero}
			m[rate] = rt
		}
		rt.Net = rt.Net.Add(net)
		rt.Tax = rt.Tax.Add(tax)
	}

	s := VATSummary{OutputVAT: decimal.Zero, InputVAT: decimal.Zero}
	for _, tx := range txs {
		if tx.Status != ledger.StatusBooked {
			continue
		}
		cat, ok := ledger.CategoryByCode(tx.CategoryCode)
		if !ok || cat.Kind == ledger.KindNeutral {
			continue
		}
		rate := valueobject.VATZero
		if tx.VATRate != nil {
			rate = *tx.VATRate
		}
		net, tax := tx.NetAndTax()
		s.Transactions++
		if tx.IsIncome() {
			add(income, rate, net, tax)
			s.OutputVAT = s.OutputVAT.Add(tax)
		} else {
			add(expenses, rate, net, tax)
			s.InputVAT = s.InputVAT.Add(tax)
		}
	}
	s.Income = flatten(income)
	s.Expenses = flatten(expenses)
	s.VATPayable = s.OutputVAT.Sub(s.InputVAT)
	return s
}

func flatten(m map[valueobject.VATRate]*RateTotals) []RateTotals {
	out := make([]RateTotals, 0, len(m))
	for _, rt := range m {
		out = append(out, *rt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rate > out[j].Rate })
	return out
}

// NetIncome returns the income net at rate
func (s VATSummary) NetIncome(rate valueobject.VATRate) decimal.Decimal {
	for _, rt := range s.Income {
		if rt.Rate == rate {
			return rt.Net
		}
	}
	return decimal.Zero
}
