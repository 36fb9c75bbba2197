package ledger

import (
	"github.com/kontor/backend/internal/domain/company"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
)

// CategoryKind says which sign of amount a category books
type CategoryKind string

const (
	KindIncome  CategoryKind = "income"
	KindExpense CategoryKind = "expense"
	KindNeutral CategoryKind = "neutral"
)

// Category is a booking category mapped to DATEV accounts
type Category struct {
	Code       string              `json:"code"`
	Label      string              `json:"label"`
	Kind       CategoryKind        `json:"kind"`
	DefaultVAT valueobject.VATRate `json:"default_vat_rate"`
	SKR03      string              `json:"skr03"`
	SKR04      string              `json:"skr04"`
	// AutoVAT accounts carry the tax key in the account itself (Automatikkonten)
	AutoVAT bool `json:"auto_vat"`
}

// Account returns the account number for a chart
func (c Category) Account(chart company.Chart) string {
	if chart == company.ChartSKR04 {
		return c.SKR04
	}
	return c.SKR03
}

// Allows reports whether an amount with the given sign can be booked here
func (c Category) Allows(amountPositive bool) bool {
	switch c.Kind {
	case KindIncome:
		return amountPositive
	case KindExpense:
		return !amountPositive
	}
	return true
}

var categories = []Category{
	{Code: "revenue_19", Label: "Umsatzerlöse 19 %", Kind: KindIncome, DefaultVAT: 19, SKR03: "8400", SKR04: "4400", AutoVAT: true},
	{Code: "revenue_7", Label: "Umsatzerlöse 7 %", Kind: KindIncome, DefaultVAT: 7, SKR03: "8300", SKR04: "4300", AutoVAT: true},
	{Code: "revenue_tax_free", Label: "Steuerfreie Umsätze", Kind: KindIncome, DefaultVAT: 0, SKR03: "8120", SKR04: "4120"},
	{Code: "revenue_eu_reverse", Label: "Erlöse innergemeinschaftliche Leistungen", Kind: KindIncome, DefaultVAT: 0, SKR03: "8338", SKR04: "4338"},
	{Code: "revenue_small_business", Label: "Erlöse Kleinunternehmer § 19 UStG", Kind: KindIncome, DefaultVAT: 0, SKR03: "8195", SKR04: "4185"},
	{Code: "other_income", Label: "Sonstige Erträge", Kind: KindIncome, DefaultVAT: 19, SKR03: "2700", SKR04: "4830"},
	{Code: "interest_income", Label: "Zinserträge", Kind: KindIncome, DefaultVAT: 0, SKR03: "2650", SKR04: "7100"},
	{Code: "goods_purchase", Label: "Wareneingang 19 %", Kind: KindExpense, DefaultVAT: 19, SKR03: "3400", SKR04: "5400", AutoVAT: true},
	{Code: "goods_purchase_7", Label: "Wareneingang 7 %", Kind: KindExpense, DefaultVAT: 7, SKR03: "3300", SKR04: "5300", AutoVAT: true},
	{Code: "third_party_services", Label: "Fremdleistungen", Kind: KindExpense, DefaultVAT: 19, SKR03: "3100", SKR04: "5900"},
	{Code: "wages", Label: "Löhne und Gehälter", Kind: KindExpense, DefaultVAT: 0, SKR03: "4100", SKR04: "6000"},
	{Code: "rent", Label: "Miete", Kind: KindExpense, DefaultVAT: 0, SKR03: "4210", SKR04: "6310"},
	{Code: "utilities", Label: "Gas, Strom, Wasser", Kind: KindExpense, DefaultVAT: 19, SKR03: "4240", SKR04: "6325"},
	{Code: "insurance", Label: "Versicherungen", Kind: KindExpense, DefaultVAT: 0, SKR03: "4360", SKR04: "6400"},
	{Code: "vehicle_costs", Label: "Kfz-Kosten", Kind: KindExpense, DefaultVAT: 19, SKR03: "4530", SKR04: "6530"},
	{Code: "advertising", Label: "Werbekosten", Kind: KindExpense, DefaultVAT: 19, SKR03: "4600", SKR04: "6600"},
	{Code: "travel", Label: "Reisekosten", Kind: KindExpense, DefaultVAT: 7, SKR03: "4660", SKR04: "6650"},
	{Code: "hospitality", Label: "Bewirtungskosten", Kind: KindExpense, DefaultVAT: 19, SKR03: "4650", SKR04: "6640"},
	{Code: "postage", Label: "Porto", Kind: KindExpense, DefaultVAT: 0, SKR03: "4910", SKR04: "6800"},
	{Code: "telecommunication", Label: "Telefon und Internet", Kind: KindExpense, DefaultVAT: 19, SKR03: "4920", SKR04: "6805"},
	{Code: "office_supplies", Label: "Bürobedarf", Kind: KindExpense, DefaultVAT: 19, SKR03: "4930", SKR04: "6815"},
	{Code: "software", Label: "Software und Lizenzen", Kind: KindExpense, DefaultVAT: 19, SKR03: "4964", SKR04: "6837"},
	{Code: "literature", Label: "Fachliteratur", Kind: KindExpense, DefaultVAT: 7, SKR03: "4940", SKR04: "6820"},
	{Code: "legal_consulting", Label: "Rechts- und Beratungskosten", Kind: KindExpense, DefaultVAT: 19, SKR03: "4950", SKR04: "6825"},
	{Code: "bookkeeping", Label: "Buchführungskosten", Kind: KindExpense, DefaultVAT: 19, SKR03: "4955", SKR04: "6830"},
	{Code: "bank_fees", Label: "Nebenkosten des Geldverkehrs", Kind: KindExpense, DefaultVAT: 0, SKR03: "4970", SKR04: "6855"},
	{Code: "training", Label: "Fortbildungskosten", Kind: KindExpense, DefaultVAT: 19, SKR03: "4945", SKR04: "6821"},
	{Code: "low_value_assets", Label: "Geringwertige Wirtschaftsgüter", Kind: KindExpense, DefaultVAT: 19, SKR03: "0480", SKR04: "0670"},
	{Code: "other_expenses", Label: "Sonstige betriebliche Aufwendungen", Kind: KindExpense, DefaultVAT: 19, SKR03: "4900", SKR04: "6300"},
	{Code: "tax_payment", Label: "Umsatzsteuer-Vorauszahlung", Kind: KindExpense, DefaultVAT: 0, SKR03: "1780", SKR04: "3820"},
	{Code: "private_withdrawal", Label: "Privatentnahmen", Kind: KindNeutral, DefaultVAT: 0, SKR03: "1800", SKR04: "2100"},
	{Code: "private_deposit", Label: "Privateinlagen", Kind: KindNeutral, DefaultVAT: 0, SKR03: "1890", SKR04: "2180"},
	{Code: "transfer", Label: "Geldtransit", Kind: KindNeutral, DefaultVAT: 0, SKR03: "1360", SKR04: "1460"},
	{Code: "loan", Label: "Darlehen", Kind: KindNeutral, DefaultVAT: 0, SKR03: "0630", SKR04: "3150"},
}

var categoryIndex = func() map[string]Category {
	m := make(map[string]Category, len(categories))
	for _, c := range categories {
		m[c.Code] = c
	}
	return m
}()

// Categories returns the static chart of booking categories
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// CategoryByCode looks up a category
func CategoryByCode(code string) (Category, bool) {
	c, ok := categoryIndex[code]
	return c, ok
}

// BankClearingAccount returns the bank account number of the chart
func BankClearingAccount(chart company.Chart) string {
	if chart == company.ChartSKR04 {
		return "1800"
	}
	return "1200"
}
