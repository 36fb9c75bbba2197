package csvimport

import (
	"strings"
)

// Columns lists candidate header names (normalized) for each statement field.
// The first candidate present in a file wins.
type Columns struct {
	BookingDate  []string
	ValueDate    []string
	Amount       []string
	Debit        []string // Soll
	Credit       []string // Haben
	Currency     []string
	Counterparty []string
	// CounterpartyPayer and CounterpartyPayee are used by banks that split
	// the counterparty by direction; payer for income, payee for expenses.
	CounterpartyPayer []string
	CounterpartyPayee []string
	CounterpartyIBAN  []string
	Purpose           []string
	BookingText       []string
	Status            []string
}

// BankFormat describes the CSV export layout of one bank
type BankFormat struct {
	ID          string
	Name        string
	Required    []string
	Columns     Columns
	DecimalMark DecimalMark
	// PendingStatus marks rows that are not booked yet and are skipped
	PendingStatus string
}

// Bank format identifiers
const (
	FormatSparkasse    = "sparkasse"
	FormatDeutscheBank = "deutsche_bank"
	FormatCommerzbank  = "commerzbank"
	FormatING          = "ing"
	FormatDKB          = "dkb"
	FormatN26          = "n26"
	FormatVolksbank    = "volksbank"
	FormatPostbank     = "postbank"
	FormatGeneric      = "generic"
)

// knownFormats in detection priority order
var knownFormats = []BankFormat{
	{
		ID:       FormatSparkasse,
		Name:     "Sparkasse (CAMT-CSV)",
		Required: []string{"buchungstag", "valutadatum", "verwendungszweck", "beguenstigter/zahlungspflichtiger", "betrag"},
		Columns: Columns{
			BookingDate:      []string{"buchungstag"},
			ValueDate:        []string{"valutadatum"},
			Amount:           []string{"betrag"},
			Currency:         []string{"waehrung"},
			Counterparty:     []string{"beguenstigter/zahlungspflichtiger"},
			CounterpartyIBAN: []string{"kontonummer/iban", "kontonummer"},
			Purpose:          []string{"verwendungszweck"},
			BookingText:      []string{"buchungstext"},
		},
		DecimalMark: DecimalComma,
	},
	{
		ID:       FormatDeutscheBank,
		Name:     "Deutsche Bank",
		Required: []string{"buchungstag", "wert", "beguenstigter / auftraggeber", "verwendungszweck", "soll", "haben"},
		Columns: Columns{
			BookingDate:      []string{"buchungstag"},
			ValueDate:        []string{"wert"},
			Debit:            []string{"soll"},
			Credit:           []string{"haben"},
			Currency:         []string{"waehrung"},
			Counterparty:     []string{"beguenstigter / auftraggeber"},
			CounterpartyIBAN: []string{"iban"},
			Purpose:          []string{"verwendungszweck"},
			BookingText:      []string{"umsatzart"},
		},
		DecimalMark: DecimalComma,
	},
	{
		ID:       FormatCommerzbank,
		Name:     "Commerzbank",
		Required: []string{"buchungstag", "wertstellung", "umsatzart", "buchungstext", "betrag"},
		Columns: Columns{
			BookingDate: []string{"buchungstag"},
			ValueDate:   []string{"wertstellung"},
			Amount:      []string{"betrag"},
			Currency:    []string{"waehrung"},
			Purpose:     []string{"buchungstext"},
			BookingText: []string{"umsatzart"},
		},
		DecimalMark: DecimalComma,
	},
	{
		ID:       FormatING,
		Name:     "ING",
		Required: []string{"buchung", "valuta", "auftraggeber/empfaenger", "verwendungszweck", "betrag"},
		Columns: Columns{
			BookingDate:  []string{"buchung"},
			ValueDate:    []string{"valuta"},
			Amount:       []string{"betrag"},
			Currency:     []string{"waehrung"},
			Counterparty: []string{"auftraggeber/empfaenger"},
			Purpose:      []string{"verwendungszweck"},
			BookingText:  []string{"buchungstext"},
		},
		DecimalMark: DecimalComma,
	},
	{
		ID:       FormatDKB,
		Name:     "DKB",
		Required: []string{"buchungsdatum", "wertstellung", "zahlungspflichtige*r", "zahlungsempfaenger*in", "betrag (€)"},
		Columns: Columns{
			BookingDate:       []string{"buchungsdatum"},
			ValueDate:         []string{"wertstellung"},
			Amount:            []string{"betrag (€)"},
			CounterpartyPayer: []string{"zahlungspflichtige*r"},
			CounterpartyPayee: []string{"zahlungsempfaenger*in"},
			CounterpartyIBAN:  []string{"iban"},
			Purpose:           []string{"verwendungszweck"},
			BookingText:       []string{"umsatztyp"},
			Status:            []string{"status"},
		},
		DecimalMark:   DecimalComma,
		PendingStatus: "vorgemerkt",
	},
	{
		ID:       FormatN26,
		Name:     "N26",
		Required: []string{"payment reference", "amount (eur)"},
		Columns: Columns{
			BookingDate:      []string{"booking date", "date"},
			ValueDate:        []string{"value date"},
			Amount:           []string{"amount (eur)"},
			Counterparty:     []string{"partner name", "payee"},
			CounterpartyIBAN: []string{"partner iban", "account number"},
			Purpose:          []string{"payment reference"},
			BookingText:      []string{"type", "transaction type"},
		},
		DecimalMark: DecimalPoint,
	},
	{
		ID:       FormatVolksbank,
		Name:     "Volksbank / Raiffeisenbank",
		Required: []string{"buchungstag", "valutadatum", "name zahlungsbeteiligter", "betrag"},
		Columns: Columns{
			BookingDate:      []string{"buchungstag"},
			ValueDate:        []string{"valutadatum"},
			Amount:           []string{"betrag"},
			Currency:         []string{"waehrung"},
			Counterparty:     []string{"name zahlungsbeteiligter"},
			CounterpartyIBAN: []string{"iban zahlungsbeteiligter"},
			Purpose:          []string{"verwendungszweck"},
			BookingText:      []string{"buchungstext"},
		},
		DecimalMark: DecimalComma,
	},
	{
		ID:       FormatPostbank,
		Name:     "Postbank",
		Required: []string{"buchungstag", "wert", "beguenstigter / auftraggeber", "betrag (€)"},
		Columns: Columns{
			BookingDate:      []string{"buchungstag"},
			ValueDate:        []string{"wert"},
			Amount:           []string{"betrag (€)"},
			Counterparty:     []string{"beguenstigter / auftraggeber"},
			CounterpartyIBAN: []string{"iban / kontonummer", "iban"},
			Purpose:          []string{"verwendungszweck"},
			BookingText:      []string{"umsatzart"},
		},
		DecimalMark: DecimalComma,
	},
}

// KnownFormats returns the supported bank layouts in detection order
func KnownFormats() []BankFormat {
	out := make([]BankFormat, len(knownFormats))
	copy(out, knownFormats)
	return out
}

// FormatByID looks up a known format, including the generic fallback
func FormatByID(id string) (BankFormat, bool) {
	for _, f := range knownFormats {
		if f.ID == id {
			return f, true
		}
	}
	return BankFormat{}, false
}

var umlauts = strings.NewReplacer("ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss")

// NormalizeHeader lower-cases, strips quotes and transliterates umlauts so
// "Begünstigter / Auftraggeber" and "Beguenstigter / Auftraggeber" compare equal.
func NormalizeHeader(h string) string {
	h = strings.ToLower(trimSpaces(h))
	h = strings.Trim(h, `"'`)
	h = umlauts.Replace(h)
	return strings.Join(strings.Fields(h), " ")
}

// DetectFormat picks the known format whose required headers are all present,
// preferring the one matching the most column candidates. Headers that fit no
// bank but carry a date and an amount column yield a generic format.
func DetectFormat(headers []string) (BankFormat, bool) {
	if f, ok := detectKnown(headers); ok {
		return f, true
	}
	return genericFormat(headers)
}

func detectKnown(headers []string) (BankFormat, bool) {
	present := normalizedSet(headers)
	best := -1
	bestScore := 0
	for i, f := range knownFormats {
		if !hasAll(present, f.Required) {
			continue
		}
		if score := f.Columns.matchCount(present); score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return BankFormat{}, false
	}
	return knownFormats[best], true
}

func normalizedSet(headers []string) map[string]bool {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[NormalizeHeader(h)] = true
	}
	return present
}

func hasAll(present map[string]bool, names []string) bool {
	for _, n := range names {
		if !present[n] {
			return false
		}
	}
	return true
}

func (c Columns) matchCount(present map[string]bool) int {
	n := 0
	for _, group := range [][]string{
		c.BookingDate, c.ValueDate, c.Amount, c.Debit, c.Credit, c.Currency,
		c.Counterparty, c.CounterpartyPayer, c.CounterpartyPayee,
		c.CounterpartyIBAN, c.Purpose, c.BookingText, c.Status,
	} {
		for _, name := range group {
			if present[name] {
				n++
				break
			}
		}
	}
	return n
}

var genericHints = struct {
	date, value, amount, counterparty, iban, purpose, currency []string
}{
	date:         []string{"buchungstag", "buchungsdatum", "datum", "date", "buchung"},
	value:        []string{"valuta", "wertstellung", "value date"},
	amount:       []string{"betrag", "amount", "umsatz"},
	counterparty: []string{"empfaenger", "auftraggeber", "zahlungsbeteiligter", "payee", "partner", "name", "counterparty"},
	iban:         []string{"iban", "kontonummer"},
	purpose:      []string{"verwendungszweck", "zweck", "beschreibung", "description", "reference", "buchungstext", "text"},
	currency:     []string{"waehrung", "currency"},
}

// genericFormat builds a layout from header keywords
func genericFormat(headers []string) (BankFormat, bool) {
	f := BankFormat{ID: FormatGeneric, Name: "Generic CSV", DecimalMark: DecimalComma}
	pick := func(hints []string, exclude ...string) []string {
		for _, hint := range hints {
			for _, h := range headers {
				n := NormalizeHeader(h)
				if !strings.Contains(n, hint) || contains(exclude, n) {
					continue
				}
				return []string{n}
			}
		}
		return nil
	}
	f.Columns.BookingDate = pick(genericHints.date)
	f.Columns.Amount = pick(genericHints.amount)
	if f.Columns.BookingDate == nil || f.Columns.Amount == nil {
		return BankFormat{}, false
	}
	used := append(append([]string{}, f.Columns.BookingDate...), f.Columns.Amount...)
	f.Columns.ValueDate = pick(genericHints.value, used...)
	f.Columns.Counterparty = pick(genericHints.counterparty, used...)
	f.Columns.CounterpartyIBAN = pick(genericHints.iban, used...)
	f.Columns.Purpose = pick(genericHints.purpose, append(used, f.Columns.Counterparty...)...)
	f.Columns.Currency = pick(genericHints.currency, used...)
	f.Required = []string{f.Columns.BookingDate[0], f.Columns.Amount[0]}
	return f, true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
