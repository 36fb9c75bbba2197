package taxexport

import (
	"fmt"
	"strings"
	"time"

	"github.com/kontor/backend/internal/domain/company"
	"github.com/kontor/backend/internal/domain/ledger"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

const (
	datevFormatVersion = 700
	datevCategory      = 21
	datevSchemaVersion = 13
	datevAccountLength = 4
	maxBelegfeld1      = 36
	maxBuchungstext    = 60
)

var datevColumns = []string{
	"Umsatz (ohne Soll/Haben-Kz)",
	"Soll/Haben-Kennzeichen",
	"WKZ Umsatz",
	"Kurs",
	"Basis-Umsatz",
	"WKZ Basis-Umsatz",
	"Konto",
	"Gegenkonto (ohne BU-Schlüssel)",
	"BU-Schlüssel",
	"Belegdatum",
	"Belegfeld 1",
	"Belegfeld 2",
	"Skonto",
	"Buchungstext",
}

// DATEVRow is one line of a Buchungsstapel
type DATEVRow struct {
	Amount         decimal.Decimal
	DebitCredit    string
	Currency       string
	Account        string
	ContraAccount  string
	TaxKey         string
	DocumentDate   time.Time
	DocumentNumber string
	Text           string
}

// TaxKey returns the BU key: 9 and 8 for input VAT at 19 and 7 percent on
// expense accounts, 3 and 2 for output VAT on revenue accounts, and nothing
// for automatic accounts, neutral categories and zero rates
func TaxKey(cat ledger.Category, rate valueobject.VATRate) string {
	if cat.AutoVAT {
		return ""
	}
	switch cat.Kind {
	case ledger.KindExpense:
		switch rate {
		case valueobject.VATStandard:
			return "9"
		case valueobject.VATReduced:
			return "8"
		}
	case ledger.KindIncome:
		switch rate {
		case valueobject.VATStandard:
			return "3"
		case valueobject.VATReduced:
			return "2"
		}
	}
	return ""
}

// RowFromTransaction maps a booked transaction to a DATEV row. Income debits
// the bank account (S), expenses credit it (H).
func RowFromTransaction(tx *ledger.Transaction, chart company.Chart, documentNumber string) (DATEVRow, bool) {
	if tx.Status != ledger.StatusBooked {
		return DATEVRow{}, false
	}
	cat, ok := ledger.CategoryByCode(tx.CategoryCode)
	if !ok {
		return DATEVRow{}, false
	}
	rate := valueobject.VATZero
	if tx.VATRate != nil {
		rate = *tx.VATRate
	}
	dc := "H"
	if tx.IsIncome() {
		dc = "S"
	}
	text := strings.TrimSpace(strings.Join(strings.Fields(tx.Counterparty+" "+tx.Purpose), " "))
	return DATEVRow{
		Amount:         tx.Amount.Abs(),
		DebitCredit:    dc,
		Currency:       string(tx.Currency),
		Account:        ledger.BankClearingAccount(chart),
		ContraAccount:  cat.Account(chart),
		TaxKey:         TaxKey(cat, rate),
		DocumentDate:   tx.BookingDate,
		DocumentNumber: documentNumber,
		Text:           text,
	}, true
}

// DATEVHeader carries the metadata of line one
type DATEVHeader struct {
	CreatedAt        time.Time
	ConsultantNumber int
	ClientNumber     int
	FiscalYearStart  time.Time
	From             time.Time
	To               time.Time
	Description      string
}

// NewDATEVHeader validates the company settings
func NewDATEVHeader(c *company.Company, from, to, now time.Time) (DATEVHeader, error) {
	if !c.DATEV.IsComplete() {
		return DATEVHeader{}, shared.NewDomainError("DATEV_SETTINGS_MISSING", "DATEV consultant and client numbers are required")
	}
	from, to = shared.DateOnly(from), shared.DateOnly(to)
	if to.Before(from) {
		return DATEVHeader{}, shared.NewDomainError("INVALID_PERIOD", "Period end cannot be before its start")
	}
	if c.FiscalYearBegin(from) != c.FiscalYearBegin(to) {
		return DATEVHeader{}, shared.NewDomainError("INVALID_PERIOD", "A Buchungsstapel cannot span two fiscal years")
	}
	return DATEVHeader{
		CreatedAt:        now,
		ConsultantNumber: c.DATEV.ConsultantNumber,
		ClientNumber:     c.DATEV.ClientNumber,
		FiscalYearStart:  c.FiscalYearBegin(from),
		From:             from,
		To:               to,
		Description:      fmt.Sprintf("Buchungen %s bis %s", from.Format("02.01.2006"), to.Format("02.01.2006")),
	}, nil
}

func (h DATEVHeader) line() string {
	created := h.CreatedAt.Format("20060102150405") + fmt.Sprintf("%03d", h.CreatedAt.Nanosecond()/int(time.Millisecond))
	fields := []string{
		quote("EXTF"),
		fmt.Sprint(datevFormatVersion),
		fmt.Sprint(datevCategory),
		quote("Buchungsstapel"),
		fmt.Sprint(datevSchemaVersion),
		created,
		"",
		quote("KO"),
		quote(""),
		quote(""),
		fmt.Sprint(h.ConsultantNumber),
		fmt.Sprint(h.ClientNumber),
		h.FiscalYearStart.Format("20060102"),
		fmt.Sprint(datevAccountLength),
		h.From.Format("20060102"),
		h.To.Format("20060102"),
		quote(h.Description),
		quote(""),
		"1",
		"0",
		"0",
		quote("EUR"),
	}
	return strings.Join(fields, ";")
}

func (r DATEVRow) line() string {
	currency := r.Currency
	if currency == "" {
		currency = "EUR"
	}
	fields := []string{
		germanDecimal(r.Amount),
		quote(r.DebitCredit),
		quote(currency),
		"",
		"",
		"",
		r.Account,
		r.ContraAccount,
		quote(r.TaxKey),
		r.DocumentDate.Format("0201"),
		quote(truncate(r.DocumentNumber, maxBelegfeld1)),
		quote(""),
		"",
		quote(truncate(r.Text, maxBuchungstext)),
	}
	return strings.Join(fields, ";")
}

// WriteDATEV renders a Buchungsstapel as Windows-1252 with CRLF line endings
func WriteDATEV(h DATEVHeader, rows []DATEVRow) ([]byte, error) {
	var sb strings.Builder
	sb.WriteString(h.line())
	sb.WriteString("\r\n")
	sb.WriteString(strings.Join(datevColumns, ";"))
	sb.WriteString("\r\n")
	for _, r := range rows {
		sb.WriteString(r.line())
		sb.WriteString("\r\n")
	}

	enc := encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder())
	out, err := enc.Bytes([]byte(sb.String()))
	if err != nil {
		return nil, fmt.Errorf("encode DATEV export: %w", err)
	}
	return out, nil
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func germanDecimal(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
