package csvimport

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// headerSearchLines bounds how far into a preamble the header may sit
	headerSearchLines = 40
	defaultMaxRows    = 20000
	defaultMaxErrors  = 100
	// DefaultMaxFileSize is the largest statement upload accepted
	DefaultMaxFileSize = 10 << 20
)

var candidateDelimiters = []rune{';', ',', '\t'}

// footerPrefixes start summary rows appended after the transactions
var footerPrefixes = []string{"kontostand", "alter kontostand", "neuer kontostand", "saldo", "anfangssaldo", "endsaldo", "summe"}

// StatementLine is one booked movement on a bank statement
type StatementLine struct {
	LineNumber       int               `json:"line_number"`
	BookingDate      time.Time         `json:"booking_date"`
	ValueDate        time.Time         `json:"value_date"`
	Amount           decimal.Decimal   `json:"amount"`
	Currency         string            `json:"currency"`
	Counterparty     string            `json:"counterparty"`
	CounterpartyIBAN string            `json:"counterparty_iban,omitempty"`
	Purpose          string            `json:"purpose"`
	BookingText      string            `json:"booking_text,omitempty"`
	Raw              map[string]string `json:"-"`
}

// Statement is the result of parsing one bank export
type Statement struct {
	Format    BankFormat
	Encoding  string
	Delimiter rune
	TotalRows int
	Skipped   int
	Lines     []StatementLine
	Errors    *ErrorCollection
}

// StatementOption configures ParseStatement
type StatementOption func(*statementConfig)

type statementConfig struct {
	formatID  string
	maxRows   int
	maxErrors int
}

// WithFormat forces a bank layout instead of detecting it
func WithFormat(id string) StatementOption {
	return func(c *statementConfig) {
		c.formatID = id
	}
}

// WithMaxRows limits the number of data rows read
func WithMaxRows(n int) StatementOption {
	return func(c *statementConfig) {
		c.maxRows = n
	}
}

// WithMaxErrors limits the number of row errors kept
func WithMaxErrors(n int) StatementOption {
	return func(c *statementConfig) {
		c.maxErrors = n
	}
}

// ParseStatement decodes a bank CSV export, locates the header row behind
// any preamble, detects the bank layout and converts each row into a
// StatementLine. Rows that fail are collected in Statement.Errors. When no
// row could be converted the partial Statement is returned with ErrNoDataRows.
func ParseStatement(data []byte, opts ...StatementOption) (*Statement, error) {
	cfg := statementConfig{maxRows: defaultMaxRows, maxErrors: defaultMaxErrors}
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(data) > DefaultMaxFileSize {
		return nil, ErrFileTooLarge
	}

	text, encoding, err := DecodeText(data)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	headerIdx, delimiter, format, err := locateHeader(lines, cfg.formatID)
	if err != nil {
		return nil, err
	}

	parser, err := NewCSVParser(strings.Join(lines[headerIdx:], "\n"),
		WithDelimiter(delimiter),
		WithHeaderNormalizer(NormalizeHeader),
		WithLineOffset(headerIdx),
	)
	if err != nil {
		return nil, err
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, err
	}

	st := &Statement{
		Format:    format,
		Encoding:  encoding,
		Delimiter: delimiter,
		Errors:    NewErrorCollection(cfg.maxErrors),
	}

	for st.TotalRows < cfg.maxRows {
		row, err := parser.ReadRow()
		if err != nil {
			if err == io.EOF {
				break
			}
			st.Errors.Add(NewRowError(parser.currentRow, "", ErrCodeImportMalformedRow, err.Error()))
			continue
		}
		if row.IsEmpty() {
			continue
		}
		if isFooter(row) || isPending(row, format) {
			st.Skipped++
			continue
		}
		st.TotalRows++
		line, rowErr := convertRow(row, format)
		if rowErr != nil {
			st.Errors.Add(*rowErr)
			continue
		}
		st.Lines = append(st.Lines, line)
	}

	if len(st.Lines) == 0 {
		return st, ErrNoDataRows
	}
	return st, nil
}

// locateHeader returns the index of the header line, its delimiter and layout
func locateHeader(lines []string, forcedFormat string) (int, rune, BankFormat, error) {
	var forced *BankFormat
	if forcedFormat != "" {
		f, ok := FormatByID(forcedFormat)
		if !ok {
			return 0, 0, BankFormat{}, fmt.Errorf("%w: %s", ErrUnknownFormat, forcedFormat)
		}
		forced = &f
	}

	limit := len(lines)
	if limit > headerSearchLines {
		limit = headerSearchLines
	}

	type candidate struct {
		index     int
		delimiter rune
		fields    []string
	}
	var candidates []candidate
	for i := 0; i < limit; i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		delimiter, fields := bestSplit(lines[i])
		candidates = append(candidates, candidate{index: i, delimiter: delimiter, fields: fields})
	}
	if len(candidates) == 0 {
		return 0, 0, BankFormat{}, ErrEmptyFile
	}

	// known layouts anywhere in the preamble win over a generic guess
	for _, c := range candidates {
		if len(c.fields) < 2 {
			continue
		}
		if forced != nil {
			if hasAll(normalizedSet(c.fields), forced.Required) {
				return c.index, c.delimiter, *forced, nil
			}
			continue
		}
		if format, ok := detectKnown(c.fields); ok {
			return c.index, c.delimiter, format, nil
		}
	}
	if forced != nil {
		return 0, 0, BankFormat{}, ErrMissingHeader
	}

	for _, c := range candidates {
		if len(c.fields) < 3 || looksLikeData(c.fields) {
			continue
		}
		if format, ok := genericFormat(c.fields); ok {
			return c.index, c.delimiter, format, nil
		}
	}
	return 0, 0, BankFormat{}, ErrUnknownFormat
}

// bestSplit tries each delimiter and keeps the one producing the most fields
func bestSplit(line string) (rune, []string) {
	var bestDelim rune = ';'
	var best []string
	for _, d := range candidateDelimiters {
		fields := SplitRecord(line, d)
		if len(fields) > len(best) {
			bestDelim, best = d, fields
		}
	}
	return bestDelim, best
}

// looksLikeData rejects "header" candidates that are really transaction rows
func looksLikeData(fields []string) bool {
	for _, f := range fields {
		if _, err := ParseDate(f); err == nil {
			return true
		}
	}
	return false
}

func isFooter(row *Row) bool {
	if len(row.RawFields) == 0 {
		return false
	}
	first := NormalizeHeader(row.RawFields[0])
	for _, p := range footerPrefixes {
		if strings.HasPrefix(first, p) {
			return true
		}
	}
	return false
}

func isPending(row *Row, f BankFormat) bool {
	if f.PendingStatus == "" {
		return false
	}
	return NormalizeHeader(row.First(f.Columns.Status...)) == f.PendingStatus
}

func convertRow(row *Row, f BankFormat) (StatementLine, *RowError) {
	c := f.Columns
	line := StatementLine{
		LineNumber:  row.LineNumber,
		Currency:    strings.ToUpper(row.First(c.Currency...)),
		Purpose:     collapseSpaces(row.First(c.Purpose...)),
		BookingText: row.First(c.BookingText...),
		Raw:         row.Data,
	}
	if line.Currency == "" {
		line.Currency = "EUR"
	}

	rawDate := row.First(c.BookingDate...)
	if rawDate == "" {
		e := NewRowError(row.LineNumber, firstName(c.BookingDate), ErrCodeImportRequiredField, "booking date is required")
		return line, &e
	}
	bookingDate, err := ParseDate(rawDate)
	if err != nil {
		e := NewRowErrorWithValue(row.LineNumber, firstName(c.BookingDate), ErrCodeImportInvalidDate, "unrecognized date", rawDate)
		return line, &e
	}
	line.BookingDate = bookingDate
	line.ValueDate = bookingDate
	if raw := row.First(c.ValueDate...); raw != "" {
		if vd, err := ParseDate(raw); err == nil {
			line.ValueDate = vd
		}
	}

	amount, column, rawAmount, err := rowAmount(row, f)
	if err != nil {
		e := NewRowErrorWithValue(row.LineNumber, column, ErrCodeImportInvalidAmount, "unrecognized amount", rawAmount)
		return line, &e
	}
	if amount.IsZero() {
		e := NewRowErrorWithValue(row.LineNumber, column, ErrCodeImportZeroAmount, "amount is zero", rawAmount)
		return line, &e
	}
	line.Amount = amount

	counterparty := row.First(c.Counterparty...)
	if counterparty == "" {
		if amount.IsPositive() {
			counterparty = row.First(c.CounterpartyPayer...)
		} else {
			counterparty = row.First(c.CounterpartyPayee...)
		}
	}
	line.Counterparty = collapseSpaces(counterparty)
	line.CounterpartyIBAN = strings.ToUpper(strings.Join(strings.Fields(row.First(c.CounterpartyIBAN...)), ""))
	return line, nil
}

// rowAmount reads either a signed amount column or a Soll/Haben pair
func rowAmount(row *Row, f BankFormat) (decimal.Decimal, string, string, error) {
	c := f.Columns
	if len(c.Amount) > 0 {
		raw := row.First(c.Amount...)
		d, err := ParseAmount(raw, f.DecimalMark)
		return d, firstName(c.Amount), raw, err
	}

	rawDebit := row.First(c.Debit...)
	rawCredit := row.First(c.Credit...)
	if rawDebit == "" && rawCredit == "" {
		return decimal.Zero, firstName(c.Debit), "", ErrInvalidAmount
	}
	total := decimal.Zero
	if rawCredit != "" {
		credit, err := ParseAmount(rawCredit, f.DecimalMark)
		if err != nil {
			return decimal.Zero, firstName(c.Credit), rawCredit, err
		}
		total = total.Add(credit.Abs())
	}
	if rawDebit != "" {
		debit, err := ParseAmount(rawDebit, f.DecimalMark)
		if err != nil {
			return decimal.Zero, firstName(c.Debit), rawDebit, err
		}
		total = total.Sub(debit.Abs())
	}
	return total, firstName(c.Credit), rawCredit, nil
}

func firstName(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
