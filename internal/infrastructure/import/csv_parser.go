package csvimport

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// CSVParser reads delimited text with a header row into header-keyed rows.
// Quotes are read lazily and fields are trimmed of spaces, including the
// non-breaking ones some banks emit.
type CSVParser struct {
	delimiter  rune
	normalize  func(string) string
	lineOffset int
	headerMap  map[string]int
	headers    []string
	currentRow int
	reader     *csv.Reader
}

// ParserOption is a functional option for CSVParser configuration
type ParserOption func(*CSVParser)

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) ParserOption {
	return func(p *CSVParser) {
		p.delimiter = d
	}
}

// WithHeaderNormalizer keys rows by normalized header names
func WithHeaderNormalizer(fn func(string) string) ParserOption {
	return func(p *CSVParser) {
		p.normalize = fn
	}
}

// WithLineOffset shifts reported line numbers, for input that starts after a preamble
func WithLineOffset(offset int) ParserOption {
	return func(p *CSVParser) {
		p.lineOffset = offset
	}
}

// NewCSVParser creates a parser over UTF-8 text. Use DecodeText first for raw uploads.
func NewCSVParser(text string, opts ...ParserOption) (*CSVParser, error) {
	parser := &CSVParser{
		delimiter: ',',
		headerMap: make(map[string]int),
	}
	for _, opt := range opts {
		opt(parser)
	}

	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyFile
	}
	if !utf8.ValidString(text) {
		return nil, ErrInvalidEncoding
	}

	parser.reader = csv.NewReader(strings.NewReader(text))
	parser.reader.Comma = parser.delimiter
	parser.reader.LazyQuotes = true
	parser.reader.TrimLeadingSpace = true
	parser.reader.FieldsPerRecord = -1
	parser.currentRow = parser.lineOffset

	return parser, nil
}

// ParseHeader reads and parses the header row
func (p *CSVParser) ParseHeader() error {
	record, err := p.reader.Read()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	p.headers = make([]string, len(record))
	for i, h := range record {
		header := trimSpaces(h)
		if p.normalize != nil {
			header = p.normalize(header)
		}
		p.headers[i] = header
		// later duplicates win, e.g. ING's second "Währung" belongs to "Betrag"
		p.headerMap[header] = i
	}

	if len(p.headers) == 0 {
		return ErrMissingHeader
	}
	p.currentRow++
	return nil
}

// Headers returns the parsed header names
func (p *CSVParser) Headers() []string {
	return p.headers
}

// HasHeader checks if a header exists
func (p *CSVParser) HasHeader(name string) bool {
	_, ok := p.headerMap[name]
	return ok
}

// Row represents a parsed CSV row with its data and line number
type Row struct {
	LineNumber int
	Data       map[string]string
	RawFields  []string
}

// Get returns the value for a column by header name
func (r *Row) Get(header string) string {
	return r.Data[header]
}

// First returns the first non-empty value among the given headers
func (r *Row) First(headers ...string) string {
	for _, h := range headers {
		if v := r.Data[h]; v != "" {
			return v
		}
	}
	return ""
}

// IsEmpty returns true if the row has no non-empty values
func (r *Row) IsEmpty() bool {
	for _, v := range r.RawFields {
		if trimSpaces(v) != "" {
			return false
		}
	}
	return true
}

// ReadRow reads the next row
func (p *CSVParser) ReadRow() (*Row, error) {
	record, err := p.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	p.currentRow++
	if err != nil {
		return nil, fmt.Errorf("error reading row %d: %w", p.currentRow, err)
	}

	row := &Row{
		LineNumber: p.currentRow,
		Data:       make(map[string]string, len(p.headers)),
		RawFields:  record,
	}
	for header, i := range p.headerMap {
		if i < len(record) {
			row.Data[header] = trimSpaces(record[i])
		} else {
			row.Data[header] = ""
		}
	}
	return row, nil
}

// trimSpaces trims ASCII whitespace and non-breaking spaces
func trimSpaces(s string) string {
	return strings.TrimFunc(s, isWhitespace)
}

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f', '\u00a0', '\u202f':
		return true
	}
	return false
}

// SplitRecord parses a single line with the given delimiter, honoring quotes
func SplitRecord(line string, delimiter rune) []string {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = delimiter
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	record, err := r.Read()
	if err != nil {
		return nil
	}
	return record
}
