package csvimport

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCSVParser(t *testing.T) {
	t.Run("Empty text returns error", func(t *testing.T) {
		parser, err := NewCSVParser("  \n ")
		assert.Nil(t, parser)
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("Custom delimiter", func(t *testing.T) {
		parser, err := NewCSVParser("Datum;Betrag;Text\n01.02.2024;12,50;Miete", WithDelimiter(';'))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())
		assert.Equal(t, []string{"Datum", "Betrag", "Text"}, parser.Headers())
	})

	t.Run("Header normalizer keys rows", func(t *testing.T) {
		parser, err := NewCSVParser("\"Begünstigter / Auftraggeber\";\"Betrag (€)\"\n\"Müller GmbH\";\"-1,00\"",
			WithDelimiter(';'), WithHeaderNormalizer(NormalizeHeader))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())
		assert.True(t, parser.HasHeader("beguenstigter / auftraggeber"))

		row, err := parser.ReadRow()
		require.NoError(t, err)
		assert.Equal(t, "Müller GmbH", row.Get("beguenstigter / auftraggeber"))
		assert.Equal(t, "-1,00", row.Get("betrag (€)"))
	})
}

func TestReadRow(t *testing.T) {
	t.Run("Line numbers include the offset", func(t *testing.T) {
		parser, err := NewCSVParser("code,name\n001,Widget", WithLineOffset(4))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())

		row, err := parser.ReadRow()
		require.NoError(t, err)
		assert.Equal(t, 6, row.LineNumber)
		assert.Equal(t, "Widget", row.Get("name"))
	})

	t.Run("Row with missing columns", func(t *testing.T) {
		parser, _ := NewCSVParser("code,name,price\n001")
		require.NoError(t, parser.ParseHeader())

		row, err := parser.ReadRow()
		require.NoError(t, err)
		assert.Equal(t, "001", row.Get("code"))
		assert.Equal(t, "", row.Get("price"))
	})

	t.Run("First returns the first non-empty candidate", func(t *testing.T) {
		parser, _ := NewCSVParser("a,b,c\n,x,y")
		require.NoError(t, parser.ParseHeader())

		row, _ := parser.ReadRow()
		assert.Equal(t, "x", row.First("a", "b", "c"))
		assert.Equal(t, "", row.First("missing"))
	})

	t.Run("Duplicate headers keep the later column", func(t *testing.T) {
		parser, _ := NewCSVParser("Saldo;Währung;Betrag;Währung\n1,00;USD;2,00;EUR",
			WithDelimiter(';'), WithHeaderNormalizer(NormalizeHeader))
		require.NoError(t, parser.ParseHeader())

		row, _ := parser.ReadRow()
		assert.Equal(t, "EUR", row.Get("waehrung"))
	})

	t.Run("EOF after last row", func(t *testing.T) {
		parser, _ := NewCSVParser("code,name\n001,Widget")
		require.NoError(t, parser.ParseHeader())

		_, err := parser.ReadRow()
		require.NoError(t, err)
		_, err = parser.ReadRow()
		assert.Equal(t, io.EOF, err)
	})
}

func TestReadRow_TrimsAndFlagsEmptyRows(t *testing.T) {
	parser, _ := NewCSVParser("code,name\n 001 ,Widget\u00a0\n,,\n002,Gadget")
	require.NoError(t, parser.ParseHeader())

	row, err := parser.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, "001", row.Get("code"))
	assert.Equal(t, "Widget", row.Get("name"))
	assert.False(t, row.IsEmpty())

	row, err = parser.ReadRow()
	require.NoError(t, err)
	assert.True(t, row.IsEmpty())
	assert.Equal(t, 3, row.LineNumber)
}

func TestQuotedFields(t *testing.T) {
	text := "code;text\n001;\"Miete; Januar\"\n002;\"Rechnung \"\"42\"\"\""
	parser, _ := NewCSVParser(text, WithDelimiter(';'))
	require.NoError(t, parser.ParseHeader())

	row1, _ := parser.ReadRow()
	assert.Equal(t, "Miete; Januar", row1.Get("text"))

	row2, _ := parser.ReadRow()
	assert.Equal(t, `Rechnung "42"`, row2.Get("text"))
}

func TestSplitRecord(t *testing.T) {
	assert.Equal(t, []string{"a", "b;c", "d"}, SplitRecord(`a;"b;c";d`, ';'))
	assert.Equal(t, []string{`a;"b;c";d`}, SplitRecord(`a;"b;c";d`, '\t'))
}

func TestDecodeText(t *testing.T) {
	t.Run("strips BOM", func(t *testing.T) {
		text, enc, err := DecodeText([]byte("\xEF\xBB\xBFDatum;Betrag"))
		require.NoError(t, err)
		assert.Equal(t, "Datum;Betrag", text)
		assert.Equal(t, EncodingUTF8, enc)
	})

	t.Run("falls back to Windows-1252", func(t *testing.T) {
		// "Währung" and "€" in Windows-1252
		text, enc, err := DecodeText([]byte("W\xe4hrung;\x80"))
		require.NoError(t, err)
		assert.Equal(t, "Währung;€", text)
		assert.Equal(t, EncodingWindows1252, enc)
	})

	t.Run("empty input", func(t *testing.T) {
		_, _, err := DecodeText([]byte("\xEF\xBB\xBF  "))
		assert.ErrorIs(t, err, ErrEmptyFile)
	})
}
