package csvimport

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseStatement_Sparkasse(t *testing.T) {
	data := strings.Join([]string{
		`"Auftragskonto";"Buchungstag";"Valutadatum";"Buchungstext";"Verwendungszweck";"Beguenstigter/Zahlungspflichtiger";"Kontonummer/IBAN";"BIC (SWIFT-Code)";"Betrag";"Waehrung";"Info"`,
		`"DE12500105170648489890";"02.01.24";"02.01.24";"GUTSCHR. UEBERW.";"RE-2023-0042";"Muster GmbH";"DE89 3704 0044 0532 0130 00";"COBADEFFXXX";"1.190,00";"EUR";"Umsatz gebucht"`,
		`"DE12500105170648489890";"03.01.24";"03.01.24";"FOLGELASTSCHRIFT";"Miete Januar";"Hausverwaltung Schmidt";"DE02120300000000202051";"BYLADEM1001";"-850,00";"EUR";"Umsatz gebucht"`,
	}, "\r\n")

	st, err := ParseStatement([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, FormatSparkasse, st.Format.ID)
	assert.Equal(t, ';', st.Delimiter)
	require.Len(t, st.Lines, 2)

	first := st.Lines[0]
	assert.Equal(t, date(2024, 1, 2), first.BookingDate)
	assert.Equal(t, "1190", first.Amount.String())
	assert.Equal(t, "Muster GmbH", first.Counterparty)
	assert.Equal(t, "DE89370400440532013000", first.CounterpartyIBAN)
	assert.Equal(t, "RE-2023-0042", first.Purpose)
	assert.Equal(t, "EUR", first.Currency)
	assert.Equal(t, 2, first.LineNumber)

	assert.Equal(t, "-850", st.Lines[1].Amount.String())
	assert.False(t, st.Errors.HasErrors())
}

func TestParseStatement_DeutscheBankSollHaben(t *testing.T) {
	data := strings.Join([]string{
		`Umsätze Girokonto;;;;;;;;;;`,
		`Zeitraum: 01.01.2024 - 31.01.2024;;;;;;;;;;`,
		``,
		`Buchungstag;Wert;Umsatzart;Begünstigter / Auftraggeber;Verwendungszweck;IBAN;BIC;Kundenreferenz;Mandatsreferenz;Soll;Haben;Währung`,
		`05.01.2024;05.01.2024;SEPA-Lastschrift;Telekom Deutschland GmbH;Rechnung 01/2024;DE44500105175407324931;INGDDEFFXXX;;M-123;-39,95;;EUR`,
		`08.01.2024;08.01.2024;SEPA-Überweisung;Kunde AG;RE-2024-0001;DE89370400440532013000;COBADEFFXXX;;;;2.380,00;EUR`,
		`Kontostand;31.01.2024;;;;;;;;;3.140,05;EUR`,
	}, "\n")

	st, err := ParseStatement([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, FormatDeutscheBank, st.Format.ID)
	require.Len(t, st.Lines, 2)
	assert.Equal(t, "-39.95", st.Lines[0].Amount.String())
	assert.Equal(t, "Telekom Deutschland GmbH", st.Lines[0].Counterparty)
	assert.Equal(t, "2380", st.Lines[1].Amount.String())
	assert.Equal(t, 6, st.Lines[1].LineNumber)
	assert.Equal(t, 1, st.Skipped)
}

func TestParseStatement_ING(t *testing.T) {
	data := strings.Join([]string{
		`Umsatzanzeige;Datei erstellt am: 31.01.2024 10:00`,
		``,
		`IBAN;DE12 5001 0517 0648 4898 90`,
		`Kontoname;Girokonto`,
		``,
		`Buchung;Valuta;Auftraggeber/Empfänger;Buchungstext;Verwendungszweck;Saldo;Währung;Betrag;Währung`,
		`15.01.2024;15.01.2024;Bürobedarf Meier;Lastschrift;Druckerpapier;1.234,56;EUR;-23,80;EUR`,
	}, "\n")

	st, err := ParseStatement([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, FormatING, st.Format.ID)
	require.Len(t, st.Lines, 1)
	assert.Equal(t, "-23.8", st.Lines[0].Amount.String())
	assert.Equal(t, "Bürobedarf Meier", st.Lines[0].Counterparty)
	assert.Equal(t, "Lastschrift", st.Lines[0].BookingText)
}

func TestParseStatement_DKBDirectionalCounterparty(t *testing.T) {
	data := strings.Join([]string{
		`"Girokonto";"DE12500105170648489890"`,
		`"Zeitraum:";"01.01.2024 - 31.01.2024"`,
		`"Kontostand vom 31.01.2024:";"5.000,00 €"`,
		`""`,
		`"Buchungsdatum";"Wertstellung";"Status";"Zahlungspflichtige*r";"Zahlungsempfänger*in";"Verwendungszweck";"Umsatztyp";"IBAN";"Betrag (€)";"Gläubiger-ID";"Mandatsreferenz";"Kundenreferenz"`,
		`"10.01.24";"10.01.24";"Gebucht";"Kunde AG";"Max Muster";"RE-2024-0002";"Eingang";"DE89370400440532013000";"500";"";"";""`,
		`"11.01.24";"11.01.24";"Gebucht";"Max Muster";"Versicherung AG";"Beitrag";"Ausgang";"DE02120300000000202051";"-120,5";"";"";""`,
		`"12.01.24";"12.01.24";"Vorgemerkt";"Max Muster";"Tankstelle";"Tanken";"Ausgang";"";"-60,00";"";"";""`,
	}, "\n")

	st, err := ParseStatement([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, FormatDKB, st.Format.ID)
	require.Len(t, st.Lines, 2)
	assert.Equal(t, "Kunde AG", st.Lines[0].Counterparty)
	assert.Equal(t, "Versicherung AG", st.Lines[1].Counterparty)
	assert.Equal(t, "-120.5", st.Lines[1].Amount.String())
	assert.Equal(t, 1, st.Skipped)
}

func TestParseStatement_N26(t *testing.T) {
	data := strings.Join([]string{
		`"Booking Date","Value Date","Partner Name","Partner Iban",Type,"Payment Reference","Account Name","Amount (EUR)","Original Amount","Original Currency","Exchange Rate"`,
		`2024-01-20,2024-01-20,"Hosting Ltd",,"Presentment","Invoice 1.234","Main Account",-1234.50,,,`,
		`2024-01-21,2024-01-21,"Client, Inc.",DE89370400440532013000,"Income","Project","Main Account",1.234,,,`,
	}, "\n")

	st, err := ParseStatement([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, FormatN26, st.Format.ID)
	assert.Equal(t, ',', st.Delimiter)
	require.Len(t, st.Lines, 2)
	assert.Equal(t, "-1234.5", st.Lines[0].Amount.String())
	assert.Equal(t, "1.234", st.Lines[1].Amount.String())
	assert.Equal(t, "Client, Inc.", st.Lines[1].Counterparty)
}

func TestParseStatement_Windows1252(t *testing.T) {
	header := "Buchungstag;Valutadatum;Name Zahlungsbeteiligter;IBAN Zahlungsbeteiligter;Verwendungszweck;Betrag;Waehrung"
	row := "01.03.2024;01.03.2024;B\xe4ckerei K\xf6nig;;Br\xf6tchen;-4,20;EUR"

	st, err := ParseStatement([]byte(header + "\n" + row))
	require.NoError(t, err)
	assert.Equal(t, FormatVolksbank, st.Format.ID)
	assert.Equal(t, EncodingWindows1252, st.Encoding)
	require.Len(t, st.Lines, 1)
	assert.Equal(t, "Bäckerei König", st.Lines[0].Counterparty)
	assert.Equal(t, "Brötchen", st.Lines[0].Purpose)
}

func TestParseStatement_Generic(t *testing.T) {
	data := "Datum\tBeschreibung\tBetrag\n01.04.2024\tKaffee\t-3,50\n02.04.2024\tHonorar\t1.000,00"

	st, err := ParseStatement([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, FormatGeneric, st.Format.ID)
	assert.Equal(t, '\t', st.Delimiter)
	require.Len(t, st.Lines, 2)
	assert.Equal(t, "Kaffee", st.Lines[0].Purpose)
	assert.Equal(t, "1000", st.Lines[1].Amount.String())
}

func TestParseStatement_RowErrors(t *testing.T) {
	data := strings.Join([]string{
		`Buchung;Valuta;Auftraggeber/Empfänger;Buchungstext;Verwendungszweck;Betrag;Währung`,
		`15.01.2024;15.01.2024;A;Lastschrift;x;-1,00;EUR`,
		`32.01.2024;15.01.2024;B;Lastschrift;x;-1,00;EUR`,
		`16.01.2024;16.01.2024;C;Lastschrift;x;abc;EUR`,
		`17.01.2024;17.01.2024;D;Lastschrift;x;0,00;EUR`,
	}, "\n")

	st, err := ParseStatement([]byte(data))
	require.NoError(t, err)
	assert.Len(t, st.Lines, 1)
	assert.Equal(t, 4, st.TotalRows)
	require.Equal(t, 3, st.Errors.TotalCount())

	summary := st.Errors.ErrorSummary()
	assert.Equal(t, 1, summary[ErrCodeImportInvalidDate])
	assert.Equal(t, 1, summary[ErrCodeImportInvalidAmount])
	assert.Equal(t, 1, summary[ErrCodeImportZeroAmount])
	assert.Equal(t, 3, st.Errors.Errors()[0].Row)
}

func TestParseStatement_Failures(t *testing.T) {
	t.Run("empty file", func(t *testing.T) {
		_, err := ParseStatement([]byte("\xEF\xBB\xBF"))
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("unknown layout", func(t *testing.T) {
		_, err := ParseStatement([]byte("foo;bar;baz\n1;2;3"))
		assert.ErrorIs(t, err, ErrUnknownFormat)
		assert.Equal(t, ErrCodeImportUnknownFormat, ErrorCode(err))
	})

	t.Run("header without rows", func(t *testing.T) {
		st, err := ParseStatement([]byte("Buchung;Valuta;Auftraggeber/Empfänger;Verwendungszweck;Betrag\n"))
		assert.ErrorIs(t, err, ErrNoDataRows)
		require.NotNil(t, st)
		assert.Empty(t, st.Lines)
	})

	t.Run("forced format must match header", func(t *testing.T) {
		_, err := ParseStatement([]byte("Datum;Betrag\n01.01.2024;1,00"), WithFormat(FormatDKB))
		assert.ErrorIs(t, err, ErrMissingHeader)
	})

	t.Run("forced unknown format id", func(t *testing.T) {
		_, err := ParseStatement([]byte("Datum;Betrag\n01.01.2024;1,00"), WithFormat("nope"))
		assert.ErrorIs(t, err, ErrUnknownFormat)
	})
}

func TestDetectFormat(t *testing.T) {
	t.Run("Postbank is not mistaken for Deutsche Bank", func(t *testing.T) {
		f, ok := DetectFormat([]string{"Buchungstag", "Wert", "Umsatzart", "Begünstigter / Auftraggeber", "Verwendungszweck", "IBAN / Kontonummer", "BIC", "Betrag (€)"})
		require.True(t, ok)
		assert.Equal(t, FormatPostbank, f.ID)
	})

	t.Run("Commerzbank", func(t *testing.T) {
		f, ok := DetectFormat([]string{"Buchungstag", "Wertstellung", "Umsatzart", "Buchungstext", "Betrag", "Währung", "IBAN Kontoinhaber", "Kategorie"})
		require.True(t, ok)
		assert.Equal(t, FormatCommerzbank, f.ID)
	})

	t.Run("no date or amount column", func(t *testing.T) {
		_, ok := DetectFormat([]string{"Name", "Text"})
		assert.False(t, ok)
	})
}
