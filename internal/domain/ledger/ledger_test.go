package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/company"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(amount string) Entry {
	return Entry{
		BookingDate:  time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC),
		Amount:       decimal.RequireFromString(amount),
		Counterparty: "Bürobedarf AG",
		Purpose:      "RE 4711",
	}
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, code, de.Code)
}

func TestCategoryChart(t *testing.T) {
	tests := []struct {
		code         string
		skr03, skr04 string
	}{
		{"revenue_19", "8400", "4400"},
		{"office_supplies", "4930", "6815"},
		{"bank_fees", "4970", "6855"},
		{"private_withdrawal", "1800", "2100"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			c, ok := CategoryByCode(tt.code)
			require.True(t, ok)
			assert.Equal(t, tt.skr03, c.Account(company.ChartSKR03))
			assert.Equal(t, tt.skr04, c.Account(company.ChartSKR04))
		})
	}

	_, ok := CategoryByCode("nope")
	assert.False(t, ok)
	assert.Equal(t, "1200", BankClearingAccount(company.ChartSKR03))
	assert.Equal(t, "1800", BankClearingAccount(company.ChartSKR04))

	seen := map[string]bool{}
	for _, c := range Categories() {
		assert.False(t, seen[c.Code], "duplicate %s", c.Code)
		seen[c.Code] = true
		assert.NotEmpty(t, c.SKR03)
		assert.NotEmpty(t, c.SKR04)
		assert.True(t, c.DefaultVAT.IsValid())
	}
}

func TestImportHash(t *testing.T) {
	date := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)
	a := ImportHash(date, decimal.RequireFromString("-12.5"), "Telekom  Deutschland", "Rechnung 01/24", "de89 3704 0044 0532 0130 00")
	b := ImportHash(date.Add(13*time.Hour), decimal.RequireFromString("-12.50"), "telekom deutschland", " Rechnung 01/24 ", "DE89370400440532013000")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	c := ImportHash(date, decimal.RequireFromString("-12.51"), "Telekom Deutschland", "Rechnung 01/24", "DE89370400440532013000")
	assert.NotEqual(t, a, c)
}

func TestNewTransaction(t *testing.T) {
	tenantID := uuid.New()

	tx, err := NewTransaction(tenantID, SourceCSV, entry("-23.80"))
	require.NoError(t, err)
	assert.Equal(t, StatusUnbooked, tx.Status)
	assert.Equal(t, valueobject.EUR, tx.Currency)
	assert.NotEmpty(t, tx.ImportHash)
	assert.False(t, tx.IsIncome())

	manual, err := NewTransaction(tenantID, SourceManual, entry("100"))
	require.NoError(t, err)
	assert.Empty(t, manual.ImportHash)

	_, err = NewTransaction(tenantID, SourceManual, entry("0.001"))
	requireCode(t, err, "INVALID_AMOUNT")
	_, err = NewTransaction(tenantID, "email", entry("1"))
	requireCode(t, err, "INVALID_SOURCE")
	e := entry("1")
	e.BookingDate = time.Time{}
	_, err = NewTransaction(tenantID, SourceManual, e)
	requireCode(t, err, "INVALID_DATE")
}

func TestBook(t *testing.T) {
	now := time.Now()

	t.Run("expense with default VAT", func(t *testing.T) {
		tx, err := NewTransaction(uuid.New(), SourceCSV, entry("-23.80"))
		require.NoError(t, err)
		require.NoError(t, tx.Book(Booking{CategoryCode: "office_supplies"}, company.ChartSKR04, now))
		assert.Equal(t, StatusBooked, tx.Status)
		assert.Equal(t, "6815", tx.AccountNumber)
		require.NotNil(t, tx.VATRate)
		assert.Equal(t, valueobject.VATStandard, *tx.VATRate)
		net, tax := tx.NetAndTax()
		assert.Equal(t, "20.00", net.StringFixed(2))
		assert.Equal(t, "3.80", tax.StringFixed(2))
		require.Len(t, tx.GetDomainEvents(), 1)

		// rebooking does not raise a second event
		require.NoError(t, tx.Book(Booking{CategoryCode: "software"}, company.ChartSKR04, now))
		assert.Len(t, tx.GetDomainEvents(), 1)
	})

	t.Run("sign mismatch", func(t *testing.T) {
		tx, err := NewTransaction(uuid.New(), SourceCSV, entry("-23.80"))
		require.NoError(t, err)
		requireCode(t, tx.Book(Booking{CategoryCode: "revenue_19"}, company.ChartSKR03, now), "CATEGORY_MISMATCH")
		requireCode(t, tx.Book(Booking{CategoryCode: "unknown"}, company.ChartSKR03, now), "INVALID_CATEGORY")
	})

	t.Run("neutral accepts both signs", func(t *testing.T) {
		out, err := NewTransaction(uuid.New(), SourceCSV, entry("-500"))
		require.NoError(t, err)
		require.NoError(t, out.Book(Booking{CategoryCode: "private_withdrawal"}, company.ChartSKR03, now))
		in, err := NewTransaction(uuid.New(), SourceCSV, entry("500"))
		require.NoError(t, err)
		require.NoError(t, in.Book(Booking{CategoryCode: "private_withdrawal"}, company.ChartSKR03, now))
	})

	t.Run("invoice link requires income", func(t *testing.T) {
		tx, err := NewTransaction(uuid.New(), SourceCSV, entry("-10"))
		require.NoError(t, err)
		invID := uuid.New()
		requireCode(t, tx.Book(Booking{CategoryCode: "other_expenses", InvoiceID: &invID}, company.ChartSKR03, now), "INVALID_INVOICE_LINK")
	})

	t.Run("unbook and ignore", func(t *testing.T) {
		tx, err := NewTransaction(uuid.New(), SourceCSV, entry("119"))
		require.NoError(t, err)
		requireCode(t, tx.Unbook(), "INVALID_STATE")
		require.NoError(t, tx.Book(Booking{CategoryCode: "revenue_19"}, company.ChartSKR03, now))
		requireCode(t, tx.Ignore(), "INVALID_STATE")
		require.NoError(t, tx.Unbook())
		assert.Nil(t, tx.BookedAt)
		require.NoError(t, tx.Ignore())
		requireCode(t, tx.Book(Booking{CategoryCode: "revenue_19"}, company.ChartSKR03, now), "INVALID_STATE")
	})
}

func TestUpdate(t *testing.T) {
	tx, err := NewTransaction(uuid.New(), SourceCSV, entry("-5"))
	require.NoError(t, err)
	e := entry("-6")
	e.Notes = "Kaffee"
	require.NoError(t, tx.Update(e))
	assert.Equal(t, "-5.00", tx.Amount.StringFixed(2), "bank amounts are not editable")
	assert.Equal(t, "Kaffee", tx.Notes)

	manual, err := NewTransaction(uuid.New(), SourceManual, entry("-5"))
	require.NoError(t, err)
	require.NoError(t, manual.Update(e))
	assert.Equal(t, "-6.00", manual.Amount.StringFixed(2))

	assert.True(t, SourceManual.CanDelete())
	assert.True(t, SourceRecurring.CanDelete())
	assert.False(t, SourceCSV.CanDelete())
}
