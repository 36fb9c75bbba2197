package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kontor/backend/internal/domain/company"
	"github.com/kontor/backend/internal/domain/invoice"
	"github.com/kontor/backend/internal/domain/ledger"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/tests/testutil"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	transactions *testutil.MockTransactionRepository
	invoices     *testutil.MockInvoiceRepository
	accounts     *testutil.MockBankAccountRepository
	svc          *Service
	tenantID     uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		transactions: new(testutil.MockTransactionRepository),
		invoices:     new(testutil.MockInvoiceRepository),
		accounts:     new(testutil.MockBankAccountRepository),
		tenantID:     uuid.New(),
	}
	f.svc = NewService(f.transactions, f.invoices, f.accounts, nil)
	f.svc.now = func() time.Time { return time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC) }
	return f
}

func TestSummary(t *testing.T) {
	t.Run("defaults to the current month", func(t *testing.T) {
		f := newFixture()
		from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

		revenue, err := ledger.NewTransaction(f.tenantID, ledger.SourceManual, ledger.Entry{
			BookingDate: from.AddDate(0, 0, 4),
			Amount:      d("1190.00"),
		})
		require.NoError(t, err)
		require.NoError(t, revenue.Book(ledger.Booking{CategoryCode: "revenue_19"}, company.ChartSKR03, from))

		f.transactions.On("SumByDirection", mock.Anything, f.tenantID, from, to).Return(d("1190.00"), d("400.00"), nil)
		f.transactions.On("FindBooked", mock.Anything, f.tenantID, from, to).Return([]*ledger.Transaction{revenue}, nil)
		f.transactions.On("CountByStatus", mock.Anything, f.tenantID, ledger.StatusUnbooked).Return(int64(7), nil)
		f.invoices.On("SummarizeByStatus", mock.Anything, f.tenantID).Return([]invoice.StatusSummary{
			{Status: invoice.StatusDraft, Count: 2, Total: d("100.00")},
			{Status: invoice.StatusSent, Count: 3, Total: d("900.00")},
			{Status: invoice.StatusOverdue, Count: 1, Total: d("250.00")},
			{Status: invoice.StatusPaid, Count: 9, Total: d("5000.00")},
		}, nil)
		f.accounts.On("TotalBalance", mock.Anything, f.tenantID).Return(d("12345.67"), nil)

		resp, err := f.svc.Summary(context.Background(), f.tenantID, SummaryRequest{})
		require.NoError(t, err)
		assert.Equal(t, from, resp.From)
		assert.Equal(t, to, resp.To)
		assert.True(t, resp.Profit.Equal(d("790.00")))
		assert.True(t, resp.VATPayable.Equal(d("190.00")))
		assert.Equal(t, int64(4), resp.OpenInvoices.Count)
		assert.True(t, resp.OpenInvoices.Total.Equal(d("1150.00")))
		assert.Equal(t, int64(1), resp.OverdueInvoices.Count)
		assert.Equal(t, int64(7), resp.UnbookedCount)
		assert.True(t, resp.BankBalanceTotal.Equal(d("12345.67")))
	})

	t.Run("query failure", func(t *testing.T) {
		f := newFixture()
		boom := errors.New("connection reset")
		f.transactions.On("SumByDirection", mock.Anything, f.tenantID, mock.Anything, mock.Anything).Return(decimal.Zero, decimal.Zero, boom)
		f.transactions.On("FindBooked", mock.Anything, f.tenantID, mock.Anything, mock.Anything).Return([]*ledger.Transaction{}, nil).Maybe()
		f.transactions.On("CountByStatus", mock.Anything, f.tenantID, mock.Anything).Return(int64(0), nil).Maybe()
		f.invoices.On("SummarizeByStatus", mock.Anything, f.tenantID).Return([]invoice.StatusSummary{}, nil).Maybe()
		f.accounts.On("TotalBalance", mock.Anything, f.tenantID).Return(decimal.Zero, nil).Maybe()

		_, err := f.svc.Summary(context.Background(), f.tenantID, SummaryRequest{From: "2024-01-01", To: "2024-01-31"})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("reversed range", func(t *testing.T) {
		f := newFixture()

		_, err := f.svc.Summary(context.Background(), f.tenantID, SummaryRequest{From: "2024-02-01", To: "2024-01-01"})
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "INVALID_PERIOD", de.Code)
	})
}

func TestCashflow(t *testing.T) {
	f := newFixture()
	f.transactions.On("MonthlyTotals", mock.Anything, f.tenantID, 2023).Return([]ledger.MonthTotal{
		{Month: 1, Income: d("1000"), Expenses: d("300")},
		{Month: 6, Income: d("0"), Expenses: d("120.50")},
	}, nil)

	resp, err := f.svc.Cashflow(context.Background(), f.tenantID, CashflowRequest{Year: 2023})
	require.NoError(t, err)
	require.Len(t, resp.Months, 12)
	assert.True(t, resp.Months[0].Net.Equal(d("700")))
	assert.True(t, resp.Months[5].Net.Equal(d("-120.50")))
	assert.True(t, resp.Months[11].Income.IsZero())

	f.transactions.On("MonthlyTotals", mock.Anything, f.tenantID, 2024).Return([]ledger.MonthTotal{}, nil)
	resp, err = f.svc.Cashflow(context.Background(), f.tenantID, CashflowRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2024, resp.Year)
}
