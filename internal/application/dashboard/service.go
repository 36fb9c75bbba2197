// Package dashboard provides the key figures shown on the start page.
package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kontor/backend/internal/domain/banking"
	"github.com/kontor/backend/internal/domain/invoice"
	"github.com/kontor/backend/internal/domain/ledger"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/domain/taxexport"
	"github.com/kontor/backend/internal/infrastructure/telemetry"
)

const dateLayout = "2006-01-02"

// SummaryRequest selects the summary range; empty means the current month
type SummaryRequest struct {
	From string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To   string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

// CashflowRequest selects the cashflow year; 0 means the current year
type CashflowRequest struct {
	Year int `form:"year" binding:"omitempty,min=2000,max=2100"`
}

// InvoiceTotals is a count and gross sum of invoices
type InvoiceTotals struct {
	Count int64           `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// SummaryResponse are the key figures of a date range
type SummaryResponse struct {
	From             time.Time       `json:"from"`
	To               time.Time       `json:"to"`
	Income           decimal.Decimal `json:"income"`
	Expenses         decimal.Decimal `json:"expenses"`
	Profit           decimal.Decimal `json:"profit"`
	VATPayable       decimal.Decimal `json:"vat_payable"`
	OpenInvoices     InvoiceTotals   `json:"open_invoices"`
	OverdueInvoices  InvoiceTotals   `json:"overdue_invoices"`
	UnbookedCount    int64           `json:"unbooked_count"`
	BankBalanceTotal decimal.Decimal `json:"bank_balance_total"`
}

// MonthResponse is one cashflow bucket
type MonthResponse struct {
	Month    int             `json:"month"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Net      decimal.Decimal `json:"net"`
}

// CashflowResponse is income and expenses per month of a year
type CashflowResponse struct {
	Year   int             `json:"year"`
	Months []MonthResponse `json:"months"`
}

// Service computes dashboard figures
type Service struct {
	transactions ledger.TransactionRepository
	invoices     invoice.InvoiceRepository
	accounts     banking.BankAccountRepository
	logger       *zap.Logger
	now          func() time.Time
}

// NewService creates a dashboard Service
func NewService(transactions ledger.TransactionRepository, invoices invoice.InvoiceRepository, accounts banking.BankAccountRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		transactions: transactions,
		invoices:     invoices,
		accounts:     accounts,
		logger:       logger.Named("dashboard_service"),
		now:          time.Now,
	}
}

// Summary gathers the key figures; the queries run concurrently
func (s *Service) Summary(ctx context.Context, tenantID uuid.UUID, req SummaryRequest) (*SummaryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "dashboard", "summary", telemetry.SpanAttrTenantID, tenantID.String())
	defer span.End()

	from, to, err := s.summaryRange(req)
	if err != nil {
		return nil, err
	}
	resp := &SummaryResponse{From: from, To: to}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		income, expenses, err := s.transactions.SumByDirection(gctx, tenantID, from, to)
		if err != nil {
			return err
		}
		resp.Income = income
		resp.Expenses = expenses.Abs()
		return nil
	})
	g.Go(func() error {
		booked, err := s.transactions.FindBooked(gctx, tenantID, from, to)
		if err != nil {
			return err
		}
		resp.VATPayable = taxexport.Summarize(booked).VATPayable
		return nil
	})
	g.Go(func() error {
		summaries, err := s.invoices.SummarizeByStatus(gctx, tenantID)
		if err != nil {
			return err
		}
		resp.OpenInvoices, resp.OverdueInvoices = invoiceTotals(summaries)
		return nil
	})
	g.Go(func() error {
		n, err := s.transactions.CountByStatus(gctx, tenantID, ledger.StatusUnbooked)
		if err != nil {
			return err
		}
		resp.UnbookedCount = n
		return nil
	})
	g.Go(func() error {
		total, err := s.accounts.TotalBalance(gctx, tenantID)
		if err != nil {
			return err
		}
		resp.BankBalanceTotal = total
		return nil
	})
	if err := g.Wait(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	resp.Profit = resp.Income.Sub(resp.Expenses)
	return resp, nil
}

func (s *Service) summaryRange(req SummaryRequest) (from, to time.Time, err error) {
	now := s.now().UTC()
	from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to = from.AddDate(0, 1, -1)
	if req.From != "" {
		if from, err = time.Parse(dateLayout, req.From); err != nil {
			return from, to, shared.NewDomainErrorWithCause("INVALID_DATE", "from must be formatted as YYYY-MM-DD", err)
		}
	}
	if req.To != "" {
		if to, err = time.Parse(dateLayout, req.To); err != nil {
			return from, to, shared.NewDomainErrorWithCause("INVALID_DATE", "to must be formatted as YYYY-MM-DD", err)
		}
	}
	if to.Before(from) {
		return from, to, shared.NewDomainError("INVALID_PERIOD", "to cannot be before from")
	}
	return from, to, nil
}

// invoiceTotals treats sent and overdue invoices as open
func invoiceTotals(summaries []invoice.StatusSummary) (open, overdue InvoiceTotals) {
	open.Total, overdue.Total = decimal.Zero, decimal.Zero
	for _, sum := range summaries {
		switch sum.Status {
		case invoice.StatusSent:
			open.Count += sum.Count
			open.Total = open.Total.Add(sum.Total)
		case invoice.StatusOverdue:
			open.Count += sum.Count
			open.Total = open.Total.Add(sum.Total)
			overdue.Count += sum.Count
			overdue.Total = overdue.Total.Add(sum.Total)
		}
	}
	return open, overdue
}

// Cashflow returns twelve monthly buckets; months without transactions are zero
func (s *Service) Cashflow(ctx context.Context, tenantID uuid.UUID, req CashflowRequest) (*CashflowResponse, error) {
	year := req.Year
	if year == 0 {
		year = s.now().Year()
	}
	totals, err := s.transactions.MonthlyTotals(ctx, tenantID, year)
	if err != nil {
		return nil, err
	}
	resp := &CashflowResponse{Year: year, Months: make([]MonthResponse, 12)}
	for i := range resp.Months {
		resp.Months[i] = MonthResponse{Month: i + 1, Income: decimal.Zero, Expenses: decimal.Zero, Net: decimal.Zero}
	}
	for _, t := range totals {
		if t.Month < 1 || t.Month > 12 {
			continue
		}
		m := &resp.Months[t.Month-1]
		m.Income = m.Income.Add(t.Income)
		m.Expenses = m.Expenses.Add(t.Expenses.Abs())
		m.Net = m.Income.Sub(m.Expenses)
	}
	return resp, nil
}
