package company

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kontor/backend/internal/domain/company"
	"github.com/kontor/backend/internal/domain/shared"
)

// InvoiceCounter counts invoices created in a half-open time range
type InvoiceCounter interface {
	CountCreatedBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (int64, error)
}

// BankAccountCounter counts accounts that are not archived
type BankAccountCounter interface {
	CountActive(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// Usage is the consumption measured against the plan limits
type Usage struct {
	InvoicesThisMonth int64 `json:"invoices_this_month"`
	BankAccounts      int64 `json:"bank_accounts"`
}

// PlanGuard enforces the limits of the company's effective plan
type PlanGuard struct {
	companies company.CompanyRepository
	invoices  InvoiceCounter
	accounts  BankAccountCounter
}

// NewPlanGuard creates a PlanGuard
func NewPlanGuard(companies company.CompanyRepository, invoices InvoiceCounter, accounts BankAccountCounter) *PlanGuard {
	return &PlanGuard{companies: companies, invoices: invoices, accounts: accounts}
}

// MonthBounds returns the start of the calendar month of t and the start of the next one
func MonthBounds(t time.Time) (from, to time.Time) {
	t = t.UTC()
	from = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

// Usage measures invoices created this month and active bank accounts
func (g *PlanGuard) Usage(ctx context.Context, tenantID uuid.UUID, now time.Time) (Usage, error) {
	from, to := MonthBounds(now)
	invoices, err := g.invoices.CountCreatedBetween(ctx, tenantID, from, to)
	if err != nil {
		return Usage{}, err
	}
	accounts, err := g.accounts.CountActive(ctx, tenantID)
	if err != nil {
		return Usage{}, err
	}
	return Usage{InvoicesThisMonth: invoices, BankAccounts: accounts}, nil
}

// CheckInvoice fails with PLAN_LIMIT_EXCEEDED when the monthly invoice quota is used up
func (g *PlanGuard) CheckInvoice(ctx context.Context, tenantID uuid.UUID, now time.Time) error {
	c, err := g.companies.FindByID(ctx, tenantID)
	if err != nil {
		return err
	}
	limits := c.Limits()
	if limits.InvoicesPerMonth == 0 {
		return nil
	}
	from, to := MonthBounds(now)
	n, err := g.invoices.CountCreatedBetween(ctx, tenantID, from, to)
	if err != nil {
		return err
	}
	if !limits.AllowsInvoice(n) {
		return shared.NewDomainErrorWithCause("PLAN_LIMIT_EXCEEDED",
			fmt.Sprintf("Plan %s allows %d invoices per month", c.Subscription.EffectivePlan(), limits.InvoicesPerMonth),
			shared.ErrPlanLimitExceeded)
	}
	return nil
}

// CheckBankAccount fails with PLAN_LIMIT_EXCEEDED when no further account may be added
func (g *PlanGuard) CheckBankAccount(ctx context.Context, tenantID uuid.UUID) error {
	c, err := g.companies.FindByID(ctx, tenantID)
	if err != nil {
		return err
	}
	limits := c.Limits()
	if limits.BankAccounts == 0 {
		return nil
	}
	n, err := g.accounts.CountActive(ctx, tenantID)
	if err != nil {
		return err
	}
	if !limits.AllowsBankAccount(n) {
		return shared.NewDomainErrorWithCause("PLAN_LIMIT_EXCEEDED",
			fmt.Sprintf("Plan %s allows %d bank accounts", c.Subscription.EffectivePlan(), limits.BankAccounts),
			shared.ErrPlanLimitExceeded)
	}
	return nil
}
