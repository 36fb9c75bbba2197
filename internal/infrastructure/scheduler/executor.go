package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bankingapp "github.com/kontor/backend/internal/application/banking"
	recurringapp "github.com/kontor/backend/internal/application/recurring"
)

// RecurringRunner creates the transactions of due recurring entries
type RecurringRunner interface {
	ExecuteDue(ctx context.Context, tenantID uuid.UUID, asOf time.Time) (*recurringapp.ExecuteResponse, error)
}

// OverdueSweeper moves sent invoices past their due date to overdue
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context, tenantID uuid.UUID, today time.Time) (int, error)
}

// BankSyncer pulls new transactions of all FinAPI linked accounts
type BankSyncer interface {
	SyncAll(ctx context.Context, tenantID uuid.UUID) (*bankingapp.SyncAllResponse, error)
}

// DailyExecutor dispatches daily jobs to the application services
type DailyExecutor struct {
	recurring RecurringRunner
	invoices  OverdueSweeper
	banks     BankSyncer
	logger    *zap.Logger
}

// NewDailyExecutor creates the executor for the daily jobs. banks may be nil
// when bank aggregation is not configured; bank sync jobs then do nothing.
func NewDailyExecutor(recurring RecurringRunner, invoices OverdueSweeper, banks BankSyncer, logger *zap.Logger) *DailyExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DailyExecutor{recurring: recurring, invoices: invoices, banks: banks, logger: logger}
}

// Execute implements JobExecutor
func (e *DailyExecutor) Execute(ctx context.Context, job *Job) error {
	switch job.Kind {
	case JobKindRecurring:
		if _, err := e.recurring.ExecuteDue(ctx, job.TenantID, job.AsOf); err != nil {
			return fmt.Errorf("execute recurring: %w", err)
		}
		return nil
	case JobKindOverdue:
		n, err := e.invoices.SweepOverdue(ctx, job.TenantID, job.AsOf)
		if err != nil {
			return fmt.Errorf("overdue sweep: %w", err)
		}
		if n > 0 {
			e.logger.Info("Invoices marked overdue",
				zap.String("tenant_id", job.TenantID.String()),
				zap.Int("count", n),
			)
		}
		return nil
	case JobKindBankSync:
		if e.banks == nil {
			return nil
		}
		res, err := e.banks.SyncAll(ctx, job.TenantID)
		if err != nil {
			return fmt.Errorf("bank sync: %w", err)
		}
		if res.Failed > 0 {
			e.logger.Warn("Bank sync finished with failures",
				zap.String("tenant_id", job.TenantID.String()),
				zap.Int("synced", res.Synced),
				zap.Int("failed", res.Failed),
			)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownJobKind, job.Kind)
	}
}
