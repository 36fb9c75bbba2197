package recurring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	ledgerapp "github.com/kontor/backend/internal/application/ledger"
	"github.com/kontor/backend/internal/domain/banking"
	"github.com/kontor/backend/internal/domain/company"
	"github.com/kontor/backend/internal/domain/ledger"
	"github.com/kontor/backend/internal/domain/recurring"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/infrastructure/telemetry"
)

// ServiceConfig holds the dependencies of the recurring Service
type ServiceConfig struct {
	Recurring    recurring.RecurringRepository
	Transactions ledger.TransactionRepository
	Companies    company.CompanyRepository
	Accounts     banking.BankAccountRepository
	Events       shared.EventPublisher
	Metrics      *telemetry.BusinessMetrics
	// Tx saves the created transactions and the advanced schedule together
	Tx     shared.Transactor
	Logger *zap.Logger
}

// Service manages recurring transactions and turns due occurrences into
// ledger transactions
type Service struct {
	repo         recurring.RecurringRepository
	transactions ledger.TransactionRepository
	companies    company.CompanyRepository
	accounts     banking.BankAccountRepository
	events       shared.EventPublisher
	metrics      *telemetry.BusinessMetrics
	tx           shared.Transactor
	logger       *zap.Logger
	now          func() time.Time
}

// NewService creates a recurring Service
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var tx shared.Transactor = shared.NoTransaction{}
	if cfg.Tx != nil {
		tx = cfg.Tx
	}
	return &Service{
		repo:         cfg.Recurring,
		transactions: cfg.Transactions,
		companies:    cfg.Companies,
		accounts:     cfg.Accounts,
		events:       cfg.Events,
		metrics:      cfg.Metrics,
		tx:           tx,
		logger:       logger.Named("recurring_service"),
		now:          time.Now,
	}
}

func (s *Service) validate(ctx context.Context, tenantID uuid.UUID, tpl recurring.Template) error {
	if tpl.CategoryCode != "" {
		if _, ok := ledger.CategoryByCode(tpl.CategoryCode); !ok {
			return shared.NewDomainError("INVALID_CATEGORY", fmt.Sprintf("Unknown category %q", tpl.CategoryCode))
		}
	}
	if tpl.BankAccountID != nil && s.accounts != nil {
		if _, err := s.accounts.FindByIDForTenant(ctx, tenantID, *tpl.BankAccountID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewDomainError("INVALID_BANK_ACCOUNT", "Bank account not found")
			}
			return err
		}
	}
	return nil
}

// Create stores a new recurring transaction
func (s *Service) Create(ctx context.Context, tenantID, userID uuid.UUID, req RecurringRequest) (*RecurringResponse, error) {
	tpl, err := toTemplate(req)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, tenantID, tpl); err != nil {
		return nil, err
	}
	r, err := recurring.NewRecurringTransaction(tenantID, tpl)
	if err != nil {
		return nil, err
	}
	r.SetCreatedBy(userID)
	if err := s.repo.Save(ctx, r); err != nil {
		return nil, err
	}
	resp := ToRecurringResponse(r)
	return &resp, nil
}

// Get retrieves a recurring transaction by ID
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*RecurringResponse, error) {
	r, err := s.repo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToRecurringResponse(r)
	return &resp, nil
}

// List returns recurring transactions ordered by next execution
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]RecurringResponse, int64, error) {
	f := recurring.RecurringFilter{Filter: shared.DefaultFilter(), Active: filter.Active}
	f.OrderBy = "next_execution"
	f.OrderDir = "asc"
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	items, total, err := s.repo.FindAllForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, 0, err
	}
	out := make([]RecurringResponse, len(items))
	for i, r := range items {
		out[i] = ToRecurringResponse(r)
	}
	return out, total, nil
}

// Update replaces the template and recomputes the next execution
func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, req RecurringRequest) (*RecurringResponse, error) {
	r, err := s.repo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	tpl, err := toTemplate(req)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, tenantID, tpl); err != nil {
		return nil, err
	}
	if err := r.Update(tpl); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, r); err != nil {
		return nil, err
	}
	resp := ToRecurringResponse(r)
	return &resp, nil
}

// Pause stops execution
func (s *Service) Pause(ctx context.Context, tenantID, id uuid.UUID) (*RecurringResponse, error) {
	return s.transition(ctx, tenantID, id, func(r *recurring.RecurringTransaction) error {
		return r.Pause()
	})
}

// Resume restarts execution from today; occurrences missed while paused are skipped
func (s *Service) Resume(ctx context.Context, tenantID, id uuid.UUID) (*RecurringResponse, error) {
	return s.transition(ctx, tenantID, id, func(r *recurring.RecurringTransaction) error {
		return r.Resume(shared.DateOnly(s.now()))
	})
}

func (s *Service) transition(ctx context.Context, tenantID, id uuid.UUID, fn func(*recurring.RecurringTransaction) error) (*RecurringResponse, error) {
	r, err := s.repo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := fn(r); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, r); err != nil {
		return nil, err
	}
	resp := ToRecurringResponse(r)
	return &resp, nil
}

// Delete removes a recurring transaction; transactions it created stay
func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	if _, err := s.repo.FindByIDForTenant(ctx, tenantID, id); err != nil {
		return err
	}
	return s.repo.DeleteForTenant(ctx, tenantID, id)
}

// Preview lists the next n execution dates
func (s *Service) Preview(ctx context.Context, tenantID, id uuid.UUID, n int) (*PreviewResponse, error) {
	r, err := s.repo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		n = defaultPreviewSize
	}
	if n > maxPreviewSize {
		n = maxPreviewSize
	}
	from := shared.DateOnly(s.now())
	if r.Active && r.NextExecution != nil {
		from = *r.NextExecution
	}
	dates := r.Schedule().Preview(from.AddDate(0, 0, -1), n)
	resp := &PreviewResponse{Dates: make([]string, len(dates))}
	for i, d := range dates {
		resp.Dates[i] = d.Format(dateLayout)
	}
	return resp, nil
}

// Execute runs ExecuteDue up to the requested day, today when none is given
func (s *Service) Execute(ctx context.Context, tenantID uuid.UUID, req ExecuteRequest) (*ExecuteResponse, error) {
	asOf, err := parseDate("as_of", req.AsOf)
	if err != nil {
		return nil, err
	}
	if asOf == nil {
		now := s.now()
		asOf = &now
	}
	return s.ExecuteDue(ctx, tenantID, *asOf)
}

// ExecuteDue creates one transaction per due occurrence of every active
// record of the tenant, catching up at most recurring.MaxCatchUp occurrences
// per record.
func (s *Service) ExecuteDue(ctx context.Context, tenantID uuid.UUID, asOf time.Time) (*ExecuteResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "recurring", "execute_due", telemetry.SpanAttrTenantID, tenantID.String())
	defer span.End()

	if asOf.IsZero() {
		asOf = s.now()
	}
	asOf = shared.DateOnly(asOf)
	due, err := s.repo.FindDue(ctx, tenantID, asOf)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	resp := &ExecuteResponse{Transactions: []ledgerapp.TransactionResponse{}}
	if len(due) == 0 {
		return resp, nil
	}

	c, err := s.companies.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	chart := c.DATEV.Chart
	if chart == "" {
		chart = company.ChartSKR03
	}

	for _, r := range due {
		txs, err := s.execute(r, chart, asOf)
		if err != nil {
			s.logger.Error("recurring transaction could not be executed",
				zap.String("recurring_id", r.ID.String()), zap.Error(err))
			continue
		}
		if len(txs) == 0 {
			continue
		}
		err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			if err := s.transactions.SaveBatch(ctx, txs); err != nil {
				return fmt.Errorf("save recurring transactions: %w", err)
			}
			if err := s.repo.Save(ctx, r); err != nil {
				return fmt.Errorf("save recurring transaction: %w", err)
			}
			return nil
		})
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			// another run executed the record first
			s.logger.Warn("recurring transaction changed during execution, skipped",
				zap.String("recurring_id", r.ID.String()))
			continue
		}
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		s.publish(ctx, r)
		resp.Executed++
		resp.Transactions = append(resp.Transactions, ledgerapp.ToTransactionResponses(txs)...)
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrCount, len(resp.Transactions))
	s.metrics.TransactionsImported(ctx, string(ledger.SourceRecurring), len(resp.Transactions))
	s.logger.Info("recurring transactions executed",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("records", resp.Executed),
		zap.Int("transactions", len(resp.Transactions)))
	return resp, nil
}

// execute advances the schedule of r and builds a transaction for every
// occurrence. r must not be saved when an error is returned.
func (s *Service) execute(r *recurring.RecurringTransaction, chart company.Chart, asOf time.Time) ([]*ledger.Transaction, error) {
	dates := r.DueOccurrences(asOf)
	txs := make([]*ledger.Transaction, 0, len(dates))
	for _, d := range dates {
		tx, err := ledger.NewTransaction(r.TenantID, ledger.SourceRecurring, ledger.Entry{
			BankAccountID: r.BankAccountID,
			BookingDate:   d,
			Amount:        r.Amount,
			Counterparty:  r.Counterparty,
			Purpose:       r.Purpose,
		})
		if err != nil {
			return nil, err
		}
		id := r.ID
		tx.RecurringID = &id
		if r.ContactID != nil {
			tx.SetContact(*r.ContactID)
		}
		if r.CategoryCode != "" {
			if err := tx.Categorize(r.CategoryCode, chart, r.VATRate); err != nil {
				s.logger.Warn("recurring category does not fit the amount",
					zap.String("recurring_id", r.ID.String()),
					zap.String("category", r.CategoryCode),
					zap.Error(err))
			}
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// ExecuteAll runs ExecuteDue for every active tenant; used by the scheduler
func (s *Service) ExecuteAll(ctx context.Context) error {
	ids, err := s.companies.FindAllActiveIDs(ctx)
	if err != nil {
		return err
	}
	asOf := s.now()
	var failed int
	for _, id := range ids {
		if _, err := s.ExecuteDue(ctx, id, asOf); err != nil {
			failed++
			s.logger.Error("recurring execution failed", zap.String("tenant_id", id.String()), zap.Error(err))
		}
	}
	if failed > 0 {
		return fmt.Errorf("recurring execution failed for %d of %d tenants", failed, len(ids))
	}
	return nil
}

func (s *Service) publish(ctx context.Context, r *recurring.RecurringTransaction) {
	events := r.GetDomainEvents()
	if len(events) == 0 || s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish recurring events", zap.Error(err))
	}
	r.ClearDomainEvents()
}
