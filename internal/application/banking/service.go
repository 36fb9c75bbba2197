package banking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	notifyapp "github.com/kontor/backend/internal/application/notification"
	"github.com/kontor/backend/internal/domain/banking"
	"github.com/kontor/backend/internal/domain/ledger"
	"github.com/kontor/backend/internal/domain/notification"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
	"github.com/kontor/backend/internal/infrastructure/finapi"
	csvimport "github.com/kontor/backend/internal/infrastructure/import"
	"github.com/kontor/backend/internal/infrastructure/telemetry"
)

const (
	// initialSyncDays is fetched on the first sync of a linked account
	initialSyncDays       = 90
	defaultMaxConcurrency = 4
)

// FinAPIClient is the subset of the FinAPI adapter used by banking
type FinAPIClient interface {
	CreateWebForm(ctx context.Context, tenantID uuid.UUID, bankName string) (*finapi.WebForm, error)
	GetWebForm(ctx context.Context, tenantID uuid.UUID, webFormID int64) (*finapi.WebForm, error)
	ListAccounts(ctx context.Context, tenantID uuid.UUID, connectionID int64) ([]finapi.Account, error)
	ListTransactions(ctx context.Context, tenantID uuid.UUID, accountID int64, since time.Time) ([]finapi.Transaction, error)
}

// RuleApplier categorizes fresh transactions before they are stored
type RuleApplier interface {
	ApplyToTransactions(ctx context.Context, tenantID uuid.UUID, txs []*ledger.Transaction) (int, error)
}

// Notifier raises in-app notifications
type Notifier interface {
	Notify(ctx context.Context, in notifyapp.NotifyInput) (*notification.Notification, error)
}

// AccountLimiter enforces the bank account limit of the plan
type AccountLimiter interface {
	CheckBankAccount(ctx context.Context, tenantID uuid.UUID) error
}

// ServiceConfig holds the dependencies of the banking Service
type ServiceConfig struct {
	Accounts     banking.BankAccountRepository
	Links        banking.FinAPILinkRepository
	Transactions ledger.TransactionRepository
	FinAPI       FinAPIClient
	Rules        RuleApplier
	Notifier     Notifier
	Limits       AccountLimiter
	Events       shared.EventPublisher
	Metrics      *telemetry.BusinessMetrics
	Logger       *zap.Logger
	// MaxConcurrency bounds parallel account syncs; defaults to 4
	MaxConcurrency int
}

// Service manages bank accounts, statement imports and FinAPI syncs
type Service struct {
	accounts       banking.BankAccountRepository
	links          banking.FinAPILinkRepository
	transactions   ledger.TransactionRepository
	finapi         FinAPIClient
	rules          RuleApplier
	notifier       Notifier
	limits         AccountLimiter
	events         shared.EventPublisher
	metrics        *telemetry.BusinessMetrics
	logger         *zap.Logger
	maxConcurrency int
	now            func() time.Time
}

// NewService creates a banking Service. FinAPI, Rules, Notifier and Limits may be nil.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxConcurrency := cfg.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = defaultMaxConcurrency
	}
	return &Service{
		accounts:       cfg.Accounts,
		links:          cfg.Links,
		transactions:   cfg.Transactions,
		finapi:         cfg.FinAPI,
		rules:          cfg.Rules,
		notifier:       cfg.Notifier,
		limits:         cfg.Limits,
		events:         cfg.Events,
		metrics:        cfg.Metrics,
		logger:         logger.Named("banking_service"),
		maxConcurrency: maxConcurrency,
		now:            time.Now,
	}
}

var errFinAPIUnavailable = shared.NewDomainError("FINAPI_UNAVAILABLE", "Bank linking is not configured")

// Create adds a manual or csv account
func (s *Service) Create(ctx context.Context, tenantID, userID uuid.UUID, req BankAccountRequest) (*BankAccountResponse, error) {
	if s.limits != nil {
		if err := s.limits.CheckBankAccount(ctx, tenantID); err != nil {
			return nil, err
		}
	}
	a, err := banking.NewBankAccount(tenantID, req.Name, req.IBAN, req.BIC, req.BankName, banking.Provider(req.Provider))
	if err != nil {
		return nil, err
	}
	if a.Provider == banking.ProviderFinAPI {
		return nil, shared.NewDomainError("INVALID_PROVIDER", "Linked accounts are created through FinAPI")
	}
	a.SetCreatedBy(userID)
	if err := s.accounts.Save(ctx, a); err != nil {
		return nil, err
	}
	resp := ToBankAccountResponse(a)
	return &resp, nil
}

// Get retrieves a bank account by ID
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*BankAccountResponse, error) {
	a, err := s.accounts.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToBankAccountResponse(a)
	return &resp, nil
}

// List returns the accounts of the tenant
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, includeArchived bool) ([]BankAccountResponse, error) {
	accounts, err := s.accounts.FindAllForTenant(ctx, tenantID, includeArchived)
	if err != nil {
		return nil, err
	}
	return ToBankAccountResponses(accounts), nil
}

// Update edits the master data of an account
func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, req UpdateBankAccountRequest) (*BankAccountResponse, error) {
	a, err := s.accounts.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := a.Update(req.Name, req.IBAN, req.BIC, req.BankName); err != nil {
		return nil, err
	}
	if err := s.accounts.Save(ctx, a); err != nil {
		return nil, err
	}
	resp := ToBankAccountResponse(a)
	return &resp, nil
}

// Archive retires an account
func (s *Service) Archive(ctx context.Context, tenantID, id uuid.UUID) (*BankAccountResponse, error) {
	a, err := s.accounts.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := a.Archive(); err != nil {
		return nil, err
	}
	if err := s.accounts.Save(ctx, a); err != nil {
		return nil, err
	}
	resp := ToBankAccountResponse(a)
	return &resp, nil
}

// ImportCSV parses a bank statement and stores its lines as unbooked
// transactions of the account. Lines already imported are skipped.
func (s *Service) ImportCSV(ctx context.Context, tenantID, userID, accountID uuid.UUID, data []byte, format string) (*ImportResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "banking", "import_csv",
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrBankAccountID, accountID.String())
	defer span.End()

	a, err := s.accounts.FindByIDForTenant(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}
	if err := a.CanImport(); err != nil {
		return nil, err
	}

	var opts []csvimport.StatementOption
	if format != "" {
		opts = append(opts, csvimport.WithFormat(format))
	}
	st, err := csvimport.ParseStatement(data, opts...)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.NewDomainErrorWithCause(csvimport.ErrorCode(err), err.Error(), err)
	}

	txs := make([]*ledger.Transaction, 0, len(st.Lines))
	for _, line := range st.Lines {
		tx, err := ledger.NewTransaction(tenantID, ledger.SourceCSV, lineEntry(a.ID, line))
		if err != nil {
			code := csvimport.ErrCodeImportMalformedRow
			if de, ok := shared.IsDomainError(err); ok {
				code = de.Code
			}
			st.Errors.Add(csvimport.NewRowError(line.LineNumber, "", code, err.Error()))
			continue
		}
		txs = append(txs, tx)
	}

	out, err := s.store(ctx, tenantID, &userID, a.ID, txs)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if a.Provider != banking.ProviderFinAPI && len(out.fresh) > 0 {
		sum, latest := decimal.Zero, out.fresh[0].BookingDate
		for _, tx := range out.fresh {
			sum = sum.Add(tx.Amount)
			if tx.BookingDate.After(latest) {
				latest = tx.BookingDate
			}
		}
		a.AdjustBalance(sum, latest)
		if err := s.accounts.Save(ctx, a); err != nil {
			return nil, fmt.Errorf("save bank account: %w", err)
		}
	}

	result := &ImportResult{
		Format:      st.Format.ID,
		Encoding:    st.Encoding,
		TotalRows:   st.TotalRows,
		Imported:    len(out.fresh),
		Duplicates:  out.duplicates,
		Failed:      st.Errors.TotalCount(),
		Skipped:     st.Skipped,
		Categorized: out.categorized,
		Errors:      st.Errors.Errors(),
		Balance:     a.Balance,
	}
	if result.Errors == nil {
		result.Errors = []csvimport.RowError{}
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrCount, result.Imported)
	s.metrics.TransactionsImported(ctx, string(ledger.SourceCSV), result.Imported)
	s.notify(ctx, notifyapp.NotifyInput{
		TenantID: tenantID,
		UserID:   &userID,
		Type:     notification.TypeImportCompleted,
		Title:    "Kontoauszug importiert",
		Message: fmt.Sprintf("%s: %d neue Umsätze, %d Duplikate übersprungen, %d fehlerhafte Zeilen",
			a.Name, result.Imported, result.Duplicates, result.Failed),
		Link: "/transactions?bank_account_id=" + a.ID.String(),
	})
	s.logger.Info("bank statement imported",
		zap.String("tenant_id", tenantID.String()),
		zap.String("bank_account_id", a.ID.String()),
		zap.String("format", result.Format),
		zap.Int("imported", result.Imported),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("failed", result.Failed))
	return result, nil
}

func lineEntry(accountID uuid.UUID, line csvimport.StatementLine) ledger.Entry {
	e := ledger.Entry{
		BankAccountID:    &accountID,
		BookingDate:      line.BookingDate,
		Amount:           line.Amount,
		Currency:         valueobject.Currency(strings.ToUpper(strings.TrimSpace(line.Currency))),
		Counterparty:     line.Counterparty,
		CounterpartyIBAN: line.CounterpartyIBAN,
		Purpose:          line.Purpose,
	}
	if !line.ValueDate.IsZero() {
		v := line.ValueDate
		e.ValueDate = &v
	}
	return e
}

type storeOutcome struct {
	fresh       []*ledger.Transaction
	duplicates  int
	categorized int
}

// store drops transactions whose import hash repeats within the batch or is
// already stored for the account, runs the rules over the rest and saves them
func (s *Service) store(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID, accountID uuid.UUID, txs []*ledger.Transaction) (storeOutcome, error) {
	var out storeOutcome
	seen := make(map[string]bool, len(txs))
	unique := make([]*ledger.Transaction, 0, len(txs))
	hashes := make([]string, 0, len(txs))
	for _, tx := range txs {
		if seen[tx.ImportHash] {
			out.duplicates++
			continue
		}
		seen[tx.ImportHash] = true
		unique = append(unique, tx)
		hashes = append(hashes, tx.ImportHash)
	}
	if len(unique) == 0 {
		return out, nil
	}

	existing, err := s.transactions.ExistingHashes(ctx, tenantID, &accountID, hashes)
	if err != nil {
		return out, fmt.Errorf("lookup import hashes: %w", err)
	}
	for _, tx := range unique {
		if existing[tx.ImportHash] {
			out.duplicates++
			continue
		}
		if userID != nil {
			tx.SetCreatedBy(*userID)
		}
		out.fresh = append(out.fresh, tx)
	}
	if len(out.fresh) == 0 {
		return out, nil
	}

	if s.rules != nil {
		n, err := s.rules.ApplyToTransactions(ctx, tenantID, out.fresh)
		if err != nil {
			s.logger.Warn("automation rules failed during import",
				zap.String("tenant_id", tenantID.String()), zap.Error(err))
		}
		out.categorized = n
	}
	if err := s.transactions.SaveBatch(ctx, out.fresh); err != nil {
		return storeOutcome{}, fmt.Errorf("save transactions: %w", err)
	}
	for _, tx := range out.fresh {
		s.publish(ctx, tx)
	}
	return out, nil
}

// LinkFinAPI opens a FinAPI web form through which the user connects a bank
func (s *Service) LinkFinAPI(ctx context.Context, tenantID uuid.UUID, req LinkFinAPIRequest) (*LinkFinAPIResponse, error) {
	if s.finapi == nil {
		return nil, errFinAPIUnavailable
	}
	form, err := s.finapi.CreateWebForm(ctx, tenantID, req.BankName)
	if err != nil {
		return nil, s.finapiError(err)
	}
	link := banking.FinAPILink{TenantID: tenantID, WebFormID: form.ID, URL: form.URL}
	if err := s.links.SavePending(ctx, link); err != nil {
		return nil, fmt.Errorf("save pending link: %w", err)
	}
	return &LinkFinAPIResponse{WebFormID: form.ID, URL: form.URL}, nil
}

// CompleteFinAPILink mirrors the accounts of a finished web form. Accounts
// already known are reconnected; new ones are created within the plan limit.
func (s *Service) CompleteFinAPILink(ctx context.Context, tenantID, userID uuid.UUID, req CompleteFinAPIRequest) ([]BankAccountResponse, error) {
	if s.finapi == nil {
		return nil, errFinAPIUnavailable
	}
	if _, err := s.links.FindPending(ctx, tenantID, req.WebFormID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("UNKNOWN_WEB_FORM", "No pending bank link for this web form")
		}
		return nil, err
	}
	form, err := s.finapi.GetWebForm(ctx, tenantID, req.WebFormID)
	if err != nil {
		return nil, s.finapiError(err)
	}
	switch form.Status {
	case finapi.WebFormCompleted:
	case finapi.WebFormAborted, finapi.WebFormExpired:
		if err := s.links.DeletePending(ctx, tenantID, req.WebFormID); err != nil {
			s.logger.Warn("failed to delete pending link", zap.Error(err))
		}
		return nil, shared.NewDomainError("WEB_FORM_FAILED", fmt.Sprintf("Bank connection was not established (%s)", form.Status))
	default:
		return nil, shared.NewDomainErrorWithCause("WEB_FORM_PENDING", "Bank connection is not completed yet", finapi.ErrWebFormPending)
	}

	connID := form.Payload.BankConnectionID
	remote, err := s.finapi.ListAccounts(ctx, tenantID, connID)
	if err != nil {
		return nil, s.finapiError(err)
	}

	now := s.now()
	linked := make([]*banking.BankAccount, 0, len(remote))
	for _, ra := range remote {
		a, err := s.accounts.FindByFinAPIAccount(ctx, tenantID, ra.ID)
		switch {
		case err == nil:
			if err := a.Reconnect(connID); err != nil {
				return nil, err
			}
		case errors.Is(err, shared.ErrNotFound):
			if strings.TrimSpace(ra.IBAN) == "" {
				s.logger.Info("skipping FinAPI account without IBAN", zap.Int64("finapi_account_id", ra.ID))
				continue
			}
			if s.limits != nil {
				if err := s.limits.CheckBankAccount(ctx, tenantID); err != nil {
					return nil, err
				}
			}
			name := ra.AccountName
			if strings.TrimSpace(name) == "" {
				name = ra.BankName
			}
			a, err = banking.NewFinAPIAccount(tenantID, connID, ra.ID, name, ra.IBAN, ra.BIC, ra.BankName)
			if err != nil {
				return nil, err
			}
			a.SetCreatedBy(userID)
			a.AdjustBalance(ra.Balance, now)
		default:
			return nil, err
		}
		if err := s.accounts.Save(ctx, a); err != nil {
			return nil, fmt.Errorf("save bank account: %w", err)
		}
		linked = append(linked, a)
	}

	if err := s.links.DeletePending(ctx, tenantID, req.WebFormID); err != nil {
		s.logger.Warn("failed to delete pending link", zap.Error(err))
	}
	s.logger.Info("bank connection linked",
		zap.String("tenant_id", tenantID.String()),
		zap.Int64("connection_id", connID),
		zap.Int("accounts", len(linked)))
	return ToBankAccountResponses(linked), nil
}

// Sync fetches new transactions of a linked account from FinAPI
func (s *Service) Sync(ctx context.Context, tenantID, accountID uuid.UUID) (*SyncResult, error) {
	if s.finapi == nil {
		return nil, errFinAPIUnavailable
	}
	a, err := s.accounts.FindByIDForTenant(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}
	res, err := s.syncAccount(ctx, a)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// SyncAll syncs every linked account of the tenant in parallel. A failing
// account does not stop the others; its error is reported in the result.
func (s *Service) SyncAll(ctx context.Context, tenantID uuid.UUID) (*SyncAllResponse, error) {
	if s.finapi == nil {
		return nil, errFinAPIUnavailable
	}
	accounts, err := s.accounts.FindFinAPIAccounts(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	results := make([]SyncResult, len(accounts))
	var mu sync.Mutex
	resp := &SyncAllResponse{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)
	for i, a := range accounts {
		g.Go(func() error {
			res, err := s.syncAccount(gctx, a)
			if err != nil {
				res = SyncResult{BankAccountID: a.ID, Name: a.Name, Balance: a.Balance, Error: err.Error()}
			}
			results[i] = res
			mu.Lock()
			if err != nil {
				resp.Failed++
			} else {
				resp.Synced++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	resp.Accounts = results
	return resp, nil
}

func (s *Service) syncAccount(ctx context.Context, a *banking.BankAccount) (res SyncResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "banking", "sync",
		telemetry.SpanAttrTenantID, a.TenantID.String(),
		telemetry.SpanAttrBankAccountID, a.ID.String())
	defer span.End()
	started := s.now()
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		}
		s.metrics.BankSyncFinished(ctx, s.now().Sub(started), err)
	}()

	if err := a.CanSync(); err != nil {
		return SyncResult{}, err
	}
	since := a.SyncFrom(started, initialSyncDays)
	remote, err := s.finapi.ListTransactions(ctx, a.TenantID, *a.FinAPIAccountID, since)
	if err != nil {
		return SyncResult{}, s.handleSyncError(ctx, a, err)
	}

	txs := make([]*ledger.Transaction, 0, len(remote))
	for _, rt := range remote {
		tx, err := s.fromFinAPI(a, rt)
		if err != nil {
			s.logger.Warn("skipping FinAPI transaction",
				zap.Int64("finapi_transaction_id", rt.ID),
				zap.Error(err))
			continue
		}
		txs = append(txs, tx)
	}
	out, err := s.store(ctx, a.TenantID, nil, a.ID, txs)
	if err != nil {
		return SyncResult{}, err
	}

	balance := a.Balance
	if a.FinAPIConnectionID != nil {
		accounts, err := s.finapi.ListAccounts(ctx, a.TenantID, *a.FinAPIConnectionID)
		if err != nil {
			return SyncResult{}, s.handleSyncError(ctx, a, err)
		}
		for _, ra := range accounts {
			if ra.ID == *a.FinAPIAccountID {
				balance = ra.Balance
				break
			}
		}
	}
	a.RecordSync(balance, s.now())
	if err := s.accounts.Save(ctx, a); err != nil {
		return SyncResult{}, fmt.Errorf("save bank account: %w", err)
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrCount, len(out.fresh))
	s.metrics.TransactionsImported(ctx, string(ledger.SourceFinAPI), len(out.fresh))
	s.logger.Info("bank account synced",
		zap.String("tenant_id", a.TenantID.String()),
		zap.String("bank_account_id", a.ID.String()),
		zap.Int("fetched", len(remote)),
		zap.Int("imported", len(out.fresh)),
		zap.Int("duplicates", out.duplicates))
	return SyncResult{
		BankAccountID: a.ID,
		Name:          a.Name,
		Fetched:       len(remote),
		Imported:      len(out.fresh),
		Duplicates:    out.duplicates,
		Balance:       a.Balance,
	}, nil
}

func (s *Service) fromFinAPI(a *banking.BankAccount, rt finapi.Transaction) (*ledger.Transaction, error) {
	booking, err := rt.BookingDate()
	if err != nil {
		return nil, fmt.Errorf("booking date: %w", err)
	}
	valueDate, err := rt.ValueDateTime()
	if err != nil {
		valueDate = booking
	}
	id := a.ID
	return ledger.NewTransaction(a.TenantID, ledger.SourceFinAPI, ledger.Entry{
		BankAccountID:    &id,
		BookingDate:      booking,
		ValueDate:        &valueDate,
		Amount:           rt.Amount,
		Currency:         valueobject.Currency(strings.ToUpper(rt.Currency)),
		Counterparty:     rt.CounterpartName,
		CounterpartyIBAN: rt.CounterpartIBAN,
		Purpose:          rt.Purpose,
	})
}

// handleSyncError disconnects the account when the bank connection expired
func (s *Service) handleSyncError(ctx context.Context, a *banking.BankAccount, err error) error {
	if !errors.Is(err, finapi.ErrUnauthorized) {
		return s.finapiError(err)
	}
	a.Disconnect()
	if saveErr := s.accounts.Save(ctx, a); saveErr != nil {
		s.logger.Error("failed to mark account disconnected",
			zap.String("bank_account_id", a.ID.String()), zap.Error(saveErr))
	}
	return shared.NewDomainErrorWithCause("BANK_CONNECTION_EXPIRED",
		"The bank connection must be renewed", err)
}

func (s *Service) finapiError(err error) error {
	switch {
	case errors.Is(err, finapi.ErrNotConfigured):
		return errFinAPIUnavailable
	case errors.Is(err, finapi.ErrNotFound):
		return shared.NewDomainErrorWithCause("NOT_FOUND", "Resource not found at FinAPI", err)
	case errors.Is(err, finapi.ErrUnauthorized):
		return shared.NewDomainErrorWithCause("BANK_CONNECTION_EXPIRED", "The bank connection must be renewed", err)
	}
	return shared.NewDomainErrorWithCause("FINAPI_ERROR", "FinAPI request failed", err)
}

func (s *Service) notify(ctx context.Context, in notifyapp.NotifyInput) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Notify(ctx, in); err != nil {
		s.logger.Warn("failed to send notification", zap.String("type", string(in.Type)), zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, tx *ledger.Transaction) {
	events := tx.GetDomainEvents()
	if len(events) == 0 || s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish transaction events", zap.Error(err))
	}
	tx.ClearDomainEvents()
}
