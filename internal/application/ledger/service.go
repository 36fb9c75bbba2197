package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kontor/backend/internal/domain/banking"
	"github.com/kontor/backend/internal/domain/company"
	"github.com/kontor/backend/internal/domain/contact"
	"github.com/kontor/backend/internal/domain/ledger"
	"github.com/kontor/backend/internal/domain/receipt"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
)

// InvoiceSettler marks an invoice paid by a booked payment
type InvoiceSettler interface {
	SettleInvoice(ctx context.Context, tenantID, invoiceID, transactionID uuid.UUID, paidAt time.Time) error
}

// ServiceConfig holds the dependencies of the transaction Service
type ServiceConfig struct {
	Transactions ledger.TransactionRepository
	Companies    company.CompanyRepository
	Contacts     contact.ContactRepository
	Accounts     banking.BankAccountRepository
	Receipts     receipt.ReceiptRepository
	Invoices     InvoiceSettler
	Events       shared.EventPublisher
	// Tx makes settling an invoice and booking its payment atomic
	Tx     shared.Transactor
	Logger *zap.Logger
}

// Service manages bank and manual transactions and their booking
type Service struct {
	transactions ledger.TransactionRepository
	companies    company.CompanyRepository
	contacts     contact.ContactRepository
	accounts     banking.BankAccountRepository
	receipts     receipt.ReceiptRepository
	invoices     InvoiceSettler
	events       shared.EventPublisher
	tx           shared.Transactor
	logger       *zap.Logger
	now          func() time.Time
}

// NewService creates a transaction Service
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
		transactions: cfg.Transactions,
		companies:    cfg.Companies,
		contacts:     cfg.Contacts,
		accounts:     cfg.Accounts,
		receipts:     cfg.Receipts,
		invoices:     cfg.Invoices,
		events:       cfg.Events,
		tx:           tx,
		logger:       logger.Named("transaction_service"),
		now:          time.Now,
	}
}

// Create records a manual transaction
func (s *Service) Create(ctx context.Context, tenantID, userID uuid.UUID, req TransactionRequest) (*TransactionResponse, error) {
	entry, err := toEntry(req)
	if err != nil {
		return nil, err
	}
	if err := s.checkBankAccount(ctx, tenantID, entry.BankAccountID); err != nil {
		return nil, err
	}
	tx, err := ledger.NewTransaction(tenantID, ledger.SourceManual, entry)
	if err != nil {
		return nil, err
	}
	tx.SetCreatedBy(userID)
	if err := s.transactions.Save(ctx, tx); err != nil {
		return nil, err
	}
	resp := ToTransactionResponse(tx)
	return &resp, nil
}

func (s *Service) checkBankAccount(ctx context.Context, tenantID uuid.UUID, id *uuid.UUID) error {
	if id == nil || s.accounts == nil {
		return nil
	}
	if _, err := s.accounts.FindByIDForTenant(ctx, tenantID, *id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("INVALID_BANK_ACCOUNT", "Bank account not found")
		}
		return err
	}
	return nil
}

// Get retrieves a transaction by ID
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*TransactionResponse, error) {
	tx, err := s.transactions.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToTransactionResponse(tx)
	return &resp, nil
}

// List retrieves transactions with filtering and pagination
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]TransactionResponse, int64, error) {
	f := ledger.TransactionFilter{Filter: shared.DefaultFilter()}
	f.OrderBy = "booking_date"
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		f.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		f.OrderDir = filter.OrderDir
	}
	f.Search = filter.Search
	if filter.Status != "" {
		st := ledger.Status(filter.Status)
		f.Status = &st
	}
	if filter.CategoryCode != "" {
		code := filter.CategoryCode
		f.CategoryCode = &code
	}
	if filter.Sign != "" {
		sign := ledger.AmountSign(filter.Sign)
		f.Sign = &sign
	}
	f.BankAccountID = filter.BankAccountID
	var err error
	if f.FromDate, err = parseDate("from", filter.From); err != nil {
		return nil, 0, err
	}
	if f.ToDate, err = parseDate("to", filter.To); err != nil {
		return nil, 0, err
	}

	txs, total, err := s.transactions.FindAllForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, 0, err
	}
	return ToTransactionResponses(txs), total, nil
}

// Update edits an unbooked transaction; imported ones only accept a note
func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, req TransactionRequest) (*TransactionResponse, error) {
	tx, err := s.transactions.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	entry, err := toEntry(req)
	if err != nil {
		return nil, err
	}
	if err := s.checkBankAccount(ctx, tenantID, entry.BankAccountID); err != nil {
		return nil, err
	}
	if err := tx.Update(entry); err != nil {
		return nil, err
	}
	if err := s.transactions.Save(ctx, tx); err != nil {
		return nil, err
	}
	resp := ToTransactionResponse(tx)
	return &resp, nil
}

// Book categorises a transaction. Linking an invoice settles it, linking a
// receipt marks the receipt booked.
func (s *Service) Book(ctx context.Context, tenantID, id uuid.UUID, req BookRequest) (*TransactionResponse, error) {
	tx, err := s.transactions.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	c, err := s.companies.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if req.ContactID != nil {
		if _, err := s.contacts.FindByIDForTenant(ctx, tenantID, *req.ContactID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewDomainError("INVALID_CONTACT", "Contact not found")
			}
			return nil, err
		}
	}
	var r *receipt.Receipt
	if req.ReceiptID != nil && s.receipts != nil {
		if r, err = s.receipts.FindByIDForTenant(ctx, tenantID, *req.ReceiptID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewDomainError("INVALID_RECEIPT", "Receipt not found")
			}
			return nil, err
		}
	}

	previousInvoice := tx.InvoiceID
	b := ledger.Booking{
		CategoryCode: req.CategoryCode,
		ContactID:    req.ContactID,
		InvoiceID:    req.InvoiceID,
		ReceiptID:    req.ReceiptID,
	}
	if req.VATRate != nil {
		rate := valueobject.VATRate(*req.VATRate)
		b.VATRate = &rate
	}
	if err := tx.Book(b, c.DATEV.Chart, s.now()); err != nil {
		return nil, err
	}
	if r != nil {
		if err := r.LinkTransaction(tx.ID); err != nil {
			return nil, err
		}
	}

	settle := req.InvoiceID != nil && !sameID(previousInvoice, req.InvoiceID)
	if settle && s.invoices == nil {
		return nil, shared.NewDomainError("INVALID_INVOICE_LINK", "Invoice settlement is not available")
	}
	if err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if settle {
			if err := s.invoices.SettleInvoice(ctx, tenantID, *req.InvoiceID, tx.ID, tx.BookingDate); err != nil {
				return err
			}
		}
		return s.transactions.Save(ctx, tx)
	}); err != nil {
		return nil, err
	}
	if r != nil {
		if err := s.receipts.Save(ctx, r); err != nil {
			s.logger.Error("failed to link receipt to booked transaction",
				zap.String("transaction_id", tx.ID.String()),
				zap.String("receipt_id", r.ID.String()),
				zap.Error(err))
		}
	}
	s.publish(ctx, tx)
	s.logger.Debug("transaction booked",
		zap.String("tenant_id", tenantID.String()),
		zap.String("transaction_id", tx.ID.String()),
		zap.String("category", tx.CategoryCode))
	resp := ToTransactionResponse(tx)
	return &resp, nil
}

func sameID(a, b *uuid.UUID) bool {
	return a != nil && b != nil && *a == *b
}

// Unbook returns a transaction to the inbox
func (s *Service) Unbook(ctx context.Context, tenantID, id uuid.UUID) (*TransactionResponse, error) {
	return s.transition(ctx, tenantID, id, (*ledger.Transaction).Unbook)
}

// Ignore excludes a transaction from bookkeeping
func (s *Service) Ignore(ctx context.Context, tenantID, id uuid.UUID) (*TransactionResponse, error) {
	return s.transition(ctx, tenantID, id, (*ledger.Transaction).Ignore)
}

func (s *Service) transition(ctx context.Context, tenantID, id uuid.UUID, apply func(*ledger.Transaction) error) (*TransactionResponse, error) {
	tx, err := s.transactions.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := apply(tx); err != nil {
		return nil, err
	}
	if err := s.transactions.Save(ctx, tx); err != nil {
		return nil, err
	}
	resp := ToTransactionResponse(tx)
	return &resp, nil
}

// Delete removes a manual or recurring transaction that is not booked
func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tx, err := s.transactions.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if !tx.Source.CanDelete() {
		return shared.NewDomainError("IMPORTED_TRANSACTION", "Imported bank transactions cannot be deleted; ignore them instead")
	}
	if tx.Status == ledger.StatusBooked {
		return shared.NewDomainError("INVALID_STATE", "Unbook the transaction before deleting it")
	}
	return s.transactions.DeleteForTenant(ctx, tenantID, id)
}

// Categories returns the booking categories with accounts of the company chart
func (s *Service) Categories(ctx context.Context, tenantID uuid.UUID) ([]CategoryResponse, error) {
	chart := company.ChartSKR03
	c, err := s.companies.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if c.DATEV.Chart != "" {
		chart = c.DATEV.Chart
	}
	cats := ledger.Categories()
	out := make([]CategoryResponse, len(cats))
	for i, cat := range cats {
		out[i] = CategoryResponse{Category: cat, Account: cat.Account(chart)}
	}
	return out, nil
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
