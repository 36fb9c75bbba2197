package automation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kontor/backend/internal/domain/automation"
	"github.com/kontor/backend/internal/domain/company"
	"github.com/kontor/backend/internal/domain/ledger"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
)

// Service manages automation rules and applies them to transactions
type Service struct {
	rules        automation.RuleRepository
	transactions ledger.TransactionRepository
	companies    company.CompanyRepository
	events       shared.EventPublisher
	logger       *zap.Logger
	now          func() time.Time
}

// NewService creates an automation Service
func NewService(
	rules automation.RuleRepository,
	transactions ledger.TransactionRepository,
	companies company.CompanyRepository,
	events shared.EventPublisher,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		rules:        rules,
		transactions: transactions,
		companies:    companies,
		events:       events,
		logger:       logger.Named("automation_service"),
		now:          time.Now,
	}
}

func validateActions(def automation.Definition) error {
	for _, a := range def.Actions {
		if a.Type != automation.ActionSetCategory {
			continue
		}
		if _, ok := ledger.CategoryByCode(a.Value); !ok {
			return shared.NewDomainError("INVALID_CATEGORY", fmt.Sprintf("Unknown category %q", a.Value))
		}
	}
	return nil
}

// Create stores a new rule
func (s *Service) Create(ctx context.Context, tenantID, userID uuid.UUID, req RuleRequest) (*RuleResponse, error) {
	def := toDefinition(req)
	if err := validateActions(def); err != nil {
		return nil, err
	}
	r, err := automation.NewRule(tenantID, def)
	if err != nil {
		return nil, err
	}
	r.SetCreatedBy(userID)
	if err := s.rules.Save(ctx, r); err != nil {
		return nil, err
	}
	resp := ToRuleResponse(r)
	return &resp, nil
}

// Get retrieves a rule by ID
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*RuleResponse, error) {
	r, err := s.rules.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToRuleResponse(r)
	return &resp, nil
}

// List returns all rules ordered by priority
func (s *Service) List(ctx context.Context, tenantID uuid.UUID) ([]RuleResponse, error) {
	rules, err := s.rules.FindAllForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	automation.SortByPriority(rules)
	out := make([]RuleResponse, len(rules))
	for i, r := range rules {
		out[i] = ToRuleResponse(r)
	}
	return out, nil
}

// Update replaces the definition of a rule
func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, req RuleRequest) (*RuleResponse, error) {
	r, err := s.rules.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	def := toDefinition(req)
	if err := validateActions(def); err != nil {
		return nil, err
	}
	if err := r.Update(def); err != nil {
		return nil, err
	}
	if err := s.rules.Save(ctx, r); err != nil {
		return nil, err
	}
	resp := ToRuleResponse(r)
	return &resp, nil
}

// Delete removes a rule
func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	if _, err := s.rules.FindByIDForTenant(ctx, tenantID, id); err != nil {
		return err
	}
	return s.rules.DeleteForTenant(ctx, tenantID, id)
}

// Test evaluates a rule against a stored transaction or a sample without
// changing anything
func (s *Service) Test(ctx context.Context, tenantID, id uuid.UUID, req TestRequest) (*TestResponse, error) {
	r, err := s.rules.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := r.Compile(); err != nil {
		return nil, err
	}
	subject := automation.Subject{
		Counterparty: req.Counterparty,
		Purpose:      req.Purpose,
		IBAN:         req.IBAN,
		Amount:       req.Amount,
	}
	if req.TransactionID != nil {
		tx, err := s.transactions.FindByIDForTenant(ctx, tenantID, *req.TransactionID)
		if err != nil {
			return nil, err
		}
		subject = SubjectOf(tx)
	}
	resp := &TestResponse{Matches: r.Matches(subject)}
	if resp.Matches {
		resp.Actions = r.Actions
	}
	return resp, nil
}

// SubjectOf is the view of a transaction that rules evaluate
func SubjectOf(tx *ledger.Transaction) automation.Subject {
	return automation.Subject{
		Counterparty: tx.Counterparty,
		Purpose:      tx.Purpose,
		IBAN:         tx.CounterpartyIBAN,
		Amount:       tx.Amount,
	}
}

// ApplyToTransactions runs the active rules of the tenant over unbooked
// transactions in memory. The first matching rule by priority wins. Callers
// persist the transactions; rule usage counters are saved here. Returns the
// number of transactions changed.
func (s *Service) ApplyToTransactions(ctx context.Context, tenantID uuid.UUID, txs []*ledger.Transaction) (int, error) {
	changed, err := s.applyRules(ctx, tenantID, txs)
	return len(changed), err
}

func (s *Service) applyRules(ctx context.Context, tenantID uuid.UUID, txs []*ledger.Transaction) ([]*ledger.Transaction, error) {
	if len(txs) == 0 {
		return nil, nil
	}
	rules, err := s.rules.FindActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, nil
	}
	automation.SortByPriority(rules)
	c, err := s.companies.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	chart := c.DATEV.Chart
	if chart == "" {
		chart = company.ChartSKR03
	}

	now := s.now()
	used := make(map[uuid.UUID]*automation.Rule)
	var changed []*ledger.Transaction
	for _, tx := range txs {
		if tx.Status != ledger.StatusUnbooked {
			continue
		}
		r := automation.FirstMatch(rules, SubjectOf(tx))
		if r == nil {
			continue
		}
		if err := Apply(tx, r, chart, now); err != nil {
			s.logger.Debug("rule could not be applied",
				zap.String("rule_id", r.ID.String()),
				zap.String("transaction_id", tx.ID.String()),
				zap.Error(err))
			continue
		}
		r.RecordApplied(now)
		used[r.ID] = r
		changed = append(changed, tx)
	}
	for _, r := range used {
		if err := s.rules.Save(ctx, r); err != nil {
			s.logger.Warn("failed to record rule usage", zap.String("rule_id", r.ID.String()), zap.Error(err))
		}
	}
	return changed, nil
}

// Apply executes the actions of a rule on a transaction. Category and VAT
// rate are applied together; mark_booked books with the resulting category.
// Nothing is changed when an action fails.
func Apply(tx *ledger.Transaction, r *automation.Rule, chart company.Chart, at time.Time) error {
	var (
		category string
		rate     *valueobject.VATRate
		contact  *uuid.UUID
		note     *string
		book     bool
		ignore   bool
	)
	for _, a := range r.Actions {
		switch a.Type {
		case automation.ActionSetCategory:
			category = a.Value
		case automation.ActionSetVATRate:
			n, err := strconv.Atoi(a.Value)
			if err != nil {
				return shared.NewDomainError("INVALID_ACTION", "VAT rate must be 0, 7 or 19")
			}
			v := valueobject.VATRate(n)
			rate = &v
		case automation.ActionSetContact:
			id, err := uuid.Parse(a.Value)
			if err != nil {
				return shared.NewDomainError("INVALID_ACTION", "Contact must be a valid id")
			}
			contact = &id
		case automation.ActionSetNote:
			v := a.Value
			note = &v
		case automation.ActionMarkBooked:
			book = true
		case automation.ActionIgnore:
			ignore = true
		}
	}
	if category == "" {
		category = tx.CategoryCode
	}

	switch {
	case ignore:
		if err := tx.Ignore(); err != nil {
			return err
		}
	case book:
		if category == "" {
			return shared.NewDomainError("INVALID_ACTION", "mark_booked needs a category")
		}
		if err := tx.Book(ledger.Booking{CategoryCode: category, VATRate: rate, ContactID: contact}, chart, at); err != nil {
			return err
		}
	case category != "":
		if err := tx.Categorize(category, chart, rate); err != nil {
			return err
		}
	}
	if contact != nil {
		tx.SetContact(*contact)
	}
	if note != nil {
		tx.SetNote(*note)
	}
	return nil
}

// ApplyToTransaction runs the rules over one transaction and saves it
func (s *Service) ApplyToTransaction(ctx context.Context, tenantID, transactionID uuid.UUID) (bool, error) {
	tx, err := s.transactions.FindByIDForTenant(ctx, tenantID, transactionID)
	if err != nil {
		return false, err
	}
	n, err := s.ApplyToTransactions(ctx, tenantID, []*ledger.Transaction{tx})
	if err != nil || n == 0 {
		return false, err
	}
	if err := s.transactions.Save(ctx, tx); err != nil {
		return false, err
	}
	s.publish(ctx, tx)
	return true, nil
}

// ApplyToUnbooked runs the rules over every unbooked transaction of the tenant
func (s *Service) ApplyToUnbooked(ctx context.Context, tenantID uuid.UUID) (*ApplyResponse, error) {
	txs, err := s.transactions.FindUnbooked(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	changed, err := s.applyRules(ctx, tenantID, txs)
	if err != nil {
		return nil, err
	}
	for _, tx := range changed {
		if err := s.transactions.Save(ctx, tx); err != nil {
			return nil, err
		}
		s.publish(ctx, tx)
	}
	s.logger.Info("automation rules applied",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("checked", len(txs)),
		zap.Int("changed", len(changed)))
	return &ApplyResponse{Checked: len(txs), Changed: len(changed)}, nil
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
