package automation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MatchMode combines the conditions of a rule
type MatchMode string

const (
	MatchAll MatchMode = "all"
	MatchAny MatchMode = "any"
)

// Field is the transaction attribute a condition inspects
type Field string

const (
	FieldCounterparty Field = "counterparty"
	FieldPurpose      Field = "purpose"
	FieldIBAN         Field = "iban"
	FieldAmount       Field = "amount"
	FieldAbsAmount    Field = "abs_amount"
)

func (f Field) isText() bool {
	return f == FieldCounterparty || f == FieldPurpose || f == FieldIBAN
}

func (f Field) isAmount() bool {
	return f == FieldAmount || f == FieldAbsAmount
}

// Operator compares a field with the condition value
type Operator string

const (
	OpContains   Operator = "contains"
	OpEquals     Operator = "equals"
	OpStartsWith Operator = "starts_with"
	OpEndsWith   Operator = "ends_with"
	OpRegex      Operator = "regex"

	OpEq      Operator = "eq"
	OpGt      Operator = "gt"
	OpGte     Operator = "gte"
	OpLt      Operator = "lt"
	OpLte     Operator = "lte"
	OpBetween Operator = "between"
)

func (o Operator) isText() bool {
	switch o {
	case OpContains, OpEquals, OpStartsWith, OpEndsWith, OpRegex:
		return true
	}
	return false
}

func (o Operator) isAmount() bool {
	switch o {
	case OpEq, OpGt, OpGte, OpLt, OpLte, OpBetween:
		return true
	}
	return false
}

// ActionType is what a matching rule does to the transaction
type ActionType string

const (
	ActionSetCategory ActionType = "set_category"
	ActionSetVATRate  ActionType = "set_vat_rate"
	ActionSetContact  ActionType = "set_contact"
	ActionSetNote     ActionType = "set_note"
	ActionMarkBooked  ActionType = "mark_booked"
	ActionIgnore      ActionType = "ignore"
)

func (a ActionType) IsValid() bool {
	switch a {
	case ActionSetCategory, ActionSetVATRate, ActionSetContact, ActionSetNote, ActionMarkBooked, ActionIgnore:
		return true
	}
	return false
}

// Condition tests one field of a transaction
type Condition struct {
	Field    Field    `json:"field"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value"`
	Value2   string   `json:"value2,omitempty"`

	re        *regexp.Regexp
	low, high decimal.Decimal
}

// Action changes one aspect of a matched transaction
type Action struct {
	Type  ActionType `json:"type"`
	Value string     `json:"value,omitempty"`
}

// Subject is the view of a transaction that rules evaluate
type Subject struct {
	Counterparty string
	Purpose      string
	IBAN         string
	Amount       decimal.Decimal
}

// Rule categorises transactions automatically
type Rule struct {
	shared.TenantAggregateRoot
	Name          string
	Priority      int
	Active        bool
	MatchMode     MatchMode
	Conditions    []Condition
	Actions       []Action
	TimesApplied  int
	LastAppliedAt *time.Time
}

// Definition carries the editable fields of a rule
type Definition struct {
	Name       string
	Priority   int
	Active     bool
	MatchMode  MatchMode
	Conditions []Condition
	Actions    []Action
}

// NewRule validates and creates a rule
func NewRule(tenantID uuid.UUID, def Definition) (*Rule, error) {
	r := &Rule{TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID)}
	if err := r.apply(def); err != nil {
		return nil, err
	}
	return r, nil
}

// Update replaces the definition
func (r *Rule) Update(def Definition) error {
	if err := r.apply(def); err != nil {
		return err
	}
	r.Touch()
	return nil
}

func (r *Rule) apply(def Definition) error {
	name := strings.TrimSpace(def.Name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Rule name cannot be empty")
	}
	mode := def.MatchMode
	if mode == "" {
		mode = MatchAll
	}
	if mode != MatchAll && mode != MatchAny {
		return shared.NewDomainError("INVALID_MATCH_MODE", "Match mode must be all or any")
	}
	if len(def.Conditions) == 0 {
		return shared.NewDomainError("NO_CONDITIONS", "A rule needs at least one condition")
	}
	if len(def.Actions) == 0 {
		return shared.NewDomainError("NO_ACTIONS", "A rule needs at least one action")
	}
	conds := make([]Condition, len(def.Conditions))
	for i, c := range def.Conditions {
		if err := c.compile(); err != nil {
			return err
		}
		conds[i] = c
	}
	for _, a := range def.Actions {
		if err := a.validate(); err != nil {
			return err
		}
	}

	r.Name = name
	r.Priority = def.Priority
	r.Active = def.Active
	r.MatchMode = mode
	r.Conditions = conds
	r.Actions = append([]Action(nil), def.Actions...)
	return nil
}

// Compile prepares conditions loaded from storage
func (r *Rule) Compile() error {
	for i := range r.Conditions {
		if err := r.Conditions[i].compile(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Condition) compile() error {
	switch {
	case c.Field.isText():
		if !c.Operator.isText() {
			return shared.NewDomainError("INVALID_OPERATOR", fmt.Sprintf("Operator %s does not apply to %s", c.Operator, c.Field))
		}
		if c.Value == "" {
			return shared.NewDomainError("INVALID_CONDITION", "Condition value cannot be empty")
		}
		if c.Operator == OpRegex {
			re, err := regexp.Compile("(?i)" + c.Value)
			if err != nil {
				return shared.NewDomainErrorWithCause("INVALID_REGEX", fmt.Sprintf("Invalid regular expression %q", c.Value), err)
			}
			c.re = re
		}
	case c.Field.isAmount():
		if !c.Operator.isAmount() {
			return shared.NewDomainError("INVALID_OPERATOR", fmt.Sprintf("Operator %s does not apply to %s", c.Operator, c.Field))
		}
		low, err := decimal.NewFromString(strings.TrimSpace(c.Value))
		if err != nil {
			return shared.NewDomainError("INVALID_CONDITION", fmt.Sprintf("Amount %q is not a number", c.Value))
		}
		c.low = low
		if c.Operator == OpBetween {
			high, err := decimal.NewFromString(strings.TrimSpace(c.Value2))
			if err != nil {
				return shared.NewDomainError("INVALID_CONDITION", fmt.Sprintf("Amount %q is not a number", c.Value2))
			}
			if high.LessThan(low) {
				low, high = high, low
			}
			c.low, c.high = low, high
		}
	default:
		return shared.NewDomainError("INVALID_FIELD", fmt.Sprintf("Unknown field %q", c.Field))
	}
	return nil
}

func (a Action) validate() error {
	if !a.Type.IsValid() {
		return shared.NewDomainError("INVALID_ACTION", fmt.Sprintf("Unknown action %q", a.Type))
	}
	switch a.Type {
	case ActionSetCategory, ActionSetNote:
		if strings.TrimSpace(a.Value) == "" {
			return shared.NewDomainError("INVALID_ACTION", fmt.Sprintf("Action %s needs a value", a.Type))
		}
	case ActionSetVATRate:
		if a.Value != "0" && a.Value != "7" && a.Value != "19" {
			return shared.NewDomainError("INVALID_ACTION", "VAT rate must be 0, 7 or 19")
		}
	case ActionSetContact:
		if _, err := uuid.Parse(a.Value); err != nil {
			return shared.NewDomainError("INVALID_ACTION", "Contact must be a valid id")
		}
	}
	return nil
}

// Matches evaluates the condition against a subject
func (c Condition) Matches(s Subject) bool {
	switch c.Field {
	case FieldCounterparty:
		return c.matchText(s.Counterparty)
	case FieldPurpose:
		return c.matchText(s.Purpose)
	case FieldIBAN:
		return c.matchText(strings.ReplaceAll(s.IBAN, " ", ""))
	case FieldAmount:
		return c.matchAmount(s.Amount)
	case FieldAbsAmount:
		return c.matchAmount(s.Amount.Abs())
	}
	return false
}

func (c Condition) matchText(v string) bool {
	hay := strings.ToLower(v)
	needle := strings.ToLower(c.Value)
	if c.Field == FieldIBAN {
		needle = strings.ReplaceAll(needle, " ", "")
	}
	switch c.Operator {
	case OpContains:
		return strings.Contains(hay, needle)
	case OpEquals:
		return strings.TrimSpace(hay) == strings.TrimSpace(needle)
	case OpStartsWith:
		return strings.HasPrefix(hay, needle)
	case OpEndsWith:
		return strings.HasSuffix(hay, needle)
	case OpRegex:
		return c.re != nil && c.re.MatchString(v)
	}
	return false
}

func (c Condition) matchAmount(v decimal.Decimal) bool {
	switch c.Operator {
	case OpEq:
		return v.Equal(c.low)
	case OpGt:
		return v.GreaterThan(c.low)
	case OpGte:
		return v.GreaterThanOrEqual(c.low)
	case OpLt:
		return v.LessThan(c.low)
	case OpLte:
		return v.LessThanOrEqual(c.low)
	case OpBetween:
		return v.GreaterThanOrEqual(c.low) && v.LessThanOrEqual(c.high)
	}
	return false
}

// Matches evaluates all conditions according to the match mode
func (r *Rule) Matches(s Subject) bool {
	if len(r.Conditions) == 0 {
		return false
	}
	for _, c := range r.Conditions {
		ok := c.Matches(s)
		if r.MatchMode == MatchAny && ok {
			return true
		}
		if r.MatchMode != MatchAny && !ok {
			return false
		}
	}
	return r.MatchMode != MatchAny
}

// RecordApplied bumps the usage counter
func (r *Rule) RecordApplied(at time.Time) {
	r.TimesApplied++
	r.LastAppliedAt = &at
	r.Touch()
}

// SortByPriority orders rules so that lower priority values run first; ties
// keep creation order
func SortByPriority(rules []*Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority < rules[j].Priority
		}
		return rules[i].CreatedAt.Before(rules[j].CreatedAt)
	})
}

// FirstMatch returns the first active rule matching s, or nil
func FirstMatch(rules []*Rule, s Subject) *Rule {
	for _, r := range rules {
		if r.Active && r.Matches(s) {
			return r
		}
	}
	return nil
}
