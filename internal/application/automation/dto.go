package automation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kontor/backend/internal/domain/automation"
)

// ConditionRequest is one condition of a rule
type ConditionRequest struct {
	Field    string `json:"field" binding:"required,oneof=counterparty purpose iban amount abs_amount"`
	Operator string `json:"operator" binding:"required,oneof=contains equals starts_with ends_with regex eq gt gte lt lte between"`
	Value    string `json:"value" binding:"required,max=500"`
	Value2   string `json:"value2" binding:"max=100"`
}

// ActionRequest is one action of a rule
type ActionRequest struct {
	Type  string `json:"type" binding:"required,oneof=set_category set_vat_rate set_contact set_note mark_booked ignore"`
	Value string `json:"value" binding:"max=500"`
}

// RuleRequest is the body of create and update requests
type RuleRequest struct {
	Name       string             `json:"name" binding:"required,min=1,max=100"`
	Priority   int                `json:"priority" binding:"min=0,max=10000"`
	Active     *bool              `json:"active"`
	MatchMode  string             `json:"match_mode" binding:"omitempty,oneof=all any"`
	Conditions []ConditionRequest `json:"conditions" binding:"required,min=1,dive"`
	Actions    []ActionRequest    `json:"actions" binding:"required,min=1,dive"`
}

// TestRequest evaluates a rule against a stored transaction or a sample
type TestRequest struct {
	TransactionID *uuid.UUID      `json:"transaction_id"`
	Counterparty  string          `json:"counterparty"`
	Purpose       string          `json:"purpose"`
	IBAN          string          `json:"iban"`
	Amount        decimal.Decimal `json:"amount"`
}

// TestResponse reports whether a rule matches
type TestResponse struct {
	Matches bool                `json:"matches"`
	Actions []automation.Action `json:"actions,omitempty"`
}

// ApplyResponse is the result of a manual rule run
type ApplyResponse struct {
	Checked int `json:"checked"`
	Changed int `json:"changed"`
}

// RuleResponse represents a rule in API responses
type RuleResponse struct {
	ID            uuid.UUID              `json:"id"`
	Name          string                 `json:"name"`
	Priority      int                    `json:"priority"`
	Active        bool                   `json:"active"`
	MatchMode     string                 `json:"match_mode"`
	Conditions    []automation.Condition `json:"conditions"`
	Actions       []automation.Action    `json:"actions"`
	TimesApplied  int                    `json:"times_applied"`
	LastAppliedAt *time.Time             `json:"last_applied_at,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// ToRuleResponse converts a domain Rule
func ToRuleResponse(r *automation.Rule) RuleResponse {
	return RuleResponse{
		ID:            r.ID,
		Name:          r.Name,
		Priority:      r.Priority,
		Active:        r.Active,
		MatchMode:     string(r.MatchMode),
		Conditions:    r.Conditions,
		Actions:       r.Actions,
		TimesApplied:  r.TimesApplied,
		LastAppliedAt: r.LastAppliedAt,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func toDefinition(req RuleRequest) automation.Definition {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	def := automation.Definition{
		Name:       req.Name,
		Priority:   req.Priority,
		Active:     active,
		MatchMode:  automation.MatchMode(req.MatchMode),
		Conditions: make([]automation.Condition, len(req.Conditions)),
		Actions:    make([]automation.Action, len(req.Actions)),
	}
	for i, c := range req.Conditions {
		def.Conditions[i] = automation.Condition{
			Field:    automation.Field(c.Field),
			Operator: automation.Operator(c.Operator),
			Value:    c.Value,
			Value2:   c.Value2,
		}
	}
	for i, a := range req.Actions {
		def.Actions[i] = automation.Action{Type: automation.ActionType(a.Type), Value: a.Value}
	}
	return def
}
