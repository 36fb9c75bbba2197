package automation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subject(counterparty, purpose, amount string) Subject {
	return Subject{Counterparty: counterparty, Purpose: purpose, IBAN: "DE89 3704 0044 0532 0130 00", Amount: decimal.RequireFromString(amount)}
}

func mustRule(t *testing.T, def Definition) *Rule {
	t.Helper()
	r, err := NewRule(uuid.New(), def)
	require.NoError(t, err)
	return r
}

func TestConditionMatches(t *testing.T) {
	s := subject("Deutsche Telekom AG", "Rechnung 2024/03 Mobilfunk", "-39.95")

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"contains ignores case", Condition{Field: FieldCounterparty, Operator: OpContains, Value: "TELEKOM"}, true},
		{"equals", Condition{Field: FieldCounterparty, Operator: OpEquals, Value: "deutsche telekom ag"}, true},
		{"equals partial", Condition{Field: FieldCounterparty, Operator: OpEquals, Value: "telekom"}, false},
		{"starts with", Condition{Field: FieldPurpose, Operator: OpStartsWith, Value: "rechnung"}, true},
		{"ends with", Condition{Field: FieldPurpose, Operator: OpEndsWith, Value: "mobilfunk"}, true},
		{"regex", Condition{Field: FieldPurpose, Operator: OpRegex, Value: `rechnung \d{4}/\d{2}`}, true},
		{"iban spacing", Condition{Field: FieldIBAN, Operator: OpEquals, Value: "DE8937040044 0532013000"}, true},
		{"amount lt", Condition{Field: FieldAmount, Operator: OpLt, Value: "0"}, true},
		{"amount gt", Condition{Field: FieldAmount, Operator: OpGt, Value: "0"}, false},
		{"abs between", Condition{Field: FieldAbsAmount, Operator: OpBetween, Value: "50", Value2: "30"}, true},
		{"abs eq", Condition{Field: FieldAbsAmount, Operator: OpEq, Value: "39.950"}, true},
		{"abs gte", Condition{Field: FieldAbsAmount, Operator: OpGte, Value: "39.95"}, true},
		{"amount lte", Condition{Field: FieldAmount, Operator: OpLte, Value: "-40"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.cond.compile())
			assert.Equal(t, tt.want, tt.cond.Matches(s))
		})
	}
}

func TestRuleValidation(t *testing.T) {
	action := []Action{{Type: ActionSetCategory, Value: "telecommunication"}}
	tests := []struct {
		name string
		def  Definition
		code string
	}{
		{"name", Definition{Conditions: []Condition{{Field: FieldPurpose, Operator: OpContains, Value: "x"}}, Actions: action}, "INVALID_NAME"},
		{"no conditions", Definition{Name: "r", Actions: action}, "NO_CONDITIONS"},
		{"no actions", Definition{Name: "r", Conditions: []Condition{{Field: FieldPurpose, Operator: OpContains, Value: "x"}}}, "NO_ACTIONS"},
		{"bad regex", Definition{Name: "r", Conditions: []Condition{{Field: FieldPurpose, Operator: OpRegex, Value: "("}}, Actions: action}, "INVALID_REGEX"},
		{"operator mismatch", Definition{Name: "r", Conditions: []Condition{{Field: FieldAmount, Operator: OpContains, Value: "1"}}, Actions: action}, "INVALID_OPERATOR"},
		{"amount not a number", Definition{Name: "r", Conditions: []Condition{{Field: FieldAmount, Operator: OpGt, Value: "viel"}}, Actions: action}, "INVALID_CONDITION"},
		{"field", Definition{Name: "r", Conditions: []Condition{{Field: "date", Operator: OpEq, Value: "1"}}, Actions: action}, "INVALID_FIELD"},
		{"vat action", Definition{Name: "r", Conditions: []Condition{{Field: FieldPurpose, Operator: OpContains, Value: "x"}}, Actions: []Action{{Type: ActionSetVATRate, Value: "16"}}}, "INVALID_ACTION"},
		{"contact action", Definition{Name: "r", Conditions: []Condition{{Field: FieldPurpose, Operator: OpContains, Value: "x"}}, Actions: []Action{{Type: ActionSetContact, Value: "abc"}}}, "INVALID_ACTION"},
		{"mode", Definition{Name: "r", MatchMode: "some", Conditions: []Condition{{Field: FieldPurpose, Operator: OpContains, Value: "x"}}, Actions: action}, "INVALID_MATCH_MODE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRule(uuid.New(), tt.def)
			var de *shared.DomainError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.code, de.Code)
		})
	}
}

func TestRuleMatchModes(t *testing.T) {
	conds := []Condition{
		{Field: FieldCounterparty, Operator: OpContains, Value: "telekom"},
		{Field: FieldAmount, Operator: OpGt, Value: "0"},
	}
	actions := []Action{{Type: ActionIgnore}}
	s := subject("Telekom", "", "-10")

	all := mustRule(t, Definition{Name: "all", Active: true, Conditions: conds, Actions: actions})
	assert.Equal(t, MatchAll, all.MatchMode)
	assert.False(t, all.Matches(s))

	anyRule := mustRule(t, Definition{Name: "any", Active: true, MatchMode: MatchAny, Conditions: conds, Actions: actions})
	assert.True(t, anyRule.Matches(s))
}

func TestFirstMatch(t *testing.T) {
	cond := []Condition{{Field: FieldCounterparty, Operator: OpContains, Value: "amazon"}}
	generic := mustRule(t, Definition{Name: "generic", Priority: 20, Active: true, Conditions: cond, Actions: []Action{{Type: ActionSetCategory, Value: "other_expenses"}}})
	specific := mustRule(t, Definition{Name: "aws", Priority: 10, Active: true, Conditions: []Condition{
		{Field: FieldCounterparty, Operator: OpContains, Value: "amazon"},
		{Field: FieldPurpose, Operator: OpContains, Value: "aws"},
	}, Actions: []Action{{Type: ActionSetCategory, Value: "software"}}})
	inactive := mustRule(t, Definition{Name: "off", Priority: 1, Active: false, Conditions: cond, Actions: []Action{{Type: ActionIgnore}}})

	rules := []*Rule{generic, inactive, specific}
	SortByPriority(rules)
	assert.Equal(t, inactive, rules[0])

	assert.Equal(t, specific, FirstMatch(rules, subject("Amazon Web Services", "AWS EMEA invoice", "-12")))
	assert.Equal(t, generic, FirstMatch(rules, subject("AMAZON EU", "Bestellung", "-30")))
	assert.Nil(t, FirstMatch(rules, subject("Lidl", "", "-3")))

	generic.RecordApplied(time.Now())
	assert.Equal(t, 1, generic.TimesApplied)
}

func TestCompileAfterLoad(t *testing.T) {
	r := &Rule{MatchMode: MatchAll, Conditions: []Condition{{Field: FieldPurpose, Operator: OpRegex, Value: "^miete"}}}
	assert.False(t, r.Matches(subject("", "Miete Mai", "-1")))
	require.NoError(t, r.Compile())
	assert.True(t, r.Matches(subject("", "Miete Mai", "-1")))
}
