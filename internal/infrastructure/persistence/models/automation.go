package models

import (
	"time"

	"github.com/kontor/backend/internal/domain/automation"
	"go.uber.org/zap"
)

// AutomationRuleModel is the persistence model for an automation Rule.
// Conditions and actions are stored in json columns.
type AutomationRuleModel struct {
	TenantAggregateModel
	Name           string               `gorm:"type:varchar(200);not null"`
	Priority       int                  `gorm:"not null;default:100;index"`
	Active         bool                 `gorm:"not null;default:true"`
	MatchMode      automation.MatchMode `gorm:"type:varchar(10);not null;default:'all'"`
	ConditionsJSON string               `gorm:"column:conditions;type:jsonb;not null;default:'[]'"`
	ActionsJSON    string               `gorm:"column:actions;type:jsonb;not null;default:'[]'"`
	TimesApplied   int                  `gorm:"not null;default:0"`
	LastAppliedAt  *time.Time
}

// TableName returns the table name for GORM
func (AutomationRuleModel) TableName() string {
	return "automation_rules"
}

// ToDomain converts the persistence model to a compiled domain Rule
func (m *AutomationRuleModel) ToDomain() *automation.Rule {
	r := &automation.Rule{
		Name:          m.Name,
		Priority:      m.Priority,
		Active:        m.Active,
		MatchMode:     m.MatchMode,
		Conditions:    make([]automation.Condition, 0),
		Actions:       make([]automation.Action, 0),
		TimesApplied:  m.TimesApplied,
		LastAppliedAt: m.LastAppliedAt,
	}
	m.PopulateTenantAggregateRoot(&r.TenantAggregateRoot)
	decodeColumn(m.ConditionsJSON, &r.Conditions, "automation_rules", m.ID)
	decodeColumn(m.ActionsJSON, &r.Actions, "automation_rules", m.ID)
	if err := r.Compile(); err != nil {
		columnLogger.Warn("stored automation rule does not compile",
			zap.String("rule_id", m.ID.String()),
			zap.Error(err))
	}
	return r
}

// FromDomain populates the persistence model from a domain Rule
func (m *AutomationRuleModel) FromDomain(r *automation.Rule) {
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	m.Name = r.Name
	m.Priority = r.Priority
	m.Active = r.Active
	m.MatchMode = r.MatchMode
	m.ConditionsJSON = encodeColumn(r.Conditions, "[]")
	m.ActionsJSON = encodeColumn(r.Actions, "[]")
	m.TimesApplied = r.TimesApplied
	m.LastAppliedAt = r.LastAppliedAt
}

// AutomationRuleModelFromDomain creates a new persistence model from a domain Rule
func AutomationRuleModelFromDomain(r *automation.Rule) *AutomationRuleModel {
	m := &AutomationRuleModel{}
	m.FromDomain(r)
	return m
}
