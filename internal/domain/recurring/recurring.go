package recurring

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// MaxCatchUp caps how many missed occurrences one execution run creates per record
const MaxCatchUp = 12

// RecurringTransaction creates a transaction on every occurrence of its schedule
type RecurringTransaction struct {
	shared.TenantAggregateRoot
	Name           string
	Amount         decimal.Decimal
	Counterparty   string
	Purpose        string
	CategoryCode   string
	VATRate        *valueobject.VATRate
	BankAccountID  *uuid.UUID
	ContactID      *uuid.UUID
	Frequency      Frequency
	StartDate      time.Time
	EndDate        *time.Time
	AnchorDay      int
	NextExecution  *time.Time
	LastExecutedAt *time.Time
	// ResumedAt is the day of the last resume; nothing before it is executed
	ResumedAt      *time.Time
	ExecutionCount int
	Active         bool
}

// Template carries the editable fields
type Template struct {
	Name          string
	Amount        decimal.Decimal
	Counterparty  string
	Purpose       string
	CategoryCode  string
	VATRate       *valueobject.VATRate
	BankAccountID *uuid.UUID
	ContactID     *uuid.UUID
	Frequency     Frequency
	StartDate     time.Time
	EndDate       *time.Time
	// AnchorDay defaults to the day of the start date
	AnchorDay int
}

// NewRecurringTransaction creates an active record and computes its first execution date
func NewRecurringTransaction(tenantID uuid.UUID, tpl Template) (*RecurringTransaction, error) {
	r := &RecurringTransaction{TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID), Active: true}
	if err := r.apply(tpl); err != nil {
		return nil, err
	}
	first, ok := r.Schedule().First()
	if !ok {
		return nil, shared.NewDomainError("INVALID_END_DATE", "The schedule has no occurrence before its end date")
	}
	r.NextExecution = &first
	return r, nil
}

func (r *RecurringTransaction) apply(tpl Template) error {
	name := strings.TrimSpace(tpl.Name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Name cannot be empty")
	}
	amount := valueobject.RoundCents(tpl.Amount)
	if amount.IsZero() {
		return shared.NewDomainError("INVALID_AMOUNT", "Amount cannot be zero")
	}
	if !tpl.Frequency.IsValid() {
		return shared.NewDomainError("INVALID_FREQUENCY", fmt.Sprintf("Unknown frequency %q", tpl.Frequency))
	}
	if tpl.StartDate.IsZero() {
		return shared.NewDomainError("INVALID_START_DATE", "Start date is required")
	}
	start := shared.DateOnly(tpl.StartDate)
	var end *time.Time
	if tpl.EndDate != nil {
		e := shared.DateOnly(*tpl.EndDate)
		if e.Before(start) {
			return shared.NewDomainError("INVALID_END_DATE", "End date cannot be before the start date")
		}
		end = &e
	}
	anchor := tpl.AnchorDay
	if anchor == 0 {
		anchor = start.Day()
	}
	if tpl.Frequency.IsMonthBased() && (anchor < 1 || anchor > 31) {
		return shared.NewDomainError("INVALID_ANCHOR_DAY", "Anchor day must be between 1 and 31")
	}
	if !tpl.Frequency.IsMonthBased() {
		anchor = 0
	}
	if tpl.VATRate != nil && !tpl.VATRate.IsValid() {
		return shared.NewDomainError("INVALID_VAT_RATE", "VAT rate must be 0, 7 or 19 percent")
	}

	r.Name = name
	r.Amount = amount
	r.Counterparty = strings.TrimSpace(tpl.Counterparty)
	r.Purpose = strings.TrimSpace(tpl.Purpose)
	r.CategoryCode = tpl.CategoryCode
	r.VATRate = tpl.VATRate
	r.BankAccountID = tpl.BankAccountID
	r.ContactID = tpl.ContactID
	r.Frequency = tpl.Frequency
	r.StartDate = start
	r.EndDate = end
	r.AnchorDay = anchor
	return nil
}

// Schedule returns the occurrence calculator of the record
func (r *RecurringTransaction) Schedule() Schedule {
	return Schedule{Frequency: r.Frequency, Start: r.StartDate, End: r.EndDate, AnchorDay: r.AnchorDay}
}

// Update replaces the template and recomputes the next execution date from
// the last execution, or from the start when it never ran. Occurrences
// skipped by a resume stay skipped.
func (r *RecurringTransaction) Update(tpl Template) error {
	if err := r.apply(tpl); err != nil {
		return err
	}
	r.reschedule()
	r.Touch()
	return nil
}

func (r *RecurringTransaction) reschedule() {
	var (
		next time.Time
		ok   bool
	)
	if r.LastExecutedAt != nil {
		next, ok = r.Schedule().Next(*r.LastExecutedAt)
	} else {
		next, ok = r.Schedule().First()
	}
	if ok && r.ResumedAt != nil && next.Before(*r.ResumedAt) {
		next, ok = r.Schedule().OnOrAfter(*r.ResumedAt)
	}
	if !ok {
		r.NextExecution = nil
		r.Active = false
		return
	}
	r.NextExecution = &next
}

// Pause stops execution
func (r *RecurringTransaction) Pause() error {
	if !r.Active {
		return shared.NewDomainError("INVALID_STATE", "Recurring transaction is not active")
	}
	r.Active = false
	r.Touch()
	return nil
}

// Resume restarts execution from the first occurrence on or after today;
// missed occurrences while paused are not created
func (r *RecurringTransaction) Resume(today time.Time) error {
	if r.Active {
		return shared.NewDomainError("INVALID_STATE", "Recurring transaction is already active")
	}
	next, ok := r.Schedule().OnOrAfter(today)
	if !ok {
		return shared.NewDomainError("SCHEDULE_ENDED", "The schedule has passed its end date")
	}
	today = shared.DateOnly(today)
	r.NextExecution = &next
	r.ResumedAt = &today
	r.Active = true
	r.Touch()
	return nil
}

// IsDue reports whether an execution is pending on day asOf
func (r *RecurringTransaction) IsDue(asOf time.Time) bool {
	return r.Active && r.NextExecution != nil && !r.NextExecution.After(shared.DateOnly(asOf))
}

// DueOccurrences advances the schedule over every occurrence up to asOf,
// at most MaxCatchUp, and returns their dates. The record deactivates once
// its end date is passed.
func (r *RecurringTransaction) DueOccurrences(asOf time.Time) []time.Time {
	asOf = shared.DateOnly(asOf)
	var due []time.Time
	for r.IsDue(asOf) && len(due) < MaxCatchUp {
		occ := *r.NextExecution
		due = append(due, occ)
		next, ok := r.Schedule().Next(occ)
		if !ok {
			r.NextExecution = nil
			r.Active = false
			break
		}
		r.NextExecution = &next
	}
	if len(due) > 0 {
		r.LastExecutedAt = &due[len(due)-1]
		r.ExecutionCount += len(due)
		r.Touch()
		r.AddDomainEvent(NewRecurringExecutedEvent(r, due))
	}
	return due
}
