package company

import (
	"github.com/kontor/backend/internal/domain/shared"
)

const (
	EventTypeCompanyRegistered   = "CompanyRegistered"
	EventTypeSubscriptionChanged = "SubscriptionChanged"
	aggregateType                = "Company"
)

// CompanyRegisteredEvent is raised when a new company signs up
type CompanyRegisteredEvent struct {
	shared.BaseDomainEvent
	Name           string `json:"name"`
	Email          string `json:"email"`
	ReferredByCode string `json:"referred_by_code,omitempty"`
}

// NewCompanyRegisteredEvent creates a CompanyRegisteredEvent
func NewCompanyRegisteredEvent(c *Company) *CompanyRegisteredEvent {
	return &CompanyRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCompanyRegistered, aggregateType, c.ID, c.ID),
		Name:            c.Name,
		Email:           c.Email,
		ReferredByCode:  c.ReferredByCode,
	}
}

// SubscriptionChangedEvent is raised when plan or status changes
type SubscriptionChangedEvent struct {
	shared.BaseDomainEvent
	PreviousPlan   Plan               `json:"previous_plan"`
	PreviousStatus SubscriptionStatus `json:"previous_status"`
	Plan           Plan               `json:"plan"`
	Status         SubscriptionStatus `json:"status"`
}

// NewSubscriptionChangedEvent creates a SubscriptionChangedEvent
func NewSubscriptionChangedEvent(c *Company, prev Subscription) *SubscriptionChangedEvent {
	return &SubscriptionChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSubscriptionChanged, aggregateType, c.ID, c.ID),
		PreviousPlan:    prev.Plan,
		PreviousStatus:  prev.Status,
		Plan:            c.Subscription.Plan,
		Status:          c.Subscription.Status,
	}
}
