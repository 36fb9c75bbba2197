package referral

import (
	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/shared"
)

const EventTypeReferralConverted = "ReferralConverted"

// ReferralConvertedEvent is raised when a referred company pays for the first time
type ReferralConvertedEvent struct {
	shared.BaseDomainEvent
	ReferredTenantID uuid.UUID `json:"referred_tenant_id"`
	Code             string    `json:"code"`
}

// NewReferralConvertedEvent creates a ReferralConvertedEvent
func NewReferralConvertedEvent(r *Referral) *ReferralConvertedEvent {
	return &ReferralConvertedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeReferralConverted, "Referral", r.ID, r.TenantID),
		ReferredTenantID: r.ReferredTenantID,
		Code:             r.Code,
	}
}
