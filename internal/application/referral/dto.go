package referral

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kontor/backend/internal/domain/referral"
)

// CodeResponse is the referral code of a company
type CodeResponse struct {
	Code     string          `json:"code"`
	ShareURL string          `json:"share_url"`
	Reward   decimal.Decimal `json:"reward"`
}

// ReferralResponse represents a referral in API responses
type ReferralResponse struct {
	ID               uuid.UUID       `json:"id"`
	ReferredTenantID uuid.UUID       `json:"referred_tenant_id"`
	Code             string          `json:"code"`
	Status           string          `json:"status"`
	RewardAmount     decimal.Decimal `json:"reward_amount"`
	ConvertedAt      *time.Time      `json:"converted_at,omitempty"`
	RewardedAt       *time.Time      `json:"rewarded_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ListResponse lists referrals with stats
type ListResponse struct {
	Referrals []ReferralResponse `json:"referrals"`
	Stats     referral.Stats     `json:"stats"`
}

// ToReferralResponse converts a domain Referral
func ToReferralResponse(r *referral.Referral) ReferralResponse {
	return ReferralResponse{
		ID:               r.ID,
		ReferredTenantID: r.ReferredTenantID,
		Code:             r.Code,
		Status:           string(r.Status),
		RewardAmount:     r.RewardAmount,
		ConvertedAt:      r.ConvertedAt,
		RewardedAt:       r.RewardedAt,
		CreatedAt:        r.CreatedAt,
	}
}
