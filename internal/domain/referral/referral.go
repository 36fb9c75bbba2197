package referral

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a referral
type Status string

const (
	StatusPending   Status = "pending"
	StatusConverted Status = "converted"
	StatusRewarded  Status = "rewarded"
	StatusExpired   Status = "expired"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConverted, StatusRewarded, StatusExpired:
		return true
	}
	return false
}

// DefaultReward is credited to the referrer once the referred company pays
var DefaultReward = decimal.NewFromInt(10)

// codeBytes gives codes of 8 or 9 base58 characters
const codeBytes = 6

// NewCode returns a random base58 referral code
func NewCode() (string, error) {
	buf := make([]byte, codeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base58.Encode(buf), nil
}

// ValidCode reports whether s decodes as base58 and has a plausible length
func ValidCode(s string) bool {
	if len(s) < 4 || len(s) > 16 {
		return false
	}
	_, err := base58.Decode(s)
	return err == nil
}

// Referral links a referring company to the company it brought in
type Referral struct {
	shared.TenantAggregateRoot
	ReferredTenantID uuid.UUID
	Code             string
	Status           Status
	RewardAmount     decimal.Decimal
	ConvertedAt      *time.Time
	RewardedAt       *time.Time
	RewardReference  string
}

// NewReferral records a sign-up made with the referrer's code. The tenant
// of the aggregate is the referrer.
func NewReferral(referrerID, referredID uuid.UUID, code string) (*Referral, error) {
	if referrerID == uuid.Nil || referredID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_REFERRAL", "Referrer and referred company are required")
	}
	if referrerID == referredID {
		return nil, shared.NewDomainError("SELF_REFERRAL", "A company cannot refer itself")
	}
	if code == "" {
		return nil, shared.NewDomainError("INVALID_REFERRAL_CODE", "Referral code cannot be empty")
	}
	return &Referral{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(referrerID),
		ReferredTenantID:    referredID,
		Code:                code,
		Status:              StatusPending,
		RewardAmount:        DefaultReward,
	}, nil
}

// Convert marks the referral converted on the referred company's first payment
func (r *Referral) Convert(at time.Time) error {
	if r.Status != StatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot convert referral in %s status", r.Status))
	}
	r.Status = StatusConverted
	r.ConvertedAt = &at
	r.Touch()
	r.AddDomainEvent(NewReferralConvertedEvent(r))
	return nil
}

// MarkRewarded records the credit granted to the referrer
func (r *Referral) MarkRewarded(at time.Time, reference string) error {
	if r.Status != StatusConverted {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot reward referral in %s status", r.Status))
	}
	r.Status = StatusRewarded
	r.RewardedAt = &at
	r.RewardReference = reference
	r.Touch()
	return nil
}

// Expire closes a pending referral that never converted
func (r *Referral) Expire() error {
	if r.Status != StatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot expire referral in %s status", r.Status))
	}
	r.Status = StatusExpired
	r.Touch()
	return nil
}

// RewardCents returns the reward in cents for the payment provider
func (r *Referral) RewardCents() int64 {
	return r.RewardAmount.Shift(2).Round(0).IntPart()
}

// Stats aggregates the referrals of one company
type Stats struct {
	Total       int             `json:"total"`
	Pending     int             `json:"pending"`
	Converted   int             `json:"converted"`
	RewardTotal decimal.Decimal `json:"reward_total"`
}

// Summarize computes Stats over a list of referrals
func Summarize(list []*Referral) Stats {
	s := Stats{RewardTotal: decimal.Zero}
	for _, r := range list {
		s.Total++
		switch r.Status {
		case StatusPending:
			s.Pending++
		case StatusConverted:
			s.Converted++
		case StatusRewarded:
			s.Converted++
			s.RewardTotal = s.RewardTotal.Add(r.RewardAmount)
		}
	}
	return s
}
