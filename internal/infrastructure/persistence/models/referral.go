package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/referral"
	"github.com/shopspring/decimal"
)

// ReferralModel is the persistence model for a Referral. TenantID is the referrer.
type ReferralModel struct {
	TenantAggregateModel
	ReferredTenantID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	Code             string          `gorm:"type:varchar(20);not null"`
	Status           referral.Status `gorm:"type:varchar(20);not null;default:'pending'"`
	RewardAmount     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	ConvertedAt      *time.Time
	RewardedAt       *time.Time
	RewardReference  string `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (ReferralModel) TableName() string {
	return "referrals"
}

// ToDomain converts the persistence model to a domain Referral
func (m *ReferralModel) ToDomain() *referral.Referral {
	r := &referral.Referral{
		ReferredTenantID: m.ReferredTenantID,
		Code:             m.Code,
		Status:           m.Status,
		RewardAmount:     m.RewardAmount,
		ConvertedAt:      m.ConvertedAt,
		RewardedAt:       m.RewardedAt,
		RewardReference:  m.RewardReference,
	}
	m.PopulateTenantAggregateRoot(&r.TenantAggregateRoot)
	return r
}

// FromDomain populates the persistence model from a domain Referral
func (m *ReferralModel) FromDomain(r *referral.Referral) {
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	m.ReferredTenantID = r.ReferredTenantID
	m.Code = r.Code
	m.Status = r.Status
	m.RewardAmount = r.RewardAmount
	m.ConvertedAt = r.ConvertedAt
	m.RewardedAt = r.RewardedAt
	m.RewardReference = r.RewardReference
}

// ReferralModelFromDomain creates a new persistence model from a domain Referral
func ReferralModelFromDomain(r *referral.Referral) *ReferralModel {
	m := &ReferralModel{}
	m.FromDomain(r)
	return m
}
