package referral

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kontor/backend/internal/domain/company"
	"github.com/kontor/backend/internal/domain/referral"
	"github.com/kontor/backend/internal/domain/shared"
)

// CreditGranter credits a payment provider customer balance
type CreditGranter interface {
	CreditCustomerBalance(ctx context.Context, customerID string, amount decimal.Decimal, description string) (string, error)
}

// Service runs the referral program
type Service struct {
	referrals referral.ReferralRepository
	companies company.CompanyRepository
	credits   CreditGranter
	events    shared.EventPublisher
	reward    decimal.Decimal
	publicURL string
	logger    *zap.Logger
	now       func() time.Time
}

// ServiceConfig contains the dependencies of Service
type ServiceConfig struct {
	Referrals referral.ReferralRepository
	Companies company.CompanyRepository
	// Credits is nil when billing is not configured; rewards then stay converted
	Credits   CreditGranter
	Events    shared.EventPublisher
	Reward    decimal.Decimal
	PublicURL string
	Logger    *zap.Logger
}

// NewService creates a referral Service
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	reward := cfg.Reward
	if !reward.IsPositive() {
		reward = referral.DefaultReward
	}
	return &Service{
		referrals: cfg.Referrals,
		companies: cfg.Companies,
		credits:   cfg.Credits,
		events:    cfg.Events,
		reward:    reward,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		logger:    logger.Named("referral_service"),
		now:       time.Now,
	}
}

// GetCode returns the company's referral code and share link
func (s *Service) GetCode(ctx context.Context, tenantID uuid.UUID) (*CodeResponse, error) {
	c, err := s.companies.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return &CodeResponse{
		Code:     c.ReferralCode,
		ShareURL: s.publicURL + "/signup?ref=" + c.ReferralCode,
		Reward:   s.reward,
	}, nil
}

// List returns the referrals a company made with summary stats
func (s *Service) List(ctx context.Context, tenantID uuid.UUID) (*ListResponse, error) {
	list, err := s.referrals.FindAllForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	items := make([]ReferralResponse, 0, len(list))
	for _, r := range list {
		items = append(items, ToReferralResponse(r))
	}
	return &ListResponse{Referrals: items, Stats: referral.Summarize(list)}, nil
}

// Track records that referredID signed up with code
func (s *Service) Track(ctx context.Context, code string, referredID uuid.UUID) (*referral.Referral, error) {
	code = strings.TrimSpace(code)
	if !referral.ValidCode(code) {
		return nil, shared.NewDomainError("INVALID_REFERRAL_CODE", "Referral code is not valid")
	}
	referrer, err := s.companies.FindByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("INVALID_REFERRAL_CODE", "Referral code does not exist")
		}
		return nil, err
	}

	existing, err := s.referrals.FindByReferredTenant(ctx, referredID)
	switch {
	case err == nil && existing != nil:
		return nil, shared.NewDomainError("ALREADY_REFERRED", "Company was already referred")
	case err != nil && !errors.Is(err, shared.ErrNotFound):
		return nil, err
	}

	r, err := referral.NewReferral(referrer.ID, referredID, code)
	if err != nil {
		return nil, err
	}
	r.RewardAmount = s.reward
	if err := s.referrals.Save(ctx, r); err != nil {
		return nil, fmt.Errorf("save referral: %w", err)
	}

	s.logger.Info("referral tracked",
		zap.String("referrer_id", referrer.ID.String()),
		zap.String("referred_id", referredID.String()),
	)
	return r, nil
}

// Convert marks the referral of a company converted on its first payment and
// credits the referrer. A converted referral whose reward failed earlier is
// rewarded again; other states are left alone.
func (s *Service) Convert(ctx context.Context, referredID uuid.UUID) error {
	r, err := s.referrals.FindByReferredTenant(ctx, referredID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}

	switch r.Status {
	case referral.StatusPending:
		if err := r.Convert(s.now()); err != nil {
			return err
		}
		if err := s.referrals.Save(ctx, r); err != nil {
			return fmt.Errorf("save referral: %w", err)
		}
		if s.events != nil {
			if err := s.events.Publish(ctx, r.GetDomainEvents()...); err != nil {
				s.logger.Warn("failed to publish referral events", zap.Error(err))
			}
			r.ClearDomainEvents()
		}
	case referral.StatusConverted:
	default:
		return nil
	}

	return s.rewardReferrer(ctx, r)
}

func (s *Service) rewardReferrer(ctx context.Context, r *referral.Referral) error {
	if s.credits == nil {
		return nil
	}
	referrer, err := s.companies.FindByID(ctx, r.TenantID)
	if err != nil {
		return err
	}
	customerID := referrer.Subscription.StripeCustomerID
	if customerID == "" {
		s.logger.Info("referrer has no billing customer, reward deferred",
			zap.String("referral_id", r.ID.String()))
		return nil
	}

	ref, err := s.credits.CreditCustomerBalance(ctx, customerID, r.RewardAmount, "Kontor Empfehlungsprämie")
	if err != nil {
		s.logger.Error("referral reward failed",
			zap.String("referral_id", r.ID.String()),
			zap.Error(err))
		return nil
	}
	if err := r.MarkRewarded(s.now(), ref); err != nil {
		return err
	}
	return s.referrals.Save(ctx, r)
}
