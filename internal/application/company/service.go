package company

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kontor/backend/internal/domain/company"
	"github.com/kontor/backend/internal/domain/referral"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
)

// maxCodeAttempts bounds retries when a generated referral code is taken
const maxCodeAttempts = 5

// ReferralTracker records sign-ups made with a referral code
type ReferralTracker interface {
	Track(ctx context.Context, code string, referredID uuid.UUID) (*referral.Referral, error)
}

// Service manages the company (tenant) record
type Service struct {
	companies company.CompanyRepository
	referrals ReferralTracker
	events    shared.EventPublisher
	logger    *zap.Logger
	newCode   func() (string, error)
}

// NewService creates a company Service
func NewService(
	companies company.CompanyRepository,
	referrals ReferralTracker,
	events shared.EventPublisher,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		companies: companies,
		referrals: referrals,
		events:    events,
		logger:    logger.Named("company_service"),
		newCode:   referral.NewCode,
	}
}

// Register creates a company with a fresh referral code. A referral code of
// another company records a referral; an unknown code is logged and ignored.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*CompanyResponse, error) {
	code, err := s.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}
	c, err := company.NewCompany(req.Name, req.Email, code)
	if err != nil {
		return nil, err
	}
	referredBy := strings.TrimSpace(req.ReferralCode)
	if referredBy != "" {
		c.SetReferredBy(referredBy)
	}
	if err := s.companies.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("save company: %w", err)
	}

	if referredBy != "" && s.referrals != nil {
		if _, err := s.referrals.Track(ctx, referredBy, c.ID); err != nil {
			s.logger.Warn("referral not recorded",
				zap.String("tenant_id", c.ID.String()),
				zap.String("code", referredBy),
				zap.Error(err))
		}
	}

	s.publish(ctx, c)
	s.logger.Info("company registered", zap.String("tenant_id", c.ID.String()))
	return ToCompanyResponse(c), nil
}

func (s *Service) uniqueCode(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := s.newCode()
		if err != nil {
			return "", err
		}
		taken, err := s.companies.ExistsByReferralCode(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", shared.NewDomainError("REFERRAL_CODE_EXHAUSTED", "Could not allocate a referral code")
}

// Get returns the company of the tenant
func (s *Service) Get(ctx context.Context, tenantID uuid.UUID) (*CompanyResponse, error) {
	c, err := s.companies.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return ToCompanyResponse(c), nil
}

// UpdateProfile replaces the master data
func (s *Service) UpdateProfile(ctx context.Context, tenantID uuid.UUID, req UpdateProfileRequest) (*CompanyResponse, error) {
	c, err := s.companies.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	addr, err := valueobject.NewAddress(req.Street, req.PostalCode, req.City, req.Country)
	if err != nil {
		return nil, shared.NewDomainErrorWithCause("INVALID_ADDRESS", err.Error(), err)
	}
	terms := c.PaymentTermsDays
	if req.PaymentTermsDays != nil {
		terms = *req.PaymentTermsDays
	}
	if err := c.UpdateProfile(company.ProfileUpdate{
		Name:             req.Name,
		LegalForm:        req.LegalForm,
		Address:          addr,
		Email:            req.Email,
		Phone:            req.Phone,
		IBAN:             req.IBAN,
		BIC:              req.BIC,
		InvoicePrefix:    req.InvoicePrefix,
		PaymentTermsDays: terms,
	}); err != nil {
		return nil, err
	}
	if err := s.companies.Save(ctx, c); err != nil {
		return nil, err
	}
	return ToCompanyResponse(c), nil
}

// UpdateTaxSettings stores tax number, VAT id, small-business flag and filing period
func (s *Service) UpdateTaxSettings(ctx context.Context, tenantID uuid.UUID, req UpdateTaxSettingsRequest) (*CompanyResponse, error) {
	c, err := s.companies.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := c.UpdateTaxSettings(company.TaxSettings{
		TaxNumber:     req.TaxNumber,
		VATID:         req.VATID,
		SmallBusiness: req.SmallBusiness,
		VATPeriod:     company.VATPeriod(req.VATPeriod),
	}); err != nil {
		return nil, err
	}
	if err := s.companies.Save(ctx, c); err != nil {
		return nil, err
	}
	return ToCompanyResponse(c), nil
}

// UpdateDATEVSettings stores the tax advisor identifiers and chart of accounts
func (s *Service) UpdateDATEVSettings(ctx context.Context, tenantID uuid.UUID, req UpdateDATEVSettingsRequest) (*CompanyResponse, error) {
	c, err := s.companies.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := c.UpdateDATEVSettings(company.DATEVSettings{
		ConsultantNumber: req.ConsultantNumber,
		ClientNumber:     req.ClientNumber,
		Chart:            company.Chart(strings.ToUpper(req.Chart)),
		FiscalYearStart:  req.FiscalYearStart,
	}); err != nil {
		return nil, err
	}
	if err := s.companies.Save(ctx, c); err != nil {
		return nil, err
	}
	return ToCompanyResponse(c), nil
}

func (s *Service) publish(ctx context.Context, c *company.Company) {
	events := c.GetDomainEvents()
	if len(events) == 0 || s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish company events", zap.Error(err))
	}
	c.ClearDomainEvents()
}
