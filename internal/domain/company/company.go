package company

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
)

// VATPeriod is how often the company files its advance VAT return
type VATPeriod string

const (
	VATPeriodMonthly   VATPeriod = "monthly"
	VATPeriodQuarterly VATPeriod = "quarterly"
	VATPeriodYearly    VATPeriod = "yearly"
)

func (p VATPeriod) IsValid() bool {
	return p == VATPeriodMonthly || p == VATPeriodQuarterly || p == VATPeriodYearly
}

// Chart is the DATEV standard chart of accounts in use
type Chart string

const (
	ChartSKR03 Chart = "SKR03"
	ChartSKR04 Chart = "SKR04"
)

func (c Chart) IsValid() bool {
	return c == ChartSKR03 || c == ChartSKR04
}

// Plan is the subscription tier
type Plan string

const (
	PlanFree         Plan = "free"
	PlanStarter      Plan = "starter"
	PlanProfessional Plan = "professional"
)

func (p Plan) IsValid() bool {
	return p == PlanFree || p == PlanStarter || p == PlanProfessional
}

// Limits returns the usage limits of the plan; zero means unlimited
func (p Plan) Limits() PlanLimits {
	switch p {
	case PlanStarter:
		return PlanLimits{InvoicesPerMonth: 100, BankAccounts: 3}
	case PlanProfessional:
		return PlanLimits{}
	default:
		return PlanLimits{InvoicesPerMonth: 10, BankAccounts: 1}
	}
}

// PlanLimits caps usage for a plan; zero values are unlimited
type PlanLimits struct {
	InvoicesPerMonth int `json:"invoices_per_month"`
	BankAccounts     int `json:"bank_accounts"`
}

// AllowsInvoice reports whether another invoice fits into the month
func (l PlanLimits) AllowsInvoice(createdThisMonth int64) bool {
	return l.InvoicesPerMonth == 0 || createdThisMonth < int64(l.InvoicesPerMonth)
}

// AllowsBankAccount reports whether another bank account may be added
func (l PlanLimits) AllowsBankAccount(existing int64) bool {
	return l.BankAccounts == 0 || existing < int64(l.BankAccounts)
}

// SubscriptionStatus mirrors the payment provider's subscription state
type SubscriptionStatus string

const (
	SubscriptionNone     SubscriptionStatus = "none"
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// IsPaying reports whether the paid plan features are available
func (s SubscriptionStatus) IsPaying() bool {
	return s == SubscriptionActive || s == SubscriptionTrialing || s == SubscriptionPastDue
}

var (
	vatIDPattern = regexp.MustCompile(`^DE\d{9}$`)
	digitsOnly   = regexp.MustCompile(`\D`)
)

// TaxSettings are the fields the tax office and the tax advisor need
type TaxSettings struct {
	TaxNumber     string    `json:"tax_number"`
	VATID         string    `json:"vat_id"`
	SmallBusiness bool      `json:"small_business"`
	VATPeriod     VATPeriod `json:"vat_period"`
}

// DATEVSettings identify the company at the tax advisor
type DATEVSettings struct {
	ConsultantNumber int   `json:"consultant_number"`
	ClientNumber     int   `json:"client_number"`
	Chart            Chart `json:"chart"`
	FiscalYearStart  int   `json:"fiscal_year_start"`
}

// IsComplete reports whether a DATEV export can be produced
func (d DATEVSettings) IsComplete() bool {
	return d.ConsultantNumber > 0 && d.ClientNumber > 0
}

// Subscription is the company's billing state
type Subscription struct {
	Plan             Plan               `json:"plan"`
	Status           SubscriptionStatus `json:"status"`
	StripeCustomerID string             `json:"stripe_customer_id,omitempty"`
	SubscriptionID   string             `json:"subscription_id,omitempty"`
	CurrentPeriodEnd *time.Time         `json:"current_period_end,omitempty"`
}

// EffectivePlan is the plan whose limits apply right now
func (s Subscription) EffectivePlan() Plan {
	if !s.Status.IsPaying() {
		return PlanFree
	}
	return s.Plan
}

// Company is the tenant; every other record belongs to exactly one company
type Company struct {
	shared.BaseAggregateRoot
	Name             string
	LegalForm        string
	Address          valueobject.Address
	Email            string
	Phone            string
	IBAN             string
	BIC              string
	Tax              TaxSettings
	DATEV            DATEVSettings
	InvoicePrefix    string
	PaymentTermsDays int
	Subscription     Subscription
	ReferralCode     string
	ReferredByCode   string
}

// NewCompany registers a company. The referral code must be unique; callers
// generate it with NewReferralCode and retry on collision.
func NewCompany(name, email, referralCode string) (*Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Company name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Company name cannot exceed 200 characters")
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if !strings.Contains(email, "@") {
		return nil, shared.NewDomainError("INVALID_EMAIL", "A valid email address is required")
	}
	if referralCode == "" {
		return nil, shared.NewDomainError("INVALID_REFERRAL_CODE", "Referral code cannot be empty")
	}

	addr, _ := valueobject.NewAddress("", "", "", "DE")
	c := &Company{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Email:             email,
		Address:           addr,
		Tax:               TaxSettings{VATPeriod: VATPeriodQuarterly},
		DATEV:             DATEVSettings{Chart: ChartSKR03, FiscalYearStart: 1},
		InvoicePrefix:     "RE",
		PaymentTermsDays:  14,
		Subscription:      Subscription{Plan: PlanFree, Status: SubscriptionNone},
		ReferralCode:      referralCode,
	}
	c.AddDomainEvent(NewCompanyRegisteredEvent(c))
	return c, nil
}

// TenantID returns the company id, which doubles as tenant id
func (c *Company) TenantID() uuid.UUID {
	return c.ID
}

// ProfileUpdate carries editable master data
type ProfileUpdate struct {
	Name             string
	LegalForm        string
	Address          valueobject.Address
	Email            string
	Phone            string
	IBAN             string
	BIC              string
	InvoicePrefix    string
	PaymentTermsDays int
}

// UpdateProfile replaces the master data
func (c *Company) UpdateProfile(u ProfileUpdate) error {
	name := strings.TrimSpace(u.Name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Company name cannot be empty")
	}
	if u.Email != "" && !strings.Contains(u.Email, "@") {
		return shared.NewDomainError("INVALID_EMAIL", "A valid email address is required")
	}
	iban := ""
	if strings.TrimSpace(u.IBAN) != "" {
		parsed, err := valueobject.ParseIBAN(u.IBAN)
		if err != nil {
			return shared.NewDomainError("INVALID_IBAN", "IBAN is not valid")
		}
		iban = string(parsed)
	}
	prefix := strings.ToUpper(strings.TrimSpace(u.InvoicePrefix))
	if prefix == "" {
		prefix = "RE"
	}
	if len(prefix) > 10 {
		return shared.NewDomainError("INVALID_INVOICE_PREFIX", "Invoice prefix cannot exceed 10 characters")
	}
	if u.PaymentTermsDays < 0 || u.PaymentTermsDays > 365 {
		return shared.NewDomainError("INVALID_PAYMENT_TERMS", "Payment terms must be between 0 and 365 days")
	}

	c.Name = name
	c.LegalForm = strings.TrimSpace(u.LegalForm)
	c.Address = u.Address
	if u.Email != "" {
		c.Email = strings.ToLower(strings.TrimSpace(u.Email))
	}
	c.Phone = strings.TrimSpace(u.Phone)
	c.IBAN = iban
	c.BIC = strings.ToUpper(strings.TrimSpace(u.BIC))
	c.InvoicePrefix = prefix
	c.PaymentTermsDays = u.PaymentTermsDays
	c.Touch()
	return nil
}

// UpdateTaxSettings validates and stores the tax identifiers
func (c *Company) UpdateTaxSettings(s TaxSettings) error {
	s.TaxNumber = strings.TrimSpace(s.TaxNumber)
	if s.TaxNumber != "" {
		digits := digitsOnly.ReplaceAllString(s.TaxNumber, "")
		if len(digits) < 10 || len(digits) > 13 {
			return shared.NewDomainError("INVALID_TAX_NUMBER", "Tax number must have 10 to 13 digits")
		}
	}
	s.VATID = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s.VATID), " ", ""))
	if s.VATID != "" && !vatIDPattern.MatchString(s.VATID) {
		return shared.NewDomainError("INVALID_VAT_ID", "VAT id must be DE followed by 9 digits")
	}
	if s.VATPeriod == "" {
		s.VATPeriod = VATPeriodQuarterly
	}
	if !s.VATPeriod.IsValid() {
		return shared.NewDomainError("INVALID_VAT_PERIOD", "VAT period must be monthly, quarterly or yearly")
	}
	c.Tax = s
	c.Touch()
	return nil
}

// ELSTERTaxNumber returns the 13-digit federal tax number, if the stored
// number already has that form
func (c *Company) ELSTERTaxNumber() string {
	digits := digitsOnly.ReplaceAllString(c.Tax.TaxNumber, "")
	if len(digits) != 13 {
		return ""
	}
	return digits
}

// UpdateDATEVSettings validates and stores the tax advisor identifiers
func (c *Company) UpdateDATEVSettings(s DATEVSettings) error {
	if s.ConsultantNumber < 1001 || s.ConsultantNumber > 9999999 {
		return shared.NewDomainError("INVALID_CONSULTANT_NUMBER", "Consultant number must be between 1001 and 9999999")
	}
	if s.ClientNumber < 1 || s.ClientNumber > 99999 {
		return shared.NewDomainError("INVALID_CLIENT_NUMBER", "Client number must be between 1 and 99999")
	}
	if s.Chart == "" {
		s.Chart = ChartSKR03
	}
	if !s.Chart.IsValid() {
		return shared.NewDomainError("INVALID_CHART", "Chart of accounts must be SKR03 or SKR04")
	}
	if s.FiscalYearStart == 0 {
		s.FiscalYearStart = 1
	}
	if s.FiscalYearStart < 1 || s.FiscalYearStart > 12 {
		return shared.NewDomainError("INVALID_FISCAL_YEAR_START", "Fiscal year start must be a month between 1 and 12")
	}
	c.DATEV = s
	c.Touch()
	return nil
}

// FiscalYearBegin returns the first day of the fiscal year containing t
func (c *Company) FiscalYearBegin(t time.Time) time.Time {
	start := time.Month(c.DATEV.FiscalYearStart)
	if start < time.January {
		start = time.January
	}
	year := t.Year()
	if t.Month() < start {
		year--
	}
	return time.Date(year, start, 1, 0, 0, 0, 0, time.UTC)
}

// SetReferredBy records the code used at sign-up
func (c *Company) SetReferredBy(code string) {
	c.ReferredByCode = code
}

// AttachStripeCustomer stores the payment provider customer id
func (c *Company) AttachStripeCustomer(customerID string) {
	c.Subscription.StripeCustomerID = customerID
	c.Touch()
}

// ApplySubscription updates plan and status from the payment provider.
// It reports whether anything changed.
func (c *Company) ApplySubscription(plan Plan, status SubscriptionStatus, subscriptionID string, periodEnd *time.Time) bool {
	if !plan.IsValid() {
		plan = c.Subscription.Plan
	}
	prev := c.Subscription
	c.Subscription.Plan = plan
	c.Subscription.Status = status
	c.Subscription.SubscriptionID = subscriptionID
	c.Subscription.CurrentPeriodEnd = periodEnd
	if status == SubscriptionCanceled {
		c.Subscription.Plan = PlanFree
	}
	changed := prev.Plan != c.Subscription.Plan || prev.Status != c.Subscription.Status
	if changed {
		c.Touch()
		c.AddDomainEvent(NewSubscriptionChangedEvent(c, prev))
	}
	return changed
}

// Limits returns the limits of the effective plan
func (c *Company) Limits() PlanLimits {
	return c.Subscription.EffectivePlan().Limits()
}
