package contact

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kontor/backend/internal/domain/contact"
	"github.com/kontor/backend/internal/domain/ledger"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
)

// Service handles customers and suppliers
type Service struct {
	repo   contact.ContactRepository
	logger *zap.Logger
}

// NewService creates a contact Service
func NewService(repo contact.ContactRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger.Named("contact_service")}
}

func toDetails(req ContactRequest) (contact.Details, error) {
	addr, err := valueobject.NewAddress(req.Street, req.PostalCode, req.City, req.Country)
	if err != nil {
		return contact.Details{}, shared.NewDomainErrorWithCause("INVALID_ADDRESS", err.Error(), err)
	}
	if req.DefaultCategoryCode != "" {
		if _, ok := ledger.CategoryByCode(req.DefaultCategoryCode); !ok {
			return contact.Details{}, shared.NewDomainError("INVALID_CATEGORY", "Unknown category "+req.DefaultCategoryCode)
		}
	}
	return contact.Details{
		Type:                contact.ContactType(req.Type),
		Name:                req.Name,
		ContactPerson:       req.ContactPerson,
		Email:               req.Email,
		Phone:               req.Phone,
		Address:             addr,
		VATID:               req.VATID,
		TaxNumber:           req.TaxNumber,
		IBAN:                req.IBAN,
		DefaultCategoryCode: req.DefaultCategoryCode,
		Notes:               req.Notes,
	}, nil
}

// Create creates a contact; customers receive the next customer number
func (s *Service) Create(ctx context.Context, tenantID, userID uuid.UUID, req ContactRequest) (*ContactResponse, error) {
	details, err := toDetails(req)
	if err != nil {
		return nil, err
	}
	c, err := contact.NewContact(tenantID, details)
	if err != nil {
		return nil, err
	}
	c.SetCreatedBy(userID)
	if err := s.assignNumber(ctx, c); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("save contact: %w", err)
	}
	resp := ToContactResponse(c)
	return &resp, nil
}

func (s *Service) assignNumber(ctx context.Context, c *contact.Contact) error {
	if !c.NeedsCustomerNumber() {
		return nil
	}
	seq, err := s.repo.NextCustomerSequence(ctx, c.TenantID)
	if err != nil {
		return fmt.Errorf("next customer number: %w", err)
	}
	c.AssignCustomerNumber(seq)
	return nil
}

// Get retrieves a contact by ID
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*ContactResponse, error) {
	c, err := s.repo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToContactResponse(c)
	return &resp, nil
}

// List retrieves contacts with filtering and pagination. Archived contacts
// are hidden unless requested.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]ContactResponse, int64, error) {
	f := contact.ContactFilter{Filter: shared.DefaultFilter()}
	f.OrderBy = "name"
	f.OrderDir = "asc"
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		f.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		f.OrderDir = filter.OrderDir
	}
	f.Search = filter.Search
	if filter.Type != "" {
		t := contact.ContactType(filter.Type)
		f.Type = &t
	}
	archived := false
	if filter.Archived != nil {
		archived = *filter.Archived
	}
	f.Archived = &archived

	contacts, total, err := s.repo.FindAllForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, 0, err
	}
	return ToContactResponses(contacts), total, nil
}

// Update replaces the editable fields. A supplier turned customer gets a
// customer number; an existing number is never changed.
func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, req ContactRequest) (*ContactResponse, error) {
	c, err := s.repo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	details, err := toDetails(req)
	if err != nil {
		return nil, err
	}
	if err := c.Update(details); err != nil {
		return nil, err
	}
	if err := s.assignNumber(ctx, c); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	resp := ToContactResponse(c)
	return &resp, nil
}

// Archive hides a contact from pickers
func (s *Service) Archive(ctx context.Context, tenantID, id uuid.UUID) (*ContactResponse, error) {
	c, err := s.repo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := c.Archive(); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	resp := ToContactResponse(c)
	return &resp, nil
}

// Delete removes a contact that no invoice references
func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	if _, err := s.repo.FindByIDForTenant(ctx, tenantID, id); err != nil {
		return err
	}
	used, err := s.repo.IsReferenced(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if used {
		return shared.NewDomainError("CONTACT_IN_USE", "Contact is referenced by invoices; archive it instead")
	}
	if err := s.repo.DeleteForTenant(ctx, tenantID, id); err != nil {
		return err
	}
	s.logger.Info("contact deleted", zap.String("tenant_id", tenantID.String()), zap.String("contact_id", id.String()))
	return nil
}
