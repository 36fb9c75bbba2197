package invoice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kontor/backend/internal/domain/company"
	"github.com/kontor/backend/internal/domain/contact"
	"github.com/kontor/backend/internal/domain/invoice"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
	"github.com/kontor/backend/internal/infrastructure/email"
	"github.com/kontor/backend/internal/infrastructure/pdf"
	"github.com/kontor/backend/internal/infrastructure/storage"
	"github.com/kontor/backend/internal/infrastructure/telemetry"
)

// LimitChecker enforces the monthly invoice quota of the plan
type LimitChecker interface {
	CheckInvoice(ctx context.Context, tenantID uuid.UUID, now time.Time) error
}

// Renderer turns an invoice into a PDF
type Renderer interface {
	RenderInvoice(ctx context.Context, doc pdf.InvoiceDocument) ([]byte, error)
}

// Mailer delivers invoice emails
type Mailer interface {
	Enabled() bool
	Send(ctx context.Context, msg email.Message) error
}

// ServiceConfig holds the dependencies of the invoice Service
type ServiceConfig struct {
	Invoices  invoice.InvoiceRepository
	Contacts  contact.ContactRepository
	Companies company.CompanyRepository
	Limits    LimitChecker
	Renderer  Renderer
	Storage   storage.ObjectStorage
	Mailer    Mailer
	Events    shared.EventPublisher
	Metrics   *telemetry.BusinessMetrics
	Logger    *zap.Logger
}

// Service manages outgoing invoices
type Service struct {
	invoices  invoice.InvoiceRepository
	contacts  contact.ContactRepository
	companies company.CompanyRepository
	limits    LimitChecker
	renderer  Renderer
	storage   storage.ObjectStorage
	mailer    Mailer
	events    shared.EventPublisher
	metrics   *telemetry.BusinessMetrics
	logger    *zap.Logger
	now       func() time.Time
}

var errPDFUnavailable = shared.NewDomainError("PDF_UNAVAILABLE", "Invoice PDF rendering is not configured")

// NewService creates an invoice Service
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		invoices:  cfg.Invoices,
		contacts:  cfg.Contacts,
		companies: cfg.Companies,
		limits:    cfg.Limits,
		renderer:  cfg.Renderer,
		storage:   cfg.Storage,
		mailer:    cfg.Mailer,
		events:    cfg.Events,
		metrics:   cfg.Metrics,
		logger:    logger.Named("invoice_service"),
		now:       time.Now,
	}
}

// PDFKey is the object key of an invoice document
func PDFKey(tenantID uuid.UUID, number string) string {
	return fmt.Sprintf("invoices/%s/%s.pdf", tenantID, number)
}

// Create allocates the next number of the issue year and stores a draft
func (s *Service) Create(ctx context.Context, tenantID, userID uuid.UUID, req InvoiceRequest) (*InvoiceResponse, error) {
	now := s.now()
	draft, err := toDraft(req, now)
	if err != nil {
		return nil, err
	}
	inv, err := s.create(ctx, tenantID, userID, draft)
	if err != nil {
		return nil, err
	}
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

func (s *Service) create(ctx context.Context, tenantID, userID uuid.UUID, draft invoice.Draft) (*invoice.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "create", telemetry.SpanAttrTenantID, tenantID.String())
	defer span.End()

	if s.limits != nil {
		if err := s.limits.CheckInvoice(ctx, tenantID, s.now()); err != nil {
			return nil, err
		}
	}
	c, err := s.companies.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := s.checkContact(ctx, tenantID, &draft); err != nil {
		return nil, err
	}
	if draft.PaymentTerms == "" {
		draft.PaymentTerms = defaultPaymentTerms(draft)
	}

	year := draft.IssueDate.Year()
	seq, err := s.invoices.NextSequence(ctx, tenantID, year)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("next invoice number: %w", err)
	}
	inv, err := invoice.NewInvoice(tenantID, invoice.FormatNumber(c.InvoicePrefix, year, seq), c.Tax.SmallBusiness, draft)
	if err != nil {
		return nil, err
	}
	inv.SetCreatedBy(userID)
	if err := s.invoices.Save(ctx, inv); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("save invoice: %w", err)
	}
	s.publish(ctx, inv)
	s.metrics.InvoiceCreated(ctx, tenantID)
	s.logger.Info("invoice created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("number", inv.Number))
	return inv, nil
}

func (s *Service) checkContact(ctx context.Context, tenantID uuid.UUID, draft *invoice.Draft) error {
	ct, err := s.contacts.FindByIDForTenant(ctx, tenantID, draft.ContactID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("INVALID_CONTACT", "Contact does not exist")
		}
		return err
	}
	if !ct.Type.IsCustomer() {
		return shared.NewDomainError("INVALID_CONTACT", "Invoices can only be addressed to customers")
	}
	if draft.ReverseCharge && !ct.IsForeignEU() {
		return shared.NewDomainError("REVERSE_CHARGE_NOT_ALLOWED", "Reverse charge requires a customer with an EU VAT id outside Germany")
	}
	return nil
}

func defaultPaymentTerms(d invoice.Draft) string {
	days := int(shared.DateOnly(d.DueDate).Sub(shared.DateOnly(d.IssueDate)).Hours() / 24)
	if days <= 0 {
		return "Zahlbar sofort ohne Abzug."
	}
	return fmt.Sprintf("Zahlbar innerhalb von %d Tagen ohne Abzug.", days)
}

// Get retrieves an invoice by ID
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.invoices.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// List retrieves invoices with filtering and pagination
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]InvoiceResponse, int64, error) {
	f := invoice.InvoiceFilter{Filter: shared.DefaultFilter()}
	f.OrderBy = "issue_date"
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
	if filter.Status != "" {
		st := invoice.Status(filter.Status)
		f.Status = &st
	}
	f.ContactID = filter.ContactID
	var err error
	if f.FromDate, err = parseDate("from", filter.From); err != nil {
		return nil, 0, err
	}
	if f.ToDate, err = parseDate("to", filter.To); err != nil {
		return nil, 0, err
	}

	invoices, total, err := s.invoices.FindAllForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, 0, err
	}
	return ToInvoiceResponses(invoices), total, nil
}

// Update replaces the content of a draft
func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, req InvoiceRequest) (*InvoiceResponse, error) {
	inv, err := s.invoices.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	draft, err := toDraft(req, inv.IssueDate)
	if err != nil {
		return nil, err
	}
	if err := s.checkContact(ctx, tenantID, &draft); err != nil {
		return nil, err
	}
	if draft.PaymentTerms == "" {
		draft.PaymentTerms = defaultPaymentTerms(draft)
	}
	if err := inv.Update(draft); err != nil {
		return nil, err
	}
	if err := s.invoices.Save(ctx, inv); err != nil {
		return nil, err
	}
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// Delete removes a draft
func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	inv, err := s.invoices.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if !inv.CanDelete() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot delete invoice in %s status", inv.Status))
	}
	return s.invoices.DeleteForTenant(ctx, tenantID, id)
}

// Send renders and archives the PDF, moves the invoice to sent and emails it
// to the contact when email delivery is configured. Email failures are logged.
func (s *Service) Send(ctx context.Context, tenantID, id uuid.UUID) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "send",
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrInvoiceID, id.String())
	defer span.End()

	inv, err := s.invoices.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	doc, err := s.document(ctx, inv)
	if err != nil {
		return nil, err
	}
	if err := inv.Send(s.now()); err != nil {
		return nil, err
	}
	if s.renderer == nil {
		return nil, errPDFUnavailable
	}

	data, err := s.renderer.RenderInvoice(ctx, doc)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("render invoice: %w", err)
	}
	key := PDFKey(tenantID, inv.Number)
	if err := s.storage.Put(ctx, key, data, "application/pdf"); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("store invoice pdf: %w", err)
	}
	inv.SetPDFKey(key)
	if err := s.invoices.Save(ctx, inv); err != nil {
		return nil, err
	}
	s.publish(ctx, inv)

	if err := s.email(ctx, doc, data); err != nil {
		s.logger.Warn("invoice email failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("number", inv.Number),
			zap.Error(err))
	}
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

func (s *Service) document(ctx context.Context, inv *invoice.Invoice) (pdf.InvoiceDocument, error) {
	c, err := s.companies.FindByID(ctx, inv.TenantID)
	if err != nil {
		return pdf.InvoiceDocument{}, err
	}
	ct, err := s.contacts.FindByIDForTenant(ctx, inv.TenantID, inv.ContactID)
	if err != nil {
		return pdf.InvoiceDocument{}, err
	}
	return pdf.InvoiceDocument{Invoice: inv, Company: c, Contact: ct}, nil
}

func (s *Service) email(ctx context.Context, doc pdf.InvoiceDocument, data []byte) error {
	if s.mailer == nil || !s.mailer.Enabled() || doc.Contact.Email == "" {
		return nil
	}
	inv := doc.Invoice
	text := fmt.Sprintf("Guten Tag,\n\nanbei erhalten Sie unsere Rechnung %s über %s € mit Fälligkeit am %s.\n\nMit freundlichen Grüßen\n%s",
		inv.Number, valueobject.FormatGerman(inv.GrossAmount), inv.DueDate.Format("02.01.2006"), doc.Company.Name)
	return s.mailer.Send(ctx, email.Message{
		To:      doc.Contact.Email,
		ToName:  doc.Contact.Name,
		Subject: fmt.Sprintf("Rechnung %s von %s", inv.Number, doc.Company.Name),
		Text:    text,
		Attachments: []email.Attachment{{
			Filename:    inv.Number + ".pdf",
			ContentType: "application/pdf",
			Content:     data,
		}},
	})
}

// RenderPDF returns the archived document of a sent invoice, or a fresh
// rendering for drafts
func (s *Service) RenderPDF(ctx context.Context, tenantID, id uuid.UUID) ([]byte, string, error) {
	inv, err := s.invoices.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, "", err
	}
	fileName := inv.Number + ".pdf"
	if inv.PDFKey != "" {
		data, err := s.storage.Get(ctx, inv.PDFKey)
		if err == nil {
			return data, fileName, nil
		}
		if !errors.Is(err, storage.ErrObjectNotFound) {
			return nil, "", err
		}
		s.logger.Warn("archived invoice pdf missing, rendering again", zap.String("key", inv.PDFKey))
	}
	if s.renderer == nil {
		return nil, "", errPDFUnavailable
	}
	doc, err := s.document(ctx, inv)
	if err != nil {
		return nil, "", err
	}
	data, err := s.renderer.RenderInvoice(ctx, doc)
	if err != nil {
		return nil, "", fmt.Errorf("render invoice: %w", err)
	}
	return data, fileName, nil
}

// MarkPaid settles an open invoice
func (s *Service) MarkPaid(ctx context.Context, tenantID, id uuid.UUID, req MarkPaidRequest) (*InvoiceResponse, error) {
	paidAt, err := parseDate("paid_at", req.PaidAt)
	if err != nil {
		return nil, err
	}
	at := s.now()
	if paidAt != nil {
		at = *paidAt
	}
	inv, err := s.settle(ctx, tenantID, id, at, req.TransactionID)
	if err != nil {
		return nil, err
	}
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// SettleInvoice marks an invoice paid by a booked bank transaction
func (s *Service) SettleInvoice(ctx context.Context, tenantID, invoiceID, transactionID uuid.UUID, paidAt time.Time) error {
	_, err := s.settle(ctx, tenantID, invoiceID, paidAt, &transactionID)
	return err
}

func (s *Service) settle(ctx context.Context, tenantID, id uuid.UUID, at time.Time, txID *uuid.UUID) (*invoice.Invoice, error) {
	inv, err := s.invoices.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := inv.MarkPaid(at, txID); err != nil {
		return nil, err
	}
	if err := s.invoices.Save(ctx, inv); err != nil {
		return nil, err
	}
	s.publish(ctx, inv)
	return inv, nil
}

// Cancel voids an invoice that is not paid
func (s *Service) Cancel(ctx context.Context, tenantID, id uuid.UUID, req CancelRequest) (*InvoiceResponse, error) {
	inv, err := s.invoices.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := inv.Cancel(req.Reason, s.now()); err != nil {
		return nil, err
	}
	if err := s.invoices.Save(ctx, inv); err != nil {
		return nil, err
	}
	s.publish(ctx, inv)
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// Duplicate creates a new draft dated today with the items of an existing invoice
func (s *Service) Duplicate(ctx context.Context, tenantID, userID, id uuid.UUID) (*InvoiceResponse, error) {
	src, err := s.invoices.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	inv, err := s.create(ctx, tenantID, userID, src.DuplicateDraft(s.now()))
	if err != nil {
		return nil, err
	}
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// SweepOverdue marks every sent invoice of the tenant whose due date lies
// before today as overdue. Failures on single invoices are logged and skipped.
func (s *Service) SweepOverdue(ctx context.Context, tenantID uuid.UUID, today time.Time) (int, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "sweep_overdue", telemetry.SpanAttrTenantID, tenantID.String())
	defer span.End()

	due, err := s.invoices.FindDueBefore(ctx, tenantID, shared.DateOnly(today))
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}
	marked := 0
	for _, inv := range due {
		if err := inv.MarkOverdue(today); err != nil {
			continue
		}
		if err := s.invoices.Save(ctx, inv); err != nil {
			s.logger.Warn("failed to mark invoice overdue",
				zap.String("tenant_id", tenantID.String()),
				zap.String("number", inv.Number),
				zap.Error(err))
			continue
		}
		s.publish(ctx, inv)
		marked++
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrCount, marked)
	if marked > 0 {
		s.logger.Info("invoices marked overdue", zap.String("tenant_id", tenantID.String()), zap.Int("count", marked))
	}
	return marked, nil
}

// SweepOverdueNow runs the overdue sweep for the current day
func (s *Service) SweepOverdueNow(ctx context.Context, tenantID uuid.UUID) (*SweepResponse, error) {
	n, err := s.SweepOverdue(ctx, tenantID, s.now())
	if err != nil {
		return nil, err
	}
	return &SweepResponse{MarkedOverdue: n}, nil
}

func (s *Service) publish(ctx context.Context, inv *invoice.Invoice) {
	events := inv.GetDomainEvents()
	if len(events) == 0 || s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish invoice events", zap.Error(err))
	}
	inv.ClearDomainEvents()
}
