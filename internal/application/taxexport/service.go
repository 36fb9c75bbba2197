package taxexport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kontor/backend/internal/domain/company"
	"github.com/kontor/backend/internal/domain/invoice"
	"github.com/kontor/backend/internal/domain/ledger"
	"github.com/kontor/backend/internal/domain/receipt"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/domain/taxexport"
	"github.com/kontor/backend/internal/infrastructure/storage"
	"github.com/kontor/backend/internal/infrastructure/telemetry"
)

// DownloadURLExpiry is the lifetime of presigned export links
const DownloadURLExpiry = 15 * time.Minute

// InvoiceFinder resolves the invoice number written to Belegfeld 1
type InvoiceFinder interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*invoice.Invoice, error)
}

// ReceiptFinder resolves the receipt number written to Belegfeld 1
type ReceiptFinder interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*receipt.Receipt, error)
}

// ServiceConfig holds the dependencies of the export Service
type ServiceConfig struct {
	Transactions ledger.TransactionRepository
	Companies    company.CompanyRepository
	Invoices     InvoiceFinder
	Receipts     ReceiptFinder
	Records      taxexport.RecordRepository
	Storage      storage.ObjectStorage
	Metrics      *telemetry.BusinessMetrics
	Logger       *zap.Logger
	// HerstellerID is written to the ELSTER DatenLieferant block
	HerstellerID string
	ELSTERTest   bool
}

// Service generates DATEV and ELSTER files and archives them
type Service struct {
	transactions ledger.TransactionRepository
	companies    company.CompanyRepository
	invoices     InvoiceFinder
	receipts     ReceiptFinder
	records      taxexport.RecordRepository
	storage      storage.ObjectStorage
	metrics      *telemetry.BusinessMetrics
	logger       *zap.Logger
	herstellerID string
	elsterTest   bool
	now          func() time.Time
}

// NewService creates an export Service
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		transactions: cfg.Transactions,
		companies:    cfg.Companies,
		invoices:     cfg.Invoices,
		receipts:     cfg.Receipts,
		records:      cfg.Records,
		storage:      cfg.Storage,
		metrics:      cfg.Metrics,
		logger:       logger.Named("export_service"),
		herstellerID: cfg.HerstellerID,
		elsterTest:   cfg.ELSTERTest,
		now:          time.Now,
	}
}

// DATEV builds the Buchungsstapel for all booked transactions in the range
func (s *Service) DATEV(ctx context.Context, tenantID, userID uuid.UUID, req DATEVRequest) (*ExportFile, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "export", "datev",
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrExportType, string(taxexport.TypeDATEV))
	defer span.End()

	from, to, err := parseRange(req.From, req.To)
	if err != nil {
		return nil, err
	}
	c, err := s.companies.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	header, err := taxexport.NewDATEVHeader(c, from, to, s.now())
	if err != nil {
		return nil, err
	}
	txs, err := s.transactions.FindBooked(ctx, tenantID, from, to)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	chart := c.DATEV.Chart
	if chart == "" {
		chart = company.ChartSKR03
	}
	numbers := newDocumentNumbers(s, tenantID)
	rows := make([]taxexport.DATEVRow, 0, len(txs))
	for _, tx := range txs {
		row, ok := taxexport.RowFromTransaction(tx, chart, numbers.lookup(ctx, tx))
		if !ok {
			s.logger.Debug("transaction skipped in DATEV export",
				zap.String("transaction_id", tx.ID.String()),
				zap.String("category", tx.CategoryCode))
			continue
		}
		rows = append(rows, row)
	}

	data, err := taxexport.WriteDATEV(header, rows)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("write DATEV file: %w", err)
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrCount, len(rows))
	return s.archive(ctx, tenantID, userID, taxexport.TypeDATEV, from, to, taxexport.DATEVPeriodKey(from, to), len(rows), data)
}

// ELSTER builds the UStVA document for a month or quarter
func (s *Service) ELSTER(ctx context.Context, tenantID, userID uuid.UUID, req ELSTERRequest) (*ExportFile, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "export", "elster",
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrExportType, string(taxexport.TypeELSTER))
	defer span.End()

	c, err := s.companies.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := taxexport.ValidateELSTER(c); err != nil {
		return nil, err
	}
	period, err := s.resolvePeriod(c, req)
	if err != nil {
		return nil, err
	}
	from, to := period.Range()
	txs, err := s.transactions.FindBooked(ctx, tenantID, from, to)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	summary := taxexport.Summarize(txs)

	data, err := taxexport.WriteELSTER(taxexport.ELSTERInput{
		Company:      c,
		Period:       period,
		Kennzahlen:   taxexport.ComputeKennzahlen(summary),
		CreatedAt:    s.now(),
		HerstellerID: s.herstellerID,
		Test:         s.elsterTest,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return s.archive(ctx, tenantID, userID, taxexport.TypeELSTER, from, to, period.String(), summary.Transactions, data)
}

// resolvePeriod checks an explicit period against the company's filing
// period and otherwise defaults to the last completed one
func (s *Service) resolvePeriod(c *company.Company, req ELSTERRequest) (taxexport.Period, error) {
	now := s.now()
	if req.Period != "" {
		year := req.Year
		if year == 0 {
			year = now.Year()
		}
		p, err := taxexport.ParsePeriod(year, req.Period)
		if err != nil {
			return taxexport.Period{}, err
		}
		switch c.Tax.VATPeriod {
		case company.VATPeriodMonthly:
			if p.IsQuarter() {
				return taxexport.Period{}, shared.NewDomainError("INVALID_PERIOD", "Monthly filers must export a month (01-12)")
			}
		case company.VATPeriodQuarterly, "":
			if !p.IsQuarter() {
				return taxexport.Period{}, shared.NewDomainError("INVALID_PERIOD", "Quarterly filers must export a quarter (41-44)")
			}
		}
		return p, nil
	}
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	switch c.Tax.VATPeriod {
	case company.VATPeriodMonthly:
		return taxexport.MonthPeriod(month.AddDate(0, -1, 0)), nil
	case company.VATPeriodQuarterly, "":
		return taxexport.QuarterPeriod(month.AddDate(0, -3, 0)), nil
	default:
		return taxexport.Period{}, shared.NewDomainError("INVALID_PERIOD", "Companies filing yearly must choose a period")
	}
}

// VATSummary totals net and tax per rate for the range
func (s *Service) VATSummary(ctx context.Context, tenantID uuid.UUID, req SummaryRequest) (*SummaryResponse, error) {
	from, to, err := parseRange(req.From, req.To)
	if err != nil {
		return nil, err
	}
	txs, err := s.transactions.FindBooked(ctx, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	summary := taxexport.Summarize(txs)
	return &SummaryResponse{
		From:       from,
		To:         to,
		Summary:    summary,
		Kennzahlen: toKennzahlenResponse(taxexport.ComputeKennzahlen(summary)),
	}, nil
}

// ListExports returns archived exports, newest first
func (s *Service) ListExports(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]RecordResponse, int64, error) {
	f := taxexport.RecordFilter{Filter: shared.DefaultFilter()}
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	if filter.Type != "" {
		typ := taxexport.Type(filter.Type)
		f.Type = &typ
	}
	records, total, err := s.records.FindAllForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, 0, err
	}
	out := make([]RecordResponse, len(records))
	for i, r := range records {
		out[i] = ToRecordResponse(r)
	}
	return out, total, nil
}

// DownloadExport returns a presigned link to an archived file
func (s *Service) DownloadExport(ctx context.Context, tenantID, id uuid.UUID) (*DownloadResponse, error) {
	r, err := s.records.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	url, expiresAt, err := s.storage.PresignGet(ctx, r.FileKey, DownloadURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign export: %w", err)
	}
	return &DownloadResponse{URL: url, ExpiresAt: expiresAt}, nil
}

// archive stores the file under its period key and records it. A second
// export of the same period replaces the object and adds another record.
func (s *Service) archive(ctx context.Context, tenantID, userID uuid.UUID, typ taxexport.Type, from, to time.Time, periodKey string, rows int, data []byte) (*ExportFile, error) {
	record, err := taxexport.NewRecord(tenantID, typ, from, to, periodKey, rows, int64(len(data)), userID)
	if err != nil {
		return nil, err
	}
	if err := s.storage.Put(ctx, record.FileKey, data, typ.ContentType()); err != nil {
		return nil, fmt.Errorf("store export: %w", err)
	}
	if err := s.records.Save(ctx, record); err != nil {
		return nil, err
	}
	s.metrics.ExportGenerated(ctx, string(typ))
	s.logger.Info("export generated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("type", string(typ)),
		zap.String("period", periodKey),
		zap.Int("rows", rows),
		zap.Int("bytes", len(data)))
	return &ExportFile{
		Record:      ToRecordResponse(record),
		FileName:    fmt.Sprintf("%s_%s.%s", typ, periodKey, typ.Extension()),
		ContentType: typ.ContentType(),
		Data:        data,
	}, nil
}

// documentNumbers caches invoice and receipt numbers for one export run
type documentNumbers struct {
	svc      *Service
	tenantID uuid.UUID
	cache    map[uuid.UUID]string
}

func newDocumentNumbers(s *Service, tenantID uuid.UUID) *documentNumbers {
	return &documentNumbers{svc: s, tenantID: tenantID, cache: make(map[uuid.UUID]string)}
}

func (d *documentNumbers) lookup(ctx context.Context, tx *ledger.Transaction) string {
	switch {
	case tx.InvoiceID != nil && d.svc.invoices != nil:
		return d.cached(*tx.InvoiceID, func() (string, error) {
			inv, err := d.svc.invoices.FindByIDForTenant(ctx, d.tenantID, *tx.InvoiceID)
			if err != nil {
				return "", err
			}
			return inv.Number, nil
		})
	case tx.ReceiptID != nil && d.svc.receipts != nil:
		return d.cached(*tx.ReceiptID, func() (string, error) {
			r, err := d.svc.receipts.FindByIDForTenant(ctx, d.tenantID, *tx.ReceiptID)
			if err != nil {
				return "", err
			}
			return r.ReceiptNumber, nil
		})
	}
	return ""
}

func (d *documentNumbers) cached(id uuid.UUID, load func() (string, error)) string {
	if n, ok := d.cache[id]; ok {
		return n
	}
	n, err := load()
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		d.svc.logger.Warn("document number lookup failed", zap.String("document_id", id.String()), zap.Error(err))
	}
	d.cache[id] = n
	return n
}
