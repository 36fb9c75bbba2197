package receipt

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kontor/backend/internal/domain/ledger"
	"github.com/kontor/backend/internal/domain/receipt"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
	"github.com/kontor/backend/internal/infrastructure/storage"
)

// DownloadURLExpiry is how long presigned download links stay valid
const DownloadURLExpiry = 15 * time.Minute

// Analyzer extracts booking data from a document
type Analyzer interface {
	Analyze(ctx context.Context, fileName, contentType string, content []byte) (receipt.Analysis, error)
}

// Service manages uploaded receipts
type Service struct {
	receipts     receipt.ReceiptRepository
	transactions ledger.TransactionRepository
	storage      storage.ObjectStorage
	analyzer     Analyzer
	logger       *zap.Logger
	now          func() time.Time
}

// NewService creates a receipt Service. analyzer may be nil when document
// analysis is not configured.
func NewService(
	receipts receipt.ReceiptRepository,
	transactions ledger.TransactionRepository,
	store storage.ObjectStorage,
	analyzer Analyzer,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		receipts:     receipts,
		transactions: transactions,
		storage:      store,
		analyzer:     analyzer,
		logger:       logger.Named("receipt_service"),
		now:          time.Now,
	}
}

// DetectContentType falls back to content sniffing when the client sent no
// usable type
func DetectContentType(declared string, data []byte) string {
	declared = strings.ToLower(strings.TrimSpace(strings.Split(declared, ";")[0]))
	if _, ok := receipt.ExtensionFor(declared); ok {
		return declared
	}
	return strings.Split(http.DetectContentType(data), ";")[0]
}

// Upload stores the document and records the receipt
func (s *Service) Upload(ctx context.Context, tenantID, userID uuid.UUID, fileName, contentType string, data []byte) (*ReceiptResponse, error) {
	r, err := receipt.NewReceipt(tenantID, fileName, DetectContentType(contentType, data), int64(len(data)), s.now())
	if err != nil {
		return nil, err
	}
	r.SetCreatedBy(userID)
	if err := s.storage.Put(ctx, r.StorageKey, data, r.ContentType); err != nil {
		return nil, fmt.Errorf("store receipt: %w", err)
	}
	if err := s.receipts.Save(ctx, r); err != nil {
		if delErr := s.storage.Delete(ctx, r.StorageKey); delErr != nil {
			s.logger.Warn("orphaned receipt object", zap.String("key", r.StorageKey), zap.Error(delErr))
		}
		return nil, fmt.Errorf("save receipt: %w", err)
	}
	s.logger.Info("receipt uploaded",
		zap.String("tenant_id", tenantID.String()),
		zap.String("receipt_id", r.ID.String()),
		zap.Int64("size", r.Size))
	resp := ToReceiptResponse(r)
	return &resp, nil
}

// Get retrieves a receipt by ID
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*ReceiptResponse, error) {
	r, err := s.receipts.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToReceiptResponse(r)
	return &resp, nil
}

// List retrieves receipts with filtering and pagination
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]ReceiptResponse, int64, error) {
	f := receipt.ReceiptFilter{Filter: shared.DefaultFilter()}
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	f.Search = filter.Search
	if filter.Status != "" {
		st := receipt.Status(filter.Status)
		f.Status = &st
	}
	var err error
	if f.FromDate, err = parseDate("from", filter.From); err != nil {
		return nil, 0, err
	}
	if f.ToDate, err = parseDate("to", filter.To); err != nil {
		return nil, 0, err
	}
	items, total, err := s.receipts.FindAllForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, 0, err
	}
	out := make([]ReceiptResponse, len(items))
	for i, r := range items {
		out[i] = ToReceiptResponse(r)
	}
	return out, total, nil
}

// DownloadURL returns a presigned link valid for 15 minutes
func (s *Service) DownloadURL(ctx context.Context, tenantID, id uuid.UUID) (*DownloadResponse, error) {
	r, err := s.receipts.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	url, expiresAt, err := s.storage.PresignGet(ctx, r.StorageKey, DownloadURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign receipt: %w", err)
	}
	return &DownloadResponse{URL: url, ExpiresAt: expiresAt}, nil
}

// Analyze sends the document to the analysis service and stores the result
func (s *Service) Analyze(ctx context.Context, tenantID, id uuid.UUID) (*ReceiptResponse, error) {
	if s.analyzer == nil {
		return nil, shared.NewDomainError("ANALYSIS_UNAVAILABLE", "Document analysis is not configured")
	}
	r, err := s.receipts.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	data, err := s.storage.Get(ctx, r.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("load receipt: %w", err)
	}
	analysis, err := s.analyzer.Analyze(ctx, r.FileName, r.ContentType, data)
	if err != nil {
		s.logger.Warn("receipt analysis failed", zap.String("receipt_id", id.String()), zap.Error(err))
		return nil, shared.NewDomainErrorWithCause("ANALYSIS_FAILED", "Document analysis failed", err)
	}
	if analysis.CategoryCode != "" {
		if _, ok := ledger.CategoryByCode(analysis.CategoryCode); !ok {
			analysis.CategoryCode = ""
		}
	}
	if err := r.ApplyAnalysis(analysis); err != nil {
		return nil, err
	}
	if err := s.receipts.Save(ctx, r); err != nil {
		return nil, err
	}
	resp := ToReceiptResponse(r)
	return &resp, nil
}

// Update applies a manual correction
func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, req UpdateRequest) (*ReceiptResponse, error) {
	r, err := s.receipts.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	date, err := parseDate("receipt_date", req.ReceiptDate)
	if err != nil {
		return nil, err
	}
	if req.CategoryCode != "" {
		if _, ok := ledger.CategoryByCode(req.CategoryCode); !ok {
			return nil, shared.NewDomainError("INVALID_CATEGORY", "Unknown category "+req.CategoryCode)
		}
	}
	c := receipt.Correction{
		VendorName:    req.VendorName,
		ReceiptNumber: req.ReceiptNumber,
		ReceiptDate:   date,
		GrossAmount:   req.GrossAmount,
		CategoryCode:  req.CategoryCode,
	}
	if req.VATRate != nil {
		rate := valueobject.VATRate(*req.VATRate)
		c.VATRate = &rate
	}
	if err := r.Correct(c); err != nil {
		return nil, err
	}
	if err := s.receipts.Save(ctx, r); err != nil {
		return nil, err
	}
	resp := ToReceiptResponse(r)
	return &resp, nil
}

// LinkTransaction books the receipt against a transaction and records the
// receipt on the transaction
func (s *Service) LinkTransaction(ctx context.Context, tenantID, id uuid.UUID, req LinkRequest) (*ReceiptResponse, error) {
	r, err := s.receipts.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	tx, err := s.transactions.FindByIDForTenant(ctx, tenantID, req.TransactionID)
	if err != nil {
		return nil, err
	}
	if err := r.LinkTransaction(tx.ID); err != nil {
		return nil, err
	}
	tx.AttachReceipt(r.ID)
	if err := s.transactions.Save(ctx, tx); err != nil {
		return nil, err
	}
	if err := s.receipts.Save(ctx, r); err != nil {
		return nil, err
	}
	resp := ToReceiptResponse(r)
	return &resp, nil
}

// Archive moves a receipt out of the inbox
func (s *Service) Archive(ctx context.Context, tenantID, id uuid.UUID) (*ReceiptResponse, error) {
	r, err := s.receipts.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := r.Archive(); err != nil {
		return nil, err
	}
	if err := s.receipts.Save(ctx, r); err != nil {
		return nil, err
	}
	resp := ToReceiptResponse(r)
	return &resp, nil
}

// Delete removes the document and its record; booked receipts are retained
func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	r, err := s.receipts.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if !r.CanDelete() {
		return shared.NewDomainError("RECEIPT_BOOKED", "Booked receipts must be retained")
	}
	if err := s.receipts.DeleteForTenant(ctx, tenantID, id); err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, r.StorageKey); err != nil {
		s.logger.Warn("failed to delete receipt object", zap.String("key", r.StorageKey), zap.Error(err))
	}
	return nil
}
