package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	invoiceapp "github.com/kontor/backend/internal/application/invoice"
	"github.com/kontor/backend/internal/domain/invoice"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
	"github.com/kontor/backend/internal/infrastructure/storage"
	"github.com/kontor/backend/tests/testutil"
)

func newDraftInvoice(t *testing.T, tenantID uuid.UUID) *invoice.Invoice {
	t.Helper()
	issue := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	inv, err := invoice.NewInvoice(tenantID, invoice.FormatNumber("RE", 2026, 1), false, invoice.Draft{
		ContactID: uuid.New(),
		IssueDate: issue,
		DueDate:   issue.AddDate(0, 0, 14),
		Items: []invoice.LineItemInput{{
			Description: "Beratung",
			Quantity:    decimal.NewFromInt(2),
			Unit:        "Std",
			UnitPrice:   decimal.NewFromInt(120),
			VATRate:     valueobject.VATStandard,
		}},
	})
	require.NoError(t, err)
	return inv
}

func setupInvoiceRouter(repo *testutil.MockInvoiceRepository, store storage.ObjectStorage, tenantID, userID uuid.UUID) *gin.Engine {
	svc := invoiceapp.NewService(invoiceapp.ServiceConfig{
		Invoices: repo,
		Storage:  store,
	})
	h := NewInvoiceHandler(svc)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1", authenticated(tenantID, userID)))
	return r
}

func TestInvoiceHandler_PDF(t *testing.T) {
	tenantID, userID := uuid.New(), uuid.New()
	inv := newDraftInvoice(t, tenantID)
	key := invoiceapp.PDFKey(tenantID, inv.Number)
	inv.SetPDFKey(key)

	store := storage.NewMemoryObjectStorage("http://files.local")
	require.NoError(t, store.Put(context.Background(), key, []byte("%PDF-1.7 archived"), "application/pdf"))

	repo := new(testutil.MockInvoiceRepository)
	repo.On("FindByIDForTenant", mock.Anything, tenantID, inv.ID).Return(inv, nil)
	r := setupInvoiceRouter(repo, store, tenantID, userID)

	w := serve(r, http.MethodGet, "/api/v1/invoices/"+inv.ID.String()+"/pdf", "")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="`+inv.Number+`.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.7 archived", w.Body.String())
}

func TestInvoiceHandler_MarkPaid(t *testing.T) {
	tenantID, userID := uuid.New(), uuid.New()

	t.Run("draft cannot be paid", func(t *testing.T) {
		inv := newDraftInvoice(t, tenantID)
		repo := new(testutil.MockInvoiceRepository)
		repo.On("FindByIDForTenant", mock.Anything, tenantID, inv.ID).Return(inv, nil)
		r := setupInvoiceRouter(repo, nil, tenantID, userID)

		w := serve(r, http.MethodPost, "/api/v1/invoices/"+inv.ID.String()+"/pay", `{"paid_at":"2026-03-10"}`)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "ERR_INVALID_STATE", decodeResponse(t, w).Error.Code)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("malformed date is rejected by binding", func(t *testing.T) {
		repo := new(testutil.MockInvoiceRepository)
		r := setupInvoiceRouter(repo, nil, tenantID, userID)

		w := serve(r, http.MethodPost, "/api/v1/invoices/"+uuid.NewString()+"/pay", `{"paid_at":"10.03.2026"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "ERR_VALIDATION", decodeResponse(t, w).Error.Code)
		repo.AssertNotCalled(t, "FindByIDForTenant", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestInvoiceHandler_Cancel(t *testing.T) {
	tenantID, userID := uuid.New(), uuid.New()
	inv := newDraftInvoice(t, tenantID)
	repo := new(testutil.MockInvoiceRepository)
	repo.On("FindByIDForTenant", mock.Anything, tenantID, inv.ID).Return(inv, nil)
	repo.On("Save", mock.Anything, inv).Return(nil)
	r := setupInvoiceRouter(repo, nil, tenantID, userID)

	w := serve(r, http.MethodPost, "/api/v1/invoices/"+inv.ID.String()+"/cancel", `{"reason":"Doppelt erfasst"}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, "cancelled", data["status"])
	repo.AssertExpectations(t)
}
