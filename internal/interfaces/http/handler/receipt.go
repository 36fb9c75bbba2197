package handler

import (
	"github.com/gin-gonic/gin"

	receiptapp "github.com/kontor/backend/internal/application/receipt"
	"github.com/kontor/backend/internal/domain/receipt"
)

// ReceiptHandler handles receipt upload and review endpoints
type ReceiptHandler struct {
	BaseHandler
	receiptService *receiptapp.Service
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(receiptService *receiptapp.Service) *ReceiptHandler {
	return &ReceiptHandler{receiptService: receiptService}
}

// RegisterRoutes registers the receipt routes
func (h *ReceiptHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/receipts")
	g.GET("", h.List)
	g.POST("", h.Upload)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.GET("/:id/download", h.Download)
	g.POST("/:id/analyze", h.Analyze)
	g.POST("/:id/link", h.Link)
	g.POST("/:id/archive", h.Archive)
}

// Upload handles POST /receipts (multipart field "file")
func (h *ReceiptHandler) Upload(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	name, contentType, data, ok := h.formFile(c, "file", receipt.MaxFileSize)
	if !ok {
		return
	}
	r, err := h.receiptService.Upload(c.Request.Context(), tenantID, userID, name, contentType, data)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, r)
}

// Get handles GET /receipts/:id
func (h *ReceiptHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	r, err := h.receiptService.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, r)
}

// List handles GET /receipts
func (h *ReceiptHandler) List(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var filter receiptapp.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	receipts, total, err := h.receiptService.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, receipts, total, filter.Page, filter.PageSize)
}

// Update handles PUT /receipts/:id
func (h *ReceiptHandler) Update(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req receiptapp.UpdateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	r, err := h.receiptService.Update(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, r)
}

// Download handles GET /receipts/:id/download with a short-lived URL
func (h *ReceiptHandler) Download(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	resp, err := h.receiptService.DownloadURL(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Analyze handles POST /receipts/:id/analyze
func (h *ReceiptHandler) Analyze(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	r, err := h.receiptService.Analyze(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, r)
}

// Link handles POST /receipts/:id/link
func (h *ReceiptHandler) Link(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req receiptapp.LinkRequest
	if !h.bindJSON(c, &req) {
		return
	}
	r, err := h.receiptService.LinkTransaction(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, r)
}

// Archive handles POST /receipts/:id/archive
func (h *ReceiptHandler) Archive(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	r, err := h.receiptService.Archive(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, r)
}

// Delete handles DELETE /receipts/:id
func (h *ReceiptHandler) Delete(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.receiptService.Delete(c.Request.Context(), tenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
