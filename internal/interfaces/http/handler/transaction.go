package handler

import (
	"github.com/gin-gonic/gin"

	ledgerapp "github.com/kontor/backend/internal/application/ledger"
)

// TransactionHandler handles the bookkeeping ledger endpoints
type TransactionHandler struct {
	BaseHandler
	ledgerService *ledgerapp.Service
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(ledgerService *ledgerapp.Service) *TransactionHandler {
	return &TransactionHandler{ledgerService: ledgerService}
}

// RegisterRoutes registers the transaction routes
func (h *TransactionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/categories", h.Categories)

	g := rg.Group("/transactions")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/book", h.Book)
	g.POST("/:id/unbook", h.Unbook)
	g.POST("/:id/ignore", h.Ignore)
}

// Create handles POST /transactions for manual entries
func (h *TransactionHandler) Create(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	var req ledgerapp.TransactionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	tx, err := h.ledgerService.Create(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, tx)
}

// Get handles GET /transactions/:id
func (h *TransactionHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	tx, err := h.ledgerService.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tx)
}

// List handles GET /transactions
func (h *TransactionHandler) List(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var filter ledgerapp.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	txs, total, err := h.ledgerService.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, txs, total, filter.Page, filter.PageSize)
}

// Update handles PUT /transactions/:id
func (h *TransactionHandler) Update(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req ledgerapp.TransactionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	tx, err := h.ledgerService.Update(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tx)
}

// Book handles POST /transactions/:id/book
func (h *TransactionHandler) Book(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req ledgerapp.BookRequest
	if !h.bindJSON(c, &req) {
		return
	}
	tx, err := h.ledgerService.Book(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tx)
}

// Unbook handles POST /transactions/:id/unbook
func (h *TransactionHandler) Unbook(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	tx, err := h.ledgerService.Unbook(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tx)
}

// Ignore handles POST /transactions/:id/ignore
func (h *TransactionHandler) Ignore(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	tx, err := h.ledgerService.Ignore(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tx)
}

// Delete handles DELETE /transactions/:id
func (h *TransactionHandler) Delete(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.ledgerService.Delete(c.Request.Context(), tenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Categories handles GET /categories
func (h *TransactionHandler) Categories(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	categories, err := h.ledgerService.Categories(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, categories)
}
