package handler

import (
	"github.com/gin-gonic/gin"

	bankingapp "github.com/kontor/backend/internal/application/banking"
)

// maxStatementFileSize bounds uploaded bank statement CSV files
const maxStatementFileSize = 5 << 20

// BankAccountHandler handles bank accounts, statement imports and FinAPI sync
type BankAccountHandler struct {
	BaseHandler
	bankingService *bankingapp.Service
}

// NewBankAccountHandler creates a new BankAccountHandler
func NewBankAccountHandler(bankingService *bankingapp.Service) *BankAccountHandler {
	return &BankAccountHandler{bankingService: bankingService}
}

// RegisterRoutes registers the bank account routes
func (h *BankAccountHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/bank-accounts")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.POST("/sync", h.SyncAll)
	g.POST("/finapi/link", h.LinkFinAPI)
	g.POST("/finapi/complete", h.CompleteFinAPI)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.POST("/:id/archive", h.Archive)
	g.POST("/:id/import", h.Import)
	g.POST("/:id/sync", h.Sync)
}

// Create handles POST /bank-accounts
func (h *BankAccountHandler) Create(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	var req bankingapp.BankAccountRequest
	if !h.bindJSON(c, &req) {
		return
	}
	account, err := h.bankingService.Create(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, account)
}

// Get handles GET /bank-accounts/:id
func (h *BankAccountHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	account, err := h.bankingService.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// List handles GET /bank-accounts?archived=true
func (h *BankAccountHandler) List(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	accounts, err := h.bankingService.List(c.Request.Context(), tenantID, c.Query("archived") == "true")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, accounts)
}

// Update handles PUT /bank-accounts/:id
func (h *BankAccountHandler) Update(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req bankingapp.UpdateBankAccountRequest
	if !h.bindJSON(c, &req) {
		return
	}
	account, err := h.bankingService.Update(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// Archive handles POST /bank-accounts/:id/archive
func (h *BankAccountHandler) Archive(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	account, err := h.bankingService.Archive(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// Import handles POST /bank-accounts/:id/import with a multipart "file"
// and an optional "format" field; an empty format is detected from the header
func (h *BankAccountHandler) Import(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	_, _, data, ok := h.formFile(c, "file", maxStatementFileSize)
	if !ok {
		return
	}
	result, err := h.bankingService.ImportCSV(c.Request.Context(), tenantID, userID, id, data, c.PostForm("format"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// LinkFinAPI handles POST /bank-accounts/finapi/link and returns the web
// form the user completes at FinAPI
func (h *BankAccountHandler) LinkFinAPI(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req bankingapp.LinkFinAPIRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.bankingService.LinkFinAPI(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CompleteFinAPI handles POST /bank-accounts/finapi/complete
func (h *BankAccountHandler) CompleteFinAPI(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	var req bankingapp.CompleteFinAPIRequest
	if !h.bindJSON(c, &req) {
		return
	}
	accounts, err := h.bankingService.CompleteFinAPILink(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, accounts)
}

// Sync handles POST /bank-accounts/:id/sync
func (h *BankAccountHandler) Sync(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	result, err := h.bankingService.Sync(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// SyncAll handles POST /bank-accounts/sync
func (h *BankAccountHandler) SyncAll(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	resp, err := h.bankingService.SyncAll(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
