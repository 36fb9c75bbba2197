package handler

import (
	"github.com/gin-gonic/gin"

	recurringapp "github.com/kontor/backend/internal/application/recurring"
)

// RecurringHandler handles recurring invoice templates
type RecurringHandler struct {
	BaseHandler
	recurringService *recurringapp.Service
}

// NewRecurringHandler creates a new RecurringHandler
func NewRecurringHandler(recurringService *recurringapp.Service) *RecurringHandler {
	return &RecurringHandler{recurringService: recurringService}
}

// RegisterRoutes registers the recurring invoice routes
func (h *RecurringHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/recurring")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.POST("/execute", h.Execute)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/pause", h.Pause)
	g.POST("/:id/resume", h.Resume)
	g.GET("/:id/preview", h.Preview)
}

// Create handles POST /recurring
func (h *RecurringHandler) Create(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	var req recurringapp.RecurringRequest
	if !h.bindJSON(c, &req) {
		return
	}
	r, err := h.recurringService.Create(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, r)
}

// Get handles GET /recurring/:id
func (h *RecurringHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	r, err := h.recurringService.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, r)
}

// List handles GET /recurring
func (h *RecurringHandler) List(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var filter recurringapp.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	items, total, err := h.recurringService.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, filter.Page, filter.PageSize)
}

// Update handles PUT /recurring/:id
func (h *RecurringHandler) Update(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req recurringapp.RecurringRequest
	if !h.bindJSON(c, &req) {
		return
	}
	r, err := h.recurringService.Update(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, r)
}

// Pause handles POST /recurring/:id/pause
func (h *RecurringHandler) Pause(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	r, err := h.recurringService.Pause(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, r)
}

// Resume handles POST /recurring/:id/resume
func (h *RecurringHandler) Resume(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	r, err := h.recurringService.Resume(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, r)
}

// Delete handles DELETE /recurring/:id
func (h *RecurringHandler) Delete(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.recurringService.Delete(c.Request.Context(), tenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Preview handles GET /recurring/:id/preview?n=
func (h *RecurringHandler) Preview(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	resp, err := h.recurringService.Preview(c.Request.Context(), tenantID, id, queryInt(c, "n", 0))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Execute handles POST /recurring/execute; the body is optional
func (h *RecurringHandler) Execute(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req recurringapp.ExecuteRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.recurringService.Execute(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
