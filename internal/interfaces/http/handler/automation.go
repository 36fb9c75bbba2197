package handler

import (
	"github.com/gin-gonic/gin"

	automationapp "github.com/kontor/backend/internal/application/automation"
)

// AutomationHandler handles categorization rule endpoints
type AutomationHandler struct {
	BaseHandler
	automationService *automationapp.Service
}

// NewAutomationHandler creates a new AutomationHandler
func NewAutomationHandler(automationService *automationapp.Service) *AutomationHandler {
	return &AutomationHandler{automationService: automationService}
}

// RegisterRoutes registers the automation rule routes
func (h *AutomationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/automation-rules")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.POST("/apply", h.Apply)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/test", h.Test)
}

// Create handles POST /automation-rules
func (h *AutomationHandler) Create(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	var req automationapp.RuleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	rule, err := h.automationService.Create(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, rule)
}

// Get handles GET /automation-rules/:id
func (h *AutomationHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	rule, err := h.automationService.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rule)
}

// List handles GET /automation-rules in priority order
func (h *AutomationHandler) List(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	rules, err := h.automationService.List(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rules)
}

// Update handles PUT /automation-rules/:id
func (h *AutomationHandler) Update(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req automationapp.RuleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	rule, err := h.automationService.Update(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rule)
}

// Delete handles DELETE /automation-rules/:id
func (h *AutomationHandler) Delete(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.automationService.Delete(c.Request.Context(), tenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Test handles POST /automation-rules/:id/test against a sample transaction
func (h *AutomationHandler) Test(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req automationapp.TestRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.automationService.Test(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Apply handles POST /automation-rules/apply over all unbooked transactions
func (h *AutomationHandler) Apply(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	resp, err := h.automationService.ApplyToUnbooked(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
