package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kontor/backend/internal/application/dashboard"
)

// DashboardHandler serves the overview figures
type DashboardHandler struct {
	BaseHandler
	dashboardService *dashboard.Service
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(dashboardService *dashboard.Service) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// RegisterRoutes registers the dashboard routes
func (h *DashboardHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/dashboard/summary", h.Summary)
	rg.GET("/dashboard/cashflow", h.Cashflow)
}

// Summary handles GET /dashboard/summary?from=&to=
func (h *DashboardHandler) Summary(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req dashboard.SummaryRequest
	if !h.bindQuery(c, &req) {
		return
	}
	resp, err := h.dashboardService.Summary(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Cashflow handles GET /dashboard/cashflow?year=
func (h *DashboardHandler) Cashflow(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req dashboard.CashflowRequest
	if !h.bindQuery(c, &req) {
		return
	}
	resp, err := h.dashboardService.Cashflow(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
