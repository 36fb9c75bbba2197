package handler

import (
	"github.com/gin-gonic/gin"

	companyapp "github.com/kontor/backend/internal/application/company"
)

// CompanyHandler handles company registration and settings
type CompanyHandler struct {
	BaseHandler
	companyService *companyapp.Service
}

// NewCompanyHandler creates a new CompanyHandler
func NewCompanyHandler(companyService *companyapp.Service) *CompanyHandler {
	return &CompanyHandler{companyService: companyService}
}

// RegisterRoutes registers the tenant-scoped company routes
func (h *CompanyHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/company", h.Get)
	rg.PUT("/company", h.UpdateProfile)
	rg.PUT("/company/tax", h.UpdateTaxSettings)
	rg.PUT("/company/datev", h.UpdateDATEVSettings)
}

// Register handles POST /companies. It is called with a service token by the
// identity provider after sign-up, so it runs without tenant context.
func (h *CompanyHandler) Register(c *gin.Context) {
	var req companyapp.RegisterRequest
	if !h.bindJSON(c, &req) {
		return
	}
	company, err := h.companyService.Register(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, company)
}

// Get handles GET /company
func (h *CompanyHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	company, err := h.companyService.Get(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, company)
}

// UpdateProfile handles PUT /company
func (h *CompanyHandler) UpdateProfile(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req companyapp.UpdateProfileRequest
	if !h.bindJSON(c, &req) {
		return
	}
	company, err := h.companyService.UpdateProfile(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, company)
}

// UpdateTaxSettings handles PUT /company/tax
func (h *CompanyHandler) UpdateTaxSettings(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req companyapp.UpdateTaxSettingsRequest
	if !h.bindJSON(c, &req) {
		return
	}
	company, err := h.companyService.UpdateTaxSettings(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, company)
}

// UpdateDATEVSettings handles PUT /company/datev
func (h *CompanyHandler) UpdateDATEVSettings(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req companyapp.UpdateDATEVSettingsRequest
	if !h.bindJSON(c, &req) {
		return
	}
	company, err := h.companyService.UpdateDATEVSettings(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, company)
}
