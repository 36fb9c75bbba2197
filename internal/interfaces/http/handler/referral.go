package handler

import (
	"github.com/gin-gonic/gin"

	referralapp "github.com/kontor/backend/internal/application/referral"
)

// ReferralHandler exposes the tenant's referral code and referrals
type ReferralHandler struct {
	BaseHandler
	referralService *referralapp.Service
}

// NewReferralHandler creates a new ReferralHandler
func NewReferralHandler(referralService *referralapp.Service) *ReferralHandler {
	return &ReferralHandler{referralService: referralService}
}

// RegisterRoutes registers the referral routes
func (h *ReferralHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/referrals/code", h.Code)
	rg.GET("/referrals", h.List)
}

// Code handles GET /referrals/code
func (h *ReferralHandler) Code(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	resp, err := h.referralService.GetCode(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List handles GET /referrals
func (h *ReferralHandler) List(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	resp, err := h.referralService.List(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
