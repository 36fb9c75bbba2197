package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	billingapp "github.com/kontor/backend/internal/application/billing"
	"github.com/kontor/backend/internal/interfaces/http/dto"
)

// Stripe webhooks are small; anything larger is not from Stripe
const maxWebhookPayloadSize = 65536

// BillingHandler handles subscription billing and the Stripe webhook
type BillingHandler struct {
	BaseHandler
	billingService *billingapp.Service
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(billingService *billingapp.Service) *BillingHandler {
	return &BillingHandler{billingService: billingService}
}

// RegisterRoutes registers the tenant-scoped billing routes. The webhook is
// registered separately on the public group.
func (h *BillingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/billing")
	g.POST("/checkout", h.Checkout)
	g.POST("/portal", h.Portal)
	g.GET("/subscription", h.Subscription)
}

// Checkout handles POST /billing/checkout
func (h *BillingHandler) Checkout(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req billingapp.CheckoutRequest
	if !h.bindJSON(c, &req) {
		return
	}
	session, err := h.billingService.CreateCheckoutSession(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, session)
}

// Portal handles POST /billing/portal
func (h *BillingHandler) Portal(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	session, err := h.billingService.CreatePortalSession(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, session)
}

// Subscription handles GET /billing/subscription
func (h *BillingHandler) Subscription(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	sub, err := h.billingService.GetSubscription(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sub)
}

// Webhook handles POST /billing/webhook. Stripe needs the raw body for the
// signature check. Processing failures answer 5xx so Stripe redelivers.
func (h *BillingHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}
	if len(payload) > maxWebhookPayloadSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooBig, "Payload too large")
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Missing Stripe-Signature header")
		return
	}

	result, err := h.billingService.HandleWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
