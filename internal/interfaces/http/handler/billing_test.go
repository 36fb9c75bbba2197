package handler

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	billingapp "github.com/kontor/backend/internal/application/billing"
	stripebilling "github.com/kontor/backend/internal/infrastructure/billing"
	"github.com/kontor/backend/internal/infrastructure/cache"
)

// webhookProvider verifies signatures against a fixed value and returns
// the configured event
type webhookProvider struct {
	billingapp.PaymentProvider
	event *stripebilling.WebhookEvent
}

func (p *webhookProvider) ParseWebhook(_ []byte, signature string) (*stripebilling.WebhookEvent, error) {
	if signature != "t=1,v1=valid" {
		return nil, errors.New("no signatures found matching the expected signature")
	}
	return p.event, nil
}

func setupWebhookRouter(t *testing.T, provider billingapp.PaymentProvider) *gin.Engine {
	t.Helper()
	store := cache.NewInMemoryIdempotencyStore(time.Hour)
	t.Cleanup(func() { _ = store.Close() })

	h := NewBillingHandler(billingapp.NewService(billingapp.ServiceConfig{
		Provider:    provider,
		Idempotency: store,
	}))
	r := gin.New()
	r.POST("/api/v1/billing/webhook", h.Webhook)
	return r
}

func postWebhook(r *gin.Engine, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/webhook", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBillingHandler_Webhook(t *testing.T) {
	event := &stripebilling.WebhookEvent{ID: "evt_123", Type: "customer.created"}

	t.Run("missing signature header", func(t *testing.T) {
		r := setupWebhookRouter(t, &webhookProvider{event: event})

		w := postWebhook(r, []byte(`{}`), "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid signature", func(t *testing.T) {
		r := setupWebhookRouter(t, &webhookProvider{event: event})

		w := postWebhook(r, []byte(`{}`), "t=1,v1=forged")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "ERR_INVALID_SIGNATURE", decodeResponse(t, w).Error.Code)
	})

	t.Run("payload too large", func(t *testing.T) {
		r := setupWebhookRouter(t, &webhookProvider{event: event})

		w := postWebhook(r, bytes.Repeat([]byte("a"), maxWebhookPayloadSize+1), "t=1,v1=valid")

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("billing not configured", func(t *testing.T) {
		r := setupWebhookRouter(t, nil)

		w := postWebhook(r, []byte(`{}`), "t=1,v1=valid")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "ERR_BILLING_DISABLED", decodeResponse(t, w).Error.Code)
	})

	t.Run("unhandled event is acknowledged, redelivery is a duplicate", func(t *testing.T) {
		r := setupWebhookRouter(t, &webhookProvider{event: event})

		w := postWebhook(r, []byte(`{"id":"evt_123"}`), "t=1,v1=valid")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		data := decodeResponse(t, w).Data.(map[string]any)
		assert.Equal(t, "evt_123", data["event_id"])
		assert.Equal(t, false, data["processed"])

		w = postWebhook(r, []byte(`{"id":"evt_123"}`), "t=1,v1=valid")
		require.Equal(t, http.StatusOK, w.Code)
		data = decodeResponse(t, w).Data.(map[string]any)
		assert.Equal(t, true, data["duplicate"])
	})
}

