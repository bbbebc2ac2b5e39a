package handler

import (
	"github.com/finledger/billable-api/internal/application/service"
	"github.com/finledger/billable-api/internal/presentation/http/dto/response"
	"github.com/gin-gonic/gin"
)

// WebhookHandler receives payment provider callbacks. The route is
// public: authenticity comes from the signature header, not a session.
type WebhookHandler struct {
	reconciler *service.ReconcilerService
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(reconciler *service.ReconcilerService) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler}
}

// HandlePaymentEvent verifies and processes one provider event. Any 2xx
// acknowledges delivery; non-2xx makes the provider retry, so only
// signature and payload failures reject.
func (h *WebhookHandler) HandlePaymentEvent(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		response.BadRequest(c, "Unable to read request body")
		return
	}

	signature := c.GetHeader("Stripe-Signature")

	if err := h.reconciler.HandleWebhook(c.Request.Context(), payload, signature); err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(200, gin.H{"received": true})
}
