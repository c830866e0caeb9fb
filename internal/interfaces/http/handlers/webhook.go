// internal/interfaces/http/handlers/webhook.go
package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/your-org/farmshop-backend/internal/config"
	"github.com/your-org/farmshop-backend/internal/domain/webhook"
	"github.com/your-org/farmshop-backend/internal/pkg/errs"
)

// WebhookHandler receives payment provider notifications
type WebhookHandler struct {
	config    *config.Config
	processor *webhook.Processor
	logger    *logrus.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(cfg *config.Config, processor *webhook.Processor, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{
		config:    cfg,
		processor: processor,
		logger:    logger,
	}
}

// HandlePaymentEvent handles POST /webhooks/payment. Signature failures
// and malformed payloads are terminal; everything else returns 500 so
// the provider redelivers.
func (h *WebhookHandler) HandlePaymentEvent(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	signature := c.GetHeader(h.config.Payment.SignatureHeader)
	if !h.processor.VerifySignature(body, signature) {
		h.logger.WithField("client_ip", c.ClientIP()).Warn("Webhook signature verification failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	result, err := h.processor.Process(c.Request.Context(), body)
	if err != nil {
		if errs.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.WithError(err).Error("Webhook processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Event processing failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}
