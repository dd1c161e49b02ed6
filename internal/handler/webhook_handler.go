package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Mandy9943/paylinksro-sub000/config"
	"github.com/Mandy9943/paylinksro-sub000/internal/service"
	"github.com/Mandy9943/paylinksro-sub000/pkg/processor"
)

// WebhookHandler receives processor notifications, verifies the HMAC
// signature and hands the parsed event to the ledger. It answers 200 for
// every verifiable delivery, including ones the ledger chose to drop, so
// the processor stops retrying them.
type WebhookHandler struct {
	ledgerSvc *service.LedgerService
	cfg       *config.Config
}

func NewWebhookHandler(ledgerSvc *service.LedgerService, cfg *config.Config) *WebhookHandler {
	return &WebhookHandler{ledgerSvc: ledgerSvc, cfg: cfg}
}

func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if h.cfg.Processor.WebhookSecret != "" {
		sig := c.GetHeader("X-Webhook-Signature")
		if !h.verifySignature(body, sig) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
	}
	ev, err := processor.ParseEvent(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := h.ledgerSvc.ApplyChargeEvent(c.Request.Context(), ev); err != nil {
		// The event's transaction was rolled back; a 500 makes the
		// processor redeliver, which the idempotent handlers tolerate.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(h.cfg.Processor.WebhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}
