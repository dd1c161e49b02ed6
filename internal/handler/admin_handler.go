package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Mandy9943/paylinksro-sub000/internal/repository"
	"github.com/Mandy9943/paylinksro-sub000/internal/service"
)

// AdminHandler exposes the operator actions: payout settlement, ledger
// reconciliation and the audit trail.
type AdminHandler struct {
	affiliateSvc *service.AffiliateService
	ledgerSvc    *service.LedgerService
	auditRepo    *repository.AuditLogRepository
}

func NewAdminHandler(affiliateSvc *service.AffiliateService, ledgerSvc *service.LedgerService, auditRepo *repository.AuditLogRepository) *AdminHandler {
	return &AdminHandler{affiliateSvc: affiliateSvc, ledgerSvc: ledgerSvc, auditRepo: auditRepo}
}

// SetPayoutStatus marks a requested payout SENT or FAILED.
// PATCH /admin/payouts/:id/status
func (h *AdminHandler) SetPayoutStatus(c *gin.Context) {
	payoutID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payout id"})
		return
	}
	var req struct {
		Status   string `json:"status" binding:"required,oneof=SENT FAILED"`
		ProofRef string `json:"proof_ref"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err = h.affiliateSvc.SetPayoutStatus(uint(payoutID), req.Status, req.ProofRef)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "payout not found"})
		return
	case errors.Is(err, service.ErrPayoutNotPending):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update payout"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": payoutID, "status": req.Status})
}

// Reconcile backfills the ledger from the processor's charge history.
// POST /admin/reconcile
func (h *AdminHandler) Reconcile(c *gin.Context) {
	var req struct {
		SellerID uint      `json:"seller_id" binding:"required"`
		From     time.Time `json:"from" binding:"required"`
		To       time.Time `json:"to" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.From.Before(req.To) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must precede to"})
		return
	}
	updated, err := h.ledgerSvc.Reconcile(c.Request.Context(), req.SellerID, req.From, req.To)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "updated_count": updated})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated_count": updated})
}

// ListAuditLog returns recent audit entries for one resource.
// GET /admin/audit?resource=&resource_id=
func (h *AdminHandler) ListAuditLog(c *gin.Context) {
	resource := c.Query("resource")
	resourceID := c.Query("resource_id")
	if resource == "" || resourceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "resource and resource_id are required"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	entries, err := h.auditRepo.ListByResource(resource, resourceID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list audit entries"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "total": len(entries)})
}

// ReleaseCommissions runs the hold-release job on demand.
// POST /admin/commissions/release
func (h *AdminHandler) ReleaseCommissions(c *gin.Context) {
	released, err := h.affiliateSvc.ReleaseDueCommissions()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "release failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"released": released})
}
