package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Mandy9943/paylinksro-sub000/internal/middleware"
	"github.com/Mandy9943/paylinksro-sub000/internal/service"
)

type AffiliateHandler struct {
	affiliateSvc *service.AffiliateService
}

func NewAffiliateHandler(affiliateSvc *service.AffiliateService) *AffiliateHandler {
	return &AffiliateHandler{affiliateSvc: affiliateSvc}
}

// GetBalance returns the affiliate's withdrawable commission balance.
// GET /me/affiliate/balance
func (h *AffiliateHandler) GetBalance(c *gin.Context) {
	userID := middleware.GetUserID(c)
	sum, err := h.affiliateSvc.AvailableBalance(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read balance"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"available_cents": sum})
}

// ListCommissions pages the affiliate's commissions with an id cursor.
// GET /me/affiliate/commissions?cursor=&limit=
func (h *AffiliateHandler) ListCommissions(c *gin.Context) {
	userID := middleware.GetUserID(c)
	cursor, _ := strconv.ParseUint(c.DefaultQuery("cursor", "0"), 10, 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	list, next, err := h.affiliateSvc.ListCommissions(userID, uint(cursor), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list commissions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"commissions": list, "next_cursor": next})
}

// ListReferrals returns the sellers this affiliate referred.
// GET /me/affiliate/referrals
func (h *AffiliateHandler) ListReferrals(c *gin.Context) {
	userID := middleware.GetUserID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	referred, err := h.affiliateSvc.ListReferrals(userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list referrals"})
		return
	}
	out := make([]gin.H, 0, len(referred))
	for _, u := range referred {
		out = append(out, gin.H{
			"id":         u.ID,
			"name":       u.Name,
			"created_at": u.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"referrals": out, "total": len(out)})
}

// RequestPayout batches all available commissions into one payout request.
// POST /me/affiliate/payouts
func (h *AffiliateHandler) RequestPayout(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var bank service.BankDetails
	if err := c.ShouldBindJSON(&bank); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payout, err := h.affiliateSvc.RequestPayout(userID, bank)
	switch {
	case errors.Is(err, service.ErrBelowMinimum), errors.Is(err, service.ErrMissingBankDetail):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not request payout"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":           payout.ID,
		"reference":    payout.Reference,
		"amount_cents": payout.AmountCents,
		"status":       payout.Status,
	})
}

// ListPayouts returns the affiliate's payout history.
// GET /me/affiliate/payouts
func (h *AffiliateHandler) ListPayouts(c *gin.Context) {
	userID := middleware.GetUserID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	payouts, err := h.affiliateSvc.ListPayouts(userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list payouts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payouts": payouts, "total": len(payouts)})
}
