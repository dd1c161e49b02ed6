package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Mandy9943/paylinksro-sub000/internal/middleware"
	"github.com/Mandy9943/paylinksro-sub000/internal/service"
)

type CheckoutHandler struct {
	checkoutSvc *service.CheckoutService
}

func NewCheckoutHandler(checkoutSvc *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutSvc: checkoutSvc}
}

// Create starts a payment for a pay link. Public endpoint.
// POST /pay-links/:slug/checkout
func (h *CheckoutHandler) Create(c *gin.Context) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, err := h.checkoutSvc.CreateCharge(c.Request.Context(), c.Param("slug"), req)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, service.ErrPayLinkInactive):
		c.JSON(http.StatusNotFound, gin.H{"error": "pay link not found"})
		return
	case errors.Is(err, service.ErrBadAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start payment"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"charge_id":    resp.ChargeID,
		"checkout_url": resp.CheckoutURL,
		"status":       resp.Status,
	})
}

// Quote returns the fee breakdown the seller would pay on a charge of the
// given amount this month. GET /me/fees/quote?amount_cents=...
func (h *CheckoutHandler) Quote(c *gin.Context) {
	sellerID := middleware.GetUserID(c)
	var q struct {
		AmountCents int64 `form:"amount_cents" binding:"required,min=1"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	fee, err := h.checkoutSvc.ComputeFee(sellerID, q.AmountCents)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not compute fee"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"base_cents":    fee.BaseCents,
		"monthly_cents": fee.MonthlyCents,
		"total_cents":   fee.TotalCents,
	})
}
