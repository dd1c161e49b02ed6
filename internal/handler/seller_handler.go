package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Mandy9943/paylinksro-sub000/internal/middleware"
	"github.com/Mandy9943/paylinksro-sub000/internal/models"
	"github.com/Mandy9943/paylinksro-sub000/internal/repository"
)

type SellerHandler struct {
	txRepo      *repository.TransactionRepository
	payLinkRepo *repository.PayLinkRepository
}

func NewSellerHandler(txRepo *repository.TransactionRepository, payLinkRepo *repository.PayLinkRepository) *SellerHandler {
	return &SellerHandler{txRepo: txRepo, payLinkRepo: payLinkRepo}
}

// GetSummary aggregates the seller's revenue, refunds and disputes over a
// time window. GET /me/summary?from=RFC3339&to=RFC3339
func (h *SellerHandler) GetSummary(c *gin.Context) {
	sellerID := middleware.GetUserID(c)
	from, to, ok := parseWindow(c)
	if !ok {
		return
	}
	summary, err := h.txRepo.SummarizeSeller(sellerID, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not compute summary"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ListTransactions returns the seller's recent payment attempts.
// GET /me/transactions
func (h *SellerHandler) ListTransactions(c *gin.Context) {
	sellerID := middleware.GetUserID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	list, err := h.txRepo.ListBySeller(sellerID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list transactions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": list, "total": len(list)})
}

// CreatePayLink registers a new payable page for the seller.
// POST /me/pay-links
func (h *SellerHandler) CreatePayLink(c *gin.Context) {
	sellerID := middleware.GetUserID(c)
	var req struct {
		Slug        string `json:"slug" binding:"required,min=3,max=64"`
		Title       string `json:"title" binding:"required,max=128"`
		Description string `json:"description" binding:"max=512"`
		AmountCents int64  `json:"amount_cents" binding:"min=0"`
		Currency    string `json:"currency"`
		VATEnabled  bool   `json:"vat_enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	link := &models.PayLink{
		SellerID:    sellerID,
		Slug:        req.Slug,
		Title:       req.Title,
		Description: req.Description,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		VATEnabled:  req.VATEnabled,
		Active:      true,
	}
	if link.Currency == "" {
		link.Currency = "RON"
	}
	if err := h.payLinkRepo.Create(link); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "slug already in use"})
		return
	}
	c.JSON(http.StatusCreated, link)
}

// ListPayLinks returns the seller's pay links. GET /me/pay-links
func (h *SellerHandler) ListPayLinks(c *gin.Context) {
	sellerID := middleware.GetUserID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	list, err := h.payLinkRepo.ListBySeller(sellerID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list pay links"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pay_links": list, "total": len(list)})
}

func parseWindow(c *gin.Context) (time.Time, time.Time, bool) {
	now := time.Now().UTC()
	from := now.AddDate(0, -1, 0)
	to := now
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from"})
			return time.Time{}, time.Time{}, false
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to"})
			return time.Time{}, time.Time{}, false
		}
		to = t
	}
	if !from.Before(to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must precede to"})
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}
