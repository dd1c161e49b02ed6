package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Mandy9943/paylinksro-sub000/internal/models"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(tx *gorm.DB, t *models.Transaction) error {
	return tx.Create(t).Error
}

func (r *TransactionRepository) Update(tx *gorm.DB, t *models.Transaction) error {
	return tx.Save(t).Error
}

// ClaimSettlement stamps succeeded_at on the row only when it is still
// unset. The condition makes first settlement a single-winner decision:
// of two concurrent deliveries, exactly one sees a row affected.
func (r *TransactionRepository) ClaimSettlement(tx *gorm.DB, id uint, at time.Time) (bool, error) {
	res := tx.Model(&models.Transaction{}).
		Where("id = ? AND succeeded_at IS NULL", id).
		Update("succeeded_at", at)
	return res.RowsAffected == 1, res.Error
}

func (r *TransactionRepository) GetByChargeID(tx *gorm.DB, chargeID string) (*models.Transaction, error) {
	var t models.Transaction
	err := tx.Where("charge_id = ?", chargeID).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepository) GetByIntentID(tx *gorm.DB, intentID string) (*models.Transaction, error) {
	var t models.Transaction
	err := tx.Where("payment_intent_id = ?", intentID).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Find looks a transaction up by charge id first, then by payment-intent id.
// The charge id is the stronger key; the intent id only matters before a
// charge exists. Returns (nil, nil) when neither matches.
func (r *TransactionRepository) Find(tx *gorm.DB, chargeID, intentID string) (*models.Transaction, error) {
	if chargeID != "" {
		t, err := r.GetByChargeID(tx, chargeID)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if intentID != "" {
		t, err := r.GetByIntentID(tx, intentID)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

func (r *TransactionRepository) ListBySeller(sellerID uint, limit, offset int) ([]models.Transaction, error) {
	var list []models.Transaction
	err := r.db.Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, err
}

// SellerSummary aggregates a seller's revenue, refunds and disputes over a
// time window.
type SellerSummary struct {
	GrossCents    int64 `json:"gross_cents"`
	RefundedCents int64 `json:"refunded_cents"`
	DisputedCents int64 `json:"disputed_cents"`
	Succeeded     int64 `json:"succeeded"`
	Refunds       int64 `json:"refunds"`
	Disputes      int64 `json:"disputes"`
}

func (r *TransactionRepository) SummarizeSeller(sellerID uint, from, to time.Time) (*SellerSummary, error) {
	var s SellerSummary
	err := r.db.Model(&models.Transaction{}).
		Select(`
			COALESCE(SUM(CASE WHEN succeeded_at IS NOT NULL THEN amount_cents ELSE 0 END), 0) AS gross_cents,
			COALESCE(SUM(refunded_cents), 0) AS refunded_cents,
			COALESCE(SUM(CASE WHEN status = 'DISPUTED' THEN amount_cents ELSE 0 END), 0) AS disputed_cents,
			COALESCE(SUM(CASE WHEN succeeded_at IS NOT NULL THEN 1 ELSE 0 END), 0) AS succeeded,
			COALESCE(SUM(CASE WHEN status = 'REFUNDED' THEN 1 ELSE 0 END), 0) AS refunds,
			COALESCE(SUM(CASE WHEN status = 'DISPUTED' THEN 1 ELSE 0 END), 0) AS disputes`).
		Where("seller_id = ? AND created_at >= ? AND created_at < ?", sellerID, from, to).
		Scan(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}
