package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Mandy9943/paylinksro-sub000/internal/models"
)

type AccrualRepository struct {
	db *gorm.DB
}

func NewAccrualRepository(db *gorm.DB) *AccrualRepository {
	return &AccrualRepository{db: db}
}

// MonthOf truncates a time to the first day of its UTC calendar month.
func MonthOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Add increments the seller's accrual for the given month by amountCents,
// creating the row at that value on first use. A single upsert statement, so
// two charges settling concurrently in the same month cannot lose updates.
func (r *AccrualRepository) Add(tx *gorm.DB, sellerID uint, month time.Time, amountCents int64) error {
	acc := models.MonthlyFeeAccrual{
		SellerID:       sellerID,
		Month:          MonthOf(month),
		CollectedCents: amountCents,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "seller_id"}, {Name: "month"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"collected_cents": gorm.Expr("collected_cents + ?", amountCents),
		}),
	}).Create(&acc).Error
}

// Collected returns what has accrued for the seller in the given month, or
// zero when no charge has settled yet.
func (r *AccrualRepository) Collected(sellerID uint, month time.Time) (int64, error) {
	var acc models.MonthlyFeeAccrual
	err := r.db.Where("seller_id = ? AND month = ?", sellerID, MonthOf(month)).First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return acc.CollectedCents, nil
}
