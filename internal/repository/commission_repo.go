package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/Mandy9943/paylinksro-sub000/internal/domain"
	"github.com/Mandy9943/paylinksro-sub000/internal/models"
)

type CommissionRepository struct {
	db *gorm.DB
}

func NewCommissionRepository(db *gorm.DB) *CommissionRepository {
	return &CommissionRepository{db: db}
}

func (r *CommissionRepository) Create(tx *gorm.DB, c *models.Commission) error {
	return tx.Create(c).Error
}

// ReleaseDue flips every PENDING commission whose hold has elapsed to
// AVAILABLE. Safe to run at any frequency; already-released rows are not
// selected again.
func (r *CommissionRepository) ReleaseDue(now time.Time) (int64, error) {
	res := r.db.Model(&models.Commission{}).
		Where("status = ? AND hold_release_at <= ?", domain.CommissionPending, now).
		Update("status", domain.CommissionAvailable)
	return res.RowsAffected, res.Error
}

// ListAvailableFIFO returns the affiliate's AVAILABLE commissions oldest
// released first, released-at ties broken by creation order.
func (r *CommissionRepository) ListAvailableFIFO(tx *gorm.DB, affiliateID uint) ([]models.Commission, error) {
	var list []models.Commission
	err := tx.Where("affiliate_id = ? AND status = ?", affiliateID, domain.CommissionAvailable).
		Order("hold_release_at ASC, created_at ASC, id ASC").
		Find(&list).Error
	return list, err
}

func (r *CommissionRepository) SumAvailable(affiliateID uint) (int64, error) {
	var sum int64
	err := r.db.Model(&models.Commission{}).
		Where("affiliate_id = ? AND status = ?", affiliateID, domain.CommissionAvailable).
		Select("COALESCE(SUM(amount_cents), 0)").
		Scan(&sum).Error
	return sum, err
}

// Allocate flips the given commissions from AVAILABLE to ALLOCATED under the
// payout. The status filter makes the write conditional: a commission
// concurrently grabbed by another payout is simply not matched, and the
// caller compares RowsAffected against len(ids) to detect that and abort.
func (r *CommissionRepository) Allocate(tx *gorm.DB, ids []uint, payoutID uint) (int64, error) {
	res := tx.Model(&models.Commission{}).
		Where("id IN ? AND status = ?", ids, domain.CommissionAvailable).
		Updates(map[string]interface{}{
			"status":    domain.CommissionAllocated,
			"payout_id": payoutID,
		})
	return res.RowsAffected, res.Error
}

// SettleByPayout flips every ALLOCATED commission under the payout to PAID.
func (r *CommissionRepository) SettleByPayout(tx *gorm.DB, payoutID uint) (int64, error) {
	res := tx.Model(&models.Commission{}).
		Where("payout_id = ? AND status = ?", payoutID, domain.CommissionAllocated).
		Update("status", domain.CommissionPaid)
	return res.RowsAffected, res.Error
}

// RevertByPayout returns every ALLOCATED commission under a failed payout to
// the AVAILABLE pool, detaching it so a future payout can pick it up.
func (r *CommissionRepository) RevertByPayout(tx *gorm.DB, payoutID uint) (int64, error) {
	res := tx.Model(&models.Commission{}).
		Where("payout_id = ? AND status = ?", payoutID, domain.CommissionAllocated).
		Updates(map[string]interface{}{
			"status":    domain.CommissionAvailable,
			"payout_id": nil,
		})
	return res.RowsAffected, res.Error
}

// ListByAffiliate pages the affiliate's commissions newest first using an id
// cursor: pass 0 for the first page, then the returned next cursor.
func (r *CommissionRepository) ListByAffiliate(affiliateID uint, cursor uint, limit int) ([]models.Commission, uint, error) {
	q := r.db.Where("affiliate_id = ?", affiliateID)
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}
	var list []models.Commission
	if err := q.Order("id DESC").Limit(limit + 1).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	var next uint
	if len(list) > limit {
		list = list[:limit]
		next = list[len(list)-1].ID
	}
	return list, next, nil
}
