package models

import (
	"time"
)

// Commission is one affiliate commission earned from a referred seller's
// settled transaction. Status moves PENDING -> AVAILABLE -> ALLOCATED ->
// PAID; the only backward transition is ALLOCATED -> AVAILABLE when the
// owning payout fails. The unique index on TransactionID guarantees a
// settled charge can never produce two commissions.
type Commission struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	AffiliateID    uint       `gorm:"not null;index" json:"affiliate_id"`
	ReferredUserID uint       `gorm:"not null;index" json:"referred_user_id"`
	TransactionID  uint       `gorm:"not null;uniqueIndex" json:"transaction_id"`
	AmountCents    int64      `gorm:"not null" json:"amount_cents"`
	Status         string     `gorm:"size:20;not null;index" json:"status"`
	HoldReleaseAt  time.Time  `gorm:"not null;index" json:"hold_release_at"`
	PayoutID       *uint      `gorm:"index" json:"payout_id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (Commission) TableName() string {
	return "commissions"
}
