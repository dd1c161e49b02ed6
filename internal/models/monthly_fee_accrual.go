package models

import "time"

// MonthlyFeeAccrual tracks how much of the capped monthly platform fee has
// been collected from a seller in one UTC calendar month. CollectedCents is
// monotonically non-decreasing within the month and never exceeds the cap,
// because every increment is a frozen per-charge value computed against the
// cap at charge-creation time.
type MonthlyFeeAccrual struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	SellerID       uint      `gorm:"not null;uniqueIndex:idx_accrual_seller_month" json:"seller_id"`
	Month          time.Time `gorm:"not null;uniqueIndex:idx_accrual_seller_month" json:"month"` // first day of month, UTC
	CollectedCents int64     `gorm:"not null;default:0" json:"collected_cents"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (MonthlyFeeAccrual) TableName() string {
	return "monthly_fee_accruals"
}
