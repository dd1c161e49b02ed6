package models

import (
	"time"
)

// Payout is one batched withdrawal request for an affiliate. Its amount is
// frozen at request time and always equals the sum of its items.
type Payout struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	AffiliateID uint   `gorm:"not null;index" json:"affiliate_id"`
	Reference   string `gorm:"size:64;uniqueIndex;not null" json:"reference"`
	AmountCents int64  `gorm:"not null" json:"amount_cents"`
	Status      string `gorm:"size:20;not null;index" json:"status"` // REQUESTED, SENT, FAILED

	// Bank details snapshot taken at request time.
	BankName string `gorm:"size:128" json:"bank_name"`
	IBAN     string `gorm:"size:34;not null" json:"iban"`

	ProofRef string `gorm:"size:255" json:"proof_ref"`

	SentAt    *time.Time `json:"sent_at"`
	FailedAt  *time.Time `json:"failed_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	Items []PayoutItem `gorm:"foreignKey:PayoutID" json:"items,omitempty"`
}

func (Payout) TableName() string { return "payouts" }

// PayoutItem snapshots one commission and its amount at allocation time,
// protecting the payout total against later commission mutation.
type PayoutItem struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	PayoutID     uint      `gorm:"not null;index" json:"payout_id"`
	CommissionID uint      `gorm:"not null;index" json:"commission_id"`
	AmountCents  int64     `gorm:"not null" json:"amount_cents"`
	CreatedAt    time.Time `json:"created_at"`
}

func (PayoutItem) TableName() string { return "payout_items" }
