package models

import (
	"time"

	"gorm.io/gorm"
)

// PayLink is the seller-configured payable page a transaction is attributed
// to. AmountCents of zero means the payer enters the amount at checkout.
// VATEnabled is the only tax decision that matters: the payer-supplied VAT
// flag on a checkout request is ignored.
type PayLink struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	SellerID    uint           `gorm:"not null;index" json:"seller_id"`
	Slug        string         `gorm:"size:64;uniqueIndex;not null" json:"slug"`
	Title       string         `gorm:"size:128;not null" json:"title"`
	Description string         `gorm:"size:512" json:"description"`
	AmountCents int64          `gorm:"not null;default:0" json:"amount_cents"`
	Currency    string         `gorm:"size:3;default:'RON'" json:"currency"`
	VATEnabled  bool           `gorm:"default:false" json:"vat_enabled"`
	Active      bool           `gorm:"default:true" json:"active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (PayLink) TableName() string { return "pay_links" }
