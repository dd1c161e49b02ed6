package models

import (
	"time"
)

// Transaction is one record per payment attempt, keyed by the processor's
// external ids. The charge id is the stronger idempotency key once it
// exists; before a charge materializes the payment-intent id is used.
// Rows are upserted in place by webhook deliveries and reconciliation,
// never duplicated, never hard-deleted.
type Transaction struct {
	ID              uint    `gorm:"primaryKey" json:"id"`
	SellerID        uint    `gorm:"not null;index" json:"seller_id"`
	PayLinkID       *uint   `gorm:"index" json:"pay_link_id"`
	CustomerEmail   *string `gorm:"size:255" json:"customer_email"`
	ChargeID        *string `gorm:"size:64;uniqueIndex" json:"charge_id"`
	PaymentIntentID *string `gorm:"size:64;uniqueIndex" json:"payment_intent_id"`
	AmountCents     int64   `gorm:"not null" json:"amount_cents"`
	Currency        string  `gorm:"size:3;default:'RON'" json:"currency"`
	Status          string  `gorm:"size:20;not null;index" json:"status"`

	PaymentMethodType string `gorm:"size:20" json:"payment_method_type"`
	CardBrand         string `gorm:"size:20" json:"card_brand"`
	CardLast4         string `gorm:"size:4" json:"card_last4"`

	Description string `gorm:"size:255" json:"description"`
	ReceiptURL  string `gorm:"size:512" json:"receipt_url"`

	RefundedCents int64  `gorm:"not null;default:0" json:"refunded_cents"`
	NetCents      *int64 `json:"net_cents"` // settlement net, known only once the processor confirms

	// Frozen fee decision copied from the charge metadata at settlement.
	FeeBaseCents    int64 `gorm:"not null;default:0" json:"fee_base_cents"`
	FeeMonthlyCents int64 `gorm:"not null;default:0" json:"fee_monthly_cents"`

	FailureCode    string `gorm:"size:64" json:"failure_code"`
	FailureMessage string `gorm:"size:255" json:"failure_message"`

	SucceededAt *time.Time `json:"succeeded_at"`
	RefundedAt  *time.Time `json:"refunded_at"`
	DisputedAt  *time.Time `json:"disputed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}
