package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Email        string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name         string `gorm:"size:128" json:"name"`
	PasswordHash string `gorm:"size:255" json:"-"`
	Role         string `gorm:"size:20;not null;index" json:"role"` // SELLER | ADMIN

	// Connected account on the external payment processor that receives
	// settled funds net of platform fees.
	ProcessorAccountID string `gorm:"size:64;index" json:"processor_account_id"`

	// Affiliate who referred this seller, if any. Set once at signup.
	ReferredByID *uint `gorm:"index" json:"referred_by_id"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
