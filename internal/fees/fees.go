package fees

import (
	"math"

	"github.com/Mandy9943/paylinksro-sub000/config"
)

// Breakdown is the application fee split computed at charge-creation time.
// It is frozen into the charge metadata and never recomputed downstream.
type Breakdown struct {
	BaseCents    int64 `json:"base_cents"`
	MonthlyCents int64 `json:"monthly_cents"`
	TotalCents   int64 `json:"total_cents"`
}

// BaseFee returns the per-charge platform fee: a percentage of the amount
// plus a fixed component chosen by the low-amount threshold. The result is
// clamped to the charge amount so the fee can never exceed what was paid.
func BaseFee(cfg config.FeesConfig, amountCents int64) int64 {
	fee := int64(math.Floor(float64(amountCents) * cfg.PercentRate))
	if amountCents <= cfg.LowThresholdCents {
		fee += cfg.FixedLowCents
	} else {
		fee += cfg.FixedHighCents
	}
	if fee > amountCents {
		fee = amountCents
	}
	if fee < 0 {
		fee = 0
	}
	return fee
}

// MonthlyPortion returns how much of the capped monthly platform fee this
// charge should carry, given what has already accrued this month. The
// monthly fee is collected opportunistically from whichever charges happen
// to cross the threshold; once the cap is reached it returns 0 for the rest
// of the month.
//
// The caller reads accruedCents at charge-creation time and freezes the
// result into the charge metadata. Two charges created in the same instant
// can both see the same low accrual and jointly overshoot the cap by a
// bounded amount; that is an accepted tradeoff for an idempotent settlement
// path, not a bug to fix here.
func MonthlyPortion(cfg config.FeesConfig, amountCents, baseFeeCents, accruedCents int64) int64 {
	remaining := cfg.MonthlyCapCents - accruedCents
	headroom := amountCents - baseFeeCents
	if remaining < 0 {
		remaining = 0
	}
	if headroom < 0 {
		headroom = 0
	}
	if remaining > headroom {
		remaining = headroom
	}
	return remaining
}

// Compute returns the full application-fee breakdown for a charge.
// Invariant: 0 <= TotalCents <= amountCents.
func Compute(cfg config.FeesConfig, amountCents, accruedCents int64) Breakdown {
	base := BaseFee(cfg, amountCents)
	monthly := MonthlyPortion(cfg, amountCents, base, accruedCents)
	return Breakdown{
		BaseCents:    base,
		MonthlyCents: monthly,
		TotalCents:   base + monthly,
	}
}

// GrossUp returns the amount presented to the payer when the pay link has
// VAT enabled. Whether VAT applies is decided by the seller's item
// configuration alone; any payer-supplied flag is ignored.
func GrossUp(cfg config.FeesConfig, amountCents int64) int64 {
	return int64(math.Round(float64(amountCents) * (1 + cfg.VATRate)))
}
