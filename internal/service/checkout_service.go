package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Mandy9943/paylinksro-sub000/config"
	"github.com/Mandy9943/paylinksro-sub000/internal/fees"
	"github.com/Mandy9943/paylinksro-sub000/internal/repository"
	"github.com/Mandy9943/paylinksro-sub000/pkg/processor"
)

var (
	ErrPayLinkInactive = errors.New("pay link is not active")
	ErrBadAmount       = errors.New("a positive amount is required")
)

// CheckoutRequest is the payer's side of creating a charge. The VAT flag a
// payer might send is deliberately absent: only the seller's pay-link
// configuration decides tax treatment.
type CheckoutRequest struct {
	AmountCents   int64  `json:"amount_cents"`
	CustomerEmail string `json:"customer_email"`
}

// CheckoutService computes the fee decision and freezes it into the charge
// metadata before the processor ever sees the charge.
type CheckoutService struct {
	payLinkRepo *repository.PayLinkRepository
	userRepo    *repository.UserRepository
	accrualRepo *repository.AccrualRepository
	proc        processor.Client
	cfg         *config.Config

	now func() time.Time
}

func NewCheckoutService(
	payLinkRepo *repository.PayLinkRepository,
	userRepo *repository.UserRepository,
	accrualRepo *repository.AccrualRepository,
	proc processor.Client,
	cfg *config.Config,
) *CheckoutService {
	return &CheckoutService{
		payLinkRepo: payLinkRepo,
		userRepo:    userRepo,
		accrualRepo: accrualRepo,
		proc:        proc,
		cfg:         cfg,
		now:         time.Now,
	}
}

// SetClock overrides the service clock. Tests only.
func (s *CheckoutService) SetClock(now func() time.Time) { s.now = now }

// CreateCharge resolves the pay link, applies the VAT gross-up, computes
// the application fee against the month's accrual so far, and creates the
// charge with the frozen decision in its metadata. The fee is never
// recomputed after this point.
func (s *CheckoutService) CreateCharge(ctx context.Context, slug string, req CheckoutRequest) (*processor.CreateChargeResponse, error) {
	link, err := s.payLinkRepo.GetBySlug(slug)
	if err != nil {
		return nil, fmt.Errorf("pay link %q: %w", slug, err)
	}
	if !link.Active {
		return nil, ErrPayLinkInactive
	}
	seller, err := s.userRepo.GetByID(link.SellerID)
	if err != nil {
		return nil, fmt.Errorf("seller %d: %w", link.SellerID, err)
	}

	amount := link.AmountCents
	if amount == 0 {
		amount = req.AmountCents
	}
	if amount <= 0 {
		return nil, ErrBadAmount
	}
	if link.VATEnabled {
		amount = fees.GrossUp(s.cfg.Fees, amount)
	}

	accrued, err := s.accrualRepo.Collected(link.SellerID, s.now())
	if err != nil {
		return nil, fmt.Errorf("accrual lookup: %w", err)
	}
	fee := fees.Compute(s.cfg.Fees, amount, accrued)
	meta := fees.ChargeMetadata{
		PayLinkID:    link.ID,
		BaseCents:    fee.BaseCents,
		MonthlyCents: fee.MonthlyCents,
	}

	resp, err := s.proc.CreateCharge(ctx, processor.CreateChargeRequest{
		AmountCents:         amount,
		Currency:            link.Currency,
		Description:         link.Title,
		OnBehalfOf:          seller.ProcessorAccountID,
		ApplicationFeeCents: fee.TotalCents,
		CustomerEmail:       req.CustomerEmail,
		Metadata:            meta.Encode(),
	})
	if err != nil {
		return nil, fmt.Errorf("create charge: %w", err)
	}
	log.Printf("[Checkout] charge %s link=%s amount=%d fee=%d (base=%d monthly=%d)",
		resp.ChargeID, slug, amount, fee.TotalCents, fee.BaseCents, fee.MonthlyCents)
	return resp, nil
}

// ComputeFee exposes the fee breakdown for a seller's prospective charge.
func (s *CheckoutService) ComputeFee(sellerID uint, amountCents int64) (fees.Breakdown, error) {
	accrued, err := s.accrualRepo.Collected(sellerID, s.now())
	if err != nil {
		return fees.Breakdown{}, err
	}
	return fees.Compute(s.cfg.Fees, amountCents, accrued), nil
}
