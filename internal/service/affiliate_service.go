package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Mandy9943/paylinksro-sub000/config"
	"github.com/Mandy9943/paylinksro-sub000/internal/domain"
	"github.com/Mandy9943/paylinksro-sub000/internal/models"
	"github.com/Mandy9943/paylinksro-sub000/internal/repository"
)

var (
	ErrBelowMinimum      = errors.New("available balance below minimum withdrawal")
	ErrMissingBankDetail = errors.New("bank details required")
	ErrPayoutNotPending  = errors.New("payout is not in REQUESTED status")
)

// BankDetails is the destination snapshot frozen onto a payout at request
// time.
type BankDetails struct {
	BankName string `json:"bank_name"`
	IBAN     string `json:"iban" binding:"required"`
}

// AffiliateService owns the commission lifecycle and payout batching.
type AffiliateService struct {
	db             *gorm.DB
	commissionRepo *repository.CommissionRepository
	payoutRepo     *repository.PayoutRepository
	userRepo       *repository.UserRepository
	auditRepo      *repository.AuditLogRepository
	cfg            *config.Config

	now func() time.Time
}

func NewAffiliateService(
	db *gorm.DB,
	commissionRepo *repository.CommissionRepository,
	payoutRepo *repository.PayoutRepository,
	userRepo *repository.UserRepository,
	auditRepo *repository.AuditLogRepository,
	cfg *config.Config,
) *AffiliateService {
	return &AffiliateService{
		db:             db,
		commissionRepo: commissionRepo,
		payoutRepo:     payoutRepo,
		userRepo:       userRepo,
		auditRepo:      auditRepo,
		cfg:            cfg,
		now:            time.Now,
	}
}

// SetClock overrides the service clock. Tests only.
func (s *AffiliateService) SetClock(now func() time.Time) { s.now = now }

// ReleaseDueCommissions moves every commission whose hold has elapsed into
// the AVAILABLE pool. Idempotent and safe to run at any frequency.
func (s *AffiliateService) ReleaseDueCommissions() (int64, error) {
	released, err := s.commissionRepo.ReleaseDue(s.now())
	if err != nil {
		return 0, fmt.Errorf("release commissions: %w", err)
	}
	if released > 0 {
		log.Printf("[Affiliate] released %d commissions", released)
	}
	return released, nil
}

// RequestPayout batches all of the affiliate's AVAILABLE commissions,
// oldest released first, into one REQUESTED payout. The whole allocation is
// one DB transaction: either every selected commission is flipped to
// ALLOCATED and snapshotted, or nothing is.
func (s *AffiliateService) RequestPayout(affiliateID uint, bank BankDetails) (*models.Payout, error) {
	if bank.IBAN == "" {
		return nil, ErrMissingBankDetail
	}
	var payout *models.Payout
	err := s.db.Transaction(func(tx *gorm.DB) error {
		commissions, err := s.commissionRepo.ListAvailableFIFO(tx, affiliateID)
		if err != nil {
			return err
		}
		var total int64
		for _, c := range commissions {
			total += c.AmountCents
		}
		if total < s.cfg.Affiliate.MinWithdrawalCents {
			return ErrBelowMinimum
		}

		payout = &models.Payout{
			AffiliateID: affiliateID,
			Reference:   "po-" + uuid.New().String(),
			AmountCents: total,
			Status:      domain.PayoutRequested,
			BankName:    bank.BankName,
			IBAN:        bank.IBAN,
		}
		if err := s.payoutRepo.Create(tx, payout); err != nil {
			return err
		}

		ids := make([]uint, len(commissions))
		items := make([]models.PayoutItem, len(commissions))
		for i, c := range commissions {
			ids[i] = c.ID
			items[i] = models.PayoutItem{
				PayoutID:     payout.ID,
				CommissionID: c.ID,
				AmountCents:  c.AmountCents,
			}
		}
		flipped, err := s.commissionRepo.Allocate(tx, ids, payout.ID)
		if err != nil {
			return err
		}
		if flipped != int64(len(ids)) {
			// Another payout grabbed some of these commissions between the
			// select and the conditional update. Abort; nothing is kept.
			return fmt.Errorf("allocation conflict: flipped %d of %d commissions", flipped, len(ids))
		}
		return s.payoutRepo.CreateItems(tx, items)
	})
	if err != nil {
		return nil, err
	}
	_ = s.auditRepo.Create(&models.AuditLog{
		UserID:     &affiliateID,
		Action:     "payout_requested",
		Resource:   "payout",
		ResourceID: payout.Reference,
		Metadata:   fmt.Sprintf(`{"amount_cents":%d}`, payout.AmountCents),
	})
	log.Printf("[Affiliate] payout %s requested affiliate=%d amount=%d", payout.Reference, affiliateID, payout.AmountCents)
	return payout, nil
}

// SetPayoutStatus is the operator settlement action. SENT marks every
// allocated commission PAID and attaches the proof reference; FAILED
// returns every allocated commission to the AVAILABLE pool. Both paths are
// one transaction with no observable intermediate state.
func (s *AffiliateService) SetPayoutStatus(payoutID uint, status string, proofRef string) error {
	if status != domain.PayoutSent && status != domain.PayoutFailed {
		return fmt.Errorf("unsupported payout status %q", status)
	}
	var payout *models.Payout
	err := s.db.Transaction(func(tx *gorm.DB) error {
		p, err := s.payoutRepo.GetByID(tx, payoutID)
		if err != nil {
			return err
		}
		if p.Status != domain.PayoutRequested {
			return ErrPayoutNotPending
		}
		now := s.now()
		p.Status = status
		if status == domain.PayoutSent {
			p.SentAt = &now
			p.ProofRef = proofRef
			if _, err := s.commissionRepo.SettleByPayout(tx, p.ID); err != nil {
				return err
			}
		} else {
			p.FailedAt = &now
			if _, err := s.commissionRepo.RevertByPayout(tx, p.ID); err != nil {
				return err
			}
		}
		payout = p
		return s.payoutRepo.Update(tx, p)
	})
	if err != nil {
		return err
	}
	_ = s.auditRepo.Create(&models.AuditLog{
		UserID:     &payout.AffiliateID,
		Action:     "payout_" + status,
		Resource:   "payout",
		ResourceID: payout.Reference,
		Metadata:   fmt.Sprintf(`{"proof_ref":%q}`, proofRef),
	})
	log.Printf("[Affiliate] payout %s marked %s", payout.Reference, status)
	return nil
}

// AvailableBalance returns the sum of the affiliate's AVAILABLE commissions.
func (s *AffiliateService) AvailableBalance(affiliateID uint) (int64, error) {
	return s.commissionRepo.SumAvailable(affiliateID)
}

// ListCommissions pages the affiliate's commissions with an id cursor.
func (s *AffiliateService) ListCommissions(affiliateID uint, cursor uint, limit int) ([]models.Commission, uint, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.commissionRepo.ListByAffiliate(affiliateID, cursor, limit)
}

// ListReferrals returns the sellers the affiliate referred.
func (s *AffiliateService) ListReferrals(affiliateID uint, limit, offset int) ([]models.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.userRepo.ListReferred(affiliateID, limit, offset)
}

// ListPayouts returns the affiliate's payout history.
func (s *AffiliateService) ListPayouts(affiliateID uint, limit, offset int) ([]models.Payout, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.payoutRepo.ListByAffiliate(affiliateID, limit, offset)
}
