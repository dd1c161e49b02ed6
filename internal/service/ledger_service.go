package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/Mandy9943/paylinksro-sub000/config"
	"github.com/Mandy9943/paylinksro-sub000/internal/domain"
	"github.com/Mandy9943/paylinksro-sub000/internal/fees"
	"github.com/Mandy9943/paylinksro-sub000/internal/models"
	"github.com/Mandy9943/paylinksro-sub000/internal/repository"
	"github.com/Mandy9943/paylinksro-sub000/pkg/processor"
)

// LedgerService consumes processor notifications and maintains the
// transaction ledger, the monthly fee accrual and commission creation.
// Every handler is idempotent: redelivering any event produces the same row
// state, and side effects fire only on a transaction's first settlement.
type LedgerService struct {
	db             *gorm.DB
	txRepo         *repository.TransactionRepository
	accrualRepo    *repository.AccrualRepository
	commissionRepo *repository.CommissionRepository
	payLinkRepo    *repository.PayLinkRepository
	userRepo       *repository.UserRepository
	eventRepo      *repository.WebhookEventRepository
	auditRepo      *repository.AuditLogRepository
	proc           processor.Client
	notifSvc       *NotificationService
	cfg            *config.Config

	now func() time.Time // injectable for month-boundary tests
}

func NewLedgerService(
	db *gorm.DB,
	txRepo *repository.TransactionRepository,
	accrualRepo *repository.AccrualRepository,
	commissionRepo *repository.CommissionRepository,
	payLinkRepo *repository.PayLinkRepository,
	userRepo *repository.UserRepository,
	eventRepo *repository.WebhookEventRepository,
	auditRepo *repository.AuditLogRepository,
	proc processor.Client,
	notifSvc *NotificationService,
	cfg *config.Config,
) *LedgerService {
	return &LedgerService{
		db:             db,
		txRepo:         txRepo,
		accrualRepo:    accrualRepo,
		commissionRepo: commissionRepo,
		payLinkRepo:    payLinkRepo,
		userRepo:       userRepo,
		eventRepo:      eventRepo,
		auditRepo:      auditRepo,
		proc:           proc,
		notifSvc:       notifSvc,
		cfg:            cfg,
		now:            time.Now,
	}
}

// SetClock overrides the service clock. Tests only.
func (s *LedgerService) SetClock(now func() time.Time) { s.now = now }

// ApplyChargeEvent is the idempotent entry point for every webhook type.
// The event's writes happen in one DB transaction; an error rolls that
// event back without affecting other events.
func (s *LedgerService) ApplyChargeEvent(ctx context.Context, ev *processor.Event) error {
	s.recordEvent(ev)

	var err error
	switch ev.Type {
	case domain.EventAmountCapturableUpdated:
		err = s.applyIntentStatus(ev.PaymentIntent, domain.TxUncaptured)
	case domain.EventRequiresAction:
		err = s.applyIntentStatus(ev.PaymentIntent, domain.TxRequiresAction)
	case domain.EventPaymentFailed:
		err = s.applyPaymentFailed(ev.PaymentIntent)
	case domain.EventChargeSucceeded:
		err = s.applyChargeSucceeded(ctx, ev.Charge)
	case domain.EventChargeRefunded:
		err = s.applyChargeRefunded(ev.Charge)
	case domain.EventDisputeCreated:
		err = s.applyDisputeCreated(ev.Charge)
	default:
		log.Printf("[Ledger] ignoring unhandled event type=%s id=%s", ev.Type, ev.ID)
	}
	if ev.ID != "" {
		_ = s.eventRepo.MarkProcessed("processor", ev.ID, err)
	}
	if err != nil {
		log.Printf("[Ledger] event failed type=%s id=%s: %v", ev.Type, ev.ID, err)
	}
	return err
}

func (s *LedgerService) recordEvent(ev *processor.Event) {
	if ev.ID == "" {
		return
	}
	payload, _ := json.Marshal(ev)
	if err := s.eventRepo.Record(&models.WebhookEvent{
		Provider:        "processor",
		ProviderEventID: ev.ID,
		EventType:       ev.Type,
		PayloadJSON:     string(payload),
	}); err != nil {
		log.Printf("[Ledger] could not store webhook event %s: %v", ev.ID, err)
	}
}

// applyIntentStatus ensures a row exists for the intent in the given
// pre-settlement status. It never downgrades a row that has already moved
// past the pre-settlement phase.
func (s *LedgerService) applyIntentStatus(pi *processor.PaymentIntent, status string) error {
	if pi == nil || pi.ID == "" {
		return fmt.Errorf("event missing payment intent")
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		t, err := s.txRepo.Find(tx, pi.LatestChargeID, pi.ID)
		if err != nil {
			return err
		}
		if t == nil {
			meta := fees.ParseMetadata(pi.Metadata)
			t = &models.Transaction{
				PaymentIntentID: strPtr(pi.ID),
				AmountCents:     pi.Amount,
				Currency:        currencyOr(pi.Currency),
				Status:          status,
			}
			s.attachPayLink(t, meta.PayLinkID)
			return s.txRepo.Create(tx, t)
		}
		if isTerminal(t.Status) || t.SucceededAt != nil {
			return nil
		}
		t.Status = status
		return s.txRepo.Update(tx, t)
	})
}

func (s *LedgerService) applyPaymentFailed(pi *processor.PaymentIntent) error {
	if pi == nil || pi.ID == "" {
		return fmt.Errorf("event missing payment intent")
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		t, err := s.txRepo.Find(tx, pi.LatestChargeID, pi.ID)
		if err != nil {
			return err
		}
		if t == nil {
			meta := fees.ParseMetadata(pi.Metadata)
			t = &models.Transaction{
				PaymentIntentID: strPtr(pi.ID),
				AmountCents:     pi.Amount,
				Currency:        currencyOr(pi.Currency),
				Status:          domain.TxFailed,
				FailureCode:     pi.FailureCode,
				FailureMessage:  pi.FailureMessage,
			}
			s.attachPayLink(t, meta.PayLinkID)
			return s.txRepo.Create(tx, t)
		}
		// A failed retry notification must not erase a settlement that a
		// delayed succeeded event already recorded.
		if isTerminal(t.Status) || t.SucceededAt != nil {
			return nil
		}
		t.Status = domain.TxFailed
		t.FailureCode = pi.FailureCode
		t.FailureMessage = pi.FailureMessage
		return s.txRepo.Update(tx, t)
	})
}

func (s *LedgerService) applyChargeSucceeded(ctx context.Context, ch *processor.Charge) error {
	if ch == nil || ch.ID == "" {
		return fmt.Errorf("event missing charge")
	}
	meta, ok := s.resolveMetadata(ctx, ch)
	if !ok {
		// A payment settled but cannot be attributed to a pay link. Drop
		// the event and leave an audit trail instead of crashing; the
		// processor cannot usefully retry it.
		log.Printf("[Ledger] dropping unattributable charge %s (no pay link reference)", ch.ID)
		_ = s.auditRepo.Create(&models.AuditLog{
			Action:     "charge_unattributed",
			Resource:   "charge",
			ResourceID: ch.ID,
			Metadata:   fmt.Sprintf(`{"amount_cents":%d,"payment_intent":%q}`, ch.Amount, ch.PaymentIntentID),
		})
		return nil
	}

	link, err := s.payLinkRepo.GetByID(meta.PayLinkID)
	if err != nil {
		log.Printf("[Ledger] dropping charge %s: pay link %d not found", ch.ID, meta.PayLinkID)
		_ = s.auditRepo.Create(&models.AuditLog{
			Action:     "charge_unattributed",
			Resource:   "charge",
			ResourceID: ch.ID,
			Metadata:   fmt.Sprintf(`{"paylink_id":%d}`, meta.PayLinkID),
		})
		return nil
	}

	var firstSettle bool
	var settled *models.Transaction
	err = s.db.Transaction(func(tx *gorm.DB) error {
		t, err := s.txRepo.Find(tx, ch.ID, ch.PaymentIntentID)
		if err != nil {
			return err
		}
		if t == nil {
			t = &models.Transaction{
				SellerID: link.SellerID,
				Currency: currencyOr(ch.Currency),
			}
			s.attachPayLink(t, link.ID)
		}
		freshSettle := t.SucceededAt == nil

		t.ChargeID = strPtr(ch.ID)
		if ch.PaymentIntentID != "" {
			t.PaymentIntentID = strPtr(ch.PaymentIntentID)
		}
		t.SellerID = link.SellerID
		if t.PayLinkID == nil {
			s.attachPayLink(t, link.ID)
		}
		t.AmountCents = ch.Amount
		if ch.Currency != "" {
			t.Currency = currencyOr(ch.Currency)
		}
		if t.SucceededAt == nil {
			at := s.chargeTime(ch)
			t.SucceededAt = &at
		}
		// Refunds and disputes are terminal-looking: a late or duplicate
		// succeeded delivery must not regress them.
		if !isTerminal(t.Status) {
			t.Status = domain.TxSucceeded
		}
		if ch.PaymentMethod.Type != "" {
			t.PaymentMethodType = ch.PaymentMethod.Type
			t.CardBrand = ch.PaymentMethod.Brand
			t.CardLast4 = ch.PaymentMethod.Last4
		}
		if ch.Description != "" {
			t.Description = ch.Description
		}
		if ch.ReceiptURL != "" {
			t.ReceiptURL = ch.ReceiptURL
		}
		if ch.CustomerEmail != "" {
			t.CustomerEmail = strPtr(ch.CustomerEmail)
		}
		if ch.NetAmount != nil {
			t.NetCents = ch.NetAmount
		}
		t.FeeBaseCents = meta.BaseCents
		t.FeeMonthlyCents = meta.MonthlyCents

		// Reconciliation reads refunds off the charge itself.
		if ch.Refunded || ch.AmountRefunded > 0 {
			t.RefundedCents = ch.AmountRefunded
			if ch.AmountRefunded == 0 {
				t.RefundedCents = ch.Amount
			}
			t.Status = domain.TxRefunded
			if t.RefundedAt == nil {
				at := s.now()
				t.RefundedAt = &at
			}
		}

		if t.ID == 0 {
			// The unique charge id makes the insert itself the claim: a
			// concurrent duplicate insert fails and gets redelivered.
			if err := s.txRepo.Create(tx, t); err != nil {
				return err
			}
			firstSettle = true
		} else {
			if freshSettle {
				claimed, err := s.txRepo.ClaimSettlement(tx, t.ID, *t.SucceededAt)
				if err != nil {
					return err
				}
				firstSettle = claimed
			}
			if err := s.txRepo.Update(tx, t); err != nil {
				return err
			}
		}
		settled = t

		if !firstSettle {
			return nil
		}
		// Side effects of the first settlement only, inside the same DB
		// transaction as the upsert: the frozen monthly component goes to
		// the accrual, and a referred seller's sale earns a commission.
		if meta.MonthlyCents > 0 {
			if err := s.accrualRepo.Add(tx, link.SellerID, *t.SucceededAt, meta.MonthlyCents); err != nil {
				return err
			}
		}
		return s.createCommission(tx, t, meta)
	})
	if err != nil {
		return err
	}

	if firstSettle && settled != nil {
		// Best effort: a failed receipt email never rolls back the ledger.
		if err := s.notifSvc.SendReceipt(link.SellerID, settled); err != nil {
			log.Printf("[Ledger] receipt email for charge %s failed: %v", ch.ID, err)
		}
	}
	return nil
}

// resolveMetadata returns the frozen fee decision for a charge. When the
// charge metadata lacks the pay-link reference it best-effort refetches the
// related payment intent to recover it.
func (s *LedgerService) resolveMetadata(ctx context.Context, ch *processor.Charge) (fees.ChargeMetadata, bool) {
	meta := fees.ParseMetadata(ch.Metadata)
	if meta.PayLinkID != 0 {
		return meta, true
	}
	if ch.PaymentIntentID == "" {
		return meta, false
	}
	pi, err := s.proc.GetPaymentIntent(ctx, ch.PaymentIntentID)
	if err != nil {
		log.Printf("[Ledger] intent refetch for charge %s failed: %v", ch.ID, err)
		return meta, false
	}
	meta = fees.ParseMetadata(pi.Metadata)
	return meta, meta.PayLinkID != 0
}

func (s *LedgerService) createCommission(tx *gorm.DB, t *models.Transaction, meta fees.ChargeMetadata) error {
	var seller models.User
	if err := tx.First(&seller, t.SellerID).Error; err != nil || seller.ReferredByID == nil {
		return nil
	}
	net := t.AmountCents - meta.BaseCents - meta.MonthlyCents
	if t.NetCents != nil {
		net = *t.NetCents
	}
	amount := int64(float64(net) * s.cfg.Affiliate.CommissionPercent)
	if amount <= 0 {
		return nil
	}
	c := &models.Commission{
		AffiliateID:    *seller.ReferredByID,
		ReferredUserID: seller.ID,
		TransactionID:  t.ID,
		AmountCents:    amount,
		Status:         domain.CommissionPending,
		HoldReleaseAt:  t.SucceededAt.Add(s.cfg.Affiliate.HoldPeriod),
	}
	return s.commissionRepo.Create(tx, c)
}

func (s *LedgerService) applyChargeRefunded(ch *processor.Charge) error {
	if ch == nil || ch.ID == "" {
		return fmt.Errorf("event missing charge")
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		t, err := s.txRepo.GetByChargeID(tx, ch.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Under the processor's contract a refund cannot precede the
			// succeeded event; with no row yet this delivery is ignored.
			log.Printf("[Ledger] refund for unknown charge %s ignored", ch.ID)
			return nil
		}
		if err != nil {
			return err
		}
		t.Status = domain.TxRefunded
		t.RefundedCents = ch.AmountRefunded
		if ch.AmountRefunded == 0 {
			t.RefundedCents = ch.Amount
		}
		if t.RefundedAt == nil {
			at := s.chargeTime(ch)
			t.RefundedAt = &at
		}
		return s.txRepo.Update(tx, t)
	})
}

func (s *LedgerService) applyDisputeCreated(ch *processor.Charge) error {
	if ch == nil || ch.ID == "" {
		return fmt.Errorf("event missing charge")
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		t, err := s.txRepo.GetByChargeID(tx, ch.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[Ledger] dispute for unknown charge %s ignored", ch.ID)
			return nil
		}
		if err != nil {
			return err
		}
		t.Status = domain.TxDisputed
		if t.DisputedAt == nil {
			at := s.now()
			t.DisputedAt = &at
		}
		return s.txRepo.Update(tx, t)
	})
}

// Reconcile pulls the processor's charge history for the seller's connected
// account over [from, to) and applies the settlement upsert to every charge
// carrying a pay-link reference. Idempotent over overlapping windows; the
// page loop is capped to bound runtime against a misbehaving API.
func (s *LedgerService) Reconcile(ctx context.Context, sellerID uint, from, to time.Time) (int, error) {
	seller, err := s.userRepo.GetByID(sellerID)
	if err != nil {
		return 0, fmt.Errorf("reconcile: seller %d: %w", sellerID, err)
	}
	if seller.ProcessorAccountID == "" {
		return 0, fmt.Errorf("reconcile: seller %d has no connected account", sellerID)
	}

	updated := 0
	cursor := ""
	for page := 0; page < s.cfg.Processor.MaxPages; page++ {
		chPage, err := s.proc.ListCharges(ctx, seller.ProcessorAccountID, from, to, cursor)
		if err != nil {
			return updated, fmt.Errorf("reconcile: %w", err)
		}
		for i := range chPage.Charges {
			ch := &chPage.Charges[i]
			if fees.ParseMetadata(ch.Metadata).PayLinkID == 0 {
				continue
			}
			// The history also lists created-but-declined charges; only
			// settled money belongs in the ledger.
			if !ch.Paid && !ch.Refunded && ch.AmountRefunded == 0 {
				continue
			}
			if err := s.applyChargeSucceeded(ctx, ch); err != nil {
				log.Printf("[Reconcile] charge %s failed: %v", ch.ID, err)
				continue
			}
			updated++
		}
		if !chPage.HasMore {
			break
		}
		cursor = chPage.NextCursor
	}
	log.Printf("[Reconcile] seller=%d window=[%s, %s) updated=%d", sellerID, from.Format(time.RFC3339), to.Format(time.RFC3339), updated)
	return updated, nil
}

func (s *LedgerService) chargeTime(ch *processor.Charge) time.Time {
	if ch.Created > 0 {
		return time.Unix(ch.Created, 0).UTC()
	}
	return s.now().UTC()
}

func (s *LedgerService) attachPayLink(t *models.Transaction, id uint) {
	if id != 0 {
		t.PayLinkID = &id
	}
}

func isTerminal(status string) bool {
	return status == domain.TxRefunded || status == domain.TxDisputed
}

func strPtr(s string) *string { return &s }

func currencyOr(c string) string {
	if c == "" {
		return "RON"
	}
	return c
}
