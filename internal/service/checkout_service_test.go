package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mandy9943/paylinksro-sub000/internal/domain"
	"github.com/Mandy9943/paylinksro-sub000/internal/fees"
	"github.com/Mandy9943/paylinksro-sub000/internal/models"
	"github.com/Mandy9943/paylinksro-sub000/internal/repository"
	"github.com/Mandy9943/paylinksro-sub000/pkg/processor"
)

func newCheckoutService(f *ledgerFixture) *CheckoutService {
	return NewCheckoutService(
		repository.NewPayLinkRepository(f.db),
		repository.NewUserRepository(f.db),
		repository.NewAccrualRepository(f.db),
		f.stub,
		f.cfg,
	)
}

func TestCreateChargeFreezesFeeDecision(t *testing.T) {
	f := newLedgerFixture(t)
	svc := newCheckoutService(f)
	seller := createUser(t, f.db, "seller@example.com", domain.RoleSeller, nil)
	link := createPayLink(t, f.db, seller.ID, 0, false)

	resp, err := svc.CreateCharge(context.Background(), link.Slug, CheckoutRequest{
		AmountCents:   10000,
		CustomerEmail: "payer@example.com",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ChargeID)
	assert.NotEmpty(t, resp.CheckoutURL)

	require.Len(t, f.stub.Charges, 1)
	ch := f.stub.Charges[0]
	assert.Equal(t, int64(10000), ch.Amount)
	assert.Equal(t, seller.ProcessorAccountID, ch.OnBehalfOf)

	// Base 5% + 100 = 600; monthly takes the full 1000 cap. The decision
	// travels in the metadata and is never recomputed.
	meta := fees.ParseMetadata(ch.Metadata)
	assert.Equal(t, link.ID, meta.PayLinkID)
	assert.Equal(t, int64(600), meta.BaseCents)
	assert.Equal(t, int64(1000), meta.MonthlyCents)
}

func TestCreateChargeGrossesUpVAT(t *testing.T) {
	f := newLedgerFixture(t)
	svc := newCheckoutService(f)
	seller := createUser(t, f.db, "seller@example.com", domain.RoleSeller, nil)
	link := createPayLink(t, f.db, seller.ID, 10000, true)

	// The payer-supplied amount is ignored on a fixed-amount link, and the
	// seller's VAT setting grosses the charge up to 12100.
	_, err := svc.CreateCharge(context.Background(), link.Slug, CheckoutRequest{AmountCents: 1})
	require.NoError(t, err)
	require.Len(t, f.stub.Charges, 1)
	assert.Equal(t, int64(12100), f.stub.Charges[0].Amount)
}

func TestCreateChargeInactiveLink(t *testing.T) {
	f := newLedgerFixture(t)
	svc := newCheckoutService(f)
	seller := createUser(t, f.db, "seller@example.com", domain.RoleSeller, nil)
	link := createPayLink(t, f.db, seller.ID, 1000, false)
	require.NoError(t, f.db.Model(link).Update("active", false).Error)

	_, err := svc.CreateCharge(context.Background(), link.Slug, CheckoutRequest{})
	assert.ErrorIs(t, err, ErrPayLinkInactive)
	assert.Empty(t, f.stub.Charges)
}

func TestCreateChargeRequiresAmount(t *testing.T) {
	f := newLedgerFixture(t)
	svc := newCheckoutService(f)
	seller := createUser(t, f.db, "seller@example.com", domain.RoleSeller, nil)
	link := createPayLink(t, f.db, seller.ID, 0, false)

	_, err := svc.CreateCharge(context.Background(), link.Slug, CheckoutRequest{AmountCents: 0})
	assert.ErrorIs(t, err, ErrBadAmount)
	_, err = svc.CreateCharge(context.Background(), link.Slug, CheckoutRequest{AmountCents: -500})
	assert.ErrorIs(t, err, ErrBadAmount)
}

func TestComputeFeeReadsCurrentAccrual(t *testing.T) {
	f := newLedgerFixture(t)
	svc := newCheckoutService(f)
	seller := createUser(t, f.db, "seller@example.com", domain.RoleSeller, nil)

	now := time.Date(2026, 5, 15, 10, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return now })
	require.NoError(t, f.db.Create(&models.MonthlyFeeAccrual{
		SellerID:       seller.ID,
		Month:          repository.MonthOf(now),
		CollectedCents: 999,
	}).Error)

	fee, err := svc.ComputeFee(seller.ID, 10000)
	require.NoError(t, err)
	assert.Equal(t, int64(600), fee.BaseCents)
	assert.Equal(t, int64(1), fee.MonthlyCents, "only one cent of cap headroom left")

	// A different month starts from a clean accrual.
	svc.SetClock(func() time.Time { return now.AddDate(0, 1, 0) })
	fee, err = svc.ComputeFee(seller.ID, 10000)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), fee.MonthlyCents)
}

// Full path: checkout freezes the decision, the webhook settles it, and the
// next checkout in the same month sees the drained cap.
func TestCheckoutSettlementRoundTrip(t *testing.T) {
	f := newLedgerFixture(t)
	checkout := newCheckoutService(f)
	affiliate := createUser(t, f.db, "affiliate@example.com", domain.RoleSeller, nil)
	seller := createUser(t, f.db, "seller@example.com", domain.RoleSeller, &affiliate.ID)
	link := createPayLink(t, f.db, seller.ID, 0, false)

	resp, err := checkout.CreateCharge(context.Background(), link.Slug, CheckoutRequest{AmountCents: 10000})
	require.NoError(t, err)

	// The processor settles the charge it just created.
	ch := f.stub.Charges[0]
	ch.Created = time.Now().Unix()
	require.NoError(t, f.svc.ApplyChargeEvent(context.Background(), &processor.Event{
		ID:     "evt_settle",
		Type:   domain.EventChargeSucceeded,
		Charge: &ch,
	}))

	var tx models.Transaction
	require.NoError(t, f.db.Where("charge_id = ?", resp.ChargeID).First(&tx).Error)
	assert.Equal(t, domain.TxSucceeded, tx.Status)
	assert.Equal(t, int64(600), tx.FeeBaseCents)
	assert.Equal(t, int64(1000), tx.FeeMonthlyCents)

	// Cap drained: the next quote this month carries no monthly component.
	fee, err := checkout.ComputeFee(seller.ID, 10000)
	require.NoError(t, err)
	assert.Equal(t, int64(0), fee.MonthlyCents)

	// The referred seller's settlement earned the affiliate a commission on
	// the net: 10% of 10000 - 600 - 1000.
	var com models.Commission
	require.NoError(t, f.db.Where("transaction_id = ?", tx.ID).First(&com).Error)
	assert.Equal(t, affiliate.ID, com.AffiliateID)
	assert.Equal(t, int64(840), com.AmountCents)
}
