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

func TestChargeSucceededIdempotent(t *testing.T) {
	f := newLedgerFixture(t)
	affiliate := createUser(t, f.db, "affiliate@example.com", domain.RoleSeller, nil)
	seller := createUser(t, f.db, "seller@example.com", domain.RoleSeller, &affiliate.ID)
	link := createPayLink(t, f.db, seller.ID, 10000, false)

	created := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ev := chargeEvent("evt_1", processor.Charge{
		ID:              "ch_1",
		PaymentIntentID: "pi_1",
		Amount:          10000,
		Currency:        "RON",
		Metadata:        fees.ChargeMetadata{PayLinkID: link.ID, BaseCents: 600, MonthlyCents: 400}.Encode(),
		Created:         created.Unix(),
	})

	// Deliver the same event three times; everything must land exactly once.
	for i := 0; i < 3; i++ {
		require.NoError(t, f.svc.ApplyChargeEvent(context.Background(), ev))
	}

	assert.EqualValues(t, 1, countRows(t, f.db, &models.Transaction{}))
	var tx models.Transaction
	require.NoError(t, f.db.Where("charge_id = ?", "ch_1").First(&tx).Error)
	assert.Equal(t, domain.TxSucceeded, tx.Status)
	assert.Equal(t, seller.ID, tx.SellerID)
	require.NotNil(t, tx.PayLinkID)
	assert.Equal(t, link.ID, *tx.PayLinkID)
	assert.Equal(t, int64(600), tx.FeeBaseCents)
	assert.Equal(t, int64(400), tx.FeeMonthlyCents)
	require.NotNil(t, tx.SucceededAt)
	assert.True(t, tx.SucceededAt.Equal(created))

	var acc models.MonthlyFeeAccrual
	require.NoError(t, f.db.Where("seller_id = ?", seller.ID).First(&acc).Error)
	assert.Equal(t, int64(400), acc.CollectedCents, "accrual must count a redelivered settlement once")
	assert.True(t, acc.Month.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))

	assert.EqualValues(t, 1, countRows(t, f.db, &models.Commission{}))
	var com models.Commission
	require.NoError(t, f.db.Where("transaction_id = ?", tx.ID).First(&com).Error)
	assert.Equal(t, affiliate.ID, com.AffiliateID)
	assert.Equal(t, seller.ID, com.ReferredUserID)
	// 10% of the net 10000 - 600 - 400.
	assert.Equal(t, int64(900), com.AmountCents)
	assert.Equal(t, domain.CommissionPending, com.Status)
	assert.True(t, com.HoldReleaseAt.Equal(created.Add(f.cfg.Affiliate.HoldPeriod)))

	assert.EqualValues(t, 1, countRows(t, f.db, &models.WebhookEvent{}))
}

func TestChargeSucceededUnreferredSeller(t *testing.T) {
	f := newLedgerFixture(t)
	seller := createUser(t, f.db, "solo@example.com", domain.RoleSeller, nil)
	link := createPayLink(t, f.db, seller.ID, 0, false)

	ev := chargeEvent("evt_1", processor.Charge{
		ID:       "ch_1",
		Amount:   5000,
		Metadata: fees.ChargeMetadata{PayLinkID: link.ID, BaseCents: 350, MonthlyCents: 650}.Encode(),
		Created:  time.Now().Unix(),
	})
	require.NoError(t, f.svc.ApplyChargeEvent(context.Background(), ev))

	assert.EqualValues(t, 1, countRows(t, f.db, &models.Transaction{}))
	assert.EqualValues(t, 0, countRows(t, f.db, &models.Commission{}), "no referrer, no commission")
}

func TestUnattributableChargeDropped(t *testing.T) {
	f := newLedgerFixture(t)

	ev := chargeEvent("evt_1", processor.Charge{ID: "ch_orphan", Amount: 2500})
	require.NoError(t, f.svc.ApplyChargeEvent(context.Background(), ev), "drop, not retry")

	assert.EqualValues(t, 0, countRows(t, f.db, &models.Transaction{}))
	var audit models.AuditLog
	require.NoError(t, f.db.Where("action = ?", "charge_unattributed").First(&audit).Error)
	assert.Equal(t, "ch_orphan", audit.ResourceID)
}

func TestMetadataRecoveredFromIntent(t *testing.T) {
	f := newLedgerFixture(t)
	seller := createUser(t, f.db, "seller@example.com", domain.RoleSeller, nil)
	link := createPayLink(t, f.db, seller.ID, 0, false)

	// The charge arrives with its metadata stripped; the intent still
	// carries the frozen decision.
	f.stub.AddIntent(processor.PaymentIntent{
		ID:       "pi_1",
		Metadata: fees.ChargeMetadata{PayLinkID: link.ID, BaseCents: 200, MonthlyCents: 0}.Encode(),
	})
	ev := chargeEvent("evt_1", processor.Charge{
		ID:              "ch_1",
		PaymentIntentID: "pi_1",
		Amount:          2000,
		Created:         time.Now().Unix(),
	})
	require.NoError(t, f.svc.ApplyChargeEvent(context.Background(), ev))

	var tx models.Transaction
	require.NoError(t, f.db.Where("charge_id = ?", "ch_1").First(&tx).Error)
	assert.Equal(t, seller.ID, tx.SellerID)
	assert.Equal(t, int64(200), tx.FeeBaseCents)
}

func TestIntentLifecycle(t *testing.T) {
	f := newLedgerFixture(t)
	seller := createUser(t, f.db, "seller@example.com", domain.RoleSeller, nil)
	link := createPayLink(t, f.db, seller.ID, 0, false)
	meta := fees.ChargeMetadata{PayLinkID: link.ID, BaseCents: 130, MonthlyCents: 370}.Encode()

	pi := &processor.PaymentIntent{ID: "pi_1", Amount: 3000, Currency: "RON", Metadata: meta}
	ctx := context.Background()

	require.NoError(t, f.svc.ApplyChargeEvent(ctx, &processor.Event{
		ID: "evt_1", Type: domain.EventAmountCapturableUpdated, PaymentIntent: pi,
	}))
	var tx models.Transaction
	require.NoError(t, f.db.Where("payment_intent_id = ?", "pi_1").First(&tx).Error)
	assert.Equal(t, domain.TxUncaptured, tx.Status)
	assert.Nil(t, tx.ChargeID)

	require.NoError(t, f.svc.ApplyChargeEvent(ctx, &processor.Event{
		ID: "evt_2", Type: domain.EventRequiresAction, PaymentIntent: pi,
	}))
	require.NoError(t, f.db.Where("payment_intent_id = ?", "pi_1").First(&tx).Error)
	assert.Equal(t, domain.TxRequiresAction, tx.Status)

	failed := *pi
	failed.FailureCode = "card_declined"
	failed.FailureMessage = "Your card was declined."
	require.NoError(t, f.svc.ApplyChargeEvent(ctx, &processor.Event{
		ID: "evt_3", Type: domain.EventPaymentFailed, PaymentIntent: &failed,
	}))
	require.NoError(t, f.db.Where("payment_intent_id = ?", "pi_1").First(&tx).Error)
	assert.Equal(t, domain.TxFailed, tx.Status)
	assert.Equal(t, "card_declined", tx.FailureCode)

	// The retry succeeds. Same intent, so the same ledger row is upgraded.
	require.NoError(t, f.svc.ApplyChargeEvent(ctx, chargeEvent("evt_4", processor.Charge{
		ID:              "ch_1",
		PaymentIntentID: "pi_1",
		Amount:          3000,
		Metadata:        meta,
		Created:         time.Now().Unix(),
	})))
	assert.EqualValues(t, 1, countRows(t, f.db, &models.Transaction{}))
	var settled models.Transaction
	require.NoError(t, f.db.Where("payment_intent_id = ?", "pi_1").First(&settled).Error)
	assert.Equal(t, tx.ID, settled.ID)
	assert.Equal(t, domain.TxSucceeded, settled.Status)
	require.NotNil(t, settled.ChargeID)
	assert.Equal(t, "ch_1", *settled.ChargeID)

	// A stale failed notification delivered after settlement is a no-op.
	require.NoError(t, f.svc.ApplyChargeEvent(ctx, &processor.Event{
		ID: "evt_5", Type: domain.EventPaymentFailed, PaymentIntent: &failed,
	}))
	require.NoError(t, f.db.Where("payment_intent_id = ?", "pi_1").First(&settled).Error)
	assert.Equal(t, domain.TxSucceeded, settled.Status)
}

func TestRefundForUnknownChargeIgnored(t *testing.T) {
	f := newLedgerFixture(t)
	require.NoError(t, f.svc.ApplyChargeEvent(context.Background(), &processor.Event{
		ID:     "evt_1",
		Type:   domain.EventChargeRefunded,
		Charge: &processor.Charge{ID: "ch_never_seen", Amount: 1000},
	}))
	assert.EqualValues(t, 0, countRows(t, f.db, &models.Transaction{}))
}

func TestRefundThenLateSucceededDoesNotRegress(t *testing.T) {
	f := newLedgerFixture(t)
	seller := createUser(t, f.db, "seller@example.com", domain.RoleSeller, nil)
	link := createPayLink(t, f.db, seller.ID, 0, false)
	ctx := context.Background()

	succeeded := chargeEvent("evt_1", processor.Charge{
		ID:       "ch_1",
		Amount:   8000,
		Metadata: fees.ChargeMetadata{PayLinkID: link.ID, BaseCents: 500, MonthlyCents: 300}.Encode(),
		Created:  time.Now().Unix(),
	})
	require.NoError(t, f.svc.ApplyChargeEvent(ctx, succeeded))

	require.NoError(t, f.svc.ApplyChargeEvent(ctx, &processor.Event{
		ID:     "evt_2",
		Type:   domain.EventChargeRefunded,
		Charge: &processor.Charge{ID: "ch_1", Amount: 8000},
	}))
	var tx models.Transaction
	require.NoError(t, f.db.Where("charge_id = ?", "ch_1").First(&tx).Error)
	assert.Equal(t, domain.TxRefunded, tx.Status)
	assert.Equal(t, int64(8000), tx.RefundedCents, "missing amount_refunded means full refund")
	require.NotNil(t, tx.RefundedAt)
	refundedAt := *tx.RefundedAt

	// An out-of-order redelivery of the succeeded event must not resurrect
	// the transaction or double any side effect.
	require.NoError(t, f.svc.ApplyChargeEvent(ctx, succeeded))
	require.NoError(t, f.db.Where("charge_id = ?", "ch_1").First(&tx).Error)
	assert.Equal(t, domain.TxRefunded, tx.Status)
	assert.Equal(t, int64(8000), tx.RefundedCents)
	assert.True(t, tx.RefundedAt.Equal(refundedAt))

	var acc models.MonthlyFeeAccrual
	require.NoError(t, f.db.Where("seller_id = ?", seller.ID).First(&acc).Error)
	assert.Equal(t, int64(300), acc.CollectedCents)
}

func TestDisputeIsTerminal(t *testing.T) {
	f := newLedgerFixture(t)
	seller := createUser(t, f.db, "seller@example.com", domain.RoleSeller, nil)
	link := createPayLink(t, f.db, seller.ID, 0, false)
	ctx := context.Background()

	succeeded := chargeEvent("evt_1", processor.Charge{
		ID:       "ch_1",
		Amount:   4000,
		Metadata: fees.ChargeMetadata{PayLinkID: link.ID, BaseCents: 300}.Encode(),
		Created:  time.Now().Unix(),
	})
	require.NoError(t, f.svc.ApplyChargeEvent(ctx, succeeded))
	require.NoError(t, f.svc.ApplyChargeEvent(ctx, &processor.Event{
		ID:     "evt_2",
		Type:   domain.EventDisputeCreated,
		Charge: &processor.Charge{ID: "ch_1", Amount: 4000},
	}))

	var tx models.Transaction
	require.NoError(t, f.db.Where("charge_id = ?", "ch_1").First(&tx).Error)
	assert.Equal(t, domain.TxDisputed, tx.Status)
	require.NotNil(t, tx.DisputedAt)

	require.NoError(t, f.svc.ApplyChargeEvent(ctx, succeeded))
	require.NoError(t, f.db.Where("charge_id = ?", "ch_1").First(&tx).Error)
	assert.Equal(t, domain.TxDisputed, tx.Status)
}

func TestReconcile(t *testing.T) {
	f := newLedgerFixture(t)
	seller := createUser(t, f.db, "seller@example.com", domain.RoleSeller, nil)
	link := createPayLink(t, f.db, seller.ID, 0, false)
	f.stub.PageSize = 5

	now := time.Now().UTC()
	meta := fees.ChargeMetadata{PayLinkID: link.ID, BaseCents: 150, MonthlyCents: 50}.Encode()
	for i := 0; i < 12; i++ {
		f.stub.AddCharge(processor.Charge{
			ID:         "ch_" + string(rune('a'+i)),
			Amount:     1000,
			Paid:       true,
			OnBehalfOf: seller.ProcessorAccountID,
			Metadata:   meta,
			Created:    now.Add(time.Duration(i) * time.Minute).Unix(),
		})
	}
	// Stray charge with no pay-link reference; reconciliation skips it.
	f.stub.AddCharge(processor.Charge{
		ID:         "ch_stray",
		Amount:     9999,
		Paid:       true,
		OnBehalfOf: seller.ProcessorAccountID,
		Created:    now.Unix(),
	})
	// A charge the processor already refunded lands directly as REFUNDED.
	f.stub.AddCharge(processor.Charge{
		ID:             "ch_refunded",
		Amount:         1000,
		AmountRefunded: 1000,
		Refunded:       true,
		OnBehalfOf:     seller.ProcessorAccountID,
		Metadata:       meta,
		Created:        now.Unix(),
	})

	from := now.Add(-time.Hour)
	to := now.Add(time.Hour)
	updated, err := f.svc.Reconcile(context.Background(), seller.ID, from, to)
	require.NoError(t, err)
	assert.Equal(t, 13, updated)
	assert.EqualValues(t, 13, countRows(t, f.db, &models.Transaction{}))

	var refunded models.Transaction
	require.NoError(t, f.db.Where("charge_id = ?", "ch_refunded").First(&refunded).Error)
	assert.Equal(t, domain.TxRefunded, refunded.Status)
	assert.Equal(t, int64(1000), refunded.RefundedCents)

	var acc models.MonthlyFeeAccrual
	require.NoError(t, f.db.Where("seller_id = ?", seller.ID).First(&acc).Error)
	assert.Equal(t, int64(13*50), acc.CollectedCents)

	// A second run over the same window touches the same rows and changes
	// nothing.
	updated, err = f.svc.Reconcile(context.Background(), seller.ID, from, to)
	require.NoError(t, err)
	assert.Equal(t, 13, updated)
	assert.EqualValues(t, 13, countRows(t, f.db, &models.Transaction{}))
	require.NoError(t, f.db.Where("seller_id = ?", seller.ID).First(&acc).Error)
	assert.Equal(t, int64(13*50), acc.CollectedCents)
}

func TestReconcileSkipsUnsettledCharges(t *testing.T) {
	f := newLedgerFixture(t)
	seller := createUser(t, f.db, "seller@example.com", domain.RoleSeller, nil)
	link := createPayLink(t, f.db, seller.ID, 0, false)

	now := time.Now().UTC()
	meta := fees.ChargeMetadata{PayLinkID: link.ID, BaseCents: 150, MonthlyCents: 50}.Encode()
	f.stub.AddCharge(processor.Charge{
		ID:         "ch_settled",
		Amount:     1000,
		Paid:       true,
		OnBehalfOf: seller.ProcessorAccountID,
		Metadata:   meta,
		Created:    now.Unix(),
	})
	// The history also lists a charge the payer's bank declined. It carries
	// the pay-link reference but never settled.
	f.stub.AddCharge(processor.Charge{
		ID:          "ch_declined",
		Amount:      1000,
		Paid:        false,
		Status:      "failed",
		FailureCode: "card_declined",
		OnBehalfOf:  seller.ProcessorAccountID,
		Metadata:    meta,
		Created:     now.Unix(),
	})

	updated, err := f.svc.Reconcile(context.Background(), seller.ID, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	assert.EqualValues(t, 1, countRows(t, f.db, &models.Transaction{}))
	var tx models.Transaction
	assert.Error(t, f.db.Where("charge_id = ?", "ch_declined").First(&tx).Error, "declined charge never enters the ledger")

	var acc models.MonthlyFeeAccrual
	require.NoError(t, f.db.Where("seller_id = ?", seller.ID).First(&acc).Error)
	assert.Equal(t, int64(50), acc.CollectedCents, "only the settled charge accrues")
}

func TestRefundStoreErrorAbortsEvent(t *testing.T) {
	f := newLedgerFixture(t)
	// With the ledger table gone every lookup fails for a reason other than
	// not-found; the event must error out so the processor redelivers it.
	require.NoError(t, f.db.Migrator().DropTable(&models.Transaction{}))

	err := f.svc.ApplyChargeEvent(context.Background(), &processor.Event{
		ID:     "evt_1",
		Type:   domain.EventChargeRefunded,
		Charge: &processor.Charge{ID: "ch_1", Amount: 1000},
	})
	assert.Error(t, err)

	err = f.svc.ApplyChargeEvent(context.Background(), &processor.Event{
		ID:     "evt_2",
		Type:   domain.EventDisputeCreated,
		Charge: &processor.Charge{ID: "ch_1", Amount: 1000},
	})
	assert.Error(t, err)
}

func TestSettlementClaimedOnce(t *testing.T) {
	f := newLedgerFixture(t)
	repo := repository.NewTransactionRepository(f.db)
	tx := &models.Transaction{
		SellerID:        1,
		PaymentIntentID: strPtr("pi_1"),
		AmountCents:     1000,
		Status:          domain.TxRequiresAction,
	}
	require.NoError(t, f.db.Create(tx).Error)

	at := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	claimed, err := repo.ClaimSettlement(f.db, tx.ID, at)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.ClaimSettlement(f.db, tx.ID, at.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, claimed, "a second claim on a settled row finds nothing to stamp")
}

func TestReconcileRequiresConnectedAccount(t *testing.T) {
	f := newLedgerFixture(t)
	seller := &models.User{Email: "new@example.com", Role: domain.RoleSeller}
	require.NoError(t, f.db.Create(seller).Error)

	_, err := f.svc.Reconcile(context.Background(), seller.ID, time.Now().Add(-time.Hour), time.Now())
	assert.Error(t, err)
}
