package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Mandy9943/paylinksro-sub000/config"
	"github.com/Mandy9943/paylinksro-sub000/internal/domain"
	"github.com/Mandy9943/paylinksro-sub000/internal/models"
	"github.com/Mandy9943/paylinksro-sub000/internal/repository"
	"github.com/Mandy9943/paylinksro-sub000/pkg/processor"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.PayLink{},
		&models.Transaction{},
		&models.MonthlyFeeAccrual{},
		&models.Commission{},
		&models.Payout{},
		&models.PayoutItem{},
		&models.WebhookEvent{},
		&models.AuditLog{},
	))
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Fees: config.FeesConfig{
			PercentRate:       0.05,
			FixedLowCents:     100,
			FixedHighCents:    200,
			LowThresholdCents: 10000,
			MonthlyCapCents:   1000,
			VATRate:           0.21,
		},
		Affiliate: config.AffiliateConfig{
			CommissionPercent:  0.10,
			HoldPeriod:         30 * 24 * time.Hour,
			MinWithdrawalCents: 5000,
		},
		Processor: config.ProcessorConfig{
			PageSize: 10,
			MaxPages: 5,
		},
	}
}

type ledgerFixture struct {
	db   *gorm.DB
	cfg  *config.Config
	stub *processor.Stub
	svc  *LedgerService
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	db := newTestDB(t)
	cfg := testConfig()
	stub := processor.NewStub()
	userRepo := repository.NewUserRepository(db)
	svc := NewLedgerService(
		db,
		repository.NewTransactionRepository(db),
		repository.NewAccrualRepository(db),
		repository.NewCommissionRepository(db),
		repository.NewPayLinkRepository(db),
		userRepo,
		repository.NewWebhookEventRepository(db),
		repository.NewAuditLogRepository(db),
		stub,
		NewNotificationService(userRepo, &cfg.SMTP),
		cfg,
	)
	return &ledgerFixture{db: db, cfg: cfg, stub: stub, svc: svc}
}

func createUser(t *testing.T, db *gorm.DB, email, role string, referredBy *uint) *models.User {
	t.Helper()
	u := &models.User{
		Email:              email,
		Role:               role,
		ProcessorAccountID: "acct_" + email,
		ReferredByID:       referredBy,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func createPayLink(t *testing.T, db *gorm.DB, sellerID uint, amountCents int64, vat bool) *models.PayLink {
	t.Helper()
	l := &models.PayLink{
		SellerID:    sellerID,
		Slug:        fmt.Sprintf("link-%d-%d", sellerID, amountCents),
		Title:       "Consulting",
		AmountCents: amountCents,
		Currency:    "RON",
		VATEnabled:  vat,
		Active:      true,
	}
	require.NoError(t, db.Create(l).Error)
	return l
}

func chargeEvent(id string, ch processor.Charge) *processor.Event {
	return &processor.Event{ID: id, Type: domain.EventChargeSucceeded, Charge: &ch}
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
