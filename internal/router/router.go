package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Mandy9943/paylinksro-sub000/config"
	"github.com/Mandy9943/paylinksro-sub000/internal/domain"
	"github.com/Mandy9943/paylinksro-sub000/internal/handler"
	"github.com/Mandy9943/paylinksro-sub000/internal/middleware"
	"github.com/Mandy9943/paylinksro-sub000/internal/repository"
	"github.com/Mandy9943/paylinksro-sub000/internal/service"
	"github.com/Mandy9943/paylinksro-sub000/pkg/processor"
)

// Setup wires repositories, services and handlers exactly once and returns
// the engine. Returns the affiliate service too so the caller can run the
// hold-release loop.
func Setup(cfg *config.Config, db *gorm.DB, proc processor.Client) (*gin.Engine, *service.AffiliateService) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// Repositories
	userRepo := repository.NewUserRepository(db)
	payLinkRepo := repository.NewPayLinkRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	accrualRepo := repository.NewAccrualRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	payoutRepo := repository.NewPayoutRepository(db)
	eventRepo := repository.NewWebhookEventRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// Services
	notifSvc := service.NewNotificationService(userRepo, &cfg.SMTP)
	ledgerSvc := service.NewLedgerService(db, txRepo, accrualRepo, commissionRepo, payLinkRepo, userRepo, eventRepo, auditRepo, proc, notifSvc, cfg)
	affiliateSvc := service.NewAffiliateService(db, commissionRepo, payoutRepo, userRepo, auditRepo, cfg)
	checkoutSvc := service.NewCheckoutService(payLinkRepo, userRepo, accrualRepo, proc, cfg)

	// Handlers
	webhookHandler := handler.NewWebhookHandler(ledgerSvc, cfg)
	checkoutHandler := handler.NewCheckoutHandler(checkoutSvc)
	affiliateHandler := handler.NewAffiliateHandler(affiliateSvc)
	sellerHandler := handler.NewSellerHandler(txRepo, payLinkRepo)
	adminHandler := handler.NewAdminHandler(affiliateSvc, ledgerSvc, auditRepo)

	authMw := middleware.AuthRequired(&cfg.JWT)
	limited := middleware.RateLimit(middleware.NewSlidingWindowLimiter(100, 60*time.Second))

	api := r.Group("/api/v1")
	{
		// Webhooks bypass the rate limiter so processor retries are
		// never dropped.
		api.POST("/webhooks/processor", webhookHandler.Handle)

		public := api.Group("", limited)
		{
			public.POST("/pay-links/:slug/checkout", checkoutHandler.Create)
		}

		me := api.Group("/me", limited, authMw)
		{
			me.GET("/summary", sellerHandler.GetSummary)
			me.GET("/transactions", sellerHandler.ListTransactions)
			me.GET("/fees/quote", checkoutHandler.Quote)
			me.POST("/pay-links", sellerHandler.CreatePayLink)
			me.GET("/pay-links", sellerHandler.ListPayLinks)

			affiliate := me.Group("/affiliate")
			{
				affiliate.GET("/balance", affiliateHandler.GetBalance)
				affiliate.GET("/commissions", affiliateHandler.ListCommissions)
				affiliate.GET("/referrals", affiliateHandler.ListReferrals)
				affiliate.GET("/payouts", affiliateHandler.ListPayouts)
				affiliate.POST("/payouts", affiliateHandler.RequestPayout)
			}
		}

		admin := api.Group("/admin", limited, authMw, middleware.RequireRole(domain.RoleAdmin))
		{
			admin.PATCH("/payouts/:id/status", adminHandler.SetPayoutStatus)
			admin.POST("/reconcile", adminHandler.Reconcile)
			admin.POST("/commissions/release", adminHandler.ReleaseCommissions)
			admin.GET("/audit", adminHandler.ListAuditLog)
		}
	}

	return r, affiliateSvc
}
