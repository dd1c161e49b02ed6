package database

import (
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Mandy9943/paylinksro-sub000/config"
	"github.com/Mandy9943/paylinksro-sub000/internal/domain"
	"github.com/Mandy9943/paylinksro-sub000/internal/models"
	"github.com/Mandy9943/paylinksro-sub000/internal/repository"
)

func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// AutoMigrate runs Gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.PayLink{},
		&models.Transaction{},
		&models.MonthlyFeeAccrual{},
		&models.Commission{},
		&models.Payout{},
		&models.PayoutItem{},
		&models.WebhookEvent{},
		&models.AuditLog{},
	)
}

const operatorEmail = "ops@paylinks.ro"

// SeedAdmin creates the initial operator account when none exists.
func SeedAdmin(db *gorm.DB) {
	users := repository.NewUserRepository(db)
	if _, err := users.GetByEmail(operatorEmail); err == nil {
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("change-me-on-first-login"), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[Seed] bcrypt: %v", err)
		return
	}
	admin := &models.User{
		Email:        operatorEmail,
		Name:         "Operator",
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
	}
	if err := users.Create(admin); err != nil {
		log.Printf("[Seed] admin: %v", err)
		return
	}
	log.Printf("[Seed] created operator account %s", admin.Email)
}
