package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Fees      FeesConfig
	Affiliate AffiliateConfig
	Processor ProcessorConfig
	SMTP      SMTPConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret string
	AccessExpiry time.Duration
	Issuer       string
}

// FeesConfig holds the platform-wide fee constants. All amounts are minor
// units (bani). The base fee is a percent of the charge plus a fixed
// component picked by the low-amount threshold; the monthly platform fee is
// collected opportunistically from charges until MonthlyCapCents is reached.
type FeesConfig struct {
	PercentRate       float64
	FixedLowCents     int64
	FixedHighCents    int64
	LowThresholdCents int64
	MonthlyCapCents   int64
	VATRate           float64
}

type AffiliateConfig struct {
	CommissionPercent  float64
	HoldPeriod         time.Duration
	MinWithdrawalCents int64
}

type ProcessorConfig struct {
	BaseURL       string
	SecretKey     string
	WebhookSecret string
	PageSize      int
	MaxPages      int
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("[Config] no .env file, using environment and defaults")
	}
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8088"),
			Env:          getEnv("APP_ENV", "development"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             getEnv("DATABASE_DSN", "paylinks:paylinks@tcp(localhost:3306)/paylinks?charset=utf8mb4&parseTime=True&loc=UTC"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret: getEnv("JWT_ACCESS_SECRET", "change-me-in-production"),
			AccessExpiry: 15 * time.Minute,
			Issuer:       "paylinks",
		},
		Fees: FeesConfig{
			PercentRate:       getEnvFloat("FEE_PERCENT_RATE", 0.01),
			FixedLowCents:     getEnvInt64("FEE_FIXED_LOW_CENTS", 100),
			FixedHighCents:    getEnvInt64("FEE_FIXED_HIGH_CENTS", 200),
			LowThresholdCents: getEnvInt64("FEE_LOW_THRESHOLD_CENTS", 10000),
			MonthlyCapCents:   getEnvInt64("FEE_MONTHLY_CAP_CENTS", 4900),
			VATRate:           getEnvFloat("VAT_RATE", 0.21),
		},
		Affiliate: AffiliateConfig{
			CommissionPercent:  getEnvFloat("AFFILIATE_COMMISSION_PERCENT", 0.10),
			HoldPeriod:         time.Duration(getEnvInt64("AFFILIATE_HOLD_DAYS", 30)) * 24 * time.Hour,
			MinWithdrawalCents: getEnvInt64("AFFILIATE_MIN_WITHDRAWAL_CENTS", 5000),
		},
		Processor: ProcessorConfig{
			BaseURL:       getEnv("PROCESSOR_BASE_URL", "https://api.processor.example"),
			SecretKey:     getEnv("PROCESSOR_SECRET_KEY", ""),
			WebhookSecret: getEnv("PROCESSOR_WEBHOOK_SECRET", ""),
			PageSize:      100,
			MaxPages:      int(getEnvInt64("PROCESSOR_MAX_RECONCILE_PAGES", 50)),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     int(getEnvInt64("SMTP_PORT", 587)),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "receipts@paylinks.ro"),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
