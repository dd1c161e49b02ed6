package service

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/Mandy9943/paylinksro-sub000/config"
	"github.com/Mandy9943/paylinksro-sub000/internal/models"
	"github.com/Mandy9943/paylinksro-sub000/internal/repository"
)

// NotificationService sends best-effort receipt emails to sellers when a
// charge settles. Delivery failures are the caller's problem to log, never
// to propagate into ledger writes.
type NotificationService struct {
	userRepo *repository.UserRepository
	cfg      *config.SMTPConfig
}

func NewNotificationService(userRepo *repository.UserRepository, cfg *config.SMTPConfig) *NotificationService {
	return &NotificationService{userRepo: userRepo, cfg: cfg}
}

func (s *NotificationService) enabled() bool {
	return s.cfg != nil && s.cfg.Host != ""
}

// SendReceipt emails the seller a settlement confirmation.
func (s *NotificationService) SendReceipt(sellerID uint, t *models.Transaction) error {
	if !s.enabled() {
		return nil
	}
	seller, err := s.userRepo.GetByID(sellerID)
	if err != nil {
		return fmt.Errorf("receipt: seller %d: %w", sellerID, err)
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", seller.Email)
	m.SetHeader("Subject", fmt.Sprintf("Payment received: %.2f %s", float64(t.AmountCents)/100, t.Currency))
	body := fmt.Sprintf(
		"You received a payment of %.2f %s.\n\nDescription: %s\nReceipt: %s\n",
		float64(t.AmountCents)/100, t.Currency, t.Description, t.ReceiptURL,
	)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	return d.DialAndSend(m)
}
