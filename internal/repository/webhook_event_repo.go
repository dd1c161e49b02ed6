package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Mandy9943/paylinksro-sub000/internal/models"
)

type WebhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// Record stores a received event, ignoring redeliveries of the same
// provider event id.
func (r *WebhookEventRepository) Record(ev *models.WebhookEvent) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(ev).Error
}

// MarkProcessed stamps the processing outcome on the stored event.
func (r *WebhookEventRepository) MarkProcessed(provider, providerEventID string, processingErr error) error {
	now := time.Now()
	updates := map[string]interface{}{"processed_at": &now}
	if processingErr != nil {
		updates["processing_error"] = processingErr.Error()
	}
	return r.db.Model(&models.WebhookEvent{}).
		Where("provider = ? AND provider_event_id = ?", provider, providerEventID).
		Updates(updates).Error
}
