package repository

import (
	"gorm.io/gorm"

	"github.com/Mandy9943/paylinksro-sub000/internal/models"
)

type PayoutRepository struct {
	db *gorm.DB
}

func NewPayoutRepository(db *gorm.DB) *PayoutRepository {
	return &PayoutRepository{db: db}
}

func (r *PayoutRepository) Create(tx *gorm.DB, p *models.Payout) error {
	return tx.Create(p).Error
}

func (r *PayoutRepository) CreateItems(tx *gorm.DB, items []models.PayoutItem) error {
	return tx.Create(&items).Error
}

func (r *PayoutRepository) GetByID(tx *gorm.DB, id uint) (*models.Payout, error) {
	var p models.Payout
	err := tx.Preload("Items").First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PayoutRepository) Update(tx *gorm.DB, p *models.Payout) error {
	return tx.Save(p).Error
}

func (r *PayoutRepository) ListByAffiliate(affiliateID uint, limit, offset int) ([]models.Payout, error) {
	var list []models.Payout
	err := r.db.Where("affiliate_id = ?", affiliateID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, err
}
