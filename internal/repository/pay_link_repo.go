package repository

import (
	"gorm.io/gorm"

	"github.com/Mandy9943/paylinksro-sub000/internal/models"
)

type PayLinkRepository struct {
	db *gorm.DB
}

func NewPayLinkRepository(db *gorm.DB) *PayLinkRepository {
	return &PayLinkRepository{db: db}
}

func (r *PayLinkRepository) Create(l *models.PayLink) error {
	return r.db.Create(l).Error
}

func (r *PayLinkRepository) GetByID(id uint) (*models.PayLink, error) {
	var l models.PayLink
	err := r.db.First(&l, id).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *PayLinkRepository) GetBySlug(slug string) (*models.PayLink, error) {
	var l models.PayLink
	err := r.db.Where("slug = ?", slug).First(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *PayLinkRepository) ListBySeller(sellerID uint, limit, offset int) ([]models.PayLink, error) {
	var list []models.PayLink
	err := r.db.Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, err
}
