package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/community_shop/internal/models"
)

func (r *GormRepo) CreateMedia(ctx context.Context, m *models.MediaAsset) error {
	return r.DB.WithContext(ctx).Create(m).Error
}

func (r *GormRepo) GetMedia(ctx context.Context, id uint) (*models.MediaAsset, error) {
	var m models.MediaAsset
	if err := r.DB.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *GormRepo) ListMedia(ctx context.Context) ([]models.MediaAsset, error) {
	var items []models.MediaAsset
	err := r.DB.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&items).Error
	return items, err
}

func (r *GormRepo) DeleteMedia(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.MediaAsset{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
