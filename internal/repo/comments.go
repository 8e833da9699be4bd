package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/community_shop/internal/models"
)

func (r *GormRepo) CreateComment(ctx context.Context, c *models.Comment) error {
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *GormRepo) ListComments(ctx context.Context) ([]models.Comment, error) {
	var items []models.Comment
	err := r.DB.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&items).Error
	return items, err
}

func (r *GormRepo) DeleteComment(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.Comment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
