package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/community_shop/internal/models"
)

var ErrRefreshRejected = errors.New("refresh token expired, revoked or unknown")

func (r *GormRepo) CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Create(t).Error
}

// RotateRefreshToken revokes the presented token and stores its successor in one transaction.
func (r *GormRepo) RotateRefreshToken(ctx context.Context, oldJTI, oldHash string, next *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.RefreshToken
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("jti = ?", oldJTI).First(&current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRefreshRejected
		}
		if err != nil {
			return err
		}
		if current.Revoked || current.TokenHash != oldHash || current.ExpiresAt < time.Now().Unix() {
			return ErrRefreshRejected
		}
		if current.SessionID != next.SessionID || current.UserID != next.UserID {
			return ErrRefreshRejected
		}

		if err := tx.Model(&current).Update("revoked", true).Error; err != nil {
			return err
		}
		return tx.Create(next).Error
	})
}

func (r *GormRepo) RevokeSession(ctx context.Context, sessionID string) error {
	return r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("session_id = ? AND revoked = ?", sessionID, false).
		Update("revoked", true).Error
}
