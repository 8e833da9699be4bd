package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/community_shop/internal/models"
)

func (r *GormRepo) CartItems(ctx context.Context, sessionID string) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.DB.WithContext(ctx).Where("session_id = ?", sessionID).Order("id ASC").Find(&items).Error
	return items, err
}

// AddToCart checks existing+qty against current stock inside the transaction and leaves the
// cart untouched when the check fails. When a concurrent first add for the same line wins the
// insert, the add is retried once and then updates that line.
func (r *GormRepo) AddToCart(ctx context.Context, sessionID string, userID, productID uint, qty int) (*models.CartItem, error) {
	item, err := r.addToCart(ctx, sessionID, userID, productID, qty)
	if IsUniqueViolation(err) {
		item, err = r.addToCart(ctx, sessionID, userID, productID, qty)
	}
	return item, err
}

func (r *GormRepo) addToCart(ctx context.Context, sessionID string, userID, productID uint, qty int) (*models.CartItem, error) {
	var item models.CartItem

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Product
		if err := tx.First(&p, productID).Error; err != nil {
			return err
		}

		existing := 0
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("session_id = ? AND product_id = ?", sessionID, productID).
			Take(&item).Error
		switch {
		case err == nil:
			existing = item.Quantity
		case errors.Is(err, gorm.ErrRecordNotFound):
			item = models.CartItem{SessionID: sessionID, UserID: userID, ProductID: productID}
		default:
			return err
		}

		if existing+qty > p.Stock {
			return &StockError{ProductID: p.ID, Name: p.Name, Available: p.Stock, Requested: existing + qty}
		}

		item.Quantity = existing + qty
		if item.ID == 0 {
			return tx.Create(&item).Error
		}
		return tx.Model(&item).Update("quantity", item.Quantity).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormRepo) SetCartQuantity(ctx context.Context, id uint, qty int) error {
	return r.DB.WithContext(ctx).Model(&models.CartItem{}).Where("id = ?", id).Update("quantity", qty).Error
}

func (r *GormRepo) DeleteCartItem(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Delete(&models.CartItem{}, id).Error
}

func (r *GormRepo) RemoveFromCart(ctx context.Context, sessionID string, productID uint) (bool, error) {
	res := r.DB.WithContext(ctx).
		Where("session_id = ? AND product_id = ?", sessionID, productID).
		Delete(&models.CartItem{})
	return res.RowsAffected > 0, res.Error
}

func (r *GormRepo) ClearCart(ctx context.Context, sessionID string) error {
	return r.DB.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&models.CartItem{}).Error
}
