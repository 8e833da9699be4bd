package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/community_shop/internal/models"
)

func (r *GormRepo) CreateOrder(ctx context.Context, o *models.Order) error {
	return r.DB.WithContext(ctx).Create(o).Error
}

func (r *GormRepo) OrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var o models.Order
	if err := r.DB.WithContext(ctx).Preload("Items").First(&o, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) OrderByPaymentSession(ctx context.Context, paymentSessionID string) (*models.Order, error) {
	var o models.Order
	if err := r.DB.WithContext(ctx).Preload("Items").
		Where("payment_session_id = ?", paymentSessionID).
		First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// CommitOrder decrements stock for every line, marks the order paid and clears the session cart,
// all in one transaction. Each decrement is guarded by stock >= quantity so concurrent commits
// cannot drive stock below zero; a failing guard rolls back every line.
// The returned bool is true when the order had already been paid.
func (r *GormRepo) CommitOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, bool, error) {
	var o models.Order
	alreadyPaid := false

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&o, "id = ?", orderID).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", o.ID).Order("id ASC").Find(&o.Items).Error; err != nil {
			return err
		}

		switch o.Status {
		case models.OrderStatusPaid:
			alreadyPaid = true
			return nil
		case models.OrderStatusPending:
		default:
			return ErrOrderClosed
		}

		for _, it := range o.Items {
			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock >= ?", it.ProductID, it.Quantity).
				UpdateColumn("stock", gorm.Expr("stock - ?", it.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				se := &StockError{ProductID: it.ProductID, Name: it.Name, Requested: it.Quantity}
				var p models.Product
				if err := tx.Select("stock").First(&p, it.ProductID).Error; err == nil {
					se.Available = p.Stock
				}
				return se
			}
		}

		now := time.Now().UTC()
		if err := tx.Model(&o).Updates(map[string]any{
			"status":  models.OrderStatusPaid,
			"paid_at": now,
		}).Error; err != nil {
			return err
		}
		o.Status = models.OrderStatusPaid
		o.PaidAt = &now

		return tx.Where("session_id = ?", o.SessionID).Delete(&models.CartItem{}).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &o, alreadyPaid, nil
}

// TransitionOrder moves an order from one status to another; false means the order was not in `from`.
func (r *GormRepo) TransitionOrder(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return res.RowsAffected > 0, res.Error
}

func (r *GormRepo) OrdersByUser(ctx context.Context, userID uint) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB.WithContext(ctx).Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}

func (r *GormRepo) ListOrders(ctx context.Context, offset, limit int) (int64, []models.Order, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Order{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var orders []models.Order
	if err := r.DB.WithContext(ctx).Preload("Items").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&orders).Error; err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}
