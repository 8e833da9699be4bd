package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/community_shop/internal/events"
	"github.com/Skotchmaster/community_shop/internal/repo"
	"github.com/Skotchmaster/community_shop/pkg/logging"
)

type CartService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

type CartLine struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	ImagePath string          `json:"image_path,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type CartView struct {
	Lines    []CartLine      `json:"lines"`
	Total    decimal.Decimal `json:"total"`
	Warnings []string        `json:"warnings,omitempty"`
}

func (s *CartService) Add(ctx context.Context, ident Identity, productID uint, qty int) error {
	if qty < 1 {
		return validationf("quantity must be at least 1")
	}

	item, err := s.Repo.AddToCart(ctx, ident.SessionID, ident.UserID, productID, qty)
	if err != nil {
		var se *repo.StockError
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("product: %w", ErrNotFound)
		case errors.As(err, &se):
			return fmt.Errorf("%w: %s, only %d available", ErrInsufficientStock, se.Name, se.Available)
		}
		return err
	}

	publish(ctx, s.Events, events.TopicCart, ident.SessionID, "cart_item_added", map[string]any{
		"user_id":    ident.UserID,
		"product_id": productID,
		"quantity":   item.Quantity,
	})
	return nil
}

// View reconciles the stored cart with current stock: quantities above stock are clamped
// and entries for vanished or sold-out products are dropped, each with a warning.
func (s *CartService) View(ctx context.Context, sessionID string) (*CartView, error) {
	l := logging.FromContext(ctx).With("op", "cart.view")

	items, err := s.Repo.CartItems(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.Repo.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	view := &CartView{Lines: []CartLine{}, Total: decimal.Zero}
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok || p.Stock <= 0 {
			if err := s.Repo.DeleteCartItem(ctx, it.ID); err != nil {
				return nil, err
			}
			name := "a product"
			if ok {
				name = p.Name
			}
			view.Warnings = append(view.Warnings, fmt.Sprintf("%s is no longer available and was removed from your cart", name))
			l.Info("cart_line_dropped", "product_id", it.ProductID)
			continue
		}

		qty := it.Quantity
		if qty > p.Stock {
			qty = p.Stock
			if err := s.Repo.SetCartQuantity(ctx, it.ID, qty); err != nil {
				return nil, err
			}
			view.Warnings = append(view.Warnings, fmt.Sprintf("only %d of %s left, quantity adjusted", qty, p.Name))
			l.Info("cart_line_clamped", "product_id", p.ID, "from", it.Quantity, "to", qty)
		}

		sub := p.Price.Mul(decimal.NewFromInt(int64(qty)))
		view.Lines = append(view.Lines, CartLine{
			ProductID: p.ID,
			Name:      p.Name,
			ImagePath: p.ImagePath,
			UnitPrice: p.Price,
			Quantity:  qty,
			Subtotal:  sub,
		})
		view.Total = view.Total.Add(sub)
	}
	return view, nil
}

func (s *CartService) Remove(ctx context.Context, ident Identity, productID uint) (bool, error) {
	removed, err := s.Repo.RemoveFromCart(ctx, ident.SessionID, productID)
	if err != nil {
		return false, err
	}
	if removed {
		publish(ctx, s.Events, events.TopicCart, ident.SessionID, "cart_item_removed", map[string]any{
			"user_id":    ident.UserID,
			"product_id": productID,
		})
	}
	return removed, nil
}

func (s *CartService) Clear(ctx context.Context, sessionID string) error {
	return s.Repo.ClearCart(ctx, sessionID)
}
