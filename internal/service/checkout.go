package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/community_shop/internal/events"
	"github.com/Skotchmaster/community_shop/internal/models"
	"github.com/Skotchmaster/community_shop/internal/payment"
	"github.com/Skotchmaster/community_shop/internal/repo"
	"github.com/Skotchmaster/community_shop/pkg/logging"
)

type CheckoutService struct {
	Repo      *repo.GormRepo
	Gateway   payment.Gateway
	Catalog   *CatalogService
	Events    events.Publisher
	PublicURL string
	Currency  string
}

type CheckoutSession struct {
	OrderID     uuid.UUID `json:"order_id"`
	RedirectURL string    `json:"redirect_url"`
}

func minorUnits(price decimal.Decimal) int64 {
	return price.Shift(2).Round(0).IntPart()
}

// Begin snapshots the cart into a pending order and opens a hosted payment session for it.
// Stock is not touched here; it is committed only once the payment is confirmed.
func (s *CheckoutService) Begin(ctx context.Context, ident Identity) (*CheckoutSession, error) {
	l := logging.FromContext(ctx).With("svc", "checkout.begin", "user_id", ident.UserID)

	items, err := s.Repo.CartItems(ctx, ident.SessionID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		checkoutTotal.WithLabelValues("empty_cart").Inc()
		return nil, validationf("cart is empty")
	}

	ids := make([]uint, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.Repo.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:        uuid.New(),
		UserID:    ident.UserID,
		SessionID: ident.SessionID,
		Status:    models.OrderStatusPending,
		Total:     decimal.Zero,
		Currency:  s.Currency,
	}
	lines := make([]payment.LineItem, 0, len(items))
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			checkoutTotal.WithLabelValues("stock_conflict").Inc()
			return nil, fmt.Errorf("%w: a product in your cart is no longer available", ErrStockConflict)
		}
		if it.Quantity > p.Stock {
			checkoutTotal.WithLabelValues("stock_conflict").Inc()
			return nil, fmt.Errorf("%w: only %d of %s left", ErrStockConflict, p.Stock, p.Name)
		}

		lineTotal := p.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		order.Items = append(order.Items, models.OrderItem{
			OrderID:   order.ID,
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  it.Quantity,
			LineTotal: lineTotal,
		})
		order.Total = order.Total.Add(lineTotal)
		lines = append(lines, payment.LineItem{
			Name:       p.Name,
			UnitAmount: minorUnits(p.Price),
			Quantity:   int64(it.Quantity),
		})
	}

	email := ""
	if u, err := s.Repo.UserByID(ctx, ident.UserID); err == nil {
		email = u.Email
	}

	base := strings.TrimRight(s.PublicURL, "/")
	sess, err := s.Gateway.CreateSession(ctx, payment.SessionRequest{
		ClientReference: order.ID.String(),
		Currency:        s.Currency,
		CustomerEmail:   email,
		SuccessURL:      base + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:       base + "/checkout/cancel?order_id=" + url.QueryEscape(order.ID.String()),
		Items:           lines,
	})
	if err != nil {
		checkoutTotal.WithLabelValues("gateway_error").Inc()
		l.Error("payment_session_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrExternalPayment, err)
	}

	order.PaymentSessionID = sess.ID
	if err := s.Repo.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	checkoutTotal.WithLabelValues("started").Inc()
	l.Info("checkout_started", "order_id", order.ID, "total", order.Total.StringFixed(2))
	publish(ctx, s.Events, events.TopicOrders, order.ID.String(), "order_created", map[string]any{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"total":    order.Total,
		"currency": order.Currency,
	})

	return &CheckoutSession{OrderID: order.ID, RedirectURL: sess.URL}, nil
}

// Complete confirms the payment with the provider and commits the order. Calling it again for a
// paid order is a no-op that returns the order.
func (s *CheckoutService) Complete(ctx context.Context, ident Identity, paymentSessionID string) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "checkout.complete", "user_id", ident.UserID)

	paymentSessionID = strings.TrimSpace(paymentSessionID)
	if paymentSessionID == "" {
		return nil, validationf("missing payment session id")
	}

	order, err := s.Repo.OrderByPaymentSession(ctx, paymentSessionID)
	if err != nil {
		return nil, notFound(err, "order")
	}
	if order.UserID != ident.UserID {
		l.Warn("checkout_foreign_order", "order_id", order.ID)
		return nil, ErrPermissionDenied
	}
	if order.Status == models.OrderStatusPaid {
		return order, nil
	}

	sess, err := s.Gateway.RetrieveSession(ctx, paymentSessionID)
	if err != nil {
		checkoutTotal.WithLabelValues("gateway_error").Inc()
		l.Error("payment_lookup_failed", "order_id", order.ID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrExternalPayment, err)
	}
	if sess.ClientReference != order.ID.String() {
		l.Warn("payment_reference_mismatch", "order_id", order.ID, "reference", sess.ClientReference)
		return nil, ErrPermissionDenied
	}
	if !sess.Paid {
		checkoutTotal.WithLabelValues("unpaid").Inc()
		return nil, fmt.Errorf("%w: payment has not been completed", ErrExternalPayment)
	}

	committed, alreadyPaid, err := s.Repo.CommitOrder(ctx, order.ID)
	if err != nil {
		var se *repo.StockError
		switch {
		case errors.As(err, &se):
			checkoutTotal.WithLabelValues("stock_conflict").Inc()
			l.Error("paid_order_stock_conflict", "order_id", order.ID, "product_id", se.ProductID,
				"requested", se.Requested, "available", se.Available)
			return nil, fmt.Errorf("%w: only %d of %s left", ErrStockConflict, se.Available, se.Name)
		case errors.Is(err, repo.ErrOrderClosed):
			return nil, validationf("order is no longer pending")
		}
		return nil, err
	}
	if alreadyPaid {
		return committed, nil
	}

	ids := make([]uint, 0, len(committed.Items))
	for _, it := range committed.Items {
		ids = append(ids, it.ProductID)
	}
	if s.Catalog != nil {
		s.Catalog.StockChanged(ctx, ids)
	}

	checkoutTotal.WithLabelValues("paid").Inc()
	l.Info("order_paid", "order_id", committed.ID, "total", committed.Total.StringFixed(2))
	publish(ctx, s.Events, events.TopicOrders, committed.ID.String(), "order_paid", map[string]any{
		"order_id": committed.ID,
		"user_id":  committed.UserID,
		"total":    committed.Total,
	})
	return committed, nil
}

// Cancel abandons a pending order. The cart is left as it was so the user can retry.
func (s *CheckoutService) Cancel(ctx context.Context, ident Identity, orderID string) error {
	id, err := uuid.Parse(strings.TrimSpace(orderID))
	if err != nil {
		return validationf("invalid order id")
	}

	order, err := s.Repo.OrderByID(ctx, id)
	if err != nil {
		return notFound(err, "order")
	}
	if order.UserID != ident.UserID {
		return ErrPermissionDenied
	}

	switch order.Status {
	case models.OrderStatusCancelled:
		return nil
	case models.OrderStatusPaid:
		return validationf("order is already paid")
	}

	ok, err := s.Repo.TransitionOrder(ctx, id, models.OrderStatusPending, models.OrderStatusCancelled)
	if err != nil {
		return err
	}
	if !ok {
		return validationf("order is no longer pending")
	}

	checkoutTotal.WithLabelValues("cancelled").Inc()
	publish(ctx, s.Events, events.TopicOrders, id.String(), "order_cancelled", map[string]any{
		"order_id": id,
		"user_id":  ident.UserID,
	})
	return nil
}

func (s *CheckoutService) ListOrders(ctx context.Context, userID uint) ([]models.Order, error) {
	return s.Repo.OrdersByUser(ctx, userID)
}

func (s *CheckoutService) ListAllOrders(ctx context.Context, offset, limit int) (int64, []models.Order, error) {
	return s.Repo.ListOrders(ctx, offset, limit)
}
