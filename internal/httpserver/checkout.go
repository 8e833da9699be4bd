package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/community_shop/internal/models"
	"github.com/Skotchmaster/community_shop/internal/service"
	"github.com/Skotchmaster/community_shop/internal/util"
	"github.com/Skotchmaster/community_shop/internal/web"
	"github.com/Skotchmaster/community_shop/pkg/logging"
)

type CheckoutHTTP struct {
	Svc *service.CheckoutService
}

func (h *CheckoutHTTP) Begin(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.begin")

	ident, err := identity(c)
	if err != nil {
		return err
	}

	cs, err := h.Svc.Begin(ctx, ident)
	if err != nil {
		return fail(c, l, "checkout_begin_failed", err, "/cart")
	}

	l.Info("checkout_redirect", "status", http.StatusSeeOther, "order_id", cs.OrderID)
	if web.WantsHTML(c) {
		return c.Redirect(http.StatusSeeOther, cs.RedirectURL)
	}
	return c.JSON(http.StatusCreated, cs)
}

func (h *CheckoutHTTP) Success(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.success")

	ident, err := identity(c)
	if err != nil {
		return err
	}

	order, err := h.Svc.Complete(ctx, ident, c.QueryParam("session_id"))
	if err != nil {
		return fail(c, l, "checkout_complete_failed", err, "/cart")
	}

	l.Info("checkout_completed", "status", http.StatusOK, "order_id", order.ID)
	return web.Respond(c, http.StatusOK, order, "payment received, thank you for your order", "/orders")
}

func (h *CheckoutHTTP) Cancel(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.cancel")

	ident, err := identity(c)
	if err != nil {
		return err
	}

	if err := h.Svc.Cancel(ctx, ident, c.QueryParam("order_id")); err != nil {
		return fail(c, l, "checkout_cancel_failed", err, "/cart")
	}

	l.Info("checkout_cancelled", "status", http.StatusOK)
	return web.Respond(c, http.StatusOK, nil, "checkout cancelled, your cart is unchanged and you can try again", "/cart")
}

func (h *CheckoutHTTP) Orders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.orders")

	ident, err := identity(c)
	if err != nil {
		return err
	}

	orders, err := h.Svc.ListOrders(ctx, ident.UserID)
	if err != nil {
		return fail(c, l, "list_orders_failed", err, "/")
	}
	return render(c, orders)
}

func (h *CheckoutHTTP) AdminOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.admin_orders")

	page, size, offset, limit := pagination(c)
	total, orders, err := h.Svc.ListAllOrders(ctx, offset, limit)
	if err != nil {
		return fail(c, l, "list_orders_failed", err, "/")
	}
	return render(c, util.Page[models.Order]{Total: total, Page: page, Size: size, Items: orders})
}
