package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/community_shop/internal/service"
	"github.com/Skotchmaster/community_shop/internal/web"
	"github.com/Skotchmaster/community_shop/pkg/logging"
)

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) View(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.view")

	ident, err := identity(c)
	if err != nil {
		return err
	}

	view, err := h.Svc.View(ctx, ident.SessionID)
	if err != nil {
		return fail(c, l, "view_cart_failed", err, "/shop")
	}
	for _, w := range view.Warnings {
		web.AddFlash(c, web.LevelWarning, w)
	}
	return render(c, view)
}

func (h *CartHTTP) Add(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	ident, err := identity(c)
	if err != nil {
		return err
	}
	productID, err := parseID(c)
	if err != nil {
		return fail(c, l, "add_to_cart_failed", err, "/shop")
	}

	qty := 1
	if raw := strings.TrimSpace(c.FormValue("quantity")); raw != "" {
		qty, err = strconv.Atoi(raw)
		if err != nil {
			return fail(c, l, "add_to_cart_failed", validation("quantity must be a whole number"), "/shop")
		}
	}

	if err := h.Svc.Add(ctx, ident, productID, qty); err != nil {
		return fail(c, l, "add_to_cart_failed", err, "/shop")
	}

	l.Info("item_added_to_cart", "status", http.StatusOK, "product_id", productID, "quantity", qty)
	return web.Respond(c, http.StatusOK, nil, "added to your cart", "/shop")
}

func (h *CartHTTP) Remove(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove")

	ident, err := identity(c)
	if err != nil {
		return err
	}
	productID, err := parseID(c)
	if err != nil {
		return fail(c, l, "remove_from_cart_failed", err, "/cart")
	}

	removed, err := h.Svc.Remove(ctx, ident, productID)
	if err != nil {
		return fail(c, l, "remove_from_cart_failed", err, "/cart")
	}
	if !removed {
		if web.WantsHTML(c) {
			return web.Redirect(c, web.LevelInfo, "that product was not in your cart", "/cart")
		}
		return c.JSON(http.StatusOK, map[string]any{"removed": false, "message": "that product was not in your cart"})
	}

	return web.Respond(c, http.StatusOK, map[string]any{"removed": true}, "removed from your cart", "/cart")
}
