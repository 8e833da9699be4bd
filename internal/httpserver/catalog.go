package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/community_shop/internal/models"
	"github.com/Skotchmaster/community_shop/internal/service"
	"github.com/Skotchmaster/community_shop/internal/util"
	"github.com/Skotchmaster/community_shop/internal/web"
	"github.com/Skotchmaster/community_shop/pkg/logging"
)

type CatalogHTTP struct {
	Svc *service.CatalogService
}

func (h *CatalogHTTP) Storefront(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.storefront")

	items, err := h.Svc.ListAvailable(ctx)
	if err != nil {
		l.Error("storefront_failed", "status", http.StatusInternalServerError, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return render(c, items)
}

func (h *CatalogHTTP) Product(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.product")

	id, err := parseID(c)
	if err != nil {
		return fail(c, l, "get_product_failed", err, "/shop")
	}
	p, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(c, l, "get_product_failed", err, "/shop")
	}
	return render(c, p)
}

func (h *CatalogHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.search")

	page, size, offset, limit := pagination(c)
	total, items, err := h.Svc.Search(ctx, c.QueryParam("q"), offset, limit)
	if err != nil {
		return fail(c, l, "search_failed", err, "/shop")
	}
	if items == nil {
		items = []models.Product{}
	}
	return render(c, util.Page[models.Product]{Total: total, Page: page, Size: size, Items: items})
}

func (h *CatalogHTTP) AdminList(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.admin_list")

	page, size, offset, limit := pagination(c)
	total, items, err := h.Svc.ListAll(ctx, offset, limit)
	if err != nil {
		return fail(c, l, "list_products_failed", err, "/")
	}
	return render(c, util.Page[models.Product]{Total: total, Page: page, Size: size, Items: items})
}

func (h *CatalogHTTP) AdminGet(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.admin_get")

	id, err := parseID(c)
	if err != nil {
		return fail(c, l, "get_product_failed", err, "/admin/products")
	}
	p, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(c, l, "get_product_failed", err, "/admin/products")
	}
	return render(c, p)
}

func (h *CatalogHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.create")

	in, err := bindProduct(c)
	if err != nil {
		return fail(c, l, "create_product_failed", err, "/admin/products")
	}
	img, closeImg, err := formUpload(c, "image")
	if err != nil {
		return fail(c, l, "create_product_failed", err, "/admin/products")
	}
	defer closeImg()

	p, err := h.Svc.Create(ctx, in, img)
	if err != nil {
		return fail(c, l, "create_product_failed", err, "/admin/products")
	}

	l.Info("product_created", "status", http.StatusCreated, "product_id", p.ID)
	return web.Respond(c, http.StatusCreated, p, "product created", "/admin/products")
}

func (h *CatalogHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.update")

	id, err := parseID(c)
	if err != nil {
		return fail(c, l, "update_product_failed", err, "/admin/products")
	}
	back := "/admin/products/" + strconv.FormatUint(uint64(id), 10)

	in, err := bindProduct(c)
	if err != nil {
		return fail(c, l, "update_product_failed", err, back)
	}
	img, closeImg, err := formUpload(c, "image")
	if err != nil {
		return fail(c, l, "update_product_failed", err, back)
	}
	defer closeImg()

	p, err := h.Svc.Update(ctx, id, in, img)
	if err != nil {
		return fail(c, l, "update_product_failed", err, back)
	}

	l.Info("product_updated", "status", http.StatusOK, "product_id", p.ID)
	return web.Respond(c, http.StatusOK, p, "product updated", "/admin/products")
}

func (h *CatalogHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.delete")

	id, err := parseID(c)
	if err != nil {
		return fail(c, l, "delete_product_failed", err, "/admin/products")
	}
	if err := h.Svc.Delete(ctx, id); err != nil {
		return fail(c, l, "delete_product_failed", err, "/admin/products")
	}

	l.Info("product_deleted", "status", http.StatusOK, "product_id", id)
	return web.Respond(c, http.StatusOK, nil, "product deleted", "/admin/products")
}

func bindProduct(c echo.Context) (service.ProductInput, error) {
	var in service.ProductInput
	if isJSON(c) {
		if err := c.Bind(&in); err != nil {
			return in, validation("malformed request body")
		}
		return in, nil
	}

	in.Name = c.FormValue("name")
	in.Description = c.FormValue("description")

	price, err := decimal.NewFromString(strings.TrimSpace(c.FormValue("price")))
	if err != nil {
		return in, validation("price must be a number")
	}
	in.Price = price

	if in.Stock, err = optionalInt(c.FormValue("stock")); err != nil {
		return in, validation("stock must be a whole number")
	}
	if in.ExpectedStock, err = optionalInt(c.FormValue("expected_stock")); err != nil {
		return in, validation("expected_stock must be a whole number")
	}
	return in, nil
}

func optionalInt(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// formUpload returns nil when the field carries no file. The returned func closes the file.
func formUpload(c echo.Context, field string) (*service.Upload, func(), error) {
	noop := func() {}
	if isJSON(c) {
		return nil, noop, nil
	}

	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, fmt.Errorf("%w: %v", service.ErrValidation, err)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, noop, fmt.Errorf("open upload: %w", err)
	}
	return &service.Upload{Filename: fh.Filename, Reader: f}, func() { _ = f.Close() }, nil
}
