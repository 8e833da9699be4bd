package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/community_shop/internal/service"
	"github.com/Skotchmaster/community_shop/internal/web"
	"github.com/Skotchmaster/community_shop/pkg/logging"
)

type MediaHTTP struct {
	Svc *service.MediaService
}

func (h *MediaHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "media.list")

	items, err := h.Svc.List(ctx)
	if err != nil {
		return fail(c, l, "list_media_failed", err, "/")
	}
	return render(c, items)
}

func (h *MediaHTTP) Upload(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "media.upload")

	ident, err := identity(c)
	if err != nil {
		return err
	}

	up, closeFile, err := formUpload(c, "file")
	if err != nil {
		return fail(c, l, "upload_failed", err, "/upload")
	}
	defer closeFile()
	if up == nil {
		return fail(c, l, "upload_failed", service.ErrEmptyUpload, "/upload")
	}

	m, err := h.Svc.Upload(ctx, ident.Username, *up)
	if err != nil {
		return fail(c, l, "upload_failed", err, "/upload")
	}

	l.Info("upload_successful", "status", http.StatusCreated, "media_id", m.ID, "kind", m.Kind)
	return web.Respond(c, http.StatusCreated, m, "file uploaded", "/upload")
}

func (h *MediaHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "media.delete")

	id, err := parseID(c)
	if err != nil {
		return fail(c, l, "delete_media_failed", err, "/upload")
	}
	if err := h.Svc.Delete(ctx, id); err != nil {
		return fail(c, l, "delete_media_failed", err, "/upload")
	}

	l.Info("media_deleted", "status", http.StatusOK, "media_id", id)
	return web.Respond(c, http.StatusOK, nil, "file deleted", "/upload")
}
