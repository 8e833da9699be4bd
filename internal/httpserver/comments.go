package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/community_shop/internal/service"
	"github.com/Skotchmaster/community_shop/internal/web"
	"github.com/Skotchmaster/community_shop/pkg/logging"
)

type CommentHTTP struct {
	Svc *service.CommentService
}

func (h *CommentHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "comments.list")

	items, err := h.Svc.List(ctx)
	if err != nil {
		return fail(c, l, "list_comments_failed", err, "/")
	}
	return render(c, items)
}

func (h *CommentHTTP) Post(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "comments.post")

	ident, err := identity(c)
	if err != nil {
		return err
	}

	var req struct {
		Body string `json:"body" form:"body"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, l, "post_comment_failed", validation("malformed request body"), "/comments")
	}

	cm, err := h.Svc.Post(ctx, ident.Username, req.Body)
	if err != nil {
		return fail(c, l, "post_comment_failed", err, "/comments")
	}

	l.Info("comment_posted", "status", http.StatusCreated, "comment_id", cm.ID)
	return web.Respond(c, http.StatusCreated, cm, "comment posted", "/comments")
}

func (h *CommentHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "comments.delete")

	id, err := parseID(c)
	if err != nil {
		return fail(c, l, "delete_comment_failed", err, "/comments")
	}
	if err := h.Svc.Delete(ctx, id); err != nil {
		return fail(c, l, "delete_comment_failed", err, "/comments")
	}

	l.Info("comment_deleted", "status", http.StatusOK, "comment_id", id)
	return web.Respond(c, http.StatusOK, nil, "comment deleted", "/comments")
}
