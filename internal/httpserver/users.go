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

type UserHTTP struct {
	Svc *service.AuthService
}

func (h *UserHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.list")

	page, size, offset, limit := pagination(c)
	total, items, err := h.Svc.ListUsers(ctx, offset, limit)
	if err != nil {
		return fail(c, l, "list_users_failed", err, "/")
	}
	return render(c, util.Page[models.User]{Total: total, Page: page, Size: size, Items: items})
}

func (h *UserHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.update")

	id, err := parseID(c)
	if err != nil {
		return fail(c, l, "update_user_failed", err, "/admin/users")
	}

	patch, err := bindUserPatch(c)
	if err != nil {
		return fail(c, l, "update_user_failed", err, "/admin/users")
	}

	u, err := h.Svc.UpdateUser(ctx, id, patch)
	if err != nil {
		return fail(c, l, "update_user_failed", err, "/admin/users")
	}

	l.Info("user_updated", "status", http.StatusOK, "user_id", u.ID)
	return web.Respond(c, http.StatusOK, u, "user updated", "/admin/users")
}

func (h *UserHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.delete")

	id, err := parseID(c)
	if err != nil {
		return fail(c, l, "delete_user_failed", err, "/admin/users")
	}
	ident, err := identity(c)
	if err != nil {
		return err
	}
	if id == ident.UserID {
		return fail(c, l, "delete_user_failed", validation("you cannot delete your own account"), "/admin/users")
	}

	if err := h.Svc.DeleteUser(ctx, id); err != nil {
		return fail(c, l, "delete_user_failed", err, "/admin/users")
	}

	l.Info("user_deleted", "status", http.StatusOK, "user_id", id)
	return web.Respond(c, http.StatusOK, nil, "user deleted", "/admin/users")
}

// bindUserPatch distinguishes absent fields (nil) from submitted ones for both JSON and forms.
func bindUserPatch(c echo.Context) (service.UserPatch, error) {
	var patch service.UserPatch
	if isJSON(c) {
		if err := c.Bind(&patch); err != nil {
			return patch, validation("malformed request body")
		}
		return patch, nil
	}

	form, err := c.FormParams()
	if err != nil {
		return patch, validation("malformed form")
	}
	field := func(name string) *string {
		if _, ok := form[name]; !ok {
			return nil
		}
		v := form.Get(name)
		return &v
	}
	patch.FirstName = field("first_name")
	patch.LastName = field("last_name")
	patch.Username = field("username")
	patch.Email = field("email")
	patch.Role = field("role")
	return patch, nil
}
