package httpserver

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/community_shop/internal/middleware/auth"
	"github.com/Skotchmaster/community_shop/internal/service"
	"github.com/Skotchmaster/community_shop/internal/web"
	"github.com/Skotchmaster/community_shop/pkg/logging"
)

type AuthHTTP struct {
	Svc          *service.AuthService
	CookieSecure bool
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type loginResponse struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	// AccessExp and RefreshExp are unix seconds.
	AccessExp  int64 `json:"access_exp"`
	RefreshExp int64 `json:"refresh_exp"`
}

func (h *AuthHTTP) RegisterForm(c echo.Context) error {
	return render(c, map[string]any{
		"fields": []string{"first_name", "last_name", "username", "email", "password", "confirm"},
	})
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var in service.RegisterInput
	if err := c.Bind(&in); err != nil {
		return fail(c, l, "register_failed", validation("malformed request body"), "/register")
	}

	u, err := h.Svc.Register(ctx, in)
	if err != nil {
		return fail(c, l, "register_failed", err, "/register")
	}

	l.Info("register_successful", "status", http.StatusCreated, "user_id", u.ID)
	return web.Respond(c, http.StatusCreated, u, "account created, you can log in now", "/login")
}

func (h *AuthHTTP) LoginForm(c echo.Context) error {
	return render(c, map[string]any{"fields": []string{"username", "password"}})
}

// LogOutForm only asks for confirmation; the session ends on POST /logout.
func (h *AuthHTTP) LogOutForm(c echo.Context) error {
	return render(c, map[string]any{"action": "/logout", "method": http.MethodPost})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, l, "login_failed", validation("malformed request body"), "/login")
	}
	req.Username = strings.TrimSpace(req.Username)

	res, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		return fail(c, l, "login_failed", err, "/login")
	}

	auth.SetSessionCookies(c, res, h.CookieSecure)
	l.Info("login_successful", "status", http.StatusOK, "user_id", res.User.ID)

	return web.Respond(c, http.StatusOK, loginResponse{
		UserID:     res.User.ID,
		Username:   res.User.Username,
		Role:       res.User.Role,
		AccessExp:  res.AccessExp.Unix(),
		RefreshExp: res.RefreshExp.Unix(),
	}, "welcome back, "+res.User.Username, "/shop")
}

func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	ident, err := identity(c)
	if err != nil {
		return err
	}
	if err := h.Svc.LogOut(ctx, ident.SessionID); err != nil {
		return fail(c, l, "logout_failed", err, "/")
	}

	auth.ClearSessionCookies(c, h.CookieSecure)
	l.Info("logout_successful", "status", http.StatusOK, "user_id", ident.UserID)
	return web.Respond(c, http.StatusOK, nil, "you have been logged out", "/login")
}
