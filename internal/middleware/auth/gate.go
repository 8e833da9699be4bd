package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/community_shop/internal/models"
	"github.com/Skotchmaster/community_shop/internal/service"
	"github.com/Skotchmaster/community_shop/internal/web"
	"github.com/Skotchmaster/community_shop/pkg/logging"
	"github.com/Skotchmaster/community_shop/pkg/tokens"
)

const identityKey = "identity"

var (
	errNoSession     = errors.New("no session")
	errBadToken      = errors.New("invalid access token")
	errRefreshFailed = errors.New("session refresh failed")
	errNoAccount     = errors.New("account no longer exists")
)

type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*service.LoginResult, error)
}

type UserLookup interface {
	UserByID(ctx context.Context, id uint) (*models.User, error)
}

// Gate guards routes with the access token cookie. An expired or missing access token is
// replaced transparently when a valid refresh token cookie is present. With Users set, role and
// username come from the stored account, so demoted or deleted users lose access immediately.
type Gate struct {
	AccessSecret []byte
	Refresher    Refresher
	Users        UserLookup
	CookieSecure bool
}

func (g *Gate) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return g.require(next, "")
}

func (g *Gate) RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return g.require(next, role)
	}
}

func (g *Gate) require(next echo.HandlerFunc, role string) echo.HandlerFunc {
	return func(c echo.Context) error {
		l := logging.FromContext(c.Request().Context()).With("middleware", "auth.gate")

		ident, err := g.identify(c)
		if err == nil {
			ident, err = g.current(c.Request().Context(), ident)
			switch {
			case errors.Is(err, errNoAccount):
				g.clearCookies(c)
			case err != nil:
				l.Error("identity_lookup_failed", "status", http.StatusInternalServerError, "error", err)
				return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
			}
		}
		if err != nil {
			l.Info("access_denied", "status", http.StatusUnauthorized, "reason", err.Error())
			return deny(c, http.StatusUnauthorized, "please log in to continue", "/login")
		}
		if role != "" && ident.Role != role {
			l.Warn("access_denied", "status", http.StatusForbidden, "reason", "role", "user_id", ident.UserID, "required", role)
			return deny(c, http.StatusForbidden, "you do not have permission to do that", "/")
		}

		c.Set(identityKey, ident)
		req := c.Request()
		c.SetRequest(req.WithContext(logging.IntoContext(req.Context(),
			logging.FromContext(req.Context()).With("user_id", ident.UserID))))
		return next(c)
	}
}

func (g *Gate) identify(c echo.Context) (service.Identity, error) {
	if ck, err := c.Cookie(tokens.AccessCookie); err == nil && ck.Value != "" {
		claims, err := tokens.AccessClaimsFromToken(ck.Value, g.AccessSecret)
		if err == nil {
			return identityFromClaims(claims)
		}
		if !errors.Is(err, jwt.ErrTokenExpired) {
			g.clearCookies(c)
			return service.Identity{}, errBadToken
		}
	}

	rc, err := c.Cookie(tokens.RefreshCookie)
	if err != nil || rc.Value == "" {
		return service.Identity{}, errNoSession
	}
	if g.Refresher == nil {
		return service.Identity{}, errRefreshFailed
	}

	res, err := g.Refresher.Refresh(c.Request().Context(), rc.Value)
	if err != nil {
		g.clearCookies(c)
		return service.Identity{}, errRefreshFailed
	}
	SetSessionCookies(c, res, g.CookieSecure)

	claims, err := tokens.AccessClaimsFromToken(res.AccessToken, g.AccessSecret)
	if err != nil {
		g.clearCookies(c)
		return service.Identity{}, errBadToken
	}
	logging.FromContext(c.Request().Context()).Debug("session_refreshed", "session_id", res.SessionID)
	return identityFromClaims(claims)
}

func (g *Gate) current(ctx context.Context, ident service.Identity) (service.Identity, error) {
	if g.Users == nil {
		return ident, nil
	}
	u, err := g.Users.UserByID(ctx, ident.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return service.Identity{}, errNoAccount
	}
	if err != nil {
		return service.Identity{}, err
	}
	ident.Username = u.Username
	ident.Role = u.Role
	return ident, nil
}

func identityFromClaims(claims *tokens.AccessClaims) (service.Identity, error) {
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || claims.SessionID == "" {
		return service.Identity{}, errBadToken
	}
	return service.Identity{
		UserID:    uint(id),
		Username:  claims.Username,
		Role:      claims.Role,
		SessionID: claims.SessionID,
	}, nil
}

func deny(c echo.Context, status int, msg, to string) error {
	if web.WantsHTML(c) {
		return web.Redirect(c, web.LevelError, msg, to)
	}
	return echo.NewHTTPError(status, msg)
}

func (g *Gate) clearCookies(c echo.Context) {
	ClearSessionCookies(c, g.CookieSecure)
}

func SetSessionCookies(c echo.Context, res *service.LoginResult, secure bool) {
	c.SetCookie(tokens.CreateCookie(tokens.AccessCookie, res.AccessToken, "/", res.AccessExp, secure))
	c.SetCookie(tokens.CreateCookie(tokens.RefreshCookie, res.RefreshToken, "/", res.RefreshExp, secure))
}

func ClearSessionCookies(c echo.Context, secure bool) {
	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/", secure))
	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, "/", secure))
}

// IdentityFrom returns the caller set by RequireAuth or RequireRole.
func IdentityFrom(c echo.Context) (service.Identity, bool) {
	ident, ok := c.Get(identityKey).(service.Identity)
	return ident, ok
}
