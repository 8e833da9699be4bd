package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/community_shop/internal/middleware/auth"
	"github.com/Skotchmaster/community_shop/internal/middleware/csrf"
	"github.com/Skotchmaster/community_shop/internal/service"
	"github.com/Skotchmaster/community_shop/internal/util"
	"github.com/Skotchmaster/community_shop/internal/web"
)

func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrEmptyUpload),
		errors.Is(err, service.ErrInvalidFilename):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidRefreshToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrDuplicateIdentity),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrStockConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrExternalPayment):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func messageOf(status int, err error) string {
	switch status {
	case http.StatusInternalServerError:
		return "internal server error"
	case http.StatusBadGateway:
		return "the payment provider could not be reached, please try again"
	}
	return err.Error()
}

// fail logs err and answers the client: browsers are sent back to `back` with a flash message,
// API clients get an HTTP error with the mapped status.
func fail(c echo.Context, l *slog.Logger, event string, err error, back string) error {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		l.Error(event, "status", status, "error", err)
	} else {
		l.Warn(event, "status", status, "error", err)
	}

	msg := messageOf(status, err)
	if web.WantsHTML(c) {
		return web.Redirect(c, web.LevelError, msg, back)
	}
	return echo.NewHTTPError(status, msg)
}

type pageView struct {
	Data      any         `json:"data"`
	Flashes   []web.Flash `json:"flashes,omitempty"`
	CSRFToken string      `json:"csrf_token,omitempty"`
}

// render answers GET pages: the payload plus pending flash messages and the form token.
func render(c echo.Context, data any) error {
	token, _ := c.Get(csrf.ContextKey).(string)
	return c.JSON(http.StatusOK, pageView{Data: data, Flashes: web.PopFlashes(c), CSRFToken: token})
}

func identity(c echo.Context) (service.Identity, error) {
	ident, ok := auth.IdentityFrom(c)
	if !ok {
		return service.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return ident, nil
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, validation("invalid id")
	}
	return uint(id), nil
}

func pagination(c echo.Context) (page, size, offset, limit int) {
	page = util.ParseIntDefault(c.QueryParam("page"), 1)
	size = util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit = util.Calculate(page, size)
	if page < 1 {
		page = 1
	}
	return page, limit, offset, limit
}

func validation(msg string) error {
	return fmt.Errorf("%w: %s", service.ErrValidation, msg)
}

func isJSON(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
}
