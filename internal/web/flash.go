package web

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const FlashCookie = "flash"

const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// AddFlash appends a message to the flash cookie; the next PopFlashes call returns it once.
func AddFlash(c echo.Context, level, message string) {
	msgs := readFlashes(c)
	msgs = append(msgs, Flash{Level: level, Message: message})
	writeFlashes(c, msgs)
}

// PopFlashes returns pending messages and clears the cookie.
func PopFlashes(c echo.Context) []Flash {
	msgs := readFlashes(c)
	if len(msgs) > 0 {
		c.SetCookie(&http.Cookie{Name: FlashCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	}
	return msgs
}

func readFlashes(c echo.Context) []Flash {
	if v, ok := c.Get(FlashCookie).([]Flash); ok {
		return v
	}
	ck, err := c.Cookie(FlashCookie)
	if err != nil || ck.Value == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(ck.Value)
	if err != nil {
		return nil
	}
	var msgs []Flash
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil
	}
	return msgs
}

func writeFlashes(c echo.Context, msgs []Flash) {
	raw, _ := json.Marshal(msgs)
	c.Set(FlashCookie, msgs)
	c.SetCookie(&http.Cookie{
		Name:     FlashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// WantsHTML reports whether the client is a browser navigating pages rather than an API client.
func WantsHTML(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMETextHTML)
}

// Redirect answers a browser with 303 so a POST is followed by a GET.
func Redirect(c echo.Context, level, message, to string) error {
	if message != "" {
		AddFlash(c, level, message)
	}
	return c.Redirect(http.StatusSeeOther, to)
}

// Respond writes data as JSON for API clients and redirects browsers to `to` with a flash.
func Respond(c echo.Context, status int, data any, message, to string) error {
	if WantsHTML(c) {
		return Redirect(c, LevelSuccess, message, to)
	}
	if data == nil {
		return c.JSON(status, map[string]string{"message": message})
	}
	return c.JSON(status, data)
}
