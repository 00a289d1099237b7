package web

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

//go:embed static
var staticFS embed.FS

const (
	langCookie    = "lang"
	langCookieAge = 365 * 24 * time.Hour
)

var pages = map[string]string{
	"en": "static/index.html",
	"zh": "static/index_zh.html",
}

type Handler struct {
	files fs.FS
}

func NewHandler() *Handler {
	return &Handler{files: staticFS}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.index)

	static, err := fs.Sub(h.files, "static")
	if err != nil {
		panic(err)
	}
	e.StaticFS("/static", static)
}

// index serves the UI in the language picked by ?lang (remembered in a
// cookie), then the lang cookie, then Accept-Language. English otherwise.
func (h *Handler) index(c echo.Context) error {
	lang := c.QueryParam("lang")
	if _, ok := pages[lang]; ok {
		c.SetCookie(&http.Cookie{
			Name:     langCookie,
			Value:    lang,
			Path:     "/",
			MaxAge:   int(langCookieAge.Seconds()),
			SameSite: http.SameSiteLaxMode,
		})
		return h.page(c, lang)
	}

	if cookie, err := c.Cookie(langCookie); err == nil {
		if _, ok := pages[cookie.Value]; ok {
			return h.page(c, cookie.Value)
		}
	}

	return h.page(c, preferredLang(c.Request().Header.Get("Accept-Language")))
}

func (h *Handler) page(c echo.Context, lang string) error {
	body, err := fs.ReadFile(h.files, pages[lang])
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "UI page missing")
	}
	c.Response().Header().Set("Content-Language", lang)
	return c.HTMLBlob(http.StatusOK, body)
}

func preferredLang(accept string) string {
	for _, tag := range strings.Split(strings.ToLower(strings.ReplaceAll(accept, " ", "")), ",") {
		if strings.HasPrefix(tag, "zh") {
			return "zh"
		}
	}
	return "en"
}
