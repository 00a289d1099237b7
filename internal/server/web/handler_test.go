package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newEcho() *echo.Echo {
	e := echo.New()
	NewHandler().RegisterRoutes(e)
	return e
}

func TestIndexLanguage(t *testing.T) {
	tests := []struct {
		name   string
		target string
		cookie string
		accept string
		want   string
	}{
		{name: "default", target: "/", want: "en"},
		{name: "accept zh", target: "/", accept: "zh-CN,zh;q=0.9,en;q=0.8", want: "zh"},
		{name: "accept en", target: "/", accept: "en-US, en;q=0.9", want: "en"},
		{name: "accept zh later", target: "/", accept: "en-US, zh-TW;q=0.5", want: "zh"},
		{name: "cookie beats header", target: "/", cookie: "en", accept: "zh-CN", want: "en"},
		{name: "query beats cookie", target: "/?lang=zh", cookie: "en", want: "zh"},
		{name: "unknown query ignored", target: "/?lang=fr", cookie: "zh", want: "zh"},
		{name: "unknown cookie ignored", target: "/", cookie: "fr", want: "en"},
	}

	e := newEcho()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "lang", Value: tt.cookie})
			}
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if got := rec.Header().Get("Content-Language"); got != tt.want {
				t.Fatalf("language = %q, want %q", got, tt.want)
			}
			if !strings.Contains(rec.Body.String(), `<html lang="`+tt.want+`">`) {
				t.Fatalf("wrong page served")
			}
		})
	}
}

func TestIndexQuerySetsCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	newEcho().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?lang=zh", nil))

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "lang" || cookies[0].Value != "zh" {
		t.Fatalf("cookies = %v", cookies)
	}
	if cookies[0].MaxAge != 365*24*60*60 {
		t.Fatalf("max age = %d", cookies[0].MaxAge)
	}
}

func TestStaticAssets(t *testing.T) {
	rec := httptest.NewRecorder()
	newEcho().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "EventSource") {
		t.Fatalf("status = %d", rec.Code)
	}
}
