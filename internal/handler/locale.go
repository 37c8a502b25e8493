package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/medilog/internal/locale"
)

const (
	languageContextKey   = "__request_language"
	languageCookieName   = "ml_lang"
	languageCookieMaxAge = 365 * 24 * 60 * 60
)

// CDN 注入的国家头
var countryHeaders = []string{
	"CF-IPCountry",
	"X-Geo-Country",
	"X-Country-Code",
}

// LocaleMiddleware 解析请求语言；带 ?lang 的请求会把选择写回 Cookie
func (a *API) LocaleMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		language, explicit := resolveLanguage(c)
		if explicit {
			persistLanguage(c, language)
		}
		c.Set(languageContextKey, language)
		c.Header("Content-Language", language.Tag())
		addVary(c, "Accept-Language", "Cookie")
		c.Next()
	}
}

// requestLanguage 优先使用中间件缓存的结果，直接调用 handler 的测试也能得到正确语言
func requestLanguage(c *gin.Context) locale.Language {
	if cached, ok := c.Get(languageContextKey); ok {
		if language, ok := cached.(locale.Language); ok {
			return language
		}
	}
	language, _ := resolveLanguage(c)
	return language
}

// resolveLanguage 依次检查 ?lang、Cookie、国家头与 Accept-Language，默认韩语
func resolveLanguage(c *gin.Context) (locale.Language, bool) {
	if language, ok := locale.Parse(c.Query("lang")); ok {
		return language, true
	}
	if raw, err := c.Cookie(languageCookieName); err == nil {
		if language, ok := locale.Parse(raw); ok {
			return language, false
		}
	}
	for _, header := range countryHeaders {
		code, _, _ := strings.Cut(c.GetHeader(header), ",")
		if language, ok := locale.FromCountry(code); ok {
			return language, false
		}
	}
	if language, ok := locale.FromAcceptLanguage(c.GetHeader("Accept-Language")); ok {
		return language, false
	}
	return locale.Default, false
}

func persistLanguage(c *gin.Context, language locale.Language) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     languageCookieName,
		Value:    string(language),
		Path:     "/",
		MaxAge:   languageCookieMaxAge,
		HttpOnly: true,
		Secure:   c.Request.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func addVary(c *gin.Context, headers ...string) {
	existing := c.Writer.Header().Values("Vary")
	for _, header := range headers {
		seen := false
		for _, value := range existing {
			for _, token := range strings.Split(value, ",") {
				if strings.EqualFold(strings.TrimSpace(token), header) {
					seen = true
				}
			}
		}
		if !seen {
			c.Writer.Header().Add("Vary", header)
		}
	}
}
