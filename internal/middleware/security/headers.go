package security

import (
	"net/http"
	"strconv"
	"strings"
)

// Origins allowed to embed the Mini App.
var telegramFrameAncestors = []string{
	"https://web.telegram.org",
	"https://*.telegram.org",
	"https://t.me",
}

// HeadersConfig lists the response headers set on every request. Empty
// values are skipped.
type HeadersConfig struct {
	CSP                 string
	ContentTypeOptions  string
	ReferrerPolicy      string
	PermissionsPolicy   string
	CrossOriginOpener   string
	CrossOriginResource string
	// FrameOptions stays empty when framing is governed by frame-ancestors.
	FrameOptions string

	// HSTS is sent over TLS only; zero disables it.
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool
}

// DefaultHeadersConfig suits an API called from inside the Telegram Mini
// App frame. imageOrigin, when set, is allowed in img-src.
func DefaultHeadersConfig(imageOrigin string) HeadersConfig {
	img := []string{"'self'", "data:"}
	if imageOrigin != "" {
		img = append(img, strings.TrimRight(imageOrigin, "/"))
	}
	csp := []string{
		"default-src 'self'",
		"script-src 'self' https://telegram.org",
		"style-src 'self' 'unsafe-inline'",
		"img-src " + strings.Join(img, " "),
		"connect-src 'self'",
		"object-src 'none'",
		"frame-ancestors 'self' " + strings.Join(telegramFrameAncestors, " "),
		"base-uri 'self'",
	}
	return HeadersConfig{
		CSP:                   strings.Join(csp, "; "),
		ContentTypeOptions:    "nosniff",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		PermissionsPolicy:     "geolocation=(), microphone=(), camera=(), payment=()",
		CrossOriginOpener:     "same-origin-allow-popups",
		CrossOriginResource:   "cross-origin",
		HSTSMaxAge:            365 * 24 * 60 * 60,
		HSTSIncludeSubdomains: true,
	}
}

// HeadersMiddleware writes a header set computed once at construction.
type HeadersMiddleware struct {
	always http.Header
	hsts   string
}

func NewHeadersMiddleware(cfg HeadersConfig) *HeadersMiddleware {
	h := &HeadersMiddleware{always: http.Header{}}
	for key, value := range map[string]string{
		"Content-Security-Policy":      cfg.CSP,
		"X-Content-Type-Options":       cfg.ContentTypeOptions,
		"X-Frame-Options":              cfg.FrameOptions,
		"Referrer-Policy":              cfg.ReferrerPolicy,
		"Permissions-Policy":           cfg.PermissionsPolicy,
		"Cross-Origin-Opener-Policy":   cfg.CrossOriginOpener,
		"Cross-Origin-Resource-Policy": cfg.CrossOriginResource,
	} {
		if value != "" {
			h.always.Set(key, value)
		}
	}

	if cfg.HSTSMaxAge > 0 {
		parts := []string{"max-age=" + strconv.Itoa(cfg.HSTSMaxAge)}
		if cfg.HSTSIncludeSubdomains {
			parts = append(parts, "includeSubDomains")
		}
		if cfg.HSTSPreload {
			parts = append(parts, "preload")
		}
		h.hsts = strings.Join(parts, "; ")
	}
	return h
}

func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dst := w.Header()
		for key, values := range h.always {
			dst[key] = append([]string(nil), values...)
		}
		if r.TLS != nil && h.hsts != "" {
			dst.Set("Strict-Transport-Security", h.hsts)
		}
		next.ServeHTTP(w, r)
	})
}

// NoStore marks responses as uncacheable by intermediaries.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
