package security

import (
	"fmt"
	"net/http"
)

// HeadersConfig lists the response headers set on every response.
type HeadersConfig struct {
	XContentTypeOptions string
	XFrameOptions       string
	ReferrerPolicy      string
	CacheControl        string
	HSTSMaxAge          int // seconds, TLS only; 0 disables
}

// DefaultHeadersConfig fits a JSON/plain-text API with no browser UI.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		XContentTypeOptions: "nosniff",
		XFrameOptions:       "DENY",
		ReferrerPolicy:      "no-referrer",
		CacheControl:        "no-store",
		HSTSMaxAge:          31536000,
	}
}

// Headers returns middleware applying cfg.
func Headers(cfg HeadersConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			setIf(h, "X-Content-Type-Options", cfg.XContentTypeOptions)
			setIf(h, "X-Frame-Options", cfg.XFrameOptions)
			setIf(h, "Referrer-Policy", cfg.ReferrerPolicy)
			setIf(h, "Cache-Control", cfg.CacheControl)
			if r.TLS != nil && cfg.HSTSMaxAge > 0 {
				h.Set("Strict-Transport-Security", fmt.Sprintf("max-age=%d; includeSubDomains", cfg.HSTSMaxAge))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func setIf(h http.Header, key, value string) {
	if value != "" {
		h.Set(key, value)
	}
}
