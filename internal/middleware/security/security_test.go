package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIPExtract(t *testing.T) {
	c, err := NewClientIP("203.0.113.0/24")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"direct public peer ignores headers", "198.51.100.7:4321", "1.2.3.4", "", "198.51.100.7"},
		{"private proxy uses xff", "10.0.0.5:80", "1.2.3.4, 10.0.0.5", "", "1.2.3.4"},
		{"configured proxy uses xff", "203.0.113.9:80", "8.8.8.8", "", "8.8.8.8"},
		{"invalid xff falls back to x-real-ip", "127.0.0.1:80", "garbage", "9.9.9.9", "9.9.9.9"},
		{"no headers", "127.0.0.1:80", "", "", "127.0.0.1"},
		{"ipv6 loopback", "[::1]:80", "2001:db8::1", "", "2001:db8::1"},
		{"no port", "192.168.1.2", "", "", "192.168.1.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/webhook", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := c.Extract(r); got != tt.want {
				t.Errorf("Extract() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewClientIPRejectsBadCIDR(t *testing.T) {
	if _, err := NewClientIP("not-a-cidr"); err == nil {
		t.Fatal("expected error")
	}
}

func TestHeaders(t *testing.T) {
	h := Headers(DefaultHeadersConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" || rec.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("missing headers: %v", rec.Header())
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be set without TLS")
	}

	rec = httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	r.TLS = &tls.ConnectionState{}
	h.ServeHTTP(rec, r)
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Error("expected HSTS over TLS")
	}
}
