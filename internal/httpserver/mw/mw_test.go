package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrSnakeDoc/landing/internal/logger"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{name: "remote addr only", remoteAddr: "192.0.2.1:5555", want: "192.0.2.1"},
		{name: "xff ignored without trust", remoteAddr: "192.0.2.1:5555", headers: map[string]string{"X-Forwarded-For": "203.0.113.9"}, want: "192.0.2.1"},
		{name: "left-most xff with trust", remoteAddr: "127.0.0.1:1", headers: map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, trustProxy: true, want: "203.0.113.9"},
		{name: "cloudflare header wins", remoteAddr: "127.0.0.1:1", headers: map[string]string{"CF-Connecting-IP": "198.51.100.7", "X-Forwarded-For": "203.0.113.9"}, trustProxy: true, want: "198.51.100.7"},
		{name: "ipv6 remote", remoteAddr: "[2001:db8::1]:443", want: "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAllowOnlyCIDRS(t *testing.T) {
	log := logger.New("error", false)
	h := AllowOnlyCIDRS([]string{"10.0.0.0/8", "192.0.2.7"}, false, log)(okHandler)

	tests := []struct {
		remoteAddr string
		want       int
	}{
		{remoteAddr: "10.1.2.3:1000", want: http.StatusOK},
		{remoteAddr: "192.0.2.7:1000", want: http.StatusOK},
		{remoteAddr: "192.0.2.8:1000", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		r.RemoteAddr = tt.remoteAddr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		if rec.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.remoteAddr, rec.Code, tt.want)
		}
	}

	// empty list is a passthrough
	rec := httptest.NewRecorder()
	AllowOnlyCIDRS(nil, false, log)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("passthrough status = %d", rec.Code)
	}
}

func TestEnforceHost(t *testing.T) {
	h := EnforceHost([]string{"curation.gfz.de", "*.internal.gfz.de"}, logger.New("error", false))(okHandler)

	tests := []struct {
		host string
		want int
	}{
		{host: "curation.gfz.de", want: http.StatusOK},
		{host: "Curation.GFZ.de:8443", want: http.StatusOK},
		{host: "a.internal.gfz.de", want: http.StatusOK},
		{host: "evil.example.org", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/resources/1/landing-page", nil)
		r.Host = tt.host
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		if rec.Code != tt.want {
			t.Errorf("host %s: status = %d, want %d", tt.host, rec.Code, tt.want)
		}
	}
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{Burst: 2, RefillPerIPPerMin: 1})(okHandler)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodGet, "/10.5880/X/slug", nil)
		r.RemoteAddr = "203.0.113.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		codes = append(codes, rec.Code)

		if i == 2 && rec.Header().Get("Retry-After") == "" {
			t.Error("throttled response should carry Retry-After")
		}
		if i == 0 && rec.Header().Get("X-RateLimit-Remaining") != "1" {
			t.Errorf("X-RateLimit-Remaining = %q, want 1", rec.Header().Get("X-RateLimit-Remaining"))
		}
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("status codes = %v, want [200 200 429]", codes)
	}

	// another client has its own bucket
	r := httptest.NewRequest(http.MethodGet, "/10.5880/X/slug", nil)
	r.RemoteAddr = "203.0.113.2:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusOK {
		t.Errorf("second client status = %d, want 200", rec.Code)
	}
}
