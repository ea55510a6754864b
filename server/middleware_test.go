package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/giygas/medicaments-lookup/config"
)

func TestGetTokenCost(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		expectedCost int64
	}{
		{"Index page", "/", 0},
		{"Metrics", "/metrics", 0},
		{"Toast polling", "/toasts", 1},
		{"Health endpoint", "/health", 5},
		{"Local filter", "/filter", 5},
		{"Search", "/search", 100},
		{"Admin login", "/admin/login", 200},
		{"Admin upsert", "/admin/inventory", 50},
		{"Admin page", "/admin", 20},
		{"Recycle", "/recycle", 10},
		{"Open reservation", "/reserve", 10},
		{"Confirm reservation", "/reserve/confirm", 10},
		{"Backdrop", "/reserve/backdrop", 10},
		{"Default endpoint", "/unknown", 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if cost := getTokenCost(req); cost != tt.expectedCost {
				t.Errorf("getTokenCost(%s) = %d, want %d", tt.path, cost, tt.expectedCost)
			}
		})
	}
}

func TestRealIPMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		remoteAddr string
		expected   string
	}{
		{"no header", "", "10.0.0.1:1234", "10.0.0.1:1234"},
		{"single ip", "203.0.113.7", "10.0.0.1:1234", "203.0.113.7"},
		{"first of list", "203.0.113.7, 10.0.0.2", "10.0.0.1:1234", "203.0.113.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := RealIPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.expected {
				t.Errorf("Expected RemoteAddr %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestBlockDirectAccessMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		proxied    bool
		expected   int
	}{
		{"localhost allowed", "127.0.0.1:5000", false, http.StatusOK},
		{"ipv6 localhost allowed", "[::1]:5000", false, http.StatusOK},
		{"direct public blocked", "198.51.100.4:5000", false, http.StatusForbidden},
		{"proxied public allowed", "198.51.100.4:5000", true, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := BlockDirectAccessMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.proxied {
				req.Header.Set("X-Real-IP", "198.51.100.4")
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tt.expected {
				t.Errorf("Expected status %d, got %d", tt.expected, rr.Code)
			}
		})
	}
}

func TestRequestSizeMiddleware(t *testing.T) {
	cfg := &config.Config{MaxRequestBody: 64, MaxHeaderSize: 256}
	h := RequestSizeMiddleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("small body passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader("email=a&password=b"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", rr.Code)
		}
	})

	t.Run("declared large body rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(strings.Repeat("a", 100)))
		req.Header.Set("Content-Length", "100")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("Expected 413, got %d", rr.Code)
		}
		if !strings.Contains(rr.Header().Get("Content-Type"), "application/json") {
			t.Errorf("Expected JSON error, got %q", rr.Header().Get("Content-Type"))
		}
	})

	t.Run("undeclared large body cut off", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader("email="+strings.Repeat("a", 100)))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.ContentLength = -1
		req.Header.Del("Content-Length")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected the form parse to fail, got %d", rr.Code)
		}
	})

	t.Run("large headers rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Padding", strings.Repeat("p", 300))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusRequestHeaderFieldsTooLarge {
			t.Errorf("Expected 431, got %d", rr.Code)
		}
	})
}

func TestRateLimiterRejectsWhenEmpty(t *testing.T) {
	rl := NewRateLimiter(0.001, 150)
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	search := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/search?q=para", nil)
		req.RemoteAddr = "192.0.2.10:4000"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	first := search()
	if first.Code != http.StatusOK {
		t.Fatalf("Expected first search allowed, got %d", first.Code)
	}
	if first.Header().Get("X-RateLimit-Remaining") != "50" {
		t.Errorf("Expected 50 tokens left, got %q", first.Header().Get("X-RateLimit-Remaining"))
	}

	second := search()
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429, got %d", second.Code)
	}
	if second.Header().Get("Retry-After") != "60" {
		t.Errorf("Expected Retry-After header, got %q", second.Header().Get("Retry-After"))
	}
}

func TestRateLimiterKeysByHost(t *testing.T) {
	rl := NewRateLimiter(DefaultRate, DefaultCapacity)
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for _, addr := range []string{"192.0.2.10:4000", "192.0.2.10:4001", "192.0.2.11:4000"} {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = addr
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	if rl.Len() != 2 {
		t.Errorf("Expected one bucket per host, got %d", rl.Len())
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(DefaultRate, DefaultCapacity)

	full := rl.getBucket("192.0.2.1")
	drained := rl.getBucket("192.0.2.2")
	drained.TakeAvailable(500)
	_ = full

	if removed := rl.Cleanup(); removed != 1 {
		t.Errorf("Expected 1 full bucket removed, got %d", removed)
	}
	if rl.Len() != 1 {
		t.Errorf("Expected the drained bucket kept, got %d buckets", rl.Len())
	}
}
