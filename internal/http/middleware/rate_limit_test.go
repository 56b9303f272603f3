package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRateLimit(t *testing.T) {
	srv := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer cache.Close()

	handler := RateLimit(cache, 3, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/verify", nil)
		req.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 3; i++ {
		if code := do("10.0.0.1"); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, code)
		}
	}
	if code := do("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 over the limit, got %d", code)
	}

	// another client is unaffected
	if code := do("10.0.0.2"); code != http.StatusOK {
		t.Fatalf("expected 200 for another client, got %d", code)
	}

	// the window resets
	srv.FastForward(2 * time.Minute)
	if code := do("10.0.0.1"); code != http.StatusOK {
		t.Fatalf("expected 200 after the window reset, got %d", code)
	}
}

func TestRateLimitNilCachePassesThrough(t *testing.T) {
	handler := RateLimit(nil, 1, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/verify", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
}
