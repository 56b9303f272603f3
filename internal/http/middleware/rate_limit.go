package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smartdoor/doorman/internal/http/response"
)

// RateLimit caps intake and verification attempts per client IP using a
// fixed Redis window. Fails open on cache errors: throttling protects the
// OTP keyspace from brute force, it is not a correctness mechanism.
func RateLimit(cache *redis.Client, max int, window time.Duration) func(http.Handler) http.Handler {
	if max <= 0 {
		max = 5
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cache == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := "rl:" + r.URL.Path + ":" + clientIP(r)
			cnt, err := cache.Incr(r.Context(), key).Result()
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			if cnt == 1 {
				cache.Expire(r.Context(), key, window)
			}
			if cnt > int64(max) {
				response.RateLimit(w, "Too many requests. Try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
