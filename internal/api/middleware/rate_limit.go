package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sefa-b/go-bill-ledger/internal/service"
	"github.com/sefa-b/go-bill-ledger/internal/utils"
)

// RateLimitMiddleware enforces a fixed-window request limit per client IP.
// A nil cache or a failing cache lets requests through.
func RateLimitMiddleware(cacheService service.CacheService, maxRequests int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cacheService == nil {
				next.ServeHTTP(w, r)
				return
			}

			clientIP := getClientIP(r)

			allowed, err := cacheService.CheckRateLimit(r.Context(), clientIP, maxRequests, window)
			if err != nil {
				utils.Debug("rate limit check skipped", "client_ip", clientIP, "error", err.Error())
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(maxRequests))
				w.Header().Set("X-RateLimit-Window", window.String())
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"Rate limit exceeded","code":429}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP extracts the real client IP from the request
func getClientIP(r *http.Request) string {
	// Take the first hop of X-Forwarded-For if a proxy set it
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
