package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sefa-b/go-bill-ledger/internal/domain"
	"github.com/sefa-b/go-bill-ledger/internal/utils"
)

// countingCache allows the first limit calls per client.
type countingCache struct {
	counts map[string]int
	err    error
}

func (c *countingCache) CacheBill(context.Context, *domain.BillResponse) error { return nil }
func (c *countingCache) GetCachedBill(context.Context, uuid.UUID) (*domain.BillResponse, error) {
	return nil, errors.New("not cached")
}
func (c *countingCache) InvalidateBill(context.Context, uuid.UUID, int) error { return nil }
func (c *countingCache) Health(context.Context) error                         { return c.err }

func (c *countingCache) CheckRateLimit(_ context.Context, clientIP string, maxRequests int, _ time.Duration) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	c.counts[clientIP]++
	return c.counts[clientIP] <= maxRequests, nil
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRateLimitMiddleware(t *testing.T) {
	cache := &countingCache{counts: map[string]int{}}
	handler := RateLimitMiddleware(cache, 2, time.Minute)(okHandler)

	send := func(remoteAddr, forwardedFor string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/bills", nil)
		req.RemoteAddr = remoteAddr
		if forwardedFor != "" {
			req.Header.Set("X-Forwarded-For", forwardedFor)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("10.0.0.1:5000", ""); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, code)
		}
	}
	if code := send("10.0.0.1:5001", ""); code != http.StatusTooManyRequests {
		t.Errorf("expected 429 once the limit is exhausted, got %d", code)
	}
	if code := send("10.0.0.2:5000", ""); code != http.StatusOK {
		t.Errorf("other clients must not be limited, got %d", code)
	}
	if code := send("10.0.0.1:5000", "203.0.113.9, 10.0.0.1"); code != http.StatusOK {
		t.Errorf("forwarded client must be counted separately, got %d", code)
	}
	if cache.counts["203.0.113.9"] != 1 {
		t.Errorf("expected forwarded client to be keyed by first hop, got %v", cache.counts)
	}
}

func TestRateLimitMiddlewareFailsOpen(t *testing.T) {
	tests := []struct {
		name  string
		cache *countingCache
	}{
		{"cache error", &countingCache{err: errors.New("redis down")}},
		{"no cache", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var handler http.Handler
			if tt.cache == nil {
				handler = RateLimitMiddleware(nil, 1, time.Minute)(okHandler)
			} else {
				handler = RateLimitMiddleware(tt.cache, 1, time.Minute)(okHandler)
			}

			for i := 0; i < 3; i++ {
				rr := httptest.NewRecorder()
				handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
				if rr.Code != http.StatusOK {
					t.Fatalf("request %d: expected 200, got %d", i, rr.Code)
				}
			}
		})
	}
}

func TestLoggingMiddlewareRequestID(t *testing.T) {
	var seen string
	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("generated", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		header := rr.Header().Get("X-Request-ID")
		if header == "" || header != seen {
			t.Errorf("expected matching request id, header %q context %q", header, seen)
		}
		if rr.Code != http.StatusNoContent {
			t.Errorf("expected status to pass through, got %d", rr.Code)
		}
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "abc-123")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if seen != "abc-123" || rr.Header().Get("X-Request-ID") != "abc-123" {
			t.Errorf("expected incoming request id to be kept, got %q", seen)
		}
	})
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Chain(okHandler, mark("outer"), mark("inner"), MetricsMiddleware(utils.NewMetricsCollector()), TracingMiddleware("test"))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Errorf("unexpected middleware order: %v", order)
	}
}
