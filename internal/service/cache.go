package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sefa-b/go-bill-ledger/internal/domain"
	"github.com/sefa-b/go-bill-ledger/internal/repository"
	"github.com/sefa-b/go-bill-ledger/internal/utils"
)

// Cache key prefixes
const (
	billCachePrefix = "bill:"
	rateLimitPrefix = "ratelimit:"
)

// cacheServiceImpl caches bill views and rate-limit counters in Redis. Every
// call goes through a circuit breaker so an unavailable Redis is skipped fast.
type cacheServiceImpl struct {
	redisClient *repository.RedisClient
	breaker     *utils.CircuitBreaker
	billTTL     time.Duration
}

// NewCacheService creates a new cache service
func NewCacheService(redisClient *repository.RedisClient, billTTL time.Duration) CacheService {
	breaker := utils.GetCircuitBreaker(utils.CircuitBreakerConfig{
		Name:             "redis-cache",
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		CallTimeout:      500 * time.Millisecond,
	})
	return newCacheService(redisClient, breaker, billTTL)
}

func newCacheService(redisClient *repository.RedisClient, breaker *utils.CircuitBreaker, billTTL time.Duration) *cacheServiceImpl {
	if billTTL <= 0 {
		billTTL = 5 * time.Minute
	}
	return &cacheServiceImpl{
		redisClient: redisClient,
		breaker:     breaker,
		billTTL:     billTTL,
	}
}

// CacheBill caches a bill view. A view older than the bill's version floor
// is dropped silently.
func (c *cacheServiceImpl) CacheBill(ctx context.Context, bill *domain.BillResponse) error {
	key := billCachePrefix + bill.ID.String()
	return c.breaker.Call(ctx, func(ctx context.Context) error {
		stored, err := c.redisClient.SetVersioned(ctx, key, bill, int64(bill.Version), c.billTTL)
		if err == nil && !stored {
			utils.Debug("stale bill view not cached", "bill_id", bill.ID.String(), "version", bill.Version)
		}
		return err
	})
}

// GetCachedBill retrieves a cached bill view. A missing key returns
// repository.ErrCacheMiss and does not count against the breaker.
func (c *cacheServiceImpl) GetCachedBill(ctx context.Context, billID uuid.UUID) (*domain.BillResponse, error) {
	key := billCachePrefix + billID.String()

	var bill domain.BillResponse
	miss := false
	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		err := c.redisClient.GetVersioned(ctx, key, &bill)
		if errors.Is(err, repository.ErrCacheMiss) {
			miss = true
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if miss {
		return nil, repository.ErrCacheMiss
	}
	return &bill, nil
}

// InvalidateBill removes a bill view from cache and refuses views below
// minVersion for one TTL.
func (c *cacheServiceImpl) InvalidateBill(ctx context.Context, billID uuid.UUID, minVersion int) error {
	key := billCachePrefix + billID.String()
	return c.breaker.Call(ctx, func(ctx context.Context) error {
		return c.redisClient.RaiseVersionFloor(ctx, key, int64(minVersion), c.billTTL)
	})
}

// CheckRateLimit counts a request in the client's fixed window and reports
// whether it is still within maxRequests.
func (c *cacheServiceImpl) CheckRateLimit(ctx context.Context, clientIP string, maxRequests int, window time.Duration) (bool, error) {
	key := rateLimitPrefix + clientIP

	var count int64
	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		count, err = c.redisClient.Incr(ctx, key)
		if err != nil {
			return err
		}
		// Set expiration on first request
		if count == 1 {
			return c.redisClient.Expire(ctx, key, window)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	return count <= int64(maxRequests), nil
}

// Health checks Redis connectivity
func (c *cacheServiceImpl) Health(ctx context.Context) error {
	return c.redisClient.Ping(ctx)
}
