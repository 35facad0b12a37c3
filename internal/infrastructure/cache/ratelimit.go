package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// counter is the subset of redis.Cmdable the limiter needs
type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RateLimiterStore is a fixed-window request counter shared by every API
// instance. It satisfies echo's middleware.RateLimiterStore.
type RateLimiterStore struct {
	rdb    counter
	limit  int64
	window time.Duration
	prefix string
	now    func() time.Time
}

func NewRateLimiterStore(rdb redis.Cmdable, limit int, window time.Duration) *RateLimiterStore {
	return newRateLimiterStore(rdb, limit, window)
}

func newRateLimiterStore(rdb counter, limit int, window time.Duration) *RateLimiterStore {
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiterStore{
		rdb:    rdb,
		limit:  int64(limit),
		window: window,
		prefix: "todolist:ratelimit",
		now:    time.Now,
	}
}

// Allow counts one request for identifier in the current window. Redis
// failures let the request through and return the error for logging.
func (s *RateLimiterStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	key := s.windowKey(identifier)
	count, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return true, fmt.Errorf("rate limit counter: %w", err)
	}

	// First hit in this window owns the expiry
	if count == 1 {
		if err := s.rdb.Expire(ctx, key, s.window).Err(); err != nil {
			return true, fmt.Errorf("rate limit expiry: %w", err)
		}
	}

	return count <= s.limit, nil
}

func (s *RateLimiterStore) windowKey(identifier string) string {
	slot := s.now().UnixNano() / int64(s.window)
	return fmt.Sprintf("%s:%s:%d", s.prefix, identifier, slot)
}
