package middleware

import (
	"hash/fnv"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/geo-cache-service/internal/domain/dto"
	"github.com/guttosm/geo-cache-service/internal/i18n"
	"golang.org/x/time/rate"
)

const (
	// defaultNumShards is the default number of shards for the rate limiter.
	defaultNumShards = 16
	// idleEviction drops clients not seen for this many windows.
	idleEviction = 3
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type rateLimiterShard struct {
	mu       sync.Mutex
	visitors map[string]*visitor
}

// RateLimiter gives every client a token bucket refilled at limit per
// window, with a burst of limit. Clients are spread over shards to keep
// lock contention low.
type RateLimiter struct {
	shards   []*rateLimiterShard
	limit    int
	window   time.Duration
	every    rate.Limit
	stopCh   chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return NewShardedRateLimiter(limit, window, defaultNumShards)
}

// NewShardedRateLimiter creates a limiter with a custom shard count.
func NewShardedRateLimiter(limit int, window time.Duration, numShards int) *RateLimiter {
	if numShards <= 0 {
		numShards = defaultNumShards
	}
	if window <= 0 {
		window = time.Minute
	}

	shards := make([]*rateLimiterShard, numShards)
	for i := range shards {
		shards[i] = &rateLimiterShard{visitors: make(map[string]*visitor)}
	}

	rl := &RateLimiter{
		shards: shards,
		limit:  limit,
		window: window,
		every:  rate.Limit(float64(limit) / window.Seconds()),
		stopCh: make(chan struct{}),
		now:    time.Now,
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) shard(identifier string) *rateLimiterShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(identifier))
	return rl.shards[h.Sum32()%uint32(len(rl.shards))]
}

// allow takes one token for identifier and reports the tokens left.
func (rl *RateLimiter) allow(identifier string) (bool, int) {
	s := rl.shard(identifier)
	now := rl.now()

	s.mu.Lock()
	v, ok := s.visitors[identifier]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.every, rl.limit)}
		s.visitors[identifier] = v
	}
	v.lastSeen = now
	s.mu.Unlock()

	allowed := v.limiter.AllowN(now, 1)
	remaining := int(v.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return allowed, remaining
}

// RateLimit limits requests per client: the API key fingerprint set by
// APIKeyAuth when present, the client IP otherwise.
func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining := rl.allow(clientIdentifier(c))

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(rl.retryAfter().Seconds())))
			message := i18n.GetTranslator().Translate(i18n.ErrKeyRateLimitExceeded, i18n.GetLocale(c))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.NewError(dto.ErrCodeRateLimit, message).WithRequestID(GetRequestID(c)))
			return
		}
		c.Next()
	}
}

// retryAfter is the time to earn one token, at least one second.
func (rl *RateLimiter) retryAfter() time.Duration {
	if rl.limit <= 0 {
		return rl.window
	}
	d := rl.window / time.Duration(rl.limit)
	if d < time.Second {
		d = time.Second
	}
	return d
}

func clientIdentifier(c *gin.Context) string {
	if client := c.GetString(ClientIDKey); client != "" {
		return "key:" + client
	}
	return "ip:" + c.ClientIP()
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evictIdle()
		case <-rl.stopCh:
			return
		}
	}
}

// evictIdle removes clients idle for idleEviction windows.
func (rl *RateLimiter) evictIdle() {
	threshold := rl.now().Add(-idleEviction * rl.window)
	for _, s := range rl.shards {
		s.mu.Lock()
		for id, v := range s.visitors {
			if v.lastSeen.Before(threshold) {
				delete(s.visitors, id)
			}
		}
		s.mu.Unlock()
	}
}

// Stop ends the eviction loop.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Visitors returns the number of tracked clients.
func (rl *RateLimiter) Visitors() int {
	total := 0
	for _, s := range rl.shards {
		s.mu.Lock()
		total += len(s.visitors)
		s.mu.Unlock()
	}
	return total
}
