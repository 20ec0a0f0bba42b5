package middleware

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/Baaaki/foodgram/internal/apperrors"
	"github.com/Baaaki/foodgram/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RateLimiterConfig struct {
	MaxRequests int
	Window      time.Duration
	// BlockTime replaces the window once the limit is exceeded; zero keeps
	// the window.
	BlockTime time.Duration
	// KeyPrefix separates counters of independent limiters (login, register).
	KeyPrefix string
}

// RateLimiter limits requests per client IP with a Redis counter.
type RateLimiter struct {
	redis  *redis.Client
	config RateLimiterConfig
}

func NewRateLimiter(redisClient *redis.Client, config RateLimiterConfig) *RateLimiter {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "ratelimit"
	}
	return &RateLimiter{
		redis:  redisClient,
		config: config,
	}
}

// Middleware answers 429 with Retry-After once the caller is over the limit.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		allowed, retryAfter, err := rl.CheckLimit(c.Request.Context(), clientIP)
		if err != nil {
			// fail open: Redis trouble must not lock everyone out
			logger.Log.Warn("Rate limiter unavailable",
				zap.String("ip", clientIP),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if !allowed {
			logger.Log.Warn("Rate limit exceeded",
				zap.String("ip", clientIP),
				zap.String("path", c.FullPath()),
			)
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			apperrors.Respond(c, apperrors.ErrRateLimitExceeded)
			return
		}

		c.Next()
	}
}

// rateScript counts one hit. KEYS[1] is the counter; ARGV is window ms,
// max requests, block ms. Returns {count, pttl}.
var rateScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
if n == tonumber(ARGV[2]) + 1 and tonumber(ARGV[3]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return {n, redis.call('PTTL', KEYS[1])}
`)

// CheckLimit counts the request in a fixed window. Once the limit is
// exceeded the counter is held for BlockTime and retryAfter reports how long
// is left.
func (rl *RateLimiter) CheckLimit(ctx context.Context, ip string) (allowed bool, retryAfter time.Duration, err error) {
	key := fmt.Sprintf("%s:%s", rl.config.KeyPrefix, ip)

	res, err := rateScript.Run(ctx, rl.redis, []string{key},
		rl.config.Window.Milliseconds(),
		rl.config.MaxRequests,
		rl.config.BlockTime.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return false, 0, err
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("rate limiter: unexpected script reply %v", res)
	}

	count, pttl := res[0], time.Duration(res[1])*time.Millisecond
	if count <= int64(rl.config.MaxRequests) {
		return true, 0, nil
	}
	if pttl <= 0 {
		pttl = rl.config.Window
	}
	return false, pttl, nil
}
