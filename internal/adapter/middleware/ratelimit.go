package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const rateWindow = time.Minute

// RateLimit allows perMinute requests per client IP in fixed one-minute
// windows counted in redis, so every replica shares the budget. Zero disables
// the limit.
func RateLimit(rdb *redis.Client, perMinute int, log *zap.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if perMinute <= 0 {
			return next
		}
		return func(c echo.Context) error {
			now := nowUTC()
			window := now.Truncate(rateWindow)
			key := "rl:" + c.RealIP() + ":" + strconv.FormatInt(window.Unix(), 10)

			ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
			defer cancel()
			count, err := hit(ctx, rdb, key)
			if err != nil {
				log.Warn("rate limit store unavailable", zap.String("key", key), zap.Error(err))
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "rate limit store unavailable"})
			}

			remaining := int64(perMinute) - count
			if remaining < 0 {
				remaining = 0
			}
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(perMinute))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(perMinute) {
				retry := int(window.Add(rateWindow).Sub(now).Seconds())
				if retry < 1 {
					retry = 1
				}
				h.Set(echo.HeaderRetryAfter, strconv.Itoa(retry))
				return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			}
			return next(c)
		}
	}
}

// hit increments the window counter and returns the new count. The expiry
// outlives the window slightly so a counter never resets mid-window.
func hit(ctx context.Context, rdb *redis.Client, key string) (int64, error) {
	pipe := rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, rateWindow+5*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// MemoryRateLimit is the single-process fallback used when redis is not
// configured: a token bucket per client IP refilling at perMinute/60 per second.
func MemoryRateLimit(perMinute int) echo.MiddlewareFunc {
	if perMinute <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMinute) / rateWindow.Seconds()),
		Burst:     perMinute,
		ExpiresIn: 3 * rateWindow,
	})
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "client not identifiable"})
		},
		DenyHandler: func(c echo.Context, _ string, err error) error {
			c.Response().Header().Set(echo.HeaderRetryAfter, strconv.Itoa(int(rateWindow.Seconds())/perMinute+1))
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		},
	})
}
