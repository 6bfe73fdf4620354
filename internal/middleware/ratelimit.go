package middleware

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/amodallal/fishing-backend/internal/config"
)

// RateLimit returns a fixed-window limiter keyed by client IP. The
// counter lives in Redis (INCR + EXPIRE on first hit of the window), so
// the limit holds across replicas. When Redis is nil or unreachable the
// limiter fails open; throttling is protection, not a correctness
// requirement, and a Redis outage must not take bookings down with it.
func RateLimit(rdb *redis.Client, cfg config.RateLimitConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Enabled || rdb == nil {
				return next(c)
			}
			ctx := c.Request().Context()
			window := time.Now().Unix() / int64(cfg.Window.Seconds())
			key := fmt.Sprintf("%s:%s:%d", cfg.Prefix, c.RealIP(), window)

			n, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				log.Printf("ratelimit: incr failed: %v", err)
				return next(c)
			}
			if n == 1 {
				if err := rdb.Expire(ctx, key, cfg.Window).Err(); err != nil {
					log.Printf("ratelimit: expire failed: %v", err)
				}
			}
			if n > int64(cfg.Limit) {
				retry := cfg.Window.Seconds() - float64(time.Now().Unix()%int64(cfg.Window.Seconds()))
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(retry)+1))
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too many requests"})
			}
			return next(c)
		}
	}
}
