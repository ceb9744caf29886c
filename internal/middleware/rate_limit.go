package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/vastu-api/internal/observability"
	"github.com/noah-isme/vastu-api/internal/utils"
)

// RateLimit throttles a route group per scope. Authenticated callers are keyed
// by user id, everyone else by client IP.
func RateLimit(scope string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	retryAfter := strconv.Itoa(int(window.Round(time.Second) / time.Second))

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return limiterKey(scope, c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			observability.RateLimited().WithLabelValues(scope).Inc()
			c.Set(fiber.HeaderRetryAfter, retryAfter)
			return utils.Fail(c, fiber.StatusTooManyRequests, "too many requests", fiber.Map{"scope": scope})
		},
	})
}

func limiterKey(scope string, c *fiber.Ctx) string {
	var b strings.Builder
	b.WriteString(scope)
	if userID, ok := c.Locals("user_id").(uint); ok && userID > 0 {
		b.WriteString(":user:")
		b.WriteString(strconv.FormatUint(uint64(userID), 10))
		return b.String()
	}
	b.WriteString(":ip:")
	b.WriteString(c.IP())
	return b.String()
}
