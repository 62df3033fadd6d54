package middleware

import (
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	// Global limits (per IP)
	GlobalAPIMax        int
	GlobalAPIExpiration time.Duration

	// Auth endpoint limits (per IP) - brute-force protection
	AuthMax        int
	AuthExpiration time.Duration

	// Authenticated endpoint limits (per user ID)
	AuthenticatedMax        int
	AuthenticatedExpiration time.Duration

	// Summary generation limits (per user ID) - LLM calls are expensive
	SummaryMax        int
	SummaryExpiration time.Duration
}

// DefaultRateLimitConfig returns production-safe defaults
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		// Global: 200/min - very generous for normal use
		GlobalAPIMax:        200,
		GlobalAPIExpiration: 1 * time.Minute,

		// Auth: 10 attempts per 15 minutes per IP
		AuthMax:        10,
		AuthExpiration: 15 * time.Minute,

		// Authenticated operations: 60/min per user
		AuthenticatedMax:        60,
		AuthenticatedExpiration: 1 * time.Minute,

		// Summary generation: 10/min per user
		SummaryMax:        10,
		SummaryExpiration: 1 * time.Minute,
	}
}

// LoadRateLimitConfig loads config from environment variables with defaults
func LoadRateLimitConfig() *RateLimitConfig {
	config := DefaultRateLimitConfig()

	if v := os.Getenv("RATE_LIMIT_GLOBAL_API"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.GlobalAPIMax = n
		}
	}
	if v := os.Getenv("RATE_LIMIT_AUTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.AuthMax = n
		}
	}
	if v := os.Getenv("RATE_LIMIT_AUTHENTICATED"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.AuthenticatedMax = n
		}
	}
	if v := os.Getenv("RATE_LIMIT_SUMMARY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.SummaryMax = n
		}
	}

	return config
}

// GlobalLimiter limits all API traffic per IP
func (c *RateLimitConfig) GlobalLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        c.GlobalAPIMax,
		Expiration: c.GlobalAPIExpiration,
		KeyGenerator: func(ctx *fiber.Ctx) string {
			return ctx.IP()
		},
	})
}

// AuthLimiter limits sign-in/sign-up attempts per IP
func (c *RateLimitConfig) AuthLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        c.AuthMax,
		Expiration: c.AuthExpiration,
		KeyGenerator: func(ctx *fiber.Ctx) string {
			return "auth:" + ctx.IP()
		},
		LimitReached: func(ctx *fiber.Ctx) error {
			return ctx.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many authentication attempts, try again later",
			})
		},
	})
}

// UserLimiter limits authenticated traffic per user, falling back to
// the client IP before authentication has run.
func (c *RateLimitConfig) UserLimiter(max int, expiration time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: expiration,
		KeyGenerator: func(ctx *fiber.Ctx) string {
			if userID, ok := ctx.Locals("user_id").(string); ok && userID != "" {
				return "user:" + userID
			}
			return ctx.IP()
		},
	})
}
