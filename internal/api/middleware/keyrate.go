package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"scopedrest/internal/apierr"
	"scopedrest/internal/metrics"
)

// Allower is a per-identifier rate limiter.
type Allower interface {
	Allow(ctx context.Context, identifier string) (bool, error)
}

// KeyRateLimit limits requests per API key. It must run after the auth
// middleware. Limiter errors let the request through.
func KeyRateLimit(limiter Allower) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key, ok := IdentityFrom(c)
			if !ok {
				return next(c)
			}
			allowed, err := limiter.Allow(c.Request().Context(), key.ID)
			if err != nil {
				log.Warn("rate limiter unavailable, allowing %s: %v", key.ID, err)
				return next(c)
			}
			if !allowed {
				metrics.RecordRateLimited()
				return apierr.TooManyRequests("rate limit exceeded")
			}
			return next(c)
		}
	}
}
