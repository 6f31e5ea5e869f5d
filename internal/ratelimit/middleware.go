package ratelimit

import (
	"math"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/fieldline-io/fieldline/internal/authz"
	"github.com/fieldline-io/fieldline/internal/tenancy"
)

// Middleware enforces per-user and per-org fixed-window limits on the routes
// it is attached to. Subjects without a resolved identity or tenant simply
// skip the corresponding counter.
func Middleware(limiter Limiter, limit int) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if limiter == nil {
				return next(c)
			}
			ctx := c.Request().Context()

			var subjects []string
			if id, ok := authz.IdentityFromContext(ctx); ok {
				subjects = append(subjects, "user:"+id.UserID)
			}
			if organizationID, ok := tenancy.OrganizationFromContext(ctx); ok {
				subjects = append(subjects, "org:"+organizationID)
			}

			for _, subject := range subjects {
				decision := limiter.Allow(ctx, subject, limit)
				if !decision.Allowed {
					retryAfter := int(math.Ceil(decision.ResetIn.Seconds()))
					if retryAfter < 1 {
						retryAfter = 1
					}
					c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
					return ErrRateLimited
				}
			}
			return next(c)
		}
	}
}
