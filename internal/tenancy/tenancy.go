// Package tenancy resolves the tenant (organization) a request is scoped to.
package tenancy

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
)

// DefaultHeader is used when no tenant header is configured.
const DefaultHeader = "X-Org-Id"

// ErrTenantMissing is returned when the tenant header is absent or empty.
var ErrTenantMissing = errors.New("tenant header missing")

type contextKey struct{}

var organizationKey contextKey

// WithOrganization returns a context carrying the resolved organization id.
func WithOrganization(ctx context.Context, organizationID string) context.Context {
	return context.WithValue(ctx, organizationKey, organizationID)
}

// OrganizationFromContext returns the organization id resolved for this request.
func OrganizationFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(organizationKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Middleware reads the tenant header and stores the organization id in the
// request context. Requests without a tenant are rejected before any handler
// runs.
func Middleware(header string) echo.MiddlewareFunc {
	if strings.TrimSpace(header) == "" {
		header = DefaultHeader
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			organizationID := strings.TrimSpace(c.Request().Header.Get(header))
			if organizationID == "" {
				return ErrTenantMissing
			}
			ctx := WithOrganization(c.Request().Context(), organizationID)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
