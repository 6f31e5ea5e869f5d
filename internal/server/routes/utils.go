package routes

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fieldline-io/fieldline/internal/authz"
	"github.com/fieldline-io/fieldline/internal/tenancy"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func requestOrganizationID(c echo.Context) string {
	organizationID, _ := tenancy.OrganizationFromContext(c.Request().Context())
	return organizationID
}

func requestIdentity(c echo.Context) authz.Identity {
	identity, _ := authz.IdentityFromContext(c.Request().Context())
	return identity
}

// pagination reads page/limit query params. Pages are 1-based.
func pagination(c echo.Context) (limit, offset int) {
	limit = defaultPageSize
	if raw := strings.TrimSpace(c.QueryParam("limit")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	page := 1
	if raw := strings.TrimSpace(c.QueryParam("page")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			page = v
		}
	}
	return limit, (page - 1) * limit
}
