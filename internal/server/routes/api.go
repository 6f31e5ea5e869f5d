// Package routes wires the API endpoints with their per-route pipeline.
package routes

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/fieldline-io/fieldline/internal/app/services"
	"github.com/fieldline-io/fieldline/internal/authz"
	"github.com/fieldline-io/fieldline/internal/httpcache"
	"github.com/fieldline-io/fieldline/internal/idempotency"
	"github.com/fieldline-io/fieldline/internal/observability"
	"github.com/fieldline-io/fieldline/internal/ratelimit"
	"github.com/fieldline-io/fieldline/internal/tenancy"
)

// APIConfig carries everything the API routes depend on.
type APIConfig struct {
	TenantHeader string

	Organizations *services.OrganizationService
	Content       *services.ContentService

	Memberships authz.MembershipSource

	CacheStore httpcache.Store
	Cache      httpcache.Config

	Records idempotency.RecordStore

	Limiter   ratelimit.Limiter
	RateLimit int

	Log *slog.Logger
}

// API registers the versioned JSON endpoints.
type API struct {
	cfg APIConfig
}

// NewAPI constructs the API route registrar.
func NewAPI(cfg APIConfig) *API {
	if cfg.TenantHeader == "" {
		cfg.TenantHeader = tenancy.DefaultHeader
	}
	return &API{cfg: cfg}
}

// RegisterRoutes attaches every endpoint under /api/v1. The shared pipeline
// resolves the tenant and caller identity; authorization, rate limiting,
// caching, and idempotency are attached per route.
func (a *API) RegisterRoutes(s *echo.Echo) {
	auth := authz.New(a.cfg.Memberships)

	api := s.Group("/api/v1",
		tenancy.Middleware(a.cfg.TenantHeader),
		authz.IdentityMiddleware(),
		enrichLogContext(),
	)

	rl := ratelimit.Middleware(a.cfg.Limiter, a.cfg.RateLimit)
	idem := idempotency.Middleware(a.cfg.Records, a.cfg.Log)
	cached := func(route string) echo.MiddlewareFunc {
		return httpcache.Middleware(a.cfg.CacheStore, a.cfg.Cache, route, a.cfg.Log)
	}

	viewer := auth.Require(authz.Capability{Mode: authz.ModeOrgScoped, Roles: []authz.Role{authz.RoleViewer}})
	editor := auth.Require(authz.Capability{Mode: authz.ModeOrgScoped, Roles: []authz.Role{authz.RoleEditor}})
	admin := auth.Require(authz.Capability{Mode: authz.ModeOrgScoped, Roles: []authz.Role{authz.RoleOrgAdmin}})
	globalAdmin := auth.Require(authz.Capability{Mode: authz.ModeGlobalAdmin, Roles: []authz.Role{authz.RoleOrgAdmin}})

	api.POST("/organizations", a.handleOrganizationCreate, globalAdmin, idem, rl)
	api.GET("/organizations/current", a.handleOrganizationCurrent, viewer, cached("organizations:current"))

	api.GET("/members", a.handleMemberList, admin, cached("members:list"))
	api.POST("/members", a.handleMemberAdd, admin, idem)
	api.PUT("/members/:userID/role", a.handleMemberRole, admin, idem)
	api.DELETE("/members/:userID", a.handleMemberRemove, admin, idem)

	api.GET("/posts", a.handlePostList, viewer, cached("posts:list"), rl)
	api.POST("/posts", a.handlePostCreate, editor, idem, rl)
	api.GET("/posts/:id", a.handlePostGet, viewer, cached("posts:get"))
	api.PUT("/posts/:id", a.handlePostUpdate, editor, idem)
	api.DELETE("/posts/:id", a.handlePostDelete, admin, idem)

	api.GET("/posts/:id/comments", a.handleCommentList, viewer, cached("comments:list"))
	api.POST("/posts/:id/comments", a.handleCommentCreate, viewer, idem, rl)
	api.DELETE("/comments/:id", a.handleCommentDelete, editor, idem)

	api.GET("/forms", a.handleFormList, viewer, cached("forms:list"))
	api.POST("/forms", a.handleFormCreate, editor, idem)
	api.GET("/forms/:id", a.handleFormGet, viewer, cached("forms:get"))
	api.PUT("/forms/:id", a.handleFormUpdate, editor, idem)
	api.DELETE("/forms/:id", a.handleFormDelete, admin, idem)

	api.POST("/forms/:id/fields", a.handleFormFieldCreate, editor, idem)
	api.DELETE("/fields/:id", a.handleFormFieldDelete, editor, idem)
}

// enrichLogContext stamps the resolved identity and tenant onto the request
// context so structured logs pick them up.
func enrichLogContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			var userID, organizationID string
			if id, ok := authz.IdentityFromContext(ctx); ok {
				userID = id.UserID
			}
			if org, ok := tenancy.OrganizationFromContext(ctx); ok {
				organizationID = org
			}
			c.SetRequest(c.Request().WithContext(observability.WithRequestIdentity(ctx, userID, organizationID)))
			return next(c)
		}
	}
}
