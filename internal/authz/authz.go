// Package authz decides whether an authenticated caller may use a route,
// based on the role hierarchy and a static per-route capability table.
package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/fieldline-io/fieldline/internal/app/ports"
	"github.com/fieldline-io/fieldline/internal/tenancy"
)

// ErrMissingIdentity is returned when a protected route has no authenticated caller.
var ErrMissingIdentity = errors.New("authenticated identity required")

// ErrNoMembership is returned when the caller has no membership in the tenant organization.
var ErrNoMembership = errors.New("no membership in organization")

// ErrInsufficientRole is returned when the caller's role ranks below the route requirement.
var ErrInsufficientRole = errors.New("insufficient role")

// Mode selects how memberships are looked up for a capability.
type Mode int

const (
	// ModeOrgScoped checks the caller's single membership in the tenant org.
	ModeOrgScoped Mode = iota
	// ModeGlobalAdmin grants access if any of the caller's memberships
	// satisfies the requirement, regardless of the tenant org. Used for
	// operations not scoped to an existing tenant, such as creating a new
	// organization.
	ModeGlobalAdmin
)

// Capability is a route's statically declared authorization requirement.
// An empty Roles slice grants access unconditionally. When several roles are
// declared, satisfying the lowest-ranked one is sufficient.
type Capability struct {
	Mode  Mode
	Roles []Role
}

// MembershipSource is the single persistence read the authorizer performs.
type MembershipSource interface {
	GetMembership(ctx context.Context, organizationID, userID string) (ports.Membership, error)
	ListMembershipsByUser(ctx context.Context, userID string) ([]ports.Membership, error)
}

// Authorizer evaluates capabilities against stored memberships. Membership
// rows are the sole authority: role claims carried by the token are never
// trusted for resource-level decisions.
type Authorizer struct {
	memberships MembershipSource
}

func New(memberships MembershipSource) *Authorizer {
	return &Authorizer{memberships: memberships}
}

// Authorize applies the capability for the given caller and tenant.
func (a *Authorizer) Authorize(ctx context.Context, capability Capability, organizationID, userID string) error {
	required := minRank(capability.Roles)
	if required == 0 {
		return nil
	}

	switch capability.Mode {
	case ModeGlobalAdmin:
		memberships, err := a.memberships.ListMembershipsByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("list memberships: %w", err)
		}
		for _, m := range memberships {
			if Role(m.Role).Rank() >= required {
				return nil
			}
		}
		if len(memberships) == 0 {
			return ErrNoMembership
		}
		return ErrInsufficientRole
	default:
		m, err := a.memberships.GetMembership(ctx, organizationID, userID)
		if err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return ErrNoMembership
			}
			return fmt.Errorf("get membership: %w", err)
		}
		if Role(m.Role).Rank() < required {
			return ErrInsufficientRole
		}
		return nil
	}
}

// Require returns route middleware enforcing the capability. It expects the
// tenancy and identity middlewares to have run first.
func (a *Authorizer) Require(capability Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(capability.Roles) == 0 {
				return next(c)
			}
			ctx := c.Request().Context()
			id, ok := IdentityFromContext(ctx)
			if !ok {
				return ErrMissingIdentity
			}
			organizationID, _ := tenancy.OrganizationFromContext(ctx)
			if capability.Mode == ModeOrgScoped && organizationID == "" {
				return tenancy.ErrTenantMissing
			}
			if err := a.Authorize(ctx, capability, organizationID, id.UserID); err != nil {
				return err
			}
			return next(c)
		}
	}
}
