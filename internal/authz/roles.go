package authz

import "strings"

// Role is an organization-scoped role. Roles are totally ordered:
// OrgAdmin > Editor > Viewer.
type Role string

const (
	RoleOrgAdmin Role = "admin"
	RoleEditor   Role = "editor"
	RoleViewer   Role = "viewer"
)

var roleRanks = map[Role]int{
	RoleOrgAdmin: 3,
	RoleEditor:   2,
	RoleViewer:   1,
}

// Rank returns the role's position in the hierarchy; unknown roles rank 0.
func (r Role) Rank() int {
	return roleRanks[r]
}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	return r.Rank() > 0
}

// ParseRole normalizes a stored or user-supplied role string.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	return role, role.Valid()
}

// minRank returns the lowest rank among the declared roles: holding any role
// at or above it is sufficient.
func minRank(roles []Role) int {
	min := 0
	for _, role := range roles {
		rank := role.Rank()
		if rank == 0 {
			continue
		}
		if min == 0 || rank < min {
			min = rank
		}
	}
	return min
}
