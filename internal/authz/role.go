package authz

import "strings"

// Role is the single canonical permission tier active for a request. It is
// always derived from the verified group claims, never stored.
type Role int

const (
	RoleViewer Role = iota + 1
	RoleContributor
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleContributor:
		return "contributor"
	case RoleViewer:
		return "viewer"
	default:
		return "unknown"
	}
}

// roleForGroup maps a raw group name to a Role. Matching is
// case-insensitive; unrecognized groups map to zero.
func roleForGroup(group string) Role {
	switch {
	case strings.EqualFold(group, "admin"):
		return RoleAdmin
	case strings.EqualFold(group, "contributor"):
		return RoleContributor
	case strings.EqualFold(group, "viewer"):
		return RoleViewer
	default:
		return 0
	}
}

// ResolveRole maps a group list to exactly one Role: the highest-priority
// recognized group present, regardless of list order (admin > contributor >
// viewer). An empty or unrecognized list fails with ErrNoRoleAssigned: the
// resolver never defaults; the caller decides what a missing role means.
func ResolveRole(groups []string) (Role, error) {
	var best Role
	for _, g := range groups {
		if r := roleForGroup(g); r > best {
			best = r
		}
	}
	if best == 0 {
		return 0, ErrNoRoleAssigned
	}
	return best, nil
}
