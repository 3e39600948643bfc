package authz

// Operation classifies what the caller wants to do to one resource.
type Operation int

const (
	OpRead Operation = iota + 1
	OpWrite
	OpDelete
)

func (o Operation) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Relationship is the derived ownership link between the requester and a
// specific resource. Computed per decision, never stored.
type Relationship int

const (
	RelNeither Relationship = iota
	RelOwner
	RelAssignee
)

func (r Relationship) String() string {
	switch r {
	case RelOwner:
		return "owner"
	case RelAssignee:
		return "assignee"
	default:
		return "neither"
	}
}

// Ownership is the slice of a resource snapshot the authorizer reads. The
// caller supplies an already-fetched snapshot; the authorizer never fetches
// and never writes.
type Ownership struct {
	CreatedBy  string
	AssignedTo string
}

// Relate computes the requester's relationship to a resource. A user who
// both created and is assigned a resource counts as its owner.
func Relate(userID string, o Ownership) Relationship {
	switch {
	case userID != "" && userID == o.CreatedBy:
		return RelOwner
	case userID != "" && userID == o.AssignedTo:
		return RelAssignee
	default:
		return RelNeither
	}
}

// Reason explains a Decision. Reasons are stable codes suitable for logs;
// they never carry resource detail.
type Reason string

const (
	ReasonAdminOverride  Reason = "admin_override"
	ReasonOwner          Reason = "owner"
	ReasonAssignee       Reason = "assignee"
	ReasonRoleDenied     Reason = "role_denied"
	ReasonNoRelationship Reason = "no_relationship"
	ReasonUnauthorized   Reason = "unauthorized"
	ReasonAuthenticated  Reason = "authenticated"
)

// Decision is the all-or-nothing outcome of one authorization check.
type Decision struct {
	Allow  bool
	Reason Reason
}

func allow(reason Reason) Decision { return Decision{Allow: true, Reason: reason} }
func deny(reason Reason) Decision  { return Decision{Allow: false, Reason: reason} }

func relationReason(rel Relationship) Reason {
	if rel == RelOwner {
		return ReasonOwner
	}
	return ReasonAssignee
}

// Authorize decides whether the identity in actx may perform op on a
// resource with the given ownership. Pure function over its inputs.
//
// The admin bypass is the single unconditional allow in the model and is
// checked first. Delete is admin-only. Write requires Contributor with an
// owner or assignee relationship. Read additionally admits a Viewer who is
// the assignee; viewers have no owner-based rights because they never
// create resources.
func Authorize(actx AuthContext, op Operation, res Ownership) Decision {
	if actx.Role == RoleAdmin {
		return allow(ReasonAdminOverride)
	}

	if op == OpDelete {
		return deny(ReasonRoleDenied)
	}

	rel := Relate(actx.UserID, res)

	switch op {
	case OpWrite:
		if actx.Role == RoleContributor && rel != RelNeither {
			return allow(relationReason(rel))
		}
		if actx.Role == RoleContributor {
			return deny(ReasonNoRelationship)
		}
		return deny(ReasonRoleDenied)

	case OpRead:
		if actx.Role == RoleContributor && rel != RelNeither {
			return allow(relationReason(rel))
		}
		if actx.Role == RoleViewer && rel == RelAssignee {
			return allow(ReasonAssignee)
		}
		if rel == RelNeither {
			return deny(ReasonNoRelationship)
		}
		return deny(ReasonRoleDenied)
	}

	return deny(ReasonRoleDenied)
}
