package authz

// AuthContext is the per-request identity bundle produced by the gateway
// once token verification and role resolution succeed. It is passed by
// value and never mutated; downstream handlers trust it and do not
// re-verify the credential.
type AuthContext struct {
	UserID string
	Email  string
	Role   Role
	Groups []string
}
