package authz

import (
	"context"
	"log"
)

// Gateway is the coarse per-request gate run by the pipeline before any
// business logic: it verifies the bearer credential, resolves the role, and
// either admits the request with an AuthContext or denies it.
//
// Every verifier and resolver failure is coalesced into the single opaque
// ErrUnauthorized so callers cannot distinguish a bad signature from an
// expired token from a missing role. The specific cause is logged
// server-side only.
type Gateway struct {
	verifier *Verifier
}

func NewGateway(verifier *Verifier) *Gateway {
	return &Gateway{verifier: verifier}
}

// Check evaluates a raw bearer credential. On allow, the returned
// AuthContext is trustworthy for the remainder of the request.
func (g *Gateway) Check(ctx context.Context, credential string) (Decision, AuthContext) {
	claims, err := g.verifier.Verify(ctx, credential)
	if err != nil {
		log.Printf("authz: credential rejected: %v", err)
		return deny(ReasonUnauthorized), AuthContext{}
	}

	role, err := ResolveRole(claims.Groups)
	if err != nil {
		log.Printf("authz: subject %s rejected: %v", claims.Subject, err)
		return deny(ReasonUnauthorized), AuthContext{}
	}

	return allow(ReasonAuthenticated), AuthContext{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   role,
		Groups: claims.Groups,
	}
}
