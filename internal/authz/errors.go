package authz

import "errors"

// Failure taxonomy of the authorization core. Every failure path in this
// package resolves to exactly one of these sentinels (possibly wrapped with
// detail), so callers can branch with errors.Is without string matching.
var (
	// ErrTokenMalformed: the credential is not a three-part signed token.
	// Detected before any cryptographic work.
	ErrTokenMalformed = errors.New("token malformed")

	// ErrKeyNotFound: no verification key matches the token's key id, even
	// after a key-set refresh (or the refresh timed out).
	ErrKeyNotFound = errors.New("verification key not found")

	// ErrTokenInvalid: signature, issuer, or audience mismatch.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrTokenExpired: the expiry claim is in the past.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenTooOld: issued longer ago than the configured staleness
	// ceiling, regardless of expiry.
	ErrTokenTooOld = errors.New("token too old")

	// ErrNoRoleAssigned: the group list contains no recognized role group.
	ErrNoRoleAssigned = errors.New("no role assigned")

	// ErrUnauthorized is the single opaque failure the gateway exposes.
	// The specific cause is logged server-side, never returned to callers.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInternal: key-set fetch transport failure or similar infrastructure
	// fault, as opposed to a verdict about the credential itself.
	ErrInternal = errors.New("authorization internal error")
)
