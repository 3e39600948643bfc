package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the verified facts extracted from a bearer credential.
// Immutable once parsed.
type Claims struct {
	Subject   string
	Email     string
	Groups    []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// tokenClaims is the wire shape of the access token payload.
type tokenClaims struct {
	jwt.RegisteredClaims
	Email  string   `json:"email,omitempty"`
	Groups []string `json:"groups,omitempty"`
}

// Verifier validates bearer credentials against a cached key set and the
// configured issuer/audience, applying the expiry and staleness checks in a
// fixed order: structure, signature, issuer, audience, expiry, age.
type Verifier struct {
	keys     *KeySet
	issuer   string
	audience string
	maxAge   time.Duration
	now      func() time.Time
	parser   *jwt.Parser
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithClock overrides the verifier's clock, for tests.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) { v.now = now }
}

func NewVerifier(keys *KeySet, issuer, audience string, maxAge time.Duration, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		keys:     keys,
		issuer:   issuer,
		audience: audience,
		maxAge:   maxAge,
		now:      time.Now,
		// Claims are validated by hand below so each check maps to its own
		// failure kind instead of jwt's combined validation error.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks the credential and returns its Claims, or exactly one of
// the taxonomy sentinels (wrapped with detail).
func (v *Verifier) Verify(ctx context.Context, credential string) (*Claims, error) {
	// Structural check before any cryptographic work.
	if strings.Count(credential, ".") != 2 {
		return nil, fmt.Errorf("%w: not a three-part signed token", ErrTokenMalformed)
	}

	claims := &tokenClaims{}
	_, err := v.parser.ParseWithClaims(credential, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("%w: missing kid header", ErrKeyNotFound)
		}
		return v.keys.Key(ctx, kid)
	})
	if err != nil {
		return nil, mapParseError(err)
	}

	if claims.Issuer != v.issuer {
		return nil, fmt.Errorf("%w: issuer mismatch", ErrTokenInvalid)
	}
	if !audienceContains(claims.Audience, v.audience) {
		return nil, fmt.Errorf("%w: audience mismatch", ErrTokenInvalid)
	}

	now := v.now()
	if claims.ExpiresAt == nil || !now.Before(claims.ExpiresAt.Time) {
		return nil, fmt.Errorf("%w", ErrTokenExpired)
	}
	if claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing issued-at claim", ErrTokenInvalid)
	}
	if v.maxAge > 0 && now.Sub(claims.IssuedAt.Time) > v.maxAge {
		return nil, fmt.Errorf("%w: issued %s ago", ErrTokenTooOld, now.Sub(claims.IssuedAt.Time).Round(time.Second))
	}

	return &Claims{
		Subject:   claims.Subject,
		Email:     claims.Email,
		Groups:    claims.Groups,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// mapParseError folds jwt parser failures into the package taxonomy.
// Keyfunc errors already carry a sentinel and pass through unchanged.
func mapParseError(err error) error {
	switch {
	case errors.Is(err, ErrKeyNotFound), errors.Is(err, ErrInternal):
		return err
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	default:
		// Signature failures and any other parse-level rejection.
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
}

func audienceContains(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}
