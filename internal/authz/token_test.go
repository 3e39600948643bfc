package authz

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	testIssuer   = "https://idp.test"
	testAudience = "taskboard-api"
	testKid      = "key-1"
)

// staticSource serves a fixed key map and counts fetches.
type staticSource struct {
	keys  map[string]*rsa.PublicKey
	err   error
	calls int32
}

func (s *staticSource) FetchKeys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return nil, s.err
	}
	return s.keys, nil
}

func (s *staticSource) callCount() int {
	return int(atomic.LoadInt32(&s.calls))
}

func newTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func signTestToken(t *testing.T, key *rsa.PrivateKey, kid string, mutate func(*tokenClaims)) string {
	t.Helper()
	now := time.Now()
	claims := &tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Audience:  jwt.ClaimStrings{testAudience},
			Subject:   "alice-id",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
		},
		Email:  "alice@example.com",
		Groups: []string{"contributor"},
	}
	if mutate != nil {
		mutate(claims)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newTestVerifier(t *testing.T, key *rsa.PrivateKey) (*Verifier, *staticSource) {
	t.Helper()
	source := &staticSource{keys: map[string]*rsa.PublicKey{testKid: &key.PublicKey}}
	keys := NewKeySet(source)
	return NewVerifier(keys, testIssuer, testAudience, time.Hour), source
}

func TestVerify_ValidToken(t *testing.T) {
	key := newTestKey(t)
	v, _ := newTestVerifier(t, key)

	claims, err := v.Verify(context.Background(), signTestToken(t, key, testKid, nil))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "alice-id" {
		t.Fatalf("subject: got %q", claims.Subject)
	}
	if claims.Email != "alice@example.com" {
		t.Fatalf("email: got %q", claims.Email)
	}
	if len(claims.Groups) != 1 || claims.Groups[0] != "contributor" {
		t.Fatalf("groups: got %v", claims.Groups)
	}
}

func TestVerify_MalformedBeforeSignatureWork(t *testing.T) {
	key := newTestKey(t)
	v, source := newTestVerifier(t, key)

	for _, credential := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := v.Verify(context.Background(), credential)
		if !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("Verify(%q): expected ErrTokenMalformed, got %v", credential, err)
		}
	}
	// Structural rejection must not touch the key set.
	if source.callCount() != 0 {
		t.Fatalf("malformed tokens triggered %d key fetches", source.callCount())
	}
}

func TestVerify_Expired(t *testing.T) {
	key := newTestKey(t)
	v, _ := newTestVerifier(t, key)

	// Expired one second ago.
	credential := signTestToken(t, key, testKid, func(c *tokenClaims) {
		c.IssuedAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Second))
	})
	_, err := v.Verify(context.Background(), credential)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerify_TooOld(t *testing.T) {
	key := newTestKey(t)
	v, _ := newTestVerifier(t, key)

	// Issued two hours ago but not yet expired: still rejected by the
	// staleness ceiling (one hour).
	credential := signTestToken(t, key, testKid, func(c *tokenClaims) {
		c.IssuedAt = jwt.NewNumericDate(time.Now().Add(-2 * time.Hour))
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	})
	_, err := v.Verify(context.Background(), credential)
	if !errors.Is(err, ErrTokenTooOld) {
		t.Fatalf("expected ErrTokenTooOld, got %v", err)
	}
}

func TestVerify_IssuerAudienceMismatch(t *testing.T) {
	key := newTestKey(t)
	v, _ := newTestVerifier(t, key)

	badIssuer := signTestToken(t, key, testKid, func(c *tokenClaims) {
		c.Issuer = "https://evil.test"
	})
	if _, err := v.Verify(context.Background(), badIssuer); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("issuer mismatch: expected ErrTokenInvalid, got %v", err)
	}

	badAudience := signTestToken(t, key, testKid, func(c *tokenClaims) {
		c.Audience = jwt.ClaimStrings{"other-api"}
	})
	if _, err := v.Verify(context.Background(), badAudience); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("audience mismatch: expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerify_BadSignature(t *testing.T) {
	key := newTestKey(t)
	v, _ := newTestVerifier(t, key)

	// Signed by a different key under the same kid.
	imposter := newTestKey(t)
	credential := signTestToken(t, imposter, testKid, nil)
	_, err := v.Verify(context.Background(), credential)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerify_UnknownKid(t *testing.T) {
	key := newTestKey(t)
	v, source := newTestVerifier(t, key)

	credential := signTestToken(t, key, "unknown-kid", nil)
	_, err := v.Verify(context.Background(), credential)
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	// The unknown kid triggered exactly one key-set refresh.
	if source.callCount() != 1 {
		t.Fatalf("expected 1 key fetch, got %d", source.callCount())
	}
}

func TestVerify_MissingIssuedAt(t *testing.T) {
	key := newTestKey(t)
	v, _ := newTestVerifier(t, key)

	credential := signTestToken(t, key, testKid, func(c *tokenClaims) {
		c.IssuedAt = nil
	})
	if _, err := v.Verify(context.Background(), credential); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for missing iat, got %v", err)
	}
}
