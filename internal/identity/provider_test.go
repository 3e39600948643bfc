package identity

import (
	"context"
	"encoding/base64"
	"math/big"
	"testing"
	"time"

	"taskboard-backend/internal/authz"
	"taskboard-backend/internal/config"
)

func testProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := NewProvider(config.IdentityConfig{
		Issuer:         "https://idp.test",
		Audience:       "taskboard-api",
		AccessTokenTTL: 15 * time.Minute,
		MaxTokenAge:    time.Hour,
	})
	if err != nil {
		t.Fatalf("create provider: %v", err)
	}
	return p
}

func TestProvider_SignedTokenVerifies(t *testing.T) {
	p := testProvider(t)

	token, err := p.SignAccessToken("alice-id", "alice@example.com", []string{"contributor"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	// The provider is its own key-set source, so a verifier pointed at it
	// accepts the tokens it issues.
	verifier := authz.NewVerifier(authz.NewKeySet(p), "https://idp.test", "taskboard-api", time.Hour)
	claims, err := verifier.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "alice-id" || claims.Email != "alice@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if len(claims.Groups) != 1 || claims.Groups[0] != "contributor" {
		t.Fatalf("unexpected groups: %v", claims.Groups)
	}
	if !claims.ExpiresAt.After(claims.IssuedAt) {
		t.Fatal("expiry not after issuance")
	}
}

func TestProvider_JWKSMatchesSigningKey(t *testing.T) {
	p := testProvider(t)

	doc := p.JWKS()
	if len(doc.Keys) != 1 {
		t.Fatalf("expected 1 key in document, got %d", len(doc.Keys))
	}
	jwk := doc.Keys[0]
	if jwk.Kty != "RSA" || jwk.Alg != "RS256" || jwk.Kid == "" {
		t.Fatalf("unexpected key metadata: %+v", jwk)
	}

	pub, err := jwk.RSAPublicKey()
	if err != nil {
		t.Fatalf("decode published key: %v", err)
	}
	n, _ := base64.RawURLEncoding.DecodeString(jwk.N)
	if pub.N.Cmp(new(big.Int).SetBytes(n)) != 0 {
		t.Fatal("published modulus does not round-trip")
	}

	keys, err := p.FetchKeys(context.Background())
	if err != nil {
		t.Fatalf("FetchKeys: %v", err)
	}
	direct, ok := keys[jwk.Kid]
	if !ok {
		t.Fatalf("kid %q not in fetched set", jwk.Kid)
	}
	if direct.N.Cmp(pub.N) != 0 || direct.E != pub.E {
		t.Fatal("JWKS document and key-set source disagree")
	}
}

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("changeme")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword("changeme", hash) {
		t.Fatal("correct password rejected")
	}
	if CheckPassword("wrong", hash) {
		t.Fatal("wrong password accepted")
	}
}
