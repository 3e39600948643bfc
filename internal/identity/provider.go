package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"taskboard-backend/internal/authz"
	"taskboard-backend/internal/config"
)

// Provider is the embedded identity provider of the demo deployment: it
// signs access tokens with an RS256 key generated at startup and publishes
// the matching public key as a JWKS document. In a real deployment this
// whole package is replaced by an external IdP and the verifier points its
// key-set source at that IdP's JWKS URL.
type Provider struct {
	cfg config.IdentityConfig
	key *rsa.PrivateKey
	kid string
}

type accessClaims struct {
	jwt.RegisteredClaims
	Email  string   `json:"email,omitempty"`
	Groups []string `json:"groups,omitempty"`
}

func NewProvider(cfg config.IdentityConfig) (*Provider, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return &Provider{
		cfg: cfg,
		key: key,
		kid: uuid.New().String(),
	}, nil
}

// SignAccessToken issues a signed access token carrying the user's group
// memberships. The groups claim is what the authorization core later
// resolves into a Role.
func (p *Provider) SignAccessToken(userID, email string, groups []string) (string, error) {
	now := time.Now()
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.cfg.Issuer,
			Audience:  jwt.ClaimStrings{p.cfg.Audience},
			Subject:   userID,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.cfg.AccessTokenTTL)),
		},
		Email:  email,
		Groups: groups,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = p.kid

	signed, err := token.SignedString(p.key)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// GenerateRefreshToken creates a new opaque UUID refresh token.
func GenerateRefreshToken() string {
	return uuid.New().String()
}

// FetchKeys implements authz.KeySetSource, letting the verifier consume
// this provider's keys directly in the single-binary setup.
func (p *Provider) FetchKeys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	return map[string]*rsa.PublicKey{p.kid: &p.key.PublicKey}, nil
}

// JWKS returns the public key set document served at the well-known URL.
func (p *Provider) JWKS() authz.JSONWebKeySet {
	pub := p.key.PublicKey
	return authz.JSONWebKeySet{Keys: []authz.JSONWebKey{{
		Kty: "RSA",
		Kid: p.kid,
		Use: "sig",
		Alg: "RS256",
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}}}
}
