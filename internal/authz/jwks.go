package authz

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"
)

// JSONWebKey is the subset of RFC 7517 this core consumes: RSA signing
// keys identified by kid.
type JSONWebKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid,omitempty"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`
	N   string `json:"n,omitempty"`
	E   string `json:"e,omitempty"`
}

// JSONWebKeySet is a JWKS document as published by the identity provider.
type JSONWebKeySet struct {
	Keys []JSONWebKey `json:"keys"`
}

// HTTPKeySetSource fetches a JWKS document over HTTP. It implements
// KeySetSource for an external identity provider.
type HTTPKeySetSource struct {
	url    string
	client *http.Client
}

func NewHTTPKeySetSource(url string) *HTTPKeySetSource {
	return &HTTPKeySetSource{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewHTTPKeySetSourceWithClient uses a caller-supplied HTTP client.
func NewHTTPKeySetSourceWithClient(url string, client *http.Client) *HTTPKeySetSource {
	return &HTTPKeySetSource{url: url, client: client}
}

// FetchKeys downloads and parses the JWKS document, returning usable RSA
// keys indexed by kid. Non-RSA or unparsable entries are skipped.
func (s *HTTPKeySetSource) FetchKeys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create JWKS request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read JWKS response: %w", err)
	}

	var jwks JSONWebKeySet
	if err := json.Unmarshal(body, &jwks); err != nil {
		return nil, fmt.Errorf("parse JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, jwk := range jwks.Keys {
		if jwk.Kty != "RSA" || jwk.Kid == "" {
			continue
		}
		pub, err := jwk.RSAPublicKey()
		if err != nil {
			continue
		}
		keys[jwk.Kid] = pub
	}
	return keys, nil
}

// RSAPublicKey decodes the n/e components into an rsa.PublicKey.
func (jwk JSONWebKey) RSAPublicKey() (*rsa.PublicKey, error) {
	if jwk.Kty != "RSA" {
		return nil, fmt.Errorf("key type is not RSA: %s", jwk.Kty)
	}

	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}

	e := 0
	for _, b := range eBytes {
		e = e<<8 + int(b)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}, nil
}
