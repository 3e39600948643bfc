package authz

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
)

func jwkFor(kid string, pub *rsa.PublicKey) JSONWebKey {
	return JSONWebKey{
		Kty: "RSA",
		Kid: kid,
		Use: "sig",
		Alg: "RS256",
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

func TestHTTPKeySetSource_FetchKeys(t *testing.T) {
	key := newTestKey(t)
	doc := JSONWebKeySet{Keys: []JSONWebKey{
		jwkFor("key-1", &key.PublicKey),
		{Kty: "EC", Kid: "ec-key"},    // skipped: not RSA
		{Kty: "RSA", N: "x", E: "x"},  // skipped: no kid
		{Kty: "RSA", Kid: "bad", N: "!!!", E: "!!!"}, // skipped: undecodable
	}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(doc)
	}))
	defer srv.Close()

	source := NewHTTPKeySetSource(srv.URL)
	keys, err := source.FetchKeys(context.Background())
	if err != nil {
		t.Fatalf("FetchKeys: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected 1 usable key, got %d", len(keys))
	}

	got, ok := keys["key-1"]
	if !ok {
		t.Fatal("key-1 missing")
	}
	if got.N.Cmp(key.PublicKey.N) != 0 || got.E != key.PublicKey.E {
		t.Fatal("decoded key does not match the original")
	}
}

func TestHTTPKeySetSource_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := NewHTTPKeySetSource(srv.URL).FetchKeys(context.Background()); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestHTTPKeySetSource_GarbageBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	if _, err := NewHTTPKeySetSource(srv.URL).FetchKeys(context.Background()); err == nil {
		t.Fatal("expected error on unparsable body")
	}
}
