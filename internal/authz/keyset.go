package authz

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// KeySetSource is the pull capability the identity provider exposes: fetch
// the current set of verification keys, indexed by key id.
type KeySetSource interface {
	FetchKeys(ctx context.Context) (map[string]*rsa.PublicKey, error)
}

const (
	defaultKeyTTL          = 10 * time.Minute
	defaultRefreshCooldown = 30 * time.Second
	defaultRefreshTimeout  = 5 * time.Second
)

var errRefreshOnCooldown = errors.New("key refresh on cooldown")

// KeySet caches verification keys by key id. It is the only cross-request
// mutable state in the authorization core: reads are concurrent, and at most
// one fetch is in flight at a time. Concurrent requests hitting an unknown
// kid await the same fetch rather than issuing duplicates.
type KeySet struct {
	source   KeySetSource
	ttl      time.Duration
	cooldown time.Duration
	timeout  time.Duration
	now      func() time.Time

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
	misses    map[string]time.Time // last refresh attempt per kid

	group singleflight.Group
}

// KeySetOption configures a KeySet.
type KeySetOption func(*KeySet)

// WithKeyTTL sets how long a fetched key set is considered fresh.
func WithKeyTTL(ttl time.Duration) KeySetOption {
	return func(s *KeySet) { s.ttl = ttl }
}

// WithRefreshCooldown sets the minimum interval between refreshes triggered
// by the same key id.
func WithRefreshCooldown(d time.Duration) KeySetOption {
	return func(s *KeySet) { s.cooldown = d }
}

// WithRefreshTimeout bounds a single key-set fetch.
func WithRefreshTimeout(d time.Duration) KeySetOption {
	return func(s *KeySet) { s.timeout = d }
}

// WithKeyClock overrides the clock, for tests.
func WithKeyClock(now func() time.Time) KeySetOption {
	return func(s *KeySet) { s.now = now }
}

func NewKeySet(source KeySetSource, opts ...KeySetOption) *KeySet {
	s := &KeySet{
		source:   source,
		ttl:      defaultKeyTTL,
		cooldown: defaultRefreshCooldown,
		timeout:  defaultRefreshTimeout,
		now:      time.Now,
		misses:   make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the verification key for kid. A cache hit on a fresh set
// answers immediately. An unknown kid or a stale set triggers a refresh,
// rate-limited to one attempt per cooldown window per kid; if the cache
// still lacks the kid afterwards the lookup fails with ErrKeyNotFound.
// A cached key keeps serving when a refresh fails or is on cooldown.
func (s *KeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	s.mu.RLock()
	key, ok := s.keys[kid]
	fresh := s.keys != nil && s.now().Sub(s.fetchedAt) <= s.ttl
	s.mu.RUnlock()

	if ok && fresh {
		return key, nil
	}

	err := s.refresh(ctx, kid)

	// The cache after the refresh is authoritative either way: a failed or
	// suppressed refresh leaves the previous set in place, so a stale key
	// still verifies, while a successful refresh that rotated the kid out
	// correctly rejects it below.
	s.mu.RLock()
	key, ok = s.keys[kid]
	s.mu.RUnlock()
	if ok {
		return key, nil
	}

	if err != nil {
		if errors.Is(err, errRefreshOnCooldown) {
			return nil, fmt.Errorf("%w: kid %q (refresh on cooldown)", ErrKeyNotFound, kid)
		}
		return nil, err
	}
	return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
}

// allowAttempt records a refresh attempt for kid and reports whether it may
// proceed, or is suppressed by the cooldown window.
func (s *KeySet) allowAttempt(kid string) bool {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, seen := s.misses[kid]; seen && now.Sub(last) < s.cooldown {
		return false
	}
	s.misses[kid] = now
	return true
}

// refresh fetches the key set, coalescing concurrent callers onto a single
// in-flight fetch. The cooldown gate runs inside the flight so that callers
// arriving while a fetch is underway join it instead of being turned away.
// The fetch itself is detached from any one caller's context: a cancelled
// request aborts its own wait without killing the fetch other requests are
// awaiting. A transient fetch failure is retried once before surfacing.
func (s *KeySet) refresh(ctx context.Context, kid string) error {
	ch := s.group.DoChan("refresh", func() (any, error) {
		if !s.allowAttempt(kid) {
			return nil, errRefreshOnCooldown
		}

		fctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		keys, err := s.source.FetchKeys(fctx)
		if err != nil {
			keys, err = s.source.FetchKeys(fctx)
		}
		if err != nil {
			// A fetch that cannot complete (timeout, transport failure) is an
			// infrastructure fault, not a verdict about the kid. ErrKeyNotFound
			// stays reserved for a set that genuinely lacks the key.
			return nil, fmt.Errorf("%w: fetch key set: %v", ErrInternal, err)
		}

		s.mu.Lock()
		s.keys = keys
		s.fetchedAt = s.now()
		s.mu.Unlock()
		return nil, nil
	})

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: refresh wait aborted: %v", ErrKeyNotFound, ctx.Err())
	case res := <-ch:
		return res.Err
	}
}
