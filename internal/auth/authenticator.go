package auth

import (
	"context"
	"sync"
	"time"
)

// KeyLookup resolves an API key to a vessel id. "" means unknown.
// store.RedisStore satisfies it.
type KeyLookup interface {
	GetAPIKey(ctx context.Context, apiKey string) (string, error)
}

type cacheEntry struct {
	vesselID  string
	expiresAt time.Time
}

type Authenticator struct {
	localCache sync.Map
	lookup     KeyLookup
	ttl        time.Duration
	staticKeys map[string]string
	now        func() time.Time
}

// NewAuthenticator checks static keys, then a TTL cache, then lookup.
// lookup may be nil, leaving only static keys.
func NewAuthenticator(staticKeys map[string]string, lookup KeyLookup, ttl time.Duration) *Authenticator {
	keys := make(map[string]string, len(staticKeys))
	for k, v := range staticKeys {
		if k != "" {
			keys[k] = v
		}
	}

	return &Authenticator{
		lookup:     lookup,
		ttl:        ttl,
		staticKeys: keys,
		now:        time.Now,
	}
}

// Resolve returns the vessel id bound to apiKey.
func (a *Authenticator) Resolve(ctx context.Context, apiKey string) (string, bool) {
	if apiKey == "" {
		return "", false
	}

	// Level 0: static config keys
	if vesselID, ok := a.staticKeys[apiKey]; ok {
		return vesselID, true
	}

	// Level 1: in-memory cache
	if raw, ok := a.localCache.Load(apiKey); ok {
		entry := raw.(cacheEntry)
		if a.now().Before(entry.expiresAt) {
			return entry.vesselID, true
		}
		a.localCache.Delete(apiKey)
	}

	// Level 2: Redis lookup
	if a.lookup == nil {
		return "", false
	}
	vesselID, err := a.lookup.GetAPIKey(ctx, apiKey)
	if err != nil || vesselID == "" {
		return "", false
	}

	a.localCache.Store(apiKey, cacheEntry{
		vesselID:  vesselID,
		expiresAt: a.now().Add(a.ttl),
	})
	return vesselID, true
}

func (a *Authenticator) Validate(ctx context.Context, apiKey string) bool {
	_, ok := a.Resolve(ctx, apiKey)
	return ok
}
