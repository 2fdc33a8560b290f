package geocode

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Cache stores geocode results keyed by normalized place name hash.
// Implementations must tolerate concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (*Result, bool, error)
	Put(ctx context.Context, key string, r *Result) error
	Close() error
}

// Normalize canonicalizes a place name for cache keying: trimmed,
// lowercased, diacritics stripped, interior whitespace collapsed.
func Normalize(place string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, place)
	if err != nil {
		stripped = place
	}
	return strings.Join(strings.Fields(strings.ToLower(stripped)), " ")
}

// CacheKey returns the SHA-256 hex of the normalized place name.
func CacheKey(place string) string {
	h := sha256.Sum256([]byte(Normalize(place)))
	return fmt.Sprintf("%x", h)
}

// MemoryCache is a process-local Cache. It is the default backend and is
// discarded at the end of a pipeline run.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Result
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Result)}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) (*Result, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	out := r
	return &out, true, nil
}

// Put implements Cache.
func (c *MemoryCache) Put(_ context.Context, key string, r *Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = *r
	return nil
}

// Close implements Cache.
func (c *MemoryCache) Close() error { return nil }

// CachedClient wraps a Client with a Cache. Non-matches are cached too so
// repeated misses skip the network.
type CachedClient struct {
	inner Client
	cache Cache
}

// NewCachedClient wraps client with cache.
func NewCachedClient(client Client, cache Cache) *CachedClient {
	return &CachedClient{inner: client, cache: cache}
}

// Geocode implements Client, consulting the cache first.
func (c *CachedClient) Geocode(ctx context.Context, place string) (*Result, error) {
	key := CacheKey(place)

	cached, ok, err := c.cache.Get(ctx, key)
	if err == nil && ok {
		zap.L().Debug("geocode cache hit",
			zap.String("key", key[:12]),
			zap.Bool("matched", cached.Matched),
		)
		return cached, nil
	}

	result, err := c.inner.Geocode(ctx, place)
	if err != nil {
		return nil, err
	}

	if putErr := c.cache.Put(ctx, key, result); putErr != nil {
		zap.L().Warn("geocode cache store failed", zap.Error(putErr))
	}
	return result, nil
}
