package respcache

import (
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"hearth/internal/logging"
)

// DefaultTTL is how long a completed response is served from cache.
const DefaultTTL = 5 * time.Minute

// Cache maps request fingerprints to previously obtained completions.
// Expiry is passive: a dead entry simply misses on lookup and is overwritten
// by the next store for the same key; no sweeper goroutine runs.
type Cache struct {
	ttl    time.Duration
	store  *gocache.Cache
	logger *slog.Logger
}

// New constructs a cache with the given TTL. A non-positive ttl falls back
// to DefaultTTL.
func New(ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	// Cleanup interval 0 disables the janitor; expired entries are skipped
	// on read instead.
	return &Cache{
		ttl:    ttl,
		store:  gocache.New(ttl, 0),
		logger: logging.NewComponentLogger(logger, "respcache"),
	}
}

// Lookup returns the cached completion for key while its entry is fresh.
func (c *Cache) Lookup(key string) (string, bool) {
	value, found := c.store.Get(key)
	if !found {
		return "", false
	}
	text, ok := value.(string)
	if !ok {
		return "", false
	}
	c.logger.Debug("cache hit", logging.String("key", key))
	return text, true
}

// Store unconditionally overwrites the entry for key with a fresh timestamp.
func (c *Cache) Store(key, value string) {
	c.store.Set(key, value, gocache.DefaultExpiration)
}

// Len reports the number of physically present entries, expired ones
// included. Diagnostic only.
func (c *Cache) Len() int {
	return c.store.ItemCount()
}
