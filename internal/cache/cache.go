// Package cache provides the Redis-backed proof result cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rankproof/rankproof/internal/models"
)

// ProofTTL is how long a synthesized proof stays fresh.
const ProofTTL = 24 * time.Hour

// ProofCache stores computed proof bundles keyed by (domain, keyword).
// Entries are shared across requesters; writes are idempotent upserts.
type ProofCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

type Option func(*ProofCache)

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) Option {
	return func(c *ProofCache) { c.prefix = strings.Trim(prefix, ":") }
}

// WithTTL overrides the entry lifetime.
func WithTTL(d time.Duration) Option {
	return func(c *ProofCache) { c.ttl = d }
}

// NewProofCache creates a proof cache on top of an existing Redis client.
func NewProofCache(rdb *redis.Client, opts ...Option) *ProofCache {
	c := &ProofCache{
		rdb:    rdb,
		prefix: "proof",
		ttl:    ProofTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key builds the cache key for a domain/keyword pair.
func (c *ProofCache) Key(domain, keyword string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, domain, keyword)
}

// Get returns the cached bundle, or nil on a miss. Decode failures are
// treated as misses so a poisoned entry falls through to recomputation.
func (c *ProofCache) Get(ctx context.Context, domain, keyword string) (*models.CachedProof, error) {
	data, err := c.rdb.Get(ctx, c.Key(domain, keyword)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get failed: %w", err)
	}

	var cached models.CachedProof
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, nil
	}
	return &cached, nil
}

// Set writes the bundle with the configured TTL.
func (c *ProofCache) Set(ctx context.Context, domain, keyword string, bundle *models.CachedProof) error {
	data, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("cache encode failed: %w", err)
	}
	if err := c.rdb.Set(ctx, c.Key(domain, keyword), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}
