package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"strings"
	"time"

	"github.com/giftlist/quickadd/internal/shared/models"
)

// Store is the persistence surface the cache needs
type Store interface {
	GetLookup(ctx context.Context, queryHash string) (*models.CachedLookup, error)
	UpsertLookup(ctx context.Context, lookup *models.CachedLookup) error
	DeleteLookup(ctx context.Context, queryHash string) error
	IncrementHitCount(ctx context.Context, queryHash string) error
}

// Cache is the shared lookup cache. Keys are derived from the query text
// alone, never the user, so one user's paid lookup serves everyone's repeats.
type Cache struct {
	store Store
	ttl   time.Duration
}

// New creates a cache with the given entry TTL
func New(store Store, ttl time.Duration) *Cache {
	return &Cache{store: store, ttl: ttl}
}

// QueryHash fingerprints a query. Case and surrounding whitespace do not
// affect the key.
func QueryHash(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:])
}

// Get returns the cached payload for a query, or nil on a miss. Expired
// entries are deleted on read. Any store error degrades to a miss; a cache
// outage means recomputing, never failing the request.
func (c *Cache) Get(ctx context.Context, query string) *models.SuggestionPayload {
	hash := QueryHash(query)

	lookup, err := c.store.GetLookup(ctx, hash)
	if err != nil {
		log.Printf("cache lookup error: %v", err)
		return nil
	}
	if lookup == nil {
		return nil
	}

	if time.Now().After(lookup.ExpiresAt) {
		// Expired - delete it
		if err := c.store.DeleteLookup(ctx, hash); err != nil {
			log.Printf("cache delete error: %v", err)
		}
		return nil
	}

	if err := c.store.IncrementHitCount(ctx, hash); err != nil {
		log.Printf("cache hit count error: %v", err)
	}

	return lookup.Payload
}

// Set stores a payload for a query, best-effort. Write errors are logged and
// swallowed; caching is an optimization, not a correctness requirement.
func (c *Cache) Set(ctx context.Context, query string, payload *models.SuggestionPayload) {
	now := time.Now()
	lookup := &models.CachedLookup{
		QueryHash: QueryHash(query),
		QueryText: query,
		Payload:   payload,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
		HitCount:  0,
	}

	if err := c.store.UpsertLookup(ctx, lookup); err != nil {
		log.Printf("cache store error: %v", err)
	}
}
