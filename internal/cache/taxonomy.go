// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// taxonomy.go provides a Valkey-backed cache for the serialized taxonomy
// response (L2). The in-memory snapshot cache (L1) avoids database reads;
// this layer additionally skips JSON encoding of the tree on repeat
// requests. Keys include the snapshot version, so a rebuilt taxonomy is a
// natural cache miss and stale entries simply age out via TTL.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// taxonomyKeyPrefix is the Valkey key prefix for cached taxonomy payloads.
	taxonomyKeyPrefix = "taxonomy:"

	// DefaultTaxonomyTTL is how long a serialized payload stays cached.
	DefaultTaxonomyTTL = 5 * time.Minute
)

// TaxonomyCache stores serialized taxonomy responses in Valkey, keyed by
// snapshot version.
type TaxonomyCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTaxonomyCache creates a taxonomy payload cache backed by the given
// Valkey client.
func NewTaxonomyCache(client *redis.Client, ttl time.Duration) *TaxonomyCache {
	if ttl == 0 {
		ttl = DefaultTaxonomyTTL
	}
	return &TaxonomyCache{client: client, ttl: ttl}
}

// Get retrieves the cached payload for a snapshot version. Returns false on miss.
func (tc *TaxonomyCache) Get(ctx context.Context, version string) ([]byte, bool) {
	val, err := tc.client.Get(ctx, taxonomyKeyPrefix+version).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		slog.Warn("taxonomy cache get error", "version", version, "error", err)
		return nil, false
	}
	slog.Debug("taxonomy cache hit", "version", version)
	return val, true
}

// Set stores a serialized payload for a snapshot version with the configured TTL.
func (tc *TaxonomyCache) Set(ctx context.Context, version string, payload []byte) {
	if err := tc.client.Set(ctx, taxonomyKeyPrefix+version, payload, tc.ttl).Err(); err != nil {
		slog.Warn("taxonomy cache set error", "version", version, "error", err)
	}
}

// InvalidateAll removes every cached taxonomy payload by scanning for the
// key prefix. The migration CLI calls this after a committed run: the new
// hierarchy produces a new snapshot version, but clearing the old payloads
// means clients stop seeing the pre-migration tree immediately instead of
// waiting out the TTL.
func (tc *TaxonomyCache) InvalidateAll(ctx context.Context) {
	var cursor uint64
	var deleted int
	for {
		keys, nextCursor, err := tc.client.Scan(ctx, cursor, taxonomyKeyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("taxonomy cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := tc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("taxonomy cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Info("taxonomy cache cleared", "deleted", deleted)
	}
}
