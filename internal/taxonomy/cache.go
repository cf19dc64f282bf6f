// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// cache.go provides the L1 snapshot cache: the latest taxonomy snapshot
// held in memory behind a TTL. Concurrent requests may race to rebuild an
// expired snapshot; the last writer wins, which is safe because every
// snapshot is internally consistent and rebuilds are idempotent.
package taxonomy

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"citypulse/internal/config"
)

// Source supplies the durable rows a snapshot is built from. *Store is the
// production implementation; tests substitute fixtures.
type Source interface {
	Mode(ctx context.Context) (Mode, error)
	LoadRows(ctx context.Context) ([]Row, error)
	TagUsageCounts(ctx context.Context) (map[uuid.UUID]int, error)
	LegacyCategoryNames(ctx context.Context) ([]string, error)
	LegacyTagNames(ctx context.Context) ([]string, error)
}

// SnapshotCache holds the latest public and admin snapshots, rebuilding
// them lazily from the Source when the TTL expires. The mode (legacy vs
// taxonomy) is decided once per rebuild, not per query.
type SnapshotCache struct {
	source Source
	ttl    time.Duration

	mu     sync.RWMutex
	mode   Mode
	snap   *Snapshot
	admin  *Snapshot
	expiry time.Time
}

// NewSnapshotCache creates a snapshot cache. ttlSeconds is clamped to
// [config.MinTaxonomyTTLSeconds, config.MaxTaxonomyTTLSeconds].
func NewSnapshotCache(source Source, ttlSeconds int) *SnapshotCache {
	if ttlSeconds < config.MinTaxonomyTTLSeconds {
		ttlSeconds = config.MinTaxonomyTTLSeconds
	}
	if ttlSeconds > config.MaxTaxonomyTTLSeconds {
		ttlSeconds = config.MaxTaxonomyTTLSeconds
	}
	return &SnapshotCache{
		source: source,
		ttl:    time.Duration(ttlSeconds) * time.Second,
	}
}

// Get returns the current public snapshot, rebuilding it if the cached one
// expired or forceRefresh is set. Returns ErrUnavailable in legacy mode.
func (c *SnapshotCache) Get(ctx context.Context, forceRefresh bool) (*Snapshot, error) {
	if !forceRefresh {
		if snap, ok, err := c.cached(); ok {
			return snap, err
		}
	}
	snap, _, err := c.rebuild(ctx)
	return snap, err
}

// GetAdmin returns the admin snapshot, which carries event usage counts on
// every node. Same refresh semantics as Get.
func (c *SnapshotCache) GetAdmin(ctx context.Context, forceRefresh bool) (*Snapshot, error) {
	if !forceRefresh {
		c.mu.RLock()
		if !c.expiry.IsZero() && time.Now().Before(c.expiry) {
			mode, admin := c.mode, c.admin
			c.mu.RUnlock()
			if mode == LegacyMode {
				return nil, ErrUnavailable
			}
			return admin, nil
		}
		c.mu.RUnlock()
	}
	_, admin, err := c.rebuild(ctx)
	return admin, err
}

// Mode reports the cached legacy/taxonomy determination, rebuilding when
// the TTL expired. Callers that branch their SQL on the schema shape use
// this instead of probing the catalog themselves, so the decision is made
// once per TTL window. LegacyMode is a valid answer, not an error.
func (c *SnapshotCache) Mode(ctx context.Context) (Mode, error) {
	c.mu.RLock()
	if !c.expiry.IsZero() && time.Now().Before(c.expiry) {
		mode := c.mode
		c.mu.RUnlock()
		return mode, nil
	}
	c.mu.RUnlock()

	if _, _, err := c.rebuild(ctx); err != nil && !errors.Is(err, ErrUnavailable) {
		return LegacyMode, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode, nil
}

// LegacyListing returns the flat category and tag name lists straight from
// the source. Only used on the pre-migration fallback path.
func (c *SnapshotCache) LegacyListing(ctx context.Context) (categories, tags []string, err error) {
	categories, err = c.source.LegacyCategoryNames(ctx)
	if err != nil {
		return nil, nil, err
	}
	tags, err = c.source.LegacyTagNames(ctx)
	if err != nil {
		return nil, nil, err
	}
	return categories, tags, nil
}

// cached returns the non-expired snapshot if one is present. The error is
// ErrUnavailable when legacy mode was the cached determination.
func (c *SnapshotCache) cached() (*Snapshot, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.expiry.IsZero() || !time.Now().Before(c.expiry) {
		return nil, false, nil
	}
	if c.mode == LegacyMode {
		return nil, true, ErrUnavailable
	}
	return c.snap, true, nil
}

// rebuild queries the source and swaps in fresh snapshots. Racing rebuilds
// are harmless: each produces a complete snapshot and the last write wins.
func (c *SnapshotCache) rebuild(ctx context.Context) (*Snapshot, *Snapshot, error) {
	mode, err := c.source.Mode(ctx)
	if err != nil {
		return nil, nil, err
	}

	if mode == LegacyMode {
		c.store(LegacyMode, nil, nil)
		slog.Info("taxonomy snapshot unavailable, legacy mode cached", "ttl", c.ttl)
		return nil, nil, ErrUnavailable
	}

	rows, err := c.source.LoadRows(ctx)
	if err != nil {
		return nil, nil, err
	}
	counts, err := c.source.TagUsageCounts(ctx)
	if err != nil {
		return nil, nil, err
	}

	snap := Build(rows)
	admin := snap.withEventCounts(counts)
	c.store(TaxonomyMode, snap, admin)

	slog.Debug("taxonomy snapshot rebuilt", "version", snap.Version, "ttl", c.ttl)
	return snap, admin, nil
}

func (c *SnapshotCache) store(mode Mode, snap, admin *Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = mode
	c.snap = snap
	c.admin = admin
	c.expiry = time.Now().Add(c.ttl)
}

// TTL reports the effective (clamped) time-to-live.
func (c *SnapshotCache) TTL() time.Duration {
	return c.ttl
}
