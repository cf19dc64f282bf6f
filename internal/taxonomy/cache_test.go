// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package taxonomy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"citypulse/internal/config"
)

// stubSource is a Source backed by in-memory fixtures, with call counters
// to observe cache behavior.
type stubSource struct {
	mode   Mode
	rows   []Row
	counts map[uuid.UUID]int

	legacyCategories []string
	legacyTags       []string

	modeCalls int
	loadCalls int
}

func (s *stubSource) Mode(ctx context.Context) (Mode, error) {
	s.modeCalls++
	return s.mode, nil
}

func (s *stubSource) LoadRows(ctx context.Context) ([]Row, error) {
	s.loadCalls++
	return s.rows, nil
}

func (s *stubSource) TagUsageCounts(ctx context.Context) (map[uuid.UUID]int, error) {
	return s.counts, nil
}

func (s *stubSource) LegacyCategoryNames(ctx context.Context) ([]string, error) {
	return s.legacyCategories, nil
}

func (s *stubSource) LegacyTagNames(ctx context.Context) ([]string, error) {
	return s.legacyTags, nil
}

func taxonomySource() *stubSource {
	return &stubSource{
		mode:   TaxonomyMode,
		rows:   fixtureRows(),
		counts: map[uuid.UUID]int{technoID: 3},
	}
}

func TestNewSnapshotCacheClampsTTL(t *testing.T) {
	tests := []struct {
		name    string
		seconds int
		want    time.Duration
	}{
		{"below minimum", 10, config.MinTaxonomyTTLSeconds * time.Second},
		{"above maximum", 9999, config.MaxTaxonomyTTLSeconds * time.Second},
		{"in range", 120, 120 * time.Second},
		{"zero", 0, config.MinTaxonomyTTLSeconds * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewSnapshotCache(taxonomySource(), tt.seconds)
			if got := c.TTL(); got != tt.want {
				t.Errorf("TTL: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetServesCachedSnapshot(t *testing.T) {
	src := taxonomySource()
	c := NewSnapshotCache(src, 120)
	ctx := context.Background()

	first, err := c.Get(ctx, false)
	if err != nil {
		t.Fatalf("first get: %v", err)
	}
	second, err := c.Get(ctx, false)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}

	if src.loadCalls != 1 {
		t.Errorf("load calls: got %d, want 1", src.loadCalls)
	}
	if first != second {
		t.Error("second get should return the cached snapshot")
	}
	if first.Version != second.Version {
		t.Errorf("versions differ: %q vs %q", first.Version, second.Version)
	}
}

func TestGetForceRefresh(t *testing.T) {
	src := taxonomySource()
	c := NewSnapshotCache(src, 120)
	ctx := context.Background()

	if _, err := c.Get(ctx, false); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := c.Get(ctx, true); err != nil {
		t.Fatalf("force refresh: %v", err)
	}
	if src.loadCalls != 2 {
		t.Errorf("load calls: got %d, want 2", src.loadCalls)
	}
}

func TestGetRebuildsAfterExpiry(t *testing.T) {
	src := taxonomySource()
	c := NewSnapshotCache(src, 120)
	ctx := context.Background()

	if _, err := c.Get(ctx, false); err != nil {
		t.Fatalf("get: %v", err)
	}

	// Expire the cached snapshot by hand instead of sleeping.
	c.mu.Lock()
	c.expiry = time.Now().Add(-time.Second)
	c.mu.Unlock()

	if _, err := c.Get(ctx, false); err != nil {
		t.Fatalf("get after expiry: %v", err)
	}
	if src.loadCalls != 2 {
		t.Errorf("load calls: got %d, want 2", src.loadCalls)
	}
}

func TestLegacyModeCached(t *testing.T) {
	src := &stubSource{
		mode:             LegacyMode,
		legacyCategories: []string{"music", "nightlife"},
		legacyTags:       []string{"electronic", "vip"},
	}
	c := NewSnapshotCache(src, 120)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := c.Get(ctx, false); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("get %d: got %v, want ErrUnavailable", i, err)
		}
	}
	// The legacy determination itself is cached for the TTL.
	if src.modeCalls != 1 {
		t.Errorf("mode calls: got %d, want 1", src.modeCalls)
	}

	cats, tags, err := c.LegacyListing(ctx)
	if err != nil {
		t.Fatalf("legacy listing: %v", err)
	}
	if len(cats) != 2 || len(tags) != 2 {
		t.Errorf("legacy listing: got %v, %v", cats, tags)
	}
}

func TestModeUsesCachedDetermination(t *testing.T) {
	ctx := context.Background()

	t.Run("taxonomy mode decided once per TTL window", func(t *testing.T) {
		src := taxonomySource()
		c := NewSnapshotCache(src, 120)

		for i := 0; i < 3; i++ {
			mode, err := c.Mode(ctx)
			if err != nil {
				t.Fatalf("mode %d: %v", i, err)
			}
			if mode != TaxonomyMode {
				t.Fatalf("mode %d: got %v, want TaxonomyMode", i, mode)
			}
		}
		if src.modeCalls != 1 {
			t.Errorf("mode calls: got %d, want 1", src.modeCalls)
		}
	})

	t.Run("legacy mode is an answer, not an error", func(t *testing.T) {
		src := &stubSource{mode: LegacyMode}
		c := NewSnapshotCache(src, 120)

		for i := 0; i < 3; i++ {
			mode, err := c.Mode(ctx)
			if err != nil {
				t.Fatalf("mode %d: %v", i, err)
			}
			if mode != LegacyMode {
				t.Fatalf("mode %d: got %v, want LegacyMode", i, mode)
			}
		}
		if src.modeCalls != 1 {
			t.Errorf("mode calls: got %d, want 1", src.modeCalls)
		}
	})

	t.Run("shares the rebuild with Get", func(t *testing.T) {
		src := taxonomySource()
		c := NewSnapshotCache(src, 120)

		if _, err := c.Mode(ctx); err != nil {
			t.Fatalf("mode: %v", err)
		}
		if _, err := c.Get(ctx, false); err != nil {
			t.Fatalf("get: %v", err)
		}
		if src.modeCalls != 1 || src.loadCalls != 1 {
			t.Errorf("calls: mode %d, load %d, want 1 and 1", src.modeCalls, src.loadCalls)
		}
	})
}

func TestGetAdminCarriesEventCounts(t *testing.T) {
	src := taxonomySource()
	c := NewSnapshotCache(src, 120)
	ctx := context.Background()

	admin, err := c.GetAdmin(ctx, false)
	if err != nil {
		t.Fatalf("get admin: %v", err)
	}
	if admin.Categories[0].EventCount != 3 {
		t.Errorf("music count: got %d, want 3", admin.Categories[0].EventCount)
	}

	// The public snapshot from the same rebuild must not carry counts.
	snap, err := c.Get(ctx, false)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if snap.Categories[0].EventCount != 0 {
		t.Errorf("public count: got %d, want 0", snap.Categories[0].EventCount)
	}
	if src.loadCalls != 1 {
		t.Errorf("load calls: got %d, want 1", src.loadCalls)
	}
}
