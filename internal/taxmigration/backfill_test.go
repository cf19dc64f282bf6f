// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package taxmigration

import (
	"sort"
	"testing"

	"github.com/google/uuid"

	"citypulse/internal/models"
)

func TestNormalizeLegacyTagKeys(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		slugs []string
		want  []string
	}{
		{
			name:  "names are slugified",
			names: []string{"Drum & Bass", "  Techno  "},
			want:  []string{"drum-bass", "techno"},
		},
		{
			name:  "slugs are lowercased as-is",
			slugs: []string{"VIP", "stand-up"},
			want:  []string{"stand-up", "vip"},
		},
		{
			name:  "names and slugs merge without duplicates",
			names: []string{"Techno"},
			slugs: []string{"techno", "vip"},
			want:  []string{"techno", "vip"},
		},
		{
			name:  "empty values are dropped",
			names: []string{"", "  ", "!!!"},
			slugs: []string{""},
			want:  []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys := normalizeLegacyTagKeys(tt.names, tt.slugs)
			got := sortedKeys(keys)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("key %d: got %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestResolveLegacyKey(t *testing.T) {
	vipClubs := uuid.New()
	vipOther := uuid.New()
	techno := uuid.New()

	seeded := &seededTaxonomy{
		tagIDs: map[tagKey]uuid.UUID{
			{"nightlife", "clubs", "vip"}: vipClubs,
		},
		tagSlugIndex: map[string][]tagTarget{
			"vip": {
				{"nightlife", "clubs", vipClubs},
				{"other", "other", vipOther},
			},
			"techno": {
				{"music", "electronic", techno},
			},
		},
	}

	t.Run("hint wins over ambiguous slug", func(t *testing.T) {
		target, ok := seeded.resolveLegacyKey("vip")
		if !ok || target.TagID != vipClubs {
			t.Errorf("got %v, %v", target, ok)
		}
	})

	t.Run("unique slug match", func(t *testing.T) {
		target, ok := seeded.resolveLegacyKey("techno")
		if !ok || target.TagID != techno {
			t.Errorf("got %v, %v", target, ok)
		}
		if target.Category != "music" || target.Subcategory != "electronic" {
			t.Errorf("placement: got %s/%s", target.Category, target.Subcategory)
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		if _, ok := seeded.resolveLegacyKey("no-such-tag"); ok {
			t.Error("unknown key should not resolve")
		}
	})
}

func TestChooseBranchVoting(t *testing.T) {
	target := func(cat, sub string) tagTarget {
		return tagTarget{Category: cat, Subcategory: sub, TagID: uuid.New()}
	}

	t.Run("majority wins", func(t *testing.T) {
		branch := chooseBranch([]tagTarget{
			target("nightlife", "clubs"),
			target("music", "electronic"),
			target("music", "electronic"),
		}, "")
		if branch != (branchKey{"music", "electronic"}) {
			t.Errorf("got %v", branch)
		}
	})

	t.Run("tie breaks by category priority", func(t *testing.T) {
		branch := chooseBranch([]tagTarget{
			target("nightlife", "clubs"),
			target("music", "electronic"),
		}, "")
		if branch != (branchKey{"music", "electronic"}) {
			t.Errorf("got %v", branch)
		}
	})

	t.Run("tie within a category breaks lexicographically", func(t *testing.T) {
		branch := chooseBranch([]tagTarget{
			target("music", "electronic"),
			target("music", "classical"),
		}, "")
		if branch != (branchKey{"music", "classical"}) {
			t.Errorf("got %v", branch)
		}
	})
}

func TestChooseBranchFromLegacyCategory(t *testing.T) {
	tests := []struct {
		name     string
		category string
		want     branchKey
	}{
		{"aliased text", "Party", branchKey{"nightlife", "clubs"}},
		{"canonical text", "music", branchKey{"music", "electronic"}},
		{"unknown text", "quantum knitting", branchKey{"other", "other"}},
		{"empty text", "", branchKey{"other", "other"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := chooseBranch(nil, tt.category); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChooseBranchDeterminism(t *testing.T) {
	targets := []tagTarget{
		{"music", "electronic", uuid.New()},
		{"nightlife", "clubs", uuid.New()},
		{"outdoor", "adventure-outdoors", uuid.New()},
	}

	first := chooseBranch(targets, "")
	for i := 0; i < 20; i++ {
		shuffled := append([]tagTarget(nil), targets...)
		sort.Slice(shuffled, func(a, b int) bool {
			return shuffled[a].TagID.String() < shuffled[b].TagID.String()
		})
		if got := chooseBranch(shuffled, ""); got != first {
			t.Fatalf("iteration %d: got %v, want %v", i, got, first)
		}
	}
}

// plannerTaxonomy is a hand-built seeded taxonomy with just the branches
// the reassignment tests need: music/electronic, outdoor/adventure-outdoors,
// and the global catch-all, each with its fallback tag.
type plannerTaxonomy struct {
	seeded *seededTaxonomy

	electronicID uuid.UUID
	technoID     uuid.UUID
	outdoorID    uuid.UUID

	musicFallbackID   uuid.UUID
	outdoorFallbackID uuid.UUID
	unmappedID        uuid.UUID
}

func newPlannerTaxonomy() plannerTaxonomy {
	p := plannerTaxonomy{
		electronicID:      uuid.New(),
		technoID:          uuid.New(),
		outdoorID:         uuid.New(),
		musicFallbackID:   uuid.New(),
		outdoorFallbackID: uuid.New(),
		unmappedID:        uuid.New(),
	}

	musicElectronic := branchKey{"music", "electronic"}
	adventure := branchKey{"outdoor", "adventure-outdoors"}
	catchAll := branchKey{"other", "other"}

	p.seeded = &seededTaxonomy{
		categoryIDs: map[string]uuid.UUID{
			"music":   uuid.New(),
			"outdoor": uuid.New(),
			"other":   uuid.New(),
		},
		categoryNames: map[string]string{
			"music":   "Music",
			"outdoor": "Outdoor",
			"other":   "Other",
		},
		subcategoryIDs: map[branchKey]uuid.UUID{
			musicElectronic: uuid.New(),
			adventure:       uuid.New(),
			catchAll:        uuid.New(),
		},
		tagIDs: map[tagKey]uuid.UUID{
			{"music", "electronic", "electronic"}:        p.electronicID,
			{"music", "electronic", "techno"}:            p.technoID,
			{"outdoor", "adventure-outdoors", "outdoor"}: p.outdoorID,
			{"other", "other", "unmapped"}:               p.unmappedID,
		},
		tagSlugIndex: map[string][]tagTarget{
			"electronic": {{"music", "electronic", p.electronicID}},
			"techno":     {{"music", "electronic", p.technoID}},
			"outdoor":    {{"outdoor", "adventure-outdoors", p.outdoorID}},
		},
		fallbackByBranch: map[branchKey]uuid.UUID{
			musicElectronic: p.musicFallbackID,
			adventure:       p.outdoorFallbackID,
			catchAll:        p.unmappedID,
		},
		globalFallbackTagID: p.unmappedID,
	}
	return p
}

func assertTagIDs(t *testing.T, got, want []uuid.UUID) {
	t.Helper()
	sort.Slice(want, func(i, j int) bool { return want[i].String() < want[j].String() })
	if len(got) != len(want) {
		t.Fatalf("tag IDs: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tag ID %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestPlanEventTagReassignment(t *testing.T) {
	p := newPlannerTaxonomy()

	t.Run("cross-branch tag replaced by branch fallback", func(t *testing.T) {
		plan := planEvent(p.seeded, legacyEventRow{
			ID:       uuid.New(),
			Category: "music",
			TagNames: []string{"electronic", "outdoor"},
		})

		// electronic vs outdoor is a 1-1 branch tie; category priority
		// puts music first.
		if plan.branch != (branchKey{"music", "electronic"}) {
			t.Fatalf("branch: got %v", plan.branch)
		}
		assertTagIDs(t, plan.tagIDs, []uuid.UUID{p.electronicID, p.musicFallbackID})

		if len(plan.audits) != 1 {
			t.Fatalf("audits: got %d, want 1", len(plan.audits))
		}
		a := plan.audits[0]
		if a.legacyKey == nil || *a.legacyKey != "outdoor" {
			t.Errorf("audited key: got %v", a.legacyKey)
		}
		if a.reason != models.AuditReasonMixedBranch {
			t.Errorf("reason: got %q, want %q", a.reason, models.AuditReasonMixedBranch)
		}
		if a.mappedTagID != p.musicFallbackID {
			t.Errorf("mapped tag: got %s, want branch fallback", a.mappedTagID)
		}

		var stats Stats
		plan.count(&stats)
		if stats.TagReplacements != 1 || stats.MixedBranchTags != 1 || stats.UnmappedTags != 0 {
			t.Errorf("stats: got %+v", stats)
		}
	})

	t.Run("unresolved tag replaced with unmapped reason", func(t *testing.T) {
		plan := planEvent(p.seeded, legacyEventRow{
			ID:       uuid.New(),
			Category: "music",
			TagNames: []string{"Techno", "Quantum Knitting"},
		})

		if plan.branch != (branchKey{"music", "electronic"}) {
			t.Fatalf("branch: got %v", plan.branch)
		}
		assertTagIDs(t, plan.tagIDs, []uuid.UUID{p.technoID, p.musicFallbackID})

		if len(plan.audits) != 1 {
			t.Fatalf("audits: got %d, want 1", len(plan.audits))
		}
		a := plan.audits[0]
		if a.legacyKey == nil || *a.legacyKey != "quantum-knitting" {
			t.Errorf("audited key: got %v", a.legacyKey)
		}
		if a.reason != models.AuditReasonUnmapped {
			t.Errorf("reason: got %q, want %q", a.reason, models.AuditReasonUnmapped)
		}

		var stats Stats
		plan.count(&stats)
		if stats.TagReplacements != 1 || stats.UnmappedTags != 1 || stats.MixedBranchTags != 0 {
			t.Errorf("stats: got %+v", stats)
		}
	})

	t.Run("in-branch tags kept without replacement", func(t *testing.T) {
		plan := planEvent(p.seeded, legacyEventRow{
			ID:       uuid.New(),
			Category: "music",
			TagNames: []string{"electronic", "techno"},
		})

		assertTagIDs(t, plan.tagIDs, []uuid.UUID{p.electronicID, p.technoID})
		if len(plan.audits) != 0 {
			t.Errorf("audits: got %v, want none", plan.audits)
		}

		var stats Stats
		plan.count(&stats)
		if stats != (Stats{}) {
			t.Errorf("stats: got %+v, want zero", stats)
		}
	})

	t.Run("event without tags gets the branch fallback", func(t *testing.T) {
		plan := planEvent(p.seeded, legacyEventRow{
			ID:       uuid.New(),
			Category: "music",
		})

		if !plan.noTags {
			t.Error("noTags not set")
		}
		assertTagIDs(t, plan.tagIDs, []uuid.UUID{p.musicFallbackID})
		if len(plan.audits) != 1 || plan.audits[0].reason != models.AuditReasonNoTags {
			t.Fatalf("audits: got %+v", plan.audits)
		}
		if plan.audits[0].legacyKey != nil {
			t.Errorf("audited key: got %q, want nil", *plan.audits[0].legacyKey)
		}

		var stats Stats
		plan.count(&stats)
		if stats.EventsWithNoTags != 1 || stats.TagReplacements != 0 {
			t.Errorf("stats: got %+v", stats)
		}
	})

	t.Run("branch columns follow the chosen branch", func(t *testing.T) {
		plan := planEvent(p.seeded, legacyEventRow{
			ID:       uuid.New(),
			Category: "outdoor",
			TagNames: []string{"outdoor"},
		})

		adventure := branchKey{"outdoor", "adventure-outdoors"}
		if plan.branch != adventure {
			t.Fatalf("branch: got %v", plan.branch)
		}
		if plan.categoryID != p.seeded.categoryIDs["outdoor"] {
			t.Errorf("category ID: got %s", plan.categoryID)
		}
		if plan.subcategoryID != p.seeded.subcategoryIDs[adventure] {
			t.Errorf("subcategory ID: got %s", plan.subcategoryID)
		}
		if plan.categoryName != "Outdoor" {
			t.Errorf("category name: got %q", plan.categoryName)
		}
	})
}

func TestEngineRejectsBadBatchSize(t *testing.T) {
	if _, err := New(nil, 0, false); err == nil {
		t.Error("batch size 0 should be rejected")
	}
	if _, err := New(nil, -5, true); err == nil {
		t.Error("negative batch size should be rejected")
	}
}
