// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handlers_test.go provides shared fixtures: a stub taxonomy source and
// a small two-category hierarchy with an ambiguous tag name.
package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"citypulse/internal/taxonomy"
)

var (
	testMusicID      = uuid.MustParse("10000000-0000-0000-0000-000000000001")
	testNightlifeID  = uuid.MustParse("10000000-0000-0000-0000-000000000002")
	testElectronicID = uuid.MustParse("10000000-0000-0000-0000-000000000011")
	testClubsID      = uuid.MustParse("10000000-0000-0000-0000-000000000012")
	testTechnoID     = uuid.MustParse("10000000-0000-0000-0000-000000000021")
	testVipElecID    = uuid.MustParse("10000000-0000-0000-0000-000000000022")
	testVipClubsID   = uuid.MustParse("10000000-0000-0000-0000-000000000023")
)

// stubSource implements taxonomy.Source from in-memory fixtures.
type stubSource struct {
	mode             taxonomy.Mode
	rows             []taxonomy.Row
	counts           map[uuid.UUID]int
	legacyCategories []string
	legacyTags       []string
}

func (s *stubSource) Mode(ctx context.Context) (taxonomy.Mode, error) {
	return s.mode, nil
}

func (s *stubSource) LoadRows(ctx context.Context) ([]taxonomy.Row, error) {
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

func testRow(catID uuid.UUID, catName, catSlug string, subID uuid.UUID, subName, subSlug string, tagID uuid.UUID, tagName, tagSlug string) taxonomy.Row {
	created := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	return taxonomy.Row{
		CategoryID:        catID,
		CategoryName:      catName,
		CategorySlug:      catSlug,
		CategoryCreatedAt: created,

		SubcategoryID:        &subID,
		SubcategoryName:      &subName,
		SubcategorySlug:      &subSlug,
		SubcategoryCreatedAt: &created,

		TagID:        &tagID,
		TagName:      &tagName,
		TagSlug:      &tagSlug,
		TagCreatedAt: &created,
	}
}

// taxonomySource returns a post-migration stub: Music > Electronic with
// Techno and VIP, Nightlife > Clubs with VIP. "VIP" is ambiguous by name.
func taxonomySource() *stubSource {
	return &stubSource{
		mode: taxonomy.TaxonomyMode,
		rows: []taxonomy.Row{
			testRow(testMusicID, "Music", "music", testElectronicID, "Electronic", "electronic", testTechnoID, "Techno", "techno"),
			testRow(testMusicID, "Music", "music", testElectronicID, "Electronic", "electronic", testVipElecID, "VIP", "vip-electronic"),
			testRow(testNightlifeID, "Nightlife", "nightlife", testClubsID, "Clubs", "clubs", testVipClubsID, "VIP", "vip-clubs"),
		},
		counts: map[uuid.UUID]int{testTechnoID: 4, testVipClubsID: 2},
	}
}

// legacySource returns a pre-migration stub with flat listings only.
func legacySource() *stubSource {
	return &stubSource{
		mode:             taxonomy.LegacyMode,
		legacyCategories: []string{"music", "party"},
		legacyTags:       []string{"electronic", "vip"},
	}
}

func testSnapshots(src *stubSource) *taxonomy.SnapshotCache {
	return taxonomy.NewSnapshotCache(src, 60)
}
