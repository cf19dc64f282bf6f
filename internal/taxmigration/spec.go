// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package taxmigration

import "strings"

// categoryPriority is the fixed tie-break ordering for branch votes.
// Categories not listed rank below every listed one.
var categoryPriority = []string{
	"music",
	"nightlife",
	"food-drink",
	"arts-culture",
	"entertainment",
	"outdoor",
	"other",
}

// subcategorySeed declares one subcategory and its tag slugs.
type subcategorySeed struct {
	Slug string
	Name string
	Tags []string
}

// categorySeed declares one category and its subcategories.
type categorySeed struct {
	Slug          string
	Name          string
	Subcategories []subcategorySeed
}

// taxonomySeedSpec is the canonical hierarchy installed by the seed phase.
// Upserts are keyed by slug, so re-running the seed with an unchanged spec
// yields identical ID mappings.
var taxonomySeedSpec = []categorySeed{
	{Slug: "music", Name: "Music", Subcategories: []subcategorySeed{
		{Slug: "electronic", Name: "Electronic", Tags: []string{"techno", "house", "drum-bass", "trance", "electronic"}},
		{Slug: "rock-indie", Name: "Rock & Indie", Tags: []string{"live", "rock", "indie"}},
		{Slug: "jazz-blues", Name: "Jazz & Blues", Tags: []string{"jazz", "blues"}},
		{Slug: "classical", Name: "Classical", Tags: []string{"orchestra", "chamber-music"}},
	}},
	{Slug: "nightlife", Name: "Nightlife", Subcategories: []subcategorySeed{
		{Slug: "clubs", Name: "Clubs", Tags: []string{"vip", "dance-night"}},
		{Slug: "bars-lounges", Name: "Bars & Lounges", Tags: []string{"cocktail", "afterwork"}},
	}},
	{Slug: "food-drink", Name: "Food & Drink", Subcategories: []subcategorySeed{
		{Slug: "wine", Name: "Wine", Tags: []string{"wine-tasting", "vineyard-tour"}},
		{Slug: "beer", Name: "Beer", Tags: []string{"craft-beer", "beer-pairing"}},
		{Slug: "street-food", Name: "Street Food", Tags: []string{"food-truck", "tasting-menu"}},
	}},
	{Slug: "arts-culture", Name: "Arts & Culture", Subcategories: []subcategorySeed{
		{Slug: "theater", Name: "Theater", Tags: []string{"improvisation", "drama"}},
		{Slug: "visual-arts", Name: "Visual Arts", Tags: []string{"art", "gallery-night"}},
		{Slug: "museums-heritage", Name: "Museums & Heritage", Tags: []string{"museum-tour", "heritage-walk"}},
	}},
	{Slug: "entertainment", Name: "Entertainment", Subcategories: []subcategorySeed{
		{Slug: "comedy-shows", Name: "Comedy Shows", Tags: []string{"stand-up", "family"}},
		{Slug: "film-media", Name: "Film & Media", Tags: []string{"cinema", "tech"}},
		{Slug: "gaming", Name: "Gaming", Tags: []string{"esports", "board-games", "indoor"}},
	}},
	{Slug: "outdoor", Name: "Outdoor", Subcategories: []subcategorySeed{
		{Slug: "adventure-outdoors", Name: "Adventure & Outdoors", Tags: []string{"hiking", "outdoor"}},
		{Slug: "festivals-markets", Name: "Festivals & Markets", Tags: []string{"farmers-market", "open-air"}},
	}},
	{Slug: "other", Name: "Other", Subcategories: []subcategorySeed{
		{Slug: "other", Name: "Other", Tags: []string{"unmapped"}},
	}},
}

// defaultSubcategoryByCategory picks the branch when only the legacy
// category text could be mapped.
var defaultSubcategoryByCategory = map[string]string{
	"music":         "electronic",
	"nightlife":     "clubs",
	"food-drink":    "wine",
	"arts-culture":  "theater",
	"entertainment": "comedy-shows",
	"outdoor":       "adventure-outdoors",
	"other":         "other",
}

// legacyCategoryAliases maps slugified legacy category text to a canonical
// category slug.
var legacyCategoryAliases = map[string]string{
	"music":         "music",
	"party":         "nightlife",
	"nightlife":     "nightlife",
	"food":          "food-drink",
	"food-drink":    "food-drink",
	"arts-culture":  "arts-culture",
	"art":           "arts-culture",
	"entertainment": "entertainment",
	"outdoor":       "outdoor",
}

// tagHint pins a legacy tag key to an exact (category, subcategory, tag)
// placement, overriding the unique-slug lookup. Needed where a slug exists
// in several branches or the obvious match is wrong.
type tagHint struct {
	Category    string
	Subcategory string
	Tag         string
}

var legacyTagHints = map[string]tagHint{
	"electronic": {"music", "electronic", "electronic"},
	"live":       {"music", "rock-indie", "live"},
	"outdoor":    {"outdoor", "adventure-outdoors", "outdoor"},
	"indoor":     {"entertainment", "gaming", "indoor"},
	"vip":        {"nightlife", "clubs", "vip"},
	"family":     {"entertainment", "comedy-shows", "family"},
	"art":        {"arts-culture", "visual-arts", "art"},
	"tech":       {"entertainment", "film-media", "tech"},
}

// Fallback placements for legacy tags that cannot be mapped faithfully.
const (
	globalFallbackCategory    = "other"
	globalFallbackSubcategory = "other"
	globalFallbackTag         = "unmapped"
	fallbackTagSlugPrefix     = "legacy-unmapped-"
	fallbackTagName           = "Legacy Unmapped"
)

// priorityIndex ranks a category for tie-breaking. Unlisted categories
// rank below every listed one.
func priorityIndex(categorySlug string) int {
	for i, s := range categoryPriority {
		if s == categorySlug {
			return i
		}
	}
	return len(categoryPriority)
}

// tagNameFromSlug derives a display name from a tag slug:
// "drum-bass" → "Drum Bass".
func tagNameFromSlug(tagSlug string) string {
	words := strings.Split(tagSlug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
