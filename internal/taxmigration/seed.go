// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package taxmigration

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// branchKey is a (category, subcategory) slug pair. Every event ends up
// assigned to exactly one branch.
type branchKey struct {
	Category    string
	Subcategory string
}

// tagKey addresses one seeded tag by its full slug path.
type tagKey struct {
	Category    string
	Subcategory string
	Tag         string
}

// tagTarget is a resolved placement of a legacy tag key.
type tagTarget struct {
	Category    string
	Subcategory string
	TagID       uuid.UUID
}

// seededTaxonomy holds the ID mappings produced by the seed phase, used
// by the backfill to resolve legacy tag keys without further queries.
type seededTaxonomy struct {
	categoryIDs         map[string]uuid.UUID
	categoryNames       map[string]string
	subcategoryIDs      map[branchKey]uuid.UUID
	tagIDs              map[tagKey]uuid.UUID
	tagSlugIndex        map[string][]tagTarget
	fallbackByBranch    map[branchKey]uuid.UUID
	globalFallbackTagID uuid.UUID
}

// seedTaxonomy idempotently upserts the canonical hierarchy by slug,
// including a synthetic legacy-unmapped fallback tag per subcategory and
// the global catch-all tag.
func seedTaxonomy(ctx context.Context, tx pgx.Tx) (*seededTaxonomy, error) {
	seeded := &seededTaxonomy{
		categoryIDs:      make(map[string]uuid.UUID),
		categoryNames:    make(map[string]string),
		subcategoryIDs:   make(map[branchKey]uuid.UUID),
		tagIDs:           make(map[tagKey]uuid.UUID),
		tagSlugIndex:     make(map[string][]tagTarget),
		fallbackByBranch: make(map[branchKey]uuid.UUID),
	}

	for _, cat := range taxonomySeedSpec {
		categoryID, err := upsertCategory(ctx, tx, cat.Name, cat.Slug)
		if err != nil {
			return nil, err
		}
		seeded.categoryIDs[cat.Slug] = categoryID
		seeded.categoryNames[cat.Slug] = cat.Name

		for _, sub := range cat.Subcategories {
			subcategoryID, err := upsertSubcategory(ctx, tx, categoryID, sub.Name, sub.Slug)
			if err != nil {
				return nil, err
			}
			branch := branchKey{cat.Slug, sub.Slug}
			seeded.subcategoryIDs[branch] = subcategoryID

			for _, tagSlug := range sub.Tags {
				tagID, err := upsertTag(ctx, tx, subcategoryID, tagNameFromSlug(tagSlug), tagSlug)
				if err != nil {
					return nil, err
				}
				seeded.index(branch, tagSlug, tagID)
			}

			fallbackSlug := fallbackTagSlugPrefix + sub.Slug
			fallbackID, err := upsertTag(ctx, tx, subcategoryID, fallbackTagName, fallbackSlug)
			if err != nil {
				return nil, err
			}
			seeded.index(branch, fallbackSlug, fallbackID)
			seeded.fallbackByBranch[branch] = fallbackID
		}
	}

	globalKey := tagKey{globalFallbackCategory, globalFallbackSubcategory, globalFallbackTag}
	globalID, ok := seeded.tagIDs[globalKey]
	if !ok {
		return nil, fmt.Errorf("seed spec is missing the global fallback tag %s/%s/%s",
			globalKey.Category, globalKey.Subcategory, globalKey.Tag)
	}
	seeded.globalFallbackTagID = globalID

	return seeded, nil
}

func (s *seededTaxonomy) index(branch branchKey, tagSlug string, tagID uuid.UUID) {
	s.tagIDs[tagKey{branch.Category, branch.Subcategory, tagSlug}] = tagID
	s.tagSlugIndex[tagSlug] = append(s.tagSlugIndex[tagSlug],
		tagTarget{branch.Category, branch.Subcategory, tagID})
}

func upsertCategory(ctx context.Context, tx pgx.Tx, name, slug string) (uuid.UUID, error) {
	var id uuid.UUID
	err := tx.QueryRow(ctx, `
		INSERT INTO categories (name, slug)
		VALUES ($1, $2)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, name, slug).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert category %q: %w", slug, err)
	}
	return id, nil
}

func upsertSubcategory(ctx context.Context, tx pgx.Tx, categoryID uuid.UUID, name, slug string) (uuid.UUID, error) {
	var id uuid.UUID
	err := tx.QueryRow(ctx, `
		INSERT INTO subcategories (category_id, name, slug)
		VALUES ($1, $2, $3)
		ON CONFLICT (slug) DO UPDATE
			SET name = EXCLUDED.name,
			    category_id = EXCLUDED.category_id
		RETURNING id
	`, categoryID, name, slug).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert subcategory %q: %w", slug, err)
	}
	return id, nil
}

func upsertTag(ctx context.Context, tx pgx.Tx, subcategoryID uuid.UUID, name, slug string) (uuid.UUID, error) {
	var id uuid.UUID
	err := tx.QueryRow(ctx, `
		INSERT INTO tags (subcategory_id, name, slug, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT ON CONSTRAINT tags_slug_key DO UPDATE
			SET name = EXCLUDED.name,
			    subcategory_id = EXCLUDED.subcategory_id
		RETURNING id
	`, subcategoryID, name, slug).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert tag %q: %w", slug, err)
	}
	return id, nil
}
