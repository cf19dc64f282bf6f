// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package taxonomy

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Mode selects which query strategy the read model uses. It is determined
// once per snapshot rebuild, never per query.
type Mode int

const (
	// LegacyMode: the hierarchy tables do not exist yet; only the flat
	// free-text category and name-keyed tags are available.
	LegacyMode Mode = iota
	// TaxonomyMode: the full category → subcategory → tag hierarchy is
	// present and the snapshot can be built.
	TaxonomyMode
)

func (m Mode) String() string {
	if m == TaxonomyMode {
		return "taxonomy"
	}
	return "legacy"
}

// Store loads taxonomy rows from PostgreSQL for snapshot building.
type Store struct {
	db *sql.DB
}

// NewStore returns a new taxonomy Store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Mode checks whether the hierarchy tables exist. A pre-migration schema
// reports LegacyMode; this is expected, not an error.
func (s *Store) Mode(ctx context.Context) (Mode, error) {
	var present bool
	err := s.db.QueryRowContext(ctx, `
		SELECT to_regclass('public.categories') IS NOT NULL
		   AND to_regclass('public.subcategories') IS NOT NULL
	`).Scan(&present)
	if err != nil {
		return LegacyMode, fmt.Errorf("taxonomy mode check: %w", err)
	}
	if !present {
		return LegacyMode, nil
	}
	return TaxonomyMode, nil
}

// LoadRows returns the full hierarchy as flat join rows ordered by name at
// every level, ready for Build.
func (s *Store) LoadRows(ctx context.Context) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.slug, c.icon, c.created_at,
		       sc.id, sc.name, sc.slug, sc.created_at,
		       t.id, t.name, t.slug, t.created_at
		FROM categories c
		LEFT JOIN subcategories sc ON sc.category_id = c.id
		LEFT JOIN tags t ON t.subcategory_id = sc.id
		ORDER BY LOWER(c.name), LOWER(sc.name), LOWER(t.name)
	`)
	if err != nil {
		return nil, fmt.Errorf("load taxonomy rows: %w", err)
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		var (
			r       Row
			subID   uuid.NullUUID
			subName sql.NullString
			subSlug sql.NullString
			subAt   sql.NullTime
			tagID   uuid.NullUUID
			tagName sql.NullString
			tagSlug sql.NullString
			tagAt   sql.NullTime
		)
		err := rows.Scan(
			&r.CategoryID, &r.CategoryName, &r.CategorySlug, &r.CategoryIcon, &r.CategoryCreatedAt,
			&subID, &subName, &subSlug, &subAt,
			&tagID, &tagName, &tagSlug, &tagAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan taxonomy row: %w", err)
		}
		if subID.Valid {
			r.SubcategoryID = &subID.UUID
			r.SubcategoryName = &subName.String
			r.SubcategorySlug = &subSlug.String
			if subAt.Valid {
				r.SubcategoryCreatedAt = &subAt.Time
			}
		}
		if tagID.Valid {
			r.TagID = &tagID.UUID
			r.TagName = &tagName.String
			r.TagSlug = &tagSlug.String
			if tagAt.Valid {
				r.TagCreatedAt = &tagAt.Time
			}
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// TagUsageCounts returns how many events link to each tag, from a single
// grouped aggregate over event_tags.
func (s *Store) TagUsageCounts(ctx context.Context) (map[uuid.UUID]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tag_id, COUNT(*)
		FROM event_tags
		GROUP BY tag_id
	`)
	if err != nil {
		return nil, fmt.Errorf("tag usage counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var id uuid.UUID
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan tag usage count: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// LegacyCategoryNames lists distinct free-text event categories for the
// pre-migration fallback listing.
func (s *Store) LegacyCategoryNames(ctx context.Context) ([]string, error) {
	return s.stringColumn(ctx, `
		SELECT DISTINCT category
		FROM events
		WHERE category IS NOT NULL AND category <> ''
		ORDER BY category
	`)
}

// LegacyTagNames lists flat tag names for the pre-migration fallback listing.
func (s *Store) LegacyTagNames(ctx context.Context) ([]string, error) {
	return s.stringColumn(ctx, `SELECT name FROM tags ORDER BY name`)
}

func (s *Store) stringColumn(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("legacy taxonomy listing: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan legacy taxonomy value: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
