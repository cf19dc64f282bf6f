// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package taxonomy implements the classification hierarchy read model:
// an immutable versioned snapshot of categories → subcategories → tags,
// a TTL-bound cache over it, and a resolver that turns user-supplied
// identifiers into canonical IDs.
package taxonomy

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TagNode is a tag in the snapshot tree. EventCount is only populated on
// admin snapshots.
type TagNode struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	EventCount int       `json:"event_count,omitempty"`
}

// SubcategoryNode is a subcategory with its tags.
type SubcategoryNode struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	Tags       []TagNode `json:"tags"`
	EventCount int       `json:"event_count,omitempty"`
}

// CategoryNode is a category with its subcategories.
type CategoryNode struct {
	ID            uuid.UUID         `json:"id"`
	Name          string            `json:"name"`
	Slug          string            `json:"slug"`
	Icon          *string           `json:"icon,omitempty"`
	Subcategories []SubcategoryNode `json:"subcategories"`
	EventCount    int               `json:"event_count,omitempty"`
}

// Row is one flat join row across the three hierarchy tables, as produced
// by Store.LoadRows. Subcategory and tag columns are nil when the LEFT
// JOIN found no child.
type Row struct {
	CategoryID        uuid.UUID
	CategoryName      string
	CategorySlug      string
	CategoryIcon      *string
	CategoryCreatedAt time.Time

	SubcategoryID        *uuid.UUID
	SubcategoryName      *string
	SubcategorySlug      *string
	SubcategoryCreatedAt *time.Time

	TagID        *uuid.UUID
	TagName      *string
	TagSlug      *string
	TagCreatedAt *time.Time
}

// Snapshot is an immutable in-memory materialization of the hierarchy,
// with reverse indices for resolution. Once built it is never mutated;
// the cache swaps whole snapshots.
type Snapshot struct {
	Version    string
	Categories []CategoryNode

	categoryIDs    map[uuid.UUID]struct{}
	subcategoryIDs map[uuid.UUID]struct{}
	tagIDs         map[uuid.UUID]struct{}

	// slug → id, one per level. Slugs are globally unique per level.
	categorySlugs    map[string]uuid.UUID
	subcategorySlugs map[string]uuid.UUID
	tagSlugs         map[string]uuid.UUID

	// lowercased name → ids ordered by slug, for deprecated name lookups.
	categoryNames    map[string][]uuid.UUID
	subcategoryNames map[string][]uuid.UUID
	tagNames         map[string][]uuid.UUID

	subcategoryOwner map[uuid.UUID]uuid.UUID // subcategory → owning category
	tagOwner         map[uuid.UUID]uuid.UUID // tag → owning subcategory
}

// Build assembles a snapshot from flat join rows in a single pass.
// Rows for the same node are deduplicated by ID with first-seen identity
// preserved; children are sorted case-insensitively by name so external
// output is deterministic regardless of row order.
func Build(rows []Row) *Snapshot {
	var (
		catOrder []uuid.UUID
		cats     = make(map[uuid.UUID]*CategoryNode)
		subOrder = make(map[uuid.UUID][]uuid.UUID)
		subs     = make(map[uuid.UUID]*SubcategoryNode)
		tagOrder = make(map[uuid.UUID][]uuid.UUID)
		tags     = make(map[uuid.UUID]*TagNode)

		subcategoryOwner = make(map[uuid.UUID]uuid.UUID)
		tagOwner         = make(map[uuid.UUID]uuid.UUID)
		maxCreated       time.Time
	)

	for _, r := range rows {
		if _, seen := cats[r.CategoryID]; !seen {
			cats[r.CategoryID] = &CategoryNode{
				ID:   r.CategoryID,
				Name: r.CategoryName,
				Slug: r.CategorySlug,
				Icon: r.CategoryIcon,
			}
			catOrder = append(catOrder, r.CategoryID)
			if r.CategoryCreatedAt.After(maxCreated) {
				maxCreated = r.CategoryCreatedAt
			}
		}

		if r.SubcategoryID != nil {
			if _, seen := subs[*r.SubcategoryID]; !seen {
				subs[*r.SubcategoryID] = &SubcategoryNode{
					ID:   *r.SubcategoryID,
					Name: *r.SubcategoryName,
					Slug: *r.SubcategorySlug,
				}
				subOrder[r.CategoryID] = append(subOrder[r.CategoryID], *r.SubcategoryID)
				subcategoryOwner[*r.SubcategoryID] = r.CategoryID
				if r.SubcategoryCreatedAt != nil && r.SubcategoryCreatedAt.After(maxCreated) {
					maxCreated = *r.SubcategoryCreatedAt
				}
			}

			if r.TagID != nil {
				if _, seen := tags[*r.TagID]; !seen {
					tags[*r.TagID] = &TagNode{
						ID:   *r.TagID,
						Name: *r.TagName,
						Slug: *r.TagSlug,
					}
					tagOrder[*r.SubcategoryID] = append(tagOrder[*r.SubcategoryID], *r.TagID)
					tagOwner[*r.TagID] = *r.SubcategoryID
					if r.TagCreatedAt != nil && r.TagCreatedAt.After(maxCreated) {
						maxCreated = *r.TagCreatedAt
					}
				}
			}
		}
	}

	snap := &Snapshot{
		Version:          computeVersion(maxCreated, len(cats), len(subs), len(tags)),
		categoryIDs:      make(map[uuid.UUID]struct{}, len(cats)),
		subcategoryIDs:   make(map[uuid.UUID]struct{}, len(subs)),
		tagIDs:           make(map[uuid.UUID]struct{}, len(tags)),
		categorySlugs:    make(map[string]uuid.UUID, len(cats)),
		subcategorySlugs: make(map[string]uuid.UUID, len(subs)),
		tagSlugs:         make(map[string]uuid.UUID, len(tags)),
		categoryNames:    make(map[string][]uuid.UUID),
		subcategoryNames: make(map[string][]uuid.UUID),
		tagNames:         make(map[string][]uuid.UUID),
		subcategoryOwner: subcategoryOwner,
		tagOwner:         tagOwner,
	}

	for _, catID := range catOrder {
		cat := *cats[catID]
		for _, subID := range subOrder[catID] {
			sub := *subs[subID]
			for _, tagID := range tagOrder[subID] {
				sub.Tags = append(sub.Tags, *tags[tagID])
			}
			sortByName(sub.Tags, func(t TagNode) (string, string) { return t.Name, t.Slug })
			cat.Subcategories = append(cat.Subcategories, sub)
		}
		sortByName(cat.Subcategories, func(s SubcategoryNode) (string, string) { return s.Name, s.Slug })
		snap.Categories = append(snap.Categories, cat)
	}
	sortByName(snap.Categories, func(c CategoryNode) (string, string) { return c.Name, c.Slug })

	for _, cat := range snap.Categories {
		snap.categoryIDs[cat.ID] = struct{}{}
		snap.categorySlugs[cat.Slug] = cat.ID
		addNameIndex(snap.categoryNames, cat.Name, cat.ID)
		for _, sub := range cat.Subcategories {
			snap.subcategoryIDs[sub.ID] = struct{}{}
			snap.subcategorySlugs[sub.Slug] = sub.ID
			addNameIndex(snap.subcategoryNames, sub.Name, sub.ID)
			for _, tag := range sub.Tags {
				snap.tagIDs[tag.ID] = struct{}{}
				snap.tagSlugs[tag.Slug] = tag.ID
				addNameIndex(snap.tagNames, tag.Name, tag.ID)
			}
		}
	}
	sortNameIndex(snap.categoryNames, snap.categorySlugs)
	sortNameIndex(snap.subcategoryNames, snap.subcategorySlugs)
	sortNameIndex(snap.tagNames, snap.tagSlugs)

	return snap
}

// computeVersion derives the snapshot version from the newest created_at
// across all three levels plus the per-level counts. It changes iff the
// underlying taxonomy rows changed.
func computeVersion(maxCreated time.Time, categories, subcategories, tags int) string {
	return fmt.Sprintf("%s-%d-%d-%d",
		maxCreated.UTC().Format(time.RFC3339), categories, subcategories, tags)
}

// sortByName orders nodes case-insensitively by name, breaking ties by
// slug so equal names still sort deterministically.
func sortByName[T any](nodes []T, key func(T) (name, slug string)) {
	sort.SliceStable(nodes, func(i, j int) bool {
		ni, si := key(nodes[i])
		nj, sj := key(nodes[j])
		li, lj := strings.ToLower(ni), strings.ToLower(nj)
		if li != lj {
			return li < lj
		}
		return si < sj
	})
}

func addNameIndex(index map[string][]uuid.UUID, name string, id uuid.UUID) {
	key := strings.ToLower(strings.TrimSpace(name))
	index[key] = append(index[key], id)
}

// sortNameIndex orders each candidate list by slug so ambiguity reporting
// is reproducible.
func sortNameIndex(index map[string][]uuid.UUID, slugs map[string]uuid.UUID) {
	slugByID := make(map[uuid.UUID]string, len(slugs))
	for s, id := range slugs {
		slugByID[id] = s
	}
	for _, ids := range index {
		sort.Slice(ids, func(i, j int) bool { return slugByID[ids[i]] < slugByID[ids[j]] })
	}
}

// SubcategoryOwner returns the owning category of a subcategory.
func (s *Snapshot) SubcategoryOwner(id uuid.UUID) (uuid.UUID, bool) {
	owner, ok := s.subcategoryOwner[id]
	return owner, ok
}

// TagOwner returns the owning subcategory of a tag.
func (s *Snapshot) TagOwner(id uuid.UUID) (uuid.UUID, bool) {
	owner, ok := s.tagOwner[id]
	return owner, ok
}

// FlatCategoryNames returns category names in tree order for
// backward-compatible callers that predate the hierarchy.
func (s *Snapshot) FlatCategoryNames() []string {
	names := make([]string, 0, len(s.Categories))
	for _, cat := range s.Categories {
		names = append(names, cat.Name)
	}
	return names
}

// FlatTagNames returns all tag names in tree order for
// backward-compatible callers that predate the hierarchy.
func (s *Snapshot) FlatTagNames() []string {
	var names []string
	for _, cat := range s.Categories {
		for _, sub := range cat.Subcategories {
			for _, tag := range sub.Tags {
				names = append(names, tag.Name)
			}
		}
	}
	return names
}

// withEventCounts returns a copy of the snapshot with per-tag usage counts
// applied and rolled up: subcategory counts are sums over their tags,
// category counts sums over their subcategories. The receiver is not
// modified; index maps are shared since they are never mutated.
func (s *Snapshot) withEventCounts(counts map[uuid.UUID]int) *Snapshot {
	clone := *s
	clone.Categories = make([]CategoryNode, len(s.Categories))
	for i, cat := range s.Categories {
		catCopy := cat
		catCopy.Subcategories = make([]SubcategoryNode, len(cat.Subcategories))
		for j, sub := range cat.Subcategories {
			subCopy := sub
			subCopy.Tags = make([]TagNode, len(sub.Tags))
			subCopy.EventCount = 0
			for k, tag := range sub.Tags {
				tag.EventCount = counts[tag.ID]
				subCopy.Tags[k] = tag
				subCopy.EventCount += tag.EventCount
			}
			catCopy.Subcategories[j] = subCopy
			catCopy.EventCount += subCopy.EventCount
		}
		clone.Categories[i] = catCopy
	}
	return &clone
}
