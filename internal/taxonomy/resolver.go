// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// resolver.go translates user-supplied identifiers (canonical UUIDs,
// slugs, or deprecated free-text names) into canonical hierarchy IDs
// against a snapshot. Resolution is pure: no I/O, no mutation.
package taxonomy

import (
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"citypulse/internal/slug"
)

// Resolved carries the canonical IDs of a composite filter resolution.
// Parents missing from the input are back-filled from the tag's ownership
// chain when a tag was given.
type Resolved struct {
	CategoryID    *uuid.UUID
	SubcategoryID *uuid.UUID
	TagID         *uuid.UUID
}

// Resolver disambiguates raw identifiers against a snapshot.
//
// Per identifier, the first matching form wins:
//  1. canonical UUID — must exist in scope, otherwise resolution fails
//  2. slug (after normalization)
//  3. deprecated case-insensitive name match (logged)
type Resolver struct{}

// NewResolver returns a Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// ResolveCategory resolves a raw category identifier.
func (r *Resolver) ResolveCategory(snap *Snapshot, raw string) (uuid.UUID, error) {
	value := strings.TrimSpace(raw)

	if id, err := uuid.Parse(value); err == nil {
		if _, ok := snap.categoryIDs[id]; ok {
			return id, nil
		}
		return uuid.Nil, &UnknownIdentifierError{Level: LevelCategory, Value: value}
	}

	if id, ok := snap.categorySlugs[slug.Normalize(value)]; ok {
		return id, nil
	}

	return pickCandidate(LevelCategory, value, snap.categoryNames[strings.ToLower(value)])
}

// ResolveSubcategory resolves a raw subcategory identifier, optionally
// scoped to an already-resolved category.
func (r *Resolver) ResolveSubcategory(snap *Snapshot, raw string, categoryID *uuid.UUID) (uuid.UUID, error) {
	value := strings.TrimSpace(raw)
	inScope := func(id uuid.UUID) bool {
		return categoryID == nil || snap.subcategoryOwner[id] == *categoryID
	}

	if id, err := uuid.Parse(value); err == nil {
		if _, ok := snap.subcategoryIDs[id]; ok && inScope(id) {
			return id, nil
		}
		return uuid.Nil, &UnknownIdentifierError{Level: LevelSubcategory, Value: value}
	}

	if id, ok := snap.subcategorySlugs[slug.Normalize(value)]; ok && inScope(id) {
		return id, nil
	}

	candidates := filterScope(snap.subcategoryNames[strings.ToLower(value)], inScope)
	return pickCandidate(LevelSubcategory, value, candidates)
}

// ResolveTag resolves a raw tag identifier. A subcategory scope takes
// precedence over a category scope when both are present.
//
// Name-based lookup is deliberately two-pass: first restricted to the
// scope, then unscoped when the scoped pass found nothing. A cross-branch
// hit surfaces later as ScopeMismatch in composite resolution instead of
// a misleading UnknownIdentifier.
func (r *Resolver) ResolveTag(snap *Snapshot, raw string, subcategoryID, categoryID *uuid.UUID) (uuid.UUID, error) {
	value := strings.TrimSpace(raw)
	inScope := func(id uuid.UUID) bool {
		owner := snap.tagOwner[id]
		if subcategoryID != nil {
			return owner == *subcategoryID
		}
		if categoryID != nil {
			return snap.subcategoryOwner[owner] == *categoryID
		}
		return true
	}

	if id, err := uuid.Parse(value); err == nil {
		if _, ok := snap.tagIDs[id]; ok && inScope(id) {
			return id, nil
		}
		return uuid.Nil, &UnknownIdentifierError{Level: LevelTag, Value: value}
	}

	if id, ok := snap.tagSlugs[slug.Normalize(value)]; ok && inScope(id) {
		return id, nil
	}

	all := snap.tagNames[strings.ToLower(value)]
	candidates := filterScope(all, inScope)
	if len(candidates) == 0 {
		candidates = all
	}
	return pickCandidate(LevelTag, value, candidates)
}

// ResolveFilter resolves a composite category/subcategory/tag filter.
// Empty strings mean "not given". After the tag resolves, missing parent
// IDs are back-filled from its ownership chain, then all three are
// verified mutually consistent.
func (r *Resolver) ResolveFilter(snap *Snapshot, catRaw, subRaw, tagRaw string) (Resolved, error) {
	var res Resolved

	if catRaw != "" {
		id, err := r.ResolveCategory(snap, catRaw)
		if err != nil {
			return Resolved{}, err
		}
		res.CategoryID = &id
	}

	if subRaw != "" {
		id, err := r.ResolveSubcategory(snap, subRaw, res.CategoryID)
		if err != nil {
			return Resolved{}, err
		}
		res.SubcategoryID = &id
	}

	subFromTag := false
	if tagRaw != "" {
		id, err := r.ResolveTag(snap, tagRaw, res.SubcategoryID, res.CategoryID)
		if err != nil {
			return Resolved{}, err
		}
		res.TagID = &id

		if res.SubcategoryID == nil {
			owner := snap.tagOwner[id]
			res.SubcategoryID = &owner
			subFromTag = true
		}
		if res.CategoryID == nil {
			parent := snap.subcategoryOwner[*res.SubcategoryID]
			res.CategoryID = &parent
		}
	}

	if res.CategoryID != nil && res.SubcategoryID != nil &&
		snap.subcategoryOwner[*res.SubcategoryID] != *res.CategoryID {
		if subFromTag {
			return Resolved{}, &ScopeMismatchError{Level: LevelTag, Value: strings.TrimSpace(tagRaw)}
		}
		return Resolved{}, &ScopeMismatchError{Level: LevelSubcategory, Value: strings.TrimSpace(subRaw)}
	}
	if res.TagID != nil && res.SubcategoryID != nil &&
		snap.tagOwner[*res.TagID] != *res.SubcategoryID {
		return Resolved{}, &ScopeMismatchError{Level: LevelTag, Value: strings.TrimSpace(tagRaw)}
	}

	return res, nil
}

// filterScope keeps candidates that satisfy the scope predicate, preserving
// the index's slug ordering.
func filterScope(ids []uuid.UUID, inScope func(uuid.UUID) bool) []uuid.UUID {
	var kept []uuid.UUID
	for _, id := range ids {
		if inScope(id) {
			kept = append(kept, id)
		}
	}
	return kept
}

// pickCandidate applies the ambiguity policy to a name-lookup result:
// zero candidates is unknown, two or more is ambiguous, exactly one
// succeeds and is logged as a deprecated lookup.
func pickCandidate(level Level, value string, candidates []uuid.UUID) (uuid.UUID, error) {
	switch len(candidates) {
	case 0:
		return uuid.Nil, &UnknownIdentifierError{Level: level, Value: value}
	case 1:
		slog.Warn("deprecated name-based taxonomy lookup",
			"level", string(level),
			"value", value,
		)
		return candidates[0], nil
	default:
		return uuid.Nil, &AmbiguousIdentifierError{
			Level:      level,
			Value:      value,
			Candidates: append([]uuid.UUID(nil), candidates...),
		}
	}
}
