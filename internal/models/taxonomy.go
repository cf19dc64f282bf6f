// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Category is the top level of the event classification hierarchy.
// Slugs are globally unique across the table.
type Category struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Icon      *string   `json:"icon,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Subcategory belongs to exactly one Category.
type Subcategory struct {
	ID         uuid.UUID `json:"id"`
	CategoryID uuid.UUID `json:"category_id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	CreatedAt  time.Time `json:"created_at"`
}

// Tag belongs to exactly one Subcategory. Pre-migration rows have a nil
// SubcategoryID and no slug; the migration engine backfills both.
type Tag struct {
	ID            uuid.UUID  `json:"id"`
	SubcategoryID *uuid.UUID `json:"subcategory_id"`
	Name          string     `json:"name"`
	Slug          string     `json:"slug"`
	CreatedAt     time.Time  `json:"created_at"`
}

// MigrationAuditRecord documents one legacy tag that could not be mapped
// faithfully during the hierarchy backfill. Records are append-only and
// written exclusively by the migration engine.
type MigrationAuditRecord struct {
	ID                    uuid.UUID  `json:"id"`
	EventID               uuid.UUID  `json:"event_id"`
	LegacyTag             *string    `json:"legacy_tag"`
	MappedTagID           *uuid.UUID `json:"mapped_tag_id"`
	ChosenCategorySlug    string     `json:"chosen_category_slug"`
	ChosenSubcategorySlug string     `json:"chosen_subcategory_slug"`
	Reason                string     `json:"reason"`
	CreatedAt             time.Time  `json:"created_at"`
}

// Audit reason codes written during the backfill.
const (
	AuditReasonNoTags      = "no-tags"
	AuditReasonMixedBranch = "mixed-branch"
	AuditReasonUnmapped    = "unmapped"
)
