// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package taxmigration

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// schemaStatements is the additive DDL for the hierarchy. Nothing here
// drops or rewrites existing data; every statement is safe to re-run.
var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`,

	`CREATE TABLE IF NOT EXISTS categories (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name TEXT NOT NULL,
		slug TEXT UNIQUE NOT NULL,
		icon TEXT,
		created_at TIMESTAMPTZ DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS subcategories (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		category_id UUID NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		slug TEXT UNIQUE NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW()
	)`,

	`ALTER TABLE events ADD COLUMN IF NOT EXISTS category_id UUID`,
	`ALTER TABLE events ADD COLUMN IF NOT EXISTS subcategory_id UUID`,
	`ALTER TABLE tags ADD COLUMN IF NOT EXISTS subcategory_id UUID`,
	`ALTER TABLE tags ADD COLUMN IF NOT EXISTS slug TEXT`,
	`ALTER TABLE tags ADD COLUMN IF NOT EXISTS created_at TIMESTAMPTZ DEFAULT NOW()`,

	// The legacy unique-name constraint must go: the same display name may
	// now exist under several subcategories, uniqueness moves to the slug.
	`DO $$
	BEGIN
		IF EXISTS (
			SELECT 1 FROM pg_constraint WHERE conname = 'tags_name_key'
		) THEN
			ALTER TABLE tags DROP CONSTRAINT tags_name_key;
		END IF;
	END
	$$`,

	`DO $$
	BEGIN
		IF NOT EXISTS (
			SELECT 1 FROM pg_constraint WHERE conname = 'events_category_id_fkey'
		) THEN
			ALTER TABLE events
			ADD CONSTRAINT events_category_id_fkey
			FOREIGN KEY (category_id) REFERENCES categories(id);
		END IF;
	END
	$$`,

	`DO $$
	BEGIN
		IF NOT EXISTS (
			SELECT 1 FROM pg_constraint WHERE conname = 'events_subcategory_id_fkey'
		) THEN
			ALTER TABLE events
			ADD CONSTRAINT events_subcategory_id_fkey
			FOREIGN KEY (subcategory_id) REFERENCES subcategories(id);
		END IF;
	END
	$$`,

	`DO $$
	BEGIN
		IF NOT EXISTS (
			SELECT 1 FROM pg_constraint WHERE conname = 'tags_subcategory_id_fkey'
		) THEN
			ALTER TABLE tags
			ADD CONSTRAINT tags_subcategory_id_fkey
			FOREIGN KEY (subcategory_id) REFERENCES subcategories(id) ON DELETE CASCADE;
		END IF;
	END
	$$`,

	`DO $$
	BEGIN
		IF NOT EXISTS (
			SELECT 1 FROM pg_constraint
			WHERE conname = 'tags_slug_key' AND conrelid = 'tags'::regclass
		) THEN
			ALTER TABLE tags ADD CONSTRAINT tags_slug_key UNIQUE (slug);
		END IF;
	END
	$$`,

	`CREATE INDEX IF NOT EXISTS idx_tags_subcategory ON tags(subcategory_id)`,
	`CREATE INDEX IF NOT EXISTS idx_subcategories_category ON subcategories(category_id)`,
	`CREATE INDEX IF NOT EXISTS idx_event_tags_event ON event_tags(event_id)`,
	`CREATE INDEX IF NOT EXISTS idx_event_tags_tag_event ON event_tags(tag_id, event_id)`,
	`CREATE INDEX IF NOT EXISTS idx_events_category_subcategory ON events(category_id, subcategory_id)`,

	`CREATE TABLE IF NOT EXISTS taxonomy_migration_audit (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		event_id UUID,
		legacy_tag TEXT,
		mapped_tag_id UUID,
		chosen_category_slug TEXT,
		chosen_subcategory_slug TEXT,
		reason TEXT NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW()
	)`,
}

// ensureSchema brings the schema up to the hierarchical shape without
// touching existing rows.
func ensureSchema(ctx context.Context, tx pgx.Tx) error {
	for _, stmt := range schemaStatements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema prepare: %w", err)
		}
	}
	return nil
}
