// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package taxmigration

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// validateBackfill counts remaining invariant violations: events without
// a branch assignment and event-tag links whose tag lives in a different
// subcategory than the event.
func validateBackfill(ctx context.Context, tx pgx.Tx) (nullEvents, crossBranch int, err error) {
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM events
		WHERE category_id IS NULL OR subcategory_id IS NULL
	`).Scan(&nullEvents)
	if err != nil {
		return 0, 0, fmt.Errorf("count unassigned events: %w", err)
	}

	err = tx.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM event_tags et
		JOIN events e ON e.id = et.event_id
		JOIN tags t ON t.id = et.tag_id
		WHERE e.subcategory_id IS NOT NULL
		  AND t.subcategory_id IS NOT NULL
		  AND e.subcategory_id <> t.subcategory_id
	`).Scan(&crossBranch)
	if err != nil {
		return 0, 0, fmt.Errorf("count cross-branch links: %w", err)
	}

	return nullEvents, crossBranch, nil
}

// enforcementStatements make the branch assignment mandatory and install
// triggers that keep invariants holding on every future write, not only
// during the migration. Writers outside this process are covered too.
var enforcementStatements = []string{
	`ALTER TABLE events ALTER COLUMN category_id SET NOT NULL`,
	`ALTER TABLE events ALTER COLUMN subcategory_id SET NOT NULL`,

	// An event's subcategory must belong to its category.
	`CREATE OR REPLACE FUNCTION validate_event_branch_consistency()
	RETURNS trigger AS $$
	DECLARE
		subcategory_category_id UUID;
	BEGIN
		IF NEW.subcategory_id IS NULL OR NEW.category_id IS NULL THEN
			RETURN NEW;
		END IF;

		SELECT sc.category_id
		INTO subcategory_category_id
		FROM subcategories sc
		WHERE sc.id = NEW.subcategory_id;

		IF subcategory_category_id IS NULL THEN
			RAISE EXCEPTION 'Invalid subcategory_id % for event %', NEW.subcategory_id, NEW.id
				USING ERRCODE = '23514';
		END IF;

		IF subcategory_category_id <> NEW.category_id THEN
			RAISE EXCEPTION 'Event category_id (%) does not match subcategory category_id (%)',
				NEW.category_id, subcategory_category_id
				USING ERRCODE = '23514';
		END IF;
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`,

	`DROP TRIGGER IF EXISTS trg_validate_event_branch_consistency ON events`,
	`CREATE TRIGGER trg_validate_event_branch_consistency
	BEFORE INSERT OR UPDATE ON events
	FOR EACH ROW
	EXECUTE FUNCTION validate_event_branch_consistency()`,

	// A linked tag must live in the same subcategory as the event.
	`CREATE OR REPLACE FUNCTION validate_event_tag_branch_consistency()
	RETURNS trigger AS $$
	DECLARE
		event_subcategory_id UUID;
		tag_subcategory_id UUID;
	BEGIN
		SELECT e.subcategory_id INTO event_subcategory_id
		FROM events e
		WHERE e.id = NEW.event_id;

		SELECT t.subcategory_id INTO tag_subcategory_id
		FROM tags t
		WHERE t.id = NEW.tag_id;

		IF event_subcategory_id IS NULL OR tag_subcategory_id IS NULL THEN
			RETURN NEW;
		END IF;

		IF event_subcategory_id <> tag_subcategory_id THEN
			RAISE EXCEPTION 'tag_id % belongs to subcategory %, but event_id % belongs to subcategory %',
				NEW.tag_id, tag_subcategory_id, NEW.event_id, event_subcategory_id
				USING ERRCODE = '23514';
		END IF;
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`,

	`DROP TRIGGER IF EXISTS trg_validate_event_tag_branch_consistency ON event_tags`,
	`CREATE TRIGGER trg_validate_event_tag_branch_consistency
	BEFORE INSERT OR UPDATE ON event_tags
	FOR EACH ROW
	EXECUTE FUNCTION validate_event_tag_branch_consistency()`,
}

// enforceInvariants enables the permanent consistency checks.
func enforceInvariants(ctx context.Context, tx pgx.Tx) error {
	for _, stmt := range enforcementStatements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("enforce invariants: %w", err)
		}
	}
	return nil
}
