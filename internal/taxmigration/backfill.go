// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package taxmigration

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"citypulse/internal/models"
	"citypulse/internal/slug"
)

// legacyEventRow is one event with its aggregated legacy tag names and
// slugs, as read by the batch query.
type legacyEventRow struct {
	ID       uuid.UUID
	Category string
	TagNames []string
	TagSlugs []string
}

// backfill reclassifies every event into the hierarchy in fixed-size
// batches ordered by event ID. The traversal order is fixed so branch
// tie-breaking is deterministic and a repeated run reproduces identical
// assignments.
func (e *Engine) backfill(ctx context.Context, tx pgx.Tx, seeded *seededTaxonomy) (*Stats, error) {
	stats := &Stats{}

	offset := 0
	for {
		batch, err := loadBatch(ctx, tx, e.batchSize, offset)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}

		for _, ev := range batch {
			stats.EventsTotal++
			if err := processEvent(ctx, tx, seeded, ev, stats); err != nil {
				return nil, err
			}
			stats.EventsUpdated++
		}

		offset += len(batch)
		slog.Info("processed events", "total", stats.EventsTotal)
	}

	return stats, nil
}

// loadBatch reads one page of events with their legacy tag names/slugs
// aggregated. Rows must be fully drained before the caller issues further
// statements on the same transaction.
func loadBatch(ctx context.Context, tx pgx.Tx, limit, offset int) ([]legacyEventRow, error) {
	rows, err := tx.Query(ctx, `
		SELECT
			e.id,
			COALESCE(e.category, ''),
			COALESCE(array_remove(array_agg(DISTINCT t.name), NULL), '{}') AS tag_names,
			COALESCE(array_remove(array_agg(DISTINCT t.slug), NULL), '{}') AS tag_slugs
		FROM events e
		LEFT JOIN event_tags et ON et.event_id = e.id
		LEFT JOIN tags t ON t.id = et.tag_id
		GROUP BY e.id
		ORDER BY e.id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("load event batch: %w", err)
	}
	defer rows.Close()

	var batch []legacyEventRow
	for rows.Next() {
		var ev legacyEventRow
		if err := rows.Scan(&ev.ID, &ev.Category, &ev.TagNames, &ev.TagSlugs); err != nil {
			return nil, fmt.Errorf("scan event batch row: %w", err)
		}
		batch = append(batch, ev)
	}
	return batch, rows.Err()
}

// auditEntry is one recorded replacement in an event plan. A nil legacyKey
// marks the no-tags case.
type auditEntry struct {
	legacyKey   *string
	mappedTagID uuid.UUID
	reason      string
}

// eventPlan is the full decision for one event: the chosen branch, the
// replacement tag-link set, and the audit rows to record. Building the
// plan touches no database state, so the reassignment rules are testable
// without a transaction.
type eventPlan struct {
	branch        branchKey
	categoryID    uuid.UUID
	subcategoryID uuid.UUID
	categoryName  string
	tagIDs        []uuid.UUID
	audits        []auditEntry
	noTags        bool
}

// planEvent decides the branch and replacement tag set for one event.
// Keys resolving inside the chosen branch keep their canonical tag;
// cross-branch and unresolved keys are replaced by the branch fallback tag
// with a mixed-branch or unmapped audit entry. Events with no legacy tags
// get the fallback tag outright. Tag IDs come out sorted for deterministic
// link insertion.
func planEvent(seeded *seededTaxonomy, ev legacyEventRow) eventPlan {
	legacyKeys := normalizeLegacyTagKeys(ev.TagNames, ev.TagSlugs)

	var mapped []tagTarget
	for _, key := range sortedKeys(legacyKeys) {
		if target, ok := seeded.resolveLegacyKey(key); ok {
			mapped = append(mapped, target)
		}
	}

	branch := chooseBranch(mapped, ev.Category)
	fallbackTagID := seeded.fallbackByBranch[branch]

	plan := eventPlan{
		branch:        branch,
		categoryID:    seeded.categoryIDs[branch.Category],
		subcategoryID: seeded.subcategoryIDs[branch],
		categoryName:  seeded.categoryNames[branch.Category],
	}

	next := make(map[uuid.UUID]struct{})
	if len(legacyKeys) == 0 {
		plan.noTags = true
		next[fallbackTagID] = struct{}{}
		plan.audits = append(plan.audits, auditEntry{nil, fallbackTagID, models.AuditReasonNoTags})
	} else {
		for _, key := range sortedKeys(legacyKeys) {
			key := key
			target, ok := seeded.resolveLegacyKey(key)
			if ok && target.Category == branch.Category && target.Subcategory == branch.Subcategory {
				next[target.TagID] = struct{}{}
				continue
			}
			reason := models.AuditReasonUnmapped
			if ok {
				reason = models.AuditReasonMixedBranch
			}
			next[fallbackTagID] = struct{}{}
			plan.audits = append(plan.audits, auditEntry{&key, fallbackTagID, reason})
		}
	}

	if len(next) == 0 {
		next[seeded.globalFallbackTagID] = struct{}{}
	}

	for id := range next {
		plan.tagIDs = append(plan.tagIDs, id)
	}
	sort.Slice(plan.tagIDs, func(i, j int) bool {
		return plan.tagIDs[i].String() < plan.tagIDs[j].String()
	})
	return plan
}

// count folds the plan's outcome into the run statistics.
func (p eventPlan) count(stats *Stats) {
	if p.noTags {
		stats.EventsWithNoTags++
	}
	for _, a := range p.audits {
		switch a.reason {
		case models.AuditReasonMixedBranch:
			stats.MixedBranchTags++
			stats.TagReplacements++
		case models.AuditReasonUnmapped:
			stats.UnmappedTags++
			stats.TagReplacements++
		}
	}
}

// processEvent plans one event's reassignment and applies it: audit rows,
// the branch columns, and a full replacement of the tag links.
func processEvent(ctx context.Context, tx pgx.Tx, seeded *seededTaxonomy, ev legacyEventRow, stats *Stats) error {
	plan := planEvent(seeded, ev)
	plan.count(stats)

	for _, a := range plan.audits {
		if err := insertAudit(ctx, tx, ev.ID, a.legacyKey, a.mappedTagID, plan.branch, a.reason); err != nil {
			return err
		}
	}

	_, err := tx.Exec(ctx, `
		UPDATE events
		SET category_id = $1,
		    subcategory_id = $2,
		    category = COALESCE(NULLIF(category, ''), $3)
		WHERE id = $4
	`, plan.categoryID, plan.subcategoryID, plan.categoryName, ev.ID)
	if err != nil {
		return fmt.Errorf("update event %s: %w", ev.ID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM event_tags WHERE event_id = $1`, ev.ID); err != nil {
		return fmt.Errorf("clear event tags for %s: %w", ev.ID, err)
	}
	for _, tagID := range plan.tagIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO event_tags (event_id, tag_id)
			VALUES ($1, $2)
			ON CONFLICT (event_id, tag_id) DO NOTHING
		`, ev.ID, tagID); err != nil {
			return fmt.Errorf("link event %s to tag %s: %w", ev.ID, tagID, err)
		}
	}

	return nil
}

func insertAudit(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, legacyTag *string, mappedTagID uuid.UUID, branch branchKey, reason string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO taxonomy_migration_audit (
			event_id, legacy_tag, mapped_tag_id, chosen_category_slug, chosen_subcategory_slug, reason
		) VALUES ($1, $2, $3, $4, $5, $6)
	`, eventID, legacyTag, mappedTagID, branch.Category, branch.Subcategory, reason)
	if err != nil {
		return fmt.Errorf("insert audit record for %s: %w", eventID, err)
	}
	return nil
}

// normalizeLegacyTagKeys derives the lookup key set for an event's legacy
// tags: stored slugs are lowercased as-is, names go through slug
// normalization. Empty keys are discarded.
func normalizeLegacyTagKeys(tagNames, tagSlugs []string) map[string]struct{} {
	keys := make(map[string]struct{})
	for _, s := range tagSlugs {
		if k := strings.ToLower(strings.TrimSpace(s)); k != "" {
			keys[k] = struct{}{}
		}
	}
	for _, n := range tagNames {
		if k := slug.Normalize(n); k != "" {
			keys[k] = struct{}{}
		}
	}
	return keys
}

// resolveLegacyKey maps a normalized legacy tag key to its placement: the
// explicit hint table wins, then a unique slug match across the whole
// taxonomy. Zero or multiple matches leave the key unresolved.
func (s *seededTaxonomy) resolveLegacyKey(key string) (tagTarget, bool) {
	if hint, ok := legacyTagHints[key]; ok {
		if id, ok := s.tagIDs[tagKey{hint.Category, hint.Subcategory, hint.Tag}]; ok {
			return tagTarget{hint.Category, hint.Subcategory, id}, true
		}
	}
	if candidates := s.tagSlugIndex[key]; len(candidates) == 1 {
		return candidates[0], true
	}
	return tagTarget{}, false
}

// chooseBranch tallies votes per branch among the resolved keys. The most
// voted branch wins; ties break by the fixed category priority, then
// lexicographically by subcategory slug. With no resolved keys the legacy
// category text is mapped through the alias table, defaulting to the
// global catch-all branch.
func chooseBranch(mapped []tagTarget, legacyCategoryText string) branchKey {
	if len(mapped) > 0 {
		counts := make(map[branchKey]int)
		for _, m := range mapped {
			counts[branchKey{m.Category, m.Subcategory}]++
		}

		maxCount := 0
		for _, n := range counts {
			if n > maxCount {
				maxCount = n
			}
		}
		var candidates []branchKey
		for branch, n := range counts {
			if n == maxCount {
				candidates = append(candidates, branch)
			}
		}
		sort.Slice(candidates, func(i, j int) bool {
			pi, pj := priorityIndex(candidates[i].Category), priorityIndex(candidates[j].Category)
			if pi != pj {
				return pi < pj
			}
			return candidates[i].Subcategory < candidates[j].Subcategory
		})
		return candidates[0]
	}

	categorySlug, ok := legacyCategoryAliases[slug.Normalize(legacyCategoryText)]
	if !ok {
		categorySlug = globalFallbackCategory
	}
	subcategorySlug, ok := defaultSubcategoryByCategory[categorySlug]
	if !ok {
		subcategorySlug = globalFallbackSubcategory
	}
	return branchKey{categorySlug, subcategorySlug}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
