// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package taxmigration implements the one-time migration that backfills
// legacy flat per-event categories and tags into the hierarchical
// taxonomy. The whole run executes inside a single transaction: any
// failure rolls everything back, and every write is either a slug-keyed
// upsert or a delete-then-reinsert keyed by event ID, so the run is safe
// to repeat from scratch.
package taxmigration

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
)

// Engine runs the migration phases in order: schema prepare, taxonomy
// seed, event backfill, validation, invariant enforcement, then commit
// (or rollback for a dry run).
type Engine struct {
	conn      *pgx.Conn
	batchSize int
	dryRun    bool
}

// Stats summarizes a completed run. A dry run reports the same numbers it
// would have committed.
type Stats struct {
	EventsTotal      int
	EventsUpdated    int
	TagReplacements  int
	UnmappedTags     int
	MixedBranchTags  int
	EventsWithNoTags int
}

// ValidationFailureError reports nonzero post-backfill invariant
// violations. It always aborts the run before anything is committed.
type ValidationFailureError struct {
	NullEvents  int
	CrossBranch int
}

func (e *ValidationFailureError) Error() string {
	return fmt.Sprintf(
		"validation failed: %d events missing category/subcategory, %d cross-branch event-tag links",
		e.NullEvents, e.CrossBranch)
}

// New creates an Engine. batchSize controls how many events are processed
// per backfill query and must be positive.
func New(conn *pgx.Conn, batchSize int, dryRun bool) (*Engine, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	return &Engine{conn: conn, batchSize: batchSize, dryRun: dryRun}, nil
}

// Run executes the migration. On any error the transaction is rolled back
// and durable state is left exactly as it was.
func (e *Engine) Run(ctx context.Context) (*Stats, error) {
	tx, err := e.conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin migration transaction: %w", err)
	}
	// No-op once the transaction is committed or rolled back explicitly.
	defer tx.Rollback(ctx)

	slog.Info("ensuring additive schema")
	if err := ensureSchema(ctx, tx); err != nil {
		return nil, err
	}

	slog.Info("seeding taxonomy")
	seeded, err := seedTaxonomy(ctx, tx)
	if err != nil {
		return nil, err
	}

	slog.Info("backfilling events", "batch_size", e.batchSize)
	stats, err := e.backfill(ctx, tx, seeded)
	if err != nil {
		return nil, err
	}

	slog.Info("validating migrated data")
	nullEvents, crossBranch, err := validateBackfill(ctx, tx)
	if err != nil {
		return nil, err
	}
	if nullEvents > 0 || crossBranch > 0 {
		return nil, &ValidationFailureError{NullEvents: nullEvents, CrossBranch: crossBranch}
	}

	slog.Info("enforcing invariants")
	if err := enforceInvariants(ctx, tx); err != nil {
		return nil, err
	}

	if e.dryRun {
		if err := tx.Rollback(ctx); err != nil {
			return nil, fmt.Errorf("rollback dry run: %w", err)
		}
		slog.Info("dry run complete, transaction rolled back")
		return stats, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit migration: %w", err)
	}
	slog.Info("migration committed")
	return stats, nil
}
