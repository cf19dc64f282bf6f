// Package main provides the taxmigrate CLI: the one-time migration that
// moves the events database from flat free-text categories and tags to
// the hierarchical taxonomy.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"

	"citypulse/internal/cache"
	"citypulse/internal/config"
	"citypulse/internal/taxmigration"
)

var (
	// batchSize is set by the --batch-size flag.
	batchSize int

	// dryRun is set by the --dry-run flag.
	dryRun bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "taxmigrate",
	Short: "Backfill the hierarchical event taxonomy",
	Long: `taxmigrate reclassifies every event from the legacy flat category and
tag columns into the canonical category > subcategory > tag hierarchy.

The whole run executes in a single transaction: schema preparation,
taxonomy seeding, event backfill, validation, and invariant enforcement
either all commit together or roll back together. Re-running a committed
migration is safe; every write is keyed by slug or event ID.

Connection settings come from the same POSTGRES_* environment variables
the API server uses.`,
	RunE: runMigration,
}

func init() {
	rootCmd.Flags().IntVar(&batchSize, "batch-size", 200, "events processed per backfill batch")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "run every phase, then roll back instead of committing")
}

func runMigration(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	conn, err := pgx.Connect(ctx, cfg.DSN())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer conn.Close(ctx)

	engine, err := taxmigration.New(conn, batchSize, dryRun)
	if err != nil {
		return err
	}

	slog.Info("starting taxonomy migration", "batch_size", batchSize, "dry_run", dryRun)
	stats, err := engine.Run(ctx)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("taxonomy migration finished",
		"dry_run", dryRun,
		"events_total", stats.EventsTotal,
		"events_updated", stats.EventsUpdated,
		"tag_replacements", stats.TagReplacements,
		"unmapped_tags", stats.UnmappedTags,
		"mixed_branch_tags", stats.MixedBranchTags,
		"events_with_no_tags", stats.EventsWithNoTags,
	)

	if !dryRun {
		clearTaxonomyPayloads(ctx, cfg)
	}
	return nil
}

// clearTaxonomyPayloads drops the serialized taxonomy payloads from Valkey
// after a committed migration, so API clients see the hierarchy as soon as
// the snapshot TTL rolls over instead of waiting out the payload TTL too.
// Best effort: the migration already committed, and stale payloads age out
// on their own.
func clearTaxonomyPayloads(ctx context.Context, cfg *config.Config) {
	client, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Warn("valkey unreachable, cached taxonomy payloads expire via TTL", "error", err)
		return
	}
	defer client.Close()

	cache.NewTaxonomyCache(client, 0).InvalidateAll(ctx)
}
