// Package main is the entry point for the CityPulse API server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"citypulse/internal/cache"
	"citypulse/internal/config"
	"citypulse/internal/database"
	"citypulse/internal/handlers"
	"citypulse/internal/router"
	"citypulse/internal/store"
	"citypulse/internal/taxonomy"
)

func main() {
	// Structured logger — outputs JSON in production, text in development.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"taxonomy_ttl_seconds", cfg.TaxonomyTTLSeconds,
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations (legacy base schema only; the hierarchy is
	// installed by the taxmigrate command).
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey for the serialized taxonomy payload cache. The
	// server works without it; only the L2 layer is skipped.
	var taxonomyPayloads *cache.TaxonomyCache
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Warn("valkey unavailable, taxonomy payload cache disabled", "error", err)
	} else {
		defer valkeyClient.Close()
		taxonomyPayloads = cache.NewTaxonomyCache(valkeyClient, cache.DefaultTaxonomyTTL)
	}

	// Initialize data stores and the taxonomy read model.
	eventStore := store.NewEventStore(db)
	reviewStore := store.NewReviewStore(db)
	snapshots := taxonomy.NewSnapshotCache(taxonomy.NewStore(db), cfg.TaxonomyTTLSeconds)
	resolver := taxonomy.NewResolver()

	// Create handler groups with their dependencies.
	healthHandlers := handlers.NewHealth(db)
	eventHandlers := handlers.NewEvents(eventStore, reviewStore, snapshots, resolver)
	taxonomyHandlers := handlers.NewTaxonomy(snapshots, taxonomyPayloads)

	// Set up the Chi router with all middleware and routes.
	r := router.New(healthHandlers, eventHandlers, taxonomyHandlers)

	// Create the HTTP server with sensible timeouts.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
