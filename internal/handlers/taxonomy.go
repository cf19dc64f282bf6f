// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"citypulse/internal/cache"
	"citypulse/internal/taxonomy"
)

// Taxonomy serves the classification hierarchy. It reads from the
// in-memory snapshot cache (L1) and, for the public tree, additionally
// keeps the serialized payload in Valkey (L2) keyed by snapshot version.
type Taxonomy struct {
	snapshots *taxonomy.SnapshotCache
	payloads  *cache.TaxonomyCache
}

// NewTaxonomy creates a new Taxonomy handler group. payloads may be nil
// when Valkey is not configured.
func NewTaxonomy(snapshots *taxonomy.SnapshotCache, payloads *cache.TaxonomyCache) *Taxonomy {
	return &Taxonomy{snapshots: snapshots, payloads: payloads}
}

// treeResponse is the public taxonomy payload. Categories and Tags repeat
// the tree as flat name lists for callers that predate the hierarchy.
type treeResponse struct {
	Mode            string                  `json:"mode"`
	TaxonomyVersion string                  `json:"taxonomy_version,omitempty"`
	TTLSeconds      int                     `json:"ttl_seconds,omitempty"`
	Hierarchy       []taxonomy.CategoryNode `json:"hierarchy,omitempty"`
	Categories      []string                `json:"categories"`
	Tags            []string                `json:"tags"`
}

// Tree returns the nested taxonomy, or the flat legacy listing when the
// hierarchy migration has not run yet. ?refresh=1 bypasses both cache
// layers.
func (t *Taxonomy) Tree(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	refresh := forceRefresh(r)

	snap, err := t.snapshots.Get(ctx, refresh)
	if errors.Is(err, taxonomy.ErrUnavailable) {
		t.legacyTree(w, r)
		return
	}
	if err != nil {
		slog.Error("taxonomy snapshot load failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load taxonomy")
		return
	}

	if t.payloads != nil && !refresh {
		if payload, ok := t.payloads.Get(ctx, snap.Version); ok {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Write(payload)
			return
		}
	}

	resp := treeResponse{
		Mode:            "taxonomy",
		TaxonomyVersion: snap.Version,
		TTLSeconds:      int(t.snapshots.TTL().Seconds()),
		Hierarchy:       snap.Categories,
		Categories:      snap.FlatCategoryNames(),
		Tags:            snap.FlatTagNames(),
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		slog.Error("taxonomy payload encode failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to encode taxonomy")
		return
	}
	if t.payloads != nil {
		t.payloads.Set(ctx, snap.Version, payload)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Write(payload)
}

// AdminTree returns the taxonomy with per-node event usage counts. Counts
// change with every event write, so this payload is never cached in
// Valkey; the snapshot TTL alone bounds staleness.
func (t *Taxonomy) AdminTree(w http.ResponseWriter, r *http.Request) {
	snap, err := t.snapshots.GetAdmin(r.Context(), forceRefresh(r))
	if errors.Is(err, taxonomy.ErrUnavailable) {
		t.legacyTree(w, r)
		return
	}
	if err != nil {
		slog.Error("admin taxonomy snapshot load failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load taxonomy")
		return
	}

	writeJSON(w, http.StatusOK, treeResponse{
		Mode:            "taxonomy",
		TaxonomyVersion: snap.Version,
		TTLSeconds:      int(t.snapshots.TTL().Seconds()),
		Hierarchy:       snap.Categories,
		Categories:      snap.FlatCategoryNames(),
		Tags:            snap.FlatTagNames(),
	})
}

// legacyTree answers with the flat pre-migration listing.
func (t *Taxonomy) legacyTree(w http.ResponseWriter, r *http.Request) {
	categories, tags, err := t.snapshots.LegacyListing(r.Context())
	if err != nil {
		slog.Error("legacy taxonomy listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load taxonomy")
		return
	}
	writeJSON(w, http.StatusOK, treeResponse{
		Mode:       "legacy",
		Categories: categories,
		Tags:       tags,
	})
}

func forceRefresh(r *http.Request) bool {
	v := r.URL.Query().Get("refresh")
	return v == "1" || v == "true"
}
