// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"citypulse/internal/models"
	"citypulse/internal/store"
	"citypulse/internal/taxonomy"
)

// latestReviewLimit is how many recent reviews the detail payload embeds.
const latestReviewLimit = 3

// Events serves event listing and detail endpoints. Taxonomy filters are
// resolved to canonical IDs against the current snapshot; before the
// hierarchy migration has run, filtering falls back to the legacy
// free-text matching.
type Events struct {
	events    *store.EventStore
	reviews   *store.ReviewStore
	snapshots *taxonomy.SnapshotCache
	resolver  *taxonomy.Resolver
}

// NewEvents creates a new Events handler group.
func NewEvents(events *store.EventStore, reviews *store.ReviewStore, snapshots *taxonomy.SnapshotCache, resolver *taxonomy.Resolver) *Events {
	return &Events{
		events:    events,
		reviews:   reviews,
		snapshots: snapshots,
		resolver:  resolver,
	}
}

// List returns events matching the query filters: category, subcategory,
// tag, date (YYYY-MM-DD), min_rating, sort (soonest|toprated|price).
func (h *Events) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var filter store.EventFilter

	switch sort := q.Get("sort"); sort {
	case "", "soonest", "toprated", "price":
		filter.Sort = sort
	default:
		writeError(w, http.StatusBadRequest, "invalid sort, expected soonest, toprated, or price")
		return
	}

	if raw := q.Get("date"); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		filter.Date = &date
	}

	if raw := q.Get("min_rating"); raw != "" {
		rating, err := strconv.ParseFloat(raw, 64)
		if err != nil || rating < 0 || rating > 5 {
			writeError(w, http.StatusBadRequest, "invalid min_rating, expected a number between 0 and 5")
			return
		}
		filter.MinRating = &rating
	}

	// One cached mode determination drives both the query variant and the
	// filter strategy for this request.
	mode, err := h.snapshots.Mode(ctx)
	if err != nil {
		slog.Error("taxonomy mode load failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load taxonomy")
		return
	}
	filter.Mode = mode

	catRaw, subRaw, tagRaw := q.Get("category"), q.Get("subcategory"), q.Get("tag")
	if catRaw != "" || subRaw != "" || tagRaw != "" {
		snap, err := h.snapshots.Get(ctx, false)
		switch {
		case errors.Is(err, taxonomy.ErrUnavailable):
			// Pre-migration matching: free-text category, exact tag name.
			// Subcategories do not exist in the legacy schema.
			filter.Mode = taxonomy.LegacyMode
			filter.LegacyCategory = catRaw
			filter.LegacyTag = tagRaw
			if subRaw != "" {
				slog.Warn("subcategory filter ignored in legacy mode", "value", subRaw)
			}
		case err != nil:
			slog.Error("taxonomy snapshot load failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load taxonomy")
			return
		default:
			resolved, err := h.resolver.ResolveFilter(snap, catRaw, subRaw, tagRaw)
			if err != nil {
				if status, ok := resolutionStatus(err); ok {
					writeError(w, status, err.Error())
					return
				}
				slog.Error("filter resolution failed", "error", err)
				writeError(w, http.StatusInternalServerError, "failed to resolve filters")
				return
			}
			filter.CategoryID = resolved.CategoryID
			filter.SubcategoryID = resolved.SubcategoryID
			filter.TagID = resolved.TagID
		}
	}

	events, err := h.events.List(ctx, filter)
	if err != nil {
		slog.Error("event listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// detailResponse is the single-event payload.
type detailResponse struct {
	Event         *models.Event        `json:"event"`
	Artists       []models.Artist      `json:"artists"`
	Photos        []string             `json:"photos"`
	ReviewSummary models.ReviewSummary `json:"review_summary"`
	LatestReviews []models.Review      `json:"latest_reviews"`
}

// Detail returns a single event with artists, photos, and review data.
func (h *Events) Detail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	mode, err := h.snapshots.Mode(ctx)
	if err != nil {
		slog.Error("taxonomy mode load failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load taxonomy")
		return
	}

	event, artists, photos, err := h.events.FindByID(ctx, id, mode)
	if err != nil {
		slog.Error("event lookup failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load event")
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	summary, err := h.reviews.Summary(ctx, id)
	if err != nil {
		slog.Error("review summary failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load reviews")
		return
	}
	latest, err := h.reviews.Latest(ctx, id, latestReviewLimit)
	if err != nil {
		slog.Error("latest reviews failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load reviews")
		return
	}

	writeJSON(w, http.StatusOK, detailResponse{
		Event:         event,
		Artists:       artists,
		Photos:        photos,
		ReviewSummary: summary,
		LatestReviews: latest,
	})
}
