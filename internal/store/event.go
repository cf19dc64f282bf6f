// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"citypulse/internal/models"
	"citypulse/internal/taxonomy"
)

// EventStore manages events in the database.
type EventStore struct {
	db *sql.DB
}

// NewEventStore returns a new EventStore.
func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

// EventFilter narrows the event listing. Canonical IDs come from the
// taxonomy resolver; the Legacy fields carry raw filter strings for the
// pre-migration fallback path and are ignored when an ID is set. Mode is
// the snapshot cache's cached determination and selects which query
// variant runs; the store never inspects the schema itself.
type EventFilter struct {
	Mode taxonomy.Mode

	CategoryID    *uuid.UUID
	SubcategoryID *uuid.UUID
	TagID         *uuid.UUID

	LegacyCategory string
	LegacyTag      string

	Date      *time.Time
	MinRating *float64
	Sort      string // "soonest" (default), "toprated", "price"
}

// branchColumns returns the select fragment for the event's canonical
// branch IDs. Pre-migration the columns do not exist, so the legacy
// variant selects typed NULLs instead of referencing them.
func branchColumns(mode taxonomy.Mode) string {
	if mode == taxonomy.TaxonomyMode {
		return "e.category_id, e.subcategory_id"
	}
	return "NULL::uuid, NULL::uuid"
}

// List returns events matching the filter with their location, tag names,
// and review aggregates. Tag names are collected from the multiplied join
// rows; ordering keeps each event's rows adjacent.
func (s *EventStore) List(ctx context.Context, f EventFilter) ([]models.Event, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, val any) {
		args = append(args, val)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.CategoryID != nil {
		add("e.category_id = $%d", *f.CategoryID)
	} else if f.LegacyCategory != "" {
		add("e.category ILIKE $%d", "%"+f.LegacyCategory+"%")
	}
	if f.SubcategoryID != nil {
		add("e.subcategory_id = $%d", *f.SubcategoryID)
	}
	if f.TagID != nil {
		add("EXISTS (SELECT 1 FROM event_tags x WHERE x.event_id = e.id AND x.tag_id = $%d)", *f.TagID)
	} else if f.LegacyTag != "" {
		add("EXISTS (SELECT 1 FROM event_tags x JOIN tags xt ON xt.id = x.tag_id WHERE x.event_id = e.id AND xt.name = $%d)", f.LegacyTag)
	}
	if f.Date != nil {
		add("DATE(e.start_time) = $%d::date", *f.Date)
	}
	if f.MinRating != nil {
		add("COALESCE(ra.review_avg, e.rating_avg) >= $%d", *f.MinRating)
	}

	query := `
		WITH review_agg AS (
			SELECT event_id, COUNT(*) AS review_count, AVG(rating)::float8 AS review_avg
			FROM reviews
			GROUP BY event_id
		)
		SELECT
			e.id, e.title, COALESCE(e.category, ''), ` + branchColumns(f.Mode) + `,
			e.start_time, e.end_time, e.description, e.cover_image_url,
			e.price::float8, e.rating_avg::float8, e.rating_count,
			l.id, l.name, l.address, l.latitude, l.longitude,
			l.features::text, l.cover_image_url, l.rating_avg::float8, l.rating_count,
			ra.review_avg, ra.review_count,
			tg.name
		FROM events e
		LEFT JOIN locations l ON e.location_id = l.id
		LEFT JOIN review_agg ra ON ra.event_id = e.id
		LEFT JOIN event_tags et ON et.event_id = e.id
		LEFT JOIN tags tg ON tg.id = et.tag_id
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	switch f.Sort {
	case "toprated":
		query += " ORDER BY COALESCE(ra.review_avg, e.rating_avg) DESC NULLS LAST, e.start_time ASC"
	case "price":
		query += " ORDER BY e.price ASC NULLS LAST, e.start_time ASC"
	default:
		query += " ORDER BY e.start_time ASC"
	}
	query += ", e.id, tg.name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var (
		events []models.Event
		cur    *models.Event
	)
	for rows.Next() {
		ev, tagName, err := scanEventRow(rows)
		if err != nil {
			return nil, err
		}
		if cur == nil || cur.ID != ev.ID {
			events = append(events, *ev)
			cur = &events[len(events)-1]
		}
		if tagName != "" {
			cur.Tags = append(cur.Tags, tagName)
		}
	}
	return events, rows.Err()
}

// scanEventRow scans one multiplied listing row into an event plus the
// tag name carried by this row (empty when the event has no tags).
func scanEventRow(rows *sql.Rows) (*models.Event, string, error) {
	var (
		ev models.Event

		locID      uuid.NullUUID
		locName    sql.NullString
		locAddress sql.NullString
		locLat     sql.NullFloat64
		locLng     sql.NullFloat64
		locFeat    sql.NullString
		locCover   sql.NullString
		locAvg     sql.NullFloat64
		locCount   sql.NullInt64

		reviewAvg   sql.NullFloat64
		reviewCount sql.NullInt64
		tagName     sql.NullString
	)
	err := rows.Scan(
		&ev.ID, &ev.Title, &ev.Category, &ev.CategoryID, &ev.SubcategoryID,
		&ev.StartTime, &ev.EndTime, &ev.Description, &ev.CoverImageURL,
		&ev.Price, &ev.RatingAvg, &ev.RatingCount,
		&locID, &locName, &locAddress, &locLat, &locLng,
		&locFeat, &locCover, &locAvg, &locCount,
		&reviewAvg, &reviewCount,
		&tagName,
	)
	if err != nil {
		return nil, "", fmt.Errorf("scan event row: %w", err)
	}

	if locID.Valid {
		loc := &models.Location{ID: locID.UUID, Name: locName.String}
		if locAddress.Valid {
			loc.Address = &locAddress.String
		}
		if locLat.Valid {
			loc.Latitude = &locLat.Float64
		}
		if locLng.Valid {
			loc.Longitude = &locLng.Float64
		}
		if locFeat.Valid {
			loc.Features = &locFeat.String
		}
		if locCover.Valid {
			loc.CoverImageURL = &locCover.String
		}
		if locAvg.Valid {
			loc.RatingAvg = &locAvg.Float64
		}
		if locCount.Valid {
			n := int(locCount.Int64)
			loc.RatingCount = &n
		}
		ev.Location = loc
	}

	// Live review aggregates win over the denormalized event columns.
	if reviewAvg.Valid {
		ev.RatingAvg = &reviewAvg.Float64
	}
	if reviewCount.Valid {
		n := int(reviewCount.Int64)
		ev.RatingCount = &n
	}

	ev.Tags = []string{}
	if tagName.Valid {
		return &ev, tagName.String, nil
	}
	return &ev, "", nil
}

// FindByID retrieves a single event with location, tag names, artists,
// and photos. Returns nil if not found.
func (s *EventStore) FindByID(ctx context.Context, id uuid.UUID, mode taxonomy.Mode) (*models.Event, []models.Artist, []string, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT
			e.id, e.title, COALESCE(e.category, ''), `+branchColumns(mode)+`,
			e.start_time, e.end_time, e.description, e.cover_image_url,
			e.price::float8, e.rating_avg::float8, e.rating_count,
			l.id, l.name, l.address, l.latitude, l.longitude,
			l.features::text, l.cover_image_url, l.rating_avg::float8, l.rating_count
		FROM events e
		LEFT JOIN locations l ON e.location_id = l.id
		WHERE e.id = $1
	`, id)

	var (
		ev models.Event

		locID      uuid.NullUUID
		locName    sql.NullString
		locAddress sql.NullString
		locLat     sql.NullFloat64
		locLng     sql.NullFloat64
		locFeat    sql.NullString
		locCover   sql.NullString
		locAvg     sql.NullFloat64
		locCount   sql.NullInt64
	)
	err := row.Scan(
		&ev.ID, &ev.Title, &ev.Category, &ev.CategoryID, &ev.SubcategoryID,
		&ev.StartTime, &ev.EndTime, &ev.Description, &ev.CoverImageURL,
		&ev.Price, &ev.RatingAvg, &ev.RatingCount,
		&locID, &locName, &locAddress, &locLat, &locLng,
		&locFeat, &locCover, &locAvg, &locCount,
	)
	if err == sql.ErrNoRows {
		return nil, nil, nil, nil
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("find event by id: %w", err)
	}

	if locID.Valid {
		loc := &models.Location{ID: locID.UUID, Name: locName.String}
		if locAddress.Valid {
			loc.Address = &locAddress.String
		}
		if locLat.Valid {
			loc.Latitude = &locLat.Float64
		}
		if locLng.Valid {
			loc.Longitude = &locLng.Float64
		}
		if locFeat.Valid {
			loc.Features = &locFeat.String
		}
		if locCover.Valid {
			loc.CoverImageURL = &locCover.String
		}
		if locAvg.Valid {
			loc.RatingAvg = &locAvg.Float64
		}
		if locCount.Valid {
			n := int(locCount.Int64)
			loc.RatingCount = &n
		}
		ev.Location = loc
	}

	ev.Tags, err = s.tagNames(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}

	artists, err := s.artists(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}

	photos, err := s.photos(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}

	return &ev, artists, photos, nil
}

func (s *EventStore) tagNames(ctx context.Context, eventID uuid.UUID) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.name
		FROM event_tags et
		JOIN tags t ON t.id = et.tag_id
		WHERE et.event_id = $1
		ORDER BY t.name ASC
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("event tags: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan event tag: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (s *EventStore) artists(ctx context.Context, eventID uuid.UUID) ([]models.Artist, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.name, a.bio, a.image_url, a.social_links
		FROM event_artists ea
		JOIN artists a ON a.id = ea.artist_id
		WHERE ea.event_id = $1
		ORDER BY a.name ASC
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("event artists: %w", err)
	}
	defer rows.Close()

	artists := []models.Artist{}
	for rows.Next() {
		var a models.Artist
		if err := rows.Scan(&a.ID, &a.Name, &a.Bio, &a.ImageURL, &a.SocialLinks); err != nil {
			return nil, fmt.Errorf("scan event artist: %w", err)
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}

func (s *EventStore) photos(ctx context.Context, eventID uuid.UUID) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT photo_url
		FROM event_photos
		WHERE event_id = $1
		ORDER BY id ASC
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("event photos: %w", err)
	}
	defer rows.Close()

	photos := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan event photo: %w", err)
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}
