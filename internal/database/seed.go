package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Seed populates the database with a small set of development fixtures:
// one venue and a handful of events carrying legacy free-text categories
// and flat tags. This deliberately reproduces the pre-migration data shape
// so the taxonomy fallback path and the migration engine can be exercised
// against a fresh database.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM events").Scan(&count); err != nil {
		return fmt.Errorf("seed check events: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	// The fixtures reproduce the legacy shape: free-text categories, no
	// branch columns. Once the hierarchy migration has run, the events
	// table requires canonical branch IDs and the fixtures no longer fit.
	var hierarchy bool
	if err := db.QueryRow("SELECT to_regclass('public.subcategories') IS NOT NULL").Scan(&hierarchy); err != nil {
		return fmt.Errorf("seed check schema: %w", err)
	}
	if hierarchy {
		slog.Info("hierarchy schema present, skipping legacy fixtures")
		return nil
	}

	var locationID string
	err := db.QueryRow(`
		INSERT INTO locations (name, address, latitude, longitude)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, "Riverside Hall", "12 Quay Street", 46.77, 23.59).Scan(&locationID)
	if err != nil {
		return fmt.Errorf("seed insert location: %w", err)
	}

	events := []struct {
		title    string
		category string
		tags     []string
	}{
		{"Warehouse Techno Night", "music", []string{"electronic", "vip"}},
		{"Open Air Indie Session", "music", []string{"live", "outdoor"}},
		{"Natural Wine Tasting", "food", []string{"wine-tasting"}},
		{"Gallery Night Downtown", "art", []string{"art"}},
		{"Saturday Comedy Club", "entertainment", nil},
	}

	start := time.Now().Add(72 * time.Hour)
	for i, e := range events {
		var eventID string
		err := db.QueryRow(`
			INSERT INTO events (location_id, title, category, start_time, end_time, price)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, locationID, e.title, e.category,
			start.Add(time.Duration(i)*24*time.Hour),
			start.Add(time.Duration(i)*24*time.Hour+4*time.Hour),
			25.0+float64(i)*5,
		).Scan(&eventID)
		if err != nil {
			return fmt.Errorf("seed insert event %q: %w", e.title, err)
		}

		for _, tag := range e.tags {
			// Look up by name instead of ON CONFLICT: the name unique
			// constraint does not survive the hierarchy migration.
			var tagID string
			err := db.QueryRow(`SELECT id FROM tags WHERE name = $1 LIMIT 1`, tag).Scan(&tagID)
			if err == sql.ErrNoRows {
				err = db.QueryRow(`INSERT INTO tags (name) VALUES ($1) RETURNING id`, tag).Scan(&tagID)
			}
			if err != nil {
				return fmt.Errorf("seed tag %q: %w", tag, err)
			}
			if _, err := db.Exec(`
				INSERT INTO event_tags (event_id, tag_id) VALUES ($1, $2)
				ON CONFLICT (event_id, tag_id) DO NOTHING
			`, eventID, tagID); err != nil {
				return fmt.Errorf("seed link tag %q: %w", tag, err)
			}
		}

		if _, err := db.Exec(`
			INSERT INTO reviews (event_id, rating, comment) VALUES ($1, $2, $3)
		`, eventID, 3+i%3, "seed review"); err != nil {
			return fmt.Errorf("seed insert review: %w", err)
		}
	}

	slog.Info("database seeded with development fixtures", "events", len(events))
	return nil
}
