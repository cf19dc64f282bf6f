// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"citypulse/internal/models"
)

// ReviewStore manages event reviews.
type ReviewStore struct {
	db *sql.DB
}

// NewReviewStore returns a new ReviewStore.
func NewReviewStore(db *sql.DB) *ReviewStore {
	return &ReviewStore{db: db}
}

// Summary returns the review count and average rating for an event.
func (s *ReviewStore) Summary(ctx context.Context, eventID uuid.UUID) (models.ReviewSummary, error) {
	var summary models.ReviewSummary
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(AVG(rating), 0)::float8
		FROM reviews
		WHERE event_id = $1
	`, eventID).Scan(&summary.Count, &summary.RatingAvg)
	if err != nil {
		return models.ReviewSummary{}, fmt.Errorf("review summary: %w", err)
	}
	return summary, nil
}

// Latest returns the most recent reviews for an event, newest first.
func (s *ReviewStore) Latest(ctx context.Context, eventID uuid.UUID, limit int) ([]models.Review, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rating, comment, photos, created_at
		FROM reviews
		WHERE event_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, eventID, limit)
	if err != nil {
		return nil, fmt.Errorf("latest reviews: %w", err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var r models.Review
		if err := rows.Scan(&r.Rating, &r.Comment, &r.Photos, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}
