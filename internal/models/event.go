// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Event is a listed event. Category holds the legacy free-text category;
// CategoryID/SubcategoryID are nil until the hierarchy migration has run,
// and NOT NULL (enforced in the database) afterwards.
type Event struct {
	ID            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	Category      string     `json:"category"`
	CategoryID    *uuid.UUID `json:"category_id,omitempty"`
	SubcategoryID *uuid.UUID `json:"subcategory_id,omitempty"`
	StartTime     *time.Time `json:"start_time"`
	EndTime       *time.Time `json:"end_time"`
	Description   *string    `json:"description"`
	CoverImageURL *string    `json:"cover_image_url"`
	TicketURL     *string    `json:"ticket_url,omitempty"`
	Price         *float64   `json:"price"`
	RatingAvg     *float64   `json:"rating_avg"`
	RatingCount   *int       `json:"rating_count"`

	// Virtual fields populated by store methods.
	Tags     []string  `json:"tags"`
	Location *Location `json:"location"`
}

// Location is the venue an event takes place at.
type Location struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Address       *string   `json:"address"`
	Latitude      *float64  `json:"latitude"`
	Longitude     *float64  `json:"longitude"`
	Features      *string   `json:"features"`
	CoverImageURL *string   `json:"cover_image_url"`
	RatingAvg     *float64  `json:"rating_avg"`
	RatingCount   *int      `json:"rating_count"`
}

// Artist performs at events.
type Artist struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Bio         *string   `json:"bio"`
	ImageURL    *string   `json:"image_url"`
	SocialLinks *string   `json:"social_links"`
}
