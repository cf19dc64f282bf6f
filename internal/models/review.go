// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// Review is a user review of an event.
type Review struct {
	Rating    int        `json:"rating"`
	Comment   *string    `json:"comment"`
	Photos    *string    `json:"photos"`
	CreatedAt *time.Time `json:"created_at"`
}

// ReviewSummary aggregates review stats for a single event.
type ReviewSummary struct {
	Count     int     `json:"count"`
	RatingAvg float64 `json:"rating_avg"`
}
