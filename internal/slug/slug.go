// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug normalization for taxonomy
// identifiers. The same rule is used when resolving user input and when
// deriving lookup keys from legacy tag names, so both sides always agree.
package slug

import (
	"regexp"
	"strings"
)

// nonAlphanumeric matches runs of anything that isn't a lowercase letter
// or digit. Each run collapses to a single hyphen.
var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize converts the given string to canonical slug form.
// Example: "Drum & Bass Night!" → "drum-bass-night"
func Normalize(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = nonAlphanumeric.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}
