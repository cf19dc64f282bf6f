// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the JSON HTTP API for the CityPulse server.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"citypulse/internal/taxonomy"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error body with the given status code.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// resolutionStatus maps a taxonomy resolution error to an HTTP status.
// Unknown identifiers are 404, ambiguous ones 409 (the client must narrow
// the request), scope mismatches 422. Returns false for other errors.
func resolutionStatus(err error) (int, bool) {
	var (
		unknown   *taxonomy.UnknownIdentifierError
		ambiguous *taxonomy.AmbiguousIdentifierError
		mismatch  *taxonomy.ScopeMismatchError
	)
	switch {
	case errors.As(err, &unknown):
		return http.StatusNotFound, true
	case errors.As(err, &ambiguous):
		return http.StatusConflict, true
	case errors.As(err, &mismatch):
		return http.StatusUnprocessableEntity, true
	}
	return 0, false
}
