// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package taxonomy

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrUnavailable signals that the hierarchy tables do not exist yet
// (pre-migration schema). It is not a failure: callers fall back to the
// legacy flat category/tag listing.
var ErrUnavailable = errors.New("taxonomy unavailable: hierarchy tables missing")

// Level identifies which tier of the hierarchy an identifier refers to.
type Level string

const (
	LevelCategory    Level = "category"
	LevelSubcategory Level = "subcategory"
	LevelTag         Level = "tag"
)

// UnknownIdentifierError reports an identifier that matches no node under
// the current scope.
type UnknownIdentifierError struct {
	Level Level
	Value string
}

func (e *UnknownIdentifierError) Error() string {
	return fmt.Sprintf("unknown %s identifier %q", e.Level, e.Value)
}

// AmbiguousIdentifierError reports an identifier matching two or more
// nodes. Distinct from UnknownIdentifierError so the caller knows to
// narrow the request with a parent filter. Candidates are ordered by slug
// so the same input always produces the same error.
type AmbiguousIdentifierError struct {
	Level      Level
	Value      string
	Candidates []uuid.UUID
}

func (e *AmbiguousIdentifierError) Error() string {
	return fmt.Sprintf("ambiguous %s identifier %q matches %d nodes, narrow with a parent filter",
		e.Level, e.Value, len(e.Candidates))
}

// ScopeMismatchError reports a node that resolved successfully but does
// not belong to an already-resolved parent.
type ScopeMismatchError struct {
	Level Level
	Value string
}

func (e *ScopeMismatchError) Error() string {
	return fmt.Sprintf("%s %q does not belong to the resolved parent scope", e.Level, e.Value)
}
