package datastore

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by SelectOne when no row matches.
var ErrNotFound = errors.New("not found")

// ErrConflict marks a write rejected by a unique constraint.
var ErrConflict = errors.New("conflict")

// classify wraps unique-constraint violations so callers can test for them
// with errors.Is regardless of driver. Drivers only agree on message text.
func classify(err error) error {
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "unique constraint"),
		strings.Contains(lower, "duplicate key"),
		strings.Contains(lower, "duplicate entry"),
		strings.Contains(lower, "violation of unique"):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	default:
		return err
	}
}
