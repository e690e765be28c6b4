// Package repository defines the error kinds shared by the ledger, the
// presence resolver, the search index and the counters.  Callers compare
// with errors.Is; the wrapped message carries the human-readable detail.
// Handlers translate each kind into an HTTP status.
package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/stadium-hospitality/internal/database"
)

// ErrNotFound is returned when a guest, room or event is absent, inactive or
// outside the caller's tenant or room assignment.
var ErrNotFound = errors.New("not found")

// ErrInvalidTransition is returned when a check-in or check-out does not
// match the guest's current presence.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrValidation signals malformed input.  It is never retried.
var ErrValidation = errors.New("validation error")

// ErrConflict signals a uniqueness clash raised by upstream CRUD.
var ErrConflict = errors.New("conflict")

// ErrUnavailable is returned when the backing store stays unreachable after
// the retry budget is spent.
var ErrUnavailable = errors.New("store unavailable")

// Kind returns the sentinel err wraps, or nil for unclassified errors.
func Kind(err error) error {
	for _, k := range []error{ErrNotFound, ErrInvalidTransition, ErrValidation, ErrConflict, ErrUnavailable} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// classify maps driver errors onto the error kinds.  sql.ErrNoRows becomes
// ErrNotFound with what as the message; transient connectivity failures
// become ErrUnavailable; everything else is returned unchanged.
func classify(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case Kind(err) != nil:
		return err
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case database.IsTransient(err):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
