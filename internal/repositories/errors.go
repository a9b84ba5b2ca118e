package repositories

import "errors"

var (
	// ErrNotFound is returned when no row matches, including conditional
	// updates whose guard (such as a current verification token) no longer holds.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned on unique violations: a taken email, a reused
	// verification token or a duplicate primary key.
	ErrConflict = errors.New("record conflict")
)
