// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// service engines to distinguish between different failure scenarios
// without inspecting driver-specific errors. For example, ErrDuplicate
// maps a unique-key violation on (student, instance) back to the
// duplicate-booking guard, while ErrCapacity reports that the atomic
// counter gate refused an increment.
package repository

import "errors"

// ErrNotFound is returned when a row does not exist. Repositories
// translate sql.ErrNoRows into this value so that callers never
// depend on database/sql directly.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be
// performed because of conflicting state, such as hard-deleting a
// session instance that acquired bookings concurrently, or
// cancelling a booking that is already cancelled. Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrDuplicate is returned when an insert violates a uniqueness
// invariant, e.g. a second confirmed booking by the same student for
// the same session instance.
var ErrDuplicate = errors.New("duplicate")

// ErrCapacity is returned by the booking insert when the conditional
// counter update finds the session instance full. The check and the
// increment are a single statement, so two concurrent bookings can
// never both pass the gate.
var ErrCapacity = errors.New("capacity exceeded")
