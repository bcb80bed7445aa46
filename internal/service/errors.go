// Package service implements the scheduling and membership lifecycle
// engines. Every operation takes an explicit model.Actor and a
// context; nothing in this package reads ambient request state or
// talks HTTP. Operations return tagged sentinel errors so that the
// handler layer can map each failure to a distinct status code and a
// distinct human-readable message.
package service

import "errors"

var (
	// ErrNotFound is returned when the addressed resource does not
	// exist. Public-facing flows intentionally answer not-found and
	// forbidden identically so existence cannot be probed.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the actor's studio or role does
	// not match the resource being mutated.
	ErrForbidden = errors.New("forbidden")

	// ErrClassInactive rejects scheduling against a deactivated
	// class. Existing instances of the class stay bookable.
	ErrClassInactive = errors.New("class is not active")

	// ErrNoSessions is returned when a schedule request expands to
	// zero upcoming sessions inside the horizon. A silent no-op would
	// leave the operator believing sessions were created.
	ErrNoSessions = errors.New("no upcoming sessions generated")

	// ErrAlreadyBooked rejects a second confirmed booking by the same
	// student for the same session instance. Checked before the
	// capacity gate so the two failures stay distinguishable.
	ErrAlreadyBooked = errors.New("already booked")

	// ErrAtCapacity is returned when the session instance has no free
	// spots left.
	ErrAtCapacity = errors.New("class is at capacity")

	// ErrInstanceCancelled rejects bookings against a cancelled
	// session instance.
	ErrInstanceCancelled = errors.New("class instance is cancelled")

	// ErrAlreadyCancelled reports a cancel request against something
	// that is cancelled already (instance or booking).
	ErrAlreadyCancelled = errors.New("already cancelled")

	// ErrPastInstance rejects rescheduling of an instance that has
	// already started. Delete/cancel remains permitted on past
	// instances for historical cleanup.
	ErrPastInstance = errors.New("cannot update past class instances")

	// ErrPlanInactive rejects purchases of a deactivated plan.
	ErrPlanInactive = errors.New("plan is not active")

	// ErrWrongStudio is returned when a membership or plan belongs to
	// a different studio than the one handling the request.
	ErrWrongStudio = errors.New("not for this studio")

	// ErrMembershipInvalid is the validity-predicate failure: the
	// membership is expired, or flagged expired, and cannot check in.
	ErrMembershipInvalid = errors.New("membership is not active or has expired")
)
