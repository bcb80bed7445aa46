package model

import "time"

// InstanceState enumerates the lifecycle states of a session
// instance.  Deletion is not a state: an instance with zero bookings
// is hard-deleted and its row disappears.  Using a dedicated type
// instead of a bare bool keeps transition checks in one place.
type InstanceState string

const (
	// InstanceScheduled is the initial and only bookable state.
	InstanceScheduled InstanceState = "SCHEDULED"
	// InstanceCancelled is terminal.  Bookings made before the
	// cancellation are kept for history and refunds.
	InstanceCancelled InstanceState = "CANCELLED"
)

// Valid reports whether s is a known state value.  Rows read from the
// database pass through this check before use.
func (s InstanceState) Valid() bool {
	return s == InstanceScheduled || s == InstanceCancelled
}

// SessionInstance is one concrete occurrence of a class at a specific
// time.  Instances are created in bulk by the schedule expander or
// individually, carry a denormalized booking counter and hold the
// invariant 0 <= CurrentBookings <= class capacity.  Corresponds to a
// row in the `session_instances` table.
//
// Fields:
//  ID              – primary key identifier.
//  ClassID         – class template this instance realizes.
//  InstructorID    – optional assigned instructor.
//  StartsAt        – scheduled start (UTC).
//  EndsAt          – scheduled end, always StartsAt + class duration.
//  CurrentBookings – count of confirmed bookings (denormalized).
//  State           – SCHEDULED or CANCELLED.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type SessionInstance struct {
	ID              uint64        // session_instances.id
	ClassID         uint64        // session_instances.class_id
	InstructorID    *uint64       // session_instances.instructor_id (nullable)
	StartsAt        time.Time     // session_instances.starts_at
	EndsAt          time.Time     // session_instances.ends_at
	CurrentBookings uint32        // session_instances.current_bookings
	State           InstanceState // session_instances.state
	CreatedAt       time.Time     // session_instances.created_at
	UpdatedAt       time.Time     // session_instances.updated_at
}

// Past reports whether the instance has already started relative to now.
func (s *SessionInstance) Past(now time.Time) bool {
	return !s.StartsAt.After(now)
}
