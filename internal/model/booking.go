package model

import "time"

// Booking statuses stored in bookings.status.
const (
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
)

// Booking records a student's claim on one session instance.  At most
// one non-cancelled booking may exist per (student, instance); the
// pair carries a unique key in the database and the service layer
// checks it again before the capacity gate so the two failures stay
// distinguishable.  Corresponds to a row in the `bookings` table.
//
// Fields:
//  ID          – primary key identifier.
//  StudentID   – student who booked.
//  InstanceID  – session instance being claimed.
//  Status      – CONFIRMED or CANCELLED.
//  PaymentRef  – external payment reference, if any.
//  CheckedInAt – when the student attended, null until then.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Booking struct {
	ID          uint64     // bookings.id
	StudentID   uint64     // bookings.student_id
	InstanceID  uint64     // bookings.instance_id
	Status      string     // bookings.status
	PaymentRef  *string    // bookings.payment_ref (nullable)
	CheckedInAt *time.Time // bookings.checked_in_at (nullable)
	CreatedAt   time.Time  // bookings.created_at
	UpdatedAt   time.Time  // bookings.updated_at
}
