package model

import "time"

// CheckInMethod records how a membership was presented at the door.
type CheckInMethod string

const (
	// CheckInScanned – the opaque membership code was scanned
	// (self-service kiosk or an operator's scanner).
	CheckInScanned CheckInMethod = "SCANNED_CODE"
	// CheckInManualID – the numeric membership id was typed in at a
	// self-service terminal.
	CheckInManualID CheckInMethod = "MANUAL_ID"
	// CheckInOperator – a staff member recorded the visit by looking
	// the membership up themselves.
	CheckInOperator CheckInMethod = "OPERATOR_MANUAL"
)

// Valid reports whether m is a known method value.
func (m CheckInMethod) Valid() bool {
	return m == CheckInScanned || m == CheckInManualID || m == CheckInOperator
}

// MembershipCheckIn is one row of the append-only check-in audit log.
// Rows are written only after the validity predicate passes and are
// never mutated afterwards.
//
// Fields:
//  ID           – primary key identifier.
//  MembershipID – membership that was presented.
//  Method       – how the membership was looked up.
//  ActorID      – staff member who recorded the visit; nil for
//                 self-service.
//  CreatedAt    – when the check-in happened.
type MembershipCheckIn struct {
	ID           uint64        // membership_checkins.id
	MembershipID uint64        // membership_checkins.membership_id
	Method       CheckInMethod // membership_checkins.method
	ActorID      *uint64       // membership_checkins.actor_id (nullable)
	CreatedAt    time.Time     // membership_checkins.created_at
}
