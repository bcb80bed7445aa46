// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedEvent is published when a booking is successfully
// confirmed. It carries enough context for downstream consumers to
// log, notify or feed analytics without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID   uint64 `json:"booking_id"`
	StudentID   uint64 `json:"student_id"`
	InstanceID  uint64 `json:"instance_id"`
	ClassID     uint64 `json:"class_id"`
	ClassName   string `json:"class_name"`
	StudioID    uint64 `json:"studio_id"`
	StudioName  string `json:"studio_name"`
	StartsAt    string `json:"starts_at"`
	EndsAt      string `json:"ends_at"`
	PriceCents  uint32 `json:"price_cents"`
	Currency    string `json:"currency"`
	ConfirmedAt string `json:"confirmed_at"`
}

// CheckInRecordedEvent is published for every membership check-in so
// studios can drive door displays and attendance dashboards off the
// stream.
type CheckInRecordedEvent struct {
	CheckInID    uint64 `json:"checkin_id"`
	MembershipID uint64 `json:"membership_id"`
	StudioID     uint64 `json:"studio_id"`
	StudentName  string `json:"student_name"`
	Method       string `json:"method"`
	RecordedAt   string `json:"recorded_at"`
}
