package model

import "time"

// MembershipStatus enumerates the lifecycle states of a membership.
// EXPIRED is terminal; reactivation means purchasing a new
// membership, never flipping the status back.
type MembershipStatus string

const (
	MembershipActive  MembershipStatus = "ACTIVE"
	MembershipExpired MembershipStatus = "EXPIRED"
)

// Valid reports whether s is a known status value.
func (s MembershipStatus) Valid() bool {
	return s == MembershipActive || s == MembershipExpired
}

// MembershipPlan is a purchasable recurring-access template scoped to
// one studio.  Corresponds to a row in the `membership_plans` table.
//
// Fields:
//  ID             – primary key identifier.
//  StudioID       – studio selling the plan.
//  Name           – plan name shown to students.
//  DurationMonths – validity window in calendar months.
//  PriceCents     – price in minor currency units.
//  Currency       – ISO 4217 code.
//  IsActive       – false blocks new purchases only.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type MembershipPlan struct {
	ID             uint64    // membership_plans.id
	StudioID       uint64    // membership_plans.studio_id
	Name           string    // membership_plans.name
	DurationMonths uint32    // membership_plans.duration_months
	PriceCents     uint32    // membership_plans.price_cents
	Currency       string    // membership_plans.currency
	IsActive       bool      // membership_plans.is_active
	CreatedAt      time.Time // membership_plans.created_at
	UpdatedAt      time.Time // membership_plans.updated_at
}

// Membership is a student's purchased instance of a plan.  It is a
// historical record and is never hard-deleted.  The opaque
// CheckinCode is generated at purchase time and presented (usually as
// a QR code) at the studio entrance.  Corresponds to a row in the
// `memberships` table.
//
// Fields:
//  ID          – primary key identifier.
//  StudentID   – purchasing student.
//  PlanID      – plan that was purchased.
//  StudioID    – studio the membership is valid at.
//  PurchasedAt – purchase instant (UTC).
//  ExpiresAt   – PurchasedAt plus the plan duration in calendar
//                months, day-of-month clamped.
//  Status      – ACTIVE or EXPIRED.
//  PaymentRef  – external payment reference, if any.
//  CheckinCode – unguessable hex code used for scanned check-in.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Membership struct {
	ID          uint64           // memberships.id
	StudentID   uint64           // memberships.student_id
	PlanID      uint64           // memberships.plan_id
	StudioID    uint64           // memberships.studio_id
	PurchasedAt time.Time        // memberships.purchased_at
	ExpiresAt   time.Time        // memberships.expires_at
	Status      MembershipStatus // memberships.status
	PaymentRef  *string          // memberships.payment_ref (nullable)
	CheckinCode string           // memberships.checkin_code
	CreatedAt   time.Time        // memberships.created_at
	UpdatedAt   time.Time        // memberships.updated_at
}

// ValidAt is the check-in validity predicate.  A membership whose
// expiry has passed but whose status is still ACTIVE fails the
// predicate without being flipped; the stale-membership sweep handles
// the status transition later.
func (m *Membership) ValidAt(now time.Time) bool {
	return m.Status == MembershipActive && now.Before(m.ExpiresAt)
}
