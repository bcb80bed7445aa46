package model

import "time"

// Studio represents a fitness studio owned by a user.  A studio
// publishes classes and membership plans and is the tenancy boundary
// for every authorization check in the service layer.  This struct
// corresponds to a row in the `studios` table.
//
// Fields:
//  ID        – primary key identifier.
//  OwnerID   – user ID of the studio owner.
//  Name      – unique name of the studio per owner.
//  Timezone  – informational IANA timezone label shown to students.
//  IsActive  – whether the studio is accepting bookings.
//  CreatedAt – timestamp when the studio was created.
//  UpdatedAt – timestamp of last update.
type Studio struct {
	ID        uint64    // studios.id
	OwnerID   uint64    // studios.owner_id
	Name      string    // studios.name
	Timezone  string    // studios.timezone
	IsActive  bool      // studios.is_active
	CreatedAt time.Time // studios.created_at
	UpdatedAt time.Time // studios.updated_at
}

// Actor identifies the authenticated caller of a service operation.
// It is built by the HTTP layer from the JWT claims and passed
// explicitly into every core operation; the core never reads
// ambient request state.  A zero UserID means "no actor"
// (self-service flows such as kiosk check-in).
type Actor struct {
	UserID uint64 // authenticated user id (0 when absent)
	Role   string // OWNER, MANAGER or STUDENT
}

// Staff reports whether the actor holds an operator role.  Whether
// the actor may touch a specific studio is decided separately by
// comparing against studio ownership and the studio_managers table.
func (a Actor) Staff() bool {
	return a.Role == RoleOwner || a.Role == RoleManager
}

// Role names stored in users.role and carried in the JWT "role" claim.
const (
	RoleOwner   = "OWNER"
	RoleManager = "MANAGER"
	RoleStudent = "STUDENT"
)
