package model

import "time"

// Class is the reusable template describing a bookable activity.
// Concrete occurrences are SessionInstance rows produced by the
// schedule expander.  Once a class is referenced by instances its
// duration and capacity are frozen; only descriptive fields may
// change.  Corresponds to a row in the `classes` table.
//
// Fields:
//  ID          – primary key identifier.
//  StudioID    – owning studio.
//  Name        – class name shown to students.
//  Description – optional longer description.
//  DurationMin – length of one session in minutes.
//  Capacity    – maximum confirmed bookings per session.
//  PriceCents  – drop-in price in minor currency units.
//  Currency    – ISO 4217 code, e.g. "USD".
//  IsActive    – false blocks new scheduling but keeps existing
//                instances bookable.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Class struct {
	ID          uint64    // classes.id
	StudioID    uint64    // classes.studio_id
	Name        string    // classes.name
	Description *string   // classes.description (nullable)
	DurationMin uint32    // classes.duration_min
	Capacity    uint32    // classes.capacity
	PriceCents  uint32    // classes.price_cents
	Currency    string    // classes.currency
	IsActive    bool      // classes.is_active
	CreatedAt   time.Time // classes.created_at
	UpdatedAt   time.Time // classes.updated_at
}

// Duration returns the class length as a time.Duration.
func (c *Class) Duration() time.Duration {
	return time.Duration(c.DurationMin) * time.Minute
}
