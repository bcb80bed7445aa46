package model

import (
	"time"

	"github.com/google/uuid"
)

// ScheduleRule is a weekday + time-of-day pattern recorded when an
// operator schedules a class with weekly repetition.  One rule is
// stored per selected weekday; rules created by the same request
// share a GroupID.  Rules are deactivated, never deleted, so that
// historical instances keep their audit linkage.  Corresponds to a
// row in the `schedule_rules` table.
//
// Fields:
//  ID        – primary key identifier.
//  ClassID   – class this rule generates instances for.
//  GroupID   – uuid shared by all rules of one scheduling request.
//  Weekday   – day of week, 0 = Sunday … 6 = Saturday.
//  StartTime – time of day the session starts ("15:04:05").
//  EndTime   – derived start + class duration at rule creation time.
//  IsActive  – false once the pattern has been stopped.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type ScheduleRule struct {
	ID        uint64       // schedule_rules.id
	ClassID   uint64       // schedule_rules.class_id
	GroupID   uuid.UUID    // schedule_rules.group_id
	Weekday   time.Weekday // schedule_rules.weekday (0-6)
	StartTime string       // schedule_rules.start_time
	EndTime   string       // schedule_rules.end_time
	IsActive  bool         // schedule_rules.is_active
	CreatedAt time.Time    // schedule_rules.created_at
	UpdatedAt time.Time    // schedule_rules.updated_at
}
