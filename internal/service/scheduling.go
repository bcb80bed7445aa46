package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tulgax/studio-booking/internal/model"
	"github.com/tulgax/studio-booking/internal/repository"
	"github.com/tulgax/studio-booking/internal/schedule"
)

// ClassStore loads class templates for scheduling decisions.
type ClassStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Class, error)
}

// StudioAccess answers whether a user may operate a studio, i.e. owns
// it or appears in its manager list.
type StudioAccess interface {
	IsOperator(ctx context.Context, studioID, userID uint64) (bool, error)
}

// RuleStore persists recurring schedule rules. Rules are only ever
// created in batches (one per selected weekday) and deactivated, never
// deleted.
type RuleStore interface {
	CreateBatch(ctx context.Context, rules []model.ScheduleRule) error
	DeactivateForClass(ctx context.Context, classID uint64) (int64, error)
}

// InstanceStore persists session instances. DeleteEmpty must refuse
// (with repository.ErrConflict) to remove a row whose booking counter
// is no longer zero, closing the race between the controller's read
// and the delete.
type InstanceStore interface {
	CreateBulk(ctx context.Context, instances []model.SessionInstance) (int, error)
	GetByID(ctx context.Context, id uint64) (*model.SessionInstance, error)
	DeleteEmpty(ctx context.Context, id uint64) error
	MarkCancelled(ctx context.Context, id uint64) error
	CancelFutureForClass(ctx context.Context, classID uint64, from time.Time) (int64, error)
	Reschedule(ctx context.Context, id uint64, startsAt, endsAt time.Time, instructorID *uint64) error
}

// SchedulingService expands schedule requests into session instances
// and drives the instance lifecycle: Scheduled, then either Cancelled
// (bookings exist, row kept) or Deleted (no bookings, row removed).
type SchedulingService struct {
	classes   ClassStore
	studios   StudioAccess
	rules     RuleStore
	instances InstanceStore
	now       func() time.Time
}

// NewSchedulingService wires the scheduling engine. now defaults to
// time.Now in UTC when nil.
func NewSchedulingService(classes ClassStore, studios StudioAccess, rules RuleStore, instances InstanceStore, now func() time.Time) *SchedulingService {
	if classes == nil || studios == nil || rules == nil || instances == nil {
		panic("nil store passed to NewSchedulingService")
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &SchedulingService{classes: classes, studios: studios, rules: rules, instances: instances, now: now}
}

// ScheduleRequest describes one scheduling action by an operator.
type ScheduleRequest struct {
	ClassID      uint64
	InstructorID *uint64
	StartsAt     time.Time
	Mode         schedule.RepeatMode
	Days         []time.Weekday
}

// ScheduleResult reports what one scheduling action produced.
type ScheduleResult struct {
	InstancesCreated int
	RulesCreated     int
	GroupID          uuid.UUID // zero for one-off schedules
}

// timeOfDay formats a timestamp's clock time the way schedule_rules
// stores it.
func timeOfDay(t time.Time) string { return t.Format("15:04:05") }

// authorizeClass loads the class and verifies the actor may operate
// its studio. Forbidden and missing are reported separately; the
// handler decides whether to collapse them for public flows.
func (s *SchedulingService) authorizeClass(ctx context.Context, actor model.Actor, classID uint64) (*model.Class, error) {
	class, err := s.classes.GetByID(ctx, classID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !actor.Staff() {
		return nil, ErrForbidden
	}
	ok, err := s.studios.IsOperator(ctx, class.StudioID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	return class, nil
}

// ScheduleClass expands the request into concrete instances and
// persists them under the class. For weekly repetition it records one
// schedule rule per selected weekday, sharing a group id, after the
// instances were created: a rule without at least its initiating
// instance is meaningless.
func (s *SchedulingService) ScheduleClass(ctx context.Context, actor model.Actor, req ScheduleRequest) (*ScheduleResult, error) {
	class, err := s.authorizeClass(ctx, actor, req.ClassID)
	if err != nil {
		return nil, err
	}
	if !class.IsActive {
		return nil, ErrClassInactive
	}
	windows, err := schedule.Expand(s.now(), req.StartsAt, class.Duration(), req.Mode, req.Days)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return nil, ErrNoSessions
	}
	instances := make([]model.SessionInstance, 0, len(windows))
	for _, w := range windows {
		instances = append(instances, model.SessionInstance{
			ClassID:      class.ID,
			InstructorID: req.InstructorID,
			StartsAt:     w.StartsAt,
			EndsAt:       w.EndsAt,
			State:        model.InstanceScheduled,
		})
	}
	created, err := s.instances.CreateBulk(ctx, instances)
	if err != nil {
		return nil, err
	}
	res := &ScheduleResult{InstancesCreated: created}
	if req.Mode == schedule.RepeatWeekly {
		res.GroupID = uuid.New()
		rules := make([]model.ScheduleRule, 0, len(req.Days))
		for _, day := range req.Days {
			rules = append(rules, model.ScheduleRule{
				ClassID:   class.ID,
				GroupID:   res.GroupID,
				Weekday:   day,
				StartTime: timeOfDay(req.StartsAt),
				EndTime:   timeOfDay(req.StartsAt.Add(class.Duration())),
				IsActive:  true,
			})
		}
		if err := s.rules.CreateBatch(ctx, rules); err != nil {
			return nil, err
		}
		res.RulesCreated = len(rules)
	}
	return res, nil
}

// RemovalOutcome tells the caller which terminal transition a
// delete/cancel request took.
type RemovalOutcome string

const (
	// OutcomeDeleted means the instance row was removed; it had no
	// bookings.
	OutcomeDeleted RemovalOutcome = "deleted"
	// OutcomeCancelled means the instance was soft-cancelled; its
	// bookings were left intact for history and refunds.
	OutcomeCancelled RemovalOutcome = "cancelled"
)

// RemoveInstance applies the delete-or-cancel policy to a single
// session instance: zero bookings hard-deletes the row, otherwise the
// state flips to Cancelled and bookings survive. Cancelling the
// bookings themselves is a separate, caller-driven action. Past
// instances may be removed (historical cleanup).
func (s *SchedulingService) RemoveInstance(ctx context.Context, actor model.Actor, instanceID uint64) (RemovalOutcome, error) {
	inst, err := s.instances.GetByID(ctx, instanceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	if _, err := s.authorizeClass(ctx, actor, inst.ClassID); err != nil {
		return "", err
	}
	if inst.State == model.InstanceCancelled {
		return "", ErrAlreadyCancelled
	}
	if inst.CurrentBookings == 0 {
		err := s.instances.DeleteEmpty(ctx, instanceID)
		if err == nil {
			return OutcomeDeleted, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return "", err
		}
		// A booking landed between the read and the delete; fall
		// through to a soft cancel.
	}
	if err := s.instances.MarkCancelled(ctx, instanceID); err != nil {
		return "", err
	}
	return OutcomeCancelled, nil
}

// Reschedule moves a future instance to a new start. Instances that
// already started are immutable apart from removal.
func (s *SchedulingService) Reschedule(ctx context.Context, actor model.Actor, instanceID uint64, startsAt time.Time, instructorID *uint64) error {
	inst, err := s.instances.GetByID(ctx, instanceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	class, err := s.authorizeClass(ctx, actor, inst.ClassID)
	if err != nil {
		return err
	}
	if inst.Past(s.now()) {
		return ErrPastInstance
	}
	if inst.State == model.InstanceCancelled {
		return ErrAlreadyCancelled
	}
	return s.instances.Reschedule(ctx, instanceID, startsAt, startsAt.Add(class.Duration()), instructorID)
}

// DeactivateRules stops the weekly pattern of a class from generating
// any further instances. It does not touch instances that already
// exist. Returns the number of rules deactivated.
func (s *SchedulingService) DeactivateRules(ctx context.Context, actor model.Actor, classID uint64) (int64, error) {
	if _, err := s.authorizeClass(ctx, actor, classID); err != nil {
		return 0, err
	}
	return s.rules.DeactivateForClass(ctx, classID)
}

// CancelFutureInstances soft-cancels every scheduled instance of the
// class that starts after now. Instances with zero bookings are
// cancelled rather than deleted here: a bulk sweep should not decide
// per-row between delete and cancel. Returns the number of instances
// cancelled.
func (s *SchedulingService) CancelFutureInstances(ctx context.Context, actor model.Actor, classID uint64) (int64, error) {
	if _, err := s.authorizeClass(ctx, actor, classID); err != nil {
		return 0, err
	}
	return s.instances.CancelFutureForClass(ctx, classID, s.now())
}

// CancelAllFutureResult reports both halves of the composite action.
type CancelAllFutureResult struct {
	RulesDeactivated   int64
	InstancesCancelled int64
}

// CancelAllFuture is the composite "cancel all future occurrences"
// action: it deactivates the recurring rules and cancels the
// already-generated future instances. The two halves are separately
// invokable; an operator who only wants to stop regeneration calls
// DeactivateRules alone.
func (s *SchedulingService) CancelAllFuture(ctx context.Context, actor model.Actor, classID uint64) (*CancelAllFutureResult, error) {
	rules, err := s.DeactivateRules(ctx, actor, classID)
	if err != nil {
		return nil, err
	}
	cancelled, err := s.CancelFutureInstances(ctx, actor, classID)
	if err != nil {
		// Rules are already off; report the partial effect instead of
		// pretending nothing happened.
		return &CancelAllFutureResult{RulesDeactivated: rules}, err
	}
	return &CancelAllFutureResult{RulesDeactivated: rules, InstancesCancelled: cancelled}, nil
}
