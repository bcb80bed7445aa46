package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tulgax/studio-booking/internal/model"
	"github.com/tulgax/studio-booking/internal/repository"
	"github.com/tulgax/studio-booking/internal/schedule"
)

type fakeClasses struct {
	classes map[uint64]*model.Class
}

func (f *fakeClasses) GetByID(_ context.Context, id uint64) (*model.Class, error) {
	c, ok := f.classes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

type fakeAccess struct {
	operators map[uint64]map[uint64]bool // studio id -> user id -> operator
}

func (f *fakeAccess) IsOperator(_ context.Context, studioID, userID uint64) (bool, error) {
	return f.operators[studioID][userID], nil
}

type fakeRules struct {
	batches     [][]model.ScheduleRule
	deactivated map[uint64]int64
}

func (f *fakeRules) CreateBatch(_ context.Context, rules []model.ScheduleRule) error {
	f.batches = append(f.batches, rules)
	return nil
}

func (f *fakeRules) DeactivateForClass(_ context.Context, classID uint64) (int64, error) {
	n := f.deactivated[classID]
	f.deactivated[classID] = 0
	return n, nil
}

type fakeInstances struct {
	nextID     uint64
	instances  map[uint64]*model.SessionInstance
	deleteErr  error
	deletedIDs []uint64
}

func newFakeInstances() *fakeInstances {
	return &fakeInstances{nextID: 1, instances: map[uint64]*model.SessionInstance{}}
}

func (f *fakeInstances) CreateBulk(_ context.Context, instances []model.SessionInstance) (int, error) {
	for _, inst := range instances {
		inst.ID = f.nextID
		f.nextID++
		cp := inst
		f.instances[inst.ID] = &cp
	}
	return len(instances), nil
}

func (f *fakeInstances) GetByID(_ context.Context, id uint64) (*model.SessionInstance, error) {
	inst, ok := f.instances[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *inst
	return &cp, nil
}

func (f *fakeInstances) DeleteEmpty(_ context.Context, id uint64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	inst, ok := f.instances[id]
	if !ok || inst.CurrentBookings != 0 {
		return repository.ErrConflict
	}
	delete(f.instances, id)
	f.deletedIDs = append(f.deletedIDs, id)
	return nil
}

func (f *fakeInstances) MarkCancelled(_ context.Context, id uint64) error {
	inst, ok := f.instances[id]
	if !ok || inst.State != model.InstanceScheduled {
		return repository.ErrConflict
	}
	inst.State = model.InstanceCancelled
	return nil
}

func (f *fakeInstances) CancelFutureForClass(_ context.Context, classID uint64, from time.Time) (int64, error) {
	var n int64
	for _, inst := range f.instances {
		if inst.ClassID == classID && inst.State == model.InstanceScheduled && inst.StartsAt.After(from) {
			inst.State = model.InstanceCancelled
			n++
		}
	}
	return n, nil
}

func (f *fakeInstances) Reschedule(_ context.Context, id uint64, startsAt, endsAt time.Time, instructorID *uint64) error {
	inst, ok := f.instances[id]
	if !ok {
		return repository.ErrNotFound
	}
	inst.StartsAt = startsAt
	inst.EndsAt = endsAt
	inst.InstructorID = instructorID
	return nil
}

// schedFixture wires a scheduling service around one class owned by
// user 1 at studio 1. now is Mon 2024-06-03 08:00 UTC.
type schedFixture struct {
	svc       *SchedulingService
	classes   *fakeClasses
	rules     *fakeRules
	instances *fakeInstances
	now       time.Time
}

func newSchedFixture() *schedFixture {
	now := time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)
	classes := &fakeClasses{classes: map[uint64]*model.Class{
		1: {ID: 1, StudioID: 1, Name: "Morning Yoga", DurationMin: 60, Capacity: 10, IsActive: true},
	}}
	access := &fakeAccess{operators: map[uint64]map[uint64]bool{1: {1: true}}}
	rules := &fakeRules{deactivated: map[uint64]int64{}}
	instances := newFakeInstances()
	svc := NewSchedulingService(classes, access, rules, instances, func() time.Time { return now })
	return &schedFixture{svc: svc, classes: classes, rules: rules, instances: instances, now: now}
}

func owner() model.Actor { return model.Actor{UserID: 1, Role: model.RoleOwner} }

func TestScheduleClassOneOff(t *testing.T) {
	f := newSchedFixture()
	start := f.now.Add(48 * time.Hour)

	res, err := f.svc.ScheduleClass(context.Background(), owner(), ScheduleRequest{
		ClassID: 1, StartsAt: start, Mode: schedule.RepeatNone,
	})
	if err != nil {
		t.Fatalf("ScheduleClass: %v", err)
	}
	if res.InstancesCreated != 1 || res.RulesCreated != 0 {
		t.Fatalf("got %d instances, %d rules; want 1, 0", res.InstancesCreated, res.RulesCreated)
	}
	inst := f.instances.instances[1]
	if inst == nil {
		t.Fatalf("instance not stored")
	}
	if !inst.StartsAt.Equal(start) || !inst.EndsAt.Equal(start.Add(time.Hour)) {
		t.Fatalf("window = [%v, %v], want [%v, %v]", inst.StartsAt, inst.EndsAt, start, start.Add(time.Hour))
	}
	if inst.State != model.InstanceScheduled {
		t.Fatalf("state = %s, want %s", inst.State, model.InstanceScheduled)
	}
}

func TestScheduleClassWeeklyRecordsRules(t *testing.T) {
	f := newSchedFixture()
	start := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC) // Monday

	res, err := f.svc.ScheduleClass(context.Background(), owner(), ScheduleRequest{
		ClassID:  1,
		StartsAt: start,
		Mode:     schedule.RepeatWeekly,
		Days:     []time.Weekday{time.Monday, time.Wednesday},
	})
	if err != nil {
		t.Fatalf("ScheduleClass: %v", err)
	}
	// 4 Mondays + 4 Wednesdays in the 28-day horizon.
	if res.InstancesCreated != 8 {
		t.Fatalf("instances = %d, want 8", res.InstancesCreated)
	}
	if res.RulesCreated != 2 {
		t.Fatalf("rules = %d, want 2", res.RulesCreated)
	}
	if len(f.rules.batches) != 1 {
		t.Fatalf("batches = %d, want 1", len(f.rules.batches))
	}
	for _, rule := range f.rules.batches[0] {
		if rule.GroupID != res.GroupID {
			t.Fatalf("rule group = %s, want %s", rule.GroupID, res.GroupID)
		}
		if rule.StartTime != "09:00:00" || rule.EndTime != "10:00:00" {
			t.Fatalf("rule window = %s-%s, want 09:00:00-10:00:00", rule.StartTime, rule.EndTime)
		}
		if !rule.IsActive {
			t.Fatalf("rule should start active")
		}
	}
}

func TestScheduleClassGuards(t *testing.T) {
	f := newSchedFixture()
	f.classes.classes[2] = &model.Class{ID: 2, StudioID: 1, Name: "Retired", DurationMin: 60, Capacity: 10, IsActive: false}
	start := f.now.Add(24 * time.Hour)

	tests := []struct {
		name  string
		actor model.Actor
		req   ScheduleRequest
		want  error
	}{
		{"class missing", owner(), ScheduleRequest{ClassID: 99, StartsAt: start, Mode: schedule.RepeatNone}, ErrNotFound},
		{"student actor", model.Actor{UserID: 5, Role: model.RoleStudent}, ScheduleRequest{ClassID: 1, StartsAt: start, Mode: schedule.RepeatNone}, ErrForbidden},
		{"operator of another studio", model.Actor{UserID: 9, Role: model.RoleOwner}, ScheduleRequest{ClassID: 1, StartsAt: start, Mode: schedule.RepeatNone}, ErrForbidden},
		{"inactive class", owner(), ScheduleRequest{ClassID: 2, StartsAt: start, Mode: schedule.RepeatNone}, ErrClassInactive},
		{"stale request yields nothing", owner(), ScheduleRequest{ClassID: 1, StartsAt: f.now.Add(-60 * 24 * time.Hour), Mode: schedule.RepeatWeekly, Days: []time.Weekday{time.Monday}}, ErrNoSessions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.ScheduleClass(context.Background(), tt.actor, tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRemoveInstanceDeletesWhenEmpty(t *testing.T) {
	f := newSchedFixture()
	f.instances.CreateBulk(context.Background(), []model.SessionInstance{
		{ClassID: 1, StartsAt: f.now.Add(24 * time.Hour), EndsAt: f.now.Add(25 * time.Hour), State: model.InstanceScheduled},
	})

	outcome, err := f.svc.RemoveInstance(context.Background(), owner(), 1)
	if err != nil {
		t.Fatalf("RemoveInstance: %v", err)
	}
	if outcome != OutcomeDeleted {
		t.Fatalf("outcome = %s, want %s", outcome, OutcomeDeleted)
	}
	if _, ok := f.instances.instances[1]; ok {
		t.Fatalf("instance row should be gone")
	}
}

func TestRemoveInstanceCancelsWhenBooked(t *testing.T) {
	f := newSchedFixture()
	f.instances.CreateBulk(context.Background(), []model.SessionInstance{
		{ClassID: 1, StartsAt: f.now.Add(24 * time.Hour), EndsAt: f.now.Add(25 * time.Hour), State: model.InstanceScheduled},
	})
	f.instances.instances[1].CurrentBookings = 3

	outcome, err := f.svc.RemoveInstance(context.Background(), owner(), 1)
	if err != nil {
		t.Fatalf("RemoveInstance: %v", err)
	}
	if outcome != OutcomeCancelled {
		t.Fatalf("outcome = %s, want %s", outcome, OutcomeCancelled)
	}
	if got := f.instances.instances[1].State; got != model.InstanceCancelled {
		t.Fatalf("state = %s, want %s", got, model.InstanceCancelled)
	}
	if got := f.instances.instances[1].CurrentBookings; got != 3 {
		t.Fatalf("bookings disturbed: %d, want 3", got)
	}
}

// A booking that lands between the service's read and the delete makes
// DeleteEmpty report a conflict; the controller then soft-cancels.
func TestRemoveInstanceFallsBackToCancelOnRace(t *testing.T) {
	f := newSchedFixture()
	f.instances.CreateBulk(context.Background(), []model.SessionInstance{
		{ClassID: 1, StartsAt: f.now.Add(24 * time.Hour), EndsAt: f.now.Add(25 * time.Hour), State: model.InstanceScheduled},
	})
	f.instances.deleteErr = repository.ErrConflict

	outcome, err := f.svc.RemoveInstance(context.Background(), owner(), 1)
	if err != nil {
		t.Fatalf("RemoveInstance: %v", err)
	}
	if outcome != OutcomeCancelled {
		t.Fatalf("outcome = %s, want %s", outcome, OutcomeCancelled)
	}
}

func TestRemoveInstanceAlreadyCancelled(t *testing.T) {
	f := newSchedFixture()
	f.instances.CreateBulk(context.Background(), []model.SessionInstance{
		{ClassID: 1, StartsAt: f.now.Add(24 * time.Hour), EndsAt: f.now.Add(25 * time.Hour), State: model.InstanceCancelled},
	})

	_, err := f.svc.RemoveInstance(context.Background(), owner(), 1)
	if !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("err = %v, want %v", err, ErrAlreadyCancelled)
	}
}

func TestReschedulePastInstance(t *testing.T) {
	f := newSchedFixture()
	f.instances.CreateBulk(context.Background(), []model.SessionInstance{
		{ClassID: 1, StartsAt: f.now.Add(-2 * time.Hour), EndsAt: f.now.Add(-time.Hour), State: model.InstanceScheduled},
	})

	err := f.svc.Reschedule(context.Background(), owner(), 1, f.now.Add(24*time.Hour), nil)
	if !errors.Is(err, ErrPastInstance) {
		t.Fatalf("err = %v, want %v", err, ErrPastInstance)
	}
}

func TestRescheduleMovesWindow(t *testing.T) {
	f := newSchedFixture()
	f.instances.CreateBulk(context.Background(), []model.SessionInstance{
		{ClassID: 1, StartsAt: f.now.Add(24 * time.Hour), EndsAt: f.now.Add(25 * time.Hour), State: model.InstanceScheduled},
	})
	newStart := f.now.Add(72 * time.Hour)
	instructor := uint64(42)

	if err := f.svc.Reschedule(context.Background(), owner(), 1, newStart, &instructor); err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	inst := f.instances.instances[1]
	if !inst.StartsAt.Equal(newStart) || !inst.EndsAt.Equal(newStart.Add(time.Hour)) {
		t.Fatalf("window = [%v, %v], want [%v, %v]", inst.StartsAt, inst.EndsAt, newStart, newStart.Add(time.Hour))
	}
	if inst.InstructorID == nil || *inst.InstructorID != instructor {
		t.Fatalf("instructor not reassigned")
	}
}

func TestCancelAllFutureComposite(t *testing.T) {
	f := newSchedFixture()
	f.rules.deactivated[1] = 2
	f.instances.CreateBulk(context.Background(), []model.SessionInstance{
		{ClassID: 1, StartsAt: f.now.Add(24 * time.Hour), EndsAt: f.now.Add(25 * time.Hour), State: model.InstanceScheduled},
		{ClassID: 1, StartsAt: f.now.Add(48 * time.Hour), EndsAt: f.now.Add(49 * time.Hour), State: model.InstanceScheduled},
		// Past instance stays untouched.
		{ClassID: 1, StartsAt: f.now.Add(-24 * time.Hour), EndsAt: f.now.Add(-23 * time.Hour), State: model.InstanceScheduled},
	})

	res, err := f.svc.CancelAllFuture(context.Background(), owner(), 1)
	if err != nil {
		t.Fatalf("CancelAllFuture: %v", err)
	}
	if res.RulesDeactivated != 2 {
		t.Fatalf("rules deactivated = %d, want 2", res.RulesDeactivated)
	}
	if res.InstancesCancelled != 2 {
		t.Fatalf("instances cancelled = %d, want 2", res.InstancesCancelled)
	}
	if got := f.instances.instances[3].State; got != model.InstanceScheduled {
		t.Fatalf("past instance state = %s, want %s", got, model.InstanceScheduled)
	}
}
