package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tulgax/studio-booking/internal/model"
	"github.com/tulgax/studio-booking/internal/repository"
)

type fakePlans struct {
	plans map[uint64]*model.MembershipPlan
}

func (f *fakePlans) GetByID(_ context.Context, id uint64) (*model.MembershipPlan, error) {
	p, ok := f.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

type fakeMemberships struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]*model.Membership
	names  map[uint64]string // student id -> display name
}

func newFakeMemberships() *fakeMemberships {
	return &fakeMemberships{nextID: 1, rows: map[uint64]*model.Membership{}, names: map[uint64]string{}}
}

func (f *fakeMemberships) Create(_ context.Context, m *model.Membership) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = f.nextID
	f.nextID++
	cp := *m
	f.rows[m.ID] = &cp
	return nil
}

func (f *fakeMemberships) info(m *model.Membership) *repository.MembershipInfo {
	cp := *m
	return &repository.MembershipInfo{Membership: cp, StudentName: f.names[m.StudentID]}
}

func (f *fakeMemberships) GetByID(_ context.Context, id uint64) (*repository.MembershipInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return f.info(m), nil
}

func (f *fakeMemberships) GetByCode(_ context.Context, code string) (*repository.MembershipInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.rows {
		if m.CheckinCode == code {
			return f.info(m), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeMemberships) MarkExpired(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.rows[id]
	if !ok || m.Status != model.MembershipActive {
		return repository.ErrNotFound
	}
	m.Status = model.MembershipExpired
	return nil
}

func (f *fakeMemberships) ExpireStale(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, m := range f.rows {
		if m.Status == model.MembershipActive && !now.Before(m.ExpiresAt) {
			m.Status = model.MembershipExpired
			n++
		}
	}
	return n, nil
}

type fakeCheckins struct {
	mu   sync.Mutex
	rows []model.MembershipCheckIn
}

func (f *fakeCheckins) Append(_ context.Context, ci *model.MembershipCheckIn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ci.ID = uint64(len(f.rows) + 1)
	f.rows = append(f.rows, *ci)
	return nil
}

// memberFixture wires a membership service around one studio (id 1,
// operated by user 1) selling a 1-month plan (id 1).
type memberFixture struct {
	svc         *MembershipService
	plans       *fakePlans
	memberships *fakeMemberships
	checkins    *fakeCheckins
	now         time.Time
}

func newMemberFixture(now time.Time) *memberFixture {
	plans := &fakePlans{plans: map[uint64]*model.MembershipPlan{
		1: {ID: 1, StudioID: 1, Name: "Monthly", DurationMonths: 1, PriceCents: 9900, Currency: "USD", IsActive: true},
	}}
	memberships := newFakeMemberships()
	memberships.names[7] = "Dana Cole"
	checkins := &fakeCheckins{}
	access := &fakeAccess{operators: map[uint64]map[uint64]bool{1: {1: true}}}
	svc := NewMembershipService(plans, memberships, checkins, access, func() time.Time { return now })
	return &memberFixture{svc: svc, plans: plans, memberships: memberships, checkins: checkins, now: now}
}

func TestAddMonthsClamped(t *testing.T) {
	tests := []struct {
		name   string
		start  time.Time
		months int
		want   time.Time
	}{
		{
			"plain month",
			time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC), 1,
			time.Date(2024, 4, 15, 10, 0, 0, 0, time.UTC),
		},
		{
			"jan 31 clamps to leap feb 29",
			time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC), 1,
			time.Date(2024, 2, 29, 10, 0, 0, 0, time.UTC),
		},
		{
			"jan 31 clamps to feb 28 off leap year",
			time.Date(2023, 1, 31, 10, 0, 0, 0, time.UTC), 1,
			time.Date(2023, 2, 28, 10, 0, 0, 0, time.UTC),
		},
		{
			"may 31 clamps to jun 30",
			time.Date(2024, 5, 31, 10, 0, 0, 0, time.UTC), 1,
			time.Date(2024, 6, 30, 10, 0, 0, 0, time.UTC),
		},
		{
			"twelve months across year end",
			time.Date(2024, 2, 29, 10, 0, 0, 0, time.UTC), 12,
			time.Date(2025, 2, 28, 10, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := addMonthsClamped(tt.start, tt.months)
			if !got.Equal(tt.want) {
				t.Fatalf("addMonthsClamped(%v, %d) = %v, want %v", tt.start, tt.months, got, tt.want)
			}
		})
	}
}

func TestPurchaseSetsExpiryAndCode(t *testing.T) {
	now := time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC)
	f := newMemberFixture(now)

	m, err := f.svc.Purchase(context.Background(), 7, 1, 1)
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	if m.Status != model.MembershipActive {
		t.Fatalf("status = %s, want %s", m.Status, model.MembershipActive)
	}
	want := time.Date(2024, 2, 29, 10, 0, 0, 0, time.UTC)
	if !m.ExpiresAt.Equal(want) {
		t.Fatalf("expires = %v, want %v", m.ExpiresAt, want)
	}
	if len(m.CheckinCode) != 32 {
		t.Fatalf("check-in code length = %d, want 32", len(m.CheckinCode))
	}
}

func TestPurchaseGuards(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	f := newMemberFixture(now)
	f.plans.plans[2] = &model.MembershipPlan{ID: 2, StudioID: 1, Name: "Retired", DurationMonths: 1, IsActive: false}

	if _, err := f.svc.Purchase(context.Background(), 7, 99, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing plan: err = %v, want %v", err, ErrNotFound)
	}
	if _, err := f.svc.Purchase(context.Background(), 7, 1, 2); !errors.Is(err, ErrWrongStudio) {
		t.Fatalf("wrong studio: err = %v, want %v", err, ErrWrongStudio)
	}
	if _, err := f.svc.Purchase(context.Background(), 7, 2, 1); !errors.Is(err, ErrPlanInactive) {
		t.Fatalf("inactive plan: err = %v, want %v", err, ErrPlanInactive)
	}
}

func TestMembershipValidAt(t *testing.T) {
	expires := time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)
	m := &model.Membership{Status: model.MembershipActive, ExpiresAt: expires}

	if !m.ValidAt(expires.Add(-time.Second)) {
		t.Fatalf("should be valid just before expiry")
	}
	if m.ValidAt(expires) {
		t.Fatalf("expiry instant itself is invalid")
	}
	m.Status = model.MembershipExpired
	if m.ValidAt(expires.Add(-time.Hour)) {
		t.Fatalf("expired status must fail regardless of date")
	}
}

func TestCheckInByCode(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	f := newMemberFixture(now)
	m, err := f.svc.Purchase(context.Background(), 7, 1, 1)
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}

	res, err := f.svc.CheckInByCode(context.Background(), 1, m.CheckinCode, nil)
	if err != nil {
		t.Fatalf("CheckInByCode: %v", err)
	}
	if res.StudentName != "Dana Cole" {
		t.Fatalf("student name = %q, want %q", res.StudentName, "Dana Cole")
	}
	if len(f.checkins.rows) != 1 {
		t.Fatalf("check-in rows = %d, want 1", len(f.checkins.rows))
	}
	row := f.checkins.rows[0]
	if row.Method != model.CheckInScanned {
		t.Fatalf("method = %s, want %s", row.Method, model.CheckInScanned)
	}
	if row.ActorID != nil {
		t.Fatalf("self-service scan must not record an actor")
	}
}

func TestCheckInByIDMethodMapping(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	f := newMemberFixture(now)
	m, err := f.svc.Purchase(context.Background(), 7, 1, 1)
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}

	if _, err := f.svc.CheckInByID(context.Background(), 1, m.ID, nil); err != nil {
		t.Fatalf("self-service CheckInByID: %v", err)
	}
	staff := uint64(1)
	if _, err := f.svc.CheckInByID(context.Background(), 1, m.ID, &staff); err != nil {
		t.Fatalf("operator CheckInByID: %v", err)
	}

	if got := f.checkins.rows[0].Method; got != model.CheckInManualID {
		t.Fatalf("self-service method = %s, want %s", got, model.CheckInManualID)
	}
	if got := f.checkins.rows[1].Method; got != model.CheckInOperator {
		t.Fatalf("operator method = %s, want %s", got, model.CheckInOperator)
	}
	if f.checkins.rows[1].ActorID == nil || *f.checkins.rows[1].ActorID != staff {
		t.Fatalf("operator check-in must record the actor")
	}
}

func TestCheckInRejections(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	f := newMemberFixture(now)
	m, err := f.svc.Purchase(context.Background(), 7, 1, 1)
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}

	if _, err := f.svc.CheckInByCode(context.Background(), 1, "no-such-code", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown code: err = %v, want %v", err, ErrNotFound)
	}
	if _, err := f.svc.CheckInByID(context.Background(), 2, m.ID, nil); !errors.Is(err, ErrWrongStudio) {
		t.Fatalf("wrong studio: err = %v, want %v", err, ErrWrongStudio)
	}

	// A lapsed membership is rejected by the predicate even while its
	// row still says ACTIVE; the sweep has not run yet.
	f.memberships.rows[m.ID].ExpiresAt = now.Add(-time.Hour)
	_, err = f.svc.CheckInByID(context.Background(), 1, m.ID, nil)
	if !errors.Is(err, ErrMembershipInvalid) {
		t.Fatalf("lapsed: err = %v, want %v", err, ErrMembershipInvalid)
	}
	if got := f.memberships.rows[m.ID].Status; got != model.MembershipActive {
		t.Fatalf("rejection must not flip the row, status = %s", got)
	}
}

func TestExpireStaleSweep(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	f := newMemberFixture(now)

	fresh, err := f.svc.Purchase(context.Background(), 7, 1, 1)
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	stale, err := f.svc.Purchase(context.Background(), 8, 1, 1)
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	f.memberships.rows[stale.ID].ExpiresAt = now.Add(-time.Minute)

	n, err := f.svc.ExpireStale(context.Background())
	if err != nil {
		t.Fatalf("ExpireStale: %v", err)
	}
	if n != 1 {
		t.Fatalf("swept = %d, want 1", n)
	}
	if got := f.memberships.rows[stale.ID].Status; got != model.MembershipExpired {
		t.Fatalf("stale status = %s, want %s", got, model.MembershipExpired)
	}
	if got := f.memberships.rows[fresh.ID].Status; got != model.MembershipActive {
		t.Fatalf("fresh status = %s, want %s", got, model.MembershipActive)
	}

	// Second sweep finds nothing; the conditional update is idempotent.
	n, err = f.svc.ExpireStale(context.Background())
	if err != nil {
		t.Fatalf("second ExpireStale: %v", err)
	}
	if n != 0 {
		t.Fatalf("second sweep = %d, want 0", n)
	}
}

func TestForceExpire(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	f := newMemberFixture(now)
	m, err := f.svc.Purchase(context.Background(), 7, 1, 1)
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}

	stranger := model.Actor{UserID: 9, Role: model.RoleOwner}
	if err := f.svc.ForceExpire(context.Background(), stranger, m.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger: err = %v, want %v", err, ErrForbidden)
	}

	op := model.Actor{UserID: 1, Role: model.RoleOwner}
	if err := f.svc.ForceExpire(context.Background(), op, m.ID); err != nil {
		t.Fatalf("ForceExpire: %v", err)
	}
	if got := f.memberships.rows[m.ID].Status; got != model.MembershipExpired {
		t.Fatalf("status = %s, want %s", got, model.MembershipExpired)
	}
	// Idempotent on repeat.
	if err := f.svc.ForceExpire(context.Background(), op, m.ID); err != nil {
		t.Fatalf("repeat ForceExpire: %v", err)
	}
}

// Concurrent check-ins against one membership all append; the audit
// log never loses rows.
func TestConcurrentCheckIns(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	f := newMemberFixture(now)
	m, err := f.svc.Purchase(context.Background(), 7, 1, 1)
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.CheckInByCode(context.Background(), 1, m.CheckinCode, nil); err != nil {
				t.Errorf("CheckInByCode: %v", err)
			}
		}()
	}
	wg.Wait()
	if len(f.checkins.rows) != n {
		t.Fatalf("check-in rows = %d, want %d", len(f.checkins.rows), n)
	}
}
