package service

import (
	"context"
	"errors"
	"time"

	"github.com/tulgax/studio-booking/internal/model"
	"github.com/tulgax/studio-booking/internal/repository"
	"github.com/tulgax/studio-booking/internal/utils"
)

// PlanStore loads membership plans for purchase validation.
type PlanStore interface {
	GetByID(ctx context.Context, id uint64) (*model.MembershipPlan, error)
}

// MembershipStore persists memberships. ExpireStale must be a single
// conditional update so that concurrent sweeps are idempotent: a row
// that is already EXPIRED is simply not matched again.
type MembershipStore interface {
	Create(ctx context.Context, m *model.Membership) error
	GetByID(ctx context.Context, id uint64) (*repository.MembershipInfo, error)
	GetByCode(ctx context.Context, code string) (*repository.MembershipInfo, error)
	MarkExpired(ctx context.Context, id uint64) error
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

// CheckInStore appends rows to the check-in audit log. Rows are never
// updated or deleted.
type CheckInStore interface {
	Append(ctx context.Context, ci *model.MembershipCheckIn) error
}

// MembershipService manages the purchase → active → expired lifecycle
// and the check-in audit trail.
type MembershipService struct {
	plans       PlanStore
	memberships MembershipStore
	checkins    CheckInStore
	studios     StudioAccess
	now         func() time.Time
}

// NewMembershipService wires the membership engine.
func NewMembershipService(plans PlanStore, memberships MembershipStore, checkins CheckInStore, studios StudioAccess, now func() time.Time) *MembershipService {
	if plans == nil || memberships == nil || checkins == nil || studios == nil {
		panic("nil store passed to NewMembershipService")
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &MembershipService{plans: plans, memberships: memberships, checkins: checkins, studios: studios, now: now}
}

// addMonthsClamped adds calendar months to t, clamping the day of
// month to the last day of the target month instead of letting the
// date normalize into the following month. A 1-month membership
// purchased Jan 31 expires Feb 29 on a leap year and Feb 28
// otherwise, never Mar 2.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()
	target := time.Date(year, month+time.Month(months), 1, hour, minute, sec, t.Nanosecond(), t.Location())
	// Day 0 of the next month is the last day of the target month.
	last := time.Date(target.Year(), target.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
	if day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, hour, minute, sec, t.Nanosecond(), t.Location())
}

// Purchase creates a membership for the student under the given plan
// and studio. The expiry is purchase time plus the plan duration in
// calendar months, day-of-month clamped. An opaque check-in code is
// generated at creation.
func (s *MembershipService) Purchase(ctx context.Context, studentID, planID, studioID uint64) (*model.Membership, error) {
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if plan.StudioID != studioID {
		return nil, ErrWrongStudio
	}
	if !plan.IsActive {
		return nil, ErrPlanInactive
	}
	code, err := utils.NewCheckinCode()
	if err != nil {
		return nil, err
	}
	purchasedAt := s.now()
	m := &model.Membership{
		StudentID:   studentID,
		PlanID:      plan.ID,
		StudioID:    plan.StudioID,
		PurchasedAt: purchasedAt,
		ExpiresAt:   addMonthsClamped(purchasedAt, int(plan.DurationMonths)),
		Status:      model.MembershipActive,
		CheckinCode: code,
	}
	if err := s.memberships.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// CheckInResult is returned on a successful check-in so the door
// display can greet the student.
type CheckInResult struct {
	MembershipID uint64
	StudentName  string
	CheckedInAt  time.Time
}

// checkIn runs the shared lookup result through the studio and
// validity checks and appends the audit row. The three failures stay
// distinguishable: the presentation layer surfaces different
// remediation guidance for each.
func (s *MembershipService) checkIn(ctx context.Context, info *repository.MembershipInfo, studioID uint64, method model.CheckInMethod, actorID *uint64) (*CheckInResult, error) {
	if info.Membership.StudioID != studioID {
		return nil, ErrWrongStudio
	}
	now := s.now()
	if !info.Membership.ValidAt(now) {
		// The predicate rejects; it never flips the row. Stale ACTIVE
		// rows are swept separately.
		return nil, ErrMembershipInvalid
	}
	ci := &model.MembershipCheckIn{
		MembershipID: info.Membership.ID,
		Method:       method,
		ActorID:      actorID,
		CreatedAt:    now,
	}
	if err := s.checkins.Append(ctx, ci); err != nil {
		return nil, err
	}
	return &CheckInResult{
		MembershipID: info.Membership.ID,
		StudentName:  info.StudentName,
		CheckedInAt:  now,
	}, nil
}

// CheckInByCode records a check-in after looking the membership up by
// its opaque scanned code. actorID is nil for self-service scans.
func (s *MembershipService) CheckInByCode(ctx context.Context, studioID uint64, code string, actorID *uint64) (*CheckInResult, error) {
	info, err := s.memberships.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.checkIn(ctx, info, studioID, model.CheckInScanned, actorID)
}

// CheckInByID records a check-in after looking the membership up by
// numeric id. Self-service entries are logged as MANUAL_ID; entries
// recorded by a staff actor are logged as OPERATOR_MANUAL.
func (s *MembershipService) CheckInByID(ctx context.Context, studioID, membershipID uint64, actorID *uint64) (*CheckInResult, error) {
	info, err := s.memberships.GetByID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	method := model.CheckInManualID
	if actorID != nil {
		method = model.CheckInOperator
	}
	return s.checkIn(ctx, info, studioID, method, actorID)
}

// ExpireStale flips every ACTIVE membership whose expiry has passed to
// EXPIRED and returns how many rows changed. Safe to run concurrently
// with itself and with check-ins; callable on demand or from cron.
func (s *MembershipService) ExpireStale(ctx context.Context) (int64, error) {
	return s.memberships.ExpireStale(ctx, s.now())
}

// ForceExpire immediately expires a membership regardless of its
// expiry date (refund or ban scenarios). Operator action, authorized
// against the membership's studio.
func (s *MembershipService) ForceExpire(ctx context.Context, actor model.Actor, membershipID uint64) error {
	info, err := s.memberships.GetByID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if !actor.Staff() {
		return ErrForbidden
	}
	ok, err := s.studios.IsOperator(ctx, info.Membership.StudioID, actor.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	if info.Membership.Status == model.MembershipExpired {
		// Already terminal; treat as a no-op so the action is
		// idempotent for double-submitted forms.
		return nil
	}
	return s.memberships.MarkExpired(ctx, membershipID)
}

// AuthorizeOperator verifies that the actor may act for the studio.
// Handlers call this before operator check-in flows so that kiosk and
// staff entry points share the same service methods.
func (s *MembershipService) AuthorizeOperator(ctx context.Context, actor model.Actor, studioID uint64) error {
	if !actor.Staff() {
		return ErrForbidden
	}
	ok, err := s.studios.IsOperator(ctx, studioID, actor.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}
