package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/tulgax/studio-booking/internal/model"
)

// MembershipInfo is a membership joined with the owning student's
// display name, which check-in confirmations surface at the door.
type MembershipInfo struct {
	Membership  model.Membership
	StudentName string
}

// MembershipRepo persists memberships. Rows are historical records:
// they are flipped to EXPIRED, never deleted.
type MembershipRepo struct {
	db *sql.DB
}

// NewMembershipRepo returns a new MembershipRepo bound to the given database.
func NewMembershipRepo(db *sql.DB) *MembershipRepo { return &MembershipRepo{db: db} }

// Create inserts a membership and populates the generated ID.
func (r *MembershipRepo) Create(ctx context.Context, m *model.Membership) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO memberships (student_id, plan_id, studio_id, purchased_at, expires_at, status, payment_ref, checkin_code)
		 VALUES (?,?,?,?,?,?,?,?)`,
		m.StudentID, m.PlanID, m.StudioID, m.PurchasedAt, m.ExpiresAt, string(m.Status), m.PaymentRef, m.CheckinCode)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

const membershipJoin = `SELECT m.id, m.student_id, m.plan_id, m.studio_id, m.purchased_at, m.expires_at,
       m.status, m.payment_ref, m.checkin_code, m.created_at, m.updated_at, u.full_name
FROM memberships m
JOIN users u ON u.id = m.student_id`

func scanMembershipInfo(row *sql.Row) (*MembershipInfo, error) {
	var info MembershipInfo
	var status string
	var paymentRef sql.NullString
	err := row.Scan(&info.Membership.ID, &info.Membership.StudentID, &info.Membership.PlanID,
		&info.Membership.StudioID, &info.Membership.PurchasedAt, &info.Membership.ExpiresAt,
		&status, &paymentRef, &info.Membership.CheckinCode,
		&info.Membership.CreatedAt, &info.Membership.UpdatedAt, &info.StudentName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	info.Membership.Status = model.MembershipStatus(status)
	if paymentRef.Valid {
		p := paymentRef.String
		info.Membership.PaymentRef = &p
	}
	return &info, nil
}

// GetByID returns a membership with its student's name by primary key.
func (r *MembershipRepo) GetByID(ctx context.Context, id uint64) (*MembershipInfo, error) {
	return scanMembershipInfo(r.db.QueryRowContext(ctx, membershipJoin+" WHERE m.id = ?", id))
}

// GetByCode returns a membership by its opaque check-in code.
func (r *MembershipRepo) GetByCode(ctx context.Context, code string) (*MembershipInfo, error) {
	return scanMembershipInfo(r.db.QueryRowContext(ctx, membershipJoin+" WHERE m.checkin_code = ?", code))
}

// MarkExpired flips one membership to EXPIRED unconditionally of its
// expiry date. Returns ErrNotFound when no ACTIVE row matched.
func (r *MembershipRepo) MarkExpired(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE memberships SET status = ? WHERE id = ? AND status = ?",
		string(model.MembershipExpired), id, string(model.MembershipActive))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ExpireStale flips every ACTIVE membership whose expiry has passed.
// One conditional statement, so concurrent sweeps cannot double-count
// or race each other.
func (r *MembershipRepo) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE memberships SET status = ? WHERE status = ? AND expires_at <= ?",
		string(model.MembershipExpired), string(model.MembershipActive), now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MembershipDetail is a membership joined with its plan for listing.
type MembershipDetail struct {
	ID          uint64    `json:"id"`
	PlanName    string    `json:"plan_name"`
	StudioID    uint64    `json:"studio_id"`
	StudioName  string    `json:"studio_name"`
	PurchasedAt time.Time `json:"purchased_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Status      string    `json:"status"`
	CheckinCode string    `json:"checkin_code"`
}

// ListByStudent returns the student's memberships, newest first.
func (r *MembershipRepo) ListByStudent(ctx context.Context, studentID uint64) ([]MembershipDetail, error) {
	const q = `SELECT m.id, p.name, m.studio_id, s.name, m.purchased_at, m.expires_at, m.status, m.checkin_code
	           FROM memberships m
	           JOIN membership_plans p ON p.id = m.plan_id
	           JOIN studios s ON s.id = m.studio_id
	           WHERE m.student_id = ?
	           ORDER BY m.purchased_at DESC`
	rows, err := r.db.QueryContext(ctx, q, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []MembershipDetail{}
	for rows.Next() {
		var d MembershipDetail
		if err := rows.Scan(&d.ID, &d.PlanName, &d.StudioID, &d.StudioName, &d.PurchasedAt, &d.ExpiresAt, &d.Status, &d.CheckinCode); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListByStudio returns the studio's memberships with student names,
// newest first, for the operator member roster.
func (r *MembershipRepo) ListByStudio(ctx context.Context, studioID uint64) ([]MembershipInfo, error) {
	rows, err := r.db.QueryContext(ctx, membershipJoin+" WHERE m.studio_id = ? ORDER BY m.purchased_at DESC", studioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []MembershipInfo{}
	for rows.Next() {
		var info MembershipInfo
		var status string
		var paymentRef sql.NullString
		if err := rows.Scan(&info.Membership.ID, &info.Membership.StudentID, &info.Membership.PlanID,
			&info.Membership.StudioID, &info.Membership.PurchasedAt, &info.Membership.ExpiresAt,
			&status, &paymentRef, &info.Membership.CheckinCode,
			&info.Membership.CreatedAt, &info.Membership.UpdatedAt, &info.StudentName); err != nil {
			return nil, err
		}
		info.Membership.Status = model.MembershipStatus(status)
		if paymentRef.Valid {
			p := paymentRef.String
			info.Membership.PaymentRef = &p
		}
		out = append(out, info)
	}
	return out, rows.Err()
}
