package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/tulgax/studio-booking/internal/model"
)

// CheckInRepo appends rows to the membership check-in audit log. The
// log is append-only; there are no update or delete statements here on
// purpose.
type CheckInRepo struct {
	db *sql.DB
}

// NewCheckInRepo returns a new CheckInRepo bound to the given database.
func NewCheckInRepo(db *sql.DB) *CheckInRepo { return &CheckInRepo{db: db} }

// Append inserts one check-in row and populates the generated ID.
func (r *CheckInRepo) Append(ctx context.Context, ci *model.MembershipCheckIn) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO membership_checkins (membership_id, method, actor_id, created_at) VALUES (?,?,?,?)",
		ci.MembershipID, string(ci.Method), ci.ActorID, ci.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ci.ID = uint64(id)
	return nil
}

// ListByMembership returns a membership's check-in history, newest
// first, capped at limit rows.
func (r *CheckInRepo) ListByMembership(ctx context.Context, membershipID uint64, limit int) ([]model.MembershipCheckIn, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, membership_id, method, actor_id, created_at
		 FROM membership_checkins WHERE membership_id = ?
		 ORDER BY created_at DESC LIMIT ?`, membershipID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.MembershipCheckIn{}
	for rows.Next() {
		var ci model.MembershipCheckIn
		var method string
		var actor sql.NullInt64
		if err := rows.Scan(&ci.ID, &ci.MembershipID, &method, &actor, &ci.CreatedAt); err != nil {
			return nil, err
		}
		ci.Method = model.CheckInMethod(method)
		if actor.Valid {
			id := uint64(actor.Int64)
			ci.ActorID = &id
		}
		out = append(out, ci)
	}
	return out, rows.Err()
}

// CountSince reports how many check-ins a membership recorded at or
// after the given instant. Used by the operator usage view.
func (r *CheckInRepo) CountSince(ctx context.Context, membershipID uint64, since time.Time) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM membership_checkins WHERE membership_id = ? AND created_at >= ?",
		membershipID, since).Scan(&n)
	return n, err
}
