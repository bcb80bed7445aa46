package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/tulgax/studio-booking/internal/model"
)

// InstanceRepo persists session instances and their denormalized
// booking counter. The counter itself is only mutated by BookingRepo,
// inside the same transaction as the booking row it accounts for.
type InstanceRepo struct {
	db *sql.DB
}

// NewInstanceRepo returns a new InstanceRepo bound to the given database.
func NewInstanceRepo(db *sql.DB) *InstanceRepo { return &InstanceRepo{db: db} }

const instanceCols = "id, class_id, instructor_id, starts_at, ends_at, current_bookings, state, created_at, updated_at"

// CreateBulk inserts the expander's output in a single statement and
// returns how many rows were created. Passing an empty slice has no
// effect.
func (r *InstanceRepo) CreateBulk(ctx context.Context, instances []model.SessionInstance) (int, error) {
	if len(instances) == 0 {
		return 0, nil
	}
	query := `INSERT INTO session_instances (class_id, instructor_id, starts_at, ends_at, current_bookings, state) VALUES `
	args := make([]interface{}, 0, len(instances)*6)
	for i, inst := range instances {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, 0, ?)"
		args = append(args, inst.ClassID, inst.InstructorID, inst.StartsAt, inst.EndsAt, string(inst.State))
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func scanInstance(row *sql.Row) (*model.SessionInstance, error) {
	var inst model.SessionInstance
	var instructor sql.NullInt64
	var state string
	err := row.Scan(&inst.ID, &inst.ClassID, &instructor, &inst.StartsAt, &inst.EndsAt, &inst.CurrentBookings, &state, &inst.CreatedAt, &inst.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if instructor.Valid {
		id := uint64(instructor.Int64)
		inst.InstructorID = &id
	}
	inst.State = model.InstanceState(state)
	return &inst, nil
}

// GetByID returns a session instance by primary key.
func (r *InstanceRepo) GetByID(ctx context.Context, id uint64) (*model.SessionInstance, error) {
	return scanInstance(r.db.QueryRowContext(ctx,
		"SELECT "+instanceCols+" FROM session_instances WHERE id = ?", id))
}

// DeleteEmpty hard-deletes the instance only while its booking
// counter is still zero. When a concurrent booking raced the delete,
// no row matches and ErrConflict tells the caller to soft-cancel
// instead.
func (r *InstanceRepo) DeleteEmpty(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM session_instances WHERE id = ? AND current_bookings = 0", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// MarkCancelled flips the instance to the terminal CANCELLED state.
// Bookings are not touched here.
func (r *InstanceRepo) MarkCancelled(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE session_instances SET state = ? WHERE id = ? AND state = ?",
		string(model.InstanceCancelled), id, string(model.InstanceScheduled))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// CancelFutureForClass soft-cancels every scheduled instance of the
// class starting after the given instant and returns the count.
func (r *InstanceRepo) CancelFutureForClass(ctx context.Context, classID uint64, from time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE session_instances SET state = ? WHERE class_id = ? AND state = ? AND starts_at > ?",
		string(model.InstanceCancelled), classID, string(model.InstanceScheduled), from)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Reschedule moves the instance to a new window and optionally
// reassigns the instructor.
func (r *InstanceRepo) Reschedule(ctx context.Context, id uint64, startsAt, endsAt time.Time, instructorID *uint64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE session_instances SET starts_at = ?, ends_at = ?, instructor_id = ? WHERE id = ?",
		startsAt, endsAt, instructorID, id)
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

// InstanceDetail is a session instance joined with its class for
// listing, including the free-spot count students filter on.
type InstanceDetail struct {
	ID              uint64    `json:"id"`
	ClassID         uint64    `json:"class_id"`
	ClassName       string    `json:"class_name"`
	StartsAt        time.Time `json:"starts_at"`
	EndsAt          time.Time `json:"ends_at"`
	Capacity        uint32    `json:"capacity"`
	CurrentBookings uint32    `json:"current_bookings"`
	SpotsLeft       uint32    `json:"spots_left"`
	State           string    `json:"state"`
	PriceCents      uint32    `json:"price_cents"`
	Currency        string    `json:"currency"`
}

// ListUpcomingByClass returns the scheduled future instances of one
// class in chronological order.
func (r *InstanceRepo) ListUpcomingByClass(ctx context.Context, classID uint64, from time.Time) ([]InstanceDetail, error) {
	const q = `SELECT si.id, si.class_id, c.name, si.starts_at, si.ends_at,
	                  c.capacity, si.current_bookings, si.state, c.price_cents, c.currency
	           FROM session_instances si
	           JOIN classes c ON c.id = si.class_id
	           WHERE si.class_id = ? AND si.starts_at > ? AND si.state = ?
	           ORDER BY si.starts_at`
	return r.queryDetails(ctx, q, classID, from, string(model.InstanceScheduled))
}

// ListByStudio returns every instance of the studio inside a window,
// cancelled ones included, for the operator calendar.
func (r *InstanceRepo) ListByStudio(ctx context.Context, studioID uint64, from, until time.Time) ([]InstanceDetail, error) {
	const q = `SELECT si.id, si.class_id, c.name, si.starts_at, si.ends_at,
	                  c.capacity, si.current_bookings, si.state, c.price_cents, c.currency
	           FROM session_instances si
	           JOIN classes c ON c.id = si.class_id
	           WHERE c.studio_id = ? AND si.starts_at >= ? AND si.starts_at < ?
	           ORDER BY si.starts_at`
	return r.queryDetails(ctx, q, studioID, from, until)
}

func (r *InstanceRepo) queryDetails(ctx context.Context, query string, args ...interface{}) ([]InstanceDetail, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []InstanceDetail{}
	for rows.Next() {
		var d InstanceDetail
		if err := rows.Scan(&d.ID, &d.ClassID, &d.ClassName, &d.StartsAt, &d.EndsAt, &d.Capacity, &d.CurrentBookings, &d.State, &d.PriceCents, &d.Currency); err != nil {
			return nil, err
		}
		if d.Capacity > d.CurrentBookings {
			d.SpotsLeft = d.Capacity - d.CurrentBookings
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
