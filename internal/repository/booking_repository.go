package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/tulgax/studio-booking/internal/model"
)

// BookingRepo persists bookings and maintains the denormalized
// current_bookings counter on session instances. The capacity check
// and the counter increment are one conditional UPDATE, so two
// concurrent bookings can never both observe a free spot and both
// succeed.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// HasConfirmed reports whether the student already holds a confirmed
// booking on the instance.
func (r *BookingRepo) HasConfirmed(ctx context.Context, studentID, instanceID uint64) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM bookings WHERE student_id = ? AND instance_id = ? AND status = ?)",
		studentID, instanceID, model.BookingConfirmed).Scan(&ok)
	return ok, err
}

// CreateConfirmed inserts a confirmed booking under the capacity
// invariant. Inside one transaction it (1) re-checks the duplicate
// guard with a locking read, (2) runs the atomic check-and-increment
// against the class capacity and (3) inserts the booking row. The
// sentinel errors keep the failure modes distinguishable:
// ErrDuplicate, ErrCapacity, ErrConflict (instance cancelled) or
// ErrNotFound (instance gone).
func (r *BookingRepo) CreateConfirmed(ctx context.Context, b *model.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Duplicate guard under lock; the unique key on
	// (student_id, instance_id, status) backs this up for drivers
	// that do not lock gap-free.
	var existing uint64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM bookings WHERE student_id = ? AND instance_id = ? AND status = ? LIMIT 1 FOR UPDATE",
		b.StudentID, b.InstanceID, model.BookingConfirmed).Scan(&existing)
	if err == nil {
		return ErrDuplicate
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	// Atomic check-and-increment: the row is only updated while a
	// spot is free and the instance is still bookable.
	res, err := tx.ExecContext(ctx,
		`UPDATE session_instances si
		 JOIN classes c ON c.id = si.class_id
		 SET si.current_bookings = si.current_bookings + 1
		 WHERE si.id = ? AND si.state = ? AND si.current_bookings < c.capacity`,
		b.InstanceID, model.InstanceScheduled)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish full from cancelled from missing.
		var state string
		err := tx.QueryRowContext(ctx,
			"SELECT state FROM session_instances WHERE id = ?", b.InstanceID).Scan(&state)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if model.InstanceState(state) == model.InstanceCancelled {
			return ErrConflict
		}
		return ErrCapacity
	}

	ins, err := tx.ExecContext(ctx,
		"INSERT INTO bookings (student_id, instance_id, status, payment_ref) VALUES (?,?,?,?)",
		b.StudentID, b.InstanceID, b.Status, b.PaymentRef)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrDuplicate
		}
		return err
	}
	id, err := ins.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// CancelOwned flips the student's confirmed booking to cancelled and
// decrements the instance counter in the same transaction. Returns
// ErrNotFound when the booking does not exist or belongs to someone
// else, ErrConflict when it is already cancelled.
func (r *BookingRepo) CancelOwned(ctx context.Context, bookingID, studentID uint64) (*model.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var b model.Booking
	var paymentRef sql.NullString
	var checkedIn sql.NullTime
	err = tx.QueryRowContext(ctx,
		`SELECT id, student_id, instance_id, status, payment_ref, checked_in_at, created_at, updated_at
		 FROM bookings WHERE id = ? AND student_id = ? FOR UPDATE`,
		bookingID, studentID).Scan(&b.ID, &b.StudentID, &b.InstanceID, &b.Status, &paymentRef, &checkedIn, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if b.Status == model.BookingCancelled {
		return nil, ErrConflict
	}
	if paymentRef.Valid {
		p := paymentRef.String
		b.PaymentRef = &p
	}
	if checkedIn.Valid {
		t := checkedIn.Time
		b.CheckedInAt = &t
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE bookings SET status = ? WHERE id = ?", model.BookingCancelled, b.ID); err != nil {
		return nil, err
	}
	// Counter floor at zero guards against historical drift; the
	// invariant keeps it impossible under normal operation.
	if _, err := tx.ExecContext(ctx,
		"UPDATE session_instances SET current_bookings = current_bookings - 1 WHERE id = ? AND current_bookings > 0",
		b.InstanceID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	b.Status = model.BookingCancelled
	return &b, nil
}

// GetByID returns a booking by primary key.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	var b model.Booking
	var paymentRef sql.NullString
	var checkedIn sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT id, student_id, instance_id, status, payment_ref, checked_in_at, created_at, updated_at
		 FROM bookings WHERE id = ?`, id).
		Scan(&b.ID, &b.StudentID, &b.InstanceID, &b.Status, &paymentRef, &checkedIn, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if paymentRef.Valid {
		p := paymentRef.String
		b.PaymentRef = &p
	}
	if checkedIn.Valid {
		t := checkedIn.Time
		b.CheckedInAt = &t
	}
	return &b, nil
}

// MarkAttended stamps the booking's check-in time. Refuses (with
// ErrConflict) bookings that are cancelled or already stamped.
func (r *BookingRepo) MarkAttended(ctx context.Context, bookingID uint64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE bookings SET checked_in_at = ? WHERE id = ? AND status = ? AND checked_in_at IS NULL",
		at, bookingID, model.BookingConfirmed)
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

// BookingDetail is a booking joined with its session and class for
// the student's "my bookings" view.
type BookingDetail struct {
	ID          uint64     `json:"id"`
	InstanceID  uint64     `json:"instance_id"`
	Status      string     `json:"status"`
	ClassName   string     `json:"class_name"`
	StudioName  string     `json:"studio_name"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      time.Time  `json:"ends_at"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
}

// ListByStudent returns the student's bookings, newest session first.
func (r *BookingRepo) ListByStudent(ctx context.Context, studentID uint64) ([]BookingDetail, error) {
	const q = `SELECT b.id, b.instance_id, b.status, c.name, s.name, si.starts_at, si.ends_at, b.checked_in_at
	           FROM bookings b
	           JOIN session_instances si ON si.id = b.instance_id
	           JOIN classes c ON c.id = si.class_id
	           JOIN studios s ON s.id = c.studio_id
	           WHERE b.student_id = ?
	           ORDER BY si.starts_at DESC`
	rows, err := r.db.QueryContext(ctx, q, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []BookingDetail{}
	for rows.Next() {
		var d BookingDetail
		var checkedIn sql.NullTime
		if err := rows.Scan(&d.ID, &d.InstanceID, &d.Status, &d.ClassName, &d.StudioName, &d.StartsAt, &d.EndsAt, &checkedIn); err != nil {
			return nil, err
		}
		if checkedIn.Valid {
			t := checkedIn.Time
			d.CheckedInAt = &t
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// RosterEntry is one confirmed booking on an instance, for the
// operator's class roster.
type RosterEntry struct {
	BookingID   uint64     `json:"booking_id"`
	StudentID   uint64     `json:"student_id"`
	StudentName string     `json:"student_name"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
}

// ListForInstance returns the confirmed bookings of one instance with
// student names, ordered by booking time.
func (r *BookingRepo) ListForInstance(ctx context.Context, instanceID uint64) ([]RosterEntry, error) {
	const q = `SELECT b.id, b.student_id, u.full_name, b.checked_in_at
	           FROM bookings b
	           JOIN users u ON u.id = b.student_id
	           WHERE b.instance_id = ? AND b.status = ?
	           ORDER BY b.created_at`
	rows, err := r.db.QueryContext(ctx, q, instanceID, model.BookingConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []RosterEntry{}
	for rows.Next() {
		var e RosterEntry
		var checkedIn sql.NullTime
		if err := rows.Scan(&e.BookingID, &e.StudentID, &e.StudentName, &checkedIn); err != nil {
			return nil, err
		}
		if checkedIn.Valid {
			t := checkedIn.Time
			e.CheckedInAt = &t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
