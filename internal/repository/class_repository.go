package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tulgax/studio-booking/internal/model"
)

// ClassRepo provides CRUD operations for class templates. Duration
// and capacity are frozen once the class is referenced by session
// instances; the guarded update enforces that here rather than in
// every caller.
type ClassRepo struct {
	db *sql.DB
}

// NewClassRepo returns a new ClassRepo bound to the given database.
func NewClassRepo(db *sql.DB) *ClassRepo { return &ClassRepo{db: db} }

const classCols = "id, studio_id, name, description, duration_min, capacity, price_cents, currency, is_active, created_at, updated_at"

// Create inserts a class and populates the generated ID.
func (r *ClassRepo) Create(ctx context.Context, c *model.Class) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO classes (studio_id, name, description, duration_min, capacity, price_cents, currency, is_active) VALUES (?,?,?,?,?,?,?,?)",
		c.StudioID, c.Name, c.Description, c.DurationMin, c.Capacity, c.PriceCents, c.Currency, c.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

func scanClass(row *sql.Row) (*model.Class, error) {
	var c model.Class
	var desc sql.NullString
	err := row.Scan(&c.ID, &c.StudioID, &c.Name, &desc, &c.DurationMin, &c.Capacity, &c.PriceCents, &c.Currency, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if desc.Valid {
		d := desc.String
		c.Description = &d
	}
	return &c, nil
}

// GetByID returns a class by primary key.
func (r *ClassRepo) GetByID(ctx context.Context, id uint64) (*model.Class, error) {
	return scanClass(r.db.QueryRowContext(ctx,
		"SELECT "+classCols+" FROM classes WHERE id = ?", id))
}

// HasInstances reports whether any session instance references the
// class. Cancelled instances count: they still depend on the frozen
// duration and capacity.
func (r *ClassRepo) HasInstances(ctx context.Context, classID uint64) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM session_instances WHERE class_id = ?)", classID).Scan(&ok)
	return ok, err
}

// UpdateDescriptive changes the fields that stay editable for the
// lifetime of the class.
func (r *ClassRepo) UpdateDescriptive(ctx context.Context, id uint64, name string, description *string, priceCents uint32, currency string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE classes SET name = ?, description = ?, price_cents = ?, currency = ? WHERE id = ?",
		name, description, priceCents, currency, id)
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

// UpdateShape changes duration and capacity, refusing with
// ErrConflict when instances already reference the class. The guard
// is part of the statement so a concurrent first instance cannot slip
// past a separate existence check.
func (r *ClassRepo) UpdateShape(ctx context.Context, id uint64, durationMin, capacity uint32) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE classes SET duration_min = ?, capacity = ?
		 WHERE id = ? AND NOT EXISTS (SELECT 1 FROM session_instances WHERE class_id = ?)`,
		durationMin, capacity, id, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either the class is missing or it has instances; look once
		// more to report the right failure.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

// SetActive toggles whether new scheduling is allowed for the class.
func (r *ClassRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE classes SET is_active = ? WHERE id = ?", active, id)
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

// ListByStudio returns the studio's classes, optionally only active
// ones (the public browse surface).
func (r *ClassRepo) ListByStudio(ctx context.Context, studioID uint64, activeOnly bool) ([]model.Class, error) {
	q := "SELECT " + classCols + " FROM classes WHERE studio_id = ?"
	if activeOnly {
		q += " AND is_active = 1"
	}
	q += " ORDER BY name"
	rows, err := r.db.QueryContext(ctx, q, studioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Class{}
	for rows.Next() {
		var c model.Class
		var desc sql.NullString
		if err := rows.Scan(&c.ID, &c.StudioID, &c.Name, &desc, &c.DurationMin, &c.Capacity, &c.PriceCents, &c.Currency, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		if desc.Valid {
			d := desc.String
			c.Description = &d
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
