package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tulgax/studio-booking/internal/model"
)

// StudioRepo provides CRUD operations for studios and answers the
// operator-access question used by every authorization check: a user
// operates a studio when they own it or appear in studio_managers.
type StudioRepo struct {
	db *sql.DB
}

// NewStudioRepo returns a new StudioRepo bound to the given database.
func NewStudioRepo(db *sql.DB) *StudioRepo { return &StudioRepo{db: db} }

// Create inserts a studio and populates the generated ID.
func (r *StudioRepo) Create(ctx context.Context, s *model.Studio) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO studios (owner_id, name, timezone, is_active) VALUES (?,?,?,?)",
		s.OwnerID, s.Name, s.Timezone, s.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

func scanStudio(row *sql.Row) (*model.Studio, error) {
	var s model.Studio
	err := row.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Timezone, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

const studioCols = "id, owner_id, name, timezone, is_active, created_at, updated_at"

// GetByID returns a studio by primary key.
func (r *StudioRepo) GetByID(ctx context.Context, id uint64) (*model.Studio, error) {
	return scanStudio(r.db.QueryRowContext(ctx,
		"SELECT "+studioCols+" FROM studios WHERE id = ?", id))
}

// GetByIDAndOwner returns the studio only when the given user owns it.
// ErrForbidden distinguishes "exists but not yours" from ErrNotFound.
func (r *StudioRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*model.Studio, error) {
	s, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return s, nil
}

// IsOperator reports whether the user owns the studio or is listed as
// one of its managers.
func (r *StudioRepo) IsOperator(ctx context.Context, studioID, userID uint64) (bool, error) {
	const q = `SELECT EXISTS (
	               SELECT 1 FROM studios WHERE id = ? AND owner_id = ?
	           ) OR EXISTS (
	               SELECT 1 FROM studio_managers WHERE studio_id = ? AND user_id = ?
	           )`
	var ok bool
	if err := r.db.QueryRowContext(ctx, q, studioID, userID, studioID, userID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// AddManager grants a user operator access to the studio. Adding the
// same manager twice is a no-op.
func (r *StudioRepo) AddManager(ctx context.Context, studioID, userID uint64) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT IGNORE INTO studio_managers (studio_id, user_id) VALUES (?,?)",
		studioID, userID)
	return err
}

// Update changes the studio's descriptive fields.
func (r *StudioRepo) Update(ctx context.Context, s *model.Studio) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE studios SET name = ?, timezone = ?, is_active = ? WHERE id = ?",
		s.Name, s.Timezone, s.IsActive, s.ID)
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

// ListActive returns all active studios for public browsing.
func (r *StudioRepo) ListActive(ctx context.Context) ([]model.Studio, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+studioCols+" FROM studios WHERE is_active = 1 ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Studio{}
	for rows.Next() {
		var s model.Studio
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Timezone, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
