package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tulgax/studio-booking/internal/model"
)

// PlanRepo provides CRUD operations for membership plans.
type PlanRepo struct {
	db *sql.DB
}

// NewPlanRepo returns a new PlanRepo bound to the given database.
func NewPlanRepo(db *sql.DB) *PlanRepo { return &PlanRepo{db: db} }

const planCols = "id, studio_id, name, duration_months, price_cents, currency, is_active, created_at, updated_at"

// Create inserts a plan and populates the generated ID.
func (r *PlanRepo) Create(ctx context.Context, p *model.MembershipPlan) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO membership_plans (studio_id, name, duration_months, price_cents, currency, is_active) VALUES (?,?,?,?,?,?)",
		p.StudioID, p.Name, p.DurationMonths, p.PriceCents, p.Currency, p.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

func scanPlan(row *sql.Row) (*model.MembershipPlan, error) {
	var p model.MembershipPlan
	err := row.Scan(&p.ID, &p.StudioID, &p.Name, &p.DurationMonths, &p.PriceCents, &p.Currency, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID returns a plan by primary key.
func (r *PlanRepo) GetByID(ctx context.Context, id uint64) (*model.MembershipPlan, error) {
	return scanPlan(r.db.QueryRowContext(ctx,
		"SELECT "+planCols+" FROM membership_plans WHERE id = ?", id))
}

// SetActive toggles whether the plan accepts new purchases. Existing
// memberships are unaffected.
func (r *PlanRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE membership_plans SET is_active = ? WHERE id = ?", active, id)
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

// ListByStudio returns the studio's plans, optionally only the ones
// open for purchase.
func (r *PlanRepo) ListByStudio(ctx context.Context, studioID uint64, activeOnly bool) ([]model.MembershipPlan, error) {
	q := "SELECT " + planCols + " FROM membership_plans WHERE studio_id = ?"
	if activeOnly {
		q += " AND is_active = 1"
	}
	q += " ORDER BY duration_months, name"
	rows, err := r.db.QueryContext(ctx, q, studioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.MembershipPlan{}
	for rows.Next() {
		var p model.MembershipPlan
		if err := rows.Scan(&p.ID, &p.StudioID, &p.Name, &p.DurationMonths, &p.PriceCents, &p.Currency, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
