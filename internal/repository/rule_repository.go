package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/tulgax/studio-booking/internal/model"
)

// RuleRepo persists recurring schedule rules. Rules are created in
// batches (one row per selected weekday, sharing a group id) and are
// deactivated rather than deleted so historical instances keep their
// audit linkage.
type RuleRepo struct {
	db *sql.DB
}

// NewRuleRepo returns a new RuleRepo bound to the given database.
func NewRuleRepo(db *sql.DB) *RuleRepo { return &RuleRepo{db: db} }

// CreateBatch inserts all rules of one scheduling request in a single
// statement. Passing an empty slice has no effect and returns nil.
func (r *RuleRepo) CreateBatch(ctx context.Context, rules []model.ScheduleRule) error {
	if len(rules) == 0 {
		return nil
	}
	query := `INSERT INTO schedule_rules (class_id, group_id, weekday, start_time, end_time, is_active) VALUES `
	args := make([]interface{}, 0, len(rules)*6)
	for i, rule := range rules {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?)"
		args = append(args, rule.ClassID, rule.GroupID.String(), int(rule.Weekday), rule.StartTime, rule.EndTime, rule.IsActive)
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// DeactivateForClass switches off every active rule of the class and
// returns how many rules were affected. Running it again is a no-op.
func (r *RuleRepo) DeactivateForClass(ctx context.Context, classID uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE schedule_rules SET is_active = 0 WHERE class_id = ? AND is_active = 1", classID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListByClass returns all rules of a class, active and inactive, in
// weekday order. Used by the operator schedule view.
func (r *RuleRepo) ListByClass(ctx context.Context, classID uint64) ([]model.ScheduleRule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, class_id, group_id, weekday, start_time, end_time, is_active, created_at, updated_at
		 FROM schedule_rules WHERE class_id = ? ORDER BY weekday, start_time`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ScheduleRule{}
	for rows.Next() {
		var rule model.ScheduleRule
		var group string
		var weekday int
		if err := rows.Scan(&rule.ID, &rule.ClassID, &group, &weekday, &rule.StartTime, &rule.EndTime, &rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, err
		}
		if gid, err := uuid.Parse(group); err == nil {
			rule.GroupID = gid
		}
		rule.Weekday = time.Weekday(weekday)
		out = append(out, rule)
	}
	return out, rows.Err()
}
