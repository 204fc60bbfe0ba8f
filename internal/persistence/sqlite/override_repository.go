package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/gencare-scheduler/internal/persistence"
)

// OverrideRepository implements persistence.OverrideRepository using SQLite
type OverrideRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewOverrideRepository creates a new SQLite override repository
func NewOverrideRepository(pool *ConnectionPool) *OverrideRepository {
	return &OverrideRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const overrideColumns = `id, consultant_id, override_date, is_available, start_minute, end_minute,
	break_start_minute, break_end_minute, reason, created_by_user_id, created_by_role, created_by_name,
	created_at, updated_at`

// CreateOverride inserts an override. A second override for the same
// consultant and date fails with persistence.ErrDuplicate.
func (r *OverrideRepository) CreateOverride(ctx context.Context, override persistence.ScheduleOverride) error {
	if override.ID == "" || override.ConsultantID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx, `
		INSERT INTO schedule_overrides (`+overrideColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		override.ID,
		override.ConsultantID,
		formatDate(override.OverrideDate),
		override.IsAvailable,
		nullInt(override.StartMinute),
		nullInt(override.EndMinute),
		nullInt(override.BreakStartMinute),
		nullInt(override.BreakEndMinute),
		override.Reason,
		override.CreatedBy.UserID,
		override.CreatedBy.Role,
		override.CreatedBy.Name,
		formatTimestamp(override.CreatedAt),
		formatTimestamp(override.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateOverride rewrites the mutable fields of an override
func (r *OverrideRepository) UpdateOverride(ctx context.Context, override persistence.ScheduleOverride) error {
	result, err := r.helper.Exec(ctx, `
		UPDATE schedule_overrides
		SET override_date = ?, is_available = ?, start_minute = ?, end_minute = ?,
			break_start_minute = ?, break_end_minute = ?, reason = ?, updated_at = ?
		WHERE id = ?`,
		formatDate(override.OverrideDate),
		override.IsAvailable,
		nullInt(override.StartMinute),
		nullInt(override.EndMinute),
		nullInt(override.BreakStartMinute),
		nullInt(override.BreakEndMinute),
		override.Reason,
		formatTimestamp(override.UpdatedAt),
		override.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetOverride retrieves an override by ID
func (r *OverrideRepository) GetOverride(ctx context.Context, id string) (persistence.ScheduleOverride, error) {
	if id == "" {
		return persistence.ScheduleOverride{}, persistence.ErrNotFound
	}
	override, err := scanOverride(r.helper.QueryRow(ctx, `SELECT `+overrideColumns+` FROM schedule_overrides WHERE id = ?`, id))
	if err != nil {
		return persistence.ScheduleOverride{}, r.mapper.MapError(err)
	}
	return override, nil
}

// FindOverrideByDate retrieves the consultant's override for a date
func (r *OverrideRepository) FindOverrideByDate(ctx context.Context, consultantID string, date time.Time) (persistence.ScheduleOverride, error) {
	override, err := scanOverride(r.helper.QueryRow(ctx,
		`SELECT `+overrideColumns+` FROM schedule_overrides WHERE consultant_id = ? AND override_date = ?`,
		consultantID, formatDate(date),
	))
	if err != nil {
		return persistence.ScheduleOverride{}, r.mapper.MapError(err)
	}
	return override, nil
}

// ListOverrides returns the consultant's overrides within the inclusive date range ordered by date
func (r *OverrideRepository) ListOverrides(ctx context.Context, consultantID string, dates persistence.DateRange) ([]persistence.ScheduleOverride, error) {
	conditions := []string{"consultant_id = ?"}
	args := []any{consultantID}
	if dates.From != nil {
		conditions = append(conditions, "override_date >= ?")
		args = append(args, formatDate(*dates.From))
	}
	if dates.To != nil {
		conditions = append(conditions, "override_date <= ?")
		args = append(args, formatDate(*dates.To))
	}

	rows, err := r.helper.Query(ctx,
		`SELECT `+overrideColumns+` FROM schedule_overrides WHERE `+strings.Join(conditions, " AND ")+` ORDER BY override_date ASC`,
		args...,
	)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var overrides []persistence.ScheduleOverride
	for rows.Next() {
		override, err := scanOverride(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		overrides = append(overrides, override)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return overrides, nil
}

// DeleteOverride removes an override by ID
func (r *OverrideRepository) DeleteOverride(ctx context.Context, id string) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM schedule_overrides WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

func scanOverride(row rowScanner) (persistence.ScheduleOverride, error) {
	var (
		override                         persistence.ScheduleOverride
		date, createdAt, updatedAt       string
		start, end, breakStart, breakEnd sql.NullInt64
	)
	if err := row.Scan(
		&override.ID,
		&override.ConsultantID,
		&date,
		&override.IsAvailable,
		&start,
		&end,
		&breakStart,
		&breakEnd,
		&override.Reason,
		&override.CreatedBy.UserID,
		&override.CreatedBy.Role,
		&override.CreatedBy.Name,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.ScheduleOverride{}, err
	}

	var err error
	if override.OverrideDate, err = parseDate("override_date", date); err != nil {
		return persistence.ScheduleOverride{}, err
	}
	if override.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return persistence.ScheduleOverride{}, err
	}
	if override.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return persistence.ScheduleOverride{}, err
	}
	override.StartMinute = intPtr(start)
	override.EndMinute = intPtr(end)
	override.BreakStartMinute = intPtr(breakStart)
	override.BreakEndMinute = intPtr(breakEnd)
	return override, nil
}
