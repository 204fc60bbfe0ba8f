package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/gencare-scheduler/internal/persistence"
)

// WeeklyScheduleRepository implements persistence.WeeklyScheduleRepository using SQLite
type WeeklyScheduleRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewWeeklyScheduleRepository creates a new SQLite weekly schedule repository
func NewWeeklyScheduleRepository(pool *ConnectionPool) *WeeklyScheduleRepository {
	return &WeeklyScheduleRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const weeklyScheduleColumns = `id, consultant_id, week_start_date, week_end_date, default_slot_duration, notes,
	created_by_user_id, created_by_role, created_by_name, created_at, updated_at`

// CreateWeeklySchedule inserts the schedule and its working days in one transaction.
// A second schedule for the same consultant and week fails with persistence.ErrDuplicate.
func (r *WeeklyScheduleRepository) CreateWeeklySchedule(ctx context.Context, schedule persistence.WeeklySchedule) error {
	if schedule.ID == "" || schedule.ConsultantID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := r.helper.ExecTx(ctx, tx, `
			INSERT INTO weekly_schedules (`+weeklyScheduleColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			schedule.ID,
			schedule.ConsultantID,
			formatDate(schedule.WeekStartDate),
			formatDate(schedule.WeekEndDate),
			schedule.DefaultSlotDuration,
			nullString(schedule.Notes),
			schedule.CreatedBy.UserID,
			schedule.CreatedBy.Role,
			schedule.CreatedBy.Name,
			formatTimestamp(schedule.CreatedAt),
			formatTimestamp(schedule.UpdatedAt),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return r.insertDays(ctx, tx, schedule.ID, schedule.WorkingDays)
	})
}

// UpdateWeeklySchedule replaces the mutable fields and the working days.
// The consultant and the created_by snapshot are never rewritten.
func (r *WeeklyScheduleRepository) UpdateWeeklySchedule(ctx context.Context, schedule persistence.WeeklySchedule) error {
	if schedule.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := r.helper.ExecTx(ctx, tx, `
			UPDATE weekly_schedules
			SET week_start_date = ?, week_end_date = ?, default_slot_duration = ?, notes = ?, updated_at = ?
			WHERE id = ?`,
			formatDate(schedule.WeekStartDate),
			formatDate(schedule.WeekEndDate),
			schedule.DefaultSlotDuration,
			nullString(schedule.Notes),
			formatTimestamp(schedule.UpdatedAt),
			schedule.ID,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if err := requireAffected(result); err != nil {
			return err
		}

		if _, err := r.helper.ExecTx(ctx, tx, `DELETE FROM weekly_schedule_days WHERE schedule_id = ?`, schedule.ID); err != nil {
			return r.mapper.MapError(err)
		}
		return r.insertDays(ctx, tx, schedule.ID, schedule.WorkingDays)
	})
}

// GetWeeklySchedule retrieves a schedule with its working days by ID
func (r *WeeklyScheduleRepository) GetWeeklySchedule(ctx context.Context, id string) (persistence.WeeklySchedule, error) {
	if id == "" {
		return persistence.WeeklySchedule{}, persistence.ErrNotFound
	}
	return r.getOne(ctx, `SELECT `+weeklyScheduleColumns+` FROM weekly_schedules WHERE id = ?`, id)
}

// FindWeeklyScheduleByWeek retrieves the consultant's schedule for the week starting at weekStart
func (r *WeeklyScheduleRepository) FindWeeklyScheduleByWeek(ctx context.Context, consultantID string, weekStart time.Time) (persistence.WeeklySchedule, error) {
	return r.getOne(ctx,
		`SELECT `+weeklyScheduleColumns+` FROM weekly_schedules WHERE consultant_id = ? AND week_start_date = ?`,
		consultantID, formatDate(weekStart),
	)
}

// ListWeeklySchedules lists schedules ordered by week start then consultant
func (r *WeeklyScheduleRepository) ListWeeklySchedules(ctx context.Context, filter persistence.WeeklyScheduleFilter) ([]persistence.WeeklySchedule, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.ConsultantID != "" {
		conditions = append(conditions, "consultant_id = ?")
		args = append(args, filter.ConsultantID)
	}
	if filter.WeekStart.From != nil {
		conditions = append(conditions, "week_start_date >= ?")
		args = append(args, formatDate(*filter.WeekStart.From))
	}
	if filter.WeekStart.To != nil {
		conditions = append(conditions, "week_start_date <= ?")
		args = append(args, formatDate(*filter.WeekStart.To))
	}

	query := `SELECT ` + weeklyScheduleColumns + ` FROM weekly_schedules`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY week_start_date ASC, consultant_id ASC, id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var (
		schedules []persistence.WeeklySchedule
		ids       []any
	)
	for rows.Next() {
		schedule, err := scanWeeklySchedule(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		schedules = append(schedules, schedule)
		ids = append(ids, schedule.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	if len(schedules) == 0 {
		return schedules, nil
	}

	days, err := r.loadDays(ctx, `schedule_id IN (`+placeholders(len(ids))+`)`, ids...)
	if err != nil {
		return nil, err
	}
	for i := range schedules {
		schedules[i].WorkingDays = days[schedules[i].ID]
	}
	return schedules, nil
}

// DeleteWeeklySchedule removes a schedule unless the consultant has a
// non-cancelled appointment within the schedule's week.
func (r *WeeklyScheduleRepository) DeleteWeeklySchedule(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var consultantID, weekStart, weekEnd string
		err := r.helper.QueryRowTx(ctx, tx,
			`SELECT consultant_id, week_start_date, week_end_date FROM weekly_schedules WHERE id = ?`, id,
		).Scan(&consultantID, &weekStart, &weekEnd)
		if err != nil {
			return r.mapper.MapError(err)
		}

		var booked int
		err = r.helper.QueryRowTx(ctx, tx, `
			SELECT COUNT(*) FROM appointments
			WHERE consultant_id = ? AND appointment_date BETWEEN ? AND ? AND status <> 'cancelled'`,
			consultantID, weekStart, weekEnd,
		).Scan(&booked)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if booked > 0 {
			return fmt.Errorf("%w: %d active appointments in week %s", persistence.ErrInUse, booked, weekStart)
		}

		result, err := r.helper.ExecTx(ctx, tx, `DELETE FROM weekly_schedules WHERE id = ?`, id)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return requireAffected(result)
	})
}

func (r *WeeklyScheduleRepository) getOne(ctx context.Context, query string, args ...any) (persistence.WeeklySchedule, error) {
	schedule, err := scanWeeklySchedule(r.helper.QueryRow(ctx, query, args...))
	if err != nil {
		return persistence.WeeklySchedule{}, r.mapper.MapError(err)
	}
	days, err := r.loadDays(ctx, `schedule_id = ?`, schedule.ID)
	if err != nil {
		return persistence.WeeklySchedule{}, err
	}
	schedule.WorkingDays = days[schedule.ID]
	return schedule, nil
}

func (r *WeeklyScheduleRepository) insertDays(ctx context.Context, tx *sql.Tx, scheduleID string, days []persistence.WorkingDay) error {
	for _, day := range days {
		_, err := r.helper.ExecTx(ctx, tx, `
			INSERT INTO weekly_schedule_days
				(schedule_id, weekday, start_minute, end_minute, break_start_minute, break_end_minute, is_available)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			scheduleID,
			day.Weekday,
			day.StartMinute,
			day.EndMinute,
			nullInt(day.BreakStartMinute),
			nullInt(day.BreakEndMinute),
			day.IsAvailable,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

// loadDays returns working days grouped by schedule ID in Monday to Sunday order.
func (r *WeeklyScheduleRepository) loadDays(ctx context.Context, where string, args ...any) (map[string][]persistence.WorkingDay, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT schedule_id, weekday, start_minute, end_minute, break_start_minute, break_end_minute, is_available
		FROM weekly_schedule_days
		WHERE `+where+`
		ORDER BY schedule_id ASC, CASE weekday
			WHEN 'monday' THEN 1 WHEN 'tuesday' THEN 2 WHEN 'wednesday' THEN 3 WHEN 'thursday' THEN 4
			WHEN 'friday' THEN 5 WHEN 'saturday' THEN 6 ELSE 7 END`,
		args...,
	)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	days := make(map[string][]persistence.WorkingDay)
	for rows.Next() {
		var (
			scheduleID           string
			day                  persistence.WorkingDay
			breakStart, breakEnd sql.NullInt64
		)
		if err := rows.Scan(&scheduleID, &day.Weekday, &day.StartMinute, &day.EndMinute, &breakStart, &breakEnd, &day.IsAvailable); err != nil {
			return nil, r.mapper.MapError(err)
		}
		day.BreakStartMinute = intPtr(breakStart)
		day.BreakEndMinute = intPtr(breakEnd)
		days[scheduleID] = append(days[scheduleID], day)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return days, nil
}

func scanWeeklySchedule(row rowScanner) (persistence.WeeklySchedule, error) {
	var (
		schedule                                 persistence.WeeklySchedule
		weekStart, weekEnd, createdAt, updatedAt string
		notes                                    sql.NullString
	)
	if err := row.Scan(
		&schedule.ID,
		&schedule.ConsultantID,
		&weekStart,
		&weekEnd,
		&schedule.DefaultSlotDuration,
		&notes,
		&schedule.CreatedBy.UserID,
		&schedule.CreatedBy.Role,
		&schedule.CreatedBy.Name,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.WeeklySchedule{}, err
	}

	var err error
	if schedule.WeekStartDate, err = parseDate("week_start_date", weekStart); err != nil {
		return persistence.WeeklySchedule{}, err
	}
	if schedule.WeekEndDate, err = parseDate("week_end_date", weekEnd); err != nil {
		return persistence.WeeklySchedule{}, err
	}
	if schedule.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return persistence.WeeklySchedule{}, err
	}
	if schedule.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return persistence.WeeklySchedule{}, err
	}
	schedule.Notes = stringPtr(notes)
	return schedule, nil
}
