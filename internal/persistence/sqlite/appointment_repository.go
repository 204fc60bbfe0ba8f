package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/gencare-scheduler/internal/persistence"
)

// AppointmentRepository implements persistence.AppointmentRepository using SQLite
type AppointmentRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewAppointmentRepository creates a new SQLite appointment repository
func NewAppointmentRepository(pool *ConnectionPool) *AppointmentRepository {
	return &AppointmentRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const appointmentColumns = `id, consultant_id, customer_id, appointment_date, start_minute, end_minute,
	status, notes, created_at, updated_at`

// CreateAppointment inserts an appointment. The insert is refused with
// persistence.ErrConstraintViolation when another non-cancelled appointment of
// the consultant overlaps the requested interval.
func (r *AppointmentRepository) CreateAppointment(ctx context.Context, appointment persistence.Appointment) error {
	if appointment.ID == "" || appointment.ConsultantID == "" || appointment.CustomerID == "" {
		return persistence.ErrConstraintViolation
	}

	date := formatDate(appointment.AppointmentDate)
	result, err := r.helper.Exec(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM appointments
			WHERE consultant_id = ? AND appointment_date = ? AND status <> 'cancelled'
				AND start_minute < ? AND end_minute > ?
		)`,
		appointment.ID,
		appointment.ConsultantID,
		appointment.CustomerID,
		date,
		appointment.StartMinute,
		appointment.EndMinute,
		appointment.Status,
		nullString(appointment.Notes),
		formatTimestamp(appointment.CreatedAt),
		formatTimestamp(appointment.UpdatedAt),
		appointment.ConsultantID,
		date,
		appointment.EndMinute,
		appointment.StartMinute,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return r.mapper.MapError(err)
	}
	if affected == 0 {
		return persistence.ErrConstraintViolation
	}
	return nil
}

// UpdateAppointmentStatus sets the status of an appointment
func (r *AppointmentRepository) UpdateAppointmentStatus(ctx context.Context, id, status string, updatedAt time.Time) error {
	result, err := r.helper.Exec(ctx,
		`UPDATE appointments SET status = ?, updated_at = ? WHERE id = ?`,
		status, formatTimestamp(updatedAt), id,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetAppointment retrieves an appointment by ID
func (r *AppointmentRepository) GetAppointment(ctx context.Context, id string) (persistence.Appointment, error) {
	if id == "" {
		return persistence.Appointment{}, persistence.ErrNotFound
	}
	appointment, err := scanAppointment(r.helper.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id))
	if err != nil {
		return persistence.Appointment{}, r.mapper.MapError(err)
	}
	return appointment, nil
}

// ListAppointments returns appointments ordered by date and start time
func (r *AppointmentRepository) ListAppointments(ctx context.Context, filter persistence.AppointmentFilter) ([]persistence.Appointment, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.ConsultantID != "" {
		conditions = append(conditions, "consultant_id = ?")
		args = append(args, filter.ConsultantID)
	}
	if filter.Dates.From != nil {
		conditions = append(conditions, "appointment_date >= ?")
		args = append(args, formatDate(*filter.Dates.From))
	}
	if filter.Dates.To != nil {
		conditions = append(conditions, "appointment_date <= ?")
		args = append(args, formatDate(*filter.Dates.To))
	}
	if len(filter.ExcludeStatuses) > 0 {
		conditions = append(conditions, "status NOT IN ("+placeholders(len(filter.ExcludeStatuses))+")")
		for _, status := range filter.ExcludeStatuses {
			args = append(args, status)
		}
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY appointment_date ASC, start_minute ASC, id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var appointments []persistence.Appointment
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		appointments = append(appointments, appointment)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return appointments, nil
}

func scanAppointment(row rowScanner) (persistence.Appointment, error) {
	var (
		appointment                persistence.Appointment
		date, createdAt, updatedAt string
		notes                      sql.NullString
	)
	if err := row.Scan(
		&appointment.ID,
		&appointment.ConsultantID,
		&appointment.CustomerID,
		&date,
		&appointment.StartMinute,
		&appointment.EndMinute,
		&appointment.Status,
		&notes,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Appointment{}, err
	}

	var err error
	if appointment.AppointmentDate, err = parseDate("appointment_date", date); err != nil {
		return persistence.Appointment{}, err
	}
	if appointment.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return persistence.Appointment{}, err
	}
	if appointment.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return persistence.Appointment{}, err
	}
	appointment.Notes = stringPtr(notes)
	return appointment, nil
}
