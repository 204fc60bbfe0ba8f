package persistence

import (
	"context"
	"time"
)

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUsers(ctx context.Context, ids []string) ([]User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}

// DateRange bounds a query on a date column. Nil ends are open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// WeeklyScheduleFilter narrows weekly schedule listings.
type WeeklyScheduleFilter struct {
	ConsultantID string
	WeekStart    DateRange
}

// WeeklyScheduleRepository stores weekly schedules and their working days.
type WeeklyScheduleRepository interface {
	CreateWeeklySchedule(ctx context.Context, schedule WeeklySchedule) error
	UpdateWeeklySchedule(ctx context.Context, schedule WeeklySchedule) error
	GetWeeklySchedule(ctx context.Context, id string) (WeeklySchedule, error)
	FindWeeklyScheduleByWeek(ctx context.Context, consultantID string, weekStart time.Time) (WeeklySchedule, error)
	ListWeeklySchedules(ctx context.Context, filter WeeklyScheduleFilter) ([]WeeklySchedule, error)
	// DeleteWeeklySchedule removes the schedule unless the consultant has a
	// non-cancelled appointment inside its week, in which case ErrInUse is returned.
	DeleteWeeklySchedule(ctx context.Context, id string) error
}

// OverrideRepository stores per-date schedule overrides.
type OverrideRepository interface {
	CreateOverride(ctx context.Context, override ScheduleOverride) error
	UpdateOverride(ctx context.Context, override ScheduleOverride) error
	GetOverride(ctx context.Context, id string) (ScheduleOverride, error)
	FindOverrideByDate(ctx context.Context, consultantID string, date time.Time) (ScheduleOverride, error)
	ListOverrides(ctx context.Context, consultantID string, dates DateRange) ([]ScheduleOverride, error)
	DeleteOverride(ctx context.Context, id string) error
}

// AppointmentFilter narrows appointment listings.
type AppointmentFilter struct {
	ConsultantID    string
	Dates           DateRange
	ExcludeStatuses []string
}

// AppointmentRepository stores appointments.
type AppointmentRepository interface {
	CreateAppointment(ctx context.Context, appointment Appointment) error
	UpdateAppointmentStatus(ctx context.Context, id, status string, updatedAt time.Time) error
	GetAppointment(ctx context.Context, id string) (Appointment, error)
	ListAppointments(ctx context.Context, filter AppointmentFilter) ([]Appointment, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
