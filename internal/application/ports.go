package application

import (
	"context"
	"log/slog"
	"time"
)

// WeeklyScheduleRepository captures the persistence operations for weekly schedules.
// CreateWeeklySchedule and UpdateWeeklySchedule report ErrAlreadyExists when the
// consultant already has a schedule for the week. DeleteWeeklySchedule reports
// ErrConflict when active appointments fall inside the week.
type WeeklyScheduleRepository interface {
	CreateWeeklySchedule(ctx context.Context, schedule WeeklySchedule) error
	UpdateWeeklySchedule(ctx context.Context, schedule WeeklySchedule) error
	GetWeeklySchedule(ctx context.Context, id string) (WeeklySchedule, error)
	FindWeeklyScheduleByWeek(ctx context.Context, consultantID string, weekStart time.Time) (WeeklySchedule, error)
	ListWeeklySchedules(ctx context.Context, filter WeeklyScheduleFilter) ([]WeeklySchedule, error)
	DeleteWeeklySchedule(ctx context.Context, id string) error
}

// OverrideRepository captures the persistence operations for date overrides.
type OverrideRepository interface {
	CreateOverride(ctx context.Context, override Override) error
	UpdateOverride(ctx context.Context, override Override) error
	GetOverride(ctx context.Context, id string) (Override, error)
	FindOverrideByDate(ctx context.Context, consultantID string, date time.Time) (Override, error)
	ListOverrides(ctx context.Context, consultantID string, dates DateRange) ([]Override, error)
	DeleteOverride(ctx context.Context, id string) error
}

// AppointmentRepository captures the persistence operations for appointments.
// CreateAppointment reports ErrConflict when an active appointment overlaps.
type AppointmentRepository interface {
	CreateAppointment(ctx context.Context, appointment Appointment) error
	UpdateAppointmentStatus(ctx context.Context, id, status string, updatedAt time.Time) error
	GetAppointment(ctx context.Context, id string) (Appointment, error)
	ListAppointments(ctx context.Context, filter AppointmentFilter) ([]Appointment, error)
}

// UserDirectory resolves consultants and display names for other services.
type UserDirectory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
	DisplayNames(ctx context.Context, userIDs []string) (map[string]string, error)
	Consultant(ctx context.Context, consultantID string) (User, error)
}

// AvailabilityCache stores computed availability views per consultant.
// Load reports the consultant's cache generation with every lookup, a miss
// being (generation, false, nil). Store must be handed the generation seen by
// the Load that preceded the computation so that a view derived from data read
// before an InvalidateConsultant call is never served after it.
type AvailabilityCache interface {
	Load(ctx context.Context, consultantID, view, date string, dest any) (generation int64, hit bool, err error)
	Store(ctx context.Context, consultantID, view, date string, generation int64, value any) error
	InvalidateConsultant(ctx context.Context, consultantID string) error
}

// Metrics receives domain level counters.
type Metrics interface {
	AvailabilityLookup(view string, cacheHit bool)
	Mutation(resource, operation string)
}

// Hooks bundles the optional collaborators shared by the scheduling services.
type Hooks struct {
	Cache   AvailabilityCache
	Metrics Metrics
}

func (h Hooks) withDefaults() Hooks {
	if h.Cache == nil {
		h.Cache = noopCache{}
	}
	if h.Metrics == nil {
		h.Metrics = noopMetrics{}
	}
	return h
}

// invalidate drops cached availability for the consultant. Failures are logged
// and swallowed so a cache outage never blocks a write.
func (h Hooks) invalidate(ctx context.Context, logger *slog.Logger, consultantID string) {
	if err := h.Cache.InvalidateConsultant(ctx, consultantID); err != nil {
		logger.WarnContext(ctx, "availability cache invalidation failed", "consultant_id", consultantID, "error", err)
	}
}

type noopCache struct{}

func (noopCache) Load(context.Context, string, string, string, any) (int64, bool, error) { return 0, false, nil }
func (noopCache) Store(context.Context, string, string, string, int64, any) error        { return nil }
func (noopCache) InvalidateConsultant(context.Context, string) error                     { return nil }

type noopMetrics struct{}

func (noopMetrics) AvailabilityLookup(string, bool) {}
func (noopMetrics) Mutation(string, string)         {}
