package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/gencare-scheduler/internal/availability"
)

// Cache view names.
const (
	viewDay  = "day"
	viewWeek = "week"
)

// AvailabilityService answers day and week availability queries.
type AvailabilityService struct {
	calc      dayCalculator
	directory UserDirectory
	hooks     Hooks
	logger    *slog.Logger
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(schedules WeeklyScheduleRepository, overrides OverrideRepository, appointments AppointmentRepository, directory UserDirectory, hooks Hooks) *AvailabilityService {
	return NewAvailabilityServiceWithLogger(schedules, overrides, appointments, directory, hooks, nil)
}

// NewAvailabilityServiceWithLogger constructs an AvailabilityService with a specific logger.
func NewAvailabilityServiceWithLogger(schedules WeeklyScheduleRepository, overrides OverrideRepository, appointments AppointmentRepository, directory UserDirectory, hooks Hooks, logger *slog.Logger) *AvailabilityService {
	return &AvailabilityService{
		calc:      dayCalculator{schedules: schedules, overrides: overrides, appointments: appointments},
		directory: directory,
		hooks:     hooks.withDefaults(),
		logger:    defaultLogger(logger),
	}
}

func (s *AvailabilityService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AvailabilityService", operation, attrs...)
}

func (s *AvailabilityService) ready() error {
	if s == nil {
		return fmt.Errorf("AvailabilityService is nil")
	}
	if err := s.calc.ready(); err != nil {
		return err
	}
	if s.directory == nil {
		return fmt.Errorf("user directory not configured")
	}
	return nil
}

// DayAvailability resolves a single date: override first, then the template
// of the containing week, then the booking filter.
func (s *AvailabilityService) DayAvailability(ctx context.Context, params DayAvailabilityParams) (result DayAvailability, err error) {
	if err = s.ready(); err != nil {
		return
	}

	consultantID := strings.TrimSpace(params.ConsultantID)
	cached := false
	logger := s.loggerWith(ctx, "DayAvailability",
		"consultant_id", consultantID,
		"date", params.Date,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "day availability failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("total_slots", result.TotalSlots, "cached", cached).DebugContext(ctx, "day availability computed")
	}()

	if params.Principal.UserID == "" {
		err = ErrUnauthorized
		return
	}
	vErr := &ValidationError{}
	date, _ := parseDateField(vErr, "date", params.Date)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if _, err = s.directory.Consultant(ctx, consultantID); err != nil {
		return
	}

	key := availability.FormatDate(date)
	generation, cached := s.load(ctx, logger, consultantID, viewDay, key, &result)
	if cached {
		s.hooks.Metrics.AvailabilityLookup(viewDay, true)
		return
	}
	s.hooks.Metrics.AvailabilityLookup(viewDay, false)

	if result, err = s.calc.day(ctx, consultantID, date); err != nil {
		return
	}
	s.store(ctx, logger, consultantID, viewDay, key, generation, result)
	return
}

// WeeklyAvailability aggregates Monday through Sunday of the week starting at WeekStartDate.
func (s *AvailabilityService) WeeklyAvailability(ctx context.Context, params WeeklyAvailabilityParams) (result WeeklyAvailability, err error) {
	if err = s.ready(); err != nil {
		return
	}

	consultantID := strings.TrimSpace(params.ConsultantID)
	cached := false
	logger := s.loggerWith(ctx, "WeeklyAvailability",
		"consultant_id", consultantID,
		"week_start_date", params.WeekStartDate,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "weekly availability failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("working_days", result.Summary.TotalWorkingDays, "cached", cached).DebugContext(ctx, "weekly availability computed")
	}()

	if params.Principal.UserID == "" {
		err = ErrUnauthorized
		return
	}
	vErr := &ValidationError{}
	weekStart, _ := parseMondayField(vErr, "week_start_date", params.WeekStartDate)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if _, err = s.directory.Consultant(ctx, consultantID); err != nil {
		return
	}

	key := availability.FormatDate(weekStart)
	generation, cached := s.load(ctx, logger, consultantID, viewWeek, key, &result)
	if cached {
		s.hooks.Metrics.AvailabilityLookup(viewWeek, true)
		return
	}
	s.hooks.Metrics.AvailabilityLookup(viewWeek, false)

	if result, err = s.computeWeek(ctx, consultantID, weekStart); err != nil {
		return
	}
	s.store(ctx, logger, consultantID, viewWeek, key, generation, result)
	return
}

func (s *AvailabilityService) computeWeek(ctx context.Context, consultantID string, weekStart time.Time) (WeeklyAvailability, error) {
	schedule, err := s.calc.schedules.FindWeeklyScheduleByWeek(ctx, consultantID, weekStart)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return WeeklyAvailability{}, describe(ErrNotFound, "no schedule found for the week starting %s", availability.FormatDate(weekStart))
		}
		return WeeklyAvailability{}, err
	}

	weekEnd := availability.WeekEnd(weekStart)
	dates := DateRange{From: &weekStart, To: &weekEnd}
	overrides, err := s.calc.overrides.ListOverrides(ctx, consultantID, dates)
	if err != nil {
		return WeeklyAvailability{}, err
	}
	appointments, err := s.calc.activeAppointments(ctx, consultantID, dates)
	if err != nil {
		return WeeklyAvailability{}, err
	}

	customerIDs := make([]string, 0, len(appointments))
	for _, a := range appointments {
		customerIDs = append(customerIDs, a.CustomerID)
	}
	names, err := s.directory.DisplayNames(ctx, customerIDs)
	if err != nil {
		return WeeklyAvailability{}, err
	}

	input := availability.WeekInput{
		WeekStart: weekStart,
		Template:  templateOf(schedule),
		Overrides: make(map[string]availability.Override, len(overrides)),
		Bookings:  make(map[string][]availability.Booking),
		CustomerName: func(customerID string) (string, bool) {
			name, ok := names[customerID]
			return name, ok
		},
	}
	for _, o := range overrides {
		input.Overrides[availability.FormatDate(o.OverrideDate)] = overrideOf(o)
	}
	for _, a := range appointments {
		key := availability.FormatDate(a.AppointmentDate)
		input.Bookings[key] = append(input.Bookings[key], bookingOf(a))
	}

	week, err := availability.AggregateWeek(input)
	if err != nil {
		return WeeklyAvailability{}, err
	}
	return weeklyView(consultantID, week), nil
}

// load returns the cache generation to store under and whether dest was
// filled. A negative generation means the cache is unusable for this request.
func (s *AvailabilityService) load(ctx context.Context, logger *slog.Logger, consultantID, view, key string, dest any) (int64, bool) {
	generation, hit, err := s.hooks.Cache.Load(ctx, consultantID, view, key, dest)
	if err != nil {
		logger.WarnContext(ctx, "availability cache read failed", "view", view, "error", err)
		return -1, false
	}
	return generation, hit
}

func (s *AvailabilityService) store(ctx context.Context, logger *slog.Logger, consultantID, view, key string, generation int64, value any) {
	if generation < 0 {
		return
	}
	if err := s.hooks.Cache.Store(ctx, consultantID, view, key, generation, value); err != nil {
		logger.WarnContext(ctx, "availability cache write failed", "view", view, "error", err)
	}
}

// dayCalculator resolves single days from storage. It is shared with the
// appointment service, which must check bookings against uncached data.
type dayCalculator struct {
	schedules    WeeklyScheduleRepository
	overrides    OverrideRepository
	appointments AppointmentRepository
}

func (c dayCalculator) ready() error {
	switch {
	case c.schedules == nil:
		return fmt.Errorf("weekly schedule repository not configured")
	case c.overrides == nil:
		return fmt.Errorf("override repository not configured")
	case c.appointments == nil:
		return fmt.Errorf("appointment repository not configured")
	}
	return nil
}

func (c dayCalculator) day(ctx context.Context, consultantID string, date time.Time) (DayAvailability, error) {
	var override *availability.Override
	found, err := c.overrides.FindOverrideByDate(ctx, consultantID, date)
	switch {
	case err == nil:
		converted := overrideOf(found)
		override = &converted
	case !errors.Is(err, ErrNotFound):
		return DayAvailability{}, err
	}

	var template *availability.Template
	schedule, err := c.schedules.FindWeeklyScheduleByWeek(ctx, consultantID, availability.WeekStartOf(date))
	switch {
	case err == nil:
		template = templateOf(schedule)
	case !errors.Is(err, ErrNotFound):
		return DayAvailability{}, err
	}

	res, err := availability.ResolveDay(date, override, template)
	if err != nil {
		if errors.Is(err, availability.ErrNoSchedule) {
			return DayAvailability{}, describe(ErrNotFound, "no schedule found for %s", availability.FormatDate(date))
		}
		return DayAvailability{}, err
	}

	result := DayAvailability{
		Date:           date,
		ConsultantID:   consultantID,
		IsWorkingDay:   res.Working,
		Source:         string(res.Source),
		AvailableSlots: []TimeSlot{},
	}
	if !res.Working {
		return result, nil
	}

	appointments, err := c.activeAppointments(ctx, consultantID, DateRange{From: &date, To: &date})
	if err != nil {
		return DayAvailability{}, err
	}
	bookings := make([]availability.Booking, 0, len(appointments))
	for _, a := range appointments {
		bookings = append(bookings, bookingOf(a))
	}

	slots := availability.FilterBooked(availability.GenerateSlots(res.Window, res.SlotDuration), bookings)
	result.AvailableSlots = timeSlots(slots)
	result.TotalSlots = len(result.AvailableSlots)
	return result, nil
}

func (c dayCalculator) activeAppointments(ctx context.Context, consultantID string, dates DateRange) ([]Appointment, error) {
	return c.appointments.ListAppointments(ctx, AppointmentFilter{
		ConsultantID:    consultantID,
		Dates:           dates,
		ExcludeStatuses: []string{AppointmentCancelled},
	})
}

func bookingOf(a Appointment) availability.Booking {
	return availability.Booking{
		ID:         a.ID,
		CustomerID: a.CustomerID,
		Start:      a.Start,
		End:        a.End,
		Status:     a.Status,
	}
}

func timeSlots(slots []availability.Slot) []TimeSlot {
	out := make([]TimeSlot, 0, len(slots))
	for _, slot := range slots {
		out = append(out, TimeSlot{Start: slot.Start, End: slot.End})
	}
	return out
}

func weeklyView(consultantID string, week availability.Week) WeeklyAvailability {
	view := WeeklyAvailability{
		ConsultantID:  consultantID,
		WeekStartDate: week.Start,
		WeekEndDate:   week.End,
		Days:          make([]WeekDay, 0, len(week.Days)),
		Summary: AvailabilitySummary{
			TotalWorkingDays:    week.Summary.TotalWorkingDays,
			TotalAvailableSlots: week.Summary.TotalAvailableSlots,
			TotalBookedSlots:    week.Summary.TotalBookedSlots,
		},
	}
	for _, record := range week.Days {
		day := WeekDay{
			Date:               record.Date,
			DayOfWeek:          record.Weekday,
			IsWorkingDay:       record.IsWorkingDay,
			Source:             string(record.Source),
			AvailableSlots:     timeSlots(record.Available),
			TotalSlots:         record.TotalSlots(),
			BookedAppointments: make([]BookedAppointment, 0, len(record.Booked)),
		}
		if record.Window != nil {
			hours := &WorkingHours{Start: record.Window.Start, End: record.Window.End}
			if record.Window.Break != nil {
				breakStart, breakEnd := record.Window.Break.Start, record.Window.Break.End
				hours.BreakStart = &breakStart
				hours.BreakEnd = &breakEnd
			}
			day.WorkingHours = hours
		}
		for _, booked := range record.Booked {
			day.BookedAppointments = append(day.BookedAppointments, BookedAppointment{
				AppointmentID: booked.ID,
				Start:         booked.Start,
				End:           booked.End,
				Status:        booked.Status,
				CustomerName:  booked.CustomerName,
			})
		}
		view.Days = append(view.Days, day)
	}
	return view
}
