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

// AppointmentService keeps the booking ledger that availability is filtered against.
type AppointmentService struct {
	appointments AppointmentRepository
	calc         dayCalculator
	directory    UserDirectory
	hooks        Hooks
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewAppointmentService constructs an AppointmentService.
func NewAppointmentService(appointments AppointmentRepository, schedules WeeklyScheduleRepository, overrides OverrideRepository, directory UserDirectory, hooks Hooks, idGenerator func() string, now func() time.Time) *AppointmentService {
	return NewAppointmentServiceWithLogger(appointments, schedules, overrides, directory, hooks, idGenerator, now, nil)
}

// NewAppointmentServiceWithLogger constructs an AppointmentService with a specific logger.
func NewAppointmentServiceWithLogger(appointments AppointmentRepository, schedules WeeklyScheduleRepository, overrides OverrideRepository, directory UserDirectory, hooks Hooks, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AppointmentService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AppointmentService{
		appointments: appointments,
		calc:         dayCalculator{schedules: schedules, overrides: overrides, appointments: appointments},
		directory:    directory,
		hooks:        hooks.withDefaults(),
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *AppointmentService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AppointmentService", operation, attrs...)
}

func (s *AppointmentService) ready() error {
	if s == nil {
		return fmt.Errorf("AppointmentService is nil")
	}
	if err := s.calc.ready(); err != nil {
		return err
	}
	if s.directory == nil {
		return fmt.Errorf("user directory not configured")
	}
	return nil
}

// BookAppointment reserves one currently available slot. Customers book for
// themselves; staff and administrators book on behalf of CustomerID.
func (s *AppointmentService) BookAppointment(ctx context.Context, params BookAppointmentParams) (appointment Appointment, err error) {
	if err = s.ready(); err != nil {
		return
	}

	consultantID := strings.TrimSpace(params.ConsultantID)
	logger := s.loggerWith(ctx, "BookAppointment",
		"principal_id", params.Principal.UserID,
		"consultant_id", consultantID,
		"date", params.Date,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "appointment booking failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("appointment_id", appointment.ID).InfoContext(ctx, "appointment booked")
	}()

	vErr := &ValidationError{}
	customerID := strings.TrimSpace(params.CustomerID)
	switch {
	case params.Principal.Role == RoleCustomer && params.Principal.UserID != "":
		if customerID != "" && customerID != params.Principal.UserID {
			err = ErrUnauthorized
			return
		}
		customerID = params.Principal.UserID
	case params.Principal.IsStaff():
		if customerID == "" {
			vErr.add("customer_id", "customer_id is required")
		}
	default:
		err = ErrUnauthorized
		return
	}

	if consultantID == "" {
		vErr.add("consultant_id", "consultant_id is required")
	}
	date, _ := parseDateField(vErr, "date", params.Date)
	start, startOK := parseTimeField(vErr, "start_time", params.StartTime)
	end, endOK := parseTimeField(vErr, "end_time", params.EndTime)
	if startOK && endOK && start >= end {
		vErr.add("end_time", "end time must be after start time")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if _, err = s.directory.Consultant(ctx, consultantID); err != nil {
		return
	}
	if _, err = s.directory.DisplayName(ctx, customerID); err != nil {
		if errors.Is(err, ErrNotFound) {
			err = describe(ErrNotFound, "customer not found")
		}
		return
	}

	var day DayAvailability
	if day, err = s.calc.day(ctx, consultantID, date); err != nil {
		if errors.Is(err, ErrNotFound) {
			err = describe(ErrConflict, "consultant has no schedule on %s", availability.FormatDate(date))
		}
		return
	}
	if !containsSlot(day.AvailableSlots, start, end) {
		err = describe(ErrConflict, "%s-%s on %s is not an available slot", start, end, availability.FormatDate(date))
		return
	}

	now := s.now()
	candidate := Appointment{
		ID:              s.idGenerator(),
		ConsultantID:    consultantID,
		CustomerID:      customerID,
		AppointmentDate: date,
		Start:           start,
		End:             end,
		Status:          AppointmentPending,
		Notes:           optionalString(params.Notes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err = s.appointments.CreateAppointment(ctx, candidate); err != nil {
		if errors.Is(err, ErrConflict) {
			err = describe(ErrConflict, "%s-%s on %s was booked concurrently", start, end, availability.FormatDate(date))
		}
		return
	}

	s.hooks.invalidate(ctx, logger, consultantID)
	s.hooks.Metrics.Mutation("appointment", "book")
	appointment = candidate
	return
}

// CancelAppointment cancels a booking on behalf of its customer, its consultant or staff.
func (s *AppointmentService) CancelAppointment(ctx context.Context, principal Principal, appointmentID string) (appointment Appointment, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CancelAppointment",
		"principal_id", principal.UserID,
		"appointment_id", appointmentID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "appointment cancellation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "appointment cancelled")
	}()

	if appointment, err = s.load(ctx, appointmentID); err != nil {
		return
	}
	if !principal.IsStaff() && principal.UserID != appointment.CustomerID && principal.UserID != appointment.ConsultantID {
		err = ErrUnauthorized
		return
	}
	switch appointment.Status {
	case AppointmentCancelled:
		err = describe(ErrConflict, "appointment is already cancelled")
		return
	case AppointmentCompleted:
		err = describe(ErrConflict, "completed appointments cannot be cancelled")
		return
	}

	if appointment, err = s.transition(ctx, appointment, AppointmentCancelled); err != nil {
		return
	}
	s.hooks.invalidate(ctx, logger, appointment.ConsultantID)
	s.hooks.Metrics.Mutation("appointment", "cancel")
	return
}

// ConfirmAppointment moves a pending booking to confirmed.
func (s *AppointmentService) ConfirmAppointment(ctx context.Context, principal Principal, appointmentID string) (appointment Appointment, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "ConfirmAppointment",
		"principal_id", principal.UserID,
		"appointment_id", appointmentID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "appointment confirmation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "appointment confirmed")
	}()

	if appointment, err = s.load(ctx, appointmentID); err != nil {
		return
	}
	if !principal.CanManageConsultant(appointment.ConsultantID) {
		err = ErrUnauthorized
		return
	}
	if appointment.Status != AppointmentPending {
		err = describe(ErrConflict, "only pending appointments can be confirmed, status is %s", appointment.Status)
		return
	}

	if appointment, err = s.transition(ctx, appointment, AppointmentConfirmed); err != nil {
		return
	}
	s.hooks.invalidate(ctx, logger, appointment.ConsultantID)
	s.hooks.Metrics.Mutation("appointment", "confirm")
	return
}

// ListConsultantAppointments returns a consultant's appointments in every status.
func (s *AppointmentService) ListConsultantAppointments(ctx context.Context, params ListAppointmentsParams) ([]Appointment, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	consultantID := strings.TrimSpace(params.ConsultantID)
	if !params.Principal.CanManageConsultant(consultantID) {
		return nil, ErrUnauthorized
	}

	vErr := &ValidationError{}
	dates := parseDateRange(vErr, params.StartDate, params.EndDate)
	if vErr.HasErrors() {
		return nil, vErr
	}
	if _, err := s.directory.Consultant(ctx, consultantID); err != nil {
		return nil, err
	}
	return s.appointments.ListAppointments(ctx, AppointmentFilter{ConsultantID: consultantID, Dates: dates})
}

func (s *AppointmentService) transition(ctx context.Context, appointment Appointment, status string) (Appointment, error) {
	now := s.now()
	if err := s.appointments.UpdateAppointmentStatus(ctx, appointment.ID, status, now); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Appointment{}, describe(ErrNotFound, "appointment not found")
		}
		return Appointment{}, err
	}
	appointment.Status = status
	appointment.UpdatedAt = now
	return appointment, nil
}

func (s *AppointmentService) load(ctx context.Context, appointmentID string) (Appointment, error) {
	if strings.TrimSpace(appointmentID) == "" {
		return Appointment{}, describe(ErrNotFound, "appointment not found")
	}
	appointment, err := s.appointments.GetAppointment(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Appointment{}, describe(ErrNotFound, "appointment not found")
		}
		return Appointment{}, err
	}
	return appointment, nil
}

func containsSlot(slots []TimeSlot, start, end availability.TimeOfDay) bool {
	for _, slot := range slots {
		if slot.Start == start && slot.End == end {
			return true
		}
	}
	return false
}
