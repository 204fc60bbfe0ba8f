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

// WeeklyScheduleService manages consultants' weekly availability templates.
type WeeklyScheduleService struct {
	schedules   WeeklyScheduleRepository
	directory   UserDirectory
	hooks       Hooks
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewWeeklyScheduleService constructs a WeeklyScheduleService.
func NewWeeklyScheduleService(schedules WeeklyScheduleRepository, directory UserDirectory, hooks Hooks, idGenerator func() string, now func() time.Time) *WeeklyScheduleService {
	return NewWeeklyScheduleServiceWithLogger(schedules, directory, hooks, idGenerator, now, nil)
}

// NewWeeklyScheduleServiceWithLogger constructs a WeeklyScheduleService with a specific logger.
func NewWeeklyScheduleServiceWithLogger(schedules WeeklyScheduleRepository, directory UserDirectory, hooks Hooks, idGenerator func() string, now func() time.Time, logger *slog.Logger) *WeeklyScheduleService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &WeeklyScheduleService{
		schedules:   schedules,
		directory:   directory,
		hooks:       hooks.withDefaults(),
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *WeeklyScheduleService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "WeeklyScheduleService", operation, attrs...)
}

func (s *WeeklyScheduleService) ready() error {
	if s == nil {
		return fmt.Errorf("WeeklyScheduleService is nil")
	}
	if s.schedules == nil {
		return fmt.Errorf("weekly schedule repository not configured")
	}
	if s.directory == nil {
		return fmt.Errorf("user directory not configured")
	}
	return nil
}

// CreateSchedule validates and persists a new weekly schedule.
func (s *WeeklyScheduleService) CreateSchedule(ctx context.Context, params CreateWeeklyScheduleParams) (schedule WeeklySchedule, err error) {
	if err = s.ready(); err != nil {
		return
	}

	input := params.Input
	consultantID := strings.TrimSpace(input.ConsultantID)
	logger := s.loggerWith(ctx, "CreateSchedule",
		"principal_id", params.Principal.UserID,
		"consultant_id", consultantID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "weekly schedule creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("schedule_id", schedule.ID).InfoContext(ctx, "weekly schedule created")
	}()

	vErr := &ValidationError{}
	if consultantID == "" {
		vErr.add("consultant_id", "consultant_id is required")
	} else if !params.Principal.CanManageConsultant(consultantID) {
		err = ErrUnauthorized
		return
	}

	weekStart, _ := parseMondayField(vErr, "week_start_date", input.WeekStartDate)
	duration := availability.DefaultSlotDuration
	if input.DefaultSlotDuration != nil {
		duration = *input.DefaultSlotDuration
	}
	validateSlotDuration(vErr, duration)
	days := mergeWorkingDays(vErr, nil, input.WorkingDays)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if _, err = s.directory.Consultant(ctx, consultantID); err != nil {
		return
	}

	now := s.now()
	candidate := WeeklySchedule{
		ID:                  s.idGenerator(),
		ConsultantID:        consultantID,
		WeekStartDate:       weekStart,
		WeekEndDate:         availability.WeekEnd(weekStart),
		WorkingDays:         days,
		DefaultSlotDuration: duration,
		Notes:               optionalString(input.Notes),
		CreatedBy:           snapshotPrincipal(ctx, s.directory, params.Principal),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err = s.schedules.CreateWeeklySchedule(ctx, candidate); err != nil {
		err = s.mapWriteError(err, candidate)
		return
	}

	s.hooks.invalidate(ctx, logger, consultantID)
	s.hooks.Metrics.Mutation("weekly_schedule", "create")
	schedule = candidate
	return
}

// UpdateSchedule applies a partial update. Working days are merged per weekday.
func (s *WeeklyScheduleService) UpdateSchedule(ctx context.Context, params UpdateWeeklyScheduleParams) (schedule WeeklySchedule, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "UpdateSchedule",
		"principal_id", params.Principal.UserID,
		"schedule_id", params.ScheduleID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "weekly schedule update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "weekly schedule updated")
	}()

	var existing WeeklySchedule
	if existing, err = s.load(ctx, params.ScheduleID); err != nil {
		return
	}
	if !params.Principal.CanManageConsultant(existing.ConsultantID) {
		err = ErrUnauthorized
		return
	}

	patch := params.Patch
	updated := existing
	vErr := &ValidationError{}
	if patch.WeekStartDate != nil {
		if weekStart, ok := parseMondayField(vErr, "week_start_date", *patch.WeekStartDate); ok {
			updated.WeekStartDate = weekStart
			updated.WeekEndDate = availability.WeekEnd(weekStart)
		}
	}
	if patch.DefaultSlotDuration != nil {
		validateSlotDuration(vErr, *patch.DefaultSlotDuration)
		updated.DefaultSlotDuration = *patch.DefaultSlotDuration
	}
	if patch.WorkingDays != nil {
		updated.WorkingDays = mergeWorkingDays(vErr, existing.WorkingDays, patch.WorkingDays)
	}
	if patch.Notes != nil {
		updated.Notes = optionalString(patch.Notes)
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	updated.UpdatedAt = s.now()

	if err = s.schedules.UpdateWeeklySchedule(ctx, updated); err != nil {
		err = s.mapWriteError(err, updated)
		return
	}

	s.hooks.invalidate(ctx, logger, existing.ConsultantID)
	s.hooks.Metrics.Mutation("weekly_schedule", "update")
	schedule = updated
	return
}

// GetSchedule returns a schedule the principal is allowed to see.
func (s *WeeklyScheduleService) GetSchedule(ctx context.Context, principal Principal, scheduleID string) (WeeklySchedule, error) {
	if err := s.ready(); err != nil {
		return WeeklySchedule{}, err
	}
	schedule, err := s.load(ctx, scheduleID)
	if err != nil {
		return WeeklySchedule{}, err
	}
	if !principal.CanManageConsultant(schedule.ConsultantID) {
		return WeeklySchedule{}, ErrUnauthorized
	}
	return schedule, nil
}

// ListConsultantSchedules returns one consultant's schedules, optionally bounded by week start.
func (s *WeeklyScheduleService) ListConsultantSchedules(ctx context.Context, params ListWeeklySchedulesParams) ([]WeeklySchedule, error) {
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
	return s.schedules.ListWeeklySchedules(ctx, WeeklyScheduleFilter{ConsultantID: consultantID, WeekStart: dates})
}

// ListSchedules returns schedules across consultants for staff and administrators.
func (s *WeeklyScheduleService) ListSchedules(ctx context.Context, params ListWeeklySchedulesParams) ([]WeeklySchedule, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if !params.Principal.IsStaff() {
		return nil, ErrUnauthorized
	}

	vErr := &ValidationError{}
	dates := parseDateRange(vErr, params.StartDate, params.EndDate)
	if vErr.HasErrors() {
		return nil, vErr
	}
	return s.schedules.ListWeeklySchedules(ctx, WeeklyScheduleFilter{
		ConsultantID: strings.TrimSpace(params.ConsultantID),
		WeekStart:    dates,
	})
}

// DeleteSchedule removes a schedule unless active appointments fall inside its week.
func (s *WeeklyScheduleService) DeleteSchedule(ctx context.Context, principal Principal, scheduleID string) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "DeleteSchedule",
		"principal_id", principal.UserID,
		"schedule_id", scheduleID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "weekly schedule deletion failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "weekly schedule deleted")
	}()

	var existing WeeklySchedule
	if existing, err = s.load(ctx, scheduleID); err != nil {
		return
	}
	if !principal.CanManageConsultant(existing.ConsultantID) {
		err = ErrUnauthorized
		return
	}

	if err = s.schedules.DeleteWeeklySchedule(ctx, scheduleID); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			err = describe(ErrNotFound, "weekly schedule not found")
		case errors.Is(err, ErrConflict):
			err = describe(ErrConflict, "cannot delete schedule: active appointments exist between %s and %s",
				availability.FormatDate(existing.WeekStartDate), availability.FormatDate(existing.WeekEndDate))
		}
		return
	}

	s.hooks.invalidate(ctx, logger, existing.ConsultantID)
	s.hooks.Metrics.Mutation("weekly_schedule", "delete")
	return
}

// CopySchedule clones a schedule's working days and slot duration into another week.
func (s *WeeklyScheduleService) CopySchedule(ctx context.Context, params CopyWeeklyScheduleParams) (schedule WeeklySchedule, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CopySchedule",
		"principal_id", params.Principal.UserID,
		"source_schedule_id", params.SourceScheduleID,
		"target_week_start_date", params.TargetWeekStartDate,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "weekly schedule copy failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("schedule_id", schedule.ID).InfoContext(ctx, "weekly schedule copied")
	}()

	vErr := &ValidationError{}
	if strings.TrimSpace(params.SourceScheduleID) == "" {
		vErr.add("source_schedule_id", "source_schedule_id is required")
	}
	target, _ := parseMondayField(vErr, "target_week_start_date", params.TargetWeekStartDate)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var source WeeklySchedule
	if source, err = s.load(ctx, params.SourceScheduleID); err != nil {
		return
	}
	if !params.Principal.CanManageConsultant(source.ConsultantID) {
		err = ErrUnauthorized
		return
	}

	days := make(map[string]WorkingDay, len(source.WorkingDays))
	for weekday, day := range source.WorkingDays {
		days[weekday] = cloneWorkingDay(day)
	}
	notes := "Copied from week " + availability.FormatDate(source.WeekStartDate)
	now := s.now()
	candidate := WeeklySchedule{
		ID:                  s.idGenerator(),
		ConsultantID:        source.ConsultantID,
		WeekStartDate:       target,
		WeekEndDate:         availability.WeekEnd(target),
		WorkingDays:         days,
		DefaultSlotDuration: source.DefaultSlotDuration,
		Notes:               &notes,
		CreatedBy:           snapshotPrincipal(ctx, s.directory, params.Principal),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err = s.schedules.CreateWeeklySchedule(ctx, candidate); err != nil {
		err = s.mapWriteError(err, candidate)
		return
	}

	s.hooks.invalidate(ctx, logger, source.ConsultantID)
	s.hooks.Metrics.Mutation("weekly_schedule", "copy")
	schedule = candidate
	return
}

func (s *WeeklyScheduleService) load(ctx context.Context, scheduleID string) (WeeklySchedule, error) {
	if strings.TrimSpace(scheduleID) == "" {
		return WeeklySchedule{}, describe(ErrNotFound, "weekly schedule not found")
	}
	schedule, err := s.schedules.GetWeeklySchedule(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return WeeklySchedule{}, describe(ErrNotFound, "weekly schedule not found")
		}
		return WeeklySchedule{}, err
	}
	return schedule, nil
}

func (s *WeeklyScheduleService) mapWriteError(err error, schedule WeeklySchedule) error {
	switch {
	case errors.Is(err, ErrAlreadyExists):
		return describe(ErrConflict, "a weekly schedule already exists for this consultant in the week starting %s",
			availability.FormatDate(schedule.WeekStartDate))
	case errors.Is(err, ErrNotFound):
		return describe(ErrNotFound, "weekly schedule not found")
	}
	return err
}

// snapshotPrincipal captures the acting principal, falling back to the directory for the name.
func snapshotPrincipal(ctx context.Context, directory UserDirectory, principal Principal) CreatedBy {
	name := principal.Name
	if name == "" && directory != nil {
		if resolved, err := directory.DisplayName(ctx, principal.UserID); err == nil {
			name = resolved
		}
	}
	return CreatedBy{UserID: principal.UserID, Role: principal.Role, Name: name}
}

func cloneWorkingDay(day WorkingDay) WorkingDay {
	clone := day
	if day.BreakStart != nil {
		v := *day.BreakStart
		clone.BreakStart = &v
	}
	if day.BreakEnd != nil {
		v := *day.BreakEnd
		clone.BreakEnd = &v
	}
	return clone
}

// templateOf converts a schedule into the engine's template.
func templateOf(schedule WeeklySchedule) *availability.Template {
	days := make(map[string]availability.WorkingDay, len(schedule.WorkingDays))
	for weekday, day := range schedule.WorkingDays {
		days[weekday] = availability.WorkingDay{
			Start:       day.Start,
			End:         day.End,
			BreakStart:  day.BreakStart,
			BreakEnd:    day.BreakEnd,
			IsAvailable: day.IsAvailable,
		}
	}
	return &availability.Template{WorkingDays: days, SlotDuration: schedule.DefaultSlotDuration}
}
