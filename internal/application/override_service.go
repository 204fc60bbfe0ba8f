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

// OverrideService manages per-date overrides of consultants' weekly schedules.
type OverrideService struct {
	overrides   OverrideRepository
	directory   UserDirectory
	hooks       Hooks
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewOverrideService constructs an OverrideService.
func NewOverrideService(overrides OverrideRepository, directory UserDirectory, hooks Hooks, idGenerator func() string, now func() time.Time) *OverrideService {
	return NewOverrideServiceWithLogger(overrides, directory, hooks, idGenerator, now, nil)
}

// NewOverrideServiceWithLogger constructs an OverrideService with a specific logger.
func NewOverrideServiceWithLogger(overrides OverrideRepository, directory UserDirectory, hooks Hooks, idGenerator func() string, now func() time.Time, logger *slog.Logger) *OverrideService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &OverrideService{
		overrides:   overrides,
		directory:   directory,
		hooks:       hooks.withDefaults(),
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *OverrideService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "OverrideService", operation, attrs...)
}

func (s *OverrideService) ready() error {
	if s == nil {
		return fmt.Errorf("OverrideService is nil")
	}
	if s.overrides == nil {
		return fmt.Errorf("override repository not configured")
	}
	if s.directory == nil {
		return fmt.Errorf("user directory not configured")
	}
	return nil
}

// CreateOverride validates and persists a new override. Only staff and administrators may call it.
func (s *OverrideService) CreateOverride(ctx context.Context, params CreateOverrideParams) (override Override, err error) {
	if err = s.ready(); err != nil {
		return
	}

	input := params.Input
	consultantID := strings.TrimSpace(input.ConsultantID)
	logger := s.loggerWith(ctx, "CreateOverride",
		"principal_id", params.Principal.UserID,
		"consultant_id", consultantID,
		"override_date", input.OverrideDate,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "override creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("override_id", override.ID).InfoContext(ctx, "override created")
	}()

	if !params.Principal.IsStaff() {
		err = ErrUnauthorized
		return
	}

	vErr := &ValidationError{}
	if consultantID == "" {
		vErr.add("consultant_id", "consultant_id is required")
	}
	date, _ := parseDateField(vErr, "override_date", input.OverrideDate)
	candidate := Override{
		ConsultantID: consultantID,
		OverrideDate: date,
		IsAvailable:  input.IsAvailable,
		Start:        parseOptionalTime(vErr, "start_time", input.StartTime),
		End:          parseOptionalTime(vErr, "end_time", input.EndTime),
		BreakStart:   parseOptionalTime(vErr, "break_start", input.BreakStart),
		BreakEnd:     parseOptionalTime(vErr, "break_end", input.BreakEnd),
		Reason:       strings.TrimSpace(input.Reason),
	}
	validateOverride(vErr, &candidate)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if _, err = s.directory.Consultant(ctx, consultantID); err != nil {
		return
	}

	now := s.now()
	candidate.ID = s.idGenerator()
	candidate.CreatedBy = snapshotPrincipal(ctx, s.directory, params.Principal)
	candidate.CreatedAt = now
	candidate.UpdatedAt = now

	if err = s.overrides.CreateOverride(ctx, candidate); err != nil {
		err = mapOverrideWriteError(err, candidate)
		return
	}

	s.hooks.invalidate(ctx, logger, consultantID)
	s.hooks.Metrics.Mutation("override", "create")
	override = candidate
	return
}

// UpdateOverride applies a partial update to an override.
func (s *OverrideService) UpdateOverride(ctx context.Context, params UpdateOverrideParams) (override Override, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "UpdateOverride",
		"principal_id", params.Principal.UserID,
		"override_id", params.OverrideID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "override update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "override updated")
	}()

	if !params.Principal.IsStaff() {
		err = ErrUnauthorized
		return
	}

	var existing Override
	if existing, err = s.load(ctx, params.OverrideID); err != nil {
		return
	}

	patch := params.Patch
	updated := existing
	vErr := &ValidationError{}
	if patch.OverrideDate != nil {
		if date, ok := parseDateField(vErr, "override_date", *patch.OverrideDate); ok {
			updated.OverrideDate = date
		}
	}
	if patch.IsAvailable != nil {
		updated.IsAvailable = *patch.IsAvailable
	}
	if patch.StartTime != nil {
		updated.Start = parseOptionalTime(vErr, "start_time", patch.StartTime)
	}
	if patch.EndTime != nil {
		updated.End = parseOptionalTime(vErr, "end_time", patch.EndTime)
	}
	if patch.BreakStart != nil {
		updated.BreakStart = parseOptionalTime(vErr, "break_start", patch.BreakStart)
	}
	if patch.BreakEnd != nil {
		updated.BreakEnd = parseOptionalTime(vErr, "break_end", patch.BreakEnd)
	}
	if patch.Reason != nil {
		updated.Reason = strings.TrimSpace(*patch.Reason)
	}
	validateOverride(vErr, &updated)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	updated.UpdatedAt = s.now()

	if err = s.overrides.UpdateOverride(ctx, updated); err != nil {
		err = mapOverrideWriteError(err, updated)
		return
	}

	s.hooks.invalidate(ctx, logger, existing.ConsultantID)
	s.hooks.Metrics.Mutation("override", "update")
	override = updated
	return
}

// GetOverride returns an override to any authenticated principal.
func (s *OverrideService) GetOverride(ctx context.Context, principal Principal, overrideID string) (Override, error) {
	if err := s.ready(); err != nil {
		return Override{}, err
	}
	if principal.UserID == "" {
		return Override{}, ErrUnauthorized
	}
	return s.load(ctx, overrideID)
}

// ListConsultantOverrides returns a consultant's overrides ordered by date.
func (s *OverrideService) ListConsultantOverrides(ctx context.Context, params ListOverridesParams) ([]Override, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if params.Principal.UserID == "" {
		return nil, ErrUnauthorized
	}

	vErr := &ValidationError{}
	dates := parseDateRange(vErr, params.StartDate, params.EndDate)
	if vErr.HasErrors() {
		return nil, vErr
	}
	consultantID := strings.TrimSpace(params.ConsultantID)
	if _, err := s.directory.Consultant(ctx, consultantID); err != nil {
		return nil, err
	}
	return s.overrides.ListOverrides(ctx, consultantID, dates)
}

// DeleteOverride removes an override permanently.
func (s *OverrideService) DeleteOverride(ctx context.Context, principal Principal, overrideID string) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "DeleteOverride",
		"principal_id", principal.UserID,
		"override_id", overrideID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "override deletion failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "override deleted")
	}()

	if !principal.IsStaff() {
		err = ErrUnauthorized
		return
	}

	var existing Override
	if existing, err = s.load(ctx, overrideID); err != nil {
		return
	}
	if err = s.overrides.DeleteOverride(ctx, overrideID); err != nil {
		if errors.Is(err, ErrNotFound) {
			err = describe(ErrNotFound, "override not found")
		}
		return
	}

	s.hooks.invalidate(ctx, logger, existing.ConsultantID)
	s.hooks.Metrics.Mutation("override", "delete")
	return
}

func (s *OverrideService) load(ctx context.Context, overrideID string) (Override, error) {
	if strings.TrimSpace(overrideID) == "" {
		return Override{}, describe(ErrNotFound, "override not found")
	}
	override, err := s.overrides.GetOverride(ctx, overrideID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Override{}, describe(ErrNotFound, "override not found")
		}
		return Override{}, err
	}
	return override, nil
}

// validateOverride applies the working day rules to an override. Unavailable
// overrides drop their times.
func validateOverride(vErr *ValidationError, o *Override) {
	if o.Reason == "" {
		vErr.add("reason", "reason is required")
	}
	if !o.IsAvailable {
		o.Start, o.End, o.BreakStart, o.BreakEnd = nil, nil, nil, nil
		return
	}
	if o.Start == nil {
		vErr.add("start_time", "start_time is required when is_available is true")
	}
	if o.End == nil {
		vErr.add("end_time", "end_time is required when is_available is true")
	}
	if o.Start != nil && o.End != nil {
		validateWindow(vErr, "", *o.Start, *o.End, o.BreakStart, o.BreakEnd)
	}
}

func mapOverrideWriteError(err error, override Override) error {
	switch {
	case errors.Is(err, ErrAlreadyExists):
		return describe(ErrConflict, "an override already exists for this consultant on %s",
			availability.FormatDate(override.OverrideDate))
	case errors.Is(err, ErrNotFound):
		return describe(ErrNotFound, "override not found")
	}
	return err
}

// overrideOf converts an override into the engine's representation.
func overrideOf(o Override) availability.Override {
	return availability.Override{
		IsAvailable: o.IsAvailable,
		Start:       o.Start,
		End:         o.End,
		BreakStart:  o.BreakStart,
		BreakEnd:    o.BreakEnd,
	}
}
