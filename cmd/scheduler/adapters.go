package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/gencare-scheduler/internal/application"
	"github.com/example/gencare-scheduler/internal/availability"
	"github.com/example/gencare-scheduler/internal/persistence"
)

// translateError maps persistence sentinels onto the application taxonomy.
// The original error stays in the chain for logging.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound), errors.Is(err, persistence.ErrForeignKeyViolation):
		return fmt.Errorf("%w: %v", application.ErrNotFound, err)
	case errors.Is(err, persistence.ErrDuplicate):
		return fmt.Errorf("%w: %v", application.ErrAlreadyExists, err)
	case errors.Is(err, persistence.ErrInUse), errors.Is(err, persistence.ErrConstraintViolation):
		return fmt.Errorf("%w: %v", application.ErrConflict, err)
	}
	return err
}

// userRepositoryAdapter serves the user service, the auth credential store and the directory.
type userRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newUserRepositoryAdapter(repo persistence.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) CreateUser(ctx context.Context, creds application.UserCredentials) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(creds)); err != nil {
		return application.User{}, translateError(err)
	}
	return a.GetUser(ctx, creds.User.ID)
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, translateError(err)
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) GetUsers(ctx context.Context, ids []string) ([]application.User, error) {
	models, err := a.repo.GetUsers(ctx, ids)
	if err != nil {
		return nil, translateError(err)
	}
	return toApplicationUsers(models), nil
}

func (a *userRepositoryAdapter) GetUserByEmail(ctx context.Context, email string) (application.User, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.User{}, translateError(err)
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) GetUserCredentials(ctx context.Context, id string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.UserCredentials{}, translateError(err)
	}
	return toApplicationCredentials(stored), nil
}

func (a *userRepositoryAdapter) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, translateError(err)
	}
	return toApplicationCredentials(stored), nil
}

func (a *userRepositoryAdapter) UpdateUser(ctx context.Context, creds application.UserCredentials) (application.User, error) {
	if err := a.repo.UpdateUser(ctx, toPersistenceUser(creds)); err != nil {
		return application.User{}, translateError(err)
	}
	return a.GetUser(ctx, creds.User.ID)
}

func (a *userRepositoryAdapter) DeleteUser(ctx context.Context, id string) error {
	return translateError(a.repo.DeleteUser(ctx, id))
}

func (a *userRepositoryAdapter) ListUsers(ctx context.Context) ([]application.User, error) {
	models, err := a.repo.ListUsers(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	return toApplicationUsers(models), nil
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, translateError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, translateError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) UpdateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.UpdateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, translateError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, translateError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return translateError(a.repo.DeleteExpiredSessions(ctx, reference))
}

type weeklyScheduleRepositoryAdapter struct {
	repo persistence.WeeklyScheduleRepository
}

func newWeeklyScheduleRepositoryAdapter(repo persistence.WeeklyScheduleRepository) *weeklyScheduleRepositoryAdapter {
	return &weeklyScheduleRepositoryAdapter{repo: repo}
}

func (a *weeklyScheduleRepositoryAdapter) CreateWeeklySchedule(ctx context.Context, schedule application.WeeklySchedule) error {
	return translateError(a.repo.CreateWeeklySchedule(ctx, toPersistenceWeeklySchedule(schedule)))
}

func (a *weeklyScheduleRepositoryAdapter) UpdateWeeklySchedule(ctx context.Context, schedule application.WeeklySchedule) error {
	return translateError(a.repo.UpdateWeeklySchedule(ctx, toPersistenceWeeklySchedule(schedule)))
}

func (a *weeklyScheduleRepositoryAdapter) GetWeeklySchedule(ctx context.Context, id string) (application.WeeklySchedule, error) {
	stored, err := a.repo.GetWeeklySchedule(ctx, id)
	if err != nil {
		return application.WeeklySchedule{}, translateError(err)
	}
	return toApplicationWeeklySchedule(stored), nil
}

func (a *weeklyScheduleRepositoryAdapter) FindWeeklyScheduleByWeek(ctx context.Context, consultantID string, weekStart time.Time) (application.WeeklySchedule, error) {
	stored, err := a.repo.FindWeeklyScheduleByWeek(ctx, consultantID, weekStart)
	if err != nil {
		return application.WeeklySchedule{}, translateError(err)
	}
	return toApplicationWeeklySchedule(stored), nil
}

func (a *weeklyScheduleRepositoryAdapter) ListWeeklySchedules(ctx context.Context, filter application.WeeklyScheduleFilter) ([]application.WeeklySchedule, error) {
	models, err := a.repo.ListWeeklySchedules(ctx, persistence.WeeklyScheduleFilter{
		ConsultantID: filter.ConsultantID,
		WeekStart:    toPersistenceRange(filter.WeekStart),
	})
	if err != nil {
		return nil, translateError(err)
	}
	schedules := make([]application.WeeklySchedule, 0, len(models))
	for _, model := range models {
		schedules = append(schedules, toApplicationWeeklySchedule(model))
	}
	return schedules, nil
}

func (a *weeklyScheduleRepositoryAdapter) DeleteWeeklySchedule(ctx context.Context, id string) error {
	return translateError(a.repo.DeleteWeeklySchedule(ctx, id))
}

type overrideRepositoryAdapter struct {
	repo persistence.OverrideRepository
}

func newOverrideRepositoryAdapter(repo persistence.OverrideRepository) *overrideRepositoryAdapter {
	return &overrideRepositoryAdapter{repo: repo}
}

func (a *overrideRepositoryAdapter) CreateOverride(ctx context.Context, override application.Override) error {
	return translateError(a.repo.CreateOverride(ctx, toPersistenceOverride(override)))
}

func (a *overrideRepositoryAdapter) UpdateOverride(ctx context.Context, override application.Override) error {
	return translateError(a.repo.UpdateOverride(ctx, toPersistenceOverride(override)))
}

func (a *overrideRepositoryAdapter) GetOverride(ctx context.Context, id string) (application.Override, error) {
	stored, err := a.repo.GetOverride(ctx, id)
	if err != nil {
		return application.Override{}, translateError(err)
	}
	return toApplicationOverride(stored), nil
}

func (a *overrideRepositoryAdapter) FindOverrideByDate(ctx context.Context, consultantID string, date time.Time) (application.Override, error) {
	stored, err := a.repo.FindOverrideByDate(ctx, consultantID, date)
	if err != nil {
		return application.Override{}, translateError(err)
	}
	return toApplicationOverride(stored), nil
}

func (a *overrideRepositoryAdapter) ListOverrides(ctx context.Context, consultantID string, dates application.DateRange) ([]application.Override, error) {
	models, err := a.repo.ListOverrides(ctx, consultantID, toPersistenceRange(dates))
	if err != nil {
		return nil, translateError(err)
	}
	overrides := make([]application.Override, 0, len(models))
	for _, model := range models {
		overrides = append(overrides, toApplicationOverride(model))
	}
	return overrides, nil
}

func (a *overrideRepositoryAdapter) DeleteOverride(ctx context.Context, id string) error {
	return translateError(a.repo.DeleteOverride(ctx, id))
}

type appointmentRepositoryAdapter struct {
	repo persistence.AppointmentRepository
}

func newAppointmentRepositoryAdapter(repo persistence.AppointmentRepository) *appointmentRepositoryAdapter {
	return &appointmentRepositoryAdapter{repo: repo}
}

func (a *appointmentRepositoryAdapter) CreateAppointment(ctx context.Context, appointment application.Appointment) error {
	return translateError(a.repo.CreateAppointment(ctx, toPersistenceAppointment(appointment)))
}

func (a *appointmentRepositoryAdapter) UpdateAppointmentStatus(ctx context.Context, id, status string, updatedAt time.Time) error {
	return translateError(a.repo.UpdateAppointmentStatus(ctx, id, status, updatedAt))
}

func (a *appointmentRepositoryAdapter) GetAppointment(ctx context.Context, id string) (application.Appointment, error) {
	stored, err := a.repo.GetAppointment(ctx, id)
	if err != nil {
		return application.Appointment{}, translateError(err)
	}
	return toApplicationAppointment(stored), nil
}

func (a *appointmentRepositoryAdapter) ListAppointments(ctx context.Context, filter application.AppointmentFilter) ([]application.Appointment, error) {
	models, err := a.repo.ListAppointments(ctx, persistence.AppointmentFilter{
		ConsultantID:    filter.ConsultantID,
		Dates:           toPersistenceRange(filter.Dates),
		ExcludeStatuses: append([]string(nil), filter.ExcludeStatuses...),
	})
	if err != nil {
		return nil, translateError(err)
	}
	appointments := make([]application.Appointment, 0, len(models))
	for _, model := range models {
		appointments = append(appointments, toApplicationAppointment(model))
	}
	return appointments, nil
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:          model.ID,
		Email:       model.Email,
		DisplayName: model.DisplayName,
		Role:        application.Role(model.Role),
		Disabled:    model.Disabled,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toApplicationUsers(models []persistence.User) []application.User {
	users := make([]application.User, 0, len(models))
	for _, model := range models {
		users = append(users, toApplicationUser(model))
	}
	return users
}

func toApplicationCredentials(model persistence.User) application.UserCredentials {
	return application.UserCredentials{
		User:         toApplicationUser(model),
		PasswordHash: model.PasswordHash,
		Disabled:     model.Disabled,
	}
}

func toPersistenceUser(creds application.UserCredentials) persistence.User {
	user := creds.User
	return persistence.User{
		ID:           user.ID,
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		Role:         string(user.Role),
		PasswordHash: creds.PasswordHash,
		Disabled:     creds.Disabled || user.Disabled,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:          model.ID,
		UserID:      model.UserID,
		Token:       model.Token,
		Fingerprint: model.Fingerprint,
		ExpiresAt:   model.ExpiresAt,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
		RevokedAt:   cloneTime(model.RevokedAt),
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:          session.ID,
		UserID:      session.UserID,
		Token:       session.Token,
		Fingerprint: session.Fingerprint,
		ExpiresAt:   session.ExpiresAt,
		CreatedAt:   session.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
		RevokedAt:   cloneTime(session.RevokedAt),
	}
}

func toApplicationWeeklySchedule(model persistence.WeeklySchedule) application.WeeklySchedule {
	days := make(map[string]application.WorkingDay, len(model.WorkingDays))
	for _, day := range model.WorkingDays {
		days[day.Weekday] = application.WorkingDay{
			Start:       availability.TimeOfDay(day.StartMinute),
			End:         availability.TimeOfDay(day.EndMinute),
			BreakStart:  toTimeOfDay(day.BreakStartMinute),
			BreakEnd:    toTimeOfDay(day.BreakEndMinute),
			IsAvailable: day.IsAvailable,
		}
	}
	return application.WeeklySchedule{
		ID:                  model.ID,
		ConsultantID:        model.ConsultantID,
		WeekStartDate:       model.WeekStartDate,
		WeekEndDate:         model.WeekEndDate,
		WorkingDays:         days,
		DefaultSlotDuration: model.DefaultSlotDuration,
		Notes:               cloneString(model.Notes),
		CreatedBy:           toCreatedBy(model.CreatedBy),
		CreatedAt:           model.CreatedAt,
		UpdatedAt:           model.UpdatedAt,
	}
}

func toPersistenceWeeklySchedule(schedule application.WeeklySchedule) persistence.WeeklySchedule {
	days := make([]persistence.WorkingDay, 0, len(schedule.WorkingDays))
	for _, name := range availability.Weekdays {
		day, ok := schedule.WorkingDays[name]
		if !ok {
			continue
		}
		days = append(days, persistence.WorkingDay{
			Weekday:          name,
			StartMinute:      int(day.Start),
			EndMinute:        int(day.End),
			BreakStartMinute: toMinutes(day.BreakStart),
			BreakEndMinute:   toMinutes(day.BreakEnd),
			IsAvailable:      day.IsAvailable,
		})
	}
	return persistence.WeeklySchedule{
		ID:                  schedule.ID,
		ConsultantID:        schedule.ConsultantID,
		WeekStartDate:       schedule.WeekStartDate,
		WeekEndDate:         schedule.WeekEndDate,
		DefaultSlotDuration: schedule.DefaultSlotDuration,
		Notes:               cloneString(schedule.Notes),
		WorkingDays:         days,
		CreatedBy:           toActor(schedule.CreatedBy),
		CreatedAt:           schedule.CreatedAt,
		UpdatedAt:           schedule.UpdatedAt,
	}
}

func toApplicationOverride(model persistence.ScheduleOverride) application.Override {
	return application.Override{
		ID:           model.ID,
		ConsultantID: model.ConsultantID,
		OverrideDate: model.OverrideDate,
		IsAvailable:  model.IsAvailable,
		Start:        toTimeOfDay(model.StartMinute),
		End:          toTimeOfDay(model.EndMinute),
		BreakStart:   toTimeOfDay(model.BreakStartMinute),
		BreakEnd:     toTimeOfDay(model.BreakEndMinute),
		Reason:       model.Reason,
		CreatedBy:    toCreatedBy(model.CreatedBy),
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

func toPersistenceOverride(override application.Override) persistence.ScheduleOverride {
	return persistence.ScheduleOverride{
		ID:               override.ID,
		ConsultantID:     override.ConsultantID,
		OverrideDate:     override.OverrideDate,
		IsAvailable:      override.IsAvailable,
		StartMinute:      toMinutes(override.Start),
		EndMinute:        toMinutes(override.End),
		BreakStartMinute: toMinutes(override.BreakStart),
		BreakEndMinute:   toMinutes(override.BreakEnd),
		Reason:           override.Reason,
		CreatedBy:        toActor(override.CreatedBy),
		CreatedAt:        override.CreatedAt,
		UpdatedAt:        override.UpdatedAt,
	}
}

func toApplicationAppointment(model persistence.Appointment) application.Appointment {
	return application.Appointment{
		ID:              model.ID,
		ConsultantID:    model.ConsultantID,
		CustomerID:      model.CustomerID,
		AppointmentDate: model.AppointmentDate,
		Start:           availability.TimeOfDay(model.StartMinute),
		End:             availability.TimeOfDay(model.EndMinute),
		Status:          model.Status,
		Notes:           cloneString(model.Notes),
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

func toPersistenceAppointment(appointment application.Appointment) persistence.Appointment {
	return persistence.Appointment{
		ID:              appointment.ID,
		ConsultantID:    appointment.ConsultantID,
		CustomerID:      appointment.CustomerID,
		AppointmentDate: appointment.AppointmentDate,
		StartMinute:     int(appointment.Start),
		EndMinute:       int(appointment.End),
		Status:          appointment.Status,
		Notes:           cloneString(appointment.Notes),
		CreatedAt:       appointment.CreatedAt,
		UpdatedAt:       appointment.UpdatedAt,
	}
}

func toCreatedBy(actor persistence.Actor) application.CreatedBy {
	return application.CreatedBy{UserID: actor.UserID, Role: application.Role(actor.Role), Name: actor.Name}
}

func toActor(createdBy application.CreatedBy) persistence.Actor {
	return persistence.Actor{UserID: createdBy.UserID, Role: string(createdBy.Role), Name: createdBy.Name}
}

func toPersistenceRange(r application.DateRange) persistence.DateRange {
	return persistence.DateRange{From: cloneTime(r.From), To: cloneTime(r.To)}
}

func toTimeOfDay(minutes *int) *availability.TimeOfDay {
	if minutes == nil {
		return nil
	}
	value := availability.TimeOfDay(*minutes)
	return &value
}

func toMinutes(value *availability.TimeOfDay) *int {
	if value == nil {
		return nil
	}
	minutes := int(*value)
	return &minutes
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
