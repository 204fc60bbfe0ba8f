package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/gencare-scheduler/internal/application"
	"github.com/example/gencare-scheduler/internal/availability"
	"github.com/example/gencare-scheduler/internal/persistence"
)

var (
	userCounter        uint64
	scheduleCounter    uint64
	overrideCounter    uint64
	appointmentCounter uint64
)

// referenceTime is a Monday morning so week-based fixtures line up with it.
var referenceTime = time.Date(2024, time.January, 8, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceWeek returns the Monday of the week containing ReferenceTime.
func ReferenceWeek() time.Time {
	return availability.WeekStartOf(referenceTime)
}

// Date parses a YYYY-MM-DD literal and panics on malformed input.
func Date(value string) time.Time {
	d, err := availability.ParseDate(value)
	if err != nil {
		panic(fmt.Sprintf("testfixtures: invalid date %q: %v", value, err))
	}
	return d
}

// Minutes converts an HH:MM literal into minutes since midnight.
func Minutes(value string) int {
	return int(availability.MustParseTimeOfDay(value))
}

func minutesPtr(value string) *int {
	if value == "" {
		return nil
	}
	m := Minutes(value)
	return &m
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic account that can be materialised
// for application or persistence tests.
type UserFixture struct {
	ID           string
	Email        string
	DisplayName  string
	Role         application.Role
	PasswordHash string
	Disabled     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic customer fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:           id,
		Email:        fmt.Sprintf("%s@example.com", id),
		DisplayName:  fmt.Sprintf("User %03d", idx),
		Role:         application.RoleCustomer,
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// NewConsultantFixture is NewUserFixture with the consultant role.
func NewConsultantFixture(opts ...UserOption) UserFixture {
	return NewUserFixture(append([]UserOption{WithUserRole(application.RoleConsultant)}, opts...)...)
}

// NewStaffFixture is NewUserFixture with the staff role.
func NewStaffFixture(opts ...UserOption) UserFixture {
	return NewUserFixture(append([]UserOption{WithUserRole(application.RoleStaff)}, opts...)...)
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) {
		f.Email = email
	}
}

// WithUserDisplayName overrides the generated display name.
func WithUserDisplayName(name string) UserOption {
	return func(f *UserFixture) {
		f.DisplayName = name
	}
}

// WithUserRole overrides the role.
func WithUserRole(role application.Role) UserOption {
	return func(f *UserFixture) {
		f.Role = role
	}
}

// WithUserPasswordHash overrides the generated password hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(f *UserFixture) {
		f.PasswordHash = hash
	}
}

// WithUserDisabled marks the account disabled.
func WithUserDisabled(disabled bool) UserOption {
	return func(f *UserFixture) {
		f.Disabled = disabled
	}
}

// WithUserTimestamps sets both created and updated timestamps on the fixture.
func WithUserTimestamps(created, updated time.Time) UserOption {
	return func(f *UserFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application returns the fixture as an application.User value.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:          f.ID,
		Email:       f.Email,
		DisplayName: f.DisplayName,
		Role:        f.Role,
		Disabled:    f.Disabled,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Credentials returns the fixture as application.UserCredentials.
func (f UserFixture) Credentials() application.UserCredentials {
	return application.UserCredentials{
		User:         f.Application(),
		PasswordHash: f.PasswordHash,
		Disabled:     f.Disabled,
	}
}

// Principal returns an application.Principal derived from the fixture.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, Role: f.Role, Name: f.DisplayName}
}

// Actor returns the author snapshot persisted with schedules and overrides.
func (f UserFixture) Actor() persistence.Actor {
	return persistence.Actor{UserID: f.ID, Role: string(f.Role), Name: f.DisplayName}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Email:        f.Email,
		DisplayName:  f.DisplayName,
		Role:         string(f.Role),
		PasswordHash: f.PasswordHash,
		Disabled:     f.Disabled,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// Input returns the fixture as an application.UserInput.
func (f UserFixture) Input(password string) application.UserInput {
	return application.UserInput{
		Email:       f.Email,
		DisplayName: f.DisplayName,
		Role:        f.Role,
		Password:    password,
		Disabled:    f.Disabled,
	}
}

// ------------------------ Weekly schedule fixtures ------------------------

// WorkingDayFixture describes one weekday in HH:MM form. Empty break fields mean no break.
type WorkingDayFixture struct {
	Start       string
	End         string
	BreakStart  string
	BreakEnd    string
	IsAvailable bool
}

// WeeklyScheduleFixture represents a deterministic weekly template.
type WeeklyScheduleFixture struct {
	ID                  string
	ConsultantID        string
	WeekStartDate       time.Time
	WorkingDays         map[string]WorkingDayFixture
	DefaultSlotDuration int
	Notes               *string
	CreatedBy           persistence.Actor
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// WeeklyScheduleOption configures the generated schedule fixture.
type WeeklyScheduleOption func(*WeeklyScheduleFixture)

// StandardWorkingDay is 09:00-17:00 with a 12:00-13:00 break.
func StandardWorkingDay() WorkingDayFixture {
	return WorkingDayFixture{Start: "09:00", End: "17:00", BreakStart: "12:00", BreakEnd: "13:00", IsAvailable: true}
}

// NewWeeklyScheduleFixture returns a Monday to Friday template for the
// reference week with hour long slots. Weekend days are disabled.
func NewWeeklyScheduleFixture(consultantID string, opts ...WeeklyScheduleOption) WeeklyScheduleFixture {
	idx := atomic.AddUint64(&scheduleCounter, 1)
	days := make(map[string]WorkingDayFixture, len(availability.Weekdays))
	for i, name := range availability.Weekdays {
		if i < 5 {
			days[name] = StandardWorkingDay()
			continue
		}
		days[name] = WorkingDayFixture{Start: "08:00", End: "17:00"}
	}
	fixture := WeeklyScheduleFixture{
		ID:                  fmt.Sprintf("schedule-%03d", idx),
		ConsultantID:        consultantID,
		WeekStartDate:       ReferenceWeek(),
		WorkingDays:         days,
		DefaultSlotDuration: 60,
		CreatedBy:           persistence.Actor{UserID: "staff-001", Role: string(application.RoleStaff), Name: "Staff 001"},
		CreatedAt:           referenceTime,
		UpdatedAt:           referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithScheduleID overrides the generated schedule ID.
func WithScheduleID(id string) WeeklyScheduleOption {
	return func(f *WeeklyScheduleFixture) {
		f.ID = id
	}
}

// WithWeekStart moves the template to the week starting on monday.
func WithWeekStart(monday time.Time) WeeklyScheduleOption {
	return func(f *WeeklyScheduleFixture) {
		f.WeekStartDate = monday
	}
}

// WithSlotDuration overrides the default slot duration in minutes.
func WithSlotDuration(minutes int) WeeklyScheduleOption {
	return func(f *WeeklyScheduleFixture) {
		f.DefaultSlotDuration = minutes
	}
}

// WithWorkingDay replaces the definition of a single weekday.
func WithWorkingDay(weekday string, day WorkingDayFixture) WeeklyScheduleOption {
	return func(f *WeeklyScheduleFixture) {
		f.WorkingDays[weekday] = day
	}
}

// WithScheduleNotes sets the notes field.
func WithScheduleNotes(notes string) WeeklyScheduleOption {
	return func(f *WeeklyScheduleFixture) {
		f.Notes = &notes
	}
}

// WithScheduleCreatedBy overrides the author snapshot.
func WithScheduleCreatedBy(actor persistence.Actor) WeeklyScheduleOption {
	return func(f *WeeklyScheduleFixture) {
		f.CreatedBy = actor
	}
}

// Persistence returns the fixture as a persistence.WeeklySchedule with days in Monday-first order.
func (f WeeklyScheduleFixture) Persistence() persistence.WeeklySchedule {
	days := make([]persistence.WorkingDay, 0, len(f.WorkingDays))
	for _, name := range availability.Weekdays {
		day, ok := f.WorkingDays[name]
		if !ok {
			continue
		}
		days = append(days, persistence.WorkingDay{
			Weekday:          name,
			StartMinute:      Minutes(day.Start),
			EndMinute:        Minutes(day.End),
			BreakStartMinute: minutesPtr(day.BreakStart),
			BreakEndMinute:   minutesPtr(day.BreakEnd),
			IsAvailable:      day.IsAvailable,
		})
	}
	return persistence.WeeklySchedule{
		ID:                  f.ID,
		ConsultantID:        f.ConsultantID,
		WeekStartDate:       f.WeekStartDate,
		WeekEndDate:         availability.WeekEnd(f.WeekStartDate),
		DefaultSlotDuration: f.DefaultSlotDuration,
		Notes:               f.Notes,
		WorkingDays:         days,
		CreatedBy:           f.CreatedBy,
		CreatedAt:           f.CreatedAt,
		UpdatedAt:           f.UpdatedAt,
	}
}

// ---------------------------- Override fixtures ----------------------------

// OverrideFixture represents a deterministic per-date override.
type OverrideFixture struct {
	ID           string
	ConsultantID string
	OverrideDate time.Time
	IsAvailable  bool
	Start        string
	End          string
	BreakStart   string
	BreakEnd     string
	Reason       string
	CreatedBy    persistence.Actor
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OverrideOption configures the generated override fixture.
type OverrideOption func(*OverrideFixture)

// NewOverrideFixture returns a day-off override for date.
func NewOverrideFixture(consultantID string, date time.Time, opts ...OverrideOption) OverrideFixture {
	idx := atomic.AddUint64(&overrideCounter, 1)
	fixture := OverrideFixture{
		ID:           fmt.Sprintf("override-%03d", idx),
		ConsultantID: consultantID,
		OverrideDate: date,
		Reason:       "Annual leave",
		CreatedBy:    persistence.Actor{UserID: "staff-001", Role: string(application.RoleStaff), Name: "Staff 001"},
		CreatedAt:    referenceTime,
		UpdatedAt:    referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithOverrideID overrides the generated override ID.
func WithOverrideID(id string) OverrideOption {
	return func(f *OverrideFixture) {
		f.ID = id
	}
}

// WithOverrideWindow makes the override an available day between start and end.
func WithOverrideWindow(start, end string) OverrideOption {
	return func(f *OverrideFixture) {
		f.IsAvailable = true
		f.Start = start
		f.End = end
	}
}

// WithOverrideBreak sets the override break.
func WithOverrideBreak(start, end string) OverrideOption {
	return func(f *OverrideFixture) {
		f.BreakStart = start
		f.BreakEnd = end
	}
}

// WithOverrideReason overrides the reason text.
func WithOverrideReason(reason string) OverrideOption {
	return func(f *OverrideFixture) {
		f.Reason = reason
	}
}

// Persistence returns the fixture as a persistence.ScheduleOverride value.
func (f OverrideFixture) Persistence() persistence.ScheduleOverride {
	return persistence.ScheduleOverride{
		ID:               f.ID,
		ConsultantID:     f.ConsultantID,
		OverrideDate:     f.OverrideDate,
		IsAvailable:      f.IsAvailable,
		StartMinute:      minutesPtr(f.Start),
		EndMinute:        minutesPtr(f.End),
		BreakStartMinute: minutesPtr(f.BreakStart),
		BreakEndMinute:   minutesPtr(f.BreakEnd),
		Reason:           f.Reason,
		CreatedBy:        f.CreatedBy,
		CreatedAt:        f.CreatedAt,
		UpdatedAt:        f.UpdatedAt,
	}
}

// --------------------------- Appointment fixtures ---------------------------

// AppointmentFixture represents a deterministic booking.
type AppointmentFixture struct {
	ID              string
	ConsultantID    string
	CustomerID      string
	AppointmentDate time.Time
	Start           string
	End             string
	Status          string
	Notes           *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AppointmentOption configures the generated appointment fixture.
type AppointmentOption func(*AppointmentFixture)

// NewAppointmentFixture returns a pending booking between start and end on date.
func NewAppointmentFixture(consultantID, customerID string, date time.Time, start, end string, opts ...AppointmentOption) AppointmentFixture {
	idx := atomic.AddUint64(&appointmentCounter, 1)
	fixture := AppointmentFixture{
		ID:              fmt.Sprintf("appointment-%03d", idx),
		ConsultantID:    consultantID,
		CustomerID:      customerID,
		AppointmentDate: date,
		Start:           start,
		End:             end,
		Status:          application.AppointmentPending,
		CreatedAt:       referenceTime,
		UpdatedAt:       referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithAppointmentID overrides the generated appointment ID.
func WithAppointmentID(id string) AppointmentOption {
	return func(f *AppointmentFixture) {
		f.ID = id
	}
}

// WithAppointmentStatus overrides the status.
func WithAppointmentStatus(status string) AppointmentOption {
	return func(f *AppointmentFixture) {
		f.Status = status
	}
}

// Persistence returns the fixture as a persistence.Appointment value.
func (f AppointmentFixture) Persistence() persistence.Appointment {
	return persistence.Appointment{
		ID:              f.ID,
		ConsultantID:    f.ConsultantID,
		CustomerID:      f.CustomerID,
		AppointmentDate: f.AppointmentDate,
		StartMinute:     Minutes(f.Start),
		EndMinute:       Minutes(f.End),
		Status:          f.Status,
		Notes:           f.Notes,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}
