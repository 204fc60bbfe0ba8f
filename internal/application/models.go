package application

import (
	"time"

	"github.com/example/gencare-scheduler/internal/availability"
)

// Role identifies what an account may do.
type Role string

const (
	// RoleCustomer books appointments for themselves.
	RoleCustomer Role = "customer"
	// RoleConsultant owns weekly schedules and receives bookings.
	RoleConsultant Role = "consultant"
	// RoleStaff manages schedules, overrides and bookings for every consultant.
	RoleStaff Role = "staff"
	// RoleAdmin has staff rights plus account management.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleConsultant, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
	Role   Role
	Name   string
}

// IsAdmin reports whether the principal may manage accounts.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// IsStaff reports whether the principal may act on behalf of any consultant.
func (p Principal) IsStaff() bool {
	return p.Role == RoleStaff || p.Role == RoleAdmin
}

// CanManageConsultant reports whether the principal may change data owned by consultantID.
func (p Principal) CanManageConsultant(consultantID string) bool {
	if p.UserID == "" {
		return false
	}
	if p.IsStaff() {
		return true
	}
	return p.Role == RoleConsultant && p.UserID == consultantID
}

// CreatedBy is the immutable snapshot of who created a record.
type CreatedBy struct {
	UserID string
	Role   Role
	Name   string
}

// DateRange bounds a listing by calendar date. Nil ends are open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Contains reports whether date lies within the range.
func (r DateRange) Contains(date time.Time) bool {
	if r.From != nil && date.Before(*r.From) {
		return false
	}
	if r.To != nil && date.After(*r.To) {
		return false
	}
	return true
}

// WorkingDay is the resolved working window of one weekday in a weekly schedule.
type WorkingDay struct {
	Start       availability.TimeOfDay
	End         availability.TimeOfDay
	BreakStart  *availability.TimeOfDay
	BreakEnd    *availability.TimeOfDay
	IsAvailable bool
}

// WorkingDayInput captures caller provided working day fields in HH:MM form.
type WorkingDayInput struct {
	StartTime   string
	EndTime     string
	BreakStart  *string
	BreakEnd    *string
	IsAvailable bool
}

// WeeklySchedule is a consultant's template for one Monday-start week.
type WeeklySchedule struct {
	ID                  string
	ConsultantID        string
	WeekStartDate       time.Time
	WeekEndDate         time.Time
	WorkingDays         map[string]WorkingDay
	DefaultSlotDuration int
	Notes               *string
	CreatedBy           CreatedBy
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// WeeklyScheduleInput captures caller provided fields for a new weekly schedule.
type WeeklyScheduleInput struct {
	ConsultantID        string
	WeekStartDate       string
	WorkingDays         map[string]WorkingDayInput
	DefaultSlotDuration *int
	Notes               *string
}

// WeeklySchedulePatch captures a partial update. Nil fields are left unchanged
// and WorkingDays entries are merged per weekday.
type WeeklySchedulePatch struct {
	WeekStartDate       *string
	WorkingDays         map[string]WorkingDayInput
	DefaultSlotDuration *int
	Notes               *string
}

// WeeklyScheduleFilter narrows schedule listings.
type WeeklyScheduleFilter struct {
	ConsultantID string
	WeekStart    DateRange
}

// CreateWeeklyScheduleParams wraps the data required to create a weekly schedule.
type CreateWeeklyScheduleParams struct {
	Principal Principal
	Input     WeeklyScheduleInput
}

// UpdateWeeklyScheduleParams wraps the data required to update a weekly schedule.
type UpdateWeeklyScheduleParams struct {
	Principal  Principal
	ScheduleID string
	Patch      WeeklySchedulePatch
}

// CopyWeeklyScheduleParams wraps the data required to copy a schedule into another week.
type CopyWeeklyScheduleParams struct {
	Principal           Principal
	SourceScheduleID    string
	TargetWeekStartDate string
}

// ListWeeklySchedulesParams wraps the data required to list weekly schedules.
// Dates are YYYY-MM-DD and filter on the week start.
type ListWeeklySchedulesParams struct {
	Principal    Principal
	ConsultantID string
	StartDate    string
	EndDate      string
}

// Override replaces a consultant's template for one date.
type Override struct {
	ID           string
	ConsultantID string
	OverrideDate time.Time
	IsAvailable  bool
	Start        *availability.TimeOfDay
	End          *availability.TimeOfDay
	BreakStart   *availability.TimeOfDay
	BreakEnd     *availability.TimeOfDay
	Reason       string
	CreatedBy    CreatedBy
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OverrideInput captures caller provided fields for a new override.
type OverrideInput struct {
	ConsultantID string
	OverrideDate string
	IsAvailable  bool
	StartTime    *string
	EndTime      *string
	BreakStart   *string
	BreakEnd     *string
	Reason       string
}

// OverridePatch captures a partial override update. An empty time string clears the field.
type OverridePatch struct {
	OverrideDate *string
	IsAvailable  *bool
	StartTime    *string
	EndTime      *string
	BreakStart   *string
	BreakEnd     *string
	Reason       *string
}

// CreateOverrideParams wraps the data required to create an override.
type CreateOverrideParams struct {
	Principal Principal
	Input     OverrideInput
}

// UpdateOverrideParams wraps the data required to update an override.
type UpdateOverrideParams struct {
	Principal  Principal
	OverrideID string
	Patch      OverridePatch
}

// ListOverridesParams wraps the data required to list a consultant's overrides.
type ListOverridesParams struct {
	Principal    Principal
	ConsultantID string
	StartDate    string
	EndDate      string
}

// Appointment statuses.
const (
	AppointmentPending   = "pending"
	AppointmentConfirmed = "confirmed"
	AppointmentCompleted = "completed"
	AppointmentCancelled = availability.StatusCancelled
)

// Appointment is a booked slot between a customer and a consultant.
type Appointment struct {
	ID              string
	ConsultantID    string
	CustomerID      string
	AppointmentDate time.Time
	Start           availability.TimeOfDay
	End             availability.TimeOfDay
	Status          string
	Notes           *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AppointmentFilter narrows appointment listings.
type AppointmentFilter struct {
	ConsultantID    string
	Dates           DateRange
	ExcludeStatuses []string
}

// BookAppointmentParams wraps the data required to book a slot. CustomerID is
// only honoured for staff and admin principals.
type BookAppointmentParams struct {
	Principal    Principal
	ConsultantID string
	CustomerID   string
	Date         string
	StartTime    string
	EndTime      string
	Notes        *string
}

// ListAppointmentsParams wraps the data required to list a consultant's appointments.
type ListAppointmentsParams struct {
	Principal    Principal
	ConsultantID string
	StartDate    string
	EndDate      string
}

// TimeSlot is a bookable window inside a working day.
type TimeSlot struct {
	Start availability.TimeOfDay
	End   availability.TimeOfDay
}

// WorkingHours is the effective window of a working day.
type WorkingHours struct {
	Start      availability.TimeOfDay
	End        availability.TimeOfDay
	BreakStart *availability.TimeOfDay
	BreakEnd   *availability.TimeOfDay
}

// DayAvailability is the single-day availability view.
type DayAvailability struct {
	Date           time.Time
	ConsultantID   string
	IsWorkingDay   bool
	Source         string
	AvailableSlots []TimeSlot
	TotalSlots     int
}

// BookedAppointment is a booking rendered inside the weekly view.
type BookedAppointment struct {
	AppointmentID string
	Start         availability.TimeOfDay
	End           availability.TimeOfDay
	Status        string
	CustomerName  string
}

// WeekDay is one day record of the weekly availability view.
type WeekDay struct {
	Date               time.Time
	DayOfWeek          string
	IsWorkingDay       bool
	Source             string
	WorkingHours       *WorkingHours
	AvailableSlots     []TimeSlot
	TotalSlots         int
	BookedAppointments []BookedAppointment
}

// AvailabilitySummary rolls up a week.
type AvailabilitySummary struct {
	TotalWorkingDays    int
	TotalAvailableSlots int
	TotalBookedSlots    int
}

// WeeklyAvailability is the seven-day availability view.
type WeeklyAvailability struct {
	ConsultantID  string
	WeekStartDate time.Time
	WeekEndDate   time.Time
	Days          []WeekDay
	Summary       AvailabilitySummary
}

// DayAvailabilityParams wraps a single-day availability query.
type DayAvailabilityParams struct {
	Principal    Principal
	ConsultantID string
	Date         string
}

// WeeklyAvailabilityParams wraps a weekly availability query.
type WeeklyAvailabilityParams struct {
	Principal     Principal
	ConsultantID  string
	WeekStartDate string
}

// UserInput captures caller provided user attributes.
type UserInput struct {
	Email       string
	DisplayName string
	Role        Role
	Password    string
	Disabled    bool
}

// User represents an account exposed by the application services.
type User struct {
	ID          string
	Email       string
	DisplayName string
	Role        Role
	Disabled    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateUserParams wraps the data required to create a user.
type CreateUserParams struct {
	Principal Principal
	Input     UserInput
}

// UpdateUserParams wraps the data required to update a user. An empty
// password keeps the stored hash.
type UpdateUserParams struct {
	Principal Principal
	UserID    string
	Input     UserInput
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
	Disabled     bool
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID          string
	UserID      string
	Token       string
	Fingerprint string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RevokedAt   *time.Time
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email       string
	Password    string
	Fingerprint string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User      User
	Principal Principal
	Session   Session
}
