package persistence

import "time"

// User represents an account of any role.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	Role         string
	PasswordHash string
	Disabled     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor is the denormalised author snapshot stored with schedules and overrides.
type Actor struct {
	UserID string
	Role   string
	Name   string
}

// WorkingDay is one weekday row of a weekly schedule. Times are minutes since midnight.
type WorkingDay struct {
	Weekday          string
	StartMinute      int
	EndMinute        int
	BreakStartMinute *int
	BreakEndMinute   *int
	IsAvailable      bool
}

// WeeklySchedule is a consultant's working template for one Monday-aligned week.
type WeeklySchedule struct {
	ID                  string
	ConsultantID        string
	WeekStartDate       time.Time
	WeekEndDate         time.Time
	DefaultSlotDuration int
	Notes               *string
	WorkingDays         []WorkingDay
	CreatedBy           Actor
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ScheduleOverride replaces a consultant's template for a single date.
type ScheduleOverride struct {
	ID               string
	ConsultantID     string
	OverrideDate     time.Time
	IsAvailable      bool
	StartMinute      *int
	EndMinute        *int
	BreakStartMinute *int
	BreakEndMinute   *int
	Reason           string
	CreatedBy        Actor
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Appointment is a customer booking with a consultant.
type Appointment struct {
	ID              string
	ConsultantID    string
	CustomerID      string
	AppointmentDate time.Time
	StartMinute     int
	EndMinute       int
	Status          string
	Notes           *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Session represents an authentication session persisted for a user.
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
