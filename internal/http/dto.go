package http

import (
	"time"

	"github.com/example/gencare-scheduler/internal/application"
	"github.com/example/gencare-scheduler/internal/availability"
)

func formatDate(t time.Time) string {
	return availability.FormatDate(t)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *availability.TimeOfDay) *string {
	if t == nil {
		return nil
	}
	value := t.String()
	return &value
}

type createdByDTO struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Name   string `json:"name"`
}

func toCreatedByDTO(c application.CreatedBy) createdByDTO {
	return createdByDTO{UserID: c.UserID, Role: string(c.Role), Name: c.Name}
}

type userDTO struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Disabled    bool   `json:"disabled"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func toUserDTO(user application.User) userDTO {
	return userDTO{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        string(user.Role),
		Disabled:    user.Disabled,
		CreatedAt:   formatTimestamp(user.CreatedAt),
		UpdatedAt:   formatTimestamp(user.UpdatedAt),
	}
}

func toUserDTOs(users []application.User) []userDTO {
	out := make([]userDTO, 0, len(users))
	for _, user := range users {
		out = append(out, toUserDTO(user))
	}
	return out
}

type workingDayDTO struct {
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	BreakStart  *string `json:"break_start,omitempty"`
	BreakEnd    *string `json:"break_end,omitempty"`
	IsAvailable bool    `json:"is_available"`
}

type weeklyScheduleDTO struct {
	ID                  string                   `json:"id"`
	ConsultantID        string                   `json:"consultant_id"`
	WeekStartDate       string                   `json:"week_start_date"`
	WeekEndDate         string                   `json:"week_end_date"`
	WorkingDays         map[string]workingDayDTO `json:"working_days"`
	DefaultSlotDuration int                      `json:"default_slot_duration"`
	Notes               *string                  `json:"notes,omitempty"`
	CreatedBy           createdByDTO             `json:"created_by"`
	CreatedAt           string                   `json:"created_at"`
	UpdatedAt           string                   `json:"updated_at"`
}

func toWeeklyScheduleDTO(schedule application.WeeklySchedule) weeklyScheduleDTO {
	days := make(map[string]workingDayDTO, len(schedule.WorkingDays))
	for name, day := range schedule.WorkingDays {
		days[name] = workingDayDTO{
			StartTime:   day.Start.String(),
			EndTime:     day.End.String(),
			BreakStart:  formatTimePtr(day.BreakStart),
			BreakEnd:    formatTimePtr(day.BreakEnd),
			IsAvailable: day.IsAvailable,
		}
	}
	return weeklyScheduleDTO{
		ID:                  schedule.ID,
		ConsultantID:        schedule.ConsultantID,
		WeekStartDate:       formatDate(schedule.WeekStartDate),
		WeekEndDate:         formatDate(schedule.WeekEndDate),
		WorkingDays:         days,
		DefaultSlotDuration: schedule.DefaultSlotDuration,
		Notes:               schedule.Notes,
		CreatedBy:           toCreatedByDTO(schedule.CreatedBy),
		CreatedAt:           formatTimestamp(schedule.CreatedAt),
		UpdatedAt:           formatTimestamp(schedule.UpdatedAt),
	}
}

func toWeeklyScheduleDTOs(schedules []application.WeeklySchedule) []weeklyScheduleDTO {
	out := make([]weeklyScheduleDTO, 0, len(schedules))
	for _, schedule := range schedules {
		out = append(out, toWeeklyScheduleDTO(schedule))
	}
	return out
}

type overrideDTO struct {
	ID           string       `json:"id"`
	ConsultantID string       `json:"consultant_id"`
	OverrideDate string       `json:"override_date"`
	IsAvailable  bool         `json:"is_available"`
	StartTime    *string      `json:"start_time,omitempty"`
	EndTime      *string      `json:"end_time,omitempty"`
	BreakStart   *string      `json:"break_start,omitempty"`
	BreakEnd     *string      `json:"break_end,omitempty"`
	Reason       string       `json:"reason"`
	CreatedBy    createdByDTO `json:"created_by"`
	CreatedAt    string       `json:"created_at"`
	UpdatedAt    string       `json:"updated_at"`
}

func toOverrideDTO(override application.Override) overrideDTO {
	return overrideDTO{
		ID:           override.ID,
		ConsultantID: override.ConsultantID,
		OverrideDate: formatDate(override.OverrideDate),
		IsAvailable:  override.IsAvailable,
		StartTime:    formatTimePtr(override.Start),
		EndTime:      formatTimePtr(override.End),
		BreakStart:   formatTimePtr(override.BreakStart),
		BreakEnd:     formatTimePtr(override.BreakEnd),
		Reason:       override.Reason,
		CreatedBy:    toCreatedByDTO(override.CreatedBy),
		CreatedAt:    formatTimestamp(override.CreatedAt),
		UpdatedAt:    formatTimestamp(override.UpdatedAt),
	}
}

func toOverrideDTOs(overrides []application.Override) []overrideDTO {
	out := make([]overrideDTO, 0, len(overrides))
	for _, override := range overrides {
		out = append(out, toOverrideDTO(override))
	}
	return out
}

type appointmentDTO struct {
	ID              string  `json:"id"`
	ConsultantID    string  `json:"consultant_id"`
	CustomerID      string  `json:"customer_id"`
	AppointmentDate string  `json:"appointment_date"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	Status          string  `json:"status"`
	Notes           *string `json:"notes,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

func toAppointmentDTO(appointment application.Appointment) appointmentDTO {
	return appointmentDTO{
		ID:              appointment.ID,
		ConsultantID:    appointment.ConsultantID,
		CustomerID:      appointment.CustomerID,
		AppointmentDate: formatDate(appointment.AppointmentDate),
		StartTime:       appointment.Start.String(),
		EndTime:         appointment.End.String(),
		Status:          appointment.Status,
		Notes:           appointment.Notes,
		CreatedAt:       formatTimestamp(appointment.CreatedAt),
		UpdatedAt:       formatTimestamp(appointment.UpdatedAt),
	}
}

func toAppointmentDTOs(appointments []application.Appointment) []appointmentDTO {
	out := make([]appointmentDTO, 0, len(appointments))
	for _, appointment := range appointments {
		out = append(out, toAppointmentDTO(appointment))
	}
	return out
}

type timeSlotDTO struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func toTimeSlotDTOs(slots []application.TimeSlot) []timeSlotDTO {
	out := make([]timeSlotDTO, 0, len(slots))
	for _, slot := range slots {
		out = append(out, timeSlotDTO{StartTime: slot.Start.String(), EndTime: slot.End.String()})
	}
	return out
}

type dayAvailabilityDTO struct {
	Date           string        `json:"date"`
	ConsultantID   string        `json:"consultant_id"`
	IsWorkingDay   bool          `json:"is_working_day"`
	Source         string        `json:"source"`
	AvailableSlots []timeSlotDTO `json:"available_slots"`
	TotalSlots     int           `json:"total_slots"`
}

func toDayAvailabilityDTO(day application.DayAvailability) dayAvailabilityDTO {
	return dayAvailabilityDTO{
		Date:           formatDate(day.Date),
		ConsultantID:   day.ConsultantID,
		IsWorkingDay:   day.IsWorkingDay,
		Source:         day.Source,
		AvailableSlots: toTimeSlotDTOs(day.AvailableSlots),
		TotalSlots:     day.TotalSlots,
	}
}

type workingHoursDTO struct {
	StartTime  string  `json:"start_time"`
	EndTime    string  `json:"end_time"`
	BreakStart *string `json:"break_start,omitempty"`
	BreakEnd   *string `json:"break_end,omitempty"`
}

type bookedAppointmentDTO struct {
	AppointmentID string `json:"appointment_id"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
	CustomerName  string `json:"customer_name"`
}

type weekDayDTO struct {
	Date               string                 `json:"date"`
	DayOfWeek          string                 `json:"day_of_week"`
	IsWorkingDay       bool                   `json:"is_working_day"`
	Source             string                 `json:"source"`
	WorkingHours       *workingHoursDTO       `json:"working_hours,omitempty"`
	AvailableSlots     []timeSlotDTO          `json:"available_slots"`
	TotalSlots         int                    `json:"total_slots"`
	BookedAppointments []bookedAppointmentDTO `json:"booked_appointments"`
}

type availabilitySummaryDTO struct {
	TotalWorkingDays    int `json:"total_working_days"`
	TotalAvailableSlots int `json:"total_available_slots"`
	TotalBookedSlots    int `json:"total_booked_slots"`
}

type weeklyAvailabilityDTO struct {
	ConsultantID  string                 `json:"consultant_id"`
	WeekStartDate string                 `json:"week_start_date"`
	WeekEndDate   string                 `json:"week_end_date"`
	Days          []weekDayDTO           `json:"days"`
	Summary       availabilitySummaryDTO `json:"summary"`
}

func toWeeklyAvailabilityDTO(week application.WeeklyAvailability) weeklyAvailabilityDTO {
	days := make([]weekDayDTO, 0, len(week.Days))
	for _, day := range week.Days {
		record := weekDayDTO{
			Date:               formatDate(day.Date),
			DayOfWeek:          day.DayOfWeek,
			IsWorkingDay:       day.IsWorkingDay,
			Source:             day.Source,
			AvailableSlots:     toTimeSlotDTOs(day.AvailableSlots),
			TotalSlots:         day.TotalSlots,
			BookedAppointments: make([]bookedAppointmentDTO, 0, len(day.BookedAppointments)),
		}
		if hours := day.WorkingHours; hours != nil {
			record.WorkingHours = &workingHoursDTO{
				StartTime:  hours.Start.String(),
				EndTime:    hours.End.String(),
				BreakStart: formatTimePtr(hours.BreakStart),
				BreakEnd:   formatTimePtr(hours.BreakEnd),
			}
		}
		for _, booked := range day.BookedAppointments {
			record.BookedAppointments = append(record.BookedAppointments, bookedAppointmentDTO{
				AppointmentID: booked.AppointmentID,
				StartTime:     booked.Start.String(),
				EndTime:       booked.End.String(),
				Status:        booked.Status,
				CustomerName:  booked.CustomerName,
			})
		}
		days = append(days, record)
	}
	return weeklyAvailabilityDTO{
		ConsultantID:  week.ConsultantID,
		WeekStartDate: formatDate(week.WeekStartDate),
		WeekEndDate:   formatDate(week.WeekEndDate),
		Days:          days,
		Summary: availabilitySummaryDTO{
			TotalWorkingDays:    week.Summary.TotalWorkingDays,
			TotalAvailableSlots: week.Summary.TotalAvailableSlots,
			TotalBookedSlots:    week.Summary.TotalBookedSlots,
		},
	}
}
