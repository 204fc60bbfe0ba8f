package application

import (
	"strings"
	"time"

	"github.com/example/gencare-scheduler/internal/availability"
)

// MaxSlotDuration caps the configurable slot length in minutes.
const MaxSlotDuration = 480

func parseDateField(vErr *ValidationError, field, value string) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		vErr.add(field, field+" is required")
		return time.Time{}, false
	}
	date, err := availability.ParseDate(trimmed)
	if err != nil {
		vErr.add(field, field+" must be a YYYY-MM-DD date")
		return time.Time{}, false
	}
	return date, true
}

func parseMondayField(vErr *ValidationError, field, value string) (time.Time, bool) {
	date, ok := parseDateField(vErr, field, value)
	if !ok {
		return time.Time{}, false
	}
	if !availability.IsMonday(date) {
		vErr.add(field, field+" must be a Monday")
		return time.Time{}, false
	}
	return date, true
}

func parseTimeField(vErr *ValidationError, field, value string) (availability.TimeOfDay, bool) {
	if strings.TrimSpace(value) == "" {
		vErr.add(field, field+" is required")
		return 0, false
	}
	parsed, err := availability.ParseTimeOfDay(value)
	if err != nil {
		vErr.add(field, field+" must be in HH:MM format")
		return 0, false
	}
	return parsed, true
}

// parseOptionalTime treats nil and blank values as absent.
func parseOptionalTime(vErr *ValidationError, field string, value *string) *availability.TimeOfDay {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	parsed, ok := parseTimeField(vErr, field, *value)
	if !ok {
		return nil
	}
	return &parsed
}

// parseDateRange parses optional start/end filters and rejects inverted ranges.
func parseDateRange(vErr *ValidationError, start, end string) DateRange {
	var dates DateRange
	if strings.TrimSpace(start) != "" {
		if from, ok := parseDateField(vErr, "start_date", start); ok {
			dates.From = &from
		}
	}
	if strings.TrimSpace(end) != "" {
		if to, ok := parseDateField(vErr, "end_date", end); ok {
			dates.To = &to
		}
	}
	if dates.From != nil && dates.To != nil && dates.To.Before(*dates.From) {
		vErr.add("end_date", "end_date must not be before start_date")
	}
	return dates
}

// validateWindow checks start < end and, when a break is given, that both
// ends are present, ordered and inside the working hours.
func validateWindow(vErr *ValidationError, prefix string, start, end availability.TimeOfDay, breakStart, breakEnd *availability.TimeOfDay) {
	if start >= end {
		vErr.add(prefix+"end_time", "end time must be after start time")
	}
	switch {
	case breakStart == nil && breakEnd == nil:
		return
	case breakStart == nil || breakEnd == nil:
		vErr.add(prefix+"break", "break start and break end must be provided together")
		return
	}
	if *breakStart >= *breakEnd {
		vErr.add(prefix+"break_end", "break end must be after break start")
		return
	}
	if *breakStart < start || *breakEnd > end {
		vErr.add(prefix+"break", "break must fall within working hours")
	}
}

func validateSlotDuration(vErr *ValidationError, duration int) {
	if duration <= 0 || duration > MaxSlotDuration {
		vErr.add("default_slot_duration", "default slot duration must be between 1 and 480 minutes")
	}
}

func toWorkingDay(vErr *ValidationError, weekday string, input WorkingDayInput) WorkingDay {
	prefix := "working_days." + weekday + "."
	start, startOK := parseTimeField(vErr, prefix+"start_time", input.StartTime)
	end, endOK := parseTimeField(vErr, prefix+"end_time", input.EndTime)
	breakStart := parseOptionalTime(vErr, prefix+"break_start", input.BreakStart)
	breakEnd := parseOptionalTime(vErr, prefix+"break_end", input.BreakEnd)

	if startOK && endOK {
		validateWindow(vErr, prefix, start, end, breakStart, breakEnd)
	}
	return WorkingDay{
		Start:       start,
		End:         end,
		BreakStart:  breakStart,
		BreakEnd:    breakEnd,
		IsAvailable: input.IsAvailable,
	}
}

// mergeWorkingDays validates inputs and overlays them onto base. Missing
// weekdays are filled with the disabled default.
func mergeWorkingDays(vErr *ValidationError, base map[string]WorkingDay, inputs map[string]WorkingDayInput) map[string]WorkingDay {
	out := make(map[string]WorkingDay, len(availability.Weekdays))
	for _, weekday := range availability.Weekdays {
		if day, ok := base[weekday]; ok {
			out[weekday] = day
		} else {
			out[weekday] = disabledWorkingDay()
		}
	}
	for name, input := range inputs {
		weekday := strings.ToLower(strings.TrimSpace(name))
		if !availability.IsWeekdayName(weekday) {
			vErr.add("working_days."+name, "unknown weekday")
			continue
		}
		out[weekday] = toWorkingDay(vErr, weekday, input)
	}
	return out
}

func disabledWorkingDay() WorkingDay {
	d := availability.DisabledWorkingDay()
	return WorkingDay{Start: d.Start, End: d.End, IsAvailable: d.IsAvailable}
}

func optionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
