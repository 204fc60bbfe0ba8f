package availability

import (
	"errors"
	"time"
)

// ErrNoSchedule is returned when neither an override nor a template covers a date.
var ErrNoSchedule = errors.New("availability: no schedule found")

// Source identifies which record produced a day's working window.
type Source string

const (
	// SourceTemplate marks days resolved from the weekly template.
	SourceTemplate Source = "template"
	// SourceOverride marks days resolved from a date override.
	SourceOverride Source = "override"
)

// WorkingDay is one weekday entry of a weekly template.
type WorkingDay struct {
	Start       TimeOfDay
	End         TimeOfDay
	BreakStart  *TimeOfDay
	BreakEnd    *TimeOfDay
	IsAvailable bool
}

// Window converts the working day into an effective window.
func (d WorkingDay) Window() Window {
	return Window{Start: d.Start, End: d.End, Break: breakInterval(d.BreakStart, d.BreakEnd)}
}

// DisabledWorkingDay is the filler used for weekdays a template leaves out.
func DisabledWorkingDay() WorkingDay {
	return WorkingDay{Start: 8 * 60, End: 17 * 60, IsAvailable: false}
}

// Template is the part of a weekly schedule the engine needs.
type Template struct {
	WorkingDays  map[string]WorkingDay
	SlotDuration int
}

// Override replaces the template for a single date.
type Override struct {
	IsAvailable bool
	Start       *TimeOfDay
	End         *TimeOfDay
	BreakStart  *TimeOfDay
	BreakEnd    *TimeOfDay
}

// Resolution is the outcome of resolving one calendar date.
type Resolution struct {
	Working      bool
	Source       Source
	Window       Window
	SlotDuration int
}

// ResolveDay decides the effective working window of date.
//
// An override always wins over the template. It makes the day unavailable
// when it is flagged unavailable or lacks start or end times. Without an
// override the template entry for the date's weekday applies. ErrNoSchedule
// is returned when both inputs are nil.
func ResolveDay(date time.Time, override *Override, template *Template) (Resolution, error) {
	duration := DefaultSlotDuration
	if template != nil && template.SlotDuration > 0 {
		duration = template.SlotDuration
	}

	if override != nil {
		res := Resolution{Source: SourceOverride, SlotDuration: duration}
		if !override.IsAvailable || override.Start == nil || override.End == nil {
			return res, nil
		}
		res.Working = true
		res.Window = Window{
			Start: *override.Start,
			End:   *override.End,
			Break: breakInterval(override.BreakStart, override.BreakEnd),
		}
		return res, nil
	}

	if template == nil {
		return Resolution{}, ErrNoSchedule
	}

	res := Resolution{Source: SourceTemplate, SlotDuration: duration}
	day, ok := template.WorkingDays[WeekdayName(date)]
	if !ok || !day.IsAvailable {
		return res, nil
	}
	res.Working = true
	res.Window = day.Window()
	return res, nil
}

func breakInterval(start, end *TimeOfDay) *Interval {
	if start == nil || end == nil {
		return nil
	}
	return &Interval{Start: *start, End: *end}
}
