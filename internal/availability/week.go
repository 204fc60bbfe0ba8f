package availability

import (
	"time"
)

// UnknownCustomer is shown for bookings whose customer cannot be resolved.
const UnknownCustomer = "Unknown"

// WeekInput carries everything AggregateWeek needs for one consultant week.
type WeekInput struct {
	WeekStart time.Time
	Template  *Template
	// Overrides and Bookings are keyed by FormatDate of the day.
	Overrides map[string]Override
	Bookings  map[string][]Booking
	// CustomerName resolves display names; it may be nil.
	CustomerName func(customerID string) (string, bool)
}

// BookedAppointment is a booking rendered inside a day record.
type BookedAppointment struct {
	ID           string
	Start        TimeOfDay
	End          TimeOfDay
	Status       string
	CustomerName string
}

// DayRecord is the computed availability of one day.
type DayRecord struct {
	Date         time.Time
	Weekday      string
	IsWorkingDay bool
	Source       Source
	Window       *Window
	Available    []Slot
	Booked       []BookedAppointment
	generated    int
}

// TotalSlots is the number of available slots on the day.
func (d DayRecord) TotalSlots() int {
	return len(d.Available)
}

// BookedSlots is the number of generated slots removed by bookings.
func (d DayRecord) BookedSlots() int {
	return d.generated - len(d.Available)
}

// Summary rolls up a week.
type Summary struct {
	TotalWorkingDays    int
	TotalAvailableSlots int
	TotalBookedSlots    int
}

// Week is the aggregated availability of seven consecutive days.
type Week struct {
	Start   time.Time
	End     time.Time
	Days    []DayRecord
	Summary Summary
}

// AggregateWeek resolves, generates and filters slots for Monday through Sunday.
//
// Overrides are honoured exactly as in single-day resolution. A nil template
// is allowed; days without an override then count as non-working.
func AggregateWeek(in WeekInput) (Week, error) {
	start := DateOf(in.WeekStart)
	if !IsMonday(start) {
		return Week{}, ErrNotMonday
	}

	week := Week{Start: start, End: WeekEnd(start), Days: make([]DayRecord, 0, len(Weekdays))}
	for i := range Weekdays {
		date := start.AddDate(0, 0, i)
		key := FormatDate(date)

		var override *Override
		if o, ok := in.Overrides[key]; ok {
			override = &o
		}

		record := DayRecord{Date: date, Weekday: WeekdayName(date), Source: SourceTemplate}
		res, err := ResolveDay(date, override, in.Template)
		if err != nil || !res.Working {
			if err == nil {
				record.Source = res.Source
			}
			record.Available = []Slot{}
			record.Booked = []BookedAppointment{}
			week.Days = append(week.Days, record)
			continue
		}

		bookings := activeBookings(in.Bookings[key])
		generated := GenerateSlots(res.Window, res.SlotDuration)
		window := res.Window

		record.IsWorkingDay = true
		record.Source = res.Source
		record.Window = &window
		record.Available = FilterBooked(generated, bookings)
		record.Booked = renderBookings(bookings, in.CustomerName)
		record.generated = len(generated)

		week.Summary.TotalWorkingDays++
		week.Summary.TotalAvailableSlots += record.TotalSlots()
		week.Summary.TotalBookedSlots += record.BookedSlots()
		week.Days = append(week.Days, record)
	}
	return week, nil
}

func activeBookings(bookings []Booking) []Booking {
	out := make([]Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.Blocks() {
			out = append(out, b)
		}
	}
	return out
}

func renderBookings(bookings []Booking, lookup func(string) (string, bool)) []BookedAppointment {
	out := make([]BookedAppointment, 0, len(bookings))
	for _, b := range bookings {
		name := UnknownCustomer
		if lookup != nil {
			if resolved, ok := lookup(b.CustomerID); ok && resolved != "" {
				name = resolved
			}
		}
		out = append(out, BookedAppointment{
			ID:           b.ID,
			Start:        b.Start,
			End:          b.End,
			Status:       b.Status,
			CustomerName: name,
		})
	}
	return out
}
