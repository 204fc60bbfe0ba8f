package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateWeek(t *testing.T) {
	monday := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)

	template := mondayTemplate()
	template.SlotDuration = 120
	template.WorkingDays[Monday] = WorkingDay{
		Start:       MustParseTimeOfDay("09:00"),
		End:         MustParseTimeOfDay("17:00"),
		BreakStart:  tod("12:00"),
		BreakEnd:    tod("13:00"),
		IsAvailable: true,
	}
	template.WorkingDays[Wednesday] = WorkingDay{Start: MustParseTimeOfDay("09:00"), End: MustParseTimeOfDay("11:00"), IsAvailable: true}
	template.WorkingDays[Friday] = WorkingDay{Start: MustParseTimeOfDay("09:00"), End: MustParseTimeOfDay("11:00"), IsAvailable: true}

	names := map[string]string{"cust-1": "Lan Nguyen"}
	input := WeekInput{
		WeekStart: monday,
		Template:  template,
		Overrides: map[string]Override{
			"2024-06-14": {IsAvailable: false},
			"2024-06-15": {IsAvailable: true, Start: tod("10:00"), End: tod("12:00")},
		},
		Bookings: map[string][]Booking{
			"2024-06-10": {
				{ID: "apt-1", CustomerID: "cust-1", Start: MustParseTimeOfDay("13:00"), End: MustParseTimeOfDay("15:00"), Status: "confirmed"},
				{ID: "apt-2", CustomerID: "cust-2", Start: MustParseTimeOfDay("15:00"), End: MustParseTimeOfDay("17:00"), Status: "pending"},
				{ID: "apt-3", CustomerID: "cust-1", Start: MustParseTimeOfDay("09:00"), End: MustParseTimeOfDay("11:00"), Status: StatusCancelled},
			},
		},
		CustomerName: func(id string) (string, bool) {
			name, ok := names[id]
			return name, ok
		},
	}

	week, err := AggregateWeek(input)
	require.NoError(t, err)
	require.Len(t, week.Days, 7)
	assert.Equal(t, monday, week.Start)
	assert.Equal(t, monday.AddDate(0, 0, 6), week.End)

	for i, day := range week.Days {
		assert.Equal(t, Weekdays[i], day.Weekday)
		assert.Equal(t, monday.AddDate(0, 0, i), day.Date)
	}

	mon := week.Days[0]
	assert.True(t, mon.IsWorkingDay)
	assert.Equal(t, []string{"09:00-11:00"}, slotStrings(mon.Available))
	require.Len(t, mon.Booked, 2, "cancelled bookings are not listed")
	assert.Equal(t, "Lan Nguyen", mon.Booked[0].CustomerName)
	assert.Equal(t, UnknownCustomer, mon.Booked[1].CustomerName)
	assert.Equal(t, 2, mon.BookedSlots())

	tue := week.Days[1]
	assert.False(t, tue.IsWorkingDay)
	assert.Empty(t, tue.Available)
	assert.NotNil(t, tue.Booked)

	fri := week.Days[4]
	assert.False(t, fri.IsWorkingDay, "unavailable override wins over template")
	assert.Equal(t, SourceOverride, fri.Source)

	sat := week.Days[5]
	assert.True(t, sat.IsWorkingDay, "available override opens a disabled weekday")
	assert.Equal(t, []string{"10:00-12:00"}, slotStrings(sat.Available))

	assert.Equal(t, Summary{TotalWorkingDays: 3, TotalAvailableSlots: 3, TotalBookedSlots: 2}, week.Summary)
}

func TestAggregateWeekRejectsNonMonday(t *testing.T) {
	_, err := AggregateWeek(WeekInput{WeekStart: time.Date(2024, time.June, 11, 0, 0, 0, 0, time.UTC), Template: mondayTemplate()})
	assert.ErrorIs(t, err, ErrNotMonday)
}

func TestAggregateWeekWithoutTemplate(t *testing.T) {
	week, err := AggregateWeek(WeekInput{WeekStart: time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, Summary{}, week.Summary)
	for _, day := range week.Days {
		assert.False(t, day.IsWorkingDay)
	}
}
