package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    TimeOfDay
		wantErr bool
	}{
		{name: "midnight", input: "00:00", want: 0},
		{name: "padded", input: "09:05", want: 545},
		{name: "single digit hour", input: "9:30", want: 570},
		{name: "last minute", input: "23:59", want: 1439},
		{name: "surrounding spaces", input: " 12:00 ", want: 720},
		{name: "hour out of range", input: "24:00", wantErr: true},
		{name: "minute out of range", input: "10:60", wantErr: true},
		{name: "missing colon", input: "1000", wantErr: true},
		{name: "short minutes", input: "10:5", wantErr: true},
		{name: "letters", input: "ab:cd", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidTime)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimeOfDayRoundTrip(t *testing.T) {
	for m := TimeOfDay(0); m < MinutesPerDay; m++ {
		parsed, err := ParseTimeOfDay(m.String())
		require.NoError(t, err)
		require.Equal(t, m, parsed, "round trip of %s", m)
	}
}

func TestOverlaps(t *testing.T) {
	at := MustParseTimeOfDay
	tests := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd TimeOfDay
		want                       bool
	}{
		{"disjoint", at("09:00"), at("10:00"), at("11:00"), at("12:00"), false},
		{"touching end", at("09:00"), at("10:00"), at("10:00"), at("11:00"), false},
		{"touching start", at("10:00"), at("11:00"), at("09:00"), at("10:00"), false},
		{"partial", at("09:00"), at("10:30"), at("10:00"), at("11:00"), true},
		{"contained", at("09:00"), at("12:00"), at("10:00"), at("11:00"), true},
		{"identical", at("09:00"), at("10:00"), at("09:00"), at("10:00"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd))
			assert.Equal(t, tt.want, Overlaps(tt.bStart, tt.bEnd, tt.aStart, tt.aEnd), "overlap must be symmetric")
		})
	}
}

func TestCalendarHelpers(t *testing.T) {
	monday := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)
	sunday := monday.AddDate(0, 0, 6)

	assert.True(t, IsMonday(monday))
	assert.False(t, IsMonday(monday.AddDate(0, 0, 1)))
	assert.Equal(t, 1, ISOWeekday(monday))
	assert.Equal(t, 7, ISOWeekday(sunday))
	assert.Equal(t, Monday, WeekdayName(monday))
	assert.Equal(t, Sunday, WeekdayName(sunday))
	assert.Equal(t, sunday, WeekEnd(monday))
	assert.Equal(t, monday, WeekStartOf(sunday))
	assert.Equal(t, monday, WeekStartOf(time.Date(2024, time.June, 12, 17, 45, 0, 0, time.UTC)))

	parsed, err := ParseDate("2024-06-10")
	require.NoError(t, err)
	assert.Equal(t, monday, parsed)
	assert.Equal(t, "2024-06-10", FormatDate(parsed))

	_, err = ParseDate("10/06/2024")
	assert.Error(t, err)
}
