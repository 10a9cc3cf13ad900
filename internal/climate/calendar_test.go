package climate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCalendar(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Calendar
		wantErr bool
	}{
		{name: "gregorian", input: "gregorian", want: CalendarGregorian},
		{name: "standard alias", input: "standard", want: CalendarGregorian},
		{name: "proleptic alias", input: "proleptic_gregorian", want: CalendarGregorian},
		{name: "365 day", input: "365_day", want: Calendar365Day},
		{name: "noleap alias", input: "noleap", want: Calendar365Day},
		{name: "360 day", input: "360_day", want: Calendar360Day},
		{name: "julian rejected", input: "julian", wantErr: true},
		{name: "empty rejected", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCalendar(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalendar_DaysPerYear(t *testing.T) {
	assert.Equal(t, 365, CalendarGregorian.DaysPerYear())
	assert.Equal(t, 365, Calendar365Day.DaysPerYear())
	assert.Equal(t, 360, Calendar360Day.DaysPerYear())
}

func TestCalendar_IsLeapYear(t *testing.T) {
	assert.True(t, CalendarGregorian.IsLeapYear(2000))
	assert.True(t, CalendarGregorian.IsLeapYear(1996))
	assert.False(t, CalendarGregorian.IsLeapYear(1900))
	assert.False(t, CalendarGregorian.IsLeapYear(2001))

	// Fixed-length calendars never have leap years.
	assert.False(t, Calendar365Day.IsLeapYear(2000))
	assert.False(t, Calendar360Day.IsLeapYear(2000))
}

func TestCalendar_DayOfYear_LeapFolding(t *testing.T) {
	tests := []struct {
		name string
		date Date
		want int
	}{
		{name: "jan 1", date: NewDate(2000, time.January, 1), want: 1},
		{name: "feb 28 leap year", date: NewDate(2000, time.February, 28), want: 59},
		{name: "feb 29 folds onto feb 28", date: NewDate(2000, time.February, 29), want: 59},
		{name: "mar 1 leap year", date: NewDate(2000, time.March, 1), want: 60},
		{name: "dec 31 leap year", date: NewDate(2000, time.December, 31), want: 365},
		{name: "feb 28 common year", date: NewDate(2001, time.February, 28), want: 59},
		{name: "mar 1 common year", date: NewDate(2001, time.March, 1), want: 60},
		{name: "dec 31 common year", date: NewDate(2001, time.December, 31), want: 365},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalendarGregorian.DayOfYear(tt.date))
		})
	}
}

func TestCalendar_DayOfYear_FixedCalendars(t *testing.T) {
	assert.Equal(t, 60, Calendar365Day.DayOfYear(NewDate(2000, time.March, 1)))
	assert.Equal(t, 365, Calendar365Day.DayOfYear(NewDate(2000, time.December, 31)))

	// Twelve 30-day months.
	assert.Equal(t, 30, Calendar360Day.DayOfYear(NewDate(2000, time.January, 30)))
	assert.Equal(t, 60, Calendar360Day.DayOfYear(NewDate(2000, time.February, 30)))
	assert.Equal(t, 360, Calendar360Day.DayOfYear(NewDate(2000, time.December, 30)))
}

func TestCalendar_ValidDate(t *testing.T) {
	assert.True(t, CalendarGregorian.ValidDate(NewDate(2000, time.February, 29)))
	assert.False(t, CalendarGregorian.ValidDate(NewDate(2001, time.February, 29)))
	assert.False(t, Calendar365Day.ValidDate(NewDate(2000, time.February, 29)))

	assert.True(t, Calendar360Day.ValidDate(NewDate(2001, time.February, 30)))
	assert.False(t, Calendar360Day.ValidDate(NewDate(2001, time.January, 31)))

	assert.False(t, CalendarGregorian.ValidDate(Date{Year: 2001, Month: 13, Day: 1}))
	assert.False(t, CalendarGregorian.ValidDate(Date{Year: 2001, Month: time.April, Day: 0}))
}

func TestCalendar_Next_CrossesBoundaries(t *testing.T) {
	assert.Equal(t, NewDate(2000, time.February, 29), CalendarGregorian.Next(NewDate(2000, time.February, 28)))
	assert.Equal(t, NewDate(2001, time.March, 1), CalendarGregorian.Next(NewDate(2001, time.February, 28)))
	assert.Equal(t, NewDate(2002, time.January, 1), CalendarGregorian.Next(NewDate(2001, time.December, 31)))
	assert.Equal(t, NewDate(2001, time.March, 1), Calendar360Day.Next(NewDate(2001, time.February, 30)))
	assert.Equal(t, NewDate(2002, time.January, 1), Calendar360Day.Next(NewDate(2001, time.December, 30)))
}

func TestCalendar_Next_CoversWholeYear(t *testing.T) {
	tests := []struct {
		name     string
		calendar Calendar
		year     int
		want     int
	}{
		{name: "gregorian common", calendar: CalendarGregorian, year: 2001, want: 365},
		{name: "gregorian leap", calendar: CalendarGregorian, year: 2000, want: 366},
		{name: "365 day", calendar: Calendar365Day, year: 2000, want: 365},
		{name: "360 day", calendar: Calendar360Day, year: 2000, want: 360},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.calendar.YearStart(tt.year)
			count := 0
			for d.Year == tt.year {
				count++
				d = tt.calendar.Next(d)
			}
			assert.Equal(t, tt.want, count)
			assert.Equal(t, tt.calendar.YearStart(tt.year+1), d)
		})
	}
}

func TestCalendar_DaysBetween(t *testing.T) {
	assert.Equal(t, 0, CalendarGregorian.DaysBetween(NewDate(2001, time.March, 1), NewDate(2001, time.March, 1)))
	assert.Equal(t, 1, CalendarGregorian.DaysBetween(NewDate(2001, time.February, 28), NewDate(2001, time.March, 1)))

	// Leap days are real positions on the axis.
	assert.Equal(t, 2, CalendarGregorian.DaysBetween(NewDate(2000, time.February, 28), NewDate(2000, time.March, 1)))
	assert.Equal(t, 366, CalendarGregorian.DaysBetween(NewDate(2000, time.January, 1), NewDate(2001, time.January, 1)))
	assert.Equal(t, 360, Calendar360Day.DaysBetween(NewDate(2000, time.January, 1), NewDate(2001, time.January, 1)))

	assert.Equal(t, -1, CalendarGregorian.DaysBetween(NewDate(2001, time.March, 1), NewDate(2001, time.February, 28)))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2001-02-28")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2001, time.February, 28), d)
	assert.Equal(t, "2001-02-28", d.String())

	for _, bad := range []string{"", "2001-2-28", "20010228", "2001-13-01", "2001-00-10", "abcd-01-01", "2001-01-xy"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestDate_Ordering(t *testing.T) {
	a := NewDate(2001, time.May, 10)
	b := NewDate(2001, time.May, 11)
	c := NewDate(2002, time.January, 1)

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.True(t, b.Before(c))
	assert.False(t, a.Before(a))
}
