package climate

import "time"

var gregorianMonthDays = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// IsLeapYear reports whether year is a leap year under the calendar.
// Fixed-length calendars never have leap years.
func (c Calendar) IsLeapYear(year int) bool {
	if c != CalendarGregorian {
		return false
	}
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInMonth returns the number of days in the given month of the given
// year under the calendar.
func (c Calendar) DaysInMonth(year int, month time.Month) int {
	switch c {
	case Calendar360Day:
		return 30
	default:
		if month == time.February && c.IsLeapYear(year) {
			return 29
		}
		return gregorianMonthDays[month-1]
	}
}

// DaysInYear returns the actual number of days in the given year. For
// Gregorian leap years this is 366 even though the day-of-year index folds
// to 365 positions.
func (c Calendar) DaysInYear(year int) int {
	switch c {
	case Calendar360Day:
		return 360
	default:
		if c.IsLeapYear(year) {
			return 366
		}
		return 365
	}
}

// ValidDate reports whether d is a representable date under the calendar.
func (c Calendar) ValidDate(d Date) bool {
	if d.Month < time.January || d.Month > time.December || d.Day < 1 {
		return false
	}
	return d.Day <= c.DaysInMonth(d.Year, d.Month)
}

// rawDayOfYear is the 1-based ordinal of d within its year, counting every
// real day including leap days.
func (c Calendar) rawDayOfYear(d Date) int {
	doy := d.Day
	for m := time.January; m < d.Month; m++ {
		doy += c.DaysInMonth(d.Year, m)
	}
	return doy
}

// DayOfYear returns the folded 1-based day-of-year index of d. In Gregorian
// leap years February 29 shares index 59 with February 28, so March 1 is
// always 60 and December 31 is always 365. The index never exceeds
// DaysPerYear().
func (c Calendar) DayOfYear(d Date) int {
	doy := c.rawDayOfYear(d)
	if c == CalendarGregorian && c.IsLeapYear(d.Year) && doy >= 60 {
		return doy - 1
	}
	return doy
}

// Next returns the day after d.
func (c Calendar) Next(d Date) Date {
	if d.Day < c.DaysInMonth(d.Year, d.Month) {
		return Date{Year: d.Year, Month: d.Month, Day: d.Day + 1}
	}
	if d.Month < time.December {
		return Date{Year: d.Year, Month: d.Month + 1, Day: 1}
	}
	return Date{Year: d.Year + 1, Month: time.January, Day: 1}
}

// YearStart returns January 1 of the given year.
func (c Calendar) YearStart(year int) Date {
	return Date{Year: year, Month: time.January, Day: 1}
}

// YearEnd returns the last day of the given year.
func (c Calendar) YearEnd(year int) Date {
	return Date{Year: year, Month: time.December, Day: c.DaysInMonth(year, time.December)}
}

// DaysBetween returns the number of real days from a to b; zero when equal,
// negative when b precedes a. Leap days count as real days here because
// they occupy positions in a daily series.
func (c Calendar) DaysBetween(a, b Date) int {
	if b.Before(a) {
		return -c.DaysBetween(b, a)
	}
	days := 0
	for y := a.Year; y < b.Year; y++ {
		days += c.DaysInYear(y)
	}
	return days + c.rawDayOfYear(b) - c.rawDayOfYear(a)
}

// season returns the meteorological season of a month and the year shift
// applied to keep seasons contiguous: December belongs to the following
// year's DJF.
func season(m time.Month) (name string, yearShift int) {
	switch m {
	case time.December:
		return "DJF", 1
	case time.January, time.February:
		return "DJF", 0
	case time.March, time.April, time.May:
		return "MAM", 0
	case time.June, time.July, time.August:
		return "JJA", 0
	case time.September, time.October, time.November:
		return "SON", 0
	default:
		return "", 0
	}
}

// halfYear returns the half-year bucket of a month and its year shift:
// October through December belong to the following year's ONDJFM.
func halfYear(m time.Month) (name string, yearShift int) {
	switch m {
	case time.October, time.November, time.December:
		return "ONDJFM", 1
	case time.January, time.February, time.March:
		return "ONDJFM", 0
	default:
		return "AMJJAS", 0
	}
}
