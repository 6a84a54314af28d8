package orders

import "time"

// easter returns Easter Sunday of a Gregorian year (anonymous computus).
func easter(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451

	month := (h + l - 7*m + 114) / 31
	day := ((h + l - 7*m + 114) % 31) + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// nthWeekday returns the nth (1-based) weekday of a month.
func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	date := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := int(weekday - date.Weekday())
	if offset < 0 {
		offset += 7
	}
	return date.AddDate(0, 0, offset+(n-1)*7)
}

// lastWeekday returns the last weekday of a month.
func lastWeekday(year int, month time.Month, weekday time.Weekday) time.Time {
	date := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
	offset := int(date.Weekday() - weekday)
	if offset < 0 {
		offset += 7
	}
	return date.AddDate(0, 0, -offset)
}

// observed moves a fixed-date holiday off the weekend:
// Saturday to Friday, Sunday to Monday.
func observed(date time.Time) time.Time {
	switch date.Weekday() {
	case time.Saturday:
		return date.AddDate(0, 0, -1)
	case time.Sunday:
		return date.AddDate(0, 0, 1)
	}
	return date
}

// USMarketHolidays returns the full-day NYSE closures of a year.
func USMarketHolidays(year int) []time.Time {
	holidays := make([]time.Time, 0, 10)

	// New Year's Day falling on Saturday is not observed on the prior Friday.
	newYear := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	if newYear.Weekday() != time.Saturday {
		holidays = append(holidays, observed(newYear))
	}

	holidays = append(holidays,
		nthWeekday(year, time.January, time.Monday, 3),  // Martin Luther King Jr. Day
		nthWeekday(year, time.February, time.Monday, 3), // Presidents Day
		easter(year).AddDate(0, 0, -2),                  // Good Friday
		lastWeekday(year, time.May, time.Monday),        // Memorial Day
	)

	// Juneteenth
	if year >= 2022 {
		holidays = append(holidays, observed(time.Date(year, 6, 19, 0, 0, 0, 0, time.UTC)))
	}

	holidays = append(holidays,
		observed(time.Date(year, 7, 4, 0, 0, 0, 0, time.UTC)),   // Independence Day
		nthWeekday(year, time.September, time.Monday, 1),        // Labor Day
		nthWeekday(year, time.November, time.Thursday, 4),       // Thanksgiving
		observed(time.Date(year, 12, 25, 0, 0, 0, 0, time.UTC)), // Christmas
	)

	return holidays
}

// IsBusinessDay reports whether the US equity market is open on the day.
func IsBusinessDay(day time.Time) bool {
	y, m, d := day.Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	for _, h := range USMarketHolidays(y) {
		if h.Equal(date) {
			return false
		}
	}
	return true
}

// NextBusinessDay returns the first business day strictly after day.
func NextBusinessDay(day time.Time) time.Time {
	y, m, d := day.Date()
	next := time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
	for !IsBusinessDay(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// AddBusinessDays advances n business days after day. n <= 0 returns day.
func AddBusinessDays(day time.Time, n int) time.Time {
	for i := 0; i < n; i++ {
		day = NextBusinessDay(day)
	}
	return day
}
