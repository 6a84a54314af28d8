package domain

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-day layout used by price files, configs and CLIs.
const DateLayout = "2006-01-02"

// PriceBar represents one daily OHLCV bar.
// Series are ordered by Date ASC with no duplicate dates.
type PriceBar struct {
	Date   time.Time // calendar day, UTC midnight
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// WeeklyBar aggregates PriceBars sharing an ISO week key.
type WeeklyBar struct {
	Key    string    // ISO week key, e.g. "2024-W07"
	Start  time.Time // first daily date in the bucket
	End    time.Time // last daily date in the bucket
	Open   float64
	High   float64
	Low    float64
	Close  float64 // last daily close in the bucket
	Volume float64
}

// WeekKey returns the ISO week key of a date.
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// ParseDate parses a YYYY-MM-DD calendar day as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// MustParseDate is ParseDate for literals known to be valid.
func MustParseDate(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
