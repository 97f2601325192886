// Date/Time conversions between the engine's internal grids (days
// since 1970-01-01 for Date, milliseconds since midnight for Time) and
// Go's time.Time, plus ISO-8601 parsing/formatting for the JSON and
// HTTP front ends (spec §6).
package wgdb

import (
	"fmt"
	"time"
)

// DateFromYMD converts a calendar date to the internal day-count
// representation (spec "Date stores a signed day count from the
// documented epoch 1970-01-01").
func DateFromYMD(year int, month, day int) int32 {
	epoch := time.Date(dateEpochYear, time.Month(dateEpochMonth), dateEpochDay, 0, 0, 0, 0, time.UTC)
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return int32(t.Sub(epoch).Hours() / 24)
}

// DateToYMD converts a Date word's day count back to a calendar date.
func DateToYMD(days int32) (year int, month int, day int) {
	epoch := time.Date(dateEpochYear, time.Month(dateEpochMonth), dateEpochDay, 0, 0, 0, 0, time.UTC)
	t := epoch.AddDate(0, 0, int(days))
	y, m, d := t.Date()
	return y, int(m), d
}

// TimeFromHMS converts a time-of-day to the internal millisecond grid
// (timeGridMillis resolution).
func TimeFromHMS(hour, minute, second, millis int) int32 {
	total := ((hour*60+minute)*60+second)*1000 + millis
	return int32(total / timeGridMillis * timeGridMillis)
}

// TimeToHMS converts a Time word's millisecond count back to hour,
// minute, second and millisecond components.
func TimeToHMS(ms int32) (hour, minute, second, millis int) {
	total := int(ms)
	millis = total % 1000
	total /= 1000
	second = total % 60
	total /= 60
	minute = total % 60
	total /= 60
	hour = total
	return
}

// NowDate and NowTime split the current UTC time into the engine's
// two internal grids, mirroring how a single timestamp field is split
// across a Date word and a Time word when a schema wants both.
func NowDate() int32 {
	now := time.Now().UTC()
	return DateFromYMD(now.Year(), int(now.Month()), now.Day())
}

func NowTime() int32 {
	now := time.Now().UTC()
	return TimeFromHMS(now.Hour(), now.Minute(), now.Second(), now.Nanosecond()/1e6)
}

// FormatDate renders a Date word's day count as YYYY-MM-DD.
func FormatDate(days int32) string {
	y, m, d := DateToYMD(days)
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d)
}

// FormatTime renders a Time word's millisecond count as HH:MM:SS.mmm.
func FormatTime(ms int32) string {
	h, mi, se, mil := TimeToHMS(ms)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, mi, se, mil)
}

// ParseDate parses a YYYY-MM-DD string into the internal day count.
func ParseDate(s string) (int32, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return 0, fmt.Errorf("wgdb: invalid date %q: %w", s, err)
	}
	return DateFromYMD(t.Year(), int(t.Month()), t.Day()), nil
}

// ParseTime parses an HH:MM:SS[.mmm] string into the internal
// millisecond-since-midnight count.
func ParseTime(s string) (int32, error) {
	layout := "15:04:05"
	if len(s) > 8 {
		layout = "15:04:05.000"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, fmt.Errorf("wgdb: invalid time %q: %w", s, err)
	}
	return TimeFromHMS(t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/1e6), nil
}
