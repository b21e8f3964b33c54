package parse

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MinutesPerDay is the exclusive upper bound of a minute-of-day value; "24:00" parses to it.
const MinutesPerDay = 24 * 60

const (
	clockLayout = "15:04"
	dateLayout  = "2006-01-02"
)

var (
	ErrInvalidClock = errors.New("invalid time of day, expected HH:MM")
	ErrInvalidDate  = errors.New("invalid date, expected YYYY-MM-DD")
)

// ParseClock converts an "HH:MM" string into minutes since midnight.
// "24:00" is accepted so a booking can run until the end of the day.
func ParseClock(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "24:00" {
		return MinutesPerDay, nil
	}
	if len(s) != len(clockLayout) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders a minute-of-day value as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseDate validates a calendar date and returns it normalised to YYYY-MM-DD.
func ParseDate(raw string) (string, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return t.Format(dateLayout), nil
}

// DateTime anchors a minute-of-day on a YYYY-MM-DD date in loc as wall-clock
// time, so a 14:00 booking stays at 14:00 on daylight-saving transition days.
func DateTime(date string, minutes int, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, loc), nil
}
