package availability

import (
	"errors"
	"fmt"
	"time"
)

const minutesPerDay = 24 * 60

var ErrInvalidTimeFormat = errors.New("invalid time format")

// MinutesOfDay parses an "HH:MM" wall-clock time into minutes since midnight.
func MinutesOfDay(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	h, okH := twoDigits(s[0], s[1])
	m, okM := twoDigits(s[3], s[4])
	if !okH || !okM || h > 23 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	return h*60 + m, nil
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// TimeString formats minutes since midnight as "HH:MM". Negative input floors at 00:00.
func TimeString(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Overlaps reports whether the half-open intervals [s1,e1) and [s2,e2) intersect.
// Intervals that only touch (e1 == s2) do not overlap.
func Overlaps(s1, e1, s2, e2 int) bool {
	return s1 < e2 && s2 < e1
}

// OverlapMinutes returns the length of the intersection of [s1,e1) and [s2,e2).
func OverlapMinutes(s1, e1, s2, e2 int) int {
	lo := max(s1, s2)
	hi := min(e1, e2)
	if hi <= lo {
		return 0
	}
	return hi - lo
}

func AddMinutes(minutes, delta int) int {
	return minutes + delta
}

// SubtractMinutes never returns a negative minute.
func SubtractMinutes(minutes, delta int) int {
	return max(minutes-delta, 0)
}

// Date is a civil calendar date with no time-of-day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// ParseDate parses a "YYYY-MM-DD" string and rejects impossible dates such as 2026-02-30.
func ParseDate(s string) (Date, error) {
	if len(s) != len(dateLayout) {
		return Date{}, fmt.Errorf("%w: date %q", ErrInvalidInput, s)
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: date %q", ErrInvalidInput, s)
	}
	return DateOf(t), nil
}

func IsValidCalendarDate(s string) bool {
	_, err := ParseDate(s)
	return err == nil
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	return d.midnight().Format(dateLayout)
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.midnight().AddDate(0, 0, n))
}

func (d Date) Before(o Date) bool {
	return d.midnight().Before(o.midnight())
}

func (d Date) After(o Date) bool {
	return d.midnight().After(o.midnight())
}

// DayOfWeek returns 0 for Sunday through 6 for Saturday.
func DayOfWeek(d Date) int {
	return int(d.midnight().Weekday())
}
