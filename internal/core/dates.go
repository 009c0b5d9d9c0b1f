package core

// dates.go parses the many date spellings found in employee data and turns
// them into the status labels shown in the directory.

import (
	"strings"
	"time"
)

// Labels produced by the date formatter.
const (
	DatePlaceholder     = "-"
	LabelEmployedSoon   = "Employed soon"
	LabelEmployed       = "Currently employed"
	LabelTerminatedSoon = "Will be terminated"
	LabelTerminated     = "Terminated"
)

// TwoDigitYearPivot defines how 2-digit years are interpreted. Years that
// would land more than this many years in the future belong to the
// previous century.
var TwoDigitYearPivot = 20

var (
	isoLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "January 2, 2006", "2 Jan 2006", "2 January 2006",
		"20060102",
	}
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
)

// ParseDate reads s in any supported layout. Date-only values are midnight
// UTC. Two-digit years pivot on the wall clock; use DateFormatter.ParseDate
// to pivot on an injected clock.
func ParseDate(s string) (time.Time, bool) {
	return ParseDateAt(s, SystemClock.Now())
}

// ParseDateAt is ParseDate with two-digit years pivoted on now.
func ParseDateAt(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	pivotYear := now.Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// IsDateLabel reports whether s is one of the formatter's own outputs.
// Import treats such cells as absent dates.
func IsDateLabel(s string) bool {
	switch strings.TrimSpace(s) {
	case DatePlaceholder, LabelEmployedSoon, LabelEmployed, LabelTerminatedSoon, LabelTerminated:
		return true
	}
	return false
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
var SystemClock Clock = systemClock{}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// DateFormatter turns stored dates into status labels relative to today.
// The zero value uses the system clock.
type DateFormatter struct {
	Clock Clock
}

func (f DateFormatter) now() time.Time {
	if f.Clock == nil {
		return SystemClock.Now()
	}
	return f.Clock.Now()
}

func (f DateFormatter) startOfToday() time.Time {
	now := f.now()
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// ParseDate parses s with two-digit years pivoted on the formatter's clock.
func (f DateFormatter) ParseDate(s string) (time.Time, bool) {
	return ParseDateAt(s, f.now())
}

// inFuture is strict: a date equal to the start of today is not future.
// Unparseable dates count as past.
func (f DateFormatter) inFuture(s string) bool {
	t, ok := f.ParseDate(s)
	return ok && t.After(f.startOfToday())
}

// FormatEmploymentDate labels a date of employment.
func (f DateFormatter) FormatEmploymentDate(date string) string {
	if blank(date) {
		return DatePlaceholder
	}
	if f.inFuture(date) {
		return LabelEmployedSoon
	}
	return LabelEmployed
}

// FormatTerminationDate labels a termination date.
func (f DateFormatter) FormatTerminationDate(date string) string {
	if blank(date) {
		return DatePlaceholder
	}
	if f.inFuture(date) {
		return LabelTerminatedSoon
	}
	return LabelTerminated
}

// FormatEmploymentDate labels a date of employment against the wall clock.
func FormatEmploymentDate(date string) string {
	return DateFormatter{}.FormatEmploymentDate(date)
}

// FormatTerminationDate labels a termination date against the wall clock.
func FormatTerminationDate(date string) string {
	return DateFormatter{}.FormatTerminationDate(date)
}
