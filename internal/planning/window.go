package planning

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// MaxHorizonDays caps the distance between start and end date.
	MaxHorizonDays = 365
	// MinSlotHours is the shortest slot ever emitted, whatever the
	// configured minimum session length.
	MinSlotHours = 0.25
)

var (
	ErrMissingDates      = errors.New("start and end date must both be set")
	ErrStartNotBeforeEnd = errors.New("start date must be before end date")
	ErrHorizonTooLong    = fmt.Errorf("planning horizon must not exceed %d days", MaxHorizonDays)
	ErrHorizonTooShort   = errors.New("planning horizon must be at least 1 day")
)

// Window is the planning horizon plus the constraints applied to each day.
type Window struct {
	Start time.Time
	End   time.Time
	// Day bounds the clock time available for study on any day.
	Day             TimeInterval
	RestDays        []Weekday
	MaxHoursDay     float64
	MaxHoursWeek    *float64 // nil means unlimited
	MinSessionHours float64
}

// Validate checks the preconditions of a computation.
func (w Window) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return ErrMissingDates
	}
	start, end := DateOf(w.Start), DateOf(w.End)
	if !start.Before(end) {
		return fmt.Errorf("%w (start %s, end %s)", ErrStartNotBeforeEnd, start.Format(DateLayout), end.Format(DateLayout))
	}
	days := daysBetween(start, end)
	if days > MaxHorizonDays {
		return fmt.Errorf("%w (got %d)", ErrHorizonTooLong, days)
	}
	if days < 1 {
		return ErrHorizonTooShort
	}
	return nil
}

// Days returns the number of days between start and end date.
func (w Window) Days() int {
	return daysBetween(DateOf(w.Start), DateOf(w.End))
}

// WeeklyCap returns a pointer suitable for MaxHoursWeek, mapping
// non-positive values to unlimited.
func WeeklyCap(hours float64) *float64 {
	if hours <= 0 {
		return nil
	}
	return &hours
}

// DateLayout is the ISO date format used in all records.
const DateLayout = "2006-01-02"

// DateOf strips the clock part of t and returns midnight UTC of the same
// calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WeekStart returns the Monday of the week containing t.
func WeekStart(t time.Time) time.Time {
	d := DateOf(t)
	return d.AddDate(0, 0, -int(WeekdayOf(d)))
}

func daysBetween(start, end time.Time) int {
	return int(end.Sub(start).Hours() / 24)
}

// Period is a coarse time-of-day preference.
type Period int

const (
	Morning Period = iota
	Afternoon
	Evening
)

var periodNames = map[string]Period{
	"morning":    Morning,
	"morgen":     Morning,
	"vormittag":  Morning,
	"afternoon":  Afternoon,
	"nachmittag": Afternoon,
	"evening":    Evening,
	"abend":      Evening,
}

func (p Period) String() string {
	switch p {
	case Morning:
		return "morning"
	case Afternoon:
		return "afternoon"
	case Evening:
		return "evening"
	}
	return fmt.Sprintf("period(%d)", int(p))
}

// ParsePeriod accepts English or German names.
func ParsePeriod(s string) (Period, error) {
	if p, ok := periodNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return p, nil
	}
	return 0, fmt.Errorf("unknown time of day %q (want morning, afternoon or evening)", s)
}

// DayBounds resolves a set of preferred periods to the daily study window.
func DayBounds(periods []Period) TimeInterval {
	set := make(map[Period]bool, len(periods))
	for _, p := range periods {
		set[p] = true
	}
	has := func(ps ...Period) bool {
		if len(set) != len(ps) {
			return false
		}
		for _, p := range ps {
			if !set[p] {
				return false
			}
		}
		return true
	}

	switch {
	case len(set) == 0:
		return TimeInterval{Start: Clock(8, 0), End: Clock(20, 0)}
	case has(Morning):
		return TimeInterval{Start: Clock(7, 0), End: Clock(12, 0)}
	case has(Afternoon):
		return TimeInterval{Start: Clock(12, 0), End: Clock(18, 0)}
	case has(Evening):
		return TimeInterval{Start: Clock(17, 0), End: Clock(22, 0)}
	case has(Morning, Afternoon):
		return TimeInterval{Start: Clock(7, 0), End: Clock(18, 0)}
	case has(Afternoon, Evening):
		return TimeInterval{Start: Clock(12, 0), End: Clock(22, 0)}
	default:
		return TimeInterval{Start: Clock(7, 0), End: Clock(22, 0)}
	}
}
