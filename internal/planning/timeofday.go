package planning

import (
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a clock time expressed in seconds since midnight.
type TimeOfDay int

const secondsPerHour = 3600

// Clock builds a TimeOfDay from hours and minutes.
func Clock(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*secondsPerHour + minute*60)
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	layout := "15:04"
	if strings.Count(s, ":") == 2 {
		layout = "15:04:05"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q (want HH:MM)", s)
	}
	return TimeOfDay(t.Hour()*secondsPerHour + t.Minute()*60 + t.Second()), nil
}

// String formats as HH:MM. Seconds are dropped, not rounded.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/secondsPerHour, int(t)%secondsPerHour/60)
}

// add returns t advanced by a fractional number of hours, truncated to
// whole seconds.
func (t TimeOfDay) add(hours float64) TimeOfDay {
	return t + TimeOfDay(int(hours*secondsPerHour))
}

// TimeInterval is a same-day clock range. Valid intervals have Start < End.
type TimeInterval struct {
	Start TimeOfDay
	End   TimeOfDay
}

func (iv TimeInterval) Valid() bool {
	return iv.Start < iv.End
}

func (iv TimeInterval) Hours() float64 {
	return float64(iv.End-iv.Start) / secondsPerHour
}

// Contains reports whether o lies entirely within iv.
func (iv TimeInterval) Contains(o TimeInterval) bool {
	return o.Start >= iv.Start && o.End <= iv.End
}

// Overlaps reports whether the two intervals share any time.
func (iv TimeInterval) Overlaps(o TimeInterval) bool {
	return iv.Start < o.End && o.Start < iv.End
}

func (iv TimeInterval) String() string {
	return iv.Start.String() + "-" + iv.End.String()
}

// Subtract removes busy from free and returns what is left, in order.
func Subtract(free, busy TimeInterval) []TimeInterval {
	switch {
	case busy.End <= free.Start || busy.Start >= free.End:
		return []TimeInterval{free}
	case busy.Start <= free.Start && busy.End >= free.End:
		return nil
	case busy.Start > free.Start && busy.End < free.End:
		return []TimeInterval{
			{Start: free.Start, End: busy.Start},
			{Start: busy.End, End: free.End},
		}
	case busy.Start <= free.Start:
		return []TimeInterval{{Start: busy.End, End: free.End}}
	default:
		return []TimeInterval{{Start: free.Start, End: busy.Start}}
	}
}

// subtractAll applies Subtract to every interval of a set.
func subtractAll(free []TimeInterval, busy TimeInterval) []TimeInterval {
	out := make([]TimeInterval, 0, len(free)+1)
	for _, f := range free {
		out = append(out, Subtract(f, busy)...)
	}
	return out
}
