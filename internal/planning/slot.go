package planning

import (
	"math"
	"time"
)

// FreeSlot is one bookable interval on a calendar day.
type FreeSlot struct {
	Date    time.Time
	Weekday Weekday
	Start   TimeOfDay
	End     TimeOfDay
}

func (s FreeSlot) Interval() TimeInterval {
	return TimeInterval{Start: s.Start, End: s.End}
}

func (s FreeSlot) Hours() float64 {
	return s.Interval().Hours()
}

// Record is the serialized form of a FreeSlot handed to the plan generator.
type Record struct {
	Date  string  `json:"date"`
	Day   string  `json:"day"`
	Start string  `json:"start"`
	End   string  `json:"end"`
	Hours float64 `json:"hours"`
}

func (s FreeSlot) Record(l Locale) Record {
	return Record{
		Date:  s.Date.Format(DateLayout),
		Day:   s.Weekday.Label(l),
		Start: s.Start.String(),
		End:   s.End.String(),
		Hours: RoundHours(s.Hours()),
	}
}

// Records converts slots for serialization, keeping their order.
func Records(slots []FreeSlot, l Locale) []Record {
	out := make([]Record, len(slots))
	for i, s := range slots {
		out[i] = s.Record(l)
	}
	return out
}

// RoundHours rounds to two decimal places.
func RoundHours(h float64) float64 {
	return math.Round(h*100) / 100
}

func TotalHours(slots []FreeSlot) float64 {
	total := 0.0
	for _, s := range slots {
		total += s.Hours()
	}
	return RoundHours(total)
}

// AvailableDays counts the distinct dates that have at least one slot.
func AvailableDays(slots []FreeSlot) int {
	seen := make(map[time.Time]bool)
	for _, s := range slots {
		seen[DateOf(s.Date)] = true
	}
	return len(seen)
}
