package planning

import (
	"io"
	"log/slog"
	"math"
	"time"
)

// Calculator derives free study slots from a window and its constraints.
// It holds no state besides its logger and is safe for concurrent use.
type Calculator struct {
	logger *slog.Logger
}

func NewCalculator(logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Calculator{logger: logger}
}

// Compute runs a calculation with a silent logger.
func Compute(w Window, rules []BusyRule, absences []AbsencePeriod) ([]FreeSlot, error) {
	return NewCalculator(nil).Compute(w, rules, absences)
}

// Compute returns the free slots of every day in [w.Start, w.End], ordered
// by date and start time. Malformed rules and absences are skipped.
func (c *Calculator) Compute(w Window, rules []BusyRule, absences []AbsencePeriod) ([]FreeSlot, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	in, skipped := Sanitize(rules, absences)
	for _, s := range skipped {
		c.logger.Warn("skipping malformed record",
			"kind", s.Kind,
			"index", s.Index,
			"label", s.Label,
			"reason", s.Reason,
		)
	}

	start, end := DateOf(w.Start), DateOf(w.End)
	absent := absenceLookup(in.Absences, start, end)

	rulesByDay := make(map[Weekday][]BusyRule)
	for _, r := range in.Rules {
		rulesByDay[r.Weekday] = append(rulesByDay[r.Weekday], r)
	}

	rest := make(map[Weekday]bool, len(w.RestDays))
	for _, d := range w.RestDays {
		rest[d] = true
	}

	var slots []FreeSlot
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		wd := WeekdayOf(day)
		if rest[wd] || absent[day] {
			continue
		}

		var free []TimeInterval
		if w.Day.Valid() {
			free = []TimeInterval{w.Day}
		}
		for _, r := range rulesByDay[wd] {
			if !r.ActiveOn(day) {
				continue
			}
			free = subtractAll(free, r.Interval)
		}

		free = truncateToHours(free, w.MaxHoursDay)
		free = atLeast(free, w.MinSessionHours)

		for _, iv := range free {
			slots = append(slots, FreeSlot{Date: day, Weekday: wd, Start: iv.Start, End: iv.End})
		}
	}

	if w.MaxHoursWeek != nil && *w.MaxHoursWeek > 0 {
		slots = capWeekly(slots, *w.MaxHoursWeek)
	}

	slots = dropShorterThan(slots, math.Max(MinSlotHours, w.MinSessionHours))

	c.logger.Debug("free slots computed",
		"start", start.Format(DateLayout),
		"end", end.Format(DateLayout),
		"rules", len(in.Rules),
		"absences", len(in.Absences),
		"skipped", len(skipped),
		"slots", len(slots),
		"hours", TotalHours(slots),
	)
	return slots, nil
}

// absenceLookup marks every date in [from, to] covered by an absence.
func absenceLookup(absences []AbsencePeriod, from, to time.Time) map[time.Time]bool {
	days := make(map[time.Time]bool)
	for _, a := range absences {
		d, last := DateOf(a.Start), DateOf(a.End)
		if d.Before(from) {
			d = from
		}
		if last.After(to) {
			last = to
		}
		for ; !d.After(last); d = d.AddDate(0, 0, 1) {
			days[d] = true
		}
	}
	return days
}

// truncateToHours keeps intervals in order until their total reaches
// maxHours. The interval crossing the limit is shortened and everything
// after it is dropped.
func truncateToHours(free []TimeInterval, maxHours float64) []TimeInterval {
	var out []TimeInterval
	used := 0.0
	for _, iv := range free {
		if used >= maxHours {
			break
		}
		h := iv.Hours()
		if used+h <= maxHours {
			out = append(out, iv)
			used += h
			continue
		}
		out = append(out, TimeInterval{Start: iv.Start, End: iv.Start.add(maxHours - used)})
		break
	}
	return out
}

func atLeast(free []TimeInterval, minHours float64) []TimeInterval {
	out := free[:0:0]
	for _, iv := range free {
		if iv.Hours() >= minHours {
			out = append(out, iv)
		}
	}
	return out
}

// capWeekly applies the truncate-and-stop rule per Monday-anchored week.
// Slots must be in chronological order.
func capWeekly(slots []FreeSlot, maxHours float64) []FreeSlot {
	var out []FreeSlot
	var week time.Time
	used := 0.0
	full := false

	for _, s := range slots {
		if ws := WeekStart(s.Date); !ws.Equal(week) {
			week, used, full = ws, 0, false
		}
		if full {
			continue
		}
		h := s.Hours()
		if used+h <= maxHours {
			out = append(out, s)
			used += h
			continue
		}
		if used < maxHours {
			s.End = s.Start.add(maxHours - used)
			out = append(out, s)
		}
		full = true
	}
	return out
}

func dropShorterThan(slots []FreeSlot, minHours float64) []FreeSlot {
	out := slots[:0:0]
	for _, s := range slots {
		if s.Hours() >= minHours {
			out = append(out, s)
		}
	}
	return out
}
