package plan

import (
	"fmt"
	"sort"
	"time"

	"github.com/christopherklint97/studyr/internal/ai"
	"github.com/christopherklint97/studyr/internal/planning"
)

// Violation marks a session that cannot be scheduled as proposed.
type Violation struct {
	Index   int
	Session ai.Session
	Reason  string
}

func (v Violation) String() string {
	s := v.Session
	return fmt.Sprintf("#%d %s %s-%s %s: %s", v.Index+1, s.Date, s.Start, s.End, s.Module, v.Reason)
}

type parsed struct {
	index int
	date  time.Time
	iv    planning.TimeInterval
}

func parse(s ai.Session) (time.Time, planning.TimeInterval, error) {
	date, err := time.Parse(planning.DateLayout, s.Date)
	if err != nil {
		return time.Time{}, planning.TimeInterval{}, fmt.Errorf("invalid date %q", s.Date)
	}
	start, err := planning.ParseTimeOfDay(s.Start)
	if err != nil {
		return time.Time{}, planning.TimeInterval{}, err
	}
	end, err := planning.ParseTimeOfDay(s.End)
	if err != nil {
		return time.Time{}, planning.TimeInterval{}, err
	}
	return date, planning.TimeInterval{Start: start, End: end}, nil
}

// Check verifies that every session is well formed, lies inside one free
// slot and does not overlap another session. At most one violation is
// reported per session.
func Check(sessions []ai.Session, slots []planning.FreeSlot) []Violation {
	byDate := make(map[time.Time][]planning.TimeInterval)
	for _, sl := range slots {
		d := planning.DateOf(sl.Date)
		byDate[d] = append(byDate[d], sl.Interval())
	}

	var out []Violation
	var ok []parsed
	for i, s := range sessions {
		date, iv, err := parse(s)
		reason := ""
		switch {
		case err != nil:
			reason = err.Error()
		case !iv.Valid():
			reason = "end time is not after start time"
		case !insideAny(iv, byDate[date]):
			reason = "not inside a free slot"
		}
		if reason != "" {
			out = append(out, Violation{Index: i, Session: s, Reason: reason})
			continue
		}
		ok = append(ok, parsed{index: i, date: date, iv: iv})
	}

	sort.SliceStable(ok, func(a, b int) bool {
		if !ok[a].date.Equal(ok[b].date) {
			return ok[a].date.Before(ok[b].date)
		}
		return ok[a].iv.Start < ok[b].iv.Start
	})
	for k := 1; k < len(ok); k++ {
		prev, cur := ok[k-1], ok[k]
		if prev.date.Equal(cur.date) && prev.iv.Overlaps(cur.iv) {
			out = append(out, Violation{
				Index:   cur.index,
				Session: sessions[cur.index],
				Reason:  fmt.Sprintf("overlaps session #%d", prev.index+1),
			})
			// keep the longer reach so a later session is compared against it
			if prev.iv.End > cur.iv.End {
				ok[k] = prev
			}
		}
	}

	sort.SliceStable(out, func(a, b int) bool { return out[a].Index < out[b].Index })
	return out
}

func insideAny(iv planning.TimeInterval, free []planning.TimeInterval) bool {
	for _, f := range free {
		if f.Contains(iv) {
			return true
		}
	}
	return false
}

// Keep returns the sessions without violations, in their original order.
func Keep(sessions []ai.Session, violations []Violation) []ai.Session {
	bad := make(map[int]bool, len(violations))
	for _, v := range violations {
		bad[v.Index] = true
	}
	out := make([]ai.Session, 0, len(sessions))
	for i, s := range sessions {
		if !bad[i] {
			out = append(out, s)
		}
	}
	return out
}

// Sort orders sessions by date, then start time.
func Sort(sessions []ai.Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].Date != sessions[j].Date {
			return sessions[i].Date < sessions[j].Date
		}
		return sessions[i].Start < sessions[j].Start
	})
}

// Day is the sessions of one date.
type Day struct {
	Date     time.Time
	Sessions []ai.Session
}

// GroupByDate groups sessions per day in chronological order. Sessions
// with an unparsable date are dropped.
func GroupByDate(sessions []ai.Session) []Day {
	sorted := make([]ai.Session, len(sessions))
	copy(sorted, sessions)
	Sort(sorted)

	var days []Day
	for _, s := range sorted {
		d, err := time.Parse(planning.DateLayout, s.Date)
		if err != nil {
			continue
		}
		if n := len(days); n > 0 && days[n-1].Date.Equal(d) {
			days[n-1].Sessions = append(days[n-1].Sessions, s)
			continue
		}
		days = append(days, Day{Date: d, Sessions: []ai.Session{s}})
	}
	return days
}

// Duration returns the length of a session.
func Duration(s ai.Session) (time.Duration, error) {
	_, iv, err := parse(s)
	if err != nil {
		return 0, err
	}
	if !iv.Valid() {
		return 0, fmt.Errorf("end time %s is not after start time %s", s.End, s.Start)
	}
	return time.Duration(iv.End-iv.Start) * time.Second, nil
}

// TotalHours sums the duration of all well-formed sessions.
func TotalHours(sessions []ai.Session) float64 {
	var total time.Duration
	for _, s := range sessions {
		if d, err := Duration(s); err == nil {
			total += d
		}
	}
	return planning.RoundHours(total.Hours())
}

// HoursByModule sums session hours per module.
func HoursByModule(sessions []ai.Session) map[string]float64 {
	out := make(map[string]float64)
	for _, s := range sessions {
		if d, err := Duration(s); err == nil {
			out[s.Module] += d.Hours()
		}
	}
	for m, h := range out {
		out[m] = planning.RoundHours(h)
	}
	return out
}

// Start returns the start of a session as a time in loc.
func Start(s ai.Session, loc *time.Location) (time.Time, error) {
	date, iv, err := parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc).Add(time.Duration(iv.Start) * time.Second), nil
}

// End returns the end of a session as a time in loc.
func End(s ai.Session, loc *time.Location) (time.Time, error) {
	date, iv, err := parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc).Add(time.Duration(iv.End) * time.Second), nil
}
