package calendar

import (
	"time"

	"github.com/teambition/rrule-go"

	"github.com/christopherklint97/studyr/internal/planning"
	"github.com/christopherklint97/studyr/internal/setup"
)

const clockLayout = "15:04"

// ToConstraints sorts imported events into setup records. Weekly
// recurring events become busy times, all-day and multi-day events become
// absences. Everything else is returned as ignored.
func ToConstraints(events []Event) ([]setup.BusyTime, []setup.Absence, []Event) {
	var busy []setup.BusyTime
	var absences []setup.Absence
	var ignored []Event

	for _, e := range events {
		switch {
		case e.AllDay || spansDays(e):
			absences = append(absences, toAbsence(e))
		case e.Rule != nil:
			b, ok := toBusyTime(e)
			if !ok {
				ignored = append(ignored, e)
				continue
			}
			busy = append(busy, b)
		default:
			ignored = append(ignored, e)
		}
	}
	return busy, absences, ignored
}

// lastDay is the final calendar day an event touches. An end at midnight
// belongs to the previous day.
func lastDay(e Event) time.Time {
	end := e.EndTime
	h, m, sec := end.Clock()
	if end.After(e.StartTime) && h == 0 && m == 0 && sec == 0 {
		end = end.AddDate(0, 0, -1)
	}
	return planning.DateOf(end)
}

func spansDays(e Event) bool {
	return lastDay(e).After(planning.DateOf(e.StartTime))
}

func toAbsence(e Event) setup.Absence {
	return setup.Absence{
		Label: e.Summary,
		Start: e.StartTime.Format(planning.DateLayout),
		End:   lastDay(e).Format(planning.DateLayout),
	}
}

func toBusyTime(e Event) (setup.BusyTime, bool) {
	opt := e.Rule
	if opt.Freq != rrule.WEEKLY || opt.Interval > 1 {
		return setup.BusyTime{}, false
	}
	until := opt.Until
	if opt.Count > 0 {
		r, err := rrule.NewRRule(*opt)
		if err != nil {
			return setup.BusyTime{}, false
		}
		occurrences := r.All()
		if len(occurrences) == 0 {
			return setup.BusyTime{}, false
		}
		until = occurrences[len(occurrences)-1]
	}

	var days []string
	seen := make(map[planning.Weekday]bool)
	for _, wd := range opt.Byweekday {
		d := planning.Weekday(wd.Day())
		if !seen[d] {
			seen[d] = true
			days = append(days, d.Label(planning.LocaleGerman))
		}
	}
	if len(days) == 0 {
		days = []string{planning.WeekdayOf(e.StartTime).Label(planning.LocaleGerman)}
	}

	b := setup.BusyTime{
		Label:     e.Summary,
		Days:      days,
		Start:     e.StartTime.Format(clockLayout),
		End:       e.EndTime.Format(clockLayout),
		ValidFrom: e.StartTime.Format(planning.DateLayout),
	}
	if !until.IsZero() {
		b.ValidUntil = until.In(e.StartTime.Location()).Format(planning.DateLayout)
	}
	return b, true
}
