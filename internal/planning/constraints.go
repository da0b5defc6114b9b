package planning

import (
	"time"
)

// BusyRule is a recurring weekly commitment. Nil validity bounds leave
// the rule active for the whole horizon; both bounds are inclusive.
type BusyRule struct {
	Label      string
	Weekday    Weekday
	Interval   TimeInterval
	ValidFrom  *time.Time
	ValidUntil *time.Time
}

// ActiveOn reports whether the rule's validity window covers date.
func (r BusyRule) ActiveOn(date time.Time) bool {
	d := DateOf(date)
	if r.ValidFrom != nil && d.Before(DateOf(*r.ValidFrom)) {
		return false
	}
	if r.ValidUntil != nil && d.After(DateOf(*r.ValidUntil)) {
		return false
	}
	return true
}

// AbsencePeriod blocks every day of the closed range [Start, End].
type AbsencePeriod struct {
	Label string
	Start time.Time
	End   time.Time
}

func (a AbsencePeriod) Contains(date time.Time) bool {
	d := DateOf(date)
	return !d.Before(DateOf(a.Start)) && !d.After(DateOf(a.End))
}

// Skipped describes an input record left out of a computation.
type Skipped struct {
	Kind   string // "busy" or "absence"
	Index  int
	Label  string
	Reason string
}

// Inputs holds the constraint records that passed Sanitize.
type Inputs struct {
	Rules    []BusyRule
	Absences []AbsencePeriod
}

// Sanitize splits the constraint records into usable ones and a list of
// malformed ones. Order of the usable records is preserved.
func Sanitize(rules []BusyRule, absences []AbsencePeriod) (Inputs, []Skipped) {
	var in Inputs
	var skipped []Skipped

	for i, r := range rules {
		reason := ""
		switch {
		case !r.Weekday.Valid():
			reason = "unknown weekday"
		case !r.Interval.Valid():
			reason = "start time is not before end time"
		case r.ValidFrom != nil && r.ValidUntil != nil && DateOf(*r.ValidFrom).After(DateOf(*r.ValidUntil)):
			reason = "valid_from is after valid_until"
		}
		if reason != "" {
			skipped = append(skipped, Skipped{Kind: "busy", Index: i, Label: r.Label, Reason: reason})
			continue
		}
		in.Rules = append(in.Rules, r)
	}

	for i, a := range absences {
		reason := ""
		switch {
		case a.Start.IsZero() || a.End.IsZero():
			reason = "missing start or end date"
		case DateOf(a.Start).After(DateOf(a.End)):
			reason = "end date is before start date"
		}
		if reason != "" {
			skipped = append(skipped, Skipped{Kind: "absence", Index: i, Label: a.Label, Reason: reason})
			continue
		}
		in.Absences = append(in.Absences, a)
	}

	return in, skipped
}
