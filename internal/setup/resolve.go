package setup

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tj/go-naturaldate"

	"github.com/christopherklint97/studyr/internal/config"
	"github.com/christopherklint97/studyr/internal/planning"
)

var ErrNoDeadline = errors.New("no assessment has a usable deadline")

// Defaults fills preferences the setup leaves at zero.
type Defaults struct {
	MaxHoursDay       float64
	MaxHoursWeek      float64 // 0 = unlimited
	MinSessionMinutes int
}

func DefaultsFrom(c config.PlanningConfig) Defaults {
	return Defaults{
		MaxHoursDay:       c.MaxHoursDay,
		MaxHoursWeek:      c.MaxHoursWeek,
		MinSessionMinutes: c.MinSessionMinutes,
	}
}

// Due is an assessment with its deadline resolved to a date.
type Due struct {
	Assessment
	Date time.Time
}

// Resolved is a setup translated into the calculator's inputs.
type Resolved struct {
	Window      planning.Window
	Rules       []planning.BusyRule
	Absences    []planning.AbsencePeriod
	Assessments []Due
	// Skipped lists raw records that could not be parsed.
	Skipped []string
}

// ParseDate accepts ISO dates, German dd.mm.yyyy dates and natural
// language such as "next friday", resolved relative to ref.
func ParseDate(s string, ref time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range []string{planning.DateLayout, "02.01.2006", "2.1.2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	switch strings.ToLower(s) {
	case "today", "heute":
		return planning.DateOf(ref), nil
	}

	t, err := naturaldate.Parse(s, ref, naturaldate.WithDirection(naturaldate.Future))
	if err != nil || t.Equal(ref) {
		return time.Time{}, fmt.Errorf("unrecognized date %q", s)
	}
	return planning.DateOf(t), nil
}

func parseOptionalDate(s string, ref time.Time) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := ParseDate(s, ref)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Resolve turns the raw setup into a planning window, busy rules and
// absences. The window runs from the start date (ref's day when unset)
// to the latest assessment deadline.
func (s *Setup) Resolve(ref time.Time, d Defaults) (*Resolved, error) {
	r := &Resolved{}

	start := planning.DateOf(ref)
	if s.StartDate != "" {
		t, err := ParseDate(s.StartDate, ref)
		if err != nil {
			return nil, fmt.Errorf("parsing start date: %w", err)
		}
		start = t
	}

	var end time.Time
	for i, a := range s.Assessments {
		t, err := ParseDate(a.Deadline, ref)
		if err != nil {
			r.Skipped = append(r.Skipped, fmt.Sprintf("assessment %d (%s): %v", i+1, a.Title, err))
			continue
		}
		if a.Priority == 0 {
			a.Priority = 3
		}
		if a.Effort == 0 {
			a.Effort = 3
		}
		r.Assessments = append(r.Assessments, Due{Assessment: a, Date: t})
		if t.After(end) {
			end = t
		}
	}
	if end.IsZero() {
		return nil, ErrNoDeadline
	}
	sort.SliceStable(r.Assessments, func(i, j int) bool {
		return r.Assessments[i].Date.Before(r.Assessments[j].Date)
	})

	p := s.Preferences
	var periods []planning.Period
	for _, name := range p.PreferredTimes {
		pd, err := planning.ParsePeriod(name)
		if err != nil {
			r.Skipped = append(r.Skipped, err.Error())
			continue
		}
		periods = append(periods, pd)
	}
	rest, unknown := parseDays(p.RestDays)
	for _, n := range unknown {
		r.Skipped = append(r.Skipped, fmt.Sprintf("rest day %q: unknown weekday", n))
	}

	r.Window = planning.Window{
		Start:           start,
		End:             end,
		Day:             planning.DayBounds(periods),
		RestDays:        rest,
		MaxHoursDay:     p.MaxHoursDay,
		MinSessionHours: float64(p.MinSessionMinutes) / 60,
	}
	if r.Window.MaxHoursDay == 0 {
		r.Window.MaxHoursDay = d.MaxHoursDay
	}
	if p.MinSessionMinutes == 0 {
		r.Window.MinSessionHours = float64(d.MinSessionMinutes) / 60
	}
	if p.MaxHoursWeek != nil {
		r.Window.MaxHoursWeek = planning.WeeklyCap(*p.MaxHoursWeek)
	} else {
		r.Window.MaxHoursWeek = planning.WeeklyCap(d.MaxHoursWeek)
	}

	for i, b := range s.BusyTimes {
		rules, err := b.rules(ref)
		if err != nil {
			r.Skipped = append(r.Skipped, fmt.Sprintf("busy time %d (%s): %v", i+1, b.Label, err))
			continue
		}
		r.Rules = append(r.Rules, rules...)
	}

	for i, a := range s.Absences {
		from, err1 := ParseDate(a.Start, ref)
		to, err2 := ParseDate(a.End, ref)
		if err := errors.Join(err1, err2); err != nil {
			r.Skipped = append(r.Skipped, fmt.Sprintf("absence %d (%s): %v", i+1, a.Label, err))
			continue
		}
		r.Absences = append(r.Absences, planning.AbsencePeriod{Label: a.Label, Start: from, End: to})
	}

	return r, nil
}

// FreeSlots resolves the setup and runs calc over the result.
func (s *Setup) FreeSlots(ref time.Time, d Defaults, calc *planning.Calculator) (*Resolved, []planning.FreeSlot, error) {
	r, err := s.Resolve(ref, d)
	if err != nil {
		return nil, nil, err
	}
	if calc == nil {
		calc = planning.NewCalculator(nil)
	}
	slots, err := calc.Compute(r.Window, r.Rules, r.Absences)
	if err != nil {
		return r, nil, fmt.Errorf("computing free slots: %w", err)
	}
	return r, slots, nil
}

// rules expands a busy time into one rule per distinct weekday.
func (b BusyTime) rules(ref time.Time) ([]planning.BusyRule, error) {
	start, err := planning.ParseTimeOfDay(b.Start)
	if err != nil {
		return nil, err
	}
	end, err := planning.ParseTimeOfDay(b.End)
	if err != nil {
		return nil, err
	}
	from, err := parseOptionalDate(b.ValidFrom, ref)
	if err != nil {
		return nil, fmt.Errorf("valid_from: %w", err)
	}
	until, err := parseOptionalDate(b.ValidUntil, ref)
	if err != nil {
		return nil, fmt.Errorf("valid_until: %w", err)
	}

	days, _ := parseDays(b.Days)
	if len(days) == 0 {
		return nil, errors.New("no known weekday")
	}
	out := make([]planning.BusyRule, 0, len(days))
	for _, d := range days {
		out = append(out, planning.BusyRule{
			Label:      b.Label,
			Weekday:    d,
			Interval:   planning.TimeInterval{Start: start, End: end},
			ValidFrom:  from,
			ValidUntil: until,
		})
	}
	return out, nil
}

// Validate lists everything that keeps the setup from producing a plan.
// An empty result means the setup is complete.
func (s *Setup) Validate(ref time.Time) []string {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if len(s.Assessments) == 0 {
		add("add at least one assessment")
	}
	if s.StartDate != "" {
		if _, err := ParseDate(s.StartDate, ref); err != nil {
			add("start date: %v", err)
		}
	}
	for i, a := range s.Assessments {
		name := fmt.Sprintf("assessment %d", i+1)
		if strings.TrimSpace(a.Title) == "" {
			add("%s: title is required", name)
		} else {
			name = fmt.Sprintf("assessment %q", a.Title)
		}
		if _, err := ParseDate(a.Deadline, ref); err != nil {
			add("%s: deadline: %v", name, err)
		}
		if a.Type != "" && !contains(AssessmentTypes, a.Type) {
			add("%s: unknown type %q", name, a.Type)
		}
		if a.ExamFormat != "" {
			if a.Type != TypeExam {
				add("%s: exam format is only allowed for type %s", name, TypeExam)
			} else if !contains(ExamFormats, a.ExamFormat) {
				add("%s: unknown exam format %q", name, a.ExamFormat)
			}
		}
		if a.Priority != 0 && (a.Priority < 1 || a.Priority > 5) {
			add("%s: priority must be between 1 and 5", name)
		}
		if a.Effort != 0 && (a.Effort < 1 || a.Effort > 5) {
			add("%s: effort must be between 1 and 5", name)
		}
	}

	for i, b := range s.BusyTimes {
		name := fmt.Sprintf("busy time %d", i+1)
		if b.Label != "" {
			name = fmt.Sprintf("busy time %q", b.Label)
		}
		if len(b.Days) == 0 {
			add("%s: pick at least one day", name)
		}
		if _, unknown := parseDays(b.Days); len(unknown) > 0 {
			add("%s: unknown weekdays %s", name, strings.Join(unknown, ", "))
		}
		start, err1 := planning.ParseTimeOfDay(b.Start)
		end, err2 := planning.ParseTimeOfDay(b.End)
		switch {
		case err1 != nil || err2 != nil:
			add("%s: %v", name, errors.Join(err1, err2))
		case end <= start:
			add("%s: end time %s must be after start time %s", name, b.End, b.Start)
		}
	}

	for i, a := range s.Absences {
		name := fmt.Sprintf("absence %d", i+1)
		if a.Label != "" {
			name = fmt.Sprintf("absence %q", a.Label)
		}
		from, err1 := ParseDate(a.Start, ref)
		to, err2 := ParseDate(a.End, ref)
		switch {
		case err1 != nil || err2 != nil:
			add("%s: %v", name, errors.Join(err1, err2))
		case to.Before(from):
			add("%s: end date must not be before start date", name)
		}
	}

	p := s.Preferences
	if p.MaxHoursDay != 0 && (p.MaxHoursDay < 1 || p.MaxHoursDay > 24) {
		add("max hours per day must be between 1 and 24")
	}
	if p.MaxHoursWeek != nil && *p.MaxHoursWeek != 0 && (*p.MaxHoursWeek < 5 || *p.MaxHoursWeek > 168) {
		add("max hours per week must be 0 (unlimited) or between 5 and 168")
	}
	if p.MinSessionMinutes != 0 && (p.MinSessionMinutes < 15 || p.MinSessionMinutes > 240) {
		add("min session duration must be between 15 and 240 minutes")
	}
	rest, unknown := parseDays(p.RestDays)
	if len(unknown) > 0 {
		add("unknown rest days %s", strings.Join(unknown, ", "))
	}
	if len(rest) == len(planning.Weekdays) {
		add("at least one day must not be a rest day")
	}
	for _, t := range p.PreferredTimes {
		if _, err := planning.ParsePeriod(t); err != nil {
			add("%v", err)
		}
	}

	return problems
}
