package planning

import (
	"errors"
	"math/rand"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func span(sh, sm, eh, em int) TimeInterval {
	return TimeInterval{Start: Clock(sh, sm), End: Clock(eh, em)}
}

func ptr[T any](v T) *T { return &v }

// baseWindow is Mon 3 Nov 2025 through Sun 9 Nov 2025, 08:00-20:00.
func baseWindow() Window {
	return Window{
		Start:           date(2025, time.November, 3),
		End:             date(2025, time.November, 9),
		Day:             span(8, 0, 20, 0),
		MaxHoursDay:     24,
		MinSessionHours: 0.25,
	}
}

type wantSlot struct {
	date  string
	start string
	end   string
}

func assertSlots(t *testing.T, got []FreeSlot, want []wantSlot) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d slots, want %d: %v", len(got), len(want), got)
	}
	for i, w := range want {
		g := got[i]
		if g.Date.Format(DateLayout) != w.date || g.Start.String() != w.start || g.End.String() != w.end {
			t.Errorf("slot %d = %s %s-%s, want %s %s-%s",
				i, g.Date.Format(DateLayout), g.Start, g.End, w.date, w.start, w.end)
		}
	}
}

func TestComputeWholeWeekTruncatedToDailyMax(t *testing.T) {
	w := baseWindow()
	w.MaxHoursDay = 8

	slots, err := Compute(w, nil, nil)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	want := make([]wantSlot, 0, 7)
	for d := 3; d <= 9; d++ {
		want = append(want, wantSlot{date(2025, time.November, d).Format(DateLayout), "08:00", "16:00"})
	}
	assertSlots(t, slots, want)

	for i, s := range slots {
		if s.Weekday != Weekday(i) {
			t.Errorf("slot %d weekday = %s, want %s", i, s.Weekday, Weekday(i))
		}
	}
	if got := TotalHours(slots); got != 56 {
		t.Errorf("TotalHours = %v, want 56", got)
	}
}

func TestComputeBusyRuleCoversWholeDay(t *testing.T) {
	w := baseWindow()
	w.End = date(2025, time.November, 4)
	rules := []BusyRule{{Label: "Work", Weekday: Monday, Interval: span(8, 0, 20, 0)}}

	slots, err := Compute(w, rules, nil)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	for _, s := range slots {
		if s.Weekday == Monday {
			t.Errorf("unexpected Monday slot %s-%s", s.Start, s.End)
		}
	}
	if len(slots) != 1 {
		t.Errorf("got %d slots, want only Tuesday", len(slots))
	}
}

func TestComputeBusyRuleSplitsDay(t *testing.T) {
	w := baseWindow()
	w.End = date(2025, time.November, 4)
	rules := []BusyRule{{Label: "Lecture", Weekday: Monday, Interval: span(10, 0, 12, 0)}}

	slots, err := Compute(w, rules, nil)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	assertSlots(t, slots, []wantSlot{
		{"2025-11-03", "08:00", "10:00"},
		{"2025-11-03", "12:00", "20:00"},
		{"2025-11-04", "08:00", "20:00"},
	})
}

func TestComputeAbsenceCoversWindow(t *testing.T) {
	w := baseWindow()
	w.RestDays = []Weekday{Sunday}
	w.MaxHoursWeek = ptr(30.0)
	absences := []AbsencePeriod{{
		Label: "Holiday",
		Start: date(2025, time.October, 30),
		End:   date(2025, time.November, 12),
	}}

	slots, err := Compute(w, nil, absences)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("got %d slots, want 0", len(slots))
	}
}

func TestComputeWeeklyCapDropsLaterSlots(t *testing.T) {
	w := Window{
		Start:           date(2025, time.November, 3),
		End:             date(2025, time.November, 4),
		Day:             span(8, 0, 16, 0),
		MaxHoursDay:     24,
		MaxHoursWeek:    ptr(5.0),
		MinSessionHours: 0.25,
	}

	slots, err := Compute(w, nil, nil)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	assertSlots(t, slots, []wantSlot{{"2025-11-03", "08:00", "13:00"}})
}

func TestComputeWeeklyCapResetsOnMonday(t *testing.T) {
	w := Window{
		Start:           date(2025, time.November, 8), // Saturday
		End:             date(2025, time.November, 10),
		Day:             span(8, 0, 12, 0),
		MaxHoursDay:     24,
		MaxHoursWeek:    ptr(6.0),
		MinSessionHours: 0.25,
	}

	slots, err := Compute(w, nil, nil)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	assertSlots(t, slots, []wantSlot{
		{"2025-11-08", "08:00", "12:00"},
		{"2025-11-09", "08:00", "10:00"},
		{"2025-11-10", "08:00", "12:00"},
	})
}

func TestComputeDailyTruncationDropsAfterLimit(t *testing.T) {
	w := baseWindow()
	w.End = date(2025, time.November, 4)
	w.MaxHoursDay = 3
	rules := []BusyRule{{Weekday: Monday, Interval: span(9, 0, 10, 0)}}

	slots, err := Compute(w, rules, nil)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	assertSlots(t, slots, []wantSlot{
		{"2025-11-03", "08:00", "09:00"},
		{"2025-11-03", "10:00", "12:00"},
		{"2025-11-04", "08:00", "11:00"},
	})
}

func TestComputeMinSessionFilter(t *testing.T) {
	w := baseWindow()
	w.End = date(2025, time.November, 4)
	w.MinSessionHours = 1
	rules := []BusyRule{
		{Weekday: Monday, Interval: span(8, 30, 12, 0)},
		{Weekday: Monday, Interval: span(12, 45, 20, 0)},
	}

	slots, err := Compute(w, rules, nil)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	assertSlots(t, slots, []wantSlot{{"2025-11-04", "08:00", "20:00"}})
}

func TestComputeRuleValidityBounds(t *testing.T) {
	w := baseWindow()
	w.Start = date(2025, time.November, 3)
	w.End = date(2025, time.November, 17)
	rules := []BusyRule{{
		Label:      "Course",
		Weekday:    Monday,
		Interval:   span(8, 0, 20, 0),
		ValidFrom:  ptr(date(2025, time.November, 10)),
		ValidUntil: ptr(date(2025, time.November, 10)),
	}}

	slots, err := Compute(w, rules, nil)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	mondays := map[string]bool{}
	for _, s := range slots {
		if s.Weekday == Monday {
			mondays[s.Date.Format(DateLayout)] = true
		}
	}
	for d, want := range map[string]bool{"2025-11-03": true, "2025-11-10": false, "2025-11-17": true} {
		if mondays[d] != want {
			t.Errorf("monday %s has slot = %v, want %v", d, mondays[d], want)
		}
	}
}

func TestComputeSkipsMalformedRecords(t *testing.T) {
	w := baseWindow()
	w.End = date(2025, time.November, 4)
	rules := []BusyRule{
		{Label: "backwards", Weekday: Monday, Interval: span(12, 0, 10, 0)},
		{Label: "bad day", Weekday: Weekday(9), Interval: span(8, 0, 20, 0)},
	}
	absences := []AbsencePeriod{
		{Label: "no end", Start: date(2025, time.November, 3)},
		{Label: "reversed", Start: date(2025, time.November, 4), End: date(2025, time.November, 3)},
	}

	slots, err := Compute(w, rules, absences)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	assertSlots(t, slots, []wantSlot{
		{"2025-11-03", "08:00", "20:00"},
		{"2025-11-04", "08:00", "20:00"},
	})
}

func TestComputeRestDays(t *testing.T) {
	w := baseWindow()
	w.RestDays = []Weekday{Saturday, Sunday, Saturday}

	slots, err := Compute(w, nil, nil)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(slots) != 5 {
		t.Fatalf("got %d slots, want 5", len(slots))
	}
	for _, s := range slots {
		if s.Weekday == Saturday || s.Weekday == Sunday {
			t.Errorf("slot on rest day %s", s.Weekday)
		}
	}
}

func TestComputeEmptyDayBounds(t *testing.T) {
	w := baseWindow()
	w.Day = span(20, 0, 8, 0)

	slots, err := Compute(w, nil, nil)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("got %d slots, want 0", len(slots))
	}
}

func TestComputeInvalidWindow(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  error
	}{
		{"missing", time.Time{}, date(2025, time.November, 3), ErrMissingDates},
		{"equal", date(2025, time.November, 3), date(2025, time.November, 3), ErrStartNotBeforeEnd},
		{"reversed", date(2025, time.November, 4), date(2025, time.November, 3), ErrStartNotBeforeEnd},
		{"too long", date(2025, time.January, 1), date(2026, time.January, 2), ErrHorizonTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := baseWindow()
			w.Start, w.End = tt.start, tt.end
			_, err := Compute(w, nil, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestComputeIdempotent(t *testing.T) {
	w := baseWindow()
	w.MaxHoursWeek = ptr(20.0)
	rules := []BusyRule{
		{Weekday: Wednesday, Interval: span(9, 0, 11, 30)},
		{Weekday: Wednesday, Interval: span(14, 0, 15, 0)},
	}

	first, err := Compute(w, rules, nil)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	second, err := Compute(w, rules, nil)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("runs differ: %d vs %d slots", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("slot %d differs: %v vs %v", i, first[i], second[i])
		}
	}
}

// TestComputeInvariants checks the output properties on random inputs.
func TestComputeInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	randInterval := func() TimeInterval {
		s := rng.Intn(24*4) * 900
		e := s + (1+rng.Intn(16))*900
		if e > 24*secondsPerHour {
			e = 24 * secondsPerHour
		}
		return TimeInterval{Start: TimeOfDay(s), End: TimeOfDay(e)}
	}

	for i := 0; i < 200; i++ {
		start := date(2025, time.September, 1).AddDate(0, 0, rng.Intn(60))
		w := Window{
			Start:           start,
			End:             start.AddDate(0, 0, 1+rng.Intn(40)),
			Day:             DayBounds([]Period{Period(rng.Intn(3))}),
			MaxHoursDay:     float64(1 + rng.Intn(12)),
			MinSessionHours: float64(rng.Intn(4)) * 0.25,
		}
		if rng.Intn(2) == 0 {
			w.MaxHoursWeek = ptr(float64(5 + rng.Intn(30)))
		}
		if rng.Intn(3) == 0 {
			w.RestDays = []Weekday{Weekday(rng.Intn(7))}
		}
		var rules []BusyRule
		for j := rng.Intn(6); j > 0; j-- {
			rules = append(rules, BusyRule{Weekday: Weekday(rng.Intn(7)), Interval: randInterval()})
		}
		var absences []AbsencePeriod
		if rng.Intn(3) == 0 {
			a := start.AddDate(0, 0, rng.Intn(10))
			absences = append(absences, AbsencePeriod{Start: a, End: a.AddDate(0, 0, rng.Intn(5))})
		}

		slots, err := Compute(w, rules, absences)
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}

		rest := map[Weekday]bool{}
		for _, d := range w.RestDays {
			rest[d] = true
		}
		perDay := map[time.Time]float64{}
		perWeek := map[time.Time]float64{}
		for k, s := range slots {
			iv := s.Interval()
			if !iv.Valid() || !w.Day.Contains(iv) {
				t.Fatalf("case %d: slot %v outside day bounds %v", i, iv, w.Day)
			}
			if s.Date.Before(DateOf(w.Start)) || s.Date.After(DateOf(w.End)) {
				t.Fatalf("case %d: slot date %s outside window", i, s.Date.Format(DateLayout))
			}
			if rest[s.Weekday] {
				t.Fatalf("case %d: slot on rest day", i)
			}
			for _, a := range absences {
				if a.Contains(s.Date) {
					t.Fatalf("case %d: slot on absence day", i)
				}
			}
			for _, r := range rules {
				if r.Weekday == s.Weekday && r.Interval.Overlaps(iv) {
					t.Fatalf("case %d: slot %v overlaps busy %v", i, iv, r.Interval)
				}
			}
			if s.Hours() < MinSlotHours || s.Hours() < w.MinSessionHours {
				t.Fatalf("case %d: slot %v too short", i, iv)
			}
			if k > 0 {
				prev := slots[k-1]
				if prev.Date.After(s.Date) || (prev.Date.Equal(s.Date) && prev.End > s.Start) {
					t.Fatalf("case %d: slots out of order or overlapping", i)
				}
			}
			perDay[s.Date] += s.Hours()
			perWeek[WeekStart(s.Date)] += s.Hours()
		}
		for d, h := range perDay {
			if h > w.MaxHoursDay+1e-9 {
				t.Fatalf("case %d: %s has %.2fh, daily max %.2f", i, d.Format(DateLayout), h, w.MaxHoursDay)
			}
		}
		if w.MaxHoursWeek != nil {
			for wk, h := range perWeek {
				if h > *w.MaxHoursWeek+1e-9 {
					t.Fatalf("case %d: week %s has %.2fh, weekly max %.2f", i, wk.Format(DateLayout), h, *w.MaxHoursWeek)
				}
			}
		}
	}
}

func TestRecords(t *testing.T) {
	slots := []FreeSlot{{
		Date:    date(2025, time.November, 5),
		Weekday: Wednesday,
		Start:   Clock(8, 0),
		End:     Clock(9, 20),
	}}

	de := Records(slots, LocaleGerman)
	want := Record{Date: "2025-11-05", Day: "Mittwoch", Start: "08:00", End: "09:20", Hours: 1.33}
	if de[0] != want {
		t.Errorf("Records(de) = %+v, want %+v", de[0], want)
	}
	if en := Records(slots, LocaleEnglish); en[0].Day != "Wednesday" {
		t.Errorf("Records(en) day = %q, want Wednesday", en[0].Day)
	}
	if got := AvailableDays(append(slots, slots[0])); got != 1 {
		t.Errorf("AvailableDays = %d, want 1", got)
	}
}
