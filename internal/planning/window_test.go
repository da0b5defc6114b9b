package planning

import (
	"testing"
	"time"
)

func TestDayBounds(t *testing.T) {
	tests := []struct {
		name    string
		periods []Period
		want    TimeInterval
	}{
		{"none", nil, span(8, 0, 20, 0)},
		{"morning", []Period{Morning}, span(7, 0, 12, 0)},
		{"afternoon", []Period{Afternoon}, span(12, 0, 18, 0)},
		{"evening", []Period{Evening}, span(17, 0, 22, 0)},
		{"morning afternoon", []Period{Afternoon, Morning}, span(7, 0, 18, 0)},
		{"afternoon evening", []Period{Afternoon, Evening}, span(12, 0, 22, 0)},
		{"morning evening", []Period{Morning, Evening}, span(7, 0, 22, 0)},
		{"all", []Period{Morning, Afternoon, Evening}, span(7, 0, 22, 0)},
		{"duplicates", []Period{Evening, Evening}, span(17, 0, 22, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DayBounds(tt.periods); got != tt.want {
				t.Errorf("DayBounds(%v) = %v, want %v", tt.periods, got, tt.want)
			}
		})
	}
}

func TestParsePeriod(t *testing.T) {
	for in, want := range map[string]Period{
		"Morgen":     Morning,
		"vormittag":  Morning,
		"Afternoon":  Afternoon,
		"nachmittag": Afternoon,
		" abend":     Evening,
	} {
		got, err := ParsePeriod(in)
		if err != nil || got != want {
			t.Errorf("ParsePeriod(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParsePeriod("night"); err == nil {
		t.Error("expected error for unknown period")
	}
}

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		in      string
		want    Weekday
		wantErr bool
	}{
		{"Montag", Monday, false},
		{"sonntag", Sunday, false},
		{"Friday", Friday, false},
		{"DONNERSTAG", Thursday, false},
		{"", 0, true},
		{"Funday", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWeekday(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseWeekday(%q) err = %v", tt.in, err)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseWeekday(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestWeekdayOfAndWeekStart(t *testing.T) {
	sun := date(2025, time.November, 9)
	if got := WeekdayOf(sun); got != Sunday {
		t.Errorf("WeekdayOf(2025-11-09) = %v, want sunday", got)
	}
	if got := WeekStart(sun).Format(DateLayout); got != "2025-11-03" {
		t.Errorf("WeekStart = %s, want 2025-11-03", got)
	}
	if got := Sunday.Label(LocaleGerman); got != "Sonntag" {
		t.Errorf("Label = %q", got)
	}
}

func TestWindowValidateIgnoresClock(t *testing.T) {
	w := Window{
		Start: time.Date(2025, time.November, 3, 23, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.November, 4, 1, 0, 0, 0, time.UTC),
	}
	if err := w.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if w.Days() != 1 {
		t.Errorf("Days = %d, want 1", w.Days())
	}
	if WeeklyCap(0) != nil || *WeeklyCap(12) != 12 {
		t.Error("WeeklyCap mapping wrong")
	}
}

func TestSanitize(t *testing.T) {
	rules := []BusyRule{
		{Label: "ok", Weekday: Monday, Interval: span(8, 0, 9, 0)},
		{Label: "empty", Weekday: Monday, Interval: span(9, 0, 9, 0)},
		{Label: "validity", Weekday: Monday, Interval: span(8, 0, 9, 0),
			ValidFrom: ptr(date(2025, time.December, 1)), ValidUntil: ptr(date(2025, time.November, 1))},
	}
	absences := []AbsencePeriod{
		{Label: "ok", Start: date(2025, time.November, 1), End: date(2025, time.November, 1)},
		{Label: "reversed", Start: date(2025, time.November, 2), End: date(2025, time.November, 1)},
	}

	in, skipped := Sanitize(rules, absences)
	if len(in.Rules) != 1 || in.Rules[0].Label != "ok" {
		t.Errorf("rules = %+v", in.Rules)
	}
	if len(in.Absences) != 1 || in.Absences[0].Label != "ok" {
		t.Errorf("absences = %+v", in.Absences)
	}
	if len(skipped) != 3 {
		t.Fatalf("skipped = %+v, want 3 entries", skipped)
	}
	if skipped[2].Kind != "absence" || skipped[2].Index != 1 {
		t.Errorf("skipped[2] = %+v", skipped[2])
	}
}
