package planning

import (
	"fmt"
	"strings"
	"time"
)

// Weekday is the canonical weekday used for every internal comparison.
// Monday is zero so that week arithmetic matches Monday-anchored weeks.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// Locale selects the language of user-facing labels.
type Locale string

const (
	LocaleGerman  Locale = "de"
	LocaleEnglish Locale = "en"
)

var weekdayNames = [7]struct {
	canonical string
	english   string
	german    string
}{
	{"monday", "Monday", "Montag"},
	{"tuesday", "Tuesday", "Dienstag"},
	{"wednesday", "Wednesday", "Mittwoch"},
	{"thursday", "Thursday", "Donnerstag"},
	{"friday", "Friday", "Freitag"},
	{"saturday", "Saturday", "Samstag"},
	{"sunday", "Sunday", "Sonntag"},
}

// Weekdays lists all days Monday through Sunday.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// WeekdayOf returns the weekday of the given date.
func WeekdayOf(t time.Time) Weekday {
	return Weekday((int(t.Weekday()) + 6) % 7)
}

func (d Weekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

// String returns the canonical lowercase English name.
func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("weekday(%d)", int(d))
	}
	return weekdayNames[d].canonical
}

// Label returns the display name in the given locale. Unknown locales
// fall back to English.
func (d Weekday) Label(l Locale) string {
	if !d.Valid() {
		return d.String()
	}
	if l == LocaleGerman {
		return weekdayNames[d].german
	}
	return weekdayNames[d].english
}

// ParseWeekday accepts English or German day names in any case.
func ParseWeekday(name string) (Weekday, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return 0, fmt.Errorf("empty weekday name")
	}
	for i, names := range weekdayNames {
		if n == names.canonical || n == strings.ToLower(names.german) {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", name)
}

// ParseLocale maps a config value to a Locale, defaulting to German.
func ParseLocale(s string) Locale {
	if strings.EqualFold(strings.TrimSpace(s), string(LocaleEnglish)) {
		return LocaleEnglish
	}
	return LocaleGerman
}
