package setup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/christopherklint97/studyr/internal/planning"
)

// Assessment types.
const (
	TypeExam         = "Prüfung"
	TypeTermPaper    = "Hausarbeit"
	TypePresentation = "Präsentation"
	TypeProject      = "Projektarbeit"
	TypeOther        = "Sonstiges"
)

var AssessmentTypes = []string{TypeExam, TypeTermPaper, TypePresentation, TypeProject, TypeOther}

var ExamFormats = []string{
	"Multiple Choice",
	"Rechenaufgaben",
	"Mündliche Prüfung",
	"Essay/Aufsatz",
	"Praktisches Projekt (Open Book)",
	"Coding-Aufgabe",
	"Fallstudie",
	"Gemischt",
	"Sonstiges",
}

// Setup is everything the student enters: what is due, when they are
// busy, and how they like to study. Dates and clock times stay strings
// until Resolve so that the file remains hand-editable.
type Setup struct {
	StartDate   string       `toml:"start_date,omitempty" json:"start_date,omitempty"`
	Assessments []Assessment `toml:"assessments" json:"assessments"`
	BusyTimes   []BusyTime   `toml:"busy_times" json:"busy_times"`
	Absences    []Absence    `toml:"absences" json:"absences"`
	Preferences Preferences  `toml:"preferences" json:"preferences"`
}

type Assessment struct {
	Title       string   `toml:"title" json:"title"`
	Type        string   `toml:"type" json:"type"`
	Deadline    string   `toml:"deadline" json:"deadline"`
	Module      string   `toml:"module,omitempty" json:"module,omitempty"`
	Topics      []string `toml:"topics,omitempty" json:"topics,omitempty"`
	Priority    int      `toml:"priority" json:"priority"`
	Effort      int      `toml:"effort" json:"effort"`
	ExamFormat  string   `toml:"exam_format,omitempty" json:"exam_format,omitempty"`
	ExamDetails string   `toml:"exam_details,omitempty" json:"exam_details,omitempty"`
}

// BusyTime is a recurring weekly commitment on one or more days.
type BusyTime struct {
	Label      string   `toml:"label" json:"label"`
	Days       []string `toml:"days" json:"days"`
	Start      string   `toml:"start" json:"start"`
	End        string   `toml:"end" json:"end"`
	ValidFrom  string   `toml:"valid_from,omitempty" json:"valid_from,omitempty"`
	ValidUntil string   `toml:"valid_until,omitempty" json:"valid_until,omitempty"`
}

type Absence struct {
	Label       string `toml:"label" json:"label"`
	Start       string `toml:"start_date" json:"start_date"`
	End         string `toml:"end_date" json:"end_date"`
	Description string `toml:"description,omitempty" json:"description,omitempty"`
}

// Preferences holds study strategy toggles and time budgets. Zero budgets
// fall back to the configured defaults; MaxHoursWeek distinguishes absent
// (default) from an explicit 0 (unlimited).
type Preferences struct {
	Spacing           bool     `toml:"spacing" json:"spacing"`
	Interleaving      bool     `toml:"interleaving" json:"interleaving"`
	DeepWork          bool     `toml:"deep_work" json:"deep_work"`
	ShortSessions     bool     `toml:"short_sessions" json:"short_sessions"`
	RestDays          []string `toml:"rest_days" json:"rest_days"`
	MaxHoursDay       float64  `toml:"max_hours_day,omitempty" json:"max_hours_day,omitempty"`
	MaxHoursWeek      *float64 `toml:"max_hours_week,omitempty" json:"max_hours_week,omitempty"`
	MinSessionMinutes int      `toml:"min_session_minutes,omitempty" json:"min_session_minutes,omitempty"`
	PreferredTimes    []string `toml:"preferred_times" json:"preferred_times"`
}

// New returns an empty setup with the default strategy toggles.
func New() *Setup {
	return &Setup{
		Preferences: Preferences{Spacing: true, DeepWork: true},
	}
}

func Load(path string) (*Setup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading setup file: %w", err)
	}
	s := New()
	if err := toml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing setup file: %w", err)
	}
	return s, nil
}

// LoadOrNew is Load, except that a missing file yields an empty setup.
func LoadOrNew(path string) (*Setup, error) {
	s, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	return s, err
}

func Save(path string, s *Setup) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating setup dir: %w", err)
	}
	out, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling setup: %w", err)
	}
	return os.WriteFile(path, out, 0644)
}

// ActiveStrategies names the enabled learning strategies in a stable order.
func (s *Setup) ActiveStrategies() []string {
	p := s.Preferences
	var out []string
	if p.Spacing {
		out = append(out, "spaced repetition")
	}
	if p.Interleaving {
		out = append(out, "interleaving")
	}
	if p.DeepWork {
		out = append(out, "deep work")
	}
	if p.ShortSessions {
		out = append(out, "short sessions")
	}
	return out
}

// SetRestDays replaces the rest days, stored by their German names.
func (s *Setup) SetRestDays(days []planning.Weekday) {
	names := make([]string, 0, len(days))
	for _, d := range days {
		names = append(names, d.Label(planning.LocaleGerman))
	}
	s.Preferences.RestDays = names
}

// RestWeekdays parses the rest day names, dropping unknown and duplicate
// entries.
func (s *Setup) RestWeekdays() []planning.Weekday {
	days, _ := parseDays(s.Preferences.RestDays)
	return days
}

func parseDays(names []string) ([]planning.Weekday, []string) {
	seen := make(map[planning.Weekday]bool)
	var days []planning.Weekday
	var unknown []string
	for _, n := range names {
		d, err := planning.ParseWeekday(n)
		if err != nil {
			unknown = append(unknown, n)
			continue
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		days = append(days, d)
	}
	return days, unknown
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
