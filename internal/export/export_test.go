package export

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	ical "github.com/emersion/go-ical"
	"github.com/xuri/excelize/v2"

	"github.com/christopherklint97/studyr/internal/ai"
	"github.com/christopherklint97/studyr/internal/planning"
	"github.com/christopherklint97/studyr/internal/setup"
)

var sessions = []ai.Session{
	{Date: "2025-11-04", Start: "09:00", End: "10:00", Module: "Marketing", Topic: "4P", Description: "Folien 1-20"},
	{Date: "2025-11-03", Start: "14:00", End: "15:30", Module: "Statistik", Topic: "Regression"},
	{Date: "2025-11-03", Start: "bad", End: "15:30", Module: "Statistik", Topic: "Kaputt"},
}

func TestICS(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	var buf bytes.Buffer
	skipped, err := ICS(&buf, sessions, loc)
	if err != nil {
		t.Fatalf("ICS: %v", err)
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}

	cal, err := ical.NewDecoder(&buf).Decode()
	if err != nil {
		t.Fatalf("decoding export: %v", err)
	}
	events := cal.Events()
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}

	summary, _ := events[1].Props.Text(ical.PropSummary)
	if summary != "Statistik: Regression" {
		t.Errorf("summary = %q", summary)
	}
	start, err := events[1].DateTimeStart(time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2025, time.November, 3, 13, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Errorf("start = %v, want %v", start, want)
	}

	uid, _ := events[0].Props.Text(ical.PropUID)
	if uid != SessionUID(sessions[0]) || !strings.HasSuffix(uid, "@studyr") {
		t.Errorf("uid = %q", uid)
	}
}

func TestICSEmpty(t *testing.T) {
	_, err := ICS(&bytes.Buffer{}, sessions[2:], time.UTC)
	if !errors.Is(err, ErrNothingToExport) {
		t.Errorf("error = %v, want ErrNothingToExport", err)
	}
}

func TestSessionUIDStable(t *testing.T) {
	a := SessionUID(sessions[0])
	b := SessionUID(sessions[0])
	other := SessionUID(sessions[1])
	if a != b || a == other {
		t.Errorf("uids: %s %s %s", a, b, other)
	}
}

func TestXLSX(t *testing.T) {
	s := setup.New()
	s.Assessments = []setup.Assessment{{Title: "Statistik", Type: setup.TypeExam, Deadline: "2025-11-14", Topics: []string{"Regression", "Tests"}, Priority: 5, Effort: 4}}
	s.BusyTimes = []setup.BusyTime{{Label: "Arbeit", Days: []string{"Montag", "Mittwoch"}, Start: "08:00", End: "17:00"}}
	s.Absences = []setup.Absence{{Label: "Urlaub", Start: "2025-11-07", End: "2025-11-09"}}
	s.Preferences.MaxHoursWeek = planning.WeeklyCap(20)

	var buf bytes.Buffer
	if err := XLSX(&buf, Workbook{Sessions: sessions, Setup: s}); err != nil {
		t.Fatalf("XLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("opening workbook: %v", err)
	}
	defer f.Close()

	if got := strings.Join(f.GetSheetList(), ","); got != "Plan,Assessments,Busy,Absences,Preferences" {
		t.Errorf("sheets = %s", got)
	}

	rows, err := f.GetRows("Plan")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("plan rows = %d, want header + 3", len(rows))
	}
	if rows[1][0] != "2025-11-03" || rows[1][1] != "14:00" || rows[1][3] != "1.5" {
		t.Errorf("first plan row = %v", rows[1])
	}

	busy, err := f.GetRows("Busy")
	if err != nil {
		t.Fatal(err)
	}
	if busy[1][1] != "Montag, Mittwoch" {
		t.Errorf("busy days = %q", busy[1][1])
	}

	prefs, err := f.GetRows("Preferences")
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, r := range prefs {
		if len(r) == 2 && r[0] == "Max. Stunden pro Woche" && r[1] == "20" {
			found = true
		}
	}
	if !found {
		t.Errorf("weekly cap row missing: %v", prefs)
	}
}

func TestPDF(t *testing.T) {
	start := time.Date(2025, time.November, 3, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.November, 9, 0, 0, 0, 0, time.UTC)

	for _, locale := range []planning.Locale{planning.LocaleGerman, planning.LocaleEnglish} {
		t.Run(string(locale), func(t *testing.T) {
			var buf bytes.Buffer
			if err := PDF(&buf, sessions, start, end, locale); err != nil {
				t.Fatalf("PDF: %v", err)
			}
			if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
				t.Error("output is not a PDF")
			}
		})
	}

	var buf bytes.Buffer
	if err := PDF(&buf, nil, start, end, planning.LocaleGerman); err != nil {
		t.Fatalf("empty PDF: %v", err)
	}
}
