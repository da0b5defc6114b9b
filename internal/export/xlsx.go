package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/christopherklint97/studyr/internal/ai"
	"github.com/christopherklint97/studyr/internal/plan"
	"github.com/christopherklint97/studyr/internal/setup"
)

// Workbook is the content of the spreadsheet export.
type Workbook struct {
	Sessions []ai.Session
	Setup    *setup.Setup
}

type sheet struct {
	name   string
	header []any
	rows   [][]any
	widths []float64
}

// XLSX writes the plan and the setup it was built from, one sheet each
// for the plan, assessments, busy times, absences and preferences.
func XLSX(w io.Writer, wb Workbook) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	s := wb.Setup
	if s == nil {
		s = setup.New()
	}
	sheets := []sheet{
		planSheet(wb.Sessions),
		assessmentSheet(s.Assessments),
		busySheet(s.BusyTimes),
		absenceSheet(s.Absences),
		preferenceSheet(s.Preferences),
	}

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sh.name); err != nil {
				return fmt.Errorf("renaming sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", sh.name, err)
		}
		if err := writeSheet(f, sh, bold); err != nil {
			return fmt.Errorf("writing sheet %s: %w", sh.name, err)
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sh sheet, headerStyle int) error {
	if err := f.SetSheetRow(sh.name, "A1", &sh.header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(sh.header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sh.name, "A1", last, headerStyle); err != nil {
		return err
	}
	for i, row := range sh.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sh.name, cell, &row); err != nil {
			return err
		}
	}
	for i, width := range sh.widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sh.name, col, col, width); err != nil {
			return err
		}
	}
	return f.SetPanes(sh.name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func planSheet(sessions []ai.Session) sheet {
	sorted := make([]ai.Session, len(sessions))
	copy(sorted, sessions)
	plan.Sort(sorted)

	sh := sheet{
		name:   "Plan",
		header: []any{"Datum", "Start", "Ende", "Stunden", "Modul", "Thema", "Beschreibung"},
		widths: []float64{12, 8, 8, 9, 24, 32, 60},
	}
	for _, s := range sorted {
		var hours any = ""
		if d, err := plan.Duration(s); err == nil {
			hours = d.Hours()
		}
		sh.rows = append(sh.rows, []any{s.Date, s.Start, s.End, hours, s.Module, s.Topic, s.Description})
	}
	return sh
}

func assessmentSheet(assessments []setup.Assessment) sheet {
	sh := sheet{
		name:   "Assessments",
		header: []any{"Titel", "Typ", "Deadline", "Modul", "Themen", "Priorität", "Aufwand", "Prüfungsformat", "Details"},
		widths: []float64{28, 14, 12, 24, 40, 10, 10, 22, 40},
	}
	for _, a := range assessments {
		sh.rows = append(sh.rows, []any{
			a.Title, a.Type, a.Deadline, a.Module, strings.Join(a.Topics, ", "),
			a.Priority, a.Effort, a.ExamFormat, a.ExamDetails,
		})
	}
	return sh
}

func busySheet(busy []setup.BusyTime) sheet {
	sh := sheet{
		name:   "Busy",
		header: []any{"Bezeichnung", "Tage", "Start", "Ende", "Gültig ab", "Gültig bis"},
		widths: []float64{24, 32, 8, 8, 12, 12},
	}
	for _, b := range busy {
		sh.rows = append(sh.rows, []any{b.Label, strings.Join(b.Days, ", "), b.Start, b.End, b.ValidFrom, b.ValidUntil})
	}
	return sh
}

func absenceSheet(absences []setup.Absence) sheet {
	sh := sheet{
		name:   "Absences",
		header: []any{"Bezeichnung", "Von", "Bis", "Beschreibung"},
		widths: []float64{24, 12, 12, 40},
	}
	for _, a := range absences {
		sh.rows = append(sh.rows, []any{a.Label, a.Start, a.End, a.Description})
	}
	return sh
}

func preferenceSheet(p setup.Preferences) sheet {
	weekly := "Standard"
	if p.MaxHoursWeek != nil {
		weekly = fmt.Sprintf("%g", *p.MaxHoursWeek)
	}
	return sheet{
		name:   "Preferences",
		header: []any{"Einstellung", "Wert"},
		widths: []float64{28, 40},
		rows: [][]any{
			{"Spacing", p.Spacing},
			{"Interleaving", p.Interleaving},
			{"Deep Work", p.DeepWork},
			{"Kurze Einheiten", p.ShortSessions},
			{"Ruhetage", strings.Join(p.RestDays, ", ")},
			{"Max. Stunden pro Tag", p.MaxHoursDay},
			{"Max. Stunden pro Woche", weekly},
			{"Min. Einheit (Minuten)", p.MinSessionMinutes},
			{"Bevorzugte Zeiten", strings.Join(p.PreferredTimes, ", ")},
		},
	}
}
