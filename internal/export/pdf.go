package export

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/christopherklint97/studyr/internal/ai"
	"github.com/christopherklint97/studyr/internal/plan"
	"github.com/christopherklint97/studyr/internal/planning"
)

type pdfLabels struct {
	title   string
	period  string
	total   string
	hours   string
	empty   string
	dateFmt string
}

var labels = map[planning.Locale]pdfLabels{
	planning.LocaleGerman: {
		title:   "Lernplan",
		period:  "Zeitraum",
		total:   "Gesamt",
		hours:   "Std.",
		empty:   "Keine Lerneinheiten geplant.",
		dateFmt: "02.01.2006",
	},
	planning.LocaleEnglish: {
		title:   "Study plan",
		period:  "Period",
		total:   "Total",
		hours:   "h",
		empty:   "No study sessions planned.",
		dateFmt: "2006-01-02",
	},
}

// PDF writes a printable plan with sessions grouped per day under
// localized weekday headings.
func PDF(w io.Writer, sessions []ai.Session, start, end time.Time, locale planning.Locale) error {
	l, ok := labels[locale]
	if !ok {
		l = labels[planning.LocaleGerman]
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(l.title, true)
	pdf.SetCreator("studyr", true)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	// core fonts are cp1252, so umlauts need translating
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(l.title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(90, 90, 90)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s: %s - %s   %s: %.2f %s",
		l.period, start.Format(l.dateFmt), end.Format(l.dateFmt),
		l.total, plan.TotalHours(sessions), l.hours)), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	days := plan.GroupByDate(sessions)
	if len(days) == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.CellFormat(0, 8, tr(l.empty), "", 1, "L", false, 0, "")
	}

	for _, day := range days {
		heading := fmt.Sprintf("%s, %s", planning.WeekdayOf(day.Date).Label(locale), day.Date.Format(l.dateFmt))
		pdf.SetFont("Helvetica", "B", 12)
		pdf.SetFillColor(221, 235, 247)
		pdf.CellFormat(0, 8, tr(heading), "", 1, "L", true, 0, "")

		for _, s := range day.Sessions {
			pdf.SetFont("Helvetica", "B", 10)
			pdf.CellFormat(28, 6, s.Start+" - "+s.End, "", 0, "L", false, 0, "")
			pdf.CellFormat(0, 6, tr(Title(s)), "", 1, "L", false, 0, "")
			if s.Description != "" {
				pdf.SetFont("Helvetica", "", 9)
				pdf.SetX(pdf.GetX() + 28)
				pdf.MultiCell(0, 5, tr(s.Description), "", "L", false)
			}
		}
		pdf.Ln(3)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("rendering pdf: %w", err)
	}
	return nil
}
