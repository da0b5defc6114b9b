package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/christopherklint97/studyr/internal/calendar"
	"github.com/christopherklint97/studyr/internal/export"
	"github.com/christopherklint97/studyr/internal/setup"
	"github.com/christopherklint97/studyr/internal/store"
	"github.com/christopherklint97/studyr/internal/tui"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a study plan as ICS, XLSX or PDF",
	RunE:  runExport,
}

var importCalendarCmd = &cobra.Command{
	Use:   "import-calendar [source]",
	Short: "Import busy times and absences from an ICS calendar",
	Long: "Reads an ICS file or URL and adds weekly events as busy times and " +
		"all-day or multi-day events as absences to the setup file.",
	Args: cobra.MaximumNArgs(1),
	RunE: runImportCalendar,
}

var restDaysCmd = &cobra.Command{
	Use:   "restdays",
	Short: "Pick the weekdays without study sessions",
	RunE:  runRestDays,
}

func init() {
	exportCmd.Flags().StringP("format", "f", "ics", "export format: ics, xlsx or pdf")
	exportCmd.Flags().StringP("out", "o", "", "output file (default studyr-plan.<format>, - for stdout)")
	exportCmd.Flags().String("id", "", "plan ID (default latest)")

	importCalendarCmd.Flags().Bool("dry-run", false, "print what would be imported without saving")
	importCalendarCmd.Flags().Int("days", 120, "how far ahead to read events")
}

func runExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")
	id, _ := cmd.Flags().GetString("id")

	switch format {
	case "ics", "xlsx", "pdf":
	default:
		return fmt.Errorf("unknown export format %q (use ics, xlsx or pdf)", format)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	p, err := findPlan(db, id)
	if err != nil {
		return err
	}
	sessions := store.AISessions(p.Sessions)

	if out == "" {
		out = "studyr-plan." + format
	}
	var w io.Writer = os.Stdout
	if out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("creating %s: %w", out, err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "ics":
		skipped, err := export.ICS(w, sessions, time.Local)
		if errors.Is(err, export.ErrNothingToExport) {
			return fmt.Errorf("plan %s has no sessions with valid times", p.ID)
		}
		if err != nil {
			return err
		}
		if skipped > 0 {
			fmt.Fprintf(os.Stderr, "Skipped %d session(s) with invalid times.\n", skipped)
		}
	case "xlsx":
		wb := export.Workbook{Sessions: sessions}
		// an unreadable setup only loses the setup sheets
		if s, err := loadSetup(cfg); err == nil {
			wb.Setup = s
		}
		if err := export.XLSX(w, wb); err != nil {
			return err
		}
	case "pdf":
		if err := export.PDF(w, sessions, p.Start, p.End, locale(cfg)); err != nil {
			return err
		}
	}

	if out != "-" {
		fmt.Printf("Exported plan %s (%d sessions) to %s\n", p.ID, len(sessions), out)
	}
	return nil
}

func runImportCalendar(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	days, _ := cmd.Flags().GetInt("days")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	source := cfg.Calendar.Source
	if len(args) == 1 {
		source = args[0]
	}
	if source == "" {
		return errors.New("no calendar source given; pass a file or URL or set calendar.source")
	}

	s, err := loadSetup(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	events, err := calendar.Fetch(ctx, source, from, from.AddDate(0, 0, days))
	if err != nil {
		return err
	}

	busy, absences, ignored := calendar.ToConstraints(events)
	for _, b := range busy {
		fmt.Printf("  busy     %-24s %v %s-%s\n", b.Label, b.Days, b.Start, b.End)
	}
	for _, a := range absences {
		fmt.Printf("  absence  %-24s %s to %s\n", a.Label, a.Start, a.End)
	}
	for _, e := range ignored {
		fmt.Printf("  ignored  %-24s %s\n", e.Summary, e.StartTime.Format("2006-01-02 15:04"))
	}
	fmt.Printf("\n%d events: %d busy times, %d absences, %d ignored\n", len(events), len(busy), len(absences), len(ignored))

	if dryRun {
		return nil
	}
	if len(busy) == 0 && len(absences) == 0 {
		fmt.Println("Nothing to import.")
		return nil
	}

	s.BusyTimes = append(s.BusyTimes, busy...)
	s.Absences = append(s.Absences, absences...)
	if err := setup.Save(cfg.SetupPath, s); err != nil {
		return fmt.Errorf("saving setup: %w", err)
	}
	fmt.Printf("Updated %s\n", cfg.SetupPath)
	return nil
}

func runRestDays(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := loadSetup(cfg)
	if err != nil {
		return err
	}

	app := tui.NewDayPickerApp(s.RestWeekdays(), locale(cfg))
	if _, err := tea.NewProgram(app).Run(); err != nil {
		return fmt.Errorf("running day picker: %w", err)
	}

	res := app.GetResult()
	if res == nil || res.Canceled {
		fmt.Println("Rest days unchanged.")
		return nil
	}

	s.SetRestDays(res.Days)
	if err := setup.Save(cfg.SetupPath, s); err != nil {
		return fmt.Errorf("saving setup: %w", err)
	}
	if len(res.Days) == 0 {
		fmt.Println("No rest days set.")
		return nil
	}
	fmt.Printf("Rest days: %v\n", s.Preferences.RestDays)
	return nil
}
