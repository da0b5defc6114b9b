package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/christopherklint97/studyr/internal/ai"
	"github.com/christopherklint97/studyr/internal/config"
	"github.com/christopherklint97/studyr/internal/plan"
	"github.com/christopherklint97/studyr/internal/planning"
	"github.com/christopherklint97/studyr/internal/setup"
	"github.com/christopherklint97/studyr/internal/store"
	"github.com/christopherklint97/studyr/internal/tui"
)

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "Show the free study slots of the current setup",
	RunE:  runSlots,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the setup file",
	RunE:  runCheck,
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Generate a study plan and review it",
	RunE:  runPlan,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the latest study plan",
	RunE:  runShow,
}

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "List saved study plans",
	RunE:  runPlans,
}

func init() {
	slotsCmd.Flags().Bool("json", false, "print slot records as JSON")
	planCmd.Flags().BoolP("yes", "y", false, "save the generated plan without review")
	planCmd.Flags().String("notes", "", "extra instructions for this plan")
	showCmd.Flags().String("id", "", "plan ID (default latest)")
	plansCmd.Flags().Int("limit", 20, "number of plans to list")
}

// computeSlots loads the setup and runs the free-slot calculation.
func computeSlots(cfg *config.Config, logger *slog.Logger) (*setup.Setup, *setup.Resolved, []planning.FreeSlot, error) {
	s, err := loadSetup(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	now := time.Now()
	if problems := s.Validate(now); len(problems) > 0 {
		return nil, nil, nil, fmt.Errorf("setup %s is incomplete:\n  - %s", cfg.SetupPath, strings.Join(problems, "\n  - "))
	}

	r, slots, err := s.FreeSlots(now, setup.DefaultsFrom(cfg.Planning), planning.NewCalculator(logger))
	if err != nil {
		return nil, nil, nil, err
	}
	for _, msg := range r.Skipped {
		logger.Warn("skipped setup record", "reason", msg)
	}
	return s, r, slots, nil
}

func runSlots(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	_, r, slots, err := computeSlots(cfg, logger)
	if err != nil {
		return err
	}
	loc := locale(cfg)

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		records := planning.Records(slots, loc)
		if records == nil {
			records = []planning.Record{}
		}
		return enc.Encode(records)
	}

	fmt.Printf("Free slots %s to %s:\n\n", r.Window.Start.Format(planning.DateLayout), r.Window.End.Format(planning.DateLayout))
	if len(slots) == 0 {
		fmt.Println("  No free time in this window.")
		return nil
	}
	for _, rec := range planning.Records(slots, loc) {
		fmt.Printf("  %s  %-10s  %s-%s  %5.2fh\n", rec.Date, rec.Day, rec.Start, rec.End, rec.Hours)
	}
	fmt.Printf("\nTotal: %.2fh on %d days (%d slots)\n", planning.TotalHours(slots), planning.AvailableDays(slots), len(slots))
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := loadSetup(cfg)
	if err != nil {
		return err
	}

	problems := s.Validate(time.Now())
	if len(problems) == 0 {
		fmt.Printf("%s looks good: %d assessments, %d busy times, %d absences.\n",
			cfg.SetupPath, len(s.Assessments), len(s.BusyTimes), len(s.Absences))
		return nil
	}
	fmt.Printf("%s has %d problem(s):\n", cfg.SetupPath, len(problems))
	for _, p := range problems {
		fmt.Printf("  - %s\n", p)
	}
	return errors.New("setup is incomplete")
}

func newPlanRequest(s *setup.Setup, r *setup.Resolved, slots []planning.FreeSlot, loc planning.Locale, notes string) ai.PlanRequest {
	return ai.PlanRequest{
		Start:       r.Window.Start,
		End:         r.Window.End,
		Assessments: r.Assessments,
		FreeSlots:   planning.Records(slots, loc),
		BusyTimes:   s.BusyTimes,
		Absences:    s.Absences,
		Preferences: s.Preferences,
		Strategies:  s.ActiveStrategies(),
		Locale:      loc,
		Notes:       notes,
	}
}

func runPlan(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	notes, _ := cmd.Flags().GetString("notes")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	s, r, slots, err := computeSlots(cfg, logger)
	if err != nil {
		return err
	}
	if len(slots) == 0 {
		return errors.New("no free time left in the planning window; adjust busy times or preferences")
	}

	provider, err := newAIProvider(cfg, logger)
	if err != nil {
		return err
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	req := newPlanRequest(s, r, slots, locale(cfg), notes)
	save := func(sessions []ai.Session, notes string) (string, error) {
		p := &store.Plan{
			Start:         r.Window.Start,
			End:           r.Window.End,
			Provider:      cfg.AI.Provider,
			Model:         cfg.AI.Model,
			PromptVersion: cfg.AI.PromptVersion,
			Notes:         notes,
			FreeSlots:     req.FreeSlots,
		}
		return db.SavePlan(p, sessions, time.Local)
	}
	timeout := time.Duration(cfg.AI.TimeoutSeconds) * time.Second

	if yes {
		ctx, cancel := signalContext()
		defer cancel()
		if timeout > 0 {
			var tcancel context.CancelFunc
			ctx, tcancel = context.WithTimeout(ctx, timeout)
			defer tcancel()
		}

		fmt.Printf("Generating plan for %s to %s (%.2fh free)...\n",
			r.Window.Start.Format(planning.DateLayout), r.Window.End.Format(planning.DateLayout), planning.TotalHours(slots))
		sessions, err := provider.GeneratePlan(ctx, req)
		if err != nil {
			return fmt.Errorf("generating plan: %w", err)
		}
		violations := plan.Check(sessions, slots)
		for _, v := range violations {
			fmt.Printf("  dropped %s\n", v)
		}
		kept := plan.Keep(sessions, violations)
		if len(kept) == 0 {
			return errors.New("the model returned no usable sessions")
		}
		id, err := save(kept, notes)
		if err != nil {
			return err
		}
		fmt.Printf("Saved plan %s with %d sessions (%.2fh).\n", id, len(kept), plan.TotalHours(kept))
		return nil
	}

	app := tui.NewApp(req, slots, provider, save, timeout)
	p := tea.NewProgram(app)
	app.Attach(p)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}

	result := app.GetResult()
	if result != nil && result.Skipped {
		fmt.Println("Plan discarded.")
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	id, _ := cmd.Flags().GetString("id")

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
	printPlan(p, locale(cfg))
	return nil
}

func findPlan(db *store.DB, id string) (*store.Plan, error) {
	if id != "" {
		return db.PlanByID(id)
	}
	p, err := db.LatestPlan()
	if err != nil {
		return nil, fmt.Errorf("loading latest plan: %w", err)
	}
	if p == nil {
		return nil, errors.New("no plan saved yet; run 'studyr plan' first")
	}
	return p, nil
}

func printPlan(p *store.Plan, loc planning.Locale) {
	sessions := store.AISessions(p.Sessions)
	fmt.Printf("Plan %s (%s to %s, created %s)\n",
		p.ID, p.Start.Format(planning.DateLayout), p.End.Format(planning.DateLayout),
		p.CreatedAt.Local().Format("2006-01-02 15:04"))
	if p.Notes != "" {
		fmt.Printf("Notes: %s\n", p.Notes)
	}

	for _, day := range plan.GroupByDate(sessions) {
		fmt.Printf("\n%s %s\n", planning.WeekdayOf(day.Date).Label(loc), day.Date.Format(planning.DateLayout))
		for _, s := range day.Sessions {
			fmt.Printf("  %s-%s  %-24s %s\n", s.Start, s.End, s.Module, s.Topic)
		}
	}

	fmt.Printf("\nTotal: %.2fh in %d sessions\n", plan.TotalHours(sessions), len(sessions))
	for module, hours := range plan.HoursByModule(sessions) {
		fmt.Printf("  %-24s %6.2fh\n", module, hours)
	}
}

func runPlans(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	plans, err := db.ListPlans(limit)
	if err != nil {
		return err
	}
	if len(plans) == 0 {
		fmt.Println("No plans saved yet.")
		return nil
	}
	for _, p := range plans {
		fmt.Printf("  %s  %s  %s to %s  %3d sessions  %s\n",
			p.ID, p.CreatedAt.Local().Format("2006-01-02 15:04"),
			p.Start.Format(planning.DateLayout), p.End.Format(planning.DateLayout),
			p.SessionCount, p.Provider)
	}
	return nil
}
