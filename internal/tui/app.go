package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/christopherklint97/studyr/internal/ai"
	"github.com/christopherklint97/studyr/internal/planning"
)

type viewState int

const (
	inputView viewState = iota
	loadingView
	sessionsView
	confirmationView
)

// SaveFunc persists accepted sessions and returns the plan ID.
type SaveFunc func(sessions []ai.Session, notes string) (string, error)

type Result struct {
	Skipped  bool
	PlanID   string
	Sessions []ai.Session
	Notes    string
}

type planMsg struct {
	sessions []ai.Session
	err      error
}

type savedMsg struct {
	planID   string
	sessions []ai.Session
	err      error
}

type thinkingMsg string

type App struct {
	state    viewState
	input    inputModel
	spinner  spinner.Model
	sessions sessionsModel
	result   *Result
	errMsg   string
	thinking string

	req      ai.PlanRequest
	slots    []planning.FreeSlot
	provider ai.Provider
	save     SaveFunc
	timeout  time.Duration
}

func NewApp(req ai.PlanRequest, slots []planning.FreeSlot, provider ai.Provider, save SaveFunc, timeout time.Duration) *App {
	s := spinner.New()
	s.Spinner = spinner.Dot

	if timeout <= 0 {
		timeout = 3 * time.Minute
	}

	return &App{
		state:    inputView,
		input:    newInputModel(slotSummary(req, slots), req.Notes),
		spinner:  s,
		req:      req,
		slots:    slots,
		provider: provider,
		save:     save,
		timeout:  timeout,
	}
}

// Attach lets streaming providers report progress into the view.
func (a *App) Attach(p *tea.Program) {
	if cli, ok := a.provider.(*ai.ClaudeCLI); ok {
		cli.OnThinking = func(chunk string) {
			p.Send(thinkingMsg(chunk))
		}
	}
}

func slotSummary(req ai.PlanRequest, slots []planning.FreeSlot) string {
	return fmt.Sprintf("%s bis %s • %d Prüfungsleistungen • %.2f freie Stunden an %d Tagen",
		req.Start.Format("02.01.2006"), req.End.Format("02.01.2006"),
		len(req.Assessments), planning.TotalHours(slots), planning.AvailableDays(slots))
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.input.textarea.Focus(), a.spinner.Tick)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if wsMsg, ok := msg.(tea.WindowSizeMsg); ok {
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(wsMsg)
		return a, cmd
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			a.result = &Result{Skipped: true}
			return a, tea.Quit
		}
	case planMsg:
		return a.handlePlan(msg)
	case savedMsg:
		return a.handleSaved(msg)
	case thinkingMsg:
		a.thinking = lastLine(a.thinking + string(msg))
		return a, nil
	}

	switch a.state {
	case inputView:
		return a.updateInput(msg)
	case loadingView:
		return a.updateLoading(msg)
	case sessionsView:
		return a.updateSessions(msg)
	case confirmationView:
		return a.updateConfirmation(msg)
	}

	return a, nil
}

func (a *App) View() string {
	switch a.state {
	case inputView:
		return a.input.View()
	case loadingView:
		view := a.spinner.View() + " Lernplan wird erstellt..."
		if a.thinking != "" {
			view += "\n" + dimStyle.Render(a.thinking)
		}
		return view
	case sessionsView:
		return a.sessions.View()
	case confirmationView:
		if a.errMsg != "" {
			return errorStyle.Render("Fehler: ") + a.errMsg + "\n\n" + helpStyle.Render("Beliebige Taste zum Beenden")
		}
		return successStyle.Render(fmt.Sprintf("Plan gespeichert (%d Einheiten).", len(a.result.Sessions))) + "\n" +
			dimStyle.Render(a.result.PlanID) + "\n\n" + helpStyle.Render("Beliebige Taste zum Beenden")
	}
	return ""
}

func (a *App) GetResult() *Result {
	return a.result
}

func (a *App) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "enter" {
		a.state = loadingView
		a.thinking = ""
		return a, tea.Batch(a.spinner.Tick, a.generate(strings.TrimSpace(a.input.Value())))
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) updateLoading(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	a.spinner, cmd = a.spinner.Update(msg)
	return a, cmd
}

func (a *App) updateSessions(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "a":
			valid := a.sessions.valid()
			if len(valid) == 0 {
				return a, nil
			}
			return a, a.accept(valid)
		case "x", "delete":
			a.sessions.drop()
		case "r":
			a.state = inputView
			prev := a.input
			a.input = newInputModel(prev.summary, prev.Value())
			a.input, _ = a.input.Update(tea.WindowSizeMsg{Width: prev.width, Height: prev.height})
			return a, a.input.textarea.Focus()
		case "s":
			a.result = &Result{Skipped: true}
			return a, tea.Quit
		case "up", "k":
			if a.sessions.cursor > 0 {
				a.sessions.cursor--
			}
		case "down", "j":
			if a.sessions.cursor < len(a.sessions.sessions)-1 {
				a.sessions.cursor++
			}
		}
	}
	return a, nil
}

func (a *App) updateConfirmation(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); ok {
		return a, tea.Quit
	}
	return a, nil
}

func (a *App) handlePlan(msg planMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		a.state = confirmationView
		a.errMsg = msg.err.Error()
		return a, nil
	}

	a.sessions = newSessionsModel(msg.sessions, a.slots)
	a.state = sessionsView
	return a, nil
}

func (a *App) handleSaved(msg savedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		a.state = confirmationView
		a.errMsg = msg.err.Error()
		return a, nil
	}

	a.result = &Result{PlanID: msg.planID, Sessions: msg.sessions, Notes: a.req.Notes}
	a.state = confirmationView
	return a, nil
}

func (a *App) generate(notes string) tea.Cmd {
	a.req.Notes = notes
	req := a.req
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()

		sessions, err := a.provider.GeneratePlan(ctx, req)
		return planMsg{sessions: sessions, err: err}
	}
}

func (a *App) accept(sessions []ai.Session) tea.Cmd {
	notes := a.req.Notes
	return func() tea.Msg {
		if a.save == nil {
			return savedMsg{sessions: sessions}
		}
		id, err := a.save(sessions, notes)
		return savedMsg{planID: id, sessions: sessions, err: err}
	}
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return truncate(s, 100)
}
