package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/christopherklint97/studyr/internal/planning"
)

type dayPickerModel struct {
	locale   planning.Locale
	selected map[planning.Weekday]bool
	cursor   int
	done     bool
	canceled bool
}

// DayPickerResult holds the rest days the user selected.
type DayPickerResult struct {
	Days     []planning.Weekday
	Canceled bool
}

// DayPickerApp wraps dayPickerModel for standalone use with tea.NewProgram.
type DayPickerApp struct {
	picker dayPickerModel
	result *DayPickerResult
}

func NewDayPickerApp(current []planning.Weekday, locale planning.Locale) *DayPickerApp {
	return &DayPickerApp{
		picker: newDayPicker(current, locale),
	}
}

func (a *DayPickerApp) Init() tea.Cmd {
	return nil
}

func (a *DayPickerApp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m, cmd := a.picker.Update(msg)
	a.picker = m.(dayPickerModel)

	if a.picker.done || a.picker.canceled {
		a.result = a.picker.Result()
		return a, tea.Quit
	}

	return a, cmd
}

func (a *DayPickerApp) View() string {
	return a.picker.View()
}

func (a *DayPickerApp) GetResult() *DayPickerResult {
	return a.result
}

func newDayPicker(current []planning.Weekday, locale planning.Locale) dayPickerModel {
	selected := make(map[planning.Weekday]bool)
	for _, d := range current {
		if d.Valid() {
			selected[d] = true
		}
	}
	return dayPickerModel{locale: locale, selected: selected}
}

func (m dayPickerModel) Init() tea.Cmd {
	return nil
}

func (m dayPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "ctrl+c", "esc", "q":
		m.canceled = true
	case "enter":
		// no rest days is a valid choice
		m.done = true
	case " ", "x":
		d := planning.Weekdays[m.cursor]
		if m.selected[d] {
			delete(m.selected, d)
		} else {
			m.selected[d] = true
		}
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(planning.Weekdays)-1 {
			m.cursor++
		}
	}
	return m, nil
}

func (m dayPickerModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Ruhetage wählen"))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render("An diesen Tagen wird nichts geplant."))
	b.WriteString("\n")

	for i, d := range planning.Weekdays {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		check := "[ ]"
		if m.selected[d] {
			check = "[x]"
		}

		line := fmt.Sprintf("%s%s %s", cursor, check, d.Label(m.locale))
		if i == m.cursor {
			line = highlightStyle.Render(fmt.Sprintf("%s%s ", cursor, check)) + d.Label(m.locale)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render(fmt.Sprintf(
		"%d ausgewählt • Leertaste: umschalten • Enter: bestätigen • Esc: abbrechen", len(m.selected))))

	return b.String()
}

// Result lists the selected days Monday first.
func (m dayPickerModel) Result() *DayPickerResult {
	if m.canceled {
		return &DayPickerResult{Canceled: true}
	}
	days := []planning.Weekday{}
	for _, d := range planning.Weekdays {
		if m.selected[d] {
			days = append(days, d)
		}
	}
	return &DayPickerResult{Days: days}
}
