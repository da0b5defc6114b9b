package tui

import (
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
)

type inputModel struct {
	textarea textarea.Model
	summary  string
	width    int
	height   int
}

func newInputModel(summary string, prefill string) inputModel {
	ta := textarea.New()
	ta.Placeholder = "Optional: Hinweise für diesen Plan (z. B. \"Statistik zuerst\")..."
	ta.Focus()
	ta.CharLimit = 1000
	ta.SetWidth(70)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	if prefill != "" {
		ta.SetValue(prefill)
	}

	return inputModel{
		textarea: ta,
		summary:  summary,
	}
}

func (m inputModel) Update(msg tea.Msg) (inputModel, tea.Cmd) {
	if ws, ok := msg.(tea.WindowSizeMsg); ok {
		m.width, m.height = ws.Width, ws.Height
		if ws.Width > 4 {
			m.textarea.SetWidth(min(ws.Width-4, 100))
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m inputModel) View() string {
	header := titleStyle.Render("studyr: Lernplan erstellen")
	summary := subtitleStyle.Render(m.summary)
	help := helpStyle.Render("Enter: Plan erstellen • Ctrl+C: abbrechen")

	return header + "\n" + summary + "\n" + m.textarea.View() + "\n" + help
}

func (m inputModel) Value() string {
	return m.textarea.Value()
}
