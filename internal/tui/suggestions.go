package tui

import (
	"fmt"
	"strings"

	"github.com/christopherklint97/studyr/internal/ai"
	"github.com/christopherklint97/studyr/internal/plan"
	"github.com/christopherklint97/studyr/internal/planning"
)

const sessionsVisible = 18

type sessionsModel struct {
	sessions   []ai.Session
	violations map[int]string
	slots      []planning.FreeSlot
	cursor     int
}

func newSessionsModel(sessions []ai.Session, slots []planning.FreeSlot) sessionsModel {
	sorted := make([]ai.Session, len(sessions))
	copy(sorted, sessions)
	plan.Sort(sorted)

	m := sessionsModel{sessions: sorted, slots: slots}
	m.check()
	return m
}

func (m *sessionsModel) check() {
	m.violations = make(map[int]string)
	for _, v := range plan.Check(m.sessions, m.slots) {
		m.violations[v.Index] = v.Reason
	}
}

// drop removes the highlighted session.
func (m *sessionsModel) drop() {
	if len(m.sessions) == 0 {
		return
	}
	m.sessions = append(m.sessions[:m.cursor:m.cursor], m.sessions[m.cursor+1:]...)
	if m.cursor >= len(m.sessions) {
		m.cursor = max(0, len(m.sessions)-1)
	}
	m.check()
}

// valid returns the sessions without violations.
func (m sessionsModel) valid() []ai.Session {
	var out []ai.Session
	for i, s := range m.sessions {
		if _, bad := m.violations[i]; !bad {
			out = append(out, s)
		}
	}
	return out
}

func (m sessionsModel) View() string {
	if len(m.sessions) == 0 {
		return warningStyle.Render("Das Modell hat keine Lerneinheiten vorgeschlagen.") + "\n\n" +
			helpStyle.Render("[r] neu erstellen • [s] überspringen")
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Vorgeschlagener Lernplan"))
	sb.WriteString("\n")

	start := 0
	if m.cursor >= sessionsVisible {
		start = m.cursor - sessionsVisible + 1
	}
	end := min(start+sessionsVisible, len(m.sessions))

	for i := start; i < end; i++ {
		s := m.sessions[i]
		prefix := "  "
		if i == m.cursor {
			prefix = "> "
		}

		reason, bad := m.violations[i]
		var line string
		switch {
		case i == m.cursor:
			line = highlightStyle.Render(fmt.Sprintf("%s%s  %s-%s  %-22s %s",
				prefix, s.Date, s.Start, s.End, truncate(s.Module, 22), s.Topic))
		case bad:
			line = prefix + invalidStyle.Render(fmt.Sprintf("%s  %s-%s  %-22s %s",
				s.Date, s.Start, s.End, truncate(s.Module, 22), s.Topic))
		default:
			line = fmt.Sprintf("%s%s  %s  %s %s", prefix, s.Date,
				timeStyle.Render(s.Start+"-"+s.End),
				moduleStyle.Render(fmt.Sprintf("%-22s", truncate(s.Module, 22))), s.Topic)
		}
		sb.WriteString(line)
		if bad {
			sb.WriteString("  " + warningStyle.Render("! "+reason))
		}
		sb.WriteString("\n")
	}

	if s := m.sessions[m.cursor]; s.Description != "" {
		sb.WriteString("\n")
		sb.WriteString(dimStyle.Render(s.Description))
		sb.WriteString("\n")
	}

	summary := fmt.Sprintf("%d Einheiten, %.2f Std.", len(m.sessions), plan.TotalHours(m.sessions))
	if n := len(m.violations); n > 0 {
		summary += warningStyle.Render(fmt.Sprintf(" (%d ungültig, werden beim Übernehmen verworfen)", n))
	}
	sb.WriteString("\n")
	sb.WriteString(summary)
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("[a] übernehmen • [x] Einheit entfernen • [r] neu erstellen • [s] überspringen"))

	return boxStyle.Render(sb.String())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
