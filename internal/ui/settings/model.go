// Package settings renders the notification preference matrix: the
// global switches on top, one row per configurable category below.
package settings

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notification-center/internal/keys"
	"github.com/nhle/notification-center/internal/model"
	"github.com/nhle/notification-center/internal/preference"
	"github.com/nhle/notification-center/internal/theme"
)

// Model is the settings view.
type Model struct {
	keys    *keys.KeyMap
	spinner spinner.Model

	global  model.GlobalSettings
	rows    []preference.Resolution
	cursor  int
	loading bool
	saving  bool

	width  int
	height int
}

// New creates a settings view.
func New(k *keys.KeyMap, width, height int) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	return Model{
		keys:    k,
		spinner: s,
		global:  model.DefaultGlobalSettings(),
		loading: true,
		width:   width,
		height:  height,
	}
}

// SetState recomputes the rows from the service's store.
func (m *Model) SetState(svc *preference.Service, role model.Role, rules preference.AccessRules) {
	st := svc.Store()
	m.global = st.Global()
	m.rows = preference.ResolveAll(st, role, rules)
	m.loading = svc.Loading()
	m.saving = svc.Saving()
	if m.cursor > len(m.rows) {
		m.cursor = len(m.rows)
	}
}

// Saving reports whether the last SetState saw a write in flight.
func (m Model) Saving() bool {
	return m.saving
}

// Selected returns the focused category. ok is false on the global row.
func (m Model) Selected() (tag model.CategoryTag, ok bool) {
	if m.cursor == 0 || m.cursor > len(m.rows) {
		return "", false
	}
	return m.rows[m.cursor-1].Category, true
}

// Tick keeps the saving indicator spinning.
func (m Model) Tick() tea.Cmd {
	return m.spinner.Tick
}

// Update handles navigation and spinner ticks.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.rows) {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		}
	}
	return m, nil
}

// View renders the matrix.
func (m Model) View() string {
	if m.loading && len(m.rows) == 0 {
		return theme.PanelStyle.Render(m.spinner.View() + " Loading preferences…")
	}

	status := preference.AggregateStatus(m.global)
	var b strings.Builder

	b.WriteString(theme.SeverityStyle(string(status.Severity)).Render(status.Text))
	if m.saving {
		b.WriteString("  " + m.spinner.View() + " saving…")
	}
	b.WriteString("\n\n")

	b.WriteString(m.row(0, "All notifications", m.global.EmailEnabled, m.global.WebEnabled, false))
	b.WriteString("\n")
	for i, r := range m.rows {
		label := r.Label
		if label == "" {
			label = string(r.Category)
		}
		b.WriteString(m.row(i+1, label, r.Email, r.Web, !r.Explicit))
	}

	b.WriteString("\n")
	b.WriteString(theme.HelpStyle.Render("e toggle email · w toggle in-app"))

	return theme.PanelStyle.
		Width(max(m.width-4, 0)).
		Render(b.String())
}

func (m Model) row(index int, label string, email, web, inherited bool) string {
	line := fmt.Sprintf("%-28s %s  %s",
		label,
		theme.SwitchStyle(email).Render(switchText("email", email)),
		theme.SwitchStyle(web).Render(switchText("in-app", web)),
	)
	if inherited {
		line += theme.DimmedStyle.Render("  default")
	}
	if index == m.cursor {
		return theme.SelectedItemStyle.Render(line) + "\n"
	}
	return theme.ItemStyle.Render(line) + "\n"
}

func switchText(name string, on bool) string {
	if on {
		return "[x] " + name
	}
	return "[ ] " + name
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
