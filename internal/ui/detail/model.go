// Package detail shows one notification in full.
package detail

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notification-center/internal/keys"
	"github.com/nhle/notification-center/internal/model"
	"github.com/nhle/notification-center/internal/theme"
)

// BackMsg signals the parent to navigate back to the feed.
type BackMsg struct{}

// Model is the notification detail view.
type Model struct {
	n        *model.Notification
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
}

// New creates a new detail view model.
func New(k *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     k,
		width:    width,
		height:   height,
	}
}

// SetNotification shows n from the top.
func (m *Model) SetNotification(n model.Notification) {
	m.n = &n
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// Update handles back navigation and scrolling.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.keys.Back) {
		return m, func() tea.Msg { return BackMsg{} }
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	if m.n == nil {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No notification selected")
	}
	return m.viewport.View()
}

func (m Model) renderContent() string {
	n := m.n
	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	field := func(label, value string) string {
		return fmt.Sprintf("%-10s %s", metaStyle.Render(label+":"), valStyle.Render(value))
	}

	state := theme.UnreadStyle.Render("unread")
	if n.Read {
		state = theme.ReadStyle.Render("read")
	}

	sections := []string{
		lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).Render(n.Title),
		state,
		"",
		field("Category", string(n.Category)),
		field("Created", n.CreatedAt.Local().Format("2006-01-02 15:04")),
	}
	if n.ReadAt != nil {
		sections = append(sections, field("Read", n.ReadAt.Local().Format("2006-01-02 15:04")))
	}

	// Map order is random; keep the metadata stable between renders.
	names := make([]string, 0, len(n.Metadata))
	for k := range n.Metadata {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		sections = append(sections, field(k, n.Metadata[k]))
	}

	sections = append(sections, "", lipgloss.NewStyle().Width(max(m.width-2, 10)).Render(n.Message))

	return strings.Join(sections, "\n")
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	if m.n != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
