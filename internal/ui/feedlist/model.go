// Package feedlist renders the notification feed as a scrollable list.
package feedlist

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notification-center/internal/model"
	"github.com/nhle/notification-center/internal/notify"
	"github.com/nhle/notification-center/internal/theme"
)

// Model is the notification list view.
type Model struct {
	list       list.Model
	unreadOnly bool
	hasUser    bool
	width      int
	height     int
}

// New creates an empty list view.
func New(width, height int) Model {
	l := list.New([]list.Item{}, Delegate{now: time.Now}, width, height)
	l.Title = "Notifications"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{list: l, width: width, height: height}
}

// SetSnapshot replaces the rows with the feed's current contents. The
// cursor stays on the same index, clamped to the new length.
func (m *Model) SetSnapshot(snap notify.Snapshot) tea.Cmd {
	m.unreadOnly = snap.UnreadOnly
	m.hasUser = snap.UserID != ""

	items := make([]list.Item, len(snap.Notifications))
	for i, n := range snap.Notifications {
		items[i] = Item{Notification: n}
	}

	idx := m.list.Index()
	cmd := m.list.SetItems(items)
	if idx >= len(items) {
		idx = len(items) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}

	m.list.Title = fmt.Sprintf("Notifications (%d unread)", snap.UnreadCount)
	if snap.UnreadOnly {
		m.list.Title += " · unread only"
	}
	return cmd
}

// Selected returns the focused notification.
func (m Model) Selected() (model.Notification, bool) {
	it, ok := m.list.SelectedItem().(Item)
	if !ok {
		return model.Notification{}, false
	}
	return it.Notification, true
}

// SelectedID returns the id of the focused notification.
func (m Model) SelectedID() (string, bool) {
	n, ok := m.Selected()
	return n.ID, ok
}

// Update handles navigation keys.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the list, or a hint when it is empty.
func (m Model) View() string {
	if len(m.list.Items()) > 0 {
		return m.list.View()
	}

	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case !m.hasUser:
		return style.Render("No user configured.\n\nSet user.id in the config file.")
	case m.unreadOnly:
		return style.Render("No unread notifications.\nPress u to show all.")
	default:
		return style.Render("No notifications yet.")
	}
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}
