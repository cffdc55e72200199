package feedlist

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/notification-center/internal/model"
	"github.com/nhle/notification-center/internal/theme"
)

// Item wraps a notification so it can be used in a bubbles/list.
type Item struct {
	Notification model.Notification
}

// FilterValue returns the string used for fuzzy filtering.
func (i Item) FilterValue() string { return i.Notification.Title }

// Delegate implements list.ItemDelegate for notification rows.
type Delegate struct {
	now func() time.Time
}

// Height returns the number of lines each item takes.
func (d Delegate) Height() int { return 2 }

// Spacing returns the number of blank lines between items.
func (d Delegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d Delegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a notification: a title line and a dimmed detail line.
func (d Delegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(Item)
	if !ok {
		return
	}
	n := it.Notification

	prefix, titleStyle := "○", theme.ReadStyle
	if !n.Read {
		prefix, titleStyle = "●", theme.UnreadStyle
	}

	title := titleStyle.Render(prefix + " " + n.Title)
	detail := theme.DimmedStyle.Render(fmt.Sprintf("  %s · %s · %s",
		n.Category, relativeTime(n.CreatedAt, d.now()), n.Message))

	row := title + "\n" + detail
	if index == m.Index() {
		_, _ = fmt.Fprint(w, theme.SelectedItemStyle.Render(row))
		return
	}
	_, _ = fmt.Fprint(w, theme.ItemStyle.Render(row))
}

// relativeTime formats t relative to now ("5m ago", "2d ago").
func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
