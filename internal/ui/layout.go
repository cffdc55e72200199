package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notification-center/internal/theme"
)

// Layout manages the panel's terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	BannerHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions. One line
// is reserved each for the header, an error banner and the status bar.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		BannerHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height left for the active view.
func (l Layout) ContentHeight() int {
	h := l.Height - l.HeaderHeight - l.BannerHeight - l.StatusBarHeight
	if h < 0 {
		return 0
	}
	return h
}

// RenderHeader renders the title bar with a right-aligned status.
func (l Layout) RenderHeader(title string, status string) string {
	titleRendered := theme.HeaderStyle.Render(title)
	statusRendered := theme.HeaderStyle.Align(lipgloss.Right).Render(status)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		l.fill(theme.HeaderStyle, lipgloss.Width(titleRendered)+lipgloss.Width(statusRendered)),
		statusRendered,
	)
}

// RenderBanner renders the error line, or a blank line when msg is empty.
func (l Layout) RenderBanner(msg string) string {
	if msg == "" {
		return ""
	}
	return theme.ErrorBannerStyle.MaxWidth(l.Width).Render(msg)
}

// RenderStatusBar renders the bottom status bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	rendered := theme.StatusBarStyle.Render(hints)
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, l.fill(theme.StatusBarStyle, lipgloss.Width(rendered)))
}

// fill pads a bar to the full width with its background.
func (l Layout) fill(style lipgloss.Style, used int) string {
	gap := l.Width - used
	if gap < 0 {
		gap = 0
	}
	return lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")
}

// RenderWithFrame stacks header, banner, content and status bar.
func (l Layout) RenderWithFrame(header, banner, content, statusBar string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, banner, content, statusBar)
}
