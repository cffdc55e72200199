package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings of the notification panel.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding

	// Feed actions
	Open        key.Binding
	MarkRead    key.Binding
	MarkAllRead key.Binding
	Delete      key.Binding
	UnreadOnly  key.Binding
	Refresh     key.Binding

	// Preferences
	ToggleEmail key.Binding
	ToggleWeb   key.Binding

	// Views
	SwitchView key.Binding
	Back       key.Binding
	Command    key.Binding
	Dismiss    key.Binding
	Help       key.Binding
	Quit       key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Open: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open"),
		),
		MarkRead: key.NewBinding(
			key.WithKeys("enter", "m"),
			key.WithHelp("enter/m", "mark read"),
		),
		MarkAllRead: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "mark all read"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		UnreadOnly: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "unread only"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		ToggleEmail: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "toggle email"),
		),
		ToggleWeb: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "toggle in-app"),
		),
		SwitchView: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "feed/settings"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command palette"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "dismiss error"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.MarkRead, k.SwitchView, k.Quit, k.Help,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.SwitchView, k.Back, k.Command, k.Help, k.Quit},
		{k.Open, k.MarkRead, k.MarkAllRead, k.Delete, k.UnreadOnly, k.Refresh},
		{k.ToggleEmail, k.ToggleWeb, k.Dismiss},
	}
}
