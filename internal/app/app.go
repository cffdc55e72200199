package app

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/nhle/notification-center/internal/keys"
	"github.com/nhle/notification-center/internal/model"
	"github.com/nhle/notification-center/internal/notify"
	"github.com/nhle/notification-center/internal/preference"
	"github.com/nhle/notification-center/internal/remote"
	"github.com/nhle/notification-center/internal/ui"
	"github.com/nhle/notification-center/internal/ui/command"
	"github.com/nhle/notification-center/internal/ui/detail"
	"github.com/nhle/notification-center/internal/ui/feedlist"
	helpview "github.com/nhle/notification-center/internal/ui/help"
	"github.com/nhle/notification-center/internal/ui/settings"
)

// refreshResultMsg carries one poller result to the UI.
type refreshResultMsg struct {
	result notify.RefreshResult
}

// pollerClosedMsg is sent once the poller's result channel is closed.
type pollerClosedMsg struct{}

// preferencesLoadedMsg is sent when the initial preference load settles.
type preferencesLoadedMsg struct {
	err error
}

// writeDoneMsg is sent when a feed mutation or preference write settles.
type writeDoneMsg struct {
	err error
}

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewFeed ViewState = iota
	ViewSettings
	ViewDetail
	ViewCommand
	ViewHelp
)

// Deps are the services the panel mounts. The panel tears them down
// when it quits.
type Deps struct {
	UserID        string
	Role          model.Role
	Rules         preference.AccessRules
	HasCredential bool

	Feed        *notify.Feed
	Poller      *notify.Poller
	Mutator     *notify.Mutator
	Preferences *preference.Service

	Logger logrus.FieldLogger
}

// Model is the root Bubble Tea model: the notification feed and the
// preference matrix, switched with tab.
type Model struct {
	deps   Deps
	ctx    context.Context
	cancel context.CancelFunc

	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	feedList     feedlist.Model
	settings     settings.Model
	detailView   detail.Model
	commandView  command.Model
	helpView     helpview.Model

	snapshot notify.Snapshot
	notice   string
	inFlight int
	ticking  bool
	ready    bool
}

// New creates the root model.
func New(d Deps) Model {
	ctx, cancel := context.WithCancel(context.Background())
	k := keys.DefaultKeyMap()

	return Model{
		deps:        d,
		ctx:         ctx,
		cancel:      cancel,
		keys:        k,
		feedList:    feedlist.New(80, 20),
		settings:    settings.New(k, 80, 20),
		detailView:  detail.New(k, 80, 20),
		commandView: command.New(80),
		helpView:    helpview.New(k, 80, 20),
		snapshot:    d.Feed.Snapshot(),
		ticking:     true,
	}
}

// Init starts polling and loads preferences.
func (m Model) Init() tea.Cmd {
	p, ctx := m.deps.Poller, m.ctx
	return tea.Batch(
		func() tea.Msg {
			p.Start(ctx)
			return nil
		},
		waitForResult(p),
		m.loadPreferences(),
		m.settings.Tick(),
	)
}

// waitForResult returns a tea.Cmd that waits for the next poller result.
// It must be issued again after every refreshResultMsg.
func waitForResult(p *notify.Poller) tea.Cmd {
	return func() tea.Msg {
		r, ok := <-p.Results()
		if !ok {
			return pollerClosedMsg{}
		}
		return refreshResultMsg{result: r}
	}
}

func (m Model) loadPreferences() tea.Cmd {
	svc, ctx, userID := m.deps.Preferences, m.ctx, m.deps.UserID
	return func() tea.Msg {
		return preferencesLoadedMsg{err: svc.Load(ctx, userID)}
	}
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.feedList.SetSize(w, h)
		m.settings.SetSize(w, h)
		m.detailView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.helpView.SetSize(w, h)
		return m, nil

	case refreshResultMsg:
		m.snapshot = msg.result.Snapshot
		if msg.result.Err != nil {
			m.notice = "Could not refresh notifications: " + msg.result.Err.Error()
		} else {
			m.notice = ""
		}
		return m, tea.Batch(m.feedList.SetSnapshot(m.snapshot), waitForResult(m.deps.Poller))

	case pollerClosedMsg:
		return m, nil

	case preferencesLoadedMsg:
		if msg.err != nil && !remote.IsAuthError(msg.err) {
			m.notice = "Could not load preferences: " + msg.err.Error()
		}
		m.syncSettings()
		return m, nil

	case writeDoneMsg:
		m.inFlight--
		if msg.err != nil {
			m.notice = msg.err.Error()
		}
		m.syncSettings()
		return m, m.syncFeed()

	case spinner.TickMsg:
		m.syncSettings()
		feedCmd := m.syncFeed()
		if !m.busy() {
			m.ticking = false
			return m, feedCmd
		}
		var cmd tea.Cmd
		m.settings, cmd = m.settings.Update(msg)
		return m, tea.Batch(cmd, feedCmd)

	case detail.BackMsg:
		m.currentView = ViewFeed
		return m, nil

	case command.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m.executeCommand(string(msg))

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateActiveView(msg)
}

// handleKey processes global keys, then view-specific actions.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The palette takes every key while it is open.
	if m.currentView == ViewCommand {
		return m.updateActiveView(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.teardown()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil

	case key.Matches(msg, m.keys.SwitchView):
		if m.currentView == ViewSettings {
			m.currentView = ViewFeed
		} else {
			m.currentView = ViewSettings
			m.syncSettings()
		}
		return m, nil

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m, m.commandView.Focus()

	case key.Matches(msg, m.keys.Dismiss):
		m.dismiss()
		return m, nil
	}

	switch m.currentView {
	case ViewFeed:
		if cmd, handled := m.handleFeedKey(msg); handled {
			return m, cmd
		}
	case ViewSettings:
		if cmd, handled := m.handleSettingsKey(msg); handled {
			return m, cmd
		}
	}

	return m.updateActiveView(msg)
}

func (m *Model) handleFeedKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	mut := m.deps.Mutator

	switch {
	case key.Matches(msg, m.keys.Open):
		n, ok := m.feedList.Selected()
		if ok {
			m.detailView.SetNotification(n)
			m.currentView = ViewDetail
		}
		return nil, true

	case key.Matches(msg, m.keys.MarkRead):
		id, ok := m.feedList.SelectedID()
		if !ok {
			return nil, true
		}
		return m.write(mut.StageMarkRead(id)), true

	case key.Matches(msg, m.keys.MarkAllRead):
		return m.write(mut.StageMarkAllRead()), true

	case key.Matches(msg, m.keys.Delete):
		id, ok := m.feedList.SelectedID()
		if !ok {
			return nil, true
		}
		return m.write(mut.StageDelete(id)), true

	case key.Matches(msg, m.keys.UnreadOnly):
		m.deps.Poller.SetUnreadOnly(!m.snapshot.UnreadOnly)
		return m.syncFeed(), true

	case key.Matches(msg, m.keys.Refresh):
		m.deps.Poller.Refresh()
		return nil, true
	}
	return nil, false
}

func (m *Model) handleSettingsKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	var c model.Channel
	switch {
	case key.Matches(msg, m.keys.ToggleEmail):
		c = model.ChannelEmail
	case key.Matches(msg, m.keys.ToggleWeb):
		c = model.ChannelWeb
	default:
		return nil, false
	}

	svc := m.deps.Preferences
	st := svc.Store()

	// The toggle reads and changes the store here, not in the command, so
	// repeated presses see each other before anything is sent.
	var (
		send func(context.Context) error
		err  error
	)
	if tag, isCategory := m.settings.Selected(); isCategory {
		send, err = svc.StageCategoryPreference(tag, c, !st.Preference(tag).Enabled(c))
	} else {
		send, err = svc.StageGlobal(c, !st.Global().Enabled(c))
	}
	if err != nil {
		m.notice = err.Error()
		return nil, true
	}
	return m.write(send), true
}

// executeCommand runs a palette command.
func (m Model) executeCommand(cmd string) (tea.Model, tea.Cmd) {
	switch cmd {
	case "refresh", "sync":
		m.deps.Poller.Refresh()
		return m, nil
	case "unread":
		m.deps.Poller.SetUnreadOnly(true)
		return m, m.syncFeed()
	case "all":
		m.deps.Poller.SetUnreadOnly(false)
		return m, m.syncFeed()
	case "read-all":
		return m, m.write(m.deps.Mutator.StageMarkAllRead())
	case "settings", "preferences":
		m.currentView = ViewSettings
		m.syncSettings()
		return m, nil
	case "feed":
		m.currentView = ViewFeed
		return m, nil
	case "dismiss":
		m.dismiss()
		return m, nil
	case "quit", "q":
		m.teardown()
		return m, tea.Quit
	default:
		m.notice = fmt.Sprintf("Unknown command %q", cmd)
		return m, nil
	}
}

func (m *Model) dismiss() {
	m.notice = ""
	m.deps.Preferences.DismissError()
}

// write runs send in the background and keeps the spinner going until
// every outstanding write settles. The local change has already been
// staged by the caller, so the views are refreshed before returning.
func (m *Model) write(send func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	m.inFlight++
	m.syncSettings()
	feedCmd := m.syncFeed()

	cmd := func() tea.Msg {
		return writeDoneMsg{err: send(ctx)}
	}
	if m.ticking {
		return tea.Batch(cmd, feedCmd)
	}
	m.ticking = true
	return tea.Batch(cmd, feedCmd, m.settings.Tick())
}

func (m Model) busy() bool {
	return m.inFlight > 0 || m.deps.Preferences.Saving() || m.deps.Preferences.Loading()
}

func (m *Model) syncFeed() tea.Cmd {
	m.snapshot = m.deps.Feed.Snapshot()
	return m.feedList.SetSnapshot(m.snapshot)
}

func (m *Model) syncSettings() {
	m.settings.SetState(m.deps.Preferences, m.deps.Role, m.deps.Rules)
}

// teardown stops polling and discards anything still in flight.
func (m Model) teardown() {
	m.deps.Poller.Stop()
	m.deps.Feed.Close()
	m.deps.Preferences.Close()
	m.cancel()
	m.deps.Logger.WithField("user_id", m.deps.UserID).Debug("panel closed")
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewFeed:
		m.feedList, cmd = m.feedList.Update(msg)
	case ViewSettings:
		m.settings, cmd = m.settings.Update(msg)
	case ViewDetail:
		m.detailView, cmd = m.detailView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := "Notifications"
	if m.snapshot.UnreadCount > 0 {
		title = fmt.Sprintf("Notifications [%d new]", m.snapshot.UnreadCount)
	}

	header := m.layout.RenderHeader(title, m.headerStatus())
	banner := m.layout.RenderBanner(m.bannerText())
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, banner, m.renderContent(), statusBar)
}

func (m Model) renderContent() string {
	switch m.currentView {
	case ViewSettings:
		return m.settings.View()
	case ViewDetail:
		return m.detailView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewHelp:
		return m.helpView.View()
	default:
		return m.feedList.View()
	}
}

// headerStatus describes who is signed in and when the feed last synced.
func (m Model) headerStatus() string {
	switch {
	case m.deps.UserID == "":
		return "no user"
	case !m.deps.HasCredential:
		return m.deps.UserID + " · not signed in"
	case m.snapshot.LastRefresh.IsZero():
		return m.deps.UserID + " · syncing"
	default:
		return m.deps.UserID + " · updated " + m.snapshot.LastRefresh.Format("15:04:05")
	}
}

// bannerText prefers a failed preference write over feed errors.
func (m Model) bannerText() string {
	if err := m.deps.Preferences.Err(); err != nil {
		return "Could not save preferences: " + err.Error() + "  (x to dismiss)"
	}
	if m.notice != "" {
		return m.notice + "  (x to dismiss)"
	}
	return ""
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help"
	case ViewDetail:
		return "esc back | j/k scroll | tab settings | q quit"
	case ViewCommand:
		return "enter run | esc cancel"
	case ViewSettings:
		return "j/k move | e email | w in-app | tab feed | q quit"
	default:
		return "o open | enter read | A all read | d delete | u unread only | r refresh | tab settings | ? help"
	}
}
