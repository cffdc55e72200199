package testutil

import (
	"context"
	"sync"

	"github.com/nhle/notification-center/internal/model"
)

// FakeRemote is an in-memory stand-in for the notification service. It
// records every write and lets tests inject failures or block a call
// until released.
type FakeRemote struct {
	mu sync.Mutex

	Notifications []model.Notification
	// Unread overrides the computed unread count when non-nil.
	Unread *int

	Global     model.GlobalSettings
	Categories []model.Category
	Prefs      []model.CategoryPreference

	// Err maps a method name (e.g. "MarkRead") to the error it returns.
	Err map[string]error

	// Hook, when set, runs at the start of every call with the method
	// name; it may block to hold a call in flight.
	Hook func(method string)

	Calls         []string
	GlobalWrites  []model.GlobalSettings
	PrefsWrites   [][]model.CategoryPreference
	ReadCalls     []string
	DeleteCalls   []string
	MarkAllCalls  int
	ListCallCount int
}

// NewFakeRemote returns a fake with default global settings.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		Global: model.DefaultGlobalSettings(),
		Err:    map[string]error{},
	}
}

func (f *FakeRemote) enter(method string) error {
	f.mu.Lock()
	hook := f.Hook
	f.Calls = append(f.Calls, method)
	err := f.Err[method]
	f.mu.Unlock()

	if hook != nil {
		hook(method)
	}
	return err
}

// SetErr injects err for method; nil clears it.
func (f *FakeRemote) SetErr(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.Err, method)
		return
	}
	f.Err[method] = err
}

// SetHook installs a hook under the fake's lock.
func (f *FakeRemote) SetHook(h func(method string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Hook = h
}

// Snapshot returns copies of the recorded writes.
func (f *FakeRemote) Snapshot() (globals []model.GlobalSettings, prefs [][]model.CategoryPreference) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.GlobalSettings(nil), f.GlobalWrites...),
		append([][]model.CategoryPreference(nil), f.PrefsWrites...)
}

// CallsTo counts the calls made to method.
func (f *FakeRemote) CallsTo(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c == method {
			n++
		}
	}
	return n
}

// SetNotifications replaces the server-side notification list.
func (f *FakeRemote) SetNotifications(ns []model.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Notifications = append([]model.Notification(nil), ns...)
}

func (f *FakeRemote) ListNotifications(
	ctx context.Context,
	userID string,
	unreadOnly bool,
) ([]model.Notification, error) {
	if err := f.enter("ListNotifications"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCallCount++

	out := make([]model.Notification, 0, len(f.Notifications))
	for _, n := range f.Notifications {
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n.Clone())
	}
	return out, nil
}

func (f *FakeRemote) UnreadCount(ctx context.Context, userID string) (int, error) {
	if err := f.enter("UnreadCount"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unread != nil {
		return *f.Unread, nil
	}
	n := 0
	for _, x := range f.Notifications {
		if !x.Read {
			n++
		}
	}
	return n, nil
}

func (f *FakeRemote) MarkRead(ctx context.Context, userID, id string) error {
	if err := f.enter("MarkRead"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ReadCalls = append(f.ReadCalls, id)
	for i := range f.Notifications {
		if f.Notifications[i].ID == id {
			f.Notifications[i].Read = true
		}
	}
	return nil
}

func (f *FakeRemote) MarkAllRead(ctx context.Context, userID string) error {
	if err := f.enter("MarkAllRead"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.MarkAllCalls++
	for i := range f.Notifications {
		f.Notifications[i].Read = true
	}
	return nil
}

func (f *FakeRemote) DeleteNotification(ctx context.Context, userID, id string) error {
	if err := f.enter("DeleteNotification"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DeleteCalls = append(f.DeleteCalls, id)
	kept := f.Notifications[:0]
	for _, n := range f.Notifications {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	f.Notifications = kept
	return nil
}

func (f *FakeRemote) GetGlobalSettings(ctx context.Context, userID string) (model.GlobalSettings, error) {
	if err := f.enter("GetGlobalSettings"); err != nil {
		return model.GlobalSettings{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Global, nil
}

func (f *FakeRemote) ReplaceGlobalSettings(ctx context.Context, userID string, g model.GlobalSettings) error {
	if err := f.enter("ReplaceGlobalSettings"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.GlobalWrites = append(f.GlobalWrites, g)
	f.Global = g
	return nil
}

func (f *FakeRemote) ListCategories(ctx context.Context) ([]model.Category, error) {
	if err := f.enter("ListCategories"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Category(nil), f.Categories...), nil
}

func (f *FakeRemote) GetPreferences(ctx context.Context, userID string) ([]model.CategoryPreference, error) {
	if err := f.enter("GetPreferences"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.CategoryPreference(nil), f.Prefs...), nil
}

func (f *FakeRemote) ReplacePreferences(ctx context.Context, userID string, prefs []model.CategoryPreference) error {
	if err := f.enter("ReplacePreferences"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PrefsWrites = append(f.PrefsWrites, append([]model.CategoryPreference(nil), prefs...))
	f.Prefs = append([]model.CategoryPreference(nil), prefs...)
	return nil
}
