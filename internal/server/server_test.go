package server_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notification-center/internal/logging"
	"github.com/nhle/notification-center/internal/model"
	"github.com/nhle/notification-center/internal/notify"
	"github.com/nhle/notification-center/internal/preference"
	"github.com/nhle/notification-center/internal/remote"
	"github.com/nhle/notification-center/internal/server"
	"github.com/nhle/notification-center/internal/store"
	"github.com/nhle/notification-center/tests/testutil"
)

var tokens = map[string]string{
	"tok-alice": "alice",
	"tok-bob":   "bob",
}

type env struct {
	store *store.SQLiteStore
	url   string
}

func newEnv(t *testing.T) env {
	t.Helper()
	st := testutil.NewTestStore(t)
	srv := server.New(st, tokens, logging.Discard())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return env{store: st, url: ts.URL}
}

func (e env) service(token string) *remote.Service {
	return remote.NewService(remote.NewClient(e.url, token, 5*time.Second))
}

func TestNotificationsRequireMatchingToken(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.service("bogus").ListNotifications(ctx, "alice", false)
	var authErr *remote.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)

	_, err = e.service("tok-bob").ListNotifications(ctx, "alice", false)
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusForbidden, authErr.StatusCode)
}

func TestCategoriesAreServedWithoutCredential(t *testing.T) {
	e := newEnv(t)

	cats, err := e.service("").ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 8)
	assert.Equal(t, model.CategoryTag("new_release"), cats[0].Tag)
}

func TestNotificationEndpoints(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, server.Seed(ctx, e.store, "alice", now))

	svc := e.service("tok-alice")

	list, err := svc.ListNotifications(ctx, "alice", false)
	require.NoError(t, err)
	require.Len(t, list, 5)
	assert.Equal(t, "Scheduled maintenance", list[0].Title, "newest first")

	unread, err := svc.ListNotifications(ctx, "alice", true)
	require.NoError(t, err)
	assert.Len(t, unread, 4)

	count, err := svc.UnreadCount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	require.NoError(t, svc.MarkRead(ctx, "alice", list[0].ID))
	count, err = svc.UnreadCount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, svc.DeleteNotification(ctx, "alice", list[1].ID))
	err = svc.DeleteNotification(ctx, "alice", list[1].ID)
	assert.True(t, errors.Is(err, remote.ErrNotFound))

	require.NoError(t, svc.MarkAllRead(ctx, "alice"))
	count, err = svc.UnreadCount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Other users see nothing of alice's.
	bobs, err := e.service("tok-bob").ListNotifications(ctx, "bob", false)
	require.NoError(t, err)
	assert.Empty(t, bobs)
}

func TestPreferenceEndpoints(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := e.service("tok-alice")

	g, err := svc.GetGlobalSettings(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultGlobalSettings(), g)

	require.NoError(t, svc.ReplaceGlobalSettings(ctx, "alice",
		model.GlobalSettings{EmailEnabled: false, WebEnabled: true}))
	g, err = svc.GetGlobalSettings(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, g.EmailEnabled)
	assert.True(t, g.WebEnabled)

	prefs := []model.CategoryPreference{
		{Category: "forum_reply", EmailEnabled: false, WebEnabled: true},
		{Category: "milestone", EmailEnabled: true, WebEnabled: false},
	}
	require.NoError(t, svc.ReplacePreferences(ctx, "alice", prefs))
	got, err := svc.GetPreferences(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, prefs, got)

	require.NoError(t, svc.ReplacePreferences(ctx, "alice", nil))
	got, err = svc.GetPreferences(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFeedAndMutatorAgainstServer(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, server.Seed(ctx, e.store, "alice", time.Now()))

	svc := e.service("tok-alice")
	feed := notify.NewFeed(svc, "alice", false, logging.Discard())
	mut := notify.NewMutator(feed, svc, logging.Discard())

	require.NoError(t, feed.Refresh(ctx))
	snap := feed.Snapshot()
	require.Len(t, snap.Notifications, 5)
	assert.Equal(t, 4, snap.UnreadCount)

	require.NoError(t, mut.MarkRead(ctx, snap.Notifications[0].ID))
	require.NoError(t, mut.Delete(ctx, snap.Notifications[1].ID))
	assert.Equal(t, 2, feed.UnreadCount())

	require.NoError(t, feed.Refresh(ctx))
	snap = feed.Snapshot()
	assert.Len(t, snap.Notifications, 4)
	assert.Equal(t, 2, snap.UnreadCount)

	require.NoError(t, mut.MarkAllRead(ctx))
	require.NoError(t, feed.Refresh(ctx))
	assert.Equal(t, 0, feed.UnreadCount())
}

func TestPreferenceServiceAgainstServer(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := e.service("tok-alice")

	prefs := preference.NewService(svc, preference.NewStore(), logging.Discard())
	defer prefs.Close()
	require.NoError(t, prefs.Load(ctx, "alice"))
	assert.Len(t, prefs.Store().Categories(), 8)

	require.NoError(t, prefs.SetGlobal(ctx, model.ChannelEmail, false))
	require.NoError(t, prefs.SetCategoryPreference(ctx, "forum_reply", model.ChannelWeb, false))

	// A fresh client sees what the first one saved.
	other := preference.NewService(svc, preference.NewStore(), logging.Discard())
	defer other.Close()
	require.NoError(t, other.Load(ctx, "alice"))

	st := other.Store()
	assert.False(t, st.Global().EmailEnabled)
	assert.True(t, st.Global().WebEnabled)
	assert.False(t, preference.EffectiveChannel(st.Global(), st.Explicit("forum_reply"), model.ChannelWeb))
	assert.True(t, preference.EffectiveChannel(st.Global(), st.Explicit("milestone"), model.ChannelWeb))
}
