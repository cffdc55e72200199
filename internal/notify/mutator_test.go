package notify

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notification-center/internal/logging"
	"github.com/nhle/notification-center/internal/model"
	"github.com/nhle/notification-center/tests/testutil"
)

func newLoadedFeed(t *testing.T, ns ...model.Notification) (*Feed, *Mutator, *testutil.FakeRemote) {
	t.Helper()
	f, fake := newTestFeed(t, ns...)
	require.NoError(t, f.Refresh(context.Background()))
	return f, NewMutator(f, fake, logging.Discard()), fake
}

func TestMarkReadScenario(t *testing.T) {
	f, m, fake := newLoadedFeed(t, notification("1", false), notification("2", true))
	require.Equal(t, 1, f.UnreadCount())

	require.NoError(t, m.MarkRead(context.Background(), "1"))

	snap := f.Snapshot()
	assert.True(t, snap.Notifications[0].Read)
	require.NotNil(t, snap.Notifications[0].ReadAt)
	assert.Equal(t, testNow, *snap.Notifications[0].ReadAt)
	assert.True(t, snap.Notifications[1].Read)
	assert.Zero(t, snap.UnreadCount)
	assert.Equal(t, 1, fake.CallsTo("MarkRead"))
}

func TestMarkReadTwiceDecrementsOnce(t *testing.T) {
	f, m, _ := newLoadedFeed(t, notification("1", false), notification("2", false))

	require.NoError(t, m.MarkRead(context.Background(), "1"))
	require.NoError(t, m.MarkRead(context.Background(), "1"))
	assert.Equal(t, 1, f.UnreadCount())
}

func TestMarkReadUnknownIDIsNoop(t *testing.T) {
	f, m, fake := newLoadedFeed(t, notification("1", false))

	require.NoError(t, m.MarkRead(context.Background(), "missing"))
	assert.Equal(t, 1, f.UnreadCount())
	assert.Zero(t, fake.CallsTo("MarkRead"))
}

func TestDeleteTwiceScenario(t *testing.T) {
	f, m, fake := newLoadedFeed(t, notification("1", false))

	require.NoError(t, m.Delete(context.Background(), "1"))
	once := f.Snapshot()
	require.NoError(t, m.Delete(context.Background(), "1"))
	twice := f.Snapshot()

	assert.Empty(t, twice.Notifications)
	assert.Zero(t, twice.UnreadCount)
	assert.Equal(t, once.Notifications, twice.Notifications)
	assert.Equal(t, once.UnreadCount, twice.UnreadCount)
	assert.Equal(t, 1, fake.CallsTo("DeleteNotification"))
}

func TestDeleteReadEntryKeepsCounter(t *testing.T) {
	f, m, _ := newLoadedFeed(t, notification("1", true), notification("2", false))

	require.NoError(t, m.Delete(context.Background(), "1"))
	assert.Equal(t, 1, f.UnreadCount())
}

func TestMarkAllRead(t *testing.T) {
	f, m, fake := newLoadedFeed(t,
		notification("1", false), notification("2", true), notification("3", false))

	require.NoError(t, m.MarkAllRead(context.Background()))

	snap := f.Snapshot()
	assert.Zero(t, snap.UnreadCount)
	for _, n := range snap.Notifications {
		assert.True(t, n.Read, n.ID)
	}
	assert.Equal(t, 1, fake.CallsTo("MarkAllRead"))
	assert.Zero(t, fake.CallsTo("MarkRead"), "mark all is one call, not N")
}

func TestFailedMutationIsNotRolledBack(t *testing.T) {
	f, m, fake := newLoadedFeed(t, notification("1", false), notification("2", false))
	fake.SetErr("MarkRead", errors.New("timeout"))
	fake.SetErr("DeleteNotification", errors.New("timeout"))

	require.Error(t, m.MarkRead(context.Background(), "1"))
	require.Error(t, m.Delete(context.Background(), "2"))

	snap := f.Snapshot()
	assert.Equal(t, []string{"1"}, ids(snap))
	assert.True(t, snap.Notifications[0].Read)
	assert.Zero(t, snap.UnreadCount)

	// The next refresh reconciles with the server, which never applied
	// either change.
	require.NoError(t, f.Refresh(context.Background()))
	snap = f.Snapshot()
	assert.Equal(t, []string{"1", "2"}, ids(snap))
	assert.Equal(t, 2, snap.UnreadCount)
}

func TestCounterMatchesEntriesForRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 50; round++ {
		var ns []model.Notification
		for i := 0; i < 8; i++ {
			ns = append(ns, notification(strconv.Itoa(i), rng.Intn(2) == 0))
		}
		f, m, _ := newLoadedFeed(t, ns...)

		for step := 0; step < 20; step++ {
			id := strconv.Itoa(rng.Intn(10))
			if rng.Intn(2) == 0 {
				require.NoError(t, m.MarkRead(context.Background(), id))
			} else {
				require.NoError(t, m.Delete(context.Background(), id))
			}

			snap := f.Snapshot()
			require.GreaterOrEqual(t, snap.UnreadCount, 0)
			require.Equal(t, unreadIn(snap), snap.UnreadCount, "round %d step %d", round, step)
		}
	}
}

func TestDeleteRacingPollDecrementsOnce(t *testing.T) {
	fake := testutil.NewFakeRemote()
	fake.SetNotifications([]model.Notification{notification("1", false), notification("2", false)})
	f := NewFeed(fake, "u1", false, logging.Discard())
	m := NewMutator(f, fake, logging.Discard())
	require.NoError(t, f.Refresh(context.Background()))

	entered := make(chan struct{})
	release := make(chan struct{})
	fake.SetHook(func(method string) {
		if method == "DeleteNotification" {
			close(entered)
			<-release
		}
	})

	done := make(chan error, 1)
	go func() { done <- m.Delete(context.Background(), "1") }()
	<-entered
	assert.Equal(t, 1, f.UnreadCount())

	// The server has not processed the delete yet: the poll still sees it.
	require.NoError(t, f.Refresh(context.Background()))
	snap := f.Snapshot()
	assert.Equal(t, []string{"2"}, ids(snap))
	assert.Equal(t, 1, snap.UnreadCount)

	close(release)
	require.NoError(t, <-done)
	fake.SetHook(nil)

	require.NoError(t, f.Refresh(context.Background()))
	snap = f.Snapshot()
	assert.Equal(t, []string{"2"}, ids(snap))
	assert.Equal(t, 1, snap.UnreadCount)
}

func TestStalePollResolvingAfterDeleteAck(t *testing.T) {
	fake := testutil.NewFakeRemote()
	stale := []model.Notification{notification("1", false), notification("2", false)}
	fake.SetNotifications(stale)
	src := newBlockingSource(fake, stale, 2)
	f := NewFeed(src, "u1", false, logging.Discard())
	m := NewMutator(f, src, logging.Discard())

	// Seed the feed.
	seeded := make(chan error, 1)
	go func() { seeded <- f.Refresh(context.Background()) }()
	close(nextCall(t, src))
	require.NoError(t, <-seeded)

	// A poll starts and captures the pre-delete state.
	done := make(chan error, 1)
	go func() { done <- f.Refresh(context.Background()) }()
	release := nextCall(t, src)

	require.NoError(t, m.Delete(context.Background(), "1"))
	assert.Equal(t, 1, f.UnreadCount())

	close(release)
	require.NoError(t, <-done)

	snap := f.Snapshot()
	assert.Equal(t, []string{"2"}, ids(snap), "stale poll must not resurrect the deleted entry")
	assert.Equal(t, 1, snap.UnreadCount)
}

func TestMutationsAfterCloseAreIgnored(t *testing.T) {
	f, m, fake := newLoadedFeed(t, notification("1", false))
	f.Close()

	require.NoError(t, m.MarkRead(context.Background(), "1"))
	require.NoError(t, m.Delete(context.Background(), "1"))
	require.NoError(t, m.MarkAllRead(context.Background()))
	assert.Zero(t, fake.CallsTo("MarkRead")+fake.CallsTo("DeleteNotification")+fake.CallsTo("MarkAllRead"))
}

func TestMarkAllReadOverlaysRacingPoll(t *testing.T) {
	fake := testutil.NewFakeRemote()
	fake.SetNotifications([]model.Notification{notification("1", false)})
	f := NewFeed(fake, "u1", false, logging.Discard())
	f.now = func() time.Time { return testNow }
	m := NewMutator(f, fake, logging.Discard())
	require.NoError(t, f.Refresh(context.Background()))

	entered := make(chan struct{})
	release := make(chan struct{})
	fake.SetHook(func(method string) {
		if method == "MarkAllRead" {
			close(entered)
			<-release
		}
	})
	done := make(chan error, 1)
	go func() { done <- m.MarkAllRead(context.Background()) }()
	<-entered

	require.NoError(t, f.Refresh(context.Background()))
	snap := f.Snapshot()
	assert.Zero(t, snap.UnreadCount)
	assert.True(t, snap.Notifications[0].Read)

	close(release)
	require.NoError(t, <-done)
}
