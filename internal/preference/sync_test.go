package preference

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notification-center/internal/logging"
	"github.com/nhle/notification-center/internal/model"
	"github.com/nhle/notification-center/internal/remote"
	"github.com/nhle/notification-center/tests/testutil"
)

func newTestService(t *testing.T) (*Service, *testutil.FakeRemote) {
	t.Helper()
	fake := testutil.NewFakeRemote()
	fake.Global = model.GlobalSettings{EmailEnabled: true, WebEnabled: false}
	fake.Categories = []model.Category{
		{Tag: "new_release", Label: "New releases"},
		{Tag: "milestone", Label: "Milestones"},
	}
	fake.Prefs = []model.CategoryPreference{
		{Category: "milestone", EmailEnabled: false, WebEnabled: true},
	}
	return NewService(fake, NewStore(), logging.Discard()), fake
}

// gate blocks calls to one method until released.
type gate struct {
	method  string
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGate(method string) *gate {
	return &gate{method: method, entered: make(chan struct{}, 8), release: make(chan struct{})}
}

func (g *gate) hook(method string) {
	if method != g.method {
		return
	}
	g.entered <- struct{}{}
	<-g.release
}

func (g *gate) open() { g.once.Do(func() { close(g.release) }) }

func waitEntered(t *testing.T, g *gate) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("%s was never called", g.method)
	}
}

func TestLoadPopulatesStore(t *testing.T) {
	svc, _ := newTestService(t)

	require.NoError(t, svc.Load(context.Background(), "u1"))

	st := svc.Store()
	assert.Equal(t, "u1", st.UserID())
	assert.Equal(t, model.GlobalSettings{EmailEnabled: true}, st.Global())
	assert.Equal(t, []model.CategoryTag{"new_release", "milestone"}, st.CategoryTags())
	assert.False(t, st.Preference("milestone").EmailEnabled)
	assert.True(t, st.Preference("new_release").EmailEnabled)
	assert.False(t, svc.Loading())
}

func TestLoadPartialFailureKeepsOtherSlices(t *testing.T) {
	svc, fake := newTestService(t)
	fake.SetErr("GetGlobalSettings", errors.New("boom"))

	err := svc.Load(context.Background(), "u1")
	require.Error(t, err)

	st := svc.Store()
	assert.Equal(t, model.DefaultGlobalSettings(), st.Global())
	assert.Len(t, st.Categories(), 2)
	assert.Len(t, st.Preferences(), 1)
	assert.False(t, svc.Loading())
	assert.NoError(t, svc.Err(), "read failures are not write errors")
}

func TestLoadWithoutCredentialShowsDefaults(t *testing.T) {
	svc, fake := newTestService(t)
	fake.SetErr("GetGlobalSettings", remote.ErrUnauthenticated)
	fake.SetErr("GetPreferences", remote.ErrUnauthenticated)

	_ = svc.Load(context.Background(), "")

	st := svc.Store()
	assert.Equal(t, model.DefaultGlobalSettings(), st.Global())
	assert.Len(t, st.Categories(), 2, "categories need no credential")
	assert.Empty(t, st.Preferences())
}

func TestLoadResetsOnIdentityChange(t *testing.T) {
	svc, fake := newTestService(t)
	require.NoError(t, svc.Load(context.Background(), "u1"))

	fake.SetErr("GetGlobalSettings", errors.New("down"))
	fake.SetErr("GetPreferences", errors.New("down"))
	_ = svc.Load(context.Background(), "u2")

	st := svc.Store()
	assert.Equal(t, "u2", st.UserID())
	assert.Equal(t, model.DefaultGlobalSettings(), st.Global(), "previous user's settings must not leak")
	assert.Empty(t, st.Preferences())
}

func TestSetGlobalWritesFullObject(t *testing.T) {
	svc, fake := newTestService(t)
	require.NoError(t, svc.Load(context.Background(), "u1"))

	require.NoError(t, svc.SetGlobal(context.Background(), model.ChannelWeb, true))

	assert.Equal(t, model.GlobalSettings{EmailEnabled: true, WebEnabled: true}, svc.Store().Global())
	globals, _ := fake.Snapshot()
	assert.Equal(t, []model.GlobalSettings{{EmailEnabled: true, WebEnabled: true}}, globals)
	assert.False(t, svc.Saving())
}

func TestSetGlobalFailureKeepsOptimisticValue(t *testing.T) {
	svc, fake := newTestService(t)
	require.NoError(t, svc.Load(context.Background(), "u1"))
	fake.SetErr("ReplaceGlobalSettings", errors.New("503"))

	err := svc.SetGlobal(context.Background(), model.ChannelEmail, false)
	require.Error(t, err)

	assert.False(t, svc.Store().Global().EmailEnabled, "no rollback")
	assert.Error(t, svc.Err())
	assert.False(t, svc.Saving())

	svc.DismissError()
	assert.NoError(t, svc.Err())
}

func TestSetCategoryPreferenceWritesFullCollection(t *testing.T) {
	svc, fake := newTestService(t)
	require.NoError(t, svc.Load(context.Background(), "u1"))

	require.NoError(t, svc.SetCategoryPreference(context.Background(), "new_release", model.ChannelWeb, false))

	_, prefs := fake.Snapshot()
	require.Len(t, prefs, 1)
	assert.Equal(t, []model.CategoryPreference{
		{Category: "milestone", EmailEnabled: false, WebEnabled: true},
		{Category: "new_release", EmailEnabled: true, WebEnabled: false},
	}, prefs[0])
}

func TestSetGlobalWritesAreSerializedInOrder(t *testing.T) {
	svc, fake := newTestService(t)
	require.NoError(t, svc.Load(context.Background(), "u1"))

	g := newGate("ReplaceGlobalSettings")
	fake.SetHook(g.hook)

	done := make(chan error, 1)
	go func() { done <- svc.SetGlobal(context.Background(), model.ChannelEmail, false) }()
	waitEntered(t, g)

	// Issued while the first write is in flight: parked, not sent.
	require.NoError(t, svc.SetGlobal(context.Background(), model.ChannelEmail, true))
	assert.Equal(t, 1, fake.CallsTo("ReplaceGlobalSettings"))
	assert.True(t, svc.Store().Global().EmailEnabled)
	assert.True(t, svc.Saving())

	g.open()
	require.NoError(t, <-done)

	globals, _ := fake.Snapshot()
	require.Len(t, globals, 2)
	assert.False(t, globals[0].EmailEnabled)
	assert.True(t, globals[1].EmailEnabled)
	assert.True(t, svc.Store().Global().EmailEnabled)
	assert.False(t, svc.Saving())
}

func TestParkedWritesCoalesceToLatest(t *testing.T) {
	svc, fake := newTestService(t)
	require.NoError(t, svc.Load(context.Background(), "u1"))

	g := newGate("ReplacePreferences")
	fake.SetHook(g.hook)

	done := make(chan error, 1)
	go func() {
		done <- svc.SetCategoryPreference(context.Background(), "milestone", model.ChannelWeb, false)
	}()
	waitEntered(t, g)

	ctx := context.Background()
	require.NoError(t, svc.SetCategoryPreference(ctx, "new_release", model.ChannelEmail, false))
	require.NoError(t, svc.SetCategoryPreference(ctx, "new_release", model.ChannelWeb, false))

	g.open()
	require.NoError(t, <-done)

	_, prefs := fake.Snapshot()
	require.Len(t, prefs, 2, "the two parked writes collapse into one")
	assert.Equal(t, []model.CategoryPreference{
		{Category: "milestone", EmailEnabled: false, WebEnabled: false},
		{Category: "new_release", EmailEnabled: false, WebEnabled: false},
	}, prefs[1])
}

func TestDifferentTargetsProceedConcurrently(t *testing.T) {
	svc, fake := newTestService(t)
	require.NoError(t, svc.Load(context.Background(), "u1"))

	g := newGate("ReplaceGlobalSettings")
	fake.SetHook(g.hook)
	defer g.open()

	go func() { _ = svc.SetGlobal(context.Background(), model.ChannelWeb, true) }()
	waitEntered(t, g)

	require.NoError(t, svc.SetCategoryPreference(context.Background(), "milestone", model.ChannelEmail, true))
	assert.Equal(t, 1, fake.CallsTo("ReplacePreferences"))
}

func TestCloseDiscardsInFlightLoad(t *testing.T) {
	svc, fake := newTestService(t)

	g := newGate("GetPreferences")
	fake.SetHook(g.hook)

	done := make(chan error, 1)
	go func() { done <- svc.Load(context.Background(), "u1") }()
	waitEntered(t, g)

	svc.Close()
	g.open()
	<-done

	assert.Empty(t, svc.Store().Preferences())
	assert.False(t, svc.Loading())
	assert.ErrorIs(t, svc.SetGlobal(context.Background(), model.ChannelEmail, false), ErrClosed)
}

func TestLoadDoesNotOverwriteLocalChange(t *testing.T) {
	svc, fake := newTestService(t)
	svc.Store().reset("u1")

	g := newGate("GetGlobalSettings")
	fake.SetHook(g.hook)

	done := make(chan error, 1)
	go func() { done <- svc.Load(context.Background(), "u1") }()
	waitEntered(t, g)

	// The write fails so the fake still holds email=true for the load.
	fake.SetHook(nil)
	fake.SetErr("ReplaceGlobalSettings", errors.New("offline"))
	_ = svc.SetGlobal(context.Background(), model.ChannelEmail, false)

	g.open()
	require.NoError(t, <-done)

	assert.False(t, svc.Store().Global().EmailEnabled)
}

func TestStageAppliesLocallyBeforeSend(t *testing.T) {
	svc, fake := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Load(ctx, "u1"))

	send1, err := svc.StageGlobal(model.ChannelEmail, false)
	require.NoError(t, err)
	assert.False(t, svc.Store().Global().EmailEnabled, "visible before any send")
	assert.True(t, svc.Saving())

	send2, err := svc.StageGlobal(model.ChannelEmail, !svc.Store().Global().EmailEnabled)
	require.NoError(t, err)
	assert.True(t, svc.Store().Global().EmailEnabled)

	// Sends may run in any order; only the latest value goes out.
	require.NoError(t, send2(ctx))
	require.NoError(t, send1(ctx))

	globals, _ := fake.Snapshot()
	assert.Equal(t, []model.GlobalSettings{{EmailEnabled: true, WebEnabled: false}}, globals)
	assert.False(t, svc.Saving())
}

func TestStageCategoryPreferenceAppliesLocally(t *testing.T) {
	svc, fake := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Load(ctx, "u1"))

	send, err := svc.StageCategoryPreference("new_release", model.ChannelWeb, false)
	require.NoError(t, err)
	assert.False(t, svc.Store().Preference("new_release").WebEnabled)

	require.NoError(t, send(ctx))
	_, prefs := fake.Snapshot()
	require.Len(t, prefs, 1)
	assert.Len(t, prefs[0], 2)
}

func TestStageAfterCloseFails(t *testing.T) {
	svc, _ := newTestService(t)
	svc.Close()

	_, err := svc.StageGlobal(model.ChannelEmail, false)
	assert.ErrorIs(t, err, ErrClosed)
}
