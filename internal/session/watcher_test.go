package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/polis-labs/chronicler/internal/model"
)

func TestWatcher_ExpiryClearsSession(t *testing.T) {
	store := NewStore()
	ui := &mockUI{}
	ui.allowAll()
	reaper := &mockReaper{}
	reaper.On("Discard", "sess-1").Return()
	// The fresh session started at the end of the test leaves the 20ms
	// watcher armed; its timer can fire after the assertions and discard
	// that session's id, which a strict mock would panic on.
	reaper.On("Discard", mock.Anything).Return().Maybe()

	watcher := NewWatcher(store, ui, reaper, 20*time.Millisecond, zap.NewNop())

	owner := int64(42)
	store.Put(&model.Session{ID: "sess-1", Owner: owner, State: model.StateAwaitingLanguage})
	watcher.Reschedule(owner, "sess-1", model.StateAwaitingLanguage)

	assert.Eventually(t, func() bool {
		_, ok := store.Get(owner)
		return !ok
	}, time.Second, 5*time.Millisecond, "session was not reclaimed")

	ui.AssertCalled(t, "SessionExpired", mock.Anything, owner)
	reaper.AssertCalled(t, "Discard", "sess-1")

	// A fresh start is accepted after expiry
	launcher := &mockLauncher{}
	machine := NewMachine(store, ui, launcher, watcher, zap.NewNop())
	require.NoError(t, machine.Apply(context.Background(), owner, model.StartSession{}))
	sess, ok := store.Get(owner)
	require.True(t, ok)
	assert.Equal(t, model.StateAwaitingLanguage, sess.State)
	ui.AssertNotCalled(t, "RejectActiveSession", mock.Anything, owner)
}

func TestWatcher_RescheduleResetsTimer(t *testing.T) {
	store := NewStore()
	ui := &mockUI{}
	ui.allowAll()

	watcher := NewWatcher(store, ui, nil, 50*time.Millisecond, zap.NewNop())

	owner := int64(42)
	sess := &model.Session{ID: "sess-1", Owner: owner, State: model.StateAwaitingLanguage}
	store.Put(sess)
	watcher.Reschedule(owner, sess.ID, sess.State)

	// Keep transitioning before the timer can fire
	for _, next := range []model.SessionState{model.StateAwaitingModel, model.StateAwaitingTemperature} {
		time.Sleep(30 * time.Millisecond)
		sess.State = next
		store.Put(sess)
		watcher.Reschedule(owner, sess.ID, next)
	}

	time.Sleep(30 * time.Millisecond)
	_, ok := store.Get(owner)
	assert.True(t, ok, "session expired despite activity")
	ui.AssertNotCalled(t, "SessionExpired", mock.Anything, owner)
}

func TestWatcher_SupersededFireIsNoOp(t *testing.T) {
	store := NewStore()
	ui := &mockUI{}
	ui.allowAll()
	reaper := &mockReaper{}

	watcher := NewWatcher(store, ui, reaper, time.Hour, zap.NewNop())

	owner := int64(42)
	sess := &model.Session{ID: "sess-1", Owner: owner, State: model.StateAwaitingModel}
	store.Put(sess)

	// Fire a timer scheduled for a state the session already left
	watcher.expire(owner, "sess-1", model.StateAwaitingLanguage)

	_, ok := store.Get(owner)
	assert.True(t, ok, "session cleared by a superseded timer")
	ui.AssertNotCalled(t, "SessionExpired", mock.Anything, owner)
	reaper.AssertNotCalled(t, "Discard", mock.Anything)

	// Same for a timer bound to a session that was replaced entirely
	watcher.expire(owner, "sess-0", model.StateAwaitingModel)
	_, ok = store.Get(owner)
	assert.True(t, ok)
}

func TestWatcher_ExpiryDoesNotInterleaveWithHandler(t *testing.T) {
	store := NewStore()
	ui := &mockUI{}
	ui.allowAll()
	reaper := &mockReaper{}
	reaper.On("Discard", "sess-1").Return()

	watcher := NewWatcher(store, ui, reaper, time.Hour, zap.NewNop())

	owner := int64(42)
	store.Put(&model.Session{ID: "sess-1", Owner: owner, State: model.StateAwaitingLanguage})

	// Hold the owner lock the way an in-flight Apply would
	mu := watcher.ownerLock(owner)

	fired := make(chan struct{})
	go func() {
		watcher.expire(owner, "sess-1", model.StateAwaitingLanguage)
		close(fired)
	}()

	// The expiry must not clear the session mid-transition
	select {
	case <-fired:
		t.Fatal("expiry ran while the owner lock was held")
	case <-time.After(50 * time.Millisecond):
	}
	_, ok := store.Get(owner)
	assert.True(t, ok)

	mu.Unlock()
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("expiry never ran after the lock was released")
	}
	_, ok = store.Get(owner)
	assert.False(t, ok)
	ui.AssertCalled(t, "SessionExpired", mock.Anything, owner)
	reaper.AssertCalled(t, "Discard", "sess-1")
}

func TestWatcher_CancelStopsExpiry(t *testing.T) {
	store := NewStore()
	ui := &mockUI{}
	ui.allowAll()

	watcher := NewWatcher(store, ui, nil, 20*time.Millisecond, zap.NewNop())

	owner := int64(42)
	store.Put(&model.Session{ID: "sess-1", Owner: owner, State: model.StateAwaitingStoreDecision})
	watcher.Reschedule(owner, "sess-1", model.StateAwaitingStoreDecision)
	watcher.Cancel(owner)

	time.Sleep(60 * time.Millisecond)
	_, ok := store.Get(owner)
	assert.True(t, ok)
	ui.AssertNotCalled(t, "SessionExpired", mock.Anything, owner)
}
