package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/polis-labs/chronicler/internal/model"
)

// Reaper discards the job handle of a session reclaimed by timeout so
// the handle registry stays bounded. A running job is never cancelled.
type Reaper interface {
	Discard(sessionID string)
}

// Watcher reclaims sessions stuck waiting on user input. One timer is
// kept per owner and reset on every transition into a non-terminal
// state; when it fires the current session state is re-read from the
// store, and the session is cleared only if it still matches the state
// the timer was scheduled from. A fire for a superseded (session, state)
// pair is a no-op, which keeps the check correct even if a stale timer
// races a transition.
type Watcher struct {
	store   Store
	ui      UI
	reaper  Reaper
	timeout time.Duration
	log     *zap.Logger

	mu     sync.Mutex
	timers map[int64]*time.Timer

	locks sync.Map // owner -> *sync.Mutex, serializes expiry with event handling
}

// NewWatcher creates a timeout watcher. reaper may be nil.
func NewWatcher(store Store, ui UI, reaper Reaper, timeout time.Duration, log *zap.Logger) *Watcher {
	return &Watcher{
		store:   store,
		ui:      ui,
		reaper:  reaper,
		timeout: timeout,
		log:     log,
		timers:  make(map[int64]*time.Timer),
	}
}

// Reschedule arms (or re-arms) the owner's expiry timer, bound to the
// given session and the state it is in right now
func (w *Watcher) Reschedule(owner int64, sessionID string, state model.SessionState) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[owner]; ok {
		t.Stop()
	}
	w.timers[owner] = time.AfterFunc(w.timeout, func() {
		w.expire(owner, sessionID, state)
	})
}

// Cancel disarms the owner's expiry timer on normal session completion
func (w *Watcher) Cancel(owner int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[owner]; ok {
		t.Stop()
		delete(w.timers, owner)
	}
}

// ownerLock acquires the owner's serialization lock and returns it.
// Machine.Apply holds it across its read-modify-write of the store and
// expire holds it across the match-and-clear check, so an expiry can
// never land between a handler's Get and Put and have the handler's Put
// resurrect a session the owner was just told expired.
func (w *Watcher) ownerLock(owner int64) *sync.Mutex {
	v, _ := w.locks.LoadOrStore(owner, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu
}

// expire runs the scheduled cancellation check. The session state is
// re-read from the store, never taken from a copy held at scheduling
// time, so a session that moved on is left alone.
func (w *Watcher) expire(owner int64, sessionID string, scheduled model.SessionState) {
	mu := w.ownerLock(owner)
	defer mu.Unlock()

	sess, ok := w.store.Get(owner)
	if !ok || sess.ID != sessionID || sess.State != scheduled {
		// Superseded check: the session moved on or was already cleared
		return
	}

	w.store.Delete(owner)
	w.Cancel(owner)
	if w.reaper != nil {
		w.reaper.Discard(sessionID)
	}

	w.log.Info("session expired",
		zap.String("session_id", sessionID),
		zap.Int64("owner", owner),
		zap.String("state", string(scheduled)))

	if err := w.ui.SessionExpired(context.Background(), owner); err != nil {
		w.log.Warn("expiry notification failed", zap.Int64("owner", owner), zap.Error(err))
	}
}
