package session

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/polis-labs/chronicler/internal/model"
)

// Launcher starts and resolves background transcription jobs. The machine
// fires Launch exactly once per session, on the audio-received transition,
// and hands the persistence decision over through Resolve.
type Launcher interface {
	// Launch starts a detached transcription job; it must not block
	Launch(snapshot model.SessionSnapshot)
	// Resolve delivers the owner's store decision to the job
	Resolve(sessionID string, save bool)
}

// Machine governs the wizard session state transitions. All user input
// arrives here as a model.Event; invalid input for the current state is
// answered with guidance and never mutates the session.
//
// The transport delivers at most one in-flight event per owner, so a
// given session entry is only ever mutated by one Apply call at a time.
// The watcher's expiry timer runs on its own goroutine; Apply holds the
// owner lock so an expiry never interleaves with a transition.
type Machine struct {
	store    Store
	ui       UI
	launcher Launcher
	watcher  *Watcher
	log      *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewMachine creates a session state machine
func NewMachine(store Store, ui UI, launcher Launcher, watcher *Watcher, log *zap.Logger) *Machine {
	return &Machine{
		store:    store,
		ui:       ui,
		launcher: launcher,
		watcher:  watcher,
		log:      log,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Apply validates the event against the owner's current state and, when
// the transition is valid, durably updates the session before prompting
// the next step. Locally recovered rejections (wrong event for the state,
// duplicate start, non-audio upload) notify the owner and return nil.
func (m *Machine) Apply(ctx context.Context, owner int64, ev model.Event) error {
	mu := m.watcher.ownerLock(owner)
	defer mu.Unlock()

	sess, active := m.store.Get(owner)

	switch ev := ev.(type) {
	case model.StartSession:
		return m.startSession(ctx, owner, active)

	case model.LanguageChosen:
		if !m.expectState(ctx, owner, sess, active, model.StateAwaitingLanguage) {
			return nil
		}
		if !model.ValidLanguage(ev.Language) {
			return m.ui.Guidance(ctx, owner)
		}
		sess.Language = ev.Language
		return m.advance(ctx, sess, model.StateAwaitingModel)

	case model.ModelChosen:
		if !m.expectState(ctx, owner, sess, active, model.StateAwaitingModel) {
			return nil
		}
		if !model.ValidModelSize(ev.ModelSize) {
			return m.ui.Guidance(ctx, owner)
		}
		sess.ModelSize = ev.ModelSize
		return m.advance(ctx, sess, model.StateAwaitingTemperature)

	case model.TemperatureChosen:
		if !m.expectState(ctx, owner, sess, active, model.StateAwaitingTemperature) {
			return nil
		}
		if !model.ValidTemperature(ev.Temperature) {
			return m.ui.Guidance(ctx, owner)
		}
		sess.Temperature = ev.Temperature
		return m.advance(ctx, sess, model.StateAwaitingOutputType)

	case model.OutputTypeChosen:
		if !m.expectState(ctx, owner, sess, active, model.StateAwaitingOutputType) {
			return nil
		}
		if ev.OutputType != model.OutputFullText && ev.OutputType != model.OutputInfoOnly {
			return m.ui.Guidance(ctx, owner)
		}
		sess.OutputType = ev.OutputType
		return m.advance(ctx, sess, model.StateAwaitingAudio)

	case model.AudioUploaded:
		return m.receiveAudio(ctx, owner, sess, active, ev)

	case model.StoreChosen:
		return m.storeDecision(ctx, owner, sess, active, ev)

	case model.UnrelatedInput:
		return m.ui.Guidance(ctx, owner)

	default:
		m.log.Warn("unhandled event kind", zap.Int64("owner", owner))
		return m.ui.Guidance(ctx, owner)
	}
}

// startSession allocates a fresh session unless one is already active
func (m *Machine) startSession(ctx context.Context, owner int64, active bool) error {
	if active {
		// Existing session stays untouched, no new session_id allocated
		return m.ui.RejectActiveSession(ctx, owner)
	}

	sess := &model.Session{
		ID:        m.newID(),
		Owner:     owner,
		State:     model.StateAwaitingLanguage,
		Decision:  model.DecisionUnset,
		CreatedAt: m.now(),
	}
	m.store.Put(sess)
	m.watcher.Reschedule(sess.Owner, sess.ID, sess.State)

	m.log.Info("session started",
		zap.String("session_id", sess.ID),
		zap.Int64("owner", owner))

	return m.ui.PromptLanguage(ctx, owner)
}

// receiveAudio handles the terminal wizard step: it stores the audio
// reference, launches the transcription job with a snapshot of the
// session, and moves the session to awaiting_store_decision
func (m *Machine) receiveAudio(ctx context.Context, owner int64, sess *model.Session, active bool, ev model.AudioUploaded) error {
	if !m.expectState(ctx, owner, sess, active, model.StateAwaitingAudio) {
		return nil
	}
	if ev.Document && !isAudioMIME(ev.MIMEType) {
		// Rejected without state change
		return m.ui.RejectNotAudio(ctx, owner)
	}
	if ev.FileID == "" {
		return m.ui.Guidance(ctx, owner)
	}

	sess.AudioFileID = ev.FileID
	sess.State = model.StateAwaitingStoreDecision
	m.store.Put(sess)
	m.watcher.Reschedule(sess.Owner, sess.ID, sess.State)

	// Detached job: the conversation stays responsive while it runs
	m.launcher.Launch(sess.Snapshot())

	m.log.Info("transcription launched",
		zap.String("session_id", sess.ID),
		zap.Int64("owner", owner))

	return m.ui.AudioAccepted(ctx, owner, sess.ID)
}

// storeDecision records the persistence decision and clears the session
func (m *Machine) storeDecision(ctx context.Context, owner int64, sess *model.Session, active bool, ev model.StoreChosen) error {
	if !m.expectState(ctx, owner, sess, active, model.StateAwaitingStoreDecision) {
		return nil
	}

	if ev.Save {
		sess.Decision = model.DecisionSave
	} else {
		sess.Decision = model.DecisionDiscard
	}

	// Terminal transition: session is cleared, watcher cancelled, and the
	// decision is handed to the job (which persists on completion if yes)
	m.watcher.Cancel(owner)
	m.store.Delete(owner)
	m.launcher.Resolve(sess.ID, ev.Save)

	m.log.Info("session ended",
		zap.String("session_id", sess.ID),
		zap.Int64("owner", owner),
		zap.String("decision", string(sess.Decision)))

	if err := m.ui.StoreAcknowledged(ctx, owner, ev.Save); err != nil {
		return err
	}
	return m.ui.SessionEnded(ctx, owner)
}

// advance applies the state change and sends the prompt for the new state
func (m *Machine) advance(ctx context.Context, sess *model.Session, next model.SessionState) error {
	sess.State = next
	m.store.Put(sess)
	m.watcher.Reschedule(sess.Owner, sess.ID, next)

	switch next {
	case model.StateAwaitingModel:
		return m.ui.PromptModel(ctx, sess.Owner)
	case model.StateAwaitingTemperature:
		return m.ui.PromptTemperature(ctx, sess.Owner)
	case model.StateAwaitingOutputType:
		return m.ui.PromptOutputType(ctx, sess.Owner)
	case model.StateAwaitingAudio:
		return m.ui.PromptAudio(ctx, sess.Owner)
	default:
		return nil
	}
}

// expectState reports whether the owner has an active session in the
// wanted state. Any mismatch is answered with guidance, which must be
// observable rather than a silent drop.
func (m *Machine) expectState(ctx context.Context, owner int64, sess *model.Session, active bool, want model.SessionState) bool {
	if !active || sess.State != want {
		if err := m.ui.Guidance(ctx, owner); err != nil {
			m.log.Warn("guidance delivery failed", zap.Int64("owner", owner), zap.Error(err))
		}
		return false
	}
	return true
}

func isAudioMIME(mimeType string) bool {
	return strings.HasPrefix(mimeType, "audio/")
}
