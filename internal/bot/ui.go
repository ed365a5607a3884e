package bot

import (
	"context"
	"fmt"

	"github.com/polis-labs/chronicler/internal/service"
)

// UI renders the wizard prompts and job notifications over the
// transport. It implements both session.UI (what the state machine
// drives) and service.ResultUI (what the orchestrator delivers).
type UI struct {
	transport service.Transport
}

// NewUI creates the conversational surface
func NewUI(transport service.Transport) *UI {
	return &UI{transport: transport}
}

// Welcome greets the owner and offers the start button
func (u *UI) Welcome(ctx context.Context, owner int64) error {
	return u.transport.SendMessage(ctx, owner, msgWelcome, startKeyboard)
}

func (u *UI) PromptLanguage(ctx context.Context, owner int64) error {
	return u.transport.SendMessage(ctx, owner, msgChooseLanguage, languageKeyboard)
}

func (u *UI) PromptModel(ctx context.Context, owner int64) error {
	return u.transport.SendMessage(ctx, owner, msgChooseModel, modelKeyboard)
}

func (u *UI) PromptTemperature(ctx context.Context, owner int64) error {
	return u.transport.SendMessage(ctx, owner, msgChooseTemperature, temperatureKeyboard)
}

func (u *UI) PromptOutputType(ctx context.Context, owner int64) error {
	return u.transport.SendMessage(ctx, owner, msgChooseOutput, outputKeyboard)
}

func (u *UI) PromptAudio(ctx context.Context, owner int64) error {
	return u.transport.SendMessage(ctx, owner, msgSendAudio, nil)
}

func (u *UI) AudioAccepted(ctx context.Context, owner int64, sessionID string) error {
	text := fmt.Sprintf("✔️ Your file has been received. It's being transcribed. You will be notified once the transcript is done. 🔔\nTranscript ID: %s", sessionID)
	return u.transport.SendMessage(ctx, owner, text, nil)
}

func (u *UI) StoreAcknowledged(ctx context.Context, owner int64, save bool) error {
	if save {
		return u.transport.SendMessage(ctx, owner, msgStoreYes, nil)
	}
	return u.transport.SendMessage(ctx, owner, msgStoreNo, nil)
}

func (u *UI) SessionEnded(ctx context.Context, owner int64) error {
	return u.transport.SendMessage(ctx, owner, msgSessionEnded, startKeyboard)
}

func (u *UI) SessionExpired(ctx context.Context, owner int64) error {
	return u.transport.SendMessage(ctx, owner, msgSessionExpired, startKeyboard)
}

func (u *UI) RejectActiveSession(ctx context.Context, owner int64) error {
	return u.transport.SendMessage(ctx, owner, msgActiveSession, nil)
}

func (u *UI) RejectNotAudio(ctx context.Context, owner int64) error {
	return u.transport.SendMessage(ctx, owner, msgNotAudio, nil)
}

func (u *UI) Guidance(ctx context.Context, owner int64) error {
	return u.transport.SendMessage(ctx, owner, msgGuidance, startKeyboard)
}

func (u *UI) EstimateReady(ctx context.Context, owner int64, sessionID string, seconds int) error {
	text := fmt.Sprintf("⏳ Estimated time for transcript %s:\n%d seconds", sessionID, seconds)
	return u.transport.SendMessage(ctx, owner, text, nil)
}

func (u *UI) SummaryReady(ctx context.Context, owner int64, sessionID string, summary string) error {
	text := fmt.Sprintf("✅ Done! Here is some info about your transcript 👇\nID: %s\n\n%s", sessionID, summary)
	return u.transport.SendMessage(ctx, owner, text, nil)
}

func (u *UI) TranscriptReady(ctx context.Context, owner int64, sessionID string, path string) error {
	caption := fmt.Sprintf("Your transcript, Sir 📄\nID: %s", sessionID)
	return u.transport.SendDocument(ctx, owner, path, caption, nil)
}

func (u *UI) JobFailed(ctx context.Context, owner int64, sessionID string, reason string) error {
	text := fmt.Sprintf("❌ Transcript %s failed:\n%s", sessionID, reason)
	return u.transport.SendMessage(ctx, owner, text, nil)
}

func (u *UI) PromptStore(ctx context.Context, owner int64) error {
	return u.transport.SendMessage(ctx, owner, msgStorePrompt, storeKeyboard)
}

func (u *UI) Persisted(ctx context.Context, owner int64, dialogID string) error {
	text := fmt.Sprintf("📜 Recorded into the Chronicle.\nDialog ID: %s", dialogID)
	return u.transport.SendMessage(ctx, owner, text, nil)
}

func (u *UI) PersistFailed(ctx context.Context, owner int64, reason string) error {
	text := fmt.Sprintf("⚠️ Could not record the dialog into the Chronicle:\n%s\nYour transcript was already delivered above.", reason)
	return u.transport.SendMessage(ctx, owner, text, nil)
}

func (u *UI) NothingToSave(ctx context.Context, owner int64) error {
	return u.transport.SendMessage(ctx, owner, msgNothingToSave, nil)
}
