package session

import "context"

// UI is the conversational surface the state machine drives. The bot
// front-end implements it over the messaging transport; the machine only
// decides which prompt the owner should see next.
type UI interface {
	// Wizard step prompts
	PromptLanguage(ctx context.Context, owner int64) error
	PromptModel(ctx context.Context, owner int64) error
	PromptTemperature(ctx context.Context, owner int64) error
	PromptOutputType(ctx context.Context, owner int64) error
	PromptAudio(ctx context.Context, owner int64) error

	// AudioAccepted confirms the upload and announces the transcript ID
	AudioAccepted(ctx context.Context, owner int64, sessionID string) error
	// StoreAcknowledged confirms the persistence decision
	StoreAcknowledged(ctx context.Context, owner int64, save bool) error
	// SessionEnded tells the owner the session is over
	SessionEnded(ctx context.Context, owner int64) error
	// SessionExpired tells the owner the session timed out
	SessionExpired(ctx context.Context, owner int64) error

	// Local rejections: state is never mutated when these fire
	RejectActiveSession(ctx context.Context, owner int64) error
	RejectNotAudio(ctx context.Context, owner int64) error
	Guidance(ctx context.Context, owner int64) error
}
