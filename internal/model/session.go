package model

import "time"

// SessionState is the current position of a session in the wizard flow
type SessionState string

const (
	StateIdle                  SessionState = "idle"
	StateAwaitingLanguage      SessionState = "awaiting_language"
	StateAwaitingModel         SessionState = "awaiting_model"
	StateAwaitingTemperature   SessionState = "awaiting_temperature"
	StateAwaitingOutputType    SessionState = "awaiting_output_type"
	StateAwaitingAudio         SessionState = "awaiting_audio"
	StateAwaitingStoreDecision SessionState = "awaiting_store_decision"
)

// StoreDecision records whether the owner wants the transcript persisted
type StoreDecision string

const (
	DecisionUnset   StoreDecision = "unset"
	DecisionSave    StoreDecision = "yes"
	DecisionDiscard StoreDecision = "no"
)

// Output type options
const (
	OutputFullText = "full_text"
	OutputInfoOnly = "info_only"
)

// Supported wizard choices
var (
	Languages    = []string{"en", "ru", "es", "auto"}
	ModelSizes   = []string{"tiny", "base", "small", "medium", "large"}
	Temperatures = []float64{0.0, 0.5, 1.0}
)

// Session is the accumulating state of one wizard conversation.
// At most one active Session exists per owner at a time. Sessions are
// ephemeral conversation state, never persisted.
type Session struct {
	ID          string
	Owner       int64 // chat/user identity used for delivery
	State       SessionState
	Language    string
	ModelSize   string
	Temperature *float64 // nil means engine default
	OutputType  string
	AudioFileID string
	Decision    StoreDecision
	CreatedAt   time.Time
}

// Snapshot returns an immutable copy of the session data for handing
// to a background job. Later mutation of the Session does not affect it.
func (s *Session) Snapshot() SessionSnapshot {
	var temp *float64
	if s.Temperature != nil {
		t := *s.Temperature
		temp = &t
	}
	return SessionSnapshot{
		SessionID:   s.ID,
		Owner:       s.Owner,
		Language:    s.Language,
		ModelSize:   s.ModelSize,
		Temperature: temp,
		OutputType:  s.OutputType,
		AudioFileID: s.AudioFileID,
		CreatedAt:   s.CreatedAt,
	}
}

// Clone returns a deep copy of the session
func (s *Session) Clone() *Session {
	c := *s
	if s.Temperature != nil {
		t := *s.Temperature
		c.Temperature = &t
	}
	return &c
}

// SessionSnapshot is the session data a transcription job is bound to
type SessionSnapshot struct {
	SessionID   string
	Owner       int64
	Language    string
	ModelSize   string
	Temperature *float64
	OutputType  string
	AudioFileID string
	CreatedAt   time.Time
}

// ValidLanguage reports whether code is a supported language choice
func ValidLanguage(code string) bool {
	for _, l := range Languages {
		if l == code {
			return true
		}
	}
	return false
}

// ValidModelSize reports whether size is a supported Whisper model size
func ValidModelSize(size string) bool {
	for _, m := range ModelSizes {
		if m == size {
			return true
		}
	}
	return false
}

// ValidTemperature reports whether temp is a supported temperature choice.
// nil stands for the engine default and is always accepted.
func ValidTemperature(temp *float64) bool {
	if temp == nil {
		return true
	}
	for _, t := range Temperatures {
		if t == *temp {
			return true
		}
	}
	return false
}
