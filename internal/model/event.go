package model

// Event is a user input mapped onto the session state machine.
// The set of implementations is closed; the machine matches exhaustively
// over (state, event kind) pairs.
type Event interface {
	isEvent()
}

// StartSession requests a new wizard session for the owner
type StartSession struct{}

// LanguageChosen carries a language selection (en, ru, es, auto)
type LanguageChosen struct {
	Language string
}

// ModelChosen carries a Whisper model size selection
type ModelChosen struct {
	ModelSize string
}

// TemperatureChosen carries a sampling temperature selection.
// Temperature is nil when the owner picked the engine default.
type TemperatureChosen struct {
	Temperature *float64
}

// OutputTypeChosen carries the output type selection
type OutputTypeChosen struct {
	OutputType string
}

// AudioUploaded carries an uploaded voice/audio/document reference.
// MIMEType is empty for native voice and audio uploads; documents carry
// the declared MIME type and are rejected unless it starts with "audio/".
type AudioUploaded struct {
	FileID   string
	MIMEType string
	Document bool
}

// StoreChosen carries the persistence decision
type StoreChosen struct {
	Save bool
}

// UnrelatedInput is any input that matches no wizard action. It never
// mutates a session; the machine answers it with guidance so users are
// not silently ignored.
type UnrelatedInput struct{}

func (StartSession) isEvent()      {}
func (LanguageChosen) isEvent()    {}
func (ModelChosen) isEvent()       {}
func (TemperatureChosen) isEvent() {}
func (OutputTypeChosen) isEvent()  {}
func (AudioUploaded) isEvent()     {}
func (StoreChosen) isEvent()       {}
func (UnrelatedInput) isEvent()    {}
