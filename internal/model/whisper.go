package model

// WhisperSegment represents a single timed segment from Whisper JSON output
type WhisperSegment struct {
	ID           int     `json:"id"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Text         string  `json:"text"`
	AvgLogProb   float64 `json:"avg_logprob"`
	NoSpeechProb float64 `json:"no_speech_prob"`
}

// WhisperResult represents parsed Whisper JSON output
type WhisperResult struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Segments []WhisperSegment `json:"segments"`
}

// AvgLogProb returns the average log probability of the first segment,
// which is what the confidence figure is derived from. The second return
// is false when the result has no segments.
func (r *WhisperResult) AvgLogProb() (float64, bool) {
	if len(r.Segments) == 0 {
		return 0, false
	}
	return r.Segments[0].AvgLogProb, true
}

// NoSpeechProb returns the no-speech probability of the first segment.
// The second return is false when the result has no segments.
func (r *WhisperResult) NoSpeechProb() (float64, bool) {
	if len(r.Segments) == 0 {
		return 0, false
	}
	return r.Segments[0].NoSpeechProb, true
}

// TranscribeOptions are the engine options accumulated by the wizard
type TranscribeOptions struct {
	Language    string
	ModelSize   string
	Temperature *float64 // nil lets the engine apply its own default
}
