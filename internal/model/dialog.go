package model

import "time"

// Dialog is the persisted aggregate of all utterances from one session
type Dialog struct {
	ID           string         `json:"id" db:"id"`
	Title        string         `json:"title" db:"title"`
	StartedAt    time.Time      `json:"started_at" db:"started_at"`
	EndedAt      time.Time      `json:"ended_at" db:"ended_at"`
	TopicID      *string        `json:"topic_id" db:"topic_id"`
	Tags         []string       `json:"tags" db:"tags"`
	Source       string         `json:"source" db:"source"`
	Participants []string       `json:"participants" db:"participants"`
	Summary      string         `json:"summary" db:"summary"`
	Metadata     map[string]any `json:"metadata" db:"metadata"`
}

// Utterance is one timed transcribed segment of a dialog.
// Utterances are ordered by SegmentNumber within a dialog and are written
// atomically as a batch together with their dialog record.
type Utterance struct {
	ID            string         `json:"id" db:"id"`
	DialogID      string         `json:"dialog_id" db:"dialog_id"`
	Speaker       string         `json:"speaker" db:"speaker"`
	Content       string         `json:"content" db:"content"`
	StartTime     float64        `json:"start_time" db:"start_time"` // seconds from dialog start
	EndTime       float64        `json:"end_time" db:"end_time"`
	SegmentNumber int            `json:"segment_number" db:"segment_number"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	Metadata      map[string]any `json:"metadata" db:"metadata"`
}

// JobStatus is the lifecycle state of a background transcription job
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)
