package service

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/polis-labs/chronicler/internal/model"
)

// ResultUI is the set of notifications a background job delivers back to
// the owner. The bot front-end implements it over the transport.
type ResultUI interface {
	// EstimateReady reports the advisory transcription time estimate
	EstimateReady(ctx context.Context, owner int64, sessionID string, seconds int) error
	// SummaryReady delivers the transcript info summary
	SummaryReady(ctx context.Context, owner int64, sessionID string, summary string) error
	// TranscriptReady delivers the full-text transcript artifact
	TranscriptReady(ctx context.Context, owner int64, sessionID string, path string) error
	// JobFailed delivers an error in place of a result so the session
	// is never left stuck
	JobFailed(ctx context.Context, owner int64, sessionID string, reason string) error
	// PromptStore presents the persistence decision
	PromptStore(ctx context.Context, owner int64) error
	// Persisted confirms the dialog was written to the chronicle
	Persisted(ctx context.Context, owner int64, dialogID string) error
	// PersistFailed reports a store write failure; the transcript was
	// already delivered and is not lost
	PersistFailed(ctx context.Context, owner int64, reason string) error
	// NothingToSave answers a save request for a failed job
	NothingToSave(ctx context.Context, owner int64) error
}

// job is the handle of one background transcription run, bound to an
// immutable session snapshot taken at launch time
type job struct {
	snapshot model.SessionSnapshot

	mu             sync.Mutex
	status         model.JobStatus
	result         *model.WhisperResult
	summary        string
	transcriptPath string
	decision       *bool // store decision parked before job completion
	abandoned      bool  // session reclaimed by timeout, stop notifying
	done           chan struct{}
}

// Orchestrator launches one detached transcription job per session and
// delivers its outcome back to the owner exactly once. Launch never
// blocks: the conversational front-end stays responsive while a job
// runs. Jobs are never retried and never cancelled once started.
type Orchestrator struct {
	transport Transport
	ui        ResultUI
	whisper   WhisperService
	estimator DurationEstimator
	chronicle ChronicleService
	log       *zap.Logger

	audioDir       string
	transcriptsDir string

	mu   sync.Mutex
	jobs map[string]*job
}

// NewOrchestrator creates a transcription orchestrator
func NewOrchestrator(transport Transport, ui ResultUI, whisper WhisperService, estimator DurationEstimator, chronicle ChronicleService, audioDir, transcriptsDir string, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		transport:      transport,
		ui:             ui,
		whisper:        whisper,
		estimator:      estimator,
		chronicle:      chronicle,
		log:            log,
		audioDir:       audioDir,
		transcriptsDir: transcriptsDir,
		jobs:           make(map[string]*job),
	}
}

// Launch starts a detached background job for the session snapshot.
// Failures inside the job are caught at this boundary and converted
// into an owner notification; nothing escapes to the caller's loop.
func (o *Orchestrator) Launch(snapshot model.SessionSnapshot) {
	j := &job{
		snapshot: snapshot,
		status:   model.JobPending,
		done:     make(chan struct{}),
	}

	o.mu.Lock()
	o.jobs[snapshot.SessionID] = j
	o.mu.Unlock()

	go func() {
		defer close(j.done)
		defer func() {
			if r := recover(); r != nil {
				o.log.Error("transcription job panicked",
					zap.String("session_id", snapshot.SessionID),
					zap.Any("panic", r))
				o.fail(j, fmt.Sprintf("internal error: %v", r))
			}
		}()
		o.run(j)
	}()
}

// Resolve delivers the owner's store decision to the job. A decision
// arriving before the job finishes is parked on the handle and applied
// on completion.
func (o *Orchestrator) Resolve(sessionID string, save bool) {
	o.mu.Lock()
	j, ok := o.jobs[sessionID]
	o.mu.Unlock()
	if !ok {
		return
	}

	j.mu.Lock()
	status := j.status
	if status == model.JobPending || status == model.JobRunning {
		j.decision = &save
		j.mu.Unlock()
		return
	}
	j.mu.Unlock()

	o.finish(j, save)
}

// Discard drops the job handle of a session reclaimed by timeout. The
// job itself, if still running, runs to completion but stays silent.
func (o *Orchestrator) Discard(sessionID string) {
	o.mu.Lock()
	j, ok := o.jobs[sessionID]
	delete(o.jobs, sessionID)
	o.mu.Unlock()
	if !ok {
		return
	}

	j.mu.Lock()
	j.abandoned = true
	j.mu.Unlock()
}

// Wait blocks until the session's job has finished running. Used by
// tests; returns immediately for unknown ids.
func (o *Orchestrator) Wait(sessionID string) {
	o.mu.Lock()
	j, ok := o.jobs[sessionID]
	o.mu.Unlock()
	if ok {
		<-j.done
	}
}

// Drain blocks until every launched job has finished running. Called on
// shutdown so in-flight transcriptions are not killed mid-run.
func (o *Orchestrator) Drain() {
	o.mu.Lock()
	done := make([]chan struct{}, 0, len(o.jobs))
	for _, j := range o.jobs {
		done = append(done, j.done)
	}
	o.mu.Unlock()

	for _, ch := range done {
		<-ch
	}
}

// run executes the job steps. Every step's failure is terminal for the
// job, reported to the owner, and never retried; temporary artifacts are
// removed on both the success and failure paths.
func (o *Orchestrator) run(j *job) {
	ctx := context.Background()
	snap := j.snapshot

	j.mu.Lock()
	j.status = model.JobRunning
	j.mu.Unlock()

	o.log.Info("transcript started", zap.String("session_id", snap.SessionID))

	// Step 1: materialize the uploaded audio
	audioPath, err := o.transport.DownloadFile(ctx, snap.AudioFileID, o.audioDir)
	if err != nil {
		o.fail(j, "could not retrieve your audio file")
		return
	}
	defer func() {
		if rmErr := os.Remove(audioPath); rmErr != nil && !os.IsNotExist(rmErr) {
			o.log.Warn("failed to remove audio file", zap.String("path", audioPath), zap.Error(rmErr))
		}
	}()

	// Step 2: advisory duration estimate, reported immediately
	seconds, err := o.estimator.Estimate(ctx, audioPath, snap.ModelSize)
	if err != nil {
		o.fail(j, "could not estimate transcription time")
		return
	}
	o.notify(j, func() error {
		return o.ui.EstimateReady(ctx, snap.Owner, snap.SessionID, seconds)
	})

	// Step 3: the engine call; runs on this job goroutine so it cannot
	// stall message delivery for other sessions
	result, err := o.whisper.TranscribeAudio(ctx, audioPath, model.TranscribeOptions{
		Language:    snap.Language,
		ModelSize:   snap.ModelSize,
		Temperature: snap.Temperature,
	})
	if err != nil {
		o.log.Warn("transcription failed",
			zap.String("session_id", snap.SessionID), zap.Error(err))
		o.fail(j, "transcription failed: "+err.Error())
		return
	}

	// Step 4: summary plus optional full-text artifact
	summary := buildSummary(result, snap)
	transcriptPath := ""
	if snap.OutputType == model.OutputFullText && strings.TrimSpace(result.Text) != "" {
		transcriptPath, err = o.writeTranscript(snap, result.Text)
		if err != nil {
			o.fail(j, "could not write transcript file")
			return
		}
	}

	j.mu.Lock()
	j.status = model.JobDone
	j.result = result
	j.summary = summary
	j.transcriptPath = transcriptPath
	decision := j.decision
	abandoned := j.abandoned
	j.mu.Unlock()

	o.log.Info("transcript ended", zap.String("session_id", snap.SessionID))

	if abandoned {
		return
	}

	// Step 5: deliver the result, then the persistence decision prompt
	o.notify(j, func() error {
		return o.ui.SummaryReady(ctx, snap.Owner, snap.SessionID, summary)
	})
	if transcriptPath != "" {
		o.notify(j, func() error {
			return o.ui.TranscriptReady(ctx, snap.Owner, snap.SessionID, transcriptPath)
		})
	}

	if decision != nil {
		// Owner already decided while the job was running
		o.finish(j, *decision)
		return
	}
	o.notify(j, func() error {
		return o.ui.PromptStore(ctx, snap.Owner)
	})
}

// fail marks the job failed and still moves the conversation forward:
// the owner gets the error in place of a summary and is offered the
// store decision so the session is never orphaned.
func (o *Orchestrator) fail(j *job, reason string) {
	ctx := context.Background()
	snap := j.snapshot

	j.mu.Lock()
	j.status = model.JobFailed
	decision := j.decision
	abandoned := j.abandoned
	j.mu.Unlock()

	if abandoned {
		o.drop(snap.SessionID)
		return
	}

	o.notify(j, func() error {
		return o.ui.JobFailed(ctx, snap.Owner, snap.SessionID, reason)
	})

	if decision != nil {
		o.finish(j, *decision)
		return
	}
	o.notify(j, func() error {
		return o.ui.PromptStore(ctx, snap.Owner)
	})
}

// finish applies the store decision to a completed or failed job and
// retires the handle
func (o *Orchestrator) finish(j *job, save bool) {
	ctx := context.Background()
	snap := j.snapshot

	j.mu.Lock()
	status := j.status
	result := j.result
	summary := j.summary
	j.mu.Unlock()

	defer o.drop(snap.SessionID)

	if !save {
		return
	}
	if status != model.JobDone || result == nil {
		o.notify(j, func() error {
			return o.ui.NothingToSave(ctx, snap.Owner)
		})
		return
	}

	d, utterances := o.chronicle.BuildRecords(snap, result, summary)
	if err := o.chronicle.Persist(ctx, d, utterances); err != nil {
		o.log.Error("dialog persistence failed",
			zap.String("session_id", snap.SessionID), zap.Error(err))
		o.notify(j, func() error {
			return o.ui.PersistFailed(ctx, snap.Owner, err.Error())
		})
		return
	}

	o.log.Info("dialog persisted",
		zap.String("dialog_id", d.ID),
		zap.Int("utterances", len(utterances)))
	o.notify(j, func() error {
		return o.ui.Persisted(ctx, snap.Owner, d.ID)
	})
}

// drop removes a retired job handle from the registry
func (o *Orchestrator) drop(sessionID string) {
	o.mu.Lock()
	delete(o.jobs, sessionID)
	o.mu.Unlock()
}

// notify delivers a message, logging failures instead of letting them
// escape the job boundary
func (o *Orchestrator) notify(j *job, send func() error) {
	if err := send(); err != nil {
		o.log.Warn("notification failed",
			zap.String("session_id", j.snapshot.SessionID), zap.Error(err))
	}
}

// writeTranscript stores the concatenated transcript text as a
// retrievable artifact
func (o *Orchestrator) writeTranscript(snap model.SessionSnapshot, text string) (string, error) {
	if err := os.MkdirAll(o.transcriptsDir, 0755); err != nil {
		return "", err
	}
	filename := fmt.Sprintf("transcript_%d_%s.txt", snap.Owner, snap.CreatedAt.Format("2006-01-02_150405"))
	path := filepath.Join(o.transcriptsDir, filename)
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// buildSummary renders the human-readable transcript info block
func buildSummary(result *model.WhisperResult, snap model.SessionSnapshot) string {
	confidence := "unknown"
	if avg, ok := result.AvgLogProb(); ok {
		confidence = fmt.Sprintf("%.2f%%", math.Exp(avg)*100)
	}

	noSpeech := "unknown"
	if p, ok := result.NoSpeechProb(); ok {
		noSpeech = fmt.Sprintf("%.2f%%", p*100)
	}

	temperature := "default"
	if snap.Temperature != nil {
		temperature = fmt.Sprintf("%g", *snap.Temperature)
	}

	return fmt.Sprintf(
		"Language: %s\nModel size: %s\nTemperature: %s\nDegree of confidence: %s\nNo-speech file probability: %s",
		result.Language, snap.ModelSize, temperature, confidence, noSpeech,
	)
}
