package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/polis-labs/chronicler/internal/model"
)

// mockTransport for testing
type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) SendMessage(ctx context.Context, owner int64, text string, kb model.Keyboard) error {
	return m.Called(ctx, owner, text, kb).Error(0)
}

func (m *mockTransport) SendDocument(ctx context.Context, owner int64, path, caption string, kb model.Keyboard) error {
	return m.Called(ctx, owner, path, caption, kb).Error(0)
}

func (m *mockTransport) DownloadFile(ctx context.Context, fileID, destDir string) (string, error) {
	args := m.Called(ctx, fileID, destDir)
	return args.String(0), args.Error(1)
}

// mockResultUI for testing
type mockResultUI struct {
	mock.Mock
}

func (m *mockResultUI) EstimateReady(ctx context.Context, owner int64, sessionID string, seconds int) error {
	return m.Called(ctx, owner, sessionID, seconds).Error(0)
}

func (m *mockResultUI) SummaryReady(ctx context.Context, owner int64, sessionID string, summary string) error {
	return m.Called(ctx, owner, sessionID, summary).Error(0)
}

func (m *mockResultUI) TranscriptReady(ctx context.Context, owner int64, sessionID string, path string) error {
	return m.Called(ctx, owner, sessionID, path).Error(0)
}

func (m *mockResultUI) JobFailed(ctx context.Context, owner int64, sessionID string, reason string) error {
	return m.Called(ctx, owner, sessionID, reason).Error(0)
}

func (m *mockResultUI) PromptStore(ctx context.Context, owner int64) error {
	return m.Called(ctx, owner).Error(0)
}

func (m *mockResultUI) Persisted(ctx context.Context, owner int64, dialogID string) error {
	return m.Called(ctx, owner, dialogID).Error(0)
}

func (m *mockResultUI) PersistFailed(ctx context.Context, owner int64, reason string) error {
	return m.Called(ctx, owner, reason).Error(0)
}

func (m *mockResultUI) NothingToSave(ctx context.Context, owner int64) error {
	return m.Called(ctx, owner).Error(0)
}

func (m *mockResultUI) allowAll() {
	m.On("EstimateReady", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("SummaryReady", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("TranscriptReady", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("JobFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("PromptStore", mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("Persisted", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("PersistFailed", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("NothingToSave", mock.Anything, mock.Anything).Return(nil).Maybe()
}

// mockWhisperService for testing
type mockWhisperService struct {
	mock.Mock
}

func (m *mockWhisperService) TranscribeAudio(ctx context.Context, audioPath string, opts model.TranscribeOptions) (*model.WhisperResult, error) {
	args := m.Called(ctx, audioPath, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WhisperResult), args.Error(1)
}

// mockEstimator for testing
type mockEstimator struct {
	mock.Mock
}

func (m *mockEstimator) Estimate(ctx context.Context, audioPath string, modelSize string) (int, error) {
	args := m.Called(ctx, audioPath, modelSize)
	return args.Int(0), args.Error(1)
}

// mockChronicleService for testing
type mockChronicleService struct {
	mock.Mock
}

func (m *mockChronicleService) BuildRecords(snapshot model.SessionSnapshot, result *model.WhisperResult, summary string) (*model.Dialog, []*model.Utterance) {
	args := m.Called(snapshot, result, summary)
	return args.Get(0).(*model.Dialog), args.Get(1).([]*model.Utterance)
}

func (m *mockChronicleService) Persist(ctx context.Context, d *model.Dialog, utterances []*model.Utterance) error {
	return m.Called(ctx, d, utterances).Error(0)
}

type orchestratorFixture struct {
	orch      *Orchestrator
	transport *mockTransport
	ui        *mockResultUI
	whisper   *mockWhisperService
	estimator *mockEstimator
	chronicle *mockChronicleService
	audioPath string
}

func newOrchestratorFixture(t *testing.T) *orchestratorFixture {
	t.Helper()

	dir := t.TempDir()
	audioPath := filepath.Join(dir, "file-1.ogg")
	require.NoError(t, os.WriteFile(audioPath, []byte("fake audio"), 0644))

	f := &orchestratorFixture{
		transport: &mockTransport{},
		ui:        &mockResultUI{},
		whisper:   &mockWhisperService{},
		estimator: &mockEstimator{},
		chronicle: &mockChronicleService{},
		audioPath: audioPath,
	}
	f.ui.allowAll()
	f.orch = NewOrchestrator(f.transport, f.ui, f.whisper, f.estimator, f.chronicle,
		dir, filepath.Join(dir, "transcripts"), zap.NewNop())
	return f
}

func sampleWhisperResult() *model.WhisperResult {
	return &model.WhisperResult{
		Text:     "Hello there. General Kenobi.",
		Language: "en",
		Segments: []model.WhisperSegment{
			{ID: 0, Start: 0.0, End: 2.5, Text: " Hello there.", AvgLogProb: -0.3, NoSpeechProb: 0.01},
			{ID: 1, Start: 2.5, End: 5.0, Text: " General Kenobi.", AvgLogProb: -0.6, NoSpeechProb: 0.02},
		},
	}
}

func TestOrchestrator_SuccessfulRun(t *testing.T) {
	f := newOrchestratorFixture(t)
	snap := testSnapshot()

	f.transport.On("DownloadFile", mock.Anything, "file-1", mock.Anything).Return(f.audioPath, nil)
	f.estimator.On("Estimate", mock.Anything, f.audioPath, "small").Return(124, nil)
	f.whisper.On("TranscribeAudio", mock.Anything, f.audioPath, model.TranscribeOptions{
		Language:    "en",
		ModelSize:   "small",
		Temperature: snap.Temperature,
	}).Return(sampleWhisperResult(), nil)

	f.orch.Launch(snap)
	f.orch.Wait(snap.SessionID)

	f.ui.AssertCalled(t, "EstimateReady", mock.Anything, snap.Owner, snap.SessionID, 124)
	f.ui.AssertCalled(t, "SummaryReady", mock.Anything, snap.Owner, snap.SessionID,
		mock.MatchedBy(func(summary string) bool {
			return strings.Contains(summary, "Language: en") &&
				strings.Contains(summary, "Model size: small") &&
				strings.Contains(summary, "Temperature: 0.5") &&
				strings.Contains(summary, "Degree of confidence:") &&
				strings.Contains(summary, "No-speech file probability: 1.00%")
		}))
	f.ui.AssertCalled(t, "TranscriptReady", mock.Anything, snap.Owner, snap.SessionID,
		mock.MatchedBy(func(path string) bool {
			data, err := os.ReadFile(path)
			return err == nil && string(data) == "Hello there. General Kenobi."
		}))
	f.ui.AssertCalled(t, "PromptStore", mock.Anything, snap.Owner)
	f.ui.AssertNotCalled(t, "JobFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	// Intermediate audio artifact is removed after the run
	assert.NoFileExists(t, f.audioPath)

	// Decision after completion persists the dialog
	d := &model.Dialog{ID: snap.SessionID}
	f.chronicle.On("BuildRecords", snap, mock.Anything, mock.Anything).Return(d, []*model.Utterance{})
	f.chronicle.On("Persist", mock.Anything, d, mock.Anything).Return(nil)

	f.orch.Resolve(snap.SessionID, true)

	f.ui.AssertCalled(t, "Persisted", mock.Anything, snap.Owner, snap.SessionID)
	f.chronicle.AssertExpectations(t)

	// Handle is retired: a second resolve is a no-op
	f.orch.Resolve(snap.SessionID, true)
	f.ui.AssertNumberOfCalls(t, "Persisted", 1)
}

func TestOrchestrator_InfoOnlySkipsTranscriptFile(t *testing.T) {
	f := newOrchestratorFixture(t)
	snap := testSnapshot()
	snap.OutputType = model.OutputInfoOnly

	f.transport.On("DownloadFile", mock.Anything, "file-1", mock.Anything).Return(f.audioPath, nil)
	f.estimator.On("Estimate", mock.Anything, f.audioPath, "small").Return(124, nil)
	f.whisper.On("TranscribeAudio", mock.Anything, f.audioPath, mock.Anything).Return(sampleWhisperResult(), nil)

	f.orch.Launch(snap)
	f.orch.Wait(snap.SessionID)

	f.ui.AssertCalled(t, "SummaryReady", mock.Anything, snap.Owner, snap.SessionID, mock.Anything)
	f.ui.AssertNotCalled(t, "TranscriptReady", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrchestrator_FailureStillAdvances(t *testing.T) {
	f := newOrchestratorFixture(t)
	snap := testSnapshot()

	f.transport.On("DownloadFile", mock.Anything, "file-1", mock.Anything).Return(f.audioPath, nil)
	f.estimator.On("Estimate", mock.Anything, f.audioPath, "small").Return(124, nil)
	f.whisper.On("TranscribeAudio", mock.Anything, f.audioPath, mock.Anything).
		Return(nil, assert.AnError)

	f.orch.Launch(snap)
	f.orch.Wait(snap.SessionID)

	// The owner gets the error in place of a summary, then the store prompt
	f.ui.AssertCalled(t, "JobFailed", mock.Anything, snap.Owner, snap.SessionID, mock.Anything)
	f.ui.AssertCalled(t, "PromptStore", mock.Anything, snap.Owner)
	f.ui.AssertNotCalled(t, "SummaryReady", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.NoFileExists(t, f.audioPath)

	// Saving a failed job has nothing to write
	f.orch.Resolve(snap.SessionID, true)
	f.ui.AssertCalled(t, "NothingToSave", mock.Anything, snap.Owner)
	f.chronicle.AssertNotCalled(t, "Persist", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrchestrator_DownloadFailure(t *testing.T) {
	f := newOrchestratorFixture(t)
	snap := testSnapshot()

	f.transport.On("DownloadFile", mock.Anything, "file-1", mock.Anything).Return("", assert.AnError)

	f.orch.Launch(snap)
	f.orch.Wait(snap.SessionID)

	f.ui.AssertCalled(t, "JobFailed", mock.Anything, snap.Owner, snap.SessionID, mock.Anything)
	f.ui.AssertCalled(t, "PromptStore", mock.Anything, snap.Owner)
	f.estimator.AssertNotCalled(t, "Estimate", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrchestrator_EarlyDecisionIsParked(t *testing.T) {
	f := newOrchestratorFixture(t)
	snap := testSnapshot()

	release := make(chan struct{})
	f.transport.On("DownloadFile", mock.Anything, "file-1", mock.Anything).Return(f.audioPath, nil)
	f.estimator.On("Estimate", mock.Anything, f.audioPath, "small").Return(124, nil)
	f.whisper.On("TranscribeAudio", mock.Anything, f.audioPath, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(sampleWhisperResult(), nil)

	d := &model.Dialog{ID: snap.SessionID}
	f.chronicle.On("BuildRecords", snap, mock.Anything, mock.Anything).Return(d, []*model.Utterance{})
	f.chronicle.On("Persist", mock.Anything, d, mock.Anything).Return(nil)

	f.orch.Launch(snap)

	// Decision lands while the engine is still running
	f.orch.Resolve(snap.SessionID, true)
	f.chronicle.AssertNotCalled(t, "Persist", mock.Anything, mock.Anything, mock.Anything)

	close(release)
	f.orch.Wait(snap.SessionID)

	// Result delivered, parked decision applied, no redundant prompt
	f.ui.AssertCalled(t, "SummaryReady", mock.Anything, snap.Owner, snap.SessionID, mock.Anything)
	f.ui.AssertCalled(t, "Persisted", mock.Anything, snap.Owner, snap.SessionID)
	f.ui.AssertNotCalled(t, "PromptStore", mock.Anything, mock.Anything)
	f.chronicle.AssertExpectations(t)
}

func TestOrchestrator_DiscardedJobStaysSilent(t *testing.T) {
	f := newOrchestratorFixture(t)
	snap := testSnapshot()

	release := make(chan struct{})
	f.transport.On("DownloadFile", mock.Anything, "file-1", mock.Anything).Return(f.audioPath, nil)
	f.estimator.On("Estimate", mock.Anything, f.audioPath, "small").Return(124, nil)
	f.whisper.On("TranscribeAudio", mock.Anything, f.audioPath, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(sampleWhisperResult(), nil)

	f.orch.Launch(snap)

	f.orch.mu.Lock()
	j := f.orch.jobs[snap.SessionID]
	f.orch.mu.Unlock()
	require.NotNil(t, j)

	// Session reclaimed by timeout while the engine is running
	f.orch.Discard(snap.SessionID)

	close(release)
	<-j.done

	// A late decision for a discarded handle is a no-op
	f.orch.Resolve(snap.SessionID, true)

	f.ui.AssertNotCalled(t, "SummaryReady", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.ui.AssertNotCalled(t, "Persisted", mock.Anything, mock.Anything, mock.Anything)
	f.chronicle.AssertNotCalled(t, "Persist", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrchestrator_DrainWaitsForRunningJobs(t *testing.T) {
	f := newOrchestratorFixture(t)
	snap := testSnapshot()

	release := make(chan struct{})
	f.transport.On("DownloadFile", mock.Anything, "file-1", mock.Anything).Return(f.audioPath, nil)
	f.estimator.On("Estimate", mock.Anything, f.audioPath, "small").Return(124, nil)
	f.whisper.On("TranscribeAudio", mock.Anything, f.audioPath, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(sampleWhisperResult(), nil)

	f.orch.Launch(snap)

	drained := make(chan struct{})
	go func() {
		f.orch.Drain()
		close(drained)
	}()

	// Drain must not return while the engine is still running
	select {
	case <-drained:
		t.Fatal("Drain returned with a job still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-drained:
	case <-time.After(2 * time.Second):
		t.Fatal("Drain did not return after the job finished")
	}
	f.ui.AssertCalled(t, "SummaryReady", mock.Anything, snap.Owner, snap.SessionID, mock.Anything)
}

func TestOrchestrator_PersistFailureIsReported(t *testing.T) {
	f := newOrchestratorFixture(t)
	snap := testSnapshot()

	f.transport.On("DownloadFile", mock.Anything, "file-1", mock.Anything).Return(f.audioPath, nil)
	f.estimator.On("Estimate", mock.Anything, f.audioPath, "small").Return(124, nil)
	f.whisper.On("TranscribeAudio", mock.Anything, f.audioPath, mock.Anything).Return(sampleWhisperResult(), nil)

	d := &model.Dialog{ID: snap.SessionID}
	f.chronicle.On("BuildRecords", snap, mock.Anything, mock.Anything).Return(d, []*model.Utterance{})
	f.chronicle.On("Persist", mock.Anything, d, mock.Anything).Return(assert.AnError)

	f.orch.Launch(snap)
	f.orch.Wait(snap.SessionID)
	f.orch.Resolve(snap.SessionID, true)

	// The transcript was already delivered; only the store write failed
	f.ui.AssertCalled(t, "SummaryReady", mock.Anything, snap.Owner, snap.SessionID, mock.Anything)
	f.ui.AssertCalled(t, "PersistFailed", mock.Anything, snap.Owner, mock.Anything)
	f.ui.AssertNotCalled(t, "Persisted", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrchestrator_DiscardDecisionSkipsPersistence(t *testing.T) {
	f := newOrchestratorFixture(t)
	snap := testSnapshot()

	f.transport.On("DownloadFile", mock.Anything, "file-1", mock.Anything).Return(f.audioPath, nil)
	f.estimator.On("Estimate", mock.Anything, f.audioPath, "small").Return(124, nil)
	f.whisper.On("TranscribeAudio", mock.Anything, f.audioPath, mock.Anything).Return(sampleWhisperResult(), nil)

	f.orch.Launch(snap)
	f.orch.Wait(snap.SessionID)
	f.orch.Resolve(snap.SessionID, false)

	f.chronicle.AssertNotCalled(t, "BuildRecords", mock.Anything, mock.Anything, mock.Anything)
	f.chronicle.AssertNotCalled(t, "Persist", mock.Anything, mock.Anything, mock.Anything)
	f.ui.AssertNotCalled(t, "NothingToSave", mock.Anything, mock.Anything)
}
