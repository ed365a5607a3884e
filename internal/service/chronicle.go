package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/polis-labs/chronicler/internal/errors"
	"github.com/polis-labs/chronicler/internal/model"
	"github.com/polis-labs/chronicler/internal/repository/dialog"
)

// ChronicleService turns a completed transcription into dialog and
// utterance records and persists them as one atomic batch
type ChronicleService interface {
	// BuildRecords derives the persistable records from a job result
	BuildRecords(snapshot model.SessionSnapshot, result *model.WhisperResult, summary string) (*model.Dialog, []*model.Utterance)

	// Persist writes the dialog and its utterances atomically
	Persist(ctx context.Context, d *model.Dialog, utterances []*model.Utterance) error
}

// chronicleService implements ChronicleService on the dialog repository
type chronicleService struct {
	repo  dialog.Repository
	newID func() string
}

// NewChronicleService creates a new ChronicleService
func NewChronicleService(repo dialog.Repository) ChronicleService {
	return &chronicleService{
		repo:  repo,
		newID: uuid.NewString,
	}
}

// BuildRecords maps Whisper segments onto utterances ordered by segment
// number. The dialog window is anchored on the session start timestamp:
// started_at is offset by the first segment start, ended_at by the last
// segment end.
func (s *chronicleService) BuildRecords(snapshot model.SessionSnapshot, result *model.WhisperResult, summary string) (*model.Dialog, []*model.Utterance) {
	speaker := strconv.FormatInt(snapshot.Owner, 10)

	startedAt := snapshot.CreatedAt
	endedAt := snapshot.CreatedAt
	if n := len(result.Segments); n > 0 {
		startedAt = offsetSeconds(snapshot.CreatedAt, result.Segments[0].Start)
		endedAt = offsetSeconds(snapshot.CreatedAt, result.Segments[n-1].End)
	}

	d := &model.Dialog{
		ID:           snapshot.SessionID,
		Title:        "Chronicle " + snapshot.CreatedAt.Format("2006-01-02 15:04:05"),
		StartedAt:    startedAt,
		EndedAt:      endedAt,
		Tags:         []string{},
		Source:       "telegram",
		Participants: []string{speaker},
		Summary:      summary,
		Metadata: map[string]any{
			"language":   result.Language,
			"model_size": snapshot.ModelSize,
		},
	}

	utterances := make([]*model.Utterance, len(result.Segments))
	for i, seg := range result.Segments {
		utterances[i] = &model.Utterance{
			ID:            s.newID(),
			DialogID:      d.ID,
			Speaker:       speaker,
			Content:       strings.TrimSpace(seg.Text),
			StartTime:     seg.Start,
			EndTime:       seg.End,
			SegmentNumber: i,
			CreatedAt:     snapshot.CreatedAt,
			Metadata: map[string]any{
				"avg_logprob":    seg.AvgLogProb,
				"no_speech_prob": seg.NoSpeechProb,
			},
		}
	}

	return d, utterances
}

// Persist writes the dialog and its utterances or nothing at all
func (s *chronicleService) Persist(ctx context.Context, d *model.Dialog, utterances []*model.Utterance) error {
	if d == nil {
		return errors.New(errors.CodeInvalidArg, "dialog is required")
	}
	if err := s.repo.CreateWithUtterances(ctx, d, utterances); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to persist dialog")
	}
	return nil
}

func offsetSeconds(t time.Time, seconds float64) time.Time {
	return t.Add(time.Duration(seconds * float64(time.Second)))
}
