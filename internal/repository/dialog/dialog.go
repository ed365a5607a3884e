package dialog

import (
	"context"

	"github.com/polis-labs/chronicler/internal/model"
)

// Repository defines operations for Dialog persistence. A dialog and its
// utterances are written as one atomic batch or not at all.
type Repository interface {
	// CreateWithUtterances inserts the dialog record and all its
	// utterances inside a single transaction
	CreateWithUtterances(ctx context.Context, d *model.Dialog, utterances []*model.Utterance) error

	// GetByID retrieves a dialog by its ID
	GetByID(ctx context.Context, id string) (*model.Dialog, error)

	// GetUtterances retrieves all utterances of a dialog ordered by
	// segment_number
	GetUtterances(ctx context.Context, dialogID string) ([]*model.Utterance, error)

	// ListBySpeaker retrieves dialogs a speaker participated in, newest first
	ListBySpeaker(ctx context.Context, speaker string) ([]*model.Dialog, error)

	// Delete removes a dialog and its utterances
	Delete(ctx context.Context, id string) error
}
