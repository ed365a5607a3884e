package dialog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/polis-labs/chronicler/internal/errors"
	"github.com/polis-labs/chronicler/internal/model"
	"github.com/polis-labs/chronicler/internal/repository/common"
)

// Pool interface for abstracting pgx connection pool
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// dialogRepository implements Repository using PostgreSQL
type dialogRepository struct {
	pool Pool
}

// NewRepository creates a new instance of Repository
func NewRepository(pool Pool) Repository {
	return &dialogRepository{
		pool: pool,
	}
}

// CreateWithUtterances inserts the dialog and bulk-inserts its
// utterances in one transaction so a partial chronicle is never visible
func (r *dialogRepository) CreateWithUtterances(ctx context.Context, d *model.Dialog, utterances []*model.Utterance) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return common.HandlePostgreSQLError(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	sql := `INSERT INTO dialogs
		(id, title, started_at, ended_at, topic_id, tags, source, participants, summary, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = tx.Exec(ctx, sql,
		d.ID,
		d.Title,
		d.StartedAt,
		d.EndedAt,
		d.TopicID,
		d.Tags,
		d.Source,
		d.Participants,
		d.Summary,
		d.Metadata,
	)
	if err != nil {
		return common.HandlePostgreSQLError(err, "failed to create dialog")
	}

	if len(utterances) > 0 {
		rows := make([][]interface{}, len(utterances))
		for i, u := range utterances {
			rows[i] = []interface{}{
				u.ID,
				u.DialogID,
				u.Speaker,
				u.Content,
				u.StartTime,
				u.EndTime,
				u.SegmentNumber,
				u.CreatedAt,
				u.Metadata,
			}
		}

		// COPY FROM for efficient bulk insert of the segment batch
		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"utterances"},
			[]string{"id", "dialog_id", "speaker", "content", "start_time", "end_time", "segment_number", "created_at", "metadata"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return common.HandlePostgreSQLError(err, "failed to create utterances")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return common.HandlePostgreSQLError(err, "failed to commit dialog")
	}
	return nil
}

// GetByID retrieves a dialog by its ID
func (r *dialogRepository) GetByID(ctx context.Context, id string) (*model.Dialog, error) {
	sql := `SELECT id, title, started_at, ended_at, topic_id, tags, source, participants, summary, metadata
		FROM dialogs WHERE id = $1`
	row := r.pool.QueryRow(ctx, sql, id)

	var d model.Dialog
	err := row.Scan(
		&d.ID,
		&d.Title,
		&d.StartedAt,
		&d.EndedAt,
		&d.TopicID,
		&d.Tags,
		&d.Source,
		&d.Participants,
		&d.Summary,
		&d.Metadata,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.Wrap(err, apperrors.CodeNotFound, "dialog not found")
		}
		return nil, common.HandlePostgreSQLError(err, "failed to get dialog")
	}
	return &d, nil
}

// GetUtterances retrieves all utterances of a dialog ordered by segment_number
func (r *dialogRepository) GetUtterances(ctx context.Context, dialogID string) ([]*model.Utterance, error) {
	sql := `SELECT id, dialog_id, speaker, content, start_time, end_time, segment_number, created_at, metadata
		FROM utterances
		WHERE dialog_id = $1
		ORDER BY segment_number`

	rows, err := r.pool.Query(ctx, sql, dialogID)
	if err != nil {
		return nil, common.HandlePostgreSQLError(err, "failed to get utterances")
	}
	defer rows.Close()

	var utterances []*model.Utterance
	for rows.Next() {
		var u model.Utterance
		err := rows.Scan(
			&u.ID,
			&u.DialogID,
			&u.Speaker,
			&u.Content,
			&u.StartTime,
			&u.EndTime,
			&u.SegmentNumber,
			&u.CreatedAt,
			&u.Metadata,
		)
		if err != nil {
			return nil, common.HandlePostgreSQLError(err, "failed to scan utterance")
		}
		utterances = append(utterances, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, common.HandlePostgreSQLError(err, "failed to iterate utterances")
	}

	return utterances, nil
}

// ListBySpeaker retrieves dialogs a speaker participated in, newest first
func (r *dialogRepository) ListBySpeaker(ctx context.Context, speaker string) ([]*model.Dialog, error) {
	sql := `SELECT id, title, started_at, ended_at, topic_id, tags, source, participants, summary, metadata
		FROM dialogs WHERE $1 = ANY(participants) ORDER BY started_at DESC`

	rows, err := r.pool.Query(ctx, sql, speaker)
	if err != nil {
		return nil, common.HandlePostgreSQLError(err, "failed to list dialogs by speaker")
	}
	defer rows.Close()

	var dialogs []*model.Dialog
	for rows.Next() {
		var d model.Dialog
		err := rows.Scan(
			&d.ID,
			&d.Title,
			&d.StartedAt,
			&d.EndedAt,
			&d.TopicID,
			&d.Tags,
			&d.Source,
			&d.Participants,
			&d.Summary,
			&d.Metadata,
		)
		if err != nil {
			return nil, common.HandlePostgreSQLError(err, "failed to scan dialog")
		}
		dialogs = append(dialogs, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, common.HandlePostgreSQLError(err, "failed to iterate dialogs")
	}

	return dialogs, nil
}

// Delete removes a dialog and its utterances in one transaction
func (r *dialogRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return common.HandlePostgreSQLError(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM utterances WHERE dialog_id = $1", id); err != nil {
		return common.HandlePostgreSQLError(err, "failed to delete utterances")
	}
	if _, err := tx.Exec(ctx, "DELETE FROM dialogs WHERE id = $1", id); err != nil {
		return common.HandlePostgreSQLError(err, "failed to delete dialog")
	}

	if err := tx.Commit(ctx); err != nil {
		return common.HandlePostgreSQLError(err, "failed to commit delete")
	}
	return nil
}
