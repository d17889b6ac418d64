package library

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// updateFields applies a partial update to a single item row.
func (s *Store) updateFields(ctx context.Context, id int64, fields map[string]any) error {
	fields["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)

	query, args, err := sq.Update("items").
		SetMap(fields).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update item fields: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: item %d", ErrNotFound, id)
	}
	return nil
}

// SetStage records a stage transition.
func (s *Store) SetStage(ctx context.Context, id int64, stage Stage) error {
	return s.updateFields(ctx, id, map[string]any{
		"stage":            string(stage),
		"progress_message": nil,
		"progress_percent": 0,
	})
}

// UpdateProgress records forward progress within the current stage.
func (s *Store) UpdateProgress(ctx context.Context, id int64, message string, percent float64) error {
	return s.updateFields(ctx, id, map[string]any{
		"progress_message": nullableString(message),
		"progress_percent": percent,
	})
}

// SetError moves an item to the error stage with a diagnostic message.
func (s *Store) SetError(ctx context.Context, id int64, message string) error {
	return s.updateFields(ctx, id, map[string]any{
		"stage":            string(StageError),
		"error_message":    nullableString(message),
		"progress_message": nil,
		"progress_percent": 0,
	})
}

// ResetForRetry requeues a failed item from the beginning of the pipeline.
// Existing artifacts survive so completed work is not repeated.
func (s *Store) ResetForRetry(ctx context.Context, id int64) error {
	return s.updateFields(ctx, id, map[string]any{
		"stage":            string(StageQueued),
		"error_message":    nil,
		"progress_message": nil,
		"progress_percent": 0,
		"completed_at":     nil,
		"status":           string(StatusPending),
	})
}

// ResetForCleaning sends a finished item back through cleanup. The raw
// extraction artifact is kept; the cleaned text and audio are discarded
// so both get rebuilt. The was_cleaned flag is left alone.
func (s *Store) ResetForCleaning(ctx context.Context, id int64) error {
	return s.updateFields(ctx, id, map[string]any{
		"stage":             string(StageCleaning),
		"cleanup_requested": 1,
		"cleaned_text_path": nil,
		"audio_path":        nil,
		"error_message":     nil,
		"progress_message":  nil,
		"progress_percent":  0,
		"completed_at":      nil,
		"status":            string(StatusPending),
	})
}

// ResetForRegenerate re-synthesizes audio from the existing text artifact,
// optionally with a different voice.
func (s *Store) ResetForRegenerate(ctx context.Context, id int64, voice string) error {
	fields := map[string]any{
		"stage":            string(StageGenerating),
		"audio_path":       nil,
		"error_message":    nil,
		"progress_message": nil,
		"progress_percent": 0,
		"completed_at":     nil,
		"status":           string(StatusPending),
	}
	if voice != "" {
		fields["voice"] = voice
	}
	return s.updateFields(ctx, id, fields)
}

// MarkCompleted flags a finished item as listened. Only items that reached
// the ready stage with a playable audio artifact qualify.
func (s *Store) MarkCompleted(ctx context.Context, id int64) error {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item.Stage != StageReady || item.AudioPath == "" {
		return fmt.Errorf("%w: item %d is %s", ErrNotReady, id, item.Stage)
	}
	return s.updateFields(ctx, id, map[string]any{
		"status":       string(StatusCompleted),
		"completed_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// MarkPending clears the listened flag on an item.
func (s *Store) MarkPending(ctx context.Context, id int64) error {
	return s.updateFields(ctx, id, map[string]any{
		"status":       string(StatusPending),
		"completed_at": nil,
	})
}

// ResetStuckProcessing requeues items stranded in an active stage, typically
// after an unclean shutdown. Returns the number of items reset.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int, error) {
	stages := make([]string, 0, len(activeStages))
	for stage := range activeStages {
		stages = append(stages, string(stage))
	}

	query, args, err := sq.Update("items").
		SetMap(map[string]any{
			"stage":            string(StageQueued),
			"progress_message": nil,
			"progress_percent": 0,
			"updated_at":       time.Now().UTC().Format(time.RFC3339Nano),
		}).
		Where(sq.Eq{"stage": stages}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build reset: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reset stuck items: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(affected), nil
}
