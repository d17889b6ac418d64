package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"outloud/internal/config"
	"outloud/internal/extract"
	"outloud/internal/library"
	"outloud/internal/logging"
	"outloud/internal/pipeline"
	"outloud/internal/progress"
	"outloud/internal/speech"
)

// Service exposes the item commands shared by the HTTP API and the CLI.
type Service struct {
	cfg    *config.Config
	store  *library.Store
	runner *pipeline.Runner
	hub    *progress.Hub
	speech *speech.Client
	logger *slog.Logger
}

// NewService wires the command layer.
func NewService(cfg *config.Config, store *library.Store, runner *pipeline.Runner, hub *progress.Hub, speechClient *speech.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		cfg:    cfg,
		store:  store,
		runner: runner,
		hub:    hub,
		speech: speechClient,
		logger: logger.With(logging.String(logging.FieldComponent, "service")),
	}
}

func (s *Service) resolveVoice(voice string) (string, error) {
	if voice == "" {
		return s.cfg.TTS.DefaultVoice, nil
	}
	if !speech.ValidVoice(voice) {
		return "", fmt.Errorf("%w: %s", speech.ErrUnknownVoice, voice)
	}
	return voice, nil
}

// AddURL queues a web article for narration and starts processing it.
func (s *Service) AddURL(ctx context.Context, pageURL, voice string, cleanupRequested bool) (*library.Item, error) {
	trimmed := strings.TrimSpace(pageURL)
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		return nil, fmt.Errorf("invalid url %q", pageURL)
	}
	resolved, err := s.resolveVoice(voice)
	if err != nil {
		return nil, err
	}

	item, err := s.store.NewItem(ctx, library.NewItemParams{
		Title:            trimmed,
		SourceType:       library.SourceURL,
		SourcePath:       trimmed,
		Voice:            resolved,
		CleanupRequested: cleanupRequested,
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.runner.Submit(ctx, item.ID); err != nil {
		return item, err
	}
	return item, nil
}

// AddText queues pasted text. The extraction stage is satisfied up front by
// writing the raw artifact, so processing starts at cleanup or synthesis.
// Identical text resolves to the existing item instead of a duplicate.
func (s *Service) AddText(ctx context.Context, title, text, voice string, cleanupRequested bool) (*library.Item, error) {
	body := strings.TrimSpace(text)
	if body == "" {
		return nil, errors.New("text is empty")
	}
	resolved, err := s.resolveVoice(voice)
	if err != nil {
		return nil, err
	}

	hash := pipeline.ContentHash(body)
	if existing, err := s.store.FindByHash(ctx, hash); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	if title = strings.TrimSpace(title); title == "" {
		if title = extract.TitleFromText(body); title == "" {
			title = "Pasted text"
		}
	}

	rawPath := pipeline.RawTextPath(s.cfg, hash)
	if err := pipeline.WriteText(rawPath, body); err != nil {
		return nil, err
	}

	item, err := s.store.NewItem(ctx, library.NewItemParams{
		Title:            title,
		SourceType:       library.SourceText,
		Voice:            resolved,
		CleanupRequested: cleanupRequested,
		ContentHash:      hash,
		RawTextPath:      rawPath,
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.runner.Submit(ctx, item.ID); err != nil {
		return item, err
	}
	return item, nil
}

// AddFile queues an uploaded document. Content already known by hash
// resolves to the existing item.
func (s *Service) AddFile(ctx context.Context, path, voice string, cleanupRequested bool) (*library.Item, error) {
	resolved, err := s.resolveVoice(voice)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	hash := pipeline.ContentHash(string(data))
	if existing, err := s.store.FindByHash(ctx, hash); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	item, err := s.store.NewItem(ctx, library.NewItemParams{
		Title:            extract.TitleFromFilename(path),
		SourceType:       library.SourceDocument,
		SourcePath:       path,
		Voice:            resolved,
		CleanupRequested: cleanupRequested,
		ContentHash:      hash,
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.runner.Submit(ctx, item.ID); err != nil {
		return item, err
	}
	return item, nil
}

// Retry requeues a failed item from the start of the pipeline.
func (s *Service) Retry(ctx context.Context, id int64) (*library.Item, error) {
	item, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !pipeline.CanTransition(item.Stage, library.StageQueued) {
		return nil, fmt.Errorf("%w: retry from %s", pipeline.ErrInvalidTransition, item.Stage)
	}
	if err := s.store.ResetForRetry(ctx, id); err != nil {
		return nil, err
	}
	if _, err := s.runner.Submit(ctx, id); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, id)
}

// Reclean sends a finished item back through cleanup and synthesis.
func (s *Service) Reclean(ctx context.Context, id int64) (*library.Item, error) {
	item, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.runner.IsRunning(id) {
		return nil, fmt.Errorf("%w: item %d", pipeline.ErrBusy, id)
	}
	if !pipeline.CanTransition(item.Stage, library.StageCleaning) {
		return nil, fmt.Errorf("%w: clean from %s", pipeline.ErrInvalidTransition, item.Stage)
	}
	if err := s.store.ResetForCleaning(ctx, id); err != nil {
		return nil, err
	}
	if _, err := s.runner.Submit(ctx, id); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, id)
}

// Regenerate re-synthesizes audio for a finished item, optionally with a
// different voice. The text artifacts are reused as-is.
func (s *Service) Regenerate(ctx context.Context, id int64, voice string) (*library.Item, error) {
	item, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.runner.IsRunning(id) {
		return nil, fmt.Errorf("%w: item %d", pipeline.ErrBusy, id)
	}
	if !pipeline.CanTransition(item.Stage, library.StageGenerating) {
		return nil, fmt.Errorf("%w: regenerate from %s", pipeline.ErrInvalidTransition, item.Stage)
	}
	if voice != "" && !speech.ValidVoice(voice) {
		return nil, fmt.Errorf("%w: %s", speech.ErrUnknownVoice, voice)
	}
	if err := s.store.ResetForRegenerate(ctx, id, voice); err != nil {
		return nil, err
	}
	if _, err := s.runner.Submit(ctx, id); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, id)
}

// Complete flags an item as listened.
func (s *Service) Complete(ctx context.Context, id int64) (*library.Item, error) {
	if err := s.store.MarkCompleted(ctx, id); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, id)
}

// Uncomplete clears the listened flag.
func (s *Service) Uncomplete(ctx context.Context, id int64) (*library.Item, error) {
	if err := s.store.MarkPending(ctx, id); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, id)
}

// Cancel requests cooperative cancellation of an item's run.
func (s *Service) Cancel(ctx context.Context, id int64) error {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return err
	}
	if !s.runner.Cancel(id) {
		return fmt.Errorf("item %d has no active run", id)
	}
	return nil
}

// Delete removes an item and its artifacts. An in-flight run is cancelled
// and waited out first so its guard never outlives the record.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if run := s.runner.Active(id); run != nil {
		s.runner.Cancel(id)
		select {
		case <-run.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	item, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	paths := []string{item.RawTextPath, item.CleanedTextPath, item.AudioPath}
	if item.SourceType == library.SourceDocument && strings.HasPrefix(item.SourcePath, s.cfg.Paths.UploadsDir+string(filepath.Separator)) {
		paths = append(paths, item.SourcePath)
	}
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("artifact not removed",
				logging.Int64(logging.FieldItemID, id),
				logging.Error(err),
			)
		}
	}

	if _, err := s.store.Remove(ctx, id); err != nil {
		return err
	}
	s.logger.Info("item deleted", logging.Int64(logging.FieldItemID, id))
	return nil
}

// List returns items, optionally filtered by stage.
func (s *Service) List(ctx context.Context, stages ...library.Stage) ([]*library.Item, error) {
	return s.store.List(ctx, stages...)
}

// Get fetches one item.
func (s *Service) Get(ctx context.Context, id int64) (*library.Item, error) {
	return s.store.GetByID(ctx, id)
}

// Stats reports item counts by stage.
func (s *Service) Stats(ctx context.Context) (map[library.Stage]int, error) {
	return s.store.Stats(ctx)
}

// Voices lists the supported narrators.
func (s *Service) Voices() []speech.Voice {
	return speech.Voices()
}

// Preview renders a short narration sample for a voice.
func (s *Service) Preview(ctx context.Context, voice string) ([]byte, error) {
	if s.speech == nil {
		return nil, errors.New("speech synthesis is not configured")
	}
	return s.speech.Preview(ctx, voice)
}

// Watch returns the item's durable state as a snapshot event plus a live
// subscription for subsequent updates.
func (s *Service) Watch(ctx context.Context, id int64) (progress.Event, *progress.Subscription, error) {
	item, err := s.store.GetByID(ctx, id)
	if err != nil {
		return progress.Event{}, nil, err
	}
	sub := s.hub.Subscribe(id)
	return progress.EventFromItem(item), sub, nil
}
