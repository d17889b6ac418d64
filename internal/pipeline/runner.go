// Package pipeline drives items through extraction, cleanup, and speech
// synthesis. A runner guarantees at most one in-flight run per item and
// persists every stage transition before moving on.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"outloud/internal/config"
	"outloud/internal/library"
	"outloud/internal/logging"
	"outloud/internal/progress"
)

// ErrBusy is returned by commands that cannot apply while an item is being
// processed.
var ErrBusy = errors.New("item is busy")

// Run is the handle for one in-flight pipeline run.
type Run struct {
	ItemID int64

	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Done is closed when the run finishes, successfully or not.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Err reports the run outcome. Only valid after Done is closed.
func (r *Run) Err() error {
	return r.err
}

// RunnerOptions wires a Runner's collaborators.
type RunnerOptions struct {
	Config      *config.Config
	Store       *library.Store
	Hub         *progress.Hub
	Extractor   Extractor
	Cleaner     Cleaner
	Synthesizer Synthesizer
	Logger      *slog.Logger
	Metrics     *Metrics
}

// Runner executes pipeline runs with a per-item concurrency guard.
type Runner struct {
	cfg       *config.Config
	store     *library.Store
	hub       *progress.Hub
	extractor Extractor
	cleaner   Cleaner
	synth     Synthesizer
	logger    *slog.Logger
	metrics   *Metrics

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu      sync.Mutex
	running map[int64]*Run
	wg      sync.WaitGroup
}

// NewRunner constructs a Runner. Store, Config, Extractor, and Synthesizer
// are required; a nil Cleaner disables the cleanup stage.
func NewRunner(opts RunnerOptions) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	hub := opts.Hub
	if hub == nil {
		hub = progress.NewHub(0)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		cfg:        opts.Config,
		store:      opts.Store,
		hub:        hub,
		extractor:  opts.Extractor,
		cleaner:    opts.Cleaner,
		synth:      opts.Synthesizer,
		logger:     logger.With(logging.String(logging.FieldComponent, "pipeline")),
		metrics:    opts.Metrics,
		baseCtx:    ctx,
		baseCancel: cancel,
		running:    make(map[int64]*Run),
	}
}

// Submit starts processing an item from its current persisted stage. A
// second submission for an item that is already running returns the
// existing run handle instead of starting another.
func (r *Runner) Submit(ctx context.Context, itemID int64) (*Run, error) {
	if existing := r.lookup(itemID); existing != nil {
		return existing, nil
	}

	item, err := r.store.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Stage.IsTerminal() {
		return nil, fmt.Errorf("%w: cannot start run from %s", ErrInvalidTransition, item.Stage)
	}

	r.mu.Lock()
	if existing, ok := r.running[itemID]; ok {
		r.mu.Unlock()
		return existing, nil
	}
	runCtx, cancel := context.WithCancel(r.baseCtx)
	run := &Run{
		ItemID: itemID,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	r.running[itemID] = run
	r.wg.Add(1)
	r.mu.Unlock()

	r.metrics.runStarted()
	go r.execute(runCtx, run, item)
	return run, nil
}

// Cancel requests cooperative cancellation of an item's run.
func (r *Runner) Cancel(itemID int64) bool {
	run := r.lookup(itemID)
	if run == nil {
		return false
	}
	run.cancel()
	return true
}

// IsRunning reports whether an item has an in-flight run.
func (r *Runner) IsRunning(itemID int64) bool {
	return r.lookup(itemID) != nil
}

// Active returns the in-flight run handle for an item, or nil.
func (r *Runner) Active(itemID int64) *Run {
	return r.lookup(itemID)
}

// Stop cancels all in-flight runs and waits for them to unwind, bounded by
// the context deadline.
func (r *Runner) Stop(ctx context.Context) error {
	r.baseCancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) lookup(itemID int64) *Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running[itemID]
}

func (r *Runner) execute(ctx context.Context, run *Run, item *library.Item) {
	defer r.wg.Done()

	runID := uuid.NewString()
	ctx = logging.WithRequestID(ctx, runID)
	logger := r.logger.With(logging.String(logging.FieldCorrelationID, runID))

	var runErr error
	defer func() {
		if rec := recover(); rec != nil {
			runErr = fmt.Errorf("pipeline panic: %v", rec)
			logger.Error("pipeline panic",
				logging.Int64(logging.FieldItemID, item.ID),
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
		}
		r.complete(run, item, runErr)
	}()

	logger.Info("run started",
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String(logging.FieldStage, string(item.Stage)),
		slog.String("title", item.Title),
	)
	runErr = r.process(ctx, item)
}

// complete persists the outcome, releases the per-item guard, and emits the
// terminal progress event. It runs on a background context so a cancelled
// run can still record its state.
func (r *Runner) complete(run *Run, item *library.Item, runErr error) {
	ctx := context.Background()

	outcome := "ready"
	switch {
	case runErr == nil:
		r.hub.Publish(progress.EventFromItem(item))
		r.logger.Info("run finished",
			logging.Int64(logging.FieldItemID, item.ID),
			logging.String(logging.FieldStage, string(item.Stage)),
		)
	case errors.Is(runErr, context.Canceled):
		outcome = "canceled"
		if err := r.store.ResetForRetry(ctx, item.ID); err != nil {
			r.logger.Error("requeue after cancel failed", logging.Error(err))
		}
		r.hub.Publish(progress.Event{
			ItemID:   item.ID,
			Stage:    string(library.StageQueued),
			Status:   string(item.Status),
			Terminal: true,
		})
		r.logger.Info("run canceled", logging.Int64(logging.FieldItemID, item.ID))
	default:
		outcome = "error"
		if err := r.store.SetError(ctx, item.ID, runErr.Error()); err != nil {
			r.logger.Error("persist failure failed", logging.Error(err))
		}
		item.SetFailed(runErr.Error())
		r.hub.Publish(progress.EventFromItem(item))
		r.logger.Error("run failed",
			logging.Int64(logging.FieldItemID, item.ID),
			logging.Error(runErr),
		)
	}

	r.mu.Lock()
	delete(r.running, item.ID)
	r.mu.Unlock()

	r.metrics.runFinished(outcome)
	run.err = runErr
	close(run.done)
}

// process walks the item through the stage machine until it parks in a
// terminal stage. Each transition is persisted before the next stage runs.
func (r *Runner) process(ctx context.Context, item *library.Item) error {
	for !item.Stage.IsTerminal() {
		if err := ctx.Err(); err != nil {
			return err
		}

		started := time.Now()
		stage := item.Stage
		switch stage {
		case library.StageQueued:
			if err := r.advance(ctx, item, library.StageExtracting); err != nil {
				return err
			}
		case library.StageExtracting:
			if err := r.runExtraction(ctx, item); err != nil {
				return err
			}
			next := library.StageGenerating
			if item.CleanupRequested && r.cleaner != nil && r.cleaner.Available(ctx) {
				next = library.StageCleaning
			}
			if err := r.advance(ctx, item, next); err != nil {
				return err
			}
		case library.StageCleaning:
			// Cleanup is best effort: failures fall through to synthesis
			// with the raw text.
			r.runCleanup(ctx, item)
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := r.advance(ctx, item, library.StageGenerating); err != nil {
				return err
			}
		case library.StageGenerating:
			if err := r.runSynthesis(ctx, item); err != nil {
				return err
			}
			if err := r.advance(ctx, item, library.StageReady); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unexpected stage %s", ErrInvalidTransition, stage)
		}
		r.metrics.observeStage(string(stage), time.Since(started).Seconds())
	}
	return nil
}

func (r *Runner) advance(ctx context.Context, item *library.Item, to library.Stage) error {
	if err := Transition(item, to); err != nil {
		return err
	}
	if err := r.store.Update(ctx, item); err != nil {
		return err
	}
	if !to.IsTerminal() {
		r.hub.Publish(progress.EventFromItem(item))
	}
	r.logger.Info("stage transition",
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String(logging.FieldStage, string(to)),
	)
	return nil
}

func (r *Runner) runExtraction(ctx context.Context, item *library.Item) error {
	if item.RawTextPath != "" {
		// Pre-seeded text or a retry that already extracted.
		return nil
	}

	r.reportProgress(item, 0, 0, "Extracting content")

	title, text, err := r.extractor.Extract(ctx, item)
	if err != nil {
		return fmt.Errorf("extraction: %w", err)
	}

	if item.ContentHash == "" {
		item.ContentHash = ContentHash(text)
	}
	path := RawTextPath(r.cfg, item.ContentHash)
	if err := WriteText(path, text); err != nil {
		return fmt.Errorf("extraction: %w", err)
	}
	item.RawTextPath = path
	if title != "" {
		item.Title = title
	}
	return nil
}

func (r *Runner) runCleanup(ctx context.Context, item *library.Item) {
	text, err := ReadText(item.RawTextPath)
	if err != nil {
		r.logger.Warn("cleanup skipped: raw text unreadable",
			logging.Int64(logging.FieldItemID, item.ID),
			logging.Error(err),
		)
		return
	}

	cleaned, err := r.cleaner.Clean(ctx, text, func(current, total int, status string) {
		r.reportProgress(item, current, total, status)
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.logger.Warn("cleanup failed, narrating raw text",
			logging.Int64(logging.FieldItemID, item.ID),
			logging.Error(err),
		)
		return
	}
	if cleaned == "" {
		r.logger.Warn("cleanup returned empty text, narrating raw text",
			logging.Int64(logging.FieldItemID, item.ID),
		)
		return
	}

	path := CleanedTextPath(r.cfg, item.ContentHash)
	if err := WriteText(path, cleaned); err != nil {
		r.logger.Warn("cleanup artifact not written, narrating raw text",
			logging.Int64(logging.FieldItemID, item.ID),
			logging.Error(err),
		)
		return
	}
	item.CleanedTextPath = path
	item.WasCleaned = true
}

func (r *Runner) runSynthesis(ctx context.Context, item *library.Item) error {
	text, err := ReadText(item.TextPath())
	if err != nil {
		return fmt.Errorf("synthesis: %w", err)
	}
	if item.Voice == "" {
		item.Voice = r.cfg.TTS.DefaultVoice
	}
	if item.ContentHash == "" {
		item.ContentHash = ContentHash(text)
	}

	path := AudioPath(r.cfg, item.ContentHash, item.Voice)
	err = r.synth.Synthesize(ctx, text, item.Voice, path, func(current, total int, status string) {
		r.reportProgress(item, current, total, status)
	})
	if err != nil {
		return fmt.Errorf("synthesis: %w", err)
	}
	item.AudioPath = path
	return nil
}

// reportProgress persists and broadcasts stage progress. Failures to
// persist are logged and dropped so slow storage cannot stall the run.
func (r *Runner) reportProgress(item *library.Item, current, total int, status string) {
	percent := 0.0
	if total > 0 {
		percent = float64(current) / float64(total) * 100
	}
	item.SetProgress(status, percent)

	if err := r.store.UpdateProgress(context.Background(), item.ID, status, percent); err != nil {
		r.logger.Warn("progress not persisted",
			logging.Int64(logging.FieldItemID, item.ID),
			logging.Error(err),
		)
	}
	r.hub.Publish(progress.EventFromItem(item))
}
