// Package daemon ties the store, pipeline, janitor, and API server together
// into the long-running outloud process.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"outloud/internal/config"
	"outloud/internal/janitor"
	"outloud/internal/library"
	"outloud/internal/logging"
	"outloud/internal/pipeline"
	"outloud/internal/progress"
)

// Daemon coordinates background processing and enforces single-instance
// execution via a lock file.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *library.Store
	runner  *pipeline.Runner
	hub     *progress.Hub
	service *Service
	janitor *janitor.Janitor

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New constructs a daemon from initialized dependencies.
func New(cfg *config.Config, store *library.Store, runner *pipeline.Runner, hub *progress.Hub, service *Service, jan *janitor.Janitor, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || runner == nil || service == nil {
		return nil, errors.New("daemon requires config, store, runner, and service")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "outloud.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger.With(logging.String(logging.FieldComponent, "daemon")),
		store:    store,
		runner:   runner,
		hub:      hub,
		service:  service,
		janitor:  jan,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Service returns the command layer backing the API and CLI.
func (d *Daemon) Service() *Service {
	return d.service
}

// Start acquires the instance lock, recovers interrupted work, and begins
// background processing.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another outloud daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	if err := d.recover(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		return fmt.Errorf("recover interrupted work: %w", err)
	}

	if d.janitor != nil {
		if err := d.janitor.Start(d.ctx); err != nil {
			_ = d.lock.Unlock()
			d.cancel()
			return fmt.Errorf("start janitor: %w", err)
		}
		go func() {
			if err := d.janitor.ScanInbox(d.ctx); err != nil && !errors.Is(err, context.Canceled) {
				d.logger.Error("initial inbox scan failed", logging.Error(err))
			}
		}()
	}

	d.running.Store(true)
	d.logger.Info("outloud daemon started", slog.String("lock", d.lockPath))
	return nil
}

// recover requeues items stranded in an active stage by a previous unclean
// shutdown and, when configured, resumes everything that still needs work.
func (d *Daemon) recover(ctx context.Context) error {
	reset, err := d.store.ResetStuckProcessing(ctx)
	if err != nil {
		return err
	}
	if reset > 0 {
		d.logger.Info("requeued interrupted items", slog.Int("count", reset))
	}

	if !d.cfg.Workflow.ResumePendingOnBoot {
		return nil
	}
	items, err := d.store.ListUnfinished(ctx)
	if err != nil {
		return err
	}
	for _, item := range items {
		if _, err := d.runner.Submit(ctx, item.ID); err != nil {
			d.logger.Error("resume failed",
				logging.Int64(logging.FieldItemID, item.ID),
				logging.Error(err),
			)
		}
	}
	if len(items) > 0 {
		d.logger.Info("resumed pending items", slog.Int("count", len(items)))
	}
	return nil
}

// Stop halts background processing, bounded by the configured shutdown
// grace period, and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.janitor != nil {
		d.janitor.Stop()
	}

	grace := time.Duration(d.cfg.Workflow.ShutdownGraceSecs) * time.Second
	if grace <= 0 {
		grace = 10 * time.Second
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := d.runner.Stop(stopCtx); err != nil {
		d.logger.Warn("runs did not stop within grace period", logging.Error(err))
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.hub != nil {
		d.hub.Close()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("outloud daemon stopped")
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Running reports whether Start has completed successfully.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Status summarizes daemon runtime state.
type Status struct {
	Running      bool
	DBPath       string
	LockFilePath string
	Stages       map[library.Stage]int
}

// Status reports the daemon's view of the library.
func (d *Daemon) Status(ctx context.Context) (Status, error) {
	stats, err := d.store.Stats(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Running:      d.running.Load(),
		DBPath:       d.store.Path(),
		LockFilePath: d.lockPath,
		Stages:       stats,
	}, nil
}
