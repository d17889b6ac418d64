// Package janitor runs the scheduled maintenance jobs: sweeping the uploads
// inbox for new documents and collecting orphaned artifacts.
package janitor

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"outloud/internal/config"
	"outloud/internal/extract"
	"outloud/internal/library"
	"outloud/internal/logging"
	"outloud/internal/pipeline"
)

// Submitter starts pipeline runs for newly discovered items.
type Submitter interface {
	Submit(ctx context.Context, itemID int64) (*pipeline.Run, error)
}

// Janitor owns the cron schedule for background maintenance.
type Janitor struct {
	cfg    *config.Config
	store  *library.Store
	submit Submitter
	logger *slog.Logger
	cron   *cron.Cron
}

// New constructs a Janitor; Start wires the schedules.
func New(cfg *config.Config, store *library.Store, submit Submitter, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Janitor{
		cfg:    cfg,
		store:  store,
		submit: submit,
		logger: logger.With(logging.String(logging.FieldComponent, "janitor")),
		cron:   cron.New(),
	}
}

// Start registers the maintenance jobs and begins the schedule.
func (j *Janitor) Start(ctx context.Context) error {
	if schedule := j.cfg.Workflow.InboxScanSchedule; schedule != "" {
		if _, err := j.cron.AddFunc(schedule, func() {
			if err := j.ScanInbox(ctx); err != nil {
				j.logger.Error("inbox scan failed", logging.Error(err))
			}
		}); err != nil {
			return err
		}
	}
	if schedule := j.cfg.Workflow.ArtifactGCSchedule; schedule != "" {
		if _, err := j.cron.AddFunc(schedule, func() {
			if err := j.CollectArtifacts(ctx); err != nil {
				j.logger.Error("artifact collection failed", logging.Error(err))
			}
		}); err != nil {
			return err
		}
	}
	j.cron.Start()
	return nil
}

// Stop halts the schedule and waits for running jobs to complete.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

var inboxExtensions = map[string]struct{}{
	".txt":      {},
	".pdf":      {},
	".md":       {},
	".markdown": {},
	".html":     {},
	".htm":      {},
}

// ScanInbox registers every supported document dropped into the uploads
// directory. Files already known by content hash are skipped, so re-scans
// and duplicate drops are harmless.
func (j *Janitor) ScanInbox(ctx context.Context) error {
	entries, err := os.ReadDir(j.cfg.Paths.UploadsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			continue
		}
		if _, ok := inboxExtensions[strings.ToLower(filepath.Ext(entry.Name()))]; !ok {
			continue
		}

		path := filepath.Join(j.cfg.Paths.UploadsDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			j.logger.Warn("unreadable upload skipped",
				slog.String("file", entry.Name()),
				logging.Error(err),
			)
			continue
		}
		hash := pipeline.ContentHash(string(data))

		existing, err := j.store.FindByHash(ctx, hash)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}

		item, err := j.store.NewItem(ctx, library.NewItemParams{
			Title:       extract.TitleFromFilename(entry.Name()),
			SourceType:  library.SourceDocument,
			SourcePath:  path,
			Voice:       j.cfg.TTS.DefaultVoice,
			ContentHash: hash,
		})
		if err != nil {
			return err
		}
		j.logger.Info("upload registered",
			logging.Int64(logging.FieldItemID, item.ID),
			slog.String("file", entry.Name()),
		)
		if j.submit != nil {
			if _, err := j.submit.Submit(ctx, item.ID); err != nil {
				j.logger.Error("submit for upload failed",
					logging.Int64(logging.FieldItemID, item.ID),
					logging.Error(err),
				)
			}
		}
	}
	return nil
}

// artifactGrace spares files an in-flight run has written but not yet
// persisted a reference to. Transitions persist within seconds, so an hour
// is generous.
const artifactGrace = time.Hour

// CollectArtifacts removes text and audio files no item references anymore.
// Files modified within the grace period are left alone so a sweep cannot
// race a running pipeline.
func (j *Janitor) CollectArtifacts(ctx context.Context) error {
	items, err := j.store.List(ctx)
	if err != nil {
		return err
	}
	referenced := make(map[string]struct{}, len(items)*3)
	for _, item := range items {
		for _, path := range []string{item.RawTextPath, item.CleanedTextPath, item.AudioPath} {
			if path != "" {
				referenced[path] = struct{}{}
			}
		}
	}

	removed := 0
	for _, dir := range []string{j.cfg.Paths.TextsDir, j.cfg.Paths.AudioDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if _, ok := referenced[path]; ok {
				continue
			}
			info, err := entry.Info()
			if err != nil || time.Since(info.ModTime()) < artifactGrace {
				continue
			}
			if err := os.Remove(path); err != nil {
				j.logger.Warn("orphan not removed",
					slog.String("file", entry.Name()),
					logging.Error(err),
				)
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		j.logger.Info("orphaned artifacts removed", slog.Int("count", removed))
	}
	return nil
}
