package daemon_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"outloud/internal/config"
	"outloud/internal/daemon"
	"outloud/internal/library"
	"outloud/internal/pipeline"
	"outloud/internal/progress"
	"outloud/internal/speech"
	"outloud/internal/testsupport"
)

type blockingExtractor struct {
	release chan struct{}
}

func (e *blockingExtractor) Extract(ctx context.Context, item *library.Item) (string, string, error) {
	if e.release != nil {
		select {
		case <-e.release:
		case <-ctx.Done():
			return "", "", ctx.Err()
		}
	}
	return "Extracted Title", "extracted body text", nil
}

type writingSynth struct{}

func (writingSynth) Synthesize(ctx context.Context, text, voice, outputPath string, fn pipeline.ProgressFunc) error {
	return pipeline.WriteText(outputPath, "mp3")
}

type serviceHarness struct {
	cfg     *config.Config
	store   *library.Store
	runner  *pipeline.Runner
	service *daemon.Service
	release chan struct{}
}

func newServiceHarness(t *testing.T) *serviceHarness {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	hub := progress.NewHub(64)
	t.Cleanup(hub.Close)

	release := make(chan struct{})
	runner := pipeline.NewRunner(pipeline.RunnerOptions{
		Config:      cfg,
		Store:       store,
		Hub:         hub,
		Extractor:   &blockingExtractor{release: release},
		Synthesizer: writingSynth{},
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = runner.Stop(ctx)
	})

	return &serviceHarness{
		cfg:     cfg,
		store:   store,
		runner:  runner,
		service: daemon.NewService(cfg, store, runner, hub, nil, nil),
		release: release,
	}
}

func (h *serviceHarness) waitForStage(t *testing.T, id int64, stage library.Stage) *library.Item {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		item, err := h.store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if item.Stage == stage {
			return item
		}
		if time.Now().After(deadline) {
			t.Fatalf("item %d never reached %s, currently %s", id, stage, item.Stage)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestAddTextDeduplicatesByHash(t *testing.T) {
	h := newServiceHarness(t)
	close(h.release)
	ctx := context.Background()

	first, err := h.service.AddText(ctx, "Title", "the same pasted body", "", false)
	if err != nil {
		t.Fatalf("AddText failed: %v", err)
	}
	second, err := h.service.AddText(ctx, "Other Title", "the same pasted body", "", false)
	if err != nil {
		t.Fatalf("second AddText failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected dedupe to return item %d, got %d", first.ID, second.ID)
	}

	items, err := h.service.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected a single item, got %d", len(items))
	}
}

func TestAddTextRejectsEmptyBody(t *testing.T) {
	h := newServiceHarness(t)
	if _, err := h.service.AddText(context.Background(), "Title", "   ", "", false); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestAddURLRejectsNonHTTPScheme(t *testing.T) {
	h := newServiceHarness(t)
	if _, err := h.service.AddURL(context.Background(), "ftp://example.com/a", "", false); err == nil {
		t.Fatal("expected error for non-http url")
	}
}

func TestAddRejectsUnknownVoice(t *testing.T) {
	h := newServiceHarness(t)
	_, err := h.service.AddText(context.Background(), "Title", "some body", "not_a_voice", false)
	if !errors.Is(err, speech.ErrUnknownVoice) {
		t.Fatalf("expected ErrUnknownVoice, got %v", err)
	}
}

func TestRetryOnlyFromErrorOrQueued(t *testing.T) {
	h := newServiceHarness(t)
	close(h.release)
	ctx := context.Background()

	item, err := h.service.AddText(ctx, "Title", "body for retry validation", "", false)
	if err != nil {
		t.Fatalf("AddText failed: %v", err)
	}
	h.waitForStage(t, item.ID, library.StageReady)

	if _, err := h.service.Retry(ctx, item.ID); !errors.Is(err, pipeline.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for ready item, got %v", err)
	}

	if err := h.store.SetError(ctx, item.ID, "synthesis exploded"); err != nil {
		t.Fatalf("SetError failed: %v", err)
	}
	retried, err := h.service.Retry(ctx, item.ID)
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if retried.ErrorMessage != "" {
		t.Fatalf("expected error message cleared, got %q", retried.ErrorMessage)
	}
	h.waitForStage(t, item.ID, library.StageReady)
}

func TestRecleanAndRegenerateRejectBusyItems(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	item, err := h.service.AddText(ctx, "Title", "body that blocks in extraction", "", false)
	if err != nil {
		t.Fatalf("AddText failed: %v", err)
	}
	// Extraction is parked on the release channel, so the run is in flight.
	if _, err := h.service.Reclean(ctx, item.ID); !errors.Is(err, pipeline.ErrBusy) {
		t.Fatalf("expected ErrBusy from Reclean, got %v", err)
	}
	if _, err := h.service.Regenerate(ctx, item.ID, ""); !errors.Is(err, pipeline.ErrBusy) {
		t.Fatalf("expected ErrBusy from Regenerate, got %v", err)
	}

	close(h.release)
	h.waitForStage(t, item.ID, library.StageReady)
}

func TestRegenerateValidatesVoice(t *testing.T) {
	h := newServiceHarness(t)
	close(h.release)
	ctx := context.Background()

	item, err := h.service.AddText(ctx, "Title", "body for regenerate voice check", "", false)
	if err != nil {
		t.Fatalf("AddText failed: %v", err)
	}
	h.waitForStage(t, item.ID, library.StageReady)

	if _, err := h.service.Regenerate(ctx, item.ID, "not_a_voice"); !errors.Is(err, speech.ErrUnknownVoice) {
		t.Fatalf("expected ErrUnknownVoice, got %v", err)
	}
}

func TestCancelWithoutRunFails(t *testing.T) {
	h := newServiceHarness(t)
	close(h.release)
	ctx := context.Background()

	item, err := h.service.AddText(ctx, "Title", "body for cancel check", "", false)
	if err != nil {
		t.Fatalf("AddText failed: %v", err)
	}
	h.waitForStage(t, item.ID, library.StageReady)

	if err := h.service.Cancel(ctx, item.ID); err == nil {
		t.Fatal("expected error cancelling finished item")
	}
}

func TestDeleteRemovesArtifacts(t *testing.T) {
	h := newServiceHarness(t)
	close(h.release)
	ctx := context.Background()

	item, err := h.service.AddText(ctx, "Title", "body destined for deletion", "", false)
	if err != nil {
		t.Fatalf("AddText failed: %v", err)
	}
	final := h.waitForStage(t, item.ID, library.StageReady)
	if final.RawTextPath == "" || final.AudioPath == "" {
		t.Fatalf("expected artifacts before delete: %+v", final)
	}

	if err := h.service.Delete(ctx, item.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	for _, path := range []string{final.RawTextPath, final.AudioPath} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("artifact %s still exists", path)
		}
	}
	if _, err := h.service.Get(ctx, item.ID); !errors.Is(err, library.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestDeleteCancelsActiveRun(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	item, err := h.service.AddText(ctx, "Title", "body parked in extraction during delete", "", false)
	if err != nil {
		t.Fatalf("AddText failed: %v", err)
	}
	if !h.runner.IsRunning(item.ID) {
		t.Fatal("expected an in-flight run")
	}

	if err := h.service.Delete(ctx, item.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if h.runner.IsRunning(item.ID) {
		t.Fatal("run guard not released after delete")
	}
	if _, err := h.service.Get(ctx, item.ID); !errors.Is(err, library.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := h.runner.Submit(ctx, item.ID); !errors.Is(err, library.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on submit after delete, got %v", err)
	}
}

func TestDeleteRemovesUploadedSource(t *testing.T) {
	h := newServiceHarness(t)
	close(h.release)
	ctx := context.Background()

	upload := filepath.Join(h.cfg.Paths.UploadsDir, "essay.txt")
	if err := os.WriteFile(upload, []byte("uploaded essay body"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	item, err := h.service.AddFile(ctx, upload, "", false)
	if err != nil {
		t.Fatalf("AddFile failed: %v", err)
	}
	h.waitForStage(t, item.ID, library.StageReady)

	if err := h.service.Delete(ctx, item.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(upload); !os.IsNotExist(err) {
		t.Fatal("uploaded source file still exists")
	}
}

func TestWatchReturnsSnapshotAndSubscription(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()

	item, err := h.service.AddText(ctx, "Title", "body watched over the hub", "", false)
	if err != nil {
		t.Fatalf("AddText failed: %v", err)
	}

	snapshot, sub, err := h.service.Watch(ctx, item.ID)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer sub.Close()
	if snapshot.ItemID != item.ID {
		t.Fatalf("snapshot for wrong item: %d", snapshot.ItemID)
	}

	close(h.release)
	deadline := time.After(5 * time.Second)
	for {
		select {
		case evt, ok := <-sub.Events():
			if !ok {
				t.Fatal("subscription closed before terminal event")
			}
			if evt.Terminal {
				if evt.Stage != string(library.StageReady) {
					t.Fatalf("expected ready terminal event, got %s", evt.Stage)
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for terminal event")
		}
	}
}
