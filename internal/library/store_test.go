package library_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"outloud/internal/library"
	"outloud/internal/testsupport"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.NewItem(ctx, library.NewItemParams{
		Title:       "Sample Article",
		SourceType:  library.SourceURL,
		SourcePath:  "https://example.com/post",
		Voice:       "af_heart",
		ContentHash: "hash-1",
	})
	if err != nil {
		t.Fatalf("NewItem failed: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected item ID to be assigned")
	}
	if item.Stage != library.StageQueued {
		t.Fatalf("expected queued stage, got %s", item.Stage)
	}
	if item.Status != library.StatusPending {
		t.Fatalf("expected pending status, got %s", item.Status)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Title != "Sample Article" {
		t.Fatalf("unexpected fetched item: %#v", fetched)
	}

	found, err := store.FindByHash(ctx, "hash-1")
	if err != nil {
		t.Fatalf("FindByHash failed: %v", err)
	}
	if found == nil || found.ID != item.ID {
		t.Fatalf("expected to find inserted item, got %#v", found)
	}
}

func TestGetByIDUnknownReturnsNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	_, err := store.GetByID(context.Background(), 9999)
	if !errors.Is(err, library.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewItem(t, store, "Roundtrip")

	item.Stage = library.StageGenerating
	item.RawTextPath = "/tmp/raw.txt"
	item.CleanedTextPath = "/tmp/clean.txt"
	item.WasCleaned = true
	item.SetProgress("Generating audio: 2/5 chunks", 40)
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Stage != library.StageGenerating {
		t.Fatalf("stage not persisted: %s", fetched.Stage)
	}
	if !fetched.WasCleaned {
		t.Fatal("was_cleaned not persisted")
	}
	if fetched.ProgressMessage != "Generating audio: 2/5 chunks" || fetched.ProgressPercent != 40 {
		t.Fatalf("progress not persisted: %q %.0f", fetched.ProgressMessage, fetched.ProgressPercent)
	}
	if fetched.TextPath() != "/tmp/clean.txt" {
		t.Fatalf("expected cleaned text preferred, got %s", fetched.TextPath())
	}
}

func TestListFiltersByStage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		testsupport.NewItem(t, store, fmt.Sprintf("Item-%d", i))
	}
	ready := testsupport.NewItem(t, store, "Done")
	ready.Stage = library.StageReady
	ready.AudioPath = "/tmp/done.mp3"
	if err := store.Update(ctx, ready); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	queued, err := store.List(ctx, library.StageQueued)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(queued) != 3 {
		t.Fatalf("expected 3 queued items, got %d", len(queued))
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 items, got %d", len(all))
	}

	unfinished, err := store.ListUnfinished(ctx)
	if err != nil {
		t.Fatalf("ListUnfinished failed: %v", err)
	}
	if len(unfinished) != 3 {
		t.Fatalf("expected 3 unfinished items, got %d", len(unfinished))
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	var stuck []int64
	for i, stage := range []library.Stage{library.StageExtracting, library.StageCleaning, library.StageGenerating} {
		item := testsupport.NewItem(t, store, fmt.Sprintf("Stuck-%d", i))
		item.Stage = stage
		item.SetProgress("working", 50)
		if err := store.Update(ctx, item); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		stuck = append(stuck, item.ID)
	}
	untouched := testsupport.NewItem(t, store, "Failed")
	untouched.SetFailed("boom")
	if err := store.Update(ctx, untouched); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	reset, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if reset != 3 {
		t.Fatalf("expected 3 resets, got %d", reset)
	}
	for _, id := range stuck {
		item, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if item.Stage != library.StageQueued {
			t.Fatalf("item %d not requeued: %s", id, item.Stage)
		}
		if item.ProgressMessage != "" || item.ProgressPercent != 0 {
			t.Fatalf("item %d kept stale progress", id)
		}
	}
	failed, err := store.GetByID(ctx, untouched.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if failed.Stage != library.StageError {
		t.Fatalf("error item should stay put, got %s", failed.Stage)
	}
}

func TestResetForRetryClearsError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewItem(t, store, "Retry")
	item.SetFailed("extraction exploded")
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if err := store.ResetForRetry(ctx, item.ID); err != nil {
		t.Fatalf("ResetForRetry failed: %v", err)
	}
	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Stage != library.StageQueued {
		t.Fatalf("expected queued, got %s", fetched.Stage)
	}
	if fetched.ErrorMessage != "" {
		t.Fatalf("error message survived retry: %q", fetched.ErrorMessage)
	}
}

func TestResetForCleaningKeepsWasCleaned(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewItem(t, store, "Reclean")
	item.Stage = library.StageReady
	item.RawTextPath = "/tmp/raw.txt"
	item.CleanedTextPath = "/tmp/clean.txt"
	item.AudioPath = "/tmp/audio.mp3"
	item.WasCleaned = true
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if err := store.ResetForCleaning(ctx, item.ID); err != nil {
		t.Fatalf("ResetForCleaning failed: %v", err)
	}
	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Stage != library.StageCleaning {
		t.Fatalf("expected cleaning, got %s", fetched.Stage)
	}
	if fetched.RawTextPath == "" {
		t.Fatal("raw text artifact must survive re-clean")
	}
	if fetched.CleanedTextPath != "" || fetched.AudioPath != "" {
		t.Fatal("cleaned text and audio should be discarded")
	}
	if !fetched.WasCleaned {
		t.Fatal("was_cleaned must not be reset")
	}
}

func TestResetForRegenerateSwitchesVoice(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewItem(t, store, "Regen")
	item.Stage = library.StageReady
	item.RawTextPath = "/tmp/raw.txt"
	item.AudioPath = "/tmp/audio.mp3"
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if err := store.ResetForRegenerate(ctx, item.ID, "am_adam"); err != nil {
		t.Fatalf("ResetForRegenerate failed: %v", err)
	}
	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Stage != library.StageGenerating {
		t.Fatalf("expected generating, got %s", fetched.Stage)
	}
	if fetched.Voice != "am_adam" {
		t.Fatalf("voice not updated: %s", fetched.Voice)
	}
	if fetched.AudioPath != "" {
		t.Fatal("stale audio should be discarded")
	}
	if fetched.RawTextPath == "" {
		t.Fatal("text artifact must survive regeneration")
	}
}

func TestMarkCompletedRequiresAudio(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewItem(t, store, "Triage")
	if err := store.MarkCompleted(ctx, item.ID); !errors.Is(err, library.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}

	item.Stage = library.StageReady
	item.AudioPath = "/tmp/audio.mp3"
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := store.MarkCompleted(ctx, item.ID); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != library.StatusCompleted {
		t.Fatalf("expected completed status, got %s", fetched.Status)
	}
	if fetched.CompletedAt == nil {
		t.Fatal("expected completed_at to be set")
	}

	if err := store.MarkPending(ctx, item.ID); err != nil {
		t.Fatalf("MarkPending failed: %v", err)
	}
	fetched, err = store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != library.StatusPending || fetched.CompletedAt != nil {
		t.Fatalf("expected pending status, got %#v", fetched)
	}
}

func TestRemove(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewItem(t, store, "Doomed")

	removed, err := store.Remove(ctx, item.ID)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !removed {
		t.Fatal("expected removal")
	}
	removed, err = store.Remove(ctx, item.ID)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if removed {
		t.Fatal("second removal should be a no-op")
	}
}

func TestValidateInvariants(t *testing.T) {
	valid := library.Item{
		Stage:  library.StageQueued,
		Status: library.StatusPending,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid item rejected: %v", err)
	}

	cases := []struct {
		name string
		item library.Item
	}{
		{"error stage without message", library.Item{Stage: library.StageError, Status: library.StatusPending}},
		{"error message outside error stage", library.Item{Stage: library.StageQueued, Status: library.StatusPending, ErrorMessage: "boom"}},
		{"progress outside active stage", library.Item{Stage: library.StageQueued, Status: library.StatusPending, ProgressMessage: "working"}},
		{"completed without ready stage", library.Item{Stage: library.StageQueued, Status: library.StatusCompleted}},
		{"completed without audio", library.Item{Stage: library.StageReady, Status: library.StatusCompleted}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.item.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
