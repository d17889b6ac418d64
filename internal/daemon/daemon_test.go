package daemon_test

import (
	"context"
	"testing"
	"time"

	"outloud/internal/daemon"
	"outloud/internal/library"
	"outloud/internal/progress"
	"outloud/internal/testsupport"
)

func newDaemon(t *testing.T, h *serviceHarness) *daemon.Daemon {
	t.Helper()
	hub := progress.NewHub(64)
	t.Cleanup(hub.Close)

	d, err := daemon.New(h.cfg, h.store, h.runner, hub, h.service, nil, nil)
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	return d
}

func TestDaemonStartStop(t *testing.T) {
	h := newServiceHarness(t)
	close(h.release)
	d := newDaemon(t, h)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !d.Running() {
		t.Fatal("expected running after Start")
	}

	status, err := d.Status(context.Background())
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !status.Running {
		t.Fatal("status should report running")
	}

	d.Stop()
	if d.Running() {
		t.Fatal("expected stopped after Stop")
	}
}

func TestDaemonLockRejectsSecondInstance(t *testing.T) {
	h := newServiceHarness(t)
	close(h.release)

	first := newDaemon(t, h)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	defer first.Stop()

	second := newDaemon(t, h)
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second instance to fail to acquire the lock")
	}
}

func TestDaemonRecoversInterruptedItems(t *testing.T) {
	h := newServiceHarness(t)
	close(h.release)
	ctx := context.Background()

	// Simulate a crash mid-synthesis: an active stage persisted with no run.
	item := testsupport.NewItem(t, h.store, "Interrupted")
	if err := h.store.SetStage(ctx, item.ID, library.StageGenerating); err != nil {
		t.Fatalf("SetStage failed: %v", err)
	}

	h.cfg.Workflow.ResumePendingOnBoot = true
	d := newDaemon(t, h)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer d.Stop()

	h.waitForStage(t, item.ID, library.StageReady)
}

func TestDaemonStartResetsWithoutResume(t *testing.T) {
	h := newServiceHarness(t)
	close(h.release)
	ctx := context.Background()

	item := testsupport.NewItem(t, h.store, "Stranded")
	if err := h.store.SetStage(ctx, item.ID, library.StageExtracting); err != nil {
		t.Fatalf("SetStage failed: %v", err)
	}

	h.cfg.Workflow.ResumePendingOnBoot = false
	d := newDaemon(t, h)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer d.Stop()

	// The stranded stage is reset to queued but nothing is resubmitted.
	deadline := time.Now().Add(2 * time.Second)
	for {
		got, err := h.store.GetByID(ctx, item.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if got.Stage == library.StageQueued {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected queued, got %s", got.Stage)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if h.runner.IsRunning(item.ID) {
		t.Fatal("item should not be resubmitted when resume is disabled")
	}
}
