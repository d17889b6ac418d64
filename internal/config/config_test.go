package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"outloud/internal/config"
)

func TestLoadDefaultsExpandPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("OLLAMA_HOST", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "outloud")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.TextsDir != filepath.Join(wantData, "texts") {
		t.Fatalf("unexpected texts dir: %q", cfg.Paths.TextsDir)
	}
	if cfg.Paths.APIBind != "127.0.0.1:5001" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if !cfg.Cleanup.Enabled {
		t.Fatal("expected cleanup enabled by default")
	}
	if cfg.TTS.DefaultVoice != "af_heart" {
		t.Fatalf("unexpected default voice: %q", cfg.TTS.DefaultVoice)
	}
	if cfg.TTS.BaseURL != "http://localhost:8880" {
		t.Fatalf("unexpected tts base url: %q", cfg.TTS.BaseURL)
	}
	if !cfg.Workflow.ResumePendingOnBoot {
		t.Fatal("expected resume-on-boot enabled by default")
	}
}

func TestLoadExplicitFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "outloud.toml")
	body := strings.Join([]string{
		"[paths]",
		`data_dir = "` + filepath.Join(dir, "data") + `"`,
		`api_bind = "127.0.0.1:9999"`,
		"[tts]",
		`default_voice = "bm_george"`,
		"[cleanup]",
		"enabled = false",
		"[logging]",
		`format = "json"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected %q to resolve, got %q exists=%v", path, resolved, exists)
	}
	if cfg.Paths.APIBind != "127.0.0.1:9999" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.TTS.DefaultVoice != "bm_george" {
		t.Fatalf("unexpected voice: %q", cfg.TTS.DefaultVoice)
	}
	if cfg.Cleanup.Enabled {
		t.Fatal("expected cleanup disabled")
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
	// Untouched sections keep defaults.
	if cfg.Cleanup.Model == "" || cfg.TTS.ChunkChars == 0 {
		t.Fatal("expected defaults to backfill unset fields")
	}
}

func TestLoadRejectsBadLogFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "outloud.toml")
	if err := os.WriteFile(path, []byte("[logging]\nformat = \"xml\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for bad log format")
	}
}

func TestEnsureDirectoriesCreatesTree(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.TextsDir = filepath.Join(base, "texts")
	cfg.Paths.AudioDir = filepath.Join(base, "audio")
	cfg.Paths.UploadsDir = filepath.Join(base, "uploads")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.TextsDir, cfg.Paths.AudioDir, cfg.Paths.UploadsDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("directory %s missing: %v", dir, err)
		}
	}
}

func TestExpandPathHome(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	got, err := config.ExpandPath("~/audio")
	if err != nil {
		t.Fatalf("ExpandPath failed: %v", err)
	}
	if got != filepath.Join(tempHome, "audio") {
		t.Fatalf("unexpected expansion: %q", got)
	}
}
