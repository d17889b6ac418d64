package testsupport

import (
	"path/filepath"
	"testing"

	"outloud/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.TextsDir = filepath.Join(base, "texts")
	cfg.Paths.AudioDir = filepath.Join(base, "audio")
	cfg.Paths.UploadsDir = filepath.Join(base, "uploads")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Cleanup.Enabled = false

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithCleanupEnabled turns the narration-cleanup stage on for tests that
// exercise it against a stub server.
func WithCleanupEnabled(baseURL string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Cleanup.Enabled = true
		if baseURL != "" {
			cfg.Cleanup.BaseURL = baseURL
		}
	}
}

// WithTTSBaseURL points synthesis at a stub server.
func WithTTSBaseURL(baseURL string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.TTS.BaseURL = baseURL
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
