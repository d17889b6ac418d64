package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCleanup()
	c.normalizeTTS()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.TextsDir, err = expandPath(c.Paths.TextsDir); err != nil {
		return fmt.Errorf("paths.texts_dir: %w", err)
	}
	if c.Paths.AudioDir, err = expandPath(c.Paths.AudioDir); err != nil {
		return fmt.Errorf("paths.audio_dir: %w", err)
	}
	if c.Paths.UploadsDir, err = expandPath(c.Paths.UploadsDir); err != nil {
		return fmt.Errorf("paths.uploads_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeCleanup() {
	if c.Cleanup.BaseURL == "" {
		if value, ok := os.LookupEnv("OLLAMA_HOST"); ok {
			c.Cleanup.BaseURL = value
		}
	}
	c.Cleanup.BaseURL = strings.TrimRight(strings.TrimSpace(c.Cleanup.BaseURL), "/")
	if c.Cleanup.BaseURL == "" {
		c.Cleanup.BaseURL = defaultOllamaBaseURL
	}
	if strings.TrimSpace(c.Cleanup.Model) == "" {
		c.Cleanup.Model = defaultOllamaModel
	}
	if c.Cleanup.ChunkChars <= 0 {
		c.Cleanup.ChunkChars = defaultCleanupChunkChars
	}
	if c.Cleanup.TimeoutSeconds <= 0 {
		c.Cleanup.TimeoutSeconds = defaultCleanupTimeout
	}
}

func (c *Config) normalizeTTS() {
	c.TTS.BaseURL = strings.TrimRight(strings.TrimSpace(c.TTS.BaseURL), "/")
	if c.TTS.BaseURL == "" {
		c.TTS.BaseURL = defaultTTSBaseURL
	}
	if strings.TrimSpace(c.TTS.DefaultVoice) == "" {
		c.TTS.DefaultVoice = defaultVoice
	}
	if c.TTS.ChunkChars <= 0 {
		c.TTS.ChunkChars = defaultTTSChunkChars
	}
	if c.TTS.TimeoutSeconds <= 0 {
		c.TTS.TimeoutSeconds = defaultTTSTimeout
	}
	if c.TTS.MinFreeMB < 0 {
		c.TTS.MinFreeMB = 0
	}
}

func (c *Config) normalizeWorkflow() {
	if strings.TrimSpace(c.Workflow.InboxScanSchedule) == "" {
		c.Workflow.InboxScanSchedule = defaultInboxSchedule
	}
	if strings.TrimSpace(c.Workflow.ArtifactGCSchedule) == "" {
		c.Workflow.ArtifactGCSchedule = defaultGCSchedule
	}
	if c.Workflow.ShutdownGraceSecs <= 0 {
		c.Workflow.ShutdownGraceSecs = defaultShutdownGrace
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
