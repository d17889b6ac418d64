package config

const (
	defaultDataDir           = "~/.local/share/outloud"
	defaultTextsDir          = "~/.local/share/outloud/texts"
	defaultAudioDir          = "~/.local/share/outloud/audio"
	defaultUploadsDir        = "~/.local/share/outloud/uploads"
	defaultLogDir            = "~/.local/share/outloud/logs"
	defaultAPIBind           = "127.0.0.1:5001"
	defaultOllamaBaseURL     = "http://localhost:11434"
	defaultOllamaModel       = "llama3.2:1b"
	defaultCleanupChunkChars = 2000
	defaultCleanupTimeout    = 300
	defaultTTSBaseURL        = "http://localhost:8880"
	defaultVoice             = "af_heart"
	defaultTTSChunkChars     = 250
	defaultTTSTimeout        = 120
	defaultMinFreeMB         = 256
	defaultInboxSchedule     = "@every 2m"
	defaultGCSchedule        = "@every 1h"
	defaultShutdownGrace     = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			TextsDir:   defaultTextsDir,
			AudioDir:   defaultAudioDir,
			UploadsDir: defaultUploadsDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Cleanup: Cleanup{
			Enabled:        true,
			BaseURL:        defaultOllamaBaseURL,
			Model:          defaultOllamaModel,
			ChunkChars:     defaultCleanupChunkChars,
			TimeoutSeconds: defaultCleanupTimeout,
		},
		TTS: TTS{
			BaseURL:        defaultTTSBaseURL,
			DefaultVoice:   defaultVoice,
			ChunkChars:     defaultTTSChunkChars,
			TimeoutSeconds: defaultTTSTimeout,
			MinFreeMB:      defaultMinFreeMB,
		},
		Workflow: Workflow{
			InboxScanSchedule:   defaultInboxSchedule,
			ArtifactGCSchedule:  defaultGCSchedule,
			ShutdownGraceSecs:   defaultShutdownGrace,
			ResumePendingOnBoot: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
