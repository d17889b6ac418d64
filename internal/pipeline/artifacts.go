package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"outloud/internal/config"
)

// ContentHash derives the stable artifact key for a piece of text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}

// RawTextPath returns the extraction artifact location for a content hash.
func RawTextPath(cfg *config.Config, hash string) string {
	return filepath.Join(cfg.Paths.TextsDir, fmt.Sprintf("%s_raw.txt", hash))
}

// CleanedTextPath returns the cleanup artifact location for a content hash.
func CleanedTextPath(cfg *config.Config, hash string) string {
	return filepath.Join(cfg.Paths.TextsDir, fmt.Sprintf("%s_cleaned.txt", hash))
}

// AudioPath returns the synthesis artifact location for a hash and voice.
func AudioPath(cfg *config.Config, hash, voice string) string {
	return filepath.Join(cfg.Paths.AudioDir, fmt.Sprintf("%s_%s.mp3", hash, voice))
}

// WriteText persists a text artifact, creating parent directories as needed.
func WriteText(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create text directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write text artifact: %w", err)
	}
	return nil
}

// ReadText loads a text artifact.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read text artifact: %w", err)
	}
	return string(data), nil
}
