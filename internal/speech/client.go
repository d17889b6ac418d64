// Package speech turns narration text into MP3 audio via a local
// Kokoro-compatible synthesis server.
package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"outloud/internal/config"
	"outloud/internal/logging"
)

// ErrUnknownVoice is returned when synthesis is requested with a voice id
// outside the supported catalog.
var ErrUnknownVoice = errors.New("unknown voice")

// ProgressFunc receives chunk-level progress during synthesis.
type ProgressFunc func(current, total int, status string)

// Client talks to the synthesis server.
type Client struct {
	http       *resty.Client
	chunkChars int
	minFreeMB  int64
	logger     *slog.Logger
}

// NewClient builds a synthesis client from configuration.
func NewClient(cfg config.TTS, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	chunkChars := cfg.ChunkChars
	if chunkChars <= 0 {
		chunkChars = 250
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return r != nil && r.StatusCode() >= 500
		})

	return &Client{
		http:       httpClient,
		chunkChars: chunkChars,
		minFreeMB:  cfg.MinFreeMB,
		logger:     logger,
	}
}

// Available reports whether the synthesis server answers its voices endpoint.
func (c *Client) Available(ctx context.Context) bool {
	resp, err := c.http.R().SetContext(ctx).Get("/v1/audio/voices")
	if err != nil {
		return false
	}
	return resp.StatusCode() == 200
}

type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed"`
}

func (c *Client) synthesizeChunk(ctx context.Context, text, voice string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(speechRequest{
			Model:          "kokoro",
			Input:          text,
			Voice:          voice,
			ResponseFormat: "mp3",
			Speed:          1.0,
		}).
		Post("/v1/audio/speech")
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("synthesize: server returned %s", resp.Status())
	}
	return resp.Body(), nil
}

// Synthesize renders the full text to an MP3 file at outputPath, reporting
// chunk progress along the way.
func (c *Client) Synthesize(ctx context.Context, text, voice, outputPath string, progress ProgressFunc) error {
	if !ValidVoice(voice) {
		return fmt.Errorf("%w: %s", ErrUnknownVoice, voice)
	}
	if err := CheckFreeSpace(filepath.Dir(outputPath), c.minFreeMB); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create audio directory: %w", err)
	}

	chunks := SplitChunks(text, c.chunkChars)
	total := len(chunks)

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create audio file: %w", err)
	}
	defer out.Close()

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if progress != nil {
			progress(i+1, total, fmt.Sprintf("Processing chunk %d/%d", i+1, total))
		}
		audio, err := c.synthesizeChunk(ctx, chunk, voice)
		if err != nil {
			return fmt.Errorf("chunk %d/%d: %w", i+1, total, err)
		}
		if _, err := out.Write(audio); err != nil {
			return fmt.Errorf("write audio: %w", err)
		}
	}

	if err := out.Sync(); err != nil {
		return fmt.Errorf("flush audio: %w", err)
	}
	if progress != nil {
		progress(total, total, "Complete!")
	}
	c.logger.Info("audio synthesized",
		slog.String("voice", voice),
		slog.Int("chunks", total),
		slog.String("file", filepath.Base(outputPath)),
	)
	return nil
}

// Preview renders a short sample for a voice and returns the MP3 bytes.
func (c *Client) Preview(ctx context.Context, voice string) ([]byte, error) {
	if !ValidVoice(voice) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVoice, voice)
	}
	text := fmt.Sprintf("Hi, I'm %s. I'll be reading your articles.", VoiceName(voice))
	return c.synthesizeChunk(ctx, text, voice)
}
