// Package cleanup rewrites extracted text for narration using a local
// Ollama model. Cleanup is best effort: callers fall back to the raw text
// when the model is unavailable or fails.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"outloud/internal/config"
	"outloud/internal/logging"
)

// ErrUnavailable is returned when the Ollama server cannot be reached.
var ErrUnavailable = errors.New("ollama is not running")

const cleanupPrompt = `You are a text editor preparing content for audio narration.

CRITICAL RULES - You MUST follow these:
1. PRESERVE the author's original language, words, and writing style exactly
2. KEEP all original sentences - do not rewrite or paraphrase
3. ONLY remove content, never modify or rephrase existing text

What to REMOVE:
- Reference markers like "[1]", "[2,3]", "Figure 1", "Table 2"
- Code or symbols like <span or ** or |
- Author affiliations, email addresses, page numbers, headers/footers
- Acknowledgments and funding sections
- Appendices and reference lists
- Anything that doesn't dictate well for TTS narration

What to KEEP (unchanged):
- All substantive content that teaches or informs
- The author's exact words and sentence structure
- The logical flow and narrative structure
- Key examples and explanations

Output ONLY the cleaned text. No explanations or commentary.

Text to clean:
`

// ProgressFunc receives chunk-level progress while cleaning long texts.
type ProgressFunc func(current, total int, status string)

// Client talks to an Ollama server.
type Client struct {
	http       *resty.Client
	model      string
	chunkChars int
	logger     *slog.Logger
}

// NewClient builds a cleanup client from configuration.
func NewClient(cfg config.Cleanup, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	chunkChars := cfg.ChunkChars
	if chunkChars <= 0 {
		chunkChars = 2000
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
		model:      cfg.Model,
		chunkChars: chunkChars,
		logger:     logger,
	}
}

// Available reports whether the Ollama server answers its tags endpoint.
func (c *Client) Available(ctx context.Context) bool {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get("/api/tags")
	if err != nil {
		return false
	}
	return resp.StatusCode() == 200
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// CleanChunk sends a single chunk through the model.
func (c *Client) CleanChunk(ctx context.Context, text string) (string, error) {
	var result generateResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(generateRequest{
			Model:  c.model,
			Prompt: cleanupPrompt + text,
			Stream: false,
			Options: generateOptions{
				Temperature: 0.1,
				NumPredict:  len(text) + 500,
			},
		}).
		SetResult(&result).
		Post("/api/generate")
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("ollama generate: server returned %s", resp.Status())
	}
	return strings.TrimSpace(result.Response), nil
}

// Clean runs the full text through the model chunk by chunk and reports
// progress along the way.
func (c *Client) Clean(ctx context.Context, text string, progress ProgressFunc) (string, error) {
	if !c.Available(ctx) {
		return "", ErrUnavailable
	}

	chunks := splitChunks(text, c.chunkChars)
	total := len(chunks)
	cleaned := make([]string, 0, total)

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if progress != nil {
			progress(i+1, total, fmt.Sprintf("Cleaning chunk %d/%d", i+1, total))
		}
		part, err := c.CleanChunk(ctx, chunk)
		if err != nil {
			return "", fmt.Errorf("chunk %d/%d: %w", i+1, total, err)
		}
		cleaned = append(cleaned, part)
	}

	if progress != nil {
		progress(total, total, "Cleanup complete")
	}
	c.logger.Info("text cleaned",
		slog.Int("chunks", total),
		slog.Int("chars_in", len(text)),
	)
	return strings.Join(cleaned, "\n\n"), nil
}

// splitChunks groups paragraphs into chunks of at most limit characters.
// A single oversized paragraph becomes its own chunk.
func splitChunks(text string, limit int) []string {
	paragraphs := strings.Split(text, "\n\n")

	var (
		chunks  []string
		current strings.Builder
	)
	for _, para := range paragraphs {
		if current.Len()+len(para) < limit {
			current.WriteString(para)
			current.WriteString("\n\n")
			continue
		}
		if trimmed := strings.TrimSpace(current.String()); trimmed != "" {
			chunks = append(chunks, trimmed)
		}
		current.Reset()
		current.WriteString(para)
		current.WriteString("\n\n")
	}
	if trimmed := strings.TrimSpace(current.String()); trimmed != "" {
		chunks = append(chunks, trimmed)
	}
	if len(chunks) == 0 {
		chunks = []string{text}
	}
	return chunks
}
