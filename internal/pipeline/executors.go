package pipeline

import (
	"context"

	"outloud/internal/library"
)

// ProgressFunc receives chunk-level progress from an executor.
type ProgressFunc func(current, total int, status string)

// Extractor turns an item's source into a title and narration text.
type Extractor interface {
	Extract(ctx context.Context, item *library.Item) (title, text string, err error)
}

// Cleaner rewrites narration text; Available gates the stage so the
// pipeline can skip cleanup when the model server is down.
type Cleaner interface {
	Available(ctx context.Context) bool
	Clean(ctx context.Context, text string, progress ProgressFunc) (string, error)
}

// Synthesizer renders narration text to an audio file.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice, outputPath string, progress ProgressFunc) error
}
