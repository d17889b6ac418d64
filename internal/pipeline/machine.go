package pipeline

import (
	"errors"
	"fmt"

	"outloud/internal/library"
)

// ErrInvalidTransition is returned when a stage change is not allowed by
// the processing lifecycle.
var ErrInvalidTransition = errors.New("invalid stage transition")

// transitions enumerates the allowed stage changes. Machine-driven moves
// and user commands both go through this table.
var transitions = map[library.Stage][]library.Stage{
	library.StageQueued:     {library.StageExtracting},
	library.StageExtracting: {library.StageCleaning, library.StageGenerating, library.StageError},
	// cleanup is best effort and never fatal, so cleaning cannot park in error.
	library.StageCleaning:   {library.StageGenerating},
	library.StageGenerating: {library.StageReady, library.StageError},
	// ready re-enters for user-requested cleanup or voice changes.
	library.StageReady: {library.StageCleaning, library.StageGenerating},
	// error recovers back to the start of the pipeline.
	library.StageError: {library.StageQueued},
}

// CanTransition reports whether moving from one stage to another is legal.
func CanTransition(from, to library.Stage) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition validates a stage change and applies it to the item in memory.
// Persistence is the caller's responsibility.
func Transition(item *library.Item, to library.Stage) error {
	if !CanTransition(item.Stage, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, item.Stage, to)
	}
	item.Stage = to
	item.ClearProgress()
	if to != library.StageError {
		item.ErrorMessage = ""
	}
	return nil
}
