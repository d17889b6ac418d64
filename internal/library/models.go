package library

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Stage represents the processing lifecycle of an item.
type Stage string

const (
	StageQueued     Stage = "queued"
	StageExtracting Stage = "extracting"
	StageCleaning   Stage = "cleaning"
	StageGenerating Stage = "generating"
	StageReady      Stage = "ready"
	StageError      Stage = "error"
)

// Status is the user-facing triage flag, independent of Stage.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// SourceType identifies where an item's content came from.
type SourceType string

const (
	SourceURL      SourceType = "url"
	SourceDocument SourceType = "document"
	SourceText     SourceType = "text"
)

var allStages = []Stage{
	StageQueued,
	StageExtracting,
	StageCleaning,
	StageGenerating,
	StageReady,
	StageError,
}

var stageSet = func() map[Stage]struct{} {
	set := make(map[Stage]struct{}, len(allStages))
	for _, stage := range allStages {
		set[stage] = struct{}{}
	}
	return set
}()

var activeStages = map[Stage]struct{}{
	StageExtracting: {},
	StageCleaning:   {},
	StageGenerating: {},
}

// Item represents an article persisted in SQLite.
type Item struct {
	ID               int64
	Title            string
	SourceType       SourceType
	SourcePath       string
	Voice            string
	Stage            Stage
	Status           Status
	ProgressMessage  string
	ProgressPercent  float64
	ErrorMessage     string
	RawTextPath      string
	CleanedTextPath  string
	AudioPath        string
	WasCleaned       bool
	CleanupRequested bool
	ContentHash      string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CompletedAt      *time.Time
}

// AllStages returns the ordered list of known stages.
func AllStages() []Stage {
	cp := make([]Stage, len(allStages))
	copy(cp, allStages)
	return cp
}

// ParseStage converts a string into a known Stage.
func ParseStage(value string) (Stage, bool) {
	normalized := Stage(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stageSet[normalized]
	return normalized, ok
}

// ParseSourceType converts a string into a known SourceType.
func ParseSourceType(value string) (SourceType, bool) {
	switch SourceType(strings.ToLower(strings.TrimSpace(value))) {
	case SourceURL:
		return SourceURL, true
	case SourceDocument:
		return SourceDocument, true
	case SourceText:
		return SourceText, true
	default:
		return "", false
	}
}

// IsActive reports whether the stage reflects an in-flight pipeline run.
func (s Stage) IsActive() bool {
	_, ok := activeStages[s]
	return ok
}

// IsTerminal reports whether the stage ends a pipeline run.
func (s Stage) IsTerminal() bool {
	return s == StageReady || s == StageError
}

// IsActive reports whether the item is currently inside a pipeline run.
func (i Item) IsActive() bool {
	return i.Stage.IsActive()
}

// NeedsProcessing reports whether the item should be picked up by the runner.
func (i Item) NeedsProcessing() bool {
	return !i.Stage.IsTerminal()
}

// TextPath returns the text an item's synthesis should read from: the
// cleaned artifact when present, otherwise the raw extraction.
func (i Item) TextPath() string {
	if i.CleanedTextPath != "" {
		return i.CleanedTextPath
	}
	return i.RawTextPath
}

// SetProgress updates both progress fields together. Use this instead of
// setting ProgressMessage and ProgressPercent individually.
func (i *Item) SetProgress(message string, percent float64) {
	i.ProgressMessage = message
	i.ProgressPercent = percent
}

// ClearProgress removes progress state when leaving an active stage.
func (i *Item) ClearProgress() {
	i.ProgressMessage = ""
	i.ProgressPercent = 0
}

// SetFailed marks the item as failed with the given error message.
func (i *Item) SetFailed(message string) {
	i.Stage = StageError
	i.ErrorMessage = message
	i.ClearProgress()
}

// Validate checks the record-level invariants.
func (i Item) Validate() error {
	if _, ok := stageSet[i.Stage]; !ok {
		return fmt.Errorf("unknown stage %q", i.Stage)
	}
	if i.Status != StatusPending && i.Status != StatusCompleted {
		return fmt.Errorf("unknown status %q", i.Status)
	}
	if (i.Stage == StageError) != (i.ErrorMessage != "") {
		return errors.New("error message must be set exactly when stage is error")
	}
	if !i.Stage.IsActive() && (i.ProgressMessage != "" || i.ProgressPercent != 0) {
		return errors.New("progress is only valid in an active stage")
	}
	if i.ProgressPercent < 0 || i.ProgressPercent > 100 {
		return fmt.Errorf("progress percent %.1f out of range", i.ProgressPercent)
	}
	if i.Status == StatusCompleted {
		if i.Stage != StageReady {
			return errors.New("completed status requires stage ready")
		}
		if i.AudioPath == "" {
			return errors.New("completed status requires synthesized audio")
		}
	}
	return nil
}
