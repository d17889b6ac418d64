package api

import (
	"time"

	"outloud/internal/library"
)

// Item is the wire representation of a library item.
type Item struct {
	ID               int64      `json:"id"`
	Title            string     `json:"title"`
	SourceType       string     `json:"source_type"`
	SourcePath       string     `json:"source_path,omitempty"`
	Voice            string     `json:"voice"`
	Stage            string     `json:"stage"`
	Status           string     `json:"status"`
	ProgressMessage  string     `json:"progress_message,omitempty"`
	ProgressPercent  float64    `json:"progress_percent,omitempty"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	WasCleaned       bool       `json:"was_cleaned"`
	CleanupRequested bool       `json:"cleanup_requested"`
	HasAudio         bool       `json:"has_audio"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

func itemPayload(item *library.Item) Item {
	return Item{
		ID:               item.ID,
		Title:            item.Title,
		SourceType:       string(item.SourceType),
		SourcePath:       item.SourcePath,
		Voice:            item.Voice,
		Stage:            string(item.Stage),
		Status:           string(item.Status),
		ProgressMessage:  item.ProgressMessage,
		ProgressPercent:  item.ProgressPercent,
		ErrorMessage:     item.ErrorMessage,
		WasCleaned:       item.WasCleaned,
		CleanupRequested: item.CleanupRequested,
		HasAudio:         item.AudioPath != "",
		CreatedAt:        item.CreatedAt,
		UpdatedAt:        item.UpdatedAt,
		CompletedAt:      item.CompletedAt,
	}
}

func itemPayloads(items []*library.Item) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		out = append(out, itemPayload(item))
	}
	return out
}

type createItemRequest struct {
	URL     string `json:"url,omitempty"`
	Text    string `json:"text,omitempty"`
	Title   string `json:"title,omitempty"`
	Voice   string `json:"voice,omitempty"`
	Cleanup bool   `json:"cleanup,omitempty"`
}

type regenerateRequest struct {
	Voice string `json:"voice,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}
