package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"outloud/internal/library"
	"outloud/internal/logging"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	counts := make(map[string]int, len(stats))
	for stage, count := range stats {
		counts[string(stage)] = count
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"running": true,
		"stages":  counts,
	})
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listItems(w, r)
	case http.MethodPost:
		s.createItem(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	}
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	var stages []library.Stage
	if raw := r.URL.Query().Get("stage"); raw != "" {
		for _, value := range strings.Split(raw, ",") {
			stage, ok := library.ParseStage(value)
			if !ok {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("unknown stage %q", value)})
				return
			}
			stages = append(stages, stage)
		}
	}
	items, err := s.service.List(r.Context(), stages...)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"items": itemPayloads(items)})
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	var (
		item *library.Item
		err  error
	)
	switch {
	case req.URL != "":
		item, err = s.service.AddURL(r.Context(), req.URL, req.Voice, req.Cleanup)
	case req.Text != "":
		item, err = s.service.AddText(r.Context(), req.Title, req.Text, req.Voice, req.Cleanup)
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "either url or text is required"})
		return
	}
	if err != nil {
		if item == nil {
			s.writeError(w, err)
			return
		}
		// item was created but processing could not start
		s.logger.Warn("item created but not started", logging.Error(err))
	}
	s.writeJSON(w, http.StatusCreated, itemPayload(item))
}

// handleUpload accepts a multipart document, stores it in the uploads
// directory, and registers it for processing.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart form"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "file field is required"})
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if name == "" || name == "." {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing filename"})
		return
	}
	if err := os.MkdirAll(s.uploadsDir, 0o755); err != nil {
		s.writeError(w, err)
		return
	}
	target := filepath.Join(s.uploadsDir, name)
	out, err := os.Create(target)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		s.writeError(w, err)
		return
	}
	if err := out.Close(); err != nil {
		s.writeError(w, err)
		return
	}

	item, err := s.service.AddFile(r.Context(), target, r.FormValue("voice"), r.FormValue("cleanup") == "true")
	if err != nil && item == nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, itemPayload(item))
}

// handleItem routes /api/items/{id} and /api/items/{id}/{action}.
func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/items/")
	parts := strings.SplitN(strings.Trim(rest, "/"), "/", 2)
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid item id"})
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			s.getItem(w, r, id)
		case http.MethodDelete:
			if err := s.service.Delete(r.Context(), id); err != nil {
				s.writeError(w, err)
				return
			}
			s.writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
		default:
			writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		}
	case "audio":
		s.serveAudio(w, r, id)
	case "progress":
		s.handleProgress(w, r, id)
	default:
		s.itemCommand(w, r, id, action)
	}
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request, id int64) {
	item, err := s.service.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, itemPayload(item))
}

func (s *Server) itemCommand(w http.ResponseWriter, r *http.Request, id int64, action string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	var (
		item *library.Item
		err  error
	)
	switch action {
	case "retry":
		item, err = s.service.Retry(r.Context(), id)
	case "clean":
		item, err = s.service.Reclean(r.Context(), id)
	case "regenerate":
		var req regenerateRequest
		if r.ContentLength > 0 {
			if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
				return
			}
		}
		item, err = s.service.Regenerate(r.Context(), id, req.Voice)
	case "complete":
		item, err = s.service.Complete(r.Context(), id)
	case "uncomplete":
		item, err = s.service.Uncomplete(r.Context(), id)
	case "cancel":
		if err := s.service.Cancel(r.Context(), id); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"canceled": id})
		return
	default:
		writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("unknown action %q", action)})
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, itemPayload(item))
}

func (s *Server) serveAudio(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	item, err := s.service.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if item.AudioPath == "" {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no audio for this item yet"})
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	http.ServeFile(w, r, item.AudioPath)
}

func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"voices": s.service.Voices()})
}

// handleVoicePreview serves /api/voices/{id}/preview.
func (s *Server) handleVoicePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/voices/"), "/")
	voice, ok := strings.CutSuffix(rest, "/preview")
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
		return
	}
	data, err := s.service.Preview(r.Context(), strings.Trim(voice, "/"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	_, _ = w.Write(data)
}
