package speech

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"outloud/internal/config"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/audio/voices":
			w.WriteHeader(http.StatusOK)
		case "/v1/audio/speech":
			var req speechRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "audio/mpeg")
			_, _ = w.Write([]byte("MP3[" + req.Voice + "]"))
		default:
			http.NotFound(w, r)
		}
	}))
}

func testConfig(baseURL string) config.TTS {
	return config.TTS{
		BaseURL:        baseURL,
		DefaultVoice:   "af_heart",
		ChunkChars:     50,
		TimeoutSeconds: 5,
	}
}

func TestSynthesizeWritesAudio(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)
	out := filepath.Join(t.TempDir(), "audio", "item.mp3")

	var statuses []string
	text := "First sentence here for narration. Second sentence follows it closely. Third one ends the piece."
	err := client.Synthesize(context.Background(), text, "af_heart", out, func(current, total int, status string) {
		statuses = append(statuses, status)
	})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "MP3[af_heart]") {
		t.Fatalf("unexpected audio contents: %q", data)
	}
	if len(statuses) < 2 || statuses[len(statuses)-1] != "Complete!" {
		t.Fatalf("unexpected progress: %v", statuses)
	}
}

func TestSynthesizeRejectsUnknownVoice(t *testing.T) {
	client := NewClient(testConfig("http://127.0.0.1:1"), nil)
	err := client.Synthesize(context.Background(), "text", "zz_nobody", filepath.Join(t.TempDir(), "x.mp3"), nil)
	if !errors.Is(err, ErrUnknownVoice) {
		t.Fatalf("expected ErrUnknownVoice, got %v", err)
	}
}

func TestPreview(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)
	data, err := client.Preview(context.Background(), "bm_george")
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if !strings.Contains(string(data), "bm_george") {
		t.Fatalf("unexpected preview bytes: %q", data)
	}
}

func TestAvailable(t *testing.T) {
	server := newTestServer(t)
	client := NewClient(testConfig(server.URL), nil)
	if !client.Available(context.Background()) {
		t.Fatal("expected available")
	}
	server.Close()
	if client.Available(context.Background()) {
		t.Fatal("expected unavailable after close")
	}
}
