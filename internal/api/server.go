// Package api serves the daemon's HTTP surface: item commands, library
// queries, live progress over websockets, and Prometheus metrics.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"outloud/internal/library"
	"outloud/internal/logging"
	"outloud/internal/pipeline"
	"outloud/internal/progress"
	"outloud/internal/speech"
)

// Service is the command surface the server exposes over HTTP. The daemon's
// service satisfies it.
type Service interface {
	AddURL(ctx context.Context, pageURL, voice string, cleanupRequested bool) (*library.Item, error)
	AddText(ctx context.Context, title, text, voice string, cleanupRequested bool) (*library.Item, error)
	AddFile(ctx context.Context, path, voice string, cleanupRequested bool) (*library.Item, error)
	Retry(ctx context.Context, id int64) (*library.Item, error)
	Reclean(ctx context.Context, id int64) (*library.Item, error)
	Regenerate(ctx context.Context, id int64, voice string) (*library.Item, error)
	Complete(ctx context.Context, id int64) (*library.Item, error)
	Uncomplete(ctx context.Context, id int64) (*library.Item, error)
	Cancel(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, stages ...library.Stage) ([]*library.Item, error)
	Get(ctx context.Context, id int64) (*library.Item, error)
	Stats(ctx context.Context) (map[library.Stage]int, error)
	Voices() []speech.Voice
	Preview(ctx context.Context, voice string) ([]byte, error)
	Watch(ctx context.Context, id int64) (progress.Event, *progress.Subscription, error)
}

// Options configures the API server.
type Options struct {
	Bind       string
	Service    Service
	UploadsDir string
	Gatherer   prometheus.Gatherer
	Logger     *slog.Logger
}

// Server is the daemon's HTTP front end.
type Server struct {
	bind       string
	service    Service
	uploadsDir string
	logger     *slog.Logger

	listener net.Listener
	server   *http.Server
}

// NewServer builds the server and its route table. A blank bind disables
// the API entirely.
func NewServer(opts Options) (*Server, error) {
	bind := strings.TrimSpace(opts.Bind)
	if bind == "" {
		return nil, nil
	}
	if opts.Service == nil {
		return nil, errors.New("api server requires a service")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	srv := &Server{
		bind:       bind,
		service:    opts.Service,
		uploadsDir: opts.UploadsDir,
		logger:     logger.With(logging.String(logging.FieldComponent, "api")),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/items", srv.handleItems)
	mux.HandleFunc("/api/items/", srv.handleItem)
	mux.HandleFunc("/api/upload", srv.handleUpload)
	mux.HandleFunc("/api/voices", srv.handleVoices)
	mux.HandleFunc("/api/voices/", srv.handleVoicePreview)
	if opts.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

// Start begins serving and shuts down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", slog.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down.
func (s *Server) Stop() {
	if s == nil || s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr returns the bound listen address, useful when binding to port 0.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	writeJSON(w, status, payload)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, library.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, library.ErrNotReady),
		errors.Is(err, pipeline.ErrBusy),
		errors.Is(err, pipeline.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, speech.ErrUnknownVoice):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
