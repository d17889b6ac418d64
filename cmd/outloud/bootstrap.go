package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"outloud/internal/api"
	"outloud/internal/cleanup"
	"outloud/internal/config"
	"outloud/internal/daemon"
	"outloud/internal/extract"
	"outloud/internal/janitor"
	"outloud/internal/library"
	"outloud/internal/pipeline"
	"outloud/internal/progress"
	"outloud/internal/speech"
)

// contentExtractor dispatches to the right extraction path per source type.
// Pasted text is pre-seeded with a raw artifact, so the pipeline never
// calls Extract for it.
type contentExtractor struct {
	svc *extract.Service
}

func (e contentExtractor) Extract(ctx context.Context, item *library.Item) (string, string, error) {
	switch item.SourceType {
	case library.SourceURL:
		result, err := e.svc.FromURL(ctx, item.SourcePath)
		if err != nil {
			return "", "", err
		}
		return result.Title, result.Text, nil
	case library.SourceDocument:
		result, err := e.svc.FromFile(ctx, item.SourcePath)
		if err != nil {
			return "", "", err
		}
		return result.Title, result.Text, nil
	default:
		return "", "", fmt.Errorf("source type %s has no extraction path", item.SourceType)
	}
}

type textCleaner struct {
	client *cleanup.Client
}

func (c textCleaner) Available(ctx context.Context) bool {
	return c.client.Available(ctx)
}

func (c textCleaner) Clean(ctx context.Context, text string, progress pipeline.ProgressFunc) (string, error) {
	return c.client.Clean(ctx, text, cleanup.ProgressFunc(progress))
}

type synthesizer struct {
	client *speech.Client
}

func (s synthesizer) Synthesize(ctx context.Context, text, voice, outputPath string, progress pipeline.ProgressFunc) error {
	return s.client.Synthesize(ctx, text, voice, outputPath, speech.ProgressFunc(progress))
}

// buildDaemon assembles the full processing stack from configuration.
func buildDaemon(cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, *api.Server, error) {
	store, err := library.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open library: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	hub := progress.NewHub(0)
	speechClient := speech.NewClient(cfg.TTS, logger)

	var cleaner pipeline.Cleaner
	if cfg.Cleanup.Enabled {
		cleaner = textCleaner{client: cleanup.NewClient(cfg.Cleanup, logger)}
	}

	runner := pipeline.NewRunner(pipeline.RunnerOptions{
		Config:      cfg,
		Store:       store,
		Hub:         hub,
		Extractor:   contentExtractor{svc: extract.NewService(nil, logger)},
		Cleaner:     cleaner,
		Synthesizer: synthesizer{client: speechClient},
		Logger:      logger,
		Metrics:     pipeline.NewMetrics(registry),
	})

	service := daemon.NewService(cfg, store, runner, hub, speechClient, logger)
	jan := janitor.New(cfg, store, runner, logger)

	d, err := daemon.New(cfg, store, runner, hub, service, jan, logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	server, err := api.NewServer(api.Options{
		Bind:       cfg.Paths.APIBind,
		Service:    service,
		UploadsDir: cfg.Paths.UploadsDir,
		Gatherer:   registry,
		Logger:     logger,
	})
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("configure api server: %w", err)
	}
	return d, server, nil
}
