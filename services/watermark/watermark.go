// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watermark assembles the statistical text watermarking service:
// key registry, biased token selection, z-score detection, and the HTTP
// and websocket surfaces around them.
package watermark

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/KashuvY/EthicalWatermarking/pkg/extensions"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/greenlist"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/handlers"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/lm"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/middleware"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/observability"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/routes"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/seeding"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/storage"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/telemetry"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/timeseries"
)

// Config holds the service's runtime settings.
//
// DefaultConfig reads everything from the environment so the container
// entrypoint stays a two-liner.
type Config struct {
	// Port is the HTTP listen port.
	Port string

	// JournalPath is the Badger directory for the registration journal.
	// Empty runs the registry ephemeral: registrations live until restart.
	JournalPath string

	// SeedFile is an optional YAML file of models to register at boot.
	SeedFile string

	// WatchSeedFile re-applies the seed file when it changes on disk.
	// Only meaningful when SeedFile is set.
	WatchSeedFile bool

	// FlagThreshold is the z-score above which /check flags text.
	FlagThreshold float64

	// APITokens gates model registration when non-empty.
	APITokens []string

	// RegisterRPS and RegisterBurst throttle the registration endpoint
	// per client IP. RegisterRPS <= 0 disables throttling.
	RegisterRPS   float64
	RegisterBurst int

	// LMBackend selects the distribution source for /v1/generate:
	// "bigram", "openai", or "none".
	LMBackend string

	// InfluxURL enables detection recording when set.
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string

	// Telemetry configures tracing and metrics export.
	Telemetry telemetry.Config
}

// DefaultConfig returns the environment-driven configuration.
func DefaultConfig() Config {
	return Config{
		Port:          getEnvOr("WATERMARK_PORT", "12240"),
		JournalPath:   os.Getenv("WATERMARK_JOURNAL_PATH"),
		SeedFile:      os.Getenv("WATERMARK_SEED_FILE"),
		WatchSeedFile: getEnvBool("WATERMARK_WATCH_SEED", true),
		FlagThreshold: getEnvFloat("WATERMARK_FLAG_THRESHOLD", handlers.DefaultFlagThreshold),
		APITokens:     splitTokens(os.Getenv("WATERMARK_API_TOKENS")),
		RegisterRPS:   getEnvFloat("WATERMARK_REGISTER_RPS", 5),
		RegisterBurst: int(getEnvFloat("WATERMARK_REGISTER_BURST", 10)),
		LMBackend:     getEnvOr("WATERMARK_LM_BACKEND", "bigram"),
		InfluxURL:     os.Getenv("INFLUXDB_URL"),
		InfluxToken:   os.Getenv("INFLUXDB_TOKEN"),
		InfluxOrg:     os.Getenv("INFLUXDB_ORG"),
		InfluxBucket:  os.Getenv("INFLUXDB_BUCKET"),
		Telemetry:     telemetry.DefaultConfig(),
	}
}

// Service is the assembled watermark service.
//
// Build one with New, serve with Run, release resources with Close.
type Service struct {
	cfg      Config
	router   *gin.Engine
	store    *greenlist.KeyStore
	journal  *storage.Journal
	recorder timeseries.Recorder
	watcher  *seeding.Watcher

	shutdownTelemetry func(context.Context) error
}

// New wires the service together: telemetry, metrics, the key registry
// with its journal replay, seed file, distribution source, detection
// recorder, and the HTTP router.
func New(ctx context.Context, cfg Config) (*Service, error) {
	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	// InitMetrics registers with the default prometheus registry and
	// panics on a second call, so only the first Service does it.
	if observability.DefaultMetrics == nil {
		observability.InitMetrics()
	}

	svc := &Service{cfg: cfg, shutdownTelemetry: shutdownTelemetry}
	svc.store = greenlist.NewKeyStore()

	if cfg.JournalPath != "" {
		jcfg := storage.DefaultConfig()
		jcfg.Path = cfg.JournalPath
		journal, err := storage.Open(jcfg)
		if err != nil {
			return nil, fmt.Errorf("open registry journal: %w", err)
		}
		svc.journal = journal

		restored, err := journal.Replay(ctx, svc.store)
		if err != nil {
			journal.Close()
			return nil, fmt.Errorf("replay registry journal: %w", err)
		}
		slog.Info("Registry journal replayed",
			"path", cfg.JournalPath,
			"models", restored)
		svc.store = svc.store.WithJournal(journal)
	} else {
		slog.Info("WATERMARK_JOURNAL_PATH not set. Registry is ephemeral; registrations are lost on restart.")
	}

	if cfg.SeedFile != "" {
		applied, err := seeding.LoadAndApply(ctx, cfg.SeedFile, svc.store)
		if err != nil {
			svc.closeStorage()
			return nil, fmt.Errorf("apply seed file: %w", err)
		}
		slog.Info("Seed file applied",
			"path", cfg.SeedFile,
			"models", applied)

		if cfg.WatchSeedFile {
			watcher, err := seeding.NewWatcher(cfg.SeedFile, svc.store)
			if err != nil {
				svc.closeStorage()
				return nil, fmt.Errorf("watch seed file: %w", err)
			}
			svc.watcher = watcher
		}
	}

	if m := observability.DefaultMetrics; m != nil {
		m.SetRegisteredModels(svc.store.Len())
	}

	var source lm.DistributionSource
	switch cfg.LMBackend {
	case "openai":
		openaiSource, err := lm.NewOpenAISource()
		if err != nil {
			svc.closeStorage()
			return nil, fmt.Errorf("init openai source: %w", err)
		}
		source = openaiSource
		slog.Info("Using OpenAI distribution source")
	case "none":
		slog.Info("Generation endpoint disabled (WATERMARK_LM_BACKEND=none)")
	case "bigram", "":
		source = lm.NewBigramSource(svc.store)
	default:
		slog.Warn("WATERMARK_LM_BACKEND not recognized, defaulting to bigram",
			"backend", cfg.LMBackend)
		source = lm.NewBigramSource(svc.store)
	}

	svc.recorder = timeseries.NopRecorder{}
	if cfg.InfluxURL != "" {
		recorder, err := timeseries.NewInfluxRecorder(timeseries.InfluxConfig{
			URL:    cfg.InfluxURL,
			Token:  cfg.InfluxToken,
			Org:    cfg.InfluxOrg,
			Bucket: cfg.InfluxBucket,
		})
		if err != nil {
			slog.Error("Failed to create InfluxDB recorder. Detections will not be recorded.",
				"error", err)
		} else {
			svc.recorder = recorder
		}
	} else {
		slog.Info("INFLUXDB_URL not set. Detections will not be recorded.")
	}

	opts := extensions.DefaultOptions()
	if len(cfg.APITokens) > 0 {
		opts = opts.WithAuth(extensions.NewStaticTokenAuthProvider(cfg.APITokens))
		slog.Info("Model registration requires an API token",
			"tokens", len(cfg.APITokens))
	}

	var limiter *middleware.RateLimiter
	if cfg.RegisterRPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.RegisterRPS, cfg.RegisterBurst)
	}

	router := gin.Default()
	router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	routes.SetupRoutes(router, routes.Deps{
		Store:         svc.store,
		Sampler:       greenlist.NewSampler(svc.store, nil),
		Detector:      greenlist.NewDetector(svc.store),
		Source:        source,
		Recorder:      svc.recorder,
		Options:       opts,
		Limiter:       limiter,
		FlagThreshold: cfg.FlagThreshold,
	})
	svc.router = router

	return svc, nil
}

// Router exposes the gin engine, mainly for tests.
func (s *Service) Router() *gin.Engine {
	return s.router
}

// Store exposes the key registry, mainly for tests.
func (s *Service) Store() *greenlist.KeyStore {
	return s.store
}

// Run starts the seed file watcher and serves HTTP until the listener
// fails or the process exits.
func (s *Service) Run(ctx context.Context) error {
	if s.watcher != nil {
		go s.watcher.Start(ctx)
	}

	slog.Info("Starting the watermark service", "port", s.cfg.Port)
	return s.router.Run(":" + s.cfg.Port)
}

// Close releases the service's resources. Safe to call after a failed
// Run; call exactly once.
func (s *Service) Close(ctx context.Context) error {
	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			slog.Warn("Failed to stop seed watcher", "error", err)
		}
	}
	if s.recorder != nil {
		s.recorder.Close()
	}
	s.closeStorage()
	greenlist.PurgeSecureMemory()

	if s.shutdownTelemetry != nil {
		if err := s.shutdownTelemetry(ctx); err != nil {
			return fmt.Errorf("shutdown telemetry: %w", err)
		}
	}
	return nil
}

// closeStorage releases the registry and its journal.
func (s *Service) closeStorage() {
	if s.store != nil {
		s.store.Close()
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			slog.Warn("Failed to close registry journal", "error", err)
		}
		s.journal = nil
	}
}

// getEnvOr returns the environment variable value or the fallback.
func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvFloat parses a float environment variable, warning on garbage.
func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("Ignoring unparseable environment variable",
			"key", key,
			"value", v)
		return fallback
	}
	return f
}

// getEnvBool parses a boolean environment variable.
func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("Ignoring unparseable environment variable",
			"key", key,
			"value", v)
		return fallback
	}
	return b
}

// splitTokens splits a comma separated token list, dropping empties.
func splitTokens(raw string) []string {
	if raw == "" {
		return nil
	}
	var tokens []string
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}
