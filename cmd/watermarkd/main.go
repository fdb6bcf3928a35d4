// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command watermarkd starts the watermark HTTP server.
//
// This is the main entry point for the containerized watermark service.
// It reads configuration from environment variables and starts the server.
//
// # Environment Variables
//
//   - WATERMARK_PORT: HTTP server port (default: 12240)
//   - WATERMARK_JOURNAL_PATH: Badger directory for durable registrations (optional)
//   - WATERMARK_SEED_FILE: YAML seed file applied at boot (optional)
//   - WATERMARK_LM_BACKEND: distribution source - bigram, openai, none (default: bigram)
//   - WATERMARK_API_TOKENS: comma-separated bearer tokens gating registration (optional)
//   - WATERMARK_LOG_LEVEL: debug, info, warn, error (default: info)
//   - WATERMARK_LOG_DIR: directory for JSON log files (optional)
//   - INFLUXDB_URL: InfluxDB endpoint for detection history (optional)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: localhost:4317)
//
// # Usage
//
//	# Build
//	go build -o watermarkd ./cmd/watermarkd
//
//	# Run
//	./watermarkd
//
//	# Or via container
//	podman-compose up watermarkd
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/KashuvY/EthicalWatermarking/pkg/logging"
	"github.com/KashuvY/EthicalWatermarking/services/watermark"
)

func main() {
	// Setup structured logging. Services log through the slog default,
	// so the wrapper's destinations apply process-wide.
	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(os.Getenv("WATERMARK_LOG_LEVEL")),
		LogDir:  os.Getenv("WATERMARK_LOG_DIR"),
		Service: "watermarkd",
		JSON:    true,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	ctx := context.Background()
	cfg := watermark.DefaultConfig()

	slog.Info("Starting watermark service",
		"port", cfg.Port,
		"lm_backend", cfg.LMBackend,
		"journal_path", cfg.JournalPath,
	)

	svc, err := watermark.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create watermark service: %v", err)
	}

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		slog.Info("Shutting down watermark service")
		if err := svc.Close(context.Background()); err != nil {
			slog.Warn("Shutdown finished with errors", "error", err.Error())
		}
		// os.Exit skips defers; sync file logs before leaving.
		_ = logger.Close()
		os.Exit(0)
	}()

	// Run the server (blocks until shutdown)
	if err := svc.Run(ctx); err != nil {
		log.Fatalf("Watermark service error: %v", err)
	}
}
