// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/KashuvY/EthicalWatermarking/services/watermark/datatypes"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/greenlist"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/observability"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/timeseries"
)

var checkTracer = otel.Tracer("watermark.service.handlers")

// checkConcurrency caps parallel model scoring during a check. Scoring
// is CPU-bound HMAC work, so more goroutines than cores buys nothing.
const checkConcurrency = 8

// HandleCheck scores free text against every registered model.
//
// # Description
//
// Whitespace-tokenizes the submitted text and scores the sequence
// against each registered model in parallel. Models that cannot score
// (degenerate gamma) appear as rows with an error instead of failing
// the whole check. The verdict flags the text when any model's z-score
// clears the threshold.
//
// # Inputs
//
//   - store: Key store enumerating the models to check
//   - detector: Detector bound to the same store
//   - recorder: Time-series sink for per-model detection points
//   - threshold: Default flagging threshold, overridable per request
//
// # Outputs
//
//   - gin.HandlerFunc: 200 with CheckResponse, 400 on malformed input
func HandleCheck(store *greenlist.KeyStore, detector *greenlist.Detector, recorder timeseries.Recorder, threshold float64) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := checkTracer.Start(c.Request.Context(), "HandleCheck")
		defer span.End()

		var req datatypes.CheckRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			span.RecordError(err)
			recordError(observability.EndpointCheck, observability.ErrorCodeValidation)
			recordRequest(observability.EndpointCheck, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			span.RecordError(err)
			recordError(observability.EndpointCheck, observability.ErrorCodeValidation)
			recordRequest(observability.EndpointCheck, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		effective := threshold
		if req.Threshold != nil {
			effective = *req.Threshold
		}

		resp := runCheck(ctx, store, detector, strings.Fields(req.Text), effective)
		span.SetAttributes(
			attribute.Int("watermark.token_count", resp.TokenCount),
			attribute.Int("watermark.models_checked", len(resp.Results)),
			attribute.Bool("watermark.flagged", resp.Flagged),
		)
		recordRequest(observability.EndpointCheck, true)

		go recordCheckDetections(recorder, resp, "check")

		c.JSON(http.StatusOK, resp)
	}
}

// runCheck scores one token sequence against every registered model.
//
// Scoring fans out through an errgroup with bounded concurrency. Each
// goroutine owns one slot of the results slice, so rows come back in
// the store's sorted order without locking. Per-model failures land in
// the row; they never abort the sweep.
func runCheck(ctx context.Context, store *greenlist.KeyStore, detector *greenlist.Detector, tokens []string, threshold float64) datatypes.CheckResponse {
	models := store.List()
	results := make([]datatypes.CheckRow, len(models))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(checkConcurrency)
	for i, info := range models {
		i, info := i, info
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				results[i] = datatypes.CheckRow{ModelID: info.ModelID, Error: err.Error()}
				return nil
			}
			z, err := detector.Score(info.ModelID, tokens)
			if err != nil {
				results[i] = datatypes.CheckRow{ModelID: info.ModelID, Error: err.Error()}
				return nil
			}
			results[i] = datatypes.CheckRow{
				ModelID: info.ModelID,
				ZScore:  z,
				Flagged: z > threshold,
			}
			if m := observability.DefaultMetrics; m != nil {
				m.RecordZScore(info.ModelID, z)
			}
			return nil
		})
	}
	// Goroutines never return errors; Wait is just the join point.
	_ = g.Wait()

	flagged := false
	for _, row := range results {
		if row.Flagged {
			flagged = true
			break
		}
	}
	verdict := "clean"
	if flagged {
		verdict = "watermarked"
	}

	return datatypes.CheckResponse{
		Results:    results,
		Flagged:    flagged,
		Verdict:    verdict,
		TokenCount: len(tokens),
		Threshold:  threshold,
	}
}

// recordCheckDetections writes one detection point per scored row.
func recordCheckDetections(recorder timeseries.Recorder, resp datatypes.CheckResponse, source string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	now := time.Now().UTC()
	for _, row := range resp.Results {
		if row.Error != "" {
			continue
		}
		if err := recorder.RecordDetection(ctx, timeseries.Detection{
			ModelID:    row.ModelID,
			ZScore:     row.ZScore,
			TokenCount: resp.TokenCount,
			Flagged:    row.Flagged,
			Source:     source,
			ObservedAt: now,
		}); err != nil {
			slog.Warn("Failed to record check detection point",
				"model_id", row.ModelID,
				"source", source,
				"error", err)
			return
		}
	}
}
