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
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/KashuvY/EthicalWatermarking/services/watermark/datatypes"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/greenlist"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/observability"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/timeseries"
)

var detectTracer = otel.Tracer("watermark.service.handlers")

// DefaultFlagThreshold is the z-score above which text is reported as
// watermarked. Four standard deviations keeps the false positive rate
// around 3e-5 under the null hypothesis.
const DefaultFlagThreshold = 4.0

// HandleDetect scores a token sequence against one model's green list.
//
// # Description
//
// Returns the raw z-score so callers can apply their own thresholds.
// Empty sequences score 0.0. Models registered with gamma 0 or 1 have
// no score variance and are rejected with 422.
//
// # Inputs
//
//   - detector: Detector bound to the shared key store
//   - recorder: Time-series sink for detection telemetry
//
// # Outputs
//
//   - gin.HandlerFunc: 200 with DetectResponse, 404 for unknown models,
//     422 for degenerate gamma
func HandleDetect(detector *greenlist.Detector, recorder timeseries.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := detectTracer.Start(c.Request.Context(), "HandleDetect")
		defer span.End()

		var req datatypes.DetectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			span.RecordError(err)
			recordError(observability.EndpointDetect, observability.ErrorCodeValidation)
			recordRequest(observability.EndpointDetect, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			span.RecordError(err)
			recordError(observability.EndpointDetect, observability.ErrorCodeValidation)
			recordRequest(observability.EndpointDetect, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		span.SetAttributes(
			attribute.String("watermark.model_id", req.ModelID),
			attribute.Int("watermark.token_count", len(req.Tokens)),
		)

		z, err := detector.Score(req.ModelID, req.Tokens)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			status, code := scoringStatus(err)
			recordError(observability.EndpointDetect, code)
			recordRequest(observability.EndpointDetect, false)
			slog.Error("Detection failed", "model_id", req.ModelID, "error", err)
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		if m := observability.DefaultMetrics; m != nil {
			m.RecordZScore(req.ModelID, z)
			m.RecordTokensScored(req.ModelID, len(req.Tokens))
		}
		recordRequest(observability.EndpointDetect, true)

		// Telemetry writes ride a background goroutine so a slow or
		// unreachable InfluxDB never delays the response.
		go recordDetection(recorder, timeseries.Detection{
			ModelID:    req.ModelID,
			ZScore:     z,
			TokenCount: len(req.Tokens),
			Flagged:    z > DefaultFlagThreshold,
			Source:     "api",
		})

		c.JSON(http.StatusOK, datatypes.DetectResponse{
			ModelID:    req.ModelID,
			ZScore:     z,
			TokenCount: len(req.Tokens),
		})
	}
}

// recordDetection writes one detection point with a bounded deadline.
func recordDetection(recorder timeseries.Recorder, d timeseries.Detection) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := recorder.RecordDetection(ctx, d); err != nil {
		slog.Warn("Failed to record detection point",
			"model_id", d.ModelID,
			"source", d.Source,
			"error", err)
	}
}
