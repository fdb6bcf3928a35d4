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
)

var watermarkTracer = otel.Tracer("watermark.service.handlers")

// HandleWatermarkToken draws one token from a caller-supplied next-token
// distribution with the model's green-list bias applied.
//
// # Description
//
// This is the hot path of the service: a generation loop calls it once
// per emitted token. The handler keeps its own work to binding,
// validation, and bookkeeping; reweighting and sampling live in the
// sampler.
//
// # Inputs
//
//   - sampler: Biased sampler bound to the shared key store
//
// # Outputs
//
//   - gin.HandlerFunc: 200 with WatermarkResponse, 400 on malformed
//     distributions, 404 for unknown models
func HandleWatermarkToken(sampler *greenlist.Sampler) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := watermarkTracer.Start(c.Request.Context(), "HandleWatermarkToken")
		defer span.End()

		var req datatypes.WatermarkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			span.RecordError(err)
			recordError(observability.EndpointWatermark, observability.ErrorCodeValidation)
			recordRequest(observability.EndpointWatermark, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			span.RecordError(err)
			recordError(observability.EndpointWatermark, observability.ErrorCodeValidation)
			recordRequest(observability.EndpointWatermark, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		span.SetAttributes(
			attribute.String("watermark.model_id", req.ModelID),
			attribute.Int("watermark.distribution_size", len(req.Distribution)),
		)

		start := time.Now()
		token, err := sampler.SelectToken(req.ModelID, req.Distribution, req.PrevToken)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			status, code := scoringStatus(err)
			recordError(observability.EndpointWatermark, code)
			recordRequest(observability.EndpointWatermark, false)
			slog.Error("Token selection failed", "model_id", req.ModelID, "error", err)
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		if m := observability.DefaultMetrics; m != nil {
			m.ObserveSelectionDuration(observability.EndpointWatermark, time.Since(start).Seconds())
			m.RecordTokensSelected(req.ModelID, 1)
		}
		recordRequest(observability.EndpointWatermark, true)

		c.JSON(http.StatusOK, datatypes.WatermarkResponse{
			ModelID: req.ModelID,
			Token:   token,
		})
	}
}
