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
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/KashuvY/EthicalWatermarking/services/watermark/datatypes"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/greenlist"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/lm"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/observability"
)

var generateTracer = otel.Tracer("watermark.service.handlers")

// HandleGenerate runs the demo generation loop: pull a next-token
// distribution from the language model source, sample through the
// watermark, extend the prefix, repeat.
//
// # Description
//
// This endpoint exists to produce watermarked text end to end without
// an external generation client. Each iteration asks the source for a
// distribution conditioned on the prompt plus everything emitted so
// far, then draws through the model's green-list bias.
//
// # Inputs
//
//   - sampler: Biased sampler bound to the shared key store
//   - source: Next-token distribution provider (bigram demo or OpenAI)
//
// # Outputs
//
//   - gin.HandlerFunc: 200 with GenerateResponse, 404 for unknown
//     models, 503 when the distribution source fails
func HandleGenerate(sampler *greenlist.Sampler, source lm.DistributionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := generateTracer.Start(c.Request.Context(), "HandleGenerate")
		defer span.End()

		var req datatypes.GenerateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			span.RecordError(err)
			recordError(observability.EndpointGenerate, observability.ErrorCodeValidation)
			recordRequest(observability.EndpointGenerate, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		req.EnsureDefaults()
		if err := req.Validate(); err != nil {
			span.RecordError(err)
			recordError(observability.EndpointGenerate, observability.ErrorCodeValidation)
			recordRequest(observability.EndpointGenerate, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		span.SetAttributes(
			attribute.String("watermark.model_id", req.ModelID),
			attribute.Int("watermark.max_tokens", req.MaxTokens),
		)

		prefix := strings.Fields(req.Prompt)
		prev := ""
		if len(prefix) > 0 {
			prev = prefix[len(prefix)-1]
		}

		start := time.Now()
		tokens := make([]string, 0, req.MaxTokens)
		for i := 0; i < req.MaxTokens; i++ {
			dist, err := source.NextDistribution(ctx, req.ModelID, prefix)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				if errors.Is(err, greenlist.ErrModelNotFound) {
					recordError(observability.EndpointGenerate, observability.ErrorCodeModelNotFound)
					recordRequest(observability.EndpointGenerate, false)
					c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
					return
				}
				recordError(observability.EndpointGenerate, observability.ErrorCodeLLMError)
				recordRequest(observability.EndpointGenerate, false)
				slog.Error("Distribution source failed",
					"model_id", req.ModelID,
					"position", len(tokens),
					"error", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "distribution source unavailable"})
				return
			}

			token, err := sampler.SelectToken(req.ModelID, dist, prev)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				status, code := scoringStatus(err)
				recordError(observability.EndpointGenerate, code)
				recordRequest(observability.EndpointGenerate, false)
				slog.Error("Token selection failed during generation",
					"model_id", req.ModelID,
					"position", len(tokens),
					"error", err)
				c.JSON(status, gin.H{"error": err.Error()})
				return
			}

			tokens = append(tokens, token)
			prefix = append(prefix, token)
			prev = token
		}

		if m := observability.DefaultMetrics; m != nil {
			m.ObserveSelectionDuration(observability.EndpointGenerate, time.Since(start).Seconds())
			m.RecordTokensSelected(req.ModelID, len(tokens))
		}
		recordRequest(observability.EndpointGenerate, true)

		slog.Info("Generated watermarked continuation",
			"model_id", req.ModelID,
			"tokens", len(tokens))

		c.JSON(http.StatusOK, datatypes.GenerateResponse{
			ModelID: req.ModelID,
			Tokens:  tokens,
			Text:    strings.Join(tokens, " "),
		})
	}
}
