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
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/KashuvY/EthicalWatermarking/pkg/extensions"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/datatypes"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/greenlist"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/middleware"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/observability"
)

var registerTracer = otel.Tracer("watermark.service.handlers")

// HandleRegisterModel installs or replaces a model's watermark
// configuration.
//
// # Description
//
// Binds and validates a RegisterModelRequest, then registers the model
// with the key store. Re-registering an existing ID replaces its
// configuration atomically; both outcomes are audited so key rotation
// leaves a trail.
//
// # Inputs
//
//   - store: Key store holding watermark configurations
//   - auditor: Audit sink for registration events
//
// # Outputs
//
//   - gin.HandlerFunc: 200 with RegisterModelResponse on success,
//     400 on malformed input, 500 when the journal rejects the write
func HandleRegisterModel(store *greenlist.KeyStore, auditor extensions.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := registerTracer.Start(c.Request.Context(), "HandleRegisterModel")
		defer span.End()

		var req datatypes.RegisterModelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			span.RecordError(err)
			recordError(observability.EndpointRegister, observability.ErrorCodeValidation)
			recordRequest(observability.EndpointRegister, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		req.EnsureDefaults()
		if err := req.Validate(); err != nil {
			span.RecordError(err)
			recordError(observability.EndpointRegister, observability.ErrorCodeValidation)
			recordRequest(observability.EndpointRegister, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		span.SetAttributes(
			attribute.String("watermark.model_id", req.ModelID),
			attribute.Int("watermark.vocabulary_size", len(req.Vocabulary)),
		)

		// Replacement is legal; remember whether this ID existed so the
		// audit trail distinguishes rotation from first registration.
		eventType := "model.register"
		if _, err := store.Lookup(req.ModelID); err == nil {
			eventType = "model.replace"
		}

		err := store.Register(ctx, req.ModelID, req.Vocabulary, []byte(req.Secret), *req.Gamma, *req.Delta)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			status, code := scoringStatus(err)
			if status == http.StatusInternalServerError {
				// Registration only fails internally when the journal
				// write does, so label it as a storage fault.
				code = observability.ErrorCodeStorage
			}
			recordError(observability.EndpointRegister, code)
			recordRequest(observability.EndpointRegister, false)
			slog.Error("Model registration failed",
				"model_id", req.ModelID,
				"request_id", req.RequestID,
				"error", err)
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		userID := "anonymous"
		if info := middleware.GetAuthInfo(c); info != nil {
			userID = info.UserID
		}
		if err := auditor.Log(ctx, extensions.AuditEvent{
			EventType:    eventType,
			Timestamp:    time.Now().UTC(),
			UserID:       userID,
			Action:       "create",
			ResourceType: "model",
			ResourceID:   req.ModelID,
			Outcome:      "success",
			Metadata: map[string]any{
				"gamma":           fmt.Sprintf("%g", *req.Gamma),
				"delta":           fmt.Sprintf("%g", *req.Delta),
				"vocabulary_size": len(req.Vocabulary),
				"ip_address":      c.ClientIP(),
			},
		}); err != nil {
			// Audit failures must not roll back a committed registration.
			slog.Warn("Audit log write failed", "event_type", eventType, "error", err)
		}

		if m := observability.DefaultMetrics; m != nil {
			m.SetRegisteredModels(store.Len())
		}
		recordRequest(observability.EndpointRegister, true)

		slog.Info("Registered watermark model",
			"model_id", req.ModelID,
			"gamma", *req.Gamma,
			"delta", *req.Delta,
			"vocabulary_size", len(req.Vocabulary),
			"request_id", req.RequestID)

		c.JSON(http.StatusOK, datatypes.RegisterModelResponse{
			Status:  "registered",
			ModelID: req.ModelID,
		})
	}
}
