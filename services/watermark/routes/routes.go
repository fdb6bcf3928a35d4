// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/KashuvY/EthicalWatermarking/pkg/extensions"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/greenlist"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/handlers"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/lm"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/middleware"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/telemetry"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/timeseries"
)

// Deps carries the shared dependencies the route handlers close over.
//
// Store, Sampler, and Detector are required. Source may be nil, in which
// case the generation endpoint is not registered. Recorder may be nil
// for deployments without a time series backend.
type Deps struct {
	Store    *greenlist.KeyStore
	Sampler  *greenlist.Sampler
	Detector *greenlist.Detector
	Source   lm.DistributionSource
	Recorder timeseries.Recorder
	Options  extensions.ServiceOptions
	Limiter  *middleware.RateLimiter

	// FlagThreshold is the z-score above which /check flags text.
	// Zero means handlers.DefaultFlagThreshold.
	FlagThreshold float64
}

// SetupRoutes registers all watermark service routes with the router.
func SetupRoutes(router *gin.Engine, deps Deps) {
	if deps.Recorder == nil {
		deps.Recorder = &timeseries.NopRecorder{}
	}
	if deps.Options.AuthProvider == nil {
		deps.Options.AuthProvider = &extensions.NopAuthProvider{}
	}
	if deps.Options.AuditLogger == nil {
		deps.Options.AuditLogger = &extensions.NopAuditLogger{}
	}
	threshold := deps.FlagThreshold
	if threshold <= 0 {
		threshold = handlers.DefaultFlagThreshold
	}

	router.GET("/health", handlers.HealthCheck)

	// Prometheus scrapes from the service port; nil means metrics are
	// disabled or exported elsewhere.
	if h := telemetry.MetricsHandler(); h != nil {
		router.GET("/metrics", gin.WrapH(h))
	}

	// Browser-facing checker site
	router.GET("/", handlers.HandleCheckerPage(deps.Store, threshold))
	router.POST("/check", handlers.HandleCheckerSubmit(deps.Store, deps.Detector, deps.Recorder, threshold))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		// Registration is the privileged surface: rate limit before
		// auth so token guessing burns the bucket, not the provider.
		register := []gin.HandlerFunc{}
		if deps.Limiter != nil {
			register = append(register, middleware.RateLimitMiddleware(deps.Limiter))
		}
		register = append(register,
			middleware.AuthMiddleware(deps.Options.AuthProvider),
			handlers.HandleRegisterModel(deps.Store, deps.Options.AuditLogger),
		)
		v1.POST("/models", register...)

		v1.GET("/models", handlers.HandleListModels(deps.Store))
		v1.GET("/models/:id", handlers.HandleGetModel(deps.Store))

		v1.POST("/watermark", handlers.HandleWatermarkToken(deps.Sampler))
		v1.POST("/detect", handlers.HandleDetect(deps.Detector, deps.Recorder))
		v1.POST("/check", handlers.HandleCheck(deps.Store, deps.Detector, deps.Recorder, threshold))
		v1.GET("/stream", handlers.HandleStream(deps.Sampler, deps.Detector))

		if deps.Source != nil {
			v1.POST("/generate", handlers.HandleGenerate(deps.Sampler, deps.Source))
		}
	}
}
