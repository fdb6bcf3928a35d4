// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics and instrumentation for the
// watermark service.
//
// # Description
//
// This package implements Prometheus metrics for monitoring watermark
// operations. Metrics include:
//   - Request counters (by endpoint, status, error type)
//   - Token throughput (selected/scored tokens by model)
//   - Detection z-score distribution
//   - Registered model gauge and active stream gauge
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "watermark"

// Subsystem for scoring metrics
const scoringSubsystem = "scoring"

// WatermarkMetrics holds all Prometheus metrics for watermark operations.
//
// # Description
//
// Provides counters, histograms, and gauges for monitoring selection and
// detection throughput. Initialize once at startup via InitMetrics().
//
// # Fields
//
//   - RequestsTotal: Counter of requests by endpoint and status
//   - TokensTotal: Counter of tokens processed (selected/scored by model)
//   - SelectionDurationSeconds: Histogram of token selection latency
//   - DetectionZScore: Histogram of z-scores produced by detection
//   - RegisteredModels: Gauge of models currently registered
//   - ActiveStreams: Gauge of open websocket sessions
//   - ErrorsTotal: Counter of errors by type and endpoint
//
// # Thread Safety
//
// All operations are thread-safe.
type WatermarkMetrics struct {
	// RequestsTotal counts requests by endpoint and status.
	// Labels: endpoint (register, watermark, detect, ...), status (success, error)
	RequestsTotal *prometheus.CounterVec

	// TokensTotal counts tokens processed by operation and model.
	// Labels: operation (selected, scored), model
	TokensTotal *prometheus.CounterVec

	// SelectionDurationSeconds measures single-token selection latency.
	// Labels: endpoint (watermark, generate, stream)
	SelectionDurationSeconds *prometheus.HistogramVec

	// DetectionZScore observes the z-score of each detection pass.
	// Labels: model
	DetectionZScore *prometheus.HistogramVec

	// RegisteredModels tracks the number of models in the key store.
	RegisteredModels prometheus.Gauge

	// ActiveStreams tracks currently open websocket sessions.
	ActiveStreams prometheus.Gauge

	// ErrorsTotal counts errors by type and endpoint.
	// Labels: endpoint, error_code (validation, model_not_found, ...)
	ErrorsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance of WatermarkMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *WatermarkMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics. Should be called once
// at application startup, after Prometheus registry is available.
//
// # Outputs
//
//   - *WatermarkMetrics: The initialized metrics instance.
//
// # Limitations
//
//   - Panics if called twice (duplicate registration).
//
// # Assumptions
//
//   - Prometheus default registry is available.
func InitMetrics() *WatermarkMetrics {
	DefaultMetrics = &WatermarkMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: scoringSubsystem,
				Name:      "requests_total",
				Help:      "Total number of requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		TokensTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: scoringSubsystem,
				Name:      "tokens_total",
				Help:      "Total tokens processed by operation and model",
			},
			[]string{"operation", "model"},
		),

		SelectionDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: scoringSubsystem,
				Name:      "selection_duration_seconds",
				Help:      "Single token selection latency in seconds",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"endpoint"},
		),

		DetectionZScore: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: scoringSubsystem,
				Name:      "detection_z_score",
				Help:      "Z-scores produced by detection passes",
				Buckets:   []float64{-4, -2, -1, 0, 1, 2, 4, 6, 8, 12},
			},
			[]string{"model"},
		),

		RegisteredModels: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: scoringSubsystem,
				Name:      "registered_models",
				Help:      "Number of models currently registered",
			},
		),

		ActiveStreams: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: scoringSubsystem,
				Name:      "active_streams",
				Help:      "Number of currently open websocket sessions",
			},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: scoringSubsystem,
				Name:      "errors_total",
				Help:      "Total errors by type and endpoint",
			},
			[]string{"endpoint", "error_code"},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Error Codes
// =============================================================================

// ErrorCode represents a categorized error type for metrics.
type ErrorCode string

const (
	// ErrorCodeValidation indicates request validation failure.
	ErrorCodeValidation ErrorCode = "validation"

	// ErrorCodeModelNotFound indicates a lookup against an unknown model.
	ErrorCodeModelNotFound ErrorCode = "model_not_found"

	// ErrorCodeZeroVariance indicates detection against a degenerate gamma.
	ErrorCodeZeroVariance ErrorCode = "zero_variance"

	// ErrorCodeUnauthorized indicates a rejected credential.
	ErrorCodeUnauthorized ErrorCode = "unauthorized"

	// ErrorCodeRateLimited indicates a throttled client.
	ErrorCodeRateLimited ErrorCode = "rate_limited"

	// ErrorCodeStorage indicates a persistence failure.
	ErrorCodeStorage ErrorCode = "storage"

	// ErrorCodeLLMError indicates a distribution source failure.
	ErrorCodeLLMError ErrorCode = "llm_error"

	// ErrorCodeInternal indicates internal server error.
	ErrorCodeInternal ErrorCode = "internal"
)

// =============================================================================
// Endpoint Names
// =============================================================================

// Endpoint represents a service endpoint for metrics labeling.
type Endpoint string

const (
	// EndpointRegister is the model registration endpoint.
	EndpointRegister Endpoint = "register"

	// EndpointWatermark is the single-token selection endpoint.
	EndpointWatermark Endpoint = "watermark"

	// EndpointDetect is the detection endpoint.
	EndpointDetect Endpoint = "detect"

	// EndpointCheck is the multi-model text check endpoint.
	EndpointCheck Endpoint = "check"

	// EndpointGenerate is the sampled generation endpoint.
	EndpointGenerate Endpoint = "generate"

	// EndpointStream is the websocket session endpoint.
	EndpointStream Endpoint = "stream"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordRequest records a completed request.
//
// # Inputs
//
//   - endpoint: The endpoint that handled the request.
//   - success: Whether the request completed successfully.
func (m *WatermarkMetrics) RecordRequest(endpoint Endpoint, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(string(endpoint), status).Inc()
}

// RecordError records a categorized error.
//
// # Inputs
//
//   - endpoint: The endpoint where the error occurred.
//   - code: The error type code.
func (m *WatermarkMetrics) RecordError(endpoint Endpoint, code ErrorCode) {
	m.ErrorsTotal.WithLabelValues(string(endpoint), string(code)).Inc()
}

// RecordTokensSelected adds to the selected-token counter for a model.
func (m *WatermarkMetrics) RecordTokensSelected(model string, n int) {
	m.TokensTotal.WithLabelValues("selected", model).Add(float64(n))
}

// RecordTokensScored adds to the scored-token counter for a model.
func (m *WatermarkMetrics) RecordTokensScored(model string, n int) {
	m.TokensTotal.WithLabelValues("scored", model).Add(float64(n))
}

// RecordZScore observes a detection z-score for a model.
func (m *WatermarkMetrics) RecordZScore(model string, z float64) {
	m.DetectionZScore.WithLabelValues(model).Observe(z)
}

// ObserveSelectionDuration records single-token selection latency.
func (m *WatermarkMetrics) ObserveSelectionDuration(endpoint Endpoint, seconds float64) {
	m.SelectionDurationSeconds.WithLabelValues(string(endpoint)).Observe(seconds)
}

// SetRegisteredModels sets the registered model gauge.
func (m *WatermarkMetrics) SetRegisteredModels(n int) {
	m.RegisteredModels.Set(float64(n))
}

// StreamStarted increments the active stream gauge.
func (m *WatermarkMetrics) StreamStarted() {
	m.ActiveStreams.Inc()
}

// StreamEnded decrements the active stream gauge.
func (m *WatermarkMetrics) StreamEnded() {
	m.ActiveStreams.Dec()
}
