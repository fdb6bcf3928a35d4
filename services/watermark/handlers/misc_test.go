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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KashuvY/EthicalWatermarking/pkg/extensions"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/greenlist"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/timeseries"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// =============================================================================
// Shared Fixtures
// =============================================================================

// newTestStore returns an empty key store torn down with the test.
func newTestStore(t *testing.T) *greenlist.KeyStore {
	t.Helper()
	store := greenlist.NewKeyStore()
	t.Cleanup(store.Close)
	return store
}

// mustRegister installs a model directly, bypassing the HTTP surface.
func mustRegister(t *testing.T, store *greenlist.KeyStore, modelID string, gamma, delta float64) {
	t.Helper()
	err := store.Register(context.Background(), modelID, nil, []byte("secret-"+modelID), gamma, delta)
	require.NoError(t, err)
}

// fixedSource always yields the same variate, pinning sampler draws.
type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

// captureAuditLogger records audit events for assertions.
type captureAuditLogger struct {
	mu     sync.Mutex
	events []extensions.AuditEvent
}

func (l *captureAuditLogger) Log(ctx context.Context, event extensions.AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

func (l *captureAuditLogger) Query(ctx context.Context, filter extensions.AuditFilter) ([]extensions.AuditEvent, error) {
	return nil, nil
}

func (l *captureAuditLogger) Flush(ctx context.Context) error { return nil }

func (l *captureAuditLogger) recorded() []extensions.AuditEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]extensions.AuditEvent, len(l.events))
	copy(out, l.events)
	return out
}

// captureRecorder forwards detection points to a channel so tests can
// wait for the handler's background write.
type captureRecorder struct {
	ch chan timeseries.Detection
}

func newCaptureRecorder() *captureRecorder {
	return &captureRecorder{ch: make(chan timeseries.Detection, 16)}
}

func (r *captureRecorder) RecordDetection(ctx context.Context, d timeseries.Detection) error {
	r.ch <- d
	return nil
}

func (r *captureRecorder) Close() {}

// =============================================================================
// HealthCheck Tests
// =============================================================================

func TestHealthCheck_ReturnsOK(t *testing.T) {
	router := gin.New()
	router.GET("/health", HealthCheck)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "ok", response["status"])
}

func TestHealthCheck_JSONContentType(t *testing.T) {
	router := gin.New()
	router.GET("/health", HealthCheck)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
}
