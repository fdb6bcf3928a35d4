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
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KashuvY/EthicalWatermarking/services/watermark/datatypes"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/greenlist"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/timeseries"
)

func postDetect(t *testing.T, router *gin.Engine, body any) *httptest.ResponseRecorder {
	t.Helper()
	jsonBody, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/detect", bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestHandleDetect_MatchesDetector(t *testing.T) {
	store := newTestStore(t)
	mustRegister(t, store, "llama-7b", 0.5, 2.0)
	detector := greenlist.NewDetector(store)

	tokens := []string{"the", "cat", "sat", "on", "the", "mat"}
	want, err := detector.Score("llama-7b", tokens)
	require.NoError(t, err)

	router := gin.New()
	router.POST("/v1/detect", HandleDetect(detector, timeseries.NopRecorder{}))

	w := postDetect(t, router, datatypes.DetectRequest{
		ModelID: "llama-7b",
		Tokens:  tokens,
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.DetectResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "llama-7b", resp.ModelID)
	assert.Equal(t, want, resp.ZScore)
	assert.Equal(t, len(tokens), resp.TokenCount)
}

func TestHandleDetect_EmptySequenceScoresZero(t *testing.T) {
	store := newTestStore(t)
	mustRegister(t, store, "llama-7b", 0.5, 2.0)
	detector := greenlist.NewDetector(store)

	router := gin.New()
	router.POST("/v1/detect", HandleDetect(detector, timeseries.NopRecorder{}))

	w := postDetect(t, router, datatypes.DetectRequest{
		ModelID: "llama-7b",
		Tokens:  []string{},
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.DetectResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0.0, resp.ZScore)
	assert.Equal(t, 0, resp.TokenCount)
}

func TestHandleDetect_UnknownModel(t *testing.T) {
	store := newTestStore(t)
	detector := greenlist.NewDetector(store)

	router := gin.New()
	router.POST("/v1/detect", HandleDetect(detector, timeseries.NopRecorder{}))

	w := postDetect(t, router, datatypes.DetectRequest{
		ModelID: "ghost",
		Tokens:  []string{"a"},
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleDetect_ZeroVariance(t *testing.T) {
	store := newTestStore(t)
	mustRegister(t, store, "all-green", 1.0, 2.0)
	detector := greenlist.NewDetector(store)

	router := gin.New()
	router.POST("/v1/detect", HandleDetect(detector, timeseries.NopRecorder{}))

	w := postDetect(t, router, datatypes.DetectRequest{
		ModelID: "all-green",
		Tokens:  []string{"a", "b"},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHandleDetect_ZeroVarianceEmptyStillScores(t *testing.T) {
	store := newTestStore(t)
	mustRegister(t, store, "all-green", 1.0, 2.0)
	detector := greenlist.NewDetector(store)

	router := gin.New()
	router.POST("/v1/detect", HandleDetect(detector, timeseries.NopRecorder{}))

	// The empty-sequence convention wins over the variance check.
	w := postDetect(t, router, datatypes.DetectRequest{
		ModelID: "all-green",
		Tokens:  []string{},
	})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleDetect_RecordsDetectionPoint(t *testing.T) {
	store := newTestStore(t)
	mustRegister(t, store, "llama-7b", 0.5, 2.0)
	detector := greenlist.NewDetector(store)
	recorder := newCaptureRecorder()

	router := gin.New()
	router.POST("/v1/detect", HandleDetect(detector, recorder))

	tokens := []string{"watermark", "telemetry", "check"}
	w := postDetect(t, router, datatypes.DetectRequest{
		ModelID: "llama-7b",
		Tokens:  tokens,
	})
	require.Equal(t, http.StatusOK, w.Code)

	// The write rides a background goroutine; wait for it.
	select {
	case d := <-recorder.ch:
		assert.Equal(t, "llama-7b", d.ModelID)
		assert.Equal(t, len(tokens), d.TokenCount)
		assert.Equal(t, "api", d.Source)
	case <-time.After(2 * time.Second):
		t.Fatal("detection point was never recorded")
	}
}
