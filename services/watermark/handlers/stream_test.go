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
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KashuvY/EthicalWatermarking/services/watermark/datatypes"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/greenlist"
)

// dialStream starts a test server around HandleStream and opens a
// client connection to it.
func dialStream(t *testing.T, store *greenlist.KeyStore) *websocket.Conn {
	t.Helper()

	sampler := greenlist.NewSampler(store, fixedSource(0.0))
	detector := greenlist.NewDetector(store)

	router := gin.New()
	router.GET("/v1/stream", HandleStream(sampler, detector))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/stream"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })

	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	return ws
}

func readStreamEvent(t *testing.T, ws *websocket.Conn) datatypes.StreamResponse {
	t.Helper()
	var resp datatypes.StreamResponse
	require.NoError(t, ws.ReadJSON(&resp))
	return resp
}

func TestHandleStream_SessionCreatedGreeting(t *testing.T) {
	store := newTestStore(t)
	ws := dialStream(t, store)

	greeting := readStreamEvent(t, ws)
	assert.Equal(t, datatypes.StreamEventSessionCreated, greeting.Type)
	assert.NotEmpty(t, greeting.SessionID)
}

func TestHandleStream_SelectAndDetect(t *testing.T) {
	store := newTestStore(t)
	mustRegister(t, store, "llama-7b", 0.5, 2.0)
	ws := dialStream(t, store)

	readStreamEvent(t, ws) // session_created

	require.NoError(t, ws.WriteJSON(datatypes.StreamRequest{
		Op:           datatypes.StreamOpSelect,
		ModelID:      "llama-7b",
		Distribution: map[string]float64{"token": 1.0},
	}))
	tok := readStreamEvent(t, ws)
	assert.Equal(t, datatypes.StreamEventToken, tok.Type)
	assert.Equal(t, "token", tok.Token)
	assert.Equal(t, 1, tok.Position)

	require.NoError(t, ws.WriteJSON(datatypes.StreamRequest{
		Op:           datatypes.StreamOpSelect,
		ModelID:      "llama-7b",
		Distribution: map[string]float64{"token": 1.0},
		PrevToken:    "token",
	}))
	tok = readStreamEvent(t, ws)
	assert.Equal(t, 2, tok.Position)

	require.NoError(t, ws.WriteJSON(datatypes.StreamRequest{
		Op:      datatypes.StreamOpDetect,
		ModelID: "llama-7b",
		Tokens:  []string{"token", "token"},
	}))
	score := readStreamEvent(t, ws)
	assert.Equal(t, datatypes.StreamEventScore, score.Type)
	require.NotNil(t, score.ZScore)
}

func TestHandleStream_InvalidOpReportsError(t *testing.T) {
	store := newTestStore(t)
	mustRegister(t, store, "llama-7b", 0.5, 2.0)
	ws := dialStream(t, store)

	readStreamEvent(t, ws) // session_created

	require.NoError(t, ws.WriteJSON(datatypes.StreamRequest{
		Op:      "score",
		ModelID: "llama-7b",
	}))
	ev := readStreamEvent(t, ws)
	assert.Equal(t, datatypes.StreamEventError, ev.Type)
	assert.NotEmpty(t, ev.Error)
}

func TestHandleStream_UnknownModelKeepsSessionAlive(t *testing.T) {
	store := newTestStore(t)
	mustRegister(t, store, "llama-7b", 0.5, 2.0)
	ws := dialStream(t, store)

	readStreamEvent(t, ws) // session_created

	require.NoError(t, ws.WriteJSON(datatypes.StreamRequest{
		Op:           datatypes.StreamOpSelect,
		ModelID:      "ghost",
		Distribution: map[string]float64{"a": 1.0},
	}))
	ev := readStreamEvent(t, ws)
	assert.Equal(t, datatypes.StreamEventError, ev.Type)

	// The error was per-operation; the connection still works.
	require.NoError(t, ws.WriteJSON(datatypes.StreamRequest{
		Op:           datatypes.StreamOpSelect,
		ModelID:      "llama-7b",
		Distribution: map[string]float64{"a": 1.0},
	}))
	ev = readStreamEvent(t, ws)
	assert.Equal(t, datatypes.StreamEventToken, ev.Type)
	assert.Equal(t, 1, ev.Position)
}
