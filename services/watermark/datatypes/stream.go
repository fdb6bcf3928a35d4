// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

// Websocket stream operations.
const (
	StreamOpSelect = "select"
	StreamOpDetect = "detect"
)

// Websocket event types sent by the server.
const (
	StreamEventSessionCreated = "session_created"
	StreamEventToken          = "token"
	StreamEventScore          = "score"
	StreamEventError          = "error"
)

// StreamRequest is one client operation on a sampling session: a biased
// draw (op "select") or a score over a sequence (op "detect").
type StreamRequest struct {
	Op           string             `json:"op" validate:"required,oneof=select detect"`
	ModelID      string             `json:"model_id" validate:"required,model_id"`
	Distribution map[string]float64 `json:"distribution,omitempty"`
	PrevToken    string             `json:"prev_token,omitempty"`
	Tokens       []string           `json:"tokens,omitempty"`
}

// Validate checks the request against its declared constraints.
func (r *StreamRequest) Validate() error {
	return apiValidate.Struct(r)
}

// StreamResponse is one server event on a sampling session. Position
// counts tokens selected so far in this session.
type StreamResponse struct {
	Type      string   `json:"type"`
	SessionID string   `json:"session_id,omitempty"`
	Token     string   `json:"token,omitempty"`
	Position  int      `json:"position,omitempty"`
	ZScore    *float64 `json:"z_score,omitempty"`
	Error     string   `json:"error,omitempty"`
}
