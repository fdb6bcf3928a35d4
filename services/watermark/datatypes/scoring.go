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

// WatermarkRequest asks for one biased draw from a caller-supplied
// next-token distribution.
type WatermarkRequest struct {
	ModelID      string             `json:"model_id" validate:"required,model_id"`
	Distribution map[string]float64 `json:"distribution" validate:"required,min=1"`
	PrevToken    string             `json:"prev_token"`
}

// Validate checks the request against its declared constraints. Mass
// and finiteness checks live in the sampler, which owns those rules.
func (r *WatermarkRequest) Validate() error {
	return apiValidate.Struct(r)
}

// WatermarkResponse carries the sampled token.
type WatermarkResponse struct {
	ModelID string `json:"model_id"`
	Token   string `json:"token"`
}

// DetectRequest asks for the watermark score of a token sequence. An
// empty sequence is legal and scores 0.0.
type DetectRequest struct {
	ModelID string   `json:"model_id" validate:"required,model_id"`
	Tokens  []string `json:"tokens" validate:"omitempty,max=1048576,dive,max=512"`
}

// Validate checks the request against its declared constraints.
func (r *DetectRequest) Validate() error {
	return apiValidate.Struct(r)
}

// DetectResponse carries the raw z-score. Thresholding is the caller's
// policy, not the service's.
type DetectResponse struct {
	ModelID    string  `json:"model_id"`
	ZScore     float64 `json:"z_score"`
	TokenCount int     `json:"token_count"`
}

// CheckRequest scores free text against every registered model at once.
// Threshold overrides the service's flagging threshold when set.
type CheckRequest struct {
	Text      string   `json:"text" validate:"required,max=1048576"`
	Threshold *float64 `json:"threshold,omitempty" validate:"omitempty,gt=0"`
}

// Validate checks the request against its declared constraints.
func (r *CheckRequest) Validate() error {
	return apiValidate.Struct(r)
}

// CheckRow is one model's score against the submitted text.
type CheckRow struct {
	ModelID string  `json:"model_id"`
	ZScore  float64 `json:"z_score"`
	Flagged bool    `json:"flagged"`
	Error   string  `json:"error,omitempty"`
}

// CheckResponse summarizes a multi-model check.
type CheckResponse struct {
	Results    []CheckRow `json:"results"`
	Flagged    bool       `json:"flagged"`
	Verdict    string     `json:"verdict"`
	TokenCount int        `json:"token_count"`
	Threshold  float64    `json:"threshold"`
}

// GenerateRequest runs the demo generation loop: sample max_tokens
// continuations of prompt through the watermark.
type GenerateRequest struct {
	ModelID   string `json:"model_id" validate:"required,model_id"`
	Prompt    string `json:"prompt" validate:"max=65536"`
	MaxTokens int    `json:"max_tokens" validate:"omitempty,gte=1,lte=4096"`
}

// Validate checks the request against its declared constraints.
func (r *GenerateRequest) Validate() error {
	return apiValidate.Struct(r)
}

// EnsureDefaults fills the token budget when absent.
func (r *GenerateRequest) EnsureDefaults() {
	if r.MaxTokens == 0 {
		r.MaxTokens = 64
	}
}

// GenerateResponse carries the generated continuation.
type GenerateResponse struct {
	ModelID string   `json:"model_id"`
	Tokens  []string `json:"tokens"`
	Text    string   `json:"text"`
}
