// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the request and response types of the
// watermark service's HTTP and websocket surfaces, with validation rules
// enforced before any request reaches the core.
package datatypes

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/KashuvY/EthicalWatermarking/pkg/validation"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/greenlist"
)

// Security limits applied at the edge, before request bodies reach the
// registry or the scheme.
const (
	// MaxVocabularySize caps registered vocabularies. Real tokenizers
	// run ~100k entries; this allows headroom without letting one
	// request pin unbounded memory.
	MaxVocabularySize = 262144

	// MaxTokenBytes caps a single vocabulary or text token.
	MaxTokenBytes = 512

	// MaxSecretBytes caps registration keying material.
	MaxSecretBytes = 4096
)

var apiValidate *validator.Validate

func init() {
	apiValidate = validator.New()
	if err := apiValidate.RegisterValidation("model_id", validateModelIDField); err != nil {
		panic(fmt.Sprintf("failed to register model_id validator: %v", err))
	}
}

// validateModelIDField bridges the identifier rules into validator tags.
func validateModelIDField(fl validator.FieldLevel) bool {
	return validation.IsValidModelID(fl.Field().String())
}

// RegisterModelRequest installs or replaces a model's watermarking
// configuration.
//
// Gamma and Delta are pointers so an explicit zero survives the trip:
// absent values take the scheme defaults in EnsureDefaults.
type RegisterModelRequest struct {
	RequestID  string   `json:"request_id,omitempty" validate:"omitempty,uuid4"`
	ModelID    string   `json:"model_id" validate:"required,model_id"`
	Vocabulary []string `json:"vocabulary,omitempty" validate:"omitempty,max=262144,dive,max=512"`
	Secret     string   `json:"secret" validate:"required,max=4096"`
	Gamma      *float64 `json:"gamma,omitempty" validate:"omitempty,gte=0,lte=1"`
	Delta      *float64 `json:"delta,omitempty" validate:"omitempty,gte=0,lte=700"`
}

// Validate checks the request against its declared constraints.
func (r *RegisterModelRequest) Validate() error {
	return apiValidate.Struct(r)
}

// EnsureDefaults fills the request ID and absent tuning parameters.
func (r *RegisterModelRequest) EnsureDefaults() {
	if r.RequestID == "" {
		r.RequestID = uuid.New().String()
	}
	if r.Gamma == nil {
		gamma := greenlist.DefaultGamma
		r.Gamma = &gamma
	}
	if r.Delta == nil {
		delta := greenlist.DefaultDelta
		r.Delta = &delta
	}
}

// RegisterModelResponse acknowledges a successful registration.
type RegisterModelResponse struct {
	Status  string `json:"status"`
	ModelID string `json:"model_id"`
}

// ListModelsResponse enumerates registrations without their secrets.
type ListModelsResponse struct {
	Models []greenlist.ModelInfo `json:"models"`
	Count  int                   `json:"count"`
}
