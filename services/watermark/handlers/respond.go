// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers provides HTTP request handlers for the watermark service.
//
// Every handler is a thin factory that closes over its dependencies and
// returns a gin.HandlerFunc. Validation lives in the datatypes package,
// scoring semantics live in greenlist; handlers translate between HTTP
// and those layers and record traces, metrics, and audit events.
package handlers

import (
	"errors"
	"net/http"

	"github.com/KashuvY/EthicalWatermarking/services/watermark/greenlist"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/observability"
)

// scoringStatus maps a greenlist error to an HTTP status and a metrics
// error code.
//
// # Description
//
// The greenlist package reports failures as sentinel errors or typed
// validation errors. Handlers need a consistent translation so that a
// missing model is always a 404 and a degenerate gamma is always a 422,
// regardless of which endpoint hit it.
//
// # Inputs
//
//   - err: Error returned by a KeyStore, Sampler, or Detector call
//
// # Outputs
//
//   - int: HTTP status code for the response
//   - observability.ErrorCode: Label for the errors_total counter
func scoringStatus(err error) (int, observability.ErrorCode) {
	var verr *greenlist.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, observability.ErrorCodeValidation
	case errors.Is(err, greenlist.ErrModelNotFound):
		return http.StatusNotFound, observability.ErrorCodeModelNotFound
	case errors.Is(err, greenlist.ErrZeroVariance):
		return http.StatusUnprocessableEntity, observability.ErrorCodeZeroVariance
	default:
		return http.StatusInternalServerError, observability.ErrorCodeInternal
	}
}

// recordError increments the error counter when metrics are initialized.
// Handlers call this on every failure path so dashboards see validation
// noise and genuine faults in the same place.
func recordError(endpoint observability.Endpoint, code observability.ErrorCode) {
	if m := observability.DefaultMetrics; m != nil {
		m.RecordError(endpoint, code)
	}
}

// recordRequest increments the request counter when metrics are initialized.
func recordRequest(endpoint observability.Endpoint, success bool) {
	if m := observability.DefaultMetrics; m != nil {
		m.RecordRequest(endpoint, success)
	}
}
