// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package greenlist

import (
	"errors"
	"fmt"
)

// ErrModelNotFound is returned when an operation references a model ID
// with no current registration.
var ErrModelNotFound = errors.New("model not registered")

// ErrZeroVariance is returned by the detector when the registered gamma
// is exactly 0 or 1: the null hypothesis then has zero variance and the
// z-score is undefined.
var ErrZeroVariance = errors.New("gamma yields a zero-variance null distribution")

// ValidationError reports a malformed configuration value or call input.
// Validation failures are deterministic, never retryable, and the
// operation that raised one has had no side effects.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
